// Package bluez implements ecgble.Stack on Linux through the BlueZ
// D-Bus API: it exports a GATT application and an LE advertisement,
// registers both with the adapter, and derives connect/disconnect
// edges from org.bluez.Device1 property changes.
//
// BlueZ itself keeps a registered advertisement active across
// connections, which would leave the peripheral discoverable while
// occupied. To preserve the single-slot model the advertisement is
// unregistered as soon as a central connects, and Advertise registers
// it again.
package bluez

import (
	"fmt"
	"strings"
	"sync"

	dbus "github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"

	"github.com/ecgble/ecgble"
)

const (
	bluezService = "org.bluez"

	adapterIface     = "org.bluez.Adapter1"
	deviceIface      = "org.bluez.Device1"
	advManagerIface  = "org.bluez.LEAdvertisingManager1"
	gattManagerIface = "org.bluez.GattManager1"

	objManagerIface = "org.freedesktop.DBus.ObjectManager"
	propsIface      = "org.freedesktop.DBus.Properties"
)

// Stack is the BlueZ-backed radio stack.
type Stack struct {
	ecgble.Handlers

	cfg Config
	log logrus.FieldLogger

	bus     *dbus.Conn
	adapter dbus.ObjectPath

	adv *advertisement
	app *application

	mu          sync.Mutex
	advertising bool
	central     dbus.ObjectPath // connected central's Device1 path, "" when idle

	sigCh   chan *dbus.Signal
	done    chan struct{}
	cleanup []func()
}

// Config is an alias kept small on purpose: the stack needs the same
// identity block the session uses.
type Config = ecgble.Config

// central is the Central presented to handlers.
type central struct {
	path dbus.ObjectPath
}

// ID returns the central's Bluetooth address, derived from its BlueZ
// object path.
func (c central) ID() string {
	return addressFromPath(c.path)
}

// New connects to the system bus, powers the adapter, and exports and
// registers the GATT application. Advertising is not started; the
// session does that.
func New(cfg Config, log logrus.FieldLogger) (*Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bluez: %w", err)
	}

	bus, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("bluez: connect system bus: %w", err)
	}

	s := &Stack{
		cfg:  cfg,
		log:  log,
		bus:  bus,
		done: make(chan struct{}),
	}
	s.cleanup = append(s.cleanup, func() { bus.Close() })

	if err := s.setup(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Stack) setup() error {
	adapter, err := findAdapter(s.bus, s.cfg.Adapter)
	if err != nil {
		return err
	}
	s.adapter = adapter

	if err := s.powerOn(); err != nil {
		return err
	}

	s.app = newApplication(s)
	if err := s.app.export(s.bus); err != nil {
		return err
	}
	s.cleanup = append(s.cleanup, func() { s.app.unexport(s.bus) })

	if err := s.registerApplication(); err != nil {
		return err
	}

	s.adv = newAdvertisement(s.cfg)
	if err := s.adv.export(s.bus); err != nil {
		return err
	}
	s.cleanup = append(s.cleanup, func() {
		s.adv.unregister(s.bus, s.adapter)
		s.adv.unexport(s.bus)
	})

	if err := s.watchConnections(); err != nil {
		return err
	}

	s.log.WithField("adapter", string(s.adapter)).Info("bluez stack ready")
	return nil
}

func (s *Stack) powerOn() error {
	obj := s.bus.Object(bluezService, s.adapter)
	if call := obj.Call(propsIface+".Set", 0, adapterIface, "Powered", dbus.MakeVariant(true)); call.Err != nil {
		return fmt.Errorf("bluez: power on %s: %w", s.adapter, call.Err)
	}
	return nil
}

func (s *Stack) registerApplication() error {
	obj := s.bus.Object(bluezService, s.adapter)
	call := obj.Call(gattManagerIface+".RegisterApplication", 0, s.app.path, map[string]dbus.Variant{})
	if call.Err != nil {
		return fmt.Errorf("bluez: RegisterApplication: %w", call.Err)
	}
	s.cleanup = append(s.cleanup, func() {
		_ = obj.Call(gattManagerIface+".UnregisterApplication", 0, s.app.path).Err
	})
	return nil
}

// watchConnections subscribes to Device1 property changes and turns
// them into connect/disconnect handler invocations.
func (s *Stack) watchConnections() error {
	opts := []dbus.MatchOption{
		dbus.WithMatchInterface(propsIface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchArg(0, deviceIface),
	}
	if err := s.bus.AddMatchSignal(opts...); err != nil {
		return fmt.Errorf("bluez: AddMatchSignal: %w", err)
	}
	s.cleanup = append(s.cleanup, func() { _ = s.bus.RemoveMatchSignal(opts...) })

	s.sigCh = make(chan *dbus.Signal, 16)
	s.bus.Signal(s.sigCh)
	s.cleanup = append(s.cleanup, func() {
		close(s.done)
		s.bus.RemoveSignal(s.sigCh)
	})

	go s.signalLoop()
	return nil
}

func (s *Stack) signalLoop() {
	for {
		select {
		case <-s.done:
			return
		case sig := <-s.sigCh:
			if sig == nil {
				return
			}
			connected, ok := connectedChange(sig)
			if !ok {
				continue
			}
			s.onConnectedChange(sig.Path, connected)
		}
	}
}

// connectedChange extracts the Connected property from a Device1
// PropertiesChanged signal, reporting ok=false when the signal is
// about something else.
func connectedChange(sig *dbus.Signal) (connected, ok bool) {
	if len(sig.Body) < 2 {
		return false, false
	}
	iface, _ := sig.Body[0].(string)
	if iface != deviceIface {
		return false, false
	}
	changed, _ := sig.Body[1].(map[string]dbus.Variant)
	v, present := changed["Connected"]
	if !present {
		return false, false
	}
	b, _ := v.Value().(bool)
	return b, true
}

func (s *Stack) onConnectedChange(path dbus.ObjectPath, connected bool) {
	s.mu.Lock()
	if connected {
		if s.central != "" && s.central != path {
			// Occupied; the stack's single advertised slot should have
			// prevented this. Leave the intruder to BlueZ.
			s.mu.Unlock()
			s.log.WithField("central", addressFromPath(path)).Warn("ignoring second central")
			return
		}
		s.central = path
		s.advertising = false
		s.mu.Unlock()

		// Advertising must not continue while the slot is taken.
		s.adv.unregister(s.bus, s.adapter)
		s.Connected(central{path})
		return
	}

	if s.central != path {
		s.mu.Unlock()
		return
	}
	s.central = ""
	s.mu.Unlock()

	s.app.char.stopNotify()
	s.Disconnected(central{path})
}

// Advertise registers the LE advertisement with the adapter. Calling
// it while already advertising is a no-op.
func (s *Stack) Advertise() error {
	s.mu.Lock()
	if s.advertising {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.adv.register(s.bus, s.adapter); err != nil {
		return fmt.Errorf("bluez: %w", err)
	}

	s.mu.Lock()
	s.advertising = true
	s.mu.Unlock()
	return nil
}

// Notify updates the characteristic value and, if the central has
// subscribed, lets BlueZ push it as a notification.
func (s *Stack) Notify(value []byte) error {
	return s.app.char.setValue(value)
}

// Close unregisters everything and closes the bus connection.
// It is safe to call more than once.
func (s *Stack) Close() error {
	s.mu.Lock()
	cleanup := s.cleanup
	s.cleanup = nil
	s.mu.Unlock()

	for i := len(cleanup) - 1; i >= 0; i-- {
		cleanup[i]()
	}
	return nil
}

// findAdapter locates a BlueZ adapter object. name selects a specific
// adapter ("hci0"); empty takes the first one found.
func findAdapter(bus *dbus.Conn, name string) (dbus.ObjectPath, error) {
	obj := bus.Object(bluezService, "/")
	var objs map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if call := obj.Call(objManagerIface+".GetManagedObjects", 0); call.Err != nil {
		return "", fmt.Errorf("bluez: GetManagedObjects: %w", call.Err)
	} else if err := call.Store(&objs); err != nil {
		return "", fmt.Errorf("bluez: decode GetManagedObjects: %w", err)
	}
	for path, ifaces := range objs {
		if _, ok := ifaces[adapterIface]; !ok {
			continue
		}
		if name == "" || strings.HasSuffix(string(path), "/"+name) {
			return path, nil
		}
	}
	if name != "" {
		return "", fmt.Errorf("bluez: adapter %q not found", name)
	}
	return "", fmt.Errorf("bluez: no adapter found")
}

// addressFromPath derives a Bluetooth address from a Device1 object
// path such as /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF.
func addressFromPath(p dbus.ObjectPath) string {
	s := string(p)
	idx := strings.LastIndex(s, "/dev_")
	if idx < 0 {
		return s
	}
	return strings.ReplaceAll(s[idx+5:], "_", ":")
}
