package bluez

import (
	"fmt"
	"sync"

	dbus "github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
)

const (
	gattServiceIface = "org.bluez.GattService1"
	gattCharIface    = "org.bluez.GattCharacteristic1"

	appPath     = dbus.ObjectPath("/com/ecgble")
	servicePath = dbus.ObjectPath("/com/ecgble/service0")
	charPath    = dbus.ObjectPath("/com/ecgble/service0/char0")
)

// application is the GATT object tree handed to BlueZ: one primary
// service with one characteristic. BlueZ enumerates it through
// org.freedesktop.DBus.ObjectManager on the application root.
type application struct {
	stack *Stack
	path  dbus.ObjectPath
	char  *characteristic
}

func newApplication(s *Stack) *application {
	return &application{
		stack: s,
		path:  appPath,
		char: &characteristic{
			stack: s,
			uuid:  s.cfg.Characteristic().Canonical(),
		},
	}
}

// GetManagedObjects implements org.freedesktop.DBus.ObjectManager for
// BlueZ's application registration.
func (a *application) GetManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, *dbus.Error) {
	return map[dbus.ObjectPath]map[string]map[string]dbus.Variant{
		servicePath: {
			gattServiceIface: serviceProperties(a.stack.cfg),
		},
		charPath: {
			gattCharIface: a.char.properties(),
		},
	}, nil
}

func (a *application) export(bus *dbus.Conn) error {
	if err := bus.Export(a, a.path, objManagerIface); err != nil {
		return fmt.Errorf("export application: %w", err)
	}
	if _, err := prop.Export(bus, servicePath, prop.Map{
		gattServiceIface: {
			"UUID":    {Value: a.stack.cfg.Service().Canonical(), Emit: prop.EmitConst},
			"Primary": {Value: true, Emit: prop.EmitConst},
		},
	}); err != nil {
		return fmt.Errorf("export service properties: %w", err)
	}
	if err := a.char.export(bus); err != nil {
		return err
	}
	return nil
}

func (a *application) unexport(bus *dbus.Conn) {
	_ = bus.Export(nil, a.path, objManagerIface)
	_ = bus.Export(nil, servicePath, propsIface)
	a.char.unexport(bus)
}

// serviceProperties builds the GattService1 property map served
// through GetManagedObjects.
func serviceProperties(cfg Config) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"UUID":    dbus.MakeVariant(cfg.Service().Canonical()),
		"Primary": dbus.MakeVariant(true),
	}
}

// characteristic is the org.bluez.GattCharacteristic1 object holding
// the published value. Notifications are delivered by emitting
// PropertiesChanged on Value; BlueZ forwards them to a subscribed
// central.
type characteristic struct {
	stack *Stack
	uuid  string

	mu        sync.Mutex
	value     []byte
	notifying bool

	props *prop.Properties
}

// charFlags are the characteristic's GATT properties.
func charFlags() []string {
	return []string{"read", "write", "notify"}
}

func (c *characteristic) export(bus *dbus.Conn) error {
	if err := bus.Export(c, charPath, gattCharIface); err != nil {
		return fmt.Errorf("export characteristic: %w", err)
	}
	props, err := prop.Export(bus, charPath, prop.Map{
		gattCharIface: {
			"UUID":      {Value: c.uuid, Emit: prop.EmitConst},
			"Service":   {Value: servicePath, Emit: prop.EmitConst},
			"Flags":     {Value: charFlags(), Emit: prop.EmitConst},
			"Value":     {Value: []byte{}, Emit: prop.EmitTrue},
			"Notifying": {Value: false, Emit: prop.EmitTrue},
		},
	})
	if err != nil {
		return fmt.Errorf("export characteristic properties: %w", err)
	}
	c.props = props
	return nil
}

func (c *characteristic) unexport(bus *dbus.Conn) {
	_ = bus.Export(nil, charPath, gattCharIface)
	_ = bus.Export(nil, charPath, propsIface)
}

// properties builds the property map served through GetManagedObjects.
func (c *characteristic) properties() map[string]dbus.Variant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]dbus.Variant{
		"UUID":      dbus.MakeVariant(c.uuid),
		"Service":   dbus.MakeVariant(servicePath),
		"Flags":     dbus.MakeVariant(charFlags()),
		"Notifying": dbus.MakeVariant(c.notifying),
	}
}

// ReadValue serves a central's READ request with the current value.
func (c *characteristic) ReadValue(options map[string]dbus.Variant) ([]byte, *dbus.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.value))
	copy(out, c.value)
	return out, nil
}

// WriteValue stores a central's WRITE and reports it to the registered
// handler.
func (c *characteristic) WriteValue(value []byte, options map[string]dbus.Variant) *dbus.Error {
	c.mu.Lock()
	c.value = append(c.value[:0], value...)
	c.mu.Unlock()

	c.stack.Written(central{devicePathOption(options)}, value)
	return nil
}

// StartNotify is called by BlueZ when the central enables
// notifications through the CCC descriptor.
func (c *characteristic) StartNotify() *dbus.Error {
	c.setNotifying(true)
	return nil
}

// StopNotify is called by BlueZ when the central disables
// notifications.
func (c *characteristic) StopNotify() *dbus.Error {
	c.setNotifying(false)
	return nil
}

// stopNotify resets the subscription state. BlueZ does not always call
// StopNotify when the link drops, so the stack calls this on
// disconnect.
func (c *characteristic) stopNotify() {
	c.setNotifying(false)
}

func (c *characteristic) setNotifying(on bool) {
	c.mu.Lock()
	c.notifying = on
	props := c.props
	c.mu.Unlock()
	if props != nil {
		props.SetMust(gattCharIface, "Notifying", on)
	}
}

// setValue publishes a new characteristic value. The PropertiesChanged
// emission is what BlueZ turns into a notification.
func (c *characteristic) setValue(value []byte) error {
	c.mu.Lock()
	c.value = append(c.value[:0], value...)
	props := c.props
	c.mu.Unlock()

	if props == nil {
		return fmt.Errorf("bluez: characteristic not exported")
	}
	props.SetMust(gattCharIface, "Value", value)
	return nil
}

// devicePathOption extracts the central's Device1 path from a
// characteristic operation's options.
func devicePathOption(options map[string]dbus.Variant) dbus.ObjectPath {
	v, ok := options["device"]
	if !ok {
		return ""
	}
	p, _ := v.Value().(dbus.ObjectPath)
	return p
}
