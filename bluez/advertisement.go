package bluez

import (
	"fmt"
	"sync"

	dbus "github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
)

const (
	advIface = "org.bluez.LEAdvertisement1"
	advPath  = dbus.ObjectPath("/com/ecgble/advertisement0")
)

// advertisement is the org.bluez.LEAdvertisement1 object announcing
// the device name and service UUID. BlueZ reads its properties when
// the advertisement is registered and calls Release when it takes the
// advertisement down itself.
type advertisement struct {
	cfg Config

	mu         sync.Mutex
	registered bool
}

func newAdvertisement(cfg Config) *advertisement {
	return &advertisement{cfg: cfg}
}

// Release is called by BlueZ when the advertisement is no longer
// active, e.g. on adapter shutdown.
func (a *advertisement) Release() *dbus.Error {
	a.mu.Lock()
	a.registered = false
	a.mu.Unlock()
	return nil
}

// export publishes the advertisement object on the bus.
func (a *advertisement) export(bus *dbus.Conn) error {
	if err := bus.Export(a, advPath, advIface); err != nil {
		return fmt.Errorf("export advertisement: %w", err)
	}
	if _, err := prop.Export(bus, advPath, advProperties(a.cfg)); err != nil {
		return fmt.Errorf("export advertisement properties: %w", err)
	}
	return nil
}

func (a *advertisement) unexport(bus *dbus.Conn) {
	_ = bus.Export(nil, advPath, advIface)
	_ = bus.Export(nil, advPath, propsIface)
}

// register hands the advertisement to the adapter, making the device
// discoverable.
func (a *advertisement) register(bus *dbus.Conn, adapter dbus.ObjectPath) error {
	a.mu.Lock()
	if a.registered {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	obj := bus.Object(bluezService, adapter)
	call := obj.Call(advManagerIface+".RegisterAdvertisement", 0, advPath, map[string]dbus.Variant{})
	if call.Err != nil {
		return fmt.Errorf("RegisterAdvertisement: %w", call.Err)
	}

	a.mu.Lock()
	a.registered = true
	a.mu.Unlock()
	return nil
}

// unregister withdraws the advertisement. Errors are swallowed: the
// advertisement may already be gone if BlueZ released it.
func (a *advertisement) unregister(bus *dbus.Conn, adapter dbus.ObjectPath) {
	a.mu.Lock()
	if !a.registered {
		a.mu.Unlock()
		return
	}
	a.registered = false
	a.mu.Unlock()

	obj := bus.Object(bluezService, adapter)
	_ = obj.Call(advManagerIface+".UnregisterAdvertisement", 0, advPath).Err
}

// advProperties builds the LEAdvertisement1 property table.
func advProperties(cfg Config) prop.Map {
	return prop.Map{
		advIface: {
			"Type":         {Value: "peripheral", Emit: prop.EmitConst},
			"LocalName":    {Value: cfg.DeviceName, Emit: prop.EmitConst},
			"ServiceUUIDs": {Value: []string{cfg.Service().Canonical()}, Emit: prop.EmitConst},
		},
	}
}
