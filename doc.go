// Package ecgble implements a BLE peripheral for an AD8232-style ECG
// front end.
//
// The peripheral advertises a single GATT service, accepts one central
// at a time, and pushes sensor values to the central as notifications
// at a fixed cadence. When the central disconnects, advertising is
// re-armed after a short settle delay and the device waits for the
// next connection. The loop runs until the process is stopped.
//
// The package is organized around three collaborators:
//
//   - Stack: the radio stack. It owns advertising, the GATT database
//     and the physical link. The bluez subpackage provides the Linux
//     implementation over the BlueZ D-Bus API; tests substitute fakes.
//   - Sensor: supplies lead-contact status and raw samples. SimSensor
//     generates a synthetic waveform; ADCSensor reads a sysfs-exposed
//     ADC channel and lead-detect GPIOs.
//   - Session: the control loop tying the two together.
//
// A minimal peripheral looks like:
//
//	cfg := ecgble.DefaultConfig()
//	stack, err := bluez.New(cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stack.Close()
//
//	s, err := ecgble.NewSession(cfg, stack, ecgble.NewSimSensor(0), logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(s.Run(context.Background()))
//
// The published value is a short UTF-8 token: either the decimal
// representation of the latest sample, or the sentinel "Leads off"
// when a lead-detect line reports that an electrode is not in contact.
// Lead-off is a reported state, not an error; it is delivered to the
// central like any sample.
//
// Note that some BLE central devices, particularly iOS, may
// aggressively cache GATT discovery results from previous connections.
// If you change the service or characteristic UUIDs, you may need to
// restart Bluetooth on the central to pick up the changes.
package ecgble
