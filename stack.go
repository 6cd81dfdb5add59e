package ecgble

// Central represents a remote central device connected to the
// peripheral.
type Central interface {
	// ID returns a stable identifier for the central, typically its
	// Bluetooth address.
	ID() string
}

// Stack is the radio-stack collaborator. It owns advertising, the GATT
// database and the physical link; the Session drives it and observes
// connect/disconnect edges through registered handlers.
//
// Implementations must guarantee the single-slot model: at most one
// central is connected at a time, advertising is suspended by the
// stack itself when a central connects, and it stays off until
// Advertise is called again.
type Stack interface {
	// Advertise begins broadcasting the configured device name and
	// service UUID. It is idempotent: calling it while already
	// advertising is a no-op and not an error.
	Advertise() error

	// Notify stores value as the characteristic value (served to READ
	// requests) and sends one notification to the connected central if
	// it has subscribed. It must not be called while disconnected.
	Notify(value []byte) error

	// Handle registers the specified handlers. Handlers run on the
	// stack's own context and must not block; reaction logic belongs
	// in the session loop.
	Handle(hh ...Handler)

	// Close releases the stack's resources.
	Close() error
}

// Handlers holds the callbacks a Stack implementation invokes.
// Implementations embed it and dispatch through the Connected,
// Disconnected and Written methods.
type Handlers struct {
	centralConnected    func(Central)
	centralDisconnected func(Central)
	valueWritten        func(Central, []byte)
}

// A Handler registers a callback with a Stack.
type Handler func(*Handlers)

// Handle applies the given registrations.
func (h *Handlers) Handle(hh ...Handler) {
	for _, reg := range hh {
		reg(h)
	}
}

// CentralConnected sets a function to be called when a central
// connects to the peripheral.
func CentralConnected(f func(Central)) Handler {
	return func(h *Handlers) { h.centralConnected = f }
}

// CentralDisconnected sets a function to be called when the central
// disconnects from the peripheral.
func CentralDisconnected(f func(Central)) Handler {
	return func(h *Handlers) { h.centralDisconnected = f }
}

// ValueWritten sets a function to be called when the central writes
// the characteristic.
func ValueWritten(f func(Central, []byte)) Handler {
	return func(h *Handlers) { h.valueWritten = f }
}

// Connected invokes the registered connect handler, if any.
func (h *Handlers) Connected(c Central) {
	if h.centralConnected != nil {
		h.centralConnected(c)
	}
}

// Disconnected invokes the registered disconnect handler, if any.
func (h *Handlers) Disconnected(c Central) {
	if h.centralDisconnected != nil {
		h.centralDisconnected(c)
	}
}

// Written invokes the registered write handler, if any.
func (h *Handlers) Written(c Central, value []byte) {
	if h.valueWritten != nil {
		h.valueWritten(c, value)
	}
}
