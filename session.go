package ecgble

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Session is the peripheral session manager. It owns the relationship
// between the device and at most one central: while disconnected it
// keeps advertising armed, and while connected it pushes one sensor
// value per tick to the central.
//
// The stack's connect/disconnect callbacks only flip a flag; all
// reaction logic (settling, re-advertising, sampling, notifying) runs
// in the tick loop so the stack's own context is never blocked.
type Session struct {
	cfg    Config
	stack  Stack
	sensor Sensor
	log    logrus.FieldLogger

	// connected is written by the stack callbacks and read by the
	// tick loop.
	connected atomic.Bool

	// wasConnected is the edge-detection memory, touched only by the
	// tick loop.
	wasConnected bool

	// advertisePending marks a failed advertising start to be retried
	// on the next idle tick.
	advertisePending bool

	sleep func(time.Duration)
}

// NewSession validates cfg and registers the session's handlers with
// the stack. Run must be called before the stack accepts connections.
func NewSession(cfg Config, stack Stack, sensor Sensor, log logrus.FieldLogger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	s := &Session{
		cfg:    cfg,
		stack:  stack,
		sensor: sensor,
		log:    log,
		sleep:  time.Sleep,
	}
	stack.Handle(
		CentralConnected(func(c Central) {
			s.connected.Store(true)
			log.WithField("central", c.ID()).Info("central connected")
		}),
		CentralDisconnected(func(c Central) {
			s.connected.Store(false)
			log.WithField("central", c.ID()).Info("central disconnected")
		}),
		ValueWritten(func(c Central, value []byte) {
			log.WithFields(logrus.Fields{
				"central": c.ID(),
				"value":   string(value),
			}).Info("characteristic written")
		}),
	)
	return s, nil
}

// Run starts advertising and then ticks forever, pumping notifications
// while connected and keeping advertising armed while not. It returns
// only when ctx is done, or immediately if advertising cannot be
// started at boot: a peripheral nobody can discover has no purpose.
//
// The tick delays are plain sleeps; cancellation is observed once per
// tick, so shutdown can lag by up to the idle interval.
func (s *Session) Run(ctx context.Context) error {
	if err := s.stack.Advertise(); err != nil {
		return fmt.Errorf("session: start advertising: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"name":    s.cfg.DeviceName,
		"service": s.cfg.Service().Canonical(),
	}).Info("advertising")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.tick()
	}
}

// tick runs one iteration of the control loop.
func (s *Session) tick() {
	connected := s.connected.Load()

	// Disconnect edge: give the stack time to release the link, then
	// re-arm advertising before any idle ticks run.
	if !connected && s.wasConnected {
		s.sleep(s.cfg.SettleDelay())
		s.advertise()
		s.wasConnected = false
		return
	}

	// Connect edge: the stack has already suspended advertising on its
	// own; there is nothing to do beyond remembering the state, and the
	// first samples go out this same tick.
	if connected && !s.wasConnected {
		s.wasConnected = true
	}

	if connected {
		s.pump()
		s.sleep(s.cfg.SampleInterval())
		return
	}

	if s.advertisePending {
		s.advertise()
	}
	s.sleep(s.cfg.IdleInterval())
}

// advertise starts advertising, deferring to the next idle tick on
// failure. Transient stack errors are not worth crashing over once the
// peripheral is up.
func (s *Session) advertise() {
	if err := s.stack.Advertise(); err != nil {
		s.advertisePending = true
		s.log.WithError(err).Warn("advertising start failed, will retry")
		return
	}
	if s.advertisePending {
		s.log.Info("advertising resumed after retry")
	}
	s.advertisePending = false
}

// pump reads the sensor and pushes one value to the central.
func (s *Session) pump() {
	value := s.sample()
	if err := s.stack.Notify(value); err != nil {
		s.log.WithError(err).Warn("notify failed")
		return
	}
	s.log.WithField("value", string(value)).Debug("notified")
}

// sample produces the tick's characteristic value: the lead-off
// sentinel if either electrode is loose, else the decimal sample.
func (s *Session) sample() []byte {
	loPlus, loMinus := s.sensor.LeadStatus()
	if loPlus || loMinus {
		return []byte(LeadsOffValue)
	}
	return strconv.AppendInt(nil, int64(s.sensor.ReadSample()), 10)
}
