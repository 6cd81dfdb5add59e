package ecgble

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// SimSensor generates a synthetic ECG-like waveform: a 2048 baseline
// with slow wander, a spike once per simulated beat and a little
// noise. It is useful on machines without the ADC wired up, and in
// tests.
type SimSensor struct {
	mu      sync.Mutex
	rng     *rand.Rand
	n       int
	loPlus  bool
	loMinus bool
}

// NewSimSensor returns a simulated sensor with both leads in contact.
// A zero seed selects a time-based seed.
func NewSimSensor(seed int64) *SimSensor {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimSensor{rng: rand.New(rand.NewSource(seed))}
}

// SetLeadsOff overrides the simulated lead-detect outputs.
func (s *SimSensor) SetLeadsOff(loPlus, loMinus bool) {
	s.mu.Lock()
	s.loPlus = loPlus
	s.loMinus = loMinus
	s.mu.Unlock()
}

// LeadStatus reports the simulated LO+ and LO- outputs.
func (s *SimSensor) LeadStatus() (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loPlus, s.loMinus
}

// ReadSample returns the next waveform sample.
func (s *SimSensor) ReadSample() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++

	v := 2048.0
	v += 150 * math.Sin(2*math.Pi*float64(s.n)/97) // baseline wander
	if s.n%20 < 2 {
		v += 1500 // R-wave, one beat per 20 samples (60 bpm at 20 Hz)
	}
	v += float64(s.rng.Intn(61) - 30)

	if v < 0 {
		v = 0
	}
	if v > MaxSample {
		v = MaxSample
	}
	return int(v)
}
