package ecgble

import (
	"bytes"
	"os"
	"strconv"
)

// ADCSensor reads an AD8232 front end through sysfs: the raw sample
// from an IIO ADC channel attribute and the LO+/LO- lead-detect
// outputs from GPIO value files.
//
// A failed lead-detect read is reported as lead-off, so wiring
// problems surface to the central as the "Leads off" state rather
// than as stale samples. A failed sample read repeats the last good
// sample.
type ADCSensor struct {
	samplePath  string
	loPlusPath  string
	loMinusPath string
	last        int
}

// NewADCSensor returns a sensor reading the paths in cfg.
func NewADCSensor(cfg SensorConfig) *ADCSensor {
	return &ADCSensor{
		samplePath:  cfg.ADCPath,
		loPlusPath:  cfg.LeadOffPlusPath,
		loMinusPath: cfg.LeadOffMinusPath,
	}
}

// LeadStatus reads the lead-detect GPIOs.
func (s *ADCSensor) LeadStatus() (bool, bool) {
	return readHigh(s.loPlusPath), readHigh(s.loMinusPath)
}

// ReadSample reads the raw ADC attribute, clamped to [0, MaxSample].
func (s *ADCSensor) ReadSample() int {
	data, err := os.ReadFile(s.samplePath)
	if err != nil {
		return s.last
	}
	v, err := strconv.Atoi(string(bytes.TrimSpace(data)))
	if err != nil {
		return s.last
	}
	if v < 0 {
		v = 0
	}
	if v > MaxSample {
		v = MaxSample
	}
	s.last = v
	return v
}

// readHigh reports whether a GPIO value file reads "1".
// Unreadable counts as high.
func readHigh(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	return string(bytes.TrimSpace(data)) == "1"
}
