package ecgble

// MaxSample is the upper bound of the sample domain (12-bit ADC).
const MaxSample = 4095

// Sensor is the sensor collaborator: an ECG front end with two
// lead-detect outputs and one analog sample channel. The session reads
// it synchronously once per connected tick and never while
// disconnected.
type Sensor interface {
	// LeadStatus reports the LO+ and LO- lead-detect outputs.
	// true means the corresponding electrode is not in contact.
	LeadStatus() (loPlus, loMinus bool)

	// ReadSample returns the current raw sample in [0, MaxSample].
	// It is only called while both leads are in contact.
	ReadSample() int
}
