package ecgble

import (
	"os"
	"path/filepath"
	"testing"
)

func writeAttr(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestADCSensorReadSample(t *testing.T) {
	dir := t.TempDir()
	cfg := SensorConfig{
		ADCPath:          writeAttr(t, dir, "in_voltage0_raw", "2042\n"),
		LeadOffPlusPath:  writeAttr(t, dir, "lo_plus", "0\n"),
		LeadOffMinusPath: writeAttr(t, dir, "lo_minus", "0\n"),
	}
	s := NewADCSensor(cfg)

	if got := s.ReadSample(); got != 2042 {
		t.Errorf("ReadSample: got %d want 2042", got)
	}

	// Out-of-range readings clamp to the sample domain.
	writeAttr(t, dir, "in_voltage0_raw", "9999")
	if got := s.ReadSample(); got != MaxSample {
		t.Errorf("ReadSample clamp: got %d want %d", got, MaxSample)
	}

	// Garbage repeats the last good sample.
	writeAttr(t, dir, "in_voltage0_raw", "garbage")
	if got := s.ReadSample(); got != MaxSample {
		t.Errorf("ReadSample after bad read: got %d want %d", got, MaxSample)
	}
}

func TestADCSensorLeadStatus(t *testing.T) {
	dir := t.TempDir()
	loPlus := writeAttr(t, dir, "lo_plus", "0\n")
	loMinus := writeAttr(t, dir, "lo_minus", "1\n")
	s := NewADCSensor(SensorConfig{
		ADCPath:          writeAttr(t, dir, "raw", "0"),
		LeadOffPlusPath:  loPlus,
		LeadOffMinusPath: loMinus,
	})

	if p, m := s.LeadStatus(); p || !m {
		t.Errorf("LeadStatus: got %v %v want false true", p, m)
	}

	writeAttr(t, dir, "lo_plus", "1")
	writeAttr(t, dir, "lo_minus", "0")
	if p, m := s.LeadStatus(); !p || m {
		t.Errorf("LeadStatus: got %v %v want true false", p, m)
	}
}

func TestADCSensorMissingFilesReadAsLeadOff(t *testing.T) {
	s := NewADCSensor(SensorConfig{
		ADCPath:          "/nonexistent/raw",
		LeadOffPlusPath:  "/nonexistent/lo_plus",
		LeadOffMinusPath: "/nonexistent/lo_minus",
	})
	if p, m := s.LeadStatus(); !p || !m {
		t.Errorf("missing GPIO files should read as lead-off, got %v %v", p, m)
	}
	if got := s.ReadSample(); got != 0 {
		t.Errorf("missing ADC file: got %d want 0", got)
	}
}
