package ecgble

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// LeadsOffValue is the sentinel published when either lead-detect line
// reports that an electrode is not in contact.
const LeadsOffValue = "Leads off"

// Config holds the peripheral's startup configuration. The zero value
// is not usable; start from DefaultConfig or LoadConfig.
type Config struct {
	// DeviceName is the advertised local name.
	DeviceName string `yaml:"deviceName"`

	// ServiceUUID and CharacteristicUUID identify the GATT service and
	// its single READ|WRITE|NOTIFY characteristic.
	ServiceUUID        string `yaml:"serviceUuid"`
	CharacteristicUUID string `yaml:"characteristicUuid"`

	// SampleIntervalMs is the inter-sample delay while a central is
	// connected. IdleIntervalMs is the tick delay while disconnected.
	// SettleDelayMs is the pause after a disconnect before advertising
	// is re-armed, giving the stack time to release the link.
	SampleIntervalMs int `yaml:"sampleIntervalMs"`
	IdleIntervalMs   int `yaml:"idleIntervalMs"`
	SettleDelayMs    int `yaml:"settleDelayMs"`

	// Adapter is the BlueZ adapter to use, e.g. "hci0".
	// Empty selects the first adapter found.
	Adapter string `yaml:"adapter"`

	Sensor SensorConfig `yaml:"sensor"`
	Log    LogConfig    `yaml:"log"`
}

// SensorConfig selects and configures the sensor driver.
type SensorConfig struct {
	// Driver is "sim" for the synthetic waveform generator or "adc"
	// for the sysfs-backed driver.
	Driver string `yaml:"driver"`

	// ADCPath is the sysfs attribute holding the raw sample, e.g.
	// /sys/bus/iio/devices/iio:device0/in_voltage0_raw.
	ADCPath string `yaml:"adcPath"`

	// LeadOffPlusPath and LeadOffMinusPath are GPIO value files for the
	// LO+ and LO- lead-detect outputs; "1" means the lead is off.
	LeadOffPlusPath  string `yaml:"leadOffPlusPath"`
	LeadOffMinusPath string `yaml:"leadOffMinusPath"`
}

// LogConfig configures the daemon's log sink.
type LogConfig struct {
	// Level is a logrus level name; defaults to "info".
	Level string `yaml:"level"`

	// File, if set, routes logs to a rotated file instead of stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
}

// DefaultConfig returns the reference configuration: the identity and
// timing of the original ESP32 firmware, so existing host-side
// receivers keep working unmodified.
func DefaultConfig() Config {
	c := Config{}
	c.applyDefaults()
	return c
}

// LoadConfig reads a YAML configuration file, fills in defaults for
// omitted fields and validates the result.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.DeviceName == "" {
		c.DeviceName = "ESP32"
	}
	if c.ServiceUUID == "" {
		c.ServiceUUID = "12345678-1234-1234-1234-123456789abc"
	}
	if c.CharacteristicUUID == "" {
		c.CharacteristicUUID = "87654321-4321-4321-4321-cba987654321"
	}
	if c.SampleIntervalMs == 0 {
		c.SampleIntervalMs = 50
	}
	if c.IdleIntervalMs == 0 {
		c.IdleIntervalMs = 1000
	}
	if c.SettleDelayMs == 0 {
		c.SettleDelayMs = 500
	}
	if c.Sensor.Driver == "" {
		c.Sensor.Driver = "sim"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.DeviceName == "" {
		return fmt.Errorf("deviceName is required")
	}
	svc, err := ParseUUID(c.ServiceUUID)
	if err != nil {
		return fmt.Errorf("serviceUuid: %w", err)
	}
	char, err := ParseUUID(c.CharacteristicUUID)
	if err != nil {
		return fmt.Errorf("characteristicUuid: %w", err)
	}
	if svc.Equal(char) {
		return fmt.Errorf("serviceUuid and characteristicUuid must differ")
	}
	if c.SampleIntervalMs <= 0 || c.IdleIntervalMs <= 0 || c.SettleDelayMs <= 0 {
		return fmt.Errorf("intervals must be positive")
	}
	switch c.Sensor.Driver {
	case "sim":
	case "adc":
		if c.Sensor.ADCPath == "" {
			return fmt.Errorf("sensor.adcPath is required for the adc driver")
		}
		if c.Sensor.LeadOffPlusPath == "" || c.Sensor.LeadOffMinusPath == "" {
			return fmt.Errorf("sensor lead-off GPIO paths are required for the adc driver")
		}
	default:
		return fmt.Errorf("unknown sensor driver %q", c.Sensor.Driver)
	}
	return nil
}

// Service returns the parsed service UUID.
// The configuration must have been validated.
func (c Config) Service() UUID {
	return MustParseUUID(c.ServiceUUID)
}

// Characteristic returns the parsed characteristic UUID.
// The configuration must have been validated.
func (c Config) Characteristic() UUID {
	return MustParseUUID(c.CharacteristicUUID)
}

// SampleInterval returns the connected-tick delay as a Duration.
func (c Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalMs) * time.Millisecond
}

// IdleInterval returns the disconnected-tick delay as a Duration.
func (c Config) IdleInterval() time.Duration {
	return time.Duration(c.IdleIntervalMs) * time.Millisecond
}

// SettleDelay returns the post-disconnect pause as a Duration.
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}
