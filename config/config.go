// Package config resolves the process configuration once at startup from a
// JSON file. There is no hot-reload: the source selection, link parameters
// and polling cadence are fixed for the life of the process.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/emusa/energymon/kron"
)

type SerialConfig struct {
	Ports             []string `json:"ports"` // candidate devices probed in order
	BaudRate          int      `json:"baudRate"`
	DataBits          int      `json:"dataBits"`
	Parity            string   `json:"parity"`
	StopBits          int      `json:"stopBits"`
	SlaveIDs          []int    `json:"slaveIds"` // candidate modbus addresses per port
	TimeoutMillis     int      `json:"timeoutMillis"`
	ProbeFunctionCode uint8    `json:"probeFunctionCode"`
	ProbeAddress      uint16   `json:"probeAddress"`
	ProbeWords        uint16   `json:"probeWords"`
	ExpectedPrefix    string   `json:"expectedPrefix"`
}

type MeterConfig struct {
	ID              uuid.UUID    `json:"id"`
	UseSimulator    bool         `json:"useSimulator"`
	RegisterMapPath string       `json:"registerMapPath"` // empty = built-in CH30 map
	Serial          SerialConfig `json:"serial"`
}

type AcquisitionConfig struct {
	PollIntervalMillis   int     `json:"pollIntervalMillis"`
	BackoffInitialMillis int     `json:"backoffInitialMillis"`
	BackoffMaxMillis     int     `json:"backoffMaxMillis"`
	BackoffFactor        float64 `json:"backoffFactor"`
	TimeoutThreshold     int     `json:"timeoutThreshold"`
	HistorySize          int     `json:"historySize"`
	SubscriberBuffer     int     `json:"subscriberBuffer"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

type SupabaseConfig struct {
	Url string `json:"url"`
	// key is specified via env var
	Schema string `json:"schema"`
}

type DataPlatformConfig struct {
	Enabled            bool           `json:"enabled"`
	UploadIntervalSecs int            `json:"uploadIntervalSecs"`
	Supabase           SupabaseConfig `json:"supabase"`
}

type ReportConfig struct {
	Enabled       bool   `json:"enabled"`
	OutputDir     string `json:"outputDir"`
	IntervalHours int    `json:"intervalHours"`
	WindowHours   int    `json:"windowHours"`
	Title         string `json:"title"`
}

type Config struct {
	Meter        MeterConfig        `json:"meter"`
	Acquisition  AcquisitionConfig  `json:"acquisition"`
	Database     DatabaseConfig     `json:"database"`
	DataPlatform DataPlatformConfig `json:"dataPlatform"`
	Report       ReportConfig       `json:"report"`
}

func Read(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var config Config
	err = json.Unmarshal(content, &config)
	if err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	config.applyDefaults()
	return config, nil
}

// Default is the configuration used when no file is given: simulator source,
// local sqlite, no uploads.
func Default() Config {
	var config Config
	config.Meter.UseSimulator = true
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	s := &c.Meter.Serial
	if len(s.Ports) == 0 {
		s.Ports = []string{"/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyUSB2", "/dev/ttyUSB3"}
	}
	if s.BaudRate == 0 {
		s.BaudRate = 9600
	}
	if s.DataBits == 0 {
		s.DataBits = 8
	}
	if s.Parity == "" {
		s.Parity = "N"
	}
	if s.StopBits == 0 {
		s.StopBits = 2
	}
	if len(s.SlaveIDs) == 0 {
		s.SlaveIDs = []int{1, 2, 3, 4}
	}
	if s.TimeoutMillis == 0 {
		s.TimeoutMillis = 1500
	}
	if s.ProbeFunctionCode == 0 {
		s.ProbeFunctionCode = 3
	}
	if s.ProbeWords == 0 {
		s.ProbeWords = 2
	}
	if s.ExpectedPrefix == "" {
		s.ExpectedPrefix = "CH30"
	}

	a := &c.Acquisition
	if a.PollIntervalMillis == 0 {
		a.PollIntervalMillis = 1000
	}
	if a.BackoffInitialMillis == 0 {
		a.BackoffInitialMillis = 1000
	}
	if a.BackoffMaxMillis == 0 {
		a.BackoffMaxMillis = 30000
	}
	if a.BackoffFactor == 0 {
		a.BackoffFactor = 2
	}
	if a.TimeoutThreshold == 0 {
		a.TimeoutThreshold = 3
	}
	if a.HistorySize == 0 {
		a.HistorySize = 600
	}
	if a.SubscriberBuffer == 0 {
		a.SubscriberBuffer = 25
	}

	if c.Database.Path == "" {
		c.Database.Path = "telemetry.sqlite"
	}
	if c.DataPlatform.UploadIntervalSecs == 0 {
		c.DataPlatform.UploadIntervalSecs = 5
	}
	if c.Report.IntervalHours == 0 {
		c.Report.IntervalHours = 24
	}
	if c.Report.WindowHours == 0 {
		c.Report.WindowHours = 24
	}
	if c.Report.OutputDir == "" {
		c.Report.OutputDir = "."
	}
	if c.Meter.ID == uuid.Nil {
		c.Meter.ID = uuid.New()
	}
}

// SerialSettings converts the serial section into the adapter's settings.
func (m MeterConfig) SerialSettings() kron.SerialSettings {
	slaves := make([]byte, 0, len(m.Serial.SlaveIDs))
	for _, id := range m.Serial.SlaveIDs {
		slaves = append(slaves, byte(id))
	}
	return kron.SerialSettings{
		Ports:             m.Serial.Ports,
		BaudRate:          m.Serial.BaudRate,
		DataBits:          m.Serial.DataBits,
		Parity:            m.Serial.Parity,
		StopBits:          m.Serial.StopBits,
		SlaveIDs:          slaves,
		Timeout:           time.Duration(m.Serial.TimeoutMillis) * time.Millisecond,
		ProbeFunctionCode: m.Serial.ProbeFunctionCode,
		ProbeAddress:      m.Serial.ProbeAddress,
		ProbeWords:        m.Serial.ProbeWords,
		ExpectedPrefix:    m.Serial.ExpectedPrefix,
	}
}
