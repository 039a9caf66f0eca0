// Package config loads the opmetrics YAML configuration.
package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/opmetrics/internal/aggregator"
	"github.com/ethpandaops/opmetrics/internal/codec"
	"github.com/ethpandaops/opmetrics/internal/cycles"
	"github.com/ethpandaops/opmetrics/internal/report"
	"github.com/ethpandaops/opmetrics/internal/reporter"
)

// Config is the top-level configuration for opmetrics.
type Config struct {
	// LogLevel sets the logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// Frequency is the CPU cycle counter frequency, e.g. "3.2GHz".
	// Required for converting records into time units.
	Frequency string `yaml:"frequency"`

	// TimeUnit is the unit reports are converted into. Defaults to ns.
	TimeUnit string `yaml:"time_unit"`

	// Compression is the envelope used when writing records. Input files
	// are decoded by extension.
	Compression string `yaml:"compression"`

	// Aggregator configures the merge coordinator.
	Aggregator aggregator.Config `yaml:"aggregator"`

	// Reporter configures the span reporter.
	Reporter reporter.Config `yaml:"reporter"`

	// Report configures table rendering.
	Report ReportConfig `yaml:"report"`
}

// ReportConfig configures table rendering.
type ReportConfig struct {
	// TopOpcodes limits the opcode table. -1 shows all.
	TopOpcodes int `yaml:"top_opcodes"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:    "info",
		TimeUnit:    string(cycles.Nanosecond),
		Compression: codec.CompressionNone,
		Aggregator: aggregator.Config{
			QueueSize: aggregator.DefaultQueueSize,
		},
		Reporter: reporter.Config{
			SpanName: reporter.DefaultSpanName,
		},
		Report: ReportConfig{
			TopOpcodes: report.DefaultTopOpcodes,
		},
	}
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	if c.Frequency != "" {
		if _, err := cycles.ParseFrequency(c.Frequency); err != nil {
			return fmt.Errorf("frequency: %w", err)
		}
	}

	unit, err := cycles.ParseUnit(c.TimeUnit)
	if err != nil {
		return fmt.Errorf("time_unit: %w", err)
	}

	if !unit.IsTime() {
		return fmt.Errorf("time_unit must be a time unit, got %q", c.TimeUnit)
	}

	if !codec.ValidCompression(c.Compression) {
		return fmt.Errorf("unsupported compression: %s", c.Compression)
	}

	if c.Aggregator.QueueSize <= 0 {
		return fmt.Errorf("aggregator.queue_size must be positive")
	}

	if c.Reporter.Enabled && c.Reporter.SpanName == "" {
		return fmt.Errorf("reporter.span_name is required when the reporter is enabled")
	}

	if c.Report.TopOpcodes < -1 {
		return fmt.Errorf("report.top_opcodes must be -1 or greater")
	}

	return nil
}

// Converter builds the cycle converter from Frequency.
func (c *Config) Converter() (cycles.Converter, error) {
	if c.Frequency == "" {
		return cycles.Converter{}, fmt.Errorf("frequency is required: %w", cycles.ErrInvalidFrequency)
	}

	hz, err := cycles.ParseFrequency(c.Frequency)
	if err != nil {
		return cycles.Converter{}, fmt.Errorf("frequency: %w", err)
	}

	return cycles.NewConverter(hz)
}

// Unit returns the parsed TimeUnit.
func (c *Config) Unit() (cycles.Unit, error) {
	return cycles.ParseUnit(c.TimeUnit)
}
