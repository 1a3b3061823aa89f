// Package config loads the pitchtrack configuration: detector parameters,
// decoder settings and logging.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-pitch/algorithms/pitch"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/transcode"
)

// Config is the root of the YAML configuration file
type Config struct {
	Log       LogConfig                  `yaml:"log" json:"log"`
	Detector  pitch.PeriodDetectorParams `yaml:"detector" json:"detector"`
	Decoder   transcode.DecoderConfig    `yaml:"decoder" json:"decoder"`
	Prefilter PrefilterConfig            `yaml:"prefilter" json:"prefilter"`
	Report    ReportConfig               `yaml:"report" json:"report"`
}

// LogConfig selects the log level and colour output
type LogConfig struct {
	Level   string `yaml:"level" json:"level"` // debug, info, warn, error
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// PrefilterConfig enables a lowpass section ahead of the detector
type PrefilterConfig struct {
	LowpassHz float64 `yaml:"lowpass_hz" json:"lowpass_hz"` // 0 disables the prefilter
	Q         float64 `yaml:"q" json:"q"`                   // 0 selects a Butterworth response
}

// ReportConfig controls what the CLI prints
type ReportConfig struct {
	MinPeriodicity float64 `yaml:"min_periodicity" json:"min_periodicity"` // frames below this are left out of summaries
	Frames         bool    `yaml:"frames" json:"frames"`                   // print every frame, not only the summary
}

// Default returns a configuration for guitar range detection at 44.1 kHz
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info"},
		Detector: pitch.DefaultPeriodDetectorParams(60, 1500, 44100, -60),
		Decoder:  *transcode.DefaultDecoderConfig(),
		Report:   ReportConfig{MinPeriodicity: 0.9},
	}
}

// Load reads the YAML configuration file at path and returns a validated
// Config. Missing keys keep the values from Default.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if err := cfg.Detector.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("detector: %w", err))
	}

	if err := cfg.Decoder.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("decoder: %w", err))
	}

	// The detector runs at the decoder's output rate.
	if cfg.Decoder.SampleRate != 0 && cfg.Decoder.SampleRate != cfg.Detector.SampleRate {
		errs = append(errs, fmt.Errorf("decoder.sample_rate %d differs from detector.sample_rate %d",
			cfg.Decoder.SampleRate, cfg.Detector.SampleRate))
	}

	if cfg.Prefilter.LowpassHz < 0 || cfg.Prefilter.Q < 0 {
		errs = append(errs, fmt.Errorf("prefilter.lowpass_hz and prefilter.q must not be negative"))
	} else if cfg.Prefilter.LowpassHz > 0 && cfg.Prefilter.LowpassHz <= cfg.Detector.HighestFrequency {
		errs = append(errs, fmt.Errorf("prefilter.lowpass_hz %v must be above detector.highest_frequency %v",
			cfg.Prefilter.LowpassHz, cfg.Detector.HighestFrequency))
	}

	if cfg.Report.MinPeriodicity < 0 || cfg.Report.MinPeriodicity > 1 {
		errs = append(errs, fmt.Errorf("report.min_periodicity %v must be in [0, 1]", cfg.Report.MinPeriodicity))
	}

	return errors.Join(errs...)
}

// DetectorFor returns the detector parameters for audio decoded at
// sampleRate
func (c *Config) DetectorFor(sampleRate int) pitch.PeriodDetectorParams {
	params := c.Detector
	params.SampleRate = sampleRate
	return params
}

// Logger builds the logger described by the log section
func (c *Config) Logger() logging.Logger {
	level, _ := logging.ParseLevel(c.Log.Level)
	logger := logging.NewDefaultLogger()
	logger.SetLevel(level)
	if c.Log.NoColor {
		logger.DisableColors()
	}
	return logger
}
