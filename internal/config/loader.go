package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"speak":  {"console", "mock"},
	"listen": {"console", "mock"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and [Validate].
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

// LoadFromReader decodes YAML from r on top of [Default] and validates the
// result. Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
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

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Lesson.Path == "" {
		errs = append(errs, errors.New("lesson.path must be set"))
	}

	if cfg.Scoring.Threshold < 1 || cfg.Scoring.Threshold > 100 {
		errs = append(errs, fmt.Errorf("scoring.threshold %d is outside 1-100", cfg.Scoring.Threshold))
	}
	if cfg.Scoring.ExactThreshold < cfg.Scoring.Threshold || cfg.Scoring.ExactThreshold > 100 {
		errs = append(errs, fmt.Errorf("scoring.exact_threshold %d must be within threshold-100", cfg.Scoring.ExactThreshold))
	}
	if cfg.Scoring.CoverageWeight < 0 || cfg.Scoring.CoverageWeight > 1 {
		errs = append(errs, fmt.Errorf("scoring.coverage_weight %v is outside [0,1]", cfg.Scoring.CoverageWeight))
	}
	if r := cfg.Scoring.Remote; r != nil && r.URL == "" {
		errs = append(errs, errors.New("scoring.remote.url must be set when scoring.remote is present"))
	}

	if cfg.Drill.NeedEach < 1 {
		errs = append(errs, fmt.Errorf("drill.need_each %d must be at least 1", cfg.Drill.NeedEach))
	}
	if cfg.Drill.FailsToContainer < 1 {
		errs = append(errs, fmt.Errorf("drill.fails_to_container %d must be at least 1", cfg.Drill.FailsToContainer))
	}
	if cfg.Drill.FailsBeforeHint < 1 {
		errs = append(errs, fmt.Errorf("drill.fails_before_hint %d must be at least 1", cfg.Drill.FailsBeforeHint))
	}
	if !cfg.Drill.DeferPolicy.IsValid() {
		errs = append(errs, fmt.Errorf("drill.defer_policy %q is invalid; valid values: hint_only, defer", cfg.Drill.DeferPolicy))
	}
	if !cfg.Drill.Strictness.IsValid() {
		errs = append(errs, fmt.Errorf("drill.strictness %q is invalid; valid values: normal, strict, ultra", cfg.Drill.Strictness))
	}
	if cfg.Drill.Capture.Max <= 0 {
		errs = append(errs, errors.New("drill.capture.max must be positive"))
	}

	validateProviderName("speak", cfg.Providers.Speak.Name)
	if len(cfg.Providers.Listen) == 0 {
		errs = append(errs, errors.New("providers.listen must list at least one capture backend"))
	}
	for _, e := range cfg.Providers.Listen {
		validateProviderName("listen", e.Name)
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// validateProviderName warns (does not fail) when a provider name is not in
// the known list, so custom registrations stay usable.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	if !slices.Contains(ValidProviderNames[kind], name) {
		slog.Warn("unrecognised provider name",
			"kind", kind, "name", name, "known", ValidProviderNames[kind])
	}
}
