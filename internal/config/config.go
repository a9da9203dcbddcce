// Package config defines the YAML configuration schema for the parlo drill
// server and its validation rules.
package config

import (
	"time"

	"github.com/sprachpilot/parlo/internal/mastery"
)

// LogLevel controls log verbosity for the parlo server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Strictness selects one of the built-in gating presets.
type Strictness string

const (
	// StrictnessNormal is the default: lenient confidence gating meant for
	// early learners.
	StrictnessNormal Strictness = "normal"

	// StrictnessStrict raises the confidence and speak-duration floors.
	StrictnessStrict Strictness = "strict"

	// StrictnessUltra additionally requires every pass to be confirmed by a
	// second successful attempt.
	StrictnessUltra Strictness = "ultra"
)

// IsValid reports whether s is a recognised strictness preset.
func (s Strictness) IsValid() bool {
	switch s {
	case StrictnessNormal, StrictnessStrict, StrictnessUltra:
		return true
	}
	return false
}

// Gate holds the attempt-gating knobs a strictness preset expands to. Gating
// runs before scoring: an attempt that fails a gate is treated as not
// understood (no mastery-state mutation), never as a pronunciation fail.
type Gate struct {
	// MinConfidence rejects transcripts whose recognizer confidence is below
	// this floor. Zero-confidence results (backends that report none) pass.
	MinConfidence float64

	// AmbiguityGap rejects a transcript when a recognizer alternative scores
	// within this margin of the best transcript against the target, i.e. the
	// recognizer itself could not tell the attempt apart.
	AmbiguityGap float64

	// MinSpeakBase and MinSpeakPerChar set the shortest believable speech
	// duration for a target: base + perChar per target character, capped at
	// MinSpeakMax. Captures shorter than that are treated as noise.
	MinSpeakBase    time.Duration
	MinSpeakPerChar time.Duration
	MinSpeakMax     time.Duration

	// DoubleConfirm requires each passing attempt to be repeated once before
	// it counts.
	DoubleConfirm bool
}

// MinSpeakFor returns the minimum believable speech duration for a target.
func (g Gate) MinSpeakFor(target string) time.Duration {
	d := g.MinSpeakBase + time.Duration(len([]rune(target)))*g.MinSpeakPerChar
	return min(d, g.MinSpeakMax)
}

// Gate expands the preset into its gating knobs.
func (s Strictness) Gate() Gate {
	switch s {
	case StrictnessStrict:
		return Gate{
			MinConfidence:   0.60,
			AmbiguityGap:    0.18,
			MinSpeakBase:    350 * time.Millisecond,
			MinSpeakPerChar: 70 * time.Millisecond,
			MinSpeakMax:     1800 * time.Millisecond,
		}
	case StrictnessUltra:
		return Gate{
			MinConfidence:   0.75,
			AmbiguityGap:    0.25,
			MinSpeakBase:    450 * time.Millisecond,
			MinSpeakPerChar: 80 * time.Millisecond,
			MinSpeakMax:     1800 * time.Millisecond,
			DoubleConfirm:   true,
		}
	default:
		return Gate{
			MinConfidence:   0.45,
			AmbiguityGap:    0.12,
			MinSpeakBase:    250 * time.Millisecond,
			MinSpeakPerChar: 60 * time.Millisecond,
			MinSpeakMax:     1800 * time.Millisecond,
		}
	}
}

// Config is the root configuration for the parlo server.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Lesson    LessonConfig    `yaml:"lesson"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Drill     DrillConfig     `yaml:"drill"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig holds the HTTP listener and logging settings.
type ServerConfig struct {
	// Addr is the listen address for the health and metrics endpoints.
	Addr string `yaml:"addr"`

	// LogLevel sets log verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`
}

// LessonConfig points at the lesson document and language resources.
type LessonConfig struct {
	// Path is the lesson YAML file to drill.
	Path string `yaml:"path"`

	// LanguagePack is an optional YAML file with the article set and lemma
	// table for the lesson's language. Empty selects the built-in French pack.
	LanguagePack string `yaml:"language_pack"`
}

// ScoringConfig tunes the pronunciation judge.
type ScoringConfig struct {
	// Threshold is the pass score for learn-phase and production attempts,
	// 0-100. Default: 80.
	Threshold int `yaml:"threshold"`

	// ExactThreshold is the pass score for modes that demand an exact match.
	// Default: 100.
	ExactThreshold int `yaml:"exact_threshold"`

	// CoverageWeight blends token coverage into multi-word similarity,
	// in [0,1]. Zero scores by edit distance alone. Default: 0.
	CoverageWeight float64 `yaml:"coverage_weight"`

	// Remote, when set, routes production judging through the remote
	// assessment proxy instead of the local transcript pipeline.
	Remote *RemoteConfig `yaml:"remote"`
}

// RemoteConfig configures the remote pronunciation assessment proxy.
type RemoteConfig struct {
	// URL is the proxy endpoint.
	URL string `yaml:"url"`

	// Secret is the shared secret sent with every request.
	Secret string `yaml:"secret"`

	// DisableMiscue turns off insertion/omission detection on the proxy.
	DisableMiscue bool `yaml:"disable_miscue"`

	// Timeout bounds each assessment request. Default: 30s.
	Timeout time.Duration `yaml:"timeout"`
}

// DrillConfig tunes pack progression and attempt gating.
type DrillConfig struct {
	// NeedEach is the correct count that finishes an item per test phase.
	// Default: 2.
	NeedEach int `yaml:"need_each"`

	// FailsToContainer is the consecutive learn-fail count that defers an
	// item to review. Default: 4.
	FailsToContainer int `yaml:"fails_to_container"`

	// FailsBeforeHint is the production fail streak that replays the target
	// audio as a hint. Default: 3.
	FailsBeforeHint int `yaml:"fails_before_hint"`

	// DeferPolicy decides whether a hint-threshold streak in production also
	// defers the item. Default: hint_only.
	DeferPolicy mastery.DeferPolicy `yaml:"defer_policy"`

	// Strictness selects the attempt-gating preset. Default: normal.
	Strictness Strictness `yaml:"strictness"`

	// Capture bounds microphone captures.
	Capture CaptureConfig `yaml:"capture"`
}

// CaptureConfig sets the maximum capture duration per attempt: base plus
// per-char per target character, capped at max.
type CaptureConfig struct {
	Base    time.Duration `yaml:"base"`
	PerChar time.Duration `yaml:"per_char"`
	Max     time.Duration `yaml:"max"`
}

// DurationFor returns the capture bound for a target phrase.
func (c CaptureConfig) DurationFor(target string) time.Duration {
	d := c.Base + time.Duration(len([]rune(target)))*c.PerChar
	return min(d, c.Max)
}

// ProvidersConfig selects the playback and capture backends.
type ProvidersConfig struct {
	// Speak selects the playback backend.
	Speak ProviderEntry `yaml:"speak"`

	// Listen lists the capture backends in failover order; the first entry
	// is the primary.
	Listen []ProviderEntry `yaml:"listen"`
}

// ProviderEntry is the common configuration block shared by all provider
// kinds. The Name field selects the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g. "console").
	Name string `yaml:"name"`

	// Options holds provider-specific values not covered by Name.
	Options map[string]any `yaml:"options"`
}

// Default returns a Config populated with the standard drill parameters.
// Loading YAML on top of it overrides only the keys the file sets.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:     ":8747",
			LogLevel: LogInfo,
		},
		Scoring: ScoringConfig{
			Threshold:      80,
			ExactThreshold: 100,
		},
		Drill: DrillConfig{
			NeedEach:         mastery.DefaultNeedEach,
			FailsToContainer: mastery.DefaultFailsToContainer,
			FailsBeforeHint:  mastery.DefaultFailsBeforeHint,
			DeferPolicy:      mastery.DeferHintOnly,
			Strictness:       StrictnessNormal,
			Capture: CaptureConfig{
				Base:    1500 * time.Millisecond,
				PerChar: 120 * time.Millisecond,
				Max:     3500 * time.Millisecond,
			},
		},
		Providers: ProvidersConfig{
			Speak:  ProviderEntry{Name: "console"},
			Listen: []ProviderEntry{{Name: "console"}},
		},
	}
}
