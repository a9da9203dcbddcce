package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/sprachpilot/parlo/internal/config"
	"github.com/sprachpilot/parlo/internal/mastery"
)

const minimalYAML = `
lesson:
  path: lessons/animaux.yaml
`

func TestLoadFromReader_DefaultsApply(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(minimalYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Scoring.Threshold != 80 || cfg.Scoring.ExactThreshold != 100 {
		t.Errorf("scoring = %+v, want default thresholds 80/100", cfg.Scoring)
	}
	if cfg.Drill.NeedEach != 2 || cfg.Drill.FailsToContainer != 4 || cfg.Drill.FailsBeforeHint != 3 {
		t.Errorf("drill = %+v, want default counters 2/4/3", cfg.Drill)
	}
	if cfg.Drill.Strictness != config.StrictnessNormal {
		t.Errorf("strictness = %q, want normal", cfg.Drill.Strictness)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log level = %q, want info", cfg.Server.LogLevel)
	}
	if len(cfg.Providers.Listen) != 1 || cfg.Providers.Listen[0].Name != "console" {
		t.Errorf("listen providers = %+v, want console default", cfg.Providers.Listen)
	}
}

func TestLoadFromReader_Overrides(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(`
server:
  addr: ":9000"
  log_level: debug
lesson:
  path: lessons/animaux.yaml
scoring:
  threshold: 70
  coverage_weight: 0.5
drill:
  strictness: ultra
  defer_policy: defer
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("server = %+v, want overrides applied", cfg.Server)
	}
	if cfg.Scoring.Threshold != 70 || cfg.Scoring.CoverageWeight != 0.5 {
		t.Errorf("scoring = %+v, want threshold 70 and weight 0.5", cfg.Scoring)
	}
	// Untouched keys keep their defaults.
	if cfg.Scoring.ExactThreshold != 100 {
		t.Errorf("exact_threshold = %d, want default 100 preserved", cfg.Scoring.ExactThreshold)
	}
	if cfg.Drill.DeferPolicy != mastery.DeferToReview {
		t.Errorf("defer_policy = %q, want defer", cfg.Drill.DeferPolicy)
	}
}

func TestLoadFromReader_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("lesson:\n  path: x\nbogus: 1\n"))
	if err == nil {
		t.Fatal("LoadFromReader with unknown key: err = nil, want error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "missing lesson path",
			mutate:  func(c *config.Config) { c.Lesson.Path = "" },
			wantErr: "lesson.path",
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *config.Config) { c.Scoring.Threshold = 0 },
			wantErr: "scoring.threshold",
		},
		{
			name:    "exact threshold below threshold",
			mutate:  func(c *config.Config) { c.Scoring.ExactThreshold = 50 },
			wantErr: "scoring.exact_threshold",
		},
		{
			name:    "coverage weight out of range",
			mutate:  func(c *config.Config) { c.Scoring.CoverageWeight = 1.2 },
			wantErr: "scoring.coverage_weight",
		},
		{
			name: "remote without url",
			mutate: func(c *config.Config) {
				c.Scoring.Remote = &config.RemoteConfig{Secret: "s"}
			},
			wantErr: "scoring.remote.url",
		},
		{
			name:    "bad defer policy",
			mutate:  func(c *config.Config) { c.Drill.DeferPolicy = "maybe" },
			wantErr: "drill.defer_policy",
		},
		{
			name:    "bad strictness",
			mutate:  func(c *config.Config) { c.Drill.Strictness = "extreme" },
			wantErr: "drill.strictness",
		},
		{
			name:    "no listen providers",
			mutate:  func(c *config.Config) { c.Providers.Listen = nil },
			wantErr: "providers.listen",
		},
		{
			name:    "bad log level",
			mutate:  func(c *config.Config) { c.Server.LogLevel = "loud" },
			wantErr: "server.log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			cfg.Lesson.Path = "lessons/animaux.yaml"
			tt.mutate(cfg)

			err := config.Validate(cfg)
			if err == nil {
				t.Fatal("Validate: err = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestGatePresets(t *testing.T) {
	t.Parallel()

	normal := config.StrictnessNormal.Gate()
	strict := config.StrictnessStrict.Gate()
	ultra := config.StrictnessUltra.Gate()

	if !(normal.MinConfidence < strict.MinConfidence && strict.MinConfidence < ultra.MinConfidence) {
		t.Errorf("confidence floors not strictly increasing: %v %v %v",
			normal.MinConfidence, strict.MinConfidence, ultra.MinConfidence)
	}
	if normal.DoubleConfirm || strict.DoubleConfirm || !ultra.DoubleConfirm {
		t.Error("only the ultra preset should require double confirmation")
	}
}

func TestGate_MinSpeakFor(t *testing.T) {
	t.Parallel()
	g := config.StrictnessNormal.Gate()

	short := g.MinSpeakFor("le chat")
	if want := 250*time.Millisecond + 7*60*time.Millisecond; short != want {
		t.Errorf("MinSpeakFor(le chat) = %v, want %v", short, want)
	}
	long := g.MinSpeakFor(strings.Repeat("tres longue phrase ", 10))
	if long != 1800*time.Millisecond {
		t.Errorf("MinSpeakFor(long) = %v, want the 1.8s cap", long)
	}
}

func TestCaptureConfig_DurationFor(t *testing.T) {
	t.Parallel()
	c := config.Default().Drill.Capture

	if got := c.DurationFor("le chat"); got != 1500*time.Millisecond+7*120*time.Millisecond {
		t.Errorf("DurationFor(le chat) = %v, want base plus per-char", got)
	}
	if got := c.DurationFor(strings.Repeat("x", 100)); got != 3500*time.Millisecond {
		t.Errorf("DurationFor(long) = %v, want the 3.5s cap", got)
	}
}
