// Command parlo runs an interactive pronunciation drill session in the
// terminal, alongside an HTTP endpoint exposing health and metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sprachpilot/parlo/internal/config"
	"github.com/sprachpilot/parlo/internal/drill"
	"github.com/sprachpilot/parlo/internal/health"
	"github.com/sprachpilot/parlo/internal/lang"
	"github.com/sprachpilot/parlo/internal/lesson"
	"github.com/sprachpilot/parlo/internal/mastery"
	"github.com/sprachpilot/parlo/internal/observe"
	"github.com/sprachpilot/parlo/internal/progression"
	"github.com/sprachpilot/parlo/internal/score"
	"github.com/sprachpilot/parlo/pkg/provider/listen"
	"github.com/sprachpilot/parlo/pkg/provider/listen/cascade"
	listenconsole "github.com/sprachpilot/parlo/pkg/provider/listen/console"
	listenmock "github.com/sprachpilot/parlo/pkg/provider/listen/mock"
	"github.com/sprachpilot/parlo/pkg/provider/speak"
	speakconsole "github.com/sprachpilot/parlo/pkg/provider/speak/console"
	speakmock "github.com/sprachpilot/parlo/pkg/provider/speak/mock"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "parlo: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "parlo: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("parlo starting",
		"config", *configPath,
		"lesson", cfg.Lesson.Path,
		"addr", cfg.Server.Addr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "parlo"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Language pack and lesson ─────────────────────────────────────────────
	pack, err := loadLanguagePack(cfg.Lesson.LanguagePack)
	if err != nil {
		slog.Error("failed to load language pack", "err", err)
		return 1
	}
	canon := lang.NewCanonicalizer(pack)

	les, err := lesson.Load(cfg.Lesson.Path)
	if err != nil {
		slog.Error("failed to load lesson", "err", err)
		return 1
	}
	if err := les.Validate(canon); err != nil {
		slog.Error("lesson failed validation", "path", cfg.Lesson.Path, "err", err)
		return 1
	}

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	speaker, err := reg.CreateSpeak(cfg.Providers.Speak)
	if err != nil {
		slog.Error("failed to build speak provider", "err", err)
		return 1
	}
	listener, err := buildListener(cfg, reg)
	if err != nil {
		slog.Error("failed to build listen provider", "err", err)
		return 1
	}

	// ── Judge ─────────────────────────────────────────────────────────────────
	judge := score.NewJudge(canon, score.WithCoverageWeight(cfg.Scoring.CoverageWeight))

	var remote *score.RemoteJudge
	if rc := cfg.Scoring.Remote; rc != nil {
		remoteOpts := []score.RemoteOption{
			score.WithRemoteSecret(rc.Secret),
			score.WithMiscueDetection(!rc.DisableMiscue),
		}
		if rc.Timeout > 0 {
			remoteOpts = append(remoteOpts, score.WithRemoteTimeout(rc.Timeout))
		}
		remote = score.NewRemoteJudge(rc.URL, remoteOpts...)
		slog.Info("remote assessment proxy configured", "url", rc.URL)
	}

	// ── Session ───────────────────────────────────────────────────────────────
	engine := progression.New(les, progression.WithTrackerOptions(
		mastery.WithNeedEach(cfg.Drill.NeedEach),
		mastery.WithFailsToContainer(cfg.Drill.FailsToContainer),
		mastery.WithFailsBeforeHint(cfg.Drill.FailsBeforeHint),
		mastery.WithDeferPolicy(cfg.Drill.DeferPolicy),
	))
	runner := drill.NewRunner(drill.Params{
		Lesson:   les,
		Engine:   engine,
		Canon:    canon,
		Judge:    judge,
		Speaker:  speaker,
		Listener: listener,
		Scoring:  cfg.Scoring,
		Gate:     cfg.Drill.Strictness.Gate(),
		Capture:  cfg.Drill.Capture,
	})

	printStartupSummary(cfg, les)

	// ── HTTP endpoint + drill loop ────────────────────────────────────────────
	checkers := []health.Checker{health.LessonFile(cfg.Lesson.Path)}
	if cfg.Lesson.LanguagePack != "" {
		checkers = append(checkers, health.LanguagePackFile(cfg.Lesson.LanguagePack))
	}
	if remote != nil {
		checkers = append(checkers, health.RemoteJudge(remote))
	}
	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: observe.Middleware(observe.DefaultMetrics())(mux),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http endpoint ready", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		defer stop() // ending the session also stops the HTTP endpoint
		m := observe.DefaultMetrics()
		m.ActiveSessions.Add(gctx, 1)
		defer m.ActiveSessions.Add(context.WithoutCancel(gctx), -1)
		return drillLoop(gctx, runner, canon, les)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// loadLanguagePack returns the built-in French pack when path is empty.
func loadLanguagePack(path string) (*lang.Pack, error) {
	if path == "" {
		return lang.French(), nil
	}
	return lang.LoadPack(path)
}

// buildListener assembles the capture backend: a single provider, or a
// failover cascade when several are configured.
func buildListener(cfg *config.Config, reg *config.Registry) (listen.Provider, error) {
	entries := cfg.Providers.Listen
	primary, err := reg.CreateListen(entries[0])
	if err != nil {
		return nil, err
	}
	if len(entries) == 1 {
		return primary, nil
	}
	c := cascade.New(entries[0].Name, primary, cascade.Config{})
	for _, e := range entries[1:] {
		p, err := reg.CreateListen(e)
		if err != nil {
			return nil, err
		}
		c.AddFallback(e.Name, p)
	}
	return c, nil
}

// registerBuiltinProviders wires the provider factories that ship with parlo.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterSpeak("console", func(config.ProviderEntry) (speak.Provider, error) {
		return speakconsole.New(), nil
	})
	reg.RegisterSpeak("mock", func(config.ProviderEntry) (speak.Provider, error) {
		return &speakmock.Provider{}, nil
	})

	reg.RegisterListen("console", func(config.ProviderEntry) (listen.Provider, error) {
		return listenconsole.New(), nil
	})
	reg.RegisterListen("mock", func(config.ProviderEntry) (listen.Provider, error) {
		return &listenmock.Provider{}, nil
	})
}

// printStartupSummary logs what this session will run.
func printStartupSummary(cfg *config.Config, les *lesson.Lesson) {
	items := 0
	for i := range les.Packs {
		items += len(les.Packs[i].Items)
	}
	slog.Info("session ready",
		"lesson", les.Title,
		"language", les.Language,
		"packs", len(les.Packs),
		"items", items,
		"sentences", len(les.Sentences),
		"threshold", cfg.Scoring.Threshold,
		"strictness", cfg.Drill.Strictness,
		"defer_policy", cfg.Drill.DeferPolicy,
	)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
