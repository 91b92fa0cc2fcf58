package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/scriptcast/internal/config"
	"github.com/MrWong99/scriptcast/internal/episode"
	"github.com/MrWong99/scriptcast/internal/health"
	"github.com/MrWong99/scriptcast/internal/master"
	"github.com/MrWong99/scriptcast/internal/observe"
	"github.com/MrWong99/scriptcast/internal/project"
	"github.com/MrWong99/scriptcast/pkg/provider/tts"
)

// configFlags selects the configuration: a project by name, or a config file.
type configFlags struct {
	path    string
	project string
	root    string
}

func (f *configFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.path, "config", "config.yaml", "path to the YAML configuration file")
	fs.StringVar(&f.project, "project", "", "project name; overrides -config")
	fs.StringVar(&f.root, "root", project.DefaultRoot, "projects root directory")
}

// env is the loaded configuration of one invocation.
type env struct {
	cfg *config.Config

	// project is nil when a plain config file is used.
	project *project.Project

	// pool is set once a Postgres episode store is open.
	pool *pgxpool.Pool
}

// load reads the configuration and installs the configured logger.
func (f *configFlags) load() (*env, error) {
	e := &env{}
	if f.project != "" {
		p, cfg, err := project.NewManager(f.root).Load(f.project)
		if err != nil {
			if errors.Is(err, project.ErrNotFound) {
				return nil, fmt.Errorf("%w; create it with 'scriptcast init %s'", err, f.project)
			}
			return nil, err
		}
		e.cfg, e.project = cfg, &p
	} else {
		cfg, err := config.Load(f.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w; copy configs/example.yaml or run 'scriptcast init <name>' to get started", err)
			}
			return nil, err
		}
		e.cfg = cfg
	}
	slog.SetDefault(newLogger(e.cfg.Server.LogLevel))
	return e, nil
}

func (e *env) projectName() string {
	if e.project == nil {
		return ""
	}
	return e.project.Name
}

// provider builds the configured TTS provider.
func (e *env) provider() (tts.Provider, error) {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	p, err := reg.CreateTTS(e.cfg.Providers.TTS)
	if err != nil {
		return nil, fmt.Errorf("create tts provider %q: %w", e.cfg.Providers.TTS.Name, err)
	}
	slog.Info("provider created", "kind", "tts", "name", e.cfg.Providers.TTS.Name)
	return p, nil
}

// mastering builds the mastering chain. An empty preset uses the configured
// one.
func (e *env) mastering(preset string) (*master.Mastering, error) {
	if preset == "" {
		preset = e.cfg.Mastering.Preset
	}
	return newMastering(preset, master.Tools{
		Sox:     e.cfg.Mastering.SoxPath,
		FFmpeg:  e.cfg.Mastering.FFmpegPath,
		FFprobe: e.cfg.Mastering.FFprobePath,
	})
}

func newMastering(preset string, configured master.Tools) (*master.Mastering, error) {
	tools := master.Discover(configured)
	slog.Debug("mastering tools", "sox", tools.Sox, "ffmpeg", tools.FFmpeg, "ffprobe", tools.FFprobe)
	return master.New(preset, master.WithTools(tools))
}

// openStore opens the episode history. Without a DSN history lives in
// memory for this process only.
func (e *env) openStore(ctx context.Context) (episode.Store, func(), error) {
	dsn := e.cfg.Storage.PostgresDSN
	if dsn == "" {
		return episode.NewMemoryStore(), func() {}, nil
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect episode store: %w", err)
	}
	store := episode.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate episode store: %w", err)
	}
	e.pool = pool
	return store, pool.Close, nil
}

// checkers returns the readiness checks of the open dependencies.
func (e *env) checkers(m *master.Mastering) []health.Checker {
	var out []health.Checker
	if e.pool != nil {
		out = append(out, health.Checker{Name: "episode_store", Check: e.pool.Ping})
	}
	if m != nil {
		out = append(out, health.Checker{Name: "mastering_tools", Check: func(context.Context) error {
			if m.Tools().Sox == "" {
				return fmt.Errorf("%w: sox; episodes are copied unmastered", master.ErrToolNotFound)
			}
			return nil
		}})
	}
	return out
}

// startTelemetry installs the OTel providers and, when configured, serves
// Prometheus metrics and the health probes for the duration of the run.
func (e *env) startTelemetry(ctx context.Context, probes *health.Handler) (func(), error) {
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var srv *http.Server
	if addr := e.cfg.Telemetry.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", tel.MetricsHandler())
		probes.Register(mux)
		srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "addr", addr, "err", err)
			}
		}()
		slog.Info("serving telemetry", "addr", addr, "paths", []string{"/metrics", "/healthz", "/readyz", "/status"})
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil {
				slog.Warn("metrics server shutdown error", "err", err)
			}
		}
		if err := tel.Shutdown(ctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}, nil
}

// fail prints err prefixed with the program name and returns exit code 1.
func fail(err error) int {
	fmt.Fprintf(os.Stderr, "scriptcast: %v\n", err)
	return 1
}
