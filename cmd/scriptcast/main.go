// Command scriptcast turns dialogue scripts into podcast episodes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/scriptcast/internal/config"
	"github.com/MrWong99/scriptcast/internal/markup"
	"github.com/MrWong99/scriptcast/pkg/provider/tts"
	"github.com/MrWong99/scriptcast/pkg/provider/tts/coqui"
	"github.com/MrWong99/scriptcast/pkg/provider/tts/elevenlabs"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// command is one CLI subcommand.
type command struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string) int
}

var commands = []command{
	{"generate", "synthesise scripts into episodes", runGenerate},
	{"validate", "check config and scripts without calling the provider", runValidate},
	{"master", "master an audio file or a directory of files", runMaster},
	{"analyze", "report codec, duration and levels of audio files", runAnalyze},
	{"presets", "list mastering presets", runPresets},
	{"voices", "list the voices offered by the configured provider", runVoices},
	{"init", "create a new project", runInit},
	{"projects", "list projects", runProjects},
	{"history", "list generated episodes", runHistory},
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}
	name := args[0]
	switch name {
	case "-h", "-help", "--help", "help":
		usage()
		return 0
	case "version", "-version", "--version":
		fmt.Println("scriptcast", version)
		return 0
	}

	for _, c := range commands {
		if c.name != name {
			continue
		}
		// ── Signal context ────────────────────────────────────────────────────
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return c.run(ctx, args[1:])
	}

	fmt.Fprintf(os.Stderr, "scriptcast: unknown command %q\n\n", name)
	usage()
	return 2
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: scriptcast <command> [flags] [args]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "commands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Run 'scriptcast <command> -h' for the flags of a command.")
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires the built-in TTS factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
		}
		if outputFmt := config.OptString(entry.Options, "output_format"); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		if transport := config.OptString(entry.Options, "transport"); transport != "" {
			opts = append(opts, elevenlabs.WithTransport(elevenlabs.Transport(transport)))
		}
		if d, err := optDuration(entry.Options, "timeout"); err != nil {
			return nil, err
		} else if d > 0 {
			opts = append(opts, elevenlabs.WithTimeout(d))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		// Coqui reads SSML tags aloud.
		opts := []coqui.Option{coqui.WithTextFilter(markup.StripSSML)}
		if lang := config.OptString(entry.Options, "language"); lang != "" {
			opts = append(opts, coqui.WithLanguage(lang))
		}
		if mode := config.OptString(entry.Options, "api_mode"); mode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(mode)))
		}
		if d, err := optDuration(entry.Options, "timeout"); err != nil {
			return nil, err
		} else if d > 0 {
			opts = append(opts, coqui.WithTimeout(d))
		}
		return coqui.New(entry.BaseURL, opts...)
	})

	for _, name := range reg.TTSNames() {
		slog.Debug("registered provider", "kind", "tts", "name", name)
	}
}

// optDuration parses a duration option such as "90s". Missing keys yield 0.
func optDuration(opts map[string]any, key string) (time.Duration, error) {
	s := config.OptString(opts, key)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("option %s: %w", key, err)
	}
	return d, nil
}

// ── Logger ─────────────────────────────────────────────────────────────────────

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
