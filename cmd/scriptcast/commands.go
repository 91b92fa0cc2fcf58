package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MrWong99/scriptcast/internal/episode"
	"github.com/MrWong99/scriptcast/internal/health"
	"github.com/MrWong99/scriptcast/internal/master"
	"github.com/MrWong99/scriptcast/internal/podcast"
	"github.com/MrWong99/scriptcast/internal/project"
	"github.com/MrWong99/scriptcast/pkg/audio"
)

// ── generate ──────────────────────────────────────────────────────────────────

func runGenerate(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	var cf configFlags
	cf.register(fs)
	out := fs.String("o", "", "output file (single script only)")
	concurrency := fs.Int("concurrency", 0, "parallel synthesis calls; 0 uses the config")
	keepTemp := fs.Bool("keep-temp", false, "keep the per-segment clips")
	noMaster := fs.Bool("no-master", false, "skip mastering and write wav")
	preset := fs.String("preset", "", "mastering preset; empty uses the config")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	e, err := cf.load()
	if err != nil {
		return fail(err)
	}
	scripts, err := e.scripts(fs.Args())
	if err != nil {
		return fail(err)
	}
	if *out != "" && len(scripts) > 1 {
		return fail(errors.New("-o needs exactly one script"))
	}

	provider, err := e.provider()
	if err != nil {
		return fail(err)
	}
	table, err := e.cfg.EmotionTable()
	if err != nil {
		return fail(err)
	}
	voices, err := e.cfg.VoiceRegistry(table)
	if err != nil {
		return fail(err)
	}
	store, closeStore, err := e.openStore(ctx)
	if err != nil {
		return fail(err)
	}
	defer closeStore()

	gen := e.cfg.Generation
	if *concurrency > 0 {
		gen.Concurrency = *concurrency
	}
	opts := []podcast.Option{
		podcast.WithModel(e.cfg.Providers.TTS.Model),
		podcast.WithProviderName(e.cfg.Providers.TTS.Name),
		podcast.WithWorkDir(gen.WorkDir),
		podcast.WithKeepTemp(gen.KeepTemp || *keepTemp),
		podcast.WithConcurrency(gen.Concurrency),
		podcast.WithMaxConsecutiveFailures(gen.MaxConsecutiveFailures),
		podcast.WithGaps(audio.Gaps{Normal: e.cfg.Audio.NormalGap(), Pause: e.cfg.Audio.PauseGap()}),
		podcast.WithAssembler(audio.NewAssembler(audio.WithFormat(audio.Format{SampleRate: e.cfg.Audio.SampleRate, Channels: 2}))),
		podcast.WithStore(store),
		podcast.WithProject(e.projectName()),
	}
	ext := ".wav"
	var m *master.Mastering
	if e.cfg.Mastering.Enabled && !*noMaster {
		if m, err = e.mastering(*preset); err != nil {
			return fail(err)
		}
		opts = append(opts, podcast.WithMastering(m))
		ext = ".mp3"
	}

	// Telemetry goes first so the generator picks up the global meter.
	progress := health.NewProgress(len(scripts))
	stopTelemetry, err := e.startTelemetry(ctx, health.New(progress, e.checkers(m)...))
	if err != nil {
		return fail(err)
	}
	defer stopTelemetry()

	g := podcast.New(voices, provider, opts...)

	failed := 0
	for _, script := range scripts {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		target := *out
		if target == "" {
			target = e.outputPath(script, ext)
		}
		progress.Begin(script)
		res, err := g.GenerateFile(ctx, script, target)
		progress.Finish(err)
		if err != nil {
			slog.Error("generation failed", "script", script, "err", err)
			failed++
			continue
		}
		fmt.Printf("%s -> %s (%d/%d segments, %s)\n",
			script, res.Path, len(res.Synthesized), len(res.Plan.Segments), res.Elapsed.Round(time.Second))
		for _, f := range res.Failures {
			fmt.Printf("  dropped segment %d (line %d, %s): %v\n", f.Segment.Index, f.Segment.Line, f.Segment.Voice, f.Err)
		}
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "scriptcast: %d of %d scripts failed\n", failed, len(scripts))
		return 1
	}
	return 0
}

// scripts resolves the script arguments. In a project without arguments
// every script of the project is used.
func (e *env) scripts(args []string) ([]string, error) {
	if e.project == nil {
		if len(args) == 0 {
			return nil, errors.New("no script given")
		}
		return args, nil
	}
	if len(args) == 0 {
		all, err := e.project.Scripts()
		if err != nil {
			return nil, err
		}
		if len(all) == 0 {
			return nil, fmt.Errorf("project %s has no scripts in %s", e.project.Name, e.project.ScriptsDir)
		}
		return all, nil
	}
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = e.project.ResolveScript(a)
	}
	return out, nil
}

// outputPath places the episode in the project output directory, or next to
// the script.
func (e *env) outputPath(script, ext string) string {
	if e.project != nil {
		return e.project.OutputPath(script, ext)
	}
	return strings.TrimSuffix(script, filepath.Ext(script)) + ext
}

// ── validate ──────────────────────────────────────────────────────────────────

func runValidate(_ context.Context, args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	var cf configFlags
	cf.register(fs)
	strict := fs.Bool("strict", false, "treat script warnings as errors")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	e, err := cf.load()
	if err != nil {
		return fail(err)
	}
	fmt.Println("config ok")

	var scripts []string
	if len(fs.Args()) > 0 || e.project != nil {
		if scripts, err = e.scripts(fs.Args()); err != nil {
			return fail(err)
		}
	}

	table, err := e.cfg.EmotionTable()
	if err != nil {
		return fail(err)
	}
	voices, err := e.cfg.VoiceRegistry(table)
	if err != nil {
		return fail(err)
	}
	// Planning never calls the provider.
	g := podcast.New(voices, nil)

	code := 0
	for _, script := range scripts {
		data, err := os.ReadFile(script)
		if err != nil {
			fmt.Printf("%s: %v\n", script, err)
			code = 1
			continue
		}
		plan, err := g.Plan(string(data))
		if err != nil {
			fmt.Printf("%s: %v\n", script, err)
			code = 1
			continue
		}
		fmt.Printf("%s: %d segments, %d pauses, voices %s\n",
			script, len(plan.Segments), len(plan.PauseAfter), strings.Join(plan.Speakers(), ", "))
		for _, w := range plan.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
		if len(plan.Segments) == 0 {
			fmt.Printf("  error: no speakable lines\n")
			code = 1
		}
		if *strict && len(plan.Warnings) > 0 {
			code = 1
		}
	}
	return code
}

// ── master ────────────────────────────────────────────────────────────────────

func runMaster(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("master", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional config file for tool paths and preset")
	preset := fs.String("preset", "", "mastering preset ("+strings.Join(master.PresetNames(), ", ")+")")
	out := fs.String("o", "", "output file, or output directory with -batch")
	batch := fs.Bool("batch", false, "master every audio file in the input directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		return fail(errors.New("master needs exactly one input"))
	}
	in := fs.Arg(0)

	m, err := masteringFromFlags(*configPath, *preset)
	if err != nil {
		return fail(err)
	}

	if *batch {
		items, err := m.Batch(ctx, in, *out)
		if err != nil && len(items) == 0 {
			return fail(err)
		}
		code := 0
		for _, it := range items {
			if it.Err != nil {
				fmt.Printf("FAIL %s: %v\n", it.Input, it.Err)
				code = 1
				continue
			}
			fmt.Printf("%s %s -> %s\n", masteredMark(it.Result), it.Input, it.Result.Path)
			if it.Analysis != nil {
				printAnalysis(*it.Analysis, "    ")
			}
		}
		if err != nil {
			return fail(err)
		}
		return code
	}

	target := *out
	if target == "" {
		target = strings.TrimSuffix(in, filepath.Ext(in)) + "_mastered.mp3"
	}
	res, err := m.Master(ctx, in, target)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("%s %s -> %s (preset %s)\n", masteredMark(res), in, res.Path, res.Preset)
	return 0
}

func masteringFromFlags(configPath, preset string) (*master.Mastering, error) {
	if configPath == "" {
		return newMastering(preset, master.Tools{})
	}
	cf := configFlags{path: configPath}
	e, err := cf.load()
	if err != nil {
		return nil, err
	}
	return e.mastering(preset)
}

func masteredMark(r master.Result) string {
	if r.Mastered {
		return "OK  "
	}
	return "COPY"
}

// ── analyze ───────────────────────────────────────────────────────────────────

func runAnalyze(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional config file for tool paths")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		return fail(errors.New("analyze needs at least one file"))
	}
	m, err := masteringFromFlags(*configPath, "")
	if err != nil {
		return fail(err)
	}

	code := 0
	for _, path := range fs.Args() {
		a, err := m.Analyze(ctx, path)
		if err != nil {
			fmt.Printf("%s: %v\n", path, err)
			code = 1
			continue
		}
		fmt.Println(path)
		printAnalysis(a, "  ")
	}
	return code
}

func printAnalysis(a master.Analysis, indent string) {
	fmt.Printf("%scodec %s, %d Hz, %d ch, %d kbps, %s\n",
		indent, a.Codec, a.SampleRate, a.Channels, a.BitRate/1000, a.Duration.Round(time.Second))
	for _, f := range master.Assess(a) {
		fmt.Printf("%s[%s] %s\n", indent, f.Level, f.Message)
	}
}

// ── presets ───────────────────────────────────────────────────────────────────

func runPresets(_ context.Context, args []string) int {
	fs := flag.NewFlagSet("presets", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTITLE\tBITRATE\tPEAK\tDESCRIPTION")
	for _, p := range master.Presets() {
		def := ""
		if p.Name == master.DefaultPreset {
			def = " (default)"
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%.0f dB\t%s\n", p.Name, def, p.Title, p.Bitrate, p.PeakDB, p.Description)
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}
	return 0
}

// ── voices ────────────────────────────────────────────────────────────────────

func runVoices(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("voices", flag.ContinueOnError)
	var cf configFlags
	cf.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	e, err := cf.load()
	if err != nil {
		return fail(err)
	}
	p, err := e.provider()
	if err != nil {
		return fail(err)
	}
	list, err := p.ListVoices(ctx)
	if err != nil {
		return fail(err)
	}

	used := make(map[string][]string)
	for name, v := range e.cfg.Voices {
		used[v.VoiceID] = append(used[v.VoiceID], name)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCONFIGURED AS")
	for _, v := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", v.ID, v.Name, strings.Join(used[v.ID], ", "))
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}
	return 0
}

// ── init / projects ───────────────────────────────────────────────────────────

func runInit(_ context.Context, args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	root := fs.String("root", project.DefaultRoot, "projects root directory")
	voices := make(map[string]string)
	fs.Func("voice", "voice as name=voice_id; repeatable", func(s string) error {
		name, id, ok := strings.Cut(s, "=")
		if !ok || name == "" || id == "" {
			return fmt.Errorf("want name=voice_id, got %q", s)
		}
		voices[name] = id
		return nil
	})
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		return fail(errors.New("init needs exactly one project name"))
	}

	var vs map[string]string
	if len(voices) > 0 {
		vs = voices
	}
	p, err := project.NewManager(*root).Init(fs.Arg(0), vs)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("created project %s\n", p.Dir)
	fmt.Printf("  config:      %s\n", p.ConfigPath())
	fmt.Printf("  credentials: %s\n", p.CredentialsPath())
	fmt.Printf("  scripts:     %s\n", p.ScriptsDir)
	fmt.Printf("  output:      %s\n", p.OutputDir)
	return 0
}

func runProjects(_ context.Context, args []string) int {
	fs := flag.NewFlagSet("projects", flag.ContinueOnError)
	root := fs.String("root", project.DefaultRoot, "projects root directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	m := project.NewManager(*root)
	names, err := m.List()
	if err != nil {
		return fail(err)
	}
	if len(names) == 0 {
		fmt.Printf("no projects in %s\n", m.Root())
		return 0
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return 0
}

// ── history ───────────────────────────────────────────────────────────────────

func runHistory(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	var cf configFlags
	cf.register(fs)
	limit := fs.Int("n", 20, "number of episodes to show")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	e, err := cf.load()
	if err != nil {
		return fail(err)
	}
	if e.cfg.Storage.PostgresDSN == "" {
		fmt.Println("storage.postgres_dsn is not set; episode history is not persisted")
		return 0
	}
	store, closeStore, err := e.openStore(ctx)
	if err != nil {
		return fail(err)
	}
	defer closeStore()

	eps, err := store.List(ctx, e.projectName(), *limit)
	if err != nil {
		return fail(err)
	}
	printEpisodes(eps)
	return 0
}

func printEpisodes(eps []episode.Episode) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tPROJECT\tSCRIPT\tSEGMENTS\tWARNINGS\tOUTPUT")
	for _, ep := range eps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%s\n",
			ep.CreatedAt.Local().Format(time.DateTime), ep.Project, filepath.Base(ep.Script),
			ep.Synthesized, ep.Planned, len(ep.Warnings), ep.Output)
	}
	_ = w.Flush()
}
