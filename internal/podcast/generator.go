// Package podcast turns a dialogue script into one spoken audio file.
//
// A [Generator] plans the script into ordered segments, sends each segment
// to a [tts.Provider], joins the clips that came back with the configured
// gaps and pauses, and optionally masters the result. A segment whose
// synthesis fails is dropped without retry; the run only fails when no
// segment produced audio ([ErrNoAudio]) or assembly fails.
package podcast

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/MrWong99/scriptcast/internal/emotion"
	"github.com/MrWong99/scriptcast/internal/episode"
	"github.com/MrWong99/scriptcast/internal/markup"
	"github.com/MrWong99/scriptcast/internal/master"
	"github.com/MrWong99/scriptcast/internal/observe"
	"github.com/MrWong99/scriptcast/internal/resilience"
	"github.com/MrWong99/scriptcast/internal/voice"
	"github.com/MrWong99/scriptcast/pkg/audio"
	"github.com/MrWong99/scriptcast/pkg/provider/tts"
)

// ErrNoAudio is returned by [Generator.Generate] when no segment produced
// audio, either because the script has no speakable lines or because every
// synthesis call failed.
var ErrNoAudio = errors.New("podcast: no audio generated")

// Defaults used by [New].
const (
	DefaultNormalGap = 150 * time.Millisecond
	DefaultPauseGap  = 800 * time.Millisecond
)

// Assembler joins clips into one file. [*audio.Assembler] satisfies it.
type Assembler interface {
	Combine(ctx context.Context, clips []audio.Clip, pauseAfter []int, gaps audio.Gaps, outPath string) (string, error)
}

// Masterer post-processes the assembled file. [*master.Mastering] satisfies
// it.
type Masterer interface {
	Master(ctx context.Context, in, out string) (master.Result, error)
}

var (
	_ Assembler = (*audio.Assembler)(nil)
	_ Masterer  = (*master.Mastering)(nil)
)

// Option is a functional option for configuring a [Generator].
type Option func(*Generator)

// WithModel sets the provider model sent with every request.
func WithModel(id string) Option {
	return func(g *Generator) { g.model = id }
}

// WithProviderName labels metrics and spans. Default: "tts".
func WithProviderName(name string) Option {
	return func(g *Generator) { g.providerName = name }
}

// WithWorkDir sets where segment clips are written. Empty uses a fresh
// temporary directory per run.
func WithWorkDir(dir string) Option {
	return func(g *Generator) { g.workDir = dir }
}

// WithKeepTemp keeps segment clips after the run.
func WithKeepTemp(keep bool) Option {
	return func(g *Generator) { g.keepTemp = keep }
}

// WithConcurrency bounds the number of parallel synthesis calls. Values
// below 2 synthesise sequentially. Segment order is preserved either way.
func WithConcurrency(n int) Option {
	return func(g *Generator) { g.concurrency = n }
}

// WithMaxConsecutiveFailures stops calling the provider after n consecutive
// failed segments; the remaining segments are dropped. n <= 0 disables the
// breaker.
func WithMaxConsecutiveFailures(n int) Option {
	return func(g *Generator) { g.maxFailures = n }
}

// WithGaps sets the silence between segments and at pause markers.
func WithGaps(gaps audio.Gaps) Option {
	return func(g *Generator) { g.gaps = gaps }
}

// WithAssembler replaces the default [audio.Assembler].
func WithAssembler(a Assembler) Option {
	return func(g *Generator) { g.assembler = a }
}

// WithMastering enables the mastering pass.
func WithMastering(m Masterer) Option {
	return func(g *Generator) { g.masterer = m }
}

// WithStore records every successful run.
func WithStore(s episode.Store) Option {
	return func(g *Generator) { g.store = s }
}

// WithProject sets the project name recorded with episodes.
func WithProject(name string) Option {
	return func(g *Generator) { g.project = name }
}

// WithMetrics sets the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// Generator turns scripts into episodes. It holds no per-run state and may
// run several scripts concurrently, although they then share one circuit
// breaker.
type Generator struct {
	voices   *voice.Registry
	table    *emotion.Table
	rewriter *markup.Rewriter
	provider tts.Provider

	providerName string
	model        string
	workDir      string
	keepTemp     bool
	concurrency  int
	maxFailures  int
	gaps         audio.Gaps
	assembler    Assembler
	masterer     Masterer
	store        episode.Store
	project      string
	metrics      *observe.Metrics
}

// New returns a Generator that resolves speakers with voices and
// synthesises through provider.
func New(voices *voice.Registry, provider tts.Provider, opts ...Option) *Generator {
	g := &Generator{
		voices:       voices,
		table:        voices.Table(),
		rewriter:     markup.New(voices.Table()),
		providerName: "tts",
		concurrency:  1,
		gaps:         audio.Gaps{Normal: DefaultNormalGap, Pause: DefaultPauseGap},
	}
	for _, o := range opts {
		o(g)
	}
	if g.assembler == nil {
		g.assembler = audio.NewAssembler()
	}
	if g.metrics == nil {
		g.metrics = observe.DefaultMetrics()
	}
	if g.maxFailures > 0 {
		provider = resilience.NewGuardedTTS(provider, resilience.CircuitBreakerConfig{
			Name:         g.providerName,
			MaxFailures:  g.maxFailures,
			ResetTimeout: time.Minute,
		})
	}
	g.provider = provider
	return g
}

// GenerateFile reads the script at path and calls [Generator.Generate].
func (g *Generator) GenerateFile(ctx context.Context, path, outPath string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return g.generate(ctx, string(data), path, outPath)
}

// Generate plans text, synthesises every segment and writes the episode to
// outPath. The returned [Result] reports the path actually written, which
// differs from outPath when mastering is disabled and outPath is not a .wav
// file, or when mastering falls back to the unmastered file.
func (g *Generator) Generate(ctx context.Context, text, outPath string) (*Result, error) {
	return g.generate(ctx, text, "-", outPath)
}
