package podcast

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/scriptcast/internal/episode"
	"github.com/MrWong99/scriptcast/internal/master"
	"github.com/MrWong99/scriptcast/internal/observe"
	"github.com/MrWong99/scriptcast/internal/resilience"
	"github.com/MrWong99/scriptcast/pkg/audio"
	"github.com/MrWong99/scriptcast/pkg/provider/tts"
)

// Failure is a segment that produced no audio.
type Failure struct {
	Segment Segment
	Err     error
}

// Result describes a completed run.
type Result struct {
	// Path is the file written.
	Path string

	Plan *Plan

	// Synthesized are the segments that made it into the episode, in order.
	Synthesized []Segment

	// Failures are the dropped segments, in order.
	Failures []Failure

	// PauseAfter are the pause positions remapped onto Synthesized.
	PauseAfter []int

	// Mastered reports whether the mastering chain ran successfully.
	Mastered bool
	Preset   string

	// WorkDir holds the segment clips when they were kept.
	WorkDir string

	// Episode is the history record, nil without a store.
	Episode *episode.Episode

	Elapsed time.Duration
}

type outcome struct {
	clip audio.Clip
	err  error
}

func (g *Generator) generate(ctx context.Context, text, source, outPath string) (res *Result, err error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "podcast.generate", trace.WithAttributes(
		observe.Attr("script", source),
		observe.Attr("provider", g.providerName),
	))
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		g.metrics.RunDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(observe.Attr("status", status)))
		span.End()
	}()
	log := observe.Logger(ctx)

	plan, err := g.Plan(text)
	if err != nil {
		return nil, err
	}
	for _, w := range plan.Warnings {
		log.Warn("script warning", "line", w.Line, "kind", w.Kind, "msg", w.Message)
		g.metrics.RecordWarning(ctx, w.Kind)
	}
	span.SetAttributes(
		attribute.Int("segments.planned", len(plan.Segments)),
		attribute.Int("pauses", len(plan.PauseAfter)),
	)
	if len(plan.Segments) == 0 {
		return nil, fmt.Errorf("%w: the script has no speakable lines", ErrNoAudio)
	}
	log.Info("synthesising script",
		"script", source,
		"segments", len(plan.Segments),
		"pauses", len(plan.PauseAfter),
		"voices", plan.Speakers(),
		"concurrency", max(g.concurrency, 1),
	)

	dir, temp, err := g.workspace()
	if err != nil {
		return nil, err
	}
	var written []string
	defer func() {
		switch {
		case g.keepTemp:
			log.Info("keeping segment clips", "dir", dir)
		case temp:
			_ = os.RemoveAll(dir)
		default:
			for _, f := range written {
				_ = os.Remove(f)
			}
		}
	}()

	outcomes := g.synthesizeAll(ctx, plan.Segments, dir)
	if err := ctx.Err(); err != nil {
		for _, o := range outcomes {
			if o.err == nil {
				written = append(written, o.clip.Path)
			}
		}
		return nil, err
	}

	res = &Result{Plan: plan}
	if g.keepTemp {
		res.WorkDir = dir
	}
	var (
		clips    []audio.Clip
		survived = make([]bool, len(outcomes))
		rejected int
	)
	for i, o := range outcomes {
		seg := plan.Segments[i]
		if o.err != nil {
			res.Failures = append(res.Failures, Failure{Segment: seg, Err: o.err})
			if errors.Is(o.err, resilience.ErrCircuitOpen) {
				rejected++
				g.metrics.RecordSegment(ctx, seg.Voice, observe.StatusSkipped)
				continue
			}
			log.Error("segment synthesis failed; dropping it",
				"segment", seg.Index, "line", seg.Line, "voice", seg.Voice, "err", o.err)
			g.metrics.RecordSegment(ctx, seg.Voice, observe.StatusFailed)
			continue
		}
		written = append(written, o.clip.Path)
		survived[i] = true
		clips = append(clips, o.clip)
		res.Synthesized = append(res.Synthesized, seg)
		g.metrics.RecordSegment(ctx, seg.Voice, observe.StatusOK)
	}
	if rejected > 0 {
		log.Error("provider circuit breaker open; segments dropped without calling the provider", "dropped", rejected)
	}
	span.SetAttributes(attribute.Int("segments.synthesized", len(clips)))
	if len(clips) == 0 {
		return nil, fmt.Errorf("%w: all %d segments failed", ErrNoAudio, len(plan.Segments))
	}
	res.PauseAfter = remapPauses(plan.PauseAfter, survived)

	target := outPath
	if g.masterer != nil {
		target = filepath.Join(dir, "episode.wav")
		written = append(written, target)
	} else if !strings.EqualFold(filepath.Ext(outPath), ".wav") {
		target = strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".wav"
		log.Info("mastering disabled; writing wav", "requested", outPath, "output", target)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("podcast: create output dir: %w", err)
	}

	assembled, err := g.assemble(ctx, clips, res.PauseAfter, target)
	if err != nil {
		return nil, err
	}
	res.Path = assembled

	if g.masterer != nil {
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return nil, fmt.Errorf("podcast: create output dir: %w", err)
		}
		mres, err := g.master(ctx, assembled, outPath)
		if err != nil {
			return nil, err
		}
		res.Path, res.Mastered, res.Preset = mres.Path, mres.Mastered, mres.Preset
	}

	res.Elapsed = time.Since(start)
	res.Episode = g.record(ctx, res, source)

	log.Info("episode written",
		"output", res.Path,
		"segments", len(res.Synthesized),
		"failed", len(res.Failures),
		"mastered", res.Mastered,
		"elapsed", res.Elapsed.Round(time.Millisecond),
	)
	return res, nil
}

// workspace returns the directory for segment clips and whether it is a
// per-run temporary directory.
func (g *Generator) workspace() (string, bool, error) {
	if g.workDir == "" {
		dir, err := os.MkdirTemp("", "scriptcast-*")
		if err != nil {
			return "", false, fmt.Errorf("podcast: temp dir: %w", err)
		}
		return dir, true, nil
	}
	if err := os.MkdirAll(g.workDir, 0o755); err != nil {
		return "", false, fmt.Errorf("podcast: work dir: %w", err)
	}
	return g.workDir, false, nil
}

// synthesizeAll synthesises segs, sequentially or with bounded parallelism.
// outcomes[i] always belongs to segs[i].
func (g *Generator) synthesizeAll(ctx context.Context, segs []Segment, dir string) []outcome {
	out := make([]outcome, len(segs))
	if g.concurrency < 2 {
		for i, s := range segs {
			if err := ctx.Err(); err != nil {
				out[i].err = err
				continue
			}
			out[i].clip, out[i].err = g.synthesize(ctx, s, dir)
		}
		return out
	}

	var eg errgroup.Group
	eg.SetLimit(g.concurrency)
	for i, s := range segs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].err = err
				return nil
			}
			out[i].clip, out[i].err = g.synthesize(ctx, s, dir)
			return nil
		})
	}
	_ = eg.Wait()
	return out
}

func (g *Generator) synthesize(ctx context.Context, seg Segment, dir string) (audio.Clip, error) {
	ctx, span := observe.StartSpan(ctx, "podcast.synthesize", trace.WithAttributes(
		attribute.Int("segment", seg.Index),
		attribute.Int("line", seg.Line),
		observe.Attr("voice", seg.Voice),
	))
	defer span.End()

	start := time.Now()
	clip, err := g.provider.Synthesize(ctx, tts.Request{
		Text:     seg.Text,
		VoiceID:  seg.VoiceID,
		ModelID:  g.model,
		Settings: seg.Settings,
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		span.SetStatus(codes.Error, "circuit open")
		return audio.Clip{}, err
	}
	g.metrics.SynthesisDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		observe.Attr("provider", g.providerName),
		observe.Attr("voice", seg.Voice),
	))
	if err == nil && len(clip.Data) == 0 {
		err = errors.New("provider returned no audio")
	}
	if err != nil {
		g.metrics.RecordProviderRequest(ctx, g.providerName, "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return audio.Clip{}, err
	}
	g.metrics.RecordProviderRequest(ctx, g.providerName, "ok")
	g.metrics.SynthesizedChars.Add(ctx, int64(utf8.RuneCountInString(seg.Text)))

	path := filepath.Join(dir, fmt.Sprintf("seg_%03d_%s.%s", seg.Index, seg.Voice, clip.Encoding.Ext()))
	if err := os.WriteFile(path, clip.Data, 0o644); err != nil {
		return audio.Clip{}, fmt.Errorf("podcast: write clip: %w", err)
	}
	return audio.Clip{Path: path, GainDB: seg.GainDB, SampleRate: clip.SampleRate}, nil
}

func (g *Generator) assemble(ctx context.Context, clips []audio.Clip, pauseAfter []int, out string) (string, error) {
	ctx, span := observe.StartSpan(ctx, "podcast.assemble", trace.WithAttributes(attribute.Int("clips", len(clips))))
	defer span.End()

	start := time.Now()
	path, err := g.assembler.Combine(ctx, clips, pauseAfter, g.gaps, out)
	g.metrics.AssemblyDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("podcast: assemble: %w", err)
	}
	return path, nil
}

func (g *Generator) master(ctx context.Context, in, out string) (master.Result, error) {
	ctx, span := observe.StartSpan(ctx, "podcast.master")
	defer span.End()

	start := time.Now()
	r, err := g.masterer.Master(ctx, in, out)
	g.metrics.MasteringDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(observe.Attr("preset", r.Preset)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return master.Result{}, fmt.Errorf("podcast: master: %w", err)
	}
	span.SetAttributes(attribute.Bool("mastered", r.Mastered))
	return r, nil
}

// record stores the run in the episode history. A store failure is logged
// and does not fail the run.
func (g *Generator) record(ctx context.Context, res *Result, source string) *episode.Episode {
	if g.store == nil {
		return nil
	}
	ep := &episode.Episode{
		RunID:       observe.RunID(ctx),
		Project:     g.project,
		Script:      source,
		Output:      res.Path,
		Planned:     len(res.Plan.Segments),
		Synthesized: len(res.Synthesized),
		Pauses:      len(res.PauseAfter),
		Elapsed:     res.Elapsed,
	}
	if res.Mastered {
		ep.Preset = res.Preset
	}
	for _, w := range res.Plan.Warnings {
		ep.Warnings = append(ep.Warnings, w.String())
	}
	if err := g.store.Record(ctx, ep); err != nil {
		observe.Logger(ctx).Warn("failed to record episode", "output", res.Path, "err", err)
		return nil
	}
	return ep
}

// remapPauses moves pause positions recorded against planned segments onto
// the segments that survived synthesis. A pause after a dropped segment
// moves to the closest earlier survivor, or before the first clip if there
// is none. Duplicates collapse.
func remapPauses(pauseAfter []int, survived []bool) []int {
	if len(pauseAfter) == 0 {
		return nil
	}
	newIndex := make([]int, len(survived))
	last, n := -1, 0
	for i, ok := range survived {
		if ok {
			last = n
			n++
		}
		newIndex[i] = last
	}

	seen := make(map[int]bool, len(pauseAfter))
	out := make([]int, 0, len(pauseAfter))
	for _, p := range pauseAfter {
		m := -1
		if p >= 0 && p < len(newIndex) {
			m = newIndex[p]
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
