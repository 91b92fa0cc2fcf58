package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
)

// Defaults used by [NewAssembler].
const (
	DefaultSampleRate = 44100
	DefaultHeadroomDB = 0.1
)

// Clip is one synthesised segment on disk.
type Clip struct {
	// Path is the clip file. The extension selects the decoder.
	Path string

	// GainDB is applied to the clip before it is joined.
	GainDB float64

	// SampleRate is required for raw ".pcm" clips and ignored otherwise.
	SampleRate int
}

// Gaps are the silences inserted between clips.
type Gaps struct {
	// Normal separates consecutive clips.
	Normal time.Duration

	// Pause replaces Normal after a clip listed in the pause indices.
	Pause time.Duration
}

// AssemblerOption is a functional option for configuring an [Assembler].
type AssemblerOption func(*Assembler)

// WithFormat sets the output format. Default: 44.1 kHz stereo.
func WithFormat(f Format) AssemblerOption {
	return func(a *Assembler) {
		a.format = f
	}
}

// WithHeadroom sets how far below full scale the normalised peak sits.
// Default: 0.1 dB. A negative value disables normalisation.
func WithHeadroom(db float64) AssemblerOption {
	return func(a *Assembler) {
		a.headroom = db
	}
}

// Assembler joins clips into one WAV file. It is stateless and safe for
// concurrent use.
type Assembler struct {
	format   Format
	headroom float64
}

// NewAssembler returns an Assembler with the given options applied.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		format:   Format{SampleRate: DefaultSampleRate, Channels: 2},
		headroom: DefaultHeadroomDB,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Combine decodes clips in order, applies each clip's gain, joins them with
// gaps.Normal, or gaps.Pause after every index in pauseAfter, normalises the
// result and writes it to outPath as WAV.
//
// A negative pause index inserts the pause before the first clip. Nothing
// follows the last clip, so a pause after it is dropped, as are other
// out-of-range indices. It returns outPath on success.
func (a *Assembler) Combine(ctx context.Context, clips []Clip, pauseAfter []int, gaps Gaps, outPath string) (string, error) {
	if len(clips) == 0 {
		return "", errors.New("audio: combine: no clips")
	}
	if err := a.format.validate(); err != nil {
		return "", fmt.Errorf("audio: combine: %w", err)
	}

	leading := false
	pauses := make(map[int]bool, len(pauseAfter))
	for _, i := range pauseAfter {
		switch {
		case i < 0:
			leading = true
		case i < len(clips)-1:
			pauses[i] = true
		}
	}

	var out []byte
	if leading {
		out = append(out, Silence(a.format, gaps.Pause).Data...)
	}
	for i, c := range clips {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		pcm, err := DecodeFile(c.Path, c.SampleRate)
		if err != nil {
			return "", fmt.Errorf("audio: combine clip %d (%s): %w", i, filepath.Base(c.Path), err)
		}
		pcm, err = Convert(pcm, a.format)
		if err != nil {
			return "", fmt.Errorf("audio: combine clip %d (%s): %w", i, filepath.Base(c.Path), err)
		}
		out = append(out, Gain(pcm, c.GainDB).Data...)

		if i == len(clips)-1 {
			break
		}
		gap := gaps.Normal
		if pauses[i] {
			gap = gaps.Pause
		}
		out = append(out, Silence(a.format, gap).Data...)
	}

	final := PCM{Format: a.format, Data: out}
	if a.headroom >= 0 {
		final = Normalize(final, a.headroom)
	}
	if err := WriteWAVFile(outPath, final); err != nil {
		return "", err
	}

	slog.Debug("audio: combined clips",
		"clips", len(clips),
		"pauses", len(pauses),
		"leading_pause", leading,
		"duration", final.Duration().Round(time.Millisecond),
		"format", a.format,
		"out", outPath,
	)
	return outPath, nil
}
