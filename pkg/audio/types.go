package audio

import (
	"fmt"
	"time"
)

// Format describes the sample rate and channel count of 16-bit PCM.
type Format struct {
	SampleRate int
	Channels   int
}

func (f Format) String() string { return formatString(f.SampleRate, f.Channels) }

// frameSize is the number of bytes of one frame (one sample per channel).
func (f Format) frameSize() int { return 2 * f.Channels }

func (f Format) validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("audio: invalid sample rate %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("audio: unsupported channel count %d", f.Channels)
	}
	return nil
}

// PCM is a block of interleaved signed 16-bit little-endian samples.
type PCM struct {
	Format
	Data []byte
}

// Frames returns the number of complete frames in p.
func (p PCM) Frames() int {
	if p.Channels <= 0 {
		return 0
	}
	return len(p.Data) / p.frameSize()
}

// Duration returns the playing time of p.
func (p PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(p.Frames()) * time.Second / time.Duration(p.SampleRate)
}

// Silence returns d worth of digital silence in format f.
func Silence(f Format, d time.Duration) PCM {
	frames := int(int64(d) * int64(f.SampleRate) / int64(time.Second))
	if frames < 0 {
		frames = 0
	}
	return PCM{Format: f, Data: make([]byte, frames*f.frameSize())}
}
