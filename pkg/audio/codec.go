package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/orcaman/writerseeker"
)

// wavFormatPCM is the WAVE_FORMAT_PCM format tag.
const wavFormatPCM = 1

// ErrUnsupportedFormat is returned when a clip's container cannot be decoded.
var ErrUnsupportedFormat = errors.New("audio: unsupported format")

// DecodeMP3 decodes an MP3 stream. The result is always 16-bit stereo at the
// stream's sample rate.
func DecodeMP3(r io.Reader) (PCM, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return PCM{}, fmt.Errorf("audio: mp3 decoder: %w", err)
	}
	data, err := io.ReadAll(d)
	if err != nil {
		return PCM{}, fmt.Errorf("audio: decode mp3: %w", err)
	}
	// Drop a trailing partial frame.
	data = data[:len(data)-len(data)%4]
	return PCM{Format: Format{SampleRate: d.SampleRate(), Channels: 2}, Data: data}, nil
}

// DecodeWAV decodes a PCM WAV stream of 8, 16, 24 or 32 bits into 16-bit
// samples.
func DecodeWAV(r io.ReadSeeker) (PCM, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return PCM{}, errors.New("audio: decode wav: not a valid WAV file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("audio: decode wav: %w", err)
	}
	if buf.Format == nil {
		return PCM{}, errors.New("audio: decode wav: missing format")
	}

	f := Format{SampleRate: buf.Format.SampleRate, Channels: buf.Format.NumChannels}
	if err := f.validate(); err != nil {
		return PCM{}, err
	}

	shift, offset := 0, 0
	switch d.BitDepth {
	case 8:
		// 8-bit WAV is unsigned.
		shift, offset = -8, 128
	case 16:
	case 24:
		shift = 8
	case 32:
		shift = 16
	default:
		return PCM{}, fmt.Errorf("audio: decode wav: unsupported bit depth %d", d.BitDepth)
	}

	out := make([]byte, len(buf.Data)*2)
	for i, v := range buf.Data {
		v -= offset
		switch {
		case shift > 0:
			v >>= shift
		case shift < 0:
			v <<= -shift
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(clamp16(v))))
	}
	out = out[:len(out)-len(out)%f.frameSize()]
	return PCM{Format: f, Data: out}, nil
}

// DecodeFile decodes the clip at path, choosing the decoder by extension.
// Files ending in ".pcm" are raw 16-bit mono at rawRate.
func DecodeFile(path string, rawRate int) (PCM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PCM{}, fmt.Errorf("audio: read clip: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return DecodeMP3(bytes.NewReader(data))
	case ".wav":
		return DecodeWAV(bytes.NewReader(data))
	case ".pcm":
		f := Format{SampleRate: rawRate, Channels: 1}
		if err := f.validate(); err != nil {
			return PCM{}, fmt.Errorf("audio: raw clip %s: %w", filepath.Base(path), err)
		}
		return PCM{Format: f, Data: data[:len(data)-len(data)%2]}, nil
	default:
		return PCM{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// EncodeWAV writes p as a 16-bit PCM WAV file to w.
func EncodeWAV(w io.WriteSeeker, p PCM) error {
	if err := p.Format.validate(); err != nil {
		return err
	}
	enc := wav.NewEncoder(w, p.SampleRate, 16, p.Channels, wavFormatPCM)

	samples := make([]int, len(p.Data)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(p.Data[i*2:])))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: p.Channels, SampleRate: p.SampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audio: encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audio: finalize wav: %w", err)
	}
	return nil
}

// WriteWAVFile encodes p in memory and writes it to path in one go, so a
// failed encode never leaves a truncated file behind.
func WriteWAVFile(path string, p PCM) error {
	ws := &writerseeker.WriterSeeker{}
	if err := EncodeWAV(ws, p); err != nil {
		return err
	}
	data, err := io.ReadAll(ws.Reader())
	if err != nil {
		return fmt.Errorf("audio: buffer wav: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("audio: write wav: %w", err)
	}
	return nil
}

func clamp16(v int) int {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return v
}
