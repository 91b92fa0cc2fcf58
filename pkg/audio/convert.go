package audio

import (
	"encoding/binary"
	"fmt"
)

// Convert returns p resampled and channel-converted to target. Resampling
// runs before channel conversion.
func Convert(p PCM, target Format) (PCM, error) {
	if err := target.validate(); err != nil {
		return PCM{}, err
	}
	if err := p.Format.validate(); err != nil {
		return PCM{}, err
	}
	if len(p.Data)%p.frameSize() != 0 {
		return PCM{}, fmt.Errorf("audio: %d bytes is not a whole number of %s frames", len(p.Data), p.Format)
	}
	if p.Format == target {
		return p, nil
	}

	pcm := p.Data
	if p.SampleRate != target.SampleRate {
		pcm = Resample(pcm, p.Channels, p.SampleRate, target.SampleRate)
	}
	switch {
	case p.Channels == 1 && target.Channels == 2:
		pcm = MonoToStereo(pcm)
	case p.Channels == 2 && target.Channels == 1:
		pcm = StereoToMono(pcm)
	}
	return PCM{Format: target, Data: pcm}, nil
}

// MonoToStereo duplicates each int16 mono sample into a stereo L+R pair.
// Input must be little-endian int16 PCM (2 bytes per sample).
func MonoToStereo(pcm []byte) []byte {
	out := make([]byte, (len(pcm)/2)*4)
	for i := 0; i+1 < len(pcm); i += 2 {
		lo, hi := pcm[i], pcm[i+1]
		j := i * 2
		out[j] = lo
		out[j+1] = hi
		out[j+2] = lo
		out[j+3] = hi
	}
	return out
}

// StereoToMono averages L+R per stereo frame (4 bytes) to produce mono output.
// Uses int32 arithmetic to prevent overflow and clamps to int16 range.
func StereoToMono(pcm []byte) []byte {
	// Each stereo frame is 4 bytes (2 bytes L + 2 bytes R).
	frames := len(pcm) / 4
	out := make([]byte, frames*2)
	for i := range frames {
		lSample := int32(int16(pcm[i*4]) | int16(pcm[i*4+1])<<8)
		rSample := int32(int16(pcm[i*4+2]) | int16(pcm[i*4+3])<<8)
		avg := (lSample + rSample) / 2

		// Clamp to int16 range.
		if avg > 32767 {
			avg = 32767
		} else if avg < -32768 {
			avg = -32768
		}

		out[i*2] = byte(avg)
		out[i*2+1] = byte(avg >> 8)
	}
	return out
}

// Resample resamples interleaved 16-bit PCM with the given channel count from
// srcRate to dstRate using linear interpolation. Invalid rates or equal rates
// return the input unchanged.
func Resample(pcm []byte, channels, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 || channels <= 0 || srcRate == dstRate {
		return pcm
	}
	frame := 2 * channels
	srcFrames := len(pcm) / frame
	if srcFrames == 0 {
		return pcm
	}
	dstFrames := int(int64(srcFrames) * int64(dstRate) / int64(srcRate))
	if dstFrames == 0 {
		return nil
	}

	sample := func(f, ch int) float64 {
		o := f*frame + ch*2
		return float64(int16(binary.LittleEndian.Uint16(pcm[o:])))
	}
	out := make([]byte, dstFrames*frame)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dstFrames {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		next := min(idx+1, srcFrames-1)
		for ch := range channels {
			v := sample(idx, ch)*(1-frac) + sample(next, ch)*frac
			binary.LittleEndian.PutUint16(out[i*frame+ch*2:], uint16(int16(v)))
		}
	}
	return out
}

// formatString returns a human-readable string for a sample rate and channel count,
// e.g. "48000Hz stereo".
func formatString(rate, channels int) string {
	ch := "mono"
	if channels == 2 {
		ch = "stereo"
	} else if channels > 2 {
		ch = fmt.Sprintf("%dch", channels)
	}
	return fmt.Sprintf("%dHz %s", rate, ch)
}
