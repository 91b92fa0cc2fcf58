package audio

import (
	"encoding/binary"
	"math"
)

// Gain returns a copy of p scaled by db decibels, clipping at full scale.
func Gain(p PCM, db float64) PCM {
	if db == 0 || len(p.Data) == 0 {
		return p
	}
	factor := math.Pow(10, db/20)
	out := make([]byte, len(p.Data)-len(p.Data)%2)
	for i := 0; i+1 < len(p.Data); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(p.Data[i:])))
		binary.LittleEndian.PutUint16(out[i:], uint16(int16(clamp16(int(math.Round(s*factor))))))
	}
	return PCM{Format: p.Format, Data: out}
}

// Peak returns the largest absolute sample value in p.
func Peak(p PCM) int {
	peak := 0
	for i := 0; i+1 < len(p.Data); i += 2 {
		s := int(int16(binary.LittleEndian.Uint16(p.Data[i:])))
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// PeakDBFS returns the peak level of p relative to full scale. Silence
// reports -Inf.
func PeakDBFS(p PCM) float64 {
	peak := Peak(p)
	if peak == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(float64(peak)/32767)
}

// Normalize scales p so its peak sits headroom decibels below full scale.
// Silent input is returned unchanged.
func Normalize(p PCM, headroom float64) PCM {
	peak := PeakDBFS(p)
	if math.IsInf(peak, -1) {
		return p
	}
	return Gain(p, -headroom-peak)
}
