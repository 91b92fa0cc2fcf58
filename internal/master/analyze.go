package master

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Analysis is the measured quality of an audio file.
type Analysis struct {
	Codec      string
	SampleRate int
	Channels   int

	// BitRate is in bits per second; 0 when unknown.
	BitRate  int
	Duration time.Duration

	// PeakDB and MeanDB come from ffmpeg's volumedetect filter. HasLevels is
	// false when they could not be measured.
	PeakDB    float64
	MeanDB    float64
	HasLevels bool
}

// probeOutput is the subset of ffprobe's JSON output that is used.
type probeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		BitRate    string `json:"bit_rate"`
		Duration   string `json:"duration"`
	} `json:"streams"`
	Format struct {
		BitRate  string `json:"bit_rate"`
		Duration string `json:"duration"`
	} `json:"format"`
}

// ParseProbe extracts the first audio stream from ffprobe's
// "-print_format json -show_format -show_streams" output. Stream fields that
// are missing fall back to the container values.
func ParseProbe(data []byte) (Analysis, error) {
	var p probeOutput
	if err := json.Unmarshal(data, &p); err != nil {
		return Analysis{}, fmt.Errorf("master: parse ffprobe output: %w", err)
	}
	for _, s := range p.Streams {
		if s.CodecType != "audio" {
			continue
		}
		a := Analysis{
			Codec:    s.CodecName,
			Channels: s.Channels,
		}
		a.SampleRate, _ = strconv.Atoi(s.SampleRate)
		a.BitRate = atoiOr(s.BitRate, p.Format.BitRate)
		a.Duration = secondsOr(s.Duration, p.Format.Duration)
		return a, nil
	}
	return Analysis{}, fmt.Errorf("master: parse ffprobe output: no audio stream")
}

func atoiOr(v, fallback string) int {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	n, _ := strconv.Atoi(fallback)
	return n
}

func secondsOr(v, fallback string) time.Duration {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		if f, err = strconv.ParseFloat(fallback, 64); err != nil {
			return 0
		}
	}
	return time.Duration(f * float64(time.Second))
}

// ParseVolumeDetect reads max_volume and mean_volume from the stderr output
// of ffmpeg's volumedetect filter. ok is false unless both were found.
func ParseVolumeDetect(stderr string) (peak, mean float64, ok bool) {
	var gotPeak, gotMean bool
	sc := bufio.NewScanner(strings.NewReader(stderr))
	for sc.Scan() {
		line := sc.Text()
		if v, found := volumeField(line, "max_volume:"); found {
			peak, gotPeak = v, true
		} else if v, found := volumeField(line, "mean_volume:"); found {
			mean, gotMean = v, true
		}
	}
	return peak, mean, gotPeak && gotMean
}

func volumeField(line, key string) (float64, bool) {
	_, rest, found := strings.Cut(line, key)
	if !found {
		return 0, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Level grades one assessment finding.
type Level string

const (
	LevelGood Level = "good"
	LevelInfo Level = "info"
	LevelWarn Level = "warn"
)

// Finding is one line of a quality assessment.
type Finding struct {
	Metric  string
	Level   Level
	Message string
}

// Assess grades the peak and mean levels of a. It returns nil when levels
// were not measured.
func Assess(a Analysis) []Finding {
	if !a.HasLevels {
		return nil
	}
	var peak, rms Finding
	peak.Metric = "peak"
	switch {
	case a.PeakDB > -0.5:
		peak.Level, peak.Message = LevelWarn, fmt.Sprintf("peak level is very high (%.1f dB), potential clipping", a.PeakDB)
	case a.PeakDB > -3:
		peak.Level, peak.Message = LevelGood, fmt.Sprintf("peak level good (%.1f dB)", a.PeakDB)
	default:
		peak.Level, peak.Message = LevelInfo, fmt.Sprintf("peak level is low (%.1f dB), could be louder", a.PeakDB)
	}

	rms.Metric = "rms"
	switch {
	case a.MeanDB > -10:
		rms.Level, rms.Message = LevelWarn, fmt.Sprintf("RMS level is very high (%.1f dB), likely over-compressed", a.MeanDB)
	case a.MeanDB < -20:
		rms.Level, rms.Message = LevelInfo, fmt.Sprintf("RMS level is low (%.1f dB), may sound too quiet", a.MeanDB)
	default:
		rms.Level, rms.Message = LevelGood, fmt.Sprintf("RMS level good (%.1f dB)", a.MeanDB)
	}
	return []Finding{peak, rms}
}

// Analyze probes path with ffprobe and, when ffmpeg is available, measures
// its levels with volumedetect.
func (m *Mastering) Analyze(ctx context.Context, path string) (Analysis, error) {
	if m.tools.FFprobe == "" {
		return Analysis{}, fmt.Errorf("%w: ffprobe", ErrToolNotFound)
	}
	out, _, err := m.runner.Run(ctx, m.tools.FFprobe,
		"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", "-i", path)
	if err != nil {
		return Analysis{}, err
	}
	a, err := ParseProbe(out)
	if err != nil {
		return Analysis{}, err
	}

	if m.tools.FFmpeg != "" {
		// volumedetect reports on stderr; the exit status is not reliable.
		_, stderr, _ := m.runner.Run(ctx, m.tools.FFmpeg,
			"-i", path, "-af", "volumedetect", "-vn", "-sn", "-dn", "-f", "null", "-")
		a.PeakDB, a.MeanDB, a.HasLevels = ParseVolumeDetect(string(stderr))
	}
	return a, nil
}
