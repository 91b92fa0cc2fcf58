// Package coqui renders segments on a self-hosted Coqui TTS server.
//
// Two server flavours are understood. The standard server
// (ghcr.io/coqui-ai/tts-cpu) synthesizes on GET /api/tts and describes its
// model on GET /details. The XTTS v2 API server synthesizes on
// POST /tts_to_audio/ and lists its studio speakers on GET /studio_speakers.
//
// Coqui has no notion of SSML or of stability and style knobs: voice
// settings are dropped, and markup should be removed with [WithTextFilter].
//
//	p, err := coqui.New("http://localhost:5002",
//	    coqui.WithLanguage("nl"),
//	    coqui.WithTextFilter(markup.StripSSML),
//	)
package coqui

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-audio/wav"

	"github.com/MrWong99/scriptcast/pkg/provider/tts"
)

var _ tts.Provider = (*Provider)(nil)

const (
	defaultLanguage = "en"
	defaultTimeout  = 30 * time.Second

	apiTTSEndpoint  = "/api/tts"
	detailsEndpoint = "/details"

	ttsEndpoint            = "/tts_to_audio/"
	studioSpeakersEndpoint = "/studio_speakers"
)

// APIMode selects the server flavour.
type APIMode string

const (
	// APIModeStandard targets the standard Coqui TTS server. It is the
	// default.
	APIModeStandard APIMode = "standard"

	// APIModeXTTS targets the XTTS v2 API server.
	APIModeXTTS APIMode = "xtts"
)

// Option configures a [Provider].
type Option func(*Provider)

// WithLanguage sets the language code sent with every request. Default "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithTimeout bounds each HTTP request. Default 30s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// WithAPIMode selects the server flavour.
func WithAPIMode(mode APIMode) Option {
	return func(p *Provider) { p.apiMode = mode }
}

// WithTextFilter rewrites every text before it is sent, typically to strip
// SSML elements.
func WithTextFilter(fn func(string) string) Option {
	return func(p *Provider) { p.filter = fn }
}

// Provider is a [tts.Provider] for a Coqui server. It is safe for concurrent
// use.
type Provider struct {
	serverURL  string
	language   string
	apiMode    APIMode
	filter     func(string) string
	httpClient *http.Client
}

// New returns a Provider for the server at serverURL, e.g.
// "http://localhost:5002".
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("coqui: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   defaultLanguage,
		apiMode:    APIModeStandard,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	if p.apiMode != APIModeStandard && p.apiMode != APIModeXTTS {
		return nil, fmt.Errorf("coqui: unknown API mode %q", p.apiMode)
	}
	return p, nil
}

// ttsRequest is the body of POST /tts_to_audio/.
type ttsRequest struct {
	Text       string `json:"text"`
	SpeakerWav string `json:"speaker_wav"`
	Language   string `json:"language"`
}

// detailsResponse is the body of GET /details. Speakers is empty for
// single-speaker models.
type detailsResponse struct {
	ModelName string   `json:"model_name"`
	Language  string   `json:"language"`
	Speakers  []string `json:"speakers"`
}

// Synthesize renders req.Text with the speaker req.VoiceID and returns the
// WAV the server produced.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	text := req.Text
	if p.filter != nil {
		text = p.filter(text)
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("coqui: text must not be empty")
	}

	httpReq, err := p.newSynthesisRequest(ctx, text, req.VoiceID)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "audio/wav")

	body, err := p.do(httpReq)
	if err != nil {
		return nil, err
	}
	rate, err := wavSampleRate(body)
	if err != nil {
		return nil, err
	}
	return &tts.Audio{Data: body, Encoding: tts.EncodingWAV, SampleRate: rate}, nil
}

func (p *Provider) newSynthesisRequest(ctx context.Context, text, voiceID string) (*http.Request, error) {
	if p.apiMode == APIModeXTTS {
		body, err := json.Marshal(ttsRequest{Text: text, SpeakerWav: voiceID, Language: p.language})
		if err != nil {
			return nil, fmt.Errorf("coqui: marshal tts request: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+ttsEndpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("coqui: create tts request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	q := url.Values{"text": {text}}
	if voiceID != "" {
		q.Set("speaker_id", voiceID)
	}
	if p.language != "" {
		q.Set("language_id", p.language)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+apiTTSEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("coqui: create tts request: %w", err)
	}
	return req, nil
}

// do sends req and returns the body of a 200 response.
func (p *Provider) do(req *http.Request) ([]byte, error) {
	what := req.Method + " " + req.URL.Path
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coqui: %s: %w", what, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coqui: %s returned status %d", what, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coqui: read %s response: %w", what, err)
	}
	return body, nil
}

// wavSampleRate checks that data is a RIFF/WAVE file and returns the sample
// rate of its fmt chunk.
func wavSampleRate(data []byte) (int, error) {
	if len(data) < 12 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, errors.New("coqui: response is not a RIFF/WAVE file")
	}
	d := wav.NewDecoder(bytes.NewReader(data))
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return 0, fmt.Errorf("coqui: read WAV header: %w", err)
	}
	if d.SampleRate == 0 {
		return 0, errors.New("coqui: WAV response has no fmt chunk")
	}
	return int(d.SampleRate), nil
}

// ListVoices returns the server's speakers sorted by ID. A standard server
// running a single-speaker model reports one voice named after the model.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	if p.apiMode == APIModeXTTS {
		var speakers map[string]json.RawMessage
		if err := p.getJSON(ctx, studioSpeakersEndpoint, &speakers); err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(speakers))
		for id := range speakers {
			ids = append(ids, id)
		}
		return voices(ids, map[string]string{"type": "studio"}), nil
	}

	var details detailsResponse
	if err := p.getJSON(ctx, detailsEndpoint, &details); err != nil {
		return nil, err
	}
	if len(details.Speakers) > 0 {
		return voices(slices.Clone(details.Speakers), map[string]string{
			"type":       "speaker",
			"model_name": details.ModelName,
		}), nil
	}
	model := cmp.Or(details.ModelName, "default")
	return voices([]string{model}, map[string]string{
		"type":       "single-speaker",
		"model_name": model,
	}), nil
}

func voices(ids []string, meta map[string]string) []tts.Voice {
	slices.Sort(ids)
	out := make([]tts.Voice, len(ids))
	for i, id := range ids {
		out[i] = tts.Voice{ID: id, Name: id, Provider: "coqui", Metadata: meta}
	}
	return out
}

func (p *Provider) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("coqui: create %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := p.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("coqui: decode %s: %w", endpoint, err)
	}
	return nil
}
