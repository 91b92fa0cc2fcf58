package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/scriptcast/pkg/provider/tts"
	ttsmock "github.com/MrWong99/scriptcast/pkg/provider/tts/mock"
)

func TestGuardedTTS_PassesThrough(t *testing.T) {
	p := &ttsmock.Provider{
		Audio:            &tts.Audio{Data: []byte("clip"), Encoding: tts.EncodingMP3},
		ListVoicesResult: []tts.Voice{{ID: "v1", Name: "Lucas"}},
	}
	g := NewGuardedTTS(p, CircuitBreakerConfig{Name: "tts"})

	audio, err := g.Synthesize(context.Background(), tts.Request{Text: "Hallo", VoiceID: "v1"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio.Data) != "clip" {
		t.Errorf("audio = %q, want clip", audio.Data)
	}
	voices, err := g.ListVoices(context.Background())
	if err != nil || len(voices) != 1 {
		t.Fatalf("ListVoices = %v, %v", voices, err)
	}
	if calls := p.Calls(); len(calls) != 1 || calls[0].Request.Text != "Hallo" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestGuardedTTS_OpensAfterConsecutiveFailures(t *testing.T) {
	errQuota := errors.New("quota exceeded")
	p := &ttsmock.Provider{SynthesizeErr: errQuota}
	g := NewGuardedTTS(p, CircuitBreakerConfig{Name: "tts", MaxFailures: 3, ResetTimeout: time.Hour})

	for i := range 3 {
		_, err := g.Synthesize(context.Background(), tts.Request{Text: "x"})
		if !errors.Is(err, errQuota) {
			t.Fatalf("call %d err = %v, want provider error", i, err)
		}
	}
	_, err := g.Synthesize(context.Background(), tts.Request{Text: "x"})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if n := len(p.Calls()); n != 3 {
		t.Errorf("provider called %d times, want 3", n)
	}
	if g.Breaker().State() != StateOpen {
		t.Errorf("state = %v, want open", g.Breaker().State())
	}
}

func TestGuardedTTS_CancellationDoesNotTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &ttsmock.Provider{
		SynthesizeFunc: func(ctx context.Context, _ tts.Request) (*tts.Audio, error) {
			return nil, ctx.Err()
		},
	}
	g := NewGuardedTTS(p, CircuitBreakerConfig{Name: "tts", MaxFailures: 1, ResetTimeout: time.Hour})

	_, err := g.Synthesize(ctx, tts.Request{Text: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if g.Breaker().State() != StateClosed {
		t.Errorf("state = %v, want closed", g.Breaker().State())
	}
}
