package resilience

import (
	"context"
	"fmt"

	"github.com/MrWong99/scriptcast/pkg/provider/tts"
)

// GuardedTTS wraps a [tts.Provider] with a [CircuitBreaker]. Both Synthesize
// and ListVoices count towards the breaker.
type GuardedTTS struct {
	provider tts.Provider
	breaker  *CircuitBreaker
}

var _ tts.Provider = (*GuardedTTS)(nil)

// NewGuardedTTS returns p guarded by a new breaker built from cfg.
func NewGuardedTTS(p tts.Provider, cfg CircuitBreakerConfig) *GuardedTTS {
	return &GuardedTTS{provider: p, breaker: NewCircuitBreaker(cfg)}
}

// Breaker returns the breaker guarding the provider.
func (g *GuardedTTS) Breaker() *CircuitBreaker {
	return g.breaker
}

// Synthesize forwards req unless the breaker is open. A cancelled context is
// not counted as a provider failure.
func (g *GuardedTTS) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	var audio *tts.Audio
	var callErr error
	err := g.breaker.Execute(func() error {
		audio, callErr = g.provider.Synthesize(ctx, req)
		if callErr != nil && ctx.Err() != nil {
			return nil
		}
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("resilience: synthesize: %w", err)
	}
	if callErr != nil {
		return nil, callErr
	}
	return audio, nil
}

// ListVoices forwards to the wrapped provider unless the breaker is open.
func (g *GuardedTTS) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	var voices []tts.Voice
	err := g.breaker.Execute(func() error {
		var err error
		voices, err = g.provider.ListVoices(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("resilience: list voices: %w", err)
	}
	return voices, nil
}
