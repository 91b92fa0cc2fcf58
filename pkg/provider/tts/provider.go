// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs or a local
// Coqui server) and turns one segment of SSML-annotated text into one encoded
// audio clip. The orchestrator calls Synthesize once per script segment and
// never retries; a failed call drops that segment.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use. With generation concurrency
// above one, several segments are synthesised in parallel.
type Provider interface {
	// Synthesize renders req.Text with the voice and settings in req and
	// returns the complete encoded clip.
	//
	// Returns an error if the request is invalid, the backend rejects it, or
	// ctx is cancelled before the audio arrives. Implementations must not
	// retry internally.
	Synthesize(ctx context.Context, req Request) (*Audio, error)

	// ListVoices returns all voices available from this provider. The list
	// reflects the provider's current catalogue and may change between calls.
	//
	// Returns an error if the provider cannot be reached or if ctx is cancelled
	// before the list is retrieved.
	ListVoices(ctx context.Context) ([]Voice, error)
}
