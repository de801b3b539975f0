// Package tts provides text-to-speech for the receptionist's replies.
package tts

import (
	"context"
	"fmt"
)

// Synthesizer renders reply text as mono PCM16 WAV bytes.
type Synthesizer interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize converts text to a WAV-framed utterance.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Error describes a failed synthesis request.
type Error struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tts %s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("tts %s: status %d: %s", e.Provider, e.Status, e.Body)
}

func (e *Error) Unwrap() error { return e.Err }
