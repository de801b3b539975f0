// Package stt provides speech-to-text for caller audio.
package stt

import (
	"context"
	"fmt"
)

// Transcriber converts a WAV-framed utterance to text. An empty transcript
// with a nil error means the audio carried no recognizable speech.
type Transcriber interface {
	// Name returns the provider identifier.
	Name() string

	// Transcribe converts one WAV utterance to text.
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// Error describes a failed transcription request.
type Error struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stt %s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("stt %s: status %d: %s", e.Provider, e.Status, e.Body)
}

func (e *Error) Unwrap() error { return e.Err }
