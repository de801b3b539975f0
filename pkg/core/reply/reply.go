// Package reply turns a caller utterance into the receptionist's answer.
package reply

import (
	"context"
	"fmt"

	"github.com/voicedesk/voicedesk/pkg/core/convo"
)

// Reply is a generated answer. Label carries a coarse intent tag for logging
// and metrics; it is free-form and never shown to the caller.
type Reply struct {
	Text  string
	Label string
}

// Error describes a failed generation attempt.
type Error struct {
	Generator string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("reply %s: %v", e.Generator, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Generator produces a reply for a transcribed caller utterance in the
// context of one business's conversation.
type Generator interface {
	Generate(ctx context.Context, utterance, businessID string, history []convo.Turn) (Reply, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, utterance, businessID string, history []convo.Turn) (Reply, error)

func (f GeneratorFunc) Generate(ctx context.Context, utterance, businessID string, history []convo.Turn) (Reply, error) {
	return f(ctx, utterance, businessID, history)
}
