package tts

import (
	"context"
	"log/slog"
)

// Fallback tries a primary synthesizer and, on any error, a secondary one.
// The caller's context cancellation is never retried.
type Fallback struct {
	primary   Synthesizer
	secondary Synthesizer
	logger    *slog.Logger

	// OnFallback, when set, is called each time the secondary is attempted.
	OnFallback func()
}

// NewFallback chains two synthesizers. secondary may be nil, in which case
// primary errors pass through unchanged.
func NewFallback(primary, secondary Synthesizer, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

// Name returns the provider identifier.
func (f *Fallback) Name() string { return f.primary.Name() + "+fallback" }

// Synthesize implements Synthesizer.
func (f *Fallback) Synthesize(ctx context.Context, text string) ([]byte, error) {
	wav, err := f.primary.Synthesize(ctx, text)
	if err == nil {
		return wav, nil
	}
	if f.secondary == nil || ctx.Err() != nil {
		return nil, err
	}
	if f.OnFallback != nil {
		f.OnFallback()
	}
	f.logger.Warn("tts primary failed, trying fallback",
		"primary", f.primary.Name(),
		"fallback", f.secondary.Name(),
		"error", err)
	return f.secondary.Synthesize(ctx, text)
}
