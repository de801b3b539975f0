// Package convo keeps per-call conversation history so the reply engine can
// answer with context across turns, including across a mid-call reconnect.
package convo

import (
	"sync"
	"time"
)

// Turn is one utterance in a conversation. Label names the matched intent on
// assistant turns and stays empty on caller turns.
type Turn struct {
	Role  string // "caller" or "assistant"
	Text  string
	Label string
	At    time.Time
}

// Conversation is the mutable transcript of one call. It is safe for
// concurrent use; the session goroutine appends while the status surface
// reads.
type Conversation struct {
	mu         sync.Mutex
	callID     string
	businessID string
	startedAt  time.Time
	turns      []Turn
	maxTurns   int
	context    map[string]string
}

// New returns an empty conversation. maxTurns bounds the transcript; once
// exceeded the oldest turns are dropped in pairs so the history always opens
// on a caller turn. maxTurns <= 0 means unbounded.
func New(callID, businessID string, maxTurns int) *Conversation {
	return &Conversation{
		callID:     callID,
		businessID: businessID,
		startedAt:  time.Now(),
		turns:      make([]Turn, 0, 16),
		maxTurns:   maxTurns,
	}
}

func (c *Conversation) CallID() string     { return c.callID }
func (c *Conversation) BusinessID() string { return c.businessID }
func (c *Conversation) StartedAt() time.Time {
	return c.startedAt
}

// AddCaller appends a transcribed caller utterance.
func (c *Conversation) AddCaller(text string) {
	c.add(Turn{Role: "caller", Text: text, At: time.Now()})
}

// AddAssistant appends a spoken assistant reply with the intent label that
// produced it.
func (c *Conversation) AddAssistant(text, label string) {
	c.add(Turn{Role: "assistant", Text: text, Label: label, At: time.Now()})
}

// SetContext records a free-form fact about the call (caller name, matched
// intent) for later turns.
func (c *Conversation) SetContext(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.context == nil {
		c.context = make(map[string]string)
	}
	c.context[key] = value
}

// Context returns a copy of the call's context map.
func (c *Conversation) Context() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.context))
	for k, v := range c.context {
		out[k] = v
	}
	return out
}

func (c *Conversation) add(t Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, t)
	if c.maxTurns > 0 && len(c.turns) > c.maxTurns {
		drop := len(c.turns) - c.maxTurns
		if drop%2 == 1 {
			drop++
		}
		if drop < len(c.turns) {
			c.turns = append(c.turns[:0], c.turns[drop:]...)
		}
	}
}

// Snapshot returns a copy of the transcript in order.
func (c *Conversation) Snapshot() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len reports the number of turns recorded.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}
