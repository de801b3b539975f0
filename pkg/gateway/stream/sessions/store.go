// Package sessions tracks live calls and keeps their conversations in memory
// for a grace period after disconnect so a dropped websocket can resume
// mid-call.
package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/voicedesk/voicedesk/pkg/core/convo"
)

// Handle exposes the controls the store needs over one active call.
type Handle struct {
	Cancel func()
}

// Store is the call registry plus the conversation memory.
type Store struct {
	mu     sync.Mutex
	active map[string]*trackedCall
	memory map[string]*heldConversation
	wg     sync.WaitGroup

	grace     time.Duration
	startedAt time.Time

	// afterFunc is replaceable in tests.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

type trackedCall struct {
	handle Handle
	once   sync.Once
}

type heldConversation struct {
	conv  *convo.Conversation
	timer *time.Timer
}

// NewStore builds a store whose conversations survive disconnect for grace.
func NewStore(grace time.Duration) *Store {
	return &Store{
		active:    make(map[string]*trackedCall),
		memory:    make(map[string]*heldConversation),
		grace:     grace,
		startedAt: time.Now(),
		afterFunc: time.AfterFunc,
	}
}

// Register tracks an active call. Registering the same callID again (a
// reconnect) cancels and replaces the previous registration. The returned
// unregister is idempotent.
func (s *Store) Register(callID string, h Handle) (unregister func()) {
	entry := &trackedCall{handle: h}

	s.mu.Lock()
	old := s.active[callID]
	s.active[callID] = entry
	s.wg.Add(1)
	s.mu.Unlock()

	if old != nil {
		if old.handle.Cancel != nil {
			old.handle.Cancel()
		}
		s.unregister(callID, old)
	}

	return func() { s.unregister(callID, entry) }
}

func (s *Store) unregister(callID string, entry *trackedCall) {
	entry.once.Do(func() {
		s.mu.Lock()
		if s.active[callID] == entry {
			delete(s.active, callID)
		}
		s.mu.Unlock()
		s.wg.Done()
	})
}

// Conversation returns the call's conversation, resurrecting one held in the
// grace window or creating a fresh one. A resurrected conversation keeps its
// history, so a reconnecting caller is not greeted from scratch.
func (s *Store) Conversation(callID, businessID string, maxTurns int) (c *convo.Conversation, resumed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if held, ok := s.memory[callID]; ok {
		if held.timer != nil {
			held.timer.Stop()
			held.timer = nil
		}
		return held.conv, true
	}
	c = convo.New(callID, businessID, maxTurns)
	s.memory[callID] = &heldConversation{conv: c}
	return c, false
}

// Release starts the eviction clock on a call's conversation. The history
// stays available to Conversation until the grace period lapses.
func (s *Store) Release(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	held, ok := s.memory[callID]
	if !ok {
		return
	}
	if held.timer != nil {
		held.timer.Stop()
	}
	if s.grace <= 0 {
		delete(s.memory, callID)
		return
	}
	held.timer = s.afterFunc(s.grace, func() { s.evict(callID, held) })
}

func (s *Store) evict(callID string, held *heldConversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.memory[callID]; ok && cur == held && cur.timer != nil {
		delete(s.memory, callID)
	}
}

// ActiveCalls reports the number of registered calls.
func (s *Store) ActiveCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// ConversationsInMemory reports held conversations, active and in-grace.
func (s *Store) ConversationsInMemory() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.memory)
}

// Status is the operational snapshot served on the status endpoint.
type Status struct {
	ActiveCalls           int     `json:"activeCalls"`
	ConversationsInMemory int     `json:"conversationsInMemory"`
	UptimeSeconds         float64 `json:"uptime"`
}

// Status snapshots the store.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		ActiveCalls:           len(s.active),
		ConversationsInMemory: len(s.memory),
		UptimeSeconds:         time.Since(s.startedAt).Seconds(),
	}
}

// CancelAll signals every active call to shut down.
func (s *Store) CancelAll() (canceled int) {
	var cancels []func()
	s.mu.Lock()
	for _, entry := range s.active {
		if entry.handle.Cancel != nil {
			cancels = append(cancels, entry.handle.Cancel)
		}
	}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
		canceled++
	}
	return canceled
}

// Wait blocks until every registered call has unregistered, or ctx expires.
func (s *Store) Wait(ctx context.Context) bool {
	if ctx == nil {
		s.wg.Wait()
		return true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
