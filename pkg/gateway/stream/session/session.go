// Package session runs one telephony media-stream websocket: it accumulates
// caller audio into utterances, drives the transcribe/reply/synthesize
// pipeline, and paces reply audio back onto the wire.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicedesk/voicedesk/pkg/core/convo"
	"github.com/voicedesk/voicedesk/pkg/core/reply"
	"github.com/voicedesk/voicedesk/pkg/core/voice/stt"
	"github.com/voicedesk/voicedesk/pkg/core/voice/tts"
	"github.com/voicedesk/voicedesk/pkg/gateway/metrics"
	"github.com/voicedesk/voicedesk/pkg/gateway/stream/protocol"
	"github.com/voicedesk/voicedesk/pkg/gateway/stream/sessions"
)

const (
	OutboundEncodingMulaw = "mulaw"
	OutboundEncodingPCM   = "pcm"
)

type Config struct {
	MinFlushDuration time.Duration
	MaxSilenceGap    time.Duration
	MinAudioFloor    time.Duration
	SampleRate       int
	OutboundEncoding string
	ChunkBytes       int
	ChunkInterval    time.Duration
	IdleTick         time.Duration
	PingInterval     time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	MaxMessageBytes  int64
	MaxCallDuration  time.Duration
	PipelineTimeout  time.Duration
	MaxHistoryTurns  int
	OutboundQueue    int
}

// DefaultConfig returns the tuning a narrowband phone stream wants.
func DefaultConfig() Config {
	return Config{
		MinFlushDuration: 800 * time.Millisecond,
		MaxSilenceGap:    2 * time.Second,
		MinAudioFloor:    500 * time.Millisecond,
		SampleRate:       8000,
		OutboundEncoding: OutboundEncodingMulaw,
		ChunkBytes:       640,
		ChunkInterval:    20 * time.Millisecond,
		IdleTick:         250 * time.Millisecond,
		PingInterval:     20 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReadTimeout:      90 * time.Second,
		MaxMessageBytes:  1 << 20,
		MaxCallDuration:  time.Hour,
		PipelineTimeout:  30 * time.Second,
		MaxHistoryTurns:  40,
		OutboundQueue:    256,
	}
}

// Greeter supplies the opening line for a business, if any.
type Greeter interface {
	Greeting(businessID string) string
}

type Dependencies struct {
	Conn        *websocket.Conn
	Logger      *slog.Logger
	Store       *sessions.Store
	Transcriber stt.Transcriber
	Synthesizer tts.Synthesizer
	Replies     reply.Generator
	Greeter     Greeter
	Metrics     *metrics.Metrics
	RequestID   string
	Config      Config
	Now         func() time.Time
	StreamTick  <-chan time.Time // test hook; nil means real pacing
}

// CallSession is the state of one websocket, from accept to teardown.
type CallSession struct {
	conn    *websocket.Conn
	logger  *slog.Logger
	store   *sessions.Store
	sttc    stt.Transcriber
	ttsc    tts.Synthesizer
	replies reply.Generator
	greeter Greeter
	mets    *metrics.Metrics
	cfg     Config
	now     func() time.Time
	tick    <-chan time.Time

	ctx    context.Context
	cancel context.CancelFunc

	outboundPriority chan outboundFrame
	outboundNormal   chan outboundFrame

	acc *accumulator

	started    bool
	callSID    string
	streamSID  string
	businessID string
	startedAt  time.Time
	conv       *convo.Conversation
	unregister func()

	processing   atomic.Bool
	replyCounter atomic.Int64

	playMu      sync.Mutex
	activeReply string
	activeStop  context.CancelFunc
	canceled    map[string]struct{}
}

type inboundFrame struct {
	data []byte
	err  error
}

func New(deps Dependencies) (*CallSession, error) {
	if deps.Conn == nil {
		return nil, fmt.Errorf("connection is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if deps.Transcriber == nil {
		return nil, fmt.Errorf("transcriber is required")
	}
	if deps.Synthesizer == nil {
		return nil, fmt.Errorf("synthesizer is required")
	}
	if deps.Replies == nil {
		return nil, fmt.Errorf("reply generator is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	cfg := deps.Config
	def := DefaultConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.MinFlushDuration <= 0 {
		cfg.MinFlushDuration = def.MinFlushDuration
	}
	if cfg.MaxSilenceGap <= 0 {
		cfg.MaxSilenceGap = def.MaxSilenceGap
	}
	if cfg.MinAudioFloor <= 0 {
		cfg.MinAudioFloor = def.MinAudioFloor
	}
	if cfg.OutboundEncoding == "" {
		cfg.OutboundEncoding = def.OutboundEncoding
	}
	if cfg.ChunkBytes <= 0 {
		cfg.ChunkBytes = def.ChunkBytes
	}
	if cfg.ChunkInterval <= 0 {
		cfg.ChunkInterval = def.ChunkInterval
	}
	if cfg.IdleTick <= 0 {
		cfg.IdleTick = def.IdleTick
	}
	if cfg.PipelineTimeout <= 0 {
		cfg.PipelineTimeout = def.PipelineTimeout
	}
	if cfg.OutboundQueue <= 0 {
		cfg.OutboundQueue = def.OutboundQueue
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if cfg.MaxCallDuration > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), cfg.MaxCallDuration)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	s := &CallSession{
		conn:             deps.Conn,
		logger:           deps.Logger.With("request_id", deps.RequestID),
		store:            deps.Store,
		sttc:             deps.Transcriber,
		ttsc:             deps.Synthesizer,
		replies:          deps.Replies,
		greeter:          deps.Greeter,
		mets:             deps.Metrics,
		cfg:              cfg,
		now:              deps.Now,
		tick:             deps.StreamTick,
		ctx:              ctx,
		cancel:           cancel,
		outboundPriority: make(chan outboundFrame, 16),
		outboundNormal:   make(chan outboundFrame, cfg.OutboundQueue),
		canceled:         make(map[string]struct{}),
	}
	s.acc = newAccumulator(cfg, deps.Now)
	s.acc.busy = s.processing.Load
	return s, nil
}

// Cancel asks the session to shut down.
func (s *CallSession) Cancel() {
	s.cancel()
}

// Run drives the websocket until the stream stops, the peer disconnects, or
// the session is canceled. Teardown releases the conversation into the
// store's grace window rather than forgetting it.
func (s *CallSession) Run() error {
	defer s.cancel()
	defer s.teardown()

	if s.cfg.MaxMessageBytes > 0 {
		s.conn.SetReadLimit(s.cfg.MaxMessageBytes)
	}
	if s.cfg.ReadTimeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		s.conn.SetPongHandler(func(string) error {
			return s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		})
	}

	readCh := make(chan inboundFrame, 64)
	go s.readLoop(readCh)

	writerErrCh := make(chan error, 1)
	go func() {
		w := outboundWriter{
			ws:         s.conn,
			ctx:        s.ctx,
			cfg:        s.cfg,
			priority:   s.outboundPriority,
			normal:     s.outboundNormal,
			isCanceled: s.isReplyCanceled,
		}
		writerErrCh <- w.Run()
		close(writerErrCh)
	}()

	idle := time.NewTicker(s.cfg.IdleTick)
	defer idle.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return nil
		case err := <-writerErrCh:
			if err != nil {
				s.logger.Warn("outbound writer failed", "error", err)
			}
			return err
		case <-idle.C:
			if utterance := s.acc.idle(); utterance != nil {
				s.launchPipeline(utterance)
			}
		case frame, ok := <-readCh:
			if !ok {
				return nil
			}
			if frame.err != nil {
				if websocket.IsCloseError(frame.err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
					s.logger.Info("peer closed stream")
					return nil
				}
				s.logger.Warn("read failed", "error", frame.err)
				return frame.err
			}
			done := s.handleFrame(frame.data)
			if done {
				return nil
			}
		}
	}
}

func (s *CallSession) readLoop(out chan<- inboundFrame) {
	defer close(out)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case out <- inboundFrame{err: err}:
			case <-s.ctx.Done():
			}
			return
		}
		if s.cfg.ReadTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		select {
		case out <- inboundFrame{data: data}:
		case <-s.ctx.Done():
			return
		}
	}
}

// handleFrame processes one inbound frame. Malformed frames are logged and
// dropped so a single bad message never ends the call.
func (s *CallSession) handleFrame(data []byte) (done bool) {
	msg, err := protocol.Decode(data)
	if err != nil {
		s.logger.Warn("dropping frame", "error", err)
		return false
	}

	switch m := msg.(type) {
	case protocol.Connected:
		s.logger.Debug("stream connected", "protocol", m.Protocol, "version", m.Version)
	case protocol.Start:
		s.handleStart(m)
	case protocol.Media:
		s.handleMedia(m)
	case protocol.Stop:
		s.logger.Info("stream stopped", "call_sid", s.callSID)
		return true
	case protocol.Mark:
		s.logger.Debug("playback mark", "name", m.Mark.Name)
	case protocol.Clear:
		s.interrupt()
	}
	return false
}

func (s *CallSession) handleStart(m protocol.Start) {
	if s.started {
		s.logger.Warn("duplicate start frame", "call_sid", m.Start.CallSID)
		return
	}
	s.started = true
	s.startedAt = s.now()
	s.callSID = m.Start.CallSID
	s.streamSID = m.Start.StreamSID
	if s.streamSID == "" {
		s.streamSID = m.StreamSID
	}
	s.businessID = m.BusinessID()
	s.logger = s.logger.With("call_sid", s.callSID, "stream_sid", s.streamSID)

	s.unregister = s.store.Register(s.callSID, sessions.Handle{Cancel: s.Cancel})
	conv, resumed := s.store.Conversation(s.callSID, s.businessID, s.cfg.MaxHistoryTurns)
	s.conv = conv
	s.mets.RecordCallStart()

	s.logger.Info("call started",
		"business_id", s.businessID,
		"resumed", resumed,
		"encoding", m.Start.MediaFormat.Encoding,
		"sample_rate", m.Start.MediaFormat.SampleRate)

	if resumed || s.greeter == nil {
		return
	}
	if greeting := s.greeter.Greeting(s.businessID); greeting != "" {
		s.speakGreeting(greeting)
	}
}

// speakGreeting plays the opening line through the same busy gate as the
// pipeline, so a fast first utterance queues behind it instead of
// interleaving two chunk streams.
func (s *CallSession) speakGreeting(greeting string) {
	if !s.processing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.processing.Store(false)
		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.PipelineTimeout)
		defer cancel()
		if err := s.speakText(ctx, greeting); err != nil {
			s.logger.Warn("greeting failed", "error", err)
		}
	}()
}

func (s *CallSession) handleMedia(m protocol.Media) {
	if !s.started {
		s.logger.Warn("media before start")
		return
	}
	raw, err := m.Audio()
	if err != nil {
		s.logger.Warn("dropping media frame", "error", err)
		return
	}
	s.mets.RecordAudioBytes("inbound", len(raw))
	if utterance := s.acc.add(raw); utterance != nil {
		s.launchPipeline(utterance)
	}
}

// launchPipeline runs one utterance through transcribe/reply/synthesize in
// its own goroutine. The accumulator defers flushes while a cycle is in
// flight, so losing the gate here is a race with the greeting at most; the
// audio goes back into the buffer and flushes once the cycle clears.
func (s *CallSession) launchPipeline(utterance []byte) {
	if !s.processing.CompareAndSwap(false, true) {
		s.logger.Debug("pipeline busy, holding utterance", "bytes", len(utterance))
		s.acc.hold(utterance)
		return
	}
	go func() {
		defer s.processing.Store(false)
		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.PipelineTimeout)
		defer cancel()
		s.runPipeline(ctx, utterance)
	}()
}

func (s *CallSession) teardown() {
	if !s.started {
		return
	}
	s.interrupt()
	s.store.Release(s.callSID)
	if s.unregister != nil {
		s.unregister()
	}
	s.mets.RecordCallEnd("completed", s.now().Sub(s.startedAt))
	s.logger.Info("call ended", "turns", s.conv.Len())
}

// interrupt cancels in-flight playback: the caller spoke over us or the
// provider flushed its buffer.
func (s *CallSession) interrupt() {
	s.playMu.Lock()
	replyID := s.activeReply
	stop := s.activeStop
	if replyID != "" {
		s.canceled[replyID] = struct{}{}
		s.activeReply = ""
		s.activeStop = nil
	}
	s.playMu.Unlock()

	if replyID == "" {
		return
	}
	if stop != nil {
		stop()
	}
	s.mets.RecordBargeIn()
	if frame, err := protocol.EncodeClear(s.streamSID); err == nil {
		s.enqueuePriority(outboundFrame{payload: frame})
	}
	s.logger.Debug("playback interrupted", "reply_id", replyID)
}

func (s *CallSession) beginReply(stop context.CancelFunc) string {
	id := fmt.Sprintf("reply-%d", s.replyCounter.Add(1))
	s.playMu.Lock()
	s.activeReply = id
	s.activeStop = stop
	s.playMu.Unlock()
	return id
}

func (s *CallSession) endReply(id string) {
	s.playMu.Lock()
	if s.activeReply == id {
		s.activeReply = ""
		s.activeStop = nil
	}
	s.playMu.Unlock()
}

func (s *CallSession) isReplyCanceled(id string) bool {
	if id == "" {
		return false
	}
	s.playMu.Lock()
	defer s.playMu.Unlock()
	_, ok := s.canceled[id]
	return ok
}

func (s *CallSession) enqueueNormal(frame outboundFrame) bool {
	select {
	case s.outboundNormal <- frame:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *CallSession) enqueuePriority(frame outboundFrame) bool {
	select {
	case s.outboundPriority <- frame:
		return true
	case <-s.ctx.Done():
		return false
	}
}
