package session

import (
	"context"
	"time"

	"github.com/voicedesk/voicedesk/pkg/gateway/stream/protocol"
)

// streamOut paces reply audio onto the wire in ChunkBytes slices, one per
// ChunkInterval, so the provider's jitter buffer stays shallow and a barge-in
// cuts playback almost immediately. A mark frame follows the last chunk so
// the far end can report playback completion.
func (s *CallSession) streamOut(ctx context.Context, replyID string, data []byte) error {
	tick := s.tick
	var ticker *time.Ticker
	if tick == nil {
		ticker = time.NewTicker(s.cfg.ChunkInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for off := 0; off < len(data); off += s.cfg.ChunkBytes {
		end := off + s.cfg.ChunkBytes
		if end > len(data) {
			end = len(data)
		}

		if off > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
		if s.isReplyCanceled(replyID) {
			return context.Canceled
		}

		frame, err := protocol.EncodeMedia(s.streamSID, data[off:end])
		if err != nil {
			return err
		}
		if !s.enqueueNormal(outboundFrame{isReplyAudio: true, replyID: replyID, payload: frame}) {
			return ctx.Err()
		}
		s.mets.RecordAudioBytes("outbound", end-off)
	}

	mark, err := protocol.EncodeMark(s.streamSID, replyID)
	if err != nil {
		return err
	}
	if !s.enqueueNormal(outboundFrame{isReplyAudio: true, replyID: replyID, payload: mark}) {
		return ctx.Err()
	}
	return nil
}
