package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/voicedesk/voicedesk/pkg/core/audio"
)

// runPipeline turns one μ-law utterance into spoken reply audio. Every stage
// failure is logged and swallowed: the call keeps running and the next
// utterance gets a fresh chance.
func (s *CallSession) runPipeline(ctx context.Context, utterance []byte) {
	pcm := audio.MulawDecodeBytes(utterance)
	wav := audio.EncodeWAV(pcm, s.cfg.SampleRate)

	start := s.now()
	text, err := s.sttc.Transcribe(ctx, wav)
	s.mets.RecordStage("stt", s.now().Sub(start))
	if err != nil {
		s.logger.Warn("transcription failed", "error", err)
		s.mets.RecordStageError("stt")
		s.mets.RecordUtterance("stt_error")
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.mets.RecordUtterance("no_speech")
		return
	}
	s.logger.Info("caller said", "text", text)
	s.conv.AddCaller(text)

	start = s.now()
	rep, err := s.replies.Generate(ctx, text, s.businessID, s.conv.Snapshot())
	s.mets.RecordStage("reply", s.now().Sub(start))
	if err != nil {
		s.logger.Warn("reply generation failed", "error", err)
		s.mets.RecordStageError("reply")
		s.mets.RecordUtterance("reply_error")
		return
	}
	s.logger.Info("replying", "label", rep.Label, "text", rep.Text)

	// The reply joins the history before synthesis so the next turn sees it
	// even when playback fails or is barged over.
	s.conv.AddAssistant(rep.Text, rep.Label)
	if rep.Label != "" {
		s.conv.SetContext("lastIntent", rep.Label)
	}

	if err := s.speakText(ctx, rep.Text); err != nil {
		if errors.Is(err, context.Canceled) {
			s.mets.RecordUtterance("interrupted")
			return
		}
		s.mets.RecordUtterance("speak_error")
		return
	}
	s.mets.RecordUtterance("answered")
}

// speakText synthesizes text and streams it onto the call.
func (s *CallSession) speakText(ctx context.Context, text string) error {
	start := s.now()
	wav, err := s.ttsc.Synthesize(ctx, text)
	s.mets.RecordStage("tts", s.now().Sub(start))
	if err != nil {
		s.logger.Warn("synthesis failed", "error", err)
		s.mets.RecordStageError("tts")
		return err
	}
	return s.speakWAV(ctx, wav)
}

// speakWAV converts synthesized WAV audio to the wire encoding and paces it
// out in small chunks.
func (s *CallSession) speakWAV(ctx context.Context, wav []byte) error {
	pcm, rate, err := audio.DecodeWAV(wav)
	if err != nil {
		s.logger.Warn("unusable synthesis output", "error", err)
		s.mets.RecordStageError("convert")
		return err
	}
	pcm = audio.Resample(pcm, rate, s.cfg.SampleRate)

	var out []byte
	switch s.cfg.OutboundEncoding {
	case OutboundEncodingPCM:
		out = pcm
	default:
		out = audio.MulawEncodeBytes(pcm)
	}
	if len(out) == 0 {
		return nil
	}

	playCtx, stop := context.WithCancel(ctx)
	defer stop()
	replyID := s.beginReply(stop)
	defer s.endReply(replyID)

	dur := time.Duration(0)
	if s.cfg.OutboundEncoding == OutboundEncodingPCM {
		dur = audio.PCMDuration(len(out), s.cfg.SampleRate)
	} else {
		dur = audio.MulawDuration(len(out), s.cfg.SampleRate)
	}
	s.logger.Debug("streaming reply", "reply_id", replyID, "bytes", len(out), "duration", dur)

	return s.streamOut(playCtx, replyID, out)
}
