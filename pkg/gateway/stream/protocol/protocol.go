// Package protocol decodes and encodes the telephony media-stream frames
// exchanged over the websocket: the provider's connected/start/media/stop
// lifecycle inbound, and media/mark/clear outbound.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

func unsupported(message, param string) *DecodeError {
	return &DecodeError{Code: "unsupported", Message: message, Param: param}
}

// SeqNum is the provider's frame counter. Providers disagree on whether it
// arrives as a JSON number or a quoted string, so both forms decode.
type SeqNum string

func (n *SeqNum) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = SeqNum(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return badRequest("sequenceNumber must be a number or string", "sequenceNumber")
	}
	*n = SeqNum(num.String())
	return nil
}

// MediaFormat describes the stream's audio shape as announced at start.
type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// Connected is the first frame on a fresh websocket.
type Connected struct {
	Event    string `json:"event"`
	Protocol string `json:"protocol,omitempty"`
	Version  string `json:"version,omitempty"`
}

// StartPayload carries the call identity and audio format.
type StartPayload struct {
	CallSID          string            `json:"callSid"`
	StreamSID        string            `json:"streamSid"`
	AccountSID       string            `json:"accountSid,omitempty"`
	Tracks           []string          `json:"tracks,omitempty"`
	MediaFormat      MediaFormat       `json:"mediaFormat"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// Start binds the websocket to a call.
type Start struct {
	Event          string       `json:"event"`
	SequenceNumber SeqNum       `json:"sequenceNumber,omitempty"`
	StreamSID      string       `json:"streamSid"`
	Start          StartPayload `json:"start"`
}

// BusinessID returns the tenant identifier passed by the dial plan, if any.
func (s Start) BusinessID() string {
	return strings.TrimSpace(s.Start.CustomParameters["businessId"])
}

// MediaPayload is one inbound audio frame.
type MediaPayload struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

// Media carries roughly 20ms of base64 μ-law audio.
type Media struct {
	Event          string       `json:"event"`
	SequenceNumber SeqNum       `json:"sequenceNumber,omitempty"`
	StreamSID      string       `json:"streamSid"`
	Media          MediaPayload `json:"media"`
}

// Audio decodes the base64 payload.
func (m Media) Audio() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(m.Media.Payload)
	if err != nil {
		return nil, badRequest("media.payload is not valid base64", "media.payload")
	}
	return raw, nil
}

// StopPayload names the call being torn down.
type StopPayload struct {
	CallSID    string `json:"callSid,omitempty"`
	AccountSID string `json:"accountSid,omitempty"`
}

// Stop ends the stream.
type Stop struct {
	Event          string      `json:"event"`
	SequenceNumber SeqNum      `json:"sequenceNumber,omitempty"`
	StreamSID      string      `json:"streamSid"`
	Stop           StopPayload `json:"stop"`
}

// Mark is the provider's confirmation that playback reached a named point.
type Mark struct {
	Event     string      `json:"event"`
	StreamSID string      `json:"streamSid"`
	Mark      MarkPayload `json:"mark"`
}

type MarkPayload struct {
	Name string `json:"name"`
}

// Clear asks the receiver to drop any buffered outbound audio.
type Clear struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid"`
}

// Decode parses one inbound frame. The returned value is one of Connected,
// Start, Media, Stop, Mark, or Clear; unknown events and malformed frames
// yield a *DecodeError.
func Decode(data []byte) (any, error) {
	var envelope struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}
	event := strings.TrimSpace(envelope.Event)
	if event == "" {
		return nil, badRequest("missing event", "event")
	}

	switch event {
	case "connected":
		var msg Connected
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid connected frame", "")
		}
		return msg, nil
	case "start":
		var msg Start
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid start frame", "")
		}
		if err := validateStart(msg); err != nil {
			return nil, err
		}
		return msg, nil
	case "media":
		var msg Media
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid media frame", "")
		}
		if strings.TrimSpace(msg.Media.Payload) == "" {
			return nil, badRequest("media.payload is required", "media.payload")
		}
		return msg, nil
	case "stop":
		var msg Stop
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid stop frame", "")
		}
		return msg, nil
	case "mark":
		var msg Mark
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid mark frame", "")
		}
		return msg, nil
	case "clear":
		var msg Clear
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid clear frame", "")
		}
		return msg, nil
	default:
		return nil, unsupported("unsupported event", "event")
	}
}

func validateStart(msg Start) error {
	if strings.TrimSpace(msg.Start.CallSID) == "" {
		return badRequest("start.callSid is required", "start.callSid")
	}
	if strings.TrimSpace(msg.Start.StreamSID) == "" && strings.TrimSpace(msg.StreamSID) == "" {
		return badRequest("start.streamSid is required", "start.streamSid")
	}
	if msg.Start.MediaFormat.SampleRate < 0 {
		return badRequest("start.mediaFormat.sampleRate must be >= 0", "start.mediaFormat.sampleRate")
	}
	return nil
}

// EncodeMedia frames an outbound audio chunk for the stream.
func EncodeMedia(streamSID string, audio []byte) ([]byte, error) {
	return json.Marshal(Media{
		Event:     "media",
		StreamSID: streamSID,
		Media:     MediaPayload{Payload: base64.StdEncoding.EncodeToString(audio)},
	})
}

// EncodeMark frames an outbound playback mark.
func EncodeMark(streamSID, name string) ([]byte, error) {
	return json.Marshal(Mark{
		Event:     "mark",
		StreamSID: streamSID,
		Mark:      MarkPayload{Name: name},
	})
}

// EncodeClear frames a request to flush buffered outbound audio.
func EncodeClear(streamSID string) ([]byte, error) {
	return json.Marshal(Clear{Event: "clear", StreamSID: streamSID})
}
