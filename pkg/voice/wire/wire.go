// Package wire defines the JSON messages exchanged with the live voice
// service and a decoder for inbound frames. Client messages marshal
// directly with encoding/json; inbound frames pass through
// DecodeServerMessage.
package wire

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	ProtocolVersion1 = "1"

	// AudioEncodingPCM16 is little-endian signed 16-bit PCM, the only
	// encoding the service speaks today.
	AudioEncodingPCM16 = "pcm16le"
)

// Control operations accepted by the service.
const (
	ControlMute       = "mute"
	ControlUnmute     = "unmute"
	ControlInterrupt  = "interrupt"
	ControlEndSession = "end_session"
	ControlSetVoice   = "set_voice"
)

// DecodeError describes a frame the client could not decode.
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

func badFrame(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_frame", Message: message, Param: param}
}

// AudioFormat describes a negotiated audio stream shape.
type AudioFormat struct {
	Encoding     string `json:"encoding"`
	SampleRateHz int    `json:"sample_rate_hz"`
	Channels     int    `json:"channels"`
}

// DefaultInputFormat is the capture format the service expects: 16 kHz
// mono PCM16.
func DefaultInputFormat() AudioFormat {
	return AudioFormat{Encoding: AudioEncodingPCM16, SampleRateHz: 16000, Channels: 1}
}

// DefaultOutputFormat is the synthesis format the service produces: 24 kHz
// mono PCM16.
func DefaultOutputFormat() AudioFormat {
	return AudioFormat{Encoding: AudioEncodingPCM16, SampleRateHz: 24000, Channels: 1}
}

// HelloClient identifies the connecting client build.
type HelloClient struct {
	Name     string `json:"name,omitempty"`
	Version  string `json:"version,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// HelloFeatures declares optional client capabilities.
type HelloFeatures struct {
	SendPlaybackMarks      bool `json:"send_playback_marks,omitempty"`
	WantPartialTranscripts bool `json:"want_partial_transcripts,omitempty"`
}

// HelloTool declares one client-side tool the model may call.
type HelloTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// ClientHello opens a session. It must be the first client frame.
type ClientHello struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Client          HelloClient   `json:"client,omitempty"`
	VoiceID         string        `json:"voice_id,omitempty"`
	AudioIn         AudioFormat   `json:"audio_in"`
	AudioOut        AudioFormat   `json:"audio_out"`
	Features        HelloFeatures `json:"features,omitempty"`
	Tools           []HelloTool   `json:"tools,omitempty"`
}

// ClientAudioFrame carries one captured microphone chunk. Seq is
// strictly increasing within a session.
type ClientAudioFrame struct {
	Type        string `json:"type"`
	Seq         int64  `json:"seq"`
	TimestampMS *int64 `json:"timestamp_ms,omitempty"`
	DataB64     string `json:"data_b64"`
}

// ClientPlaybackMark reports local playback progress for an assistant
// utterance so the service can track what the user actually heard.
type ClientPlaybackMark struct {
	Type             string `json:"type"`
	AssistantAudioID string `json:"assistant_audio_id"`
	PlayedMS         int64  `json:"played_ms"`
	BufferedMS       int64  `json:"buffered_ms,omitempty"`
	State            string `json:"state,omitempty"`
}

// ClientControl carries a session control operation.
type ClientControl struct {
	Type    string `json:"type"`
	Op      string `json:"op"`
	VoiceID string `json:"voice_id,omitempty"`
}

// ClientText is a typed user message, used when the microphone is
// unavailable or muted.
type ClientText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ClientToolResult returns the output of a tool_call to the service.
type ClientToolResult struct {
	Type       string          `json:"type"`
	ToolCallID string          `json:"tool_call_id"`
	TurnID     string          `json:"turn_id,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	IsError    bool            `json:"is_error,omitempty"`
}

// HelloAckLimits are server-imposed frame limits the client must honor.
type HelloAckLimits struct {
	MaxAudioFrameBytes  int `json:"max_audio_frame_bytes,omitempty"`
	MaxJSONMessageBytes int `json:"max_json_message_bytes,omitempty"`
}

// ServerHelloAck confirms the session. It is the first server frame on
// a successful connect.
type ServerHelloAck struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	SessionID       string          `json:"session_id"`
	AudioIn         AudioFormat     `json:"audio_in"`
	AudioOut        AudioFormat     `json:"audio_out"`
	VoiceID         string          `json:"voice_id,omitempty"`
	Limits          *HelloAckLimits `json:"limits,omitempty"`
}

// ServerStatus reports a session lifecycle change.
type ServerStatus struct {
	Type    string `json:"type"`
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
}

// ServerTranscriptDelta carries partial transcript text for one
// utterance. Deltas accumulate until the matching transcript_final.
type ServerTranscriptDelta struct {
	Type        string `json:"type"`
	UtteranceID string `json:"utterance_id"`
	Role        string `json:"role"`
	Text        string `json:"text"`
	TimestampMS int64  `json:"timestamp_ms,omitempty"`
}

// ServerTranscriptFinal commits the full text of one utterance.
type ServerTranscriptFinal struct {
	Type        string `json:"type"`
	UtteranceID string `json:"utterance_id"`
	Role        string `json:"role"`
	Text        string `json:"text"`
	TimestampMS int64  `json:"timestamp_ms,omitempty"`
	EndMS       int64  `json:"end_ms,omitempty"`
}

// ServerAssistantAudioStart opens a synthesized utterance stream.
type ServerAssistantAudioStart struct {
	Type             string      `json:"type"`
	AssistantAudioID string      `json:"assistant_audio_id"`
	Format           AudioFormat `json:"format"`
	Text             string      `json:"text,omitempty"`
}

// ServerAssistantAudioChunk carries one base64 PCM chunk. An empty
// payload is a legal keepalive.
type ServerAssistantAudioChunk struct {
	Type             string `json:"type"`
	AssistantAudioID string `json:"assistant_audio_id"`
	Seq              int64  `json:"seq"`
	AudioB64         string `json:"audio_b64,omitempty"`
}

// ServerAssistantAudioEnd closes a synthesized utterance stream.
type ServerAssistantAudioEnd struct {
	Type             string `json:"type"`
	AssistantAudioID string `json:"assistant_audio_id"`
}

// ServerAudioReset tells the client to flush queued playback, usually
// because the user interrupted the assistant.
type ServerAudioReset struct {
	Type             string `json:"type"`
	Reason           string `json:"reason,omitempty"`
	AssistantAudioID string `json:"assistant_audio_id,omitempty"`
}

// ServerToolCall asks the client to execute a declared tool.
type ServerToolCall struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	TurnID    string          `json:"turn_id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ServerToolCancel withdraws an in-flight tool_call, usually because
// the user interrupted the turn.
type ServerToolCancel struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	TurnID string `json:"turn_id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ServerErrorMessage reports a service-side failure. Close signals the
// connection is about to drop.
type ServerErrorMessage struct {
	Type      string `json:"type"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	Close     bool   `json:"close,omitempty"`
}

// ServerUnknown holds a frame whose type this client version does not
// recognize. Unknown frames are reported, not fatal.
type ServerUnknown struct {
	Type string
	Raw  json.RawMessage
}

// DecodeServerMessage decodes one inbound frame into its typed form.
// Unrecognized types return ServerUnknown so newer servers do not break
// older clients.
func DecodeServerMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badFrame("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badFrame("missing type", "type")
	}

	switch typ {
	case "hello_ack":
		var msg ServerHelloAck
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid hello_ack", "")
		}
		if strings.TrimSpace(msg.SessionID) == "" {
			return nil, badFrame("hello_ack.session_id is required", "session_id")
		}
		return msg, nil
	case "status":
		var msg ServerStatus
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid status", "")
		}
		if strings.TrimSpace(msg.State) == "" {
			return nil, badFrame("status.state is required", "state")
		}
		return msg, nil
	case "transcript_delta":
		var msg ServerTranscriptDelta
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid transcript_delta", "")
		}
		if strings.TrimSpace(msg.UtteranceID) == "" {
			return nil, badFrame("transcript_delta.utterance_id is required", "utterance_id")
		}
		return msg, nil
	case "transcript_final":
		var msg ServerTranscriptFinal
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid transcript_final", "")
		}
		if strings.TrimSpace(msg.UtteranceID) == "" {
			return nil, badFrame("transcript_final.utterance_id is required", "utterance_id")
		}
		return msg, nil
	case "assistant_audio_start":
		var msg ServerAssistantAudioStart
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid assistant_audio_start", "")
		}
		if strings.TrimSpace(msg.AssistantAudioID) == "" {
			return nil, badFrame("assistant_audio_start.assistant_audio_id is required", "assistant_audio_id")
		}
		return msg, nil
	case "assistant_audio_chunk":
		var msg ServerAssistantAudioChunk
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid assistant_audio_chunk", "")
		}
		if strings.TrimSpace(msg.AssistantAudioID) == "" {
			return nil, badFrame("assistant_audio_chunk.assistant_audio_id is required", "assistant_audio_id")
		}
		return msg, nil
	case "assistant_audio_end":
		var msg ServerAssistantAudioEnd
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid assistant_audio_end", "")
		}
		if strings.TrimSpace(msg.AssistantAudioID) == "" {
			return nil, badFrame("assistant_audio_end.assistant_audio_id is required", "assistant_audio_id")
		}
		return msg, nil
	case "audio_reset":
		var msg ServerAudioReset
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid audio_reset", "")
		}
		return msg, nil
	case "tool_call":
		var msg ServerToolCall
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid tool_call", "")
		}
		if strings.TrimSpace(msg.ID) == "" {
			return nil, badFrame("tool_call.id is required", "id")
		}
		if strings.TrimSpace(msg.Name) == "" {
			return nil, badFrame("tool_call.name is required", "name")
		}
		return msg, nil
	case "tool_cancel":
		var msg ServerToolCancel
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid tool_cancel", "")
		}
		if strings.TrimSpace(msg.ID) == "" {
			return nil, badFrame("tool_cancel.id is required", "id")
		}
		return msg, nil
	case "error":
		var msg ServerErrorMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid error frame", "")
		}
		if strings.TrimSpace(msg.Code) == "" {
			return nil, badFrame("error.code is required", "code")
		}
		return msg, nil
	default:
		return ServerUnknown{Type: typ, Raw: append(json.RawMessage(nil), data...)}, nil
	}
}

// ValidateHello checks the fields required before dialing.
func ValidateHello(msg ClientHello) error {
	if strings.TrimSpace(msg.ProtocolVersion) == "" {
		return badFrame("hello.protocol_version is required", "protocol_version")
	}
	if strings.TrimSpace(msg.AudioIn.Encoding) == "" {
		return badFrame("hello.audio_in.encoding is required", "audio_in.encoding")
	}
	if msg.AudioIn.SampleRateHz <= 0 {
		return badFrame("hello.audio_in.sample_rate_hz must be > 0", "audio_in.sample_rate_hz")
	}
	if msg.AudioIn.Channels <= 0 {
		return badFrame("hello.audio_in.channels must be > 0", "audio_in.channels")
	}
	if strings.TrimSpace(msg.AudioOut.Encoding) == "" {
		return badFrame("hello.audio_out.encoding is required", "audio_out.encoding")
	}
	if msg.AudioOut.SampleRateHz <= 0 {
		return badFrame("hello.audio_out.sample_rate_hz must be > 0", "audio_out.sample_rate_hz")
	}
	if msg.AudioOut.Channels <= 0 {
		return badFrame("hello.audio_out.channels must be > 0", "audio_out.channels")
	}
	seen := make(map[string]struct{}, len(msg.Tools))
	for i, tool := range msg.Tools {
		name := strings.TrimSpace(tool.Name)
		if name == "" {
			return badFrame("hello.tools entries must be named", fmt.Sprintf("tools[%d].name", i))
		}
		if _, exists := seen[name]; exists {
			return badFrame("hello.tools entries must be unique", fmt.Sprintf("tools[%d].name", i))
		}
		seen[name] = struct{}{}
	}
	return nil
}

// ValidControlOp reports whether op is a control operation this
// protocol version defines.
func ValidControlOp(op string) bool {
	switch op {
	case ControlMute, ControlUnmute, ControlInterrupt, ControlEndSession, ControlSetVoice:
		return true
	default:
		return false
	}
}
