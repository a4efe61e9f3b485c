package amarvoice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"

	"github.com/techdhakaai/amarvoice-ai/pkg/core"
	"github.com/techdhakaai/amarvoice-ai/pkg/voice"
	"github.com/techdhakaai/amarvoice-ai/pkg/voice/wire"
)

const (
	livePath = "/v1/voice/live"

	// defaultToolTimeout bounds a single tool handler invocation unless
	// overridden with WithToolTimeout.
	defaultToolTimeout = 15 * time.Second

	// defaultMaxFrameBytes caps the raw PCM bytes carried by one audio_frame
	// when the service does not advertise a limit in hello_ack.
	defaultMaxFrameBytes = 32 * 1024

	liveEventChannelSize = 256
)

// LiveService opens live voice sessions against the realtime endpoint.
// Access it through Client.Live.
type LiveService struct {
	client *Client
}

// LiveConnectRequest configures a new live session.
type LiveConnectRequest struct {
	// VoiceID selects a synthesis voice from the curated catalog. Empty
	// selects the catalog default.
	VoiceID string

	// InputFormat describes the microphone audio the client will send.
	// Zero value means 16 kHz mono PCM16.
	InputFormat wire.AudioFormat

	// OutputFormat describes the synthesized audio the client wants back.
	// Zero value means 24 kHz mono PCM16.
	OutputFormat wire.AudioFormat
}

type connectConfig struct {
	tools       []Tool
	handlers    map[string]ToolHandler
	toolTimeout time.Duration
	onToolCall  func(name string, args json.RawMessage, output any, err error)
	audioOutput AudioOutputConfig
}

// ConnectOption customizes session behavior beyond the wire-level request.
type ConnectOption func(*connectConfig)

// WithTools registers tools the model may invoke during the session. Their
// schemas are declared in the hello frame and their handlers run locally when
// a tool_call frame arrives.
func WithTools(tools ...ToolWithHandler) ConnectOption {
	return func(cfg *connectConfig) {
		for _, t := range tools {
			cfg.tools = append(cfg.tools, t.Tool)
			cfg.handlers[t.Name] = t.Handler
		}
	}
}

// WithToolTimeout bounds each tool handler invocation. Zero or negative
// disables the per-call timeout.
func WithToolTimeout(d time.Duration) ConnectOption {
	return func(cfg *connectConfig) {
		cfg.toolTimeout = d
	}
}

// WithOnToolCall installs an observer invoked after every tool handler
// returns, before the result is sent back. Useful for logging and tests.
func WithOnToolCall(fn func(name string, args json.RawMessage, output any, err error)) ConnectOption {
	return func(cfg *connectConfig) {
		cfg.onToolCall = fn
	}
}

// WithAudioOutput tunes the session's playback-side buffering.
func WithAudioOutput(cfg AudioOutputConfig) ConnectOption {
	return func(c *connectConfig) {
		c.audioOutput = cfg
	}
}

// LiveEvent is implemented by every event delivered on LiveSession.Events.
type LiveEvent interface {
	liveEventType() string
}

// LiveHelloAckEvent is the first event on every session and carries the
// negotiated session parameters.
type LiveHelloAckEvent struct {
	Ack wire.ServerHelloAck
}

// LiveStatusEvent reports a service-side session state change.
type LiveStatusEvent struct {
	State   string
	Message string
}

// LiveTranscriptDeltaEvent carries an incremental transcript fragment.
type LiveTranscriptDeltaEvent struct {
	UtteranceID string
	Role        string
	Text        string
	TimestampMS int64
}

// LiveTranscriptFinalEvent carries the settled text of one utterance.
type LiveTranscriptFinalEvent struct {
	UtteranceID string
	Role        string
	Text        string
	TimestampMS int64
	EndMS       int64
}

// LiveAssistantAudioStartEvent announces a new synthesized utterance.
type LiveAssistantAudioStartEvent struct {
	AssistantAudioID string
	Format           wire.AudioFormat
	Text             string
}

// LiveAssistantAudioChunkEvent carries decoded PCM for the active utterance.
type LiveAssistantAudioChunkEvent struct {
	AssistantAudioID string
	Seq              int64
	Data             []byte
}

// LiveAssistantAudioEndEvent marks the end of a synthesized utterance.
type LiveAssistantAudioEndEvent struct {
	AssistantAudioID string
}

// LiveAudioResetEvent instructs the client to drop buffered playback audio,
// typically after a barge-in.
type LiveAudioResetEvent struct {
	AssistantAudioID string
	Reason           string
}

// LiveToolCallEvent reports that the model requested a tool invocation. When
// a handler is registered the session dispatches it automatically; the event
// is informational.
type LiveToolCallEvent struct {
	ID        string
	TurnID    string
	Name      string
	Arguments json.RawMessage
}

// LiveToolCancelEvent reports that the service abandoned an in-flight tool
// call. The session cancels the handler's context.
type LiveToolCancelEvent struct {
	ID     string
	TurnID string
	Reason string
}

// LiveErrorEvent carries a service-reported error frame.
type LiveErrorEvent struct {
	Err *core.Error
}

// LiveUnknownEvent carries a server frame this SDK version does not
// understand. Unknown frames are never fatal.
type LiveUnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (LiveHelloAckEvent) liveEventType() string            { return "hello_ack" }
func (LiveStatusEvent) liveEventType() string              { return "status" }
func (LiveTranscriptDeltaEvent) liveEventType() string     { return "transcript_delta" }
func (LiveTranscriptFinalEvent) liveEventType() string     { return "transcript_final" }
func (LiveAssistantAudioStartEvent) liveEventType() string { return "assistant_audio_start" }
func (LiveAssistantAudioChunkEvent) liveEventType() string { return "assistant_audio_chunk" }
func (LiveAssistantAudioEndEvent) liveEventType() string   { return "assistant_audio_end" }
func (LiveAudioResetEvent) liveEventType() string          { return "audio_reset" }
func (LiveToolCallEvent) liveEventType() string            { return "tool_call" }
func (LiveToolCancelEvent) liveEventType() string          { return "tool_cancel" }
func (LiveErrorEvent) liveEventType() string               { return "error" }
func (LiveUnknownEvent) liveEventType() string             { return "unknown" }

// LiveSession is a single realtime voice conversation. One goroutine reads
// server frames and fans them out on Events; writes are serialized
// internally, so the send methods are safe for concurrent use.
type LiveSession struct {
	conn   *websocket.Conn
	logger *slog.Logger

	sessionID     string
	outputFormat  wire.AudioFormat
	maxFrameBytes int

	events chan LiveEvent
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error

	seq     atomic.Int64
	muted   atomic.Bool
	dropped atomic.Int64

	stateMu sync.Mutex
	status  voice.ConnectionStatus
	voiceID string

	audioOutput *AudioOutput

	// ctx is the caller's Connect context; tool handlers inherit it so a
	// caller can tear down in-flight tools by canceling the session context.
	ctx         context.Context
	handlers    map[string]ToolHandler
	toolTimeout time.Duration
	onToolCall  func(name string, args json.RawMessage, output any, err error)

	toolMu      sync.Mutex
	toolCancels map[string]context.CancelFunc
}

// Connect dials the live endpoint, performs the hello handshake, and returns
// a session ready for audio. The returned session's Events channel starts
// with a LiveHelloAckEvent.
func (svc *LiveService) Connect(ctx context.Context, req LiveConnectRequest, opts ...ConnectOption) (*LiveSession, error) {
	c := svc.client

	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "live.connect")
		defer span.End()
	}

	cfg := connectConfig{
		handlers:    make(map[string]ToolHandler),
		toolTimeout: defaultToolTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	voiceID := strings.TrimSpace(req.VoiceID)
	if voiceID == "" {
		voiceID = voice.DefaultVoice().ID
	} else if _, ok := voice.VoiceByID(voiceID); !ok {
		return nil, core.NewInvalidRequestErrorWithParam("voice id not in catalog: "+voiceID, "voice_id")
	}

	inFormat := req.InputFormat
	if inFormat == (wire.AudioFormat{}) {
		inFormat = wire.DefaultInputFormat()
	}
	outFormat := req.OutputFormat
	if outFormat == (wire.AudioFormat{}) {
		outFormat = wire.DefaultOutputFormat()
	}

	helloTools, err := helloToolDecls(cfg.tools)
	if err != nil {
		return nil, err
	}

	hello := wire.ClientHello{
		Type:            "hello",
		ProtocolVersion: wire.ProtocolVersion1,
		Client: wire.HelloClient{
			Name:     "amarvoice-go",
			Version:  Version,
			Platform: runtime.GOOS,
		},
		VoiceID:  voiceID,
		AudioIn:  inFormat,
		AudioOut: outFormat,
		Features: wire.HelloFeatures{
			SendPlaybackMarks:      true,
			WantPartialTranscripts: true,
		},
		Tools: helloTools,
	}
	if err := wire.ValidateHello(hello); err != nil {
		return nil, core.NewInvalidRequestErrorWithParam(err.Error(), "hello")
	}

	endpoint, err := c.websocketEndpoint(livePath)
	if err != nil {
		return nil, err
	}

	dialCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.wsDialTimeout)
		defer cancel()
	}

	dialer := websocket.Dialer{}
	conn, resp, err := dialer.DialContext(dialCtx, endpoint, c.dialHeaders())
	if err != nil {
		if resp != nil {
			return nil, &TransportError{
				Op:  "dial",
				URL: endpoint,
				Err: fmt.Errorf("%w: status %d", err, resp.StatusCode),
			}
		}
		return nil, &TransportError{Op: "dial", URL: endpoint, Err: err}
	}

	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		return nil, &TransportError{Op: "hello", URL: endpoint, Err: err}
	}

	// The service must answer with hello_ack or error before anything else.
	_ = conn.SetReadDeadline(time.Now().Add(c.wsDialTimeout))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, &TransportError{Op: "handshake", URL: endpoint, Err: err}
	}
	_ = conn.SetReadDeadline(time.Time{})

	first, err := wire.DecodeServerMessage(raw)
	if err != nil {
		conn.Close()
		return nil, &TransportError{Op: "handshake", URL: endpoint, Err: err}
	}

	var ack wire.ServerHelloAck
	switch msg := first.(type) {
	case wire.ServerHelloAck:
		ack = msg
	case wire.ServerErrorMessage:
		conn.Close()
		return nil, core.FromWireCode(msg.Code, msg.Message)
	default:
		conn.Close()
		return nil, &TransportError{
			Op:  "handshake",
			URL: endpoint,
			Err: fmt.Errorf("expected hello_ack, got %T", first),
		}
	}

	maxFrame := defaultMaxFrameBytes
	if ack.Limits != nil && ack.Limits.MaxAudioFrameBytes > 0 {
		maxFrame = ack.Limits.MaxAudioFrameBytes
	}
	if ack.VoiceID != "" {
		voiceID = ack.VoiceID
	}
	if ack.AudioOut != (wire.AudioFormat{}) {
		outFormat = ack.AudioOut
	}

	s := &LiveSession{
		conn:          conn,
		logger:        c.logger,
		sessionID:     ack.SessionID,
		outputFormat:  outFormat,
		maxFrameBytes: maxFrame,
		events:        make(chan LiveEvent, liveEventChannelSize),
		done:          make(chan struct{}),
		status:        voice.StatusConnected,
		voiceID:       voiceID,
		audioOutput:   NewAudioOutput(outFormat.SampleRateHz, cfg.audioOutput),
		ctx:           ctx,
		handlers:      cfg.handlers,
		toolTimeout:   cfg.toolTimeout,
		onToolCall:    cfg.onToolCall,
		toolCancels:   make(map[string]context.CancelFunc),
	}

	s.emitEvent(LiveHelloAckEvent{Ack: ack})
	go s.readLoop()
	return s, nil
}

func helloToolDecls(tools []Tool) ([]wire.HelloTool, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	decls := make([]wire.HelloTool, 0, len(tools))
	for _, t := range tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, core.NewInvalidRequestErrorWithParam(
				fmt.Sprintf("tool %q schema not serializable: %v", t.Name, err), "tools")
		}
		decls = append(decls, wire.HelloTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return decls, nil
}

// Events returns the stream of session events. The channel is closed after
// the read loop exits; check Err for the cause.
func (s *LiveSession) Events() <-chan LiveEvent {
	return s.events
}

// SessionID returns the identifier assigned in hello_ack.
func (s *LiveSession) SessionID() string {
	return s.sessionID
}

// OutputFormat returns the negotiated synthesized-audio format.
func (s *LiveSession) OutputFormat() wire.AudioFormat {
	return s.outputFormat
}

// AudioOutput returns the buffered playback feed for this session.
// Synthesized audio chunks land here and audio_reset flushes it.
func (s *LiveSession) AudioOutput() *AudioOutput {
	return s.audioOutput
}

// Status returns the client-side view of the connection state.
func (s *LiveSession) Status() voice.ConnectionStatus {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.status
}

// VoiceID returns the active synthesis voice.
func (s *LiveSession) VoiceID() string {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.voiceID
}

// Dropped reports how many events were discarded because the Events channel
// was full. A nonzero value means the consumer is not keeping up.
func (s *LiveSession) Dropped() int64 {
	return s.dropped.Load()
}

// SendAudio transmits raw PCM microphone audio. Frames larger than the
// negotiated limit are split. While the session is muted the audio is
// silently discarded.
func (s *LiveSession) SendAudio(pcm []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.muted.Load() || len(pcm) == 0 {
		return nil
	}
	for off := 0; off < len(pcm); off += s.maxFrameBytes {
		end := off + s.maxFrameBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		ts := time.Now().UnixMilli()
		frame := wire.ClientAudioFrame{
			Type:        "audio_frame",
			Seq:         s.seq.Add(1),
			TimestampMS: &ts,
			DataB64:     base64.StdEncoding.EncodeToString(pcm[off:end]),
		}
		if err := s.sendJSON(frame); err != nil {
			return err
		}
	}
	return nil
}

// SendText submits a typed user message, for use when audio capture is
// unavailable.
func (s *LiveSession) SendText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.NewInvalidRequestErrorWithParam("text must not be empty", "text")
	}
	return s.sendJSON(wire.ClientText{Type: "text", Text: text})
}

// SendPlaybackMark reports client playback progress so the service can align
// barge-in handling with what the user actually heard.
func (s *LiveSession) SendPlaybackMark(m voice.Mark) error {
	return s.sendJSON(wire.ClientPlaybackMark{
		Type:             "playback_mark",
		AssistantAudioID: m.AudioID,
		PlayedMS:         m.PlayedMS,
		BufferedMS:       m.BufferedMS,
		State:            string(m.State),
	})
}

// Mute stops microphone transmission. Subsequent SendAudio calls drop their
// frames until Unmute.
func (s *LiveSession) Mute() error {
	s.muted.Store(true)
	s.setStatus(voice.StatusMuted)
	return s.sendJSON(wire.ClientControl{Type: "control", Op: wire.ControlMute})
}

// Unmute resumes microphone transmission.
func (s *LiveSession) Unmute() error {
	s.muted.Store(false)
	s.setStatus(voice.StatusConnected)
	return s.sendJSON(wire.ClientControl{Type: "control", Op: wire.ControlUnmute})
}

// Muted reports whether the local capture gate is closed.
func (s *LiveSession) Muted() bool {
	return s.muted.Load()
}

// SetVoice switches the synthesis voice mid-session. The id must come from
// the curated catalog.
func (s *LiveSession) SetVoice(id string) error {
	if _, ok := voice.VoiceByID(id); !ok {
		return core.NewInvalidRequestErrorWithParam("voice id not in catalog: "+id, "voice_id")
	}
	if err := s.sendJSON(wire.ClientControl{Type: "control", Op: wire.ControlSetVoice, VoiceID: id}); err != nil {
		return err
	}
	s.stateMu.Lock()
	s.voiceID = id
	s.stateMu.Unlock()
	return nil
}

// Interrupt asks the service to stop the current assistant turn. The service
// responds with audio_reset, which flushes buffered playback.
func (s *LiveSession) Interrupt() error {
	return s.sendJSON(wire.ClientControl{Type: "control", Op: wire.ControlInterrupt})
}

// EndSession performs a graceful shutdown: it tells the service the
// conversation is over, then closes the connection.
func (s *LiveSession) EndSession() error {
	sendErr := s.sendJSON(wire.ClientControl{Type: "control", Op: wire.ControlEndSession})
	s.setStatus(voice.StatusClosing)
	closeErr := s.Close()
	if sendErr != nil && !errors.Is(sendErr, ErrSessionClosed) {
		return sendErr
	}
	return closeErr
}

// Close tears the connection down and waits for the read loop to drain.
// It is safe to call multiple times.
func (s *LiveSession) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		s.writeMu.Lock()
		deadline := time.Now().Add(2 * time.Second)
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			deadline,
		)
		s.writeMu.Unlock()

		closeErr = s.conn.Close()
		<-s.done
	})
	return closeErr
}

// Err blocks until the read loop has exited and returns the terminal error,
// if any. A clean shutdown returns nil.
func (s *LiveSession) Err() error {
	<-s.done
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *LiveSession) sendJSON(v any) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(v); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

func (s *LiveSession) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *LiveSession) setStatus(status voice.ConnectionStatus) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.status.Terminal() {
		return
	}
	s.status = status
}

// emitEvent delivers an event without blocking the read loop. Events are
// dropped, and counted, when the consumer falls behind.
func (s *LiveSession) emitEvent(ev LiveEvent) {
	select {
	case s.events <- ev:
	default:
		s.dropped.Add(1)
		s.logger.Warn("live event dropped", "type", ev.liveEventType())
	}
}

func (s *LiveSession) readLoop() {
	defer close(s.done)
	defer close(s.events)
	defer s.audioOutput.Close()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.setStatus(voice.StatusClosed)
			} else {
				s.setErr(&TransportError{Op: "read", Err: err})
				s.setStatus(voice.StatusFailed)
			}
			return
		}

		msg, err := wire.DecodeServerMessage(raw)
		if err != nil {
			s.logger.Warn("undecodable server frame", "error", err)
			continue
		}
		s.handleServerMessage(msg)
	}
}

func (s *LiveSession) handleServerMessage(msg any) {
	switch m := msg.(type) {
	case wire.ServerHelloAck:
		s.emitEvent(LiveHelloAckEvent{Ack: m})

	case wire.ServerStatus:
		s.applyStatus(m.State)
		s.emitEvent(LiveStatusEvent{State: m.State, Message: m.Message})

	case wire.ServerTranscriptDelta:
		s.emitEvent(LiveTranscriptDeltaEvent{
			UtteranceID: m.UtteranceID,
			Role:        m.Role,
			Text:        m.Text,
			TimestampMS: m.TimestampMS,
		})

	case wire.ServerTranscriptFinal:
		s.emitEvent(LiveTranscriptFinalEvent{
			UtteranceID: m.UtteranceID,
			Role:        m.Role,
			Text:        m.Text,
			TimestampMS: m.TimestampMS,
			EndMS:       m.EndMS,
		})

	case wire.ServerAssistantAudioStart:
		s.setStatus(voice.StatusSpeaking)
		s.emitEvent(LiveAssistantAudioStartEvent{
			AssistantAudioID: m.AssistantAudioID,
			Format:           m.Format,
			Text:             m.Text,
		})

	case wire.ServerAssistantAudioChunk:
		if m.AudioB64 == "" {
			return
		}
		data, err := base64.StdEncoding.DecodeString(m.AudioB64)
		if err != nil {
			s.logger.Warn("undecodable audio chunk",
				"assistant_audio_id", m.AssistantAudioID, "seq", m.Seq, "error", err)
			return
		}
		s.audioOutput.pushAudio(data)
		s.emitEvent(LiveAssistantAudioChunkEvent{
			AssistantAudioID: m.AssistantAudioID,
			Seq:              m.Seq,
			Data:             data,
		})

	case wire.ServerAssistantAudioEnd:
		s.emitEvent(LiveAssistantAudioEndEvent{AssistantAudioID: m.AssistantAudioID})

	case wire.ServerAudioReset:
		s.audioOutput.doFlush()
		s.emitEvent(LiveAudioResetEvent{
			AssistantAudioID: m.AssistantAudioID,
			Reason:           m.Reason,
		})

	case wire.ServerToolCall:
		s.emitEvent(LiveToolCallEvent{
			ID:        m.ID,
			TurnID:    m.TurnID,
			Name:      m.Name,
			Arguments: m.Arguments,
		})
		s.dispatchToolCall(m)

	case wire.ServerToolCancel:
		s.cancelToolCall(m)
		s.emitEvent(LiveToolCancelEvent{ID: m.ID, TurnID: m.TurnID, Reason: m.Reason})

	case wire.ServerErrorMessage:
		err := core.FromWireCode(m.Code, m.Message)
		s.emitEvent(LiveErrorEvent{Err: err})
		if m.Close {
			s.setErr(err)
		}

	case wire.ServerUnknown:
		s.logger.Debug("unknown server frame", "type", m.Type)
		s.emitEvent(LiveUnknownEvent{Type: m.Type, Raw: m.Raw})
	}
}

func (s *LiveSession) applyStatus(state string) {
	switch state {
	case "listening":
		// A service-side listening transition never reopens a locally muted
		// microphone.
		if !s.muted.Load() {
			s.setStatus(voice.StatusListening)
		}
	case "speaking":
		s.setStatus(voice.StatusSpeaking)
	case "idle", "connected":
		if !s.muted.Load() {
			s.setStatus(voice.StatusConnected)
		}
	case "closing":
		s.setStatus(voice.StatusClosing)
	}
}

func toolKey(turnID, id string) string {
	return turnID + ":" + id
}

func (s *LiveSession) dispatchToolCall(call wire.ServerToolCall) {
	name := strings.TrimSpace(call.Name)
	handler, ok := s.handlers[name]
	if !ok {
		if len(s.handlers) == 0 {
			// No handlers registered at all: the caller dispatches tool
			// calls itself from LiveToolCallEvent.
			return
		}
		s.sendToolError(call, "tool_not_registered",
			fmt.Sprintf("tool %q is not registered", name))
		return
	}

	var toolCtx context.Context
	var cancel context.CancelFunc
	if s.toolTimeout > 0 {
		toolCtx, cancel = context.WithTimeout(s.ctx, s.toolTimeout)
	} else {
		toolCtx, cancel = context.WithCancel(s.ctx)
	}

	key := toolKey(call.TurnID, call.ID)
	s.toolMu.Lock()
	s.toolCancels[key] = cancel
	s.toolMu.Unlock()

	go func() {
		defer func() {
			cancel()
			s.toolMu.Lock()
			delete(s.toolCancels, key)
			s.toolMu.Unlock()
		}()

		output, execErr := handler(toolCtx, call.Arguments)
		if s.onToolCall != nil {
			s.onToolCall(name, call.Arguments, output, execErr)
		}

		switch {
		case errors.Is(execErr, context.Canceled):
			// The service abandoned the call; nobody is waiting for a result.
			return
		case errors.Is(execErr, context.DeadlineExceeded):
			s.sendToolError(call, "tool_timeout", "tool execution timed out")
			return
		case execErr != nil:
			s.sendToolError(call, "tool_execution_failed", execErr.Error())
			return
		}

		payload, err := json.Marshal(output)
		if err != nil {
			s.sendToolError(call, "tool_execution_failed",
				fmt.Sprintf("tool output not serializable: %v", err))
			return
		}
		if err := s.sendJSON(wire.ClientToolResult{
			Type:       "tool_result",
			ToolCallID: call.ID,
			TurnID:     call.TurnID,
			Output:     payload,
		}); err != nil {
			s.logger.Warn("tool result send failed", "tool", name, "error", err)
		}
	}()
}

func (s *LiveSession) cancelToolCall(m wire.ServerToolCancel) {
	key := toolKey(m.TurnID, m.ID)
	s.toolMu.Lock()
	cancel, ok := s.toolCancels[key]
	if ok {
		delete(s.toolCancels, key)
	}
	s.toolMu.Unlock()
	if ok {
		cancel()
	}
}

type toolErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *LiveSession) sendToolError(call wire.ServerToolCall, code, message string) {
	payload, err := json.Marshal(toolErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	if err := s.sendJSON(wire.ClientToolResult{
		Type:       "tool_result",
		ToolCallID: call.ID,
		TurnID:     call.TurnID,
		Output:     payload,
		IsError:    true,
	}); err != nil {
		s.logger.Warn("tool error send failed", "tool", call.Name, "code", code, "error", err)
	}
}
