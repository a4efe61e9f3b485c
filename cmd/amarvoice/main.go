// Command amarvoice is a terminal client for the AmarVoice customer
// service demo: it streams microphone audio to the hosted conversational
// model, plays the synthesized replies, renders the transcript, and
// serves the model's tool calls (order lookup, translation, mic control,
// call end) locally.
//
// Environment:
//
//	AMARVOICE_API_KEY   - required
//	AMARVOICE_BASE_URL  - service URL (default wss://api.amarvoice.ai)
//	AMARVOICE_VOICE     - initial voice id
//	OPENAI_API_KEY      - enables the translate_text tool
//	AMARVOICE_DEBUG_LOG - write slog output to this file
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	amarvoice "github.com/techdhakaai/amarvoice-ai/sdk"

	"github.com/techdhakaai/amarvoice-ai/pkg/config"
	"github.com/techdhakaai/amarvoice-ai/pkg/store/orders"
	"github.com/techdhakaai/amarvoice-ai/pkg/tools/builtins"
	"github.com/techdhakaai/amarvoice-ai/pkg/translate"
	"github.com/techdhakaai/amarvoice-ai/pkg/voice"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "amarvoice:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger, logCleanup, err := newLogger(cfg.DebugLogPath)
	if err != nil {
		return err
	}
	defer logCleanup()

	store, err := orders.Open(cfg.OrdersDBPath)
	if err != nil {
		return fmt.Errorf("open order store: %w", err)
	}
	defer store.Close()
	if err := store.Seed(context.Background()); err != nil {
		return fmt.Errorf("seed order store: %w", err)
	}

	translator := translate.New(cfg.OpenAIAPIKey, translate.WithLogger(logger))

	// Audio devices. A device failure degrades to text-only instead of
	// aborting; the message lands on the TUI status line.
	degradedNote := ""
	audio, audioErr := initAudio(cfg.InputSampleRate, cfg.OutputSampleRate)
	if audioErr != nil {
		degradedNote = audioErr.Error()
		logger.Warn("audio degraded", "error", audioErr)
	}
	if audio != nil {
		defer audio.Close()
	}

	client := amarvoice.NewClient(
		amarvoice.WithAPIKey(cfg.APIKey),
		amarvoice.WithBaseURL(cfg.BaseURL),
		amarvoice.WithLogger(logger),
	)

	// The tool registry needs session controls before the session exists;
	// the ref is bound right after Connect returns.
	controls := &sessionRef{}
	endCall := &endCallSignal{ch: make(chan string, 1)}

	registry := builtins.New(builtins.Config{
		Orders:     store,
		Translator: enabledTranslator(translator),
		Controls:   controls,
		OnEndCall:  endCall.request,
		Logger:     logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := client.Live.Connect(ctx, amarvoice.LiveConnectRequest{VoiceID: cfg.VoiceID},
		amarvoice.WithTools(registry.Tools()...),
		amarvoice.WithToolTimeout(cfg.ToolTimeout),
		amarvoice.WithAudioOutput(amarvoice.AudioOutputConfig{MinBufferMs: cfg.PrebufferMS}),
	)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer session.Close()
	controls.bind(session)

	transcript := voice.NewTranscript()
	m := newModel(session, transcript, session.VoiceID(), degradedNote)
	p := tea.NewProgram(m, tea.WithAltScreen())

	// Playback scheduler: tracks realtime progress of assistant audio and
	// reports marks back to the service. The speaker is fed separately by
	// the session's AudioOutput, so the scheduler runs with a nil sink.
	outFormat := session.OutputFormat()
	scheduler := voice.NewScheduler(voice.SchedulerConfig{
		Audio: voice.AudioConfig{
			SampleRateHz:  outFormat.SampleRateHz,
			Channels:      outFormat.Channels,
			BitsPerSample: 16,
		},
		MarkInterval: cfg.MarkInterval,
		PrebufferMS:  cfg.PrebufferMS,
	})
	defer scheduler.Close()
	scheduler.SetMarkSender(func(mark voice.Mark) {
		if err := session.SendPlaybackMark(mark); err != nil {
			logger.Debug("playback mark send failed", "error", err)
		}
		p.Send(playbackMarkMsg(mark))
	})

	// Speaker: the AudioOutput handles pre-buffering and flush-on-reset.
	if audio != nil && audio.speaker != nil {
		session.AudioOutput().HandleAudio(
			func(data []byte) { audio.speaker.Write(data) },
			func() { audio.speaker.Flush() },
		)
	} else {
		// Keep the channels drained so playback accounting stays honest.
		session.AudioOutput().HandleAudio(nil, nil)
	}

	// Microphone pump: 20ms PCM chunks to the session, RMS level to the
	// meter.
	if audio != nil && audio.mic != nil {
		go micPump(ctx, audio.mic, session, cfg, p)
	}

	// Model-requested call end: let the tool_result frame flush, then
	// close gracefully.
	go func() {
		select {
		case <-ctx.Done():
			return
		case reason := <-endCall.ch:
			p.Send(statusLineMsg("call ending: " + reason))
			time.Sleep(500 * time.Millisecond)
			_ = session.EndSession()
		}
	}()

	// Event pump: session events feed the scheduler and the TUI.
	go func() {
		for event := range session.Events() {
			switch e := event.(type) {
			case amarvoice.LiveAssistantAudioStartEvent:
				scheduler.Start(e.AssistantAudioID)
			case amarvoice.LiveAssistantAudioChunkEvent:
				scheduler.Push(e.AssistantAudioID, e.Data)
			case amarvoice.LiveAssistantAudioEndEvent:
				scheduler.Finish(e.AssistantAudioID)
			case amarvoice.LiveAudioResetEvent:
				scheduler.Reset(e.AssistantAudioID)
			}
			p.Send(sessionEventMsg{event: event})
		}
		p.Send(sessionClosedMsg{err: session.Err()})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}

// micPump reads captured audio and streams it to the session until the
// context ends. The level meter updates every few chunks to keep TUI
// traffic light.
func micPump(ctx context.Context, mic *micReader, session *amarvoice.LiveSession, cfg config.Config, p *tea.Program) {
	chunk := make([]byte, cfg.InputSampleRate*2/50) // 20ms
	chunksPerMeter := 5
	count := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n := mic.Read(chunk)
		if n == 0 {
			return
		}
		if err := session.SendAudio(chunk[:n]); err != nil {
			return
		}

		count++
		if count%chunksPerMeter == 0 {
			level := voice.RMSEnergy(chunk[:n]) / 0.2 // ~speech loudness full-scale
			p.Send(micLevelMsg(level))
		}
	}
}

func newLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open debug log: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() { f.Close() }, nil
}

func enabledTranslator(t *translate.Translator) *translate.Translator {
	if t == nil || !t.Enabled() {
		return nil
	}
	return t
}

// sessionRef forwards control calls to the live session once it exists.
// Tool dispatch starts with the read loop, so a call can race the bind;
// unbound calls fail cleanly instead of panicking.
type sessionRef struct {
	mu      sync.Mutex
	session *amarvoice.LiveSession
}

func (r *sessionRef) bind(s *amarvoice.LiveSession) {
	r.mu.Lock()
	r.session = s
	r.mu.Unlock()
}

func (r *sessionRef) get() (*amarvoice.LiveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil, fmt.Errorf("session not ready")
	}
	return r.session, nil
}

func (r *sessionRef) Mute() error {
	s, err := r.get()
	if err != nil {
		return err
	}
	return s.Mute()
}

func (r *sessionRef) Unmute() error {
	s, err := r.get()
	if err != nil {
		return err
	}
	return s.Unmute()
}

func (r *sessionRef) Muted() bool {
	s, err := r.get()
	if err != nil {
		return false
	}
	return s.Muted()
}

// endCallSignal coalesces end_call requests; only the first reason wins.
type endCallSignal struct {
	ch chan string
}

func (e *endCallSignal) request(reason string) {
	select {
	case e.ch <- reason:
	default:
	}
}
