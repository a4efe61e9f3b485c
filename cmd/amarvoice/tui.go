package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	amarvoice "github.com/techdhakaai/amarvoice-ai/sdk"

	"github.com/techdhakaai/amarvoice-ai/pkg/voice"
)

// sessionControls is the slice of live-session behavior the TUI drives.
// *amarvoice.LiveSession satisfies it; tests use a fake.
type sessionControls interface {
	Mute() error
	Unmute() error
	Muted() bool
	SetVoice(id string) error
	Interrupt() error
	SendText(text string) error
	EndSession() error
}

// Messages pumped into the program from outside the event loop.
type (
	// sessionEventMsg wraps one SDK live event.
	sessionEventMsg struct{ event amarvoice.LiveEvent }

	// sessionClosedMsg arrives when the session's event channel closes.
	sessionClosedMsg struct{ err error }

	// micLevelMsg carries the current microphone RMS level in [0, 1].
	micLevelMsg float64

	// playbackMarkMsg carries scheduler playback progress.
	playbackMarkMsg voice.Mark

	// statusLineMsg sets the transient status line.
	statusLineMsg string
)

type inputMode int

const (
	inputNone inputMode = iota
	inputText
)

// model is the terminal UI for one live conversation.
type model struct {
	controls   sessionControls
	transcript *voice.Transcript

	status      voice.ConnectionStatus
	voices      []voice.Voice
	voiceIdx    int
	micLevel    float64
	playedMS    int64
	bufferedMS  int64
	playState   voice.PlaybackState
	statusLine  string
	degraded    bool
	ending      bool
	sessionDone bool

	mode        inputMode
	inputBuffer string

	width int
}

func newModel(controls sessionControls, transcript *voice.Transcript, activeVoiceID string, degradedNote string) model {
	m := model{
		controls:   controls,
		transcript: transcript,
		status:     voice.StatusConnected,
		voices:     voice.Voices(),
		statusLine: degradedNote,
		degraded:   degradedNote != "",
		width:      80,
	}
	for i, v := range m.voices {
		if v.ID == activeVoiceID {
			m.voiceIdx = i
			break
		}
	}
	return m
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		if m.mode == inputText {
			return m.handleTextInputKey(msg)
		}
		return m.handleKey(msg)

	case sessionEventMsg:
		m.applyEvent(msg.event)

	case sessionClosedMsg:
		m.sessionDone = true
		if msg.err != nil {
			m.status = voice.StatusFailed
			m.statusLine = "session failed: " + msg.err.Error()
			return m, nil
		}
		m.status = voice.StatusClosed
		return m, tea.Quit

	case micLevelMsg:
		m.micLevel = float64(msg)

	case playbackMarkMsg:
		m.playedMS = msg.PlayedMS
		m.bufferedMS = msg.BufferedMS
		m.playState = msg.State

	case statusLineMsg:
		m.statusLine = string(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.sessionDone {
			return m, tea.Quit
		}
		if !m.ending {
			m.ending = true
			m.statusLine = "ending call..."
			return m, endSessionCmd(m.controls)
		}
		return m, tea.Quit

	case "m":
		if m.controls.Muted() {
			if err := m.controls.Unmute(); err != nil {
				m.statusLine = "unmute failed: " + err.Error()
			} else {
				m.status = voice.StatusConnected
				m.statusLine = "microphone live"
			}
		} else {
			if err := m.controls.Mute(); err != nil {
				m.statusLine = "mute failed: " + err.Error()
			} else {
				m.status = voice.StatusMuted
				m.statusLine = "microphone muted"
			}
		}

	case "v":
		if len(m.voices) == 0 {
			return m, nil
		}
		next := (m.voiceIdx + 1) % len(m.voices)
		v := m.voices[next]
		if err := m.controls.SetVoice(v.ID); err != nil {
			m.statusLine = "voice switch failed: " + err.Error()
			return m, nil
		}
		m.voiceIdx = next
		m.statusLine = fmt.Sprintf("voice: %s (%s)", v.Label, v.Accent)

	case "i":
		if err := m.controls.Interrupt(); err != nil {
			m.statusLine = "interrupt failed: " + err.Error()
		} else {
			m.statusLine = "interrupted"
		}

	case "t":
		m.mode = inputText
		m.inputBuffer = ""
	}
	return m, nil
}

func (m model) handleTextInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = inputNone
		m.inputBuffer = ""
	case tea.KeyEnter:
		text := strings.TrimSpace(m.inputBuffer)
		m.mode = inputNone
		m.inputBuffer = ""
		if text == "" {
			return m, nil
		}
		if err := m.controls.SendText(text); err != nil {
			m.statusLine = "send failed: " + err.Error()
			return m, nil
		}
		// Typed input produces no user-side speech transcript, so it gets
		// a session-local entry.
		m.transcript.Finalize("local-"+uuid.NewString(), voice.RoleUser, text)
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		if len(m.inputBuffer) > 0 {
			m.inputBuffer = m.inputBuffer[:len(m.inputBuffer)-1]
		}
	case tea.KeySpace:
		m.inputBuffer += " "
	case tea.KeyRunes:
		m.inputBuffer += string(msg.Runes)
	}
	return m, nil
}

func endSessionCmd(controls sessionControls) tea.Cmd {
	return func() tea.Msg {
		if err := controls.EndSession(); err != nil {
			return statusLineMsg("end session: " + err.Error())
		}
		return nil
	}
}

func (m *model) applyEvent(event amarvoice.LiveEvent) {
	switch e := event.(type) {
	case amarvoice.LiveStatusEvent:
		m.applyStatus(e.State)
		if e.Message != "" {
			m.statusLine = e.Message
		}

	case amarvoice.LiveTranscriptDeltaEvent:
		m.transcript.AppendDelta(e.UtteranceID, voice.TranscriptRole(e.Role), e.Text)

	case amarvoice.LiveTranscriptFinalEvent:
		m.transcript.Finalize(e.UtteranceID, voice.TranscriptRole(e.Role), e.Text)

	case amarvoice.LiveAssistantAudioStartEvent:
		m.status = voice.StatusSpeaking

	case amarvoice.LiveAssistantAudioEndEvent:
		if !m.controls.Muted() {
			m.status = voice.StatusListening
		}

	case amarvoice.LiveAudioResetEvent:
		m.playedMS = 0
		m.bufferedMS = 0
		m.playState = voice.PlaybackStopped

	case amarvoice.LiveToolCallEvent:
		m.statusLine = "tool: " + e.Name

	case amarvoice.LiveErrorEvent:
		m.statusLine = "service error: " + e.Err.Message
	}
}

func (m *model) applyStatus(state string) {
	switch state {
	case "listening":
		if !m.controls.Muted() {
			m.status = voice.StatusListening
		}
	case "speaking":
		m.status = voice.StatusSpeaking
	case "closing":
		m.status = voice.StatusClosing
	case "idle", "connected":
		if !m.controls.Muted() {
			m.status = voice.StatusConnected
		}
	}
}

// styles
var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Align(lipgloss.Right)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	partialStyle   = lipgloss.NewStyle().Faint(true)
	statusStyle    = lipgloss.NewStyle().Reverse(true)
	helpStyle      = lipgloss.NewStyle().Faint(true)
)

const transcriptLines = 16

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("AmarVoice customer service"))
	b.WriteString("\n\n")
	b.WriteString(m.renderTranscript())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")

	if m.mode == inputText {
		b.WriteString(fmt.Sprintf("say> %s▌\n", m.inputBuffer))
		b.WriteString(helpStyle.Render("[enter] Send  [esc] Cancel"))
	} else {
		b.WriteString(helpStyle.Render("[m] Mute  [v] Voice  [i] Interrupt  [t] Type  [q] End call"))
	}
	if m.statusLine != "" {
		b.WriteString("\n" + m.statusLine)
	}
	return b.String()
}

func (m model) renderTranscript() string {
	entries := m.transcript.Entries()
	if len(entries) > transcriptLines {
		entries = entries[len(entries)-transcriptLines:]
	}
	if len(entries) == 0 {
		return partialStyle.Render("(conversation will appear here)")
	}

	width := m.width
	if width < 20 {
		width = 20
	}

	var lines []string
	for _, e := range entries {
		text := e.Text
		if !e.Final {
			text = partialStyle.Render(text + "…")
		}
		switch e.Role {
		case voice.RoleUser:
			lines = append(lines, userStyle.Width(width).Render("You: "+text))
		case voice.RoleAssistant:
			lines = append(lines, assistantStyle.Render("Agent: "+text))
		default:
			lines = append(lines, partialStyle.Render(text))
		}
	}
	return strings.Join(lines, "\n")
}

func (m model) renderStatusBar() string {
	muteFlag := "live"
	if m.controls.Muted() {
		muteFlag = "MUTED"
	}
	if m.degraded {
		muteFlag = "text-only"
	}

	voiceLabel := "-"
	if len(m.voices) > 0 {
		v := m.voices[m.voiceIdx]
		voiceLabel = fmt.Sprintf("%s (%s)", v.Label, v.Accent)
	}

	playback := ""
	if m.playState == voice.PlaybackPlaying {
		playback = fmt.Sprintf("  playing %d.%01ds", m.playedMS/1000, (m.playedMS%1000)/100)
	}

	bar := fmt.Sprintf(" %s  mic:%s %s  voice:%s%s ",
		m.status, muteFlag, levelMeter(m.micLevel), voiceLabel, playback)
	return statusStyle.Render(bar)
}

// levelMeter renders the mic RMS level as a 8-cell bar.
func levelMeter(level float64) string {
	const cells = 8
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	filled := int(level * cells)
	return "[" + strings.Repeat("█", filled) + strings.Repeat(" ", cells-filled) + "]"
}
