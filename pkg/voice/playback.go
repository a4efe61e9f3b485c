package voice

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"
)

// PlaybackState is the state reported in playback marks.
type PlaybackState string

const (
	// PlaybackPlaying is reported periodically while audio drains.
	PlaybackPlaying PlaybackState = "playing"
	// PlaybackFinished is reported once the final chunk has drained.
	PlaybackFinished PlaybackState = "finished"
	// PlaybackStopped is reported when playback was cut off by a reset.
	PlaybackStopped PlaybackState = "stopped"
)

// Mark is a playback progress report for one assistant utterance.
type Mark struct {
	AudioID    string
	PlayedMS   int64
	BufferedMS int64
	State      PlaybackState
}

// SchedulerConfig configures the playback scheduler.
type SchedulerConfig struct {
	// Audio is the playback PCM format. Defaults to DefaultOutputConfig.
	Audio AudioConfig

	// Tick is how often buffered audio is drained to the sink.
	Tick time.Duration

	// MarkInterval is how often playing marks are emitted.
	MarkInterval time.Duration

	// PrebufferMS is how much audio must be queued before draining
	// starts. Smooths over network jitter at utterance start.
	PrebufferMS int

	// MaxLagMS bounds how far reported playback may trail received
	// audio. Keeps the service's echo window honest when the local
	// sink stalls.
	MaxLagMS int64
}

// Scheduler drains queued assistant audio to a sink in realtime and
// reports playback progress. Chunks queue in arrival order; chunks for
// any utterance other than the active one are dropped.
type Scheduler struct {
	cfg SchedulerConfig

	mu sync.Mutex

	activeID         string
	buffer           bytes.Buffer
	playedBytes      int64
	receivedBytes    int64
	reportedPlayedMS int64
	endReceived      bool
	finishedSent     bool
	draining         bool

	lastMarkAt time.Time

	sink     func([]byte)
	sendMark func(Mark)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates and starts a playback scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Audio.BytesPerSecond() <= 0 {
		cfg.Audio = DefaultOutputConfig()
	}
	if cfg.Tick <= 0 {
		cfg.Tick = 20 * time.Millisecond
	}
	if cfg.MarkInterval <= 0 {
		cfg.MarkInterval = 250 * time.Millisecond
	}
	if cfg.PrebufferMS <= 0 {
		cfg.PrebufferMS = 50
	}
	if cfg.MaxLagMS <= 0 {
		cfg.MaxLagMS = 1200
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
	go s.run()
	return s
}

// SetSink installs the function that receives drained PCM. A nil sink
// consumes audio without output, which keeps mark timing correct when
// no speaker is available.
func (s *Scheduler) SetSink(fn func([]byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = fn
}

// SetMarkSender installs the function that receives playback marks.
func (s *Scheduler) SetMarkSender(fn func(Mark)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendMark = fn
}

// Start begins playback of a new assistant utterance. Any audio from a
// previous utterance still queued is discarded.
func (s *Scheduler) Start(audioID string) {
	audioID = strings.TrimSpace(audioID)
	if audioID == "" {
		return
	}

	s.mu.Lock()
	s.activeID = audioID
	s.buffer.Reset()
	s.playedBytes = 0
	s.receivedBytes = 0
	s.reportedPlayedMS = 0
	s.endReceived = false
	s.finishedSent = false
	s.draining = false
	s.lastMarkAt = time.Time{}
	s.mu.Unlock()
}

// Push queues a PCM chunk for the given utterance. Chunks arriving for
// a superseded or unknown utterance are dropped.
func (s *Scheduler) Push(audioID string, pcm []byte) {
	audioID = strings.TrimSpace(audioID)
	if audioID == "" || len(pcm) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID != audioID {
		return
	}
	_, _ = s.buffer.Write(pcm)
	s.receivedBytes += int64(len(pcm))
}

// Finish signals that no more chunks will arrive for the utterance. A
// finished mark is emitted once the queue drains.
func (s *Scheduler) Finish(audioID string) {
	audioID = strings.TrimSpace(audioID)
	if audioID == "" {
		return
	}

	var mark *Mark

	s.mu.Lock()
	if s.activeID == audioID {
		s.endReceived = true
		if s.buffer.Len() == 0 && !s.finishedSent {
			s.finishedSent = true
			mark = s.buildMarkLocked(PlaybackFinished)
			s.activeID = ""
		}
	}
	s.mu.Unlock()

	if mark != nil {
		s.emitMark(*mark)
	}
}

// Reset discards queued audio and stops the active utterance. An empty
// audioID matches whatever is active. Emits a stopped mark if playback
// was cut short.
func (s *Scheduler) Reset(audioID string) {
	audioID = strings.TrimSpace(audioID)

	var mark *Mark

	s.mu.Lock()
	if audioID == "" || s.activeID == audioID {
		if s.activeID != "" && !s.finishedSent {
			mark = s.buildMarkLocked(PlaybackStopped)
		}
		s.activeID = ""
		s.buffer.Reset()
		s.playedBytes = 0
		s.receivedBytes = 0
		s.endReceived = false
		s.finishedSent = false
		s.draining = false
	}
	s.mu.Unlock()

	if mark != nil {
		s.emitMark(*mark)
	}
}

// Active returns the utterance currently playing, or "".
func (s *Scheduler) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// BufferedMS returns how much audio is queued but not yet drained.
func (s *Scheduler) BufferedMS() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(s.cfg.Audio.DurationMS(s.buffer.Len()))
}

// Close stops the scheduler. Queued audio is discarded without marks.
func (s *Scheduler) Close() {
	s.cancel()
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.onTick()
		}
	}
}

func (s *Scheduler) onTick() {
	bytesPerSecond := int64(s.cfg.Audio.BytesPerSecond())
	if bytesPerSecond <= 0 {
		return
	}
	bytesPerTick := bytesPerSecond * int64(s.cfg.Tick) / int64(time.Second)
	if bytesPerTick <= 0 {
		bytesPerTick = 1
	}
	prebufferBytes := s.cfg.Audio.BytesForDuration(s.cfg.PrebufferMS)

	var (
		activeID   string
		toPlay     []byte
		markToSend *Mark
		sink       func([]byte)
	)

	s.mu.Lock()
	activeID = s.activeID
	sink = s.sink

	if activeID != "" && !s.draining {
		if s.buffer.Len() >= prebufferBytes || s.endReceived {
			s.draining = true
		}
	}

	if activeID != "" && s.draining && s.buffer.Len() > 0 {
		n := int(bytesPerTick)
		if n > s.buffer.Len() {
			n = s.buffer.Len()
		}
		toPlay = make([]byte, n)
		_, _ = io.ReadFull(&s.buffer, toPlay)
		s.playedBytes += int64(n)
	}

	now := time.Now()
	if activeID != "" && (s.lastMarkAt.IsZero() || now.Sub(s.lastMarkAt) >= s.cfg.MarkInterval) {
		s.lastMarkAt = now
		markToSend = s.buildMarkLocked(PlaybackPlaying)
	}

	if activeID != "" && s.endReceived && s.buffer.Len() == 0 && !s.finishedSent {
		s.finishedSent = true
		markToSend = s.buildMarkLocked(PlaybackFinished)
		s.activeID = ""
	}
	s.mu.Unlock()

	if len(toPlay) > 0 && sink != nil {
		sink(toPlay)
	}
	if markToSend != nil {
		s.emitMark(*markToSend)
	}
}

func (s *Scheduler) buildMarkLocked(state PlaybackState) *Mark {
	if s.activeID == "" {
		return nil
	}
	bytesPerSecond := int64(s.cfg.Audio.BytesPerSecond())
	if bytesPerSecond <= 0 {
		return nil
	}

	playedMS := (s.playedBytes * 1000) / bytesPerSecond
	receivedMS := (s.receivedBytes * 1000) / bytesPerSecond

	// Report at least receivedMS-MaxLagMS so a stalled sink cannot hold
	// the reported position arbitrarily far behind the stream.
	target := receivedMS - s.cfg.MaxLagMS
	if target > playedMS {
		playedMS = target
	}
	if playedMS < s.reportedPlayedMS {
		playedMS = s.reportedPlayedMS
	}
	if playedMS > receivedMS {
		playedMS = receivedMS
	}
	if playedMS < 0 {
		playedMS = 0
	}
	s.reportedPlayedMS = playedMS

	return &Mark{
		AudioID:    s.activeID,
		PlayedMS:   playedMS,
		BufferedMS: int64(s.cfg.Audio.DurationMS(s.buffer.Len())),
		State:      state,
	}
}

func (s *Scheduler) emitMark(mark Mark) {
	s.mu.Lock()
	send := s.sendMark
	s.mu.Unlock()
	if send != nil {
		send(mark)
	}
}
