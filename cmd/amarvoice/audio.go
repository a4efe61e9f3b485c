package main

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/gen2brain/malgo"

	"github.com/techdhakaai/amarvoice-ai/pkg/core"
)

// audioIO bundles the capture and playback devices. Either side may be
// nil when its device failed to open; the app keeps running in a
// degraded mode and reports the failure on the status line.
type audioIO struct {
	mic     *micReader
	speaker *speakerWriter

	malgoCtx *malgo.AllocatedContext
}

// initAudio opens the microphone and speaker. Device failures come back
// as *core.Error with type device_error; a nil mic with a working
// speaker (or vice versa) is a usable partial result.
func initAudio(inputRate, outputRate int) (*audioIO, error) {
	malgoConfig := malgo.ContextConfig{}
	malgoConfig.ThreadPriority = malgo.ThreadPriorityRealtime

	malgoCtx, err := malgo.InitContext(nil, malgoConfig, nil)
	if err != nil {
		return nil, core.NewDeviceError("audio context", err)
	}

	io := &audioIO{malgoCtx: malgoCtx}

	mic, micErr := newMicReader(malgoCtx.Context, inputRate, 1)
	if micErr == nil {
		io.mic = mic
	}

	speaker, spkErr := newSpeakerWriter(outputRate, 1)
	if spkErr == nil {
		io.speaker = speaker
	}

	switch {
	case micErr != nil && spkErr != nil:
		io.Close()
		return nil, core.NewDeviceError("audio", fmt.Errorf("no devices: mic: %v; speaker: %v", micErr, spkErr))
	case micErr != nil:
		return io, core.NewDeviceError("microphone", micErr)
	case spkErr != nil:
		return io, core.NewDeviceError("speaker", spkErr)
	}
	return io, nil
}

func (a *audioIO) Close() {
	if a.mic != nil {
		a.mic.Close()
	}
	if a.speaker != nil {
		a.speaker.Close()
	}
	if a.malgoCtx != nil {
		_ = a.malgoCtx.Uninit()
		a.malgoCtx.Free()
	}
}

// micReader captures PCM16 audio from the default microphone.
type micReader struct {
	device *malgo.Device
	buf    []byte
	mu     sync.Mutex
	cond   *sync.Cond
	closed bool
}

func newMicReader(ctx malgo.Context, sampleRate, channels int) (*micReader, error) {
	m := &micReader{
		buf: make([]byte, 0, sampleRate*2), // 1 second
	}
	m.cond = sync.NewCond(&m.mu)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			m.mu.Lock()
			m.buf = append(m.buf, pInputSamples...)
			m.mu.Unlock()
			m.cond.Signal()
		},
	}

	device, err := malgo.InitDevice(ctx, deviceConfig, callbacks)
	if err != nil {
		return nil, err
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, err
	}
	return m, nil
}

// Read blocks until captured audio is available, then copies it into p.
// Returns 0 after Close.
func (m *micReader) Read(p []byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.buf) == 0 && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		return 0
	}

	n := copy(p, m.buf)
	m.buf = m.buf[n:]
	return n
}

func (m *micReader) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cond.Broadcast()

	if m.device != nil {
		_ = m.device.Stop()
		m.device.Uninit()
	}
}

// speakerWriter plays PCM16 audio through the default output device.
// The oto player is created lazily on first write so silence costs
// nothing, and Flush tears it down to drop buffered audio instantly.
type speakerWriter struct {
	otoCtx  *oto.Context
	player  *oto.Player
	buf     []byte
	mu      sync.Mutex
	cond    *sync.Cond
	playing bool
	closed  bool
}

func newSpeakerWriter(sampleRate, channels int) (*speakerWriter, error) {
	// ~100ms device buffer: low latency without glitching.
	otoOpts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   sampleRate * 2 / 10,
	}
	otoCtx, ready, err := oto.NewContext(otoOpts)
	if err != nil {
		return nil, err
	}
	<-ready

	s := &speakerWriter{
		otoCtx: otoCtx,
		buf:    make([]byte, 0, sampleRate*4), // 2 seconds
	}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

func (s *speakerWriter) Write(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf = append(s.buf, data...)

	// Pre-buffering happens in the SDK's AudioOutput, so start on first
	// write.
	if !s.playing && !s.closed {
		s.playing = true
		s.player = s.otoCtx.NewPlayer(s)
		s.player.Play()
	}

	s.cond.Signal()
}

// Read implements io.Reader for oto.Player.
func (s *speakerWriter) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.buf) == 0 && !s.closed {
		s.cond.Wait()
	}

	if s.closed && len(s.buf) == 0 {
		// Silence lets oto drain gracefully on shutdown.
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

func (s *speakerWriter) Close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()

	if s.player != nil {
		s.player.Close()
	}
}

// Flush discards pending audio and stops the current player so stale
// speech cannot overlap the next utterance after a barge-in.
func (s *speakerWriter) Flush() {
	s.mu.Lock()
	s.buf = s.buf[:0]

	if s.player != nil && s.playing {
		s.playing = false
		player := s.player
		s.player = nil
		s.mu.Unlock()

		player.Pause()
		player.Reset()
		player.Close()
		return
	}
	s.mu.Unlock()
}
