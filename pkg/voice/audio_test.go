package voice

import (
	"bytes"
	"math"
	"testing"
)

func pcmFromSamples(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		pcm[i*2] = byte(s & 0xFF)
		pcm[i*2+1] = byte((s >> 8) & 0xFF)
	}
	return pcm
}

func TestRMSEnergy(t *testing.T) {
	tests := []struct {
		name     string
		samples  []int16
		expected float64
	}{
		{
			name:     "silence",
			samples:  []int16{0, 0, 0, 0},
			expected: 0.0,
		},
		{
			name:     "max amplitude",
			samples:  []int16{32767, 32767, 32767, 32767},
			expected: 1.0,
		},
		{
			name:     "half amplitude",
			samples:  []int16{16384, 16384, 16384, 16384},
			expected: 0.5,
		},
		{
			name:     "mixed signal",
			samples:  []int16{16384, -16384, 16384, -16384},
			expected: 0.5,
		},
		{
			name:     "empty",
			samples:  nil,
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RMSEnergy(pcmFromSamples(tt.samples))
			if math.Abs(result-tt.expected) > 0.01 {
				t.Errorf("expected RMS %.3f, got %.3f", tt.expected, result)
			}
		})
	}
}

func TestPeakAmplitude(t *testing.T) {
	tests := []struct {
		name     string
		samples  []int16
		expected float64
	}{
		{
			name:     "silence",
			samples:  []int16{0, 0, 0, 0},
			expected: 0.0,
		},
		{
			name:     "positive peak",
			samples:  []int16{0, 16384, 0, 0},
			expected: 0.5,
		},
		{
			name:     "negative peak",
			samples:  []int16{0, -32768, 0, 0},
			expected: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PeakAmplitude(pcmFromSamples(tt.samples))
			if math.Abs(result-tt.expected) > 0.01 {
				t.Errorf("expected peak %.3f, got %.3f", tt.expected, result)
			}
		})
	}
}

func TestClampSample(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected int16
	}{
		{name: "zero", input: 0.0, expected: 0},
		{name: "full scale positive", input: 1.0, expected: 32767},
		{name: "full scale negative", input: -1.0, expected: -32767},
		{name: "over range clamps high", input: 1.5, expected: 32767},
		{name: "under range clamps low", input: -2.0, expected: -32768},
		{name: "half scale", input: 0.5, expected: 16383},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampSample(tt.input); got != tt.expected {
				t.Errorf("ClampSample(%v) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPCM16FloatRoundTrip(t *testing.T) {
	samples := []int16{0, 100, -100, 16384, -16384, 32767, -32768}
	pcm := pcmFromSamples(samples)

	floats := Float64FromPCM16(pcm)
	if len(floats) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(floats))
	}

	back := PCM16FromFloat64(floats)
	if len(back) != len(pcm) {
		t.Fatalf("expected %d bytes, got %d", len(pcm), len(back))
	}

	// Round trip is exact except for the asymmetric -32768, which
	// clamps back to -32767 after normalization by 32768.
	for i, s := range samples {
		got := int16(back[i*2]) | int16(back[i*2+1])<<8
		want := s
		if s == -32768 {
			want = -32767
		}
		if math.Abs(float64(got)-float64(want)) > 1 {
			t.Errorf("sample %d: got %d, want %d", i, got, want)
		}
	}
}

func TestPCM16FromFloat64_ClampsOutOfRange(t *testing.T) {
	pcm := PCM16FromFloat64([]float64{2.0, -2.0})
	want := pcmFromSamples([]int16{32767, -32768})
	if !bytes.Equal(pcm, want) {
		t.Errorf("expected %v, got %v", want, pcm)
	}
}

func TestFloat64FromPCM16_OddTrailingByte(t *testing.T) {
	got := Float64FromPCM16([]byte{0x00, 0x40, 0x7F})
	if len(got) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(got))
	}
	if math.Abs(got[0]-0.5) > 0.01 {
		t.Errorf("expected 0.5, got %.3f", got[0])
	}
}

func TestAudioConfig(t *testing.T) {
	in := DefaultInputConfig()

	// 16kHz, mono, 16-bit = 32000 bytes/second
	if in.BytesPerSecond() != 32000 {
		t.Errorf("expected 32000 bytes/sec, got %d", in.BytesPerSecond())
	}

	// 1000ms = 32000 bytes
	if in.BytesForDuration(1000) != 32000 {
		t.Errorf("expected 32000 bytes for 1s, got %d", in.BytesForDuration(1000))
	}

	// 32000 bytes = 1000ms
	if in.DurationMS(32000) != 1000 {
		t.Errorf("expected 1000ms for 32000 bytes, got %d", in.DurationMS(32000))
	}

	out := DefaultOutputConfig()

	// 24kHz, mono, 16-bit = 48000 bytes/second
	if out.BytesPerSecond() != 48000 {
		t.Errorf("expected 48000 bytes/sec, got %d", out.BytesPerSecond())
	}

	var zero AudioConfig
	if zero.DurationMS(48000) != 0 {
		t.Errorf("expected 0ms for zero config, got %d", zero.DurationMS(48000))
	}
}

func TestBuffer(t *testing.T) {
	cfg := DefaultOutputConfig()
	buf := NewBuffer(cfg, 100) // 100ms buffer

	// Write 50ms of audio
	data50ms := make([]byte, cfg.BytesForDuration(50))
	for i := range data50ms {
		data50ms[i] = byte(i % 256)
	}
	buf.Write(data50ms)

	if buf.DurationMS() != 50 {
		t.Errorf("expected 50ms, got %dms", buf.DurationMS())
	}

	// Write another 100ms (should trim to 100ms total)
	data100ms := make([]byte, cfg.BytesForDuration(100))
	buf.Write(data100ms)

	if buf.DurationMS() != 100 {
		t.Errorf("expected 100ms (capped), got %dms", buf.DurationMS())
	}

	// ReadLast returns the newest audio
	last := buf.ReadLast(20)
	if len(last) != cfg.BytesForDuration(20) {
		t.Errorf("expected %d bytes, got %d", cfg.BytesForDuration(20), len(last))
	}

	// Clear
	buf.Clear()
	if buf.Len() != 0 {
		t.Errorf("expected 0 after clear, got %d", buf.Len())
	}
}

func TestBuffer_ReadLastLongerThanBuffered(t *testing.T) {
	cfg := DefaultOutputConfig()
	buf := NewBuffer(cfg, 200)

	data := make([]byte, cfg.BytesForDuration(30))
	buf.Write(data)

	last := buf.ReadLast(100)
	if len(last) != len(data) {
		t.Errorf("expected %d bytes, got %d", len(data), len(last))
	}
}

func TestRingBuffer(t *testing.T) {
	cfg := DefaultOutputConfig()
	ring := NewRingBuffer(cfg, 100) // 100ms

	// Write 50ms
	data50ms := make([]byte, cfg.BytesForDuration(50))
	for i := range data50ms {
		data50ms[i] = byte(i % 256)
	}
	ring.Write(data50ms)

	if ring.Filled() != len(data50ms) {
		t.Errorf("expected %d filled, got %d", len(data50ms), ring.Filled())
	}

	// Read should return exactly what we wrote
	read := ring.Read()
	if len(read) != len(data50ms) {
		t.Errorf("expected %d bytes, got %d", len(data50ms), len(read))
	}
	if !bytes.Equal(read, data50ms) {
		t.Error("read data does not match written data")
	}

	// Write 100ms more (should wrap around)
	data100ms := make([]byte, cfg.BytesForDuration(100))
	for i := range data100ms {
		data100ms[i] = byte((i + 100) % 256)
	}
	ring.Write(data100ms)

	// Should now be full (100ms = size)
	read = ring.Read()
	expectedSize := cfg.BytesForDuration(100)
	if len(read) != expectedSize {
		t.Errorf("expected %d bytes (full), got %d", expectedSize, len(read))
	}
	if !bytes.Equal(read, data100ms) {
		t.Error("expected wrapped read to return the newest window")
	}

	// Clear
	ring.Clear()
	if ring.Filled() != 0 {
		t.Errorf("expected 0 filled after clear, got %d", ring.Filled())
	}
}

func TestRingBuffer_ZeroDuration(t *testing.T) {
	ring := NewRingBuffer(DefaultOutputConfig(), 0)

	ring.Write([]byte{1, 2, 3, 4})

	if ring.Filled() != 0 {
		t.Errorf("expected 0 filled, got %d", ring.Filled())
	}
	if read := ring.Read(); len(read) != 0 {
		t.Errorf("expected empty read, got %d bytes", len(read))
	}
}
