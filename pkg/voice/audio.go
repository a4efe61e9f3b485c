package voice

import (
	"math"
	"sync"
)

// AudioConfig specifies PCM audio format parameters.
type AudioConfig struct {
	// SampleRateHz in Hz. The live service uses 16000 up and 24000 down.
	SampleRateHz int `json:"sample_rate_hz"`

	// Channels: 1 for mono, 2 for stereo.
	Channels int `json:"channels"`

	// BitsPerSample: typically 16 for PCM.
	BitsPerSample int `json:"bits_per_sample"`
}

// DefaultInputConfig returns the capture-side format: 16 kHz mono pcm16le.
func DefaultInputConfig() AudioConfig {
	return AudioConfig{SampleRateHz: 16000, Channels: 1, BitsPerSample: 16}
}

// DefaultOutputConfig returns the playback-side format: 24 kHz mono pcm16le.
func DefaultOutputConfig() AudioConfig {
	return AudioConfig{SampleRateHz: 24000, Channels: 1, BitsPerSample: 16}
}

// BytesPerSecond returns the audio byte rate.
func (c AudioConfig) BytesPerSecond() int {
	return c.SampleRateHz * c.Channels * (c.BitsPerSample / 8)
}

// DurationMS returns the duration in milliseconds for the given byte count.
func (c AudioConfig) DurationMS(bytes int) int {
	if c.BytesPerSecond() == 0 {
		return 0
	}
	return (bytes * 1000) / c.BytesPerSecond()
}

// BytesForDuration returns the byte count for the given duration in milliseconds.
func (c AudioConfig) BytesForDuration(ms int) int {
	return (c.BytesPerSecond() * ms) / 1000
}

// ClampSample converts a normalized float sample (-1.0..1.0) to int16,
// clamping values outside the representable range.
func ClampSample(v float64) int16 {
	scaled := v * 32767.0
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return int16(scaled)
}

// PCM16FromFloat64 converts normalized float samples to little-endian
// 16-bit PCM, clamping each sample.
func PCM16FromFloat64(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := ClampSample(s)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// Float64FromPCM16 converts little-endian 16-bit PCM to normalized float
// samples. A trailing odd byte is ignored.
func Float64FromPCM16(pcm []byte) []float64 {
	n := len(pcm) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		sample := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float64(sample) / 32768.0
	}
	return out
}

// RMSEnergy computes the root-mean-square energy of PCM audio.
// Input is assumed to be 16-bit signed little-endian PCM.
// Returns a value between 0.0 and 1.0.
func RMSEnergy(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < len(pcm)-1; i += 2 {
		sample := int16(pcm[i]) | int16(pcm[i+1])<<8
		normalized := float64(sample) / 32768.0
		sum += normalized * normalized
	}

	return math.Sqrt(sum / float64(samples))
}

// PeakAmplitude returns the maximum absolute amplitude in the PCM data.
// Returns a value between 0.0 and 1.0.
func PeakAmplitude(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}

	var maxAbs float64
	for i := 0; i < len(pcm)-1; i += 2 {
		sample := int16(pcm[i]) | int16(pcm[i+1])<<8
		// float64 avoids overflow when negating -32768
		abs := math.Abs(float64(sample))
		if abs > maxAbs {
			maxAbs = abs
		}
	}

	return maxAbs / 32768.0
}

// Buffer accumulates PCM audio chunks with a configurable maximum size.
type Buffer struct {
	mu       sync.Mutex
	data     []byte
	maxBytes int
	config   AudioConfig
}

// NewBuffer creates a buffer that holds up to maxDurationMS of audio.
func NewBuffer(config AudioConfig, maxDurationMS int) *Buffer {
	maxBytes := config.BytesForDuration(maxDurationMS)
	return &Buffer{
		data:     make([]byte, 0, maxBytes),
		maxBytes: maxBytes,
		config:   config,
	}
}

// Write appends audio data to the buffer.
// If the buffer would exceed its maximum size, the oldest data is discarded.
func (b *Buffer) Write(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, data...)

	if len(b.data) > b.maxBytes {
		excess := len(b.data) - b.maxBytes
		b.data = b.data[excess:]
	}
}

// Read returns a copy of all buffered audio data.
func (b *Buffer) Read() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := make([]byte, len(b.data))
	copy(result, b.data)
	return result
}

// ReadLast returns the last durationMS of audio.
func (b *Buffer) ReadLast(durationMS int) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.config.BytesForDuration(durationMS)
	if n > len(b.data) {
		n = len(b.data)
	}

	result := make([]byte, n)
	copy(result, b.data[len(b.data)-n:])
	return result
}

// Len returns the current buffer size in bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// DurationMS returns the current buffer duration in milliseconds.
func (b *Buffer) DurationMS() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.config.DurationMS(len(b.data))
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = b.data[:0]
}

// RMSEnergy calculates the RMS energy of the buffered audio.
func (b *Buffer) RMSEnergy() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return RMSEnergy(b.data)
}

// PeakAmplitude returns the peak amplitude of the buffered audio.
func (b *Buffer) PeakAmplitude() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return PeakAmplitude(b.data)
}

// RingBuffer is a fixed-size circular buffer for audio data.
// It overwrites the oldest data when full.
type RingBuffer struct {
	mu       sync.Mutex
	data     []byte
	size     int
	writePos int
	filled   int
}

// NewRingBuffer creates a ring buffer that holds exactly durationMS of audio.
func NewRingBuffer(config AudioConfig, durationMS int) *RingBuffer {
	size := config.BytesForDuration(durationMS)
	return &RingBuffer{
		data: make([]byte, size),
		size: size,
	}
}

// Write adds data to the ring buffer, overwriting old data if necessary.
// A zero-capacity buffer discards everything.
func (r *RingBuffer) Write(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return
	}
	for _, b := range data {
		r.data[r.writePos] = b
		r.writePos = (r.writePos + 1) % r.size
		if r.filled < r.size {
			r.filled++
		}
	}
}

// Read returns all data in the buffer in chronological order.
func (r *RingBuffer) Read() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.filled < r.size {
		result := make([]byte, r.filled)
		copy(result, r.data[:r.filled])
		return result
	}

	result := make([]byte, r.size)
	firstPart := r.size - r.writePos
	copy(result[:firstPart], r.data[r.writePos:])
	copy(result[firstPart:], r.data[:r.writePos])
	return result
}

// Clear resets the ring buffer.
func (r *RingBuffer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writePos = 0
	r.filled = 0
}

// Filled returns how many bytes have been written.
func (r *RingBuffer) Filled() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filled
}
