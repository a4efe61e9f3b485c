package amarvoice

import (
	"testing"
	"time"
)

func TestAudioOutput_HoldsChunksUntilMinBuffer(t *testing.T) {
	t.Parallel()

	// 24 kHz PCM16 mono: 50 ms is 2400 bytes.
	out := NewAudioOutput(24000, AudioOutputConfig{MinBufferMs: 50})
	defer out.Close()

	out.pushAudio(make([]byte, 1000))

	select {
	case chunk := <-out.Chunks():
		t.Fatalf("chunk of %d bytes delivered before min buffer reached", len(chunk))
	case <-time.After(50 * time.Millisecond):
	}

	out.pushAudio(make([]byte, 1500))

	var total int
	deadline := time.After(time.Second)
	for total < 2500 {
		select {
		case chunk := <-out.Chunks():
			total += len(chunk)
		case <-deadline:
			t.Fatalf("buffered audio never released, got %d bytes", total)
		}
	}
	if total != 2500 {
		t.Fatalf("total=%d, want 2500", total)
	}
}

func TestAudioOutput_DeliversImmediatelyOnceReady(t *testing.T) {
	t.Parallel()

	out := NewAudioOutput(24000, AudioOutputConfig{MinBufferMs: 1})
	defer out.Close()

	out.pushAudio(make([]byte, 100))

	select {
	case chunk := <-out.Chunks():
		if len(chunk) != 100 {
			t.Fatalf("chunk len=%d, want 100", len(chunk))
		}
	case <-time.After(time.Second):
		t.Fatalf("chunk never delivered")
	}
}

func TestAudioOutput_FlushDropsPendingAndSignals(t *testing.T) {
	t.Parallel()

	out := NewAudioOutput(24000, AudioOutputConfig{MinBufferMs: 50})
	defer out.Close()

	// Still below the 2400-byte gate, so this sits in the pending buffer.
	out.pushAudio(make([]byte, 1000))
	out.doFlush()

	select {
	case <-out.Flush():
	case <-time.After(time.Second):
		t.Fatalf("flush signal never arrived")
	}

	select {
	case chunk := <-out.Chunks():
		t.Fatalf("flushed audio still delivered: %d bytes", len(chunk))
	case <-time.After(50 * time.Millisecond):
	}

	// After a flush the gate starts over.
	out.pushAudio(make([]byte, 2400))
	select {
	case <-out.Chunks():
	case <-time.After(time.Second):
		t.Fatalf("audio after flush never delivered")
	}
}

func TestAudioOutput_HandleAudioCallbacks(t *testing.T) {
	t.Parallel()

	out := NewAudioOutput(24000, AudioOutputConfig{MinBufferMs: 1})

	chunkCh := make(chan int, 8)
	flushCh := make(chan struct{}, 1)
	out.HandleAudio(
		func(chunk []byte) { chunkCh <- len(chunk) },
		func() { flushCh <- struct{}{} },
	)

	out.pushAudio(make([]byte, 200))
	select {
	case n := <-chunkCh:
		if n != 200 {
			t.Fatalf("chunk len=%d, want 200", n)
		}
	case <-time.After(time.Second):
		t.Fatalf("onChunk never fired")
	}

	out.doFlush()
	select {
	case <-flushCh:
	case <-time.After(time.Second):
		t.Fatalf("onFlush never fired")
	}

	out.Close()
}

func TestAudioOutput_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	out := NewAudioOutput(24000, AudioOutputConfig{})
	out.Close()
	out.Close()

	// pushAudio after close must not panic.
	out.pushAudio(make([]byte, 100))
}
