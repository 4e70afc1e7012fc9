package asr

import (
	"bytes"
	"testing"
	"time"
)

func TestFrameQueueOrder(t *testing.T) {
	q := newFrameQueue()

	frames := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	for _, f := range frames {
		q.Push(f)
	}
	q.Close()

	var got [][]byte
	for f := range q.out {
		got = append(got, f)
	}
	if len(got) != len(frames) {
		t.Fatalf("got %d frames, want %d", len(got), len(frames))
	}
	for i := range frames {
		if !bytes.Equal(got[i], frames[i]) {
			t.Errorf("frame %d: got %q, want %q", i, got[i], frames[i])
		}
	}
}

func TestFrameQueuePushNeverBlocks(t *testing.T) {
	q := newFrameQueue()
	defer func() {
		q.Close()
		q.discard()
	}()

	// No reader on out; pushes beyond the in buffer must still return.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			q.Push([]byte{byte(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Push blocked with no reader")
	}
}

func TestFrameQueuePushAfterCloseIsDropped(t *testing.T) {
	q := newFrameQueue()

	q.Push([]byte("kept"))
	q.Close()
	q.Push([]byte("dropped"))

	var got [][]byte
	for f := range q.out {
		got = append(got, f)
	}
	if len(got) != 1 || !bytes.Equal(got[0], []byte("kept")) {
		t.Errorf("got %q, want only the pre-close frame", got)
	}
}

func TestFrameQueueCloseIsIdempotent(t *testing.T) {
	q := newFrameQueue()
	q.Close()
	q.Close() // must not panic

	if _, ok := <-q.out; ok {
		t.Error("expected closed out channel")
	}
}

func TestFrameQueueDiscardUnblocksShuttle(t *testing.T) {
	q := newFrameQueue()
	for i := 0; i < 100; i++ {
		q.Push([]byte("x"))
	}
	q.Close()

	done := make(chan struct{})
	go func() {
		q.discard()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("discard did not drain the queue")
	}
}
