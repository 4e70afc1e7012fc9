package asr

import "sync"

// frameQueue is the unbounded FIFO between the frame router and a worker's
// engine stream. The router pushes without blocking; the worker reads frames
// in arrival order from out. Close enqueues the end-of-stream sentinel: the
// reader sees every pushed frame, then channel close. Pushes after Close are
// dropped, so audio arriving after a session is finalized never reaches the
// engine.
type frameQueue struct {
	mu     sync.Mutex
	closed bool
	in     chan []byte
	out    chan []byte
}

func newFrameQueue() *frameQueue {
	q := &frameQueue{
		in:  make(chan []byte, 64),
		out: make(chan []byte),
	}
	go q.shuttle()
	return q
}

func (q *frameQueue) Push(frame []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.in <- frame
}

// Close marks the end of the stream. Safe to call more than once; only the
// first call closes the queue.
func (q *frameQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.in)
}

// shuttle moves frames from in to out through an intermediate buffer so that
// pushes never wait on the reader.
func (q *frameQueue) shuttle() {
	var pending [][]byte
	in := q.in

	for in != nil || len(pending) > 0 {
		var out chan []byte
		var next []byte
		if len(pending) > 0 {
			out = q.out
			next = pending[0]
		}

		select {
		case frame, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			pending = append(pending, frame)
		case out <- next:
			pending = pending[1:]
		}
	}
	close(q.out)
}

// discard drains whatever is left of the stream so the shuttle goroutine can
// exit once the queue is closed. A no-op on fully consumed streams.
func (q *frameQueue) discard() {
	for range q.out {
	}
}
