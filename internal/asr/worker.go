package asr

import (
	"sync/atomic"
	"time"

	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/silence"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/transcriber"
)

// worker owns one transcription engine and one silence detector. Its run
// loop lives for the process lifetime and is recycled between sessions
// through the free pool. The engine is built lazily inside the loop on first
// assignment, so construction cost is paid once per worker, not per session.
type worker struct {
	id       int
	detector silence.Detector
	jobs     chan *job
	engine   transcriber.Transcriber // touched only by the run loop
	busy     bool                    // guarded by s.mu; true from hand-off until the run loop finishes the job
}

// job is the per-session state handed to a worker: the session's frame
// queue and the one-shot result channel. Dropping the job after stop is what
// resets the worker's transient state.
type job struct {
	frames    *frameQueue
	result    chan transcriber.Result // buffered 1; closed without a value on engine failure
	delivered atomic.Bool             // exactly-once guard for the finalizer
}

// takeWorkerLocked pops a free worker or spawns a new one. Caller holds s.mu.
func (s *Service) takeWorkerLocked() *worker {
	if n := len(s.free); n > 0 {
		w := s.free[n-1]
		s.free = s.free[:n-1]
		s.deps.Metrics.WorkersFree.Dec()
		s.deps.Logger.Debug("re-using pooled worker", "worker", w.id)
		return w
	}

	w := &worker{
		id:       s.nextWorker,
		detector: s.deps.Detectors(),
		jobs:     make(chan *job, 1),
	}
	s.nextWorker++
	s.deps.Metrics.WorkersSpawned.Inc()
	s.deps.Logger.Debug("spawning worker", "worker", w.id)

	s.wg.Add(1)
	go s.runWorker(w)
	return w
}

// runWorker cycles Idle (blocked on jobs) -> Streaming (engine consuming the
// frame queue) -> Produced (result delivered) -> Idle, for the process
// lifetime. Engine failures never terminate the loop.
func (s *Service) runWorker(w *worker) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			w.drainQueued()
			return
		case j := <-w.jobs:
			s.serveJob(w, j)
			s.releaseWorker(w)
		}
	}
}

// releaseWorker marks the worker idle once serveJob returned. It re-pools
// the worker unless its session is still registered, in which case stop
// pools it later. A pooled worker is therefore always parked on its empty
// jobs channel, and the hand-off in StartListening can never block on a
// worker whose engine is still wedged in a previous stream.
func (s *Service) releaseWorker(w *worker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.busy = false
	if s.ctx.Err() != nil {
		return
	}
	for _, sess := range s.sessions {
		if sess.worker == w {
			return
		}
	}
	s.free = append(s.free, w)
	s.deps.Metrics.WorkersFree.Inc()
}

// drainQueued releases a job that was handed off but never picked up before
// shutdown, so its frame queue's shuttle goroutine can exit.
func (w *worker) drainQueued() {
	select {
	case j := <-w.jobs:
		close(j.result)
		j.frames.Close()
		j.frames.discard()
	default:
	}
}

func (s *Service) serveJob(w *worker, j *job) {
	// Leave no frames behind on aborted streams, or the queue's shuttle
	// goroutine never exits. The queue may not have been closed yet when the
	// engine bails out on its own, so close it here too.
	defer func() {
		j.frames.Close()
		j.frames.discard()
	}()

	if w.engine == nil {
		engine, err := s.deps.Engines()
		if err != nil {
			s.deps.Metrics.EngineFailures.Inc()
			s.deps.Logger.Error("engine construction failed", "worker", w.id, "err", err)
			close(j.result)
			return
		}
		w.engine = engine
	}

	start := time.Now()
	result, err := w.engine.TranscribeStream(s.ctx, j.frames.out, s.cfg.Profile)
	if err != nil {
		// Respawn policy: never hand a possibly broken engine to the next
		// session. Drop it and rebuild lazily on the next assignment.
		w.engine = nil
		s.deps.Metrics.EngineFailures.Inc()
		if transcriber.IsFatalTranscriptionError(err) {
			s.deps.Logger.Error("engine unusable, rebuilding on next session", "worker", w.id, "err", err)
		} else {
			s.deps.Logger.Error("transcription failed", "worker", w.id, "err", err)
		}
		close(j.result)
		return
	}

	s.deps.Metrics.TranscribeDuration.Observe(time.Since(start).Seconds())
	j.result <- result
}
