package asr

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/audio"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/hermes"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/metrics"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/silence"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/transcriber"
)

// Normalizer converts an inbound WAV frame to raw PCM in the required profile.
type Normalizer interface {
	Normalize(ctx context.Context, wav []byte) ([]byte, error)
}

// Publisher carries outbound session events back to the transport.
type Publisher interface {
	TextCaptured(ev hermes.TextCaptured)
	Error(ev hermes.Error)
}

// Config holds the service's static settings.
type Config struct {
	Profile       audio.Profile
	ResultTimeout time.Duration // bounded wait for a worker's result at finalize
	Enabled       bool
	SiteIDs       []string // empty means all sites
}

func DefaultConfig() Config {
	return Config{
		Profile:       audio.DefaultProfile(),
		ResultTimeout: time.Second,
		Enabled:       true,
	}
}

// Deps are the service's collaborators.
type Deps struct {
	Engines    transcriber.Factory
	Detectors  func() silence.Detector
	Normalizer Normalizer
	Publisher  Publisher
	Logger     *log.Logger
	Metrics    *metrics.Metrics
}

// Service is the session registry, audio frame router, and finalizer. All
// operations are serialized through one mutex, mirroring the single
// message-dispatch goroutine they are called from; the only concurrency is
// between the dispatch side and the pooled worker goroutines.
type Service struct {
	cfg  Config
	deps Deps

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	enabled    bool
	sessions   map[string]*session
	free       []*worker
	nextWorker int
	firstAudio bool
}

// session binds a caller-supplied id to its assigned worker for the time the
// session is active.
type session struct {
	id     string
	siteID string
	worker *worker
	job    *job
}

func New(cfg Config, deps Deps) *Service {
	if cfg.ResultTimeout <= 0 {
		cfg.ResultTimeout = time.Second
	}
	if cfg.Profile == (audio.Profile{}) {
		cfg.Profile = audio.DefaultProfile()
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:        cfg,
		deps:       deps,
		ctx:        ctx,
		cancel:     cancel,
		enabled:    cfg.Enabled,
		sessions:   make(map[string]*session),
		firstAudio: true,
	}
}

// StartListening opens a session. An existing session with the same id is
// finalized and removed first, so a duplicate start acts as a restart.
func (s *Service) StartListening(sessionID, siteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || !s.siteAllowedLocked(siteID) {
		return
	}

	if sess, ok := s.sessions[sessionID]; ok {
		s.deps.Logger.Warn("session already exists, restarting", "session", sessionID, "site", siteID)
		s.stopLocked(sess, siteID)
	}

	w := s.takeWorkerLocked()
	j := &job{
		frames: newFrameQueue(),
		result: make(chan transcriber.Result, 1),
	}
	sess := &session{id: sessionID, siteID: siteID, worker: w, job: j}

	w.busy = true
	w.jobs <- j // arm the worker; never blocks, pooled workers are parked on this channel
	w.detector.Start()
	s.sessions[sessionID] = sess
	s.firstAudio = true

	s.deps.Metrics.SessionsStarted.Inc()
	s.deps.Metrics.SessionsActive.Set(float64(len(s.sessions)))
	s.deps.Logger.Debug("listening started", "session", sessionID, "site", siteID, "worker", w.id)
}

// StopListening closes a session, emits its result, and returns the worker
// to the free pool. A stop for an unknown session is a no-op.
func (s *Service) StopListening(sessionID, siteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || !s.siteAllowedLocked(siteID) {
		return
	}

	sess, ok := s.sessions[sessionID]
	if !ok {
		s.deps.Logger.Debug("stop for unknown session", "session", sessionID, "site", siteID)
		return
	}
	s.stopLocked(sess, siteID)
	s.deps.Logger.Debug("listening stopped", "session", sessionID, "site", siteID)
}

func (s *Service) stopLocked(sess *session, siteID string) {
	delete(s.sessions, sess.id)
	s.finalizeLocked(sess, siteID)

	// A worker whose engine already finished is pooled right away; one still
	// streaming returns itself to the pool when the engine comes back. An
	// engine that outlives the finalize timeout keeps its worker out of
	// circulation instead of leaving a wedged worker for the next hand-off.
	if !sess.worker.busy {
		s.free = append(s.free, sess.worker)
		s.deps.Metrics.WorkersFree.Inc()
	}

	s.deps.Metrics.SessionsStopped.Inc()
	s.deps.Metrics.SessionsActive.Set(float64(len(s.sessions)))
}

// HandleFrame normalizes one inbound WAV frame and routes it to every active
// session's queue and detector. Per-session failures are isolated: one
// session's error never stops routing for the others.
func (s *Service) HandleFrame(wav []byte, siteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || !s.siteAllowedLocked(siteID) {
		return
	}
	if len(s.sessions) == 0 {
		return
	}

	if s.firstAudio {
		s.deps.Logger.Debug("receiving audio", "site", siteID)
		s.firstAudio = false
	}

	pcm, err := s.deps.Normalizer.Normalize(s.ctx, wav)
	if err != nil {
		s.deps.Metrics.FrameErrors.Inc()
		s.publishError(err, "audioFrame", siteID, "")
		return
	}
	s.deps.Metrics.FramesReceived.Inc()

	for id, sess := range s.sessions {
		sess.job.frames.Push(pcm)

		end, err := sess.worker.detector.ProcessChunk(pcm)
		if err != nil {
			s.deps.Metrics.FrameErrors.Inc()
			s.publishError(err, "audioFrame", siteID, id)
			continue
		}
		if end {
			s.deps.Logger.Debug("end of command detected", "session", id, "site", siteID)
			s.finalizeLocked(sess, siteID)
		}
	}
}

// finalizeLocked emits the session's transcription exactly once. It is
// entered from two independent triggers (explicit stop and detector-signaled
// end); the atomic check-and-set on the delivered flag lets only the first
// caller drain the stream and wait for the result. A missing or late result
// degrades to the canonical empty transcript, never an error.
func (s *Service) finalizeLocked(sess *session, siteID string) {
	sess.worker.detector.Stop()

	if !sess.job.delivered.CompareAndSwap(false, true) {
		return
	}

	start := time.Now()
	sess.job.frames.Close() // end-of-stream sentinel, enqueued at most once

	var result transcriber.Result
	timer := time.NewTimer(s.cfg.ResultTimeout)
	defer timer.Stop()

	select {
	case r, ok := <-sess.job.result:
		if ok {
			result = r
		}
	case <-timer.C:
		s.deps.Metrics.ResultTimeouts.Inc()
		s.deps.Logger.Warn("timed out waiting for result", "session", sess.id, "timeout", s.cfg.ResultTimeout)
	}

	if result.Text == "" {
		s.deps.Metrics.EmptyResults.Inc()
	}
	s.deps.Metrics.TextCaptured.Inc()
	s.deps.Metrics.FinalizeDuration.Observe(time.Since(start).Seconds())

	s.deps.Publisher.TextCaptured(hermes.TextCaptured{
		Text:       result.Text,
		Likelihood: result.Likelihood,
		Seconds:    result.Seconds,
		SiteID:     siteID,
		SessionID:  sess.id,
	})
	s.deps.Logger.Info("text captured", "session", sess.id, "site", siteID, "text", result.Text)
}

// ToggleOn enables the service if the site passes the filter.
func (s *Service) ToggleOn(siteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.siteAllowedLocked(siteID) {
		return
	}
	s.enabled = true
	s.deps.Logger.Debug("asr enabled", "site", siteID)
}

// ToggleOff disables the service if the site passes the filter.
func (s *Service) ToggleOff(siteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.siteAllowedLocked(siteID) {
		return
	}
	s.enabled = false
	s.deps.Logger.Debug("asr disabled", "site", siteID)
}

// SetEnabled flips the enabled state directly, bypassing the site filter.
// Used by the local control socket.
func (s *Service) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *Service) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close finalizes nothing; it drops all sessions, unblocks the worker loops,
// and waits for them to exit.
func (s *Service) Close() {
	s.mu.Lock()
	for _, sess := range s.sessions {
		sess.worker.detector.Stop()
		sess.job.frames.Close()
	}
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Service) siteAllowedLocked(siteID string) bool {
	if len(s.cfg.SiteIDs) == 0 {
		return true
	}
	for _, id := range s.cfg.SiteIDs {
		if id == siteID {
			return true
		}
	}
	return false
}

func (s *Service) publishError(err error, context, siteID, sessionID string) {
	s.deps.Logger.Error("session error", "session", sessionID, "site", siteID, "err", err)
	s.deps.Publisher.Error(hermes.Error{
		Error:     err.Error(),
		Context:   context,
		SiteID:    siteID,
		SessionID: sessionID,
	})
}
