package redirect

import (
	"sync"
	"time"
)

// Emitter receives countdown and navigation events. The web layer forwards
// them to the operator's browser, which performs the actual navigation.
type Emitter interface {
	EmitCountdownTick(executionID int64, secondsLeft int)
	EmitRedirectPerformed(executionID int64, url string, newTab bool)
	EmitRedirectCancelled(executionID int64)
}

// Scheduler counts down toward a single browser redirect after a successful
// attempt. The countdown is cancellable and the operator can jump it: navigate
// immediately, open in a new tab, or cancel. However it ends, navigation
// happens at most once.
type Scheduler struct {
	executionID int64
	url         string
	seconds     int
	tickEvery   time.Duration
	emitter     Emitter

	mu        sync.Mutex
	stopChan  chan struct{}
	stopped   bool
	navigated bool
}

func NewScheduler(executionID int64, url string, seconds int, emitter Emitter) *Scheduler {
	if seconds <= 0 {
		seconds = 3
	}
	return &Scheduler{
		executionID: executionID,
		url:         url,
		seconds:     seconds,
		tickEvery:   time.Second,
		emitter:     emitter,
		stopChan:    make(chan struct{}),
	}
}

func (s *Scheduler) ExecutionID() int64 { return s.executionID }
func (s *Scheduler) URL() string        { return s.url }

// Start launches the countdown goroutine and returns immediately.
func (s *Scheduler) Start() {
	go s.run()
}

func (s *Scheduler) run() {
	for left := s.seconds; left > 0; left-- {
		s.emitter.EmitCountdownTick(s.executionID, left)
		select {
		case <-s.stopChan:
			return
		case <-time.After(s.tickEvery):
		}
	}

	s.mu.Lock()
	if s.stopped || s.navigated {
		s.mu.Unlock()
		return
	}
	s.navigated = true
	s.mu.Unlock()
	s.emitter.EmitRedirectPerformed(s.executionID, s.url, false)
}

// Cancel stops the countdown without navigating. A cancel that arrives after
// navigation has happened is a no-op.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	if s.stopped || s.navigated {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopChan)
	s.mu.Unlock()
	s.emitter.EmitRedirectCancelled(s.executionID)
}

// NavigateNow skips the rest of the countdown and redirects in place.
func (s *Scheduler) NavigateNow() { s.override(false) }

// OpenNewTab skips the rest of the countdown and opens the catalog in a new
// tab, leaving the console where it is.
func (s *Scheduler) OpenNewTab() { s.override(true) }

func (s *Scheduler) override(newTab bool) {
	s.mu.Lock()
	if s.navigated {
		s.mu.Unlock()
		return
	}
	s.navigated = true
	if !s.stopped {
		s.stopped = true
		close(s.stopChan)
	}
	s.mu.Unlock()
	s.emitter.EmitRedirectPerformed(s.executionID, s.url, newTab)
}

// Done reports whether the scheduler can do nothing further.
func (s *Scheduler) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped || s.navigated
}
