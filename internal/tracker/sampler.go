package tracker

import (
	"context"
	"errors"
	"sync"
	"time"
)

const DefaultFirstFixTimeout = 15 * time.Second

var (
	ErrTimeout = errors.New("timed out waiting for first location fix")
	ErrStopped = errors.New("sampler stopped")
)

// Sampler keeps the most recent reading of a Source. It samples only while
// the app is visible and the user is logged in.
type Sampler struct {
	src             Source
	FirstFixTimeout time.Duration

	mu       sync.RWMutex
	latest   *Reading
	err      error
	visible  bool
	loggedIn bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSampler(src Source) *Sampler {
	return &Sampler{src: src, FirstFixTimeout: DefaultFirstFixTimeout, visible: true}
}

func (s *Sampler) Latest() (Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Reading{}, false
	}
	return *s.latest, true
}

// Err is the last source error, cleared by the next good reading.
func (s *Sampler) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Sampler) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancel != nil
}

func (s *Sampler) SetVisible(ctx context.Context, visible bool) error {
	s.mu.Lock()
	s.visible = visible
	s.mu.Unlock()
	return s.reconcile(ctx)
}

func (s *Sampler) SetLoggedIn(ctx context.Context, loggedIn bool) error {
	s.mu.Lock()
	s.loggedIn = loggedIn
	s.mu.Unlock()
	return s.reconcile(ctx)
}

func (s *Sampler) reconcile(ctx context.Context) error {
	s.mu.RLock()
	want := s.visible && s.loggedIn
	s.mu.RUnlock()
	if want {
		return s.Start(ctx)
	}
	s.Stop()
	return nil
}

// Start begins sampling and blocks until the first fix arrives, ctx ends,
// or FirstFixTimeout elapses. A timeout stops the sampler; there is no retry.
func (s *Sampler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	watchCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	firstFix := make(chan struct{})
	go s.run(watchCtx, done, firstFix)

	timer := time.NewTimer(s.FirstFixTimeout)
	defer timer.Stop()

	select {
	case <-firstFix:
		return nil
	case <-done:
		select {
		case <-firstFix:
			return nil
		default:
		}
		s.Stop()
		return ErrStopped
	case <-timer.C:
		s.fail(ErrTimeout)
		s.Stop()
		return ErrTimeout
	case <-ctx.Done():
		s.Stop()
		return ctx.Err()
	}
}

func (s *Sampler) run(ctx context.Context, done, firstFix chan struct{}) {
	defer close(done)

	readings, errs := s.src.Watch(ctx)
	var once sync.Once
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-readings:
			if !ok {
				return
			}
			s.mu.Lock()
			s.latest = &r
			s.err = nil
			s.mu.Unlock()
			once.Do(func() { close(firstFix) })
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.fail(err)
		}
	}
}

func (s *Sampler) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Stop ends sampling. It is safe to call repeatedly.
func (s *Sampler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
