package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/keypad-controller/internal/domain/device"
	"github.com/oshokin/keypad-controller/internal/fsm"
	"github.com/oshokin/keypad-controller/internal/hardware/keypad"
	"github.com/oshokin/keypad-controller/internal/logger"
	repo "github.com/oshokin/keypad-controller/internal/repository/status"
)

// session exposes the login session kept by the action catalog.
type session interface {
	SessionID() string
	LoggedIn() bool
}

// service holds the observable controller status and serves the remote API.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// repo persists every status change; may be nil.
	repo repo.Repository
	// queue receives remote presses.
	queue *keypad.Queue
	// session reports the login session after each step.
	session session
	// status is the current snapshot.
	status *device.Status
	// stop is armed by RequestStop and read by the engine at the checkpoint.
	stop atomic.Bool
	// mu protects status.
	mu sync.RWMutex
}

// newService creates a service reporting the given start state.
func newService(repository repo.Repository, queue *keypad.Queue, sess session, start device.State) *service {
	return &service{
		repo:    repository,
		queue:   queue,
		session: sess,
		status: &device.Status{
			UpdatedAt: time.Now(),
			State:     start,
		},
	}
}

// Press queues keys as if they were typed on the keypad.
func (s *service) Press(_ context.Context, signals []device.Signal) error {
	return s.queue.Push(signals...)
}

// Status returns the current status.
func (s *service) Status(ctx context.Context) *device.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logger.DebugKV(ctx, "Status requested", "state", s.status.State)

	return s.status.Clone()
}

// RequestStop arms the stop policy. The engine stops at the next Active+# checkpoint.
func (s *service) RequestStop(ctx context.Context) *device.Status {
	s.stop.Store(true)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.StopRequested = true
	s.status.UpdatedAt = time.Now()
	s.persist(ctx)

	return s.status.Clone()
}

// stopRequested is the engine's stop policy.
func (s *service) stopRequested() bool {
	return s.stop.Load()
}

// observe records the outcome of every engine step.
func (s *service) observe(ctx context.Context, result fsm.MatchResult) {
	s.update(ctx, result.To, result.Signal)
}

// update replaces the snapshot with the given state and the current session.
func (s *service) update(ctx context.Context, state device.State, last device.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = &device.Status{
		UpdatedAt:     time.Now(),
		State:         state,
		LastSignal:    last,
		StopRequested: s.stop.Load(),
	}

	if s.session != nil && s.session.LoggedIn() {
		s.status.LoggedIn = true
		s.status.SessionID = s.session.SessionID()
	}

	s.persist(ctx)
}

// persist saves the snapshot; the caller holds mu. Failures are logged only.
func (s *service) persist(ctx context.Context) {
	if s.repo == nil {
		return
	}

	if err := s.repo.Save(ctx, s.status); err != nil {
		logger.ErrorKV(ctx, "Failed to persist status", "error", err)
	}
}
