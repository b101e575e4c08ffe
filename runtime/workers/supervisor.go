package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pair-relay/contract"
	"pair-relay/errors"
)

// RestartPolicy decides how a failing worker is brought back.
type RestartPolicy struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxFailures consecutive failures stop the whole supervisor; zero retries forever.
	MaxFailures int
	// A run lasting StableAfter resets the failure count and the backoff.
	StableAfter time.Duration
}

var DefaultRestartPolicy = RestartPolicy{
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     10 * time.Second,
	MaxFailures:    5,
	StableAfter:    time.Minute,
}

// Supervisor runs each worker in its own goroutine, restarts the ones that
// panic or fail, and lets the ones returning nil finish for good.
// A worker exhausting its restarts stops every other worker and Err reports it.
type Supervisor struct {
	Cancel  context.CancelFunc
	wg      *sync.WaitGroup
	log     *slog.Logger
	policy  RestartPolicy
	workers []contract.Worker

	mu  sync.Mutex
	err error
}

func NewSupervisor(log *slog.Logger) *Supervisor {
	return &Supervisor{wg: &sync.WaitGroup{}, log: log, policy: DefaultRestartPolicy}
}

func (s *Supervisor) WithPolicy(policy RestartPolicy) *Supervisor {
	s.policy = policy
	return s
}

// Run blocks until every worker has returned.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer s.Cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs one worker under supervision.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	name := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()

		failures := 0
		backoff := s.policy.InitialBackoff
		for {
			if ctx.Err() != nil {
				s.log.Info("Stopping worker", "name", name)
				return
			}

			started := time.Now()
			err := s.runOnce(ctx, worker, name)
			if err == nil {
				s.log.Info("Worker finished", "name", name)
				return
			}
			if ctx.Err() != nil {
				s.log.Info("Worker stopped", "name", name)
				return
			}

			if time.Since(started) >= s.policy.StableAfter {
				failures, backoff = 0, s.policy.InitialBackoff
			}
			failures++
			if s.policy.MaxFailures > 0 && failures >= s.policy.MaxFailures {
				s.log.Error("Worker keeps failing, stopping the relay", "name", name, "failures", failures, "error", err)
				s.fail(fmt.Errorf("%w: %s after %d failures: %v", errors.ErrWorkerGaveUp, name, failures, err))
				return
			}

			s.log.Warn("Worker crashed, restarting", "name", name, "error", err, "failures", failures, "backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, s.policy.MaxBackoff)
		}
	}()
}

// runOnce turns a panic into ErrWorkerPanic.
func (s *Supervisor) runOnce(ctx context.Context, worker contract.Worker, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Worker panicked", "name", name, "panic", r)
			err = errors.ErrWorkerPanic
		}
	}()
	return worker.Run(ctx)
}

// Stop cancels every worker; Run returns once they are all done.
func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}

// Err reports the first worker that gave up, nil after a clean stop.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Supervisor) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.Stop()
}
