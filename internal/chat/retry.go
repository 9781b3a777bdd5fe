package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

// Retry defaults.
const (
	DefaultAttempts = 3
	DefaultTimeout  = 5 * time.Second
	DefaultBackoff  = 200 * time.Millisecond
)

// Retrying wraps a Provisioner with a per-attempt timeout and linear
// backoff. Only CreateRoom retries; archive and membership calls are best
// effort and get a single bounded attempt.
type Retrying struct {
	next     Provisioner
	attempts int
	timeout  time.Duration
	backoff  time.Duration
	logger   *slog.Logger
}

// RetryOption configures Retrying.
type RetryOption func(*Retrying)

// WithAttempts sets the number of CreateRoom attempts.
func WithAttempts(n int) RetryOption {
	return func(r *Retrying) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithAttemptTimeout bounds every attempt.
func WithAttemptTimeout(d time.Duration) RetryOption {
	return func(r *Retrying) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithBackoff sets the base delay; attempt n waits n*d before running.
func WithBackoff(d time.Duration) RetryOption {
	return func(r *Retrying) {
		if d >= 0 {
			r.backoff = d
		}
	}
}

// WithRetryLogger sets the logger for failed attempts.
func WithRetryLogger(l *slog.Logger) RetryOption {
	return func(r *Retrying) {
		r.logger = l
	}
}

// NewRetrying decorates next.
func NewRetrying(next Provisioner, opts ...RetryOption) *Retrying {
	r := &Retrying{
		next:     next,
		attempts: DefaultAttempts,
		timeout:  DefaultTimeout,
		backoff:  DefaultBackoff,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateRoom retries until success, a permanent error, or ctx is done.
// Failures come back as *wave.ProvisioningError keyed by the wave id.
func (r *Retrying) CreateRoom(ctx context.Context, key string, participantIDs []string) (string, error) {
	var lastErr error
	attempt := 0
	for attempt < r.attempts {
		if attempt > 0 && r.backoff > 0 {
			timer := time.NewTimer(time.Duration(attempt) * r.backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", &wave.ProvisioningError{WaveID: key, Attempts: attempt, Err: ctx.Err()}
			case <-timer.C:
			}
		}
		attempt++

		roomID, err := r.once(ctx, func(ctx context.Context) (string, error) {
			return r.next.CreateRoom(ctx, key, participantIDs)
		})
		if err == nil {
			return roomID, nil
		}
		lastErr = err
		r.logger.Warn("chat room attempt failed", "wave_id", key, "attempt", attempt, "error", err)

		if isPermanent(err) || ctx.Err() != nil {
			break
		}
	}
	return "", &wave.ProvisioningError{WaveID: key, Attempts: attempt, Err: lastErr}
}

func (r *Retrying) ArchiveRoom(ctx context.Context, roomID string) error {
	_, err := r.once(ctx, func(ctx context.Context) (string, error) {
		return "", r.next.ArchiveRoom(ctx, roomID)
	})
	return err
}

func (r *Retrying) AddMember(ctx context.Context, roomID, userID string) error {
	_, err := r.once(ctx, func(ctx context.Context) (string, error) {
		return "", r.next.AddMember(ctx, roomID, userID)
	})
	return err
}

func (r *Retrying) once(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return fn(attemptCtx)
}
