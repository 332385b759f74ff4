package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

var (
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrContextCanceled    = errors.New("context canceled during retry")
)

// Config contains retry configuration
type Config struct {
	// MaxRetries excludes the initial attempt
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// JitterFactor in [0,1]; 0.1 means ±10%
	JitterFactor float64
}

// DefaultConfig backs off 200ms, 400ms, 800ms
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// Operation is the function to be retried
type Operation func(ctx context.Context) error

// PermanentError stops retrying immediately
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks an error as not retryable
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Result describes a finished retry loop
type Result struct {
	// Err is nil on success; otherwise it wraps ErrMaxRetriesExceeded or
	// ErrContextCanceled together with the last attempt's error
	Err           error
	Attempts      int
	TotalDuration time.Duration
	LastError     error
}

// RetryCallback is called before each wait
type RetryCallback func(attempt int, err error, nextInterval time.Duration)

// Retrier runs operations with exponential backoff
type Retrier struct {
	config Config
}

// New creates a Retrier, filling zero values from DefaultConfig
func New(cfg *Config) *Retrier {
	def := DefaultConfig()
	if cfg == nil {
		cfg = def
	}
	c := *cfg
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = def.InitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = def.MaxInterval
	}
	if c.Multiplier <= 0 {
		c.Multiplier = def.Multiplier
	}
	c.JitterFactor = math.Min(math.Max(c.JitterFactor, 0), 1)
	return &Retrier{config: c}
}

// Do executes op until it succeeds, returns a permanent error, or retries run out
func (r *Retrier) Do(ctx context.Context, op Operation) *Result {
	return r.DoWithCallback(ctx, op, nil)
}

// DoWithCallback is Do with a hook invoked before every wait
func (r *Retrier) DoWithCallback(ctx context.Context, op Operation, callback RetryCallback) *Result {
	start := time.Now()
	result := &Result{}

	finish := func(err error) *Result {
		result.Err = err
		result.TotalDuration = time.Since(start)
		return result
	}

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return finish(fmt.Errorf("%w: %v", ErrContextCanceled, ctx.Err()))
		}

		result.Attempts = attempt + 1
		err := op(ctx)
		if err == nil {
			return finish(nil)
		}
		result.LastError = err

		var perm *PermanentError
		if errors.As(err, &perm) {
			result.LastError = perm.Err
			return finish(perm.Err)
		}

		if attempt == r.config.MaxRetries {
			break
		}

		interval := r.interval(attempt)
		if callback != nil {
			callback(attempt+1, err, interval)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return finish(fmt.Errorf("%w: %v", ErrContextCanceled, result.LastError))
		case <-timer.C:
		}
	}

	return finish(fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, result.Attempts, result.LastError))
}

func (r *Retrier) interval(attempt int) time.Duration {
	d := float64(r.config.InitialInterval) * math.Pow(r.config.Multiplier, float64(attempt))
	if r.config.JitterFactor > 0 {
		jitter := d * r.config.JitterFactor
		d += (rand.Float64()*2 - 1) * jitter
	}
	d = math.Min(d, float64(r.config.MaxInterval))
	if d <= 0 {
		d = float64(r.config.InitialInterval)
	}
	return time.Duration(d)
}

// Do runs op with a one-off Retrier
func Do(ctx context.Context, cfg *Config, op Operation) *Result {
	return New(cfg).Do(ctx, op)
}
