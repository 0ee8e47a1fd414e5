package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// retrying retries transient provider errors with exponential backoff.
type retrying struct {
	inner Provider
	cfg   RetryConfig
	// wait blocks for d or until ctx is done.
	wait func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps p so that unavailable and rate-limited calls are retried
// up to cfg.MaxAttempts times. An invalid response is retried once.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &retrying{inner: p, cfg: cfg, wait: sleep}
}

func (r *retrying) Generate(ctx context.Context, req Request) (*Response, error) {
	invalidSeen := false
	for attempt := 1; ; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if attempt >= r.cfg.MaxAttempts || ctx.Err() != nil {
			return nil, err
		}

		kind, ok := KindOf(err)
		if !ok {
			return nil, err
		}
		switch kind {
		case KindTruncated, KindRejected:
			return nil, err
		case KindInvalidResponse:
			if invalidSeen {
				return nil, err
			}
			invalidSeen = true
		}

		if werr := r.wait(ctx, r.delay(attempt, err)); werr != nil {
			return nil, werr
		}
	}
}

func (r *retrying) ModelID() string {
	return r.inner.ModelID()
}

// delay is the pause after the given failed attempt, honoring a server
// Retry-After and adding ±20% jitter otherwise.
func (r *retrying) delay(attempt int, err error) time.Duration {
	var e *Error
	if errors.As(err, &e) && e.RetryAfter > 0 {
		return e.RetryAfter
	}
	d := float64(r.cfg.InitialWait) * math.Pow(r.cfg.Multiplier, float64(attempt-1))
	d = math.Min(d, float64(r.cfg.MaxWait))
	d *= 0.8 + 0.4*rand.Float64()
	return time.Duration(max(d, 0))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
