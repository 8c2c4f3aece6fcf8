package extraction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
	}
}

// HTTPError is a non-2xx answer from the extractor endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("extractor returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Retryable is true for 429 and 5xx. Other 4xx answers are final.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func withRetry[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				log.Debug().Int("attempt", attempt+1).Msg("extractor succeeded after retry")
			}
			return result, nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return zero, err
		}
		if attempt < cfg.MaxRetries {
			delay := backoff(attempt, cfg)
			log.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("extractor call failed, retrying")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}

	log.Error().Err(lastErr).Int("attempts", cfg.MaxRetries+1).Msg("extractor call failed")
	return zero, lastErr
}

func shouldRetry(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, errTransport)
}

// backoff is BaseDelay * Multiplier^attempt, capped at MaxDelay, with +-20% jitter.
func backoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	delay *= 0.8 + rand.Float64()*0.4
	return time.Duration(delay)
}
