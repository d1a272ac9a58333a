package genai

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/lsvinicius/mental-health/domain"
)

const (
	defaultMaxAttempts = 5
	// Base of the backoff between attempts: the n-th failure sleeps
	// baseDelaySeconds^n seconds (3s, 9s, 27s, 81s).
	baseDelaySeconds = 3
)

// RetryingClient wraps an AnalyzerClient with a bounded retry loop. Any
// provider failure, including malformed JSON, is treated as retryable until
// the attempt budget runs out; then it fails with
// domain.ErrAnalysisUnavailable.
type RetryingClient struct {
	inner       AnalyzerClient
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewRetryingClient wraps the given client with the default retry budget.
func NewRetryingClient(inner AnalyzerClient) *RetryingClient {
	return &RetryingClient{
		inner:       inner,
		maxAttempts: defaultMaxAttempts,
		sleep:       sleepCtx,
	}
}

var _ AnalyzerClient = (*RetryingClient)(nil)

// GetRiskAssessment calls the wrapped client up to maxAttempts times with
// exponential backoff in between.
func (c *RetryingClient) GetRiskAssessment(ctx context.Context, prompt string) (*Analysis, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		analysis, err := c.inner.GetRiskAssessment(ctx, prompt)
		if err == nil {
			return analysis, nil
		}
		lastErr = err
		log.Printf("WARN: risk assessment attempt %d/%d failed: %v", attempt, c.maxAttempts, err)

		if attempt == c.maxAttempts {
			break
		}
		delay := time.Duration(math.Pow(baseDelaySeconds, float64(attempt))) * time.Second
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrAnalysisUnavailable, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
