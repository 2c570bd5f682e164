package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nextlevelbuilder/cairnkernel/internal/llmadapter"
)

// retryMaxAttempts and retryMaxBackoff are N and max_backoff from
// query_llm_get_new_state in original_source's langgraph_utils.py. The
// defining RetryConfig/RetryDo referenced by the teacher's own provider
// files was never present in the retrieved pack (see DESIGN.md); this
// policy is grounded on the Python source instead.
const (
	retryMaxAttempts = 20
	retryMaxBackoff  = 300 * time.Second
)

var retryableStatusCodes = map[int]bool{
	429: true, 500: true, 502: true, 503: true, 529: true,
}

var retryableSubstrings = []string{"overloaded", "rate limit", "529", "503", "429"}

func backoffFor(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := time.Duration(1) << uint(attempt-1) * time.Second
	if d > retryMaxBackoff || d <= 0 {
		return retryMaxBackoff
	}
	return d
}

func isRetryable(err error) bool {
	if se, ok := err.(*llmadapter.StatusError); ok && se.StatusCode != 0 {
		return retryableStatusCodes[se.StatusCode]
	}
	msg := strings.ToLower(err.Error())
	for _, indicator := range retryableSubstrings {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}

// invokeWithRetry calls client.Invoke with exponential backoff, per
// spec.md §4.D: up to N=20 attempts, min(2^(i-1), 300)s backoff before
// attempt i>0, retryable classified by status code or message substring,
// a single extra attempt granted to non-retryable errors before abort.
func invokeWithRetry(ctx context.Context, client llmadapter.Client, req llmadapter.Request, sleep func(time.Duration), onRetry func(attempt, max int, err error)) (*llmadapter.NormalizedResponse, error) {
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 0; attempt < retryMaxAttempts; attempt++ {
		if attempt > 0 {
			wait := backoffFor(attempt)
			if onRetry != nil {
				onRetry(attempt+1, retryMaxAttempts, lastErr)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			sleep(wait)
		}

		resp, err := client.Invoke(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == retryMaxAttempts-1 {
			return nil, fmt.Errorf("failed to get LLM response after %d attempts: %w", retryMaxAttempts, err)
		}

		if isRetryable(err) {
			continue
		}

		// Non-retryable: one extra attempt, then abort.
		if attempt > 0 {
			return nil, err
		}
	}
	return nil, lastErr
}
