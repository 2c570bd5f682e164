package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nextlevelbuilder/cairnkernel/internal/llmadapter"
)

func TestBackoffFor_ExponentialCappedAt300(t *testing.T) {
	cases := map[int]time.Duration{
		0: 0,
		1: 1 * time.Second,
		2: 2 * time.Second,
		3: 4 * time.Second,
		9: 256 * time.Second,
		10: 300 * time.Second, // 2^9=512 > 300, clamps
		20: 300 * time.Second,
	}
	for attempt, want := range cases {
		if got := backoffFor(attempt); got != want {
			t.Errorf("backoffFor(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestIsRetryable_StatusCode(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 529} {
		err := &llmadapter.StatusError{StatusCode: code, Message: "boom"}
		if !isRetryable(err) {
			t.Errorf("expected status %d to be retryable", code)
		}
	}
	if isRetryable(&llmadapter.StatusError{StatusCode: 401, Message: "unauthorized"}) {
		t.Errorf("expected 401 to be non-retryable")
	}
}

func TestIsRetryable_MessageSubstringFallback(t *testing.T) {
	if !isRetryable(errors.New("model is overloaded right now")) {
		t.Errorf("expected 'overloaded' substring to be retryable")
	}
	if isRetryable(errors.New("invalid api key")) {
		t.Errorf("expected unrelated error to be non-retryable")
	}
}

func TestInvokeWithRetry_NonRetryableGetsOneExtraAttempt(t *testing.T) {
	client := llmadapter.NewFakeAdapter()
	client.QueueError(errors.New("invalid api key"))
	client.QueueResponse(&llmadapter.NormalizedResponse{TextContent: "ok"})

	resp, err := invokeWithRetry(context.Background(), client, llmadapter.Request{}, noSleep, nil)
	if err != nil {
		t.Fatalf("expected the one extra attempt to succeed, got error: %v", err)
	}
	if resp.TextContent != "ok" {
		t.Fatalf("expected ok response, got %q", resp.TextContent)
	}
}

func TestInvokeWithRetry_NonRetryableFailsOnSecondAttempt(t *testing.T) {
	client := llmadapter.NewFakeAdapter()
	client.QueueError(errors.New("invalid api key"))
	client.QueueError(errors.New("invalid api key"))

	_, err := invokeWithRetry(context.Background(), client, llmadapter.Request{}, noSleep, nil)
	if err == nil {
		t.Fatalf("expected abort after the one extra non-retryable attempt")
	}
}

func TestInvokeWithRetry_ExhaustionIsFatal(t *testing.T) {
	client := llmadapter.NewFakeAdapter()
	for i := 0; i < retryMaxAttempts; i++ {
		client.QueueError(&llmadapter.StatusError{StatusCode: 529, Message: "overloaded"})
	}

	_, err := invokeWithRetry(context.Background(), client, llmadapter.Request{}, noSleep, nil)
	if err == nil {
		t.Fatalf("expected a fatal error after exhausting all retries")
	}
	if len(client.Calls()) != retryMaxAttempts {
		t.Fatalf("expected exactly %d attempts, got %d", retryMaxAttempts, len(client.Calls()))
	}
}
