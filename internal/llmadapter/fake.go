package llmadapter

import (
	"context"
	"fmt"
	"sync"
)

// FakeAdapter is a FIFO queued-response test client (spec.md §4.E test
// mode). Each Invoke pops the next queued response or error; once the
// queue is exhausted it errors loudly rather than silently falling through
// to a live provider call, so an under-stubbed test fails fast instead of
// leaking a real network call.
type FakeAdapter struct {
	mu        sync.Mutex
	responses []fakeResult
	calls     []Request
}

type fakeResult struct {
	resp *NormalizedResponse
	err  error
}

func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{}
}

// QueueResponse appends a response to be returned by the next Invoke call.
func (f *FakeAdapter) QueueResponse(resp *NormalizedResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResult{resp: resp})
}

// QueueError appends an error to be returned by the next Invoke call.
func (f *FakeAdapter) QueueError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResult{err: err})
}

func (f *FakeAdapter) Name() string { return "fake" }

func (f *FakeAdapter) Invoke(_ context.Context, req Request) (*NormalizedResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("fake adapter: response queue exhausted after %d calls", len(f.calls))
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next.resp, next.err
}

// Calls returns every request Invoke has received so far, in order.
func (f *FakeAdapter) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.calls))
	copy(out, f.calls)
	return out
}
