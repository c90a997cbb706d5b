package llm

import (
	"context"
	"fmt"
	"sync"
)

// Fake is a scripted backend for tests and dry runs.
type Fake struct {
	mu    sync.Mutex
	reply func(system, user string) string
	errs  []error
	calls []FakeCall
}

type FakeCall struct {
	System string
	User   string
}

// NewFake answers every request with reply(system, user). errs are returned,
// in order, by the first len(errs) calls.
func NewFake(reply func(system, user string) string, errs ...error) *Fake {
	return &Fake{reply: reply, errs: errs}
}

func (f *Fake) Name() string  { return "fake" }
func (f *Fake) Model() string { return "fake" }

func (f *Fake) Complete(_ context.Context, system, user string) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, FakeCall{System: system, User: user})
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, fmt.Errorf("fake backend error: %w", err)
		}
	}
	return &Result{Text: f.reply(system, user)}, nil
}

func (f *Fake) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}
