package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// StubLLM answers CompleteJSON with a canned raw JSON reply per purpose. A purpose
// with no reply fails as if the service were unavailable.
type StubLLM struct {
	mu      sync.Mutex
	replies map[string]string
	calls   []StubCall
}

// StubCall records one CompleteJSON call.
type StubCall struct {
	Purpose string
	System  string
	User    string
}

var ErrStubUnavailable = errors.New("stub llm: no reply configured")

func NewStubLLM() *StubLLM {
	return &StubLLM{replies: make(map[string]string)}
}

// Reply sets the raw JSON returned for purpose.
func (s *StubLLM) Reply(purpose, raw string) *StubLLM {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[purpose] = raw
	return s
}

func (s *StubLLM) CompleteJSON(_ context.Context, purpose, system, user string, out any) error {
	s.mu.Lock()
	s.calls = append(s.calls, StubCall{Purpose: purpose, System: system, User: user})
	raw, ok := s.replies[purpose]
	s.mu.Unlock()

	if !ok {
		return ErrStubUnavailable
	}
	return json.Unmarshal([]byte(raw), out)
}

// Calls returns the calls made so far.
func (s *StubLLM) Calls() []StubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StubCall, len(s.calls))
	copy(out, s.calls)
	return out
}
