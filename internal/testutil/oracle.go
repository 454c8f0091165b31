package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/turtacn/ContextDiff/internal/intelligence/oracle"
)

// StubOracle answers every call through Respond and records the requests.
type StubOracle struct {
	Respond func(ctx context.Context, req oracle.Request) (string, error)

	mu       sync.Mutex
	requests []oracle.Request
}

// NewStubOracle returns an oracle that always answers with raw.
func NewStubOracle(raw string) *StubOracle {
	return &StubOracle{Respond: func(context.Context, oracle.Request) (string, error) { return raw, nil }}
}

// Analyze implements oracle.Oracle.
func (s *StubOracle) Analyze(ctx context.Context, req oracle.Request) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.Respond(ctx, req)
}

// Name implements oracle.Oracle.
func (s *StubOracle) Name() string { return "stub" }

// Calls returns the number of requests seen.
func (s *StubOracle) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns a copy of the requests seen.
func (s *StubOracle) Requests() []oracle.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]oracle.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// VerdictChange is one change in a fabricated oracle answer.
type VerdictChange struct {
	Type          string
	Severity      string
	Description   string
	OriginalText  string
	OriginalStart int
	GeneratedText string
	GenStart      int
}

// VerdictJSON renders an oracle answer in the wire format the oracle is
// prompted to produce.
func VerdictJSON(isSafe bool, risk int, level string, changes ...VerdictChange) string {
	type span struct {
		Text  string `json:"text"`
		Start int    `json:"start"`
		End   int    `json:"end"`
	}
	type change struct {
		Type          string `json:"type"`
		Severity      string `json:"severity"`
		Description   string `json:"description"`
		Reasoning     string `json:"reasoning"`
		OriginalSpan  span   `json:"original_span"`
		GeneratedSpan span   `json:"generated_span"`
	}
	out := struct {
		Summary map[string]interface{} `json:"summary"`
		Changes []change               `json:"changes"`
	}{
		Summary: map[string]interface{}{"is_safe": isSafe, "risk_score": risk, "semantic_change_level": level},
		Changes: []change{},
	}
	for _, c := range changes {
		out.Changes = append(out.Changes, change{
			Type:          c.Type,
			Severity:      c.Severity,
			Description:   c.Description,
			Reasoning:     "stub",
			OriginalSpan:  span{Text: c.OriginalText, Start: c.OriginalStart, End: c.OriginalStart + len([]rune(c.OriginalText))},
			GeneratedSpan: span{Text: c.GeneratedText, Start: c.GenStart, End: c.GenStart + len([]rune(c.GeneratedText))},
		})
	}
	b, _ := json.Marshal(out)
	return string(b)
}

//Personal.AI order the ending
