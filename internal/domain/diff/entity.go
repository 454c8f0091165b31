// Package diff implements the comparison bounded context: the value types
// that describe a semantic diff verdict, the span reconciler that anchors
// oracle claims to ground truth, and the chunking and merge rules used for
// oversized inputs.  Nothing in this package performs I/O; orchestration and
// the oracle live in the application and intelligence layers.
package diff

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/turtacn/ContextDiff/pkg/errors"
	"github.com/turtacn/ContextDiff/pkg/textnorm"
)

// ─────────────────────────────────────────────────────────────────────────────
// Enumerations
// ─────────────────────────────────────────────────────────────────────────────

// Sensitivity controls how aggressively the oracle reports minor changes.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// ParseSensitivity accepts low, medium or high in any case. The empty string
// maps to medium.
func ParseSensitivity(s string) (Sensitivity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return SensitivityMedium, nil
	case "low":
		return SensitivityLow, nil
	case "medium":
		return SensitivityMedium, nil
	case "high":
		return SensitivityHigh, nil
	}
	return "", errors.InvalidParam("sensitivity must be one of low, medium, high").WithDetail(fmt.Sprintf("got %q", s))
}

// ChangeType is the category of a detected change.
type ChangeType string

const (
	ChangeFactual    ChangeType = "FACTUAL"
	ChangeTone       ChangeType = "TONE"
	ChangeOmission   ChangeType = "OMISSION"
	ChangeAddition   ChangeType = "ADDITION"
	ChangeFormatting ChangeType = "FORMATTING"
)

// Severity is the canonical severity of a single change.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ChangeLevel is the overall magnitude of semantic change, ordered
// NONE < MINOR < MODERATE < CRITICAL < FATAL.
type ChangeLevel string

const (
	LevelNone     ChangeLevel = "NONE"
	LevelMinor    ChangeLevel = "MINOR"
	LevelModerate ChangeLevel = "MODERATE"
	LevelCritical ChangeLevel = "CRITICAL"
	LevelFatal    ChangeLevel = "FATAL"
)

var levelRank = map[ChangeLevel]int{
	LevelNone:     0,
	LevelMinor:    1,
	LevelModerate: 2,
	LevelCritical: 3,
	LevelFatal:    4,
}

// Rank returns the ordinal of l, or -1 for an unknown level.
func (l ChangeLevel) Rank() int {
	if r, ok := levelRank[l]; ok {
		return r
	}
	return -1
}

// MaxLevel returns the more severe of a and b.
func MaxLevel(a, b ChangeLevel) ChangeLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// SafeRiskThreshold is the highest risk score that may still be reported safe.
const SafeRiskThreshold = 40

// ─────────────────────────────────────────────────────────────────────────────
// ComparisonRequest
// ─────────────────────────────────────────────────────────────────────────────

// ComparisonRequest is one comparison to run. It is treated as immutable once
// handed to the engine.
type ComparisonRequest struct {
	OriginalText  string      `json:"original_text"`
	GeneratedText string      `json:"generated_text"`
	Sensitivity   Sensitivity `json:"sensitivity"`
	UsePremium    bool        `json:"use_premium"`
}

// Validate checks that both texts are non-empty and no longer than maxLen
// characters (maxLen <= 0 disables the length check) and that sensitivity is
// one of the known values.
func (r ComparisonRequest) Validate(maxLen int) error {
	if strings.TrimSpace(r.OriginalText) == "" {
		return errors.InvalidParam("original_text must not be empty")
	}
	if strings.TrimSpace(r.GeneratedText) == "" {
		return errors.InvalidParam("generated_text must not be empty")
	}
	if err := textnorm.ValidateLength("original_text", r.OriginalText, maxLen); err != nil {
		return err
	}
	if err := textnorm.ValidateLength("generated_text", r.GeneratedText, maxLen); err != nil {
		return err
	}
	if _, err := ParseSensitivity(string(r.Sensitivity)); err != nil {
		return err
	}
	return nil
}

// TotalLength returns the combined character count of both texts.
func (r ComparisonRequest) TotalLength() int {
	return utf8.RuneCountInString(r.OriginalText) + utf8.RuneCountInString(r.GeneratedText)
}

// ─────────────────────────────────────────────────────────────────────────────
// TextSpan and ChangeItem
// ─────────────────────────────────────────────────────────────────────────────

// TextSpan is a claimed substring with half-open character offsets
// [Start, End) counted in runes. Start and End are nil when the oracle
// omitted them.
type TextSpan struct {
	Text          string `json:"text"`
	Start         *int   `json:"start"`
	End           *int   `json:"end"`
	ContextBefore string `json:"context_before"`
	ContextAfter  string `json:"context_after"`
}

// NewSpan builds a span with both offsets set.
func NewSpan(text string, start, end int) TextSpan {
	return TextSpan{Text: text, Start: IntPtr(start), End: IntPtr(end)}
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }

// HasOffsets reports whether both offsets are present.
func (s TextSpan) HasOffsets() bool {
	return s.Start != nil && s.End != nil
}

// Shift returns a copy of s with both offsets moved by delta. Spans without
// offsets are returned unchanged.
func (s TextSpan) Shift(delta int) TextSpan {
	out := s
	if s.Start != nil {
		out.Start = IntPtr(*s.Start + delta)
	}
	if s.End != nil {
		out.End = IntPtr(*s.End + delta)
	}
	return out
}

func (s TextSpan) clone() TextSpan {
	return s.Shift(0)
}

// ChangeItem is one semantic difference with its anchors on both sides.
type ChangeItem struct {
	ID            string     `json:"id"`
	Type          ChangeType `json:"type"`
	Severity      Severity   `json:"severity"`
	Description   string     `json:"description"`
	Reasoning     string     `json:"reasoning"`
	OriginalSpan  TextSpan   `json:"original_span"`
	GeneratedSpan TextSpan   `json:"generated_span"`
}

// ─────────────────────────────────────────────────────────────────────────────
// DiffSummary and DiffResult
// ─────────────────────────────────────────────────────────────────────────────

// DiffSummary is the aggregate verdict.
type DiffSummary struct {
	IsSafe              bool        `json:"is_safe"`
	RiskScore           int         `json:"risk_score"`
	SemanticChangeLevel ChangeLevel `json:"semantic_change_level"`
}

// DiffResult is the complete verdict for one comparison. Changes keep the
// order in which they were discovered.
type DiffResult struct {
	Summary DiffSummary  `json:"summary"`
	Changes []ChangeItem `json:"changes"`
}

// IdenticalResult is the verdict for texts that need no analysis.
func IdenticalResult() *DiffResult {
	return &DiffResult{
		Summary: DiffSummary{IsSafe: true, RiskScore: 0, SemanticChangeLevel: LevelNone},
		Changes: []ChangeItem{},
	}
}

// Clone returns a deep copy of r.
func (r *DiffResult) Clone() *DiffResult {
	if r == nil {
		return nil
	}
	out := &DiffResult{Summary: r.Summary, Changes: make([]ChangeItem, len(r.Changes))}
	for i, c := range r.Changes {
		c.OriginalSpan = c.OriginalSpan.clone()
		c.GeneratedSpan = c.GeneratedSpan.clone()
		out.Changes[i] = c
	}
	return out
}

// HasCritical reports whether any change is critical.
func (r *DiffResult) HasCritical() bool {
	for _, c := range r.Changes {
		if c.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// EnforceConsistency clamps the risk score to [0,100] and forces IsSafe to
// false when the risk exceeds SafeRiskThreshold or a critical change is
// present. It reports whether IsSafe was overridden.
func (r *DiffResult) EnforceConsistency() bool {
	if r.Summary.RiskScore < 0 {
		r.Summary.RiskScore = 0
	}
	if r.Summary.RiskScore > 100 {
		r.Summary.RiskScore = 100
	}
	if r.Changes == nil {
		r.Changes = []ChangeItem{}
	}
	if r.Summary.IsSafe && (r.Summary.RiskScore > SafeRiskThreshold || r.HasCritical()) {
		r.Summary.IsSafe = false
		return true
	}
	return false
}

// IsSafeFor computes the safety flag from a risk score and a change list.
func IsSafeFor(risk int, changes []ChangeItem) bool {
	if risk > SafeRiskThreshold {
		return false
	}
	for _, c := range changes {
		if c.Severity == SeverityCritical {
			return false
		}
	}
	return true
}

//Personal.AI order the ending
