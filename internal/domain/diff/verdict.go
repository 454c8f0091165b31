package diff

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/turtacn/ContextDiff/pkg/errors"
)

// rawVerdict mirrors the JSON document the oracle is instructed to return.
// Enumerated fields are plain strings so that loose vocabulary can be
// normalised instead of rejected.
type rawVerdict struct {
	Summary *struct {
		IsSafe              *bool  `json:"is_safe"`
		RiskScore           *int   `json:"risk_score"`
		SemanticChangeLevel string `json:"semantic_change_level"`
	} `json:"summary"`
	Changes []rawChange `json:"changes"`
}

type rawChange struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Severity      string    `json:"severity"`
	Description   string    `json:"description"`
	Reasoning     string    `json:"reasoning"`
	OriginalSpan  *TextSpan `json:"original_span"`
	GeneratedSpan *TextSpan `json:"generated_span"`
}

// DecodeVerdict parses the oracle's raw output into a DiffResult.
//
// Severity, type and level vocabulary is normalised, changes without an id
// get a fresh UUID, an empty reasoning is kept, and risk is clamped to
// [0,100]. Spans are copied as claimed; reconciling them against the texts is
// the caller's job.
//
// Output that is not a JSON object, lacks the summary, or contains a change
// without description or spans fails with ErrCodeResponseInvalid. So does a
// span whose offsets are negative or end before they start.
func DecodeVerdict(raw string) (*DiffResult, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return nil, errors.New(errors.ErrCodeResponseInvalid, "oracle returned an empty response")
	}

	var rv rawVerdict
	if err := json.Unmarshal([]byte(body), &rv); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeResponseInvalid, "oracle returned invalid JSON")
	}
	if rv.Summary == nil {
		return nil, errors.New(errors.ErrCodeResponseInvalid, "invalid response structure").WithDetail("summary is missing")
	}
	if rv.Summary.IsSafe == nil || rv.Summary.RiskScore == nil {
		return nil, errors.New(errors.ErrCodeResponseInvalid, "invalid response structure").
			WithDetail("summary.is_safe and summary.risk_score are required")
	}

	result := &DiffResult{
		Summary: DiffSummary{
			IsSafe:              *rv.Summary.IsSafe,
			RiskScore:           *rv.Summary.RiskScore,
			SemanticChangeLevel: NormalizeChangeLevel(rv.Summary.SemanticChangeLevel),
		},
		Changes: make([]ChangeItem, 0, len(rv.Changes)),
	}

	for i, rc := range rv.Changes {
		if strings.TrimSpace(rc.Description) == "" {
			return nil, errors.New(errors.ErrCodeResponseInvalid, "invalid response structure").
				WithDetail(fmt.Sprintf("changes[%d].description is required", i))
		}
		if rc.OriginalSpan == nil || rc.GeneratedSpan == nil {
			return nil, errors.New(errors.ErrCodeResponseInvalid, "invalid response structure").
				WithDetail(fmt.Sprintf("changes[%d] must carry original_span and generated_span", i))
		}
		if !validOffsets(*rc.OriginalSpan) || !validOffsets(*rc.GeneratedSpan) {
			return nil, errors.New(errors.ErrCodeResponseInvalid, "invalid response structure").
				WithDetail(fmt.Sprintf("changes[%d] has a negative or inverted span", i))
		}
		id := strings.TrimSpace(rc.ID)
		if id == "" {
			id = uuid.NewString()
		}
		result.Changes = append(result.Changes, ChangeItem{
			ID:            id,
			Type:          NormalizeChangeType(rc.Type),
			Severity:      NormalizeSeverity(rc.Severity),
			Description:   rc.Description,
			Reasoning:     rc.Reasoning,
			OriginalSpan:  *rc.OriginalSpan,
			GeneratedSpan: *rc.GeneratedSpan,
		})
	}

	if result.Summary.RiskScore < 0 {
		result.Summary.RiskScore = 0
	}
	if result.Summary.RiskScore > 100 {
		result.Summary.RiskScore = 100
	}
	return result, nil
}

// validOffsets reports whether the offsets present on s are non-negative
// and ordered.
func validOffsets(s TextSpan) bool {
	if s.Start != nil && *s.Start < 0 {
		return false
	}
	if s.End != nil && *s.End < 0 {
		return false
	}
	return !s.HasOffsets() || *s.End >= *s.Start
}

// extractJSONObject trims whitespace and markdown code fences and returns the
// text between the first '{' and the last '}'. Input without braces is
// returned trimmed so that the JSON decoder reports the error.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
