package diff_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/pkg/errors"
)

const wellFormedVerdict = `{
  "summary": {"is_safe": false, "risk_score": 72, "semantic_change_level": "critical"},
  "changes": [
    {
      "id": "c-1",
      "type": "factual",
      "severity": "Severe",
      "description": "Date changed",
      "reasoning": "Monday became Tuesday",
      "original_span": {"text": "Monday", "start": 10, "end": 16, "context_before": "on ", "context_after": "."},
      "generated_span": {"text": "Tuesday", "start": 10, "end": 17}
    },
    {
      "type": "tone",
      "severity": "urgent",
      "description": "More forceful wording",
      "original_span": {"text": "please"},
      "generated_span": {"text": "must"}
    }
  ]
}`

func TestDecodeVerdict_NormalisesVocabulary(t *testing.T) {
	t.Parallel()

	res, err := diff.DecodeVerdict(wellFormedVerdict)
	require.NoError(t, err)

	assert.False(t, res.Summary.IsSafe)
	assert.Equal(t, 72, res.Summary.RiskScore)
	assert.Equal(t, diff.LevelCritical, res.Summary.SemanticChangeLevel)
	require.Len(t, res.Changes, 2)

	first := res.Changes[0]
	assert.Equal(t, "c-1", first.ID)
	assert.Equal(t, diff.ChangeFactual, first.Type)
	assert.Equal(t, diff.SeverityCritical, first.Severity)
	assert.Equal(t, "Monday", first.OriginalSpan.Text)
	require.True(t, first.OriginalSpan.HasOffsets())
	assert.Equal(t, 10, *first.OriginalSpan.Start)
	assert.Equal(t, "on ", first.OriginalSpan.ContextBefore)

	second := res.Changes[1]
	assert.Equal(t, diff.ChangeTone, second.Type)
	assert.Equal(t, diff.SeverityWarning, second.Severity)
	assert.False(t, second.OriginalSpan.HasOffsets())
	_, parseErr := uuid.Parse(second.ID)
	assert.NoError(t, parseErr, "missing id is replaced by a UUID")
}

func TestDecodeVerdict_StripsFencesAndChatter(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"```json\n" + wellFormedVerdict + "\n```",
		"```\n" + wellFormedVerdict + "\n```",
		"Here is the analysis:\n" + wellFormedVerdict + "\nLet me know if you need more.",
	}
	for _, in := range inputs {
		res, err := diff.DecodeVerdict(in)
		require.NoError(t, err)
		assert.Len(t, res.Changes, 2)
	}
}

func TestDecodeVerdict_ClampsRiskAndDefaultsLevel(t *testing.T) {
	t.Parallel()

	res, err := diff.DecodeVerdict(`{"summary":{"is_safe":true,"risk_score":250,"semantic_change_level":"huge"},"changes":[]}`)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Summary.RiskScore)
	assert.Equal(t, diff.LevelModerate, res.Summary.SemanticChangeLevel)
	assert.NotNil(t, res.Changes)

	res, err = diff.DecodeVerdict(`{"summary":{"is_safe":true,"risk_score":-5}}`)
	require.NoError(t, err)
	assert.Zero(t, res.Summary.RiskScore)
	assert.Empty(t, res.Changes)
}

func TestDecodeVerdict_AcceptsEmptyReasoning(t *testing.T) {
	t.Parallel()

	res, err := diff.DecodeVerdict(`{"summary":{"is_safe":true,"risk_score":5},"changes":[{"description":"x","reasoning":"","original_span":{"text":"a","start":0,"end":1},"generated_span":{"text":"b","start":0,"end":1}}]}`)
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.Empty(t, res.Changes[0].Reasoning)
}

func TestDecodeVerdict_Invalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{"empty", "   "},
		{"not json", "I could not compare these texts."},
		{"truncated", `{"summary": {"is_safe": true,`},
		{"missing summary", `{"changes": []}`},
		{"missing risk", `{"summary": {"is_safe": true}}`},
		{"missing description", `{"summary":{"is_safe":true,"risk_score":1},"changes":[{"type":"TONE","original_span":{"text":"a"},"generated_span":{"text":"b"}}]}`},
		{"missing span", `{"summary":{"is_safe":true,"risk_score":1},"changes":[{"description":"x","original_span":{"text":"a"}}]}`},
		{"inverted span", `{"summary":{"is_safe":true,"risk_score":1},"changes":[{"description":"x","original_span":{"text":"","start":9,"end":3},"generated_span":{"text":"b"}}]}`},
		{"negative span", `{"summary":{"is_safe":true,"risk_score":1},"changes":[{"description":"x","original_span":{"text":"a"},"generated_span":{"text":"","start":-4,"end":-7}}]}`},
		{"negative start only", `{"summary":{"is_safe":true,"risk_score":1},"changes":[{"description":"x","original_span":{"text":"a","start":-1},"generated_span":{"text":"b"}}]}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res, err := diff.DecodeVerdict(tc.raw)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.IsCode(err, errors.ErrCodeResponseInvalid))
		})
	}
}
