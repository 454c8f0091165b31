package diff_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/pkg/errors"
)

func TestParseSensitivity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    diff.Sensitivity
		wantErr bool
	}{
		{"low", diff.SensitivityLow, false},
		{"MEDIUM", diff.SensitivityMedium, false},
		{" High ", diff.SensitivityHigh, false},
		{"", diff.SensitivityMedium, false},
		{"extreme", "", true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, err := diff.ParseSensitivity(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestComparisonRequest_Validate(t *testing.T) {
	t.Parallel()

	valid := diff.ComparisonRequest{OriginalText: "a", GeneratedText: "b", Sensitivity: diff.SensitivityLow}

	cases := []struct {
		name   string
		mutate func(r *diff.ComparisonRequest)
		code   errors.ErrorCode
	}{
		{"valid", func(r *diff.ComparisonRequest) {}, ""},
		{"empty original", func(r *diff.ComparisonRequest) { r.OriginalText = "  " }, errors.CodeInvalidParam},
		{"empty generated", func(r *diff.ComparisonRequest) { r.GeneratedText = "" }, errors.CodeInvalidParam},
		{"original too long", func(r *diff.ComparisonRequest) { r.OriginalText = strings.Repeat("x", 11) }, errors.ErrCodeTextTooLong},
		{"generated too long", func(r *diff.ComparisonRequest) { r.GeneratedText = strings.Repeat("é", 11) }, errors.ErrCodeTextTooLong},
		{"bad sensitivity", func(r *diff.ComparisonRequest) { r.Sensitivity = "extreme" }, errors.CodeInvalidParam},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := valid
			tc.mutate(&req)
			err := req.Validate(10)
			if tc.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestComparisonRequest_ValidateNamesFieldAndFormatsLimit(t *testing.T) {
	t.Parallel()

	req := diff.ComparisonRequest{
		OriginalText:  "a",
		GeneratedText: strings.Repeat("x", 20001),
		Sensitivity:   diff.SensitivityMedium,
	}
	err := req.Validate(20000)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTextTooLong))
	assert.Contains(t, err.Error(), "generated_text length (20,001 characters)")
	assert.Contains(t, err.Error(), "limit of 20,000 characters")
}

func TestComparisonRequest_TotalLengthCountsCharacters(t *testing.T) {
	t.Parallel()

	req := diff.ComparisonRequest{OriginalText: "héllo", GeneratedText: "wörld!"}
	assert.Equal(t, 11, req.TotalLength())
}

func TestChangeLevel_Ordering(t *testing.T) {
	t.Parallel()

	assert.Less(t, diff.LevelNone.Rank(), diff.LevelMinor.Rank())
	assert.Less(t, diff.LevelMinor.Rank(), diff.LevelModerate.Rank())
	assert.Less(t, diff.LevelModerate.Rank(), diff.LevelCritical.Rank())
	assert.Less(t, diff.LevelCritical.Rank(), diff.LevelFatal.Rank())
	assert.Equal(t, -1, diff.ChangeLevel("HUGE").Rank())
	assert.Equal(t, diff.LevelFatal, diff.MaxLevel(diff.LevelFatal, diff.LevelMinor))
	assert.Equal(t, diff.LevelModerate, diff.MaxLevel(diff.LevelMinor, diff.LevelModerate))
}

func TestEnforceConsistency(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		result     diff.DiffResult
		wantSafe   bool
		wantRisk   int
		overridden bool
	}{
		{
			name:       "high risk claimed safe",
			result:     diff.DiffResult{Summary: diff.DiffSummary{IsSafe: true, RiskScore: 90}},
			wantSafe:   false,
			wantRisk:   90,
			overridden: true,
		},
		{
			name: "critical change claimed safe",
			result: diff.DiffResult{
				Summary: diff.DiffSummary{IsSafe: true, RiskScore: 10},
				Changes: []diff.ChangeItem{{Severity: diff.SeverityCritical}},
			},
			wantSafe:   false,
			wantRisk:   10,
			overridden: true,
		},
		{
			name:     "boundary risk stays safe",
			result:   diff.DiffResult{Summary: diff.DiffSummary{IsSafe: true, RiskScore: 40}},
			wantSafe: true,
			wantRisk: 40,
		},
		{
			name:     "oracle unsafe is kept",
			result:   diff.DiffResult{Summary: diff.DiffSummary{IsSafe: false, RiskScore: 5}},
			wantSafe: false,
			wantRisk: 5,
		},
		{
			name:       "risk clamped",
			result:     diff.DiffResult{Summary: diff.DiffSummary{IsSafe: true, RiskScore: 250}},
			wantSafe:   false,
			wantRisk:   100,
			overridden: true,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := tc.result
			assert.Equal(t, tc.overridden, r.EnforceConsistency())
			assert.Equal(t, tc.wantSafe, r.Summary.IsSafe)
			assert.Equal(t, tc.wantRisk, r.Summary.RiskScore)
			assert.NotNil(t, r.Changes)
		})
	}
}

func TestDiffResult_CloneIsDeep(t *testing.T) {
	t.Parallel()

	orig := &diff.DiffResult{Changes: []diff.ChangeItem{{ID: "1", OriginalSpan: diff.NewSpan("x", 1, 2)}}}
	cp := orig.Clone()
	*cp.Changes[0].OriginalSpan.Start = 99
	cp.Changes[0].ID = "2"

	assert.Equal(t, 1, *orig.Changes[0].OriginalSpan.Start)
	assert.Equal(t, "1", orig.Changes[0].ID)
	assert.Nil(t, (*diff.DiffResult)(nil).Clone())
}

func TestIdenticalResult(t *testing.T) {
	t.Parallel()

	r := diff.IdenticalResult()
	assert.True(t, r.Summary.IsSafe)
	assert.Zero(t, r.Summary.RiskScore)
	assert.Equal(t, diff.LevelNone, r.Summary.SemanticChangeLevel)
	assert.Empty(t, r.Changes)
	assert.NotNil(t, r.Changes)
}
