package prompts_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/internal/intelligence/prompts"
)

func TestBuilder_SystemIncludesSensitivityBlock(t *testing.T) {
	t.Parallel()

	b := prompts.MustNewBuilder(0)

	cases := []struct {
		sensitivity diff.Sensitivity
		marker      string
	}{
		{diff.SensitivityLow, "SENSITIVITY MODE: LOW"},
		{diff.SensitivityMedium, "SENSITIVITY MODE: MEDIUM"},
		{diff.SensitivityHigh, "SENSITIVITY MODE: HIGH"},
		{diff.Sensitivity("extreme"), "SENSITIVITY MODE: MEDIUM"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.sensitivity), func(t *testing.T) {
			t.Parallel()
			sys, err := b.System(tc.sensitivity)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(sys, "You are a Senior Semantic Auditor"))
			assert.Contains(t, sys, tc.marker)
			assert.Contains(t, sys, `"semantic_change_level"`)
			assert.Less(t, strings.Index(sys, tc.marker), strings.Index(sys, "OUTPUT FORMAT"))
		})
	}
}

func TestBuilder_ContextWindow(t *testing.T) {
	t.Parallel()

	sys, err := prompts.MustNewBuilder(0).System(diff.SensitivityMedium)
	require.NoError(t, err)
	assert.Contains(t, sys, "up to 5 characters BEFORE")

	sys, err = prompts.MustNewBuilder(12).System(diff.SensitivityMedium)
	require.NoError(t, err)
	assert.Contains(t, sys, "up to 12 characters BEFORE")
	assert.NotContains(t, sys, "{{")
}

func TestBuilder_UserKeepsTextsVerbatim(t *testing.T) {
	t.Parallel()

	original := "Price: <b>$5</b> & {{.Secret}}"
	generated := "Price is \"five\" dollars"

	p, err := prompts.MustNewBuilder(0).Build(diff.SensitivityHigh, original, generated)
	require.NoError(t, err)

	assert.Contains(t, p.User, "ORIGINAL TEXT:\n\"\"\"\n"+original+"\n\"\"\"")
	assert.Contains(t, p.User, "GENERATED TEXT:\n\"\"\"\n"+generated+"\n\"\"\"")
	assert.Greater(t, p.EstimatedTokens, 0)
}

func TestEstimateTokenCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, prompts.EstimateTokenCount(""))
	assert.Equal(t, 1, prompts.EstimateTokenCount("a"))
	assert.Equal(t, 25, prompts.EstimateTokenCount(strings.Repeat("a", 100)))
	assert.Equal(t, 5, prompts.EstimateTokenCount("专利分析报告测试"))
}
