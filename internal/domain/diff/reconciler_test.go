package diff_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
)

const catSource = "the cat sat on the cat mat"

func TestReconcileSpan_Phases(t *testing.T) {
	t.Parallel()

	farSource := strings.Repeat("x", 200) + "cat"

	cases := []struct {
		name      string
		source    string
		span      diff.TextSpan
		outcome   diff.Outcome
		wantStart int
		wantEnd   int
	}{
		{
			name:      "exact match",
			source:    catSource,
			span:      diff.NewSpan("cat", 4, 7),
			outcome:   diff.OutcomeExact,
			wantStart: 4,
			wantEnd:   7,
		},
		{
			name:   "context disambiguates repeated text",
			source: catSource,
			span: diff.TextSpan{
				Text: "cat", Start: diff.IntPtr(1), End: diff.IntPtr(4), ContextAfter: " mat",
			},
			outcome:   diff.OutcomeContext,
			wantStart: 19,
			wantEnd:   22,
		},
		{
			name:   "context before offsets past the window",
			source: catSource,
			span: diff.TextSpan{
				Text: "cat", Start: diff.IntPtr(0), End: diff.IntPtr(3), ContextBefore: "the ", ContextAfter: " mat",
			},
			outcome:   diff.OutcomeContext,
			wantStart: 19,
			wantEnd:   22,
		},
		{
			name:      "proximity fixes small drift",
			source:    catSource,
			span:      diff.NewSpan("cat", 5, 8),
			outcome:   diff.OutcomeProximity,
			wantStart: 4,
			wantEnd:   7,
		},
		{
			name:   "context miss falls through to proximity",
			source: catSource,
			span: diff.TextSpan{
				Text: "sat", Start: diff.IntPtr(9), End: diff.IntPtr(12), ContextBefore: "dog ",
			},
			outcome:   diff.OutcomeProximity,
			wantStart: 8,
			wantEnd:   11,
		},
		{
			name:      "global fallback outside the window",
			source:    farSource,
			span:      diff.NewSpan("cat", 0, 3),
			outcome:   diff.OutcomeGlobal,
			wantStart: 200,
			wantEnd:   203,
		},
		{
			name:      "out of range offsets fall through",
			source:    catSource,
			span:      diff.NewSpan("mat", 500, 503),
			outcome:   diff.OutcomeGlobal,
			wantStart: 23,
			wantEnd:   26,
		},
		{
			name:      "negative offsets fall through",
			source:    catSource,
			span:      diff.NewSpan("the", -3, 0),
			outcome:   diff.OutcomeProximity,
			wantStart: 0,
			wantEnd:   3,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, outcome := diff.ReconcileSpan(tc.span, tc.source)
			assert.Equal(t, tc.outcome, outcome)
			require.True(t, got.HasOffsets())
			assert.Equal(t, tc.wantStart, *got.Start)
			assert.Equal(t, tc.wantEnd, *got.End)
			assert.Equal(t, tc.span.Text, string([]rune(tc.source)[*got.Start:*got.End]))
		})
	}
}

func TestReconcileSpan_UnvalidatedPassThrough(t *testing.T) {
	t.Parallel()

	cases := []diff.TextSpan{
		{Text: "", Start: diff.IntPtr(3), End: diff.IntPtr(1)},
		{Text: "ghost", Start: nil, End: diff.IntPtr(5)},
		{Text: "ghost", Start: diff.IntPtr(5), End: nil},
	}
	for _, span := range cases {
		got, outcome := diff.ReconcileSpan(span, catSource)
		assert.Equal(t, diff.OutcomeUnvalidated, outcome)
		assert.True(t, outcome.Valid())
		assert.False(t, outcome.Corrected())
		assert.Equal(t, span, got)
	}
}

func TestReconcileSpan_Hallucination(t *testing.T) {
	t.Parallel()

	span := diff.TextSpan{Text: "dog", Start: diff.IntPtr(4), End: diff.IntPtr(7), ContextAfter: " mat"}
	got, outcome := diff.ReconcileSpan(span, catSource)

	assert.Equal(t, diff.OutcomeHallucinated, outcome)
	assert.False(t, outcome.Valid())
	assert.Equal(t, 4, *got.Start)
}

func TestReconcileSpan_Idempotent(t *testing.T) {
	t.Parallel()

	span := diff.NewSpan("sat", 8, 11)
	once, o1 := diff.ReconcileSpan(span, catSource)
	twice, o2 := diff.ReconcileSpan(once, catSource)

	assert.Equal(t, diff.OutcomeExact, o1)
	assert.Equal(t, diff.OutcomeExact, o2)
	assert.Equal(t, span, once)
	assert.Equal(t, once, twice)

	// A corrected span is exact on the second pass.
	fixed, _ := diff.ReconcileSpan(diff.NewSpan("sat", 10, 13), catSource)
	again, outcome := diff.ReconcileSpan(fixed, catSource)
	assert.Equal(t, diff.OutcomeExact, outcome)
	assert.Equal(t, fixed, again)
}

func TestReconcileSpan_CountsCharactersNotBytes(t *testing.T) {
	t.Parallel()

	source := "héllo wörld wörld"
	span := diff.TextSpan{Text: "wörld", Start: diff.IntPtr(0), End: diff.IntPtr(5), ContextBefore: "wörld "}
	got, outcome := diff.ReconcileSpan(span, source)

	assert.Equal(t, diff.OutcomeContext, outcome)
	assert.Equal(t, 12, *got.Start)
	assert.Equal(t, 17, *got.End)

	exact, outcome := diff.ReconcileSpan(diff.NewSpan("wörld", 6, 11), source)
	assert.Equal(t, diff.OutcomeExact, outcome)
	assert.Equal(t, 6, *exact.Start)
}

func TestReconcileSpan_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	span := diff.NewSpan("cat", 5, 8)
	_, outcome := diff.ReconcileSpan(span, catSource)

	assert.Equal(t, diff.OutcomeProximity, outcome)
	assert.Equal(t, 5, *span.Start)
	assert.Equal(t, 8, *span.End)
}

func TestReconciler_ReconcileChanges(t *testing.T) {
	t.Parallel()

	original := "The meeting is on Monday at 10am."
	generated := "The meeting is on Tuesday at 10am."

	changes := []diff.ChangeItem{
		{
			ID:            "exact",
			OriginalSpan:  diff.NewSpan("Monday", 18, 24),
			GeneratedSpan: diff.NewSpan("Tuesday", 18, 25),
		},
		{
			ID:            "drifted",
			OriginalSpan:  diff.NewSpan("10am", 26, 30),
			GeneratedSpan: diff.NewSpan("10am", 28, 32),
		},
		{
			ID:            "bad-original",
			OriginalSpan:  diff.NewSpan("Friday", 0, 6),
			GeneratedSpan: diff.NewSpan("Tuesday", 18, 25),
		},
		{
			ID:            "bad-generated",
			OriginalSpan:  diff.NewSpan("Monday", 18, 24),
			GeneratedSpan: diff.NewSpan("Wednesday", 18, 27),
		},
		{
			ID:            "unanchored",
			OriginalSpan:  diff.TextSpan{Text: ""},
			GeneratedSpan: diff.TextSpan{Text: "Tuesday"},
		},
	}

	var (
		mu       sync.Mutex
		observed []string
	)
	r := diff.NewReconciler(logging.NewNopLogger(), diff.WithOutcomeObserver(func(side string, o diff.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		observed = append(observed, side+":"+string(o))
	}))

	kept, stats := r.ReconcileChanges(changes, original, generated)

	ids := make([]string, 0, len(kept))
	for _, c := range kept {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"exact", "drifted", "unanchored"}, ids)
	assert.Equal(t, 2, stats.Removed)
	assert.Equal(t, 2, stats.Corrected)
	assert.Zero(t, stats.LowConfidence)

	assert.Equal(t, 28, *kept[1].OriginalSpan.Start)
	assert.Equal(t, 29, *kept[1].GeneratedSpan.Start)

	// The generated side of "bad-original" is never examined.
	assert.Equal(t, []string{
		"original:exact", "generated:exact",
		"original:proximity", "generated:proximity",
		"original:hallucinated",
		"original:exact", "generated:hallucinated",
		"original:unvalidated", "generated:unvalidated",
	}, observed)

	// Input slice is untouched.
	assert.Equal(t, 26, *changes[1].OriginalSpan.Start)
}

func TestReconciler_NilLogger(t *testing.T) {
	t.Parallel()

	r := diff.NewReconciler(nil)
	kept, stats := r.ReconcileChanges(nil, "a", "b")
	assert.Empty(t, kept)
	assert.Zero(t, stats.Removed)
}
