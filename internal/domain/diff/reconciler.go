package diff

import (
	"strings"
	"unicode/utf8"

	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
)

// ProximityRadius is the number of characters searched on either side of a
// claimed span before falling back to a whole-text search.
const ProximityRadius = 50

// Outcome records which reconciliation phase accepted (or rejected) a span.
type Outcome string

const (
	// OutcomeExact: the claimed offsets already select the claimed text.
	OutcomeExact Outcome = "exact"
	// OutcomeContext: relocated via context_before + text + context_after.
	OutcomeContext Outcome = "context"
	// OutcomeProximity: relocated within ProximityRadius of the claim.
	OutcomeProximity Outcome = "proximity"
	// OutcomeGlobal: first occurrence anywhere. Low confidence when the text recurs.
	OutcomeGlobal Outcome = "global"
	// OutcomeUnvalidated: empty text or missing offsets, passed through as-is.
	OutcomeUnvalidated Outcome = "unvalidated"
	// OutcomeHallucinated: the text does not occur in the source.
	OutcomeHallucinated Outcome = "hallucinated"
)

// Valid reports whether a span with this outcome may be kept.
func (o Outcome) Valid() bool { return o != OutcomeHallucinated }

// Corrected reports whether the span's offsets were rewritten.
func (o Outcome) Corrected() bool {
	return o == OutcomeContext || o == OutcomeProximity || o == OutcomeGlobal
}

// sourceText caches the rune view of a text so that offsets can be resolved
// in characters rather than bytes.
type sourceText struct {
	text  string
	runes []rune
}

func newSourceText(s string) *sourceText {
	return &sourceText{text: s, runes: []rune(s)}
}

func (s *sourceText) length() int { return len(s.runes) }

// slice returns runes [start,end) and false when the range is out of bounds.
func (s *sourceText) slice(start, end int) (string, bool) {
	if start < 0 || end < start || end > len(s.runes) {
		return "", false
	}
	return string(s.runes[start:end]), true
}

// index returns the rune offset of the first occurrence of needle, or -1.
func (s *sourceText) index(needle string) int {
	i := strings.Index(s.text, needle)
	if i < 0 {
		return -1
	}
	return utf8.RuneCountInString(s.text[:i])
}

// indexWithin searches runes [lo,hi) after clamping to the text bounds.
func (s *sourceText) indexWithin(needle string, lo, hi int) int {
	if lo < 0 {
		lo = 0
	}
	if hi > len(s.runes) {
		hi = len(s.runes)
	}
	if lo > hi {
		return -1
	}
	region := string(s.runes[lo:hi])
	i := strings.Index(region, needle)
	if i < 0 {
		return -1
	}
	return lo + utf8.RuneCountInString(region[:i])
}

// ReconcileSpan checks span against source and returns the verified or
// relocated span together with the phase that settled it. The phases run in
// order exact, context, proximity, global; the first match wins. The input
// span is never modified.
func ReconcileSpan(span TextSpan, source string) (TextSpan, Outcome) {
	return reconcile(span, newSourceText(source))
}

func reconcile(span TextSpan, src *sourceText) (TextSpan, Outcome) {
	if span.Text == "" || !span.HasOffsets() {
		return span, OutcomeUnvalidated
	}
	start, end := *span.Start, *span.End
	width := utf8.RuneCountInString(span.Text)

	if got, ok := src.slice(start, end); ok && got == span.Text {
		return span, OutcomeExact
	}

	relocate := func(at int) TextSpan {
		out := span
		out.Start = IntPtr(at)
		out.End = IntPtr(at + width)
		return out
	}

	if span.ContextBefore != "" || span.ContextAfter != "" {
		if idx := src.index(span.ContextBefore + span.Text + span.ContextAfter); idx >= 0 {
			return relocate(idx + utf8.RuneCountInString(span.ContextBefore)), OutcomeContext
		}
	}

	if idx := src.indexWithin(span.Text, start-ProximityRadius, end+ProximityRadius); idx >= 0 {
		return relocate(idx), OutcomeProximity
	}

	if idx := src.index(span.Text); idx >= 0 {
		return relocate(idx), OutcomeGlobal
	}

	return span, OutcomeHallucinated
}

// ReconcileStats summarises one ReconcileChanges pass.
type ReconcileStats struct {
	// Corrected counts spans (not changes) whose offsets were rewritten.
	Corrected int
	// Removed counts changes dropped because a span could not be located.
	Removed int
	// LowConfidence counts spans accepted only by the global fallback.
	LowConfidence int
}

// OutcomeObserver is notified for every span checked. side is "original" or
// "generated".
type OutcomeObserver func(side string, outcome Outcome)

// Reconciler validates every change returned by the oracle against the two
// texts it was derived from.
type Reconciler struct {
	logger   logging.Logger
	observer OutcomeObserver
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithOutcomeObserver registers fn to receive every span outcome.
func WithOutcomeObserver(fn OutcomeObserver) ReconcilerOption {
	return func(r *Reconciler) { r.observer = fn }
}

// NewReconciler creates a Reconciler. A nil logger is replaced with a no-op one.
func NewReconciler(logger logging.Logger, opts ...ReconcilerOption) *Reconciler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	r := &Reconciler{logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReconcileChanges returns the subset of changes whose spans could be
// anchored, with offsets corrected where needed. The original-side span is
// checked first; the generated-side span is only checked when the original
// side passed. A change failing either side is dropped whole.
func (r *Reconciler) ReconcileChanges(changes []ChangeItem, original, generated string) ([]ChangeItem, ReconcileStats) {
	var stats ReconcileStats
	kept := make([]ChangeItem, 0, len(changes))
	origSrc := newSourceText(original)
	genSrc := newSourceText(generated)

	for _, change := range changes {
		var ok bool
		change.OriginalSpan, ok = r.check(change.OriginalSpan, origSrc, "original", &stats)
		if ok {
			change.GeneratedSpan, ok = r.check(change.GeneratedSpan, genSrc, "generated", &stats)
		}
		if !ok {
			stats.Removed++
			continue
		}
		kept = append(kept, change)
	}

	if stats.Corrected > 0 {
		r.logger.Info("auto-corrected span offsets", logging.Int("corrected", stats.Corrected))
	}
	if stats.Removed > 0 {
		r.logger.Warn("removed hallucinated changes", logging.Int("removed", stats.Removed))
	}
	return kept, stats
}

func (r *Reconciler) check(span TextSpan, src *sourceText, side string, stats *ReconcileStats) (TextSpan, bool) {
	fixed, outcome := reconcile(span, src)
	if r.observer != nil {
		r.observer(side, outcome)
	}

	switch outcome {
	case OutcomeExact, OutcomeUnvalidated:
	case OutcomeContext, OutcomeProximity:
		stats.Corrected++
		r.logger.Debug("span relocated",
			logging.String("side", side),
			logging.String("phase", string(outcome)),
			logging.Int("claimed_start", *span.Start),
			logging.Int("start", *fixed.Start),
		)
	case OutcomeGlobal:
		stats.Corrected++
		stats.LowConfidence++
		r.logger.Warn("span matched by global fallback, may be the wrong occurrence",
			logging.String("side", side),
			logging.Int("claimed_start", *span.Start),
			logging.Int("start", *fixed.Start),
		)
	case OutcomeHallucinated:
		r.logger.Warn("span text not found in source",
			logging.String("side", side),
			logging.String("text", truncate(span.Text, 50)),
			logging.Int("source_length", src.length()),
		)
	}
	return fixed, outcome.Valid()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
