package diff

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkThreshold is the character count above which either text
	// triggers chunked analysis.
	DefaultChunkThreshold = 4000

	// DefaultChunkSize is the target size of one chunk in characters.
	DefaultChunkSize = 3000

	// ParagraphSeparator is the boundary chunks are split on and re-joined with.
	ParagraphSeparator = "\n\n"
)

var separatorWidth = utf8.RuneCountInString(ParagraphSeparator)

// NeedsChunking reports whether either text is longer than threshold characters.
func NeedsChunking(original, generated string, threshold int) bool {
	return utf8.RuneCountInString(original) > threshold || utf8.RuneCountInString(generated) > threshold
}

// SplitIntoChunks splits text on blank lines into chunks of at most maxSize
// characters. Paragraphs are never cut: a single paragraph larger than
// maxSize becomes its own oversized chunk. Joining the result with
// ParagraphSeparator reproduces text exactly.
func SplitIntoChunks(text string, maxSize int) []string {
	if utf8.RuneCountInString(text) <= maxSize {
		return []string{text}
	}

	var (
		chunks  []string
		current []string
		length  int
	)
	for _, para := range strings.Split(text, ParagraphSeparator) {
		paraLen := utf8.RuneCountInString(para)
		if length+paraLen > maxSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, ParagraphSeparator))
			current = []string{para}
			length = paraLen
			continue
		}
		current = append(current, para)
		length += paraLen + separatorWidth
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, ParagraphSeparator))
	}
	return chunks
}

// ChunkPair is one unit of chunked work: the i-th original chunk paired with
// the i-th generated chunk, plus the global character offset of each.
type ChunkPair struct {
	Index         int
	Original      string
	Generated     string
	OriginalBase  int
	GeneratedBase int
}

// PairChunks pads the shorter list with empty chunks, pairs the lists by
// index, and drops pairs where both sides are empty. Dropped pairs keep
// their slot in the index sequence, so Index always refers to the position
// in the padded lists.
func PairChunks(original, generated []string) []ChunkPair {
	n := len(original)
	if len(generated) > n {
		n = len(generated)
	}

	pairs := make([]ChunkPair, 0, n)
	origBase, genBase := 0, 0
	for i := 0; i < n; i++ {
		var o, g string
		if i < len(original) {
			o = original[i]
		}
		if i < len(generated) {
			g = generated[i]
		}
		if o != "" || g != "" {
			pairs = append(pairs, ChunkPair{
				Index:         i,
				Original:      o,
				Generated:     g,
				OriginalBase:  origBase,
				GeneratedBase: genBase,
			})
		}
		origBase += utf8.RuneCountInString(o) + separatorWidth
		genBase += utf8.RuneCountInString(g) + separatorWidth
	}
	return pairs
}

// ChunkOutcome is the verdict of one chunk. Err is set when the chunk failed
// after retries; Result is then ignored.
type ChunkOutcome struct {
	Pair   ChunkPair
	Result *DiffResult
	Err    error
}

// Failed reports whether the chunk contributes only a neutral placeholder.
func (c ChunkOutcome) Failed() bool {
	return c.Err != nil || c.Result == nil
}

// MergeChunkResults combines chunk verdicts into one global verdict.
//
//   - Changes are concatenated in chunk index order. Original-side spans are
//     shifted by the chunk's OriginalBase and generated-side spans by its
//     GeneratedBase.
//   - RiskScore is the truncated mean over successful chunks, capped at 100.
//   - SemanticChangeLevel is the most severe level of any successful chunk.
//   - IsSafe is recomputed from the merged risk and changes.
//
// Failed chunks contribute nothing. The inputs are not modified.
func MergeChunkResults(outcomes []ChunkOutcome) *DiffResult {
	ordered := make([]ChunkOutcome, len(outcomes))
	copy(ordered, outcomes)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Pair.Index < ordered[j].Pair.Index })

	merged := &DiffResult{Changes: []ChangeItem{}}
	level := LevelNone
	total, succeeded := 0, 0

	for _, oc := range ordered {
		if oc.Failed() {
			continue
		}
		succeeded++
		total += oc.Result.Summary.RiskScore
		level = MaxLevel(level, oc.Result.Summary.SemanticChangeLevel)

		for _, c := range oc.Result.Changes {
			c.OriginalSpan = c.OriginalSpan.Shift(oc.Pair.OriginalBase)
			c.GeneratedSpan = c.GeneratedSpan.Shift(oc.Pair.GeneratedBase)
			merged.Changes = append(merged.Changes, c)
		}
	}

	risk := 0
	if succeeded > 0 {
		risk = total / succeeded
	}
	if risk > 100 {
		risk = 100
	}
	if risk < 0 {
		risk = 0
	}

	merged.Summary = DiffSummary{
		IsSafe:              IsSafeFor(risk, merged.Changes),
		RiskScore:           risk,
		SemanticChangeLevel: level,
	}
	return merged
}
