package diff

// DefaultSimilarityThreshold is the ratio above which two texts are treated
// as identical and the oracle is skipped.
const DefaultSimilarityThreshold = 0.96

// autojunkMinLength is the length of b from which over-represented
// characters stop seeding matches.
const autojunkMinLength = 200

// SimilarityRatio returns 2*M/T where T is the total number of characters in
// a and b and M is the number of characters in the matching blocks found by
// recursively taking the longest common substring (Ratcliff/Obershelp).
// Characters that make up more than 1% of a text of 200 or more characters
// do not seed matches but may still extend one. Two empty texts have ratio 1.
func SimilarityRatio(a, b string) float64 {
	ar, br := []rune(a), []rune(b)
	total := len(ar) + len(br)
	if total == 0 {
		return 1.0
	}
	m := newMatcher(ar, br)
	return 2.0 * float64(m.matchedCount()) / float64(total)
}

type matcher struct {
	a, b []rune
	b2j  map[rune][]int
}

func newMatcher(a, b []rune) *matcher {
	b2j := make(map[rune][]int)
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}
	if n := len(b); n >= autojunkMinLength {
		limit := n/100 + 1
		for r, idx := range b2j {
			if len(idx) > limit {
				delete(b2j, r)
			}
		}
	}
	return &matcher{a: a, b: b, b2j: b2j}
}

type match struct{ i, j, size int }

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] inside the given
// bounds, preferring the earliest i and then the earliest j.
func (m *matcher) longestMatch(alo, ahi, blo, bhi int) match {
	best := match{i: alo, j: blo}
	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > best.size {
				best = match{i: i - k + 1, j: j - k + 1, size: k}
			}
		}
		j2len = next
	}

	// Grow the block over characters excluded from b2j.
	for best.i > alo && best.j > blo && m.a[best.i-1] == m.b[best.j-1] {
		best.i--
		best.j--
		best.size++
	}
	for best.i+best.size < ahi && best.j+best.size < bhi && m.a[best.i+best.size] == m.b[best.j+best.size] {
		best.size++
	}
	return best
}

func (m *matcher) matchedCount() int {
	type bounds struct{ alo, ahi, blo, bhi int }
	queue := []bounds{{0, len(m.a), 0, len(m.b)}}
	matched := 0
	for len(queue) > 0 {
		q := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		x := m.longestMatch(q.alo, q.ahi, q.blo, q.bhi)
		if x.size == 0 {
			continue
		}
		matched += x.size
		if q.alo < x.i && q.blo < x.j {
			queue = append(queue, bounds{q.alo, x.i, q.blo, x.j})
		}
		if x.i+x.size < q.ahi && x.j+x.size < q.bhi {
			queue = append(queue, bounds{x.i + x.size, q.ahi, x.j + x.size, q.bhi})
		}
	}
	return matched
}
