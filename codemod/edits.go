package codemod

import "sort"

// Replacement is a span substitution against the original source bytes.
// Start == End inserts Text at Start.
type Replacement struct {
	Start int
	End   int
	Text  string
}

// applyReplacements applies rs in descending offset order so earlier spans
// stay valid while later ones are rewritten. Overlapping or out-of-range
// replacements are dropped.
func applyReplacements(src []byte, rs []Replacement) []byte {
	if len(rs) == 0 {
		return src
	}
	sorted := make([]Replacement, len(rs))
	copy(sorted, rs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start > sorted[j].Start
	})

	out := make([]byte, len(src))
	copy(out, src)
	limit := len(src)
	for _, r := range sorted {
		if r.Start < 0 || r.End < r.Start || r.End > limit {
			continue
		}
		var b []byte
		b = append(b, out[:r.Start]...)
		b = append(b, r.Text...)
		b = append(b, out[r.End:]...)
		out = b
		limit = r.Start
	}
	return out
}
