package extract

import (
	"sort"
)

// Pair is an (account, token) style entity of interest.
type Pair struct {
	Subject string
	Object  string
}

// PairSet is a deduplicating set of pairs.
type PairSet map[Pair]struct{}

// Add inserts p; adding an existing pair is a no-op.
func (s PairSet) Add(p Pair) { s[p] = struct{}{} }

// Has reports membership.
func (s PairSet) Has(p Pair) bool {
	_, ok := s[p]
	return ok
}

// Merge adds every pair of o into s.
func (s PairSet) Merge(o PairSet) {
	for p := range o {
		s[p] = struct{}{}
	}
}

// Sorted returns the pairs ordered by subject, then object.
func (s PairSet) Sorted() []Pair {
	out := make([]Pair, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Object < out[j].Object
	})
	return out
}
