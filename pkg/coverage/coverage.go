// Package coverage implements the growable bitset used to track which
// source and target positions have been accounted for by translation rules.
package coverage

import (
	"fmt"
	"math/bits"
	"strings"
)

const wordBits = 64

// Set is a mutable bitset over non-negative integer positions.
// The zero value is usable; bits beyond the stored words read as clear.
type Set struct {
	words []uint64
}

// New creates a set sized for positions [0, capacity).
func New(capacity int) *Set {
	if capacity < 0 {
		capacity = 0
	}
	return &Set{words: make([]uint64, (capacity+wordBits-1)/wordBits)}
}

// grow ensures the word holding bit i exists.
func (s *Set) grow(i int) {
	need := i/wordBits + 1
	for len(s.words) < need {
		s.words = append(s.words, 0)
	}
}

// Set marks position i as covered.
func (s *Set) Set(i int) {
	if i < 0 {
		return
	}
	s.grow(i)
	s.words[i/wordBits] |= 1 << uint(i%wordBits)
}

// SetRange marks every position in [start, end) as covered.
func (s *Set) SetRange(start, end int) {
	for i := start; i < end; i++ {
		s.Set(i)
	}
}

// Get reports whether position i is covered.
func (s *Set) Get(i int) bool {
	if i < 0 || i/wordBits >= len(s.words) {
		return false
	}
	return s.words[i/wordBits]&(1<<uint(i%wordBits)) != 0
}

// Or unions other into s. Coverage only ever grows.
func (s *Set) Or(other *Set) {
	if other == nil {
		return
	}
	if len(other.words) > 0 {
		s.grow(len(other.words)*wordBits - 1)
	}
	for i, w := range other.words {
		s.words[i] |= w
	}
}

// NextClear returns the first uncovered position at or after from.
// Positions beyond the stored words are clear, so the scan always terminates.
func (s *Set) NextClear(from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; ; i++ {
		if !s.Get(i) {
			return i
		}
	}
}

// Cardinality returns the number of covered positions.
func (s *Set) Cardinality() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// IsSubsetOf reports whether every covered position in s is covered in other.
func (s *Set) IsSubsetOf(other *Set) bool {
	for i, w := range s.words {
		var o uint64
		if other != nil && i < len(other.words) {
			o = other.words[i]
		}
		if w&^o != 0 {
			return false
		}
	}
	return true
}

// Bits lists the covered positions in increasing order.
func (s *Set) Bits() []int {
	out := make([]int, 0, s.Cardinality())
	for i, w := range s.words {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, i*wordBits+b)
			w &^= 1 << uint(b)
		}
	}
	return out
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	words := make([]uint64, len(s.words))
	copy(words, s.words)
	return &Set{words: words}
}

// String renders the set as "{0, 2, 3}".
func (s *Set) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, pos := range s.Bits() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", pos)
	}
	b.WriteByte('}')
	return b.String()
}
