package grid

import "strings"

// Token is an atomic target- or source-language symbol with value equality.
type Token string

// Sequence is an ordered list of tokens. Callers treat sequences as
// immutable; Sub returns a view over the same backing array.
type Sequence []Token

// Tokenize splits a whitespace-delimited string into a Sequence.
func Tokenize(s string) Sequence {
	fields := strings.Fields(s)
	seq := make(Sequence, len(fields))
	for i, f := range fields {
		seq[i] = Token(f)
	}
	return seq
}

// Sub extracts the subsequence [start, end).
func (s Sequence) Sub(start, end int) Sequence {
	return s[start:end]
}

// Equal compares two sequences element-wise.
func (s Sequence) Equal(other Sequence) bool {
	if len(s) != len(other) {
		return false
	}
	for i, tok := range s {
		if tok != other[i] {
			return false
		}
	}
	return true
}

// String joins the tokens with single spaces.
func (s Sequence) String() string {
	var b strings.Builder
	for i, tok := range s {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(string(tok))
	}
	return b.String()
}
