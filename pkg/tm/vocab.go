/*
Package tm provides the translation-model collaborators the grid consumes:
an interned vocabulary, a cooccurrence count table, a model combining both
behind the grid's read capability, a patricia-trie phrase table producing
candidate rules, and a msgpack codec for model files.
*/
package tm

import "github.com/Angi16/phrasal/pkg/grid"

// Vocabulary interns tokens to dense integer ids within one model instance.
// Lookups of absent tokens return grid.UnknownID.
type Vocabulary struct {
	ids    map[grid.Token]int
	tokens []grid.Token
}

func NewVocabulary() *Vocabulary {
	return &Vocabulary{ids: make(map[grid.Token]int)}
}

// Add interns tok and returns its id, reusing an existing id on repeats.
func (v *Vocabulary) Add(tok grid.Token) int {
	if id, ok := v.ids[tok]; ok {
		return id
	}
	id := len(v.tokens)
	v.ids[tok] = id
	v.tokens = append(v.tokens, tok)
	return id
}

// ID returns the id for tok, or grid.UnknownID if it was never interned.
func (v *Vocabulary) ID(tok grid.Token) int {
	if id, ok := v.ids[tok]; ok {
		return id
	}
	return grid.UnknownID
}

// Token returns the token for a valid id.
func (v *Vocabulary) Token(id int) (grid.Token, bool) {
	if id < 0 || id >= len(v.tokens) {
		return "", false
	}
	return v.tokens[id], true
}

// Len returns the number of interned tokens.
func (v *Vocabulary) Len() int {
	return len(v.tokens)
}
