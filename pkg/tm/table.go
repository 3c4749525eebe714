package tm

import (
	"github.com/Angi16/phrasal/pkg/coverage"
	"github.com/Angi16/phrasal/pkg/grid"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// tableEntry is one stored translation of a source phrase.
type tableEntry struct {
	target   grid.Sequence
	score    float64
	features map[string]float64
}

// PhraseTable indexes translation rules by their source phrase and produces
// the concrete, source-matched rule list the grid is built from.
type PhraseTable struct {
	trie         *patricia.Trie
	maxPhraseLen int
	entries      int
}

// NewPhraseTable creates a table that matches source spans up to
// maxPhraseLen tokens long.
func NewPhraseTable(maxPhraseLen int) *PhraseTable {
	if maxPhraseLen < 1 {
		maxPhraseLen = 1
	}
	return &PhraseTable{
		trie:         patricia.NewTrie(),
		maxPhraseLen: maxPhraseLen,
	}
}

// Add stores a source => target translation with its score and features.
func (t *PhraseTable) Add(source, target grid.Sequence, score float64, features map[string]float64) {
	if len(source) == 0 || len(target) == 0 {
		log.Warnf("phrase table: dropping entry with empty span (%q => %q)", source, target)
		return
	}
	key := patricia.Prefix(source.String())
	entry := tableEntry{target: target, score: score, features: features}
	if item := t.trie.Get(key); item != nil {
		t.trie.Set(key, append(item.([]tableEntry), entry))
	} else {
		t.trie.Set(key, []tableEntry{entry})
	}
	t.entries++
}

// Lookup enumerates every span of the source sentence up to the maximum
// phrase length and emits one concrete rule per stored translation, each
// carrying the coverage of the span it was matched at. A phrase occurring
// at several spans yields a rule per span.
func (t *PhraseTable) Lookup(source grid.Sequence) []*grid.Rule {
	var rules []*grid.Rule
	for i := 0; i < len(source); i++ {
		for j := i + 1; j <= len(source) && j-i <= t.maxPhraseLen; j++ {
			span := source.Sub(i, j)
			item := t.trie.Get(patricia.Prefix(span.String()))
			if item == nil {
				continue
			}
			for _, entry := range item.([]tableEntry) {
				cov := coverage.New(len(source))
				cov.SetRange(i, j)
				rules = append(rules, &grid.Rule{
					Source:         span,
					Target:         entry.target,
					SourceCoverage: cov,
					Score:          entry.score,
					Features:       entry.features,
					Provenance:     grid.ProvenanceTable,
				})
			}
		}
	}
	log.Debugf("phrase table: %d rules for %d source tokens", len(rules), len(source))
	return rules
}

// Len returns the number of stored translations.
func (t *PhraseTable) Len() int {
	return t.entries
}

// visit walks every stored entry, used by the model codec.
func (t *PhraseTable) visit(fn func(source string, entry tableEntry)) {
	_ = t.trie.Visit(func(prefix patricia.Prefix, item patricia.Item) error {
		for _, entry := range item.([]tableEntry) {
			fn(string(prefix), entry)
		}
		return nil
	})
}
