package tm

import (
	"sync"

	"github.com/Angi16/phrasal/pkg/grid"
	"github.com/charmbracelet/log"
)

// Model combines a vocabulary and a cooccurrence table behind the grid's
// read capability. Reads may run concurrently from any number of
// sentence-level workers; Update serializes writers against those readers,
// which makes the same type usable as a static background model or an
// online-adapted foreground model.
type Model struct {
	name string

	mu    sync.RWMutex
	vocab *Vocabulary
	cooc  *CoocTable
}

// NewModel creates an empty model. name shows up in logs only.
func NewModel(name string) *Model {
	return &Model{
		name:  name,
		vocab: NewVocabulary(),
		cooc:  NewCoocTable(),
	}
}

// VocabularyID maps tok to this model's id space, grid.UnknownID if absent.
func (m *Model) VocabularyID(tok grid.Token) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vocab.ID(tok)
}

// SourceMarginal returns the source-side marginal count for id.
func (m *Model) SourceMarginal(id int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cooc.SrcMarginal(id)
}

// TargetMarginal returns the target-side marginal count for id.
func (m *Model) TargetMarginal(id int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cooc.TgtMarginal(id)
}

// JointCount returns the joint count for the (srcID, tgtID) pair.
func (m *Model) JointCount(srcID, tgtID int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cooc.JointCount(srcID, tgtID)
}

// AddCount interns both tokens and records n cooccurrences of the pair.
func (m *Model) AddCount(src, tgt grid.Token, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cooc.Add(m.vocab.Add(src), m.vocab.Add(tgt), n)
}

// Update folds an aligned sentence pair into the model, one count per
// alignment link. Links pointing outside either sentence are skipped with a
// debug note. This is the online-adaptation entry point for a foreground
// model tracking recent session or document context.
func (m *Model) Update(source, target grid.Sequence, alignment [][2]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, link := range alignment {
		s, t := link[0], link[1]
		if s < 0 || s >= len(source) || t < 0 || t >= len(target) {
			log.Debugf("%s: alignment link (%d,%d) outside %dx%d pair, skipped",
				m.name, s, t, len(source), len(target))
			continue
		}
		m.cooc.Add(m.vocab.Add(source[s]), m.vocab.Add(target[t]), 1)
	}
}

// Stats reports model size counters for diagnostics.
func (m *Model) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]int{
		"vocabulary": m.vocab.Len(),
		"pairs":      m.cooc.Pairs(),
	}
}

// Name returns the label the model logs under.
func (m *Model) Name() string {
	return m.name
}

var _ grid.Model = (*Model)(nil)
