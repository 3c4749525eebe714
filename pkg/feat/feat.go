// Package feat implements the scorer that turns cooccurrence counts into
// fully scored synthetic rules. The grid treats the result as opaque; only
// this package knows the scoring formula.
package feat

import (
	"math"

	"github.com/Angi16/phrasal/pkg/coverage"
	"github.com/Angi16/phrasal/pkg/grid"
)

// minLogProb floors log-probabilities when a marginal count is zero, which
// can happen when all evidence for a pair lives in one model's marginals.
const minLogProb = -20.0

// coveredPenalty demotes synthetic rules built for positions that already
// had coverage from another rule.
const coveredPenalty = 2.0

// LexicalScorer scores a synthetic singleton rule with bidirectional
// lexical log-probabilities derived from joint and marginal counts.
type LexicalScorer struct{}

func NewLexicalScorer() *LexicalScorer {
	return &LexicalScorer{}
}

// SyntheticRule builds a scored rule from one source token, one target
// token, and their cooccurrence counts.
func (s *LexicalScorer) SyntheticRule(source, target grid.Sequence, sourceCoverage *coverage.Set,
	cntEF, cntE, cntF int, ctx grid.InputContext, sentence grid.Sequence,
	sentenceID int, targetCovered bool) *grid.Rule {

	forward := logRatio(cntEF, cntF)  // p(e|f)
	backward := logRatio(cntEF, cntE) // p(f|e)
	score := forward + backward
	if targetCovered {
		score -= coveredPenalty
	}

	return &grid.Rule{
		Source:         source,
		Target:         target,
		SourceCoverage: sourceCoverage,
		Score:          score,
		Features: map[string]float64{
			"lex.e|f":   forward,
			"lex.f|e":   backward,
			"synthetic": 1,
		},
		Provenance: grid.ProvenanceSynthetic,
	}
}

func logRatio(num, denom int) float64 {
	if num <= 0 || denom <= 0 {
		return minLogProb
	}
	r := math.Log(float64(num) / float64(denom))
	if r < minLogProb {
		return minLogProb
	}
	return r
}

var _ grid.Scorer = (*LexicalScorer)(nil)
