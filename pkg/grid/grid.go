/*
Package grid builds the position-indexed rule structure a prefix-constrained
decoder searches over.

Given a source sentence, a partially committed target prefix, and the rule
list produced by phrase-table lookup, the Grid files every rule under each
prefix position where its target span matches, tracks aggregate source and
target coverage, and fills coverage gaps with synthetic single-token rules
derived from cooccurrence counts, falling back to similarity-based reuse of
unmatched singleton rules when no statistical evidence exists.

A Grid is built and augmented once per sentence, queried by the decoder
through RulesAt, and discarded. It is not safe for concurrent mutation and
never needs to be: one grid serves exactly one in-flight sentence.
*/
package grid

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Angi16/phrasal/pkg/coverage"
	"github.com/charmbracelet/log"
)

// UnknownID is the sentinel vocabulary id for tokens absent from a model.
// Count lookups against it return zero.
const UnknownID = -1

var (
	// ErrPositionOutOfRange reports a bucket query outside [0, prefixLen).
	ErrPositionOutOfRange = errors.New("position outside prefix bounds")
	// ErrNotSupported reports an augmentation mode that has no implementation.
	ErrNotSupported = errors.New("not supported")
)

// Model is the read-only cooccurrence capability a translation model
// presents to the grid. Marginal and joint counts for UnknownID are zero.
type Model interface {
	VocabularyID(tok Token) int
	SourceMarginal(id int) int
	TargetMarginal(id int) int
	JointCount(srcID, tgtID int) int
}

// InputContext carries per-sentence decoding context through to the scorer.
// The grid never inspects it.
type InputContext map[string]string

// Scorer builds a fully scored synthetic rule from a one-token source span,
// a one-token target span, and the cooccurrence counts cntEF (joint), cntE
// (target marginal) and cntF (source marginal). targetCovered reports
// whether the target position already had coverage from another rule. The
// grid places the returned rule into its index as-is.
type Scorer interface {
	SyntheticRule(source, target Sequence, sourceCoverage *coverage.Set,
		cntEF, cntE, cntF int, ctx InputContext, sentence Sequence,
		sentenceID int, targetCovered bool) *Rule
}

// Grid indexes candidate rules by the prefix position their target span
// starts at. It owns its buckets, coverage sets and auxiliary bucket; the
// models and scorer passed to Augment are borrowed and outlive the grid.
type Grid struct {
	source Sequence
	prefix Sequence

	buckets        [][]*Rule
	sourceCoverage *coverage.Set
	targetCoverage *coverage.Set

	// aux holds singleton-target rules that matched nowhere in the prefix,
	// keyed by their target token. Similarity-fallback inventory only.
	aux map[Token][]*Rule
}

// New builds the grid from a candidate rule list. Construction is a pure
// function of its inputs: no model access, no rule synthesis.
func New(rules []*Rule, source, prefix Sequence) *Grid {
	g := &Grid{
		source:         source,
		prefix:         prefix,
		buckets:        make([][]*Rule, len(prefix)),
		sourceCoverage: coverage.New(len(source)),
		targetCoverage: coverage.New(len(prefix)),
		aux:            make(map[Token][]*Rule),
	}
	g.index(rules)
	return g
}

// index files each rule under every prefix position where its target span
// matches, and routes unmatched singleton rules to the auxiliary bucket.
func (g *Grid) index(rules []*Rule) {
	positions := make(map[Token][]int, len(g.prefix))
	for i, tok := range g.prefix {
		positions[tok] = append(positions[tok], i)
	}

	matched, aux := 0, 0
	for _, rule := range rules {
		if len(rule.Target) == 0 {
			continue
		}
		starts := g.matchStarts(positions, rule.Target)
		if len(starts) > 0 {
			g.sourceCoverage.Or(rule.SourceCoverage)
			for _, start := range starts {
				g.targetCoverage.SetRange(start, start+len(rule.Target))
				g.buckets[start] = append(g.buckets[start], rule)
				matched++
			}
		} else if len(rule.Target) == 1 {
			key := rule.Target[0]
			g.aux[key] = append(g.aux[key], rule)
			aux++
		}
	}
	log.Debugf("prefix rules: %d/%d, aux rules: %d/%d", matched, len(rules), aux, len(rules))
}

// matchStarts returns every prefix position where target matches token for
// token. A target may extend past the end of the prefix as long as the
// overlapping tokens agree.
func (g *Grid) matchStarts(positions map[Token][]int, target Sequence) []int {
	var starts []int
	for _, p := range positions[target[0]] {
		ok := true
		for i := 1; i < len(target) && p+i < len(g.prefix); i++ {
			if target[i] != g.prefix[p+i] {
				ok = false
				break
			}
		}
		if ok {
			starts = append(starts, p)
		}
	}
	return starts
}

// Augment fills uncovered prefix positions with synthetic singleton rules
// built from cooccurrence counts summed over the background and optional
// foreground model, then falls back to similarity-based reuse of auxiliary
// rules, and finally sorts every bucket by the rule total order. A position
// where neither path produces a rule is logged and left empty; that is not
// an error.
func (g *Grid) Augment(background, foreground Model, scorer Scorer, ctx InputContext, sentenceID int) {
	models := modelPair{background: background, foreground: foreground}

	for i := g.targetCoverage.NextClear(0); i < len(g.prefix); i = g.targetCoverage.NextClear(i + 1) {
		query := g.prefix[i]
		tgtBg, tgtFg := models.ids(query)
		cntE := models.targetMarginal(tgtBg, tgtFg)
		targetSpan := g.prefix.Sub(i, i+1)

		added := false
		for j := 0; j < len(g.source); j++ {
			srcBg, srcFg := models.ids(g.source[j])
			cntEF := models.joint(srcBg, tgtBg, srcFg, tgtFg)
			if cntEF == 0 {
				// No statistical evidence that these tokens translate each other.
				continue
			}
			cntF := models.sourceMarginal(srcBg, srcFg)
			spanCoverage := coverage.New(len(g.source))
			spanCoverage.Set(j)
			rule := scorer.SyntheticRule(g.source.Sub(j, j+1), targetSpan, spanCoverage,
				cntEF, cntE, cntF, ctx, g.source, sentenceID, g.targetCoverage.Get(i))
			g.buckets[i] = append(g.buckets[i], rule)
			added = true
		}

		if !added {
			added = g.reuseSimilar(i, targetSpan)
		}
		if !added {
			log.Warnf("no rule for %q at prefix position %d", string(query), i)
		}
	}

	for _, bucket := range g.buckets {
		sort.Slice(bucket, func(a, b int) bool { return bucket[a].Less(bucket[b]) })
	}
}

// reuseSimilar relabels auxiliary rules whose target token is close enough
// to the query token and inserts copies at position i. Each insertion is a
// deep copy, so one auxiliary rule can serve several gap positions without
// shared mutation.
func (g *Grid) reuseSimilar(i int, targetSpan Sequence) bool {
	query := targetSpan.String()
	added := false
	for key, rules := range g.aux {
		if jaccard(query, string(key)) < simThreshold {
			continue
		}
		for _, rule := range rules {
			relabeled := rule.Clone()
			relabeled.Target = targetSpan
			relabeled.Provenance = ProvenanceRelabeled
			g.buckets[i] = append(g.buckets[i], relabeled)
			added = true
		}
	}
	return added
}

// AugmentFull widens the grid against a whole translation-model table
// without a prefix-targeted scan. Deliberately unimplemented: it fails
// loudly instead of silently doing nothing.
func (g *Grid) AugmentFull(model Model, scorer Scorer, ctx InputContext) error {
	return fmt.Errorf("augmenting from a full rule table: %w", ErrNotSupported)
}

// RulesAt returns the bucket of rules whose target span starts at pos.
func (g *Grid) RulesAt(pos int) ([]*Rule, error) {
	if pos < 0 || pos >= len(g.prefix) {
		return nil, fmt.Errorf("position %d with prefix length %d: %w", pos, len(g.prefix), ErrPositionOutOfRange)
	}
	return g.buckets[pos], nil
}

// SourceCoverage returns the aggregate source coverage. Callers must treat
// the set as read-only.
func (g *Grid) SourceCoverage() *coverage.Set {
	return g.sourceCoverage
}

// TargetCoverage returns the aggregate target coverage. Callers must treat
// the set as read-only.
func (g *Grid) TargetCoverage() *coverage.Set {
	return g.targetCoverage
}

// PrefixLen returns the number of buckets in the grid.
func (g *Grid) PrefixLen() int {
	return len(g.prefix)
}

// modelPair sums counts across the background and optional foreground
// model. An absent foreground contributes zero everywhere, which keeps the
// zero-is-default contract in one place instead of inline nil branching.
type modelPair struct {
	background Model
	foreground Model
}

func (p modelPair) ids(tok Token) (bgID, fgID int) {
	bgID = p.background.VocabularyID(tok)
	fgID = UnknownID
	if p.foreground != nil {
		fgID = p.foreground.VocabularyID(tok)
	}
	return bgID, fgID
}

func (p modelPair) sourceMarginal(bgID, fgID int) int {
	n := p.background.SourceMarginal(bgID)
	if p.foreground != nil {
		n += p.foreground.SourceMarginal(fgID)
	}
	return n
}

func (p modelPair) targetMarginal(bgID, fgID int) int {
	n := p.background.TargetMarginal(bgID)
	if p.foreground != nil {
		n += p.foreground.TargetMarginal(fgID)
	}
	return n
}

func (p modelPair) joint(srcBg, tgtBg, srcFg, tgtFg int) int {
	n := p.background.JointCount(srcBg, tgtBg)
	if p.foreground != nil {
		n += p.foreground.JointCount(srcFg, tgtFg)
	}
	return n
}
