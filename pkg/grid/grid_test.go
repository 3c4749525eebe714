package grid

import (
	"errors"
	"testing"

	"github.com/Angi16/phrasal/pkg/coverage"
)

// stubModel is a fixed-count cooccurrence model for grid tests.
type stubModel struct {
	vocab map[Token]int
	src   map[int]int
	tgt   map[int]int
	joint map[[2]int]int
}

func (m *stubModel) VocabularyID(tok Token) int {
	if id, ok := m.vocab[tok]; ok {
		return id
	}
	return UnknownID
}

func (m *stubModel) SourceMarginal(id int) int      { return m.src[id] }
func (m *stubModel) TargetMarginal(id int) int      { return m.tgt[id] }
func (m *stubModel) JointCount(srcID, tgtID int) int { return m.joint[[2]int{srcID, tgtID}] }

func emptyModel() *stubModel {
	return &stubModel{
		vocab: map[Token]int{},
		src:   map[int]int{},
		tgt:   map[int]int{},
		joint: map[[2]int]int{},
	}
}

// stubScorer scores synthetic rules by their raw joint count.
type stubScorer struct{}

func (stubScorer) SyntheticRule(source, target Sequence, cov *coverage.Set,
	cntEF, cntE, cntF int, ctx InputContext, sentence Sequence,
	sentenceID int, targetCovered bool) *Rule {
	return &Rule{
		Source:         source,
		Target:         target,
		SourceCoverage: cov,
		Score:          float64(cntEF),
		Provenance:     ProvenanceSynthetic,
	}
}

func tableRule(source, target string, spanStart int, score float64) *Rule {
	src := Tokenize(source)
	cov := coverage.New(spanStart + len(src))
	cov.SetRange(spanStart, spanStart+len(src))
	return &Rule{
		Source:         src,
		Target:         Tokenize(target),
		SourceCoverage: cov,
		Score:          score,
		Provenance:     ProvenanceTable,
	}
}

func mustRulesAt(t *testing.T, g *Grid, pos int) []*Rule {
	t.Helper()
	rules, err := g.RulesAt(pos)
	if err != nil {
		t.Fatalf("RulesAt(%d): %v", pos, err)
	}
	return rules
}

func TestMatchingAllowsOverhang(t *testing.T) {
	source := Tokenize("s0 s1 s2")
	prefix := Tokenize("a b c")

	overhang := tableRule("s1", "b c d", 1, 1.0) // extends past the prefix end
	mismatch := tableRule("s2", "b x", 2, 1.0)   // disagrees at the second token
	g := New([]*Rule{overhang, mismatch}, source, prefix)

	if got := mustRulesAt(t, g, 1); len(got) != 1 || got[0] != overhang {
		t.Errorf("bucket 1 = %v, want the overhanging rule only", got)
	}
	for _, pos := range []int{0, 2} {
		if got := mustRulesAt(t, g, pos); len(got) != 0 {
			t.Errorf("bucket %d = %v, want empty", pos, got)
		}
	}
	// The full target span counts toward coverage, even past the prefix end.
	for i := 1; i <= 3; i++ {
		if !g.TargetCoverage().Get(i) {
			t.Errorf("target coverage missing bit %d", i)
		}
	}
	if g.TargetCoverage().Get(0) {
		t.Error("position 0 must be uncovered")
	}
}

func TestRepeatedPrefixTokensMatchEverywhere(t *testing.T) {
	source := Tokenize("s0")
	prefix := Tokenize("b a b")
	rule := tableRule("s0", "b", 0, 1.0)
	g := New([]*Rule{rule}, source, prefix)

	for _, pos := range []int{0, 2} {
		if got := mustRulesAt(t, g, pos); len(got) != 1 {
			t.Errorf("bucket %d has %d rules, want 1", pos, len(got))
		}
	}
	if got := mustRulesAt(t, g, 1); len(got) != 0 {
		t.Errorf("bucket 1 = %v, want empty", got)
	}
}

func TestCoverageMonotonicity(t *testing.T) {
	source := Tokenize("s0 s1 s2")
	prefix := Tokenize("a b")
	rules := []*Rule{
		tableRule("s0", "a", 0, 1.0),
		tableRule("s1 s2", "b", 1, 2.0),
	}
	g := New(rules, source, prefix)

	for pos := 0; pos < g.PrefixLen(); pos++ {
		for _, rule := range mustRulesAt(t, g, pos) {
			if !rule.SourceCoverage.IsSubsetOf(g.SourceCoverage()) {
				t.Errorf("rule %v source coverage %v escapes aggregate %v",
					rule, rule.SourceCoverage, g.SourceCoverage())
			}
			for i := pos; i < pos+len(rule.Target); i++ {
				if !g.TargetCoverage().Get(i) {
					t.Errorf("rule %v target span bit %d not in aggregate coverage", rule, i)
				}
			}
		}
	}
}

func TestAuxiliaryFiling(t *testing.T) {
	source := Tokenize("s0")
	prefix := Tokenize("a b")
	stray := tableRule("s0", "zzz", 0, 1.0)
	long := tableRule("s0", "x y", 0, 1.0) // unmatched multi-token rules are dropped
	g := New([]*Rule{stray, long}, source, prefix)

	if got := len(g.aux[Token("zzz")]); got != 1 {
		t.Errorf("aux bucket holds %d rules for zzz, want 1", got)
	}
	if len(g.aux) != 1 {
		t.Errorf("aux bucket has %d keys, want 1", len(g.aux))
	}
	for pos := 0; pos < g.PrefixLen(); pos++ {
		if got := mustRulesAt(t, g, pos); len(got) != 0 {
			t.Errorf("bucket %d = %v, want empty before augmentation", pos, got)
		}
	}
	if g.SourceCoverage().Cardinality() != 0 || g.TargetCoverage().Cardinality() != 0 {
		t.Error("unmatched rules must not contribute coverage")
	}
}

func TestAugmentAddsSyntheticRules(t *testing.T) {
	source := Tokenize("the cat")
	prefix := Tokenize("chat")
	model := &stubModel{
		vocab: map[Token]int{"the": 0, "cat": 1, "chat": 10},
		src:   map[int]int{0: 50, 1: 20},
		tgt:   map[int]int{10: 30},
		joint: map[[2]int]int{{1, 10}: 12},
	}
	g := New(nil, source, prefix)
	g.Augment(model, nil, stubScorer{}, nil, 0)

	rules := mustRulesAt(t, g, 0)
	if len(rules) != 1 {
		t.Fatalf("bucket 0 has %d rules, want 1 synthetic", len(rules))
	}
	rule := rules[0]
	if rule.Provenance != ProvenanceSynthetic {
		t.Errorf("provenance = %v, want synthetic", rule.Provenance)
	}
	if !rule.Source.Equal(Tokenize("cat")) || !rule.Target.Equal(Tokenize("chat")) {
		t.Errorf("synthetic rule spans %v => %v, want cat => chat", rule.Source, rule.Target)
	}
	if got := rule.SourceCoverage.Bits(); len(got) != 1 || got[0] != 1 {
		t.Errorf("synthetic source coverage = %v, want {1}", rule.SourceCoverage)
	}
	if rule.Score != 12 {
		t.Errorf("score = %v, want the joint count 12", rule.Score)
	}
}

func TestAugmentSumsBackgroundAndForeground(t *testing.T) {
	source := Tokenize("gato")
	prefix := Tokenize("cat")
	background := &stubModel{
		vocab: map[Token]int{"gato": 0, "cat": 1},
		src:   map[int]int{0: 4},
		tgt:   map[int]int{1: 6},
		joint: map[[2]int]int{{0, 1}: 3},
	}
	foreground := &stubModel{
		vocab: map[Token]int{"gato": 7, "cat": 8},
		src:   map[int]int{7: 2},
		tgt:   map[int]int{8: 1},
		joint: map[[2]int]int{{7, 8}: 5},
	}
	g := New(nil, source, prefix)
	g.Augment(background, foreground, stubScorer{}, nil, 0)

	rules := mustRulesAt(t, g, 0)
	if len(rules) != 1 {
		t.Fatalf("bucket 0 has %d rules, want 1", len(rules))
	}
	if rules[0].Score != 8 {
		t.Errorf("score = %v, want joint counts summed across models (3+5)", rules[0].Score)
	}
}

func TestAugmentFallsBackToSimilarAuxRules(t *testing.T) {
	source := Tokenize("s0")
	prefix := Tokenize("chats")
	aux := tableRule("s0", "chat", 0, 2.5) // jaccard(chats, chat) = 0.8
	far := tableRule("s0", "xyq", 0, 9.0)  // far below threshold
	g := New([]*Rule{aux, far}, source, prefix)
	g.Augment(emptyModel(), nil, stubScorer{}, nil, 0)

	rules := mustRulesAt(t, g, 0)
	if len(rules) != 1 {
		t.Fatalf("bucket 0 has %d rules, want 1 relabeled", len(rules))
	}
	got := rules[0]
	if got.Provenance != ProvenanceRelabeled {
		t.Errorf("provenance = %v, want relabeled", got.Provenance)
	}
	if !got.Target.Equal(prefix) {
		t.Errorf("relabeled target = %v, want %v", got.Target, prefix)
	}
	if got == aux {
		t.Error("fallback must insert a copy, not the auxiliary rule itself")
	}
	if !aux.Target.Equal(Tokenize("chat")) {
		t.Errorf("auxiliary rule mutated: target now %v", aux.Target)
	}
}

func TestAugmentFallbackBelowThreshold(t *testing.T) {
	source := Tokenize("s0")
	prefix := Tokenize("chien")
	aux := tableRule("s0", "chat", 0, 2.5) // jaccard(chien, chat) = 2/7
	g := New([]*Rule{aux}, source, prefix)
	g.Augment(emptyModel(), nil, stubScorer{}, nil, 0)

	if rules := mustRulesAt(t, g, 0); len(rules) != 0 {
		t.Errorf("bucket 0 = %v, want empty when nothing clears the threshold", rules)
	}
}

func TestAuxRuleServesMultipleGaps(t *testing.T) {
	source := Tokenize("s0")
	prefix := Tokenize("chats chatz")
	aux := tableRule("s0", "chat", 0, 2.5)
	g := New([]*Rule{aux}, source, prefix)
	g.Augment(emptyModel(), nil, stubScorer{}, nil, 0)

	first := mustRulesAt(t, g, 0)
	second := mustRulesAt(t, g, 1)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("buckets sized %d/%d, want 1/1", len(first), len(second))
	}
	if first[0] == second[0] {
		t.Error("each gap position must receive its own copy")
	}
	if !first[0].Target.Equal(Tokenize("chats")) || !second[0].Target.Equal(Tokenize("chatz")) {
		t.Errorf("relabeled targets %v / %v do not track their query tokens",
			first[0].Target, second[0].Target)
	}
}

func TestBucketSortIsIdempotent(t *testing.T) {
	source := Tokenize("s0 s1 s2")
	prefix := Tokenize("a")
	rules := []*Rule{
		tableRule("s0", "a", 0, 1.0),
		tableRule("s1", "a", 1, 1.0), // same score, distinct source
		tableRule("s2", "a", 2, 3.0),
	}
	g := New(rules, source, prefix)
	g.Augment(emptyModel(), nil, stubScorer{}, nil, 0)

	first := append([]*Rule(nil), mustRulesAt(t, g, 0)...)
	g.Augment(emptyModel(), nil, stubScorer{}, nil, 0)
	second := mustRulesAt(t, g, 0)

	if len(first) != len(second) {
		t.Fatalf("bucket size changed across sorts: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order differs at %d: %v vs %v", i, first[i], second[i])
		}
	}
	if second[0].Score != 3.0 {
		t.Errorf("best rule first: got score %v", second[0].Score)
	}
}

func TestRulesAtOutOfRange(t *testing.T) {
	g := New(nil, Tokenize("s0"), Tokenize("a b"))
	for _, pos := range []int{-1, 2, 100} {
		if _, err := g.RulesAt(pos); !errors.Is(err, ErrPositionOutOfRange) {
			t.Errorf("RulesAt(%d) = %v, want ErrPositionOutOfRange", pos, err)
		}
	}
}

func TestAugmentFullIsNotSupported(t *testing.T) {
	g := New(nil, Tokenize("s0"), Tokenize("a"))
	if err := g.AugmentFull(emptyModel(), stubScorer{}, nil); !errors.Is(err, ErrNotSupported) {
		t.Errorf("AugmentFull = %v, want ErrNotSupported", err)
	}
}

// The scenario from the interactive-translation setting: one table rule
// covers the whole typed prefix, so augmentation finds no gap to fill.
func TestCoveredPrefixNeedsNoAugmentation(t *testing.T) {
	source := Tokenize("the cat")
	prefix := Tokenize("le")
	rules := []*Rule{
		tableRule("the", "le", 0, 1.0),
		tableRule("cat", "chat", 1, 1.0),
	}
	g := New(rules, source, prefix)

	if got := mustRulesAt(t, g, 0); len(got) != 1 || !got[0].Target.Equal(Tokenize("le")) {
		t.Fatalf("bucket 0 = %v, want the le rule", got)
	}
	if got := g.TargetCoverage().Bits(); len(got) != 1 || got[0] != 0 {
		t.Errorf("target coverage = %v, want {0}", g.TargetCoverage())
	}
	if got := len(g.aux[Token("chat")]); got != 1 {
		t.Errorf("chat rule filed %d times in aux, want 1", got)
	}

	g.Augment(emptyModel(), nil, stubScorer{}, nil, 0)
	if got := mustRulesAt(t, g, 0); len(got) != 1 {
		t.Errorf("augmentation added rules to a fully covered prefix: %v", got)
	}
}
