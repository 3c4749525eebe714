package grid

import (
	"fmt"

	"github.com/Angi16/phrasal/pkg/coverage"
)

// Provenance tags where a rule came from. All variants carry the same
// payload and are consumed uniformly; downstream code only branches on the
// tag for display and diagnostics.
type Provenance uint8

const (
	// ProvenanceTable marks rules produced by phrase-table lookup.
	ProvenanceTable Provenance = iota
	// ProvenanceSynthetic marks rules built on the fly from cooccurrence counts.
	ProvenanceSynthetic
	// ProvenanceRelabeled marks auxiliary rules reused at a gap position via
	// string similarity, with their target span rewritten to the query token.
	ProvenanceRelabeled
)

func (p Provenance) String() string {
	switch p {
	case ProvenanceTable:
		return "table"
	case ProvenanceSynthetic:
		return "synthetic"
	case ProvenanceRelabeled:
		return "relabeled"
	}
	return "unknown"
}

// Rule is a candidate source-span to target-span translation fragment.
// SourceCoverage holds the positions of the source sentence the rule
// consumes. Features are opaque to this package beyond the total order
// implemented by Less.
type Rule struct {
	Source         Sequence
	Target         Sequence
	SourceCoverage *coverage.Set
	Score          float64
	Features       map[string]float64
	Provenance     Provenance
}

// Less is a strict total order over rules: higher score first, ties broken
// by target string, source string, then provenance. Deterministic ties keep
// the final bucket sort idempotent.
func (r *Rule) Less(other *Rule) bool {
	if r.Score != other.Score {
		return r.Score > other.Score
	}
	if a, b := r.Target.String(), other.Target.String(); a != b {
		return a < b
	}
	if a, b := r.Source.String(), other.Source.String(); a != b {
		return a < b
	}
	return r.Provenance < other.Provenance
}

// Clone deep-copies the rule so relabeled reuse at one gap position can
// never mutate the copy inserted at another.
func (r *Rule) Clone() *Rule {
	target := make(Sequence, len(r.Target))
	copy(target, r.Target)
	source := make(Sequence, len(r.Source))
	copy(source, r.Source)
	var cov *coverage.Set
	if r.SourceCoverage != nil {
		cov = r.SourceCoverage.Clone()
	}
	var features map[string]float64
	if r.Features != nil {
		features = make(map[string]float64, len(r.Features))
		for k, v := range r.Features {
			features[k] = v
		}
	}
	return &Rule{
		Source:         source,
		Target:         target,
		SourceCoverage: cov,
		Score:          r.Score,
		Features:       features,
		Provenance:     r.Provenance,
	}
}

func (r *Rule) String() string {
	return fmt.Sprintf("%s => %s [%s %.4f]", r.Source, r.Target, r.Provenance, r.Score)
}
