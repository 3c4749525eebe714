package grid

// simThreshold is the fixed character-level Jaccard cutoff for reusing an
// auxiliary rule at an uncovered position.
const simThreshold = 0.75

// jaccard computes the Jaccard similarity of the character sets of a and b.
// Two empty strings are identical; an empty string against a non-empty one
// shares nothing.
func jaccard(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	setA := make(map[rune]struct{}, len(a))
	for _, r := range a {
		setA[r] = struct{}{}
	}
	setB := make(map[rune]struct{}, len(b))
	for _, r := range b {
		setB[r] = struct{}{}
	}
	inter := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0.0
	}
	return float64(inter) / float64(union)
}
