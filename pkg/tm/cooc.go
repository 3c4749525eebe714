package tm

// CoocTable stores joint and marginal cooccurrence counts keyed by
// vocabulary id. Every lookup with a negative (unknown) id returns zero;
// absence of evidence is a normal condition, never an error.
type CoocTable struct {
	joint       map[uint64]int
	srcMarginal map[int]int
	tgtMarginal map[int]int
}

func NewCoocTable() *CoocTable {
	return &CoocTable{
		joint:       make(map[uint64]int),
		srcMarginal: make(map[int]int),
		tgtMarginal: make(map[int]int),
	}
}

func pairKey(srcID, tgtID int) uint64 {
	return uint64(uint32(srcID))<<32 | uint64(uint32(tgtID))
}

// Add records n cooccurrences of the (srcID, tgtID) pair, updating both
// marginals along with the joint count.
func (t *CoocTable) Add(srcID, tgtID, n int) {
	if srcID < 0 || tgtID < 0 || n <= 0 {
		return
	}
	t.joint[pairKey(srcID, tgtID)] += n
	t.srcMarginal[srcID] += n
	t.tgtMarginal[tgtID] += n
}

// JointCount returns how often the pair was seen together.
func (t *CoocTable) JointCount(srcID, tgtID int) int {
	if srcID < 0 || tgtID < 0 {
		return 0
	}
	return t.joint[pairKey(srcID, tgtID)]
}

// SrcMarginal returns the total count of srcID across all target ids.
func (t *CoocTable) SrcMarginal(srcID int) int {
	if srcID < 0 {
		return 0
	}
	return t.srcMarginal[srcID]
}

// TgtMarginal returns the total count of tgtID across all source ids.
func (t *CoocTable) TgtMarginal(tgtID int) int {
	if tgtID < 0 {
		return 0
	}
	return t.tgtMarginal[tgtID]
}

// Pairs returns the number of distinct (source, target) pairs in the table.
func (t *CoocTable) Pairs() int {
	return len(t.joint)
}
