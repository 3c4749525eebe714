package tm

import (
	"testing"

	"github.com/Angi16/phrasal/pkg/grid"
)

func TestUnknownTokensCountZero(t *testing.T) {
	m := NewModel("bg")
	m.AddCount("chat", "cat", 5)

	if id := m.VocabularyID("chien"); id != grid.UnknownID {
		t.Errorf("unseen token resolved to id %d, want UnknownID", id)
	}
	if n := m.SourceMarginal(grid.UnknownID); n != 0 {
		t.Errorf("SourceMarginal(unknown) = %d, want 0", n)
	}
	if n := m.TargetMarginal(grid.UnknownID); n != 0 {
		t.Errorf("TargetMarginal(unknown) = %d, want 0", n)
	}
	if n := m.JointCount(grid.UnknownID, m.VocabularyID("cat")); n != 0 {
		t.Errorf("JointCount(unknown, cat) = %d, want 0", n)
	}
}

func TestCountsAccumulate(t *testing.T) {
	m := NewModel("bg")
	m.AddCount("chat", "cat", 3)
	m.AddCount("chat", "cat", 2)
	m.AddCount("chat", "kitty", 1)

	chat := m.VocabularyID("chat")
	cat := m.VocabularyID("cat")
	if n := m.JointCount(chat, cat); n != 5 {
		t.Errorf("joint(chat, cat) = %d, want 5", n)
	}
	if n := m.SourceMarginal(chat); n != 6 {
		t.Errorf("marginal(chat) = %d, want 6", n)
	}
	if n := m.TargetMarginal(cat); n != 5 {
		t.Errorf("marginal(cat) = %d, want 5", n)
	}
}

func TestUpdateFromAlignedPair(t *testing.T) {
	m := NewModel("fg")
	source := grid.Tokenize("le chat dort")
	target := grid.Tokenize("the cat sleeps")
	m.Update(source, target, [][2]int{
		{0, 0}, {1, 1}, {2, 2},
		{5, 1}, {1, -3}, // out-of-range links are skipped
	})

	chat := m.VocabularyID("chat")
	cat := m.VocabularyID("cat")
	if n := m.JointCount(chat, cat); n != 1 {
		t.Errorf("joint(chat, cat) = %d after update, want 1", n)
	}
	stats := m.Stats()
	if stats["pairs"] != 3 {
		t.Errorf("pairs = %d, want 3 valid links", stats["pairs"])
	}

	// A second update is immediately visible to readers.
	m.Update(source, target, [][2]int{{1, 1}})
	if n := m.JointCount(chat, cat); n != 2 {
		t.Errorf("joint(chat, cat) = %d after second update, want 2", n)
	}
}

func TestVocabularyInterning(t *testing.T) {
	v := NewVocabulary()
	first := v.Add("chat")
	second := v.Add("chat")
	if first != second {
		t.Errorf("re-adding a token changed its id: %d vs %d", first, second)
	}
	if v.Len() != 1 {
		t.Errorf("vocabulary size = %d, want 1", v.Len())
	}
	tok, ok := v.Token(first)
	if !ok || tok != "chat" {
		t.Errorf("Token(%d) = %q, %v", first, tok, ok)
	}
	if _, ok := v.Token(99); ok {
		t.Error("Token(99) should not resolve")
	}
}
