package server

import (
	"bytes"
	"testing"

	"github.com/Angi16/phrasal/pkg/config"
	"github.com/Angi16/phrasal/pkg/feat"
	"github.com/Angi16/phrasal/pkg/grid"
	"github.com/Angi16/phrasal/pkg/tm"
	"github.com/vmihailenco/msgpack/v5"
)

func newTestServer(t *testing.T, foreground *tm.Model) (*Server, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	background := tm.NewModel("background")
	background.AddCount("chat", "cat", 10)
	table := tm.NewPhraseTable(3)
	table.Add(grid.Tokenize("le"), grid.Tokenize("the"), 0.5, nil)

	in := &bytes.Buffer{}
	out := &bytes.Buffer{}
	s := NewServer(background, foreground, table, feat.NewLexicalScorer(), config.DefaultConfig())
	s.reader = in
	s.writer = out
	return s, in, out
}

func encodeRequest(t *testing.T, in *bytes.Buffer, req interface{}) {
	t.Helper()
	data, err := msgpack.Marshal(req)
	if err != nil {
		t.Fatalf("encoding request: %v", err)
	}
	in.Write(data)
}

func TestTranslateRequest(t *testing.T) {
	s, in, out := newTestServer(t, nil)
	encodeRequest(t, in, TranslationRequest{
		ID:     "req_001",
		Source: "le chat",
		Prefix: "the cat",
		Limit:  5,
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var resp TranslationResponse
	if err := msgpack.NewDecoder(out).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ID != "req_001" {
		t.Errorf("response id = %q", resp.ID)
	}
	if len(resp.Positions) != 2 {
		t.Fatalf("got %d positions, want one per prefix token", len(resp.Positions))
	}
	// Position 0 is covered by the table rule for "the".
	if len(resp.Positions[0]) != 1 || resp.Positions[0][0].Origin != "table" {
		t.Errorf("position 0 = %v, want one table rule", resp.Positions[0])
	}
	// Position 1 has no table coverage; the chat/cat count fills it.
	if len(resp.Positions[1]) != 1 || resp.Positions[1][0].Origin != "synthetic" {
		t.Errorf("position 1 = %v, want one synthetic rule", resp.Positions[1])
	}
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
	if len(resp.TargetCoverage) != 1 || resp.TargetCoverage[0] != 0 {
		t.Errorf("target coverage = %v, want [0]", resp.TargetCoverage)
	}
}

func TestMissingFieldsAreRejected(t *testing.T) {
	s, in, out := newTestServer(t, nil)
	encodeRequest(t, in, TranslationRequest{ID: "req_002", Source: "", Prefix: "the"})
	encodeRequest(t, in, TranslationRequest{ID: "req_003", Source: "le", Prefix: ""})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	dec := msgpack.NewDecoder(out)
	for _, id := range []string{"req_002", "req_003"} {
		var frame RequestError
		if err := dec.Decode(&frame); err != nil {
			t.Fatalf("decoding error frame: %v", err)
		}
		if frame.ID != id || frame.Code != 400 {
			t.Errorf("frame = %+v, want id %s code 400", frame, id)
		}
	}
}

func TestForegroundUpdate(t *testing.T) {
	foreground := tm.NewModel("foreground")
	s, in, out := newTestServer(t, foreground)
	encodeRequest(t, in, UpdateRequest{
		ID:        "upd_001",
		Source:    "le chien",
		Target:    "the dog",
		Alignment: [][2]int{{0, 0}, {1, 1}},
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var resp UpdateResponse
	if err := msgpack.NewDecoder(out).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "ok" || resp.Pairs != 2 {
		t.Errorf("update response = %+v, want ok with 2 pairs", resp)
	}
	chien := foreground.VocabularyID("chien")
	dog := foreground.VocabularyID("dog")
	if n := foreground.JointCount(chien, dog); n != 1 {
		t.Errorf("joint(chien, dog) = %d after update, want 1", n)
	}
}

func TestUpdateWithoutForegroundModel(t *testing.T) {
	s, in, out := newTestServer(t, nil)
	encodeRequest(t, in, UpdateRequest{
		ID:        "upd_002",
		Source:    "le",
		Target:    "the",
		Alignment: [][2]int{{0, 0}},
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	var frame RequestError
	if err := msgpack.NewDecoder(out).Decode(&frame); err != nil {
		t.Fatalf("decoding error frame: %v", err)
	}
	if frame.Code != 400 {
		t.Errorf("frame = %+v, want code 400", frame)
	}
}
