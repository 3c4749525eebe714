package tm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Angi16/phrasal/pkg/grid"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Model files are msgpack-encoded documents with the .ptm extension.
const ModelExt = ".ptm"

// minModelFileSize guards against loading truncated files.
const minModelFileSize = 8

type modelFile struct {
	Name    string        `msgpack:"name"`
	Tokens  []string      `msgpack:"v"`
	Counts  []countEntry  `msgpack:"c"`
	Phrases []phraseEntry `msgpack:"p"`
}

type countEntry struct {
	Src   int32 `msgpack:"f"`
	Tgt   int32 `msgpack:"e"`
	Count int32 `msgpack:"n"`
}

type phraseEntry struct {
	Source   string             `msgpack:"f"`
	Target   string             `msgpack:"e"`
	Score    float64            `msgpack:"s"`
	Features map[string]float64 `msgpack:"ft,omitempty"`
}

// ValidateModelFile checks extension and size before a load is attempted.
func ValidateModelFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat model file %s: %w", path, err)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ModelExt {
		return fmt.Errorf("model file %s has extension %s, expected %s", path, ext, ModelExt)
	}
	if info.Size() < minModelFileSize {
		return fmt.Errorf("model file %s is too small (%d bytes)", path, info.Size())
	}
	return nil
}

// SaveModel writes a model and its phrase table to path. A nil table writes
// a counts-only model, which is the usual shape for a foreground snapshot.
func SaveModel(m *Model, table *PhraseTable, path string) error {
	m.mu.RLock()
	doc := modelFile{Name: m.name}
	doc.Tokens = make([]string, m.vocab.Len())
	for i, tok := range m.vocab.tokens {
		doc.Tokens[i] = string(tok)
	}
	for key, n := range m.cooc.joint {
		doc.Counts = append(doc.Counts, countEntry{
			Src:   int32(key >> 32),
			Tgt:   int32(uint32(key)),
			Count: int32(n),
		})
	}
	m.mu.RUnlock()

	if table != nil {
		table.visit(func(source string, entry tableEntry) {
			doc.Phrases = append(doc.Phrases, phraseEntry{
				Source:   source,
				Target:   entry.target.String(),
				Score:    entry.score,
				Features: entry.features,
			})
		})
	}

	data, err := msgpack.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode model %s: %w", m.name, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model file %s: %w", path, err)
	}
	log.Debugf("saved model %s: %d tokens, %d pairs, %d phrases",
		m.name, len(doc.Tokens), len(doc.Counts), len(doc.Phrases))
	return nil
}

// LoadModel reads a model file written by SaveModel. maxPhraseLen bounds
// the spans the returned phrase table will match.
func LoadModel(path string, maxPhraseLen int) (*Model, *PhraseTable, error) {
	if err := ValidateModelFile(path); err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read model file %s: %w", path, err)
	}
	var doc modelFile
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to decode model file %s: %w", path, err)
	}

	m := NewModel(doc.Name)
	for _, tok := range doc.Tokens {
		m.vocab.Add(grid.Token(tok))
	}
	for _, c := range doc.Counts {
		src, okS := m.vocab.Token(int(c.Src))
		tgt, okT := m.vocab.Token(int(c.Tgt))
		if !okS || !okT {
			log.Warnf("model %s: count entry (%d,%d) outside vocabulary, skipped", doc.Name, c.Src, c.Tgt)
			continue
		}
		m.cooc.Add(m.vocab.ID(src), m.vocab.ID(tgt), int(c.Count))
	}

	table := NewPhraseTable(maxPhraseLen)
	for _, p := range doc.Phrases {
		table.Add(grid.Tokenize(p.Source), grid.Tokenize(p.Target), p.Score, p.Features)
	}
	log.Debugf("loaded model %s from %s: %d tokens, %d pairs, %d phrases",
		doc.Name, path, len(doc.Tokens), len(doc.Counts), table.Len())
	return m, table, nil
}
