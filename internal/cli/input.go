// Package cli handles cmd line input and grid inspection for DBG and testing various features
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Angi16/phrasal/pkg/grid"
	"github.com/Angi16/phrasal/pkg/tm"
	"github.com/charmbracelet/log"
)

// separator splits the source sentence from the target prefix on one line.
const separator = "|||"

// InputHandler reads "source ||| prefix" lines from stdin, builds and
// augments the rule grid for each pair, and prints the per-position
// candidate buckets.
type InputHandler struct {
	background   *tm.Model
	foreground   *tm.Model
	table        *tm.PhraseTable
	scorer       grid.Scorer
	limit        int
	requestCount int
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(background, foreground *tm.Model, table *tm.PhraseTable,
	scorer grid.Scorer, limit int) *InputHandler {
	return &InputHandler{
		background: background,
		foreground: foreground,
		table:      table,
		scorer:     scorer,
		limit:      limit,
	}
}

// Start begins the interface loop.
// It continuously prompts for input, reads a line from stdin,
// and passes the trimmed input to handleInput() for processing.
// Loop terminates if an error occurs while reading from stdin
func (h *InputHandler) Start() error {
	log.Print("Phrasal grid CLI")
	reader := bufio.NewReader(os.Stdin)
	log.Printf("type 'source %s prefix' and press Enter to see the rule grid (Ctrl+C to exit):", separator)

	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		h.handleInput(line)
	}
}

// handleInput processes a single source/prefix pair: phrase-table lookup,
// grid construction, augmentation, then a bucket dump.
func (h *InputHandler) handleInput(line string) {
	h.requestCount++

	parts := strings.SplitN(line, separator, 2)
	if len(parts) != 2 {
		log.Errorf("Expected 'source %s prefix', got: %s", separator, line)
		return
	}
	source := grid.Tokenize(parts[0])
	prefix := grid.Tokenize(parts[1])
	if len(source) == 0 || len(prefix) == 0 {
		log.Error("Both source and prefix need at least one token")
		return
	}

	// A nil *tm.Model must stay a nil interface for the grid.
	var foreground grid.Model
	if h.foreground != nil {
		foreground = h.foreground
	}

	start := time.Now()
	rules := h.table.Lookup(source)
	g := grid.New(rules, source, prefix)
	g.Augment(h.background, foreground, h.scorer, nil, h.requestCount)
	elapsed := time.Since(start)

	log.Debugf("Took [ %v ] for %d source tokens, %d prefix tokens", elapsed, len(source), len(prefix))
	log.Printf("source coverage %s, target coverage %s", g.SourceCoverage(), g.TargetCoverage())

	for pos := 0; pos < g.PrefixLen(); pos++ {
		bucket, err := g.RulesAt(pos)
		if err != nil {
			log.Errorf("Bucket %d: %v", pos, err)
			return
		}
		if len(bucket) == 0 {
			log.Printf("%2d. %-12s (no candidates)", pos, prefix[pos])
			continue
		}
		shown := bucket
		if len(shown) > h.limit {
			shown = shown[:h.limit]
		}
		log.Printf("%2d. %-12s %d candidates:", pos, prefix[pos], len(bucket))
		for i, rule := range shown {
			clTarget := fmt.Sprintf("\033[38;5;75m%s\033[0m", rule.Target)
			log.Printf("    %2d. %-32s <= %-20s (%s, %.4f)", i+1, clTarget, rule.Source, rule.Provenance, rule.Score)
		}
	}
}
