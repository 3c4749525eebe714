package server

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/Angi16/phrasal/internal/logger"
	"github.com/Angi16/phrasal/pkg/config"
	"github.com/Angi16/phrasal/pkg/grid"
	"github.com/Angi16/phrasal/pkg/tm"
	"github.com/vmihailenco/msgpack/v5"
)

var log = logger.New("ipc")

// envelope is the union of the request shapes on the wire. A message with
// alignment links is a foreground update, everything else is a translation
// request.
type envelope struct {
	ID        string   `msgpack:"id"`
	Source    string   `msgpack:"src"`
	Prefix    string   `msgpack:"tgt"`
	Limit     int      `msgpack:"l"`
	Alignment [][2]int `msgpack:"al"`
}

// Server handles the IPC for rule grid queries.
type Server struct {
	background *tm.Model
	foreground *tm.Model
	table      *tm.PhraseTable
	scorer     grid.Scorer
	cfg        *config.Config

	reader io.Reader
	writer io.Writer

	requestCount int
}

// NewServer creates a grid query server using stdin/stdout for IPC.
// foreground may be nil when no adapted model is configured.
func NewServer(background, foreground *tm.Model, table *tm.PhraseTable,
	scorer grid.Scorer, cfg *config.Config) *Server {
	return &Server{
		background: background,
		foreground: foreground,
		table:      table,
		scorer:     scorer,
		cfg:        cfg,
		reader:     os.Stdin,
		writer:     os.Stdout,
	}
}

// Start begins decoding IPC requests until EOF.
func (s *Server) Start() error {
	log.Debug("Starting server")
	dec := msgpack.NewDecoder(s.reader)
	for {
		var req envelope
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			log.Errorf("Decoding request: %v", err)
			return err
		}
		s.handleRequest(req)
	}
}

// handleRequest routes one decoded envelope.
func (s *Server) handleRequest(req envelope) {
	s.requestCount++
	if len(req.Alignment) > 0 {
		s.handleUpdate(req)
		return
	}
	s.handleTranslate(req)
}

// handleTranslate builds, augments and serializes the rule grid for one
// (source, prefix) pair.
func (s *Server) handleTranslate(req envelope) {
	source := grid.Tokenize(req.Source)
	prefix := grid.Tokenize(req.Prefix)

	if len(source) == 0 {
		s.sendError(req.ID, "Missing 'src' parameter", 400)
		return
	}
	if len(prefix) == 0 {
		s.sendError(req.ID, "Missing 'tgt' parameter", 400)
		return
	}
	if len(source) > s.cfg.Server.MaxSourceLen {
		s.sendError(req.ID, "Source sentence too long", 400)
		return
	}
	if len(prefix) > s.cfg.Server.MaxPrefixLen {
		s.sendError(req.ID, "Target prefix too long", 400)
		return
	}

	limit := req.Limit
	if limit < 1 || limit > s.cfg.Server.MaxLimit {
		limit = s.cfg.Server.MaxLimit
	}

	// A nil *tm.Model must stay a nil interface for the grid.
	var foreground grid.Model
	if s.foreground != nil {
		foreground = s.foreground
	}

	start := time.Now()
	rules := s.table.Lookup(source)
	g := grid.New(rules, source, prefix)
	g.Augment(s.background, foreground, s.scorer, nil, s.requestCount)
	elapsed := time.Since(start)

	response := TranslationResponse{
		ID:             req.ID,
		Positions:      make([][]RuleCandidate, g.PrefixLen()),
		SourceCoverage: g.SourceCoverage().Bits(),
		TargetCoverage: g.TargetCoverage().Bits(),
		TimeTaken:      elapsed.Microseconds(),
	}
	for pos := 0; pos < g.PrefixLen(); pos++ {
		bucket, err := g.RulesAt(pos)
		if err != nil {
			s.sendError(req.ID, "Internal server error", 500)
			log.Errorf("Bucket query at %d: %v", pos, err)
			return
		}
		if len(bucket) > limit {
			bucket = bucket[:limit]
		}
		candidates := make([]RuleCandidate, len(bucket))
		for i, rule := range bucket {
			candidates[i] = RuleCandidate{
				Source: rule.Source.String(),
				Target: rule.Target.String(),
				Score:  rule.Score,
				Origin: rule.Provenance.String(),
			}
		}
		response.Positions[pos] = candidates
		response.Count += len(candidates)
	}

	log.Debugf("Request %s: %d candidates over %d positions in %v",
		req.ID, response.Count, g.PrefixLen(), elapsed)
	s.sendResponse(response)
}

// handleUpdate feeds an aligned sentence pair to the foreground model.
func (s *Server) handleUpdate(req envelope) {
	if s.foreground == nil {
		s.sendError(req.ID, "No foreground model configured", 400)
		return
	}
	source := grid.Tokenize(req.Source)
	target := grid.Tokenize(req.Prefix)
	if len(source) == 0 || len(target) == 0 {
		s.sendError(req.ID, "Update needs both 'src' and 'tgt'", 400)
		return
	}
	s.foreground.Update(source, target, req.Alignment)
	s.sendResponse(UpdateResponse{
		ID:     req.ID,
		Status: "ok",
		Pairs:  s.foreground.Stats()["pairs"],
	})
}

// sendResponse encodes one response frame onto the writer.
func (s *Server) sendResponse(response interface{}) {
	data, err := msgpack.Marshal(response)
	if err != nil {
		log.Errorf("Encoding response: %v", err)
		return
	}
	if _, err := s.writer.Write(data); err != nil {
		log.Errorf("Writing response: %v", err)
	}
}

// sendError sends an error frame.
func (s *Server) sendError(id, message string, code int) {
	log.Debugf("Request %s failed: %s (%d)", id, message, code)
	s.sendResponse(RequestError{ID: id, Error: message, Code: code})
}
