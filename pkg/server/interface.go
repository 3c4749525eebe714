/*
Package server implements msgpack IPC for prefix-constrained translation
option queries.

The server reads structured messages from stdin and writes responses to
stdout, which lets a CAT (computer-aided translation) front end drive the
rule grid through plain process communication. Each request carries an ID,
a tokenized source sentence, and the target prefix the user has committed
to so far:

	{"id": "req_001", "src": "le chat dort", "tgt": "the", "l": 10}

The response lists, for every prefix position, the candidate rules whose
target side can continue that position, best first, along with the source
and target coverage the indexed rules add up to:

	{"id": "req_001", "pos": [[{"f": "le", "e": "the", "s": 0.41, "o": "table"}]],
	 "fcov": [0], "ecov": [0], "c": 1, "t": 180}

Rules are gathered by phrase-table lookup, indexed into a per-sentence
grid, and augmented against the background (and, when configured, the
foreground) model before the response is built. Requests are processed
synchronously; timing is reported in microseconds.

Alignment update messages feed the online-adapted foreground model:

	{"id": "upd_001", "src": "le chat", "tgt": "the cat", "al": [[0,0],[1,1]]}

Errors come back as a compact frame with the request ID, a message, and a
400/500 style code.
*/
package server

// TranslationRequest asks for the rule grid of one (source, prefix) pair.
type TranslationRequest struct {
	ID     string `msgpack:"id"`
	Source string `msgpack:"src"`
	Prefix string `msgpack:"tgt"`
	Limit  int    `msgpack:"l,omitempty"`
}

// RuleCandidate is one candidate rule in a response.
type RuleCandidate struct {
	Source string  `msgpack:"f"`
	Target string  `msgpack:"e"`
	Score  float64 `msgpack:"s"`
	Origin string  `msgpack:"o"`
}

// TranslationResponse carries per-position candidates and coverage.
type TranslationResponse struct {
	ID             string            `msgpack:"id"`
	Positions      [][]RuleCandidate `msgpack:"pos"`
	SourceCoverage []int             `msgpack:"fcov"`
	TargetCoverage []int             `msgpack:"ecov"`
	Count          int               `msgpack:"c"`
	TimeTaken      int64             `msgpack:"t"`
}

// UpdateRequest folds an aligned sentence pair into the foreground model.
type UpdateRequest struct {
	ID        string   `msgpack:"id"`
	Source    string   `msgpack:"src"`
	Target    string   `msgpack:"tgt"`
	Alignment [][2]int `msgpack:"al"`
}

// UpdateResponse acknowledges a foreground update.
type UpdateResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
	Pairs  int    `msgpack:"pairs"`
}

// RequestError holds basic error information for failed requests.
type RequestError struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
