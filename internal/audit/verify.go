package audit

import (
	"bufio"
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"zone_controller/internal/models"
)

// Reasons reported in Result.
const (
	ReasonHashMismatch      = "hash mismatch"
	ReasonSignatureMismatch = "signature mismatch"
	ReasonMalformedLine     = "malformed line"
)

// Result is the outcome of replaying a journal. When Valid is false, Index
// is the zero based position of the first untrusted event and Line its
// one based line in the file; everything from there on is untrusted.
type Result struct {
	Valid  bool   `json:"valid"`
	Events int    `json:"events"`
	Index  int    `json:"index"`
	Line   int    `json:"line"`
	Reason string `json:"reason,omitempty"`
}

type verifyConfig struct {
	pub ed25519.PublicKey
}

type VerifyOption func(*verifyConfig)

// WithPublicKey also requires every event to carry a valid signature.
func WithPublicKey(pub ed25519.PublicKey) VerifyOption {
	return func(c *verifyConfig) { c.pub = pub }
}

// Verify replays events from an empty seed. It never repairs anything.
func Verify(events []models.AuditEvent, opts ...VerifyOption) Result {
	lines := make([]int, len(events))
	for i := range lines {
		lines[i] = i + 1
	}
	return verify(events, lines, opts)
}

func verify(events []models.AuditEvent, lines []int, opts []VerifyOption) Result {
	var cfg verifyConfig
	for _, o := range opts {
		o(&cfg)
	}

	prev := ""
	for i, ev := range events {
		payload := CanonicalPayload(ev)
		want := ChainHash(payload, prev)
		if want != ev.Hash {
			return Result{Events: len(events), Index: i, Line: lines[i], Reason: ReasonHashMismatch}
		}
		if cfg.pub != nil && !VerifySignature(cfg.pub, []byte(payload), ev.Signature) {
			return Result{Events: len(events), Index: i, Line: lines[i], Reason: ReasonSignatureMismatch}
		}
		prev = want
	}
	return Result{Valid: true, Events: len(events), Index: -1, Line: -1}
}

// VerifyReader replays a JSON-lines journal. Blank lines are skipped; a line
// that does not decode breaks the chain at that position.
func VerifyReader(r io.Reader, opts ...VerifyOption) (Result, error) {
	var (
		events []models.AuditEvent
		lines  []int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	n := 0
	for sc.Scan() {
		n++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var ev models.AuditEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			// Everything before the bad line must still check out.
			if res := verify(events, lines, opts); !res.Valid {
				return res, nil
			}
			return Result{Events: len(events) + 1, Index: len(events), Line: n, Reason: ReasonMalformedLine}, nil
		}
		events = append(events, ev)
		lines = append(lines, n)
	}
	if err := sc.Err(); err != nil {
		return Result{}, fmt.Errorf("read audit journal: %w", err)
	}
	return verify(events, lines, opts), nil
}

// VerifyFile opens path and replays it. A missing file is returned as an
// error wrapping os.ErrNotExist.
func VerifyFile(path string, opts ...VerifyOption) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open audit journal %q: %w", path, err)
	}
	defer f.Close()
	return VerifyReader(f, opts...)
}
