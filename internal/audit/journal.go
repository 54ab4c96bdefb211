// Package audit keeps the hash-chained override journal.
package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"zone_controller/internal/models"
)

// TimestampLayout renders UTC as 2025-01-02T03:04:05.000000+00:00.
const TimestampLayout = "2006-01-02T15:04:05.000000-07:00"

const maxLineBytes = 1 << 20

// ErrCorruptTail is returned by Open when the last journal line cannot be
// decoded. Appending after it would silently restart the chain.
var ErrCorruptTail = errors.New("audit journal tail is unreadable")

// Entry holds the caller supplied fields of an audit event.
type Entry struct {
	Mode            string
	DurationMinutes int
	Source          string
	InitiatedBy     string
	At              time.Time // zero means now
}

// Journal appends events to a JSON-lines file. Append is serialized by an
// internal mutex; callers that need ordering with other state changes must
// hold their own lock across the call.
type Journal struct {
	mu       sync.Mutex
	path     string
	lastHash string
	signer   Signer
	now      func() time.Time
}

type Option func(*Journal)

// WithSigner attaches a signature over each event's canonical payload.
func WithSigner(s Signer) Option {
	return func(j *Journal) { j.signer = s }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

// Open prepares the journal at path and recovers the last hash from its tail.
func Open(path string, opts ...Option) (*Journal, error) {
	j := &Journal{path: path, now: time.Now}
	for _, o := range opts {
		o(j)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit dir %q: %w", dir, err)
		}
	}
	last, err := readLastHash(path)
	if err != nil {
		return nil, err
	}
	j.lastHash = last
	return j, nil
}

// Append writes one event and advances the chain. On failure the file is
// truncated back and the chain head is left unchanged.
func (j *Journal) Append(e Entry) (models.AuditEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	at := e.At
	if at.IsZero() {
		at = j.now()
	}
	ev := models.AuditEvent{
		Timestamp:       at.UTC().Format(TimestampLayout),
		Mode:            e.Mode,
		DurationMinutes: e.DurationMinutes,
		Source:          e.Source,
		InitiatedBy:     e.InitiatedBy,
	}
	payload := CanonicalPayload(ev)
	ev.Hash = ChainHash(payload, j.lastHash)
	if j.signer != nil {
		ev.Signature = j.signer.Sign([]byte(payload))
	}

	line, err := encodeLine(ev)
	if err != nil {
		return models.AuditEvent{}, err
	}
	if err := appendLine(j.path, line); err != nil {
		return models.AuditEvent{}, err
	}
	j.lastHash = ev.Hash
	return ev, nil
}

// LastHash returns the current chain head.
func (j *Journal) LastHash() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastHash
}

func (j *Journal) Path() string { return j.path }

func encodeLine(ev models.AuditEvent) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ev); err != nil {
		return nil, fmt.Errorf("encode audit event: %w", err)
	}
	return buf.Bytes(), nil
}

func appendLine(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open audit journal %q: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat audit journal %q: %w", path, err)
	}
	size := info.Size()

	if _, err := f.Write(line); err != nil {
		_ = f.Truncate(size)
		_ = f.Close()
		return fmt.Errorf("write audit journal %q: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Truncate(size)
		_ = f.Close()
		return fmt.Errorf("sync audit journal %q: %w", path, err)
	}
	return f.Close()
}

func readLastHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("open audit journal %q: %w", path, err)
	}
	defer f.Close()

	var last []byte
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		if line := bytes.TrimSpace(sc.Bytes()); len(line) > 0 {
			last = append(last[:0], line...)
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("scan audit journal %q: %w", path, err)
	}
	if last == nil {
		return "", nil
	}

	var ev models.AuditEvent
	if err := json.Unmarshal(last, &ev); err != nil || ev.Hash == "" {
		return "", fmt.Errorf("%w: %q", ErrCorruptTail, path)
	}
	return ev.Hash, nil
}
