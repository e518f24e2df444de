// Package aicontext implements a per-session bounded deque of
// executed-SQL summaries the AI gateway can draw on for conversational
// context, with sensitive-column redaction so secrets never leave the
// process.
package aicontext

import (
	"container/list"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mantis/gatewayd/internal/protocol"
)

// MaxItems is the per-session deque capacity; record_execute/
// record_execute_error evict from the tail once a session holds this many.
const MaxItems = 10

// MaxSampleRows is the number of sample rows record_execute retains per item.
const MaxSampleRows = 3

// MaxColumnsPerRow caps how many columns of each sample row are retained.
const MaxColumnsPerRow = 20

// MaxCellLength truncates string cell values stored in an item.
const MaxCellLength = 64

// MaxErrorLength truncates a record_execute_error item's message.
const MaxErrorLength = 512

var sensitiveMarkers = []string{"password", "passwd", "token", "secret", "key", "credential"}

// Item is one entry in a session's AI context deque.
type Item struct {
	Type         string         `json:"type"` // "EXECUTE" or "ERROR"
	SQL          string         `json:"sql"`
	ExecutedAt   time.Time      `json:"executed_at"`
	Columns      []string       `json:"columns,omitempty"`
	SampleRows   []protocol.Row `json:"sample_rows,omitempty"`
	Truncated    bool           `json:"truncated,omitempty"`
	RowsAffected int            `json:"rows_affected,omitempty"`
	DurationMs   int64          `json:"duration_ms,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// Buffer owns one bounded deque per session_id. The outer map is guarded
// by its own RWMutex; each session's deque is guarded by its own mutex, so
// recording into one session never contends with another session's reads.
type Buffer struct {
	mu       sync.RWMutex
	sessions map[string]*sessionDeque
}

type sessionDeque struct {
	mu sync.Mutex
	l  *list.List
}

// New constructs an empty Buffer.
func New() *Buffer {
	return &Buffer{sessions: make(map[string]*sessionDeque)}
}

func (b *Buffer) deque(sessionID string) *sessionDeque {
	b.mu.RLock()
	d, ok := b.sessions[sessionID]
	b.mu.RUnlock()
	if ok {
		return d
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if d, ok := b.sessions[sessionID]; ok {
		return d
	}
	d = &sessionDeque{l: list.New()}
	b.sessions[sessionID] = d
	return d
}

// RecordExecute builds an item from an executed statement's response and
// pushes it to the front of sessionID's deque, evicting from the tail past
// MaxItems.
func (b *Buffer) RecordExecute(sessionID, sql string, resp *protocol.ExecuteResponse) {
	cols := resp.Data.Columns
	if len(cols) > MaxColumnsPerRow {
		cols = cols[:MaxColumnsPerRow]
	}
	item := Item{
		Type:       "EXECUTE",
		SQL:        sql,
		ExecutedAt: time.Now().UTC(),
		Columns:    cols,
		Truncated:  resp.Metadata.Truncated,
		DurationMs: resp.Metadata.DurationMs,
	}
	if resp.Metadata.RowsAffected != nil {
		item.RowsAffected = int(*resp.Metadata.RowsAffected)
	} else {
		item.RowsAffected = len(resp.Data.Rows)
	}

	rows := resp.Data.Rows
	if len(rows) > MaxSampleRows {
		rows = rows[:MaxSampleRows]
	}
	item.SampleRows = make([]protocol.Row, len(rows))
	for i, row := range rows {
		item.SampleRows[i] = redactRow(row, cols)
	}

	d := b.deque(sessionID)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.l.PushFront(item)
	for d.l.Len() > MaxItems {
		d.l.Remove(d.l.Back())
	}
}

// RecordExecuteError stores a sanitized error item for sessionID.
func (b *Buffer) RecordExecuteError(sessionID, sql string, execErr error) {
	item := Item{
		Type:       "ERROR",
		SQL:        sql,
		ExecutedAt: time.Now().UTC(),
		Error:      sanitizeError(execErr.Error()),
	}

	d := b.deque(sessionID)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.l.PushFront(item)
	for d.l.Len() > MaxItems {
		d.l.Remove(d.l.Back())
	}
}

// GetRecent returns up to limit items for sessionID, most-recent-first,
// capped at MaxItems regardless of the requested limit.
func (b *Buffer) GetRecent(sessionID string, limit int) []Item {
	if limit <= 0 || limit > MaxItems {
		limit = MaxItems
	}

	b.mu.RLock()
	d, ok := b.sessions[sessionID]
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	items := make([]Item, 0, limit)
	for e := d.l.Front(); e != nil && len(items) < limit; e = e.Next() {
		items = append(items, e.Value.(Item))
	}
	return items
}

// Clear drops sessionID's deque entirely.
func (b *Buffer) Clear(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, sessionID)
}

// redactRow keeps at most MaxColumnsPerRow columns of row (in cols order
// when known, else sorted name order), replaces the value of any column
// whose lowercased name contains a sensitive marker with "***", and
// truncates string cells to MaxCellLength.
func redactRow(row protocol.Row, cols []string) protocol.Row {
	keep := cols
	if len(keep) == 0 {
		keep = make([]string, 0, len(row))
		for col := range row {
			keep = append(keep, col)
		}
		sort.Strings(keep)
	}
	if len(keep) > MaxColumnsPerRow {
		keep = keep[:MaxColumnsPerRow]
	}

	out := make(protocol.Row, len(keep))
	for _, col := range keep {
		val, ok := row[col]
		if !ok {
			continue
		}
		if isSensitiveColumn(col) {
			out[col] = "***"
			continue
		}
		out[col] = truncateCell(val)
	}
	return out
}

func isSensitiveColumn(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func truncateCell(val interface{}) interface{} {
	s, ok := val.(string)
	if !ok {
		return val
	}
	if len(s) <= MaxCellLength {
		return s
	}
	return s[:MaxCellLength]
}

var (
	repeatedErrorPrefix = regexp.MustCompile(`(?i)^(error:\s*)+`)
	keyValueSecret      = regexp.MustCompile(`(?i)(password|pwd|passwd|token|secret|key)=[^;&\s]*`)
)

// sanitizeError strips repeating "error:" prefixes, redacts key=value
// secret-like fragments (the same pattern internal/handler's sanitizeError
// uses for connection-string passwords, generalized here to any error
// text), and caps the result at MaxErrorLength.
func sanitizeError(msg string) string {
	msg = repeatedErrorPrefix.ReplaceAllString(msg, "")
	msg = keyValueSecret.ReplaceAllString(msg, "${1}=***")
	if len(msg) > MaxErrorLength {
		msg = msg[:MaxErrorLength]
	}
	return msg
}

// String implements fmt.Stringer for debugging/logging.
func (i Item) String() string {
	if i.Type == "ERROR" {
		return fmt.Sprintf("[ERROR] %s -> %s", i.SQL, i.Error)
	}
	return fmt.Sprintf("[EXECUTE] %s -> %d rows", i.SQL, i.RowsAffected)
}
