package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/sesamestream/sesamestream/pkg/rdf"
)

// TSVWriter emits the plain TSV side channel spec.md §6 describes: a header
// line once, then one "LOG" line per significant operation and one
// "SOLUTION" line per emitted answer. It is enabled only when the caller's
// metrics flag is on; a nil or io.Discard writer makes it a no-op.
type TSVWriter struct {
	mu            sync.Mutex
	w             io.Writer
	metrics       *Metrics
	startTime     int64
	headerWritten bool
}

// NewTSVWriter creates a writer that reads running totals from metrics and
// reports elapsed time since startTime (a unix-seconds timestamp).
func NewTSVWriter(w io.Writer, metrics *Metrics, startTime int64) *TSVWriter {
	return &TSVWriter{w: w, metrics: metrics, startTime: startTime}
}

// LogOperation writes one "LOG" line reflecting the counters as of now.
func (t *TSVWriter) LogOperation(now int64) error {
	if t.w == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.writeHeaderLocked(); err != nil {
		return err
	}
	queries, statements, solutions := t.metrics.Snapshot()
	_, err := fmt.Fprintf(t.w, "LOG\t%d\t%d\t%d\t%d\t%d\n", t.startTime, now, queries, statements, solutions)
	return err
}

// LogSolution writes one "SOLUTION" line for a single emitted answer.
// Binding values are rendered in key-sorted order for deterministic output.
func (t *TSVWriter) LogSolution(now int64, bindings map[string]rdf.Term) error {
	if t.w == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.writeHeaderLocked(); err != nil {
		return err
	}

	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", k, bindings[k].String()))
	}

	_, err := fmt.Fprintf(t.w, "SOLUTION\t%d\t%s\n", now, strings.Join(parts, ", "))
	return err
}

func (t *TSVWriter) writeHeaderLocked() error {
	if t.headerWritten {
		return nil
	}
	if _, err := fmt.Fprintln(t.w, "LOG\ttime1,time2,Queries,Statements,Solutions"); err != nil {
		return err
	}
	t.headerWritten = true
	return nil
}
