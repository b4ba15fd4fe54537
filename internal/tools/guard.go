package tools

import "sync"

// WriteGuard tracks which write categories have already executed under
// each correlation id, so one orchestration run cannot perform the same
// class of write twice even when the model issues a duplicate tool call.
// It is best-effort, in-process deduplication only; cross-process
// correctness comes from the document-store idempotency keys.
type WriteGuard struct {
	mu   sync.Mutex
	runs map[string]map[WriteCategory]bool
}

func NewWriteGuard() *WriteGuard {
	return &WriteGuard{runs: make(map[string]map[WriteCategory]bool)}
}

// Executed reports whether a write in the category already ran under the
// correlation id.
func (g *WriteGuard) Executed(correlationID string, cat WriteCategory) bool {
	if cat == WriteNone {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.runs[correlationID][cat]
}

// MarkExecuted records a completed write.
func (g *WriteGuard) MarkExecuted(correlationID string, cat WriteCategory) {
	if cat == WriteNone {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.runs[correlationID] == nil {
		g.runs[correlationID] = make(map[WriteCategory]bool)
	}
	g.runs[correlationID][cat] = true
}

// Release drops all state for a correlation id. Callers must release when
// the orchestration run completes or errors; the map would otherwise grow
// without bound.
func (g *WriteGuard) Release(correlationID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.runs, correlationID)
}

// ActiveRuns returns the number of correlation ids currently tracked.
func (g *WriteGuard) ActiveRuns() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.runs)
}
