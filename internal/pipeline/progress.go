package pipeline

import "fmt"

// ProgressAdapter translates collaborator progress callbacks into store
// updates. It is bound to one stage and one generation, so late callbacks
// from a superseded run fall through the store's generation guard.
type ProgressAdapter struct {
	store *Store
	gen   uint64
	stage StageID
}

// NewProgressAdapter binds an adapter to a stage within the given generation.
func NewProgressAdapter(store *Store, gen uint64, stage StageID) *ProgressAdapter {
	return &ProgressAdapter{store: store, gen: gen, stage: stage}
}

// Counts reports item-count progress. When total is known the percentage is
// recomputed; otherwise the current percentage is retained and only the
// counts and task label change.
func (a *ProgressAdapter) Counts(processed, total int, currentTask string) {
	update := StageUpdate{
		ItemsProcessed: &processed,
		TotalItems:     &total,
	}
	if total > 0 {
		pct := 100 * float64(processed) / float64(total)
		update.Progress = &pct
	}
	if currentTask != "" {
		update.CurrentTask = &currentTask
	}
	a.store.UpdateStage(a.gen, a.stage, update)
}

// Message reports a free-form status line from an AI collaborator. It is
// surfaced both as the stage's current task and as an activity log entry.
func (a *ProgressAdapter) Message(message string) {
	a.store.UpdateStage(a.gen, a.stage, StageUpdate{CurrentTask: &message})
	a.store.AppendLog(a.gen, LogEntry{
		Message: message,
		Type:    LogAI,
		Stage:   a.stage,
	})
}

// Logf appends a formatted info entry for this stage.
func (a *ProgressAdapter) Logf(format string, args ...any) {
	a.store.AppendLog(a.gen, LogEntry{
		Message: fmt.Sprintf(format, args...),
		Type:    LogInfo,
		Stage:   a.stage,
	})
}
