package pipeline

import (
	"sync"
	"time"

	"github.com/jonathan/site-auditor/internal/types"
)

// StageStatus is the lifecycle state of a pipeline stage.
type StageStatus string

// Stage lifecycle states.
const (
	StatusPending  StageStatus = "pending"
	StatusRunning  StageStatus = "running"
	StatusComplete StageStatus = "complete"
	StatusError    StageStatus = "error"
	StatusSkipped  StageStatus = "skipped"
)

// Stage is the mutable per-run state of one catalog entry.
type Stage struct {
	ID             StageID
	Name           string
	Description    string
	Status         StageStatus
	Progress       float64 // 0-100
	ItemsProcessed int
	TotalItems     int
	CurrentTask    string
	StartTime      time.Time
	EndTime        time.Time
}

// LogType classifies an activity log entry.
type LogType string

// Activity log entry types.
const (
	LogInfo    LogType = "info"
	LogSuccess LogType = "success"
	LogWarning LogType = "warning"
	LogError   LogType = "error"
	LogAI      LogType = "ai"
)

// LogEntry is one append-only activity log line.
type LogEntry struct {
	Timestamp time.Time
	Message   string
	Type      LogType
	Stage     StageID // optional
}

// PartialResults accumulates whichever outputs have arrived so far.
// Each field is set at most once per run.
type PartialResults struct {
	DiscoveredURLs int
	AnalyzedURLs   int
	Audit          *types.SitewideAudit
	Pages          *types.PageAnalysis
	Sources        []types.Source
	Plan           *types.ActionPlan
	Summary        *types.ExecutiveSummary
}

// Snapshot is the read-only view handed to the rendering layer.
type Snapshot struct {
	Stages    []Stage
	Log       []LogEntry
	Partials  PartialResults
	StartedAt time.Time
}

// Store holds all mutable state for one run. Every mutation carries the
// generation it was issued under; writes from a stale generation are
// silently dropped, which is what makes late results from a cancelled run
// harmless.
type Store struct {
	mu         sync.Mutex
	generation uint64
	stages     []*Stage
	index      map[StageID]*Stage
	log        []LogEntry
	partials   PartialResults
	startedAt  time.Time
	clock      func() time.Time
}

// NewStore creates a Store seeded from the stage catalog.
func NewStore() *Store {
	s := &Store{clock: time.Now}
	s.Reset()
	return s
}

// Reset reinitializes every stage to pending, clears the log and partial
// results, records a new run start time and returns the new generation.
func (s *Store) Reset() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.stages = make([]*Stage, 0, len(catalog))
	s.index = make(map[StageID]*Stage, len(catalog))
	for _, desc := range catalog {
		stage := &Stage{
			ID:          desc.ID,
			Name:        desc.Name,
			Description: desc.Description,
			Status:      StatusPending,
		}
		s.stages = append(s.stages, stage)
		s.index[desc.ID] = stage
	}
	s.log = nil
	s.partials = PartialResults{}
	s.startedAt = s.clock()
	return s.generation
}

// Generation returns the current run generation.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Invalidate bumps the generation without touching state, so writes issued
// under the previous generation are dropped from now on.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// StageUpdate is a partial update merged into a stage. Nil fields are
// left unchanged.
type StageUpdate struct {
	Status         *StageStatus
	Progress       *float64
	ItemsProcessed *int
	TotalItems     *int
	CurrentTask    *string
}

// UpdateStage merges update into the stage with the given id. Unknown ids
// and stale generations are no-ops. Progress never regresses while the
// stage is running.
func (s *Store) UpdateStage(gen uint64, id StageID, update StageUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return false
	}
	stage, ok := s.index[id]
	if !ok {
		return false
	}

	if update.Status != nil {
		s.transition(stage, *update.Status)
	}
	if update.Progress != nil {
		p := *update.Progress
		if p > 100 {
			p = 100
		}
		if stage.Status != StatusRunning || p >= stage.Progress {
			stage.Progress = p
		}
	}
	if update.ItemsProcessed != nil {
		stage.ItemsProcessed = *update.ItemsProcessed
	}
	if update.TotalItems != nil {
		stage.TotalItems = *update.TotalItems
	}
	if update.CurrentTask != nil {
		stage.CurrentTask = *update.CurrentTask
	}
	return true
}

// transition applies a status change and maintains the timestamp invariants:
// running sets StartTime, terminal states set EndTime.
func (s *Store) transition(stage *Stage, status StageStatus) {
	now := s.clock()
	switch status {
	case StatusRunning:
		if stage.StartTime.IsZero() {
			stage.StartTime = now
		}
	case StatusComplete, StatusError:
		if stage.StartTime.IsZero() {
			stage.StartTime = now
		}
		stage.EndTime = now
		if status == StatusComplete {
			stage.Progress = 100
		}
	}
	stage.Status = status
}

// MarkRunning transitions a stage to running.
func (s *Store) MarkRunning(gen uint64, id StageID) bool {
	status := StatusRunning
	return s.UpdateStage(gen, id, StageUpdate{Status: &status})
}

// MarkComplete transitions a stage to complete.
func (s *Store) MarkComplete(gen uint64, id StageID) bool {
	status := StatusComplete
	return s.UpdateStage(gen, id, StageUpdate{Status: &status})
}

// MarkError transitions a stage to error.
func (s *Store) MarkError(gen uint64, id StageID) bool {
	status := StatusError
	return s.UpdateStage(gen, id, StageUpdate{Status: &status})
}

// ErrorAllRunning marks every running stage as errored and returns their ids.
func (s *Store) ErrorAllRunning(gen uint64) []StageID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return nil
	}
	var errored []StageID
	for _, stage := range s.stages {
		if stage.Status == StatusRunning {
			s.transition(stage, StatusError)
			errored = append(errored, stage.ID)
		}
	}
	return errored
}

// AppendLog appends an activity log entry, stamping it with the store clock.
func (s *Store) AppendLog(gen uint64, entry LogEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return false
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.clock()
	}
	s.log = append(s.log, entry)
	return true
}

// Partial-result setters. Each sets its field only when still unset, so a
// populated field is never overwritten within one run.

// SetDiscoveredURLs records the crawl result size.
func (s *Store) SetDiscoveredURLs(gen uint64, n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.partials.DiscoveredURLs != 0 {
		return false
	}
	s.partials.DiscoveredURLs = n
	return true
}

// SetAnalyzedURLs records how many URLs entered analysis.
func (s *Store) SetAnalyzedURLs(gen uint64, n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.partials.AnalyzedURLs != 0 {
		return false
	}
	s.partials.AnalyzedURLs = n
	return true
}

// SetAudit records the sitewide audit result.
func (s *Store) SetAudit(gen uint64, audit *types.SitewideAudit) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.partials.Audit != nil {
		return false
	}
	s.partials.Audit = audit
	return true
}

// SetPages records the page analysis result and its grounding sources.
func (s *Store) SetPages(gen uint64, pages *types.PageAnalysis, sources []types.Source) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.partials.Pages != nil {
		return false
	}
	s.partials.Pages = pages
	s.partials.Sources = sources
	return true
}

// SetPlan records the action plan.
func (s *Store) SetPlan(gen uint64, plan *types.ActionPlan) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.partials.Plan != nil {
		return false
	}
	s.partials.Plan = plan
	return true
}

// SetSummary records the executive summary.
func (s *Store) SetSummary(gen uint64, summary *types.ExecutiveSummary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.partials.Summary != nil {
		return false
	}
	s.partials.Summary = summary
	return true
}

// Snapshot returns a consistent copy of all observable state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Stages:    make([]Stage, 0, len(s.stages)),
		Log:       make([]LogEntry, len(s.log)),
		Partials:  s.partials,
		StartedAt: s.startedAt,
	}
	for _, stage := range s.stages {
		snap.Stages = append(snap.Stages, *stage)
	}
	copy(snap.Log, s.log)
	return snap
}

// StageSnapshot returns a copy of a single stage's state.
func (s *Store) StageSnapshot(id StageID) (Stage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stage, ok := s.index[id]
	if !ok {
		return Stage{}, false
	}
	return *stage, true
}
