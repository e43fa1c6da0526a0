package domain

import "time"

// ReconcileAction describes what the reconciler did with a candidate
type ReconcileAction string

const (
	// ActionCreated means a new item was persisted
	ActionCreated ReconcileAction = "created"
	// ActionUpdated means an existing item with the same URL was refreshed
	ActionUpdated ReconcileAction = "updated"
	// ActionSkipped means the candidate was rejected (duplicate, low score, invalid)
	ActionSkipped ReconcileAction = "skipped"
)

// SkipReason explains why a candidate was skipped
type SkipReason string

const (
	SkipReasonDuplicate SkipReason = "duplicate"
	SkipReasonLowScore  SkipReason = "low_score"
	SkipReasonInvalid   SkipReason = "invalid"
)

// DuplicatePolicy controls what happens when a candidate's content hash
// matches an existing item under a different URL.
type DuplicatePolicy string

const (
	// DuplicatePolicySkip drops the candidate, preserving only the first copy
	DuplicatePolicySkip DuplicatePolicy = "skip"
	// DuplicatePolicyFlag imports the candidate with IsDuplicateOf set,
	// preserving provenance without indexing redundant content twice
	DuplicatePolicyFlag DuplicatePolicy = "flag"
)

// ReconcileResult is the outcome of reconciling a single candidate.
type ReconcileResult struct {
	Action ReconcileAction `json:"action"`

	// Item is the persisted record for created/updated (and flagged duplicates)
	Item *Item `json:"item,omitempty"`

	// Reason is set when Action is skipped
	Reason SkipReason `json:"reason,omitempty"`

	// Score is the quality score computed for the candidate (0-100)
	Score int `json:"score"`

	// ChunksWritten is how many content chunks were stored alongside the item
	ChunksWritten int `json:"chunks_written"`
}

// BatchStats accumulates counters across a reconciliation batch.
type BatchStats struct {
	Created       int `json:"created"`
	Updated       int `json:"updated"`
	Skipped       int `json:"skipped"`
	ChunksWritten int `json:"chunks_written"`
	Errors        int `json:"errors"`
}

// Progress returns true if the batch changed the persisted set at all.
func (s BatchStats) Progress() bool {
	return s.Created > 0 || s.Updated > 0
}

// RunSummary is the outcome of one scheduled worker run.
type RunSummary struct {
	ItemsClaimed   int           `json:"items_claimed"`
	ItemsCompleted int           `json:"items_completed"`
	ItemsFailed    int           `json:"items_failed"`
	Stats          BatchStats    `json:"stats"`
	Duration       time.Duration `json:"duration"`
}

// Progress returns true if the run advanced the queue or the persisted set.
// A run with no progress signals possible upstream breakage and maps to a
// non-zero process exit.
func (r *RunSummary) Progress() bool {
	return r.ItemsCompleted > 0 || r.ItemsFailed > 0 || r.Stats.Progress()
}
