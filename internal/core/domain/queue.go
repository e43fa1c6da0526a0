package domain

import "time"

// QueueItemType identifies what kind of page a frontier entry points at
type QueueItemType string

const (
	// QueueItemArticle is a leaf content page
	QueueItemArticle QueueItemType = "article"
	// QueueItemCategory is a listing page that yields more URLs
	QueueItemCategory QueueItemType = "category"
)

// QueueStatus represents the current state of a frontier entry
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

// DefaultMaxRetries is the retry cap applied when a queue item does not
// carry an explicit one.
const DefaultMaxRetries = 3

// QueueItem is a crawl frontier entry: a URL awaiting a fetch attempt.
type QueueItem struct {
	// ID is the unique identifier for this entry
	ID string `json:"id"`

	// URL is the unique key; one frontier entry exists per URL
	URL string `json:"url"`

	// Platform identifies which scraper adapter handles this URL
	Platform string `json:"platform"`

	// ItemType is article or category
	ItemType QueueItemType `json:"item_type"`

	// Priority determines selection order (higher = sooner)
	Priority int `json:"priority"`

	// Status is the current state of the entry
	Status QueueStatus `json:"status"`

	// RetryCount is how many times processing this entry has failed
	RetryCount int `json:"retry_count"`

	// MaxRetries is the cap beyond which the entry is frozen in failed
	MaxRetries int `json:"max_retries"`

	// FirstSeen is when the URL was discovered (tie-breaker for selection)
	FirstSeen time.Time `json:"first_seen"`

	// LastChecked is when the entry last changed state
	LastChecked time.Time `json:"last_checked"`

	// LastError contains the most recent failure message
	LastError string `json:"last_error,omitempty"`
}

// NewQueueItem creates a pending frontier entry with default values.
func NewQueueItem(url, platform string, itemType QueueItemType, priority int) *QueueItem {
	now := time.Now()
	return &QueueItem{
		ID:          GenerateID(),
		URL:         url,
		Platform:    platform,
		ItemType:    itemType,
		Priority:    priority,
		Status:      QueueStatusPending,
		MaxRetries:  DefaultMaxRetries,
		FirstSeen:   now,
		LastChecked: now,
	}
}

// CanRetry returns true if a failed entry is still eligible for selection.
func (q *QueueItem) CanRetry() bool {
	return q.RetryCount < q.MaxRetries
}

// Selectable returns true if the entry may be claimed for processing.
// Pending entries always qualify; failed entries qualify under the retry cap.
func (q *QueueItem) Selectable() bool {
	switch q.Status {
	case QueueStatusPending:
		return true
	case QueueStatusFailed:
		return q.CanRetry()
	default:
		return false
	}
}

// MarkProcessing transitions the entry to processing. This must happen
// before any network or side-effecting work begins.
func (q *QueueItem) MarkProcessing() {
	q.Status = QueueStatusProcessing
	q.LastChecked = time.Now()
}

// MarkCompleted transitions the entry to its terminal success state.
func (q *QueueItem) MarkCompleted() {
	q.Status = QueueStatusCompleted
	q.LastChecked = time.Now()
	q.LastError = ""
}

// MarkFailed records a failed attempt and increments the retry counter.
// Entries at the cap stay visible for observability but are excluded
// from selection until the retention sweep removes them.
func (q *QueueItem) MarkFailed(errMsg string) {
	q.Status = QueueStatusFailed
	q.RetryCount++
	q.LastChecked = time.Now()
	q.LastError = errMsg
}

// Reclaim returns a stuck processing entry to pending without consuming
// a retry. Used by the staleness reclaim sweep after a crash.
func (q *QueueItem) Reclaim() {
	q.Status = QueueStatusPending
	q.LastChecked = time.Now()
}

// FrontierStats contains frontier observability counters
type FrontierStats struct {
	// PendingCount is the number of entries waiting to be processed
	PendingCount int64 `json:"pending_count"`

	// ProcessingCount is the number of entries currently claimed
	ProcessingCount int64 `json:"processing_count"`

	// CompletedCount is the number of successfully processed entries
	CompletedCount int64 `json:"completed_count"`

	// FailedCount is the number of entries in the failed state
	FailedCount int64 `json:"failed_count"`

	// OldestPendingAge is the age of the oldest pending entry in seconds
	OldestPendingAge int64 `json:"oldest_pending_age"`
}
