package domain

import (
	"testing"
	"time"
)

func TestNewQueueItem(t *testing.T) {
	item := NewQueueItem("https://example.com/help/refunds", "airbnb", QueueItemArticle, 5)

	if item.ID == "" {
		t.Error("expected non-empty ID")
	}
	if item.URL != "https://example.com/help/refunds" {
		t.Errorf("unexpected URL: %s", item.URL)
	}
	if item.Status != QueueStatusPending {
		t.Errorf("expected pending status, got %s", item.Status)
	}
	if item.Priority != 5 {
		t.Errorf("expected priority 5, got %d", item.Priority)
	}
	if item.RetryCount != 0 {
		t.Errorf("expected zero retry count, got %d", item.RetryCount)
	}
	if item.MaxRetries != DefaultMaxRetries {
		t.Errorf("expected default max retries, got %d", item.MaxRetries)
	}
	if item.FirstSeen.IsZero() {
		t.Error("expected FirstSeen to be set")
	}
}

func TestQueueItem_IDsUnique(t *testing.T) {
	a := NewQueueItem("https://a", "viator", QueueItemArticle, 0)
	b := NewQueueItem("https://b", "viator", QueueItemArticle, 0)
	if a.ID == b.ID {
		t.Errorf("expected unique IDs, got %s twice", a.ID)
	}
}

func TestQueueItem_StateMachine(t *testing.T) {
	item := NewQueueItem("https://example.com/a", "viator", QueueItemArticle, 0)

	item.MarkProcessing()
	if item.Status != QueueStatusProcessing {
		t.Errorf("expected processing, got %s", item.Status)
	}

	item.MarkCompleted()
	if item.Status != QueueStatusCompleted {
		t.Errorf("expected completed, got %s", item.Status)
	}
	if item.LastError != "" {
		t.Errorf("expected cleared error, got %q", item.LastError)
	}
}

func TestQueueItem_MarkFailed(t *testing.T) {
	item := NewQueueItem("https://example.com/a", "viator", QueueItemArticle, 0)

	item.MarkProcessing()
	item.MarkFailed("connection reset")

	if item.Status != QueueStatusFailed {
		t.Errorf("expected failed, got %s", item.Status)
	}
	if item.RetryCount != 1 {
		t.Errorf("expected retry count 1, got %d", item.RetryCount)
	}
	if item.LastError != "connection reset" {
		t.Errorf("unexpected last error: %q", item.LastError)
	}
}

func TestQueueItem_RetryCap(t *testing.T) {
	item := NewQueueItem("https://example.com/a", "viator", QueueItemArticle, 0)

	for i := 0; i < item.MaxRetries; i++ {
		if !item.Selectable() {
			t.Fatalf("expected item selectable at retry count %d", item.RetryCount)
		}
		item.MarkProcessing()
		item.MarkFailed("timeout")
	}

	// At the cap: still failed, still visible, no longer selectable
	if item.Status != QueueStatusFailed {
		t.Errorf("expected failed status at cap, got %s", item.Status)
	}
	if item.CanRetry() {
		t.Error("expected CanRetry false at cap")
	}
	if item.Selectable() {
		t.Error("expected item excluded from selection at cap")
	}
}

func TestQueueItem_Selectable(t *testing.T) {
	tests := []struct {
		name       string
		status     QueueStatus
		retryCount int
		want       bool
	}{
		{"pending", QueueStatusPending, 0, true},
		{"processing", QueueStatusProcessing, 0, false},
		{"completed", QueueStatusCompleted, 0, false},
		{"failed under cap", QueueStatusFailed, 1, true},
		{"failed at cap", QueueStatusFailed, DefaultMaxRetries, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := NewQueueItem("https://example.com/a", "viator", QueueItemArticle, 0)
			item.Status = tt.status
			item.RetryCount = tt.retryCount
			if got := item.Selectable(); got != tt.want {
				t.Errorf("Selectable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueueItem_Reclaim(t *testing.T) {
	item := NewQueueItem("https://example.com/a", "viator", QueueItemArticle, 0)
	item.MarkProcessing()
	before := item.RetryCount

	item.Reclaim()

	if item.Status != QueueStatusPending {
		t.Errorf("expected pending after reclaim, got %s", item.Status)
	}
	if item.RetryCount != before {
		t.Error("reclaim must not consume a retry")
	}
}

func TestQueueItem_LastCheckedAdvances(t *testing.T) {
	item := NewQueueItem("https://example.com/a", "viator", QueueItemArticle, 0)
	item.LastChecked = time.Now().Add(-time.Hour)

	item.MarkProcessing()
	if time.Since(item.LastChecked) > time.Minute {
		t.Error("expected LastChecked to advance on transition")
	}
}
