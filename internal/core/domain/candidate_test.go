package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestCandidate_Validate(t *testing.T) {
	valid := &Candidate{
		URL:         "https://example.com/help/refunds",
		Title:       "Refund Policy",
		Body:        strings.Repeat("a", MinBodyLength),
		Platform:    "airbnb",
		ContentType: ContentTypeOfficial,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	noURL := &Candidate{Body: strings.Repeat("a", MinBodyLength)}
	if err := noURL.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	short := &Candidate{URL: "https://example.com/a", Body: strings.Repeat("a", MinBodyLength-1)}
	if err := short.Validate(); !errors.Is(err, ErrContentTooShort) {
		t.Errorf("expected ErrContentTooShort, got %v", err)
	}
}

func TestRunSummary_Progress(t *testing.T) {
	empty := &RunSummary{}
	if empty.Progress() {
		t.Error("expected no progress for empty summary")
	}

	queueOnly := &RunSummary{ItemsFailed: 1}
	if !queueOnly.Progress() {
		t.Error("expected queue movement to count as progress")
	}

	created := &RunSummary{Stats: BatchStats{Created: 2}}
	if !created.Progress() {
		t.Error("expected created items to count as progress")
	}
}
