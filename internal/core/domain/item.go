package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Item is the durable, deduplicated record stored for an ingested URL.
// Exactly one item exists per URL; slugs are globally unique.
type Item struct {
	ID          string      `json:"id"`
	URL         string      `json:"url"`
	Slug        string      `json:"slug"`
	Title       string      `json:"title"`
	Body        string      `json:"body"`
	Category    string      `json:"category"`
	Platform    string      `json:"platform"`
	ContentType ContentType `json:"content_type"`
	Language    string      `json:"language"`

	// ContentHash identifies the content equivalence class, not identity.
	// Empty when the body was too short to carry dedup signal.
	ContentHash string `json:"content_hash,omitempty"`

	// IsDuplicateOf references the item this one duplicates, when the
	// import policy flags duplicates instead of skipping them.
	IsDuplicateOf string `json:"is_duplicate_of,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Chunk is a paragraph-sized segment of an item body, stored for
// downstream enrichment. Chunks are owned exclusively by one item and
// removed only by cascading deletion of the parent.
type Chunk struct {
	ID       string `json:"id"`
	ItemID   string `json:"item_id"`
	Text     string `json:"text"`
	Position int    `json:"position"`

	// Embedding is produced by an external enrichment service; nil until
	// enrichment runs, and enrichment failures leave it nil.
	Embedding []float32 `json:"embedding,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
