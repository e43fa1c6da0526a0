package domain

// ContentType classifies where a candidate's content originated
type ContentType string

const (
	// ContentTypeOfficial is content published by the platform itself (help centers, docs)
	ContentTypeOfficial ContentType = "official"
	// ContentTypeCommunity is user-generated content (forums, Q&A threads)
	ContentTypeCommunity ContentType = "community"
)

// MinBodyLength is the minimum body length for a candidate to enter the pipeline.
// Shorter records are discarded by validation before reconciliation.
const MinBodyLength = 50

// Candidate is a freshly scraped, not-yet-persisted content record.
// Scraper adapters produce candidates; the reconciler converts them into items.
type Candidate struct {
	// URL is the canonical source URL and the logical identity of the record
	URL string `json:"url"`

	// Title is the page or question title
	Title string `json:"title"`

	// Body is the answer or article text (already English-filtered upstream)
	Body string `json:"body"`

	// Platform identifies the source platform (e.g. "airbnb", "getyourguide")
	Platform string `json:"platform"`

	// Category is an optional pre-extracted category label
	Category string `json:"category"`

	// ContentType is official or community
	ContentType ContentType `json:"content_type"`

	// Provider is the vendor or author name when the source exposes one
	Provider string `json:"provider,omitempty"`

	// Metadata carries optional source-specific fields (price, rating, ...)
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate checks the candidate has the fields the pipeline requires.
func (c *Candidate) Validate() error {
	if c.URL == "" {
		return ErrInvalidInput
	}
	if len(c.Body) < MinBodyLength {
		return ErrContentTooShort
	}
	return nil
}
