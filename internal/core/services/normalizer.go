package services

import (
	"net/url"
	"strings"
	"unicode"
)

// Path segments that mark a category label in help-center URLs,
// e.g. /help/categories/payments-and-refunds/...
var categoryMarkers = map[string]bool{
	"categories": true,
	"category":   true,
	"topics":     true,
	"topic":      true,
}

// Normalize collapses internal whitespace and newlines, trims edges and
// strips non-printable artifacts. Pure and total: empty input yields
// empty output, and it never fails.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	space := false
	for _, r := range raw {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if !unicode.IsPrint(r) {
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// CategoryFromURL extracts a canonical category label from a URL path:
// the segment following a known marker token, with separators replaced
// by spaces and each word title-cased. Falls back to a platform default
// when the URL does not parse or carries no marker. Never fails.
func CategoryFromURL(rawURL, platform string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultCategory(platform)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if categoryMarkers[strings.ToLower(seg)] && i+1 < len(segments) {
			if label := categoryLabel(segments[i+1]); label != "" {
				return label
			}
		}
	}
	return defaultCategory(platform)
}

// categoryLabel turns a path segment like "payments-and-refunds" into
// "Payments And Refunds".
func categoryLabel(segment string) string {
	segment = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(segment)
	words := strings.Fields(segment)
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func defaultCategory(platform string) string {
	if platform == "" {
		return "Community"
	}
	return titleWord(platform) + " Community"
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	r := []rune(strings.ToLower(w))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Paragraphs segments a body into paragraphs of at least minLen
// characters, capped at maxChunks. Paragraph boundaries are blank
// lines; each paragraph is individually normalized. Short fragments are
// dropped rather than merged.
func Paragraphs(body string, minLen, maxChunks int) []string {
	if body == "" || maxChunks <= 0 {
		return nil
	}

	var out []string
	for _, block := range strings.Split(body, "\n\n") {
		p := Normalize(block)
		if len(p) < minLen {
			continue
		}
		out = append(out, p)
		if len(out) == maxChunks {
			break
		}
	}
	return out
}
