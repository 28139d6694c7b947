// Package citations extracts and reformats citation markers from
// backend answer text.
//
// Two notations are recognized: numbered markers ([1], [2], ...)
// resolved against an ordered source-document list, and inline
// [Source: X] markers. Parsing is pure; text with no markers comes back
// unchanged modulo whitespace normalization.
package citations

import (
	"regexp"
	"strconv"
	"strings"
)

// Citation is one extracted reference.
type Citation struct {
	// Text is the marker as it appeared in the answer, e.g. "[1]".
	Text string `json:"text"`

	// Source is the resolved document name or inline source.
	Source string `json:"source"`
}

// Result is the outcome of parsing one answer.
type Result struct {
	CleanText string     `json:"clean_text"`
	Citations []Citation `json:"citations"`
}

var (
	inlinePattern   = regexp.MustCompile(`\[Source:\s*([^\]]+)\]`)
	numberedPattern = regexp.MustCompile(`\[(\d+)\]`)
	spaceRuns       = regexp.MustCompile(`\s+`)
	danglingPunct   = regexp.MustCompile(`\s+([.,;:!?])`)
)

// Parse extracts citations from text and strips the recognized markers.
// sourceDocuments is the ordered list numbered markers resolve against;
// a marker with no matching document is stripped without producing a
// citation. Citations come back in order of appearance, inline markers
// first only when they appear first.
func Parse(text string, sourceDocuments []string) Result {
	citations := make([]Citation, 0, 4)

	type match struct {
		start    int
		citation Citation
		keep     bool
	}
	var matches []match

	for _, loc := range inlinePattern.FindAllStringSubmatchIndex(text, -1) {
		source := strings.TrimSpace(text[loc[2]:loc[3]])
		matches = append(matches, match{
			start: loc[0],
			citation: Citation{
				Text:   text[loc[0]:loc[1]],
				Source: source,
			},
			keep: source != "",
		})
	}

	for _, loc := range numberedPattern.FindAllStringSubmatchIndex(text, -1) {
		// Inline markers also contain digits in brackets only when
		// malformed, so overlap is impossible here.
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		m := match{start: loc[0], citation: Citation{Text: text[loc[0]:loc[1]]}}
		if err == nil && n >= 1 && n <= len(sourceDocuments) {
			m.citation.Source = sourceDocuments[n-1]
			m.keep = true
		}
		matches = append(matches, m)
	}

	// Order citations by position in the original text.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].start < matches[j-1].start; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
	for _, m := range matches {
		if m.keep {
			citations = append(citations, m.citation)
		}
	}

	clean := inlinePattern.ReplaceAllString(text, "")
	clean = numberedPattern.ReplaceAllString(clean, "")
	clean = normalizeWhitespace(clean)

	return Result{CleanText: clean, Citations: citations}
}

// normalizeWhitespace collapses runs of whitespace and re-attaches
// punctuation left dangling by marker removal.
func normalizeWhitespace(s string) string {
	s = spaceRuns.ReplaceAllString(s, " ")
	s = danglingPunct.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// GenerateLink maps a citation to a navigable URL, best effort.
// Returns "" when no reasonable link can be inferred.
func GenerateLink(citation Citation) string {
	source := strings.TrimSpace(citation.Source)
	if source == "" {
		return ""
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return source
	}

	lower := strings.ToLower(source)
	if strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".rst") {
		trimmed := source[:strings.LastIndex(source, ".")]
		return "/docs/" + slugify(trimmed)
	}

	return "#source-" + slugify(source)
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r == '/':
			// Path separators stay so docs routes keep their shape.
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
