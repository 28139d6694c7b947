package gateway

import (
	"regexp"
	"strings"
)

var whitespaceRuns = regexp.MustCompile(`\s+`)

// normalizeText lowercases and collapses whitespace so that trivially
// different phrasings of the same question share one cache entry.
func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return whitespaceRuns.ReplaceAllString(s, " ")
}

// qaCacheKey addresses one (question, notebook) pair.
func qaCacheKey(question, notebookID string) string {
	return "qa:" + normalizeText(question) + ":" + notebookID
}

// contentCacheKey addresses generated content per lesson. The topic is
// part of the key so a retitled lesson regenerates instead of serving
// stale material.
func contentCacheKey(lessonID, topic, notebookID string) string {
	return "content:" + lessonID + ":" + normalizeText(topic) + ":" + notebookID
}

// quizCacheKey is a separate namespace from content so the two never
// invalidate each other.
func quizCacheKey(lessonID, topic, notebookID string) string {
	return "quiz:" + lessonID + ":" + normalizeText(topic) + ":" + notebookID
}
