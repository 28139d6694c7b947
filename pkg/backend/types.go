// Package backend implements the client for the remote knowledge
// assistant.
//
// The client owns three things: connection-mode state established by
// Initialize, the in-memory notebook registry, and the three operation
// calls (Query, GenerateContent, GenerateQuiz). Every operation fails
// open: when the remote service is unreachable or returns garbage, the
// client synthesizes degraded content instead of surfacing an error.
// Only an unresolvable notebook fails a call outright.
//
// Caching is deliberately not this package's concern. The gateway
// service decides what to cache and under which key.
package backend

import (
	"time"
)

// ConnectionStatus describes the outcome of the most recent
// Initialize run. Mutated only by Initialize; read-only elsewhere.
type ConnectionStatus struct {
	Connected     bool      `json:"connected"`
	Mode          string    `json:"mode"`
	Endpoint      string    `json:"endpoint,omitempty"`
	LastCheckedAt time.Time `json:"last_checked_at"`
	Error         string    `json:"error,omitempty"`
}

// QueryRequest asks a question against a notebook. NotebookID may be
// empty, in which case the active notebook is the target.
type QueryRequest struct {
	Question   string `json:"question"`
	NotebookID string `json:"notebook_id,omitempty"`
}

// Answer is the raw backend response to a query. Text may still
// contain citation markers; the caller is responsible for parsing
// them out.
type Answer struct {
	Text            string   `json:"text"`
	SourceDocuments []string `json:"source_documents,omitempty"`
	Confidence      float64  `json:"confidence"`
	NotebookID      string   `json:"notebook_id"`

	// Cached mirrors the legacy availability signal: a synthesized
	// fallback reports Cached=true even though no cache was involved.
	// Degraded is the unambiguous flag for that case.
	Cached   bool `json:"cached"`
	Degraded bool `json:"degraded"`
}

// ContentRequest asks for generated teaching content on a topic.
type ContentRequest struct {
	Topic      string `json:"topic"`
	LessonID   string `json:"lesson_id,omitempty"`
	NotebookID string `json:"notebook_id,omitempty"`
}

// Content is generated lesson material.
type Content struct {
	Text       string `json:"text"`
	Topic      string `json:"topic"`
	NotebookID string `json:"notebook_id"`
	Cached     bool   `json:"cached"`
	Degraded   bool   `json:"degraded"`
}

// QuizRequest asks for a generated quiz on a topic.
type QuizRequest struct {
	Topic         string `json:"topic"`
	LessonID      string `json:"lesson_id,omitempty"`
	NotebookID    string `json:"notebook_id,omitempty"`
	QuestionCount int    `json:"question_count,omitempty"`
}

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation,omitempty"`
}

// Quiz is a generated quiz. When the backend is unreachable Questions
// is empty rather than synthesized; a fake quiz would be worse than no
// quiz.
type Quiz struct {
	Questions  []QuizQuestion `json:"questions"`
	Topic      string         `json:"topic"`
	NotebookID string         `json:"notebook_id"`
	Degraded   bool           `json:"degraded"`
}
