package models

import (
	"crypto/rand"
	"math/big"
	"time"
)

// QuestionIDLength is the fixed length of generated question identifiers.
const QuestionIDLength = 16

const questionIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewQuestionID generates a random fixed-length alphanumeric identifier
// for one question/answer cycle.
func NewQuestionID() string {
	b := make([]byte, QuestionIDLength)
	max := big.NewInt(int64(len(questionIDAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken;
			// fall back to a constant rather than panic mid-turn.
			b[i] = '0'
			continue
		}
		b[i] = questionIDAlphabet[n.Int64()]
	}
	return string(b)
}

// FeedbackScores are the accepted feedback score values, from the
// five-level face widget.
var FeedbackScores = []float64{0, 0.25, 0.5, 0.75, 1}

// IsValidFeedbackScore checks that a score is one of the five levels.
func IsValidFeedbackScore(score float64) bool {
	for _, s := range FeedbackScores {
		if s == score {
			return true
		}
	}
	return false
}

// AuditEntry is one persisted record of a question/answer/execution cycle.
// Created when an assistant turn completes; mutated exactly once later by a
// feedback update keyed by QuestionID; never deleted.
type AuditEntry struct {
	QuestionID string    `json:"question_id"`
	DS         time.Time `json:"ds"`        // Date of the turn
	Timestamp  time.Time `json:"timestamp"` // Fixed audit timezone
	SessionID  string    `json:"session_id"`

	Question   string  `json:"question"`
	FullAnswer string  `json:"full_answer"`
	SQLQuery   *string `json:"sql_query,omitempty"`
	// QueryResult is the serialized result rows (JSON), nil when the turn
	// produced no SQL or the query failed.
	QueryResult *string `json:"query_result,omitempty"`
	SQLError    *string `json:"sql_error,omitempty"`

	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	AIResponseTime   float64 `json:"ai_response_time"`
	QueryTime        float64 `json:"query_time"`

	UseCase string `json:"use_case"`

	FeedbackScore *float64 `json:"feedback_score,omitempty"`
	FeedbackText  *string  `json:"feedback_text,omitempty"`
}

// BugReport is one user-filed report of an application problem.
// ReporterEmail must match the company email-domain pattern.
type BugReport struct {
	ReporterEmail     string    `json:"reporter_email"`
	Description       string    `json:"description"`
	ReproductionSteps string    `json:"reproduction_steps,omitempty"`
	ReportedOn        time.Time `json:"reported_on"`
}
