// Package inference holds the wire and storage types shared by the service,
// its HTTP surface and the client SDK.
package inference

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Task identifies an inference task.
type Task string

const (
	TaskSentiment   Task = "SENTIMENT"
	TaskTranslation Task = "TRANSLATION"
)

// Valid reports whether t is a known task.
func (t Task) Valid() bool {
	switch t {
	case TaskSentiment, TaskTranslation:
		return true
	}
	return false
}

// Pipeline returns the pipeline identifier a model for t is loaded under.
func (t Task) Pipeline() string {
	switch t {
	case TaskSentiment:
		return "sentiment-analysis"
	case TaskTranslation:
		return "translation_en_to_fr"
	}
	return ""
}

func (t Task) String() string { return string(t) }

// ParseTask parses a task name case-insensitively.
func ParseTask(s string) (Task, error) {
	t := Task(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown task %q", s)
	}
	return t, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Log record
// ─────────────────────────────────────────────────────────────────────────────

// TimestampLayout is the local-time layout of LogRecord.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// LogRecord is one entry of the request log.  Records are immutable once
// created.
type LogRecord struct {
	Timestamp string `json:"timestamp"`
	Task      Task   `json:"task"`
	Input     string `json:"input"`
	Result    string `json:"result"`
}

// NewLogRecord builds a record stamped with now in local time.
func NewLogRecord(now time.Time, task Task, input, result string) LogRecord {
	return LogRecord{
		Timestamp: now.Local().Format(TimestampLayout),
		Task:      task,
		Input:     input,
		Result:    result,
	}
}

// Time parses Timestamp back into a local time.
func (r LogRecord) Time() (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, r.Timestamp, time.Local)
}

// ─────────────────────────────────────────────────────────────────────────────
// Request / response bodies
// ─────────────────────────────────────────────────────────────────────────────

// TextRequest is the body of POST /sentiment and POST /translate.
type TextRequest struct {
	Text string `json:"text" binding:"required"`
}

// SentimentLabel is one scored label.
type SentimentLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// SentimentResponse is the body returned by POST /sentiment.
type SentimentResponse struct {
	Result []SentimentLabel `json:"result"`
}

// Top returns the first label, which the backend orders by score.
func (r SentimentResponse) Top() (SentimentLabel, bool) {
	if len(r.Result) == 0 {
		return SentimentLabel{}, false
	}
	return r.Result[0], true
}

// LogResult renders the labels in the form stored in the request log.
func (r SentimentResponse) LogResult() string {
	b, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Sprint(r.Result)
	}
	return string(b)
}

// TranslationResponse is the body returned by POST /translate.
type TranslationResponse struct {
	TranslatedText string `json:"translated_text"`
}

// Health statuses.
const (
	StatusOnline          = "Online"
	StatusOnlineMonitored = "Online & Monitored"
	DBStatusConnected     = "Connected to Redis"
	DBStatusUnavailable   = "Redis unavailable"
)

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	DBStatus string `json:"db_status"`
}

// HistoryError is the body GET /history returns when the store is unreachable.
type HistoryError struct {
	Error string `json:"error"`
}

// ErrorResponse carries a single error message, e.g. for 403.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ValidationErrorItem describes one invalid field.
type ValidationErrorItem struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationErrorResponse is the 422 body.
type ValidationErrorResponse struct {
	Detail []ValidationErrorItem `json:"detail"`
}

//Personal.AI order the ending
