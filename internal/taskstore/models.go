package taskstore

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a video generation task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// MaxLogEntries bounds the per-task log ring kept in the database.
const MaxLogEntries = 50

// InterruptedReason is the error message written to processing tasks found
// at startup. Records do not survive a restart mid-flight.
const InterruptedReason = "interrupted by daemon restart"

// Task represents one script-to-video job persisted in SQLite.
type Task struct {
	ID              string
	Script          string
	Query           string
	VoiceID         string
	CallbackURL     string
	Status          Status
	Progress        string
	ErrorMessage    string
	OutputPath      string
	DurationSeconds float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// LogEntry is one timestamped progress line for a task.
type LogEntry struct {
	LoggedAt time.Time
	Message  string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SetCompleted marks the task as finished with its output file.
func (t *Task) SetCompleted(outputPath string, duration float64) {
	now := time.Now().UTC()
	t.Status = StatusCompleted
	t.OutputPath = outputPath
	t.DurationSeconds = duration
	t.ErrorMessage = ""
	t.CompletedAt = &now
}

// SetFailed marks the task as failed with the given message.
func (t *Task) SetFailed(message string) {
	now := time.Now().UTC()
	t.Status = StatusFailed
	t.ErrorMessage = message
	t.OutputPath = ""
	t.CompletedAt = &now
}

// Stats aggregates task counts per lifecycle state.
type Stats struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}
