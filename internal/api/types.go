// Package api defines the transport types shared by the daemon's HTTP
// surface and the CLI client.
package api

import (
	"time"

	"reelsmith/internal/taskstore"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// MinScriptLength is the shortest accepted narration script.
const MinScriptLength = 10

// SubmitRequest is the body of POST /api/tasks.
type SubmitRequest struct {
	Script      string `json:"script"`
	Query       string `json:"query"`
	VoiceID     string `json:"voice_id,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// TaskView describes a task in a transport-friendly format.
type TaskView struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	Query           string    `json:"query"`
	Progress        string    `json:"progress,omitempty"`
	ErrorMessage    string    `json:"error,omitempty"`
	OutputPath      string    `json:"outputPath,omitempty"`
	DurationSeconds float64   `json:"durationSeconds,omitempty"`
	CreatedAt       string    `json:"createdAt,omitempty"`
	UpdatedAt       string    `json:"updatedAt,omitempty"`
	CompletedAt     string    `json:"completedAt,omitempty"`
	Logs            []LogLine `json:"logs,omitempty"`
}

// LogLine is one retained progress line of a task.
type LogLine struct {
	LoggedAt string `json:"loggedAt"`
	Message  string `json:"message"`
}

// TaskResponse wraps a single task payload.
type TaskResponse struct {
	Task TaskView `json:"task"`
}

// TaskListResponse wraps a task listing.
type TaskListResponse struct {
	Tasks []TaskView `json:"tasks"`
}

// DependencyStatus reports availability of one external tool.
type DependencyStatus struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// DaemonStatus is the payload of GET /api/status.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	InFlight     int                `json:"inFlight"`
	Pending      int                `json:"pending"`
	Processing   int                `json:"processing"`
	Completed    int                `json:"completed"`
	Failed       int                `json:"failed"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
}

// FromTask converts a stored task into its transport form.
func FromTask(task *taskstore.Task) TaskView {
	if task == nil {
		return TaskView{}
	}
	view := TaskView{
		ID:              task.ID,
		Status:          string(task.Status),
		Query:           task.Query,
		Progress:        task.Progress,
		ErrorMessage:    task.ErrorMessage,
		OutputPath:      task.OutputPath,
		DurationSeconds: task.DurationSeconds,
		CreatedAt:       formatTime(task.CreatedAt),
		UpdatedAt:       formatTime(task.UpdatedAt),
	}
	if task.CompletedAt != nil {
		view.CompletedAt = formatTime(*task.CompletedAt)
	}
	return view
}

// FromLogs converts stored log entries into their transport form.
func FromLogs(entries []taskstore.LogEntry) []LogLine {
	if len(entries) == 0 {
		return nil
	}
	lines := make([]LogLine, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, LogLine{
			LoggedAt: formatTime(entry.LoggedAt),
			Message:  entry.Message,
		})
	}
	return lines
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
