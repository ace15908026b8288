package taskstore

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

const taskColumns = "id, script, query, voice_id, callback_url, status, progress, error_message, output_path, duration_seconds, created_at, updated_at, completed_at"

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		id           string
		script       string
		query        string
		voiceID      sql.NullString
		callbackURL  sql.NullString
		statusStr    string
		progress     sql.NullString
		errorMessage sql.NullString
		outputPath   sql.NullString
		duration     sql.NullFloat64
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		completedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&script,
		&query,
		&voiceID,
		&callbackURL,
		&statusStr,
		&progress,
		&errorMessage,
		&outputPath,
		&duration,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	task := &Task{
		ID:              id,
		Script:          script,
		Query:           query,
		VoiceID:         voiceID.String,
		CallbackURL:     callbackURL.String,
		Status:          Status(statusStr),
		Progress:        progress.String,
		ErrorMessage:    errorMessage.String,
		OutputPath:      outputPath.String,
		DurationSeconds: duration.Float64,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		task.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			task.CompletedAt = &completed
		}
	}
	return task, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.Repeat("?, ", count-1) + "?"
}
