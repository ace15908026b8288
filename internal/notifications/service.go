// Package notifications delivers finished videos to a caller-supplied
// callback URL.
package notifications

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"reelsmith/internal/taskstore"
)

const userAgent = "Reelsmith/0.1.0"

// Notifier is the delivery surface exposed to the pipeline.
type Notifier interface {
	// NotifyCompleted uploads the final video to the task's callback URL.
	NotifyCompleted(ctx context.Context, task *taskstore.Task, videoPath string) error
	// NotifyFailed reports a terminal failure to the task's callback URL.
	NotifyFailed(ctx context.Context, task *taskstore.Task) error
}

// NewService builds a callback notifier. Tasks without a callback URL are
// skipped silently.
func NewService(timeout time.Duration) Notifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &callbackService{
		client: &http.Client{Timeout: timeout},
	}
}

type callbackService struct {
	client *http.Client
}

func (c *callbackService) NotifyCompleted(ctx context.Context, task *taskstore.Task, videoPath string) error {
	if task == nil || strings.TrimSpace(task.CallbackURL) == "" {
		return nil
	}
	return c.post(ctx, task, videoPath)
}

func (c *callbackService) NotifyFailed(ctx context.Context, task *taskstore.Task) error {
	if task == nil || strings.TrimSpace(task.CallbackURL) == "" {
		return nil
	}
	return c.post(ctx, task, "")
}

// post sends a multipart form holding task_id, status, duration, error (when
// failed), and the video file (when completed).
func (c *callbackService) post(ctx context.Context, task *taskstore.Task, videoPath string) error {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		err := writeForm(form, task, videoPath)
		if closeErr := form.Close(); err == nil {
			err = closeErr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, task.CallbackURL, pr)
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver callback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("callback returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func writeForm(form *multipart.Writer, task *taskstore.Task, videoPath string) error {
	if err := form.WriteField("task_id", task.ID); err != nil {
		return err
	}
	if err := form.WriteField("status", string(task.Status)); err != nil {
		return err
	}
	if err := form.WriteField("duration", strconv.FormatFloat(task.DurationSeconds, 'f', 2, 64)); err != nil {
		return err
	}
	if task.ErrorMessage != "" {
		if err := form.WriteField("error", task.ErrorMessage); err != nil {
			return err
		}
	}
	if videoPath == "" {
		return nil
	}

	file, err := os.Open(videoPath)
	if err != nil {
		return fmt.Errorf("open video for callback: %w", err)
	}
	defer file.Close()

	part, err := form.CreateFormFile("video", filepath.Base(videoPath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("stream video to callback: %w", err)
	}
	return nil
}

// Noop discards every notification, used when delivery is disabled.
type Noop struct{}

func (Noop) NotifyCompleted(context.Context, *taskstore.Task, string) error { return nil }
func (Noop) NotifyFailed(context.Context, *taskstore.Task) error            { return nil }
