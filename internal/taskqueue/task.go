package taskqueue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"timelapse-desktop/internal/common"
	"timelapse-desktop/internal/composites"
	"timelapse-desktop/internal/temporal"
)

// TaskStatus represents the current status of a task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// ExportSettings carries the video options a task was queued with. Kept as
// plain data so tasks round-trip through JSON without dragging font or
// ffmpeg state along.
type ExportSettings struct {
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	Preset          string  `json:"preset"`
	ShowCaption     bool    `json:"showCaption"`
	CaptionFontSize float64 `json:"captionFontSize"`
	CaptionPosition string  `json:"captionPosition"`
	ShowProgressBar bool    `json:"showProgressBar"`
	Title           string  `json:"title"`
	FrameRate       int     `json:"frameRate"`
	FrameDelay      float64 `json:"frameDelay"`
	OutputFormat    string  `json:"outputFormat"` // "gif", "mp4", "avi", "gif+mp4"
	Quality         int     `json:"quality"`
}

// TaskProgress represents detailed progress information
type TaskProgress struct {
	CurrentPhase string `json:"currentPhase"` // "rendering", "annotating", "encoding"
	CurrentFrame int    `json:"currentFrame"`
	TotalFrames  int    `json:"totalFrames"`
	Percent      int    `json:"percent"`
}

// TimelapseTask represents a single timelapse render job in the queue
type TimelapseTask struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      TaskStatus `json:"status"`
	Priority    int        `json:"priority"` // Higher = more urgent (default 0)
	CreatedAt   string     `json:"createdAt"` // ISO 8601 format
	StartedAt   string     `json:"startedAt,omitempty"`
	CompletedAt string     `json:"completedAt,omitempty"`

	// Render settings
	Provider string                 `json:"provider"`
	Region   common.BoundingBox     `json:"region"`
	Window   temporal.WindowRequest `json:"window"`
	Options  composites.Options     `json:"options"`

	// Export settings
	Export ExportSettings `json:"export"`

	// Progress tracking
	Progress TaskProgress `json:"progress"`

	// Error message if failed
	Error string `json:"error,omitempty"`

	// Output path for completed renders
	OutputPath string `json:"outputPath,omitempty"`
}

// NewTimelapseTask creates a new render task with default values
func NewTimelapseTask(name, provider string, region common.BoundingBox, window temporal.WindowRequest, opts composites.Options) *TimelapseTask {
	return &TimelapseTask{
		ID:        generateTaskID(),
		Name:      name,
		Status:    TaskStatusPending,
		Priority:  0,
		CreatedAt: time.Now().Format(time.RFC3339),
		Provider:  provider,
		Region:    region,
		Window:    window,
		Options:   opts,
		Export: ExportSettings{
			OutputFormat: "gif",
			FrameRate:    10,
			FrameDelay:   0.1,
			ShowCaption:  true,
		},
	}
}

// generateTaskID creates a unique task ID
func generateTaskID() string {
	return fmt.Sprintf("task_%d", time.Now().UnixNano())
}

// SaveToFile persists the task to a JSON file
func (t *TimelapseTask) SaveToFile(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create task directory: %w", err)
	}

	path := filepath.Join(dir, t.ID+".json")
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write task file: %w", err)
	}

	return nil
}

// LoadFromFile loads a task from a JSON file
func LoadFromFile(path string) (*TimelapseTask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}

	var task TimelapseTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}

	return &task, nil
}

// DeleteFile removes the task file from disk
func (t *TimelapseTask) DeleteFile(dir string) error {
	path := filepath.Join(dir, t.ID+".json")
	return os.Remove(path)
}

// UpdateProgress updates the task's progress
func (t *TimelapseTask) UpdateProgress(phase string, currentFrame, totalFrames int) {
	t.Progress.CurrentPhase = phase
	t.Progress.CurrentFrame = currentFrame
	t.Progress.TotalFrames = totalFrames

	if totalFrames > 0 {
		t.Progress.Percent = (currentFrame * 100) / totalFrames
	}

	if t.Progress.Percent > 100 {
		t.Progress.Percent = 100
	}
}

// MarkStarted marks the task as started
func (t *TimelapseTask) MarkStarted() {
	t.StartedAt = time.Now().Format(time.RFC3339)
	t.Status = TaskStatusRunning
}

// MarkCompleted marks the task as completed
func (t *TimelapseTask) MarkCompleted(outputPath string) {
	t.CompletedAt = time.Now().Format(time.RFC3339)
	t.Status = TaskStatusCompleted
	t.OutputPath = outputPath
	t.Progress.Percent = 100
}

// MarkFailed marks the task as failed with an error
func (t *TimelapseTask) MarkFailed(err error) {
	t.CompletedAt = time.Now().Format(time.RFC3339)
	t.Status = TaskStatusFailed
	if err != nil {
		t.Error = err.Error()
	}
}

// MarkCancelled marks the task as cancelled
func (t *TimelapseTask) MarkCancelled() {
	t.CompletedAt = time.Now().Format(time.RFC3339)
	t.Status = TaskStatusCancelled
}
