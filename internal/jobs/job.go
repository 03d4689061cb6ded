package jobs

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// Type is the kind of audio work a job performs.
type Type string

const (
	TypeNarration Type = "narration"
	TypeMixing    Type = "mixing"
)

// Job is one recorded generate or mix operation.
type Job struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InputFilePath  string `json:"input_file_path"`
	OutputFilePath string `json:"output_file_path"`

	// Narration only.
	TextContent string `json:"text_content,omitempty"`
	VoiceID     string `json:"voice_id,omitempty"`

	// Mixing only.
	BackgroundAudioFilePath string  `json:"background_audio_file_path,omitempty"`
	Volume                  float64 `json:"volume,omitempty"`

	Error string `json:"error,omitempty"`
}

// NewJob creates a pending job with a fresh ID.
func NewJob(jobType Type, inputPath, outputPath string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:             uuid.NewString(),
		Type:           jobType,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
		InputFilePath:  inputPath,
		OutputFilePath: outputPath,
	}
}

// MarkRunning moves the job to running.
func (j *Job) MarkRunning() {
	j.setStatus(StatusRunning)
}

// MarkCompleted moves the job to completed and clears any error.
func (j *Job) MarkCompleted() {
	j.Error = ""
	j.setStatus(StatusCompleted)
}

// MarkFailed moves the job to failed and records err.
func (j *Job) MarkFailed(err error) {
	if err != nil {
		j.Error = err.Error()
	}
	j.setStatus(StatusFailed)
}

// MarkCanceled moves the job to canceled and records err.
func (j *Job) MarkCanceled(err error) {
	if err != nil {
		j.Error = err.Error()
	}
	j.setStatus(StatusCanceled)
}

// Done reports whether the job reached a terminal state.
func (j *Job) Done() bool {
	switch j.Status {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

func (j *Job) setStatus(s Status) {
	j.Status = s
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) String() string {
	return fmt.Sprintf("Job{ID: %s, Type: %s, Status: %s}", j.ID, j.Type, j.Status)
}
