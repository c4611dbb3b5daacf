// Package game defines the domain types shared by the gateway and the build
// worker.
package game

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status tracks the lifecycle of a generated game.
type Status string

const (
	StatusPending Status = "pending"
	StatusBuilt   Status = "built"
	StatusFailed  Status = "failed"
)

// Game is a persisted record of one prompt-to-game run. It matches the
// 'games' table in Supabase.
type Game struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Prompt    string    `json:"prompt"`
	Script    string    `json:"script"`
	Status    Status    `json:"status"`
	WebGLURL  string    `json:"webgl_url"`
	APKURL    string    `json:"apk_url"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns a pending Game with identifier and timestamps set.
func New(title, prompt string) Game {
	now := time.Now().UTC()
	return Game{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Prompt:    strings.TrimSpace(prompt),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStatus tracks the lifecycle of a local engine build job.
type JobStatus string

const (
	JobQueued   JobStatus = "queued"
	JobBuilding JobStatus = "building"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
)

// BuildJob is one entry in the filesystem job queue. Field names match the
// job files the worker exchanges with outside tooling.
type BuildJob struct {
	JobID      string    `json:"job_id"`
	RepoURL    string    `json:"repo_url"`
	Status     JobStatus `json:"status"`
	OutputURL  string    `json:"output_url,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	FinishedAt string    `json:"finished_at,omitempty"`
}

// NewBuildJob returns a queued job for the given repository.
func NewBuildJob(repoURL string) BuildJob {
	now := time.Now().UTC()
	return BuildJob{
		JobID:     uuid.NewString(),
		RepoURL:   strings.TrimSpace(repoURL),
		Status:    JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
