// Package jobqueue implements the filesystem job queue shared by the gateway
// and the build worker. Each job is one <job_id>.json file in the jobs
// directory; writes go through a temp file and rename so readers never see a
// partial job.
package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forgelabs/gameforge/internal/game"
)

// ErrNotFound is returned when no job file matches the given ID.
var ErrNotFound = errors.New("job not found")

// ErrNotClaimable is returned when a claim races with another worker or the
// job is not queued.
var ErrNotClaimable = errors.New("job is not queued")

// Queue is a directory of job files.
type Queue struct {
	dir string
}

// Open ensures the jobs directory exists and returns a queue over it.
func Open(dir string) (*Queue, error) {
	if dir == "" {
		return nil, fmt.Errorf("jobs directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create jobs directory: %w", err)
	}
	return &Queue{dir: dir}, nil
}

// Dir returns the queue directory.
func (q *Queue) Dir() string {
	return q.dir
}

// Enqueue writes a new queued job file.
func (q *Queue) Enqueue(_ context.Context, job game.BuildJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job id is required")
	}
	return q.write(job)
}

// Get loads a job by ID.
func (q *Queue) Get(_ context.Context, id string) (game.BuildJob, error) {
	job, ok := q.load(q.path(id))
	if !ok {
		return game.BuildJob{}, ErrNotFound
	}
	return job, nil
}

// Pending returns all jobs currently in the queued state. Unreadable or
// half-written files are skipped; they will be picked up on a later cycle.
func (q *Queue) Pending(_ context.Context) ([]game.BuildJob, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read jobs directory: %w", err)
	}

	var out []game.BuildJob
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		job, ok := q.load(filepath.Join(q.dir, e.Name()))
		if !ok || job.Status != game.JobQueued {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

// Claim transitions a queued job to building.
func (q *Queue) Claim(ctx context.Context, id string) (game.BuildJob, error) {
	job, err := q.Get(ctx, id)
	if err != nil {
		return game.BuildJob{}, err
	}
	if job.Status != game.JobQueued {
		return game.BuildJob{}, ErrNotClaimable
	}
	job.Status = game.JobBuilding
	job.UpdatedAt = time.Now().UTC()
	if err := q.write(job); err != nil {
		return game.BuildJob{}, err
	}
	return job, nil
}

// Complete marks a job done and records its output URL.
func (q *Queue) Complete(ctx context.Context, id, outputURL string) error {
	job, err := q.Get(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	job.Status = game.JobDone
	job.OutputURL = outputURL
	job.Error = ""
	job.UpdatedAt = now
	job.FinishedAt = now.Format("2006-01-02T15:04:05Z")
	return q.write(job)
}

// Fail marks a job failed with the given reason.
func (q *Queue) Fail(ctx context.Context, id string, reason error) error {
	job, err := q.Get(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	job.Status = game.JobFailed
	job.Error = reason.Error()
	job.UpdatedAt = now
	job.FinishedAt = now.Format("2006-01-02T15:04:05Z")
	return q.write(job)
}

// RequeueStale returns any job stuck in building longer than maxAge to the
// queued state, so a crashed worker's jobs are eventually retried. Jobs
// named in exclude are left alone; the worker passes the job it is actively
// building so a long export is not mistaken for a crash. It returns the IDs
// it requeued.
func (q *Queue) RequeueStale(_ context.Context, maxAge time.Duration, exclude ...string) ([]string, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, fmt.Errorf("read jobs directory: %w", err)
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		if id != "" {
			skip[id] = struct{}{}
		}
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	var requeued []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		job, ok := q.load(filepath.Join(q.dir, e.Name()))
		if !ok || job.Status != game.JobBuilding || job.UpdatedAt.After(cutoff) {
			continue
		}
		if _, ok := skip[job.JobID]; ok {
			continue
		}
		job.Status = game.JobQueued
		job.UpdatedAt = time.Now().UTC()
		if err := q.write(job); err != nil {
			return requeued, err
		}
		requeued = append(requeued, job.JobID)
	}
	return requeued, nil
}

func (q *Queue) path(id string) string {
	return filepath.Join(q.dir, id+".json")
}

func (q *Queue) load(path string) (game.BuildJob, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return game.BuildJob{}, false
	}
	var job game.BuildJob
	if err := json.Unmarshal(data, &job); err != nil {
		// File is empty or mid-write.
		return game.BuildJob{}, false
	}
	if job.JobID == "" {
		job.JobID = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	return job, true
}

func (q *Queue) write(job game.BuildJob) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	target := q.path(job.JobID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write job file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("publish job file: %w", err)
	}
	return nil
}
