// Package worker processes queued build jobs: clone the project repository,
// run a headless web export, and publish the artifacts.
package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/forgelabs/gameforge/internal/engine"
	"github.com/forgelabs/gameforge/internal/game"
	"github.com/forgelabs/gameforge/internal/jobqueue"
)

// Cloner fetches a project repository into a directory.
type Cloner interface {
	Clone(ctx context.Context, repoURL, dir string) error
}

// GitCloner shallow-clones with the git binary.
type GitCloner struct{}

// Clone runs `git clone --depth 1`.
func (GitCloner) Clone(ctx context.Context, repoURL, dir string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", repoURL, dir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git clone failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Config configures a Worker.
type Config struct {
	Queue        *jobqueue.Queue
	BuildDir     string
	PollInterval time.Duration
	StaleAfter   time.Duration
	Cloner       Cloner
	Exporter     engine.Exporter
}

// Worker polls the job queue and builds queued jobs one at a time, matching
// the single-process contract of the jobs directory.
type Worker struct {
	queue        *jobqueue.Queue
	buildDir     string
	pollInterval time.Duration
	staleAfter   time.Duration
	cloner       Cloner
	exporter     engine.Exporter
	cron         *cron.Cron

	// inFlight is the job currently being built; the maintenance sweep
	// runs concurrently and must not treat it as stale.
	mu       sync.Mutex
	inFlight string
}

func (w *Worker) setInFlight(id string) {
	w.mu.Lock()
	w.inFlight = id
	w.mu.Unlock()
}

func (w *Worker) currentJob() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inFlight
}

// New creates a worker.
func New(cfg Config) (*Worker, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if cfg.BuildDir == "" {
		return nil, fmt.Errorf("build directory is required")
	}
	if err := os.MkdirAll(cfg.BuildDir, 0o755); err != nil {
		return nil, fmt.Errorf("create build directory: %w", err)
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 4 * time.Second
	}
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	cloner := cfg.Cloner
	if cloner == nil {
		cloner = GitCloner{}
	}

	return &Worker{
		queue:        cfg.Queue,
		buildDir:     cfg.BuildDir,
		pollInterval: pollInterval,
		staleAfter:   staleAfter,
		cloner:       cloner,
		exporter:     cfg.Exporter,
	}, nil
}

// Run polls until the context is cancelled. Maintenance (stale job requeue,
// scratch dir pruning) runs on a cron schedule alongside the poll loop.
func (w *Worker) Run(ctx context.Context) error {
	w.cron = cron.New()
	if _, err := w.cron.AddFunc("@every 5m", func() { w.maintain(ctx) }); err != nil {
		return fmt.Errorf("schedule maintenance: %w", err)
	}
	w.cron.Start()
	defer w.cron.Stop()

	log.Info().
		Str("jobs_dir", w.queue.Dir()).
		Str("build_dir", w.buildDir).
		Dur("poll_interval", w.pollInterval).
		Msg("worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.Sweep(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep processes every currently queued job once.
func (w *Worker) Sweep(ctx context.Context) {
	pending, err := w.queue.Pending(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list pending jobs")
		return
	}

	for _, job := range pending {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job game.BuildJob) {
	claimed, err := w.queue.Claim(ctx, job.JobID)
	if err != nil {
		// Lost the race or the file changed under us; not an error.
		log.Debug().Str("job_id", job.JobID).Err(err).Msg("job not claimable")
		return
	}

	w.setInFlight(claimed.JobID)
	defer w.setInFlight("")

	log.Info().Str("job_id", claimed.JobID).Str("repo", claimed.RepoURL).Msg("building job")

	outputURL, err := w.build(ctx, claimed)
	if err != nil {
		log.Error().Str("job_id", claimed.JobID).Err(err).Msg("job failed")
		if ferr := w.queue.Fail(ctx, claimed.JobID, err); ferr != nil {
			log.Error().Str("job_id", claimed.JobID).Err(ferr).Msg("record job failure")
		}
		return
	}

	if err := w.queue.Complete(ctx, claimed.JobID, outputURL); err != nil {
		log.Error().Str("job_id", claimed.JobID).Err(err).Msg("record job completion")
		return
	}
	log.Info().Str("job_id", claimed.JobID).Str("output_url", outputURL).Msg("job done")
}

// build clones the repo, exports the web build into a scratch dir, then
// publishes it under the job's final output directory.
func (w *Worker) build(ctx context.Context, job game.BuildJob) (string, error) {
	if job.RepoURL == "" {
		return "", fmt.Errorf("job has no repo_url")
	}

	workdir := filepath.Join(w.buildDir, "work_"+job.JobID)
	exportDir := filepath.Join(workdir, "web")
	finalDir := filepath.Join(w.buildDir, job.JobID)

	// Leftovers from a previous crashed attempt.
	os.RemoveAll(workdir)
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return "", fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workdir)

	repoDir := filepath.Join(workdir, "repo")
	if err := w.cloner.Clone(ctx, job.RepoURL, repoDir); err != nil {
		return "", err
	}

	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	if err := w.exporter.Export(ctx, repoDir, exportDir); err != nil {
		return "", err
	}

	os.RemoveAll(finalDir)
	if err := copyTree(exportDir, finalDir); err != nil {
		return "", fmt.Errorf("publish artifacts: %w", err)
	}

	return "/static/" + job.JobID + "/index.html", nil
}

// maintain requeues stale jobs and prunes leftover scratch directories. The
// job currently being built is exempt from both, however long it runs.
func (w *Worker) maintain(ctx context.Context) {
	active := w.currentJob()

	requeued, err := w.queue.RequeueStale(ctx, w.staleAfter, active)
	if err != nil {
		log.Error().Err(err).Msg("requeue stale jobs")
	} else if len(requeued) > 0 {
		log.Warn().Strs("job_ids", requeued).Msg("requeued stale jobs")
	}

	entries, err := os.ReadDir(w.buildDir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-w.staleAfter)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "work_") {
			continue
		}
		if active != "" && e.Name() == "work_"+active {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(w.buildDir, e.Name())
		if err := os.RemoveAll(path); err == nil {
			log.Info().Str("dir", path).Msg("pruned stale scratch dir")
		}
	}
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}
