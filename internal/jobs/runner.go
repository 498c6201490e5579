package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"mixdown/internal/logging"
	"mixdown/internal/services"
	"mixdown/internal/workspace"
)

// PipelineFunc is the unit of background work. It receives a JobContext for
// progress and log events and terminates with a result artifact path or an
// error. It must not panic to signal failure, but the Runner survives a
// panic anyway.
type PipelineFunc func(ctx context.Context, job *JobContext) (resultRef string, err error)

// JobContext is the pipeline's view of its job: progress, logs, and the
// workspace it may write into.
type JobContext struct {
	ID        string
	Workspace *workspace.Workspace

	runner       *Runner
	mu           sync.Mutex
	lastProgress float64
}

// Progress records pipeline progress, clamped to [0,1]. Regressing values
// are dropped so a noisy adapter never walks a job's progress backward.
func (j *JobContext) Progress(value float64) {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	j.mu.Lock()
	if value <= j.lastProgress {
		j.mu.Unlock()
		return
	}
	j.lastProgress = value
	j.mu.Unlock()
	j.runner.store.MergeUpdate(j.ID, Update{Progress: &value})
}

// Log appends one diagnostic line to the job record.
func (j *JobContext) Log(line string) {
	if line == "" {
		return
	}
	j.runner.store.MergeUpdate(j.ID, Update{AppendLogs: []string{line}})
}

// Runner executes pipelines asynchronously and owns all job state
// transitions. One goroutine runs per submitted job; there is no concurrency
// cap beyond what callers impose.
type Runner struct {
	store   *Store
	logger  *slog.Logger
	timeout time.Duration

	mu         sync.Mutex
	workspaces map[string]*workspace.Workspace
	wg         sync.WaitGroup
}

// NewRunner builds a Runner over the given store. timeout bounds each
// pipeline execution; zero or less means no bound.
func NewRunner(store *Store, logger *slog.Logger, timeout time.Duration) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		store:      store,
		logger:     logging.NewComponentLogger(logger, "runner"),
		timeout:    timeout,
		workspaces: make(map[string]*workspace.Workspace),
	}
}

// Submit registers a queued job and starts it on its own goroutine. The
// returned id is immediately pollable. The Runner takes ownership of the
// workspace: it is released when the record is gone by the time the pipeline
// finishes, or later via ReleaseWorkspace once the result has been fetched.
func (r *Runner) Submit(kind string, ws *workspace.Workspace, fn PipelineFunc) string {
	return r.SubmitTimeout(kind, ws, r.timeout, fn)
}

// SubmitTimeout is Submit with a per-job execution bound overriding the
// Runner default.
func (r *Runner) SubmitTimeout(kind string, ws *workspace.Workspace, timeout time.Duration, fn PipelineFunc) string {
	id := uuid.NewString()
	r.store.Create(Record{ID: id, Kind: kind, Status: StatusQueued})
	if ws != nil {
		r.mu.Lock()
		r.workspaces[id] = ws
		r.mu.Unlock()
	}

	r.wg.Add(1)
	go r.run(id, kind, ws, timeout, fn)
	return id
}

func (r *Runner) run(id, kind string, ws *workspace.Workspace, timeout time.Duration, fn PipelineFunc) {
	defer r.wg.Done()

	ctx := context.Background()
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	r.store.MergeUpdate(id, Update{Status: statusPtr(StatusRunning), Progress: floatPtr(0)})
	r.logger.Info("job started", logging.String(logging.FieldJobID, id), logging.String("kind", kind))

	job := &JobContext{ID: id, Workspace: ws, runner: r}
	resultRef, err := r.invoke(ctx, job, fn)

	if err == nil && ctx.Err() != nil {
		err = services.Wrap(services.ErrTimeout, "runner", kind, "pipeline timed out", ctx.Err())
	}

	if err != nil {
		message := services.DiagnosticTail(err.Error())
		r.store.MergeUpdate(id, Update{Status: statusPtr(StatusFailed), Error: &message})
		r.logger.Warn("job failed",
			logging.String(logging.FieldJobID, id),
			logging.String("kind", kind),
			logging.Error(err))
	} else {
		r.store.MergeUpdate(id, Update{
			Status:    statusPtr(StatusCompleted),
			Progress:  floatPtr(1),
			ResultRef: &resultRef,
		})
		r.logger.Info("job completed", logging.String(logging.FieldJobID, id), logging.String("kind", kind))
	}

	// The caller may have removed the record mid-flight; the merges above
	// were then no-ops and nobody will ever fetch a result, so the
	// workspace goes now.
	if _, ok := r.store.Get(id); !ok {
		r.ReleaseWorkspace(id)
	}
}

// invoke runs the pipeline with panic containment: a crash inside one job
// must never take down the Runner or other jobs.
func (r *Runner) invoke(ctx context.Context, job *JobContext, fn PipelineFunc) (resultRef string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("pipeline panicked",
				logging.String(logging.FieldJobID, job.ID),
				logging.Any("panic", recovered),
				logging.String("stack", string(debug.Stack())))
			err = fmt.Errorf("pipeline panic: %v", recovered)
		}
	}()
	return fn(ctx, job)
}

// ReleaseWorkspace tears down the workspace associated with a job id. It is
// idempotent and safe for unknown ids.
func (r *Runner) ReleaseWorkspace(id string) {
	r.mu.Lock()
	ws := r.workspaces[id]
	delete(r.workspaces, id)
	r.mu.Unlock()
	if ws == nil {
		return
	}
	if err := ws.Release(); err != nil {
		r.logger.Warn("workspace release failed",
			logging.String(logging.FieldJobID, id),
			logging.Error(err))
	}
}

// Sweep removes terminal records older than maxAge and releases their
// workspaces.
func (r *Runner) Sweep(maxAge time.Duration) int {
	removed := r.store.SweepTerminal(maxAge)
	for _, id := range removed {
		r.ReleaseWorkspace(id)
	}
	if len(removed) > 0 {
		r.logger.Info("swept stale jobs", logging.Int("count", len(removed)))
	}
	return len(removed)
}

// Wait blocks until all in-flight jobs have finished. Used on shutdown and
// in tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func statusPtr(s Status) *Status  { return &s }
func floatPtr(f float64) *float64 { return &f }
