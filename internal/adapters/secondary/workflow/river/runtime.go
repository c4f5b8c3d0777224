// Package river wires riverqueue/river (declared but never used by the
// teacher) into MoltNet's durable workflow runtime. Every job is wrapped
// in a workflow_runs row so RunSync callers can block on completion without
// reaching into River's own job table, and so workflow status survives a
// process restart.
package river

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"

	"github.com/moltnet/moltnet/internal/core/port"
)

// pollInterval is how often RunSync checks workflow_runs for completion.
// River has no built-in synchronous "insert and wait"; polling the status
// journal is the simplest way to offer one without tying the caller to
// River's internal pub/sub wiring.
const pollInterval = 75 * time.Millisecond

// Runtime implements port.WorkflowRuntime on top of a river.Client.
type Runtime struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
}

// New creates a Runtime. The caller is responsible for calling client.Start
// during bootstrap so queued jobs actually run.
func New(client *river.Client[pgx.Tx], pool *pgxpool.Pool) *Runtime {
	return &Runtime{client: client, pool: pool}
}

func (r *Runtime) insertRun(ctx context.Context, workflowType string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO workflow_runs (type, status) VALUES ($1, 'running') RETURNING id`,
		workflowType,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("recording workflow run: %w", err)
	}
	return id, nil
}

func (r *Runtime) linkJob(ctx context.Context, runID string, jobID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE workflow_runs SET river_job_id = $2 WHERE id = $1`, runID, jobID)
	if err != nil {
		return fmt.Errorf("linking workflow run to job: %w", err)
	}
	return nil
}

func (r *Runtime) EnqueueAsync(ctx context.Context, workflowType string, payload any) (*port.WorkflowRun, error) {
	runID, err := r.insertRun(ctx, workflowType)
	if err != nil {
		return nil, err
	}

	args, err := buildJobArgs(workflowType, runID, payload)
	if err != nil {
		return nil, err
	}

	res, err := r.client.Insert(ctx, args, &river.InsertOpts{MaxAttempts: maxAttemptsFor(workflowType)})
	if err != nil {
		return nil, fmt.Errorf("enqueueing workflow %s: %w", workflowType, err)
	}
	if err := r.linkJob(ctx, runID, res.Job.ID); err != nil {
		return nil, err
	}

	return &port.WorkflowRun{ID: runID, Type: workflowType, Status: port.WorkflowStatusRunning}, nil
}

func (r *Runtime) RunSync(ctx context.Context, workflowType string, payload any, result any) (*port.WorkflowRun, error) {
	run, err := r.EnqueueAsync(ctx, workflowType, payload)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-ticker.C:
			updated, resultJSON, err := r.fetchRun(ctx, run.ID)
			if err != nil {
				return nil, err
			}
			if updated.Status == port.WorkflowStatusRunning {
				continue
			}
			if updated.Status == port.WorkflowStatusCompleted && result != nil && len(resultJSON) > 0 {
				if err := json.Unmarshal(resultJSON, result); err != nil {
					return updated, fmt.Errorf("decoding workflow result: %w", err)
				}
			}
			return updated, nil
		}
	}
}

func (r *Runtime) Get(ctx context.Context, workflowID string) (*port.WorkflowRun, error) {
	run, _, err := r.fetchRun(ctx, workflowID)
	return run, err
}

func (r *Runtime) fetchRun(ctx context.Context, id string) (*port.WorkflowRun, []byte, error) {
	var (
		run        port.WorkflowRun
		resultJSON []byte
		errText    *string
	)
	run.ID = id

	err := r.pool.QueryRow(ctx,
		`SELECT type, status, result, error FROM workflow_runs WHERE id = $1`, id,
	).Scan(&run.Type, &run.Status, &resultJSON, &errText)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, fmt.Errorf("workflow run %s not found", id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("fetching workflow run: %w", err)
	}
	if errText != nil {
		run.Error = *errText
	}
	return &run, resultJSON, nil
}

// completeRun is called by workers on terminal success.
func completeRun(ctx context.Context, pool *pgxpool.Pool, runID string, result any) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling workflow result: %w", err)
	}
	_, err = pool.Exec(ctx,
		`UPDATE workflow_runs SET status = 'completed', result = $2, updated_at = now() WHERE id = $1`,
		runID, resultJSON)
	return err
}

// maxAttemptsFor splits the retry budget by how user-visible a terminal
// failure is: three attempts for the registration and signing-lifecycle
// steps, whose failure is reported straight back to a blocked HTTP caller,
// five for relationship tuple writes, whose caller never waits on them. The
// delay between attempts is river's default client retry policy; no custom
// backoff schedule is configured.
func maxAttemptsFor(workflowType string) int {
	switch workflowType {
	case port.WorkflowRegisterAgent, port.WorkflowSigningWait:
		return 3
	default:
		return 5
	}
}

// attemptsExhausted reports whether a job has used its last retry — the
// point at which a worker should record workflow_runs as failed rather than
// let a RunSync caller see a terminal status while river is still silently
// retrying in the background.
func attemptsExhausted(attempt, maxAttempts int) bool {
	return attempt >= maxAttempts
}

// failRun records a step's terminal failure. Workers must only call this
// once attemptsExhausted reports true, or when the failure is cancelled
// outright via river.JobCancel — never on the first failure of a job river
// still intends to retry.
func failRun(ctx context.Context, pool *pgxpool.Pool, runID string, cause error) error {
	_, err := pool.Exec(ctx,
		`UPDATE workflow_runs SET status = 'failed', error = $2, updated_at = now() WHERE id = $1`,
		runID, cause.Error())
	return err
}

var _ port.WorkflowRuntime = (*Runtime)(nil)
