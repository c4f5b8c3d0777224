package river

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
)

// Deps are the narrow collaborators every worker needs. Workers hold their
// own copy of orchestration logic rather than calling back into a core
// service, because River replays job args after a crash — the step logic
// has to be reachable from args alone, not from a request-scoped closure.
type Deps struct {
	Pool          *pgxpool.Pool
	Agents        port.AgentRepository
	Vouchers      port.VoucherRepository
	SigningReqs   port.SigningRequestRepository
	Tx            port.TransactionRunner
	Relationships port.RelationshipEngine
	Identity      port.IdentityAdmin
	OAuthClients  port.OAuthClientAdmin
}

// RegisterAgentResult is RunSync's decoded payload for a successful
// registration.
type RegisterAgentResult struct {
	IdentityID   string `json:"identity_id"`
	Fingerprint  string `json:"fingerprint"`
	PublicKey    string `json:"public_key"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// RegisterAgentWorker runs the five-step registration orchestrator,
// compensating identity creation if anything after it fails.
//
// A retried attempt resumes rather than replaying from scratch: the voucher
// redeem + agent upsert step isn't repeatable (the voucher is burned on its
// first success), so Work first checks whether this fingerprint already has
// an agent row before touching the voucher at all. That also means a
// mid-workflow failure must not be recorded as terminal in workflow_runs
// until river has actually given up — otherwise RunSync's poller hands the
// caller a permanent failure while a later retry is still in flight and may
// well succeed.
type RegisterAgentWorker struct {
	river.WorkerDefaults[RegisterAgentArgs]
	Deps Deps
}

func (w *RegisterAgentWorker) Work(ctx context.Context, job *river.Job[RegisterAgentArgs]) error {
	args := job.Args
	exhausted := attemptsExhausted(job.Attempt, job.MaxAttempts)

	// giveUp records workflow_runs as failed only once river has burned its
	// last attempt, so a transient-failure retry that eventually succeeds
	// never races a RunSync caller onto a stale terminal status.
	giveUp := func(cause error) error {
		if exhausted {
			_ = failRun(ctx, w.Deps.Pool, args.WorkflowRunID, cause)
		}
		return cause
	}

	agent, err := w.Deps.Agents.FindByFingerprint(ctx, args.Fingerprint)
	if err != nil && !errors.Is(err, entity.ErrAgentNotFound) {
		return giveUp(fmt.Errorf("checking for prior registration attempt: %w", err))
	}

	// compensate is the best-effort rollback once river has given up
	// entirely. It's only safe to delete the identity once no more attempts
	// will run: an intermediate retry must leave it in place so the resumed
	// attempt above can find the agent row and pick up where this one left
	// off.
	compensate := func(identityID string, cause error) error {
		if exhausted {
			if delErr := w.Deps.Identity.DeleteIdentity(ctx, identityID); delErr != nil {
				slog.ErrorContext(ctx, "registration compensation failed",
					slog.String("identity_id", identityID), slog.String("error", delErr.Error()))
			}
		}
		return giveUp(cause)
	}

	var identityID string
	if agent != nil {
		// A prior attempt already redeemed the voucher and created the
		// identity + agent row; resume from the relationship grant instead
		// of re-validating a voucher this job itself already burned.
		identityID = agent.IdentityID
	} else {
		voucher, err := w.Deps.Vouchers.FindByCode(ctx, args.VoucherCode)
		if err != nil || !voucher.IsActive(time.Now().UTC()) {
			reason := "not found"
			if err == nil {
				reason = "expired or already redeemed"
			}
			failErr := &entity.VoucherValidationError{Reason: reason}
			_ = failRun(ctx, w.Deps.Pool, args.WorkflowRunID, failErr)
			return river.JobCancel(failErr)
		}

		identityID, err = w.Deps.Identity.CreateIdentity(ctx, port.IdentityTraits{
			PublicKey:   args.PublicKey,
			VoucherCode: args.VoucherCode,
		})
		if err != nil {
			return giveUp(fmt.Errorf("creating identity: %w", err))
		}

		agent = &entity.Agent{
			ID:          uuid.NewString(),
			IdentityID:  identityID,
			PublicKey:   args.PublicKey,
			Fingerprint: args.Fingerprint,
			CreatedAt:   time.Now().UTC(),
			UpdatedAt:   time.Now().UTC(),
		}

		err = w.Deps.Tx.RunSerializable(ctx, func(ctx context.Context, tx port.Tx) error {
			if _, err := w.Deps.Vouchers.Redeem(ctx, tx, args.VoucherCode, identityID); err != nil {
				return fmt.Errorf("redeeming voucher: %w", err)
			}
			if _, err := w.Deps.Agents.Upsert(ctx, tx, agent); err != nil {
				return fmt.Errorf("upserting agent: %w", err)
			}
			return nil
		})
		if err != nil {
			return compensate(identityID, err)
		}
	}

	if err := w.Deps.Relationships.RegisterAgent(ctx, agent.ID); err != nil {
		return compensate(identityID, fmt.Errorf("registering self-relationship: %w", err))
	}

	clientID, clientSecret, err := w.Deps.OAuthClients.MintClientCredentialsClient(ctx, map[string]string{
		"identity_id": identityID,
		"public_key":  args.PublicKey,
		"fingerprint": args.Fingerprint,
	})
	if err != nil {
		return compensate(identityID, fmt.Errorf("minting oauth client: %w", err))
	}

	result := RegisterAgentResult{
		IdentityID:   identityID,
		Fingerprint:  args.Fingerprint,
		PublicKey:    args.PublicKey,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
	return completeRun(ctx, w.Deps.Pool, args.WorkflowRunID, result)
}

// RelationshipGrantWorker writes one tuple, relying on river's own retries
// (five attempts, river's default backoff) rather than anything in
// workflow_runs.
type RelationshipGrantWorker struct {
	river.WorkerDefaults[RelationshipGrantArgs]
	Deps Deps
}

func (w *RelationshipGrantWorker) Work(ctx context.Context, job *river.Job[RelationshipGrantArgs]) error {
	a := job.Args

	var err error
	switch a.Relation {
	case "owner":
		err = w.Deps.Relationships.GrantOwnership(ctx, a.Namespace, a.Object, a.SubjectID)
	case "viewer":
		err = w.Deps.Relationships.GrantViewer(ctx, a.Namespace, a.Object, a.SubjectID)
	default:
		err = fmt.Errorf("unsupported grant relation %q", a.Relation)
	}
	if err != nil {
		if attemptsExhausted(job.Attempt, job.MaxAttempts) {
			_ = failRun(ctx, w.Deps.Pool, a.WorkflowRunID, err)
		}
		return err
	}
	return completeRun(ctx, w.Deps.Pool, a.WorkflowRunID, map[string]string{"status": "granted"})
}

// RelationshipRevokeWorker removes one tuple.
type RelationshipRevokeWorker struct {
	river.WorkerDefaults[RelationshipRevokeArgs]
	Deps Deps
}

func (w *RelationshipRevokeWorker) Work(ctx context.Context, job *river.Job[RelationshipRevokeArgs]) error {
	a := job.Args
	if err := w.Deps.Relationships.RevokeViewer(ctx, a.Namespace, a.Object, a.SubjectID); err != nil {
		if attemptsExhausted(job.Attempt, job.MaxAttempts) {
			_ = failRun(ctx, w.Deps.Pool, a.WorkflowRunID, err)
		}
		return err
	}
	return completeRun(ctx, w.Deps.Pool, a.WorkflowRunID, map[string]string{"status": "revoked"})
}

// DiaryOwnerGrantWorker grants the creator owner on a freshly created diary.
type DiaryOwnerGrantWorker struct {
	river.WorkerDefaults[DiaryOwnerGrantArgs]
	Deps Deps
}

func (w *DiaryOwnerGrantWorker) Work(ctx context.Context, job *river.Job[DiaryOwnerGrantArgs]) error {
	a := job.Args
	if err := w.Deps.Relationships.GrantDiaryOwner(ctx, a.DiaryID, a.AgentID); err != nil {
		if attemptsExhausted(job.Attempt, job.MaxAttempts) {
			_ = failRun(ctx, w.Deps.Pool, a.WorkflowRunID, err)
		}
		return err
	}
	return completeRun(ctx, w.Deps.Pool, a.WorkflowRunID, map[string]string{"status": "granted"})
}

// DiaryEntryOwnerGrantWorker grants the creator owner on a new diary entry.
type DiaryEntryOwnerGrantWorker struct {
	river.WorkerDefaults[DiaryEntryOwnerGrantArgs]
	Deps Deps
}

func (w *DiaryEntryOwnerGrantWorker) Work(ctx context.Context, job *river.Job[DiaryEntryOwnerGrantArgs]) error {
	a := job.Args
	if err := w.Deps.Relationships.GrantOwnership(ctx, "DiaryEntry", a.EntryID, a.AgentID); err != nil {
		if attemptsExhausted(job.Attempt, job.MaxAttempts) {
			_ = failRun(ctx, w.Deps.Pool, a.WorkflowRunID, err)
		}
		return err
	}
	return completeRun(ctx, w.Deps.Pool, a.WorkflowRunID, map[string]string{"status": "granted"})
}

// DiaryEntryRemoveRelationsWorker follows a deleteEntry.
type DiaryEntryRemoveRelationsWorker struct {
	river.WorkerDefaults[DiaryEntryRemoveRelationsArgs]
	Deps Deps
}

func (w *DiaryEntryRemoveRelationsWorker) Work(ctx context.Context, job *river.Job[DiaryEntryRemoveRelationsArgs]) error {
	a := job.Args
	if err := w.Deps.Relationships.RemoveEntryRelations(ctx, a.EntryID); err != nil {
		if attemptsExhausted(job.Attempt, job.MaxAttempts) {
			_ = failRun(ctx, w.Deps.Pool, a.WorkflowRunID, err)
		}
		return err
	}
	return completeRun(ctx, w.Deps.Pool, a.WorkflowRunID, map[string]string{"status": "removed"})
}

// DiaryShareGrantWorker grants reader/writer after an invitation is accepted.
type DiaryShareGrantWorker struct {
	river.WorkerDefaults[DiaryShareGrantArgs]
	Deps Deps
}

func (w *DiaryShareGrantWorker) Work(ctx context.Context, job *river.Job[DiaryShareGrantArgs]) error {
	a := job.Args
	var err error
	if entity.ShareRole(a.Role) == entity.ShareRoleWriter {
		err = w.Deps.Relationships.GrantDiaryWriter(ctx, a.DiaryID, a.AgentID)
	} else {
		err = w.Deps.Relationships.GrantDiaryReader(ctx, a.DiaryID, a.AgentID)
	}
	if err != nil {
		if attemptsExhausted(job.Attempt, job.MaxAttempts) {
			_ = failRun(ctx, w.Deps.Pool, a.WorkflowRunID, err)
		}
		return err
	}
	return completeRun(ctx, w.Deps.Pool, a.WorkflowRunID, map[string]string{"status": "granted"})
}

// DiaryShareRemoveForAgentWorker follows a share revoke.
type DiaryShareRemoveForAgentWorker struct {
	river.WorkerDefaults[DiaryShareRemoveForAgentArgs]
	Deps Deps
}

func (w *DiaryShareRemoveForAgentWorker) Work(ctx context.Context, job *river.Job[DiaryShareRemoveForAgentArgs]) error {
	a := job.Args
	if err := w.Deps.Relationships.RemoveDiaryRelationForAgent(ctx, a.DiaryID, a.AgentID); err != nil {
		if attemptsExhausted(job.Attempt, job.MaxAttempts) {
			_ = failRun(ctx, w.Deps.Pool, a.WorkflowRunID, err)
		}
		return err
	}
	return completeRun(ctx, w.Deps.Pool, a.WorkflowRunID, map[string]string{"status": "removed"})
}

// SigningWaitWorker confirms a just-created signing request persisted, so
// its creation is itself a crash-durable transition; the pending->completed
// edge happens synchronously in Submit, not here.
type SigningWaitWorker struct {
	river.WorkerDefaults[SigningWaitArgs]
	Deps Deps
}

func (w *SigningWaitWorker) Work(ctx context.Context, job *river.Job[SigningWaitArgs]) error {
	a := job.Args
	if _, err := w.Deps.SigningReqs.FindByID(ctx, a.SigningRequestID); err != nil {
		if attemptsExhausted(job.Attempt, job.MaxAttempts) {
			_ = failRun(ctx, w.Deps.Pool, a.WorkflowRunID, err)
		}
		return err
	}
	return completeRun(ctx, w.Deps.Pool, a.WorkflowRunID, map[string]string{"status": "created"})
}

// RegisterWorkers builds the river.Workers bundle for client construction.
func RegisterWorkers(deps Deps) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker(workers, &RegisterAgentWorker{Deps: deps})
	river.AddWorker(workers, &RelationshipGrantWorker{Deps: deps})
	river.AddWorker(workers, &RelationshipRevokeWorker{Deps: deps})
	river.AddWorker(workers, &DiaryOwnerGrantWorker{Deps: deps})
	river.AddWorker(workers, &DiaryEntryOwnerGrantWorker{Deps: deps})
	river.AddWorker(workers, &DiaryEntryRemoveRelationsWorker{Deps: deps})
	river.AddWorker(workers, &DiaryShareGrantWorker{Deps: deps})
	river.AddWorker(workers, &DiaryShareRemoveForAgentWorker{Deps: deps})
	river.AddWorker(workers, &SigningWaitWorker{Deps: deps})
	return workers
}
