package port

import "context"

// WorkflowStatus is the externally observable state of a durable workflow
// run, tracked independently of the underlying job queue's own bookkeeping.
type WorkflowStatus string

const (
	WorkflowStatusRunning   WorkflowStatus = "running"
	WorkflowStatusCompleted WorkflowStatus = "completed"
	WorkflowStatusFailed    WorkflowStatus = "failed"
)

// WorkflowRun is the externally observable record of one durable workflow
// execution, keyed by a per-workflow id that is persisted across restarts.
type WorkflowRun struct {
	ID     string
	Type   string
	Status WorkflowStatus
	Error  string
}

// WorkflowRuntime is the durable-workflow adapter. Every durable,
// externally observable state transition (registration, signing, diary
// writes, relationship writes) is dispatched through it so it survives a
// crash and retries with the step's declared policy.
//
// RunSync enqueues a workflow and blocks (bounded by ctx) until it reaches a
// terminal state, unmarshaling its result into result. Used by orchestrators
// whose HTTP caller expects a synchronous reply (registration, the signing
// "wait for submit" step).
//
// EnqueueAsync enqueues a workflow and returns immediately once it is
// durably recorded; the caller does not wait for completion. Used for
// relationship writes, which only need at-least-once eventual delivery.
type WorkflowRuntime interface {
	RunSync(ctx context.Context, workflowType string, payload any, result any) (*WorkflowRun, error)
	EnqueueAsync(ctx context.Context, workflowType string, payload any) (*WorkflowRun, error)
	Get(ctx context.Context, workflowID string) (*WorkflowRun, error)
}

// Workflow type names, shared between the enqueueing services and the river
// worker registrations so they never drift out of sync.
const (
	WorkflowRegisterAgent            = "register_agent"
	WorkflowSigningWait              = "signing_wait"
	WorkflowRelationshipGrant        = "relationship_grant"
	WorkflowRelationshipRevoke       = "relationship_revoke"
	WorkflowDiaryOwnerGrant          = "diary_owner_grant"
	WorkflowDiaryEntryOwnerGrant     = "diary_entry_owner_grant"
	WorkflowDiaryEntryRemoveRelations = "diary_entry_remove_relations"
	WorkflowDiaryShareGrant          = "diary_share_grant"
	WorkflowDiaryShareRemoveForAgent = "diary_share_remove_for_agent"
)
