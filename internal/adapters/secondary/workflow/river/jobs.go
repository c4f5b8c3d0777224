package river

import (
	"encoding/json"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/moltnet/moltnet/internal/core/port"
)

// Every job args type below round-trips through JSON from whatever payload
// the enqueueing service passed in, plus a WorkflowRunID the runtime stamps
// on afterwards so the worker can report back into workflow_runs.

// RegisterAgentArgs drives the registration orchestrator's durable steps.
type RegisterAgentArgs struct {
	WorkflowRunID string `json:"workflow_run_id"`
	PublicKey     string `json:"public_key"`
	Fingerprint   string `json:"fingerprint"`
	VoucherCode   string `json:"voucher_code"`
}

func (RegisterAgentArgs) Kind() string { return port.WorkflowRegisterAgent }

// RelationshipGrantArgs writes one Keto-shaped tuple; every relationship
// write goes through this durable worker rather than a direct call.
type RelationshipGrantArgs struct {
	WorkflowRunID string `json:"workflow_run_id"`
	Namespace     string `json:"namespace"`
	Object        string `json:"object"`
	Relation      string `json:"relation"`
	SubjectID     string `json:"subject_id"`
}

func (RelationshipGrantArgs) Kind() string { return port.WorkflowRelationshipGrant }

// RelationshipRevokeArgs removes one tuple.
type RelationshipRevokeArgs struct {
	WorkflowRunID string `json:"workflow_run_id"`
	Namespace     string `json:"namespace"`
	Object        string `json:"object"`
	Relation      string `json:"relation"`
	SubjectID     string `json:"subject_id"`
}

func (RelationshipRevokeArgs) Kind() string { return port.WorkflowRelationshipRevoke }

// DiaryOwnerGrantArgs grants the creator owner on a freshly created diary.
type DiaryOwnerGrantArgs struct {
	WorkflowRunID string `json:"workflow_run_id"`
	DiaryID       string `json:"diary_id"`
	AgentID       string `json:"agent_id"`
}

func (DiaryOwnerGrantArgs) Kind() string { return port.WorkflowDiaryOwnerGrant }

// DiaryEntryOwnerGrantArgs grants the requester owner on a freshly created
// entry.
type DiaryEntryOwnerGrantArgs struct {
	WorkflowRunID string `json:"workflow_run_id"`
	EntryID       string `json:"entry_id"`
	AgentID       string `json:"agent_id"`
}

func (DiaryEntryOwnerGrantArgs) Kind() string { return port.WorkflowDiaryEntryOwnerGrant }

// DiaryEntryRemoveRelationsArgs follows a deleteEntry.
type DiaryEntryRemoveRelationsArgs struct {
	WorkflowRunID string `json:"workflow_run_id"`
	EntryID       string `json:"entry_id"`
}

func (DiaryEntryRemoveRelationsArgs) Kind() string { return port.WorkflowDiaryEntryRemoveRelations }

// DiaryShareGrantArgs grants reader/writer on a diary after an invitation is
// accepted.
type DiaryShareGrantArgs struct {
	WorkflowRunID string `json:"workflow_run_id"`
	DiaryID       string `json:"diary_id"`
	AgentID       string `json:"agent_id"`
	Role          string `json:"role"`
}

func (DiaryShareGrantArgs) Kind() string { return port.WorkflowDiaryShareGrant }

// DiaryShareRemoveForAgentArgs follows a share revoke.
type DiaryShareRemoveForAgentArgs struct {
	WorkflowRunID string `json:"workflow_run_id"`
	DiaryID       string `json:"diary_id"`
	AgentID       string `json:"agent_id"`
}

func (DiaryShareRemoveForAgentArgs) Kind() string { return port.WorkflowDiaryShareRemoveForAgent }

// SigningWaitArgs records a signing request's lifecycle as a workflow run so
// its creation is crash-durable like every other river-backed transition; the
// actual pending->completed transition happens synchronously in Submit, so
// this worker's job is just to confirm the request was persisted.
type SigningWaitArgs struct {
	WorkflowRunID    string `json:"workflow_run_id"`
	SigningRequestID string `json:"signing_request_id"`
}

func (SigningWaitArgs) Kind() string { return port.WorkflowSigningWait }

// buildJobArgs decodes payload into the river.JobArgs type registered for
// workflowType and stamps the workflow run id onto it.
func buildJobArgs(workflowType, runID string, payload any) (river.JobArgs, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling workflow payload: %w", err)
	}

	switch workflowType {
	case port.WorkflowRegisterAgent:
		var a RegisterAgentArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		a.WorkflowRunID = runID
		return a, nil
	case port.WorkflowRelationshipGrant:
		var a RelationshipGrantArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		a.WorkflowRunID = runID
		return a, nil
	case port.WorkflowRelationshipRevoke:
		var a RelationshipRevokeArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		a.WorkflowRunID = runID
		return a, nil
	case port.WorkflowDiaryOwnerGrant:
		var a DiaryOwnerGrantArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		a.WorkflowRunID = runID
		return a, nil
	case port.WorkflowDiaryEntryOwnerGrant:
		var a DiaryEntryOwnerGrantArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		a.WorkflowRunID = runID
		return a, nil
	case port.WorkflowDiaryEntryRemoveRelations:
		var a DiaryEntryRemoveRelationsArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		a.WorkflowRunID = runID
		return a, nil
	case port.WorkflowDiaryShareGrant:
		var a DiaryShareGrantArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		a.WorkflowRunID = runID
		return a, nil
	case port.WorkflowDiaryShareRemoveForAgent:
		var a DiaryShareRemoveForAgentArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		a.WorkflowRunID = runID
		return a, nil
	case port.WorkflowSigningWait:
		var a SigningWaitArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		a.WorkflowRunID = runID
		return a, nil
	default:
		return nil, fmt.Errorf("unknown workflow type %q", workflowType)
	}
}
