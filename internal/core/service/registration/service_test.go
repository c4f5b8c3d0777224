package registration

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
)

type fakeWorkflowRuntime struct {
	status       port.WorkflowStatus
	errMessage   string
	resultToSend Result
	lastPayload  any
}

func (f *fakeWorkflowRuntime) RunSync(_ context.Context, workflowType string, payload any, result any) (*port.WorkflowRun, error) {
	f.lastPayload = payload
	if f.status == port.WorkflowStatusCompleted {
		b, _ := json.Marshal(f.resultToSend)
		_ = json.Unmarshal(b, result)
	}
	return &port.WorkflowRun{ID: "run-1", Type: workflowType, Status: f.status, Error: f.errMessage}, nil
}

func (f *fakeWorkflowRuntime) EnqueueAsync(_ context.Context, workflowType string, _ any) (*port.WorkflowRun, error) {
	return &port.WorkflowRun{ID: "run-1", Type: workflowType, Status: port.WorkflowStatusRunning}, nil
}

func (f *fakeWorkflowRuntime) Get(context.Context, string) (*port.WorkflowRun, error) {
	return &port.WorkflowRun{Status: f.status}, nil
}

func TestService_Register_SucceedsAndReturnsResult(t *testing.T) {
	workflow := &fakeWorkflowRuntime{
		status: port.WorkflowStatusCompleted,
		resultToSend: Result{
			IdentityID:   "identity-1",
			Fingerprint:  "ABCD-EFGH-IJKL-MNOP",
			PublicKey:    "ed25519:abc",
			ClientID:     "client-1",
			ClientSecret: "secret-1",
		},
	}
	svc := NewService(workflow)

	result, err := svc.Register(context.Background(), "ed25519:abc", "ABCD-EFGH-IJKL-MNOP", "voucher-1")

	require.NoError(t, err)
	assert.Equal(t, "identity-1", result.IdentityID)
	assert.Equal(t, "client-1", result.ClientID)
}

func TestService_Register_FailedWorkflowSurfacesVoucherValidationError(t *testing.T) {
	workflow := &fakeWorkflowRuntime{
		status:     port.WorkflowStatusFailed,
		errMessage: (&entity.VoucherValidationError{Reason: "expired or already redeemed"}).Error(),
	}
	svc := NewService(workflow)

	_, err := svc.Register(context.Background(), "ed25519:abc", "ABCD-EFGH-IJKL-MNOP", "voucher-1")

	assert.ErrorIs(t, err, entity.ErrVoucherValidation)
}

func TestService_Register_FailedWorkflowSurfacesUpstreamErrorForNonVoucherCauses(t *testing.T) {
	workflow := &fakeWorkflowRuntime{
		status:     port.WorkflowStatusFailed,
		errMessage: "registering self-relationship: keto: connection refused",
	}
	svc := NewService(workflow)

	_, err := svc.Register(context.Background(), "ed25519:abc", "ABCD-EFGH-IJKL-MNOP", "voucher-1")

	assert.ErrorIs(t, err, entity.ErrUpstream)
	assert.NotErrorIs(t, err, entity.ErrVoucherValidation)
}
