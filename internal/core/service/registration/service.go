// Package registration provides the synchronous HTTP-facing facade over
// the registration workflow. The durable orchestration itself — voucher
// validation, identity creation, the DB transaction, relationship grant,
// OAuth client mint, and rollback on failure — lives in the river worker,
// not here: RunSync just blocks until that workflow reaches a terminal
// state.
package registration

import (
	"context"
	"fmt"
	"strings"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
)

// voucherValidationPrefix matches entity.VoucherValidationError.Error(),
// letting Register tell a terminal voucher rejection (403) apart from every
// other workflow failure cause recorded in workflow_runs.error — an
// identity-store, policy-engine, or OAuth-mint failure surfaced after the
// worker exhausted its retries (502).
const voucherValidationPrefix = "voucher validation failed: "

// registerAgentPayload mirrors the JSON shape the river adapter's
// RegisterAgentArgs expects; kept local so this package depends only on
// port.WorkflowRuntime, never on the adapter package directly.
type registerAgentPayload struct {
	PublicKey   string `json:"public_key"`
	Fingerprint string `json:"fingerprint"`
	VoucherCode string `json:"voucher_code"`
}

// Result is the decoded outcome of a successful registration.
type Result struct {
	IdentityID   string `json:"identity_id"`
	Fingerprint  string `json:"fingerprint"`
	PublicKey    string `json:"public_key"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Service drives agent registration through the durable workflow runtime.
type Service struct {
	workflow port.WorkflowRuntime
}

// NewService creates a registration Service.
func NewService(workflow port.WorkflowRuntime) *Service {
	return &Service{workflow: workflow}
}

// Register validates and derives nothing itself; it enqueues the workflow
// and blocks for its terminal state. A VoucherValidationError surfaces as
// the workflow's recorded error string, not a Go error type, since the
// worker may have crashed and resumed on a different process.
func (s *Service) Register(ctx context.Context, publicKey, fingerprint, voucherCode string) (*Result, error) {
	var result Result

	run, err := s.workflow.RunSync(ctx, port.WorkflowRegisterAgent, registerAgentPayload{
		PublicKey:   publicKey,
		Fingerprint: fingerprint,
		VoucherCode: voucherCode,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("running registration workflow: %w", err)
	}

	if run.Status == port.WorkflowStatusFailed {
		if strings.HasPrefix(run.Error, voucherValidationPrefix) {
			return nil, fmt.Errorf("%w: %s", entity.ErrVoucherValidation, run.Error)
		}
		// Every other terminal cause — identity-store, policy-engine, or
		// OAuth-mint failure surfaced after the worker's retries ran out —
		// is an upstream dependency failure, not a rejection of the
		// request itself.
		return nil, fmt.Errorf("%w: %s", entity.ErrUpstream, run.Error)
	}
	return &result, nil
}
