package entity

import "time"

// SigningRequestStatus is the signing-request state machine's current node.
type SigningRequestStatus string

const (
	SigningRequestPending   SigningRequestStatus = "pending"
	SigningRequestCompleted SigningRequestStatus = "completed"
	SigningRequestExpired   SigningRequestStatus = "expired"
)

// DefaultSigningRequestTTL is the validity window from creation.
const DefaultSigningRequestTTL = 5 * time.Minute

// SigningRequest is a server-persisted request for an agent to sign
// message + "." + nonce, verified against the agent's registered public key.
type SigningRequest struct {
	ID          string
	AgentID     string
	Message     string
	Nonce       string
	Status      SigningRequestStatus
	Signature   *string
	Valid       *bool
	WorkflowID  *string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	CompletedAt *time.Time
}

// IsExpiredAt reports whether the request should be treated as expired at
// instant now, independent of the persisted Status (used by the sweep job
// and by submit() to reject late submissions that haven't been swept yet).
func (r *SigningRequest) IsExpiredAt(now time.Time) bool {
	return r.Status == SigningRequestExpired || (r.Status == SigningRequestPending && !now.Before(r.ExpiresAt))
}
