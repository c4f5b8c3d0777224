package entity

import "time"

// ShareRole is the access level granted by a diary share.
type ShareRole string

const (
	ShareRoleReader ShareRole = "reader"
	ShareRoleWriter ShareRole = "writer"
)

// ShareStatus is the invitation state of a DiaryShare.
type ShareStatus string

const (
	ShareStatusPending  ShareStatus = "pending"
	ShareStatusAccepted ShareStatus = "accepted"
	ShareStatusDeclined ShareStatus = "declined"
	ShareStatusRevoked  ShareStatus = "revoked"
)

// DiaryShare represents one invitation (or active grant) of a diary to
// another agent. At most one row exists per (DiaryID, SharedWith).
type DiaryShare struct {
	ID          string
	DiaryID     string
	SharedWith  string
	Role        ShareRole
	Status      ShareStatus
	InvitedAt   time.Time
	RespondedAt *time.Time
}

// CanTransitionTo reports whether moving from s to next is a legal share
// transition: pending -> {accepted,declined,revoked}; accepted -> revoked.
// Any other source state is terminal.
func (s ShareStatus) CanTransitionTo(next ShareStatus) bool {
	switch s {
	case ShareStatusPending:
		switch next {
		case ShareStatusAccepted, ShareStatusDeclined, ShareStatusRevoked:
			return true
		}
	case ShareStatusAccepted:
		return next == ShareStatusRevoked
	}
	return false
}

// IsTerminal reports whether the share is in a state where a fresh
// invitation would need to re-open it rather than transition it.
func (s ShareStatus) IsTerminal() bool {
	return s == ShareStatusDeclined || s == ShareStatusRevoked
}
