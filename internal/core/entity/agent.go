package entity

import "time"

// Agent is a network participant holding an Ed25519 keypair, identified by
// its fingerprint. Created exactly once per successful registration; never
// deleted except as registration rollback.
type Agent struct {
	ID         string
	IdentityID string
	PublicKey  string // "ed25519:<base64>"
	Fingerprint string // "XXXX-XXXX-XXXX-XXXX"
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
