package entity

import "time"

// UsedRecoveryNonce marks a recovery-challenge nonce as consumed. A nonce
// may be consumed at most once; rows past ExpiresAt are periodically pruned.
type UsedRecoveryNonce struct {
	Nonce     string
	ExpiresAt time.Time
}

// RecoveryChallengeTTL bounds how long a recovery challenge's embedded
// timestamp remains acceptable.
const RecoveryChallengeTTL = 5 * time.Minute
