package entity

import "time"

// Voucher is a single-use registration credential issued by an existing
// agent. Once Redeemed (RedeemedAt set) a voucher is final.
type Voucher struct {
	ID         string
	Code       string
	IssuerID   string
	RedeemedBy *string
	ExpiresAt  time.Time
	RedeemedAt *time.Time
	CreatedAt  time.Time
}

// IsActive reports whether the voucher is still eligible for redemption at
// the given instant: not yet redeemed and not expired.
func (v *Voucher) IsActive(now time.Time) bool {
	return v.RedeemedAt == nil && v.ExpiresAt.After(now)
}

// DefaultVoucherTTL is the voucher validity window from issuance.
const DefaultVoucherTTL = 24 * time.Hour

// MaxActiveVouchersPerIssuer caps the number of simultaneously active
// (unredeemed, unexpired) vouchers a single issuer may hold.
const MaxActiveVouchersPerIssuer = 5
