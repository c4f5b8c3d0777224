package port

import (
	"context"

	"github.com/moltnet/moltnet/internal/core/entity"
)

// VoucherRepository provides the serializable-issuance and atomic-redemption
// primitives a single-winner voucher redemption depends on.
type VoucherRepository interface {
	// CountActiveByIssuer counts unredeemed, unexpired vouchers for issuerID.
	// Must be called inside a SERIALIZABLE transaction by the caller to get
	// the cap-enforcement guarantee.
	CountActiveByIssuer(ctx context.Context, tx Tx, issuerID string) (int, error)
	Insert(ctx context.Context, tx Tx, v *entity.Voucher) (*entity.Voucher, error)
	// Redeem atomically flips an unredeemed, unexpired voucher to redeemed
	// and returns it, or nil if no row matched.
	Redeem(ctx context.Context, tx Tx, code, redeemerID string) (*entity.Voucher, error)
	FindByCode(ctx context.Context, code string) (*entity.Voucher, error)
}
