package voucher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
)

// fakeTx runs fn directly against the fake repository's own lock, close
// enough to the real RunSerializable/RunReadCommitted contract (commit on
// nil error, no real rollback since the fake repo never partially mutates).
type fakeTx struct{}

func (fakeTx) Unwrap() any { return nil }

type fakeTxRunner struct{}

func (fakeTxRunner) RunSerializable(ctx context.Context, fn func(context.Context, port.Tx) error) error {
	return fn(ctx, fakeTx{})
}

func (fakeTxRunner) RunReadCommitted(ctx context.Context, fn func(context.Context, port.Tx) error) error {
	return fn(ctx, fakeTx{})
}

type fakeVoucherRepo struct {
	mu       sync.Mutex
	vouchers map[string]*entity.Voucher
}

func newFakeVoucherRepo() *fakeVoucherRepo {
	return &fakeVoucherRepo{vouchers: make(map[string]*entity.Voucher)}
}

func (r *fakeVoucherRepo) CountActiveByIssuer(_ context.Context, _ port.Tx, issuerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	count := 0
	for _, v := range r.vouchers {
		if v.IssuerID == issuerID && v.IsActive(now) {
			count++
		}
	}
	return count, nil
}

func (r *fakeVoucherRepo) Insert(_ context.Context, _ port.Tx, v *entity.Voucher) (*entity.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vouchers[v.Code] = v
	return v, nil
}

func (r *fakeVoucherRepo) Redeem(_ context.Context, _ port.Tx, code, redeemerID string) (*entity.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vouchers[code]
	if !ok || !v.IsActive(time.Now().UTC()) {
		return nil, nil
	}
	now := time.Now().UTC()
	v.RedeemedAt = &now
	v.RedeemedBy = &redeemerID
	return v, nil
}

func (r *fakeVoucherRepo) FindByCode(_ context.Context, code string) (*entity.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vouchers[code], nil
}

func TestService_Issue_SucceedsUnderCap(t *testing.T) {
	repo := newFakeVoucherRepo()
	svc := NewService(repo, fakeTxRunner{})

	v, err := svc.Issue(context.Background(), "issuer-1")

	require.NoError(t, err)
	assert.Equal(t, "issuer-1", v.IssuerID)
	assert.NotEmpty(t, v.Code)
	assert.Nil(t, v.RedeemedAt)
	assert.WithinDuration(t, time.Now().UTC().Add(entity.DefaultVoucherTTL), v.ExpiresAt, 5*time.Second)
}

func TestService_Issue_RejectsAtCap(t *testing.T) {
	repo := newFakeVoucherRepo()
	svc := NewService(repo, fakeTxRunner{})

	for i := 0; i < entity.MaxActiveVouchersPerIssuer; i++ {
		_, err := svc.Issue(context.Background(), "issuer-1")
		require.NoError(t, err)
	}

	_, err := svc.Issue(context.Background(), "issuer-1")
	assert.ErrorIs(t, err, entity.ErrVoucherCapReached)
}

func TestService_Issue_SeparateIssuersHaveSeparateCaps(t *testing.T) {
	repo := newFakeVoucherRepo()
	svc := NewService(repo, fakeTxRunner{})

	for i := 0; i < entity.MaxActiveVouchersPerIssuer; i++ {
		_, err := svc.Issue(context.Background(), "issuer-1")
		require.NoError(t, err)
	}

	_, err := svc.Issue(context.Background(), "issuer-2")
	assert.NoError(t, err)
}

func TestService_Redeem_FlipsActiveVoucher(t *testing.T) {
	repo := newFakeVoucherRepo()
	svc := NewService(repo, fakeTxRunner{})

	issued, err := svc.Issue(context.Background(), "issuer-1")
	require.NoError(t, err)

	redeemed, err := svc.Redeem(context.Background(), issued.Code, "redeemer-1")
	require.NoError(t, err)
	assert.NotNil(t, redeemed.RedeemedAt)
	require.NotNil(t, redeemed.RedeemedBy)
	assert.Equal(t, "redeemer-1", *redeemed.RedeemedBy)
}

func TestService_Redeem_UnknownCodeIsNotFound(t *testing.T) {
	repo := newFakeVoucherRepo()
	svc := NewService(repo, fakeTxRunner{})

	_, err := svc.Redeem(context.Background(), "does-not-exist", "redeemer-1")
	assert.ErrorIs(t, err, entity.ErrVoucherNotFound)
}

func TestService_Redeem_AlreadyRedeemedIsNotFound(t *testing.T) {
	repo := newFakeVoucherRepo()
	svc := NewService(repo, fakeTxRunner{})

	issued, err := svc.Issue(context.Background(), "issuer-1")
	require.NoError(t, err)

	_, err = svc.Redeem(context.Background(), issued.Code, "redeemer-1")
	require.NoError(t, err)

	_, err = svc.Redeem(context.Background(), issued.Code, "redeemer-2")
	assert.ErrorIs(t, err, entity.ErrVoucherNotFound)
}
