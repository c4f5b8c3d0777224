package voucherrepo

const (
	queryCountActiveByIssuer = `
		SELECT count(*) FROM vouchers
		WHERE issuer_id = $1 AND redeemed_at IS NULL AND expires_at > now()`

	queryInsert = `
		INSERT INTO vouchers (id, code, issuer_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, code, issuer_id, redeemed_by, expires_at, redeemed_at, created_at`

	queryRedeem = `
		UPDATE vouchers
		SET redeemed_by = $1, redeemed_at = now()
		WHERE code = $2 AND redeemed_at IS NULL AND expires_at > now()
		RETURNING id, code, issuer_id, redeemed_by, expires_at, redeemed_at, created_at`

	queryFindByCode = `
		SELECT id, code, issuer_id, redeemed_by, expires_at, redeemed_at, created_at
		FROM vouchers
		WHERE code = $1`
)
