package signingrequestrepo

const selectColumns = `
	id, agent_id, message, nonce, status, signature, valid, workflow_id,
	created_at, expires_at, completed_at`

const (
	queryCreate = `
		INSERT INTO signing_requests (id, agent_id, message, nonce, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6)
		RETURNING ` + selectColumns

	queryFindByID = `SELECT ` + selectColumns + ` FROM signing_requests WHERE id = $1`

	queryFindBySignature = `SELECT ` + selectColumns + ` FROM signing_requests WHERE signature = $1`

	queryUpdateStatus = `
		UPDATE signing_requests
		SET status = $2, signature = $3, valid = $4, completed_at = $5, workflow_id = $6
		WHERE id = $1
		RETURNING ` + selectColumns

	queryCountByAgent = `
		SELECT count(*) FROM signing_requests WHERE agent_id = $1 AND status = $2`

	queryExpirePastDue = `
		UPDATE signing_requests
		SET status = 'expired'
		WHERE status = 'pending' AND expires_at <= $1`
)
