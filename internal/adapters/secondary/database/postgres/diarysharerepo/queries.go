package diarysharerepo

const selectColumns = `id, diary_id, shared_with, role, status, invited_at, responded_at`

const (
	queryInsert = `
		INSERT INTO diary_shares (id, diary_id, shared_with, role, status, invited_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + selectColumns

	queryFindByID = `SELECT ` + selectColumns + ` FROM diary_shares WHERE id = $1`

	queryFindByDiaryAndAgent = `
		SELECT ` + selectColumns + `
		FROM diary_shares
		WHERE diary_id = $1 AND shared_with = $2`

	queryUpdateStatus = `
		UPDATE diary_shares
		SET status = $2, responded_at = $3
		WHERE id = $1
		RETURNING ` + selectColumns

	queryReopen = `
		UPDATE diary_shares
		SET status = 'pending', role = $2, invited_at = now(), responded_at = NULL
		WHERE id = $1
		RETURNING ` + selectColumns

	queryListPendingForAgent = `
		SELECT ` + selectColumns + `
		FROM diary_shares
		WHERE shared_with = $1 AND status = 'pending'
		ORDER BY invited_at DESC`
)
