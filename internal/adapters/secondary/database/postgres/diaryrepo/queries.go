package diaryrepo

const (
	queryCreate = `
		INSERT INTO diaries (id, owner_id, name, visibility, signed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, owner_id, name, visibility, signed, created_at, updated_at`

	queryFindByID = `
		SELECT id, owner_id, name, visibility, signed, created_at, updated_at
		FROM diaries
		WHERE id = $1`

	queryUpdate = `
		UPDATE diaries
		SET name = $2, visibility = $3, signed = $4, updated_at = $5
		WHERE id = $1
		RETURNING id, owner_id, name, visibility, signed, created_at, updated_at`

	queryDelete = `DELETE FROM diaries WHERE id = $1`

	queryListByOwner = `
		SELECT id, owner_id, name, visibility, signed, created_at, updated_at
		FROM diaries
		WHERE owner_id = $1
		ORDER BY created_at DESC`
)
