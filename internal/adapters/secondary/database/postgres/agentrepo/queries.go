package agentrepo

const (
	queryFindByID = `
		SELECT id, identity_id, public_key, fingerprint, created_at, updated_at
		FROM agents
		WHERE id = $1`

	queryFindByFingerprint = `
		SELECT id, identity_id, public_key, fingerprint, created_at, updated_at
		FROM agents
		WHERE fingerprint = $1`

	queryFindByIdentityID = `
		SELECT id, identity_id, public_key, fingerprint, created_at, updated_at
		FROM agents
		WHERE identity_id = $1`

	queryFindByPublicKey = `
		SELECT id, identity_id, public_key, fingerprint, created_at, updated_at
		FROM agents
		WHERE public_key = $1`

	queryUpsert = `
		INSERT INTO agents (id, identity_id, public_key, fingerprint, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			identity_id = EXCLUDED.identity_id,
			public_key  = EXCLUDED.public_key,
			fingerprint = EXCLUDED.fingerprint,
			updated_at  = EXCLUDED.updated_at
		RETURNING id, identity_id, public_key, fingerprint, created_at, updated_at`

	queryDelete = `DELETE FROM agents WHERE id = $1`
)
