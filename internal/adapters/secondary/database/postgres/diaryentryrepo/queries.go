package diaryentryrepo

const selectColumns = `
	id, diary_id, title, content, embedding::text, tags, injection_risk,
	importance, access_count, last_accessed_at, entry_type, superseded_by,
	created_at, updated_at`

const (
	queryInsert = `
		INSERT INTO diary_entries (
			id, diary_id, title, content, embedding, tags, injection_risk,
			importance, access_count, last_accessed_at, entry_type,
			superseded_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5::vector, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + selectColumns

	queryFindByID = `SELECT ` + selectColumns + ` FROM diary_entries WHERE id = $1`

	queryFindPublicByID = `
		SELECT ` + selectColumns + `
		FROM diary_entries
		WHERE id = $1 AND visibility = 'public'`

	queryUpdate = `
		UPDATE diary_entries
		SET title = $2, content = $3, embedding = $4::vector, tags = $5,
		    injection_risk = $6, importance = $7, entry_type = $8, updated_at = $9
		WHERE id = $1
		RETURNING ` + selectColumns

	queryDelete = `DELETE FROM diary_entries WHERE id = $1`

	queryTouchAccess = `
		UPDATE diary_entries
		SET access_count = access_count + 1, last_accessed_at = now()
		WHERE id = $1`
)

// hybridRankExpr computes the composite relevance/recency/importance rank:
//
//	relevance = avg(embedding similarity, text rank) when both given, else
//	            whichever is given, else 0
//	recency   = exp(-age_days / 30)
//	importance = importance / 10
//	rank = wRelevance*relevance + wRecency*recency + wImportance*importance
//
// The caller formats in the three weights as float literals (arguments 1-3)
// and the relevance SQL expression, with its own numbered placeholders, as
// argument 4.
const hybridRankExpr = `(
	%[1]f * %[4]s +
	%[2]f * exp(-extract(epoch from (now() - created_at)) / 86400.0 / 30.0) +
	%[3]f * (importance::float8 / 10.0)
) AS rank`
