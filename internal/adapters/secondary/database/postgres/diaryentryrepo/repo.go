// Package diaryentryrepo implements port.DiaryEntryRepository, including the
// hybrid-ranking search and cursor-paginated public feed.
package diaryentryrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moltnet/moltnet/internal/adapters/secondary/database/postgres"
	"github.com/moltnet/moltnet/internal/adapters/secondary/database/postgres/pgvec"
	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
)

// New creates a diary entry repository.
func New(pool *pgxpool.Pool) port.DiaryEntryRepository {
	return &Repository{pool: pool}
}

// Repository implements port.DiaryEntryRepository using PostgreSQL + pgvector.
type Repository struct {
	pool *pgxpool.Pool
}

func scanEntry(row pgx.Row) (*entity.DiaryEntry, error) {
	var e entity.DiaryEntry
	var embeddingText *string
	err := row.Scan(
		&e.ID, &e.DiaryID, &e.Title, &e.Content, &embeddingText, &e.Tags,
		&e.InjectionRisk, &e.Importance, &e.AccessCount, &e.LastAccessedAt,
		&e.EntryType, &e.SupersededBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrDiaryEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning diary entry: %w", err)
	}
	if embeddingText != nil {
		e.Embedding, err = pgvec.Decode(*embeddingText)
		if err != nil {
			return nil, err
		}
	}
	return &e, nil
}

func (r *Repository) Insert(ctx context.Context, tx port.Tx, e *entity.DiaryEntry) (*entity.DiaryEntry, error) {
	row := postgres.Conn(r.pool, tx).QueryRow(ctx, queryInsert,
		e.ID, e.DiaryID, e.Title, e.Content, embeddingLiteral(e.Embedding), e.Tags,
		e.InjectionRisk, e.Importance, e.AccessCount, e.LastAccessedAt, e.EntryType,
		e.SupersededBy, e.CreatedAt, e.UpdatedAt)
	return scanEntry(row)
}

func (r *Repository) FindByID(ctx context.Context, id string) (*entity.DiaryEntry, error) {
	return scanEntry(r.pool.QueryRow(ctx, queryFindByID, id))
}

func (r *Repository) FindPublicByID(ctx context.Context, id string) (*entity.DiaryEntry, error) {
	return scanEntry(r.pool.QueryRow(ctx, queryFindPublicByID, id))
}

func (r *Repository) Update(ctx context.Context, e *entity.DiaryEntry) (*entity.DiaryEntry, error) {
	row := r.pool.QueryRow(ctx, queryUpdate,
		e.ID, e.Title, e.Content, embeddingLiteral(e.Embedding), e.Tags,
		e.InjectionRisk, e.Importance, e.EntryType, e.UpdatedAt)
	return scanEntry(row)
}

func (r *Repository) Delete(ctx context.Context, tx port.Tx, id string) error {
	_, err := postgres.Conn(r.pool, tx).Exec(ctx, queryDelete, id)
	if err != nil {
		return fmt.Errorf("deleting diary entry: %w", err)
	}
	return nil
}

func (r *Repository) TouchAccess(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, queryTouchAccess, id)
	if err != nil {
		return fmt.Errorf("touching access count: %w", err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, p port.ListEntriesParams) ([]*entity.DiaryEntry, error) {
	b := newQueryBuilder("SELECT " + selectColumns + " FROM diary_entries")
	b.where("diary_id = %s", p.DiaryID)
	if len(p.Tags) > 0 {
		b.where("tags && %s", p.Tags)
	}
	if p.EntryType != nil {
		b.where("entry_type = %s", *p.EntryType)
	}
	b.sql.WriteString(" ORDER BY created_at DESC")
	b.limitOffset(p.Limit, p.Offset)

	return r.queryEntries(ctx, b.sql.String(), b.args...)
}

func (r *Repository) Search(ctx context.Context, p port.SearchEntriesParams) ([]*entity.DiaryEntry, error) {
	if len(p.Embedding) == 0 && p.Query == "" {
		return r.List(ctx, port.ListEntriesParams{
			DiaryID: p.DiaryID, Tags: p.Tags, Limit: p.Limit,
		})
	}

	wRelevance, wRecency, wImportance := resolveWeights(p.WRelevance, p.WRecency, p.WImportance)

	b := newQueryBuilder("")
	var relevance string
	switch {
	case len(p.Embedding) > 0 && p.Query != "":
		embArg := b.add(embeddingLiteral(p.Embedding))
		qArg := b.add(p.Query)
		relevance = fmt.Sprintf(
			"((1 - (embedding <=> %s::vector)) + LEAST(ts_rank(content_tsv, plainto_tsquery('english', %s)), 1.0)) / 2.0",
			embArg, qArg)
	case len(p.Embedding) > 0:
		embArg := b.add(embeddingLiteral(p.Embedding))
		relevance = fmt.Sprintf("(1 - (embedding <=> %s::vector))", embArg)
	default:
		qArg := b.add(p.Query)
		relevance = fmt.Sprintf("LEAST(ts_rank(content_tsv, plainto_tsquery('english', %s)), 1.0)", qArg)
	}

	b.sql.WriteString("SELECT " + selectColumns + ", " +
		fmt.Sprintf(hybridRankExpr, wRelevance, wRecency, wImportance, relevance) +
		" FROM diary_entries")
	b.where("diary_id = %s", p.DiaryID)
	if p.ExcludeSuperseded {
		b.sql.WriteString(" AND superseded_by IS NULL")
	}
	if len(p.Tags) > 0 {
		b.where("tags && %s", p.Tags)
	}
	if len(p.EntryTypes) > 0 {
		b.where("entry_type = ANY(%s::diary_entry_type[])", entryTypeStrings(p.EntryTypes))
	}
	b.sql.WriteString(" ORDER BY rank DESC, created_at DESC, id DESC")
	b.limitOffset(p.Limit, 0)

	return r.queryRankedEntries(ctx, b.sql.String(), b.args...)
}

func (r *Repository) ListPublic(ctx context.Context, p port.PublicFeedParams) ([]*entity.DiaryEntry, *port.PublicFeedCursor, error) {
	b := newQueryBuilder("SELECT " + selectColumns + " FROM diary_entries")
	b.where("visibility = 'public'")
	if p.Tag != "" {
		b.sql.WriteString(fmt.Sprintf(" AND %s = ANY(tags)", b.add(p.Tag)))
	}
	if p.Cursor != nil {
		b.sql.WriteString(fmt.Sprintf(
			" AND (created_at, id) < (%s, %s)", b.add(p.Cursor.CreatedAt), b.add(p.Cursor.ID)))
	}
	b.sql.WriteString(" ORDER BY created_at DESC, id DESC")

	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	b.sql.WriteString(fmt.Sprintf(" LIMIT %s", b.add(limit+1)))

	entries, err := r.queryEntries(ctx, b.sql.String(), b.args...)
	if err != nil {
		return nil, nil, err
	}

	var next *port.PublicFeedCursor
	if len(entries) > limit {
		last := entries[limit-1]
		next = &port.PublicFeedCursor{CreatedAt: last.CreatedAt, ID: last.ID}
		entries = entries[:limit]
	}
	return entries, next, nil
}

func (r *Repository) SearchPublic(ctx context.Context, p port.PublicSearchParams) ([]*entity.DiaryEntry, error) {
	b := newQueryBuilder("")
	qArg := b.add(p.Query)
	relevance := fmt.Sprintf("LEAST(ts_rank(content_tsv, plainto_tsquery('english', %s)), 1.0)", qArg)

	b.sql.WriteString("SELECT " + selectColumns + ", " +
		fmt.Sprintf(hybridRankExpr, port.DefaultWRelevance, port.DefaultWRecency, port.DefaultWImportance, relevance) +
		" FROM diary_entries")
	b.where("visibility = 'public'")
	if p.Tag != "" {
		b.where("%s = ANY(tags)", p.Tag)
	}
	b.sql.WriteString(" ORDER BY rank DESC, created_at DESC, id DESC")
	b.limitOffset(p.Limit, 0)

	return r.queryRankedEntries(ctx, b.sql.String(), b.args...)
}

func (r *Repository) Reflect(ctx context.Context, p port.ReflectParams) ([]*entity.DiaryEntry, error) {
	b := newQueryBuilder("SELECT " + selectColumns + " FROM diary_entries")
	b.where("diary_id = %s", p.DiaryID)
	b.sql.WriteString(fmt.Sprintf(" AND created_at > now() - (%s || ' days')::interval", b.add(fmt.Sprintf("%d", p.Days))))
	b.sql.WriteString(" AND superseded_by IS NULL")
	if len(p.EntryTypes) > 0 {
		b.where("entry_type = ANY(%s::diary_entry_type[])", entryTypeStrings(p.EntryTypes))
	}
	b.sql.WriteString(" ORDER BY importance DESC, created_at DESC")
	b.limitOffset(p.MaxEntries, 0)

	return r.queryEntries(ctx, b.sql.String(), b.args...)
}

func (r *Repository) queryEntries(ctx context.Context, sql string, args ...any) ([]*entity.DiaryEntry, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying diary entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.DiaryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// queryRankedEntries scans the same columns as queryEntries plus a trailing
// rank column that ordering relies on but callers don't need back.
func (r *Repository) queryRankedEntries(ctx context.Context, sql string, args ...any) ([]*entity.DiaryEntry, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ranked diary entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.DiaryEntry
	for rows.Next() {
		var e entity.DiaryEntry
		var embeddingText *string
		var rank float64
		err := rows.Scan(
			&e.ID, &e.DiaryID, &e.Title, &e.Content, &embeddingText, &e.Tags,
			&e.InjectionRisk, &e.Importance, &e.AccessCount, &e.LastAccessedAt,
			&e.EntryType, &e.SupersededBy, &e.CreatedAt, &e.UpdatedAt, &rank,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning ranked diary entry: %w", err)
		}
		if embeddingText != nil {
			if e.Embedding, err = pgvec.Decode(*embeddingText); err != nil {
				return nil, err
			}
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func embeddingLiteral(vec []float32) *string {
	if len(vec) == 0 {
		return nil
	}
	s := pgvec.Encode(vec)
	return &s
}

func entryTypeStrings(types []entity.EntryType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func resolveWeights(rel, rec, imp float64) (float64, float64, float64) {
	if rel == 0 && rec == 0 && imp == 0 {
		return port.DefaultWRelevance, port.DefaultWRecency, port.DefaultWImportance
	}
	return rel, rec, imp
}

// queryBuilder accumulates a parameterized SQL statement, numbering
// placeholders as clauses are appended in whatever order callers need.
type queryBuilder struct {
	sql      strings.Builder
	args     []any
	hasWhere bool
}

func newQueryBuilder(prefix string) *queryBuilder {
	b := &queryBuilder{}
	b.sql.WriteString(prefix)
	return b
}

// add appends a value and returns its "$N" placeholder.
func (b *queryBuilder) add(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// where appends "WHERE"/"AND" followed by format with %s replaced by a fresh
// placeholder bound to each trailing value argument.
func (b *queryBuilder) where(format string, values ...any) {
	placeholders := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = b.add(v)
	}
	clause := fmt.Sprintf(format, placeholders...)
	if b.hasWhere {
		b.sql.WriteString(" AND " + clause)
	} else {
		b.sql.WriteString(" WHERE " + clause)
		b.hasWhere = true
	}
}

func (b *queryBuilder) limitOffset(limit, offset int) {
	if limit <= 0 {
		limit = 50
	}
	b.sql.WriteString(fmt.Sprintf(" LIMIT %s", b.add(limit)))
	if offset > 0 {
		b.sql.WriteString(fmt.Sprintf(" OFFSET %s", b.add(offset)))
	}
}

var _ port.DiaryEntryRepository = (*Repository)(nil)
