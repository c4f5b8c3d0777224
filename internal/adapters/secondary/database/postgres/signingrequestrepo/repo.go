// Package signingrequestrepo implements port.SigningRequestRepository, the
// storage behind the signing-request state machine.
package signingrequestrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/crypto"
)

// New creates a signing request repository.
func New(pool *pgxpool.Pool) port.SigningRequestRepository {
	return &Repository{pool: pool}
}

// Repository implements port.SigningRequestRepository using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func scanRequest(row pgx.Row) (*entity.SigningRequest, error) {
	var r entity.SigningRequest
	err := row.Scan(&r.ID, &r.AgentID, &r.Message, &r.Nonce, &r.Status, &r.Signature,
		&r.Valid, &r.WorkflowID, &r.CreatedAt, &r.ExpiresAt, &r.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrSigningRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning signing request: %w", err)
	}
	return &r, nil
}

func (r *Repository) Create(ctx context.Context, p port.CreateSigningRequestParams) (*entity.SigningRequest, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(entity.DefaultSigningRequestTTL)
	if p.ExpiresAt != nil {
		expiresAt = *p.ExpiresAt
	}

	nonce, err := crypto.RandomHex(16)
	if err != nil {
		return nil, fmt.Errorf("generating signing request nonce: %w", err)
	}

	row := r.pool.QueryRow(ctx, queryCreate, uuid.NewString(), p.AgentID, p.Message, nonce, now, expiresAt)
	return scanRequest(row)
}

func (r *Repository) FindByID(ctx context.Context, id string) (*entity.SigningRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx, queryFindByID, id))
}

func (r *Repository) FindBySignature(ctx context.Context, signature string) (*entity.SigningRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx, queryFindBySignature, signature))
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, p port.UpdateSigningRequestStatusParams) (*entity.SigningRequest, error) {
	row := r.pool.QueryRow(ctx, queryUpdateStatus, id, p.Status, p.Signature, p.Valid, p.CompletedAt, p.WorkflowID)
	return scanRequest(row)
}

func (r *Repository) CountByAgent(ctx context.Context, agentID string, status entity.SigningRequestStatus) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, queryCountByAgent, agentID, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting signing requests: %w", err)
	}
	return count, nil
}

func (r *Repository) List(ctx context.Context, p port.ListSigningRequestsParams) ([]*entity.SigningRequest, error) {
	sql := `SELECT ` + selectColumns + ` FROM signing_requests WHERE agent_id = $1`
	args := []any{p.AgentID}
	if p.Status != nil {
		args = append(args, *p.Status)
		sql += fmt.Sprintf(" AND status = $%d", len(args))
	}
	sql += " ORDER BY created_at DESC"

	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	sql += fmt.Sprintf(" LIMIT $%d", len(args))
	if p.Offset > 0 {
		args = append(args, p.Offset)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing signing requests: %w", err)
	}
	defer rows.Close()

	var out []*entity.SigningRequest
	for rows.Next() {
		sr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

func (r *Repository) ExpirePastDue(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, queryExpirePastDue, now)
	if err != nil {
		return 0, fmt.Errorf("expiring signing requests: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

var _ port.SigningRequestRepository = (*Repository)(nil)
