// Package diarysharerepo implements port.DiaryShareRepository against
// PostgreSQL, backing the diary-sharing invitation lifecycle.
package diarysharerepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
)

// New creates a diary share repository.
func New(pool *pgxpool.Pool) port.DiaryShareRepository {
	return &Repository{pool: pool}
}

// Repository implements port.DiaryShareRepository using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func scanShare(row pgx.Row) (*entity.DiaryShare, error) {
	var s entity.DiaryShare
	err := row.Scan(&s.ID, &s.DiaryID, &s.SharedWith, &s.Role, &s.Status, &s.InvitedAt, &s.RespondedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrDiaryShareNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning diary share: %w", err)
	}
	return &s, nil
}

func (r *Repository) Insert(ctx context.Context, s *entity.DiaryShare) (*entity.DiaryShare, error) {
	row := r.pool.QueryRow(ctx, queryInsert, s.ID, s.DiaryID, s.SharedWith, s.Role, s.Status, s.InvitedAt)
	return scanShare(row)
}

func (r *Repository) FindByID(ctx context.Context, id string) (*entity.DiaryShare, error) {
	return scanShare(r.pool.QueryRow(ctx, queryFindByID, id))
}

func (r *Repository) FindByDiaryAndAgent(ctx context.Context, diaryID, agentID string) (*entity.DiaryShare, error) {
	return scanShare(r.pool.QueryRow(ctx, queryFindByDiaryAndAgent, diaryID, agentID))
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, status entity.ShareStatus, respondedAt bool) (*entity.DiaryShare, error) {
	var ts *time.Time
	if respondedAt {
		now := time.Now().UTC()
		ts = &now
	}
	return scanShare(r.pool.QueryRow(ctx, queryUpdateStatus, id, status, ts))
}

func (r *Repository) Reopen(ctx context.Context, id string, role entity.ShareRole) (*entity.DiaryShare, error) {
	return scanShare(r.pool.QueryRow(ctx, queryReopen, id, role))
}

func (r *Repository) ListPendingForAgent(ctx context.Context, agentID string) ([]*entity.DiaryShare, error) {
	rows, err := r.pool.Query(ctx, queryListPendingForAgent, agentID)
	if err != nil {
		return nil, fmt.Errorf("listing pending diary shares: %w", err)
	}
	defer rows.Close()

	var shares []*entity.DiaryShare
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

var _ port.DiaryShareRepository = (*Repository)(nil)
