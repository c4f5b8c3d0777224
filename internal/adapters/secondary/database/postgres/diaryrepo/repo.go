// Package diaryrepo implements port.DiaryRepository against PostgreSQL.
package diaryrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moltnet/moltnet/internal/adapters/secondary/database/postgres"
	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
)

// New creates a diary repository.
func New(pool *pgxpool.Pool) port.DiaryRepository {
	return &Repository{pool: pool}
}

// Repository implements port.DiaryRepository using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func scanDiary(row pgx.Row) (*entity.Diary, error) {
	var d entity.Diary
	err := row.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Visibility, &d.Signed, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrDiaryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning diary: %w", err)
	}
	return &d, nil
}

func (r *Repository) Create(ctx context.Context, tx port.Tx, d *entity.Diary) (*entity.Diary, error) {
	row := postgres.Conn(r.pool, tx).QueryRow(ctx, queryCreate,
		d.ID, d.OwnerID, d.Name, d.Visibility, d.Signed, d.CreatedAt, d.UpdatedAt)
	return scanDiary(row)
}

func (r *Repository) FindByID(ctx context.Context, id string) (*entity.Diary, error) {
	return scanDiary(r.pool.QueryRow(ctx, queryFindByID, id))
}

func (r *Repository) Update(ctx context.Context, d *entity.Diary) (*entity.Diary, error) {
	row := r.pool.QueryRow(ctx, queryUpdate, d.ID, d.Name, d.Visibility, d.Signed, d.UpdatedAt)
	return scanDiary(row)
}

func (r *Repository) Delete(ctx context.Context, tx port.Tx, id string) error {
	_, err := postgres.Conn(r.pool, tx).Exec(ctx, queryDelete, id)
	if err != nil {
		return fmt.Errorf("deleting diary: %w", err)
	}
	return nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Diary, error) {
	rows, err := r.pool.Query(ctx, queryListByOwner, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing diaries: %w", err)
	}
	defer rows.Close()

	var diaries []*entity.Diary
	for rows.Next() {
		d, err := scanDiary(rows)
		if err != nil {
			return nil, err
		}
		diaries = append(diaries, d)
	}
	return diaries, rows.Err()
}

var _ port.DiaryRepository = (*Repository)(nil)
