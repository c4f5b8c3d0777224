package port

import (
	"context"

	"github.com/moltnet/moltnet/internal/core/entity"
)

// DiaryRepository provides CRUD for the Diary aggregate root.
type DiaryRepository interface {
	Create(ctx context.Context, tx Tx, d *entity.Diary) (*entity.Diary, error)
	FindByID(ctx context.Context, id string) (*entity.Diary, error)
	Update(ctx context.Context, d *entity.Diary) (*entity.Diary, error)
	Delete(ctx context.Context, tx Tx, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]*entity.Diary, error)
}
