package river

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

// queueDefault is the only queue MoltNet runs; workflow volume doesn't yet
// warrant splitting registration traffic from relationship-write traffic.
const queueDefault = "default"

// NewClient builds the river.Client that backs Runtime.
func NewClient(pool *pgxpool.Pool, deps Deps) (*river.Client[pgx.Tx], error) {
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			queueDefault: {MaxWorkers: 20},
		},
		Workers: RegisterWorkers(deps),
	})
	if err != nil {
		return nil, fmt.Errorf("building river client: %w", err)
	}
	return client, nil
}
