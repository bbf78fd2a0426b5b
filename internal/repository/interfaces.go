package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
)

// PgxPool is the subset of *pgxpool.Pool the repositories use. It is
// satisfied by pgxmock.PgxPoolIface in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// UserStore persists user name to descriptor pairs. Names are stored in
// normalized form and are unique.
type UserStore interface {
	Exists(ctx context.Context, name string) (bool, error)
	Insert(ctx context.Context, user *domain.User) error
	FetchAll(ctx context.Context) ([]domain.User, error)
	ListNames(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
	Ping(ctx context.Context) error
}
