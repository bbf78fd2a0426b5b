package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
)

type UserRepository struct {
	pool PgxPool
}

func NewUserRepository(pool PgxPool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Exists(ctx context.Context, name string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE user_name = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}

	return exists, nil
}

// Insert stores a new user. A duplicate name returns domain.ErrUserExists.
func (r *UserRepository) Insert(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, user_name, embedding, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING created_at
	`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	embedding := pgvector.NewVector(user.Embedding.Float32())

	err := r.pool.QueryRow(ctx, query, user.ID, user.Name, embedding).Scan(&user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FetchAll returns every user in enrollment order.
func (r *UserRepository) FetchAll(ctx context.Context) ([]domain.User, error) {
	query := `
		SELECT id, user_name, embedding, created_at
		FROM users
		ORDER BY created_at, user_name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var user domain.User
		var embedding *pgvector.Vector

		if err := rows.Scan(&user.ID, &user.Name, &embedding, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}

		if err := setEmbedding(&user, embedding); err != nil {
			return nil, err
		}

		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

func (r *UserRepository) ListNames(ctx context.Context) ([]string, error) {
	query := `SELECT user_name FROM users ORDER BY created_at, user_name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list user names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan user name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user names: %w", err)
	}

	return names, nil
}

// Delete removes a user. An unknown name returns domain.ErrUserNotFound.
func (r *UserRepository) Delete(ctx context.Context, name string) error {
	query := `DELETE FROM users WHERE user_name = $1`

	result, err := r.pool.Exec(ctx, query, name)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func setEmbedding(user *domain.User, embedding *pgvector.Vector) error {
	if embedding == nil {
		return fmt.Errorf("user %q: missing embedding", user.Name)
	}
	descriptor, err := domain.NewDescriptorFromFloat32(embedding.Slice())
	if err != nil {
		return fmt.Errorf("user %q: %w", user.Name, err)
	}
	user.Embedding = descriptor
	return nil
}

var _ UserStore = (*UserRepository)(nil)
