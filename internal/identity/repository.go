package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	Get(ctx context.Context, id string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	Update(ctx context.Context, id string, patch Patch) (User, error)
	Delete(ctx context.Context, id string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, username, password, COALESCE(phone_number, ''), COALESCE(wallet_address, ''), created_at`

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, username, password, phone_number, wallet_address, created_at)
        VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)`,
		userID, user.Username, string(user.PasswordHash), user.PhoneNumber, user.WalletAddress, user.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrUsernameTaken
	}
	return err
}

// Get fetches a user by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrUserNotFound
	}
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

// GetByUsername fetches a user by username.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// Update applies patch and returns the stored row.
func (r *PostgresRepository) Update(ctx context.Context, id string, patch Patch) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrUserNotFound
	}
	return scanUser(r.db.QueryRow(ctx, `UPDATE users SET
            phone_number = CASE WHEN $2::boolean THEN NULLIF($3, '') ELSE phone_number END,
            wallet_address = CASE WHEN $4::boolean THEN NULLIF($5, '') ELSE wallet_address END
        WHERE id = $1
        RETURNING `+userColumns,
		userID, patch.PhoneNumber != nil, deref(patch.PhoneNumber), patch.WalletAddress != nil, deref(patch.WalletAddress)))
}

// Delete removes the user; contacts and transactions go with it through ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrUserNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		password  string
		createdAt time.Time
		user      User
	)
	if err := row.Scan(&id, &user.Username, &password, &user.PhoneNumber, &user.WalletAddress, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	user.ID = id.String()
	user.PasswordHash = []byte(password)
	user.CreatedAt = createdAt.UTC()
	return user, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
