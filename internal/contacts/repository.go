package contacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const foreignKeyViolation = "23503"

// ErrUnknownUser is returned when the owning user does not exist.
var ErrUnknownUser = errors.New("unknown user")

// Repository persists contacts.
type Repository interface {
	Create(ctx context.Context, contact Contact) error
	ListByUser(ctx context.Context, userID string) ([]Contact, error)
	FindByPhone(ctx context.Context, userID, phoneNumber string) (Contact, error)
	Get(ctx context.Context, id string) (Contact, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) error
}

// PostgresRepository stores contacts in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const contactColumns = `id, user_id, name, phone_number, wallet_address`

// Create inserts a contact.
func (r *PostgresRepository) Create(ctx context.Context, contact Contact) error {
	id, err := uuid.Parse(contact.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(contact.UserID)
	if err != nil {
		return ErrUnknownUser
	}
	_, err = r.db.Exec(ctx, `INSERT INTO contacts (id, user_id, name, phone_number, wallet_address)
        VALUES ($1, $2, $3, $4, $5)`, id, userID, contact.Name, contact.PhoneNumber, contact.WalletAddress)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return ErrUnknownUser
	}
	return err
}

// ListByUser returns the user's contacts ordered by name.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Contact, error) {
	owner, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+contactColumns+` FROM contacts WHERE user_id = $1 ORDER BY name, id`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, contact)
	}
	return out, rows.Err()
}

// FindByPhone returns the user's contact saved under phoneNumber.
func (r *PostgresRepository) FindByPhone(ctx context.Context, userID, phoneNumber string) (Contact, error) {
	owner, err := uuid.Parse(userID)
	if err != nil {
		return Contact{}, ErrContactNotFound
	}
	return scanContact(r.db.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts
        WHERE user_id = $1 AND phone_number = $2 ORDER BY name LIMIT 1`, owner, phoneNumber))
}

// Get fetches a contact by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Contact, error) {
	contactID, err := uuid.Parse(id)
	if err != nil {
		return Contact{}, ErrContactNotFound
	}
	return scanContact(r.db.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, contactID))
}

// Delete removes a contact.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	contactID, err := uuid.Parse(id)
	if err != nil {
		return ErrContactNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, contactID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

// DeleteByUser removes every contact of userID.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	owner, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}
	_, err = r.db.Exec(ctx, `DELETE FROM contacts WHERE user_id = $1`, owner)
	return err
}

func scanContact(row pgx.Row) (Contact, error) {
	var (
		id, userID uuid.UUID
		contact    Contact
	)
	if err := row.Scan(&id, &userID, &contact.Name, &contact.PhoneNumber, &contact.WalletAddress); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, ErrContactNotFound
		}
		return Contact{}, fmt.Errorf("scan contact: %w", err)
	}
	contact.ID = id.String()
	contact.UserID = userID.String()
	return contact, nil
}
