package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const foreignKeyViolation = "23503"

// Repository persists transaction records.
type Repository interface {
	Create(ctx context.Context, record Record) error
	ListByUser(ctx context.Context, userID string) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Update(ctx context.Context, id string, update Update) (Record, error)
	DeleteByUser(ctx context.Context, userID string) error
}

// PostgresRepository stores records in the transactions table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordColumns = `id, user_id, sender_phone, receiver_phone, receiver_wallet, amount::text, unit, status, COALESCE(tx_hash, ''), created_at`

// Create inserts a record.
func (r *PostgresRepository) Create(ctx context.Context, record Record) error {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(record.UserID)
	if err != nil {
		return ErrUnknownUser
	}
	_, err = r.db.Exec(ctx, `INSERT INTO transactions
        (id, user_id, sender_phone, receiver_phone, receiver_wallet, amount, unit, status, tx_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, NULLIF($9, ''), $10)`,
		id, userID, record.SenderPhone, record.ReceiverPhone, record.ReceiverWallet,
		record.Amount.StringFixed(2), record.Unit, string(record.Status), record.TxHash, record.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return ErrUnknownUser
	}
	return err
}

// ListByUser returns the user's records, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	owner, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+recordColumns+` FROM transactions
        WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// Get fetches a record by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Record, error) {
	recordID, err := uuid.Parse(id)
	if err != nil {
		return Record{}, ErrRecordNotFound
	}
	return scanRecord(r.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM transactions WHERE id = $1`, recordID))
}

// Update applies a partial status/hash change.
func (r *PostgresRepository) Update(ctx context.Context, id string, update Update) (Record, error) {
	recordID, err := uuid.Parse(id)
	if err != nil {
		return Record{}, ErrRecordNotFound
	}
	var status, txHash string
	if update.Status != nil {
		status = string(*update.Status)
	}
	if update.TxHash != nil {
		txHash = *update.TxHash
	}
	return scanRecord(r.db.QueryRow(ctx, `UPDATE transactions SET
            status = CASE WHEN $2::boolean THEN $3 ELSE status END,
            tx_hash = CASE WHEN $4::boolean THEN NULLIF($5, '') ELSE tx_hash END
        WHERE id = $1
        RETURNING `+recordColumns,
		recordID, update.Status != nil, status, update.TxHash != nil, txHash))
}

// DeleteByUser removes every record of userID.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	owner, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}
	_, err = r.db.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1`, owner)
	return err
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		id, userID uuid.UUID
		amount     string
		status     string
		createdAt  time.Time
		record     Record
	)
	if err := row.Scan(&id, &userID, &record.SenderPhone, &record.ReceiverPhone, &record.ReceiverWallet,
		&amount, &record.Unit, &status, &record.TxHash, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, fmt.Errorf("scan transaction: %w", err)
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Record{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	record.ID = id.String()
	record.UserID = userID.String()
	record.Amount = parsed
	record.Status = Status(status)
	record.CreatedAt = createdAt.UTC()
	return record, nil
}
