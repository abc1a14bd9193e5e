package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Dan9191/transaction-manager/internal/apperr"
	"github.com/Dan9191/transaction-manager/internal/models"
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UpsertTransactions inserts or fully overwrites every record in one statement and one
// transaction. IDs must be unique within txs.
func (r *Repository) UpsertTransactions(ctx context.Context, txs []models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	n := len(txs)
	ids := make([]string, n)
	names := make([]string, n)
	emails := make([]string, n)
	amounts := make([]string, n)
	dates := make([]string, n)
	zones := make([]string, n)
	locations := make([]string, n)
	for i, t := range txs {
		ids[i] = t.ID
		names[i] = t.Name
		emails[i] = t.Email
		amounts[i] = t.Amount.String()
		dates[i] = t.OccurredAt.UTC().Format(time.RFC3339Nano)
		zones[i] = t.IANATimeZone
		locations[i] = t.ClientLocation.String()
	}

	query := `
		INSERT INTO transactions (id, name, email, amount, occurred_at, iana_time_zone, client_location)
		SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::numeric[], $5::timestamptz[], $6::text[], $7::text[])
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			amount = excluded.amount,
			occurred_at = excluded.occurred_at,
			iana_time_zone = excluded.iana_time_zone,
			client_location = excluded.client_location,
			updated_at = CURRENT_TIMESTAMP`

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Storage("begin upsert", err)
	}
	defer dbTx.Rollback() //nolint:errcheck

	_, err = dbTx.ExecContext(ctx, query,
		pq.Array(ids), pq.Array(names), pq.Array(emails), pq.Array(amounts),
		pq.Array(dates), pq.Array(zones), pq.Array(locations))
	if err != nil {
		return apperr.Storage("upsert transactions", fmt.Errorf("failed to upsert %d transactions: %w", n, err))
	}
	if err := dbTx.Commit(); err != nil {
		return apperr.Storage("commit upsert", err)
	}
	return nil
}

// TransactionsBetween returns records with start <= occurred_at < end, oldest first.
// OccurredAt is returned in UTC.
func (r *Repository) TransactionsBetween(ctx context.Context, start, end time.Time) ([]models.Transaction, error) {
	query := `
		SELECT id, name, email, amount, occurred_at, iana_time_zone, client_location
		FROM transactions
		WHERE occurred_at >= $1 AND occurred_at < $2
		ORDER BY occurred_at, id`
	rows, err := r.db.QueryContext(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, apperr.Storage("query transactions", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var (
			t        models.Transaction
			amount   decimal.Decimal
			location string
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &amount, &t.OccurredAt, &t.IANATimeZone, &location); err != nil {
			return nil, apperr.Storage("scan transaction", err)
		}
		loc, err := models.ParseLocation(location)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("stored location of %s: %w", t.ID, err))
		}
		t.Amount = amount
		t.ClientLocation = loc
		t.OccurredAt = t.OccurredAt.UTC()
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate transactions", err)
	}
	return txs, nil
}

// Ping checks database connectivity
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return apperr.Storage("ping", err)
	}
	return nil
}
