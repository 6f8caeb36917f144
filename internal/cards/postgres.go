package cards

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore persists cards and transactions in PostgreSQL. Per-card
// mutations take a row lock so concurrent funding and sync calls serialize.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const cardColumns = `card_id, card_number, holder_name, expiry_date, cvv, status, balance::text, currency, tags, issued_by, issued_at, last_used`

// CreateCard inserts a card record.
func (s *PostgresStore) CreateCard(ctx context.Context, card Card) error {
	_, err := s.db.Exec(ctx, `INSERT INTO cards
        (card_id, card_number, holder_name, expiry_date, cvv, status, balance, currency, tags, issued_by, issued_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		card.CardID, card.CardNumber, card.HolderName, card.ExpiryDate, card.CVV,
		card.Status, card.Balance.String(), card.Currency, card.Tags, card.IssuedBy, card.IssuedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateCard
		}
		return err
	}
	return nil
}

// GetCard fetches a card by its platform identifier.
func (s *PostgresStore) GetCard(ctx context.Context, cardID string) (Card, error) {
	row := s.db.QueryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE card_id = $1`, cardID)
	return scanCard(row)
}

// UpdateCard applies status/tag changes and returns the updated card.
func (s *PostgresStore) UpdateCard(ctx context.Context, cardID string, update CardUpdate) (Card, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Card{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := lockCard(ctx, tx, cardID); err != nil {
		return Card{}, err
	}

	if update.Status != nil {
		if _, err := tx.Exec(ctx, `UPDATE cards SET status = $2 WHERE card_id = $1`, cardID, *update.Status); err != nil {
			return Card{}, err
		}
	}
	if update.Tags != nil {
		if _, err := tx.Exec(ctx, `UPDATE cards SET tags = $2 WHERE card_id = $1`, cardID, update.Tags); err != nil {
			return Card{}, err
		}
	}

	card, err := scanCard(tx.QueryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE card_id = $1`, cardID))
	if err != nil {
		return Card{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Card{}, err
	}
	return card, nil
}

// ApplyFunding inserts the transaction and increments the card balance inside
// a single database transaction, holding the card row lock throughout.
func (s *PostgresStore) ApplyFunding(ctx context.Context, cardID string, txn Transaction) (Card, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Card{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := lockCard(ctx, tx, cardID); err != nil {
		return Card{}, err
	}

	processedAt := txn.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}

	if _, err := tx.Exec(ctx, `INSERT INTO transactions
        (transaction_id, card_id, type, currency, description, status, base_amount, profit_margin, profit_amount, total_amount, external_transaction_id, processed_by, processed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		txn.TransactionID, cardID, txn.Type, txn.Currency, txn.Description, txn.Status,
		txn.BaseAmount.String(), txn.ProfitMargin.String(), txn.ProfitAmount.String(), txn.TotalAmount.String(),
		txn.ExternalTransactionID, txn.ProcessedBy, processedAt.UTC()); err != nil {
		return Card{}, err
	}

	if _, err := tx.Exec(ctx, `UPDATE cards SET balance = balance + $2::numeric, last_used = $3 WHERE card_id = $1`,
		cardID, txn.TotalAmount.String(), processedAt.UTC()); err != nil {
		return Card{}, err
	}

	card, err := scanCard(tx.QueryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE card_id = $1`, cardID))
	if err != nil {
		return Card{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Card{}, err
	}
	return card, nil
}

// OverwriteFromUpstream replaces cached card state with platform-reported values.
func (s *PostgresStore) OverwriteFromUpstream(ctx context.Context, cardID string, balance decimal.Decimal, status string, lastUsed *time.Time) (Card, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Card{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := lockCard(ctx, tx, cardID); err != nil {
		return Card{}, err
	}

	if _, err := tx.Exec(ctx, `UPDATE cards
        SET balance = $2::numeric,
            status = COALESCE(NULLIF($3, ''), status),
            last_used = COALESCE($4, last_used)
        WHERE card_id = $1`, cardID, balance.String(), status, lastUsed); err != nil {
		return Card{}, err
	}

	card, err := scanCard(tx.QueryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE card_id = $1`, cardID))
	if err != nil {
		return Card{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Card{}, err
	}
	return card, nil
}

// RecentTransactions lists the newest transactions recorded for a card.
func (s *PostgresStore) RecentTransactions(ctx context.Context, cardID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(ctx, `SELECT transaction_id, card_id, type, currency, description, status,
            base_amount::text, profit_margin::text, profit_amount::text, total_amount::text,
            external_transaction_id, processed_by, processed_at
        FROM transactions WHERE card_id = $1 ORDER BY processed_at DESC LIMIT $2`, cardID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		var txn Transaction
		var base, margin, profit, total string
		if err := rows.Scan(&txn.TransactionID, &txn.CardID, &txn.Type, &txn.Currency, &txn.Description, &txn.Status,
			&base, &margin, &profit, &total, &txn.ExternalTransactionID, &txn.ProcessedBy, &txn.ProcessedAt); err != nil {
			return nil, err
		}
		if txn.BaseAmount, err = decimal.NewFromString(base); err != nil {
			return nil, err
		}
		if txn.ProfitMargin, err = decimal.NewFromString(margin); err != nil {
			return nil, err
		}
		if txn.ProfitAmount, err = decimal.NewFromString(profit); err != nil {
			return nil, err
		}
		if txn.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		txn.ProcessedAt = txn.ProcessedAt.UTC()
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// ListActiveCardIDs returns the identifiers of all active cards, used by the
// reconciliation sweep.
func (s *PostgresStore) ListActiveCardIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT card_id FROM cards WHERE status = $1 ORDER BY issued_at`, StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func lockCard(ctx context.Context, tx pgx.Tx, cardID string) error {
	var id string
	if err := tx.QueryRow(ctx, `SELECT card_id FROM cards WHERE card_id = $1 FOR UPDATE`, cardID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (Card, error) {
	var card Card
	var balance string
	var issuedAt time.Time
	var lastUsed *time.Time
	if err := row.Scan(&card.CardID, &card.CardNumber, &card.HolderName, &card.ExpiryDate, &card.CVV,
		&card.Status, &balance, &card.Currency, &card.Tags, &card.IssuedBy, &issuedAt, &lastUsed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Card{}, ErrNotFound
		}
		return Card{}, err
	}
	parsed, err := decimal.NewFromString(balance)
	if err != nil {
		return Card{}, err
	}
	card.Balance = parsed
	card.IssuedAt = issuedAt.UTC()
	if lastUsed != nil {
		ts := lastUsed.UTC()
		card.LastUsed = &ts
	}
	return card, nil
}
