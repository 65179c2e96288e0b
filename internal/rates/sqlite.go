package rates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS exchange_rates (
	symbol       TEXT    PRIMARY KEY,
	price_in_usd TEXT    NOT NULL,
	updated_at   INTEGER NOT NULL
)`

// SQLiteQuoteRepository implements QuoteRepository with SQLite, for local use
// where no PostgreSQL instance is available.
type SQLiteQuoteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteQuoteRepository creates the quote table if needed and returns a repository over db.
func NewSQLiteQuoteRepository(ctx context.Context, db *sql.DB) (*SQLiteQuoteRepository, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("creating exchange_rates table: %w", err)
	}
	return &SQLiteQuoteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteQuoteRepository) SaveQuote(ctx context.Context, symbol string, priceInUSD decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO exchange_rates (symbol, price_in_usd, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (symbol) DO UPDATE SET price_in_usd = excluded.price_in_usd, updated_at = excluded.updated_at`,
		symbol, priceInUSD.String(), r.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("saving quote for %s: %w", symbol, err)
	}
	return nil
}

func (r *SQLiteQuoteRepository) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT symbol, price_in_usd, updated_at FROM exchange_rates WHERE symbol = ?`, symbol)
	q, err := scanSQLiteQuote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quote{}, fmt.Errorf("%w: %s", ErrQuoteNotFound, symbol)
		}
		return Quote{}, fmt.Errorf("getting quote for %s: %w", symbol, err)
	}
	return q, nil
}

func (r *SQLiteQuoteRepository) GetAllQuotes(ctx context.Context) ([]Quote, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT symbol, price_in_usd, updated_at FROM exchange_rates ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("getting all quotes: %w", err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		q, err := scanSQLiteQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteQuote(row rowScanner) (Quote, error) {
	var (
		q       Quote
		price   string
		updated int64
	)
	if err := row.Scan(&q.Symbol, &price, &updated); err != nil {
		return Quote{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return Quote{}, fmt.Errorf("parsing stored price %q: %w", price, err)
	}
	q.PriceInUSD = p
	q.UpdatedAt = time.UnixMilli(updated).UTC()
	return q, nil
}
