// Package export writes a wallet's holdings to spreadsheets.
package export

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/snxdash/internal/domain"
	"github.com/mtlprog/snxdash/internal/wallet"
)

// SheetName is the title of the holdings sheet.
const SheetName = "Holdings"

var header = []any{"Currency", "Balance", "USD", "Synth", "Transferrable"}

// Row is one holding in the export.
type Row struct {
	Currency      string
	Balance       decimal.Decimal
	USD           decimal.Decimal
	Synth         string
	Transferrable *decimal.Decimal
}

// Writer writes holdings rows to a spreadsheet destination.
type Writer interface {
	Write(ctx context.Context, rows []Row) error
}

// BalanceReader returns a wallet overview.
type BalanceReader interface {
	Balances(ctx context.Context, session domain.Session) (wallet.Result, error)
}

// Service builds holdings rows for a session and delegates writing to a Writer.
type Service struct {
	balances BalanceReader
	writer   Writer
}

// NewService creates a new export Service.
func NewService(balances BalanceReader, writer Writer) *Service {
	if balances == nil {
		panic("export.NewService: balances is nil")
	}
	if writer == nil {
		panic("export.NewService: writer is nil")
	}
	return &Service{balances: balances, writer: writer}
}

// Export writes the session wallet's holdings. It fails if the balances are not loaded.
func (s *Service) Export(ctx context.Context, session domain.Session) error {
	res, err := s.balances.Balances(ctx, session)
	if err != nil {
		return fmt.Errorf("loading balances: %w", err)
	}
	if !res.IsLoaded {
		return fmt.Errorf("balances for %s not loaded", session.WalletAddress)
	}
	return s.writer.Write(ctx, Rows(res))
}

// Rows converts a wallet overview to export rows, keeping its order.
func Rows(res wallet.Result) []Row {
	return lo.Map(res.Balances, func(b domain.CryptoBalance, _ int) Row {
		return Row{
			Currency:      b.CurrencyKey,
			Balance:       b.Balance,
			USD:           b.USDBalance,
			Synth:         b.Synth,
			Transferrable: b.Transferrable,
		}
	})
}

// buildValues builds the sheet data: a header row, one row per holding and a USD total.
// Columns: Currency | Balance | USD | Synth | Transferrable
func buildValues(rows []Row) [][]any {
	data := make([][]any, 0, len(rows)+2)
	data = append(data, header)

	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.USD)
		data = append(data, []any{
			r.Currency,
			toFloat(r.Balance),
			toFloat(r.USD),
			r.Synth,
			ptrFloat(r.Transferrable),
		})
	}

	data = append(data, []any{"Total", nil, toFloat(total), nil, nil})
	return data
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func ptrFloat(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	f, _ := d.Float64()
	return f
}
