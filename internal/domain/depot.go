package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepotExchange is an ETH-for-sUSD exchange made through the depot contract.
type DepotExchange struct {
	Hash         string          `json:"hash"`
	From         string          `json:"from"`
	FromAmount   decimal.Decimal `json:"fromAmount"`
	FromCurrency string          `json:"fromCurrency"`
	ToAmount     decimal.Decimal `json:"toAmount"`
	ToCurrency   string          `json:"toCurrency"`
	Block        int64           `json:"block"`
	Timestamp    int64           `json:"timestamp"`
	Date         time.Time       `json:"date"`
}
