package domain

import "github.com/shopspring/decimal"

// TokenBalance is a raw wallet balance for a single tracked asset.
type TokenBalance struct {
	Symbol  string          `json:"symbol"`
	Address string          `json:"address,omitempty"`
	Balance decimal.Decimal `json:"balance"`
}

// CryptoBalance is a wallet holding valued in USD.
// Transferrable is only set for the protocol token.
type CryptoBalance struct {
	CurrencyKey   string           `json:"currencyKey"`
	Balance       decimal.Decimal  `json:"balance"`
	USDBalance    decimal.Decimal  `json:"usdBalance"`
	Synth         string           `json:"synth,omitempty"`
	Transferrable *decimal.Decimal `json:"transferrable,omitempty"`
}

// ExchangeRates maps a currency key to its USD price. A nil table means rates
// have not been loaded yet.
type ExchangeRates map[string]decimal.Decimal

// TokenQuery selects a balance to fetch. An empty Address means the asset is
// resolved by symbol (the native coin or the protocol token).
type TokenQuery struct {
	Symbol  string
	Address string
}
