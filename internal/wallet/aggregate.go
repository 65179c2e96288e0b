package wallet

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/snxdash/internal/domain"
)

// ErrMissingPrice indicates that the rate table lacks a price needed to value a holding.
var ErrMissingPrice = errors.New("missing price data")

// MissingPriceError lists the rate keys that were absent from the price table.
type MissingPriceError struct {
	Keys []string
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingPrice, strings.Join(e.Keys, ", "))
}

func (e *MissingPriceError) Unwrap() error {
	return ErrMissingPrice
}

// TrackedAsset describes how a wallet asset is valued and labelled.
type TrackedAsset struct {
	CurrencyKey string
	RateKey     string
	Synth       string
}

// TrackedAssets lists the assets shown in the wallet overview. Wrapped and
// synthetic BTC share the sBTC rate; ETH and WETH share the ETH rate.
var TrackedAssets = []TrackedAsset{
	{CurrencyKey: domain.ETH, RateKey: domain.ETH, Synth: domain.AssetToSynth(domain.ETH)},
	{CurrencyKey: domain.WETH, RateKey: domain.ETH, Synth: domain.AssetToSynth(domain.ETH)},
	{CurrencyKey: domain.SNX, RateKey: domain.SNX, Synth: domain.AssetToSynth(domain.ETH)},
	{CurrencyKey: domain.WBTC, RateKey: domain.SBTC, Synth: domain.AssetToSynth(domain.BTC)},
	{CurrencyKey: domain.RenBTC, RateKey: domain.SBTC, Synth: domain.AssetToSynth(domain.BTC)},
}

// Inputs are the upstream snapshots the aggregation depends on.
// A nil Rates table means rates are not loaded yet.
type Inputs struct {
	Balances      map[string]decimal.Decimal
	Rates         domain.ExchangeRates
	Transferrable decimal.Decimal
}

// Aggregate values the tracked wallet assets in USD, drops empty holdings and
// orders the rest by USD value, largest first.
//
// It returns an empty list while rates are not loaded. If a held asset has no
// price in the table, nothing is valued and a *MissingPriceError is returned.
func Aggregate(in Inputs) ([]domain.CryptoBalance, error) {
	if in.Rates == nil {
		return []domain.CryptoBalance{}, nil
	}

	held := lo.Filter(TrackedAssets, func(a TrackedAsset, _ int) bool {
		return in.Balances[a.CurrencyKey].IsPositive()
	})

	missing := lo.Uniq(lo.FilterMap(held, func(a TrackedAsset, _ int) (string, bool) {
		_, ok := in.Rates[a.RateKey]
		return a.RateKey, !ok
	}))
	if len(missing) > 0 {
		return []domain.CryptoBalance{}, &MissingPriceError{Keys: missing}
	}

	balances := lo.Map(held, func(a TrackedAsset, _ int) domain.CryptoBalance {
		balance := in.Balances[a.CurrencyKey]
		b := domain.CryptoBalance{
			CurrencyKey: a.CurrencyKey,
			Balance:     balance,
			USDBalance:  balance.Mul(in.Rates[a.RateKey]),
			Synth:       a.Synth,
		}
		if a.CurrencyKey == domain.SNX {
			b.Transferrable = lo.ToPtr(in.Transferrable)
		}
		return b
	})

	slices.SortStableFunc(balances, func(a, b domain.CryptoBalance) int {
		return b.USDBalance.Cmp(a.USDBalance)
	})

	return balances, nil
}
