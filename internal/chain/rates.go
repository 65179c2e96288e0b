package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/snxdash/internal/domain"
)

// RateKeys are the currency keys read from the exchange rates contract.
var RateKeys = []string{domain.SNX, domain.SUSD, domain.SETH, domain.SBTC}

// Rates reads USD prices for the given currency keys from the exchange rates contract.
// Keys the contract has no rate for (zero) are omitted.
func (c *Client) Rates(ctx context.Context, keys []string) (map[string]decimal.Decimal, error) {
	exchangeRates, err := c.ContractAddress(ctx, ContractExchangeRates)
	if err != nil {
		return nil, err
	}

	encoded := make([][32]byte, 0, len(keys))
	for _, k := range keys {
		b, err := FormatBytes32String(k)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, b)
	}

	values, err := c.call(ctx, exchangeRates, exchangeRatesABI, "ratesForCurrencies", encoded)
	if err != nil {
		return nil, err
	}
	rates, ok := values[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("ratesForCurrencies returned %T, want []*big.Int", values[0])
	}
	if len(rates) != len(keys) {
		return nil, fmt.Errorf("ratesForCurrencies returned %d rates for %d keys", len(rates), len(keys))
	}

	result := make(map[string]decimal.Decimal, len(keys))
	for i, k := range keys {
		if rates[i] == nil || rates[i].Sign() == 0 {
			continue
		}
		result[k] = domain.FromWei(rates[i])
	}
	return result, nil
}

// FetchRates returns the protocol price table. ETH and BTC are priced at their synths.
func (c *Client) FetchRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	rates, err := c.Rates(ctx, RateKeys)
	if err != nil {
		return nil, fmt.Errorf("fetching exchange rates: %w", err)
	}
	aliases := map[string]string{domain.ETH: domain.SETH, domain.BTC: domain.SBTC}
	for alias, synth := range aliases {
		if v, ok := rates[synth]; ok {
			rates[alias] = v
		}
	}
	return rates, nil
}
