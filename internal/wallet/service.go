package wallet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/snxdash/internal/domain"
	"github.com/mtlprog/snxdash/internal/query"
)

// BalanceFetcher reads raw token balances for a wallet.
type BalanceFetcher interface {
	TokenBalances(ctx context.Context, tokens []domain.TokenQuery, wallet string) (map[string]domain.TokenBalance, error)
}

// RatesReader returns the current USD price table.
type RatesReader interface {
	Latest(ctx context.Context) (domain.ExchangeRates, error)
}

// DebtReader returns a wallet's debt data.
type DebtReader interface {
	WalletDebtData(ctx context.Context, session domain.Session) (domain.WalletDebtData, error)
}

// TokenResolver maps a tracked token to its contract address on a network.
type TokenResolver interface {
	TokenAddress(networkName, symbol string) string
}

// Result is the wallet overview exposed to presentation layers.
type Result struct {
	Balances []domain.CryptoBalance `json:"balances"`
	IsLoaded bool                   `json:"isLoaded"`
}

// Service assembles a wallet's USD-valued holdings from chain balances, rates and debt data.
type Service struct {
	balances BalanceFetcher
	rates    RatesReader
	debt     DebtReader
	tokens   TokenResolver
	cache    *query.Cache[map[string]domain.TokenBalance]
}

// NewService creates a wallet Service. All dependencies are required.
func NewService(balances BalanceFetcher, rates RatesReader, debt DebtReader, tokens TokenResolver, cacheTTL time.Duration) *Service {
	if balances == nil {
		panic("wallet.NewService: balances is nil")
	}
	if rates == nil {
		panic("wallet.NewService: rates is nil")
	}
	if debt == nil {
		panic("wallet.NewService: debt is nil")
	}
	if tokens == nil {
		panic("wallet.NewService: tokens is nil")
	}
	return &Service{
		balances: balances,
		rates:    rates,
		debt:     debt,
		tokens:   tokens,
		cache:    query.New[map[string]domain.TokenBalance](cacheTTL),
	}
}

// TokenQueries returns the balance queries for the tracked assets on a network.
func (s *Service) TokenQueries(networkName string) []domain.TokenQuery {
	return []domain.TokenQuery{
		{Symbol: domain.ETH},
		{Symbol: domain.SNX},
		{Symbol: domain.WBTC, Address: s.tokens.TokenAddress(networkName, domain.WBTC)},
		{Symbol: domain.WETH, Address: s.tokens.TokenAddress(networkName, domain.WETH)},
		{Symbol: domain.RenBTC, Address: s.tokens.TokenAddress(networkName, domain.RenBTC)},
	}
}

// Balances returns the wallet overview for the session's wallet.
//
// IsLoaded is true only when both balances and rates were fetched. Upstream
// failures are logged and reported as not loaded. A missing price is returned
// as an error wrapping ErrMissingPrice together with an empty, not-loaded result.
func (s *Service) Balances(ctx context.Context, session domain.Session) (Result, error) {
	empty := Result{Balances: []domain.CryptoBalance{}}
	if !session.IsWalletConnected() {
		return empty, nil
	}

	var (
		raw           map[string]domain.TokenBalance
		rates         domain.ExchangeRates
		transferrable = decimal.Zero
		balancesErr   error
		ratesErr      error
	)

	var g errgroup.Group
	g.Go(func() error {
		key := query.Key("Wallet", "Balances", session.WalletAddress, session.Network.Key())
		raw, balancesErr = s.cache.Get(ctx, key, func(ctx context.Context) (map[string]domain.TokenBalance, error) {
			return s.balances.TokenBalances(ctx, s.TokenQueries(session.Network.Name), session.WalletAddress)
		})
		return nil
	})
	g.Go(func() error {
		rates, ratesErr = s.rates.Latest(ctx)
		return nil
	})
	g.Go(func() error {
		debt, err := s.debt.WalletDebtData(ctx, session)
		if err != nil {
			slog.Debug("debt data unavailable, transferrable SNX defaults to zero", "wallet", session.WalletAddress, "error", err)
			return nil
		}
		transferrable = debt.Transferable
		return nil
	})
	_ = g.Wait()

	if balancesErr != nil {
		slog.Warn("wallet balances unavailable", "wallet", session.WalletAddress, "error", balancesErr)
	}
	if ratesErr != nil {
		slog.Warn("exchange rates unavailable", "error", ratesErr)
	}

	isLoaded := balancesErr == nil && ratesErr == nil
	if !isLoaded {
		return empty, nil
	}

	balances, err := Aggregate(Inputs{
		Balances: lo.MapValues(raw, func(b domain.TokenBalance, _ string) decimal.Decimal {
			return b.Balance
		}),
		Rates:         rates,
		Transferrable: transferrable,
	})
	if err != nil {
		if errors.Is(err, ErrMissingPrice) {
			slog.Error("cannot value wallet holdings", "wallet", session.WalletAddress, "error", err)
		}
		return empty, err
	}

	return Result{Balances: balances, IsLoaded: true}, nil
}
