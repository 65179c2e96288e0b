// Package staking serves a wallet's debt position and the fee pool periods.
package staking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mtlprog/snxdash/internal/domain"
	"github.com/mtlprog/snxdash/internal/query"
)

// ErrDisabled is returned when a query's preconditions are not met and it is not run.
var ErrDisabled = errors.New("query disabled")

// ErrInvalidPeriod is returned when a fee period is not an unsigned index.
var ErrInvalidPeriod = errors.New("invalid fee period")

// DebtFetcher reads a wallet's debt data from the chain.
type DebtFetcher interface {
	DebtData(ctx context.Context, wallet string) (domain.WalletDebtData, error)
}

// FeePoolFetcher reads a recent fee period from the chain.
type FeePoolFetcher interface {
	FeePoolData(ctx context.Context, period uint64) (domain.FeePoolData, error)
}

// DebtService serves cached debt data per wallet and network.
type DebtService struct {
	fetcher DebtFetcher
	cache   *query.Cache[domain.WalletDebtData]
}

// NewDebtService creates a DebtService.
func NewDebtService(fetcher DebtFetcher, cacheTTL time.Duration) *DebtService {
	if fetcher == nil {
		panic("staking.NewDebtService: fetcher is nil")
	}
	return &DebtService{
		fetcher: fetcher,
		cache:   query.New[domain.WalletDebtData](cacheTTL),
	}
}

// WalletDebtData returns the debt data of the session's wallet.
// It returns ErrDisabled until the app is ready and a wallet is connected.
func (s *DebtService) WalletDebtData(ctx context.Context, session domain.Session) (domain.WalletDebtData, error) {
	if !session.AppReady || !session.IsWalletConnected() {
		return domain.WalletDebtData{}, ErrDisabled
	}

	addr := strings.ToLower(session.WalletAddress)
	key := query.Key("Debt", "WalletDebtData", addr, session.Network.Key())

	return s.cache.Get(ctx, key, func(ctx context.Context) (domain.WalletDebtData, error) {
		data, err := s.fetcher.DebtData(ctx, session.WalletAddress)
		if err != nil {
			return domain.WalletDebtData{}, fmt.Errorf("fetching debt data for %s: %w", addr, err)
		}
		return data, nil
	})
}

// Invalidate drops the cached debt data of the session's wallet.
func (s *DebtService) Invalidate(session domain.Session) {
	s.cache.Invalidate(query.Key("Debt", "WalletDebtData", strings.ToLower(session.WalletAddress), session.Network.Key()))
}

// FeePoolService serves cached fee pool periods.
type FeePoolService struct {
	fetcher FeePoolFetcher
	cache   *query.Cache[domain.FeePoolData]
}

// NewFeePoolService creates a FeePoolService.
func NewFeePoolService(fetcher FeePoolFetcher, cacheTTL time.Duration) *FeePoolService {
	if fetcher == nil {
		panic("staking.NewFeePoolService: fetcher is nil")
	}
	return &FeePoolService{
		fetcher: fetcher,
		cache:   query.New[domain.FeePoolData](cacheTTL),
	}
}

// FeePoolData returns the fee period at index period (0 is current, 1 is previous).
// It returns ErrDisabled until the app is ready and a period is given.
func (s *FeePoolService) FeePoolData(ctx context.Context, session domain.Session, period string) (domain.FeePoolData, error) {
	if !session.AppReady || period == "" {
		return domain.FeePoolData{}, ErrDisabled
	}

	idx, err := strconv.ParseUint(period, 10, 64)
	if err != nil {
		return domain.FeePoolData{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	key := query.Key("Staking", "FeePoolData", period)
	return s.cache.Get(ctx, key, func(ctx context.Context) (domain.FeePoolData, error) {
		data, err := s.fetcher.FeePoolData(ctx, idx)
		if err != nil {
			return domain.FeePoolData{}, fmt.Errorf("fetching fee period %d: %w", idx, err)
		}
		return data, nil
	})
}
