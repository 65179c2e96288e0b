package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/snxdash/internal/domain"
	"github.com/mtlprog/snxdash/internal/query"
)

// ErrNotReady is returned when no fresh price table is available.
var ErrNotReady = errors.New("exchange rates not ready")

// Source fetches current USD prices keyed by currency key.
type Source interface {
	FetchRates(ctx context.Context) (map[string]decimal.Decimal, error)
}

// Service refreshes the price table from a source and serves the stored table.
type Service struct {
	source     Source
	repo       QuoteRepository
	staleAfter time.Duration
	cache      *query.Cache[domain.ExchangeRates]
	now        func() time.Time
}

// NewService creates a rates service. A zero staleAfter disables the staleness check.
func NewService(source Source, repo QuoteRepository, staleAfter, cacheTTL time.Duration) *Service {
	if repo == nil {
		panic("rates.NewService: repo is nil")
	}
	return &Service{
		source:     source,
		repo:       repo,
		staleAfter: staleAfter,
		cache:      query.New[domain.ExchangeRates](cacheTTL),
		now:        time.Now,
	}
}

var cacheKey = query.Key("Rates", "ExchangeRates")

// Refresh fetches prices from the source and stores every quote.
func (s *Service) Refresh(ctx context.Context) error {
	if s.source == nil {
		return errors.New("no rates source configured")
	}

	prices, err := s.source.FetchRates(ctx)
	if err != nil {
		return fmt.Errorf("fetching rates: %w", err)
	}

	for symbol, price := range prices {
		if err := s.repo.SaveQuote(ctx, symbol, price); err != nil {
			return fmt.Errorf("storing quote for %s: %w", symbol, err)
		}
	}

	s.cache.Invalidate(cacheKey)
	slog.Debug("rates refreshed", "count", len(prices))
	return nil
}

// Latest returns the stored price table without stale quotes.
func (s *Service) Latest(ctx context.Context) (domain.ExchangeRates, error) {
	return s.cache.Get(ctx, cacheKey, s.loadLatest)
}

func (s *Service) loadLatest(ctx context.Context) (domain.ExchangeRates, error) {
	quotes, err := s.repo.GetAllQuotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading quotes: %w", err)
	}

	fresh := lo.Filter(quotes, func(q Quote, _ int) bool {
		return s.staleAfter <= 0 || s.now().Sub(q.UpdatedAt) <= s.staleAfter
	})
	if len(fresh) == 0 {
		return nil, ErrNotReady
	}
	if len(fresh) < len(quotes) {
		slog.Warn("dropping stale quotes", "stale", len(quotes)-len(fresh), "threshold", s.staleAfter)
	}

	return domain.ExchangeRates(lo.SliceToMap(fresh, func(q Quote) (string, decimal.Decimal) {
		return q.Symbol, q.PriceInUSD
	})), nil
}

// Quotes returns every stored quote, including stale ones.
func (s *Service) Quotes(ctx context.Context) ([]Quote, error) {
	quotes, err := s.repo.GetAllQuotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading quotes: %w", err)
	}
	return quotes, nil
}
