package depot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mtlprog/snxdash/internal/domain"
	"github.com/mtlprog/snxdash/internal/query"
)

// ErrDisabled is returned when no wallet is connected.
var ErrDisabled = errors.New("depot query disabled")

// ExchangeFetcher reads depot exchanges for a wallet.
type ExchangeFetcher interface {
	Exchanges(ctx context.Context, wallet string) ([]domain.DepotExchange, error)
}

// Service serves cached depot exchanges per wallet and network.
type Service struct {
	fetcher ExchangeFetcher
	cache   *query.Cache[[]domain.DepotExchange]
}

// NewService creates a depot service.
func NewService(fetcher ExchangeFetcher, cacheTTL time.Duration) *Service {
	if fetcher == nil {
		panic("depot.NewService: fetcher is nil")
	}
	return &Service{
		fetcher: fetcher,
		cache:   query.New[[]domain.DepotExchange](cacheTTL),
	}
}

// Exchanges returns the depot exchanges of the session's wallet.
func (s *Service) Exchanges(ctx context.Context, session domain.Session) ([]domain.DepotExchange, error) {
	if !session.IsWalletConnected() {
		return nil, ErrDisabled
	}

	addr := strings.ToLower(session.WalletAddress)
	key := query.Key("Depot", "Exchanges", addr, session.Network.Key())
	return s.cache.Get(ctx, key, func(ctx context.Context) ([]domain.DepotExchange, error) {
		return s.fetcher.Exchanges(ctx, addr)
	})
}
