package depot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mtlprog/snxdash/internal/domain"
)

type mockFetcher struct {
	exchanges []domain.DepotExchange
	err       error
	wallets   []string
}

func (m *mockFetcher) Exchanges(_ context.Context, wallet string) ([]domain.DepotExchange, error) {
	m.wallets = append(m.wallets, wallet)
	return m.exchanges, m.err
}

func TestServiceExchangesDisabled(t *testing.T) {
	fetcher := &mockFetcher{}
	svc := NewService(fetcher, time.Minute)

	_, err := svc.Exchanges(context.Background(), domain.Session{AppReady: true})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
	if len(fetcher.wallets) != 0 {
		t.Error("fetcher should not be called")
	}
}

func TestServiceExchangesCached(t *testing.T) {
	fetcher := &mockFetcher{exchanges: []domain.DepotExchange{{Hash: "0x1"}}}
	svc := NewService(fetcher, time.Minute)
	session := domain.Session{WalletAddress: testWallet, Network: domain.Network{ID: 1, Name: "mainnet"}}

	for range 2 {
		got, err := svc.Exchanges(context.Background(), session)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].Hash != "0x1" {
			t.Errorf("got %v", got)
		}
	}
	if len(fetcher.wallets) != 1 {
		t.Errorf("fetches = %d, want 1", len(fetcher.wallets))
	}
	if fetcher.wallets[0] != "0x00000000000000000000000000000000000000aa" {
		t.Errorf("wallet = %q, want lowercased", fetcher.wallets[0])
	}
}
