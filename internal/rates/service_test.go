package rates

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type mockQuoteRepo struct {
	quotes  map[string]Quote
	now     time.Time
	loads   int
	loadErr error
}

func newMockQuoteRepo(now time.Time) *mockQuoteRepo {
	return &mockQuoteRepo{quotes: make(map[string]Quote), now: now}
}

func (m *mockQuoteRepo) SaveQuote(_ context.Context, symbol string, priceInUSD decimal.Decimal) error {
	m.quotes[symbol] = Quote{Symbol: symbol, PriceInUSD: priceInUSD, UpdatedAt: m.now}
	return nil
}

func (m *mockQuoteRepo) GetQuote(_ context.Context, symbol string) (Quote, error) {
	q, ok := m.quotes[symbol]
	if !ok {
		return Quote{}, ErrQuoteNotFound
	}
	return q, nil
}

func (m *mockQuoteRepo) GetAllQuotes(_ context.Context) ([]Quote, error) {
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	var result []Quote
	for _, q := range m.quotes {
		result = append(result, q)
	}
	return result, nil
}

type mockSource struct {
	prices map[string]decimal.Decimal
	err    error
}

func (m *mockSource) FetchRates(_ context.Context) (map[string]decimal.Decimal, error) {
	return m.prices, m.err
}

func TestRefreshStoresQuotes(t *testing.T) {
	now := time.Now()
	repo := newMockQuoteRepo(now)
	src := &mockSource{prices: map[string]decimal.Decimal{
		"SNX": decimal.NewFromInt(5),
		"ETH": decimal.NewFromInt(2000),
	}}
	svc := NewService(src, repo, time.Hour, time.Minute)

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	rates, err := svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !rates["ETH"].Equal(decimal.NewFromInt(2000)) {
		t.Errorf("ETH = %s, want 2000", rates["ETH"])
	}
	if !rates["SNX"].Equal(decimal.NewFromInt(5)) {
		t.Errorf("SNX = %s, want 5", rates["SNX"])
	}
}

func TestRefreshSourceError(t *testing.T) {
	svc := NewService(&mockSource{err: errors.New("down")}, newMockQuoteRepo(time.Now()), time.Hour, time.Minute)

	if err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRefreshWithoutSource(t *testing.T) {
	svc := NewService(nil, newMockQuoteRepo(time.Now()), time.Hour, time.Minute)

	if err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestLatestEmptyNotReady(t *testing.T) {
	svc := NewService(nil, newMockQuoteRepo(time.Now()), time.Hour, time.Minute)

	_, err := svc.Latest(context.Background())
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("err = %v, want ErrNotReady", err)
	}
}

func TestLatestDropsStaleQuotes(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := newMockQuoteRepo(now)
	repo.quotes["SNX"] = Quote{Symbol: "SNX", PriceInUSD: decimal.NewFromInt(5), UpdatedAt: now.Add(-2 * time.Hour)}
	repo.quotes["ETH"] = Quote{Symbol: "ETH", PriceInUSD: decimal.NewFromInt(2000), UpdatedAt: now.Add(-time.Minute)}

	svc := NewService(nil, repo, time.Hour, time.Minute)
	svc.now = func() time.Time { return now }

	rates, err := svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if _, ok := rates["SNX"]; ok {
		t.Error("stale SNX quote should be dropped")
	}
	if _, ok := rates["ETH"]; !ok {
		t.Error("fresh ETH quote should be kept")
	}
}

func TestLatestAllStaleNotReady(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := newMockQuoteRepo(now)
	repo.quotes["SNX"] = Quote{Symbol: "SNX", PriceInUSD: decimal.NewFromInt(5), UpdatedAt: now.Add(-2 * time.Hour)}

	svc := NewService(nil, repo, time.Hour, time.Minute)
	svc.now = func() time.Time { return now }

	_, err := svc.Latest(context.Background())
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("err = %v, want ErrNotReady", err)
	}
}

func TestLatestZeroThresholdKeepsAll(t *testing.T) {
	repo := newMockQuoteRepo(time.Now())
	repo.quotes["SNX"] = Quote{Symbol: "SNX", PriceInUSD: decimal.NewFromInt(5), UpdatedAt: time.Unix(0, 0)}

	svc := NewService(nil, repo, 0, time.Minute)

	rates, err := svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(rates) != 1 {
		t.Errorf("len(rates) = %d, want 1", len(rates))
	}
}

func TestLatestCached(t *testing.T) {
	repo := newMockQuoteRepo(time.Now())
	repo.quotes["SNX"] = Quote{Symbol: "SNX", PriceInUSD: decimal.NewFromInt(5), UpdatedAt: time.Now()}
	svc := NewService(nil, repo, time.Hour, time.Minute)

	for range 3 {
		if _, err := svc.Latest(context.Background()); err != nil {
			t.Fatalf("Latest: %v", err)
		}
	}
	if repo.loads != 1 {
		t.Errorf("loads = %d, want 1", repo.loads)
	}
}

func TestRefreshInvalidatesCache(t *testing.T) {
	repo := newMockQuoteRepo(time.Now())
	src := &mockSource{prices: map[string]decimal.Decimal{"SNX": decimal.NewFromInt(5)}}
	svc := NewService(src, repo, time.Hour, time.Minute)
	ctx := context.Background()

	if err := svc.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Latest(ctx); err != nil {
		t.Fatal(err)
	}

	src.prices = map[string]decimal.Decimal{"SNX": decimal.NewFromInt(6)}
	if err := svc.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	rates, err := svc.Latest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !rates["SNX"].Equal(decimal.NewFromInt(6)) {
		t.Errorf("SNX = %s, want 6 after refresh", rates["SNX"])
	}
}

func TestLatestRepoError(t *testing.T) {
	repo := newMockQuoteRepo(time.Now())
	repo.loadErr = errors.New("db down")
	svc := NewService(nil, repo, time.Hour, time.Minute)

	if _, err := svc.Latest(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// gatedRepo holds the first GetAllQuotes after reading until release is closed.
type gatedRepo struct {
	mu      sync.Mutex
	inner   *mockQuoteRepo
	gated   bool
	started chan struct{}
	release chan struct{}
}

func (g *gatedRepo) SaveQuote(ctx context.Context, symbol string, price decimal.Decimal) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inner.SaveQuote(ctx, symbol, price)
}

func (g *gatedRepo) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inner.GetQuote(ctx, symbol)
}

func (g *gatedRepo) GetAllQuotes(ctx context.Context) ([]Quote, error) {
	g.mu.Lock()
	quotes, err := g.inner.GetAllQuotes(ctx)
	first := !g.gated
	g.gated = true
	g.mu.Unlock()

	if first {
		close(g.started)
		<-g.release
	}
	return quotes, err
}

func TestRefreshDuringLoadDoesNotCacheOldTable(t *testing.T) {
	inner := newMockQuoteRepo(time.Now())
	inner.quotes["SNX"] = Quote{Symbol: "SNX", PriceInUSD: decimal.NewFromInt(5), UpdatedAt: time.Now()}
	repo := &gatedRepo{inner: inner, started: make(chan struct{}), release: make(chan struct{})}
	src := &mockSource{prices: map[string]decimal.Decimal{"SNX": decimal.NewFromInt(6)}}
	svc := NewService(src, repo, time.Hour, time.Minute)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Latest(ctx)
	}()
	<-repo.started

	if err := svc.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	close(repo.release)
	<-done

	rates, err := svc.Latest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !rates["SNX"].Equal(decimal.NewFromInt(6)) {
		t.Errorf("SNX = %s, want 6 from the refresh", rates["SNX"])
	}
}
