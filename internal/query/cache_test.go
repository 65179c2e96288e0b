package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	if got := Key("Debt", "WalletDebtData", "0xabc", "1"); got != "Debt:WalletDebtData:0xabc:1" {
		t.Errorf("Key() = %q", got)
	}
}

func TestCacheHitAndMiss(t *testing.T) {
	c := New[string](time.Minute)
	var calls atomic.Int32
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		return "value", nil
	}

	for range 3 {
		got, err := c.Get(context.Background(), "k", fetch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "value" {
			t.Errorf("Get() = %q, want value", got)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := New[int](time.Minute)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	var calls atomic.Int32
	fetch := func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}

	first, _ := c.Get(context.Background(), "k", fetch)
	now = now.Add(2 * time.Minute)
	second, _ := c.Get(context.Background(), "k", fetch)

	if first != 1 || second != 2 {
		t.Errorf("values = %d, %d; want 1, 2", first, second)
	}
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	c := New[int](time.Minute)
	boom := errors.New("boom")

	if _, err := c.Get(context.Background(), "k", func(context.Context) (int, error) {
		return 0, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	got, err := c.Get(context.Background(), "k", func(context.Context) (int, error) {
		return 7, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7 {
		t.Errorf("Get() = %d, want 7", got)
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := New[int](time.Minute)
	var calls atomic.Int32
	fetch := func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}

	c.Get(context.Background(), "k", fetch)
	c.Invalidate("k")
	got, _ := c.Get(context.Background(), "k", fetch)

	if got != 2 {
		t.Errorf("Get() after Invalidate = %d, want 2", got)
	}
}

func TestCacheDeduplicatesConcurrentFetches(t *testing.T) {
	c := New[int](time.Minute)
	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = c.Get(context.Background(), "k", fetch)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
	for i, v := range results {
		if v != 42 {
			t.Errorf("results[%d] = %d, want 42", i, v)
		}
	}
}

func TestCacheCancelledCallerDoesNotFailOthers(t *testing.T) {
	c := New[int](time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) (int, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 42, nil
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Get(ctxA, "k", fetch)
		errA <- err
	}()
	<-started

	type result struct {
		v   int
		err error
	}
	resB := make(chan result, 1)
	go func() {
		v, err := c.Get(context.Background(), "k", fetch)
		resB <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller err = %v, want context.Canceled", err)
	}

	close(release)
	got := <-resB
	if got.err != nil {
		t.Fatalf("other caller err = %v", got.err)
	}
	if got.v != 42 {
		t.Errorf("other caller value = %d, want 42", got.v)
	}
}

func TestCacheInvalidateDuringFetchSkipsStore(t *testing.T) {
	c := New[int](time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(context.Context) (int, error) {
		n := int(calls.Add(1))
		if n == 1 {
			close(started)
			<-release
		}
		return n, nil
	}

	first := make(chan int, 1)
	go func() {
		v, _ := c.Get(context.Background(), "k", fetch)
		first <- v
	}()
	<-started

	c.Invalidate("k")
	close(release)
	if v := <-first; v != 1 {
		t.Errorf("in-flight caller value = %d, want 1", v)
	}

	got, err := c.Get(context.Background(), "k", fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2 {
		t.Errorf("Get() after invalidation = %d, want 2 (pre-invalidation value was cached)", got)
	}
}
