package depot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const testWallet = "0x00000000000000000000000000000000000000AA"

func TestExchanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req graphRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
			return
		}
		if req.Variables["from"] != "0x00000000000000000000000000000000000000aa" {
			t.Errorf("from = %v, want lowercased wallet", req.Variables["from"])
		}
		w.Write([]byte(`{"data":{"exchanges":[{
			"id":"0xabc-0",
			"from":"0x00000000000000000000000000000000000000aa",
			"fromAmount":"1500000000000000000",
			"fromCurrency":"ETH",
			"toAmount":"3000000000000000000000",
			"toCurrency":"sUSD",
			"block":"9000000",
			"timestamp":"1577836800"
		}]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, time.Millisecond)
	got, err := client.Exchanges(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}

	ex := got[0]
	if ex.Hash != "0xabc" {
		t.Errorf("Hash = %q, want 0xabc", ex.Hash)
	}
	if !ex.FromAmount.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("FromAmount = %s, want 1.5", ex.FromAmount)
	}
	if !ex.ToAmount.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("ToAmount = %s, want 3000", ex.ToAmount)
	}
	if ex.Block != 9000000 {
		t.Errorf("Block = %d, want 9000000", ex.Block)
	}
	if ex.Timestamp != 1577836800000 {
		t.Errorf("Timestamp = %d, want milliseconds", ex.Timestamp)
	}
	if !ex.Date.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v, want 2020-01-01", ex.Date)
	}
}

func TestExchangesPaginates(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		count := pageSize
		if n == 2 {
			count = 3
		}
		records := make([]exchangeRecord, count)
		for i := range records {
			records[i] = exchangeRecord{ID: fmt.Sprintf("0x%d-%d", n, i), Timestamp: "1", Block: "1", FromAmount: "0", ToAmount: "0"}
		}
		resp := exchangesResponse{}
		resp.Data.Exchanges = records
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, time.Millisecond)
	got, err := client.Exchanges(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != pageSize+3 {
		t.Errorf("len = %d, want %d", len(got), pageSize+3)
	}
	if requests.Load() != 2 {
		t.Errorf("requests = %d, want 2", requests.Load())
	}
}

func TestExchangesGraphErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"indexing error"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, time.Millisecond)
	if _, err := client.Exchanges(context.Background(), testWallet); err == nil {
		t.Fatal("expected error")
	}
}

func TestExchangesRetryOn429(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":{"exchanges":[]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 3, time.Millisecond)
	got, err := client.Exchanges(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
}

func TestExchangesRetryExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, 1, time.Millisecond)
	if _, err := client.Exchanges(context.Background(), testWallet); err == nil {
		t.Fatal("expected error after retries exhausted")
	}
}

func TestExchangesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, 3, time.Millisecond)
	if _, err := client.Exchanges(context.Background(), testWallet); err == nil {
		t.Fatal("expected error")
	}
}
