package price

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"tokenscope/internal/cache"
	"tokenscope/internal/domain"
)

const daiAddr = "0x6b175474e89094c44da98b954eedeac495271d0f"

func TestClient_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/simple/token_price/ethereum") {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("contract_addresses"); got != daiAddr {
			t.Errorf("Unexpected contract address: %s", got)
		}
		w.Write([]byte(`{"` + daiAddr + `":{"usd":0.9998,"usd_24h_change":-0.02,"usd_market_cap":5300000000,"usd_24h_vol":120000000}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 1000, 10)
	quote, err := c.Quote(context.Background(), 1, daiAddr)
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}

	if quote.PriceUSD.String() != "0.9998" {
		t.Errorf("Unexpected price: %s", quote.PriceUSD)
	}
	if quote.Change24h.String() != "-0.02" {
		t.Errorf("Unexpected change: %s", quote.Change24h)
	}
	if quote.ChainID != 1 || quote.Address != daiAddr {
		t.Errorf("Quote identity mismatch: %+v", quote)
	}
	if quote.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}

func TestClient_Quote_UnknownChain(t *testing.T) {
	c := NewClient("http://localhost:1", "", 1000, 10)
	if _, err := c.Quote(context.Background(), 424242, daiAddr); err == nil {
		t.Fatal("Expected error for unmapped chain")
	}
}

func TestClient_Quote_ThrottledNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 1000, 10)
	_, err := c.Quote(context.Background(), 1, daiAddr)
	if err == nil {
		t.Fatal("Expected error for HTTP 429")
	}
	if !errors.Is(err, cache.ErrNoRetry) {
		t.Errorf("Throttle error must carry ErrNoRetry, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected exactly 1 request for throttled call, got %d", n)
	}
}

func TestClient_Quote_ServerErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 1000, 10)
	_, err := c.Quote(context.Background(), 1, daiAddr)
	if err == nil {
		t.Fatal("Expected error for HTTP 503")
	}
	if !errors.Is(err, cache.ErrNoRetry) {
		t.Errorf("Server-fault error must carry ErrNoRetry, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected exactly 1 request for failed call, got %d", n)
	}
}

func TestClient_History(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/coins/ethereum/contract/"+daiAddr+"/market_chart") {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("days"); got != "7" {
			t.Errorf("Expected days=7, got %s", got)
		}
		w.Write([]byte(`{"prices":[[1700000000000,0.999],[1700003600000,1.001]]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 1000, 10)
	points, err := c.History(context.Background(), 1, daiAddr, domain.Window7d)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}

	if len(points) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(points))
	}
	if points[0].PriceUSD.String() != "0.999" {
		t.Errorf("Unexpected first price: %s", points[0].PriceUSD)
	}
	if points[0].Ts.UnixMilli() != 1700000000000 {
		t.Errorf("Unexpected first timestamp: %d", points[0].Ts.UnixMilli())
	}
}

func TestClient_APIKeyHeader(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-cg-demo-api-key")
		w.Write([]byte(`{"prices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 1000, 10)
	if _, err := c.History(context.Background(), 1, daiAddr, domain.Window24h); err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if gotKey != "test-key" {
		t.Errorf("Expected API key header, got %q", gotKey)
	}
}
