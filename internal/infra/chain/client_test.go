package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tokenscope/internal/infra"
)

const (
	testToken  = "0x6b175474e89094c44da98b954eedeac495271d0f"
	testHolder = "0x28c6c06298d514db089934071355e5743bf21d60"
)

// newRPCServer serves canned eth_call results keyed by selector.
func newRPCServer(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Malformed request body: %v", err)
			return
		}
		if req.Method != "eth_call" {
			t.Errorf("Expected eth_call, got %s", req.Method)
		}

		params, _ := json.Marshal(req.Params[0])
		var call callParams
		json.Unmarshal(params, &call)

		for selector, result := range results {
			if strings.HasPrefix(call.Data, selector) {
				json.NewEncoder(w).Encode(map[string]any{
					"jsonrpc": "2.0",
					"id":      req.ID,
					"result":  result,
				})
				return
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]any{"code": -32000, "message": "execution reverted"},
		})
	}))
}

func newTestClient(url string) *Client {
	return NewClient(infra.ChainConfig{ID: 1, Name: "ethereum", RPCURL: url})
}

func TestClient_MetadataReads(t *testing.T) {
	srv := newRPCServer(t, map[string]string{
		selectorSymbol: "0x" +
			"0000000000000000000000000000000000000000000000000000000000000020" +
			"0000000000000000000000000000000000000000000000000000000000000003" +
			"4441490000000000000000000000000000000000000000000000000000000000",
		selectorName: "0x" +
			"0000000000000000000000000000000000000000000000000000000000000020" +
			"000000000000000000000000000000000000000000000000000000000000000e" +
			"44616920537461626c65636f696e000000000000000000000000000000000000",
		selectorDecimals:    "0x0000000000000000000000000000000000000000000000000000000000000012",
		selectorTotalSupply: "0x00000000000000000000000000000000000000000052b7d2dcc80cd2e4000000",
	})
	defer srv.Close()

	c := newTestClient(srv.URL)
	ctx := context.Background()

	symbol, err := c.Symbol(ctx, testToken)
	if err != nil {
		t.Fatalf("Symbol failed: %v", err)
	}
	if symbol != "DAI" {
		t.Errorf("Expected symbol DAI, got %q", symbol)
	}

	name, err := c.Name(ctx, testToken)
	if err != nil {
		t.Fatalf("Name failed: %v", err)
	}
	if name != "Dai Stablecoin" {
		t.Errorf("Expected name Dai Stablecoin, got %q", name)
	}

	decimals, err := c.Decimals(ctx, testToken)
	if err != nil {
		t.Fatalf("Decimals failed: %v", err)
	}
	if decimals != 18 {
		t.Errorf("Expected 18 decimals, got %d", decimals)
	}

	supply, err := c.TotalSupply(ctx, testToken)
	if err != nil {
		t.Fatalf("TotalSupply failed: %v", err)
	}
	if supply.String() != "100000000000000000000000000" {
		t.Errorf("Unexpected total supply: %s", supply)
	}
}

func TestClient_BalanceOf(t *testing.T) {
	var gotData string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		params, _ := json.Marshal(req.Params[0])
		var call callParams
		json.Unmarshal(params, &call)
		gotData = call.Data

		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "0x0000000000000000000000000000000000000000000000056bc75e2d63100000",
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	balance, err := c.BalanceOf(context.Background(), testToken, testHolder)
	if err != nil {
		t.Fatalf("BalanceOf failed: %v", err)
	}
	if balance.String() != "100000000000000000000" {
		t.Errorf("Unexpected balance: %s", balance)
	}

	wantData := selectorBalanceOf + encodeAddressArg(testHolder)
	if gotData != wantData {
		t.Errorf("Call data mismatch:\n got %s\nwant %s", gotData, wantData)
	}
}

func TestClient_RPCError(t *testing.T) {
	srv := newRPCServer(t, nil) // every call reverts
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Symbol(context.Background(), testToken); err == nil {
		t.Fatal("Expected error for reverted call")
	}
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Decimals(context.Background(), testToken); err == nil {
		t.Fatal("Expected error for HTTP 502")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry([]infra.ChainConfig{
		{ID: 1, Name: "ethereum", RPCURL: "http://localhost:8545"},
		{ID: 137, Name: "polygon", RPCURL: "http://localhost:8546"},
	})

	c, err := r.Client(1)
	if err != nil {
		t.Fatalf("Client(1) failed: %v", err)
	}
	if c.ChainID() != 1 {
		t.Errorf("Expected chain 1, got %d", c.ChainID())
	}

	if _, err := r.Client(999); err == nil {
		t.Fatal("Expected error for unknown chain")
	}

	if len(r.ChainIDs()) != 2 {
		t.Errorf("Expected 2 chains, got %d", len(r.ChainIDs()))
	}
}
