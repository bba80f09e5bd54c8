package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"tokenscope/internal/infra"
)

// rpcRequest is a JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

// rpcResponse is a JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	ID int `json:"id"`
}

// callParams is the object argument of eth_call.
type callParams struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// Client issues eth_call reads against a single chain's RPC endpoint.
type Client struct {
	chainID    int64
	name       string
	rpcURL     string
	httpClient *http.Client
}

// NewClient creates a read-only RPC client for one configured chain.
func NewClient(cfg infra.ChainConfig) *Client {
	return &Client{
		chainID: cfg.ID,
		name:    cfg.Name,
		rpcURL:  cfg.RPCURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ChainID returns the chain this client reads from.
func (c *Client) ChainID() int64 {
	return c.chainID
}

// ethCall executes a read-only contract call and returns the raw hex result.
func (c *Client) ethCall(ctx context.Context, to, data string) (string, error) {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "eth_call",
		Params:  []any{callParams{To: to, Data: data}, "latest"},
		ID:      1,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", infra.DefaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return "", fmt.Errorf("malformed RPC response: %w", err)
	}

	if rpcResp.Error != nil {
		slog.Warn("RPC call failed",
			slog.String("chain", c.name),
			slog.Int("code", rpcResp.Error.Code),
			slog.String("message", rpcResp.Error.Message))
		return "", fmt.Errorf("RPC error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	var result string
	if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
		return "", fmt.Errorf("malformed RPC result: %w", err)
	}
	return result, nil
}

// Symbol reads the token's ticker symbol.
func (c *Client) Symbol(ctx context.Context, address string) (string, error) {
	result, err := c.ethCall(ctx, address, selectorSymbol)
	if err != nil {
		return "", err
	}
	return decodeString(result)
}

// Name reads the token's display name.
func (c *Client) Name(ctx context.Context, address string) (string, error) {
	result, err := c.ethCall(ctx, address, selectorName)
	if err != nil {
		return "", err
	}
	return decodeString(result)
}

// Decimals reads the token's decimal precision.
func (c *Client) Decimals(ctx context.Context, address string) (int, error) {
	result, err := c.ethCall(ctx, address, selectorDecimals)
	if err != nil {
		return 0, err
	}
	d, err := decodeUint256(result)
	if err != nil {
		return 0, err
	}
	return int(d.IntPart()), nil
}

// TotalSupply reads the total supply in raw units.
func (c *Client) TotalSupply(ctx context.Context, address string) (decimal.Decimal, error) {
	result, err := c.ethCall(ctx, address, selectorTotalSupply)
	if err != nil {
		return decimal.Zero, err
	}
	return decodeUint256(result)
}

// BalanceOf reads a holder's balance in raw units.
func (c *Client) BalanceOf(ctx context.Context, token, holder string) (decimal.Decimal, error) {
	result, err := c.ethCall(ctx, token, selectorBalanceOf+encodeAddressArg(holder))
	if err != nil {
		return decimal.Zero, err
	}
	return decodeUint256(result)
}
