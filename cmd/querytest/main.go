package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"tokenscope/internal/cache"
	"tokenscope/internal/domain"
	"tokenscope/internal/infra"
	"tokenscope/internal/infra/chain"
	"tokenscope/internal/infra/price"
	"tokenscope/internal/query"
	"tokenscope/internal/telemetry"
	"tokenscope/pkg/format"
)

// Manual harness: queries one token end to end against live endpoints
// and prints what the cache layer sees. No config file, no database.
func main() {
	var (
		address  = flag.String("address", "0x6B175474E89094C44Da98b954EedeAC495271d0F", "token contract address")
		chainID  = flag.Int64("chain", 1, "chain id")
		rpcURL   = flag.String("rpc", "https://eth.llamarpc.com", "JSON-RPC endpoint")
		priceURL = flag.String("price-api", "https://api.coingecko.com/api/v3", "market data API base URL")
		holder   = flag.String("holder", "", "optional holder address for a balance read")
	)
	flag.Parse()

	fmt.Println("=== Tokenscope Query Harness ===")
	fmt.Println()

	perf := telemetry.New("querytest", infra.DefaultUserAgent)
	qc, err := cache.New(cache.DefaultConfig(), perf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cache: %v\n", err)
		os.Exit(1)
	}

	registry := chain.NewRegistry([]infra.ChainConfig{
		{ID: *chainID, Name: fmt.Sprintf("chain-%d", *chainID), RPCURL: *rpcURL},
	})
	prices := price.NewClient(*priceURL, os.Getenv("TOKENSCOPE_PRICE_API_KEY"), 1, 10)

	svc := query.NewService(qc,
		func(id int64) (query.ChainReader, error) {
			c, err := registry.Client(id)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		prices, nil, perf)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// 1. Metadata aggregate (4 concurrent reads)
	start := time.Now()
	meta, err := svc.Token(ctx, *address, *chainID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token query failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("📊 %s (%s)\n", meta.Name, meta.Symbol)
	fmt.Printf("   Address:  %s\n", format.ShortenAddress(meta.Address))
	fmt.Printf("   Decimals: %d\n", meta.Decimals)
	fmt.Printf("   Supply:   %s %s\n", format.FormatCompact(meta.SupplyUnits()), meta.Symbol)
	fmt.Printf("   Latency:  %s (cold)\n", time.Since(start).Round(time.Millisecond))
	fmt.Println()

	// 2. Same query again: every field should come from cache
	start = time.Now()
	if _, err := svc.Token(ctx, *address, *chainID); err != nil {
		fmt.Fprintf(os.Stderr, "cached token query failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("⚡ Cached re-query: %s, hit rate %.0f%%\n",
		time.Since(start).Round(time.Microsecond), perf.HitRate()*100)
	fmt.Println()

	// 3. Optional balance read
	if *holder != "" {
		balance, err := svc.Balance(ctx, *address, *holder, *chainID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "balance query failed: %v\n", err)
		} else {
			fmt.Printf("💰 Balance of %s: %s\n",
				format.ShortenAddress(*holder),
				format.FormatAmount(balance, meta.Decimals, meta.Symbol))
			fmt.Println()
		}
	}

	// 4. Market quote
	quote, err := svc.Price(ctx, *address, *chainID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "price query failed: %v\n", err)
	} else {
		fmt.Printf("💹 Price: $%s (%s%% 24h)\n",
			quote.PriceUSD.StringFixed(4), quote.Change24h.StringFixed(2))
		fmt.Println()
	}

	// 5. 7-day history sample
	points, err := svc.PriceHistory(ctx, *address, *chainID, domain.Window7d)
	if err != nil {
		fmt.Fprintf(os.Stderr, "history query failed: %v\n", err)
	} else if len(points) > 0 {
		first, last := points[0], points[len(points)-1]
		fmt.Printf("📈 7d history: %d points, $%s → $%s\n",
			len(points), first.PriceUSD.StringFixed(4), last.PriceUSD.StringFixed(4))
		fmt.Println()
	}

	fmt.Println("✅ All reads went through the staleness cache!")
}
