package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"sweep-backend/internal/utils"
)

// GasRefreshInterval how often the live gas oracles are polled
const GasRefreshInterval = 5 * time.Minute

// sweepGasUnits assumed gas for a dust swap plus a bridge submission
const sweepGasUnits = 400_000

// gasOracle one chain's scan gas tracker endpoint plus the native token
// price assumption used to turn gwei into USD
type gasOracle struct {
	url       string
	nativeUsd float64
}

// defaultGasOracles chains with a public gas tracker; the L2s are not
// listed, their costs barely move and the static estimates cover them
func defaultGasOracles() map[string]gasOracle {
	return map[string]gasOracle{
		"ethereum": {url: "https://api.etherscan.io/api?module=gastracker&action=gasoracle", nativeUsd: 3000},
		"bsc":      {url: "https://api.bscscan.com/api?module=gastracker&action=gasoracle", nativeUsd: 600},
		"polygon":  {url: "https://api.polygonscan.com/api?module=gastracker&action=gasoracle", nativeUsd: 0.7},
	}
}

// GasOracleResponse scan gas tracker API response
type GasOracleResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  struct {
		SafeGasPrice    string `json:"SafeGasPrice"`
		ProposeGasPrice string `json:"ProposeGasPrice"`
		FastGasPrice    string `json:"FastGasPrice"`
	} `json:"result"`
}

// GasPriceClient resolves per-chain gas cost in USD. Chains with a public
// gas oracle get a live figure refreshed in the background; everything
// else, and every fetch failure, falls back to the static registry
// estimates. GasUsd never fails and never blocks on the network.
type GasPriceClient struct {
	httpClient *http.Client
	oracles    map[string]gasOracle

	mu         sync.RWMutex
	usdByChain map[string]float64
}

// NewGasPriceClient creates a gas price client. Without StartRefreshing it
// serves the static estimates only.
func NewGasPriceClient() *GasPriceClient {
	return &GasPriceClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		oracles:    defaultGasOracles(),
		usdByChain: make(map[string]float64),
	}
}

// GasUsd the assumed swap+bridge gas cost on a chain in USD
func (c *GasPriceClient) GasUsd(chain string) float64 {
	c.mu.RLock()
	usd, ok := c.usdByChain[chain]
	c.mu.RUnlock()
	if ok {
		return usd
	}
	return utils.GasEstimateUsd(chain)
}

// StartRefreshing polls the gas oracles until ctx is cancelled
func (c *GasPriceClient) StartRefreshing(ctx context.Context, interval time.Duration) {
	go func() {
		c.Refresh(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Refresh(ctx)
			}
		}
	}()
	log.Printf("✅ [GasPrice] Oracle refresh started (%d chains, every %s)", len(c.oracles), interval)
}

// Refresh queries every configured oracle once. A failed chain keeps its
// previous value, or the static estimate if it never resolved.
func (c *GasPriceClient) Refresh(ctx context.Context) {
	for chain, oracle := range c.oracles {
		gwei, err := c.fetchGasPrice(ctx, oracle.url)
		if err != nil {
			log.Printf("⚠️ [GasPrice] Oracle fetch failed for %s: %v", chain, err)
			continue
		}
		usd := gasCostUsd(gwei, sweepGasUnits, oracle.nativeUsd)
		c.mu.Lock()
		c.usdByChain[chain] = usd
		c.mu.Unlock()
	}
}

// fetchGasPrice returns the oracle's proposed gas price in gwei
func (c *GasPriceClient) fetchGasPrice(ctx context.Context, oracleURL string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", oracleURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("gas oracle error (status %d): %s", resp.StatusCode, string(body))
	}

	var oracleResp GasOracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&oracleResp); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if oracleResp.Status != "1" {
		return 0, fmt.Errorf("gas oracle rejected request: %s", oracleResp.Message)
	}

	gwei, err := strconv.ParseFloat(oracleResp.Result.ProposeGasPrice, 64)
	if err != nil || gwei <= 0 {
		return 0, fmt.Errorf("invalid gas price %q", oracleResp.Result.ProposeGasPrice)
	}
	return gwei, nil
}

// gasCostUsd gasUnits at gwei on a chain whose native token trades at
// nativeUsd: units * gwei * 1e-9 * price
func gasCostUsd(gwei float64, gasUnits int, nativeUsd float64) float64 {
	return float64(gasUnits) * gwei * 1e-9 * nativeUsd
}
