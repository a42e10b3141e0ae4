package utils

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ChainInfo static metadata for one supported chain
type ChainInfo struct {
	Slug           string  `json:"slug"`             // canonical lowercase name used in plans and API payloads
	ChainID        uint64  `json:"chain_id"`         // EVM chain id
	Name           string  `json:"name"`             // display name
	NativeToken    string  `json:"native_token"`     // native token symbol
	GasEstimateUsd float64 `json:"gas_estimate_usd"` // assumed swap+bridge gas cost on this chain
	USDCAddress    string  `json:"usdc_address"`
	WETHAddress    string  `json:"weth_address"`
	ExplorerURL    string  `json:"explorer_url"`
}

// ChainRegistry lookup of supported chains by slug and chain id
type ChainRegistry struct {
	bySlug map[string]*ChainInfo
	byID   map[uint64]*ChainInfo
	order  []string
}

// GlobalChainRegistry the registry used across the service
var GlobalChainRegistry *ChainRegistry

func init() {
	GlobalChainRegistry = &ChainRegistry{
		bySlug: make(map[string]*ChainInfo),
		byID:   make(map[uint64]*ChainInfo),
	}

	chains := []*ChainInfo{
		{
			Slug:           "ethereum",
			ChainID:        1,
			Name:           "Ethereum",
			NativeToken:    "ETH",
			GasEstimateUsd: 15,
			USDCAddress:    "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
			WETHAddress:    "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
			ExplorerURL:    "https://etherscan.io",
		},
		{
			Slug:           "base",
			ChainID:        8453,
			Name:           "Base",
			NativeToken:    "ETH",
			GasEstimateUsd: 0.05,
			USDCAddress:    "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
			WETHAddress:    "0x4200000000000000000000000000000000000006",
			ExplorerURL:    "https://basescan.org",
		},
		{
			Slug:           "arbitrum",
			ChainID:        42161,
			Name:           "Arbitrum One",
			NativeToken:    "ETH",
			GasEstimateUsd: 0.1,
			USDCAddress:    "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
			WETHAddress:    "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
			ExplorerURL:    "https://arbiscan.io",
		},
		{
			Slug:           "polygon",
			ChainID:        137,
			Name:           "Polygon",
			NativeToken:    "MATIC",
			GasEstimateUsd: 0.01,
			USDCAddress:    "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
			WETHAddress:    "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619",
			ExplorerURL:    "https://polygonscan.com",
		},
		{
			Slug:           "optimism",
			ChainID:        10,
			Name:           "Optimism",
			NativeToken:    "ETH",
			GasEstimateUsd: 0.05,
			USDCAddress:    "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85",
			WETHAddress:    "0x4200000000000000000000000000000000000006",
			ExplorerURL:    "https://optimistic.etherscan.io",
		},
		{
			Slug:           "bsc",
			ChainID:        56,
			Name:           "BNB Chain",
			NativeToken:    "BNB",
			GasEstimateUsd: 0.2,
			USDCAddress:    "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d",
			WETHAddress:    "0x2170Ed0880ac9A755fd29B2688956BD959F933F8",
			ExplorerURL:    "https://bscscan.com",
		},
		{
			Slug:           "linea",
			ChainID:        59144,
			Name:           "Linea",
			NativeToken:    "ETH",
			GasEstimateUsd: 0.1,
			USDCAddress:    "0x176211869cA2b568f2A7D4EE941E073a821EE1ff",
			WETHAddress:    "0xe5D7C2a44FfDDf6b295A15c148167daaAf5Cf34f",
			ExplorerURL:    "https://lineascan.build",
		},
	}

	for _, chain := range chains {
		GlobalChainRegistry.bySlug[chain.Slug] = chain
		GlobalChainRegistry.byID[chain.ChainID] = chain
		GlobalChainRegistry.order = append(GlobalChainRegistry.order, chain.Slug)
	}
}

// GetBySlug looks up a chain by its canonical lowercase name
func (r *ChainRegistry) GetBySlug(slug string) (*ChainInfo, bool) {
	info, ok := r.bySlug[strings.ToLower(slug)]
	return info, ok
}

// GetByID looks up a chain by EVM chain id
func (r *ChainRegistry) GetByID(chainID uint64) (*ChainInfo, bool) {
	info, ok := r.byID[chainID]
	return info, ok
}

// Slugs returns all supported chain slugs in registration order
func (r *ChainRegistry) Slugs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// IsSupported reports whether the chain slug is known
func (r *ChainRegistry) IsSupported(slug string) bool {
	_, ok := r.GetBySlug(slug)
	return ok
}

// GasEstimateUsd assumed per-chain gas cost in USD; unknown chains get a
// conservative $1 like the planner's fee arithmetic expects
func GasEstimateUsd(slug string) float64 {
	if info, ok := GlobalChainRegistry.GetBySlug(slug); ok {
		return info.GasEstimateUsd
	}
	return 1
}

// ChainIDOf EVM chain id for a slug, 0 if unknown
func ChainIDOf(slug string) uint64 {
	if info, ok := GlobalChainRegistry.GetBySlug(slug); ok {
		return info.ChainID
	}
	return 0
}

// ValidateAddress checks a 0x-prefixed EVM address
func ValidateAddress(addr string) error {
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("invalid address: %s", addr)
	}
	return nil
}

// ValidateTxHash checks a 0x-prefixed 32-byte transaction hash
func ValidateTxHash(hash string) error {
	raw, err := hexutil.Decode(hash)
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("invalid transaction hash: %s", hash)
	}
	return nil
}
