package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// LiFiClient LiFi API client
type LiFiClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewLiFiClient creates a new LiFi client
func NewLiFiClient() *LiFiClient {
	return &LiFiClient{
		baseURL: "https://li.quest/v1",
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// LiFiQuoteRequest represents LiFi quote request
type LiFiQuoteRequest struct {
	FromChain   string  `json:"fromChain"`
	ToChain     string  `json:"toChain"`
	FromToken   string  `json:"fromToken"`
	ToToken     string  `json:"toToken"`
	FromAmount  string  `json:"fromAmount"`
	FromAddress string  `json:"fromAddress,omitempty"`
	ToAddress   string  `json:"toAddress,omitempty"`
	Slippage    float64 `json:"slippage,omitempty"` // fraction, e.g. 0.005
}

// LiFiQuoteResponse represents LiFi quote response
type LiFiQuoteResponse struct {
	Type   string `json:"type"`
	Id     string `json:"id"`
	Tool   string `json:"tool"`
	Action struct {
		FromChainId int    `json:"fromChainId"`
		ToChainId   int    `json:"toChainId"`
		FromToken   Token  `json:"fromToken"`
		ToToken     Token  `json:"toToken"`
		FromAmount  string `json:"fromAmount"`
		ToAmount    string `json:"toAmount"`
		Slippage    string `json:"slippage"`
	} `json:"action"`
	Estimate struct {
		Tool              string    `json:"tool"`
		FromAmount        string    `json:"fromAmount"`
		ToAmount          string    `json:"toAmount"`
		ToAmountMin       string    `json:"toAmountMin"`
		ApprovalAddress   string    `json:"approvalAddress"`
		ExecutionDuration int       `json:"executionDuration"` // seconds
		FeeCosts          []FeeCost `json:"feeCosts"`
		GasCosts          []GasCost `json:"gasCosts"`
	} `json:"estimate"`
	TransactionRequest *LiFiTransactionRequest `json:"transactionRequest,omitempty"`
}

// LiFiTransactionRequest represents the transaction data returned with a quote
type LiFiTransactionRequest struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	GasLimit string `json:"gasLimit"`
	ChainId  int    `json:"chainId"`
}

// LiFiStatusResponse represents LiFi transfer status response
type LiFiStatusResponse struct {
	Status    string `json:"status"`    // NOT_FOUND, PENDING, DONE, FAILED
	Substatus string `json:"substatus"` // e.g. REFUNDED, PARTIAL
	Sending   struct {
		TxHash  string `json:"txHash"`
		ChainId int    `json:"chainId"`
	} `json:"sending"`
	Receiving struct {
		TxHash  string `json:"txHash"`
		ChainId int    `json:"chainId"`
		Amount  string `json:"amount"`
	} `json:"receiving"`
}

// Token represents a token
type Token struct {
	Address  string `json:"address"`
	ChainId  int    `json:"chainId"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	Name     string `json:"name"`
	PriceUSD string `json:"priceUSD"`
}

// FeeCost represents fee cost
type FeeCost struct {
	Name      string `json:"name"`
	Amount    string `json:"amount"`
	AmountUSD string `json:"amountUSD"`
	Token     Token  `json:"token"`
}

// GasCost represents gas cost
type GasCost struct {
	Type      string `json:"type"`
	Amount    string `json:"amount"`
	AmountUSD string `json:"amountUSD"`
	Token     Token  `json:"token"`
	Estimate  string `json:"estimate"`
	Limit     string `json:"limit"`
}

// GetQuote gets a quote from LiFi. When FromAddress is set, the response
// also carries the ready-to-sign transactionRequest.
func (c *LiFiClient) GetQuote(ctx context.Context, req *LiFiQuoteRequest) (*LiFiQuoteResponse, error) {
	// Build query parameters
	params := url.Values{}
	params.Add("fromChain", req.FromChain)
	params.Add("toChain", req.ToChain)
	params.Add("fromToken", req.FromToken)
	params.Add("toToken", req.ToToken)
	params.Add("fromAmount", req.FromAmount)

	if req.FromAddress != "" {
		params.Add("fromAddress", req.FromAddress)
	}
	if req.ToAddress != "" {
		params.Add("toAddress", req.ToAddress)
	}
	if req.Slippage > 0 {
		params.Add("slippage", strconv.FormatFloat(req.Slippage, 'f', -1, 64))
	}

	var quoteResp LiFiQuoteResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/quote?%s", c.baseURL, params.Encode()), &quoteResp); err != nil {
		return nil, err
	}
	return &quoteResp, nil
}

// GetStatus gets the transfer status for a source transaction hash
func (c *LiFiClient) GetStatus(ctx context.Context, txHash string) (*LiFiStatusResponse, error) {
	params := url.Values{}
	params.Add("txHash", txHash)

	var statusResp LiFiStatusResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/status?%s", c.baseURL, params.Encode()), &statusResp); err != nil {
		return nil, err
	}
	return &statusResp, nil
}

func (c *LiFiClient) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	// Create HTTP request
	httpReq, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Execute request
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	// Check status code
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("LiFi API error (status %d): %s", resp.StatusCode, string(body))
	}

	// Parse response
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetLiFiChainId converts chain ID to LiFi chain ID string
func GetLiFiChainId(chainID uint32) string {
	// LiFi uses string chain IDs
	return fmt.Sprintf("%d", chainID)
}

// FormatDuration formats execution duration in seconds to human-readable string
func FormatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	minutes := seconds / 60
	remaining := seconds % 60
	if remaining > 0 {
		return fmt.Sprintf("%d-%dmin", minutes, minutes+1)
	}
	return fmt.Sprintf("%dmin", minutes)
}
