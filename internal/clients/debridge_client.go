package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DeBridgeClient deBridge API client
type DeBridgeClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDeBridgeClient creates a new deBridge client
func NewDeBridgeClient() *DeBridgeClient {
	return &DeBridgeClient{
		baseURL: "https://api.dln.trade/v1.0",
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// DeBridgeQuoteRequest represents deBridge quote request
type DeBridgeQuoteRequest struct {
	SrcChainId                string `json:"srcChainId"`
	SrcChainTokenIn           string `json:"srcChainTokenIn"`
	SrcChainTokenInAmount     string `json:"srcChainTokenInAmount"`
	DstChainId                string `json:"dstChainId"`
	DstChainTokenOut          string `json:"dstChainTokenOut"`
	DstChainTokenOutRecipient string `json:"dstChainTokenOutRecipient,omitempty"`
}

// DeBridgeQuoteResponse represents deBridge quote response
type DeBridgeQuoteResponse struct {
	Estimation struct {
		SrcChainTokenIn struct {
			Address  string `json:"address"`
			Symbol   string `json:"symbol"`
			Name     string `json:"name"`
			Decimals int    `json:"decimals"`
			Amount   string `json:"amount"`
		} `json:"srcChainTokenIn"`
		DstChainTokenOut struct {
			Address         string `json:"address"`
			Symbol          string `json:"symbol"`
			Name            string `json:"name"`
			Decimals        int    `json:"decimals"`
			Amount          string `json:"amount"`
			MaxRefundAmount string `json:"maxRefundAmount"`
		} `json:"dstChainTokenOut"`
		DstChainTokenOutMin struct {
			Amount string `json:"amount"`
		} `json:"dstChainTokenOutMin,omitempty"`
		RecommendedSlippage float64 `json:"recommendedSlippage"`
		CostsDetails        []struct {
			Chain   string `json:"chain"`
			Type    string `json:"type"`
			Payload struct {
				NativeCurrency string `json:"nativeCurrency"`
				NativeAmount   string `json:"nativeAmount"`
				USDAmount      string `json:"usdAmount"`
			} `json:"payload"`
		} `json:"costsDetails"`
	} `json:"estimation"`
	Tx struct {
		To    string `json:"to"`
		Data  string `json:"data"`
		Value string `json:"value"`
	} `json:"tx"`
	Order struct {
		ApproximateFulfillmentDelay int `json:"approximateFulfillmentDelay"` // seconds
	} `json:"order"`
}

// DeBridgeOrderIdsResponse maps a source tx hash to DLN order IDs
type DeBridgeOrderIdsResponse struct {
	OrderIds []string `json:"orderIds"`
}

// DeBridgeOrderStatusResponse represents DLN order status
type DeBridgeOrderStatusResponse struct {
	OrderId string `json:"orderId"`
	// Created, Fulfilled, SentUnlock, ClaimedUnlock, OrderCancelled,
	// SentOrderCancel, ClaimedOrderCancel
	Status string `json:"status"`
}

// GetQuote gets a quote from deBridge. When a recipient is set, the
// response also carries the ready-to-sign tx payload.
func (c *DeBridgeClient) GetQuote(ctx context.Context, req *DeBridgeQuoteRequest) (*DeBridgeQuoteResponse, error) {
	// Build query parameters
	params := url.Values{}
	params.Add("srcChainId", req.SrcChainId)
	params.Add("srcChainTokenIn", req.SrcChainTokenIn)
	params.Add("srcChainTokenInAmount", req.SrcChainTokenInAmount)
	params.Add("dstChainId", req.DstChainId)
	params.Add("dstChainTokenOut", req.DstChainTokenOut)

	if req.DstChainTokenOutRecipient != "" {
		params.Add("dstChainTokenOutRecipient", req.DstChainTokenOutRecipient)
	}

	var quoteResp DeBridgeQuoteResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/dln/order/quote?%s", c.baseURL, params.Encode()), &quoteResp); err != nil {
		return nil, err
	}
	return &quoteResp, nil
}

// GetOrderStatus resolves the source tx hash to its DLN order and returns
// the order status
func (c *DeBridgeClient) GetOrderStatus(ctx context.Context, txHash string) (*DeBridgeOrderStatusResponse, error) {
	var ids DeBridgeOrderIdsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/dln/tx/%s/order-ids", c.baseURL, txHash), &ids); err != nil {
		return nil, err
	}
	if len(ids.OrderIds) == 0 {
		return &DeBridgeOrderStatusResponse{Status: "Created"}, nil
	}

	var status DeBridgeOrderStatusResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/dln/order/%s/status", c.baseURL, ids.OrderIds[0]), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *DeBridgeClient) getJSON(ctx context.Context, reqURL string, out interface{}) error {
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
		return fmt.Errorf("deBridge API error (status %d): %s", resp.StatusCode, string(body))
	}

	// Parse response
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetDeBridgeChainId converts chain ID to deBridge internal chain ID string
func GetDeBridgeChainId(chainID uint32) string {
	// DLN uses standard chain IDs for the EVM chains handled here
	return fmt.Sprintf("%d", chainID)
}
