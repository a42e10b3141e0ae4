package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiFiGetQuoteQueryParams(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`{"id":"q-1","tool":"stargate","estimate":{"toAmount":"995000","toAmountMin":"990000","executionDuration":120}}`))
	}))
	defer srv.Close()

	c := NewLiFiClient()
	c.baseURL = srv.URL

	resp, err := c.GetQuote(context.Background(), &LiFiQuoteRequest{
		FromChain:  "8453",
		ToChain:    "42161",
		FromToken:  "0xusdc-base",
		ToToken:    "0xusdc-arb",
		FromAmount: "1000000",
		Slippage:   0.005,
	})
	require.NoError(t, err)
	assert.Equal(t, "995000", resp.Estimate.ToAmount)

	assert.Equal(t, []string{"8453"}, query["fromChain"])
	assert.Equal(t, []string{"1000000"}, query["fromAmount"])
	assert.Equal(t, []string{"0.005"}, query["slippage"])
}

func TestLiFiGetQuoteOmitsZeroSlippage(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewLiFiClient()
	c.baseURL = srv.URL

	_, err := c.GetQuote(context.Background(), &LiFiQuoteRequest{
		FromChain:  "8453",
		ToChain:    "42161",
		FromToken:  "0xa",
		ToToken:    "0xb",
		FromAmount: "1000000",
	})
	require.NoError(t, err)
	assert.NotContains(t, query, "slippage")
}
