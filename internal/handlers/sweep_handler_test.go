package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sweep-backend/internal/cache"
	"sweep-backend/internal/clients"
	"sweep-backend/internal/config"
	"sweep-backend/internal/models"
	"sweep-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAggregator quotes every route identically
type stubAggregator struct {
	quote *models.BridgeQuote
}

func (s *stubAggregator) GetBestQuote(_ context.Context, req *services.QuoteRequest) (*models.BridgeQuote, error) {
	if s.quote == nil {
		return nil, nil
	}
	q := *s.quote
	q.SourceChain = req.SourceChain
	q.DestinationChain = req.DestinationChain
	q.InputAmount = req.Amount.Clone()
	return &q, nil
}

func (s *stubAggregator) GetCachedQuote(context.Context, string) (*models.BridgeQuote, error) {
	return nil, nil
}

func (s *stubAggregator) BuildTransaction(context.Context, *models.BridgeQuote, string) (*models.BridgeTransaction, error) {
	return &models.BridgeTransaction{}, nil
}

func (s *stubAggregator) GetStatus(context.Context, models.BridgeProvider, string, string, string) (*models.BridgeReceipt, error) {
	return &models.BridgeReceipt{Status: models.BridgeLegStatusBridging}, nil
}

// stubProducer records job types
type stubProducer struct {
	jobTypes []string
}

func (p *stubProducer) Enqueue(_ context.Context, jobType string, _ interface{}, _ time.Duration) error {
	p.jobTypes = append(p.jobTypes, jobType)
	return nil
}

type handlerFixture struct {
	router   *gin.Engine
	planner  *services.SweepPlannerService
	store    *cache.MemoryPlanStore
	producer *stubProducer
}

func newHandlerFixture() *handlerFixture {
	gin.SetMode(gin.TestMode)
	config.AppConfig = config.DefaultConfig()

	agg := &stubAggregator{quote: &models.BridgeQuote{
		Provider:      models.BridgeProviderLiFi,
		OutputAmount:  models.NewBigInt(39_500_000),
		EstimatedTime: 120,
		ExpiresAt:     time.Now().Add(3 * time.Minute).UnixMilli(),
	}}
	store := cache.NewMemoryPlanStore()
	planner := services.NewSweepPlannerService(agg, store, clients.NewGasPriceClient())
	comparator := services.NewStrategyComparatorService(planner, agg)
	producer := &stubProducer{}

	h := NewSweepHandler(planner, comparator, producer, store)
	r := gin.New()
	r.POST("/api/sweep/plan", h.CalculatePlanHandler)
	r.POST("/api/sweep/compare", h.CompareStrategiesHandler)
	r.POST("/api/sweep/execute", h.ExecutePlanHandler)
	r.GET("/api/sweep/plan/:id", h.GetPlanHandler)

	return &handlerFixture{router: r, planner: planner, store: store, producer: producer}
}

func planRequestBody() []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"userId":           "user-1",
		"destinationChain": "arbitrum",
		"destinationToken": "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
		"tokens": []map[string]interface{}{
			{
				"chain": "base",
				"tokens": []map[string]interface{}{
					{"address": "0xdai", "symbol": "DAI", "decimals": 18, "amount": "1000000000", "valueUsd": 40},
				},
			},
		},
	})
	return body
}

func (f *handlerFixture) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestCalculatePlanEndpoint(t *testing.T) {
	f := newHandlerFixture()

	w := f.do(http.MethodPost, "/api/sweep/plan", planRequestBody())
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Plan  models.SweepPlan           `json:"plan"`
		Costs services.SweepCostAnalysis `json:"costs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Plan.ID)
	require.Len(t, resp.Plan.Bridges, 1)
	assert.Equal(t, "base", resp.Plan.Bridges[0].SourceChain)
	assert.Greater(t, resp.Costs.TotalFeesUsd, 0.0)
}

func TestCalculatePlanEndpointValidation(t *testing.T) {
	f := newHandlerFixture()

	// no tokens
	body, _ := json.Marshal(map[string]interface{}{
		"userId":           "user-1",
		"destinationChain": "arbitrum",
		"destinationToken": "0xusdc",
	})
	w := f.do(http.MethodPost, "/api/sweep/plan", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown chain
	body, _ = json.Marshal(map[string]interface{}{
		"userId":           "user-1",
		"destinationChain": "dogechain",
		"destinationToken": "0xusdc",
		"tokens":           []map[string]interface{}{{"chain": "base"}},
	})
	w = f.do(http.MethodPost, "/api/sweep/plan", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExecutePlanEndpoint(t *testing.T) {
	f := newHandlerFixture()

	// calculate first so the plan exists
	w := f.do(http.MethodPost, "/api/sweep/plan", planRequestBody())
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Plan models.SweepPlan `json:"plan"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	body, _ := json.Marshal(map[string]string{"planId": resp.Plan.ID, "userId": "user-1"})
	w = f.do(http.MethodPost, "/api/sweep/execute", body)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"sweep.execute"}, f.producer.jobTypes)
}

func TestExecutePlanEndpointMissingPlan(t *testing.T) {
	f := newHandlerFixture()

	body, _ := json.Marshal(map[string]string{"planId": "plan-gone", "userId": "user-1"})
	w := f.do(http.MethodPost, "/api/sweep/execute", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, f.producer.jobTypes)
}

func TestExecutePlanEndpointExpiredPlan(t *testing.T) {
	f := newHandlerFixture()

	plan := &models.SweepPlan{
		ID:        "plan-stale",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(-time.Second).UnixMilli(),
	}
	require.NoError(t, f.store.SavePlan(context.Background(), plan, time.Minute))

	body, _ := json.Marshal(map[string]string{"planId": "plan-stale", "userId": "user-1"})
	w := f.do(http.MethodPost, "/api/sweep/execute", body)
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestExecutePlanEndpointNoOpPlan(t *testing.T) {
	f := newHandlerFixture()

	// zero legs and nothing on the destination chain
	plan := &models.SweepPlan{
		ID:        "plan-empty",
		UserID:    "user-1",
		NoOp:      true,
		ExpiresAt: time.Now().Add(time.Minute).UnixMilli(),
	}
	require.NoError(t, f.store.SavePlan(context.Background(), plan, time.Minute))

	body, _ := json.Marshal(map[string]string{"planId": "plan-empty", "userId": "user-1"})
	w := f.do(http.MethodPost, "/api/sweep/execute", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "PLAN_NO_OP")
	assert.Empty(t, f.producer.jobTypes)
}

func TestGetPlanEndpoint(t *testing.T) {
	f := newHandlerFixture()

	w := f.do(http.MethodPost, "/api/sweep/plan", planRequestBody())
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		Plan models.SweepPlan `json:"plan"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = f.do(http.MethodGet, "/api/sweep/plan/"+created.Plan.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Plan               models.SweepPlan `json:"plan"`
		Expired            bool             `json:"expired"`
		OutstandingBridges int              `json:"outstandingBridges"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created.Plan.ID, resp.Plan.ID)
	assert.False(t, resp.Expired)
	assert.Equal(t, 1, resp.OutstandingBridges)

	w = f.do(http.MethodGet, "/api/sweep/plan/plan-unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
