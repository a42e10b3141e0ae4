package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sweep-backend/internal/config"
	"sweep-backend/internal/models"
	"sweep-backend/internal/repository"
	"sweep-backend/internal/utils"
)

func initTestConfig() {
	config.AppConfig = config.DefaultConfig()
}

// staticGas GasEstimator serving the registry estimates only
type staticGas struct{}

func (staticGas) GasUsd(chain string) float64 { return utils.GasEstimateUsd(chain) }

// fakeAggregator scriptable QuoteAggregator for planner and worker tests
type fakeAggregator struct {
	mu sync.Mutex

	quotes     map[string]*models.BridgeQuote // "src->dst"
	quoteErr   error
	cached     map[string]*models.BridgeQuote // by quote id
	buildErr   map[string]error               // by source chain
	built      []string
	statusErrs map[string]error
	receipts   map[string]*models.BridgeReceipt // by source tx hash
}

func newFakeAggregator() *fakeAggregator {
	return &fakeAggregator{
		quotes:     make(map[string]*models.BridgeQuote),
		cached:     make(map[string]*models.BridgeQuote),
		buildErr:   make(map[string]error),
		statusErrs: make(map[string]error),
		receipts:   make(map[string]*models.BridgeReceipt),
	}
}

func routeKey(src, dst string) string { return src + "->" + dst }

func (f *fakeAggregator) GetBestQuote(_ context.Context, req *QuoteRequest) (*models.BridgeQuote, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	q, ok := f.quotes[routeKey(req.SourceChain, req.DestinationChain)]
	if !ok {
		return nil, nil
	}
	out := *q
	out.SourceChain = req.SourceChain
	out.DestinationChain = req.DestinationChain
	if out.InputAmount == nil {
		out.InputAmount = req.Amount.Clone()
	}
	return &out, nil
}

func (f *fakeAggregator) GetCachedQuote(_ context.Context, quoteID string) (*models.BridgeQuote, error) {
	return f.cached[quoteID], nil
}

func (f *fakeAggregator) BuildTransaction(_ context.Context, quote *models.BridgeQuote, sender string) (*models.BridgeTransaction, error) {
	f.mu.Lock()
	f.built = append(f.built, quote.SourceChain)
	f.mu.Unlock()
	if err, ok := f.buildErr[quote.SourceChain]; ok {
		return nil, err
	}
	return &models.BridgeTransaction{
		Provider:    quote.Provider,
		QuoteID:     quote.QuoteID,
		SourceChain: quote.SourceChain,
		To:          "0x00000000000000000000000000000000000000aa",
		Data:        "0xdeadbeef",
		Value:       models.NewBigInt(0),
	}, nil
}

func (f *fakeAggregator) GetStatus(_ context.Context, _ models.BridgeProvider, sourceTxHash, _, _ string) (*models.BridgeReceipt, error) {
	if err, ok := f.statusErrs[sourceTxHash]; ok {
		return nil, err
	}
	if r, ok := f.receipts[sourceTxHash]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("no scripted receipt for %s", sourceTxHash)
}

// fakeProducer records every enqueue
type fakeProducer struct {
	mu       sync.Mutex
	enqueued []enqueuedJob
	err      error
}

type enqueuedJob struct {
	jobType string
	payload interface{}
	delay   time.Duration
}

func (p *fakeProducer) Enqueue(_ context.Context, jobType string, payload interface{}, delay time.Duration) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	p.enqueued = append(p.enqueued, enqueuedJob{jobType: jobType, payload: payload, delay: delay})
	p.mu.Unlock()
	return nil
}

func (p *fakeProducer) jobs() []enqueuedJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]enqueuedJob, len(p.enqueued))
	copy(out, p.enqueued)
	return out
}

// fakeNotifier records notifications
type fakeNotifier struct {
	mu     sync.Mutex
	events []*models.BridgeNotification
}

func (n *fakeNotifier) Notify(_ context.Context, e *models.BridgeNotification) {
	n.mu.Lock()
	n.events = append(n.events, e)
	n.mu.Unlock()
}

func (n *fakeNotifier) byType(t string) []*models.BridgeNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*models.BridgeNotification
	for _, e := range n.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// fakeSubmitter returns deterministic hashes and records submission order
type fakeSubmitter struct {
	mu    sync.Mutex
	order []string
	errs  map[string]error // by source chain
}

func (s *fakeSubmitter) Submit(_ context.Context, tx *models.BridgeTransaction, _ string) (string, error) {
	s.mu.Lock()
	s.order = append(s.order, tx.SourceChain)
	s.mu.Unlock()
	if err, ok := s.errs[tx.SourceChain]; ok {
		return "", err
	}
	return fmt.Sprintf("0xhash-%s", tx.SourceChain), nil
}

// fakeHistory in-memory repository.HistoryRepository
type fakeHistory struct {
	mu      sync.Mutex
	entries map[string]*models.BridgeHistoryEntry
}

var _ repository.HistoryRepository = (*fakeHistory)(nil)

func newFakeHistory() *fakeHistory {
	return &fakeHistory{entries: make(map[string]*models.BridgeHistoryEntry)}
}

func (h *fakeHistory) Upsert(_ context.Context, entry *models.BridgeHistoryEntry) error {
	h.mu.Lock()
	cp := *entry
	h.entries[entry.ID] = &cp
	h.mu.Unlock()
	return nil
}

func (h *fakeHistory) GetByID(_ context.Context, id string) (*models.BridgeHistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[id], nil
}

func (h *fakeHistory) ListByUser(_ context.Context, userID string, status models.BridgeLegStatus, _, _ int) ([]*models.BridgeHistoryEntry, int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*models.BridgeHistoryEntry
	for _, e := range h.entries {
		if e.UserID == userID && (status == "" || e.Status == status) {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (h *fakeHistory) CountByUser(_ context.Context, userID string) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var n int64
	for _, e := range h.entries {
		if e.UserID == userID {
			n++
		}
	}
	return n, nil
}

// usdc token amount helper, 6 decimals
func usdc(amount int64) *models.BigInt {
	return models.NewBigInt(amount)
}

func testQuote(provider models.BridgeProvider, outputUsdc int64, estimatedTime int, fastFill bool) *models.BridgeQuote {
	return &models.BridgeQuote{
		Provider:      provider,
		OutputAmount:  usdc(outputUsdc),
		Fees:          models.BridgeFees{BridgeFee: usdc(200000), GasFee: usdc(100000)},
		EstimatedTime: estimatedTime,
		IsFastFill:    fastFill,
		ExpiresAt:     time.Now().Add(3 * time.Minute).UnixMilli(),
	}
}

func dustToken(symbol string, valueUsd float64) models.TokenBalance {
	return models.TokenBalance{
		Address:  "0x" + symbol,
		Symbol:   symbol,
		Decimals: 18,
		Amount:   models.NewBigInt(1_000_000_000),
		ValueUsd: valueUsd,
	}
}
