package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"sweep-backend/internal/cache"
	"sweep-backend/internal/clients"
	"sweep-backend/internal/config"
	sweeperrors "sweep-backend/internal/errors"
	"sweep-backend/internal/metrics"
	"sweep-backend/internal/models"
	"sweep-backend/internal/utils"

	"github.com/google/uuid"
)

// QuoteRequest the input for a cross-provider quote comparison
type QuoteRequest struct {
	SourceChain      string
	DestinationChain string
	SourceToken      string
	DestinationToken string
	Amount           *models.BigInt
	Sender           string
	Recipient        string
	Slippage         float64
}

// QuoteAggregator compares bridge providers and resolves the winning quote
// into transactions and transfer status. Behind an interface so the planner
// and workers can be tested against a fake.
type QuoteAggregator interface {
	// GetBestQuote returns (nil, nil) when no provider can quote the route
	GetBestQuote(ctx context.Context, req *QuoteRequest) (*models.BridgeQuote, error)
	// GetCachedQuote resolves a previously issued quote by id
	GetCachedQuote(ctx context.Context, quoteID string) (*models.BridgeQuote, error)
	// BuildTransaction fails with QuoteExpired once the quote's validity
	// window has passed
	BuildTransaction(ctx context.Context, quote *models.BridgeQuote, sender string) (*models.BridgeTransaction, error)
	// GetStatus observes the provider-reported transfer status; transport
	// failures come back coded ProviderTransientError
	GetStatus(ctx context.Context, provider models.BridgeProvider, sourceTxHash, sourceChain, destinationChain string) (*models.BridgeReceipt, error)
}

// maxBridgeTimeSeconds normalization ceiling for the speed score
const maxBridgeTimeSeconds = 3600

// BridgeAggregatorService live aggregator over the LiFi and deBridge clients
type BridgeAggregatorService struct {
	lifi     *clients.LiFiClient
	debridge *clients.DeBridgeClient
	store    cache.PlanStore
}

// NewBridgeAggregatorService creates the aggregator
func NewBridgeAggregatorService(lifi *clients.LiFiClient, debridge *clients.DeBridgeClient, store cache.PlanStore) *BridgeAggregatorService {
	return &BridgeAggregatorService{
		lifi:     lifi,
		debridge: debridge,
		store:    store,
	}
}

// GetBestQuote queries all providers concurrently, scores the quotes and
// caches the winner by quote id for execution-time resolution
func (s *BridgeAggregatorService) GetBestQuote(ctx context.Context, req *QuoteRequest) (*models.BridgeQuote, error) {
	quotes := s.collectQuotes(ctx, req)
	if len(quotes) == 0 {
		log.Printf("⚠️ [BridgeAggregator] No quotes for %s -> %s", req.SourceChain, req.DestinationChain)
		return nil, nil
	}

	best := quotes[0]
	bestScore := s.scoreQuote(best)
	for _, q := range quotes[1:] {
		if score := s.scoreQuote(q); score > bestScore {
			best, bestScore = q, score
		}
	}

	ttl := config.AppConfig.Bridge.QuoteTTL()
	best.QuoteID = uuid.New().String()
	best.ExpiresAt = time.Now().Add(ttl).UnixMilli()

	if err := s.store.SetJSON(ctx, cache.QuoteKey(best.QuoteID), best, ttl); err != nil {
		log.Printf("⚠️ [BridgeAggregator] Failed to cache quote %s: %v", best.QuoteID, err)
	}

	log.Printf("✅ [BridgeAggregator] Best quote for %s -> %s: %s (score %.1f, output %s)",
		req.SourceChain, req.DestinationChain, best.Provider, bestScore, best.OutputAmount.String())
	return best, nil
}

// GetCachedQuote resolves a quote id from the plan store
func (s *BridgeAggregatorService) GetCachedQuote(ctx context.Context, quoteID string) (*models.BridgeQuote, error) {
	var quote models.BridgeQuote
	found, err := s.store.GetJSON(ctx, cache.QuoteKey(quoteID), &quote)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &quote, nil
}

func (s *BridgeAggregatorService) collectQuotes(ctx context.Context, req *QuoteRequest) []*models.BridgeQuote {
	type result struct {
		quote *models.BridgeQuote
		err   error
		name  models.BridgeProvider
	}

	var wg sync.WaitGroup
	results := make(chan result, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		q, err := s.lifiQuote(ctx, req)
		results <- result{q, err, models.BridgeProviderLiFi}
	}()
	go func() {
		defer wg.Done()
		q, err := s.debridgeQuote(ctx, req)
		results <- result{q, err, models.BridgeProviderDeBridge}
	}()
	wg.Wait()
	close(results)

	var quotes []*models.BridgeQuote
	for r := range results {
		if r.err != nil {
			metrics.QuoteRequests.WithLabelValues(string(r.name), "error").Inc()
			log.Printf("❌ [BridgeAggregator] %s quote failed for %s -> %s: %v",
				r.name, req.SourceChain, req.DestinationChain, r.err)
			continue
		}
		if r.quote != nil {
			metrics.QuoteRequests.WithLabelValues(string(r.name), "ok").Inc()
			quotes = append(quotes, r.quote)
		}
	}
	return quotes
}

// scoreQuote higher is better: output ratio dominates, then speed, fee
// efficiency and provider reliability
func (s *BridgeAggregatorService) scoreQuote(q *models.BridgeQuote) float64 {
	score := 0.0

	outputRatio := models.Ratio(q.OutputAmount, q.InputAmount)
	score += outputRatio * 50

	if q.IsFastFill {
		score += 20
	} else {
		timeScore := 20 - (float64(q.EstimatedTime)/maxBridgeTimeSeconds)*20
		if timeScore > 0 {
			score += timeScore
		}
	}

	feeRatio := models.Ratio(q.TotalFees(), q.InputAmount)
	if feeScore := 15 - feeRatio*100; feeScore > 0 {
		score += feeScore
	}

	switch q.Provider {
	case models.BridgeProviderLiFi:
		score += 12
	case models.BridgeProviderDeBridge:
		score += 10
	default:
		score += 5
	}

	return score
}

func (s *BridgeAggregatorService) lifiQuote(ctx context.Context, req *QuoteRequest) (*models.BridgeQuote, error) {
	resp, err := s.lifi.GetQuote(ctx, &clients.LiFiQuoteRequest{
		FromChain:  clients.GetLiFiChainId(uint32(utils.ChainIDOf(req.SourceChain))),
		ToChain:    clients.GetLiFiChainId(uint32(utils.ChainIDOf(req.DestinationChain))),
		FromToken:  req.SourceToken,
		ToToken:    req.DestinationToken,
		FromAmount: req.Amount.String(),
		ToAddress:  req.Recipient,
		Slippage:   req.Slippage,
	})
	if err != nil {
		return nil, err
	}

	output, err := models.NewBigIntFromString(resp.Estimate.ToAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid LiFi output amount %q: %w", resp.Estimate.ToAmount, err)
	}
	minOutput, err := models.NewBigIntFromString(resp.Estimate.ToAmountMin)
	if err != nil {
		minOutput = output.Clone()
	}

	bridgeFee := models.NewBigInt(0)
	for _, fc := range resp.Estimate.FeeCosts {
		if fee, err := models.NewBigIntFromString(fc.Amount); err == nil {
			bridgeFee.Add(&bridgeFee.Int, &fee.Int)
		}
	}
	gasFee := models.NewBigInt(0)
	for _, gc := range resp.Estimate.GasCosts {
		if fee, err := models.NewBigIntFromString(gc.Amount); err == nil {
			gasFee.Add(&gasFee.Int, &fee.Int)
		}
	}

	return &models.BridgeQuote{
		Provider:         models.BridgeProviderLiFi,
		SourceChain:      req.SourceChain,
		DestinationChain: req.DestinationChain,
		SourceToken:      req.SourceToken,
		DestinationToken: req.DestinationToken,
		InputAmount:      req.Amount.Clone(),
		OutputAmount:     output,
		MinOutputAmount:  minOutput,
		Fees: models.BridgeFees{
			BridgeFee:  bridgeFee,
			GasFee:     gasFee,
			RelayerFee: models.NewBigInt(0),
		},
		EstimatedTime: resp.Estimate.ExecutionDuration,
		IsFastFill:    resp.Estimate.ExecutionDuration > 0 && resp.Estimate.ExecutionDuration <= 60,
		MaxSlippage:   req.Slippage,
		Route: models.BridgeRoute{
			Steps: []models.RouteStep{{
				Type:      "bridge",
				Chain:     req.SourceChain,
				Protocol:  resp.Tool,
				FromToken: req.SourceToken,
				ToToken:   req.DestinationToken,
			}},
			RequiresApproval: resp.Estimate.ApprovalAddress != "",
			ApprovalAddress:  resp.Estimate.ApprovalAddress,
		},
	}, nil
}

func (s *BridgeAggregatorService) debridgeQuote(ctx context.Context, req *QuoteRequest) (*models.BridgeQuote, error) {
	resp, err := s.debridge.GetQuote(ctx, &clients.DeBridgeQuoteRequest{
		SrcChainId:                clients.GetDeBridgeChainId(uint32(utils.ChainIDOf(req.SourceChain))),
		SrcChainTokenIn:           req.SourceToken,
		SrcChainTokenInAmount:     req.Amount.String(),
		DstChainId:                clients.GetDeBridgeChainId(uint32(utils.ChainIDOf(req.DestinationChain))),
		DstChainTokenOut:          req.DestinationToken,
		DstChainTokenOutRecipient: req.Recipient,
	})
	if err != nil {
		return nil, err
	}

	output, err := models.NewBigIntFromString(resp.Estimation.DstChainTokenOut.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid deBridge output amount %q: %w", resp.Estimation.DstChainTokenOut.Amount, err)
	}
	minOutput := output.Clone()
	if resp.Estimation.DstChainTokenOutMin.Amount != "" {
		if min, err := models.NewBigIntFromString(resp.Estimation.DstChainTokenOutMin.Amount); err == nil {
			minOutput = min
		}
	}

	// DLN rolls all costs into the output, the spread is the fee
	bridgeFee := models.NewBigInt(0)
	bridgeFee.Sub(&req.Amount.Int, &output.Int)
	if bridgeFee.Sign() < 0 {
		bridgeFee = models.NewBigInt(0)
	}

	estimatedTime := resp.Order.ApproximateFulfillmentDelay
	if estimatedTime == 0 {
		estimatedTime = 120
	}

	return &models.BridgeQuote{
		Provider:         models.BridgeProviderDeBridge,
		SourceChain:      req.SourceChain,
		DestinationChain: req.DestinationChain,
		SourceToken:      req.SourceToken,
		DestinationToken: req.DestinationToken,
		InputAmount:      req.Amount.Clone(),
		OutputAmount:     output,
		MinOutputAmount:  minOutput,
		Fees: models.BridgeFees{
			BridgeFee:  bridgeFee,
			GasFee:     models.NewBigInt(0),
			RelayerFee: models.NewBigInt(0),
		},
		EstimatedTime: estimatedTime,
		IsFastFill:    estimatedTime <= 60,
		MaxSlippage:   resp.Estimation.RecommendedSlippage,
		Route: models.BridgeRoute{
			Steps: []models.RouteStep{{
				Type:      "bridge",
				Chain:     req.SourceChain,
				Protocol:  "dln",
				FromToken: req.SourceToken,
				ToToken:   req.DestinationToken,
			}},
			RequiresApproval: true,
			ApprovalAddress:  resp.Tx.To,
		},
	}, nil
}

// BuildTransaction builds the unsigned bridge transaction for a quote
func (s *BridgeAggregatorService) BuildTransaction(ctx context.Context, quote *models.BridgeQuote, sender string) (*models.BridgeTransaction, error) {
	if quote.IsExpired(time.Now()) {
		metrics.QuotesExpired.Inc()
		return nil, sweeperrors.New(sweeperrors.CodeQuoteExpired,
			"quote %s for %s -> %s expired", quote.QuoteID, quote.SourceChain, quote.DestinationChain)
	}

	switch quote.Provider {
	case models.BridgeProviderLiFi:
		return s.lifiTransaction(ctx, quote, sender)
	case models.BridgeProviderDeBridge:
		return s.debridgeTransaction(ctx, quote, sender)
	default:
		return nil, fmt.Errorf("provider %s not available", quote.Provider)
	}
}

func (s *BridgeAggregatorService) lifiTransaction(ctx context.Context, quote *models.BridgeQuote, sender string) (*models.BridgeTransaction, error) {
	// a fresh quote with fromAddress set carries the tx payload
	resp, err := s.lifi.GetQuote(ctx, &clients.LiFiQuoteRequest{
		FromChain:   clients.GetLiFiChainId(uint32(utils.ChainIDOf(quote.SourceChain))),
		ToChain:     clients.GetLiFiChainId(uint32(utils.ChainIDOf(quote.DestinationChain))),
		FromToken:   quote.SourceToken,
		ToToken:     quote.DestinationToken,
		FromAmount:  quote.InputAmount.String(),
		FromAddress: sender,
		Slippage:    quote.MaxSlippage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build LiFi transaction: %w", err)
	}
	if resp.TransactionRequest == nil {
		return nil, fmt.Errorf("LiFi returned no transaction request")
	}

	value := parseHexOrDecimal(resp.TransactionRequest.Value)
	gasLimit := parseHexOrDecimal(resp.TransactionRequest.GasLimit)

	return &models.BridgeTransaction{
		Provider:    quote.Provider,
		QuoteID:     quote.QuoteID,
		SourceChain: quote.SourceChain,
		To:          resp.TransactionRequest.To,
		Data:        resp.TransactionRequest.Data,
		Value:       value,
		GasLimit:    gasLimit,
	}, nil
}

func (s *BridgeAggregatorService) debridgeTransaction(ctx context.Context, quote *models.BridgeQuote, sender string) (*models.BridgeTransaction, error) {
	resp, err := s.debridge.GetQuote(ctx, &clients.DeBridgeQuoteRequest{
		SrcChainId:                clients.GetDeBridgeChainId(uint32(utils.ChainIDOf(quote.SourceChain))),
		SrcChainTokenIn:           quote.SourceToken,
		SrcChainTokenInAmount:     quote.InputAmount.String(),
		DstChainId:                clients.GetDeBridgeChainId(uint32(utils.ChainIDOf(quote.DestinationChain))),
		DstChainTokenOut:          quote.DestinationToken,
		DstChainTokenOutRecipient: sender,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build deBridge transaction: %w", err)
	}
	if resp.Tx.To == "" {
		return nil, fmt.Errorf("deBridge returned no transaction payload")
	}

	return &models.BridgeTransaction{
		Provider:    quote.Provider,
		QuoteID:     quote.QuoteID,
		SourceChain: quote.SourceChain,
		To:          resp.Tx.To,
		Data:        resp.Tx.Data,
		Value:       parseHexOrDecimal(resp.Tx.Value),
		GasLimit:    models.NewBigInt(0),
	}, nil
}

// GetStatus normalizes the provider transfer status into the leg state
// machine. Transport failures are coded transient so the tracker never
// confuses an observability gap with an on-chain failure.
func (s *BridgeAggregatorService) GetStatus(ctx context.Context, provider models.BridgeProvider, sourceTxHash, sourceChain, destinationChain string) (*models.BridgeReceipt, error) {
	switch provider {
	case models.BridgeProviderLiFi:
		return s.lifiStatus(ctx, sourceTxHash, sourceChain, destinationChain)
	case models.BridgeProviderDeBridge:
		return s.debridgeStatus(ctx, sourceTxHash, sourceChain, destinationChain)
	default:
		return nil, fmt.Errorf("provider %s not available", provider)
	}
}

func (s *BridgeAggregatorService) lifiStatus(ctx context.Context, txHash, sourceChain, destinationChain string) (*models.BridgeReceipt, error) {
	resp, err := s.lifi.GetStatus(ctx, txHash)
	if err != nil {
		return nil, sweeperrors.Wrap(sweeperrors.CodeProviderTransient, err, "LiFi status query failed for %s", txHash)
	}

	receipt := &models.BridgeReceipt{
		Provider:          models.BridgeProviderLiFi,
		SourceTxHash:      txHash,
		DestinationTxHash: resp.Receiving.TxHash,
		SourceChain:       sourceChain,
		DestinationChain:  destinationChain,
	}
	if resp.Receiving.Amount != "" {
		if amount, err := models.NewBigIntFromString(resp.Receiving.Amount); err == nil {
			receipt.OutputAmount = amount
		}
	}

	switch resp.Status {
	case "DONE":
		if strings.EqualFold(resp.Substatus, "REFUNDED") {
			receipt.Status = models.BridgeLegStatusRefunded
		} else {
			receipt.Status = models.BridgeLegStatusCompleted
			receipt.CompletedAt = time.Now().UnixMilli()
		}
	case "FAILED":
		receipt.Status = models.BridgeLegStatusFailed
		receipt.Error = fmt.Sprintf("LiFi transfer failed (%s)", resp.Substatus)
	case "NOT_FOUND":
		receipt.Status = models.BridgeLegStatusPending
	default: // PENDING
		receipt.Status = models.BridgeLegStatusBridging
	}
	return receipt, nil
}

func (s *BridgeAggregatorService) debridgeStatus(ctx context.Context, txHash, sourceChain, destinationChain string) (*models.BridgeReceipt, error) {
	resp, err := s.debridge.GetOrderStatus(ctx, txHash)
	if err != nil {
		return nil, sweeperrors.Wrap(sweeperrors.CodeProviderTransient, err, "deBridge status query failed for %s", txHash)
	}

	receipt := &models.BridgeReceipt{
		Provider:         models.BridgeProviderDeBridge,
		SourceTxHash:     txHash,
		SourceChain:      sourceChain,
		DestinationChain: destinationChain,
	}

	switch resp.Status {
	case "Fulfilled", "SentUnlock", "ClaimedUnlock":
		receipt.Status = models.BridgeLegStatusCompleted
		receipt.CompletedAt = time.Now().UnixMilli()
	case "OrderCancelled", "SentOrderCancel", "ClaimedOrderCancel":
		receipt.Status = models.BridgeLegStatusRefunded
		receipt.Error = "deBridge order cancelled and refunded"
	case "Created":
		receipt.Status = models.BridgeLegStatusBridging
	default:
		receipt.Status = models.BridgeLegStatusBridging
	}
	return receipt, nil
}

// parseHexOrDecimal provider tx payloads carry amounts as 0x-hex or decimal
func parseHexOrDecimal(v string) *models.BigInt {
	if v == "" {
		return models.NewBigInt(0)
	}
	out := models.NewBigInt(0)
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		if _, ok := out.SetString(v[2:], 16); ok {
			return out
		}
		return models.NewBigInt(0)
	}
	if parsed, err := models.NewBigIntFromString(v); err == nil {
		return parsed
	}
	return models.NewBigInt(0)
}
