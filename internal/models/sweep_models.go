package models

import (
	"time"
)

// BridgeProvider identifies which bridge protocol integration produced a quote
type BridgeProvider string

const (
	BridgeProviderLiFi     BridgeProvider = "lifi"
	BridgeProviderDeBridge BridgeProvider = "debridge"
)

// BridgeLegStatus bridge leg state machine
// PENDING and BRIDGING are non-terminal and require re-polling;
// COMPLETED, FAILED and REFUNDED are terminal.
type BridgeLegStatus string

const (
	BridgeLegStatusPending   BridgeLegStatus = "pending"
	BridgeLegStatusBridging  BridgeLegStatus = "bridging"
	BridgeLegStatusCompleted BridgeLegStatus = "completed"
	BridgeLegStatusFailed    BridgeLegStatus = "failed"
	BridgeLegStatusRefunded  BridgeLegStatus = "refunded"
)

// IsTerminal reports whether no further transition can occur from this status
func (s BridgeLegStatus) IsTerminal() bool {
	switch s {
	case BridgeLegStatusCompleted, BridgeLegStatusFailed, BridgeLegStatusRefunded:
		return true
	default:
		return false
	}
}

// TokenBalance a single token balance on one chain, immutable input snapshot
type TokenBalance struct {
	Address  string  `json:"address"`
	Symbol   string  `json:"symbol"`
	Decimals int     `json:"decimals"`
	Amount   *BigInt `json:"amount"`
	ValueUsd float64 `json:"valueUsd"`
}

// ChainSweepSource dust on one source chain plus the intermediate token it
// gets swapped into before bridging
type ChainSweepSource struct {
	Chain            string         `json:"chain"`
	Tokens           []TokenBalance `json:"tokens"`
	SwapOutputToken  string         `json:"swapOutputToken"`
	SwapOutputAmount *BigInt        `json:"swapOutputAmount"`
}

// TotalValueUsd sums the USD value of all dust tokens on this source
func (s *ChainSweepSource) TotalValueUsd() float64 {
	total := 0.0
	for _, t := range s.Tokens {
		total += t.ValueUsd
	}
	return total
}

// BridgeFees fee breakdown for a bridge quote, denominated in the source token
type BridgeFees struct {
	BridgeFee  *BigInt `json:"bridgeFee"`
	GasFee     *BigInt `json:"gasFee"`
	RelayerFee *BigInt `json:"relayerFee"`
	LpFee      *BigInt `json:"lpFee,omitempty"`
}

// RouteStep one hop inside a bridge route
type RouteStep struct {
	Type      string `json:"type"` // "swap" or "bridge"
	Chain     string `json:"chain"`
	Protocol  string `json:"protocol"`
	FromToken string `json:"fromToken"`
	ToToken   string `json:"toToken"`
}

// BridgeRoute route detail attached to a quote
type BridgeRoute struct {
	Steps            []RouteStep `json:"steps"`
	RequiresApproval bool        `json:"requiresApproval"`
	ApprovalAddress  string      `json:"approvalAddress,omitempty"`
}

// BridgeQuote a priced, time-bounded offer from a bridge provider.
// Immutable once issued; any attempt to build a transaction after ExpiresAt
// must fail with QuoteExpired.
type BridgeQuote struct {
	Provider         BridgeProvider `json:"provider"`
	SourceChain      string         `json:"sourceChain"`
	DestinationChain string         `json:"destinationChain"`
	SourceToken      string         `json:"sourceToken"`
	DestinationToken string         `json:"destinationToken"`
	InputAmount      *BigInt        `json:"inputAmount"`
	OutputAmount     *BigInt        `json:"outputAmount"`
	MinOutputAmount  *BigInt        `json:"minOutputAmount"`
	Fees             BridgeFees     `json:"fees"`
	EstimatedTime    int            `json:"estimatedTime"` // seconds
	Route            BridgeRoute    `json:"route"`
	QuoteID          string         `json:"quoteId"`
	ExpiresAt        int64          `json:"expiresAt"` // unix ms
	IsFastFill       bool           `json:"isFastFill"`
	MaxSlippage      float64        `json:"maxSlippage"`
}

// IsExpired reports whether the quote's validity window has passed
func (q *BridgeQuote) IsExpired(now time.Time) bool {
	return now.UnixMilli() >= q.ExpiresAt
}

// TotalFees sums bridge, gas and relayer fees in source token units
func (q *BridgeQuote) TotalFees() *BigInt {
	total := NewBigInt(0)
	if q.Fees.BridgeFee != nil {
		total.Add(&total.Int, &q.Fees.BridgeFee.Int)
	}
	if q.Fees.GasFee != nil {
		total.Add(&total.Int, &q.Fees.GasFee.Int)
	}
	if q.Fees.RelayerFee != nil {
		total.Add(&total.Int, &q.Fees.RelayerFee.Int)
	}
	return total
}

// PlannedBridge one chain-to-chain bridge leg inside a sweep plan.
// Status, CompletedTxHash and Error are first-class fields so the leg state
// machine is statically checkable instead of being bolted on at runtime.
type PlannedBridge struct {
	ID               string          `json:"id"` // "<planId>-<sourceChain>"
	SourceChain      string          `json:"sourceChain"`
	DestinationChain string          `json:"destinationChain"`
	Token            string          `json:"token"`
	Amount           *BigInt         `json:"amount"`
	Quote            *BridgeQuote    `json:"quote"`
	Priority         float64         `json:"priority"`
	Status           BridgeLegStatus `json:"status,omitempty"`
	CompletedTxHash  string          `json:"completedTxHash,omitempty"`
	Error            string          `json:"error,omitempty"`
}

// IsOutstanding reports whether the leg is neither completed nor failed yet
func (b *PlannedBridge) IsOutstanding() bool {
	return !b.Status.IsTerminal()
}

// SweepPlan the full cross-chain execution strategy for one sweep request.
// The plan document is the unit of persistence and idempotency: one plan ID
// maps to exactly one snapshot in the plan store, updated whole-document.
type SweepPlan struct {
	ID                     string             `json:"id"`
	UserID                 string             `json:"userId"`
	DestinationChain       string             `json:"destinationChain"`
	DestinationToken       string             `json:"destinationToken"`
	Recipient              string             `json:"recipient"`
	Sources                []ChainSweepSource `json:"sources"`
	Bridges                []PlannedBridge    `json:"bridges"`
	TotalInputValueUsd     float64            `json:"totalInputValueUsd"`
	TotalFeesUsd           float64            `json:"totalFeesUsd"`
	ExpectedOutputValueUsd float64            `json:"expectedOutputValueUsd"`
	EstimatedTotalTime     int                `json:"estimatedTotalTime"` // seconds
	NoOp                   bool               `json:"noOp"`               // nothing to execute, see IsNoOp
	CreatedAt              int64              `json:"createdAt"`          // unix ms
	ExpiresAt              int64              `json:"expiresAt"`          // unix ms
}

// IsExpired reports whether the plan (and the quotes it was built from) has expired
func (p *SweepPlan) IsExpired(now time.Time) bool {
	return now.UnixMilli() >= p.ExpiresAt
}

// FindBridge returns the leg for a source chain, nil when absent.
// A plan never carries two legs for the same source chain.
func (p *SweepPlan) FindBridge(sourceChain string) *PlannedBridge {
	for i := range p.Bridges {
		if p.Bridges[i].SourceChain == sourceChain {
			return &p.Bridges[i]
		}
	}
	return nil
}

// DestinationChainValueUsd dust already resident on the destination chain,
// which needs a swap but no bridge
func (p *SweepPlan) DestinationChainValueUsd() float64 {
	total := 0.0
	for i := range p.Sources {
		if p.Sources[i].Chain == p.DestinationChain {
			total += p.Sources[i].TotalValueUsd()
		}
	}
	return total
}

// IsNoOp reports whether the plan has nothing to execute: no viable bridge
// legs and no value already sitting on the destination chain. Such a plan
// must be reported to the caller, never executed.
func (p *SweepPlan) IsNoOp() bool {
	return len(p.Bridges) == 0 && p.DestinationChainValueUsd() == 0
}

// OutstandingBridges legs that are neither completed nor failed
func (p *SweepPlan) OutstandingBridges() []PlannedBridge {
	var out []PlannedBridge
	for _, b := range p.Bridges {
		if b.IsOutstanding() {
			out = append(out, b)
		}
	}
	return out
}

// BridgeTransaction an unsigned transaction built from a quote, ready to be
// handed to the wallet layer
type BridgeTransaction struct {
	Provider    BridgeProvider `json:"provider"`
	QuoteID     string         `json:"quoteId"`
	SourceChain string         `json:"sourceChain"`
	To          string         `json:"to"`
	Data        string         `json:"data"`
	Value       *BigInt        `json:"value"`
	GasLimit    *BigInt        `json:"gasLimit"`
}

// BridgeReceipt provider-reported status for a submitted bridge transfer
type BridgeReceipt struct {
	Provider          BridgeProvider  `json:"provider"`
	Status            BridgeLegStatus `json:"status"`
	SourceTxHash      string          `json:"sourceTxHash"`
	DestinationTxHash string          `json:"destinationTxHash,omitempty"`
	SourceChain       string          `json:"sourceChain"`
	DestinationChain  string          `json:"destinationChain"`
	InputAmount       *BigInt         `json:"inputAmount"`
	OutputAmount      *BigInt         `json:"outputAmount,omitempty"`
	InitiatedAt       int64           `json:"initiatedAt"` // unix ms
	CompletedAt       int64           `json:"completedAt,omitempty"`
	Error             string          `json:"error,omitempty"`
}

// ExecutedBridge per-leg record inside an execution result
type ExecutedBridge struct {
	SourceChain      string          `json:"sourceChain"`
	DestinationChain string          `json:"destinationChain"`
	TxHash           string          `json:"txHash"`
	Provider         BridgeProvider  `json:"provider"`
	Amount           *BigInt         `json:"amount"`
	Status           BridgeLegStatus `json:"status"`
}

// FailedBridge per-leg failure record inside an execution result
type FailedBridge struct {
	SourceChain string `json:"sourceChain"`
	Error       string `json:"error"`
}

// BridgeExecuteResult the outcome of one execution pass over a plan.
// Success is true only when zero legs failed; otherwise both lists are
// populated so a partially-successful sweep is distinguishable from total
// success or total failure. Not persisted as plan state.
type BridgeExecuteResult struct {
	Success         bool             `json:"success"`
	PlanID          string           `json:"planId"`
	ExecutedBridges []ExecutedBridge `json:"executedBridges"`
	FailedBridges   []FailedBridge   `json:"failedBridges"`
	Error           string           `json:"error,omitempty"`
}

// BridgeTrackResult the outcome of a single status-tracking step for one leg
type BridgeTrackResult struct {
	PlanID            string          `json:"planId"`
	BridgeID          string          `json:"bridgeId"`
	Status            BridgeLegStatus `json:"status"`
	SourceTxHash      string          `json:"sourceTxHash"`
	DestinationTxHash string          `json:"destinationTxHash,omitempty"`
	OutputAmount      *BigInt         `json:"outputAmount,omitempty"`
	CompletedAt       int64           `json:"completedAt,omitempty"`
	Error             string          `json:"error,omitempty"`
}

// BridgeNotification fire-and-forget event for the notification service
type BridgeNotification struct {
	Type              string         `json:"type"` // bridge_started | bridge_completed | bridge_failed | bridge_refunded
	UserID            string         `json:"userId"`
	PlanID            string         `json:"planId"`
	BridgeID          string         `json:"bridgeId"`
	SourceChain       string         `json:"sourceChain"`
	DestinationChain  string         `json:"destinationChain"`
	Provider          BridgeProvider `json:"provider"`
	Amount            *BigInt        `json:"amount,omitempty"`
	SourceTxHash      string         `json:"sourceTxHash"`
	DestinationTxHash string         `json:"destinationTxHash,omitempty"`
	Error             string         `json:"error,omitempty"`
	Timestamp         int64          `json:"timestamp"` // unix ms
}

// BridgeHistoryEntry one bridge leg in a user's history, keyed by leg id so
// re-delivery of a terminal status updates in place instead of duplicating
type BridgeHistoryEntry struct {
	ID               string          `json:"id" gorm:"primaryKey"` // leg id
	UserID           string          `json:"userId" gorm:"index;not null"`
	Provider         BridgeProvider  `json:"provider"`
	SourceChain      string          `json:"sourceChain"`
	DestinationChain string          `json:"destinationChain"`
	SourceToken      string          `json:"sourceToken"`
	DestinationToken string          `json:"destinationToken"`
	InputAmount      string          `json:"inputAmount"`
	OutputAmount     string          `json:"outputAmount"`
	FeeUsd           float64         `json:"feeUsd"`
	Status           BridgeLegStatus `json:"status" gorm:"index"`
	SourceTxHash     string          `json:"sourceTxHash"`
	DestTxHash       string          `json:"destTxHash"`
	Error            string          `json:"error"`
	CreatedAt        time.Time       `json:"createdAt"`
	CompletedAt      *time.Time      `json:"completedAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// TableName gorm table name
func (BridgeHistoryEntry) TableName() string {
	return "bridge_history_entries"
}
