// Package trade records trade outcomes and recalls comparable history.
//
// It wraps the core store with trade-specific semantics: priority and
// tier derived from the PnL magnitude, an execution-quality label derived
// from slippage and impact, and recall helpers keyed by ticker, signal
// and direction. Losses are deliberately easier to recall than wins.
package trade

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/alphadesk/agentmem/pkg/core"
)

// Outcome describes one completed trade.
//
// All basis-point fields are relative to the position notional. The
// record is serialized into the memory entry's context at creation time;
// the entry is the single source of truth afterwards.
type Outcome struct {
	// TradeID identifies the trade (generated if empty).
	TradeID string `json:"trade_id"`

	// Ticker is the traded instrument.
	Ticker string `json:"ticker"`

	// Direction is "long" or "short".
	Direction string `json:"direction"`

	// SignalType names the signal that generated the trade
	// (e.g. "momentum", "mean_reversion", "stat_arb").
	SignalType string `json:"signal_type"`

	// Quantity is the traded quantity in shares/contracts.
	Quantity float64 `json:"quantity"`

	// EntryPrice and ExitPrice bracket the position.
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`

	// PnLBps is the realized profit and loss in basis points.
	PnLBps float64 `json:"pnl_bps"`

	// ExpectedPnLBps is what the signal predicted.
	ExpectedPnLBps float64 `json:"expected_pnl_bps"`

	// SlippageBps and MarketImpactBps measure execution cost.
	SlippageBps     float64 `json:"slippage_bps"`
	MarketImpactBps float64 `json:"market_impact_bps"`

	// ExecutionAlgorithm names the algo used (e.g. "vwap", "pov").
	ExecutionAlgorithm string `json:"execution_algorithm"`

	// MarketRegime describes conditions at the time (e.g. "high_vol").
	MarketRegime string `json:"market_regime"`

	// HoldingHours is the holding period in hours.
	HoldingHours float64 `json:"holding_hours"`
}

// VsExpectedBps returns the realized-vs-predicted gap. Large gaps mark
// surprising trades that consolidation should not forget.
func (o *Outcome) VsExpectedBps() float64 {
	return o.PnLBps - o.ExpectedPnLBps
}

// SignalSummary aggregates performance for one signal type.
type SignalSummary struct {
	// SignalType is the aggregated signal.
	SignalType string `json:"signal_type"`

	// SampleSize is the number of remembered trades in the aggregate.
	SampleSize int `json:"sample_size"`

	// WinRate is the fraction of trades with positive PnL.
	WinRate float64 `json:"win_rate"`

	// AvgPnLBps is the mean PnL across all trades.
	AvgPnLBps float64 `json:"avg_pnl_bps"`

	// AvgWinBps is the mean PnL across winning trades.
	AvgWinBps float64 `json:"avg_win_bps"`

	// AvgLossBps is the mean PnL across losing trades.
	AvgLossBps float64 `json:"avg_loss_bps"`

	// TotalPnLBps is the summed PnL.
	TotalPnLBps float64 `json:"total_pnl_bps"`
}

// Memory wraps the core store with trade-specific semantics.
type Memory struct {
	store *core.Store
}

// New creates a trade memory over the given store.
func New(store *core.Store) *Memory {
	return &Memory{store: store}
}

// RememberTrade records a trade outcome.
//
// Priority derives from the PnL magnitude: above 500bps (or a
// realized-vs-predicted gap above 200bps) the trade is critical and
// stored as episodic so it never expires by time; above 100bps high,
// above 50bps medium, otherwise low, stored as short_term. Emotional
// valence tracks the sign and size of the PnL; the surprise factor
// tracks the gap versus expectation.
//
// Optional lessons are embedded in the entry's context and appended to
// the human-readable summary.
//
// Returns the new entry's ID.
func (m *Memory) RememberTrade(ctx context.Context, outcome *Outcome, agentID string, lessons ...string) (string, error) {
	if outcome.TradeID == "" {
		outcome.TradeID = uuid.NewString()
	}

	vsExpected := outcome.VsExpectedBps()
	priority, memoryType := classifyTrade(outcome.PnLBps, vsExpected)
	quality := executionQuality(outcome.SlippageBps + outcome.MarketImpactBps)
	label := outcomeLabel(outcome.PnLBps)

	valence := outcome.PnLBps / 200
	if valence > 0.8 {
		valence = 0.8
	}
	if valence < -0.8 {
		valence = -0.8
	}
	surprise := math.Abs(vsExpected) / 100
	if surprise > 1 {
		surprise = 1
	}

	tags := []string{"trade", outcome.Ticker, outcome.Direction, outcome.SignalType, label}
	if outcome.MarketRegime != "" {
		tags = append(tags, outcome.MarketRegime)
	}
	if outcome.ExecutionAlgorithm != "" {
		tags = append(tags, "algo_"+outcome.ExecutionAlgorithm)
	}

	content := fmt.Sprintf("Trade %s %s (%s): %+.0fbps vs %+.0fbps expected, execution %s",
		outcome.Ticker, outcome.Direction, outcome.SignalType,
		outcome.PnLBps, outcome.ExpectedPnLBps, quality)
	if len(lessons) > 0 {
		content += ". Lessons: " + strings.Join(lessons, "; ")
	}

	entryContext := map[string]interface{}{
		"trade_outcome":     outcome.toContext(),
		"execution_quality": quality,
		"outcome_label":     label,
	}
	if len(lessons) > 0 {
		entryContext["lessons_learned"] = lessons
	}

	return m.store.AddMemory(ctx, content, memoryType,
		core.WithAgentID(agentID),
		core.WithPriority(priority),
		core.WithContext(entryContext),
		core.WithTags(tags...),
		core.WithEmotionalValence(valence),
		core.WithSurpriseFactor(surprise),
	)
}

// RecallSimilarTrades finds past trades on the same ticker with the same
// signal type and direction, optionally restricted to a market regime.
//
// The store's substring recall is coarse, so the ticker drives the query
// and the structured context filters the rest down to exact matches.
// Limit defaults to 5.
func (m *Memory) RecallSimilarTrades(ticker, signalType, direction, marketRegime string, limit int) ([]*core.MemoryEntry, error) {
	if limit <= 0 {
		limit = 5
	}

	entries, err := m.store.Recall(ticker, core.WithLimit(limit*4))
	if err != nil {
		return nil, err
	}

	var matches []*core.MemoryEntry
	for _, entry := range entries {
		storedSignal, ok := core.ContextString(entry.Context, "trade_outcome", "signal_type")
		if !ok || storedSignal != signalType {
			continue
		}
		if direction != "" {
			storedDirection, _ := core.ContextString(entry.Context, "trade_outcome", "direction")
			if storedDirection != direction {
				continue
			}
		}
		if marketRegime != "" {
			storedRegime, _ := core.ContextString(entry.Context, "trade_outcome", "market_regime")
			if storedRegime != marketRegime {
				continue
			}
		}
		matches = append(matches, entry)
		if len(matches) == limit {
			break
		}
	}
	return matches, nil
}

// RecallLosses finds losing trades, worst first.
//
// Ticker and signal type are optional filters; minLossBps defaults to 50
// and limit to 10. A trade qualifies when its recorded PnL is below
// -minLossBps.
func (m *Memory) RecallLosses(ticker, signalType string, minLossBps float64, limit int) ([]*core.MemoryEntry, error) {
	if minLossBps <= 0 {
		minLossBps = 50
	}
	if limit <= 0 {
		limit = 10
	}

	query := ticker
	if query == "" {
		query = "loss"
	}

	entries, err := m.store.Recall(query, core.WithLimit(limit*4))
	if err != nil {
		return nil, err
	}

	var losses []*core.MemoryEntry
	for _, entry := range entries {
		pnl, ok := core.ContextFloat(entry.Context, "trade_outcome", "pnl_bps")
		if !ok || pnl >= -minLossBps {
			continue
		}
		if signalType != "" {
			storedSignal, _ := core.ContextString(entry.Context, "trade_outcome", "signal_type")
			if storedSignal != signalType {
				continue
			}
		}
		losses = append(losses, entry)
	}

	// Worst losses first.
	sort.Slice(losses, func(i, j int) bool {
		pi, _ := core.ContextFloat(losses[i].Context, "trade_outcome", "pnl_bps")
		pj, _ := core.ContextFloat(losses[j].Context, "trade_outcome", "pnl_bps")
		return pi < pj
	})

	if len(losses) > limit {
		losses = losses[:limit]
	}
	return losses, nil
}

// SignalPerformanceSummary aggregates remembered trades for one signal
// type, over at most 100 recalled entries.
func (m *Memory) SignalPerformanceSummary(signalType string) (*SignalSummary, error) {
	entries, err := m.store.Recall(signalType, core.WithLimit(100))
	if err != nil {
		return nil, err
	}

	summary := &SignalSummary{SignalType: signalType}
	var wins, losses int
	var winSum, lossSum float64

	for _, entry := range entries {
		storedSignal, ok := core.ContextString(entry.Context, "trade_outcome", "signal_type")
		if !ok || storedSignal != signalType {
			continue
		}
		pnl, ok := core.ContextFloat(entry.Context, "trade_outcome", "pnl_bps")
		if !ok {
			continue
		}

		summary.SampleSize++
		summary.TotalPnLBps += pnl
		if pnl > 0 {
			wins++
			winSum += pnl
		} else if pnl < 0 {
			losses++
			lossSum += pnl
		}
	}

	if summary.SampleSize > 0 {
		summary.WinRate = float64(wins) / float64(summary.SampleSize)
		summary.AvgPnLBps = summary.TotalPnLBps / float64(summary.SampleSize)
	}
	if wins > 0 {
		summary.AvgWinBps = winSum / float64(wins)
	}
	if losses > 0 {
		summary.AvgLossBps = lossSum / float64(losses)
	}
	return summary, nil
}

// classifyTrade maps PnL magnitude to priority and memory tier.
//
// Critical trades (very large PnL either way, or a big gap versus the
// signal's prediction) are stored as episodic so they survive expiry.
func classifyTrade(pnlBps, vsExpectedBps float64) (core.Priority, core.MemoryType) {
	absPnL := math.Abs(pnlBps)
	switch {
	case absPnL > 500 || math.Abs(vsExpectedBps) > 200:
		return core.PriorityCritical, core.TypeEpisodic
	case absPnL > 100:
		return core.PriorityHigh, core.TypeShortTerm
	case absPnL > 50:
		return core.PriorityMedium, core.TypeShortTerm
	default:
		return core.PriorityLow, core.TypeShortTerm
	}
}

// executionQuality labels total execution cost in basis points.
func executionQuality(totalCostBps float64) string {
	switch {
	case totalCostBps <= 2:
		return "excellent"
	case totalCostBps <= 5:
		return "good"
	case totalCostBps <= 10:
		return "acceptable"
	case totalCostBps <= 20:
		return "poor"
	default:
		return "very_poor"
	}
}

// outcomeLabel buckets PnL into profitable / loss / break_even.
func outcomeLabel(pnlBps float64) string {
	switch {
	case pnlBps > 10:
		return "profitable"
	case pnlBps < -10:
		return "loss"
	default:
		return "break_even"
	}
}

// toContext flattens the outcome into JSON-stable context types.
func (o *Outcome) toContext() map[string]interface{} {
	return map[string]interface{}{
		"trade_id":            o.TradeID,
		"ticker":              o.Ticker,
		"direction":           o.Direction,
		"signal_type":         o.SignalType,
		"quantity":            o.Quantity,
		"entry_price":         o.EntryPrice,
		"exit_price":          o.ExitPrice,
		"pnl_bps":             o.PnLBps,
		"expected_pnl_bps":    o.ExpectedPnLBps,
		"vs_expected_bps":     o.VsExpectedBps(),
		"slippage_bps":        o.SlippageBps,
		"market_impact_bps":   o.MarketImpactBps,
		"execution_algorithm": o.ExecutionAlgorithm,
		"market_regime":       o.MarketRegime,
		"holding_hours":       o.HoldingHours,
	}
}
