package trade_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphadesk/agentmem/pkg/core"
	"github.com/alphadesk/agentmem/pkg/trade"
)

func newTradeMemory(t *testing.T) (*trade.Memory, *core.Store) {
	t.Helper()
	store, err := core.NewStore(core.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return trade.New(store), store
}

func TestRememberTradeClassification(t *testing.T) {
	testCases := []struct {
		name         string
		pnlBps       float64
		expectedBps  float64
		wantPriority core.Priority
		wantType     core.MemoryType
		wantLabel    string
	}{
		{"huge win is critical episodic", 600, 100, core.PriorityCritical, core.TypeEpisodic, "profitable"},
		{"huge loss is critical episodic", -550, -50, core.PriorityCritical, core.TypeEpisodic, "loss"},
		{"big surprise is critical episodic", 80, -150, core.PriorityCritical, core.TypeEpisodic, "profitable"},
		{"large win is high", 150, 100, core.PriorityHigh, core.TypeShortTerm, "profitable"},
		{"moderate loss is medium", -80, -60, core.PriorityMedium, core.TypeShortTerm, "loss"},
		{"small loss is low", -30, -20, core.PriorityLow, core.TypeShortTerm, "loss"},
		{"scratch is low break even", 5, 10, core.PriorityLow, core.TypeShortTerm, "break_even"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			trades, store := newTradeMemory(t)

			id, err := trades.RememberTrade(context.Background(), &trade.Outcome{
				Ticker:         "AAPL",
				Direction:      "long",
				SignalType:     "momentum",
				PnLBps:         tc.pnlBps,
				ExpectedPnLBps: tc.expectedBps,
			}, "execution_trader")
			require.NoError(t, err)

			entry, err := store.GetMemory(id)
			require.NoError(t, err)
			assert.Equal(t, tc.wantPriority, entry.Priority)
			assert.Equal(t, tc.wantType, entry.Type)
			assert.True(t, entry.HasTag(tc.wantLabel))
			assert.True(t, entry.HasTag("trade"))
			assert.True(t, entry.HasTag("AAPL"))
			assert.Equal(t, "execution_trader", entry.AgentID)

			label, ok := core.ContextString(entry.Context, "outcome_label")
			require.True(t, ok)
			assert.Equal(t, tc.wantLabel, label)
		})
	}
}

func TestRememberTradeValenceAndSurprise(t *testing.T) {
	trades, store := newTradeMemory(t)

	id, err := trades.RememberTrade(context.Background(), &trade.Outcome{
		Ticker:         "NVDA",
		Direction:      "long",
		SignalType:     "momentum",
		PnLBps:         -400,
		ExpectedPnLBps: 50,
	}, "pm_alpha")
	require.NoError(t, err)

	entry, err := store.GetMemory(id)
	require.NoError(t, err)
	assert.Equal(t, -0.8, entry.EmotionalValence, "valence clamps at -0.8")
	assert.Equal(t, 1.0, entry.SurpriseFactor, "450bps gap saturates surprise")
}

func TestRememberTradeExecutionQuality(t *testing.T) {
	testCases := []struct {
		slippage float64
		impact   float64
		want     string
	}{
		{1, 0.5, "excellent"},
		{3, 1, "good"},
		{5, 3, "acceptable"},
		{10, 8, "poor"},
		{20, 10, "very_poor"},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			trades, store := newTradeMemory(t)

			id, err := trades.RememberTrade(context.Background(), &trade.Outcome{
				Ticker:          "MSFT",
				Direction:       "short",
				SignalType:      "mean_reversion",
				PnLBps:          20,
				SlippageBps:     tc.slippage,
				MarketImpactBps: tc.impact,
			}, "execution_trader")
			require.NoError(t, err)

			entry, err := store.GetMemory(id)
			require.NoError(t, err)

			quality, ok := core.ContextString(entry.Context, "execution_quality")
			require.True(t, ok)
			assert.Equal(t, tc.want, quality)
			assert.Contains(t, entry.Content, tc.want)
		})
	}
}

func TestRememberTradeLessons(t *testing.T) {
	trades, store := newTradeMemory(t)

	id, err := trades.RememberTrade(context.Background(), &trade.Outcome{
		Ticker:     "AAPL",
		Direction:  "long",
		SignalType: "momentum",
		PnLBps:     -120,
	}, "pm_alpha", "entered too early", "ignored the vol regime")
	require.NoError(t, err)

	entry, err := store.GetMemory(id)
	require.NoError(t, err)
	assert.Contains(t, entry.Content, "entered too early")
	assert.Contains(t, entry.Content, "ignored the vol regime")

	lessons, ok := core.ContextValue(entry.Context, "lessons_learned")
	require.True(t, ok)
	assert.Len(t, lessons, 2)
}

func TestRecallSimilarTrades(t *testing.T) {
	trades, _ := newTradeMemory(t)
	ctx := context.Background()

	remember := func(signal, direction, regime string, pnl float64) {
		t.Helper()
		_, err := trades.RememberTrade(ctx, &trade.Outcome{
			Ticker:       "AAPL",
			Direction:    direction,
			SignalType:   signal,
			MarketRegime: regime,
			PnLBps:       pnl,
		}, "pm_alpha")
		require.NoError(t, err)
	}

	remember("momentum", "long", "high_vol", 120)
	remember("momentum", "long", "low_vol", 80)
	remember("momentum", "short", "high_vol", -40)
	remember("mean_reversion", "long", "high_vol", 30)

	similar, err := trades.RecallSimilarTrades("AAPL", "momentum", "long", "", 5)
	require.NoError(t, err)
	assert.Len(t, similar, 2)
	for _, entry := range similar {
		signal, _ := core.ContextString(entry.Context, "trade_outcome", "signal_type")
		assert.Equal(t, "momentum", signal)
		direction, _ := core.ContextString(entry.Context, "trade_outcome", "direction")
		assert.Equal(t, "long", direction)
	}

	similar, err = trades.RecallSimilarTrades("AAPL", "momentum", "long", "high_vol", 5)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	regime, _ := core.ContextString(similar[0].Context, "trade_outcome", "market_regime")
	assert.Equal(t, "high_vol", regime)

	similar, err = trades.RecallSimilarTrades("TSLA", "momentum", "long", "", 5)
	require.NoError(t, err)
	assert.Empty(t, similar)
}

func TestRecallLossesWorstFirst(t *testing.T) {
	trades, _ := newTradeMemory(t)
	ctx := context.Background()

	for _, pnl := range []float64{-120, 90, -60, -200, -20} {
		_, err := trades.RememberTrade(ctx, &trade.Outcome{
			Ticker:     "AAPL",
			Direction:  "long",
			SignalType: "momentum",
			PnLBps:     pnl,
		}, "pm_alpha")
		require.NoError(t, err)
	}

	losses, err := trades.RecallLosses("AAPL", "", 0, 10)
	require.NoError(t, err)
	require.Len(t, losses, 3, "default 50bps floor excludes -20 and the win")

	var pnls []float64
	for _, entry := range losses {
		pnl, ok := core.ContextFloat(entry.Context, "trade_outcome", "pnl_bps")
		require.True(t, ok)
		pnls = append(pnls, pnl)
	}
	assert.Equal(t, []float64{-200, -120, -60}, pnls)
}

func TestSignalPerformanceSummary(t *testing.T) {
	trades, _ := newTradeMemory(t)
	ctx := context.Background()

	for _, pnl := range []float64{100, 50, -50} {
		_, err := trades.RememberTrade(ctx, &trade.Outcome{
			Ticker:     "AAPL",
			Direction:  "long",
			SignalType: "momentum",
			PnLBps:     pnl,
		}, "pm_alpha")
		require.NoError(t, err)
	}
	// A different signal must not leak into the aggregate.
	_, err := trades.RememberTrade(ctx, &trade.Outcome{
		Ticker:     "AAPL",
		Direction:  "long",
		SignalType: "stat_arb",
		PnLBps:     999,
	}, "pm_alpha")
	require.NoError(t, err)

	summary, err := trades.SignalPerformanceSummary("momentum")
	require.NoError(t, err)

	assert.Equal(t, "momentum", summary.SignalType)
	assert.Equal(t, 3, summary.SampleSize)
	assert.InDelta(t, 2.0/3.0, summary.WinRate, 1e-9)
	assert.InDelta(t, 100.0, summary.TotalPnLBps, 1e-9)
	assert.InDelta(t, 100.0/3.0, summary.AvgPnLBps, 1e-9)
	assert.InDelta(t, 75.0, summary.AvgWinBps, 1e-9)
	assert.InDelta(t, -50.0, summary.AvgLossBps, 1e-9)
}

func TestVsExpectedBps(t *testing.T) {
	outcome := &trade.Outcome{PnLBps: 80, ExpectedPnLBps: 150}
	assert.Equal(t, -70.0, outcome.VsExpectedBps())
}
