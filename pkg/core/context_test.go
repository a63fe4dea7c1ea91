package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alphadesk/agentmem/pkg/core"
)

func TestContextValuePathWalk(t *testing.T) {
	contextMap := map[string]interface{}{
		"trade_outcome": map[string]interface{}{
			"ticker":  "AAPL",
			"pnl_bps": 120.0,
			"legs":    3,
		},
		"outcome_label": "profitable",
	}

	label, ok := core.ContextString(contextMap, "outcome_label")
	assert.True(t, ok)
	assert.Equal(t, "profitable", label)

	ticker, ok := core.ContextString(contextMap, "trade_outcome", "ticker")
	assert.True(t, ok)
	assert.Equal(t, "AAPL", ticker)

	pnl, ok := core.ContextFloat(contextMap, "trade_outcome", "pnl_bps")
	assert.True(t, ok)
	assert.Equal(t, 120.0, pnl)

	// In-process ints are accepted too.
	legs, ok := core.ContextFloat(contextMap, "trade_outcome", "legs")
	assert.True(t, ok)
	assert.Equal(t, 3.0, legs)

	_, ok = core.ContextString(contextMap, "trade_outcome", "missing")
	assert.False(t, ok)

	_, ok = core.ContextFloat(contextMap, "outcome_label")
	assert.False(t, ok, "wrong type at the leaf")

	_, ok = core.ContextValue(contextMap)
	assert.False(t, ok, "empty path")

	_, ok = core.ContextValue(contextMap, "outcome_label", "deeper")
	assert.False(t, ok, "cannot descend through a leaf")
}
