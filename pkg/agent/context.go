package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/alphadesk/agentmem/pkg/core"
	"github.com/alphadesk/agentmem/pkg/decision"
)

// AgentContext is everything an agent should remember before making a
// decision, assembled by Manager.BuildContext.
type AgentContext struct {
	// AgentID is the agent the context was built for.
	AgentID string `json:"agent_id"`

	// Task, Ticker, Signal and MarketCondition echo the build request.
	Task            string `json:"task,omitempty"`
	Ticker          string `json:"ticker,omitempty"`
	Signal          string `json:"signal,omitempty"`
	MarketCondition string `json:"market_condition,omitempty"`

	// SimilarTrades are past trades on the same ticker/signal.
	SimilarTrades []*core.MemoryEntry `json:"similar_trades,omitempty"`

	// RecentLosses are past losing trades on the ticker, worst first.
	RecentLosses []*core.MemoryEntry `json:"recent_losses,omitempty"`

	// SimilarDecisions are past decisions of the inferred type.
	SimilarDecisions []*core.MemoryEntry `json:"similar_decisions,omitempty"`

	// RelevantLessons and AntiPatterns come from organizational knowledge.
	RelevantLessons []*core.MemoryEntry `json:"relevant_lessons,omitempty"`
	AntiPatterns    []*core.MemoryEntry `json:"anti_patterns,omitempty"`

	// MarketInsights apply to the stated market condition.
	MarketInsights []*core.MemoryEntry `json:"market_insights,omitempty"`

	// DecisionAccuracy is the agent's historical track record.
	DecisionAccuracy *decision.AccuracyReport `json:"decision_accuracy,omitempty"`

	// BuiltAt is when the context was assembled.
	BuiltAt time.Time `json:"built_at"`
}

// ToPromptContext renders the context as a human-readable text block for
// inclusion in an agent prompt. Sections are included only when
// non-empty.
func (c *AgentContext) ToPromptContext() string {
	var b strings.Builder

	writeSection := func(title string, entries []*core.MemoryEntry) {
		if len(entries) == 0 {
			return
		}
		fmt.Fprintf(&b, "## %s\n", title)
		for _, entry := range entries {
			fmt.Fprintf(&b, "- %s\n", entry.Content)
		}
		b.WriteString("\n")
	}

	writeSection("Similar past trades", c.SimilarTrades)
	writeSection("Recent losses", c.RecentLosses)
	writeSection("Similar past decisions", c.SimilarDecisions)
	writeSection("Relevant lessons", c.RelevantLessons)
	writeSection("Anti-patterns to avoid", c.AntiPatterns)
	writeSection("Market insights", c.MarketInsights)

	if acc := c.DecisionAccuracy; acc != nil && acc.Total > 0 {
		fmt.Fprintf(&b, "## Track record\n- %d decisions, %d correct, %d incorrect (accuracy %.0f%%, %+.0fbps)\n\n",
			acc.Total, acc.Correct, acc.Incorrect, acc.Accuracy*100, acc.TotalPnLBps)
	}

	return strings.TrimRight(b.String(), "\n")
}

// ContextOption is a function type for configuring BuildContext.
type ContextOption func(*ContextOptions)

// ContextOptions contains the build request for an agent context.
type ContextOptions struct {
	// Task is the decision the agent is about to make, in plain words.
	Task string

	// Ticker restricts trade and decision recall to one instrument.
	Ticker string

	// Signal restricts trade recall to one signal type.
	Signal string

	// MarketCondition selects applicable market insights.
	MarketCondition string
}

// WithTask states the task the agent is about to perform.
func WithTask(task string) ContextOption {
	return func(opts *ContextOptions) {
		opts.Task = task
	}
}

// WithTicker names the instrument under consideration.
func WithTicker(ticker string) ContextOption {
	return func(opts *ContextOptions) {
		opts.Ticker = ticker
	}
}

// WithSignal names the signal type under consideration.
func WithSignal(signal string) ContextOption {
	return func(opts *ContextOptions) {
		opts.Signal = signal
	}
}

// WithMarketCondition names the prevailing market condition.
func WithMarketCondition(condition string) ContextOption {
	return func(opts *ContextOptions) {
		opts.MarketCondition = condition
	}
}

// applyContextOptions applies ContextOptions with defaults.
func applyContextOptions(opts []ContextOption) *ContextOptions {
	contextOpts := &ContextOptions{}
	for _, opt := range opts {
		opt(contextOpts)
	}
	return contextOpts
}
