// Package agent orchestrates the memory system for an agent's decision
// cycle.
//
// Before each decision an agent asks the Manager for its context; the
// Manager fans read queries out across the trade, decision and learning
// memories plus the core store and assembles a single context object.
// After outcomes are known the agent writes back through the domain
// wrappers. Sharing and broadcast let agents push memories to teammates.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alphadesk/agentmem/pkg/core"
	"github.com/alphadesk/agentmem/pkg/decision"
	"github.com/alphadesk/agentmem/pkg/learning"
	"github.com/alphadesk/agentmem/pkg/trade"
)

// Manager orchestrates the memory system for agents.
//
// One Manager serves all agents in the process; per-agent state is the
// cached context and the working-memory namespace. Concurrent
// BuildContext calls for different agents are independent.
//
// Example usage:
//
//	store, _ := core.NewStore(core.DefaultConfig())
//	manager := agent.NewManager(store)
//
//	agentCtx, _ := manager.BuildContext(ctx, "pm_alpha",
//	    agent.WithTask("approve position in AAPL"),
//	    agent.WithTicker("AAPL"),
//	)
//	prompt := agentCtx.ToPromptContext()
type Manager struct {
	store     *core.Store
	trades    *trade.Memory
	decisions *decision.Memory
	learning  *learning.Memory

	// mu guards the context cache and share pool.
	mu       sync.Mutex
	contexts map[string]*AgentContext
	shares   []ShareRecord
}

// ShareRecord notes that a memory was shared between agents. The pool
// holds references only; the original entry stays with its owner.
type ShareRecord struct {
	// MemoryID is the shared entry.
	MemoryID string `json:"memory_id"`

	// FromAgent is the sharer.
	FromAgent string `json:"from_agent"`

	// ToAgents are the recipients.
	ToAgents []string `json:"to_agents"`

	// SharedAt is when the share happened.
	SharedAt time.Time `json:"shared_at"`
}

// SystemStats merges store and learning summaries with manager state.
type SystemStats struct {
	// Memory is the core store summary.
	Memory core.Summary `json:"memory"`

	// Learning is the organizational-knowledge summary.
	Learning *learning.Summary `json:"learning"`

	// SharedMemories counts entries in the share pool.
	SharedMemories int `json:"shared_memories"`

	// CachedContexts counts agents with a live cached context.
	CachedContexts int `json:"cached_contexts"`
}

// NewManager creates a manager over the given store, constructing the
// three domain memories on top of it.
func NewManager(store *core.Store) *Manager {
	return &Manager{
		store:     store,
		trades:    trade.New(store),
		decisions: decision.New(store),
		learning:  learning.New(store),
		contexts:  make(map[string]*AgentContext),
	}
}

// Store returns the underlying core store.
func (m *Manager) Store() *core.Store { return m.store }

// Trades returns the trade memory.
func (m *Manager) Trades() *trade.Memory { return m.trades }

// Decisions returns the decision memory.
func (m *Manager) Decisions() *decision.Memory { return m.decisions }

// Learning returns the learning memory.
func (m *Manager) Learning() *learning.Memory { return m.learning }

// BuildContext assembles everything an agent should remember before a
// decision:
//
//   - similar past trades and recent losses for the ticker
//   - similar past decisions, keyed by a decision type inferred from
//     the task wording
//   - lessons and anti-patterns relevant to the situation
//   - market insights for the stated market condition
//   - the agent's historical decision accuracy
//
// The result is cached per agent until EndDecisionCycle.
func (m *Manager) BuildContext(ctx context.Context, agentID string, opts ...ContextOption) (*AgentContext, error) {
	req := applyContextOptions(opts)

	agentCtx := &AgentContext{
		AgentID:         agentID,
		Task:            req.Task,
		Ticker:          req.Ticker,
		Signal:          req.Signal,
		MarketCondition: req.MarketCondition,
		BuiltAt:         time.Now(),
	}

	if req.Ticker != "" {
		if req.Signal != "" {
			similar, err := m.trades.RecallSimilarTrades(req.Ticker, req.Signal, "", "", 5)
			if err != nil {
				return nil, err
			}
			agentCtx.SimilarTrades = similar
		} else {
			entries, err := m.store.Recall(req.Ticker, core.WithLimit(20))
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				if entry.HasTag("trade") {
					agentCtx.SimilarTrades = append(agentCtx.SimilarTrades, entry)
					if len(agentCtx.SimilarTrades) == 5 {
						break
					}
				}
			}
		}

		losses, err := m.trades.RecallLosses(req.Ticker, req.Signal, 0, 5)
		if err != nil {
			return nil, err
		}
		agentCtx.RecentLosses = losses
	}

	if decisionType := InferDecisionType(req.Task); decisionType != "" {
		subject := req.Ticker
		if subject == "" {
			subject = req.Task
		}
		similar, err := m.decisions.RecallSimilarDecisions(decisionType, subject, 5)
		if err != nil {
			return nil, err
		}
		agentCtx.SimilarDecisions = similar
	}

	situation := strings.TrimSpace(req.Task + " " + req.Ticker)
	if situation != "" {
		lessons, err := m.learning.RelevantLessons(situation, 5)
		if err != nil {
			return nil, err
		}
		agentCtx.RelevantLessons = lessons

		antiPatterns, err := m.learning.AntiPatterns(situation, 5)
		if err != nil {
			return nil, err
		}
		agentCtx.AntiPatterns = antiPatterns
	}

	if req.MarketCondition != "" {
		insights, err := m.learning.MarketInsights(req.MarketCondition, 5)
		if err != nil {
			return nil, err
		}
		agentCtx.MarketInsights = insights
	}

	agentCtx.DecisionAccuracy = m.decisions.AgentAccuracy(agentID, "")

	m.mu.Lock()
	m.contexts[agentID] = agentCtx
	m.mu.Unlock()

	return agentCtx, nil
}

// CachedContext returns the agent's context from the last BuildContext,
// or nil if none is cached.
func (m *Manager) CachedContext(agentID string) *AgentContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contexts[agentID]
}

// ShareMemory shares an existing memory with other agents.
//
// The original entry stays with its owner; each recipient gets a
// short-lived short_term derivative tagged "shared" carrying a truncated
// preview and a reference to the original. The share itself is recorded
// in the pool.
func (m *Manager) ShareMemory(ctx context.Context, memoryID, fromAgent string, toAgents ...string) error {
	entry, err := m.store.GetMemory(memoryID)
	if err != nil {
		return err
	}

	preview := truncate(entry.Content, m.store.Config().SharePreviewChars)

	m.mu.Lock()
	m.shares = append(m.shares, ShareRecord{
		MemoryID:  memoryID,
		FromAgent: fromAgent,
		ToAgents:  append([]string(nil), toAgents...),
		SharedAt:  time.Now(),
	})
	m.mu.Unlock()

	for _, target := range toAgents {
		_, err := m.store.AddMemory(ctx,
			fmt.Sprintf("Shared by %s: %s", fromAgent, preview),
			core.TypeShortTerm,
			core.WithAgentID(target),
			core.WithPriority(entry.Priority),
			core.WithTags(append([]string{"shared"}, entry.Tags...)...),
			core.WithRelatedTo(memoryID),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// BroadcastToTeam writes one memory discoverable by the whole team.
//
// The entry is attributed to the sender but tagged with "broadcast" and
// the team name, so anyone recalling the team tag finds it.
func (m *Manager) BroadcastToTeam(ctx context.Context, content, fromAgent, team string, priority core.Priority, tags ...string) (string, error) {
	allTags := append([]string{"broadcast", team}, tags...)
	return m.store.AddMemory(ctx, content, core.TypeShortTerm,
		core.WithAgentID(fromAgent),
		core.WithPriority(priority),
		core.WithTags(allTags...),
	)
}

// RememberInteraction logs one user/agent exchange as a low-priority
// episodic entry. Message and response previews are truncated in the
// human-readable text; the full values live in the structured context.
func (m *Manager) RememberInteraction(ctx context.Context, agentID, userMessage, agentResponse, outcome string) (string, error) {
	previewLen := m.store.Config().InteractionPreviewChars
	content := fmt.Sprintf("Interaction with %s\nUser: %s\nAgent: %s",
		agentID, truncate(userMessage, previewLen), truncate(agentResponse, previewLen))

	tags := []string{"interaction"}
	if outcome != "" {
		tags = append(tags, outcome)
	}

	return m.store.AddMemory(ctx, content, core.TypeEpisodic,
		core.WithAgentID(agentID),
		core.WithPriority(core.PriorityLow),
		core.WithContext(map[string]interface{}{
			"user_message":   userMessage,
			"agent_response": agentResponse,
			"outcome":        outcome,
		}),
		core.WithTags(tags...),
	)
}

// GetWorkingMemory returns the agent's working-memory key/values.
func (m *Manager) GetWorkingMemory(agentID string) map[string]interface{} {
	prefix := agentID + ":"
	out := make(map[string]interface{})
	for key, value := range m.store.WorkingContext() {
		if strings.HasPrefix(key, prefix) {
			out[strings.TrimPrefix(key, prefix)] = value
		}
	}
	return out
}

// SetWorkingMemory sets one key in the agent's working memory.
func (m *Manager) SetWorkingMemory(agentID, key string, value interface{}) {
	m.store.SetWorkingContext(agentID+":"+key, value)
}

// EndDecisionCycle tears down one agent's decision pass: all of the
// agent's working-type entries are forgotten, its working-memory keys
// cleared, and its cached context dropped. Other agents and other memory
// tiers are untouched.
func (m *Manager) EndDecisionCycle(ctx context.Context, agentID string) {
	m.store.ForgetWorkingMemories(ctx, agentID)

	prefix := agentID + ":"
	for key := range m.store.WorkingContext() {
		if strings.HasPrefix(key, prefix) {
			m.store.DeleteWorkingContext(key)
		}
	}

	m.mu.Lock()
	delete(m.contexts, agentID)
	m.mu.Unlock()
}

// ConsolidateAll runs one consolidation sweep on the core store.
func (m *Manager) ConsolidateAll(ctx context.Context) core.ConsolidationReport {
	return m.store.ConsolidateMemories(ctx)
}

// Stats merges the memory and learning summaries with manager state.
func (m *Manager) Stats() *SystemStats {
	m.mu.Lock()
	shared := len(m.shares)
	cached := len(m.contexts)
	m.mu.Unlock()

	return &SystemStats{
		Memory:         m.store.Summary(),
		Learning:       m.learning.LearningSummary(),
		SharedMemories: shared,
		CachedContexts: cached,
	}
}

// InferDecisionType guesses the decision type from task wording.
//
// The heuristic is keyword-based: approval/rejection/IC language maps to
// IC approval, "risk" to risk override, sizing language to position
// sizing, execution language to execution choice and signal language to
// signal generation. Unrecognized tasks return the empty type.
func InferDecisionType(task string) decision.Type {
	lowered := strings.ToLower(task)
	switch {
	case strings.Contains(lowered, "approv"),
		strings.Contains(lowered, "reject"),
		strings.Contains(lowered, "ic "):
		return decision.TypeICApproval
	case strings.Contains(lowered, "risk"):
		return decision.TypeRiskOverride
	case strings.Contains(lowered, "size"),
		strings.Contains(lowered, "position"):
		return decision.TypePositionSizing
	case strings.Contains(lowered, "execut"):
		return decision.TypeExecutionChoice
	case strings.Contains(lowered, "signal"):
		return decision.TypeSignalGeneration
	}
	return ""
}

// truncate shortens s to at most n characters, marking the cut.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
