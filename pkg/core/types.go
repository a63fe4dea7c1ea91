// Package core provides the agentmem memory store and entry model.
package core

import "time"

// MemoryType classifies a memory entry and determines its default
// expiration policy.
//
// The type set is closed:
//   - TypeShortTerm: expires after Config.ShortTermHours (default 24h)
//     unless promoted to long-term during consolidation
//   - TypeLongTerm: never expires by time, only via decay
//   - TypeEpisodic: event log entries (trades, interactions), never expire by time
//   - TypeSemantic: organizational knowledge (lessons, insights), never expires by time
//   - TypeWorking: per-decision-cycle scratch state, expires after 1 hour
type MemoryType string

const (
	// TypeShortTerm is the default tier for new observations.
	TypeShortTerm MemoryType = "short_term"

	// TypeLongTerm holds consolidated memories with no time-based expiry.
	TypeLongTerm MemoryType = "long_term"

	// TypeEpisodic holds discrete events (notable trades, interactions).
	TypeEpisodic MemoryType = "episodic"

	// TypeSemantic holds distilled knowledge (lessons, best practices).
	TypeSemantic MemoryType = "semantic"

	// TypeWorking holds ephemeral per-cycle state, cleared at cycle end.
	TypeWorking MemoryType = "working"
)

// MemoryTypes lists all valid memory types in a stable order.
//
// Recall defaults to scanning every type in this list.
func MemoryTypes() []MemoryType {
	return []MemoryType{TypeShortTerm, TypeLongTerm, TypeEpisodic, TypeSemantic, TypeWorking}
}

// Valid reports whether t is a known memory type.
func (t MemoryType) Valid() bool {
	switch t {
	case TypeShortTerm, TypeLongTerm, TypeEpisodic, TypeSemantic, TypeWorking:
		return true
	}
	return false
}

// Priority affects both decay rate and recall ranking.
//
// Critical memories decay at 10% of the base rate, high-priority at 50%.
// Recall ranks entries by strength multiplied by the priority weight.
type Priority string

const (
	// PriorityCritical marks memories that must effectively never be forgotten.
	PriorityCritical Priority = "critical"

	// PriorityHigh marks important memories with slowed decay.
	PriorityHigh Priority = "high"

	// PriorityMedium is the default priority.
	PriorityMedium Priority = "medium"

	// PriorityLow marks routine memories that decay at the full base rate.
	PriorityLow Priority = "low"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Weight returns the recall ranking weight for the priority.
//
// Weights: critical=4, high=3, medium=2, low=1. Unknown priorities
// rank lowest.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 1
}

// decayModifier returns the multiplier applied to the effective decay
// rate for the priority. Critical and high-priority memories decay slower.
func (p Priority) decayModifier() float64 {
	switch p {
	case PriorityCritical:
		return 0.1
	case PriorityHigh:
		return 0.5
	}
	return 1.0
}

// MemoryEntry is the atomic unit of the memory system.
//
// An entry has an immutable identity (ID, CreatedAt, AgentID) and mutable
// decay state (Strength, AccessCount, LastAccessed). Content is the
// human-readable summary; Context carries the machine-usable structured
// fields (e.g. a trade outcome or a decision record).
//
// Example:
//
//	entry := &core.MemoryEntry{
//	    ID:       "short_term_1a2b3c4d5e6f",
//	    Type:     core.TypeShortTerm,
//	    Priority: core.PriorityMedium,
//	    Content:  "Trade AAPL long momentum: +120bps",
//	    AgentID:  "execution_trader",
//	    Strength: 1.0,
//	}
type MemoryEntry struct {
	// ID is the unique identifier, formatted "{type}_{12 hex chars}".
	ID string `json:"id"`

	// Type is the memory tier. Immutable after creation except for the
	// one-directional short_term -> long_term promotion.
	Type MemoryType `json:"type"`

	// Priority affects decay rate and recall ranking.
	Priority Priority `json:"priority"`

	// Content is the human-readable summary of the memory.
	Content string `json:"content"`

	// Context carries structured machine-usable fields.
	Context map[string]interface{} `json:"context,omitempty"`

	// AgentID identifies the owning agent. Memories are attributable but
	// queryable system-wide.
	AgentID string `json:"agent_id"`

	// CreatedAt is when the entry was created. Immutable.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is the time-based expiry, nil for tiers that only expire
	// via decay.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// Strength is the retention strength in [0, 1]. Starts at 1.0, decays
	// over consolidation sweeps, boosted by reinforcement. Entries below
	// the recall threshold are invisible to recall.
	Strength float64 `json:"strength"`

	// AccessCount is the number of reinforcement events. Monotonically
	// non-decreasing.
	AccessCount int `json:"access_count"`

	// LastAccessed is when the entry was last reinforced (nil if never).
	LastAccessed *time.Time `json:"last_accessed,omitempty"`

	// RelatedMemories holds IDs of related entries. Non-owning
	// back-references, resolved via the store, never embedded.
	RelatedMemories []string `json:"related_memories,omitempty"`

	// Tags enable categorical lookup.
	Tags []string `json:"tags,omitempty"`

	// EmotionalValence in [-1, 1] biases consolidation: strongly positive
	// or negative memories get promoted.
	EmotionalValence float64 `json:"emotional_valence"`

	// SurpriseFactor in [0, 1] biases consolidation: surprising memories
	// get promoted.
	SurpriseFactor float64 `json:"surprise_factor"`
}

// Summary describes the aggregate state of a store.
type Summary struct {
	// Total is the number of live entries across all types.
	Total int `json:"total"`

	// ByType counts entries per memory type.
	ByType map[MemoryType]int `json:"by_type"`

	// ByPriority counts entries per priority.
	ByPriority map[Priority]int `json:"by_priority"`

	// AverageStrength is the mean strength across all entries (0 if empty).
	AverageStrength float64 `json:"average_strength"`
}

// ConsolidationReport describes the outcome of one consolidation sweep.
type ConsolidationReport struct {
	// Scanned is the number of short-term entries visited.
	Scanned int `json:"scanned"`

	// Promoted is the number of entries moved to long-term.
	Promoted int `json:"promoted"`

	// Pruned is the number of entries deleted for falling below the floor.
	Pruned int `json:"pruned"`
}
