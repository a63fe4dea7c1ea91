// Package decision records IC, risk and sizing decisions and tracks how
// they turned out.
//
// Decisions are written before their outcome is known and updated
// post-hoc. Incorrect decisions are reinforced harder than correct ones
// and promoted to long-term memory: failures must be remembered more,
// not less.
package decision

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alphadesk/agentmem/pkg/core"
)

// Type classifies a decision.
type Type string

const (
	// TypeICApproval is an investment-committee approval.
	TypeICApproval Type = "ic_approval"

	// TypeICRejection is an investment-committee rejection.
	TypeICRejection Type = "ic_rejection"

	// TypeRiskOverride is a risk manager overriding a limit or position.
	TypeRiskOverride Type = "risk_override"

	// TypePositionSizing is a position-sizing call.
	TypePositionSizing Type = "position_sizing"

	// TypeExecutionChoice is a choice of execution algorithm or venue.
	TypeExecutionChoice Type = "execution_choice"

	// TypeSignalGeneration is the emission of a trading signal.
	TypeSignalGeneration Type = "signal_generation"
)

// Valid reports whether t is a known decision type.
func (t Type) Valid() bool {
	switch t {
	case TypeICApproval, TypeICRejection, TypeRiskOverride,
		TypePositionSizing, TypeExecutionChoice, TypeSignalGeneration:
		return true
	}
	return false
}

// OutcomeStatus is the post-hoc verdict on a decision.
type OutcomeStatus string

const (
	// OutcomePending means the verdict is not in yet.
	OutcomePending OutcomeStatus = "pending"

	// OutcomeCorrect means the decision proved right.
	OutcomeCorrect OutcomeStatus = "correct"

	// OutcomeIncorrect means the decision proved wrong.
	OutcomeIncorrect OutcomeStatus = "incorrect"
)

// Decision describes one decision made by an agent.
type Decision struct {
	// ID identifies the decision (generated if empty).
	ID string `json:"id"`

	// AgentID is the deciding agent.
	AgentID string `json:"agent_id"`

	// Type classifies the decision.
	Type Type `json:"type"`

	// Subject is what the decision was about (a ticker, a limit, a book).
	Subject string `json:"subject"`

	// Rationale is the stated reasoning.
	Rationale string `json:"rationale"`

	// Confidence is the agent's stated confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Outcome is the post-hoc verdict (pending until updated).
	Outcome OutcomeStatus `json:"outcome"`

	// PnLBps is the realized PnL attributed to the decision, once known.
	PnLBps float64 `json:"pnl_bps"`

	// Notes carries post-hoc commentary.
	Notes string `json:"notes,omitempty"`

	// DecidedAt is when the decision was made (defaults to now).
	DecidedAt time.Time `json:"decided_at"`
}

// AccuracyReport aggregates one agent's decision track record.
type AccuracyReport struct {
	// Total is the number of remembered decisions (pending included).
	Total int `json:"total"`

	// Correct and Incorrect count resolved outcomes.
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`

	// Accuracy is Correct / (Correct + Incorrect); 0 when unresolved.
	Accuracy float64 `json:"accuracy"`

	// TotalPnLBps sums attributed PnL across resolved decisions.
	TotalPnLBps float64 `json:"total_pnl_bps"`
}

// Memory wraps the core store with decision-specific semantics.
type Memory struct {
	store *core.Store
}

// New creates a decision memory over the given store.
func New(store *core.Store) *Memory {
	return &Memory{store: store}
}

// RememberDecision records a decision, usually before its outcome is
// known.
//
// Priority: critical for risk overrides; high for IC approvals,
// rejections and anything already known to be incorrect; medium
// otherwise. IC decisions are stored as long_term (committee calls are
// institutional record), everything else as short_term until outcomes
// justify promotion.
//
// Returns the new entry's ID. The decision type and subject are
// validated; misuse surfaces as an error.
func (m *Memory) RememberDecision(ctx context.Context, d *Decision, supportingData map[string]interface{}) (string, error) {
	if !d.Type.Valid() {
		return "", core.NewMemoryError("RememberDecision", fmt.Errorf("%w: unknown decision type %q", core.ErrInvalidConfig, string(d.Type)))
	}
	if d.Subject == "" {
		return "", core.NewMemoryError("RememberDecision", fmt.Errorf("%w: decision subject is required", core.ErrEmptyContent))
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Outcome == "" {
		d.Outcome = OutcomePending
	}
	if d.DecidedAt.IsZero() {
		d.DecidedAt = time.Now()
	}

	priority := core.PriorityMedium
	switch {
	case d.Type == TypeRiskOverride:
		priority = core.PriorityCritical
	case d.Type == TypeICApproval, d.Type == TypeICRejection, d.Outcome == OutcomeIncorrect:
		priority = core.PriorityHigh
	}

	memoryType := core.TypeShortTerm
	if d.Type == TypeICApproval || d.Type == TypeICRejection {
		memoryType = core.TypeLongTerm
	}

	var valence float64
	switch d.Outcome {
	case OutcomeCorrect:
		valence = 0.5
	case OutcomeIncorrect:
		valence = -0.5
	}

	content := fmt.Sprintf("Decision %s by %s on %s: %s (confidence %.2f)",
		string(d.Type), d.AgentID, d.Subject, d.Rationale, d.Confidence)

	entryContext := map[string]interface{}{
		"decision": d.toContext(),
	}
	if supportingData != nil {
		entryContext["supporting_data"] = supportingData
	}

	return m.store.AddMemory(ctx, content, memoryType,
		core.WithAgentID(d.AgentID),
		core.WithPriority(priority),
		core.WithContext(entryContext),
		core.WithTags("decision", string(d.Type), d.Subject, string(d.Outcome)),
		core.WithEmotionalValence(valence),
	)
}

// UpdateOutcome records the post-hoc verdict on a decision.
//
// The entry is located by the embedded decision ID. The embedded context
// is updated in place; incorrect outcomes reinforce the entry strongly
// (failures must be remembered more, not less) and promote it to
// long-term, as does any outcome with attributed PnL beyond 100bps
// either way.
//
// Returns false if no remembered decision carries the ID (a lookup miss,
// not an error).
func (m *Memory) UpdateOutcome(ctx context.Context, decisionID string, outcome OutcomeStatus, notes string, pnlBps float64) bool {
	entryID := m.findEntryID(decisionID)
	if entryID == "" {
		return false
	}

	updated := m.store.UpdateMemory(ctx, entryID, func(entry *core.MemoryEntry) {
		decisionCtx, _ := core.ContextValue(entry.Context, "decision")
		if fields, ok := decisionCtx.(map[string]interface{}); ok {
			fields["outcome"] = string(outcome)
			fields["pnl_bps"] = pnlBps
			if notes != "" {
				fields["notes"] = notes
			}
		}

		switch outcome {
		case OutcomeCorrect:
			entry.EmotionalValence = 0.5
			entry.Reinforce(m.store.Config().ReinforcementAmount)
		case OutcomeIncorrect:
			entry.EmotionalValence = -0.5
			entry.Reinforce(0.5)
		}

		entry.Tags = replaceOutcomeTag(entry.Tags, outcome)
	})
	if !updated {
		return false
	}

	if outcome == OutcomeIncorrect || math.Abs(pnlBps) > 100 {
		m.store.PromoteToLongTerm(ctx, entryID)
	}
	return true
}

// RecallSimilarDecisions finds past decisions of the same type on the
// same subject. Limit defaults to 5.
func (m *Memory) RecallSimilarDecisions(decisionType Type, subject string, limit int) ([]*core.MemoryEntry, error) {
	if limit <= 0 {
		limit = 5
	}

	entries, err := m.store.Recall(subject, core.WithLimit(limit*4))
	if err != nil {
		return nil, err
	}

	var matches []*core.MemoryEntry
	for _, entry := range entries {
		storedType, ok := core.ContextString(entry.Context, "decision", "type")
		if !ok || storedType != string(decisionType) {
			continue
		}
		matches = append(matches, entry)
		if len(matches) == limit {
			break
		}
	}
	return matches, nil
}

// RecallIncorrectDecisions finds decisions that proved wrong, optionally
// restricted to one type. Limit defaults to 10.
func (m *Memory) RecallIncorrectDecisions(decisionType Type, limit int) []*core.MemoryEntry {
	if limit <= 0 {
		limit = 10
	}

	var matches []*core.MemoryEntry
	for _, entry := range m.store.GetMemoriesByTags([]string{"decision"}) {
		storedOutcome, _ := core.ContextString(entry.Context, "decision", "outcome")
		if storedOutcome != string(OutcomeIncorrect) {
			continue
		}
		if decisionType != "" {
			storedType, _ := core.ContextString(entry.Context, "decision", "type")
			if storedType != string(decisionType) {
				continue
			}
		}
		matches = append(matches, entry)
		if len(matches) == limit {
			break
		}
	}
	return matches
}

// AgentAccuracy aggregates one agent's decision track record, optionally
// restricted to one decision type.
//
// Accuracy is computed over resolved outcomes only; pending decisions
// count toward the total but not the rate.
func (m *Memory) AgentAccuracy(agentID string, decisionType Type) *AccuracyReport {
	report := &AccuracyReport{}

	for _, entry := range m.store.GetAgentMemories(agentID, 1000) {
		if !entry.HasTag("decision") {
			continue
		}
		if decisionType != "" {
			storedType, _ := core.ContextString(entry.Context, "decision", "type")
			if storedType != string(decisionType) {
				continue
			}
		}

		report.Total++
		storedOutcome, _ := core.ContextString(entry.Context, "decision", "outcome")
		switch OutcomeStatus(storedOutcome) {
		case OutcomeCorrect:
			report.Correct++
		case OutcomeIncorrect:
			report.Incorrect++
		default:
			continue
		}
		if pnl, ok := core.ContextFloat(entry.Context, "decision", "pnl_bps"); ok {
			report.TotalPnLBps += pnl
		}
	}

	resolved := report.Correct + report.Incorrect
	if resolved > 0 {
		report.Accuracy = float64(report.Correct) / float64(resolved)
	}
	return report
}

// findEntryID scans remembered decisions for the embedded decision ID.
func (m *Memory) findEntryID(decisionID string) string {
	for _, entry := range m.store.GetMemoriesByTags([]string{"decision"}) {
		storedID, ok := core.ContextString(entry.Context, "decision", "id")
		if ok && storedID == decisionID {
			return entry.ID
		}
	}
	return ""
}

// replaceOutcomeTag swaps the outcome status tag on an entry.
func replaceOutcomeTag(tags []string, outcome OutcomeStatus) []string {
	out := tags[:0]
	for _, tag := range tags {
		switch OutcomeStatus(tag) {
		case OutcomePending, OutcomeCorrect, OutcomeIncorrect:
			continue
		}
		out = append(out, tag)
	}
	return append(out, string(outcome))
}

// toContext flattens the decision into JSON-stable context types.
func (d *Decision) toContext() map[string]interface{} {
	return map[string]interface{}{
		"id":         d.ID,
		"agent_id":   d.AgentID,
		"type":       string(d.Type),
		"subject":    d.Subject,
		"rationale":  d.Rationale,
		"confidence": d.Confidence,
		"outcome":    string(d.Outcome),
		"pnl_bps":    d.PnLBps,
		"notes":      d.Notes,
		"decided_at": d.DecidedAt.Format(time.RFC3339),
	}
}
