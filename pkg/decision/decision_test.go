package decision_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphadesk/agentmem/pkg/core"
	"github.com/alphadesk/agentmem/pkg/decision"
)

func newDecisionMemory(t *testing.T) (*decision.Memory, *core.Store) {
	t.Helper()
	store, err := core.NewStore(core.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return decision.New(store), store
}

func TestRememberDecisionValidation(t *testing.T) {
	decisions, _ := newDecisionMemory(t)
	ctx := context.Background()

	_, err := decisions.RememberDecision(ctx, &decision.Decision{
		Type:    decision.Type("coin_flip"),
		Subject: "AAPL",
	}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = decisions.RememberDecision(ctx, &decision.Decision{
		Type: decision.TypeICApproval,
	}, nil)
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}

func TestRememberDecisionTierAndPriority(t *testing.T) {
	testCases := []struct {
		name         string
		decisionType decision.Type
		wantPriority core.Priority
		wantType     core.MemoryType
	}{
		{"ic approval is institutional record", decision.TypeICApproval, core.PriorityHigh, core.TypeLongTerm},
		{"ic rejection is institutional record", decision.TypeICRejection, core.PriorityHigh, core.TypeLongTerm},
		{"risk override is critical", decision.TypeRiskOverride, core.PriorityCritical, core.TypeShortTerm},
		{"sizing call is medium", decision.TypePositionSizing, core.PriorityMedium, core.TypeShortTerm},
		{"execution choice is medium", decision.TypeExecutionChoice, core.PriorityMedium, core.TypeShortTerm},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			decisions, store := newDecisionMemory(t)

			id, err := decisions.RememberDecision(context.Background(), &decision.Decision{
				AgentID:    "ic_chair",
				Type:       tc.decisionType,
				Subject:    "AAPL",
				Rationale:  "valuation support",
				Confidence: 0.7,
			}, nil)
			require.NoError(t, err)

			entry, err := store.GetMemory(id)
			require.NoError(t, err)
			assert.Equal(t, tc.wantPriority, entry.Priority)
			assert.Equal(t, tc.wantType, entry.Type)
			assert.True(t, entry.HasTag("decision"))
			assert.True(t, entry.HasTag(string(tc.decisionType)))
			assert.True(t, entry.HasTag("pending"), "outcome defaults to pending")

			outcome, ok := core.ContextString(entry.Context, "decision", "outcome")
			require.True(t, ok)
			assert.Equal(t, "pending", outcome)
		})
	}
}

func TestUpdateOutcomeIncorrectPromotes(t *testing.T) {
	decisions, store := newDecisionMemory(t)
	ctx := context.Background()

	d := &decision.Decision{
		AgentID:    "pm_alpha",
		Type:       decision.TypePositionSizing,
		Subject:    "NVDA",
		Rationale:  "doubled the position into earnings",
		Confidence: 0.9,
	}
	entryID, err := decisions.RememberDecision(ctx, d, nil)
	require.NoError(t, err)

	before, err := store.GetMemory(entryID)
	require.NoError(t, err)
	assert.Equal(t, core.TypeShortTerm, before.Type)

	ok := decisions.UpdateOutcome(ctx, d.ID, decision.OutcomeIncorrect, "earnings gapped against us", -150)
	require.True(t, ok)

	after, err := store.GetMemory(entryID)
	require.NoError(t, err)
	assert.Equal(t, core.TypeLongTerm, after.Type, "incorrect decisions are promoted")
	assert.Nil(t, after.ExpiresAt)
	assert.Equal(t, -0.5, after.EmotionalValence)
	assert.Equal(t, 1, after.AccessCount, "failures are reinforced")
	assert.True(t, after.HasTag("incorrect"))
	assert.False(t, after.HasTag("pending"))

	outcome, _ := core.ContextString(after.Context, "decision", "outcome")
	assert.Equal(t, "incorrect", outcome)
	pnl, _ := core.ContextFloat(after.Context, "decision", "pnl_bps")
	assert.Equal(t, -150.0, pnl)
	notes, _ := core.ContextString(after.Context, "decision", "notes")
	assert.Equal(t, "earnings gapped against us", notes)
}

func TestUpdateOutcomeCorrectStaysShortTerm(t *testing.T) {
	decisions, store := newDecisionMemory(t)
	ctx := context.Background()

	d := &decision.Decision{
		AgentID: "pm_alpha",
		Type:    decision.TypeExecutionChoice,
		Subject: "AAPL",
	}
	entryID, err := decisions.RememberDecision(ctx, d, nil)
	require.NoError(t, err)

	require.True(t, decisions.UpdateOutcome(ctx, d.ID, decision.OutcomeCorrect, "", 40))

	entry, err := store.GetMemory(entryID)
	require.NoError(t, err)
	assert.Equal(t, core.TypeShortTerm, entry.Type, "small correct outcomes stay short-term")
	assert.Equal(t, 0.5, entry.EmotionalValence)
	assert.True(t, entry.HasTag("correct"))
}

func TestUpdateOutcomeLargePnLPromotes(t *testing.T) {
	decisions, store := newDecisionMemory(t)
	ctx := context.Background()

	d := &decision.Decision{
		AgentID: "pm_alpha",
		Type:    decision.TypeSignalGeneration,
		Subject: "TSLA",
	}
	entryID, err := decisions.RememberDecision(ctx, d, nil)
	require.NoError(t, err)

	require.True(t, decisions.UpdateOutcome(ctx, d.ID, decision.OutcomeCorrect, "", 250))

	entry, err := store.GetMemory(entryID)
	require.NoError(t, err)
	assert.Equal(t, core.TypeLongTerm, entry.Type, "large attributed PnL promotes either way")
}

func TestUpdateOutcomeUnknownDecision(t *testing.T) {
	decisions, _ := newDecisionMemory(t)
	assert.False(t, decisions.UpdateOutcome(context.Background(), "no-such-id", decision.OutcomeCorrect, "", 0))
}

func TestRecallSimilarDecisions(t *testing.T) {
	decisions, _ := newDecisionMemory(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := decisions.RememberDecision(ctx, &decision.Decision{
			AgentID: "ic_chair",
			Type:    decision.TypeICApproval,
			Subject: "AAPL",
		}, nil)
		require.NoError(t, err)
	}
	_, err := decisions.RememberDecision(ctx, &decision.Decision{
		AgentID: "risk_manager",
		Type:    decision.TypeRiskOverride,
		Subject: "AAPL",
	}, nil)
	require.NoError(t, err)

	similar, err := decisions.RecallSimilarDecisions(decision.TypeICApproval, "AAPL", 5)
	require.NoError(t, err)
	assert.Len(t, similar, 2)
	for _, entry := range similar {
		storedType, _ := core.ContextString(entry.Context, "decision", "type")
		assert.Equal(t, "ic_approval", storedType)
	}
}

func TestRecallIncorrectDecisions(t *testing.T) {
	decisions, _ := newDecisionMemory(t)
	ctx := context.Background()

	wrong := &decision.Decision{AgentID: "pm_alpha", Type: decision.TypePositionSizing, Subject: "NVDA"}
	_, err := decisions.RememberDecision(ctx, wrong, nil)
	require.NoError(t, err)
	require.True(t, decisions.UpdateOutcome(ctx, wrong.ID, decision.OutcomeIncorrect, "", -80))

	right := &decision.Decision{AgentID: "pm_alpha", Type: decision.TypePositionSizing, Subject: "AAPL"}
	_, err = decisions.RememberDecision(ctx, right, nil)
	require.NoError(t, err)
	require.True(t, decisions.UpdateOutcome(ctx, right.ID, decision.OutcomeCorrect, "", 60))

	incorrect := decisions.RecallIncorrectDecisions("", 10)
	require.Len(t, incorrect, 1)
	subject, _ := core.ContextString(incorrect[0].Context, "decision", "subject")
	assert.Equal(t, "NVDA", subject)

	assert.Empty(t, decisions.RecallIncorrectDecisions(decision.TypeRiskOverride, 10))
}

func TestAgentAccuracy(t *testing.T) {
	decisions, _ := newDecisionMemory(t)
	ctx := context.Background()

	correct := &decision.Decision{AgentID: "pm_alpha", Type: decision.TypePositionSizing, Subject: "AAPL"}
	_, err := decisions.RememberDecision(ctx, correct, nil)
	require.NoError(t, err)
	require.True(t, decisions.UpdateOutcome(ctx, correct.ID, decision.OutcomeCorrect, "", 120))

	incorrect := &decision.Decision{AgentID: "pm_alpha", Type: decision.TypePositionSizing, Subject: "NVDA"}
	_, err = decisions.RememberDecision(ctx, incorrect, nil)
	require.NoError(t, err)
	require.True(t, decisions.UpdateOutcome(ctx, incorrect.ID, decision.OutcomeIncorrect, "", -150))

	pending := &decision.Decision{AgentID: "pm_alpha", Type: decision.TypeExecutionChoice, Subject: "MSFT"}
	_, err = decisions.RememberDecision(ctx, pending, nil)
	require.NoError(t, err)

	// Another agent's decisions must not count.
	other := &decision.Decision{AgentID: "pm_beta", Type: decision.TypePositionSizing, Subject: "AAPL"}
	_, err = decisions.RememberDecision(ctx, other, nil)
	require.NoError(t, err)

	report := decisions.AgentAccuracy("pm_alpha", "")
	assert.Equal(t, 3, report.Total, "pending decisions count toward the total")
	assert.Equal(t, 1, report.Correct)
	assert.Equal(t, 1, report.Incorrect)
	assert.Equal(t, 0.5, report.Accuracy, "accuracy over resolved outcomes only")
	assert.InDelta(t, -30.0, report.TotalPnLBps, 1e-9)

	filtered := decisions.AgentAccuracy("pm_alpha", decision.TypePositionSizing)
	assert.Equal(t, 2, filtered.Total)
	assert.Equal(t, 0.5, filtered.Accuracy)

	empty := decisions.AgentAccuracy("nobody", "")
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, 0.0, empty.Accuracy)
}
