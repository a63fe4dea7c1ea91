package learning_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphadesk/agentmem/pkg/core"
	"github.com/alphadesk/agentmem/pkg/learning"
)

func newLearningMemory(t *testing.T) (*learning.Memory, *core.Store) {
	t.Helper()
	store, err := core.NewStore(core.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return learning.New(store), store
}

func TestAddLessonPriorityScalesWithImpact(t *testing.T) {
	testCases := []struct {
		name      string
		impactBps float64
		want      core.Priority
	}{
		{"large negative impact is critical", -120, core.PriorityCritical},
		{"large positive impact is critical", 150, core.PriorityCritical},
		{"moderate impact is high", 60, core.PriorityHigh},
		{"small impact is medium", 20, core.PriorityMedium},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lessons, store := newLearningMemory(t)

			id, err := lessons.AddLesson(context.Background(), &learning.Lesson{
				Title:              "Cut exposure around earnings",
				Description:        "Earnings gaps overwhelm the signal edge",
				Category:           "risk",
				Situation:          "holding through earnings",
				EstimatedImpactBps: tc.impactBps,
				SourceAgent:        "pm_alpha",
			})
			require.NoError(t, err)

			entry, err := store.GetMemory(id)
			require.NoError(t, err)
			assert.Equal(t, tc.want, entry.Priority)
			assert.Equal(t, core.TypeSemantic, entry.Type)
			assert.Nil(t, entry.ExpiresAt, "semantic memory never expires by time")
			assert.True(t, entry.HasTag("lesson"))
			assert.True(t, entry.HasTag("risk"))
		})
	}
}

func TestAddLessonValenceTracksImpactSign(t *testing.T) {
	lessons, store := newLearningMemory(t)
	ctx := context.Background()

	painfulID, err := lessons.AddLesson(ctx, &learning.Lesson{
		Title:              "Oversized into illiquidity",
		Category:           "sizing",
		EstimatedImpactBps: -300,
	})
	require.NoError(t, err)

	painful, err := store.GetMemory(painfulID)
	require.NoError(t, err)
	assert.Equal(t, -0.8, painful.EmotionalValence, "clamped at -0.8")

	mildID, err := lessons.AddLesson(ctx, &learning.Lesson{
		Title:              "Patience on entries",
		Category:           "execution",
		EstimatedImpactBps: 40,
	})
	require.NoError(t, err)

	mild, err := store.GetMemory(mildID)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, mild.EmotionalValence, 1e-9)
}

func TestAddMarketInsight(t *testing.T) {
	lessons, store := newLearningMemory(t)
	ctx := context.Background()

	id, err := lessons.AddMarketInsight(ctx, &learning.MarketInsight{
		InsightType:     "anomaly",
		Description:     "Spreads triple in the last ten minutes",
		MarketCondition: "high_vol",
		Tickers:         []string{"NVDA"},
		Confidence:      0.8,
		SourceAgent:     "execution_trader",
	})
	require.NoError(t, err)

	entry, err := store.GetMemory(id)
	require.NoError(t, err)
	assert.Equal(t, core.PriorityHigh, entry.Priority, "anomalies are high priority")
	assert.Equal(t, core.TypeSemantic, entry.Type)
	assert.True(t, entry.HasTag("insight"))
	assert.True(t, entry.HasTag("high_vol"))
	assert.True(t, entry.HasTag("NVDA"))
	assert.Contains(t, entry.Content, "condition: high_vol")

	plainID, err := lessons.AddMarketInsight(ctx, &learning.MarketInsight{
		InsightType: "observation",
		Description: "Volume fades after the open",
	})
	require.NoError(t, err)

	plain, err := store.GetMemory(plainID)
	require.NoError(t, err)
	assert.Equal(t, core.PriorityMedium, plain.Priority, "plain observations are medium")
}

func TestAddAntiPatternInvariants(t *testing.T) {
	lessons, store := newLearningMemory(t)

	id, err := lessons.AddAntiPattern(context.Background(),
		"revenge trading",
		"Doubling size immediately after a loss",
		"sizing",
		"risk_manager",
	)
	require.NoError(t, err)

	entry, err := store.GetMemory(id)
	require.NoError(t, err)
	assert.Equal(t, core.PriorityCritical, entry.Priority, "anti-patterns must never be forgotten")
	assert.Equal(t, -0.5, entry.EmotionalValence)
	assert.Equal(t, core.TypeSemantic, entry.Type)
	assert.True(t, entry.HasTag("anti_pattern"))
	assert.True(t, entry.HasTag("avoid"))
	assert.True(t, entry.HasTag("sizing"))
	assert.Contains(t, entry.Content, "AVOID")
}

func TestAddBestPractice(t *testing.T) {
	lessons, store := newLearningMemory(t)

	id, err := lessons.AddBestPractice(context.Background(),
		"staged entries",
		"Scale in thirds rather than all at once",
		"execution",
		"execution_trader",
	)
	require.NoError(t, err)

	entry, err := store.GetMemory(id)
	require.NoError(t, err)
	assert.Equal(t, core.PriorityHigh, entry.Priority)
	assert.Equal(t, 0.3, entry.EmotionalValence)
	assert.True(t, entry.HasTag("best_practice"))
	assert.True(t, entry.HasTag("apply"))
}

func TestRelevantLessonsMatchesSituationWords(t *testing.T) {
	lessons, _ := newLearningMemory(t)
	ctx := context.Background()

	_, err := lessons.AddLesson(ctx, &learning.Lesson{
		Title:       "Cut exposure around earnings",
		Description: "Earnings gaps overwhelm the signal edge",
		Category:    "earnings",
	})
	require.NoError(t, err)
	_, err = lessons.AddLesson(ctx, &learning.Lesson{
		Title:       "Venue choice matters at the close",
		Description: "Closing auctions absorb size better",
		Category:    "execution",
	})
	require.NoError(t, err)
	// A non-lesson entry mentioning earnings must not leak in.
	_, err = lessons.AddMarketInsight(ctx, &learning.MarketInsight{
		InsightType: "observation",
		Description: "Implied vol rises before earnings",
	})
	require.NoError(t, err)

	matches, err := lessons.RelevantLessons("holding AAPL through earnings", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, matches[0].HasTag("lesson"))
	assert.Contains(t, matches[0].Content, "earnings")
}

func TestAntiPatternsRecall(t *testing.T) {
	lessons, _ := newLearningMemory(t)
	ctx := context.Background()

	_, err := lessons.AddAntiPattern(ctx, "revenge trading", "doubling after a loss", "sizing", "risk_manager")
	require.NoError(t, err)

	matches, err := lessons.AntiPatterns("sizing the next position", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, matches[0].HasTag("anti_pattern"))
}

func TestBestPracticesAndInsightsRecall(t *testing.T) {
	lessons, _ := newLearningMemory(t)
	ctx := context.Background()

	_, err := lessons.AddBestPractice(ctx, "staged entries", "scale in thirds", "execution", "execution_trader")
	require.NoError(t, err)
	_, err = lessons.AddMarketInsight(ctx, &learning.MarketInsight{
		InsightType:     "correlation",
		Description:     "Momentum decays fast in chop",
		MarketCondition: "high_vol",
	})
	require.NoError(t, err)

	practices, err := lessons.BestPractices("execution", 5)
	require.NoError(t, err)
	assert.Len(t, practices, 1)

	insights, err := lessons.MarketInsights("high_vol", 5)
	require.NoError(t, err)
	assert.Len(t, insights, 1)

	insights, err = lessons.MarketInsights("low_vol", 5)
	require.NoError(t, err)
	assert.Empty(t, insights)
}

func TestLearningSummary(t *testing.T) {
	lessons, _ := newLearningMemory(t)
	ctx := context.Background()

	_, err := lessons.AddLesson(ctx, &learning.Lesson{Title: "a", Category: "risk"})
	require.NoError(t, err)
	_, err = lessons.AddLesson(ctx, &learning.Lesson{Title: "b", Category: "sizing"})
	require.NoError(t, err)
	_, err = lessons.AddMarketInsight(ctx, &learning.MarketInsight{InsightType: "observation", Description: "c"})
	require.NoError(t, err)
	_, err = lessons.AddBestPractice(ctx, "d", "", "execution", "")
	require.NoError(t, err)
	_, err = lessons.AddAntiPattern(ctx, "e", "", "sizing", "")
	require.NoError(t, err)

	summary := lessons.LearningSummary()
	assert.Equal(t, 2, summary.Lessons)
	assert.Equal(t, 1, summary.Insights)
	assert.Equal(t, 1, summary.BestPractices)
	assert.Equal(t, 1, summary.AntiPatterns)
	assert.Equal(t, 5, summary.Total)
}
