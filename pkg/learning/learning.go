// Package learning stores organizational knowledge: lessons, market
// insights, best practices and anti-patterns.
//
// Everything here is semantic memory: it never expires by time, only via
// the decay policy applied elsewhere. Anti-patterns are deliberately
// over-weighted (critical priority, negative valence) so they are never
// forgotten and rank highest in recall.
package learning

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/alphadesk/agentmem/pkg/core"
)

// Lesson is a distilled takeaway from an outcome or incident.
type Lesson struct {
	// ID identifies the lesson (generated if empty).
	ID string `json:"id"`

	// Title is a short headline.
	Title string `json:"title"`

	// Description is the full takeaway.
	Description string `json:"description"`

	// Category buckets the lesson (e.g. "execution", "risk", "sizing").
	Category string `json:"category"`

	// Situation describes when the lesson applies.
	Situation string `json:"situation"`

	// EstimatedImpactBps is the estimated PnL impact of applying (or
	// having applied) the lesson. Magnitude drives priority.
	EstimatedImpactBps float64 `json:"estimated_impact_bps"`

	// SourceAgent is the agent that learned it.
	SourceAgent string `json:"source_agent"`
}

// MarketInsight is an observed market behavior worth remembering.
type MarketInsight struct {
	// ID identifies the insight (generated if empty).
	ID string `json:"id"`

	// InsightType classifies the insight: "observation", "correlation",
	// "anomaly", "anti_pattern" or "best_practice".
	InsightType string `json:"insight_type"`

	// Description is the insight itself.
	Description string `json:"description"`

	// MarketCondition describes when the insight applies (e.g. "high_vol").
	MarketCondition string `json:"market_condition"`

	// Tickers lists affected instruments, if specific.
	Tickers []string `json:"tickers,omitempty"`

	// Confidence is how well-established the insight is, in [0, 1].
	Confidence float64 `json:"confidence"`

	// SourceAgent is the agent that observed it.
	SourceAgent string `json:"source_agent"`
}

// Summary counts organizational knowledge by category.
type Summary struct {
	Lessons       int `json:"lessons"`
	Insights      int `json:"insights"`
	BestPractices int `json:"best_practices"`
	AntiPatterns  int `json:"anti_patterns"`
	Total         int `json:"total"`
}

// Memory wraps the core store with organizational-knowledge semantics.
type Memory struct {
	store *core.Store
}

// New creates a learning memory over the given store.
func New(store *core.Store) *Memory {
	return &Memory{store: store}
}

// AddLesson records a lesson learned.
//
// Priority scales with the estimated impact magnitude: above 100bps
// critical, above 50bps high, otherwise medium. Emotional valence tracks
// the impact sign so painful lessons bias toward promotion.
func (m *Memory) AddLesson(ctx context.Context, lesson *Lesson) (string, error) {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}

	absImpact := math.Abs(lesson.EstimatedImpactBps)
	priority := core.PriorityMedium
	switch {
	case absImpact > 100:
		priority = core.PriorityCritical
	case absImpact > 50:
		priority = core.PriorityHigh
	}

	valence := lesson.EstimatedImpactBps / 200
	if valence > 0.8 {
		valence = 0.8
	}
	if valence < -0.8 {
		valence = -0.8
	}

	content := fmt.Sprintf("Lesson (%s): %s — %s", lesson.Category, lesson.Title, lesson.Description)

	return m.store.AddMemory(ctx, content, core.TypeSemantic,
		core.WithAgentID(lesson.SourceAgent),
		core.WithPriority(priority),
		core.WithContext(map[string]interface{}{"lesson": lesson.toContext()}),
		core.WithTags("lesson", lesson.Category),
		core.WithEmotionalValence(valence),
	)
}

// AddMarketInsight records an observed market behavior.
//
// Anomalies, anti-patterns and best practices get high priority; plain
// observations and correlations get medium.
func (m *Memory) AddMarketInsight(ctx context.Context, insight *MarketInsight) (string, error) {
	if insight.ID == "" {
		insight.ID = uuid.NewString()
	}

	priority := core.PriorityMedium
	switch insight.InsightType {
	case "anomaly", "anti_pattern", "best_practice":
		priority = core.PriorityHigh
	}

	tags := []string{"insight", insight.InsightType}
	if insight.MarketCondition != "" {
		tags = append(tags, insight.MarketCondition)
	}
	tags = append(tags, insight.Tickers...)

	content := fmt.Sprintf("Market insight (%s): %s", insight.InsightType, insight.Description)
	if insight.MarketCondition != "" {
		content += fmt.Sprintf(" [condition: %s]", insight.MarketCondition)
	}

	return m.store.AddMemory(ctx, content, core.TypeSemantic,
		core.WithAgentID(insight.SourceAgent),
		core.WithPriority(priority),
		core.WithContext(map[string]interface{}{"insight": insight.toContext()}),
		core.WithTags(tags...),
	)
}

// AddBestPractice records a confirmed good behavior.
func (m *Memory) AddBestPractice(ctx context.Context, title, description, category, sourceAgent string) (string, error) {
	content := fmt.Sprintf("Best practice (%s): %s — %s", category, title, description)

	return m.store.AddMemory(ctx, content, core.TypeSemantic,
		core.WithAgentID(sourceAgent),
		core.WithPriority(core.PriorityHigh),
		core.WithContext(map[string]interface{}{
			"best_practice": map[string]interface{}{
				"id":          uuid.NewString(),
				"title":       title,
				"description": description,
				"category":    category,
			},
		}),
		core.WithTags("best_practice", category, "apply"),
		core.WithEmotionalValence(0.3),
	)
}

// AddAntiPattern records a documented behavior to avoid.
//
// Anti-patterns are always critical priority with negative emotional
// valence so consolidation promotes them, decay barely touches them, and
// recall ranks them first.
func (m *Memory) AddAntiPattern(ctx context.Context, name, description, category, sourceAgent string) (string, error) {
	content := fmt.Sprintf("Anti-pattern (%s): %s — AVOID: %s", category, name, description)

	return m.store.AddMemory(ctx, content, core.TypeSemantic,
		core.WithAgentID(sourceAgent),
		core.WithPriority(core.PriorityCritical),
		core.WithContext(map[string]interface{}{
			"anti_pattern": map[string]interface{}{
				"id":          uuid.NewString(),
				"name":        name,
				"description": description,
				"category":    category,
			},
		}),
		core.WithTags("anti_pattern", category, "avoid"),
		core.WithEmotionalValence(-0.5),
	)
}

// RelevantLessons recalls lessons applicable to a situation.
//
// The store's substring recall is not precise enough on its own, so
// results are filtered down to entries actually tagged as lessons.
// Limit defaults to 5.
func (m *Memory) RelevantLessons(situation string, limit int) ([]*core.MemoryEntry, error) {
	return m.recallTagged(situation, "lesson", limit, 5)
}

// AntiPatterns recalls anti-patterns applicable to a situation.
// Limit defaults to 5.
func (m *Memory) AntiPatterns(situation string, limit int) ([]*core.MemoryEntry, error) {
	return m.recallTagged(situation, "anti_pattern", limit, 5)
}

// BestPractices recalls best practices for a category.
// Limit defaults to 5.
func (m *Memory) BestPractices(category string, limit int) ([]*core.MemoryEntry, error) {
	return m.recallTagged(category, "best_practice", limit, 5)
}

// MarketInsights recalls insights for a market condition.
// Limit defaults to 5.
func (m *Memory) MarketInsights(marketCondition string, limit int) ([]*core.MemoryEntry, error) {
	return m.recallTagged(marketCondition, "insight", limit, 5)
}

// recallTagged recalls by query, then keeps only entries carrying the
// marker tag.
func (m *Memory) recallTagged(query, tag string, limit, defaultLimit int) ([]*core.MemoryEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	// Situations are free text; recall on each word and merge, since the
	// substring match needs contiguous hits.
	seen := make(map[string]bool)
	var matches []*core.MemoryEntry
	for _, word := range queryWords(query) {
		entries, err := m.store.Recall(word,
			core.WithMemoryTypes(core.TypeSemantic, core.TypeLongTerm),
			core.WithLimit(limit*4),
		)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if seen[entry.ID] || !entry.HasTag(tag) {
				continue
			}
			seen[entry.ID] = true
			matches = append(matches, entry)
		}
	}

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// LearningSummary counts organizational knowledge by category across the
// semantic and long-term partitions.
func (m *Memory) LearningSummary() *Summary {
	summary := &Summary{}
	types := []core.MemoryType{core.TypeSemantic, core.TypeLongTerm}

	for _, entry := range m.store.GetMemoriesByTags([]string{"lesson", "insight", "best_practice", "anti_pattern"}, types...) {
		switch {
		case entry.HasTag("anti_pattern"):
			summary.AntiPatterns++
		case entry.HasTag("best_practice"):
			summary.BestPractices++
		case entry.HasTag("lesson"):
			summary.Lessons++
		case entry.HasTag("insight"):
			summary.Insights++
		}
		summary.Total++
	}
	return summary
}

// queryWords splits a free-text situation into recall terms.
func queryWords(query string) []string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return []string{""}
	}
	return fields
}

// toContext flattens the lesson into JSON-stable context types.
func (l *Lesson) toContext() map[string]interface{} {
	return map[string]interface{}{
		"id":                   l.ID,
		"title":                l.Title,
		"description":          l.Description,
		"category":             l.Category,
		"situation":            l.Situation,
		"estimated_impact_bps": l.EstimatedImpactBps,
		"source_agent":         l.SourceAgent,
	}
}

// toContext flattens the insight into JSON-stable context types.
func (i *MarketInsight) toContext() map[string]interface{} {
	return map[string]interface{}{
		"id":               i.ID,
		"insight_type":     i.InsightType,
		"description":      i.Description,
		"market_condition": i.MarketCondition,
		"tickers":          i.Tickers,
		"confidence":       i.Confidence,
		"source_agent":     i.SourceAgent,
	}
}
