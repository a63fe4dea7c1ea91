package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/alphadesk/agentmem/pkg/logging"
	"github.com/alphadesk/agentmem/pkg/persistence"
	mysqlStore "github.com/alphadesk/agentmem/pkg/persistence/mysql"
	postgresStore "github.com/alphadesk/agentmem/pkg/persistence/postgres"
	sqliteStore "github.com/alphadesk/agentmem/pkg/persistence/sqlite"
)

// Store is the core memory store.
//
// It holds all entries partitioned by memory type and implements
// add/recall/decay/consolidate/forget plus the working-memory scratch
// space. Persistence is write-through and best-effort: the in-memory view
// is the source of truth and a failed durable write never surfaces to
// callers.
//
// The store is safe for concurrent use. Recall mutates strength and
// access counts (associative rehearsal), so every operation, reads
// included, takes the same exclusive lock.
//
// Example usage:
//
//	config := core.DefaultConfig()
//	store, _ := core.NewStore(config)
//	defer store.Close()
//
//	id, _ := store.AddMemory(ctx, "AAPL momentum trade: +120bps", core.TypeShortTerm,
//	    core.WithAgentID("execution_trader"),
//	    core.WithPriority(core.PriorityHigh),
//	    core.WithTags("AAPL", "momentum"),
//	)
//	matches, _ := store.Recall("AAPL")
type Store struct {
	// config contains the store configuration.
	config *Config

	// partitions maps each memory type to its ID-keyed entries.
	partitions map[MemoryType]map[string]*MemoryEntry

	// working is the ephemeral session scratch space, separate from the
	// typed partitions and never persisted.
	working map[string]interface{}

	// persister is the durable backend (no-op by default).
	persister persistence.Store

	// logger records swallowed persistence failures and sweep outcomes.
	logger *slog.Logger

	// node generates unique entry IDs.
	node *snowflake.Node

	// mu guards all store state. Recall is a write operation for
	// synchronization purposes.
	mu sync.Mutex
}

// StoreOption configures a Store at construction time.
type StoreOption func(*Store)

// WithPersistence injects a durable backend, overriding the provider
// named in the configuration. Useful for tests and custom backends.
func WithPersistence(p persistence.Store) StoreOption {
	return func(s *Store) {
		s.persister = p
	}
}

// WithLogger injects a logger, overriding the one built from the
// configuration.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a new memory store.
//
// The store is initialized with:
//   - One partition per memory type
//   - The durable backend named in cfg.Persistence (in-memory only by default)
//   - A warm start from the backend's existing records
//
// Construction fails on invalid configuration or an unreachable backend
// (callers must be able to distinguish a misconfigured store from an
// empty one). After construction succeeds, persistence failures are
// advisory only.
//
// Parameters:
//   - cfg: Store configuration (nil uses DefaultConfig)
//   - opts: Optional overrides (persistence backend, logger)
//
// Returns a new Store instance, or an error if initialization fails.
func NewStore(cfg *Config, opts ...StoreOption) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewMemoryError("NewStore", err)
	}

	partitions := make(map[MemoryType]map[string]*MemoryEntry, len(MemoryTypes()))
	for _, t := range MemoryTypes() {
		partitions[t] = make(map[string]*MemoryEntry)
	}

	store := &Store{
		config:     cfg,
		partitions: partitions,
		working:    make(map[string]interface{}),
		node:       node,
	}

	for _, opt := range opts {
		opt(store)
	}

	if store.logger == nil {
		store.logger = logging.NewLogger(cfg.Log.Level, cfg.Log.Handler)
	}

	if store.persister == nil {
		persister, err := initPersistence(cfg.Persistence)
		if err != nil {
			return nil, err
		}
		store.persister = persister
	}

	store.warmStart(context.Background())

	return store, nil
}

// warmStart loads existing records from the durable backend.
//
// Read and decode failures are logged and skipped: a partially readable
// backend must not prevent the store from serving.
func (s *Store) warmStart(ctx context.Context) {
	records, err := s.persister.GetAll(ctx)
	if err != nil {
		s.logger.Warn("memory warm start failed, starting empty", "error", err)
		return
	}

	loaded := 0
	for _, record := range records {
		entry, err := DecodeEntry(record.Payload)
		if err != nil {
			s.logger.Warn("skipping undecodable memory record", "id", record.ID, "error", err)
			continue
		}
		if !entry.Type.Valid() {
			s.logger.Warn("skipping memory record with unknown type", "id", record.ID, "type", string(entry.Type))
			continue
		}
		s.partitions[entry.Type][entry.ID] = entry
		loaded++
	}

	if loaded > 0 {
		s.logger.Info("memory warm start complete", "loaded", loaded)
	}
}

// AddMemory creates a new entry and inserts it into the store.
//
// The expiry is set per type rule: short_term expires after
// Config.ShortTermHours, working after Config.WorkingMemoryHours, and the
// remaining types never expire by time. The new entry starts at full
// strength.
//
// The write-through to the durable backend is best-effort: a failed write
// is logged and ignored, so AddMemory only fails on caller misuse
// (unknown type or priority, empty content).
//
// Parameters:
//   - ctx: Context for the persistence write
//   - content: Human-readable summary of the memory
//   - memoryType: Memory tier for the new entry
//   - opts: Optional parameters (AgentID, Priority, Context, Tags, ...)
//
// Returns the new entry's ID, or an error on invalid input.
//
// Example:
//
//	id, err := store.AddMemory(ctx, "IC rejected NVDA position", core.TypeLongTerm,
//	    core.WithAgentID("ic_chair"),
//	    core.WithPriority(core.PriorityHigh),
//	    core.WithContext(map[string]interface{}{"decision": decision}),
//	    core.WithTags("NVDA", "ic_rejection"),
//	)
func (s *Store) AddMemory(ctx context.Context, content string, memoryType MemoryType, opts ...AddOption) (string, error) {
	if !memoryType.Valid() {
		return "", NewMemoryError("AddMemory", fmt.Errorf("%w: %q", ErrInvalidMemoryType, string(memoryType)))
	}
	if content == "" {
		return "", NewMemoryError("AddMemory", ErrEmptyContent)
	}

	addOpts := applyAddOptions(opts)
	if !addOpts.Priority.Valid() {
		return "", NewMemoryError("AddMemory", fmt.Errorf("%w: %q", ErrInvalidPriority, string(addOpts.Priority)))
	}

	now := time.Now()
	entry := &MemoryEntry{
		ID:               s.newID(memoryType),
		Type:             memoryType,
		Priority:         addOpts.Priority,
		Content:          content,
		Context:          copyContext(addOpts.Context),
		AgentID:          addOpts.AgentID,
		CreatedAt:        now,
		Strength:         1.0,
		RelatedMemories:  append([]string(nil), addOpts.RelatedTo...),
		Tags:             append([]string(nil), addOpts.Tags...),
		EmotionalValence: clamp(addOpts.EmotionalValence, -1, 1),
		SurpriseFactor:   clamp(addOpts.SurpriseFactor, 0, 1),
	}

	switch memoryType {
	case TypeShortTerm:
		expires := now.Add(hours(s.config.ShortTermHours))
		entry.ExpiresAt = &expires
	case TypeWorking:
		expires := now.Add(hours(s.config.WorkingMemoryHours))
		entry.ExpiresAt = &expires
	}

	s.mu.Lock()
	s.partitions[memoryType][entry.ID] = entry
	s.mu.Unlock()

	s.persist(ctx, entry)

	return entry.ID, nil
}

// Recall finds entries matching a query string.
//
// The query matches case-insensitively as a substring of the content or
// of any tag. Expired entries, entries below the strength threshold, and
// entries owned by a different agent (when an agent filter is given) are
// excluded. Every match is mildly reinforced as a side effect, modeling
// associative rehearsal.
//
// Results are ordered by strength multiplied by priority weight,
// descending, and truncated to the limit (default 10).
//
// Parameters:
//   - query: Substring to match (empty matches everything)
//   - opts: Optional filters (memory types, agent, limit, min strength)
//
// Returns matched entries, or an error if an unknown memory type is
// requested.
//
// Example:
//
//	losses, _ := store.Recall("AAPL loss",
//	    core.WithMemoryTypes(core.TypeEpisodic, core.TypeLongTerm),
//	    core.WithLimit(5),
//	)
func (s *Store) Recall(query string, opts ...RecallOption) ([]*MemoryEntry, error) {
	recallOpts := applyRecallOptions(opts)

	types := recallOpts.Types
	if len(types) == 0 {
		types = MemoryTypes()
	}
	for _, t := range types {
		if !t.Valid() {
			return nil, NewMemoryError("Recall", fmt.Errorf("%w: %q", ErrInvalidMemoryType, string(t)))
		}
	}

	limit := recallOpts.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}
	minStrength := recallOpts.MinStrength
	if minStrength < 0 {
		minStrength = s.config.MinRecallStrength
	}

	lowered := strings.ToLower(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []*MemoryEntry
	for _, t := range types {
		for _, entry := range s.partitions[t] {
			if recallOpts.AgentID != "" && entry.AgentID != recallOpts.AgentID {
				continue
			}
			if entry.Strength < minStrength || entry.IsExpired() {
				continue
			}
			if !entry.matchesQuery(lowered) {
				continue
			}
			entry.Reinforce(s.config.RecallReinforcement)
			matches = append(matches, entry)
		}
	}

	sortByRelevance(matches)

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// ConsolidateMemories runs one maintenance sweep over short-term memory.
//
// For every short-term entry the sweep applies the base decay, then:
//   - promotes the entry to long-term if any promotion criterion holds
//     (strength above Config.PromotionStrength, critical or high priority,
//     access count at or above Config.PromotionAccessCount, absolute
//     emotional valence above Config.PromotionValence, or surprise above
//     Config.PromotionSurprise)
//   - deletes the entry if its strength fell below Config.PruneFloor
//   - otherwise leaves it in short-term for the next sweep
//
// Promotion clears the time-based expiry. The sweep holds the store lock
// for its whole duration; schedule it off the hot decision path.
func (s *Store) ConsolidateMemories(ctx context.Context) ConsolidationReport {
	s.mu.Lock()

	shortTerm := s.partitions[TypeShortTerm]
	report := ConsolidationReport{Scanned: len(shortTerm)}

	var promoted []*MemoryEntry
	var pruned []string

	for id, entry := range shortTerm {
		entry.DecayStrength(s.config.DecayRate)

		if s.qualifiesForPromotion(entry) {
			delete(shortTerm, id)
			entry.Type = TypeLongTerm
			entry.ExpiresAt = nil
			s.partitions[TypeLongTerm][id] = entry
			promoted = append(promoted, entry)
			report.Promoted++
			continue
		}

		if entry.Strength < s.config.PruneFloor {
			delete(shortTerm, id)
			pruned = append(pruned, id)
			report.Pruned++
		}
	}

	s.mu.Unlock()

	for _, entry := range promoted {
		s.persist(ctx, entry)
	}
	for _, id := range pruned {
		s.persistDelete(ctx, id)
	}

	s.logger.Info("memory consolidation sweep",
		"scanned", report.Scanned,
		"promoted", report.Promoted,
		"pruned", report.Pruned,
	)

	return report
}

// qualifiesForPromotion reports whether a short-term entry meets any
// promotion criterion. Callers must hold the lock.
func (s *Store) qualifiesForPromotion(entry *MemoryEntry) bool {
	if entry.Strength > s.config.PromotionStrength {
		return true
	}
	if entry.Priority == PriorityCritical || entry.Priority == PriorityHigh {
		return true
	}
	if entry.AccessCount >= s.config.PromotionAccessCount {
		return true
	}
	if entry.EmotionalValence > s.config.PromotionValence || entry.EmotionalValence < -s.config.PromotionValence {
		return true
	}
	if entry.SurpriseFactor > s.config.PromotionSurprise {
		return true
	}
	return false
}

// PromoteToLongTerm moves a short-term entry to long-term immediately,
// outside the consolidation cadence. Used when an outcome proves a memory
// must not be allowed to expire (e.g. an incorrect decision).
//
// Promotion clears the time-based expiry. Returns false if the ID is not
// found in short-term memory; promotion is one-directional and entries in
// other tiers are left untouched.
func (s *Store) PromoteToLongTerm(ctx context.Context, id string) bool {
	s.mu.Lock()
	entry, ok := s.partitions[TypeShortTerm][id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.partitions[TypeShortTerm], id)
	entry.Type = TypeLongTerm
	entry.ExpiresAt = nil
	s.partitions[TypeLongTerm][id] = entry
	s.mu.Unlock()

	s.persist(ctx, entry)
	return true
}

// GetMemory retrieves a single entry by ID.
//
// Returns ErrNotFound if no partition holds the ID.
func (s *Store) GetMemory(id string) (*MemoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, partition := range s.partitions {
		if entry, ok := partition[id]; ok {
			return entry, nil
		}
	}
	return nil, NewMemoryError("GetMemory", ErrNotFound)
}

// UpdateMemory applies a mutation to an entry under the store lock and
// writes the result through to the durable backend.
//
// Returns false if the ID is not found. The mutation must not retain the
// entry pointer beyond the call.
func (s *Store) UpdateMemory(ctx context.Context, id string, mutate func(*MemoryEntry)) bool {
	s.mu.Lock()
	var target *MemoryEntry
	for _, partition := range s.partitions {
		if entry, ok := partition[id]; ok {
			target = entry
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return false
	}
	mutate(target)
	s.mu.Unlock()

	s.persist(ctx, target)
	return true
}

// GetMemoriesByTags returns non-expired entries carrying any of the given
// tags. Tag matching is a case-insensitive substring check, consistent
// with recall. Unlike Recall, tag lookup has no reinforcement side effect.
//
// If no types are given, all partitions are scanned.
func (s *Store) GetMemoriesByTags(tags []string, types ...MemoryType) []*MemoryEntry {
	if len(types) == 0 {
		types = MemoryTypes()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []*MemoryEntry
	for _, t := range types {
		for _, entry := range s.partitions[t] {
			if entry.IsExpired() {
				continue
			}
			if entryHasAnyTag(entry, tags) {
				matches = append(matches, entry)
			}
		}
	}

	sortByRelevance(matches)
	return matches
}

// GetAgentMemories returns all non-expired entries owned by one agent,
// sorted by creation time descending and truncated to limit (default 50).
//
// If no types are given, all partitions are scanned.
func (s *Store) GetAgentMemories(agentID string, limit int, types ...MemoryType) []*MemoryEntry {
	if limit <= 0 {
		limit = defaultAgentMemoriesLimit
	}
	if len(types) == 0 {
		types = MemoryTypes()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []*MemoryEntry
	for _, t := range types {
		for _, entry := range s.partitions[t] {
			if entry.AgentID != agentID || entry.IsExpired() {
				continue
			}
			matches = append(matches, entry)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Forget removes an entry from whichever partition holds it.
//
// Returns whether the entry was found. A miss is not an error. The
// durable copy is deleted best-effort.
func (s *Store) Forget(ctx context.Context, id string) bool {
	s.mu.Lock()
	found := false
	for _, partition := range s.partitions {
		if _, ok := partition[id]; ok {
			delete(partition, id)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if found {
		s.persistDelete(ctx, id)
	}
	return found
}

// ForgetWorkingMemories removes every working-type entry owned by one
// agent, expired entries included. Returns the number removed.
//
// Called at the end of a decision cycle; other agents' entries and other
// tiers are untouched.
func (s *Store) ForgetWorkingMemories(ctx context.Context, agentID string) int {
	s.mu.Lock()
	working := s.partitions[TypeWorking]
	var removed []string
	for id, entry := range working {
		if entry.AgentID == agentID {
			delete(working, id)
			removed = append(removed, id)
		}
	}
	s.mu.Unlock()

	for _, id := range removed {
		s.persistDelete(ctx, id)
	}
	return len(removed)
}

// Summary returns aggregate counts and the average strength across all
// live entries.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := Summary{
		ByType:     make(map[MemoryType]int),
		ByPriority: make(map[Priority]int),
	}

	var totalStrength float64
	for t, partition := range s.partitions {
		summary.ByType[t] = len(partition)
		for _, entry := range partition {
			summary.Total++
			summary.ByPriority[entry.Priority]++
			totalStrength += entry.Strength
		}
	}

	if summary.Total > 0 {
		summary.AverageStrength = totalStrength / float64(summary.Total)
	}
	return summary
}

// WorkingContext returns a copy of the ephemeral session scratch space.
//
// Working context is separate from the typed partitions and is never
// persisted.
func (s *Store) WorkingContext() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]interface{}, len(s.working))
	for k, v := range s.working {
		out[k] = v
	}
	return out
}

// SetWorkingContext sets one key in the session scratch space.
func (s *Store) SetWorkingContext(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.working[key] = value
}

// DeleteWorkingContext removes one key from the session scratch space.
func (s *Store) DeleteWorkingContext(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.working, key)
}

// ClearWorkingMemory empties the session scratch space.
func (s *Store) ClearWorkingMemory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.working = make(map[string]interface{})
}

// Config returns the store configuration. The returned pointer is shared;
// callers must not mutate it after construction.
func (s *Store) Config() *Config {
	return s.config
}

// Close closes the durable backend.
func (s *Store) Close() error {
	if s.persister != nil {
		return s.persister.Close()
	}
	return nil
}

// newID formats a new entry ID as "{type}_{12 hex chars}" from the low
// 48 bits of a snowflake ID.
func (s *Store) newID(t MemoryType) string {
	return fmt.Sprintf("%s_%012x", t, s.node.Generate().Int64()&0xffffffffffff)
}

// persist writes an entry through to the durable backend, best-effort.
//
// Failures are logged and swallowed: persistence is advisory and must
// never reach the decision path.
func (s *Store) persist(ctx context.Context, entry *MemoryEntry) {
	s.mu.Lock()
	payload, err := entry.Encode()
	record := &persistence.Record{
		ID:         entry.ID,
		MemoryType: string(entry.Type),
		AgentID:    entry.AgentID,
		Payload:    payload,
		Strength:   entry.Strength,
		CreatedAt:  entry.CreatedAt,
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("memory persistence encode failed", "id", record.ID, "error", err)
		return
	}
	if err := s.persister.Put(ctx, record); err != nil {
		s.logger.Warn("memory persistence write failed", "id", record.ID, "error", err)
	}
}

// persistDelete removes an entry from the durable backend, best-effort.
func (s *Store) persistDelete(ctx context.Context, id string) {
	if err := s.persister.Delete(ctx, id); err != nil {
		s.logger.Warn("memory persistence delete failed", "id", id, "error", err)
	}
}

// initPersistence builds the durable backend named in the configuration.
func initPersistence(cfg PersistenceConfig) (persistence.Store, error) {
	switch cfg.Provider {
	case "", "none":
		return persistence.NewNoop(), nil
	case "sqlite":
		return sqliteStore.NewClient(&sqliteStore.Config{
			DBPath:    stringValue(cfg.Config, "db_path", "./agentmem.db"),
			TableName: stringValue(cfg.Config, "table_name", "agent_memories"),
		})
	case "postgres":
		return postgresStore.NewClient(&postgresStore.Config{
			Host:      stringValue(cfg.Config, "host", "localhost"),
			Port:      intValue(cfg.Config, "port", 5432),
			User:      stringValue(cfg.Config, "user", "postgres"),
			Password:  stringValue(cfg.Config, "password", ""),
			DBName:    stringValue(cfg.Config, "db_name", "agentmem"),
			TableName: stringValue(cfg.Config, "table_name", "agent_memories"),
			SSLMode:   stringValue(cfg.Config, "ssl_mode", "disable"),
		})
	case "mysql":
		return mysqlStore.NewClient(&mysqlStore.Config{
			Host:      stringValue(cfg.Config, "host", "127.0.0.1"),
			Port:      intValue(cfg.Config, "port", 3306),
			User:      stringValue(cfg.Config, "user", "root"),
			Password:  stringValue(cfg.Config, "password", ""),
			DBName:    stringValue(cfg.Config, "db_name", "agentmem"),
			TableName: stringValue(cfg.Config, "table_name", "agent_memories"),
		})
	default:
		return nil, NewMemoryError("initPersistence", ErrInvalidConfig)
	}
}

// stringValue reads a string key from a provider config map, falling
// back to a default when the key is absent or not a string.
func stringValue(m map[string]interface{}, key, fallback string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// intValue reads an integer key from a provider config map. JSON-decoded
// configs carry numbers as float64, so both forms are accepted.
func intValue(m map[string]interface{}, key string, fallback int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

const (
	defaultRecallLimit        = 10
	defaultAgentMemoriesLimit = 50
)

// sortByRelevance orders entries by strength x priority weight,
// descending. Ties break by creation time (newest first) then ID so the
// ordering is deterministic across calls.
func sortByRelevance(entries []*MemoryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		si := entries[i].Strength * entries[i].Priority.Weight()
		sj := entries[j].Strength * entries[j].Priority.Weight()
		if si != sj {
			return si > sj
		}
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}

// entryHasAnyTag reports whether the entry carries any of the wanted tags
// (case-insensitive substring membership).
func entryHasAnyTag(entry *MemoryEntry, tags []string) bool {
	for _, wanted := range tags {
		loweredWanted := strings.ToLower(wanted)
		for _, tag := range entry.Tags {
			if strings.Contains(strings.ToLower(tag), loweredWanted) {
				return true
			}
		}
	}
	return false
}

// copyContext shallow-copies a context map so callers cannot mutate
// stored state through the original reference.
func copyContext(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// hours converts a fractional hour count to a duration.
func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
