package core

import (
	"encoding/json"
	"strings"
	"time"
)

// IsExpired reports whether the entry has passed its time-based expiry.
//
// Entries with no ExpiresAt never expire by time; they only fade via decay.
// Expired entries must never be returned by recall regardless of strength.
func (e *MemoryEntry) IsExpired() bool {
	return e.ExpiresAt != nil && time.Now().After(*e.ExpiresAt)
}

// DecayStrength reduces the entry's strength by the effective decay amount.
//
// The effective decay is:
//
//	decayRate / (1 + access_count*0.1)
//
// further multiplied by 0.1 for critical priority and 0.5 for high priority.
// Frequently accessed and high-priority memories therefore fade slower.
// Strength is floored at 0; the method never fails.
func (e *MemoryEntry) DecayStrength(decayRate float64) {
	effective := decayRate / (1 + float64(e.AccessCount)*0.1)
	effective *= e.Priority.decayModifier()

	e.Strength -= effective
	if e.Strength < 0 {
		e.Strength = 0
	}
}

// Reinforce strengthens the entry by amount, capped at 1.0.
//
// Each reinforcement counts as one access: AccessCount is incremented and
// LastAccessed set to now. Called with a small amount on every recall hit
// (associative rehearsal) and with a larger amount on outcome confirmation.
func (e *MemoryEntry) Reinforce(amount float64) {
	e.Strength += amount
	if e.Strength > 1.0 {
		e.Strength = 1.0
	}
	now := time.Now()
	e.AccessCount++
	e.LastAccessed = &now
}

// Encode serializes the entry to JSON.
//
// The encoding round-trips through DecodeEntry and is the payload format
// used by the persistence backends.
func (e *MemoryEntry) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, NewMemoryError("Encode", err)
	}
	return data, nil
}

// DecodeEntry deserializes an entry previously produced by Encode.
func DecodeEntry(data []byte) (*MemoryEntry, error) {
	var entry MemoryEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, NewMemoryError("DecodeEntry", err)
	}
	return &entry, nil
}

// matchesQuery reports whether the entry matches a case-folded query.
//
// A match is a substring hit on the content or on any tag. The query must
// already be lower-cased by the caller.
func (e *MemoryEntry) matchesQuery(loweredQuery string) bool {
	if loweredQuery == "" {
		return true
	}
	if strings.Contains(strings.ToLower(e.Content), loweredQuery) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), loweredQuery) {
			return true
		}
	}
	return false
}

// HasTag reports whether the entry carries the exact tag (case-insensitive).
func (e *MemoryEntry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
