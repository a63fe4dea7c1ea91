package core

// AddOption is a function type for configuring AddMemory operations.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type AddOption func(*AddOptions)

// AddOptions contains configuration options for AddMemory operations.
type AddOptions struct {
	// AgentID identifies the owning agent.
	AgentID string

	// Priority is the entry priority. Defaults to PriorityMedium.
	Priority Priority

	// Context carries structured machine-usable fields.
	Context map[string]interface{}

	// Tags enable categorical lookup.
	Tags []string

	// RelatedTo holds IDs of related entries (non-owning references).
	RelatedTo []string

	// EmotionalValence in [-1, 1] biases promotion during consolidation.
	EmotionalValence float64

	// SurpriseFactor in [0, 1] biases promotion during consolidation.
	SurpriseFactor float64
}

// WithAgentID sets the owning agent for AddMemory operations.
//
// Example:
//
//	id, _ := store.AddMemory(ctx, "content", core.TypeShortTerm, core.WithAgentID("risk_manager"))
func WithAgentID(agentID string) AddOption {
	return func(opts *AddOptions) {
		opts.AgentID = agentID
	}
}

// WithPriority sets the priority for AddMemory operations.
func WithPriority(priority Priority) AddOption {
	return func(opts *AddOptions) {
		opts.Priority = priority
	}
}

// WithContext sets the structured context for AddMemory operations.
func WithContext(context map[string]interface{}) AddOption {
	return func(opts *AddOptions) {
		opts.Context = context
	}
}

// WithTags sets the tags for AddMemory operations.
func WithTags(tags ...string) AddOption {
	return func(opts *AddOptions) {
		opts.Tags = tags
	}
}

// WithRelatedTo sets related entry IDs for AddMemory operations.
func WithRelatedTo(ids ...string) AddOption {
	return func(opts *AddOptions) {
		opts.RelatedTo = ids
	}
}

// WithEmotionalValence sets the emotional valence for AddMemory
// operations. Values outside [-1, 1] are clamped.
func WithEmotionalValence(valence float64) AddOption {
	return func(opts *AddOptions) {
		opts.EmotionalValence = valence
	}
}

// WithSurpriseFactor sets the surprise factor for AddMemory operations.
// Values outside [0, 1] are clamped.
func WithSurpriseFactor(surprise float64) AddOption {
	return func(opts *AddOptions) {
		opts.SurpriseFactor = surprise
	}
}

// applyAddOptions applies AddOptions with defaults.
func applyAddOptions(opts []AddOption) *AddOptions {
	addOpts := &AddOptions{
		Priority: PriorityMedium,
	}
	for _, opt := range opts {
		opt(addOpts)
	}
	return addOpts
}

// RecallOption is a function type for configuring Recall operations.
type RecallOption func(*RecallOptions)

// RecallOptions contains configuration options for Recall operations.
type RecallOptions struct {
	// Types restricts the scan to specific memory types (default: all).
	Types []MemoryType

	// AgentID restricts results to one agent's memories.
	AgentID string

	// Limit sets the maximum number of results (default: 10).
	Limit int

	// MinStrength is the visibility threshold. Negative means "use the
	// store's configured default" so an explicit zero still works.
	MinStrength float64
}

// WithMemoryTypes restricts Recall to specific memory types.
//
// Example:
//
//	entries, _ := store.Recall("drawdown", core.WithMemoryTypes(core.TypeSemantic))
func WithMemoryTypes(types ...MemoryType) RecallOption {
	return func(opts *RecallOptions) {
		opts.Types = types
	}
}

// WithAgentIDForRecall restricts Recall to one agent's memories.
func WithAgentIDForRecall(agentID string) RecallOption {
	return func(opts *RecallOptions) {
		opts.AgentID = agentID
	}
}

// WithLimit sets the maximum number of Recall results.
func WithLimit(limit int) RecallOption {
	return func(opts *RecallOptions) {
		opts.Limit = limit
	}
}

// WithMinStrength overrides the configured recall strength threshold.
func WithMinStrength(minStrength float64) RecallOption {
	return func(opts *RecallOptions) {
		opts.MinStrength = minStrength
	}
}

// applyRecallOptions applies RecallOptions with defaults.
func applyRecallOptions(opts []RecallOption) *RecallOptions {
	recallOpts := &RecallOptions{
		MinStrength: -1,
	}
	for _, opt := range opts {
		opt(recallOpts)
	}
	return recallOpts
}
