package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for a memory store.
//
// All decay and consolidation thresholds are deliberately configuration
// fields rather than hard-coded constants: the defaults are tuned for a
// daily consolidation cadence but carry no deeper justification, so
// deployments are free to adjust them.
//
// Example:
//
//	config := core.DefaultConfig()
//	config.ShortTermHours = 48
//	config.Persistence = core.PersistenceConfig{
//	    Provider: "sqlite",
//	    Config: map[string]interface{}{
//	        "db_path": "./agentmem.db",
//	    },
//	}
type Config struct {
	// ShortTermHours is the time-based expiry for short_term memories,
	// in hours. Default: 24.
	ShortTermHours float64 `json:"short_term_hours"`

	// WorkingMemoryHours is the time-based expiry for working memories,
	// in hours. Default: 1.
	WorkingMemoryHours float64 `json:"working_memory_hours"`

	// DecayRate is the base per-sweep strength decay applied during
	// consolidation. Default: 0.01.
	DecayRate float64 `json:"decay_rate"`

	// RecallReinforcement is the strength boost applied to every entry
	// matched by a recall (associative rehearsal). Default: 0.05.
	RecallReinforcement float64 `json:"recall_reinforcement"`

	// ReinforcementAmount is the default boost for explicit reinforcement
	// events such as outcome confirmation. Default: 0.2.
	ReinforcementAmount float64 `json:"reinforcement_amount"`

	// MinRecallStrength is the visibility threshold: entries below it are
	// excluded from recall. Default: 0.1.
	MinRecallStrength float64 `json:"min_recall_strength"`

	// PromotionStrength is the strength above which a short_term entry is
	// promoted to long_term during consolidation. Default: 0.7.
	PromotionStrength float64 `json:"promotion_strength"`

	// PromotionAccessCount is the access count at or above which a
	// short_term entry is promoted. Default: 5.
	PromotionAccessCount int `json:"promotion_access_count"`

	// PromotionValence is the absolute emotional valence above which a
	// short_term entry is promoted. Default: 0.5.
	PromotionValence float64 `json:"promotion_valence"`

	// PromotionSurprise is the surprise factor above which a short_term
	// entry is promoted. Default: 0.5.
	PromotionSurprise float64 `json:"promotion_surprise"`

	// PruneFloor is the strength below which a non-promotable short_term
	// entry is deleted during consolidation. Default: 0.1.
	PruneFloor float64 `json:"prune_floor"`

	// SharePreviewChars is the content truncation length for derivative
	// memories created by cross-agent sharing. Default: 200.
	SharePreviewChars int `json:"share_preview_chars"`

	// InteractionPreviewChars is the message/response truncation length
	// for interaction log entries. Default: 500.
	InteractionPreviewChars int `json:"interaction_preview_chars"`

	// Persistence configures the optional write-through durable backend.
	Persistence PersistenceConfig `json:"persistence"`

	// Log configures logging (level and handler format).
	Log LogConfig `json:"log"`
}

// PersistenceConfig contains configuration for the durable backend.
//
// Supported providers: none (in-memory only), sqlite, postgres, mysql.
//
// Example:
//
//	persistence := core.PersistenceConfig{
//	    Provider: "sqlite",
//	    Config: map[string]interface{}{
//	        "db_path":    "./agentmem.db",
//	        "table_name": "agent_memories",
//	    },
//	}
type PersistenceConfig struct {
	// Provider is the backend name (none, sqlite, postgres, mysql).
	Provider string `json:"provider"`

	// Config contains provider-specific settings.
	// For SQLite: db_path, table_name
	// For PostgreSQL: host, port, user, password, db_name, table_name, ssl_mode
	// For MySQL: host, port, user, password, db_name, table_name
	Config map[string]interface{} `json:"config,omitempty"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level"`

	// Handler selects the log output format ("json" or "text").
	Handler string `json:"handler"`
}

// DefaultConfig returns a Config with all defaults applied and no
// persistence backend (in-memory only).
func DefaultConfig() *Config {
	return &Config{
		ShortTermHours:          24,
		WorkingMemoryHours:      1,
		DecayRate:               0.01,
		RecallReinforcement:     0.05,
		ReinforcementAmount:     0.2,
		MinRecallStrength:       0.1,
		PromotionStrength:       0.7,
		PromotionAccessCount:    5,
		PromotionValence:        0.5,
		PromotionSurprise:       0.5,
		PruneFloor:              0.1,
		SharePreviewChars:       200,
		InteractionPreviewChars: 500,
		Persistence:             PersistenceConfig{Provider: "none"},
		Log:                     LogConfig{Level: "info", Handler: "text"},
	}
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables on top of DefaultConfig()
//
// Supported environment variables:
//   - AGENTMEM_SHORT_TERM_HOURS, AGENTMEM_WORKING_MEMORY_HOURS
//   - AGENTMEM_DECAY_RATE, AGENTMEM_MIN_RECALL_STRENGTH
//   - AGENTMEM_PERSISTENCE_PROVIDER (none, sqlite, postgres, mysql)
//   - SQLITE_PATH, SQLITE_TABLE
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_DATABASE, POSTGRES_TABLE, POSTGRES_SSLMODE
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD,
//     MYSQL_DATABASE, MYSQL_TABLE
//   - AGENTMEM_LOG_LEVEL, AGENTMEM_LOG_HANDLER
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnv() (*Config, error) {
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()

	cfg.ShortTermHours = getEnvFloat("AGENTMEM_SHORT_TERM_HOURS", cfg.ShortTermHours)
	cfg.WorkingMemoryHours = getEnvFloat("AGENTMEM_WORKING_MEMORY_HOURS", cfg.WorkingMemoryHours)
	cfg.DecayRate = getEnvFloat("AGENTMEM_DECAY_RATE", cfg.DecayRate)
	cfg.MinRecallStrength = getEnvFloat("AGENTMEM_MIN_RECALL_STRENGTH", cfg.MinRecallStrength)
	cfg.Log.Level = getEnvOrDefault("AGENTMEM_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Handler = getEnvOrDefault("AGENTMEM_LOG_HANDLER", cfg.Log.Handler)

	provider := getEnvOrDefault("AGENTMEM_PERSISTENCE_PROVIDER", "none")
	persistenceConfig := make(map[string]interface{})

	switch provider {
	case "sqlite":
		persistenceConfig = map[string]interface{}{
			"db_path":    getEnvOrDefault("SQLITE_PATH", "./agentmem.db"),
			"table_name": getEnvOrDefault("SQLITE_TABLE", "agent_memories"),
		}
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		persistenceConfig = map[string]interface{}{
			"host":       getEnvOrDefault("POSTGRES_HOST", "localhost"),
			"port":       port,
			"user":       getEnvOrDefault("POSTGRES_USER", "postgres"),
			"password":   os.Getenv("POSTGRES_PASSWORD"),
			"db_name":    getEnvOrDefault("POSTGRES_DATABASE", "agentmem"),
			"table_name": getEnvOrDefault("POSTGRES_TABLE", "agent_memories"),
			"ssl_mode":   getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))
		persistenceConfig = map[string]interface{}{
			"host":       getEnvOrDefault("MYSQL_HOST", "127.0.0.1"),
			"port":       port,
			"user":       getEnvOrDefault("MYSQL_USER", "root"),
			"password":   os.Getenv("MYSQL_PASSWORD"),
			"db_name":    getEnvOrDefault("MYSQL_DATABASE", "agentmem"),
			"table_name": getEnvOrDefault("MYSQL_TABLE", "agent_memories"),
		}
	}

	cfg.Persistence = PersistenceConfig{
		Provider: provider,
		Config:   persistenceConfig,
	}

	return cfg, nil
}

// LoadConfigFromJSON loads configuration from a JSON file.
//
// Fields absent from the file keep their DefaultConfig() values.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
//
// Checks that expiry windows are positive, thresholds are within [0, 1],
// and the persistence provider is known.
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.ShortTermHours <= 0 || c.WorkingMemoryHours <= 0 {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.DecayRate < 0 || c.DecayRate > 1 {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	for _, threshold := range []float64{
		c.RecallReinforcement, c.ReinforcementAmount, c.MinRecallStrength,
		c.PromotionStrength, c.PromotionValence, c.PromotionSurprise, c.PruneFloor,
	} {
		if threshold < 0 || threshold > 1 {
			return NewMemoryError("Validate", ErrInvalidConfig)
		}
	}
	switch c.Persistence.Provider {
	case "", "none", "sqlite", "postgres", "mysql":
	default:
		return NewMemoryError("Validate", fmt.Errorf("%w: unknown persistence provider %q", ErrInvalidConfig, c.Persistence.Provider))
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable or returns the default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
