// Package sqlite provides the SQLite persistence backend.
//
// SQLite is a lightweight, file-based database suitable for local
// development and single-host deployments. It is the default durable
// backend for the memory store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/alphadesk/agentmem/pkg/persistence"
)

// Client implements persistence.Store using SQLite as the backend.
type Client struct {
	// db is the SQLite database connection.
	db *sql.DB

	// tableName is the name of the table storing memory records.
	tableName string
}

// Config contains configuration for creating a SQLite backend.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// TableName is the name of the table to use.
	TableName string
}

// NewClient creates a new SQLite backend.
//
// Parameters:
//   - cfg: Configuration containing the database path and table name
//
// Returns:
//   - *Client: The SQLite client instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	tableName := cfg.TableName
	if tableName == "" {
		tableName = "agent_memories"
	}

	client := &Client{
		db:        db,
		tableName: tableName,
	}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table structure.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			memory_type TEXT NOT NULL,
			agent_id TEXT,
			payload TEXT NOT NULL,
			strength REAL DEFAULT 1.0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`, c.tableName)

	_, err := c.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_type_agent ON %s(memory_type, agent_id)
	`, c.tableName, c.tableName)
	_, err = c.db.ExecContext(ctx, indexQuery)
	if err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Put inserts or replaces a record by ID.
func (c *Client) Put(ctx context.Context, record *persistence.Record) error {
	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s
		(id, memory_type, agent_id, payload, strength, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.tableName)

	_, err := c.db.ExecContext(ctx, query,
		record.ID,
		record.MemoryType,
		record.AgentID,
		string(record.Payload),
		record.Strength,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}

	return nil
}

// GetAll retrieves every stored record, for warm start.
func (c *Client) GetAll(ctx context.Context) ([]*persistence.Record, error) {
	query := fmt.Sprintf(`
		SELECT id, memory_type, agent_id, payload, strength, created_at
		FROM %s
		ORDER BY created_at
	`, c.tableName)

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("GetAll: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*persistence.Record
	for rows.Next() {
		var record persistence.Record
		var payload string
		if err := rows.Scan(
			&record.ID,
			&record.MemoryType,
			&record.AgentID,
			&payload,
			&record.Strength,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("GetAll: %w", err)
		}
		record.Payload = []byte(payload)
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetAll: %w", err)
	}

	return records, nil
}

// Delete removes a record by ID. Deleting an unknown ID is a no-op.
func (c *Client) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", c.tableName)

	if _, err := c.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
