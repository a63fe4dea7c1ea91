// Package mysql provides the MySQL persistence backend.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/alphadesk/agentmem/pkg/persistence"
)

// Client implements persistence.Store using MySQL as the backend.
type Client struct {
	db        *sql.DB
	tableName string
}

// Config contains MySQL configuration.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	TableName string
}

// NewClient creates a new MySQL backend.
func NewClient(cfg *Config) (*Client, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
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

// initTables initializes the database table.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(64) PRIMARY KEY,
			memory_type VARCHAR(32) NOT NULL,
			agent_id VARCHAR(255),
			payload JSON NOT NULL,
			strength DOUBLE DEFAULT 1.0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_type_agent (memory_type, agent_id)
		)
	`, c.tableName)

	_, err := c.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Put inserts or replaces a record by ID.
func (c *Client) Put(ctx context.Context, record *persistence.Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, memory_type, agent_id, payload, strength, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			memory_type = VALUES(memory_type),
			payload = VALUES(payload),
			strength = VALUES(strength)
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
