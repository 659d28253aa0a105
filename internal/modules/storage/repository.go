// Package storage provides the durable key-value store behind the session store.
// Each key holds one JSON document; values are opaque to this layer.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/niftybulk/papertrade/internal/database"
	"github.com/rs/zerolog"
)

// Repository handles kv_store operations in store.db
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewRepository creates a new key-value repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repository", "kv_store").Logger(),
	}
}

// Get retrieves a value by key.
// Returns nil if the key doesn't exist (not an error).
func (r *Repository) Get(key string) (*string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM kv_store WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return &value, nil
}

// Set stores value under key, replacing any previous value
func (r *Repository) Set(key, value string) error {
	_, err := r.db.Exec(upsertSQL, key, value, r.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// SetMany stores several keys in one transaction
func (r *Repository) SetMany(values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	now := r.now().UnixMilli()
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(upsertSQL)
		if err != nil {
			return fmt.Errorf("failed to prepare upsert: %w", err)
		}
		defer stmt.Close()

		for key, value := range values {
			if _, err := stmt.Exec(key, value, now); err != nil {
				return fmt.Errorf("failed to set key %s: %w", key, err)
			}
		}
		return nil
	})
}

// Delete removes key; deleting a missing key is not an error
func (r *Repository) Delete(keys ...string) error {
	for _, key := range keys {
		if _, err := r.db.Exec("DELETE FROM kv_store WHERE key = ?", key); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", key, err)
		}
	}
	return nil
}

// Keys returns every stored key in lexical order
func (r *Repository) Keys() ([]string, error) {
	rows, err := r.db.Query("SELECT key FROM kv_store ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan key row")
			continue
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keys: %w", err)
	}

	return keys, nil
}

const upsertSQL = `
	INSERT INTO kv_store (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at
`
