package vault

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Cache is a local sqlite cache of the encrypted secret records
// fetched from the transport, so the popup can relist without a round
// trip. Only ciphertext is at rest here; nothing in this table is
// readable without the session key.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (or creates) the cache database at path.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to open cache: %w", err)
	}

	// Single-connection mode avoids "database is locked" errors; the
	// core assumes a single active session context anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS secrets (
			id TEXT PRIMARY KEY,
			label TEXT,
			ciphertext BLOB NOT NULL,
			nonce BLOB NOT NULL,
			fetched_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("vault: failed to create cache table: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Replace swaps the cached records for the given set atomically.
func (c *Cache) Replace(records []EncryptedSecret) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("vault: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM secrets"); err != nil {
		return fmt.Errorf("vault: failed to clear cache: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT INTO secrets(id, label, ciphertext, nonce, fetched_at) VALUES(?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("vault: failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rec := range records {
		if _, err := stmt.Exec(rec.ID, rec.Label, rec.Ciphertext, rec.Nonce, now); err != nil {
			return fmt.Errorf("vault: failed to cache record %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

// Put inserts or updates a single record.
func (c *Cache) Put(rec EncryptedSecret) error {
	_, err := c.db.Exec(`
		INSERT INTO secrets(id, label, ciphertext, nonce, fetched_at)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			ciphertext = excluded.ciphertext,
			nonce = excluded.nonce,
			fetched_at = excluded.fetched_at
	`, rec.ID, rec.Label, rec.Ciphertext, rec.Nonce, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("vault: failed to cache record %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the cached record with the given id.
func (c *Cache) Get(id string) (EncryptedSecret, bool, error) {
	var rec EncryptedSecret
	err := c.db.QueryRow(
		"SELECT id, label, ciphertext, nonce FROM secrets WHERE id = ?", id).
		Scan(&rec.ID, &rec.Label, &rec.Ciphertext, &rec.Nonce)
	if err != nil {
		if err == sql.ErrNoRows {
			return EncryptedSecret{}, false, nil
		}
		return EncryptedSecret{}, false, fmt.Errorf("vault: failed to read cache: %w", err)
	}
	return rec, true, nil
}

// List returns all cached records ordered by label.
func (c *Cache) List() ([]EncryptedSecret, error) {
	rows, err := c.db.Query(
		"SELECT id, label, ciphertext, nonce FROM secrets ORDER BY label, id")
	if err != nil {
		return nil, fmt.Errorf("vault: failed to list cache: %w", err)
	}
	defer rows.Close()

	var records []EncryptedSecret
	for rows.Next() {
		var rec EncryptedSecret
		if err := rows.Scan(&rec.ID, &rec.Label, &rec.Ciphertext, &rec.Nonce); err != nil {
			return nil, fmt.Errorf("vault: failed to scan cache row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vault: failed to iterate cache: %w", err)
	}
	return records, nil
}

// Clear removes every cached record.
func (c *Cache) Clear() error {
	if _, err := c.db.Exec("DELETE FROM secrets"); err != nil {
		return fmt.Errorf("vault: failed to clear cache: %w", err)
	}
	return nil
}
