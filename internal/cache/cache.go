// Package cache is a local SQLite mirror of backend metadata plus a transfer
// history, so listings survive offline and the CLI can show recent activity.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chinmay706/Secure-vault-frontend/internal/model"
)

// Store is a SQLite-backed metadata cache.
type Store struct {
	*sql.DB
}

// Storeable is anything the descriptor table can hold.
type Storeable interface {
	Key() string
}

// Transfer is one recorded upload or download.
type Transfer struct {
	Direction string    `json:"direction"` // "upload" or "download"
	FileID    string    `json:"file_id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	At        time.Time `json:"at"`
}

// Open creates (or opens) the cache database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS descriptors (
			id TEXT PRIMARY KEY,
			data TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS transfers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			direction TEXT NOT NULL,
			file_id TEXT NOT NULL,
			name TEXT NOT NULL,
			size INTEGER NOT NULL,
			at TIMESTAMP NOT NULL
		);
	`)
	if err != nil {
		return nil, err
	}

	return &Store{db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

// PutDescriptor stores or replaces one descriptor.
func (s *Store) PutDescriptor(d Storeable) error {
	value, err := json.Marshal(d)
	if err != nil {
		return err
	}

	stmt, err := s.Prepare(`INSERT OR REPLACE INTO descriptors (id, data) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(d.Key(), string(value))
	return err
}

// ReplaceFiles swaps the cached file listing for a fresh one.
func (s *Store) ReplaceFiles(files []model.FileDescriptor) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM descriptors`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO descriptors (id, data) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range files {
		value, err := json.Marshal(&files[i])
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(files[i].ID, string(value)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Files returns every cached file descriptor.
func (s *Store) Files() ([]model.FileDescriptor, error) {
	rows, err := s.Query(`SELECT data FROM descriptors`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []model.FileDescriptor
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		var file model.FileDescriptor
		if err := json.Unmarshal([]byte(data), &file); err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	return files, rows.Err()
}

// FileByID returns one cached descriptor.
func (s *Store) FileByID(id string) (model.FileDescriptor, error) {
	var file model.FileDescriptor
	var data string

	err := s.QueryRow(`SELECT data FROM descriptors WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return file, fmt.Errorf("no cached descriptor with ID: %s", id)
		}
		return file, err
	}

	err = json.Unmarshal([]byte(data), &file)
	return file, err
}

// DeleteDescriptor removes one descriptor from the cache.
func (s *Store) DeleteDescriptor(id string) error {
	stmt, err := s.Prepare(`DELETE FROM descriptors WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(id)
	return err
}

// RecordTransfer appends one entry to the transfer history.
func (s *Store) RecordTransfer(direction, fileID, name string, size int64) error {
	stmt, err := s.Prepare(`INSERT INTO transfers (direction, file_id, name, size, at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(direction, fileID, name, size, time.Now().UTC())
	return err
}

// RecentTransfers returns up to limit history entries, newest first.
func (s *Store) RecentTransfers(limit int) ([]Transfer, error) {
	rows, err := s.Query(`SELECT direction, file_id, name, size, at FROM transfers ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []Transfer
	for rows.Next() {
		var t Transfer
		if err := rows.Scan(&t.Direction, &t.FileID, &t.Name, &t.Size, &t.At); err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}

	return transfers, rows.Err()
}
