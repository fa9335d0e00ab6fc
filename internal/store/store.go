/*
Package store keeps gob-encoded values in a single sqlite table. The agent
CLI uses it to remember finished runs between invocations.
*/
package store

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrBadName  = errors.New("bad name for store")
	ErrNotFound = errors.New("value not found")
)

type Store[T any] struct {
	mu   sync.Mutex
	name string
	db   *sql.DB
}

func isLetter(c rune) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_'
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !isLetter(c) {
			return false
		}
	}
	return true
}

// New creates the backing table if needed. name may only contain Latin
// letters and underscores since it is spliced into the queries.
func New[T any](db *sql.DB, name string) (*Store[T], error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrBadName, name)
	}

	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS ` + name + ` (
	key		TEXT PRIMARY KEY,
	value	BLOB
);`)
	if err != nil {
		return nil, err
	}
	return &Store[T]{name: name, db: db}, nil
}

// Get returns [ErrNotFound] if key is not present.
func (s *Store[T]) Get(key string) (value T, err error) {
	var v []byte
	err = s.db.QueryRow(
		`SELECT value FROM `+s.name+` WHERE key = ?;`, key,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return value, ErrNotFound
	}
	if err != nil {
		return value, err
	}
	err = gob.NewDecoder(bytes.NewReader(v)).Decode(&value)
	return value, err
}

// Set inserts a new key-value pair or updates an existing one.
func (s *Store[T]) Set(key string, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return err
	}
	_, err := s.db.Exec(`
INSERT INTO `+s.name+` (key, value)
VALUES(?, ?)
ON CONFLICT(key)
DO UPDATE SET value=excluded.value;`,
		key, buf.Bytes())
	return err
}

// Delete does not check whether key existed.
func (s *Store[T]) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM `+s.name+` WHERE key = ?;`, key)
	return err
}

func (s *Store[T]) Count() (n int, err error) {
	err = s.db.QueryRow(`SELECT count(*) FROM ` + s.name + `;`).Scan(&n)
	return
}

// Keys lists every key in ascending order.
func (s *Store[T]) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM ` + s.name + ` ORDER BY key;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
