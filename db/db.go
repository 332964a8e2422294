// Package db is the thin host-facing wrapper around the btree engine: it
// owns the file path, guards against use after Close, and maps the
// engine's error taxonomy straight through to callers.
package db

import (
	"errors"
	"sync"

	"github.com/b3tree/b3tree/btree"
)

// DB represents a key-value database backed by a single on-disk B-tree.
type DB struct {
	mu       sync.Mutex
	tree     *btree.Tree
	path     string
	isClosed bool
}

// Open opens an existing database file at path.
func Open(path string) (*DB, error) {
	tree, err := btree.Open(path)
	if err != nil {
		return nil, err
	}
	return &DB{tree: tree, path: path}, nil
}

// Create initializes a new database file at path with the given
// branching factor and key/value size bounds.
func Create(path string, numKeys, keySize, dataSize int) (*DB, error) {
	tree, err := btree.Create(path, numKeys, keySize, dataSize)
	if err != nil {
		return nil, err
	}
	return &DB{tree: tree, path: path}, nil
}

// CreateDefault initializes a new database file at path using the
// store's default branching factor and key/value size bounds.
func CreateDefault(path string) (*DB, error) {
	tree, err := btree.CreateDefault(path)
	if err != nil {
		return nil, err
	}
	return &DB{tree: tree, path: path}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.isClosed {
		return errors.New("database already closed")
	}
	db.isClosed = true
	return db.tree.Close()
}

// Get gets a value from the database.
func (db *DB) Get(key []byte) ([]byte, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.isClosed {
		return nil, errors.New("database closed")
	}
	return db.tree.Get(key)
}

// Put puts a key-value pair in the database.
func (db *DB) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.isClosed {
		return errors.New("database closed")
	}
	return db.tree.Put(key, value)
}

// Delete deletes a key from the database.
func (db *DB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.isClosed {
		return errors.New("database closed")
	}
	return db.tree.Delete(key)
}

// Contains reports whether key is present.
func (db *DB) Contains(key []byte) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.isClosed {
		return false, errors.New("database closed")
	}
	return db.tree.Contains(key)
}

// Len returns the number of keys in the database.
func (db *DB) Len() (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.isClosed {
		return 0, errors.New("database closed")
	}
	return db.tree.Len()
}

// Iterator returns a cursor over the database's keys in ascending order.
func (db *DB) Iterator() (*btree.Iterator, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.isClosed {
		return nil, errors.New("database closed")
	}
	return db.tree.Iterator()
}

// ReverseIterator returns a cursor over the database's keys in
// descending order.
func (db *DB) ReverseIterator() (*btree.Iterator, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.isClosed {
		return nil, errors.New("database closed")
	}
	return db.tree.ReverseIterator()
}

// Stats returns a snapshot of the engine's running counters.
func (db *DB) Stats() (btree.Stats, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.isClosed {
		return btree.Stats{}, errors.New("database closed")
	}
	return db.tree.Stats()
}

// CheckConsistency runs the engine's recursive structural audit.
func (db *DB) CheckConsistency() (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.isClosed {
		return false, errors.New("database closed")
	}
	return db.tree.CheckConsistency()
}

// Path returns the database's file path.
func (db *DB) Path() string {
	return db.path
}
