// Package storage persists the engine artifacts in a prefixed key-value
// store. The following prefixes are used:
//   - 's/' for sessions
//   - 'k/' for the circuit keys (verifying key and setup artifact hashes)
//   - 'n/<session>' for the consumed identifier tree of each session
//
// Sessions are stored as opaque cbor values so this package does not depend
// on the session rules.
package storage

import (
	"errors"
	"fmt"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/vocdoni/zkgames/log"
	"github.com/vocdoni/zkgames/types"
)

var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when an immutable artifact is written
	// twice.
	ErrAlreadyExists = errors.New("already exists")
)

var (
	// Prefixes for the keys in the database.
	sessionPrefix  = []byte("s/")
	keysPrefix     = []byte("k/")
	consumedPrefix = []byte("n/")
)

// Storage wraps the database and provides typed access to the stored
// artifacts.
type Storage struct {
	db db.Database
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("error closing storage", "error", err)
	}
}

// DB returns the underlying database.
func (s *Storage) DB() db.Database {
	return s.db
}

// ConsumedPrefix returns the database prefix of the consumed identifier
// tree of a session.
func ConsumedPrefix(id types.SessionID) []byte {
	return append(append([]byte{}, consumedPrefix...), append(id.Marshal(), '/')...)
}

// WithWriteTx runs fn with a new write transaction and commits it if fn
// succeeds. Everything written through the transaction is applied
// atomically, or not at all.
func (s *Storage) WithWriteTx(fn func(wTx db.WriteTx) error) error {
	wTx := s.db.WriteTx()
	defer wTx.Discard()
	if err := fn(wTx); err != nil {
		return err
	}
	return wTx.Commit()
}

// setArtifact encodes and stores an artifact under prefix+key.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	return s.WithWriteTx(func(wTx db.WriteTx) error {
		return writeArtifact(wTx, prefix, key, artifact)
	})
}

func writeArtifact(wTx db.WriteTx, prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	return prefixeddb.NewPrefixedWriteTx(wTx, prefix).Set(key, data)
}

// getArtifact decodes the artifact stored under prefix+key into out. It
// returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	data, err := prefixeddb.NewPrefixedReader(s.db, prefix).Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("could not read artifact: %w", err)
	}
	if err := decodeArtifact(data, out); err != nil {
		return fmt.Errorf("could not decode artifact: %w", err)
	}
	return nil
}

// hasArtifact reports whether prefix+key exists.
func (s *Storage) hasArtifact(prefix, key []byte) (bool, error) {
	_, err := prefixeddb.NewPrefixedReader(s.db, prefix).Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, db.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

// listArtifacts returns the keys stored under prefix.
func (s *Storage) listArtifacts(prefix []byte) ([][]byte, error) {
	keys := [][]byte{}
	if err := prefixeddb.NewPrefixedReader(s.db, prefix).Iterate(nil, func(k, _ []byte) bool {
		keys = append(keys, append([]byte{}, k...))
		return true
	}); err != nil {
		return nil, err
	}
	return keys, nil
}

// deleteArtifact removes prefix+key. It returns ErrNotFound if the key does
// not exist.
func (s *Storage) deleteArtifact(prefix, key []byte) error {
	ok, err := s.hasArtifact(prefix, key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return s.WithWriteTx(func(wTx db.WriteTx) error {
		return prefixeddb.NewPrefixedWriteTx(wTx, prefix).Delete(key)
	})
}
