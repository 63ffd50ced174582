package storage

import (
	"fmt"

	"go.vocdoni.io/dvote/db"

	"github.com/vocdoni/zkgames/types"
)

// Session decodes the stored session into out. It returns ErrNotFound if
// the session does not exist.
func (s *Storage) Session(id types.SessionID, out any) error {
	return s.getArtifact(sessionPrefix, id.Marshal(), out)
}

// SetSession stores a session, replacing any previous version.
func (s *Storage) SetSession(id types.SessionID, session any) error {
	if session == nil {
		return fmt.Errorf("nil session")
	}
	return s.setArtifact(sessionPrefix, id.Marshal(), session)
}

// WriteSession stores a session through an open write transaction, so it
// can be committed together with other writes (see WithWriteTx).
func WriteSession(wTx db.WriteTx, id types.SessionID, session any) error {
	if session == nil {
		return fmt.Errorf("nil session")
	}
	return writeArtifact(wTx, sessionPrefix, id.Marshal(), session)
}

// HasSession reports whether the session exists.
func (s *Storage) HasSession(id types.SessionID) (bool, error) {
	return s.hasArtifact(sessionPrefix, id.Marshal())
}

// ListSessions returns the ids of every stored session.
func (s *Storage) ListSessions() ([]types.SessionID, error) {
	keys, err := s.listArtifacts(sessionPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]types.SessionID, 0, len(keys))
	for _, k := range keys {
		var id types.SessionID
		if err := id.Unmarshal(k); err != nil {
			return nil, fmt.Errorf("invalid session key %x: %w", k, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DeleteSession removes a session. The consumed identifier tree is kept.
func (s *Storage) DeleteSession(id types.SessionID) error {
	return s.deleteArtifact(sessionPrefix, id.Marshal())
}
