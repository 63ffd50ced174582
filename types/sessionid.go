package types

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/vocdoni/zkgames/util"
)

// SessionIDLen is the length in bytes of a marshaled SessionID.
const SessionIDLen = 16

// SessionID identifies a game session. It is a random (v4) UUID generated by
// the session creator.
type SessionID uuid.UUID

// NewSessionID returns a new random SessionID.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

// Marshal returns the binary representation of the session ID.
func (s SessionID) Marshal() []byte {
	b := make([]byte, SessionIDLen)
	copy(b, s[:])
	return b
}

// Unmarshal decodes the binary representation of a session ID.
func (s *SessionID) Unmarshal(data []byte) error {
	if len(data) != SessionIDLen {
		return fmt.Errorf("invalid SessionID length: %d", len(data))
	}
	copy(s[:], data)
	return nil
}

// String returns the hex representation of the session ID.
func (s SessionID) String() string {
	return hex.EncodeToString(s[:])
}

// MarshalText implements encoding.TextMarshaler.
func (s SessionID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts the hex
// representation returned by String as well as the canonical UUID form.
func (s *SessionID) UnmarshalText(data []byte) error {
	id, err := ParseSessionID(string(data))
	if err != nil {
		return err
	}
	*s = id
	return nil
}

// ParseSessionID parses a session ID from its hex or UUID representation.
func ParseSessionID(str string) (SessionID, error) {
	if b, err := hex.DecodeString(util.TrimHex(str)); err == nil && len(b) == SessionIDLen {
		var id SessionID
		copy(id[:], b)
		return id, nil
	}
	u, err := uuid.Parse(str)
	if err != nil {
		return SessionID{}, fmt.Errorf("invalid session ID %q: %w", str, err)
	}
	return SessionID(u), nil
}
