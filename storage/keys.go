package storage

import (
	"fmt"

	"github.com/vocdoni/zkgames/types"
)

// CircuitKeys is the registered key material of a circuit: the serialized
// verifying key and the sha256 hashes of the constraint system and proving
// key in the artifact cache, so a prover can be restored without a new
// setup.
type CircuitKeys struct {
	VerifyingKey         types.HexBytes `json:"verifyingKey" cbor:"0,keyasint"`
	ConstraintSystemHash types.HexBytes `json:"constraintSystemHash,omitempty" cbor:"1,keyasint,omitempty"`
	ProvingKeyHash       types.HexBytes `json:"provingKeyHash,omitempty" cbor:"2,keyasint,omitempty"`
}

// SetCircuitKeys stores the keys of a circuit. Keys are immutable: if the
// circuit already has keys, ErrAlreadyExists is returned.
func (s *Storage) SetCircuitKeys(id types.CircuitID, keys *CircuitKeys) error {
	if keys == nil || len(keys.VerifyingKey) == 0 {
		return fmt.Errorf("empty verifying key for circuit %s", id)
	}
	exists, err := s.hasArtifact(keysPrefix, []byte{byte(id)})
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("keys of circuit %s: %w", id, ErrAlreadyExists)
	}
	return s.setArtifact(keysPrefix, []byte{byte(id)}, keys)
}

// CircuitKeys returns the keys of a circuit or ErrNotFound.
func (s *Storage) CircuitKeys(id types.CircuitID) (*CircuitKeys, error) {
	keys := &CircuitKeys{}
	if err := s.getArtifact(keysPrefix, []byte{byte(id)}, keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// ListCircuitKeys returns the keys of every registered circuit.
func (s *Storage) ListCircuitKeys() (map[types.CircuitID]*CircuitKeys, error) {
	ids, err := s.listArtifacts(keysPrefix)
	if err != nil {
		return nil, err
	}
	all := make(map[types.CircuitID]*CircuitKeys, len(ids))
	for _, k := range ids {
		if len(k) != 1 {
			return nil, fmt.Errorf("invalid circuit key %x", k)
		}
		id := types.CircuitID(k[0])
		keys, err := s.CircuitKeys(id)
		if err != nil {
			return nil, err
		}
		all[id] = keys
	}
	return all, nil
}
