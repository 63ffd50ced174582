package verifier

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"

	"github.com/vocdoni/zkgames/log"
	"github.com/vocdoni/zkgames/metrics"
	"github.com/vocdoni/zkgames/storage"
	"github.com/vocdoni/zkgames/types"
)

// Registry holds one immutable verifying key per circuit. When backed by a
// storage, registered keys are persisted and reloaded by NewRegistry.
type Registry struct {
	mu   sync.RWMutex
	keys map[types.CircuitID]groth16.VerifyingKey
	stg  *storage.Storage
}

// NewRegistry returns a registry loaded with the keys persisted in stg. A
// nil storage gives an in-memory registry.
func NewRegistry(stg *storage.Storage) (*Registry, error) {
	r := &Registry{
		keys: make(map[types.CircuitID]groth16.VerifyingKey),
		stg:  stg,
	}
	if stg == nil {
		return r, nil
	}
	stored, err := stg.ListCircuitKeys()
	if err != nil {
		return nil, fmt.Errorf("could not list circuit keys: %w", err)
	}
	for id, keys := range stored {
		vk, err := DecodeVerifyingKey(keys.VerifyingKey)
		if err != nil {
			return nil, fmt.Errorf("invalid verifying key for circuit %s: %w", id, err)
		}
		r.keys[id] = vk
	}
	log.Debugw("verifier registry loaded", "keys", len(r.keys))
	return r, nil
}

// DecodeVerifyingKey parses a serialized BN254 Groth16 verifying key.
func DecodeVerifyingKey(data []byte) (groth16.VerifyingKey, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return vk, nil
}

// EncodeVerifyingKey serializes a verifying key.
func EncodeVerifyingKey(vk groth16.VerifyingKey) ([]byte, error) {
	buf := new(bytes.Buffer)
	if _, err := vk.WriteTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Register adds the key of a circuit. The verifying key is taken from
// keys.VerifyingKey, the artifact hashes are only persisted.
func (r *Registry) Register(id types.CircuitID, keys *storage.CircuitKeys) error {
	if !id.Valid() {
		return fmt.Errorf("unknown circuit %d", uint8(id))
	}
	if keys == nil {
		return fmt.Errorf("nil keys for circuit %s", id)
	}
	vk, err := DecodeVerifyingKey(keys.VerifyingKey)
	if err != nil {
		return fmt.Errorf("invalid verifying key for circuit %s: %w", id, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[id]; ok {
		return fmt.Errorf("%w: %s", ErrKeyAlreadyRegistered, id)
	}
	if r.stg != nil {
		if err := r.stg.SetCircuitKeys(id, keys); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				return fmt.Errorf("%w: %s", ErrKeyAlreadyRegistered, id)
			}
			return fmt.Errorf("could not store keys of circuit %s: %w", id, err)
		}
	}
	r.keys[id] = vk
	log.Infow("verifying key registered", "circuit", id.String(), "publicSignals", vk.NbPublicWitness())
	return nil
}

// RegisterKey is Register for a key without setup artifacts.
func (r *Registry) RegisterKey(id types.CircuitID, vk groth16.VerifyingKey) error {
	data, err := EncodeVerifyingKey(vk)
	if err != nil {
		return err
	}
	return r.Register(id, &storage.CircuitKeys{VerifyingKey: data})
}

// VerifyingKey returns the key of a circuit.
func (r *Registry) VerifyingKey(id types.CircuitID) (groth16.VerifyingKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vk, ok := r.keys[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotRegistered, id)
	}
	return vk, nil
}

// Has reports whether the circuit has a registered key.
func (r *Registry) Has(id types.CircuitID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.keys[id]
	return ok
}

// Circuits returns the circuits with a registered key, sorted.
func (r *Registry) Circuits() []types.CircuitID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]types.CircuitID, 0, len(r.keys))
	for id := range r.keys {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Verify checks p against the key of p.Circuit. It returns
// ErrKeyNotRegistered or an ErrProofVerificationFailed wrapped error.
func (r *Registry) Verify(p *types.Proof) error {
	if p == nil {
		return fmt.Errorf("%w: nil proof", ErrProofVerificationFailed)
	}
	vk, err := r.VerifyingKey(p.Circuit)
	if err != nil {
		return err
	}
	start := time.Now()
	err = VerifyProof(vk, p)
	metrics.VerifyDuration.WithLabelValues(p.Circuit.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Debugw("proof rejected", "circuit", p.Circuit.String(), "error", err.Error())
	}
	return err
}
