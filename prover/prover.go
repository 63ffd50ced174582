// Package prover compiles the state transition circuits, keeps their
// Groth16 setup in memory and generates proofs for client assignments.
package prover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"golang.org/x/sync/errgroup"

	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/log"
	"github.com/vocdoni/zkgames/metrics"
	"github.com/vocdoni/zkgames/storage"
	"github.com/vocdoni/zkgames/types"
	"github.com/vocdoni/zkgames/verifier"
)

// ErrCircuitArtifactMissing is returned when a circuit has no compiled
// constraint system or proving key and a local setup is not allowed.
var ErrCircuitArtifactMissing = errors.New("circuit artifact missing")

type circuitKeys struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// Service generates proofs. Keys come either from a local (unsafe, single
// party) setup or from the artifact cache.
type Service struct {
	mu         sync.RWMutex
	keys       map[types.CircuitID]*circuitKeys
	allowSetup bool
}

// New returns a prover without keys. If allowSetup is true, missing keys are
// generated on demand by Prove.
func New(allowSetup bool) *Service {
	return &Service{
		keys:       make(map[types.CircuitID]*circuitKeys),
		allowSetup: allowSetup,
	}
}

// Setup compiles the given circuits and runs their Groth16 setup
// concurrently. Circuits that already have keys are skipped.
func (s *Service) Setup(ctx context.Context, ids ...types.CircuitID) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		if s.Has(id) {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			keys, err := setup(id)
			if err != nil {
				return fmt.Errorf("setup of circuit %s: %w", id, err)
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.keys[id]; !ok {
				s.keys[id] = keys
			}
			return nil
		})
	}
	return g.Wait()
}

func setup(id types.CircuitID) (*circuitKeys, error) {
	placeholder, err := Placeholder(id)
	if err != nil {
		return nil, err
	}
	startTime := time.Now()
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, placeholder)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup: %w", err)
	}
	log.Infow("circuit setup done",
		"circuit", id.String(),
		"constraints", ccs.GetNbConstraints(),
		"took", time.Since(startTime).String())
	return &circuitKeys{ccs: ccs, pk: pk, vk: vk}, nil
}

// Load restores the keys of a circuit from its artifacts (constraint
// system, proving key and optionally verifying key), loading them from the
// cache or downloading them first.
func (s *Service) Load(ctx context.Context, id types.CircuitID, artifacts *circuits.CircuitArtifacts) error {
	if err := artifacts.LoadAll(ctx); err != nil {
		if errors.Is(err, circuits.ErrArtifactNotFound) {
			return fmt.Errorf("%w: %s: %v", ErrCircuitArtifactMissing, id, err)
		}
		return err
	}
	if len(artifacts.CircuitDefinition()) == 0 || len(artifacts.ProvingKey()) == 0 {
		return fmt.Errorf("%w: %s", ErrCircuitArtifactMissing, id)
	}
	ccs := groth16.NewCS(ecc.BN254)
	if _, err := ccs.ReadFrom(bytes.NewReader(artifacts.CircuitDefinition())); err != nil {
		return fmt.Errorf("failed to read %s circuit definition: %w", id, err)
	}
	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(bytes.NewReader(artifacts.ProvingKey())); err != nil {
		return fmt.Errorf("failed to read %s proving key: %w", id, err)
	}
	var vk groth16.VerifyingKey
	if content := artifacts.VerifyingKey(); len(content) > 0 {
		var err error
		if vk, err = verifier.DecodeVerifyingKey(content); err != nil {
			return fmt.Errorf("failed to read %s verifying key: %w", id, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[id] = &circuitKeys{ccs: ccs, pk: pk, vk: vk}
	log.Debugw("circuit keys loaded", "circuit", id.String())
	return nil
}

// LoadKeys restores a circuit from registered keys, reading the constraint
// system and proving key from the artifact cache by hash.
func (s *Service) LoadKeys(ctx context.Context, id types.CircuitID, keys *storage.CircuitKeys) error {
	if len(keys.ConstraintSystemHash) == 0 || len(keys.ProvingKeyHash) == 0 {
		return fmt.Errorf("%w: %s has no setup artifacts", ErrCircuitArtifactMissing, id)
	}
	return s.Load(ctx, id, circuits.NewCircuitArtifacts(
		&circuits.Artifact{Hash: keys.ConstraintSystemHash},
		&circuits.Artifact{Hash: keys.ProvingKeyHash},
		&circuits.Artifact{Content: keys.VerifyingKey},
	))
}

// CircuitKeys stores the constraint system and proving key of a circuit in
// the artifact cache and returns the keys to register for it.
func (s *Service) CircuitKeys(id types.CircuitID) (*storage.CircuitKeys, error) {
	keys, err := s.circuitKeys(id)
	if err != nil {
		return nil, err
	}
	if keys.vk == nil {
		return nil, fmt.Errorf("%w: %s verifying key", ErrCircuitArtifactMissing, id)
	}
	ccsBuf, pkBuf := new(bytes.Buffer), new(bytes.Buffer)
	if _, err := keys.ccs.WriteTo(ccsBuf); err != nil {
		return nil, err
	}
	if _, err := keys.pk.WriteRawTo(pkBuf); err != nil {
		return nil, err
	}
	vkData, err := verifier.EncodeVerifyingKey(keys.vk)
	if err != nil {
		return nil, err
	}
	ccsArtifact := circuits.NewLocalArtifact(ccsBuf.Bytes())
	pkArtifact := circuits.NewLocalArtifact(pkBuf.Bytes())
	for _, a := range []*circuits.Artifact{ccsArtifact, pkArtifact} {
		if err := a.Store(); err != nil {
			return nil, fmt.Errorf("could not cache %s artifacts: %w", id, err)
		}
	}
	return &storage.CircuitKeys{
		VerifyingKey:         vkData,
		ConstraintSystemHash: ccsArtifact.Hash,
		ProvingKeyHash:       pkArtifact.Hash,
	}, nil
}

// Export writes the constraint system, proving key and verifying key of a
// circuit to dir as <circuit>.ccs, <circuit>.pk and <circuit>.vk.
func (s *Service) Export(id types.CircuitID, dir string) error {
	keys, err := s.circuitKeys(id)
	if err != nil {
		return err
	}
	base := filepath.Join(dir, id.String())
	if err := circuits.StoreConstraintSystem(keys.ccs, base+".ccs"); err != nil {
		return err
	}
	if err := circuits.StoreProvingKey(keys.pk, base+".pk"); err != nil {
		return err
	}
	if keys.vk != nil {
		return circuits.StoreVerificationKey(keys.vk, base+".vk")
	}
	return nil
}

// Has reports whether the circuit has keys.
func (s *Service) Has(id types.CircuitID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[id]
	return ok
}

// VerifyingKey returns the verifying key of a circuit.
func (s *Service) VerifyingKey(id types.CircuitID) (groth16.VerifyingKey, error) {
	keys, err := s.circuitKeys(id)
	if err != nil {
		return nil, err
	}
	if keys.vk == nil {
		return nil, fmt.Errorf("%w: %s verifying key", ErrCircuitArtifactMissing, id)
	}
	return keys.vk, nil
}

func (s *Service) circuitKeys(id types.CircuitID) (*circuitKeys, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys, ok := s.keys[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCircuitArtifactMissing, id)
	}
	return keys, nil
}

// Prove generates the proof of assignment for circuit id. It returns
// circuits.ErrWitnessUnsatisfiable if the assignment does not satisfy the
// circuit and ErrCircuitArtifactMissing if there are no keys for it.
func (s *Service) Prove(ctx context.Context, id types.CircuitID, assignment frontend.Circuit) (*types.Proof, error) {
	if !s.Has(id) {
		if !s.allowSetup {
			return nil, fmt.Errorf("%w: %s", ErrCircuitArtifactMissing, id)
		}
		if err := s.Setup(ctx, id); err != nil {
			return nil, err
		}
	}
	keys, err := s.circuitKeys(id)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	startTime := time.Now()
	proof, err := prove(keys, assignment)
	if err != nil {
		metrics.ProveFailures.WithLabelValues(id.String()).Inc()
		return nil, err
	}
	metrics.ProveDuration.WithLabelValues(id.String()).Observe(time.Since(startTime).Seconds())
	proof.Circuit = id
	log.Debugw("proof generated", "circuit", id.String(), "took", time.Since(startTime).String())
	return proof, nil
}

func prove(keys *circuitKeys, assignment frontend.Circuit) (*types.Proof, error) {
	fullWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create witness: %v", circuits.ErrWitnessUnsatisfiable, err)
	}
	proof, err := groth16.Prove(keys.ccs, keys.pk, fullWitness)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", circuits.ErrWitnessUnsatisfiable, err)
	}
	encoded, err := verifier.EncodeProof(proof)
	if err != nil {
		return nil, err
	}
	signals, err := verifier.PublicSignals(fullWitness)
	if err != nil {
		return nil, err
	}
	return &types.Proof{
		Proof:         encoded,
		PublicSignals: types.SliceFromBigInts(signals),
	}, nil
}

// Verify checks a proof against the verifying key held by the prover.
func (s *Service) Verify(p *types.Proof) error {
	vk, err := s.VerifyingKey(p.Circuit)
	if err != nil {
		return err
	}
	return verifier.VerifyProof(vk, p)
}
