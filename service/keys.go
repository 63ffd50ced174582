package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/log"
	"github.com/vocdoni/zkgames/prover"
	"github.com/vocdoni/zkgames/storage"
	"github.com/vocdoni/zkgames/types"
	"github.com/vocdoni/zkgames/verifier"
)

// KeysConfig holds what PrepareCircuitKeys needs to make the circuits
// provable and verifiable.
type KeysConfig struct {
	Storage  *storage.Storage
	Registry *verifier.Registry
	Prover   *prover.Service
	// RemoteURL is the base URL of the artifacts missing from the cache.
	RemoteURL string
	// AllowSetup runs a local setup for the circuits without registered
	// keys and registers the result.
	AllowSetup bool
	Timeout    time.Duration
}

// PrepareCircuitKeys loads in the prover the setup artifacts of every
// circuit with a registered verifying key, downloading them concurrently if
// they are not cached. Circuits without a registered key are set up
// locally if allowed. A circuit whose artifacts cannot be found stays
// verifiable but not provable, which is only logged.
func PrepareCircuitKeys(conf *KeysConfig, ids ...types.CircuitID) error {
	if len(ids) == 0 {
		ids = types.AllCircuits()
	}
	ctx := context.Background()
	if conf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, conf.Timeout)
		defer cancel()
	}

	var missing []types.CircuitID
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		keys, err := conf.Storage.CircuitKeys(id)
		if errors.Is(err, storage.ErrNotFound) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return fmt.Errorf("could not read keys of circuit %s: %w", id, err)
		}
		if len(keys.ConstraintSystemHash) == 0 || len(keys.ProvingKeyHash) == 0 {
			log.Warnw("circuit registered without setup artifacts, it cannot be proven", "circuit", id.String())
			continue
		}
		g.Go(func() error {
			err := conf.Prover.Load(gctx, id, artifactsOf(keys, conf.RemoteURL))
			if errors.Is(err, prover.ErrCircuitArtifactMissing) || errors.Is(err, circuits.ErrArtifactNotFound) {
				log.Warnw("circuit can be verified but not proven", "circuit", id.String(), "error", err.Error())
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(missing) == 0 {
		return nil
	}
	if !conf.AllowSetup {
		for _, id := range missing {
			log.Warnw("circuit without verifying key, proofs will be rejected", "circuit", id.String())
		}
		return nil
	}
	log.Warnw("running local groth16 setup, the keys are not safe for production", "circuits", len(missing))
	if err := conf.Prover.Setup(ctx, missing...); err != nil {
		return err
	}
	for _, id := range missing {
		keys, err := conf.Prover.CircuitKeys(id)
		if err != nil {
			return err
		}
		if err := conf.Registry.Register(id, keys); err != nil {
			return err
		}
	}
	return nil
}

// artifactsOf returns the setup artifacts of registered keys. With a remote
// URL, missing artifacts are downloaded from <remoteURL>/<hash>.
func artifactsOf(keys *storage.CircuitKeys, remoteURL string) *circuits.CircuitArtifacts {
	remote := func(hash types.HexBytes) string {
		if remoteURL == "" || len(hash) == 0 {
			return ""
		}
		return strings.TrimSuffix(remoteURL, "/") + "/" + hash.String()
	}
	return circuits.NewCircuitArtifacts(
		&circuits.Artifact{RemoteURL: remote(keys.ConstraintSystemHash), Hash: keys.ConstraintSystemHash},
		&circuits.Artifact{RemoteURL: remote(keys.ProvingKeyHash), Hash: keys.ProvingKeyHash},
		&circuits.Artifact{Content: keys.VerifyingKey},
	)
}
