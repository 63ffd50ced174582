package service

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/consensys/gnark/logger"
	qt "github.com/frankban/quicktest"
	"github.com/rs/zerolog"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/prover"
	"github.com/vocdoni/zkgames/storage"
	"github.com/vocdoni/zkgames/types"
	"github.com/vocdoni/zkgames/verifier"
)

func TestMain(m *testing.M) {
	logger.Set(zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(zerolog.WarnLevel))
	dir, err := os.MkdirTemp("", "zkgames-service")
	if err != nil {
		panic(err)
	}
	circuits.BaseDir = dir
	code := m.Run()
	if err := os.RemoveAll(dir); err != nil {
		panic(err)
	}
	os.Exit(code)
}

func TestPrepareCircuitKeys(t *testing.T) {
	c := qt.New(t)
	stg := storage.New(metadb.NewTest(t))
	registry, err := verifier.NewRegistry(stg)
	c.Assert(err, qt.IsNil)

	// without setup nothing is registered
	p := prover.New(false)
	c.Assert(PrepareCircuitKeys(&KeysConfig{
		Storage:  stg,
		Registry: registry,
		Prover:   p,
	}, types.CircuitArenaWin), qt.IsNil)
	c.Assert(registry.Circuits(), qt.HasLen, 0)
	c.Assert(p.Has(types.CircuitArenaWin), qt.IsFalse)

	c.Assert(PrepareCircuitKeys(&KeysConfig{
		Storage:    stg,
		Registry:   registry,
		Prover:     p,
		AllowSetup: true,
		Timeout:    5 * time.Minute,
	}, types.CircuitArenaWin), qt.IsNil)
	c.Assert(registry.Has(types.CircuitArenaWin), qt.IsTrue)
	keys, err := stg.CircuitKeys(types.CircuitArenaWin)
	c.Assert(err, qt.IsNil)
	c.Assert(keys.ProvingKeyHash, qt.Not(qt.HasLen), 0)

	// a new node restores the prover from the registered keys and the cache
	restored := prover.New(false)
	reloaded, err := verifier.NewRegistry(stg)
	c.Assert(err, qt.IsNil)
	c.Assert(PrepareCircuitKeys(&KeysConfig{
		Storage:  stg,
		Registry: reloaded,
		Prover:   restored,
	}, types.CircuitArenaWin), qt.IsNil)
	c.Assert(restored.Has(types.CircuitArenaWin), qt.IsTrue)

	// missing artifacts are downloaded from the remote URL
	served := map[string][]byte{}
	for _, hash := range []types.HexBytes{keys.ConstraintSystemHash, keys.ProvingKeyHash} {
		content, err := os.ReadFile(filepath.Join(circuits.BaseDir, hash.String()))
		c.Assert(err, qt.IsNil)
		served["/"+hash.String()] = content
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, ok := served[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(content)
	}))
	defer srv.Close()
	c.Assert(os.RemoveAll(circuits.BaseDir), qt.IsNil)
	downloaded := prover.New(false)
	c.Assert(PrepareCircuitKeys(&KeysConfig{
		Storage:   stg,
		Registry:  reloaded,
		Prover:    downloaded,
		RemoteURL: srv.URL,
	}, types.CircuitArenaWin), qt.IsNil)
	c.Assert(downloaded.Has(types.CircuitArenaWin), qt.IsTrue)

	// without the artifacts the circuit stays verifiable only
	c.Assert(os.RemoveAll(circuits.BaseDir), qt.IsNil)
	unprovable := prover.New(false)
	c.Assert(PrepareCircuitKeys(&KeysConfig{
		Storage:  stg,
		Registry: reloaded,
		Prover:   unprovable,
	}, types.CircuitArenaWin), qt.IsNil)
	c.Assert(unprovable.Has(types.CircuitArenaWin), qt.IsFalse)
	c.Assert(reloaded.Has(types.CircuitArenaWin), qt.IsTrue)
}

func TestArtifactsOf(t *testing.T) {
	c := qt.New(t)
	keys := &storage.CircuitKeys{
		VerifyingKey:         []byte{1},
		ConstraintSystemHash: []byte{0xab},
		ProvingKeyHash:       []byte{0xcd},
	}
	a := artifactsOf(keys, "https://example.com/artifacts/")
	c.Assert(a.VerifyingKey(), qt.DeepEquals, types.HexBytes{1})
	c.Assert(artifactsOf(keys, "").CircuitDefinition(), qt.HasLen, 0)
}
