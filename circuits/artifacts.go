package circuits

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/vocdoni/zkgames/log"
	"github.com/vocdoni/zkgames/types"
)

// CheckHashes enables the sha256 check of the artifacts when they are
// loaded or downloaded. Disabled by ZKGAMES_CHECK_HASHES=false or 0.
var CheckHashes = true

// BaseDir is the local artifact cache. Defaults to ZKGAMES_ARTIFACTS_DIR or
// ~/.cache/zkgames-artifacts.
var BaseDir string

// ErrArtifactNotFound is returned when an artifact is neither cached nor
// downloadable.
var ErrArtifactNotFound = errors.New("artifact not found")

func init() {
	if v := os.Getenv("ZKGAMES_CHECK_HASHES"); v != "" {
		if strings.ToLower(v) == "false" || v == "0" {
			CheckHashes = false
		}
	}
	if dir := os.Getenv("ZKGAMES_ARTIFACTS_DIR"); dir != "" {
		BaseDir = dir
		return
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		BaseDir = filepath.Join(os.TempDir(), "zkgames-artifacts")
		return
	}
	BaseDir = filepath.Join(home, ".cache", "zkgames-artifacts")
}

// Artifact is a content addressed file of the artifact cache: a compiled
// constraint system, a proving key or a verifying key. The file name is the
// hex encoded sha256 of the content.
type Artifact struct {
	RemoteURL string
	Hash      types.HexBytes
	Content   types.HexBytes
}

// NewLocalArtifact returns an artifact for content that is already in
// memory, with its hash computed.
func NewLocalArtifact(content []byte) *Artifact {
	h := sha256.Sum256(content)
	return &Artifact{Hash: h[:], Content: content}
}

// Load loads the artifact content from the local cache. If it is not cached
// and a remote URL is set, it is downloaded first.
func (a *Artifact) Load(ctx context.Context) error {
	if len(a.Content) != 0 {
		return nil
	}
	if len(a.Hash) == 0 {
		return fmt.Errorf("artifact hash not provided")
	}
	content, err := load(a.Hash)
	if err != nil {
		return err
	}
	if content == nil {
		if a.RemoteURL == "" {
			return fmt.Errorf("%w: %x", ErrArtifactNotFound, a.Hash)
		}
		if err := a.Download(ctx); err != nil {
			return err
		}
		if content, err = load(a.Hash); err != nil {
			return err
		}
		if content == nil {
			return fmt.Errorf("%w: %x", ErrArtifactNotFound, a.Hash)
		}
	}
	a.Content = content
	return nil
}

// Download fetches the artifact from its remote URL into the local cache.
func (a *Artifact) Download(ctx context.Context) error {
	if a.RemoteURL == "" {
		return fmt.Errorf("artifact not loaded and remote url not provided")
	}
	return downloadAndStore(ctx, a.Hash, a.RemoteURL)
}

// Store writes the artifact content into the local cache.
func (a *Artifact) Store() error {
	if len(a.Content) == 0 {
		return fmt.Errorf("empty artifact")
	}
	if err := os.MkdirAll(BaseDir, 0o755); err != nil {
		return fmt.Errorf("error creating the base directory: %w", err)
	}
	path := filepath.Join(BaseDir, hex.EncodeToString(a.Hash))
	return os.WriteFile(path, a.Content, 0o644)
}

// CircuitArtifacts groups the constraint system, proving key and verifying
// key of a circuit. Any of them can be nil.
type CircuitArtifacts struct {
	circuitDefinition *Artifact
	provingKey        *Artifact
	verifyingKey      *Artifact
}

// NewCircuitArtifacts returns the artifacts of a circuit.
func NewCircuitArtifacts(circuit, provingKey, verifyingKey *Artifact) *CircuitArtifacts {
	return &CircuitArtifacts{
		circuitDefinition: circuit,
		provingKey:        provingKey,
		verifyingKey:      verifyingKey,
	}
}

// LoadAll loads every artifact set, downloading the missing ones.
func (ca *CircuitArtifacts) LoadAll(ctx context.Context) error {
	if ca.circuitDefinition != nil {
		if err := ca.circuitDefinition.Load(ctx); err != nil {
			return fmt.Errorf("error loading circuit definition: %w", err)
		}
	}
	if ca.provingKey != nil {
		if err := ca.provingKey.Load(ctx); err != nil {
			return fmt.Errorf("error loading proving key: %w", err)
		}
	}
	if ca.verifyingKey != nil {
		if err := ca.verifyingKey.Load(ctx); err != nil {
			return fmt.Errorf("error loading verifying key: %w", err)
		}
	}
	return nil
}

// CircuitDefinition returns the constraint system content, nil if unset.
func (ca *CircuitArtifacts) CircuitDefinition() types.HexBytes {
	if ca.circuitDefinition == nil {
		return nil
	}
	return ca.circuitDefinition.Content
}

// ProvingKey returns the proving key content, nil if unset.
func (ca *CircuitArtifacts) ProvingKey() types.HexBytes {
	if ca.provingKey == nil {
		return nil
	}
	return ca.provingKey.Content
}

// VerifyingKey returns the verifying key content, nil if unset.
func (ca *CircuitArtifacts) VerifyingKey() types.HexBytes {
	if ca.verifyingKey == nil {
		return nil
	}
	return ca.verifyingKey.Content
}

func load(hash []byte) ([]byte, error) {
	path := filepath.Join(BaseDir, hex.EncodeToString(hash))
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading file %s: %w", path, err)
	}
	if CheckHashes {
		if fileHash := sha256.Sum256(content); !bytes.Equal(fileHash[:], hash) {
			return nil, fmt.Errorf("hash mismatch for file %s: expected %x, got %x", path, hash, fileHash)
		}
	}
	return content, nil
}

// downloadAndStore downloads a file into the local cache, checking its hash
// before moving it to its final name.
func downloadAndStore(ctx context.Context, expectedHash []byte, fileURL string) error {
	if _, err := url.Parse(fileURL); err != nil {
		return fmt.Errorf("error parsing the file URL provided: %w", err)
	}
	if err := os.MkdirAll(BaseDir, 0o755); err != nil {
		return fmt.Errorf("error creating the base directory: %w", err)
	}
	path := filepath.Join(BaseDir, hex.EncodeToString(expectedHash))
	partialPath := path + ".partial"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("error creating the file request: %w", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("error performing the request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("error downloading file %s: http status: %d", fileURL, res.StatusCode)
	}
	fd, err := os.OpenFile(partialPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("error opening artifact file: %w", err)
	}
	defer fd.Close()
	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(fd, hasher), res.Body)
	if err != nil {
		return fmt.Errorf("error copying data to file: %w", err)
	}
	if CheckHashes {
		if computed := hasher.Sum(nil); !bytes.Equal(computed, expectedHash) {
			os.Remove(partialPath)
			return fmt.Errorf("hash mismatch: expected %x, got %x", expectedHash, computed)
		}
	}
	if err := os.Rename(partialPath, path); err != nil {
		return fmt.Errorf("error renaming file: %w", err)
	}
	log.Debugw("artifact downloaded", "url", fileURL, "bytes", n)
	return nil
}
