// Command zkgames runs a game engine node: the session state machine of the
// arena, duel, poker and dead man's draw games behind the HTTP API, with the proof service
// and the verifying key registry.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/config"
	"github.com/vocdoni/zkgames/game/arena"
	"github.com/vocdoni/zkgames/game/deadmansdraw"
	"github.com/vocdoni/zkgames/game/duel"
	"github.com/vocdoni/zkgames/game/poker"
	"github.com/vocdoni/zkgames/log"
	"github.com/vocdoni/zkgames/prover"
	"github.com/vocdoni/zkgames/service"
	"github.com/vocdoni/zkgames/session"
	"github.com/vocdoni/zkgames/storage"
	"github.com/vocdoni/zkgames/verifier"
)

// keysTimeout bounds the artifact downloads and local setups at startup.
const keysTimeout = 30 * time.Minute

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var errOutput io.Writer
	if cfg.Log.ErrorFile != "" {
		f, err := os.OpenFile(cfg.Log.ErrorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot open log error file: %v\n", err)
			os.Exit(2)
		}
		defer f.Close()
		errOutput = f
	}
	log.Init(cfg.Log.Level, cfg.Log.Output, errOutput)
	logger.Set(log.Logger().Level(zerolog.WarnLevel))

	circuits.BaseDir = cfg.Artifacts.Dir
	circuits.CheckHashes = cfg.Artifacts.CheckHashes

	database, err := metadb.New(db.TypePebble, filepath.Join(cfg.Datadir, "db"))
	if err != nil {
		log.Fatalf("cannot open database: %v", err)
	}
	stg := storage.New(database)
	defer stg.Close()

	registry, err := verifier.NewRegistry(stg)
	if err != nil {
		log.Fatal(err)
	}
	proofService := prover.New(cfg.AllowSetup)
	if err := service.PrepareCircuitKeys(&service.KeysConfig{
		Storage:    stg,
		Registry:   registry,
		Prover:     proofService,
		RemoteURL:  cfg.Artifacts.RemoteURL,
		AllowSetup: cfg.AllowSetup,
		Timeout:    keysTimeout,
	}); err != nil {
		log.Fatalf("cannot prepare circuit keys: %v", err)
	}

	duelRules, err := duel.New()
	if err != nil {
		log.Fatal(err)
	}
	machine := session.NewMachine(stg, registry, cfg.SessionTimeout,
		arena.New(), duelRules, poker.New(), deadmansdraw.New())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	apiService := service.NewAPI(stg, machine, registry, cfg.API.Host, cfg.API.Port)
	if err := apiService.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer apiService.Stop()

	monitor := service.NewTimeoutMonitor(machine, cfg.MonitorInterval)
	if err := monitor.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer monitor.Stop()

	log.Infow("zkgames node started",
		"games", machine.Games(),
		"circuits", len(registry.Circuits()),
		"datadir", cfg.Datadir)
	<-ctx.Done()
	log.Info("shutting down")
}
