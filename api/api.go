package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vocdoni/zkgames/log"
	"github.com/vocdoni/zkgames/session"
	stg "github.com/vocdoni/zkgames/storage"
	"github.com/vocdoni/zkgames/verifier"
)

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port and the engine components it serves.
type APIConfig struct {
	Host     string
	Port     int
	Storage  *stg.Storage
	Machine  *session.Machine
	Registry *verifier.Registry
}

// API type represents the API HTTP server of the game engine.
type API struct {
	router   *chi.Mux
	server   *http.Server
	listener net.Listener
	storage  *stg.Storage
	machine  *session.Machine
	registry *verifier.Registry
}

// New creates a new API instance with the given configuration and starts
// the HTTP server.
func New(conf *APIConfig) (*API, error) {
	a, err := NewRouter(conf)
	if err != nil {
		return nil, err
	}
	a.listener, err = net.Listen("tcp", fmt.Sprintf("%s:%d", conf.Host, conf.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	a.server = &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("starting API server", "address", a.listener.Addr().String())
		if err := a.server.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// NewRouter creates the API without starting a server, the handlers are
// served through Router.
func NewRouter(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	if conf.Machine == nil {
		return nil, fmt.Errorf("missing session machine")
	}
	if conf.Registry == nil {
		return nil, fmt.Errorf("missing verifier registry")
	}
	a := &API{
		storage:  conf.Storage,
		machine:  conf.Machine,
		registry: conf.Registry,
	}
	a.initRouter()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// Addr returns the address the server listens on, nil if not started.
func (a *API) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Shutdown gracefully stops the HTTP server.
func (a *API) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", MetricsEndpoint, "method", "GET")
	a.router.Handle(MetricsEndpoint, promhttp.Handler())
	log.Infow("register handler", "endpoint", GamesEndpoint, "method", "GET")
	a.router.Get(GamesEndpoint, a.games)
	log.Infow("register handler", "endpoint", CircuitsEndpoint, "method", "GET")
	a.router.Get(CircuitsEndpoint, a.circuits)

	log.Infow("register handler", "endpoint", SessionsEndpoint, "method", "POST")
	a.router.Post(SessionsEndpoint, a.newSession)
	log.Infow("register handler", "endpoint", SessionEndpoint, "method", "GET")
	a.router.Get(SessionEndpoint, a.session)
	log.Infow("register handler", "endpoint", JoinEndpoint, "method", "POST")
	a.router.Post(JoinEndpoint, a.join)
	log.Infow("register handler", "endpoint", CommitEndpoint, "method", "POST")
	a.router.Post(CommitEndpoint, a.commit)
	log.Infow("register handler", "endpoint", RevealEndpoint, "method", "POST")
	a.router.Post(RevealEndpoint, a.reveal)
	log.Infow("register handler", "endpoint", ProofsEndpoint, "method", "POST")
	a.router.Post(ProofsEndpoint, a.submitProof)
	log.Infow("register handler", "endpoint", ActionsEndpoint, "method", "POST")
	a.router.Post(ActionsEndpoint, a.submitAction)
	log.Infow("register handler", "endpoint", ConsumedEndpoint, "method", "GET")
	a.router.Get(ConsumedEndpoint, a.consumedProof)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}
