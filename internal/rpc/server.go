// Package rpc exposes the coordinator's operations over the HTTP
// surface spec §6 describes: one resource per wallet operation, routed
// by method and path rather than by a single JSON-RPC method name.
package rpc

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/coordinator"
	"github.com/Gigamonkey-BSV/cosmos-wallet/pkg/logging"
)

// Server is the wallet daemon's HTTP surface. It owns no wallet state
// of its own -- every handler is a thin translation between an HTTP
// request and a Coordinator call.
type Server struct {
	coord   *coordinator.Coordinator
	log     *logging.Logger
	version string

	server   *http.Server
	listener net.Listener

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// NewServer returns a Server wired to coord. version is reported by
// GET /version.
func NewServer(coord *coordinator.Coordinator, log *logging.Logger, version string) *Server {
	if log == nil {
		log = logging.GetDefault()
	}
	return &Server{
		coord:      coord,
		log:        log.Component(logging.ComponentRPC),
		version:    version,
		shutdownCh: make(chan struct{}),
	}
}

// ShutdownRequested returns a channel that is closed once a client has
// called PUT /shutdown, the signal cmd/cosmosd waits on to begin
// graceful shutdown.
func (s *Server) ShutdownRequested() <-chan struct{} {
	return s.shutdownCh
}

// Start binds addr and begins serving in the background. It returns
// once the listener is open; Serve errors are logged asynchronously.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:      corsMiddleware(s.routes()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server error", "error", err)
		}
	}()

	s.log.Info("rpc server started", "addr", addr)
	return nil
}

// Shutdown drains in-flight requests and closes the listener, honoring
// ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("GET /help", s.handleHelp)
	mux.HandleFunc("GET /help/{method}", s.handleHelp)
	mux.HandleFunc("PUT /shutdown", s.handleShutdown)
	mux.HandleFunc("POST /add_entropy", s.handleAddEntropy)

	mux.HandleFunc("GET /list_wallets", s.handleListWallets)
	mux.HandleFunc("POST /make_wallet/{name}", s.handleMakeWallet)

	mux.HandleFunc("GET /key/{wallet}", s.handleGetKey)
	mux.HandleFunc("POST /key/{wallet}", s.handleSetOrGenerateKey)

	mux.HandleFunc("GET /to_private", s.handleToPrivateGet)
	mux.HandleFunc("PUT /to_private", s.handleToPrivatePut)

	mux.HandleFunc("GET /invert_hash", s.handleInvertHashGet)
	mux.HandleFunc("PUT /invert_hash", s.handleInvertHashPut)

	mux.HandleFunc("GET /key_sequence/{wallet}", s.handleEnsureSequence)
	mux.HandleFunc("POST /key_sequence/{wallet}", s.handleEnsureSequence)

	mux.HandleFunc("POST /next_address/{wallet}", s.handleNextAddress)
	mux.HandleFunc("POST /next_xpub/{wallet}", s.handleNextXpub)

	mux.HandleFunc("GET /value/{wallet}", s.handleValue)
	mux.HandleFunc("GET /details/{wallet}", s.handleDetails)

	mux.HandleFunc("POST /generate/{wallet}", s.handleGenerate)
	mux.HandleFunc("PUT /restore/{wallet}", s.handleRestore)
	mux.HandleFunc("PUT /import/{wallet}", s.handleImport)
	mux.HandleFunc("POST /spend/{wallet}", s.handleSpend)

	return mux
}

// corsMiddleware allows the bundled browser UI (spec.md's "Deliberately
// OUT of scope... the HTML/JS UI") to call this server from a different
// origin during local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
