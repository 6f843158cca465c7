// Package api exposes the report lifecycle over HTTP. Handlers translate
// requests into intents for the core packages; they never mutate state
// themselves.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/et-mohedano/demo-delegados/pkg/catalog"
	"github.com/et-mohedano/demo-delegados/pkg/config"
	"github.com/et-mohedano/demo-delegados/pkg/geo"
	"github.com/et-mohedano/demo-delegados/pkg/report"
	"github.com/et-mohedano/demo-delegados/pkg/session"
	"github.com/et-mohedano/demo-delegados/pkg/viewsync"
)

const (
	shutdownTimeout   = 10 * time.Second
	sessionCookieName = "delegados_session"
	maxUploadBytes    = 32 << 20
)

// Server exposes the API HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Server = (*server)(nil)

// Deps are the core collaborators the API fronts. All are constructed at
// process start and injected; the API owns none of them.
type Deps struct {
	Regions   *geo.Index
	Irregular *geo.Index
	Catalog   *catalog.Catalog
	Reports   report.Store
	Sessions  *session.Context
	Views     *viewsync.Coordinator
}

type server struct {
	log        logrus.FieldLogger
	cfg        *config.ServerConfig
	deps       Deps
	httpServer *http.Server
}

// NewServer creates a new API server.
func NewServer(
	log logrus.FieldLogger, cfg *config.ServerConfig, deps Deps,
) Server {
	return &server{
		log:  log.WithField("component", "api"),
		cfg:  cfg,
		deps: deps,
	}
}

// Start begins serving on the configured listen address.
func (s *server) Start(ctx context.Context) error {
	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Listen, err)
	}

	s.log.WithField("addr", ln.Addr().String()).Info("API server listening")

	go func() {
		if err := s.httpServer.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server failed")
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	return nil
}
