package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/justinas/alice"
	"github.com/vfg2006/trusted-etl/internal/api/handler"
	"github.com/vfg2006/trusted-etl/internal/api/handler/router"
	"github.com/vfg2006/trusted-etl/internal/config"
	"github.com/vfg2006/trusted-etl/internal/usecases/authenticating"
	"github.com/vfg2006/trusted-etl/pkg/log"
	"github.com/vfg2006/trusted-etl/pkg/middleware"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	httpServer *http.Server
	logger     log.Logger
}

func New(
	cfg config.Server,
	authenticator authenticating.Authenticator,
	db handler.Pinger,
	sync handler.ReconciliationSync,
	history handler.RunHistory,
	logger log.Logger,
) *Server {
	rt := router.New(
		router.WithRoutes(handler.Healthcheck(db)...),
		router.WithRoutes(handler.Reconciliation(sync, history)...),
	)

	middlewares := []alice.Constructor{
		middleware.LoggingMiddleware(logger),
		middleware.LogPanicMiddleware(logger),
		middleware.AuthMiddleware(authenticator),
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
			Handler:           alice.New(middlewares...).Then(rt),
			ReadHeaderTimeout: 2 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run atende até o contexto ser cancelado e então desliga o servidor.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("address", s.httpServer.Addr).Info("Servidor iniciando")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("erro durante a execução do servidor: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("Contexto de aplicação cancelado")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.WithField("timeout", shutdownTimeout.String()).Info("Iniciando desligamento gracioso do servidor")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.WithError(err).Error("Erro durante o desligamento do servidor")
		return err
	}

	s.logger.Info("Servidor desligado com sucesso")
	return nil
}
