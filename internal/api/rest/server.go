package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tintcrm/billing-service/internal/config"
	"github.com/tintcrm/billing-service/pkg/logger"
)

// Server HTTP-сервер сервиса
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer создает HTTP-сервер с таймаутами из конфигурации
func NewServer(cfg config.ServerConfig, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		log: log,
	}
}

// Start запускает сервер и блокируется до его остановки
func (s *Server) Start() error {
	s.log.Infow("HTTP server listening", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
