// Package grpc предоставляет gRPC сервер проверки здоровья сервиса заметок.
package grpc

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"gratitudeboard/internal/notes/config"
	"gratitudeboard/pkg/logger"
)

// Константы для логирования.
const (
	LogServerStarted  = "gRPC server started"
	LogStoppingServer = "stopping gRPC server"

	ErrListen        = "failed to listen"
	ErrServe         = "failed to serve gRPC"
	ErrCloseListener = "failed to close listener"
)

// Server представляет gRPC сервер со службой grpc.health.v1.
type Server struct {
	server   *grpc.Server
	health   *health.Server
	address  string
	listener net.Listener
}

// New создает gRPC сервер и регистрирует на нем службу здоровья.
func New(config *config.GRPCConfig) *Server {
	server := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	return &Server{
		server:  server,
		health:  healthServer,
		address: config.GetAddress(),
	}
}

// Health возвращает службу здоровья для обновления статусов.
func (s *Server) Health() *health.Server {
	return s.health
}

// Start начинает прием соединений на настроенном адресе.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrListen, err)
	}
	return s.Serve(ctx, listener)
}

// Serve начинает прием соединений на listener в отдельной горутине.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	log := logger.Log(ctx)
	s.listener = listener

	log.Info(ctx, LogServerStarted, zap.String("address", listener.Addr().String()))

	go func() {
		if err := s.server.Serve(listener); err != nil {
			log.Error(ctx, ErrServe, zap.Error(err))
		}
	}()

	return nil
}

// Stop переводит все службы в NOT_SERVING и останавливает сервер.
func (s *Server) Stop(ctx context.Context) {
	log := logger.Log(ctx)
	log.Info(ctx, LogStoppingServer)

	s.health.Shutdown()
	s.server.GracefulStop()
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			log.Debug(ctx, ErrCloseListener, zap.Error(err))
		}
	}
}
