package contact

import (
	"log/slog"

	"unify/internal/contact/handler"
	"unify/internal/contact/service"
)

// Service exposes identity resolution.
type Service = service.Service

// Handler wires HTTP endpoints to the resolution service.
type Handler = handler.Handler

// NewService constructs the resolution service with required dependencies.
func NewService(stores service.StoreTx, locker service.Locker, logger *slog.Logger, opts ...service.Option) *Service {
	return service.New(stores, locker, logger, opts...)
}

// NewHandler constructs an HTTP handler for the identify endpoint.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
