package models

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrNotFound           = status.Errorf(codes.NotFound, "not found")
	ErrAlreadyExists      = status.Errorf(codes.AlreadyExists, "already exists")
	ErrOpenTicketExists   = status.Errorf(codes.AlreadyExists, "an open ticket already exists for this user")
	ErrTicketClosed       = status.Errorf(codes.FailedPrecondition, "Atendimento encerrado.")
	ErrEmptyMessage       = status.Errorf(codes.InvalidArgument, "Vazio")
	ErrUnauthenticated    = status.Errorf(codes.Unauthenticated, "authentication required")
	ErrInvalidCredentials = status.Errorf(codes.Unauthenticated, "Usuário ou senha incorretos")
	ErrPermissionDenied   = status.Errorf(codes.PermissionDenied, "permission denied")
	ErrRateLimited        = status.Errorf(codes.ResourceExhausted, "too many requests")
	ErrBanned             = status.Errorf(codes.ResourceExhausted, "address temporarily blocked")
	ErrUnavailable        = status.Errorf(codes.Unavailable, "service unavailable")
)

// InvalidArgument reports a validation failure the caller can fix.
func InvalidArgument(format string, args ...any) error {
	return status.Errorf(codes.InvalidArgument, format, args...)
}
