package grpc

import (
	"errors"

	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func mapErrorCode(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrOptionResolution):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrNotSettled):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrConflict):
		return codes.AlreadyExists
	default:
		return codes.Internal
	}
}

// ToStatus converts a service error into a gRPC status. Internal failures
// carry a generic message so storage details never leak to callers.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	code := mapErrorCode(err)
	if code == codes.Internal {
		return status.Error(code, "internal error")
	}

	return status.Error(code, err.Error())
}
