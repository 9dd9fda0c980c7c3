package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/condmatch/internal/core/catalog"
	"github.com/solatis/condmatch/internal/types"
)

// toStatus maps request-level errors onto gRPC codes.
// Auth errors are mapped in the auth package interceptor.
// Rule document errors map to INVALID_ARGUMENT.
// Unknown rule sets map to NOT_FOUND.
// Context timeouts map to DEADLINE_EXCEEDED.
// Anything else is a catalog failure and maps to UNAVAILABLE.
func toStatus(err error) error {
	switch {
	case errors.Is(err, types.ErrParse),
		errors.Is(err, types.ErrUnknownOperator),
		errors.Is(err, types.ErrUnsupportedValueType),
		errors.Is(err, types.ErrInvalidCondition),
		errors.Is(err, catalog.ErrInvalidName):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, catalog.ErrRuleSetNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}
