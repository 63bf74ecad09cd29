package server

import (
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/at-ishikawa/conceptdeck/internal/content"
	"github.com/at-ishikawa/conceptdeck/internal/session"
	"github.com/at-ishikawa/conceptdeck/internal/study"
)

const errorDomain = "conceptdeck"

// toConnectError maps service errors onto connect codes.
func toConnectError(err error, now time.Time) *connect.Error {
	var limitErr *study.LimitReachedError
	switch {
	case errors.As(err, &limitErr):
		return newLimitReachedError(limitErr, now)
	case errors.Is(err, study.ErrInvalidRequest):
		return newValidationError(err)
	case errors.Is(err, session.ErrInvalidResponse):
		return newInvalidArgumentError("response", err.Error())
	case errors.Is(err, study.ErrSessionNotFound), errors.Is(err, content.ErrNotebookNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, session.ErrUnknownConcept):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, study.ErrPersistenceFailed):
		return connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func newLimitReachedError(limitErr *study.LimitReachedError, now time.Time) *connect.Error {
	connectErr := connect.NewError(connect.CodeResourceExhausted, limitErr)

	metadata := map[string]string{"mode": string(limitErr.Mode)}
	if limitErr.NextEligible != nil {
		metadata["next_eligible"] = limitErr.NextEligible.Format(time.RFC3339)
	}
	if detail, err := connect.NewErrorDetail(&errdetails.ErrorInfo{
		Reason:   string(limitErr.Reason),
		Domain:   errorDomain,
		Metadata: metadata,
	}); err == nil {
		connectErr.AddDetail(detail)
	}

	if limitErr.NextEligible != nil && limitErr.NextEligible.After(now) {
		if detail, err := connect.NewErrorDetail(&errdetails.RetryInfo{
			RetryDelay: durationpb.New(limitErr.NextEligible.Sub(now)),
		}); err == nil {
			connectErr.AddDetail(detail)
		}
	}
	return connectErr
}

func newValidationError(err error) *connect.Error {
	connectErr := connect.NewError(connect.CodeInvalidArgument, err)

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return connectErr
	}
	var fieldViolations []*errdetails.BadRequest_FieldViolation
	for _, fe := range validationErrs {
		fieldViolations = append(fieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       fe.Field(),
			Description: fmt.Sprintf("failed on the %q rule", fe.Tag()),
		})
	}
	if detail, detailErr := connect.NewErrorDetail(&errdetails.BadRequest{
		FieldViolations: fieldViolations,
	}); detailErr == nil {
		connectErr.AddDetail(detail)
	}
	return connectErr
}

func newInvalidArgumentError(field, description string) *connect.Error {
	connectErr := connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s: %s", field, description))
	if detail, err := connect.NewErrorDetail(&errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{
			{Field: field, Description: description},
		},
	}); err == nil {
		connectErr.AddDetail(detail)
	}
	return connectErr
}
