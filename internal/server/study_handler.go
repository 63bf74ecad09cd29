// Package server provides Connect RPC handlers for the study service.
package server

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"go.uber.org/zap"

	"github.com/at-ishikawa/conceptdeck/internal/logging"
	"github.com/at-ishikawa/conceptdeck/internal/session"
	"github.com/at-ishikawa/conceptdeck/internal/study"
)

const StudyServiceName = "conceptdeck.study.v1.StudyService"

const (
	StartSessionProcedure         = "/" + StudyServiceName + "/StartSession"
	RecordResponseProcedure       = "/" + StudyServiceName + "/RecordResponse"
	CompleteSessionProcedure      = "/" + StudyServiceName + "/CompleteSession"
	SubmitValidationProcedure     = "/" + StudyServiceName + "/SubmitValidation"
	AbandonSessionProcedure       = "/" + StudyServiceName + "/AbandonSession"
	GetAvailabilityProcedure      = "/" + StudyServiceName + "/GetAvailability"
	GetNextEligibleDatesProcedure = "/" + StudyServiceName + "/GetNextEligibleDates"
)

// Service is the study API served over connect.
type Service interface {
	StartSession(ctx context.Context, req study.StartRequest) (*study.StartResult, error)
	RecordResponse(ctx context.Context, sessionID, conceptID string, response session.Response) (*study.Progress, error)
	CompleteSession(ctx context.Context, sessionID string) (*study.Summary, error)
	SubmitValidation(ctx context.Context, sessionID string, passed bool, score float64) (*study.ValidationResult, error)
	AbandonSession(sessionID string) error
	GetAvailability(ctx context.Context, userID, notebookID string) (*study.Availability, error)
	GetNextEligibleDates(ctx context.Context, userID, notebookID string) (*study.NextEligibleDates, error)
}

// StudyHandler implements the study service procedures.
type StudyHandler struct {
	service Service
	now     func() time.Time
	logger  *zap.Logger
}

// NewStudyHandler creates a new StudyHandler.
func NewStudyHandler(service Service, logger *zap.Logger) *StudyHandler {
	return &StudyHandler{
		service: service,
		now:     time.Now,
		logger:  logging.OrNop(logger),
	}
}

// NewStudyServiceHandler builds the HTTP handler serving every procedure under the returned path.
func NewStudyServiceHandler(h *StudyHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(StartSessionProcedure, connect.NewUnaryHandler(StartSessionProcedure, h.StartSession, opts...))
	mux.Handle(RecordResponseProcedure, connect.NewUnaryHandler(RecordResponseProcedure, h.RecordResponse, opts...))
	mux.Handle(CompleteSessionProcedure, connect.NewUnaryHandler(CompleteSessionProcedure, h.CompleteSession, opts...))
	mux.Handle(SubmitValidationProcedure, connect.NewUnaryHandler(SubmitValidationProcedure, h.SubmitValidation, opts...))
	mux.Handle(AbandonSessionProcedure, connect.NewUnaryHandler(AbandonSessionProcedure, h.AbandonSession, opts...))
	mux.Handle(GetAvailabilityProcedure, connect.NewUnaryHandler(GetAvailabilityProcedure, h.GetAvailability, opts...))
	mux.Handle(GetNextEligibleDatesProcedure, connect.NewUnaryHandler(GetNextEligibleDatesProcedure, h.GetNextEligibleDates, opts...))
	return "/" + StudyServiceName + "/", mux
}

func (h *StudyHandler) StartSession(
	ctx context.Context,
	req *connect.Request[StartSessionRequest],
) (*connect.Response[StartSessionResponse], error) {
	mode, err := session.ParseMode(req.Msg.Mode)
	if err != nil {
		return nil, newInvalidArgumentError("mode", err.Error())
	}
	var intensity session.Intensity
	if req.Msg.Intensity != "" {
		if intensity, err = session.ParseIntensity(req.Msg.Intensity); err != nil {
			return nil, newInvalidArgumentError("intensity", err.Error())
		}
	}

	result, err := h.service.StartSession(ctx, study.StartRequest{
		UserID:     req.Msg.UserID,
		NotebookID: req.Msg.NotebookID,
		Mode:       mode,
		Intensity:  intensity,
	})
	if err != nil {
		return nil, h.toConnectError(StartSessionProcedure, err)
	}

	resp := &StartSessionResponse{
		Started: result.Started,
		Outcome: string(result.Outcome),
		Batch:   result.Batch,
	}
	if result.Started {
		resp.Session = &result.Session
	}
	return connect.NewResponse(resp), nil
}

func (h *StudyHandler) RecordResponse(
	ctx context.Context,
	req *connect.Request[RecordResponseRequest],
) (*connect.Response[RecordResponseResponse], error) {
	response, err := session.ParseResponse(req.Msg.Response)
	if err != nil {
		return nil, newInvalidArgumentError("response", err.Error())
	}

	progress, err := h.service.RecordResponse(ctx, req.Msg.SessionID, req.Msg.ConceptID, response)
	if err != nil {
		return nil, h.toConnectError(RecordResponseProcedure, err)
	}
	return connect.NewResponse(&RecordResponseResponse{
		State:           progress.State.String(),
		Pass:            progress.Pass,
		Remaining:       progress.Remaining,
		ImmediateReview: progress.ImmediateReview,
		Metrics:         progress.Metrics.Payload(),
		Summary:         progress.Summary,
	}), nil
}

func (h *StudyHandler) CompleteSession(
	ctx context.Context,
	req *connect.Request[CompleteSessionRequest],
) (*connect.Response[CompleteSessionResponse], error) {
	summary, err := h.service.CompleteSession(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, h.toConnectError(CompleteSessionProcedure, err)
	}
	return connect.NewResponse(&CompleteSessionResponse{Summary: summary}), nil
}

func (h *StudyHandler) SubmitValidation(
	ctx context.Context,
	req *connect.Request[SubmitValidationRequest],
) (*connect.Response[SubmitValidationResponse], error) {
	result, err := h.service.SubmitValidation(ctx, req.Msg.SessionID, req.Msg.Passed, req.Msg.Score)
	if err != nil {
		return nil, h.toConnectError(SubmitValidationProcedure, err)
	}
	return connect.NewResponse(&SubmitValidationResponse{
		SessionID: result.SessionID,
		Passed:    result.Passed,
		Score:     result.Score,
		Records:   result.Records,
	}), nil
}

func (h *StudyHandler) AbandonSession(
	_ context.Context,
	req *connect.Request[AbandonSessionRequest],
) (*connect.Response[AbandonSessionResponse], error) {
	if err := h.service.AbandonSession(req.Msg.SessionID); err != nil {
		return nil, h.toConnectError(AbandonSessionProcedure, err)
	}
	return connect.NewResponse(&AbandonSessionResponse{}), nil
}

func (h *StudyHandler) GetAvailability(
	ctx context.Context,
	req *connect.Request[NotebookRequest],
) (*connect.Response[study.Availability], error) {
	availability, err := h.service.GetAvailability(ctx, req.Msg.UserID, req.Msg.NotebookID)
	if err != nil {
		return nil, h.toConnectError(GetAvailabilityProcedure, err)
	}
	return connect.NewResponse(availability), nil
}

func (h *StudyHandler) GetNextEligibleDates(
	ctx context.Context,
	req *connect.Request[NotebookRequest],
) (*connect.Response[study.NextEligibleDates], error) {
	dates, err := h.service.GetNextEligibleDates(ctx, req.Msg.UserID, req.Msg.NotebookID)
	if err != nil {
		return nil, h.toConnectError(GetNextEligibleDatesProcedure, err)
	}
	return connect.NewResponse(dates), nil
}

func (h *StudyHandler) toConnectError(procedure string, err error) *connect.Error {
	connectErr := toConnectError(err, h.now())
	if connectErr.Code() == connect.CodeInternal || connectErr.Code() == connect.CodeUnavailable {
		h.logger.Error("study request failed",
			zap.String("procedure", procedure),
			zap.String("code", connectErr.Code().String()),
			zap.Error(err))
	}
	return connectErr
}
