package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"

	"github.com/at-ishikawa/conceptdeck/internal/content"
	"github.com/at-ishikawa/conceptdeck/internal/learning"
	"github.com/at-ishikawa/conceptdeck/internal/limits"
	"github.com/at-ishikawa/conceptdeck/internal/session"
	"github.com/at-ishikawa/conceptdeck/internal/study"
	"github.com/at-ishikawa/conceptdeck/internal/testutil"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T, concepts []content.Concept) *StudyHandler {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	dir := filepath.Join(t.TempDir(), "notebooks")
	testutil.CreateNotebook(t, dir, "nb1", concepts)

	service := study.NewService(
		content.NewYAMLProvider(dir),
		learning.NewDBStore(db),
		limits.NewDBStore(db),
		session.NewDBStore(db),
		study.Options{
			Location: time.UTC,
			Now: func() time.Time {
				return testNow
			},
		},
		nil,
	)
	handler := NewStudyHandler(service, nil)
	handler.now = func() time.Time {
		return testNow
	}
	return handler
}

func TestStudyHandler_StartSession(t *testing.T) {
	tests := []struct {
		name        string
		req         *StartSessionRequest
		wantCode    connect.Code
		wantErr     bool
		wantStarted bool
	}{
		{
			name:     "returns INVALID_ARGUMENT for an unknown mode",
			req:      &StartSessionRequest{UserID: "u1", NotebookID: "nb1", Mode: "cram"},
			wantCode: connect.CodeInvalidArgument,
			wantErr:  true,
		},
		{
			name:     "returns INVALID_ARGUMENT for an unknown intensity",
			req:      &StartSessionRequest{UserID: "u1", NotebookID: "nb1", Mode: "smart", Intensity: "turbo"},
			wantCode: connect.CodeInvalidArgument,
			wantErr:  true,
		},
		{
			name:     "returns INVALID_ARGUMENT without a user",
			req:      &StartSessionRequest{NotebookID: "nb1", Mode: "smart"},
			wantCode: connect.CodeInvalidArgument,
			wantErr:  true,
		},
		{
			name:     "returns NOT_FOUND for a non-existent notebook",
			req:      &StartSessionRequest{UserID: "u1", NotebookID: "missing", Mode: "free"},
			wantCode: connect.CodeNotFound,
			wantErr:  true,
		},
		{
			name:        "starts a smart session",
			req:         &StartSessionRequest{UserID: "u1", NotebookID: "nb1", Mode: "smart", Intensity: "warm-up"},
			wantStarted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(t, testutil.Concepts(3))

			resp, err := handler.StartSession(context.Background(), connect.NewRequest(tt.req))
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, resp)
				connectErr, ok := err.(*connect.Error)
				require.True(t, ok)
				assert.Equal(t, tt.wantCode, connectErr.Code())
				if tt.wantCode == connect.CodeInvalidArgument {
					assert.NotEmpty(t, connectErr.Details())
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStarted, resp.Msg.Started)
			require.NotNil(t, resp.Msg.Session)
			assert.Equal(t, session.IntensityWarmUp, resp.Msg.Session.Intensity)
			assert.Len(t, resp.Msg.Batch, 3)
		})
	}
}

func TestStudyHandler_OverHTTP(t *testing.T) {
	handler := newTestHandler(t, testutil.Concepts(2))
	path, h := NewStudyServiceHandler(handler)
	mux := http.NewServeMux()
	mux.Handle(path, h)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	opt := connect.WithCodec(JSONCodec{})
	start := connect.NewClient[StartSessionRequest, StartSessionResponse](srv.Client(), srv.URL+StartSessionProcedure, opt)
	record := connect.NewClient[RecordResponseRequest, RecordResponseResponse](srv.Client(), srv.URL+RecordResponseProcedure, opt)
	availability := connect.NewClient[NotebookRequest, study.Availability](srv.Client(), srv.URL+GetAvailabilityProcedure, opt)

	started, err := start.CallUnary(ctx, connect.NewRequest(&StartSessionRequest{UserID: "u1", NotebookID: "nb1", Mode: "FREE"}))
	require.NoError(t, err)
	require.True(t, started.Msg.Started)
	sessionID := started.Msg.Session.ID

	var last *connect.Response[RecordResponseResponse]
	for _, c := range started.Msg.Batch {
		last, err = record.CallUnary(ctx, connect.NewRequest(&RecordResponseRequest{
			SessionID: sessionID,
			ConceptID: c.ID,
			Response:  "mastered",
		}))
		require.NoError(t, err)
	}
	assert.Equal(t, "complete", last.Msg.State)
	require.NotNil(t, last.Msg.Summary)
	assert.Equal(t, session.ModeFree, last.Msg.Summary.Mode)
	assert.EqualValues(t, 2, last.Msg.Metrics["conceptsDominados"])

	_, err = start.CallUnary(ctx, connect.NewRequest(&StartSessionRequest{UserID: "u1", NotebookID: "nb1", Mode: "FREE"}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeResourceExhausted, connect.CodeOf(err))
	var connectErr *connect.Error
	require.True(t, errors.As(err, &connectErr))
	info := findErrorInfo(t, connectErr)
	require.NotNil(t, info)
	assert.Equal(t, string(limits.ReasonDailyLimit), info.GetReason())
	assert.Equal(t, "2025-03-11T00:00:00Z", info.GetMetadata()["next_eligible"])

	report, err := availability.CallUnary(ctx, connect.NewRequest(&NotebookRequest{UserID: "u1", NotebookID: "nb1"}))
	require.NoError(t, err)
	assert.False(t, report.Msg.FreeStudy.Allowed)
	assert.True(t, report.Msg.Quiz.Allowed)
	assert.Equal(t, 2, report.Msg.TotalConcepts)
}

func findErrorInfo(t *testing.T, connectErr *connect.Error) *errdetails.ErrorInfo {
	t.Helper()
	for _, detail := range connectErr.Details() {
		value, err := detail.Value()
		require.NoError(t, err)
		if info, ok := value.(*errdetails.ErrorInfo); ok {
			return info
		}
	}
	return nil
}

func TestStudyHandler_RecordResponse(t *testing.T) {
	handler := newTestHandler(t, testutil.Concepts(1))
	ctx := context.Background()

	_, err := handler.RecordResponse(ctx, connect.NewRequest(&RecordResponseRequest{SessionID: "s1", ConceptID: "c01", Response: "perhaps"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = handler.RecordResponse(ctx, connect.NewRequest(&RecordResponseRequest{SessionID: "s1", ConceptID: "c01", Response: "MASTERED"}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	started, err := handler.StartSession(ctx, connect.NewRequest(&StartSessionRequest{UserID: "u1", NotebookID: "nb1", Mode: "smart"}))
	require.NoError(t, err)
	id := started.Msg.Session.ID

	_, err = handler.RecordResponse(ctx, connect.NewRequest(&RecordResponseRequest{SessionID: id, ConceptID: "c99", Response: "MASTERED"}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	resp, err := handler.RecordResponse(ctx, connect.NewRequest(&RecordResponseRequest{SessionID: id, ConceptID: "c01", Response: "review_later"}))
	require.NoError(t, err)
	assert.Equal(t, "immediate_review", resp.Msg.State)
	assert.Equal(t, 2, resp.Msg.Pass)
	assert.Nil(t, resp.Msg.Summary)

	resp, err = handler.RecordResponse(ctx, connect.NewRequest(&RecordResponseRequest{SessionID: id, ConceptID: "c01", Response: "mastered"}))
	require.NoError(t, err)
	assert.Equal(t, "awaiting_validation", resp.Msg.State)

	validated, err := handler.SubmitValidation(ctx, connect.NewRequest(&SubmitValidationRequest{SessionID: id, Passed: true, Score: 10}))
	require.NoError(t, err)
	require.Len(t, validated.Msg.Records, 1)
	assert.Equal(t, 1, validated.Msg.Records[0].Repetitions)

	dates, err := handler.GetNextEligibleDates(ctx, connect.NewRequest(&NotebookRequest{UserID: "u1", NotebookID: "nb1"}))
	require.NoError(t, err)
	require.NotNil(t, dates.Msg.SmartStudy)
	assert.Nil(t, dates.Msg.FreeStudy)
}

func TestStudyHandler_AbandonAndComplete(t *testing.T) {
	handler := newTestHandler(t, testutil.Concepts(2))
	ctx := context.Background()

	started, err := handler.StartSession(ctx, connect.NewRequest(&StartSessionRequest{UserID: "u1", NotebookID: "nb1", Mode: "quiz"}))
	require.NoError(t, err)
	id := started.Msg.Session.ID

	_, err = handler.CompleteSession(ctx, connect.NewRequest(&CompleteSessionRequest{SessionID: id}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	_, err = handler.AbandonSession(ctx, connect.NewRequest(&AbandonSessionRequest{SessionID: id}))
	require.NoError(t, err)
	_, err = handler.AbandonSession(ctx, connect.NewRequest(&AbandonSessionRequest{SessionID: id}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestToConnectError(t *testing.T) {
	next := testNow.Add(15 * time.Hour)

	tests := []struct {
		name        string
		err         error
		wantCode    connect.Code
		wantDetails int
	}{
		{
			name:        "limit reached carries error info and retry info",
			err:         fmt.Errorf("start: %w", &study.LimitReachedError{Mode: session.ModeSmart, Reason: limits.ReasonDailyLimit, NextEligible: &next}),
			wantCode:    connect.CodeResourceExhausted,
			wantDetails: 2,
		},
		{
			name:        "limit reached without a date",
			err:         &study.LimitReachedError{Mode: session.ModeQuiz, Reason: limits.ReasonWeeklyLimit},
			wantCode:    connect.CodeResourceExhausted,
			wantDetails: 1,
		},
		{
			name:     "invalid request",
			err:      fmt.Errorf("%w: bad", study.ErrInvalidRequest),
			wantCode: connect.CodeInvalidArgument,
		},
		{
			name:        "invalid response",
			err:         session.ErrInvalidResponse,
			wantCode:    connect.CodeInvalidArgument,
			wantDetails: 1,
		},
		{
			name:     "session not found",
			err:      fmt.Errorf("session s1: %w", study.ErrSessionNotFound),
			wantCode: connect.CodeNotFound,
		},
		{
			name:     "notebook not found",
			err:      content.ErrNotebookNotFound,
			wantCode: connect.CodeNotFound,
		},
		{
			name:     "invalid transition",
			err:      session.ErrInvalidTransition,
			wantCode: connect.CodeFailedPrecondition,
		},
		{
			name:     "unknown concept",
			err:      session.ErrUnknownConcept,
			wantCode: connect.CodeFailedPrecondition,
		},
		{
			name:     "persistence failed",
			err:      fmt.Errorf("complete: %w: %w", study.ErrPersistenceFailed, errors.New("connection reset")),
			wantCode: connect.CodeUnavailable,
		},
		{
			name:     "anything else",
			err:      errors.New("boom"),
			wantCode: connect.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toConnectError(tt.err, testNow)
			assert.Equal(t, tt.wantCode, got.Code())
			assert.Len(t, got.Details(), tt.wantDetails)
		})
	}
}

func TestNewInvalidArgumentError(t *testing.T) {
	connectErr := newInvalidArgumentError("field_name", "field is required")

	assert.Equal(t, connect.CodeInvalidArgument, connectErr.Code())
	assert.Contains(t, connectErr.Message(), "field_name")
	assert.Greater(t, len(connectErr.Details()), 0)
}

func TestJSONCodec(t *testing.T) {
	codec := JSONCodec{}
	assert.Equal(t, "json", codec.Name())

	data, err := codec.Marshal(&NotebookRequest{UserID: "u1", NotebookID: "nb1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"u1","notebookId":"nb1"}`, string(data))

	var req NotebookRequest
	require.NoError(t, codec.Unmarshal(data, &req))
	assert.Equal(t, NotebookRequest{UserID: "u1", NotebookID: "nb1"}, req)
	require.NoError(t, codec.Unmarshal(nil, &req))
	assert.Error(t, codec.Unmarshal([]byte("{"), &req))
}
