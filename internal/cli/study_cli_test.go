package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/at-ishikawa/conceptdeck/internal/content"
	"github.com/at-ishikawa/conceptdeck/internal/learning"
	"github.com/at-ishikawa/conceptdeck/internal/limits"
	mock_cli "github.com/at-ishikawa/conceptdeck/internal/mocks/cli"
	"github.com/at-ishikawa/conceptdeck/internal/session"
	"github.com/at-ishikawa/conceptdeck/internal/study"
	"github.com/at-ishikawa/conceptdeck/internal/testutil"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, concepts []content.Concept) *study.Service {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	dir := filepath.Join(t.TempDir(), "notebooks")
	testutil.CreateNotebook(t, dir, "nb1", concepts)

	return study.NewService(
		content.NewYAMLProvider(dir),
		learning.NewDBStore(db),
		limits.NewDBStore(db),
		session.NewDBStore(db),
		study.Options{
			Location: time.UTC,
			Now: func() time.Time {
				return testNow
			},
			Seed: 1,
		},
		nil,
	)
}

func startSession(t *testing.T, service *study.Service, mode session.Mode) *study.StartResult {
	t.Helper()

	started, err := service.StartSession(context.Background(), study.StartRequest{
		UserID:     "u1",
		NotebookID: "nb1",
		Mode:       mode,
	})
	require.NoError(t, err)
	require.True(t, started.Started)
	return started
}

func TestStudyCLI_Run(t *testing.T) {
	tests := []struct {
		name        string
		mode        session.Mode
		input       string
		wantOutput  []string
		wantAbandon bool
	}{
		{
			name: "smart session repeats a concept and passes validation",
			mode: session.ModeSmart,
			// review later, then mastered in the second pass, then the validation answer
			input: "\nn\n\ny\nterm-c01\n",
			wantOutput: []string{
				"term-c01",
				"definition of c01",
				"Reviewing 1 concept(s) again",
				"Session complete",
				"It's correct.",
				"Validation passed (score 10.0). 1 concept(s) scheduled:",
				"term-c01: next review on 2025-03-11",
			},
		},
		{
			name:  "smart session with a wrong validation answer keeps the schedule",
			mode:  session.ModeSmart,
			input: "\ny\nsomething else\n",
			wantOutput: []string{
				"It's wrong. The answer is term-c01",
				"Validation failed (score 0.0)",
			},
		},
		{
			name:  "free session reports it was too short",
			mode:  session.ModeFree,
			input: "\ny\n",
			wantOutput: []string{
				"Session complete",
				"too short to count as a study session",
			},
		},
		{
			name:  "quiz session prints the score",
			mode:  session.ModeQuiz,
			input: "\nmaybe\nn\n\ny\n",
			wantOutput: []string{
				"Please answer one of y/n/q",
				"quiz score: 0.0 / 10",
			},
		},
		{
			name:        "q abandons the session",
			mode:        session.ModeSmart,
			input:       "q\n",
			wantOutput:  []string{"Session abandoned."},
			wantAbandon: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestService(t, testutil.Concepts(1))
			started := startSession(t, service, tt.mode)

			var out bytes.Buffer
			c := NewStudyCLI(service, started, ValidationConfig{Questions: 3, PassRatio: 0.8}, strings.NewReader(tt.input), &out)
			require.NoError(t, c.Run(context.Background()))

			for _, want := range tt.wantOutput {
				assert.Contains(t, out.String(), want)
			}
			if tt.wantAbandon {
				assert.ErrorIs(t, service.AbandonSession(started.Session.ID), study.ErrSessionNotFound)
			}
		})
	}
}

func TestStudyCLI_Run_RetriesCompletion(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mock_cli.NewMockService(ctrl)

	started := &study.StartResult{
		Started: true,
		Session: session.Session{ID: "s1", Mode: session.ModeFree, StartTime: time.Now()},
		Batch:   testutil.Concepts(1),
	}
	valid := true
	summary := &study.Summary{
		SessionID:       "s1",
		Mode:            session.ModeFree,
		Metrics:         session.Metrics{TotalConcepts: 1, ConceptsReviewed: 1, Mastered: 1, TimeSpent: 75},
		Valid:           &valid,
		ScoreMultiplier: 1.5,
	}
	writeErr := errors.Join(study.ErrPersistenceFailed, errors.New("database is locked"))

	gomock.InOrder(
		service.EXPECT().RecordResponse(gomock.Any(), "s1", "c01", session.ResponseMastered).Return(nil, writeErr),
		service.EXPECT().CompleteSession(gomock.Any(), "s1").Return(nil, writeErr),
		service.EXPECT().CompleteSession(gomock.Any(), "s1").Return(summary, nil),
	)

	var out bytes.Buffer
	c := NewStudyCLI(service, started, ValidationConfig{Questions: 1, PassRatio: 1}, strings.NewReader("\ny\ny\ny\n"), &out)
	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, 2, strings.Count(out.String(), "Saving the session failed"))
	assert.Contains(t, out.String(), "time:      01:15")
	assert.Contains(t, out.String(), "valid study session, score multiplier x1.5")
}

func TestStudyCLI_Run_GivesUpOnCompletion(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mock_cli.NewMockService(ctrl)

	started := &study.StartResult{
		Started: true,
		Session: session.Session{ID: "s1", Mode: session.ModeQuiz, StartTime: time.Now()},
		Batch:   testutil.Concepts(1),
	}
	service.EXPECT().RecordResponse(gomock.Any(), "s1", "c01", session.ResponseReviewLater).
		Return(nil, study.ErrPersistenceFailed)

	var out bytes.Buffer
	c := NewStudyCLI(service, started, ValidationConfig{}, strings.NewReader("\nn\nn\n"), &out)
	err := c.Run(context.Background())
	assert.ErrorIs(t, err, study.ErrPersistenceFailed)
}

func TestStudyCLI_Run_PropagatesServiceErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mock_cli.NewMockService(ctrl)

	started := &study.StartResult{
		Started: true,
		Session: session.Session{ID: "s1", Mode: session.ModeSmart, StartTime: time.Now()},
		Batch:   testutil.Concepts(2),
	}
	service.EXPECT().RecordResponse(gomock.Any(), "s1", "c01", session.ResponseMastered).
		Return(nil, session.ErrInvalidTransition)

	var out bytes.Buffer
	c := NewStudyCLI(service, started, ValidationConfig{}, strings.NewReader("\ny\n"), &out)
	err := c.Run(context.Background())
	assert.ErrorIs(t, err, session.ErrInvalidTransition)
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{59 * time.Second, "00:59"},
		{61*time.Second + 500*time.Millisecond, "01:01"},
		{75 * time.Minute, "75:00"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatElapsed(tt.d))
		})
	}
}

func TestElapsedTicker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := startElapsedTicker(ctx, time.Now().Add(-90*time.Second), time.Hour)
	assert.Equal(t, 90*time.Second, ticker.Elapsed().Round(time.Second))

	future := startElapsedTicker(ctx, time.Now().Add(time.Hour), time.Hour)
	assert.Zero(t, future.Elapsed())

	var unset *elapsedTicker
	assert.Zero(t, unset.Elapsed())
}
