package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/at-ishikawa/conceptdeck/internal/content"
	"github.com/at-ishikawa/conceptdeck/internal/session"
	"github.com/at-ishikawa/conceptdeck/internal/study"
)

//go:generate mockgen -source=study_cli.go -destination=../mocks/cli/mock_service.go -package=mock_cli Service

// Service is the part of the study service a terminal session drives.
type Service interface {
	RecordResponse(ctx context.Context, sessionID, conceptID string, response session.Response) (*study.Progress, error)
	CompleteSession(ctx context.Context, sessionID string) (*study.Summary, error)
	SubmitValidation(ctx context.Context, sessionID string, passed bool, score float64) (*study.ValidationResult, error)
	AbandonSession(sessionID string) error
}

// ValidationConfig shapes the self-check quiz that closes a SMART session.
type ValidationConfig struct {
	Questions int
	PassRatio float64
}

// StudyCLI walks the learner through one started session, one concept per Session call.
type StudyCLI struct {
	*InteractiveCLI
	service    Service
	session    session.Session
	batch      []content.Concept
	remaining  []content.Concept
	pass       int
	validation ValidationConfig
	rand       *rand.Rand
	elapsed    *elapsedTicker
}

// NewStudyCLI creates a StudyCLI for a started session. in and out default to the process's stdin and stdout.
func NewStudyCLI(service Service, started *study.StartResult, validation ValidationConfig, in io.Reader, out io.Writer) *StudyCLI {
	return &StudyCLI{
		InteractiveCLI: newInteractiveCLI(in, out),
		service:        service,
		session:        started.Session,
		batch:          started.Batch,
		remaining:      started.Batch,
		pass:           1,
		validation:     validation,
		rand:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run starts the elapsed time ticker and runs the session to its end.
func (c *StudyCLI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.elapsed = startElapsedTicker(ctx, c.session.StartTime, time.Second)

	return c.InteractiveCLI.Run(ctx, c)
}

func (c *StudyCLI) Session(ctx context.Context) error {
	if len(c.remaining) == 0 {
		return errEnd
	}
	concept := c.remaining[0]

	fmt.Fprintf(c.stdoutWriter, "\n[%s] pass %d, %d left\n", formatElapsed(c.elapsed.Elapsed()), c.pass, len(c.remaining))
	_, _ = c.bold.Fprintf(c.stdoutWriter, "%s\n", concept.Term)
	fmt.Fprint(c.stdoutWriter, "Press Enter to see the definition (q to quit): ")
	input, err := c.readLine()
	if err != nil {
		return err
	}
	if input == "q" {
		return c.quit()
	}

	_, _ = c.italic.Fprintf(c.stdoutWriter, "%s\n", concept.Definition)
	answer, err := c.ask("Did you master it? [y/n/q]: ", "y", "n", "q")
	if err != nil {
		return err
	}
	response := session.ResponseMastered
	switch answer {
	case "q":
		return c.quit()
	case "n":
		response = session.ResponseReviewLater
	}

	progress, err := c.service.RecordResponse(ctx, c.session.ID, concept.ID, response)
	if errors.Is(err, study.ErrPersistenceFailed) {
		summary, err := c.retryCompletion(ctx, err)
		if err != nil {
			return err
		}
		return c.finish(ctx, summary)
	}
	if err != nil {
		return fmt.Errorf("service.RecordResponse() > %w", err)
	}

	if progress.Pass > c.pass {
		_, _ = c.bold.Fprintf(c.stdoutWriter, "\nReviewing %d concept(s) again\n", len(progress.Remaining))
	}
	c.pass = progress.Pass
	c.remaining = progress.Remaining
	if progress.Summary != nil {
		return c.finish(ctx, progress.Summary)
	}
	return nil
}

func (c *StudyCLI) quit() error {
	if err := c.service.AbandonSession(c.session.ID); err != nil {
		return fmt.Errorf("service.AbandonSession() > %w", err)
	}
	fmt.Fprintln(c.stdoutWriter, "Session abandoned.")
	return errEnd
}

func (c *StudyCLI) retryCompletion(ctx context.Context, cause error) (*study.Summary, error) {
	for {
		_, _ = c.red.Fprintf(c.stdoutWriter, "Saving the session failed: %v\n", cause)
		answer, err := c.ask("Retry? [y/n]: ", "y", "n")
		if err != nil {
			return nil, err
		}
		if answer == "n" {
			return nil, cause
		}

		summary, err := c.service.CompleteSession(ctx, c.session.ID)
		if err == nil {
			return summary, nil
		}
		if !errors.Is(err, study.ErrPersistenceFailed) {
			return nil, fmt.Errorf("service.CompleteSession() > %w", err)
		}
		cause = err
	}
}

func (c *StudyCLI) finish(ctx context.Context, summary *study.Summary) error {
	printSummary(c.InteractiveCLI, summary)
	if !summary.AwaitingValidation {
		return errEnd
	}
	if err := c.validate(ctx); err != nil {
		return err
	}
	return errEnd
}

func printSummary(cli *InteractiveCLI, summary *study.Summary) {
	m := summary.Metrics
	_, _ = cli.bold.Fprintln(cli.stdoutWriter, "\nSession complete")
	fmt.Fprintf(cli.stdoutWriter, "  concepts:  %d\n", m.TotalConcepts)
	fmt.Fprintf(cli.stdoutWriter, "  responses: %d (%d mastered, %d to review)\n", m.ConceptsReviewed, m.Mastered, m.Reviewing)
	fmt.Fprintf(cli.stdoutWriter, "  time:      %s\n", formatElapsed(time.Duration(m.TimeSpent)*time.Second))
	if m.MasteredFinal != nil && m.NotMasteredFinal != nil {
		fmt.Fprintf(cli.stdoutWriter, "  mastered:  %d, not mastered: %d\n", *m.MasteredFinal, *m.NotMasteredFinal)
	}

	switch summary.Mode {
	case session.ModeFree:
		if summary.Valid != nil && *summary.Valid {
			_, _ = cli.green.Fprintf(cli.stdoutWriter, "  valid study session, score multiplier x%.1f\n", summary.ScoreMultiplier)
		} else {
			_, _ = cli.red.Fprintln(cli.stdoutWriter, "  too short to count as a study session")
		}
	case session.ModeQuiz:
		if summary.QuizScore != nil {
			fmt.Fprintf(cli.stdoutWriter, "  quiz score: %.1f / 10\n", *summary.QuizScore)
		}
	}
}

// validate runs the self-check quiz: the learner types the term of a few definitions from the batch.
func (c *StudyCLI) validate(ctx context.Context) error {
	questions := pickQuestions(c.batch, c.validation.Questions, c.rand)
	_, _ = c.bold.Fprintf(c.stdoutWriter, "\nValidation: name the term for %d definition(s)\n", len(questions))

	correct := 0
	for i, q := range questions {
		fmt.Fprintf(c.stdoutWriter, "(%d/%d) ", i+1, len(questions))
		_, _ = c.italic.Fprintf(c.stdoutWriter, "%s\n", q.Definition)
		fmt.Fprint(c.stdoutWriter, "Term: ")
		answer, err := c.readLine()
		if err != nil {
			return err
		}
		if gradeAnswer(q.Term, answer) {
			fmt.Fprint(c.stdoutWriter, "✅ ")
			_, _ = c.green.Fprintln(c.stdoutWriter, "It's correct.")
			correct++
		} else {
			fmt.Fprint(c.stdoutWriter, "❌ ")
			_, _ = c.red.Fprintf(c.stdoutWriter, "It's wrong. The answer is %s\n", q.Term)
		}
	}

	passed, score := ValidationOutcome(correct, len(questions), c.validation.PassRatio)
	result, err := c.service.SubmitValidation(ctx, c.session.ID, passed, score)
	if err != nil {
		return fmt.Errorf("service.SubmitValidation() > %w", err)
	}

	if !result.Passed {
		_, _ = c.red.Fprintf(c.stdoutWriter, "\nValidation failed (score %.1f). Your schedule is unchanged; try again tomorrow.\n", result.Score)
		return nil
	}
	_, _ = c.green.Fprintf(c.stdoutWriter, "\nValidation passed (score %.1f). %d concept(s) scheduled:\n", result.Score, len(result.Records))
	terms := content.IndexByID(c.batch)
	for _, rec := range result.Records {
		term := rec.ConceptID
		if concept, ok := terms[rec.ConceptID]; ok && concept.Term != "" {
			term = concept.Term
		}
		fmt.Fprintf(c.stdoutWriter, "  %s: next review on %s\n", term, rec.NextReviewDate.Format("2006-01-02"))
	}
	return nil
}

// elapsedTicker samples the time spent in a session on a fixed cadence.
type elapsedTicker struct {
	seconds atomic.Int64
}

func startElapsedTicker(ctx context.Context, start time.Time, interval time.Duration) *elapsedTicker {
	t := &elapsedTicker{}
	sample := func(now time.Time) {
		if now.After(start) {
			t.seconds.Store(int64(now.Sub(start) / time.Second))
		}
	}
	sample(time.Now())

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				sample(now)
			}
		}
	}()
	return t
}

func (t *elapsedTicker) Elapsed() time.Duration {
	if t == nil {
		return 0
	}
	return time.Duration(t.seconds.Load()) * time.Second
}

func formatElapsed(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
