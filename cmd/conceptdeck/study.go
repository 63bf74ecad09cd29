package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/at-ishikawa/conceptdeck/internal/bootstrap"
	"github.com/at-ishikawa/conceptdeck/internal/cli"
	"github.com/at-ishikawa/conceptdeck/internal/config"
	"github.com/at-ishikawa/conceptdeck/internal/session"
	"github.com/at-ishikawa/conceptdeck/internal/study"
)

// runWithComponents loads the configuration and the study components, then calls fn.
// sqlite databases are migrated on the fly; mysql schemas are managed by the migrate command.
func runWithComponents(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, c *bootstrap.Components) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	components, err := bootstrap.NewComponents(ctx, cfg, cfg.Database.Driver == config.DriverSQLite, logger)
	if err != nil {
		return fmt.Errorf("bootstrap.NewComponents() > %w", err)
	}
	defer func() {
		if err := components.Close(ctx); err != nil {
			logger.Warn("close components", zap.Error(err))
		}
	}()

	return fn(ctx, cfg, components)
}

func newStudyCommand() *cobra.Command {
	var mode, intensity string
	command := &cobra.Command{
		Use:   "study <notebook-id>",
		Short: "Start an interactive study session on a notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedMode, err := session.ParseMode(mode)
			if err != nil {
				return err
			}
			var parsedIntensity session.Intensity
			if intensity != "" {
				if parsedIntensity, err = session.ParseIntensity(intensity); err != nil {
					return err
				}
			}

			return runWithComponents(cmd, func(ctx context.Context, cfg *config.Config, c *bootstrap.Components) error {
				started, err := c.Service.StartSession(ctx, study.StartRequest{
					UserID:     userID,
					NotebookID: args[0],
					Mode:       parsedMode,
					Intensity:  parsedIntensity,
				})
				var limitErr *study.LimitReachedError
				if errors.As(err, &limitErr) {
					fmt.Fprintln(cmd.OutOrStdout(), describeLimit(limitErr, cfg))
					return nil
				}
				if err != nil {
					return fmt.Errorf("service.StartSession() > %w", err)
				}
				if !started.Started {
					fmt.Fprintln(cmd.OutOrStdout(), started.Outcome.Err().Error())
					return nil
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Starting a %s session (%s) with %d concept(s)\n",
					started.Session.Mode, started.Session.ID, len(started.Batch))
				studyCLI := cli.NewStudyCLI(c.Service, started, cli.ValidationConfig{
					Questions: cfg.Study.ValidationQuestions,
					PassRatio: cfg.Study.ValidationPassRatio,
				}, cmd.InOrStdin(), cmd.OutOrStdout())
				return studyCLI.Run(ctx)
			})
		},
	}
	addSessionFlags(command.Flags(), &mode, &intensity)
	return command
}

func addSessionFlags(flags *pflag.FlagSet, mode, intensity *string) {
	flags.StringVarP(mode, "mode", "m", string(session.ModeSmart), "session mode: smart, free or quiz")
	flags.StringVarP(intensity, "intensity", "i", "", "batch intensity for smart and free sessions: warm_up, progress or rocket")
}

func describeLimit(err *study.LimitReachedError, cfg *config.Config) string {
	msg := fmt.Sprintf("%s sessions are not available right now (%s).", err.Mode, err.Reason)
	if err.NextEligible != nil {
		msg += fmt.Sprintf(" Come back on %s.", err.NextEligible.In(cfg.Study.Location()).Format("2006-01-02 15:04"))
	}
	return msg
}

func newAvailabilityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "availability <notebook-id>",
		Short: "Show which study sessions can start on a notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithComponents(cmd, func(ctx context.Context, cfg *config.Config, c *bootstrap.Components) error {
				availability, err := c.Service.GetAvailability(ctx, userID, args[0])
				if err != nil {
					return fmt.Errorf("service.GetAvailability() > %w", err)
				}
				cli.PrintAvailability(cmd.OutOrStdout(), args[0], availability, cfg.Study.Location())
				return nil
			})
		},
	}
}

func newValidateCommand() *cobra.Command {
	var passed bool
	var score float64
	command := &cobra.Command{
		Use:   "validate <session-id>",
		Short: "Submit the validation outcome of a smart session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithComponents(cmd, func(ctx context.Context, cfg *config.Config, c *bootstrap.Components) error {
				result, err := c.Service.SubmitValidation(ctx, args[0], passed, score)
				if err != nil {
					return fmt.Errorf("service.SubmitValidation() > %w", err)
				}
				if !result.Passed {
					fmt.Fprintf(cmd.OutOrStdout(), "Validation failed (score %.1f); the schedule is unchanged.\n", result.Score)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Validation passed (score %.1f); %d concept(s) scheduled.\n", result.Score, len(result.Records))
				for _, rec := range result.Records {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s: next review on %s\n", rec.ConceptID, rec.NextReviewDate.In(cfg.Study.Location()).Format("2006-01-02"))
				}
				return nil
			})
		},
	}
	command.Flags().BoolVar(&passed, "passed", false, "whether the validation passed")
	command.Flags().Float64Var(&score, "score", 0, "validation score between 0 and 10")
	return command
}
