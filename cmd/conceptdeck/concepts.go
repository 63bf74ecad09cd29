package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/at-ishikawa/conceptdeck/internal/bootstrap"
	"github.com/at-ishikawa/conceptdeck/internal/config"
	"github.com/at-ishikawa/conceptdeck/internal/content"
	"github.com/at-ishikawa/conceptdeck/internal/database"
	"github.com/at-ishikawa/conceptdeck/schemas"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}

			db, err := database.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("database.Open() > %w", err)
			}
			defer func() {
				_ = db.Close()
			}()
			if err := database.Migrate(cmd.Context(), db, schemas.Migrations); err != nil {
				return fmt.Errorf("database.Migrate() > %w", err)
			}
			logger.Info("schema applied", zap.String("driver", cfg.Database.Driver))
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	}
}

func newConceptsCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "concepts",
		Short: "Inspect and import notebook concepts",
	}
	command.AddCommand(newConceptsListCommand(), newConceptsImportCommand())
	return command
}

func newConceptsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <notebook-id>",
		Short: "List the concepts of a notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithComponents(cmd, func(ctx context.Context, cfg *config.Config, c *bootstrap.Components) error {
				concepts, err := c.Provider.ListConcepts(ctx, args[0])
				if err != nil {
					return fmt.Errorf("provider.ListConcepts() > %w", err)
				}
				for _, concept := range concepts {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", concept.ID, concept.Term)
				}
				return nil
			})
		},
	}
}

func newConceptsImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <notebook-file>...",
		Short: "Import notebook YAML files into the database content source",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithComponents(cmd, func(ctx context.Context, cfg *config.Config, c *bootstrap.Components) error {
				provider := content.NewDBProvider(c.DB)
				for _, path := range args {
					nb, err := content.ReadNotebookFile(path)
					if err != nil {
						return err
					}
					if nb.ID == "" {
						nb.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
					}
					if err := provider.ImportNotebook(ctx, nb); err != nil {
						return fmt.Errorf("provider.ImportNotebook(%s) > %w", nb.ID, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Imported %d concept(s) into %s\n", len(nb.Concepts), nb.ID)
				}
				return nil
			})
		},
	}
}
