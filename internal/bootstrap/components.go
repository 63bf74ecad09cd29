package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/at-ishikawa/conceptdeck/internal/config"
	"github.com/at-ishikawa/conceptdeck/internal/content"
	"github.com/at-ishikawa/conceptdeck/internal/database"
	"github.com/at-ishikawa/conceptdeck/internal/learning"
	"github.com/at-ishikawa/conceptdeck/internal/limits"
	"github.com/at-ishikawa/conceptdeck/internal/logging"
	"github.com/at-ishikawa/conceptdeck/internal/session"
	"github.com/at-ishikawa/conceptdeck/internal/study"
	"github.com/at-ishikawa/conceptdeck/schemas"
)

// Components holds everything a command needs to run study sessions.
type Components struct {
	DB       *sqlx.DB
	Provider content.Provider
	Service  *study.Service
}

// NewComponents opens the database, applies the embedded migrations when migrate is set,
// and builds the study service on the configured content source.
func NewComponents(ctx context.Context, cfg *config.Config, migrate bool, logger *zap.Logger) (*Components, error) {
	logger = logging.OrNop(logger)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database.Open() > %w", err)
	}
	if migrate {
		if err := database.Migrate(ctx, db, schemas.Migrations); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("database.Migrate() > %w", err)
		}
	}

	provider, err := NewProvider(cfg.Content, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	service := study.NewService(
		provider,
		learning.NewDBStore(db),
		limits.NewDBStore(db),
		session.NewDBStore(db),
		study.OptionsFromConfig(cfg.Study),
		logger,
	)
	logger.Debug("components ready",
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("content_source", cfg.Content.Source),
	)

	return &Components{
		DB:       db,
		Provider: provider,
		Service:  service,
	}, nil
}

// NewProvider returns the content provider for the configured source.
func NewProvider(cfg config.ContentConfig, db *sqlx.DB) (content.Provider, error) {
	switch cfg.Source {
	case config.ContentSourceYAML, "":
		return content.NewYAMLProvider(cfg.NotebooksDirectory), nil
	case config.ContentSourceDatabase:
		return content.NewDBProvider(db), nil
	default:
		return nil, fmt.Errorf("unsupported content source %q", cfg.Source)
	}
}

// Close releases the database. It matches the shutdown hook signature.
func (c *Components) Close(_ context.Context) error {
	if err := c.DB.Close(); err != nil {
		return fmt.Errorf("db.Close() > %w", err)
	}
	return nil
}
