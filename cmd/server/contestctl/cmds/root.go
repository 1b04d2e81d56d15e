package cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/wikimedia/contest-api/cmd/server/internal/database"
	"github.com/wikimedia/contest-api/internal/config"
	"github.com/wikimedia/contest-api/internal/exiterror"
	"github.com/wikimedia/contest-api/internal/logger"
)

var tracer = otel.Tracer("github.com/wikimedia/contest-api/cmd/server/contestctl/cmds")

// Opens the database the commands work on. Replaced in tests.
var openDB = func(ctx context.Context) (*gorm.DB, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.LogLevel.Set(slog.Level(cfg.Logging.App.Level))

	return database.Open(ctx, cfg)
}

var closeDB = database.Close

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "contestctl",
		Short:         "Operate the contest API database and inspect screening",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newMigrateCmd(),
		newFlagsCmd(),
		newSubmissionCmd(),
		newScreeningCmd(),
	)

	return rootCmd
}

func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// Runs `fn` with an open database, closing it afterwards
func withDB(cmd *cobra.Command, fn func(ctx context.Context, db *gorm.DB) error) error {
	ctx := cmd.Context()

	db, err := openDB(ctx)
	if err != nil {
		return exiterror.Wrap(exiterror.CodeErrored, err)
	}
	defer func() {
		if err := closeDB(db); err != nil {
			logger.Logger.WarnContext(ctx, "failed to close database", "error", err)
		}
	}()

	return fn(ctx, db)
}

func parseSubmissionID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, exiterror.Wrap(
			exiterror.CodeErrored,
			fmt.Errorf("invalid submission id %q: %w", raw, err),
		)
	}

	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
