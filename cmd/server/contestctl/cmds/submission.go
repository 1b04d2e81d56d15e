package cmds

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/wikimedia/contest-api/cmd/server/internal/store"
	"github.com/wikimedia/contest-api/internal/exiterror"
	"github.com/wikimedia/contest-api/internal/logger"
)

func newSubmissionCmd() *cobra.Command {
	submissionCmd := &cobra.Command{
		Use:   "submission",
		Short: "Inspect stored submissions",
	}

	showCmd := &cobra.Command{
		Use:   "show <submission id>",
		Short: "Print a stored submission as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSubmissionID(args[0])
			if err != nil {
				return err
			}

			return withDB(cmd, func(ctx context.Context, db *gorm.DB) error {
				ctx, span := tracer.Start(ctx, "SubmissionShow")
				defer span.End()

				sub, err := store.NewSubmissionStore(db, logger.Logger).Get(ctx, id)
				if errors.Is(err, store.ErrSubmissionNotFound) {
					return exiterror.Wrap(exiterror.CodeNotFound, err)
				} else if err != nil {
					return err
				}

				return writeJSON(cmd.OutOrStdout(), sub.Response())
			})
		},
	}

	submissionCmd.AddCommand(showCmd)
	return submissionCmd
}
