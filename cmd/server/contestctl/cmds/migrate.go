package cmds

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/wikimedia/contest-api/cmd/server/internal/migrations"
)

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(ctx context.Context, db *gorm.DB) error {
				if err := migrations.Up(ctx, db); err != nil {
					return err
				}

				return printVersion(ctx, cmd, db)
			})
		},
	}

	var confirmed bool
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration, dropping all contest data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return fmt.Errorf("refusing to drop all data without --yes")
			}

			return withDB(cmd, func(ctx context.Context, db *gorm.DB) error {
				if err := migrations.Down(ctx, db); err != nil {
					return err
				}

				return printVersion(ctx, cmd, db)
			})
		},
	}
	downCmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm dropping all data")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(ctx context.Context, db *gorm.DB) error {
				return printVersion(ctx, cmd, db)
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Log the applied state of every migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, migrations.Status)
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, versionCmd, statusCmd)
	return migrateCmd
}

func printVersion(ctx context.Context, cmd *cobra.Command, db *gorm.DB) error {
	version, err := migrations.Version(ctx, db)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
	return err
}
