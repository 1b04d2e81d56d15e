package cmds

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/wikimedia/contest-api/cmd/server/internal/store"
	"github.com/wikimedia/contest-api/internal/exiterror"
	"github.com/wikimedia/contest-api/internal/logger"
	"github.com/wikimedia/contest-api/internal/screening"
	"github.com/wikimedia/contest-api/internal/types"
)

func newScreeningCmd() *cobra.Command {
	screeningCmd := &cobra.Command{
		Use:   "screening",
		Short: "Inspect and append screening events",
	}

	screeningCmd.AddCommand(
		newScreeningShowCmd(),
		newScreeningEventsCmd(),
		newScreeningRecordCmd(),
		newScreeningRescreenCmd(),
	)
	return screeningCmd
}

// Submission must exist, the aggregate of an unknown id is indistinguishable from an empty one
func requireSubmission(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	_, err := store.NewSubmissionStore(db, logger.Logger).Get(ctx, id)
	if errors.Is(err, store.ErrSubmissionNotFound) {
		return exiterror.Wrap(exiterror.CodeNotFound, err)
	}

	return err
}

func newScreeningShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <submission id>",
		Short: "Print the aggregated screening state of a submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSubmissionID(args[0])
			if err != nil {
				return err
			}

			return withDB(cmd, func(ctx context.Context, db *gorm.DB) error {
				ctx, span := tracer.Start(ctx, "ScreeningShow")
				defer span.End()

				if err := requireSubmission(ctx, db, id); err != nil {
					return err
				}

				agg, err := store.NewScreeningStore(db).Aggregate(ctx, id)
				if err != nil {
					return err
				}

				return writeJSON(cmd.OutOrStdout(), agg)
			})
		},
	}
}

func newScreeningEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events <submission id>",
		Short: "Print the screening event history of a submission, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSubmissionID(args[0])
			if err != nil {
				return err
			}

			return withDB(cmd, func(ctx context.Context, db *gorm.DB) error {
				ctx, span := tracer.Start(ctx, "ScreeningEvents")
				defer span.End()

				if err := requireSubmission(ctx, db, id); err != nil {
					return err
				}

				events, err := store.NewScreeningStore(db).Events(ctx, id)
				if err != nil {
					return err
				}

				resp := types.ScreeningEventsResponse{
					Events: make([]types.ScreeningEventResponse, len(events)),
				}
				for i := range events {
					resp.Events[i] = events[i].Response()
				}

				return writeJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
}

func newScreeningRecordCmd() *cobra.Command {
	var (
		decision string
		flags    []string
		author   string
	)

	recordCmd := &cobra.Command{
		Use:   "record <submission id>",
		Short: "Append a screening event on behalf of a screener",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSubmissionID(args[0])
			if err != nil {
				return err
			}

			d := types.Decision(decision)
			switch d {
			case types.DecisionEligible, types.DecisionIneligible, types.DecisionNone:
			default:
				return fmt.Errorf("decision must be eligible, ineligible or none, got %q", decision)
			}

			known := screening.FilterFlags(flags)
			if dropped := len(flags) - len(known); dropped > 0 {
				logger.Logger.WarnContext(cmd.Context(), "dropping unknown or repeated flags",
					"given", flags, "kept", known)
			}

			return withDB(cmd, func(ctx context.Context, db *gorm.DB) error {
				ctx, span := tracer.Start(ctx, "ScreeningRecord")
				defer span.End()

				span.SetAttributes(
					attribute.String("submission.id", id.String()),
					attribute.String("screening.decision", decision),
				)

				event, err := store.NewScreeningStore(db).Record(ctx, id, d, known, author, nil)
				if errors.Is(err, store.ErrSubmissionNotFound) {
					return exiterror.Wrap(exiterror.CodeNotFound, err)
				} else if err != nil {
					return err
				}

				return writeJSON(cmd.OutOrStdout(), event.Response())
			})
		},
	}
	recordCmd.Flags().StringVar(&decision, "decision", string(types.DecisionNone),
		"eligible, ineligible or none")
	recordCmd.Flags().StringSliceVar(&flags, "flag", nil, "Flag code, may be repeated")
	recordCmd.Flags().StringVar(&author, "author", "", "Screener name recorded on the event")
	if err := recordCmd.MarkFlagRequired("author"); err != nil {
		panic("Internal error contact a contributor [author-flag-required]")
	}

	return recordCmd
}

// Appended to the author of rescreen events so they stay apart from the intake-time event
const rescreenAuthorSuffix = " (rescreen)"

func newScreeningRescreenCmd() *cobra.Command {
	var author string

	rescreenCmd := &cobra.Command{
		Use:   "rescreen <submission id>",
		Short: "Run automated screening again on the stored audio meta of a submission",
		Long: `Run automated screening again on the stored audio meta of a submission.

Intake screens every submission once. A rescreen appends one more decision-less event
with the flags produced now, its author tagged "(rescreen)". Earlier events are never
changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSubmissionID(args[0])
			if err != nil {
				return err
			}

			return withDB(cmd, func(ctx context.Context, db *gorm.DB) error {
				ctx, span := tracer.Start(ctx, "ScreeningRescreen")
				defer span.End()

				sub, err := store.NewSubmissionStore(db, logger.Logger).Get(ctx, id)
				if errors.Is(err, store.ErrSubmissionNotFound) {
					return exiterror.Wrap(exiterror.CodeNotFound, err)
				} else if err != nil {
					return err
				}

				screenings := store.NewScreeningStore(db)
				hook := screening.NewAutomatedHook(
					screenings,
					author+rescreenAuthorSuffix,
					logger.Logger,
				)
				if err := hook.SubmissionCreated(ctx, sub.Stored()); err != nil {
					return err
				}

				agg, err := screenings.Aggregate(ctx, id)
				if err != nil {
					return err
				}

				return writeJSON(cmd.OutOrStdout(), agg)
			})
		},
	}
	rescreenCmd.Flags().StringVar(&author, "author", "Contest", "Author of the automated event")

	return rescreenCmd
}
