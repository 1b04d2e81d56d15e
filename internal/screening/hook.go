package screening

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wikimedia/contest-api/internal/intake"
	"github.com/wikimedia/contest-api/internal/types"
)

var tracer = otel.Tracer("github.com/wikimedia/contest-api/internal/screening")

// Appends a decision-less screening event
type Recorder interface {
	RecordFlags(
		ctx context.Context,
		submissionID uuid.UUID,
		flags []types.FlagCode,
		author string,
	) error
}

// Screens every newly stored submission with Evaluate and records the produced flags
type AutomatedHook struct {
	recorder Recorder
	author   string
	logger   *slog.Logger
}

func NewAutomatedHook(recorder Recorder, author string, logger *slog.Logger) *AutomatedHook {
	return &AutomatedHook{recorder: recorder, author: author, logger: logger}
}

func (h *AutomatedHook) Name() string {
	return "automated_screening"
}

// Never fails the intake: evaluation problems degrade to no flags
func (h *AutomatedHook) SubmissionCreated(ctx context.Context, stored intake.Stored) error {
	ctx, span := tracer.Start(ctx, "AutomatedHook.SubmissionCreated")
	defer span.End()

	span.SetAttributes(attribute.String("submission.id", stored.ID.String()))
	logger := h.logger.With("submission_id", stored.ID.String())

	flags := h.evaluate(stored.Submission.AudioFileMeta, logger)
	span.SetAttributes(attribute.Int("screening.flag_count", len(flags)))

	if len(flags) == 0 {
		span.AddEvent("no flags produced")
		span.SetStatus(codes.Ok, "")
		return nil
	}

	span.AddEvent("recording automated flags")
	if err := h.recorder.RecordFlags(ctx, stored.ID, flags, h.author); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to record automated flags")
		return fmt.Errorf("failed to record automated flags: %w", err)
	}

	logger.InfoContext(ctx, "recorded automated screening flags", "flags", flags)
	span.SetStatus(codes.Ok, "")
	return nil
}

func (h *AutomatedHook) evaluate(meta *types.AudioFileMeta, logger *slog.Logger) (flags []types.FlagCode) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("automated screening panicked", "panic", r)
			flags = []types.FlagCode{}
		}
	}()

	return Evaluate(meta)
}
