package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/wikimedia/contest-api/cmd/server/internal/models"
	"github.com/wikimedia/contest-api/internal/audit"
	"github.com/wikimedia/contest-api/internal/common"
	"github.com/wikimedia/contest-api/internal/screening"
	"github.com/wikimedia/contest-api/internal/types"
)

type ScreeningStore struct {
	db *gorm.DB
}

func NewScreeningStore(db *gorm.DB) *ScreeningStore {
	return &ScreeningStore{db: db}
}

// Appends a screening event. Unknown and repeated flags are dropped, an empty decision is
// stored as none. authID is nil for automated events.
func (s *ScreeningStore) Record(
	ctx context.Context,
	submissionID uuid.UUID,
	decision types.Decision,
	flags []types.FlagCode,
	author string,
	authID *uuid.UUID,
) (*models.ScreeningEvent, error) {
	ctx, span := tracer.Start(ctx, "ScreeningStore.Record", trace.WithAttributes(
		attribute.String("submission.id", submissionID.String()),
		attribute.String("screening.decision", string(decision)),
	))
	defer span.End()

	db := s.db.WithContext(ctx)

	known := screening.FilterFlags(flags)
	span.SetAttributes(attribute.StringSlice("screening.flags", common.SliceToStringSlice(known)))

	event := models.NewScreeningEvent(submissionID, decision, known, author, authID)

	span.AddEvent("inserting screening event")
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(event).Error
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission does not exist")
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert screening event")
		return nil, fmt.Errorf("failed to insert screening event: %w", err)
	}

	eventID := event.ID.String()
	subID := submissionID.String()
	span.SetAttributes(attribute.String("screening.event_id", eventID))

	audit.LogScreeningResult(
		audit.Context{ClientID: ptrString(authID), SubmissionID: &subID},
		eventID,
		event.Decision,
		[]types.FlagCode(event.Flags),
		event.Author,
	)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "recorded screening event")
	return event, nil
}

// Records a decision-less automated event
func (s *ScreeningStore) RecordFlags(
	ctx context.Context,
	submissionID uuid.UUID,
	flags []types.FlagCode,
	author string,
) error {
	_, err := s.Record(ctx, submissionID, types.DecisionNone, flags, author, nil)
	return err
}

// Full history of a submission, oldest first
func (s *ScreeningStore) Events(
	ctx context.Context,
	submissionID uuid.UUID,
) ([]models.ScreeningEvent, error) {
	ctx, span := tracer.Start(ctx, "ScreeningStore.Events", trace.WithAttributes(
		attribute.String("submission.id", submissionID.String()),
	))
	defer span.End()

	var events []models.ScreeningEvent
	err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at, id").
		Find(&events).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list screening events")
		return nil, fmt.Errorf("failed to list screening events: %w", err)
	}

	span.SetAttributes(attribute.Int("screening.event_count", len(events)))
	span.SetStatus(codes.Ok, "")
	return events, nil
}

// Current screening state, recomputed from the full history
func (s *ScreeningStore) Aggregate(
	ctx context.Context,
	submissionID uuid.UUID,
) (types.ScreeningAggregate, error) {
	events, err := s.Events(ctx, submissionID)
	if err != nil {
		return types.ScreeningAggregate{}, err
	}

	history := make([]screening.Event, len(events))
	for i := range events {
		history[i] = events[i].Event()
	}

	return screening.Aggregate(history), nil
}
