package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/wikimedia/contest-api/cmd/server/internal/models"
	"github.com/wikimedia/contest-api/internal/audit"
	"github.com/wikimedia/contest-api/internal/intake"
)

// Attempts at inserting a submission before giving up on unique code collisions
const uniqueCodeAttempts = 3

type SubmissionStore struct {
	db      *gorm.DB
	logger  *slog.Logger
	newCode func() (string, error)
	hooks   []SubmissionHook
}

func NewSubmissionStore(db *gorm.DB, logger *slog.Logger, hooks ...SubmissionHook) *SubmissionStore {
	return &SubmissionStore{
		db:      db,
		logger:  logger,
		newCode: intake.NewUniqueCode,
		hooks:   hooks,
	}
}

// Adds hooks run after every later Create, in registration order
func (s *SubmissionStore) Register(hooks ...SubmissionHook) {
	s.hooks = append(s.hooks, hooks...)
}

// Inserts a normalized submission mapped with `form` and runs the registered hooks.
//
// A unique code collision regenerates the code and title and retries. Hook failures are
// logged and never fail the creation.
func (s *SubmissionStore) Create(
	ctx context.Context,
	sub intake.Submission,
	form *models.Form,
	createdBy uuid.UUID,
) (*models.Submission, error) {
	ctx, span := tracer.Start(ctx, "SubmissionStore.Create", trace.WithAttributes(
		attribute.String("form.id", form.ID.String()),
		attribute.Int("form.version", form.Version),
		attribute.String("auth.id", createdBy.String()),
	))
	defer span.End()

	db := s.db.WithContext(ctx)

	var row *models.Submission
	for attempt := 1; ; attempt++ {
		if sub.UniqueCode == "" {
			if err := s.regenerate(&sub); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to generate unique code")
				return nil, err
			}
		}

		row = models.NewSubmission(sub, form, createdBy)

		span.AddEvent("inserting submission", trace.WithAttributes(
			attribute.Int("attempt", attempt),
		))
		err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(row).Error
		})
		if err == nil {
			break
		}

		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to insert submission")
			return nil, fmt.Errorf("failed to insert submission: %w", err)
		}

		s.logger.WarnContext(ctx, "unique code collision", "attempt", attempt)
		if attempt == uniqueCodeAttempts {
			span.RecordError(ErrUniqueCodeExhausted)
			span.SetStatus(codes.Error, "unique code attempts exhausted")
			return nil, ErrUniqueCodeExhausted
		}

		sub.UniqueCode = ""
	}

	submissionID := row.ID.String()
	span.SetAttributes(
		attribute.String("submission.id", submissionID),
		attribute.String("submission.unique_code", row.UniqueCode),
	)

	clientID := createdBy.String()
	formID := form.ID.String()
	audit.LogSubmissionCreated(
		audit.Context{ClientID: &clientID, FormID: &formID, SubmissionID: &submissionID},
		row.UniqueCode,
		row.Status,
		row.FormVersion,
		len(row.ContributingAuthors),
		row.AudioFile.Valid,
		row.AudioFileMeta != nil,
	)

	s.runHooks(ctx, row.Stored())

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "created submission")
	return row, nil
}

func (s *SubmissionStore) regenerate(sub *intake.Submission) error {
	code, err := s.newCode()
	if err != nil {
		return err
	}

	sub.UniqueCode = code
	sub.Title = intake.Title(code)
	return nil
}

func (s *SubmissionStore) runHooks(ctx context.Context, stored intake.Stored) {
	for _, hook := range s.hooks {
		s.runHook(ctx, hook, stored)
	}
}

func (s *SubmissionStore) runHook(ctx context.Context, hook SubmissionHook, stored intake.Stored) {
	ctx, span := tracer.Start(ctx, "SubmissionStore.runHook", trace.WithAttributes(
		attribute.String("hook", hook.Name()),
	))
	defer span.End()

	logger := s.logger.With("hook", hook.Name(), "submission_id", stored.ID.String())

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "submission hook panicked", "panic", r)
			span.SetStatus(codes.Error, "hook panicked")
		}
	}()

	if err := hook.SubmissionCreated(ctx, stored); err != nil {
		logger.ErrorContext(ctx, "submission hook failed", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "hook failed")
		return
	}

	span.SetStatus(codes.Ok, "")
}

func (s *SubmissionStore) Get(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	sub, err := models.ByID[models.Submission](ctx, s.db, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return sub, nil
}
