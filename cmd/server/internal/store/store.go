// Package store persists submissions and screening events on top of the models package.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/wikimedia/contest-api/internal/intake"
)

var tracer = otel.Tracer("github.com/wikimedia/contest-api/cmd/server/internal/store")

var (
	ErrUniqueCodeExhausted = errors.New("could not allocate a unique submission code")
	ErrSubmissionNotFound  = errors.New("submission not found")
)

// Observer notified after a submission is committed
type SubmissionHook interface {
	Name() string
	SubmissionCreated(ctx context.Context, stored intake.Stored) error
}

func ptrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}

	s := id.String()
	return &s
}
