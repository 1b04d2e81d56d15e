package store

import (
	"context"
	"fmt"

	"github.com/wikimedia/contest-api/internal/intake"
	"github.com/wikimedia/contest-api/internal/queue"
	"github.com/wikimedia/contest-api/internal/types"
)

// Publishes every created submission on the notification queue
type NotifyHook struct {
	queuer queue.Queuer
}

func NewNotifyHook(queuer queue.Queuer) *NotifyHook {
	return &NotifyHook{queuer: queuer}
}

func (h *NotifyHook) Name() string {
	return "notify"
}

func (h *NotifyHook) SubmissionCreated(ctx context.Context, stored intake.Stored) error {
	msg := types.SubmissionCreatedMessage{
		SubmissionID: stored.ID.String(),
		FormID:       stored.FormID.String(),
		UniqueCode:   stored.Submission.UniqueCode,
		AudioFile:    stored.Submission.AudioFile,
		AudioMeta:    stored.Submission.AudioFileMeta,
	}

	if err := h.queuer.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("failed to enqueue submission notification: %w", err)
	}

	return nil
}
