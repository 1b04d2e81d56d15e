package queue

import (
	"context"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/wikimedia/contest-api/internal/queue")

//go:generate mockgen -destination ./mock/mock.go -package mock . Queuer

// Outbound message queue for downstream consumers
type Queuer interface {
	// Serializes `message` as JSON and enqueues it. May block while queuing.
	Enqueue(ctx context.Context, message any) error
}
