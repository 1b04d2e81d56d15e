package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wikimedia/contest-api/internal/hash"
)

var tracer = otel.Tracer("github.com/wikimedia/contest-api/internal/upload")

var ErrLengthMismatch = errors.New("reader length does not match declared length")

//go:generate mockgen -destination ./mock/mock.go -package mock . Uploader

// Object storage for submitted files
type Uploader interface {
	// Create / Overwrite the object at `key`
	Upload(ctx context.Context, reader io.ReadSeeker, length int64, key string, contentType string) error
	// Check if an object exists (focused on preventing uploading the same file multiple times not authoritative existence)
	//
	// May always return false
	Exists(ctx context.Context, key string) (bool, error)
	// Bucket or container objects are written to, for logging and auditing
	StoreIdentifier(ctx context.Context) (string, error)
	// Anonymous, readonly, internet accessible URL for downloading the object
	PresignedReadURL(ctx context.Context, key string, duration time.Duration) (string, error)
}

// Stores `reader` under `prefix/<sha256 of contents>` and returns that key.
//
// Seeks to 0 before hashing and uploading, skips the upload when the key already exists.
func Hashed(
	ctx context.Context,
	u Uploader,
	prefix string,
	reader io.ReadSeeker,
	length int64,
	contentType string,
) (string, error) {
	ctx, span := tracer.Start(ctx, "UploadHashed", trace.WithAttributes(
		attribute.String("prefix", prefix),
		attribute.Int64("length", length),
		attribute.String("content_type", contentType),
	))
	defer span.End()

	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to seek to start")
		return "", err
	}

	sum, n, err := hash.Reader(ctx, reader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to hash reader")
		return "", err
	}
	if n != length {
		err = fmt.Errorf("%w: read %d, declared %d", ErrLengthMismatch, n, length)
		span.RecordError(err)
		span.SetStatus(codes.Error, "length mismatch")
		return "", err
	}

	key := path.Join(prefix, sum)
	span.SetAttributes(attribute.String("key", key))

	exists, err := u.Exists(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check if object exists")
		return "", err
	}

	if exists {
		span.SetStatus(codes.Ok, "found existing object")
		return key, nil
	}

	if _, err = reader.Seek(0, io.SeekStart); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to seek to start")
		return "", err
	}

	if err = u.Upload(ctx, reader, length, key, contentType); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload object")
		return "", err
	}

	span.SetStatus(codes.Ok, "uploaded object by hash")
	return key, nil
}
