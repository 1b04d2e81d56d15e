package archive

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wikimedia/contest-api/internal/audit"
	"github.com/wikimedia/contest-api/internal/types"
	"github.com/wikimedia/contest-api/internal/upload"
)

var tracer = otel.Tracer("github.com/wikimedia/contest-api/internal/archive")

var ErrEmptyFile = errors.New("tried to archive an empty file")

type FileMetadata struct {
	Buffer       []byte
	ArchivedFile types.ArchivedFile
	// Sniffed from the buffer when empty
	ContentType string
	Entity      audit.FileArchivedEntity
	EntityID    string
}

// Stores a file content addressed under a prefix named after its kind, audits the
// archival and returns the object key.
func ArchiveFile(
	ctx context.Context,
	auditContext audit.Context,
	u upload.Uploader,
	metadata *FileMetadata,
) (string, error) {
	ctx, span := tracer.Start(ctx, "ArchiveFile")
	defer span.End()

	if len(metadata.Buffer) == 0 {
		span.SetStatus(codes.Error, "can't archive an empty file")
		span.RecordError(ErrEmptyFile)
		return "", ErrEmptyFile
	}

	contentType := metadata.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(metadata.Buffer)
	}
	span.SetAttributes(
		attribute.String("file.kind", string(metadata.ArchivedFile)),
		attribute.String("file.content_type", contentType),
	)

	objectName, err := upload.Hashed(
		ctx,
		u,
		string(metadata.ArchivedFile),
		bytes.NewReader(metadata.Buffer),
		int64(len(metadata.Buffer)),
		contentType,
	)
	if err != nil {
		span.SetStatus(codes.Error, "failed to upload file")
		span.RecordError(err)
		return "", err
	}

	identifier, err := u.StoreIdentifier(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get identifier")
		return "", err
	}

	span.AddEvent("generating audit log message")
	audit.LogFileArchived(
		auditContext,
		identifier,
		objectName,
		metadata.ArchivedFile,
		metadata.Entity,
		metadata.EntityID,
	)

	span.SetStatus(codes.Ok, "archived file")
	return objectName, nil
}
