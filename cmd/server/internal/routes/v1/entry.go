package v1

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	srverr "github.com/wikimedia/contest-api/cmd/server/internal/error"
	"github.com/wikimedia/contest-api/cmd/server/internal/models"
	"github.com/wikimedia/contest-api/cmd/server/internal/response"
	"github.com/wikimedia/contest-api/internal/archive"
	"github.com/wikimedia/contest-api/internal/audit"
	"github.com/wikimedia/contest-api/internal/intake"
	"github.com/wikimedia/contest-api/internal/logger"
	"github.com/wikimedia/contest-api/internal/types"
	"github.com/wikimedia/contest-api/internal/validator"
)

// Maps a form platform entry through the current form schema, normalizes it and stores it
// as a draft submission. Automated screening runs as a hook of the submission store.
func (h *Handler) SubmitEntry(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "SubmitEntry")
	defer span.End()

	span.AddEvent("received entry")

	auth, ok := c.Get("auth").(*models.Auth)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("auth: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	form, ok := c.Get("form").(*models.Form)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("form: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	requestTime, ok := c.Get("time").(time.Time)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("time: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	clientID := auth.ID.String()
	formID := form.ID.String()

	span.SetAttributes(
		attribute.String("auth.note", auth.Note),
		attribute.String("auth.id", clientID),
		attribute.String("form.id", formID),
		attribute.Int("form.version", form.Version),
		attribute.Int64("request.timestamp_ms", requestTime.UnixMilli()),
	)

	type requestData struct {
		types.EntrySubmission
	}
	var rdata requestData

	span.AddEvent("parsing request body")
	err := c.Bind(&rdata)
	if err != nil {
		span.SetStatus(codes.Ok, "failed to parse request data")
		span.RecordError(err)
		return echo.NewHTTPError(
			http.StatusBadRequest,
			types.StringError("failed to parse request data"),
		)
	}

	span.AddEvent("validating request body")
	err = c.Validate(rdata)
	if err != nil {
		span.SetStatus(codes.Ok, "failed to validate request data")
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusBadRequest, types.ValidationError(err))
	}

	var audio []byte
	if rdata.Audio != nil {
		span.AddEvent("validating audio is within size limit")
		if !validator.ValidateAudioSize(len(*rdata.Audio)) {
			span.SetStatus(codes.Ok, "audio was too large")
			span.RecordError(nil)
			return echo.NewHTTPError(
				http.StatusBadRequest,
				types.Error{Message: "validation error", Fields: &map[string]string{
					"audio": "must be <= 16mb",
				}},
			)
		}

		span.AddEvent("decoding audio base64")
		audio, err = base64.StdEncoding.DecodeString(*rdata.Audio)
		if err != nil {
			span.SetStatus(codes.Ok, "failed to decode audio")
			span.RecordError(err)
			return echo.NewHTTPError(
				http.StatusBadRequest,
				types.Error{Message: "failed to decode base64", Fields: &map[string]string{
					"audio": "must be valid base64",
				}},
			)
		}
	}

	span.AddEvent("mapping entry through form schema")
	record := intake.Resolve(form.Schema.Data(), rdata.Entry)

	span.AddEvent("normalizing entry")
	normalized, err := intake.Normalize(record)
	if err != nil {
		span.SetStatus(codes.Error, "failed to normalize entry")
		span.RecordError(err)
		return response.InternalServerError
	}
	sub := normalized.Submission

	if normalized.MetaIssue != nil {
		level := logger.Logger.InfoContext
		if errors.Is(normalized.MetaIssue, intake.ErrMetaMalformed) {
			level = logger.Logger.WarnContext
		}
		level(ctx, "entry has no usable audio meta", "form", formID, "reason", normalized.MetaIssue)
		span.AddEvent("no usable audio meta", trace.WithAttributes(
			attribute.String("reason", normalized.MetaIssue.Error()),
		))
	}

	if len(audio) == 0 && sub.AudioFile != nil && h.fetcher != nil && h.fetcher.Allowed(*sub.AudioFile) {
		span.AddEvent("fetching remote audio")
		audio, err = h.fetcher.Fetch(ctx, *sub.AudioFile)
		if err != nil {
			// the form platform url stays a usable reference
			logger.Logger.WarnContext(ctx, "failed to fetch remote audio, keeping url",
				"form", formID, "url", *sub.AudioFile, "error", err)
			span.AddEvent("failed to fetch remote audio", trace.WithAttributes(
				attribute.String("error", err.Error()),
			))
			audio = nil
		}
	}

	if len(audio) > 0 {
		span.AddEvent("archiving audio")
		auditContext := audit.Context{ClientID: &clientID, FormID: &formID}
		key, err := archive.ArchiveFile(ctx, auditContext, h.audioUploader, &archive.FileMetadata{
			Buffer:       audio,
			ArchivedFile: types.FileAudio,
			Entity:       audit.EntitySubmission,
			EntityID:     sub.UniqueCode,
		})
		if err != nil {
			span.SetStatus(codes.Error, "failed to archive audio")
			span.RecordError(err)
			return response.InternalServerError
		}

		span.SetAttributes(attribute.String("audio.key", key))
		sub.AudioFile = &key
	}

	span.AddEvent("storing submission")
	row, err := h.submissions.Create(ctx, sub, form, auth.ID)
	if err != nil {
		span.SetStatus(codes.Error, "failed to store submission")
		span.RecordError(err)
		return response.InternalServerError
	}

	span.SetAttributes(
		attribute.String("submission.id", row.ID.String()),
		attribute.String("submission.unique_code", row.UniqueCode),
	)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, types.EntryResponse{
		SubmissionID: row.ID.String(),
		UniqueCode:   row.UniqueCode,
		Status:       row.Status,
	})
}
