package v1

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	srverr "github.com/wikimedia/contest-api/cmd/server/internal/error"
	"github.com/wikimedia/contest-api/cmd/server/internal/models"
	"github.com/wikimedia/contest-api/cmd/server/internal/response"
	"github.com/wikimedia/contest-api/internal/logger"
	"github.com/wikimedia/contest-api/internal/types"
)

const audioURLExpiration = time.Hour

func (h *Handler) GetSubmission(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "GetSubmission")
	defer span.End()

	submission, ok := c.Get("submission").(*models.Submission)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("submission: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(attribute.String("submission.id", submission.ID.String()))

	resp := submission.Response()

	if resp.AudioFile != nil && strings.HasPrefix(*resp.AudioFile, string(types.FileAudio)+"/") {
		span.AddEvent("presigning audio url")
		url, err := h.audioUploader.PresignedReadURL(ctx, *resp.AudioFile, audioURLExpiration)
		if err != nil {
			logger.Logger.ErrorContext(ctx, "failed to presign audio url",
				"submission", submission.ID, "error", err)
			span.RecordError(err)
		} else {
			resp.AudioURL = &url
		}
	}

	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, resp)
}
