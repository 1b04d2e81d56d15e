package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	srverr "github.com/wikimedia/contest-api/cmd/server/internal/error"
	"github.com/wikimedia/contest-api/cmd/server/internal/models"
	"github.com/wikimedia/contest-api/cmd/server/internal/response"
	"github.com/wikimedia/contest-api/cmd/server/internal/store"
	"github.com/wikimedia/contest-api/internal/screening"
	"github.com/wikimedia/contest-api/internal/types"
)

// Appends a human screening event. Unknown flags are dropped silently.
func (h *Handler) RecordScreening(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "RecordScreening")
	defer span.End()

	auth, ok := c.Get("auth").(*models.Auth)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("auth: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	submission, ok := c.Get("submission").(*models.Submission)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("submission: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(
		attribute.String("auth.note", auth.Note),
		attribute.String("auth.id", auth.ID.String()),
		attribute.String("submission.id", submission.ID.String()),
	)

	type requestData struct {
		types.ScreeningSubmission
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

	author := rdata.Author
	if author == "" {
		author = auth.Note
	}

	span.AddEvent("recording screening event")
	event, err := h.screenings.Record(
		ctx,
		submission.ID,
		rdata.Decision,
		screening.FilterFlags(rdata.Flags),
		author,
		&auth.ID,
	)
	if errors.Is(err, store.ErrSubmissionNotFound) {
		span.SetStatus(codes.Ok, "submission not found")
		span.RecordError(nil)
		return response.NotFoundError
	} else if err != nil {
		span.SetStatus(codes.Error, "failed to record screening event")
		span.RecordError(err)
		return response.InternalServerError
	}

	span.SetAttributes(attribute.String("screening.event_id", event.ID.String()))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, event.Response())
}

func (h *Handler) GetScreening(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "GetScreening")
	defer span.End()

	submission, ok := c.Get("submission").(*models.Submission)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("submission: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(attribute.String("submission.id", submission.ID.String()))

	agg, err := h.screenings.Aggregate(ctx, submission.ID)
	if err != nil {
		span.SetStatus(codes.Error, "failed to aggregate screening events")
		span.RecordError(err)
		return response.InternalServerError
	}

	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, agg)
}

func (h *Handler) ScreeningEvents(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "ScreeningEvents")
	defer span.End()

	submission, ok := c.Get("submission").(*models.Submission)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("submission: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(attribute.String("submission.id", submission.ID.String()))

	events, err := h.screenings.Events(ctx, submission.ID)
	if err != nil {
		span.SetStatus(codes.Error, "failed to list screening events")
		span.RecordError(err)
		return response.InternalServerError
	}

	resp := types.ScreeningEventsResponse{Events: make([]types.ScreeningEventResponse, len(events))}
	for i := range events {
		resp.Events[i] = events[i].Response()
	}

	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, resp)
}
