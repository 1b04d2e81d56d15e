package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	srverr "github.com/wikimedia/contest-api/cmd/server/internal/error"
	"github.com/wikimedia/contest-api/cmd/server/internal/models"
	"github.com/wikimedia/contest-api/cmd/server/internal/response"
	"github.com/wikimedia/contest-api/internal/archive"
	"github.com/wikimedia/contest-api/internal/audit"
	"github.com/wikimedia/contest-api/internal/formschema"
	"github.com/wikimedia/contest-api/internal/types"
)

func (h *Handler) GetForm(c echo.Context) error {
	_, span := tracer.Start(c.Request().Context(), "GetForm")
	defer span.End()

	form, ok := c.Get("form").(*models.Form)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("form: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(
		attribute.String("form.id", form.ID.String()),
		attribute.Int("form.version", form.Version),
	)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, form.Response())
}

// Replaces the schema of a form. The request names the version it was based on and is
// rejected with a conflict when another update landed in between.
func (h *Handler) UpdateForm(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "UpdateForm")
	defer span.End()

	db := h.DB.WithContext(ctx)

	auth, ok := c.Get("auth").(*models.Auth)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("auth: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	current, ok := c.Get("form").(*models.Form)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("form: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	formID := current.ID.String()
	clientID := auth.ID.String()

	span.SetAttributes(
		attribute.String("auth.note", auth.Note),
		attribute.String("auth.id", clientID),
		attribute.String("form.id", formID),
		attribute.Int("form.version", current.Version),
	)

	type requestData struct {
		types.FormUpdate
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

	span.AddEvent("validating submitted schema against form schema")
	schema, err := formschema.Decode(rdata.Schema)
	if fieldMap, ok := formschema.FieldErrors(err); ok {
		span.SetStatus(codes.Ok, "submitted schema was not compliant")
		span.RecordError(nil)
		return echo.NewHTTPError(
			http.StatusBadRequest,
			types.Error{Message: "schema failed to validate", Fields: &fieldMap},
		)
	} else if err != nil {
		span.SetStatus(codes.Ok, "failed to validate submitted schema")
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusBadRequest, types.StringError(err.Error()))
	}

	active := current.Active
	if rdata.Active != nil {
		active = *rdata.Active
	}

	updated := &models.Form{
		Model:  models.Model{ID: current.ID},
		Title:  rdata.Title,
		Active: active,
		Schema: datatypes.NewJSONType(schema),
	}

	span.AddEvent("updating form")
	err = models.UpdateForm(ctx, db, updated, *rdata.Version)
	if errors.Is(err, models.ErrStaleVersion) {
		span.SetStatus(codes.Ok, "stale form version")
		span.RecordError(nil)
		return response.ConflictError
	} else if errors.Is(err, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Ok, "form disappeared")
		span.RecordError(nil)
		return response.NotFoundError
	} else if err != nil {
		span.SetStatus(codes.Error, "failed to update form")
		span.RecordError(err)
		return response.InternalServerError
	}

	span.AddEvent("encoding schema as JSON")
	rawSchema, err := json.Marshal(schema)
	if err != nil {
		span.SetStatus(codes.Error, "failed to encode schema")
		span.RecordError(err)
		return response.InternalServerError
	}

	auditContext := audit.Context{ClientID: &clientID, FormID: &formID}
	metadata := &archive.FileMetadata{
		Buffer:       rawSchema,
		ArchivedFile: types.FileFormSchema,
		ContentType:  "application/json",
		Entity:       audit.EntityForm,
		EntityID:     formID,
	}
	if _, err = archive.ArchiveFile(ctx, auditContext, h.archiver, metadata); err != nil {
		span.SetStatus(codes.Error, "failed to archive schema")
		span.RecordError(err)
		return response.InternalServerError
	}

	span.AddEvent("generating audit log message")
	audit.LogFormUpdated(
		auditContext,
		updated.Title,
		updated.Version,
		updated.Active,
		len(schema.Fields),
	)

	span.SetAttributes(attribute.Int("form.new_version", updated.Version))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, updated.Response())
}
