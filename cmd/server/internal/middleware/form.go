package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	srverr "github.com/wikimedia/contest-api/cmd/server/internal/error"
	"github.com/wikimedia/contest-api/cmd/server/internal/models"
	"github.com/wikimedia/contest-api/cmd/server/internal/response"
	"github.com/wikimedia/contest-api/internal/logger"
	"github.com/wikimedia/contest-api/internal/types"
)

// Rejects requests for a form that no longer accepts entries
func FormActive(formKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracer.Start(c.Request().Context(), "FormActive")
			defer span.End()

			form, ok := c.Get(formKey).(*models.Form)
			if !ok {
				span.RecordError(srverr.ErrTypeAssertMismatch)
				span.SetStatus(codes.Error, fmt.Sprintf("form: %s", srverr.ErrTypeAssertMismatch))
				return response.InternalServerError
			}

			span.SetAttributes(
				attribute.String("form.id", form.ID.String()),
				attribute.Bool("form.active", form.Active),
			)

			if !form.Active {
				logger.Logger.DebugContext(ctx, "rejecting entry for inactive form", "form", form.ID)
				span.RecordError(nil)
				span.SetStatus(codes.Ok, "inactive form")
				return echo.NewHTTPError(
					http.StatusBadRequest,
					types.StringError("this form is not accepting entries"),
				)
			}

			span.RecordError(nil)
			span.SetStatus(codes.Ok, "form is active")
			return next(c)
		}
	}
}
