package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/codes"

	"github.com/wikimedia/contest-api/internal/screening"
	"github.com/wikimedia/contest-api/internal/types"
)

// Registry of flags screeners and automated screening may raise
func (h *Handler) Flags(c echo.Context) error {
	_, span := tracer.Start(c.Request().Context(), "Flags")
	defer span.End()

	registry := screening.Flags()
	flags := make([]types.FlagResponse, len(registry))
	for i, f := range registry {
		flags[i] = types.FlagResponse{Code: f.Code, Label: f.Label}
	}

	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, types.FlagsResponse{Flags: flags})
}
