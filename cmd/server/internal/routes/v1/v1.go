package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	servermiddleware "github.com/wikimedia/contest-api/cmd/server/internal/middleware"
	"github.com/wikimedia/contest-api/cmd/server/internal/models"
	"github.com/wikimedia/contest-api/cmd/server/internal/ratelimit"
	"github.com/wikimedia/contest-api/cmd/server/internal/store"
	"github.com/wikimedia/contest-api/internal/config"
	"github.com/wikimedia/contest-api/internal/fetch"
	"github.com/wikimedia/contest-api/internal/logger"
	"github.com/wikimedia/contest-api/internal/upload"
)

const name = "github.com/wikimedia/contest-api/cmd/server/internal/routes/v1"

var tracer = otel.Tracer(name)

type Handler struct {
	DB *gorm.DB
	// nil disables rate limiting
	redis         *redis.Client
	config        *config.Config
	submissions   *store.SubmissionStore
	screenings    *store.ScreeningStore
	audioUploader upload.Uploader
	archiver      upload.Uploader
	// nil disables fetching remote audio
	fetcher fetch.Fetcher
}

func NewHandler(
	db *gorm.DB,
	rdb *redis.Client,
	cfg *config.Config,
	submissions *store.SubmissionStore,
	screenings *store.ScreeningStore,
	audioUploader upload.Uploader,
	archiver upload.Uploader,
	fetcher fetch.Fetcher,
) Handler {
	return Handler{
		DB:            db,
		redis:         rdb,
		config:        cfg,
		submissions:   submissions,
		screenings:    screenings,
		audioUploader: audioUploader,
		archiver:      archiver,
		fetcher:       fetcher,
	}
}

func (h *Handler) AddRoutes(e *echo.Echo, middlewareHandler *servermiddleware.Handler) {
	l := logger.Logger

	v1Group := e.Group("/v1", middleware.BasicAuth(middlewareHandler.BasicAuthValidator))

	rl := h.config.RateLimit
	if h.redis != nil && rl != nil && rl.GlobalPerMinute > 0 {
		v1Group.Use(middleware.RateLimiterWithConfig(
			ratelimit.NewRedisLimiter(h.redis, "global", rl.GlobalPerMinute, rl.FailOpen, nil),
		))
	} else {
		l.Warn("not configured to have a global rate limit")
	}

	v1Group.GET("/ping/", h.Ping)
	v1Group.GET(
		"/flags/",
		h.Flags,
		servermiddleware.HasPermissions("auth", &models.Permissions{Screening: true}),
	)

	populateForm := servermiddleware.PopulateFromIDParam[models.Form](
		middlewareHandler,
		"form_id",
		"form",
	)
	formManagement := servermiddleware.HasPermissions(
		"auth",
		&models.Permissions{FormManagement: true},
	)

	formGroup := v1Group.Group("/form/:form_id")
	formGroup.GET("/", h.GetForm, formManagement, populateForm)
	formGroup.PUT("/", h.UpdateForm, formManagement, populateForm)

	entryMiddleware := []echo.MiddlewareFunc{
		servermiddleware.HasPermissions("auth", &models.Permissions{Intake: true}),
	}
	if h.redis != nil && rl != nil && rl.SubmitPerMinute > 0 {
		post := http.MethodPost
		entryMiddleware = append(entryMiddleware, middleware.RateLimiterWithConfig(
			ratelimit.NewRedisLimiter(h.redis, "submit", rl.SubmitPerMinute, rl.FailOpen, &post),
		))
	} else {
		l.Warn("not configured to have a submit rate limit")
	}
	entryMiddleware = append(entryMiddleware, populateForm, servermiddleware.FormActive("form"))
	formGroup.POST("/entry/", h.SubmitEntry, entryMiddleware...)

	submissionGroup := v1Group.Group(
		"/submission/:submission_id",
		servermiddleware.HasPermissions("auth", &models.Permissions{Screening: true}),
		servermiddleware.PopulateFromIDParam[models.Submission](
			middlewareHandler,
			"submission_id",
			"submission",
		),
	)
	submissionGroup.GET("/", h.GetSubmission)
	submissionGroup.POST("/screening/", h.RecordScreening)
	submissionGroup.GET("/screening/", h.GetScreening)
	submissionGroup.GET("/screening/events/", h.ScreeningEvents)
}
