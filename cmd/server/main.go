package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	otellib "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/wikimedia/contest-api/cmd/server/internal/database"
	servermiddleware "github.com/wikimedia/contest-api/cmd/server/internal/middleware"
	"github.com/wikimedia/contest-api/cmd/server/internal/migrations"
	"github.com/wikimedia/contest-api/cmd/server/internal/models"
	"github.com/wikimedia/contest-api/cmd/server/internal/routes"
	routesv1 "github.com/wikimedia/contest-api/cmd/server/internal/routes/v1"
	"github.com/wikimedia/contest-api/cmd/server/internal/store"
	"github.com/wikimedia/contest-api/internal/config"
	"github.com/wikimedia/contest-api/internal/fetch"
	"github.com/wikimedia/contest-api/internal/logger"
	"github.com/wikimedia/contest-api/internal/otel"
	"github.com/wikimedia/contest-api/internal/queue"
	"github.com/wikimedia/contest-api/internal/screening"
	"github.com/wikimedia/contest-api/internal/upload"
	"github.com/wikimedia/contest-api/internal/validator"
)

const name string = "github.com/wikimedia/contest-api/cmd/server"

var tracer = otellib.Tracer(name)

type server struct {
	router       *echo.Echo
	config       *config.Config
	db           *gorm.DB
	redis        *redis.Client
	otelShutdown func(context.Context) error
}

// Builds the audio uploader and the archive uploader for the configured backend. With the
// azure backend the archive goes to s3 when s3_archive is configured, otherwise next to the
// audio files.
func buildUploaders(
	ctx context.Context,
	cfg *config.Config,
) (audio upload.Uploader, archiver upload.Uploader, err error) {
	ctx, span := tracer.Start(ctx, "buildUploaders")
	defer span.End()

	var minioUploader *upload.MinioUploader
	if cfg.S3Archive != nil {
		minioUploader, err = upload.NewMinioUploader(
			cfg.S3Archive.Endpoint,
			cfg.S3Archive.AccessKeyID,
			cfg.S3Archive.SecretAccessKey,
			cfg.S3Archive.SSLEnabled,
			cfg.S3Archive.BucketName,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to construct s3 uploader")
			return nil, nil, fmt.Errorf("failed to construct s3 uploader: %w", err)
		}

		if err = minioUploader.EnsureBucket(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to ensure s3 bucket")
			return nil, nil, fmt.Errorf("failed to ensure s3 bucket: %w", err)
		}

		span.AddEvent("initialized s3 uploader")
	}

	backoff := func() retry.Backoff {
		b := retry.NewFibonacci(time.Millisecond * 25)
		b = retry.WithMaxRetries(3, b)
		return b
	}

	switch cfg.Storage.Backend {
	case config.StorageS3:
		audio = minioUploader
		archiver = minioUploader
	case config.StorageAzure:
		azureCred, err := azblob.NewSharedKeyCredential(
			cfg.Azure.StorageAccount.Name,
			cfg.Azure.StorageAccount.Key,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to initialize azure credentials")
			return nil, nil, fmt.Errorf("failed to initialize azure credentials: %w", err)
		}

		azureClient, err := azblob.NewClientWithSharedKeyCredential(
			cfg.Azure.StorageAccount.Containers.URL,
			azureCred,
			nil,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to initialize azure client")
			return nil, nil, fmt.Errorf("failed to initialize azure client: %w", err)
		}

		azureUploader := upload.NewAzureUploaderFromClient(
			azureClient,
			cfg.Azure.StorageAccount.Containers.Audio,
		)
		if cfg.Azure.Dev {
			if err = azureUploader.EnsureContainer(ctx); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "error setting up container for dev environment")
				return nil, nil, fmt.Errorf("error setting up container for dev environment: %w", err)
			}
		}

		span.AddEvent("initialized azure uploader")

		audio = azureUploader
		archiver = azureUploader
		if minioUploader != nil {
			archiver = minioUploader
		}
	default:
		err = fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown storage backend")
		return nil, nil, err
	}

	span.SetStatus(codes.Ok, "")
	return upload.NewRetryUploaderBackoff(audio, backoff),
		upload.NewRetryUploaderBackoff(archiver, backoff),
		nil
}

func buildHooks(ctx context.Context, cfg *config.Config, screenings *store.ScreeningStore) ([]store.SubmissionHook, error) {
	ctx, span := tracer.Start(ctx, "buildHooks")
	defer span.End()

	hooks := []store.SubmissionHook{
		screening.NewAutomatedHook(screenings, cfg.Screening.AutomatedAuthor, logger.Logger),
	}

	if !cfg.NotificationsEnabled() {
		span.AddEvent("notifications disabled")
		return hooks, nil
	}

	queues := cfg.Azure.StorageAccount.Queues
	qr, err := queue.NewAzureQueuer(
		cfg.Azure.StorageAccount.Name,
		cfg.Azure.StorageAccount.Key,
		queues.URL,
		queues.Submissions,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to construct queuer")
		return nil, fmt.Errorf("failed to construct queuer: %w", err)
	}

	if cfg.Azure.Dev {
		if err = qr.EnsureQueue(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "error setting up queue for dev environment")
			return nil, fmt.Errorf("error setting up queue for dev environment: %w", err)
		}
	}

	span.AddEvent("initialized submission queue")
	return append(hooks, store.NewNotifyHook(qr)), nil
}

func initServer(ctx context.Context) (*server, error) {
	server := new(server)

	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize server config: %w", err)
	}
	server.config = cfg

	logger.LogLevel.Set(slog.Level(cfg.Logging.App.Level))

	shutdownOTel, err := otel.SetupOTelSDK(ctx, "contest-api", otel.Exporter(cfg.Logging.Exporter))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OTEL SDK: %w", err)
	}
	defer func() {
		// Something failed to initialize, make sure everything gets flushed
		if server.otelShutdown == nil {
			otelShutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				time.Second*time.Duration(cfg.GracefulShutdownSecs),
			)
			defer cancel()

			if err = shutdownOTel(otelShutdownCtx); err != nil {
				logger.Logger.Error("failed to flush otel data", "error", err)
			}
		}
	}()

	ctx, span := tracer.Start(ctx, "initServer")
	defer span.End()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open database")
		return nil, err
	}

	if err = migrations.Up(ctx, db); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to perform database migrations")
		return nil, fmt.Errorf("failed to perform database migrations: %w", err)
	}

	span.AddEvent("migrated database to latest version")

	if err = models.LoadAPIKeysFromConfig(ctx, db, cfg.Clients); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load API keys from config")
		return nil, fmt.Errorf("failed to load API keys from config: %w", err)
	}

	span.AddEvent("loaded api keys from config")

	if err = models.LoadFormsFromConfig(ctx, db, cfg.Forms); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load forms from config")
		return nil, fmt.Errorf("failed to load forms from config: %w", err)
	}

	span.AddEvent("loaded forms from config")

	audioUploader, archiver, err := buildUploaders(ctx, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build uploaders")
		return nil, err
	}

	screenings := store.NewScreeningStore(db)
	hooks, err := buildHooks(ctx, cfg, screenings)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build submission hooks")
		return nil, err
	}
	submissions := store.NewSubmissionStore(db, logger.Logger, hooks...)

	var rdb *redis.Client
	if rl := cfg.RateLimit; rl != nil && (rl.GlobalPerMinute > 0 || rl.SubmitPerMinute > 0) {
		rdb = redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:6379", rl.RedisHost),
		})
		span.AddEvent("initialized redis client")
	}

	e, err := routes.BuildEcho(logger.Logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "error building router")
		return nil, fmt.Errorf("error building router: %w", err)
	}

	span.AddEvent("created echo router")

	var fetcher fetch.Fetcher
	if hosts := cfg.Storage.RemoteAudioHosts; len(hosts) > 0 {
		client := retryablehttp.NewClient()
		client.RetryMax = 3
		client.Logger = logger.Logger
		fetcher = fetch.NewHTTPFetcher(client.StandardClient(), validator.MaxAudioSize, hosts...)
		span.AddEvent("initialized remote audio fetcher")
	}

	v1Handler := routesv1.NewHandler(
		db,
		rdb,
		cfg,
		submissions,
		screenings,
		audioUploader,
		archiver,
		fetcher,
	)
	middlewareHandler := servermiddleware.Handler{DB: db}
	v1Handler.AddRoutes(e, &middlewareHandler)

	server.otelShutdown = shutdownOTel
	server.router = e
	server.db = db
	server.redis = rdb

	span.SetStatus(codes.Ok, "")
	return server, nil
}

func (s *server) Start() error {
	logger.Logger.Info("Starting services...", "address", s.config.ListenAddress)

	err := s.router.Start(s.config.ListenAddress)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *server) Shutdown() error {
	var errs error

	ctx, cancelTimeout := context.WithTimeout(
		context.Background(),
		time.Second*time.Duration(s.config.GracefulShutdownSecs),
	)
	defer cancelTimeout()

	if err := s.router.Shutdown(ctx); err != nil {
		errs = errors.Join(errs, err)
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}

	if err := database.Close(s.db); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to close database: %w", err))
	}

	if s.otelShutdown != nil {
		errs = errors.Join(errs, s.otelShutdown(ctx))
	}

	return errs
}

func main() {
	ctx, cancelSignal := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)

	logger.InitSlog(slog.LevelInfo)

	server, err := initServer(ctx)
	if err != nil {
		logger.Logger.Error("failed to initialize server", "error", err)
		cancelSignal()
		os.Exit(1)
	}

	errch := make(chan error, 1)
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Got shutdown signal!")
		errch <- server.Shutdown()
		close(errch)
	}()

	if err := server.Start(); err != nil {
		logger.Logger.Error("server stopped", "error", err)
		cancelSignal()
		os.Exit(1)
	}

	if err := <-errch; err != nil {
		logger.Logger.Error("Error shutting down server", "error", err)
	}

	cancelSignal()
}
