package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wikimedia/contest-api/internal/logger"
	"github.com/wikimedia/contest-api/internal/types"
	"github.com/wikimedia/contest-api/internal/validator"
)

type APIKeyPermissions struct {
	Intake         bool `mapstructure:"intake"          json:"intake"`
	Screening      bool `mapstructure:"screening"       json:"screening"`
	FormManagement bool `mapstructure:"form_management" json:"form_management"`
}

type APIKey struct {
	Active      *bool             `mapstructure:"active"      json:"active"      validate:"required"`
	Token       string            `mapstructure:"token"       json:"token"       validate:"required"`
	Permissions APIKeyPermissions `mapstructure:"permissions" json:"permissions"`
}

// Machine client of the API: the form platform, a screening tool or an operator
type Client struct {
	ID     string `mapstructure:"id"      json:"id"      validate:"required,uuid_rfc4122"`
	Note   string `mapstructure:"note"    json:"note"    validate:"required"`
	APIKey APIKey `mapstructure:"api_key" json:"api_key" validate:"required"`
}

// Form seeded into the database when missing
type Form struct {
	ID     string           `mapstructure:"id"     validate:"required,uuid_rfc4122"`
	Title  string           `mapstructure:"title"  validate:"required"`
	Active *bool            `mapstructure:"active" validate:"required"`
	Schema types.FormSchema `mapstructure:"schema" validate:"required"`
}

type PostgresConfig struct {
	User               string        `validate:"required"`
	Password           string        `validate:"required"`
	Host               string        `validate:"required"`
	Database           string        `validate:"required"`
	MaxIdleConnections int           `validate:"required" mapstructure:"max_idle_connections"`
	MaxOpenConnections int           `validate:"required" mapstructure:"max_open_connections"`
	ConnectionTTL      time.Duration `validate:"required" mapstructure:"connection_ttl"`
	Port               int16         `validate:"required"`
}

type StorageBackend string

const (
	StorageS3    StorageBackend = "s3"
	StorageAzure StorageBackend = "azure"
)

type StorageConfig struct {
	Backend StorageBackend `mapstructure:"backend"            validate:"required,oneof=s3 azure"`
	// Form platform hosts whose audio_file urls are downloaded and archived. Empty disables
	// fetching, the url is stored as is.
	RemoteAudioHosts []string `mapstructure:"remote_audio_hosts" validate:"dive,hostname_rfc1123"`
}

type AzureConfig struct {
	StorageAccount *AzureStorageAccountConfig `mapstructure:"storage_account" validate:"required"`
	Dev            bool                       `mapstructure:"dev"`
}

type AzureStorageAccountConfig struct {
	Containers *AzureStorageAccountContainerConfig `mapstructure:"containers" validate:"required"`
	Queues     *AzureStorageAccountQueueConfig     `mapstructure:"queues"`
	Name       string                              `mapstructure:"name"       validate:"required"`
	Key        string                              `mapstructure:"key"        validate:"required"`
}

type AzureStorageAccountContainerConfig struct {
	URL   string `mapstructure:"url"   validate:"required"`
	Audio string `mapstructure:"audio" validate:"required"`
}

type AzureStorageAccountQueueConfig struct {
	URL         string `mapstructure:"url"         validate:"required"`
	Submissions string `mapstructure:"submissions" validate:"required"`
}

type S3ArchiveConfig struct {
	Endpoint        string `mapstructure:"endpoint"          validate:"required"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"       validate:"required"`
	SSLEnabled      bool   `mapstructure:"ssl_enabled"`
}

type NotificationsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type ScreeningConfig struct {
	// Author of automated screening events, the contest site name
	AutomatedAuthor string `mapstructure:"automated_author" validate:"required"`
}

type SlogConfig struct {
	Level int `mapstructure:"level"`
}

type GormLogConfig struct {
	Level        int  `mapstructure:"level"`
	TraceQueries bool `mapstructure:"trace_queries"`
}

type LoggingConfig struct {
	Gorm     GormLogConfig `mapstructure:"gorm"`
	App      SlogConfig    `mapstructure:"app"`
	Exporter string        `mapstructure:"otel_exporter" validate:"oneof=otlp stdout none"`
}

type RateLimitConfig struct {
	RedisHost       string `mapstructure:"redis_host"`
	GlobalPerMinute int64  `mapstructure:"global_per_minute"`
	SubmitPerMinute int64  `mapstructure:"submit_per_minute"`
	FailOpen        bool   `mapstructure:"fail_open"`
}

// See contestapi.yaml for an example config
type Config struct {
	Postgres             *PostgresConfig      `mapstructure:"postgres"               validate:"required"`
	Logging              *LoggingConfig       `mapstructure:"logging"                validate:"required"`
	Storage              *StorageConfig       `mapstructure:"storage"                validate:"required"`
	S3Archive            *S3ArchiveConfig     `mapstructure:"s3_archive"`
	Azure                *AzureConfig         `mapstructure:"azure"`
	Notifications        *NotificationsConfig `mapstructure:"notifications"`
	RateLimit            *RateLimitConfig     `mapstructure:"ratelimit"`
	Screening            *ScreeningConfig     `mapstructure:"screening"              validate:"required"`
	ListenAddress        string               `mapstructure:"listen_address"         validate:"required"`
	Clients              []Client             `mapstructure:"clients"                validate:"dive"`
	Forms                []Form               `mapstructure:"forms"                  validate:"dive"`
	GracefulShutdownSecs int64                `mapstructure:"graceful_shutdown_secs"`
}

const (
	AppLogLevel                string = "logging.app.level"
	AzureDev                   string = "azure.dev"
	AzureStorageAccountKey     string = "azure.storage_account.key"
	EnvPrefix                  string = "contestapi"
	OTelExporter               string = "logging.otel_exporter"
	GlobalPerMinute            string = "ratelimit.global_per_minute"
	GormLogLevel               string = "logging.gorm.level"
	GormTraceQueries           string = "logging.gorm.trace_queries"
	GracefulShutdownSecs       string = "graceful_shutdown_secs"
	ListenAddress              string = "listen_address"
	NotificationsEnabled       string = "notifications.enabled"
	PostgresDatabase           string = "postgres.database"
	PostgresHost               string = "postgres.host"
	PostgresPassword           string = "postgres.password"
	PostgresPort               string = "postgres.port"
	PostgresUser               string = "postgres.user"
	PostgresMaxIdleConnections string = "postgres.max_idle_connections"
	PostgresMaxOpenConnections string = "postgres.max_open_connections"
	PostgresConnectonTTL       string = "postgres.connection_ttl"
	RateLimitFailOpen          string = "ratelimit.fail_open"
	RedisHost                  string = "ratelimit.redis_host"
	S3AccessKeyID              string = "s3_archive.access_key_id"
	S3SSLEnabled               string = "s3_archive.ssl_enabled"
	S3SecretAccessKey          string = "s3_archive.secret_access_key" // #nosec
	ScreeningAutomatedAuthor   string = "screening.automated_author"
	StorageBackendKey          string = "storage.backend"
	SubmitPerMinute            string = "ratelimit.submit_per_minute"
)

var (
	ErrMissingS3Config    = errors.New("storage backend s3 requires s3_archive")
	ErrMissingAzureConfig = errors.New("azure config required")
	ErrMissingQueueConfig = errors.New("notifications require azure.storage_account.queues")
)

var configReady = false
var config Config

// Loads contestapi.yaml from /etc/contestapi/ or the working directory, overridden by
// CONTESTAPI_ prefixed environment variables. The result is cached.
func GetConfig() (*Config, error) {
	if configReady {
		logger.Logger.Debug("returning already-loaded config")
		return &config, nil
	}
	logger.Logger.Info("loading config")

	v := viper.New()

	v.SetConfigName("contestapi")

	v.AddConfigPath("/etc/contestapi/")
	v.AddConfigPath(".")

	v.SetConfigType("yaml")

	if err := load(v, &config); err != nil {
		configReady = false
		return nil, err
	}

	configReady = true
	return &config, nil
}

func load(v *viper.Viper, out *Config) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.AutomaticEnv()

	// workaround for https://github.com/spf13/viper/issues/761
	// bind env vars explicitly so they unmarshal into the nested struct
	for _, key := range []string{
		PostgresPassword,
		AzureStorageAccountKey,
		S3AccessKeyID,
		S3SecretAccessKey,
		StorageBackendKey,
	} {
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}

	v.SetDefault(ListenAddress, "[::]:1323")
	v.SetDefault(PostgresHost, "localhost")
	v.SetDefault(PostgresPort, 5432)
	v.SetDefault(PostgresMaxIdleConnections, 2)
	v.SetDefault(PostgresMaxOpenConnections, 10)
	v.SetDefault(PostgresConnectonTTL, 10*time.Minute)
	v.SetDefault(AzureDev, false)
	v.SetDefault(GormLogLevel, int(slog.LevelInfo))
	v.SetDefault(GormTraceQueries, false)
	v.SetDefault(AppLogLevel, int(slog.LevelInfo))
	v.SetDefault(S3SSLEnabled, true)
	v.SetDefault(StorageBackendKey, string(StorageS3))
	v.SetDefault(NotificationsEnabled, false)
	v.SetDefault(ScreeningAutomatedAuthor, "Contest")

	v.SetDefault(RedisHost, "localhost")
	v.SetDefault(GlobalPerMinute, 0)
	v.SetDefault(SubmitPerMinute, 0)
	v.SetDefault(RateLimitFailOpen, true)

	v.SetDefault(OTelExporter, "stdout")

	v.SetDefault(GracefulShutdownSecs, 30)

	err := v.ReadInConfig()
	if err != nil {
		// ignore config file not found to allow pure env config
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return err
	}

	valid := validator.Create()
	if err := valid.Validate(out); err != nil {
		return err
	}

	return out.validateSections()
}

// Cross section requirements the struct tags cannot express
func (c *Config) validateSections() error {
	switch c.Storage.Backend {
	case StorageS3:
		if c.S3Archive == nil {
			return ErrMissingS3Config
		}
	case StorageAzure:
		if c.Azure == nil {
			return fmt.Errorf("storage backend azure: %w", ErrMissingAzureConfig)
		}
	}

	if c.NotificationsEnabled() {
		if c.Azure == nil {
			return fmt.Errorf("notifications: %w", ErrMissingAzureConfig)
		}
		if c.Azure.StorageAccount.Queues == nil {
			return ErrMissingQueueConfig
		}
	}

	return nil
}

func (c *Config) NotificationsEnabled() bool {
	return c.Notifications != nil && c.Notifications.Enabled
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s",
		url.QueryEscape(c.Postgres.User),
		url.QueryEscape(c.Postgres.Password),
		c.Postgres.Host, c.Postgres.Port,
		url.QueryEscape(c.Postgres.Database),
	)
}
