package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/accessibility-reports/internal/domain"
	"github.com/accessibility-reports/internal/pkg/geo"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Store     StoreConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Log       LogConfig
	Worker    WorkerConfig
	Storage   StorageConfig
	Upload    UploadConfig
	Routing   RoutingConfig
	Geocoding GeocodingConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Env         string
	CORSOrigins string
	BodyLimit   int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// StoreConfig - выбор хранилища отчётов: postgres или встроенный sqlite
type StoreConfig struct {
	Driver     string
	SQLitePath string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	ReportsCacheTTL time.Duration
	GeocodeCacheTTL time.Duration
}

type LogConfig struct {
	Level string
}

type WorkerConfig struct {
	Enabled           bool
	ConsumerGroup     string
	StreamReadTimeout time.Duration
	MaxRetries        int
	// ClaimMinIdle - через сколько простоя чужое pending-сообщение забирается себе
	ClaimMinIdle time.Duration
	// ClaimInterval - период проверки pending-сообщений
	ClaimInterval time.Duration
}

// StorageConfig - хранилище фотографий: local (каталог) или minio
type StorageConfig struct {
	Driver        string
	UploadsDir    string
	PresignExpiry time.Duration
	MinIO         MinIOConfig
}

type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	UseSSL          bool
}

type UploadConfig struct {
	MaxImages    int
	MaxImageSize int64
}

// RoutingConfig - провайдер пешеходных маршрутов (openrouteservice)
type RoutingConfig struct {
	BaseURL        string
	APIKey         string
	Profile        string
	Format         string
	RequestTimeout int
	AvoidRadius    float64
	MaxReports     int
}

// GeocodingConfig - провайдер геокодирования (Nominatim)
type GeocodingConfig struct {
	BaseURL        string
	UserAgent      string
	RequestsPerSec float64
	RequestTimeout int
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// без .env работаем только на переменных окружения
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        viper.GetString("API_HOST"),
			Port:        viper.GetInt("API_PORT"),
			Env:         viper.GetString("API_ENV"),
			CORSOrigins: viper.GetString("CORS_ORIGINS"),
			BodyLimit:   viper.GetInt("API_BODY_LIMIT"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			DBName:          viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxConns:        viper.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(viper.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(viper.GetString("REPORT_STORE")),
			SQLitePath: viper.GetString("SQLITE_PATH"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			ReportsCacheTTL: time.Duration(viper.GetInt("REPORTS_CACHE_TTL")) * time.Second,
			GeocodeCacheTTL: time.Duration(viper.GetInt("GEOCODE_CACHE_TTL")) * time.Second,
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Worker: WorkerConfig{
			Enabled:           viper.GetBool("WORKER_ENABLED"),
			ConsumerGroup:     viper.GetString("WORKER_CONSUMER_GROUP"),
			StreamReadTimeout: time.Duration(viper.GetInt("WORKER_STREAM_READ_TIMEOUT")) * time.Millisecond,
			MaxRetries:        viper.GetInt("WORKER_MAX_RETRIES"),
			ClaimMinIdle:      time.Duration(viper.GetInt("WORKER_CLAIM_MIN_IDLE")) * time.Second,
			ClaimInterval:     time.Duration(viper.GetInt("WORKER_CLAIM_INTERVAL")) * time.Second,
		},
		Storage: StorageConfig{
			Driver:        strings.ToLower(viper.GetString("STORAGE_DRIVER")),
			UploadsDir:    viper.GetString("UPLOADS_DIR"),
			PresignExpiry: time.Duration(viper.GetInt("STORAGE_PRESIGN_EXPIRY")) * time.Second,
			MinIO: MinIOConfig{
				Endpoint:        viper.GetString("MINIO_ENDPOINT"),
				AccessKeyID:     viper.GetString("MINIO_ACCESS_KEY"),
				SecretAccessKey: viper.GetString("MINIO_SECRET_KEY"),
				Bucket:          viper.GetString("MINIO_BUCKET"),
				Region:          viper.GetString("MINIO_REGION"),
				UseSSL:          viper.GetBool("MINIO_USE_SSL"),
			},
		},
		Upload: UploadConfig{
			MaxImages:    viper.GetInt("UPLOAD_MAX_IMAGES"),
			MaxImageSize: viper.GetInt64("UPLOAD_MAX_IMAGE_SIZE"),
		},
		Routing: RoutingConfig{
			BaseURL:        viper.GetString("ORS_BASE_URL"),
			APIKey:         viper.GetString("ORS_API_KEY"),
			Profile:        viper.GetString("ORS_PROFILE"),
			Format:         viper.GetString("ORS_FORMAT"),
			RequestTimeout: viper.GetInt("ORS_REQUEST_TIMEOUT"),
			AvoidRadius:    viper.GetFloat64("AVOID_RADIUS"),
			MaxReports:     viper.GetInt("AVOID_MAX_REPORTS"),
		},
		Geocoding: GeocodingConfig{
			BaseURL:        viper.GetString("NOMINATIM_BASE_URL"),
			UserAgent:      viper.GetString("NOMINATIM_USER_AGENT"),
			RequestsPerSec: viper.GetFloat64("NOMINATIM_RPS"),
			RequestTimeout: viper.GetInt("NOMINATIM_REQUEST_TIMEOUT"),
		},
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults - значения по умолчанию для незаданных параметров
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.CORSOrigins == "" {
		c.Server.CORSOrigins = "*"
	}
	if c.Server.BodyLimit == 0 {
		c.Server.BodyLimit = 32 * 1024 * 1024
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "postgres"
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = "./data"
	}
	if c.Cache.ReportsCacheTTL == 0 {
		c.Cache.ReportsCacheTTL = 30 * time.Second
	}
	if c.Cache.GeocodeCacheTTL == 0 {
		c.Cache.GeocodeCacheTTL = 24 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Worker.ConsumerGroup == "" {
		c.Worker.ConsumerGroup = "report-enrichment-workers"
	}
	if c.Worker.StreamReadTimeout == 0 {
		c.Worker.StreamReadTimeout = 5000 * time.Millisecond
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 3
	}
	if c.Worker.ClaimMinIdle == 0 {
		c.Worker.ClaimMinIdle = time.Minute
	}
	if c.Worker.ClaimInterval == 0 {
		c.Worker.ClaimInterval = 30 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "local"
	}
	if c.Storage.UploadsDir == "" {
		c.Storage.UploadsDir = "uploads"
	}
	if c.Storage.PresignExpiry == 0 {
		c.Storage.PresignExpiry = 15 * time.Minute
	}
	if c.Storage.MinIO.Bucket == "" {
		c.Storage.MinIO.Bucket = "report-images"
	}
	if c.Storage.MinIO.Region == "" {
		c.Storage.MinIO.Region = "us-east-1"
	}
	if c.Upload.MaxImages == 0 {
		c.Upload.MaxImages = 5
	}
	if c.Upload.MaxImageSize == 0 {
		c.Upload.MaxImageSize = 5 * 1024 * 1024
	}
	if c.Routing.BaseURL == "" {
		c.Routing.BaseURL = "https://api.openrouteservice.org"
	}
	if c.Routing.Profile == "" {
		c.Routing.Profile = "foot-walking"
	}
	if c.Routing.Format == "" {
		c.Routing.Format = "geojson"
	}
	if c.Routing.RequestTimeout == 0 {
		c.Routing.RequestTimeout = 30
	}
	if c.Routing.AvoidRadius == 0 {
		c.Routing.AvoidRadius = 30
	}
	if c.Routing.MaxReports == 0 {
		c.Routing.MaxReports = 1000
	}
	if c.Geocoding.BaseURL == "" {
		c.Geocoding.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if c.Geocoding.UserAgent == "" {
		c.Geocoding.UserAgent = "accessibility-reports/1.0"
	}
	if c.Geocoding.RequestsPerSec == 0 {
		c.Geocoding.RequestsPerSec = 1
	}
	if c.Geocoding.RequestTimeout == 0 {
		c.Geocoding.RequestTimeout = 10
	}
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown REPORT_STORE %q: expected postgres or sqlite", c.Store.Driver)
	}

	switch c.Storage.Driver {
	case "local":
	case "minio":
		if c.Storage.MinIO.Endpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required when STORAGE_DRIVER=minio")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q: expected local or minio", c.Storage.Driver)
	}

	switch c.Routing.Format {
	case "geojson", "json":
	default:
		return fmt.Errorf("unknown ORS_FORMAT %q: expected geojson or json", c.Routing.Format)
	}

	if c.Routing.AvoidRadius < 0 || c.Routing.AvoidRadius > geo.MaxAvoidRadius {
		return fmt.Errorf("AVOID_RADIUS must be between 0 and %v meters, got %v", geo.MaxAvoidRadius, c.Routing.AvoidRadius)
	}

	if !domain.IsRoutingProfile(c.Routing.Profile) {
		return fmt.Errorf("unknown ORS_PROFILE %q", c.Routing.Profile)
	}

	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// RedisEnabled - кеш и события включены, только если задан REDIS_HOST
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}
