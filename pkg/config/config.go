package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Uploads    UploadsConfig
	Cloudinary CloudinaryConfig
	Sweeper    SweeperConfig
	Cache      CacheConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// UploadsConfig governs file ingestion limits and local storage placement.
type UploadsConfig struct {
	StorageDir           string
	PublicBasePath       string
	MaxFileSizeBytes     int64
	MaxFilesPerBatch     int
	StrictTypeValidation bool
	SignedURLSecret      string
	SignedURLTTL         time.Duration
}

// CloudinaryConfig configures the cloud blob store used in production mode.
type CloudinaryConfig struct {
	URL    string
	Folder string
}

// SweeperConfig tunes the temporary-attachment reclamation loop.
type SweeperConfig struct {
	Enabled      bool
	Interval     time.Duration
	MaxAge       time.Duration
	MaxRetries   int
	QueryTimeout time.Duration
	SaveTimeout  time.Duration
}

// CacheConfig controls the module detail-view cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxFileSize := v.GetInt64("MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 50 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		StorageDir:           v.GetString("UPLOADS_STORAGE_DIR"),
		PublicBasePath:       v.GetString("UPLOADS_PUBLIC_BASE_PATH"),
		MaxFileSizeBytes:     maxFileSize,
		MaxFilesPerBatch:     v.GetInt("UPLOADS_MAX_FILES_PER_BATCH"),
		StrictTypeValidation: v.GetBool("STRICT_FILE_TYPE_VALIDATION"),
		SignedURLSecret:      v.GetString("UPLOADS_SIGNED_URL_SECRET"),
		SignedURLTTL:         parseDuration(v.GetString("UPLOADS_SIGNED_URL_TTL"), 30*time.Minute),
	}

	cfg.Cloudinary = CloudinaryConfig{
		URL:    v.GetString("CLOUDINARY_URL"),
		Folder: v.GetString("CLOUDINARY_FOLDER"),
	}

	cfg.Sweeper = SweeperConfig{
		Enabled:      v.GetBool("ENABLE_SWEEPER"),
		Interval:     parseDuration(v.GetString("SWEEPER_INTERVAL"), time.Hour),
		MaxAge:       parseDuration(v.GetString("SWEEPER_MAX_AGE"), 24*time.Hour),
		MaxRetries:   v.GetInt("SWEEPER_MAX_RETRIES"),
		QueryTimeout: parseDuration(v.GetString("SWEEPER_QUERY_TIMEOUT"), 30*time.Second),
		SaveTimeout:  parseDuration(v.GetString("SWEEPER_SAVE_TIMEOUT"), 15*time.Second),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_MODULE_CACHE"),
		TTL:     parseDuration(v.GetString("MODULE_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "edusphere")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "course-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPLOADS_STORAGE_DIR", "./uploads")
	v.SetDefault("UPLOADS_PUBLIC_BASE_PATH", "/uploads")
	v.SetDefault("MAX_FILE_SIZE", 50*1024*1024)
	v.SetDefault("UPLOADS_MAX_FILES_PER_BATCH", 10)
	v.SetDefault("STRICT_FILE_TYPE_VALIDATION", false)
	v.SetDefault("UPLOADS_SIGNED_URL_SECRET", "dev_uploads_secret")
	v.SetDefault("UPLOADS_SIGNED_URL_TTL", "30m")

	v.SetDefault("CLOUDINARY_URL", "")
	v.SetDefault("CLOUDINARY_FOLDER", "edu_platform")

	v.SetDefault("ENABLE_SWEEPER", true)
	v.SetDefault("SWEEPER_INTERVAL", "1h")
	v.SetDefault("SWEEPER_MAX_AGE", "24h")
	v.SetDefault("SWEEPER_MAX_RETRIES", 3)
	v.SetDefault("SWEEPER_QUERY_TIMEOUT", "30s")
	v.SetDefault("SWEEPER_SAVE_TIMEOUT", "15s")

	v.SetDefault("ENABLE_MODULE_CACHE", false)
	v.SetDefault("MODULE_CACHE_TTL", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
