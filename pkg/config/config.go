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

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Roster       RosterConfig
	Notification NotificationConfig
	Lessons      LessonConfig
	Seed         SeedConfig
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
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RosterConfig tunes roster defaults and cache behaviour.
type RosterConfig struct {
	BaselinePricePerHour float64
	AvatarURLTemplate    string
	EligibleCacheTTL     time.Duration
}

// NotificationConfig selects the outbound notification strategy.
// Mode is one of "webhook", "mailto" or "off".
type NotificationConfig struct {
	Mode       string
	WebhookURL string
	Recipient  string
	Timeout    time.Duration
	Workers    int
	BufferSize int
}

// LessonConfig controls lesson room id derivation.
type LessonConfig struct {
	RoomPrefix string
}

// SeedConfig toggles catalog and demo-data seeding at startup.
type SeedConfig struct {
	Enabled    bool
	AdminEmail string
	AdminPass  string
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
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Roster = RosterConfig{
		BaselinePricePerHour: v.GetFloat64("ROSTER_BASELINE_PRICE"),
		AvatarURLTemplate:    v.GetString("ROSTER_AVATAR_URL_TEMPLATE"),
		EligibleCacheTTL:     parseDuration(v.GetString("ROSTER_ELIGIBLE_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Notification = NotificationConfig{
		Mode:       strings.ToLower(v.GetString("NOTIFY_MODE")),
		WebhookURL: v.GetString("NOTIFY_WEBHOOK_URL"),
		Recipient:  v.GetString("NOTIFY_RECIPIENT"),
		Timeout:    parseDuration(v.GetString("NOTIFY_TIMEOUT"), 10*time.Second),
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		BufferSize: v.GetInt("NOTIFY_BUFFER_SIZE"),
	}

	cfg.Lessons = LessonConfig{
		RoomPrefix: v.GetString("LESSON_ROOM_PREFIX"),
	}

	cfg.Seed = SeedConfig{
		Enabled:    v.GetBool("SEED_DEMO_DATA"),
		AdminEmail: v.GetString("SEED_ADMIN_EMAIL"),
		AdminPass:  v.GetString("SEED_ADMIN_PASSWORD"),
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
	v.SetDefault("DB_NAME", "edumarket")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "edumarket-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ROSTER_BASELINE_PRICE", 1500)
	v.SetDefault("ROSTER_AVATAR_URL_TEMPLATE", "https://picsum.photos/seed/%s/200/200")
	v.SetDefault("ROSTER_ELIGIBLE_CACHE_TTL", "5m")

	v.SetDefault("NOTIFY_MODE", "off")
	v.SetDefault("NOTIFY_WEBHOOK_URL", "")
	v.SetDefault("NOTIFY_RECIPIENT", "")
	v.SetDefault("NOTIFY_TIMEOUT", "10s")
	v.SetDefault("NOTIFY_WORKERS", 1)
	v.SetDefault("NOTIFY_BUFFER_SIZE", 16)

	v.SetDefault("LESSON_ROOM_PREFIX", "edumarket")

	v.SetDefault("SEED_DEMO_DATA", false)
	v.SetDefault("SEED_ADMIN_EMAIL", "admin@edumarket.local")
	v.SetDefault("SEED_ADMIN_PASSWORD", "")
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
