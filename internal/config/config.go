package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Record store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Report sinks.
const (
	SinkDatabase = "database"
	SinkNATS     = "nats"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName              string
	AppEnv               string
	AppPort              string
	LogLevel             string
	RecordStoreDriver    string
	RecordStoreDSN       string
	ReportSink           string
	ReportDatabaseURL    string
	NATSURL              string
	NATSSubject          string
	RedisURL             string
	ResultCacheTTL       time.Duration
	JWTSecret            string
	SessionTTL           time.Duration
	TokenTTL             time.Duration
	AIProvider           string
	OpenAIAPIKey         string
	OpenAIModel          string
	OpenAIBaseURL        string
	EvaluationsPerMinute int
	TeacherSeedEmail     string
	TeacherSeedPassword  string
	TeacherSeedName      string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Eval API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("record_store.driver", DriverSQLite)
	v.SetDefault("record_store.dsn", "gema-eval.db")
	v.SetDefault("report.sink", SinkDatabase)
	v.SetDefault("nats.subject", "gema.evaluations.reports")
	v.SetDefault("result_cache.ttl", "10m")
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("jwt.token_ttl", "12h")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("rate_limit.evaluations_per_minute", 10)

	cacheTTL, err := parseDuration(v, "result_cache.ttl", 10*time.Minute)
	if err != nil {
		return Config{}, err
	}
	sessionTTL, err := parseDuration(v, "session.ttl", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	tokenTTL, err := parseDuration(v, "jwt.token_ttl", 12*time.Hour)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		LogLevel:             strings.ToLower(v.GetString("log.level")),
		RecordStoreDriver:    strings.ToLower(v.GetString("record_store.driver")),
		RecordStoreDSN:       v.GetString("record_store.dsn"),
		ReportSink:           strings.ToLower(v.GetString("report.sink")),
		ReportDatabaseURL:    v.GetString("report.database_url"),
		NATSURL:              v.GetString("nats.url"),
		NATSSubject:          v.GetString("nats.subject"),
		RedisURL:             v.GetString("redis.url"),
		ResultCacheTTL:       cacheTTL,
		JWTSecret:            v.GetString("jwt.secret"),
		SessionTTL:           sessionTTL,
		TokenTTL:             tokenTTL,
		AIProvider:           strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:         v.GetString("openai_api_key"),
		OpenAIModel:          v.GetString("openai.model"),
		OpenAIBaseURL:        v.GetString("openai.base_url"),
		EvaluationsPerMinute: v.GetInt("rate_limit.evaluations_per_minute"),
		TeacherSeedEmail:     v.GetString("teacher.seed_email"),
		TeacherSeedPassword:  v.GetString("teacher.seed_password"),
		TeacherSeedName:      v.GetString("teacher.seed_name"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.RecordStoreDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return Config{}, fmt.Errorf("unsupported record store driver %q", cfg.RecordStoreDriver)
	}

	switch cfg.ReportSink {
	case SinkDatabase:
	case SinkNATS:
		if cfg.NATSURL == "" {
			return Config{}, fmt.Errorf("nats url must be provided for the nats report sink")
		}
	default:
		return Config{}, fmt.Errorf("unsupported report sink %q", cfg.ReportSink)
	}

	if cfg.EvaluationsPerMinute <= 0 {
		cfg.EvaluationsPerMinute = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
