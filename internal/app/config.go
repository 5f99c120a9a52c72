package app

import (
	"strings"
	"time"

	"github.com/yungbote/workshop-backend/internal/data/db"
	"github.com/yungbote/workshop-backend/internal/observability"
	"github.com/yungbote/workshop-backend/internal/platform/envutil"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

var defaultGrandfatherCutoff = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type Config struct {
	Port            string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	JWTSecret       string

	DB db.Config

	RedisAddr  string
	LockTTL    time.Duration
	LockWait   time.Duration
	LockPrefix string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	OpenAITimeout    time.Duration
	OpenAIMaxRetries int

	SummaryTimeout         time.Duration
	SummaryFallbackTimeout time.Duration
	SummaryMaxWords        int

	GateEnabled           bool
	GateStageID           string
	GateGrandfatherCutoff time.Time

	StagesFile string

	MetricsEnabled  bool
	DBStatsInterval time.Duration
	Otel            observability.OtelConfig
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:            envutil.String("PORT", "8080"),
		ShutdownTimeout: envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		CORSOrigins:     splitList(envutil.String("CORS_ORIGINS", "")),
		JWTSecret:       envutil.String("AUTH_JWT_SECRET", ""),

		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", "postgres"),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "workshop"),
			SQLitePath:       envutil.String("SQLITE_PATH", "workshop.db"),
		},

		RedisAddr:  envutil.String("REDIS_ADDR", ""),
		LockTTL:    envutil.Seconds("WORKSHOP_LOCK_TTL_SECONDS", 60*time.Second),
		LockWait:   envutil.Seconds("WORKSHOP_LOCK_WAIT_SECONDS", 10*time.Second),
		LockPrefix: envutil.String("WORKSHOP_LOCK_PREFIX", "workshop:lock:"),

		OpenAIAPIKey:     envutil.String("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    envutil.String("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:      envutil.String("OPENAI_MODEL", "gpt-4.1-mini"),
		OpenAITimeout:    envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 60*time.Second),
		OpenAIMaxRetries: envutil.Int("OPENAI_MAX_RETRIES", 2),

		SummaryTimeout:         envutil.Seconds("SUMMARY_TIMEOUT_SECONDS", 30*time.Second),
		SummaryFallbackTimeout: envutil.Seconds("SUMMARY_FALLBACK_TIMEOUT_SECONDS", 5*time.Second),
		SummaryMaxWords:        envutil.Int("SUMMARY_MAX_WORDS", 150),

		GateEnabled:           envutil.Bool("GATE_ENABLED", true),
		GateStageID:           envutil.String("GATE_STAGE_ID", "user-research"),
		GateGrandfatherCutoff: envutil.Time("GATE_GRANDFATHER_CUTOFF", defaultGrandfatherCutoff),

		StagesFile: envutil.String("WORKSHOP_STAGES_FILE", ""),

		MetricsEnabled:  envutil.Bool("METRICS_ENABLED", true),
		DBStatsInterval: envutil.Seconds("DB_STATS_INTERVAL_SECONDS", 15*time.Second),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "workshop-backend"),
			Environment: envutil.String("OTEL_ENVIRONMENT", envutil.String("APP_ENV", "development")),
			Version:     envutil.String("OTEL_SERVICE_VERSION", "dev"),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: float64(envutil.Int("OTEL_SAMPLE_PERCENT", 100)) / 100,
		},
	}
	if log != nil {
		log.Info("Config loaded",
			"port", cfg.Port,
			"db_driver", cfg.DB.Driver,
			"redis_lock", cfg.RedisAddr != "",
			"openai_configured", cfg.OpenAIAPIKey != "",
			"openai_model", cfg.OpenAIModel,
			"gate_enabled", cfg.GateEnabled,
			"gate_stage_id", cfg.GateStageID,
			"gate_cutoff", cfg.GateGrandfatherCutoff.Format(time.RFC3339),
			"jwt_auth", cfg.JWTSecret != "",
			"metrics_enabled", cfg.MetricsEnabled,
			"otel_enabled", cfg.Otel.Enabled,
		)
	}
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
