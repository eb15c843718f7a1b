package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/storefront-backend/internal/idempotency"
	"github.com/yungbote/storefront-backend/internal/observability"
	"github.com/yungbote/storefront-backend/internal/platform/envutil"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/platform/paygateway"
	"github.com/yungbote/storefront-backend/internal/platform/sendgrid"
	"github.com/yungbote/storefront-backend/internal/platform/stocknotify"
)

// Config is resolved as defaults, then the optional CONFIG_FILE yaml overlay,
// then environment variables.
type Config struct {
	HTTPAddr    string   `yaml:"http_addr"`
	CORSOrigins []string `yaml:"cors_origins"`

	DBDriver         string `yaml:"db_driver"`
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresName     string `yaml:"postgres_name"`
	SQLitePath       string `yaml:"sqlite_path"`

	JWTSecretKey string `yaml:"jwt_secret_key"`

	IdempotencyBackend   string        `yaml:"idempotency_backend"`
	IdempotencyWindow    time.Duration `yaml:"idempotency_window"`
	IdempotencyRetention time.Duration `yaml:"idempotency_retention"`
	PaymentInFlight      time.Duration `yaml:"payment_in_flight_window"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	StockChannel      string `yaml:"stock_channel"`
	LowStockThreshold int    `yaml:"low_stock_threshold"`

	SendGridAPIKey    string   `yaml:"sendgrid_api_key"`
	SendGridFromEmail string   `yaml:"sendgrid_from_email"`
	SendGridFromName  string   `yaml:"sendgrid_from_name"`
	LowStockEmails    []string `yaml:"low_stock_alert_emails"`

	GatewayDeclineToken string        `yaml:"gateway_decline_token"`
	GatewayErrorToken   string        `yaml:"gateway_error_token"`
	GatewayLatency      time.Duration `yaml:"gateway_latency"`

	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsAddr    string `yaml:"metrics_addr"`

	SLOEnabled       bool          `yaml:"slo_enabled"`
	SLOInterval      time.Duration `yaml:"slo_interval"`
	SLOWindow        time.Duration `yaml:"slo_window"`
	SLOAlertWebhook  string        `yaml:"slo_alert_webhook"`
	SLOAlertOwner    string        `yaml:"slo_alert_owner"`
	SLOAPITarget     float64       `yaml:"slo_api_availability_target"`
	SLOPaymentTarget float64       `yaml:"slo_payment_success_target"`

	OtelEnabled     bool    `yaml:"otel_enabled"`
	OtelServiceName string  `yaml:"otel_service_name"`
	OtelEnvironment string  `yaml:"otel_environment"`
	OtelVersion     string  `yaml:"otel_version"`
	OtelEndpoint    string  `yaml:"otel_endpoint"`
	OtelHeaders     string  `yaml:"otel_headers"`
	OtelInsecure    bool    `yaml:"otel_insecure"`
	OtelSampleRatio float64 `yaml:"otel_sample_ratio"`
}

func defaultConfig() Config {
	return Config{
		HTTPAddr: ":8080",
		CORSOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:5173",
		},
		DBDriver:             "postgres",
		PostgresHost:         "localhost",
		PostgresPort:         "5432",
		PostgresUser:         "postgres",
		PostgresName:         "storefront",
		SQLitePath:           "storefront.db",
		JWTSecretKey:         "defaultsecret",
		IdempotencyBackend:   "memory",
		IdempotencyWindow:    idempotency.DefaultWindow,
		IdempotencyRetention: idempotency.DefaultRetention,
		PaymentInFlight:      idempotency.DefaultWindow,
		StockChannel:         stocknotify.DefaultChannel,
		LowStockThreshold:    5,
		GatewayDeclineToken:  paygateway.DefaultDeclineToken,
		GatewayErrorToken:    paygateway.DefaultErrorToken,
		MetricsAddr:          ":9090",
		SLOInterval:          time.Minute,
		SLOWindow:            24 * time.Hour,
		SLOAPITarget:         0.995,
		SLOPaymentTarget:     0.9,
		OtelServiceName:      "storefront",
		OtelEnvironment:      "development",
		OtelSampleRatio:      1,
	}
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := defaultConfig()
	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
		log.Info("Config file loaded", "path", path)
	}
	cfg.overlayEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if cfg.JWTSecretKey == "defaultsecret" {
		log.Warn("JWT_SECRET_KEY not set, using the development default")
	}
	log.Debug("Config resolved",
		"http_addr", cfg.HTTPAddr,
		"db_driver", cfg.DBDriver,
		"idempotency_backend", cfg.IdempotencyBackend,
		"metrics_enabled", cfg.MetricsEnabled,
		"otel_enabled", cfg.OtelEnabled,
	)
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	c.HTTPAddr = envutil.String("HTTP_ADDR", c.HTTPAddr)
	if origins := envutil.String("CORS_ORIGINS", ""); origins != "" {
		c.CORSOrigins = splitList(origins)
	}

	c.DBDriver = strings.ToLower(envutil.String("DB_DRIVER", c.DBDriver))
	c.PostgresHost = envutil.String("POSTGRES_HOST", c.PostgresHost)
	c.PostgresPort = envutil.String("POSTGRES_PORT", c.PostgresPort)
	c.PostgresUser = envutil.String("POSTGRES_USER", c.PostgresUser)
	c.PostgresPassword = envutil.String("POSTGRES_PASSWORD", c.PostgresPassword)
	c.PostgresName = envutil.String("POSTGRES_NAME", c.PostgresName)
	c.SQLitePath = envutil.String("SQLITE_PATH", c.SQLitePath)

	c.JWTSecretKey = envutil.String("JWT_SECRET_KEY", c.JWTSecretKey)

	c.IdempotencyBackend = strings.ToLower(envutil.String("IDEMPOTENCY_BACKEND", c.IdempotencyBackend))
	c.IdempotencyWindow = envutil.Duration("IDEMPOTENCY_WINDOW", c.IdempotencyWindow)
	c.IdempotencyRetention = envutil.Duration("IDEMPOTENCY_RETENTION", c.IdempotencyRetention)
	c.PaymentInFlight = envutil.Duration("PAYMENT_IN_FLIGHT_WINDOW", c.PaymentInFlight)

	c.RedisAddr = envutil.String("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = envutil.String("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = envutil.Int("REDIS_DB", c.RedisDB)

	c.StockChannel = envutil.String("STOCK_CHANNEL", c.StockChannel)
	c.LowStockThreshold = envutil.Int("LOW_STOCK_THRESHOLD", c.LowStockThreshold)
	c.SendGridAPIKey = envutil.String("SENDGRID_API_KEY", c.SendGridAPIKey)
	c.SendGridFromEmail = envutil.String("SENDGRID_FROM_EMAIL", c.SendGridFromEmail)
	c.SendGridFromName = envutil.String("SENDGRID_FROM_NAME", c.SendGridFromName)
	if emails := envutil.String("LOW_STOCK_ALERT_EMAILS", ""); emails != "" {
		c.LowStockEmails = splitList(emails)
	}

	c.GatewayDeclineToken = envutil.String("GATEWAY_DECLINE_TOKEN", c.GatewayDeclineToken)
	c.GatewayErrorToken = envutil.String("GATEWAY_ERROR_TOKEN", c.GatewayErrorToken)
	c.GatewayLatency = envutil.Duration("GATEWAY_LATENCY", c.GatewayLatency)

	c.MetricsEnabled = envutil.Bool("METRICS_ENABLED", c.MetricsEnabled)
	c.MetricsAddr = envutil.String("METRICS_ADDR", c.MetricsAddr)

	c.SLOEnabled = envutil.Bool("SLO_ENABLED", c.SLOEnabled)
	c.SLOInterval = envutil.Duration("SLO_EVAL_INTERVAL", c.SLOInterval)
	c.SLOWindow = envutil.Duration("SLO_WINDOW", c.SLOWindow)
	c.SLOAlertWebhook = envutil.String("SLO_ALERT_WEBHOOK_URL", c.SLOAlertWebhook)
	c.SLOAlertOwner = envutil.String("SLO_ALERT_OWNER", c.SLOAlertOwner)
	c.SLOAPITarget = envutil.Float("SLO_API_AVAIL_TARGET", c.SLOAPITarget)
	c.SLOPaymentTarget = envutil.Float("SLO_PAYMENT_SUCCESS_TARGET", c.SLOPaymentTarget)

	c.OtelEnabled = envutil.Bool("OTEL_ENABLED", c.OtelEnabled)
	c.OtelServiceName = envutil.String("OTEL_SERVICE_NAME", c.OtelServiceName)
	c.OtelEnvironment = envutil.String("OTEL_ENVIRONMENT", c.OtelEnvironment)
	c.OtelVersion = envutil.String("OTEL_SERVICE_VERSION", c.OtelVersion)
	c.OtelEndpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", c.OtelEndpoint)
	c.OtelHeaders = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", c.OtelHeaders)
	c.OtelInsecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", c.OtelInsecure)
	c.OtelSampleRatio = envutil.Float("OTEL_SAMPLE_RATIO", c.OtelSampleRatio)
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", c.DBDriver)
	}
	switch c.IdempotencyBackend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("IDEMPOTENCY_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unsupported IDEMPOTENCY_BACKEND %q (want memory or redis)", c.IdempotencyBackend)
	}
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		return fmt.Errorf("JWT_SECRET_KEY must not be empty")
	}
	if c.IdempotencyWindow <= 0 {
		return fmt.Errorf("IDEMPOTENCY_WINDOW must be positive")
	}
	if len(c.LowStockEmails) > 0 && strings.TrimSpace(c.SendGridAPIKey) == "" {
		return fmt.Errorf("LOW_STOCK_ALERT_EMAILS requires SENDGRID_API_KEY")
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD must not be negative")
	}
	return nil
}

func (c Config) IdempotencyConfig() idempotency.Config {
	return idempotency.Config{Window: c.IdempotencyWindow, Retention: c.IdempotencyRetention}
}

func (c Config) GatewayConfig() paygateway.Config {
	return paygateway.Config{
		DeclineToken: c.GatewayDeclineToken,
		ErrorToken:   c.GatewayErrorToken,
		Latency:      c.GatewayLatency,
	}
}

func (c Config) SendGridConfig() sendgrid.Config {
	return sendgrid.Config{
		APIKey:           c.SendGridAPIKey,
		DefaultFromEmail: c.SendGridFromEmail,
		DefaultFromName:  c.SendGridFromName,
		MaxRetries:       3,
	}
}

func (c Config) OtelConfig() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     c.OtelEnabled,
		ServiceName: c.OtelServiceName,
		Environment: c.OtelEnvironment,
		Version:     c.OtelVersion,
		SampleRatio: c.OtelSampleRatio,
		Endpoint:    c.OtelEndpoint,
		Headers:     observability.ParseOtelHeaders(c.OtelHeaders),
		Insecure:    c.OtelInsecure,
	}
}

func (c Config) SLOConfig() observability.SLOConfig {
	return observability.SLOConfig{
		Enabled:               c.SLOEnabled,
		Interval:              c.SLOInterval,
		Window:                c.SLOWindow,
		APIAvailabilityTarget: c.SLOAPITarget,
		PaymentSuccessTarget:  c.SLOPaymentTarget,
		AlertWebhook:          c.SLOAlertWebhook,
		AlertOwner:            c.SLOAlertOwner,
	}
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
