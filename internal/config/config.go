package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port              int
	DBDSN             string
	RedisURL          string
	JWTSecret         string
	JWTAdminTTL       time.Duration
	JWTRefreshTTL     time.Duration
	CheckinSessionTTL time.Duration
	AllowOrigins      []string
	RateLimitCheckin  RateLimitConfig
	RateLimitAuth     RateLimitConfig
	Webhooks          WebhookConfig
	Dashboard         DashboardConfig
	Telemetry         TelemetryConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// WebhookConfig lista os destinos das notificações externas. URL vazia desativa o canal.
type WebhookConfig struct {
	TaskURL        string
	InformesURL    string
	SalesURL       string
	CallURL        string
	TelaoLegacyURL string
	TelaoURL       string
	Timeout        time.Duration
}

// DashboardConfig controla o laço de polling dos painéis.
type DashboardConfig struct {
	Enabled  bool
	Interval time.Duration
}

// TelemetryConfig aponta o coletor OTLP. Endpoint vazio desliga o tracing.
type TelemetryConfig struct {
	ServiceName  string
	OTLPEndpoint string
	OTLPInsecure bool
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = strings.TrimSpace(getEnv("DB_DSN", ""))
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}

	cfg.RedisURL = strings.TrimSpace(getEnv("REDIS_URL", ""))
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	if cfg.JWTAdminTTL, err = parseDurationEnv("JWT_ADMIN_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.JWTRefreshTTL, err = parseDurationEnv("JWT_REFRESH_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CheckinSessionTTL, err = parseDurationEnv("CHECKIN_SESSION_TTL", 16*time.Hour); err != nil {
		return nil, err
	}

	for _, origin := range strings.Split(getEnv("ALLOW_ORIGINS", ""), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	// check-in é público e recebe tentativas de código; limite mais baixo.
	cfg.RateLimitCheckin = RateLimitConfig{RequestsPerSecond: 2, Burst: 10}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 40}

	cfg.Webhooks = WebhookConfig{
		TaskURL:        strings.TrimSpace(getEnv("WEBHOOK_TASK_URL", "")),
		InformesURL:    strings.TrimSpace(getEnv("WEBHOOK_INFORMES_URL", "")),
		SalesURL:       strings.TrimSpace(getEnv("WEBHOOK_SALES_URL", "")),
		CallURL:        strings.TrimSpace(getEnv("WEBHOOK_CALL_URL", "")),
		TelaoLegacyURL: strings.TrimSpace(getEnv("WEBHOOK_TELAO_LEGACY_URL", "")),
		TelaoURL:       strings.TrimSpace(getEnv("WEBHOOK_TELAO_URL", "")),
	}
	if cfg.Webhooks.Timeout, err = parseDurationEnv("WEBHOOK_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	cfg.Dashboard.Enabled, err = parseBoolEnv("DASHBOARD_ENABLED", true)
	if err != nil {
		return nil, err
	}
	if cfg.Dashboard.Interval, err = parseDurationEnv("DASHBOARD_POLL_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}

	cfg.Telemetry.ServiceName = strings.TrimSpace(getEnv("OTEL_SERVICE_NAME", "eventos-api"))
	cfg.Telemetry.OTLPEndpoint = strings.TrimSpace(getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""))
	if cfg.Telemetry.OTLPInsecure, err = parseBoolEnv("OTEL_EXPORTER_OTLP_INSECURE", false); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil || dur <= 0 {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, errors.New(key + " inválido")
	}
	return b, nil
}
