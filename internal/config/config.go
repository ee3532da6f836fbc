package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Auth           AuthConfig
	RateLimit      RateLimitConfig
	CORS           CORSConfig
	Site           SiteConfig
	AdminBootstrap AdminBootstrapConfig
	Email          EmailConfig
	Webhooks       WebhookConfig
	Plugins        PluginConfig
	Monitor        MonitorConfig
	Backups        BackupConfig
	Analytics      AnalyticsConfig
	Recaptcha      RecaptchaConfig
	Logging        LoggingConfig
	Environment    string
}

type ServerConfig struct {
	Host    string
	Port    int
	BaseURL string
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MaxIdle        int
}

type AuthConfig struct {
	JWTSecret        string
	SessionExpiry    time.Duration
	PendingTwoFactor time.Duration
	CSRFKey          string
}

type RateLimitConfig struct {
	PublicPerMinute   int
	AdminPerMinute    int
	LoginPer15Minutes int
	TrustedProxyCIDRs []string
}

type CORSConfig struct {
	AllowedOrigins  []string
	AllowAllOrigins bool
}

// SiteConfig describes the practice itself, used for structured data and
// outgoing email branding.
type SiteConfig struct {
	Name      string
	Telephone string
	LogoURL   string
	Street    string
	Locality  string
	Region    string
	PostCode  string
}

type AdminBootstrapConfig struct {
	Username string
	Password string
	Email    string
}

type EmailConfig struct {
	Enabled      bool
	ResendAPIKey string
	From         string
	StaffNotify  string
}

type WebhookConfig struct {
	Timeout     time.Duration
	MaxAttempts int
}

type PluginConfig struct {
	QueueCapacity int
	MaxAttempts   int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
	ManifestDir   string
}

type MonitorConfig struct {
	BroadcastInterval time.Duration
	ClientSendBuffer  int
}

type BackupConfig struct {
	Dir           string
	RetentionDays int
	Schedule      time.Duration
}

type AnalyticsConfig struct {
	Enabled       bool
	MeasurementID string
	APISecret     string
}

type RecaptchaConfig struct {
	Enabled   bool
	Secret    string
	Threshold float64
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:    getEnvInt("SERVER_PORT", 8080),
			BaseURL: getEnv("SERVER_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConnections: getEnvInt("DATABASE_MAX_CONNECTIONS", 25),
			MaxIdle:        getEnvInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
		},
		Auth: AuthConfig{
			JWTSecret:        getEnv("JWT_SECRET", ""),
			SessionExpiry:    time.Duration(getEnvInt("SESSION_EXPIRY_HOURS", 24)) * time.Hour,
			PendingTwoFactor: time.Duration(getEnvInt("TWO_FACTOR_PENDING_MINUTES", 5)) * time.Minute,
			CSRFKey:          getEnv("CSRF_KEY", ""),
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute:   getEnvInt("RATE_LIMIT_PUBLIC", 120),
			AdminPerMinute:    getEnvInt("RATE_LIMIT_ADMIN", 0),
			LoginPer15Minutes: getEnvInt("RATE_LIMIT_LOGIN", 5),
			TrustedProxyCIDRs: getEnvList("TRUSTED_PROXY_CIDRS"),
		},
		CORS: CORSConfig{
			AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS"),
			AllowAllOrigins: getEnvBool("CORS_ALLOW_ALL", false),
		},
		Site: SiteConfig{
			Name:      getEnv("SITE_NAME", "VitalPages"),
			Telephone: getEnv("SITE_TELEPHONE", ""),
			LogoURL:   getEnv("SITE_LOGO_URL", ""),
			Street:    getEnv("SITE_STREET", ""),
			Locality:  getEnv("SITE_LOCALITY", ""),
			Region:    getEnv("SITE_REGION", ""),
			PostCode:  getEnv("SITE_POSTCODE", ""),
		},
		AdminBootstrap: AdminBootstrapConfig{
			Username: getEnv("ADMIN_USERNAME", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
			Email:    getEnv("ADMIN_EMAIL", ""),
		},
		Email: EmailConfig{
			Enabled:      getEnvBool("EMAIL_ENABLED", false),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", "VitalPages <no-reply@vitalpages.health>"),
			StaffNotify:  getEnv("EMAIL_STAFF_NOTIFY", ""),
		},
		Webhooks: WebhookConfig{
			Timeout:     time.Duration(getEnvInt("WEBHOOK_TIMEOUT_SECONDS", 10)) * time.Second,
			MaxAttempts: getEnvInt("WEBHOOK_MAX_ATTEMPTS", 8),
		},
		Plugins: PluginConfig{
			QueueCapacity: getEnvInt("PLUGIN_QUEUE_CAPACITY", 64),
			MaxAttempts:   getEnvInt("PLUGIN_MAX_ATTEMPTS", 3),
			BaseBackoff:   time.Duration(getEnvInt("PLUGIN_BACKOFF_BASE_SECONDS", 2)) * time.Second,
			MaxBackoff:    time.Duration(getEnvInt("PLUGIN_BACKOFF_MAX_SECONDS", 60)) * time.Second,
			ManifestDir:   getEnv("PLUGIN_MANIFEST_DIR", "./plugins"),
		},
		Monitor: MonitorConfig{
			BroadcastInterval: time.Duration(getEnvInt("MONITOR_INTERVAL_SECONDS", 5)) * time.Second,
			ClientSendBuffer:  getEnvInt("MONITOR_CLIENT_BUFFER", 8),
		},
		Backups: BackupConfig{
			Dir:           getEnv("BACKUP_DIR", "./backups"),
			RetentionDays: getEnvInt("BACKUP_RETENTION_DAYS", 7),
			Schedule:      time.Duration(getEnvInt("BACKUP_SCHEDULE_HOURS", 24)) * time.Hour,
		},
		Analytics: AnalyticsConfig{
			Enabled:       getEnvBool("GA_ENABLED", false),
			MeasurementID: getEnv("GA_MEASUREMENT_ID", ""),
			APISecret:     getEnv("GA_API_SECRET", ""),
		},
		Recaptcha: RecaptchaConfig{
			Enabled:   getEnvBool("RECAPTCHA_ENABLED", false),
			Secret:    getEnv("RECAPTCHA_SECRET", ""),
			Threshold: getEnvFloat("RECAPTCHA_THRESHOLD", 0.5),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Email.Enabled && cfg.Email.ResendAPIKey == "" {
		return Config{}, fmt.Errorf("RESEND_API_KEY is required when EMAIL_ENABLED=true")
	}
	if cfg.Recaptcha.Enabled && cfg.Recaptcha.Secret == "" {
		return Config{}, fmt.Errorf("RECAPTCHA_SECRET is required when RECAPTCHA_ENABLED=true")
	}
	if cfg.Analytics.Enabled && (cfg.Analytics.MeasurementID == "" || cfg.Analytics.APISecret == "") {
		return Config{}, fmt.Errorf("GA_MEASUREMENT_ID and GA_API_SECRET are required when GA_ENABLED=true")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
