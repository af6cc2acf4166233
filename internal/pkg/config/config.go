package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Getter resolves a key with a default. env.GetEnv satisfies it.
type Getter func(key, def string) string

const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour

	// SendGrid dynamic template used for the supporter receipt.
	DefaultPaymentSuccessTemplateID = "d-22be8b6cfbf44476bf1c0a004b1937d2"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Cookie   CookieConfig
	Stripe   StripeConfig
	Mail     MailConfig
	S3       S3Config
	Cache    CacheConfig
	Queue    QueueConfig
	CORS     CORSConfig
	OAuth    OAuthConfig
	Monitor  MonitorConfig
	Log      LogConfig
}

type AppConfig struct {
	Env         string `validate:"oneof=dev test prod"`
	Host        string
	Port        string `validate:"required,numeric"`
	PublicURL   string `validate:"required,url"`
	FrontendURL string `validate:"required,url"`
	BodyLimit   int    `validate:"gt=0"`
}

func (a AppConfig) IsDev() bool { return a.Env == "dev" }

// Addr is the listen address for the HTTP server.
func (a AppConfig) Addr() string { return a.Host + ":" + a.Port }

type DatabaseConfig struct {
	URL          string `validate:"required"`
	MaxOpenConns int    `validate:"gte=0"`
	MaxIdleConns int    `validate:"gte=0"`
	AutoMigrate  bool
}

type JWTConfig struct {
	AccessSecret  string        `validate:"required"`
	RefreshSecret string        `validate:"required,nefield=AccessSecret"`
	Algorithm     string        `validate:"oneof=HS256 HS384 HS512"`
	AccessTTL     time.Duration `validate:"gt=0"`
	RefreshTTL    time.Duration `validate:"gt=0"`
}

type CookieConfig struct {
	Domain string
	Secure bool
}

type StripeConfig struct {
	SecretKey             string
	CheckoutWebhookSecret string
	ConnectWebhookSecret  string
	FeePercent            int64 `validate:"gte=0,lte=100"`
	ConnectReturnURL      string
	ConnectRefreshURL     string
	ConnectSuccessURL     string
	ConnectFailureURL     string
}

type MailConfig struct {
	SendGridAPIKey           string
	FromEmail                string `validate:"omitempty,email"`
	FromName                 string
	PaymentSuccessTemplateID string
}

type S3Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	EndpointURL     string
	PublicBaseURL   string
}

// Enabled reports whether object storage is configured.
func (s S3Config) Enabled() bool {
	return s.Bucket != "" && s.Region != ""
}

type CacheConfig struct {
	Host     string
	Port     string
	Password string
	DB       int `validate:"gte=0,lte=15"`
}

func (c CacheConfig) Addr() string { return c.Host + ":" + c.Port }

type QueueConfig struct {
	Workers   int `validate:"gt=0"`
	InProcess bool
}

type CORSConfig struct {
	AllowOrigins string
}

type OAuthConfig struct {
	GoogleKey    string
	GoogleSecret string
}

func (o OAuthConfig) GoogleEnabled() bool {
	return o.GoogleKey != "" && o.GoogleSecret != ""
}

type MonitorConfig struct {
	User     string
	Password string
}

type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
	JSON  bool
}

// Load builds the configuration from get and validates it.
func Load(get Getter) (*Config, error) {
	var errs []string
	parseInt := func(key, def string) int {
		raw := get(key, def)
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: not an integer: %q", key, raw))
		}
		return v
	}
	parseBool := func(key, def string) bool {
		raw := get(key, def)
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: not a boolean: %q", key, raw))
		}
		return v
	}
	parseDuration := func(key, def string, unit time.Duration) time.Duration {
		raw := get(key, def)
		d, err := ParseDuration(raw, unit)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
		return d
	}

	appEnv := get("APP_ENV", "prod")
	frontend := strings.TrimRight(get("FRONTEND_URL", "http://localhost:3000"), "/")
	port := get("APP_PORT", "8000")
	public := strings.TrimRight(get("PUBLIC_URL", "http://localhost:"+port), "/")

	cfg := &Config{
		App: AppConfig{
			Env:         appEnv,
			Host:        get("APP_HOST", "0.0.0.0"),
			Port:        port,
			PublicURL:   public,
			FrontendURL: frontend,
			BodyLimit:   parseInt("APP_BODY_LIMIT", strconv.Itoa(12*1024*1024)),
		},
		Database: DatabaseConfig{
			URL:          get("DATABASE_URL", ""),
			MaxOpenConns: parseInt("DB_MAX_OPEN_CONNS", "20"),
			MaxIdleConns: parseInt("DB_MAX_IDLE_CONNS", "5"),
			AutoMigrate:  parseBool("DB_AUTO_MIGRATE", "false"),
		},
		JWT: JWTConfig{
			AccessSecret:  get("JWT_SECRET_KEY", ""),
			RefreshSecret: get("JWT_REFRESH_SECRET_KEY", ""),
			Algorithm:     get("JWT_ALGORITHM", "HS256"),
			AccessTTL:     parseDuration("ACCESS_TOKEN_EXPIRE_MINUTES", "30", time.Minute),
			RefreshTTL:    parseDuration("REFRESH_TOKEN_EXPIRE_DAYS", "30", 24*time.Hour),
		},
		Cookie: CookieConfig{
			Domain: get("COOKIE_DOMAIN", ""),
			Secure: parseBool("COOKIE_SECURE", strconv.FormatBool(appEnv == "prod")),
		},
		Stripe: StripeConfig{
			SecretKey:             get("STRIPE_SECRET_KEY", ""),
			CheckoutWebhookSecret: get("STRIPE_WEBHOOK_SECRET_CHECKOUT", ""),
			ConnectWebhookSecret:  get("STRIPE_WEBHOOK_SECRET_CONNECT", ""),
			FeePercent:            int64(parseInt("APPLICATION_FEE_PERCENTAGE", "5")),
			ConnectReturnURL:      get("STRIPE_CONNECT_RETURN_URL", public+"/api/v1/stripe/connect/callback"),
			ConnectRefreshURL:     get("STRIPE_CONNECT_REFRESH_URL", frontend+"/bank/connect?result=cancel"),
			ConnectSuccessURL:     get("STRIPE_CONNECT_SUCCESS_URL", frontend+"/bank/connect/success"),
			ConnectFailureURL:     get("STRIPE_CONNECT_FAILED_URL", frontend+"/bank/connect?result=cancel"),
		},
		Mail: MailConfig{
			SendGridAPIKey:           get("SENDGRID_API_KEY", ""),
			FromEmail:                get("MAIL_FROM_EMAIL", "no-reply@tubtip.co"),
			FromName:                 get("MAIL_FROM_NAME", "TubTip"),
			PaymentSuccessTemplateID: get("SENDGRID_PAYMENT_SUCCESS_TEMPLATE_ID", DefaultPaymentSuccessTemplateID),
		},
		S3: S3Config{
			Bucket:          get("AWS_S3_BUCKET", ""),
			Region:          get("AWS_REGION", ""),
			AccessKeyID:     get("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: get("AWS_SECRET_ACCESS_KEY", ""),
			EndpointURL:     get("AWS_S3_ENDPOINT_URL", ""),
			PublicBaseURL:   strings.TrimRight(get("AWS_S3_PUBLIC_BASE_URL", ""), "/"),
		},
		Cache: CacheConfig{
			Host:     get("REDIS_HOST", "localhost"),
			Port:     get("REDIS_PORT", "6379"),
			Password: get("REDIS_PASSWORD", ""),
			DB:       parseInt("REDIS_DB", "0"),
		},
		Queue: QueueConfig{
			Workers:   parseInt("QUEUE_WORKERS", "3"),
			InProcess: parseBool("QUEUE_INPROCESS", "false"),
		},
		CORS: CORSConfig{
			AllowOrigins: get("CORS_ALLOW_ORIGINS", frontend),
		},
		OAuth: OAuthConfig{
			GoogleKey:    get("GOOGLE_KEY", ""),
			GoogleSecret: get("GOOGLE_SECRET", ""),
		},
		Monitor: MonitorConfig{
			User:     get("MONITOR_USER", "admin"),
			Password: get("MONITOR_PASSWORD", ""),
		},
		Log: LogConfig{
			Level: strings.ToLower(get("LOG_LEVEL", "info")),
			JSON:  parseBool("LOG_JSON", strconv.FormatBool(appEnv == "prod")),
		},
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ParseDuration accepts a Go duration string ("45m") or a bare integer
// counted in unit.
func ParseDuration(raw string, unit time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * unit, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("not a duration: %q", raw)
	}
	return d, nil
}
