package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Cron    CronConfig    `mapstructure:"cron"`
	Checker CheckerConfig `mapstructure:"checker"`
	Quote   QuoteConfig   `mapstructure:"quote"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Sentry  SentryConfig  `mapstructure:"sentry"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr     string `mapstructure:"http_addr"`
	AdminToken   string `mapstructure:"admin_token"`
	CookieSecure bool   `mapstructure:"cookie_secure"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	StockCheck string `mapstructure:"stock_check"`
}

type CheckerConfig struct {
	FetchConcurrency   int           `mapstructure:"fetch_concurrency"`
	DeliveryTimeout    time.Duration `mapstructure:"delivery_timeout"`
	BandLowerPct       float64       `mapstructure:"band_lower_pct"`
	BandUpperPct       float64       `mapstructure:"band_upper_pct"`
	DefaultPollingRate int           `mapstructure:"default_polling_rate"`
}

type QuoteConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	// MAMode is "indicator" (provider SMA endpoint) or "computed" (SMA over daily closes).
	MAMode   string        `mapstructure:"ma_mode"`
	MAPeriod int           `mapstructure:"ma_period"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NotifyConfig struct {
	Channels        []string              `mapstructure:"channels"`
	NotificationAPI NotificationAPIConfig `mapstructure:"notificationapi"`
	Telegram        TelegramConfig        `mapstructure:"telegram"`
	Slack           SlackConfig           `mapstructure:"slack"`
	Webhook         WebhookConfig         `mapstructure:"webhook"`
}

type NotificationAPIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	ClientID       string        `mapstructure:"client_id"`
	ClientSecret   string        `mapstructure:"client_secret"`
	NotificationID string        `mapstructure:"notification_id"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

type WebhookConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	PINPepper   string        `mapstructure:"pin_pepper"`
	CookieName  string        `mapstructure:"cookie_name"`
	TokenIssuer string        `mapstructure:"token_issuer"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

// legacyEnv maps config keys to the environment names used by earlier
// deployments. SW_-prefixed names always win.
var legacyEnv = map[string]string{
	"db.dsn":                                 "DATABASE_URL",
	"quote.api_key":                          "ALPHA_VANTAGE_API_KEY",
	"notify.notificationapi.client_id":       "NOTIFICATIONAPI_CLIENT_ID",
	"notify.notificationapi.client_secret":   "NOTIFICATIONAPI_CLIENT_SECRET",
	"notify.notificationapi.notification_id": "NOTIFICATIONAPI_NOTIFICATION_ID",
	"auth.jwt_secret":                        "SECRET_KEY",
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := "SW_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return Config{}, err
		}
	}

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8000")
	v.SetDefault("server.admin_token", "")
	v.SetDefault("server.cookie_secure", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "stock_tracker.db")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.stock_check", "@every 1h")

	v.SetDefault("checker.fetch_concurrency", 4)
	v.SetDefault("checker.delivery_timeout", "10s")
	v.SetDefault("checker.band_lower_pct", -15.0)
	v.SetDefault("checker.band_upper_pct", 0.0)
	v.SetDefault("checker.default_polling_rate", 24)

	v.SetDefault("quote.base_url", "https://www.alphavantage.co/query")
	v.SetDefault("quote.api_key", "demo")
	v.SetDefault("quote.timeout", "10s")
	v.SetDefault("quote.requests_per_minute", 5)
	v.SetDefault("quote.ma_mode", "indicator")
	v.SetDefault("quote.ma_period", 200)
	v.SetDefault("quote.cache_ttl", "15m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("notify.channels", []string{"notificationapi"})
	v.SetDefault("notify.notificationapi.base_url", "https://api.eu.notificationapi.com")
	v.SetDefault("notify.notificationapi.client_id", "")
	v.SetDefault("notify.notificationapi.client_secret", "")
	v.SetDefault("notify.notificationapi.notification_id", "")
	v.SetDefault("notify.notificationapi.timeout", "10s")
	v.SetDefault("notify.telegram.bot_token", "")
	v.SetDefault("notify.telegram.chat_id", 0)
	v.SetDefault("notify.slack.webhook_url", "")
	v.SetDefault("notify.webhook.url", "")
	v.SetDefault("notify.webhook.timeout", "5s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "168h")
	v.SetDefault("auth.pin_pepper", "")
	v.SetDefault("auth.cookie_name", "access_token")
	v.SetDefault("auth.token_issuer", "stockwatch")

	v.SetDefault("sentry.dsn", "")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Notify.Channels = splitChannels(cfg.Notify.Channels)

	return cfg, nil
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.DB.Driver) {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("db.driver %q: want postgres or sqlite", c.DB.Driver))
	}
	if strings.TrimSpace(c.DB.DSN) == "" {
		errs = append(errs, errors.New("db.dsn is empty"))
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth.jwt_secret is empty"))
	}
	if c.Checker.BandLowerPct > c.Checker.BandUpperPct {
		errs = append(errs, fmt.Errorf("checker band [%v, %v] is inverted", c.Checker.BandLowerPct, c.Checker.BandUpperPct))
	}
	if c.Checker.DefaultPollingRate < 1 {
		errs = append(errs, errors.New("checker.default_polling_rate must be >= 1"))
	}
	switch strings.ToLower(c.Quote.MAMode) {
	case "indicator", "computed":
	default:
		errs = append(errs, fmt.Errorf("quote.ma_mode %q: want indicator or computed", c.Quote.MAMode))
	}
	if c.Quote.MAPeriod < 2 {
		errs = append(errs, errors.New("quote.ma_period must be >= 2"))
	}
	return errors.Join(errs...)
}

// splitChannels accepts both YAML lists and the comma separated form
// environment variables produce.
func splitChannels(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, raw := range in {
		for _, part := range strings.Split(raw, ",") {
			name := strings.ToLower(strings.TrimSpace(part))
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
