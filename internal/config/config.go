package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	BasePath     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	// Driver selects the document store: "mongo" or "memory".
	Driver         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	BucketFirmware string
	UseSSL         bool
	Region         string
	PresignTTL     time.Duration
}

type SecurityConfig struct {
	AccessTokenSecret string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type EmailConfig struct {
	SMTP                SMTPConfig
	From                string
	Silent              bool
	RedirectTo          string
	SupportAddress      string
	ConfirmationBaseURL string
	ResetBaseURL        string
	Timeout             time.Duration
}

type FacebookConfig struct {
	AppID     string
	AppSecret string
	GraphURL  string
	Timeout   time.Duration
}

type CatalogConfig struct {
	RefreshInterval      time.Duration
	DefaultTrainingPlans []string
}

type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
	Block   time.Duration
}

type WorkerConfig struct {
	Stream          string
	Group           string
	Consumer        string
	ClaimInterval   time.Duration
	EmailsPerSecond float64
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Mongo            MongoConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Email            EmailConfig
	Facebook         FacebookConfig
	Catalog          CatalogConfig
	RateLimit        RateLimitConfig
	Worker           WorkerConfig
	AllowCORSOrigins []string
}

// POSTURA_EMAIL_SMTP_HOST maps to email.smtp.host.
var envKeyReplacer = strings.NewReplacer(".", "_")

func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("POSTURA")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Security.AccessTokenSecret == "" {
		return errors.New("config: security.accesstokensecret is required")
	}
	switch c.Storage.Driver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	return nil
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.basepath", "/api")
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("mongo.uri", "mongodb://127.0.0.1:27017")
	v.SetDefault("mongo.database", "postura")
	v.SetDefault("mongo.timeout", "10s")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.driver", "mongo")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucketfirmware", "postura-firmware")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.presignttl", "15m")

	v.SetDefault("security.accesstokensecret", "")

	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.redirectto", "")
	v.SetDefault("email.from", "Postura <no-reply@postura.app>")
	v.SetDefault("email.silent", false)
	v.SetDefault("email.supportaddress", "support@postura.app")
	v.SetDefault("email.confirmationbaseurl", "https://app.postura.app/confirm-email")
	v.SetDefault("email.resetbaseurl", "https://app.postura.app/reset-password")
	v.SetDefault("email.timeout", "15s")

	v.SetDefault("facebook.appid", "")
	v.SetDefault("facebook.appsecret", "")
	v.SetDefault("facebook.graphurl", "https://graph.facebook.com")
	v.SetDefault("facebook.timeout", "10s")

	v.SetDefault("catalog.refreshinterval", "5m")
	v.SetDefault("catalog.defaulttrainingplans", []string{"Beginner"})

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.limit", 10)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("ratelimit.block", "5m")

	v.SetDefault("worker.stream", "support:tickets")
	v.SetDefault("worker.group", "support-mailers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.claiminterval", "10s")
	v.SetDefault("worker.emailspersecond", 2)

	v.SetDefault("allowcorsorigins", []string{})
}
