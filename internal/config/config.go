package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StoreConfig selects the collection-store driver: "memory", "file" or
// "postgres".
type StoreConfig struct {
	Driver          string
	Path            string
	DSN             string
	MaxOpen         int
	ConnMaxLifetime time.Duration
}

// StorageConfig selects the artifact-store driver: "fs" or "minio".
type StorageConfig struct {
	Driver    string
	LocalPath string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

type SecurityConfig struct {
	UserSecret        string
	DeviceSecret      string
	UserTokenTTL      time.Duration
	DeviceTokenTTL    time.Duration
	SessionTTL        time.Duration
	LegacyDeviceToken string
	AdminUsername     string
	AdminPassword     string
}

// EventsConfig selects the outbox driver: "channel" or "redis".
type EventsConfig struct {
	Driver     string
	RedisAddr  string
	RedisDB    int
	Stream     string
	BufferSize int
}

type GatewayConfig struct {
	BaseURL       string
	Username      string
	Password      string
	PublicBaseURL string
	Timeout       time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Store            StoreConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Events           EventsConfig
	Gateway          GatewayConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("PARCELBOX")
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

	if cfg.Security.UserSecret == cfg.Security.DeviceSecret {
		return nil, fmt.Errorf("user and device token secrets must differ")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "./db")
	v.SetDefault("store.maxopen", 10)
	v.SetDefault("store.connmaxlifetime", "30m")

	v.SetDefault("storage.driver", "fs")
	v.SetDefault("storage.localpath", "./storage")
	v.SetDefault("storage.bucket", "parcelbox-photos")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	// Development fallbacks. The two signing secrets stay distinct even when
	// defaulted so a user token can never double as a device token.
	v.SetDefault("security.usersecret", "parcelbox_user_secret_change_in_production")
	v.SetDefault("security.devicesecret", "parcelbox_device_secret_change_in_production")
	v.SetDefault("security.usertokenttl", "24h")
	v.SetDefault("security.devicetokenttl", "8760h") // 365 days
	v.SetDefault("security.sessionttl", "24h")
	v.SetDefault("security.legacydevicetoken", "")
	v.SetDefault("security.adminusername", "admin")
	v.SetDefault("security.adminpassword", "")

	v.SetDefault("events.driver", "channel")
	v.SetDefault("events.redisaddr", "127.0.0.1:6379")
	v.SetDefault("events.redisdb", 0)
	v.SetDefault("events.stream", "parcelbox:events")
	v.SetDefault("events.buffersize", 64)

	v.SetDefault("gateway.publicbaseurl", "http://localhost:8080")
	v.SetDefault("gateway.timeout", "15s")
}
