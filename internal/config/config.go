package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bassista/mealsync/internal/calendar"
	"github.com/bassista/mealsync/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutDownTimeout    time.Duration
	RequestTimeout     time.Duration
	PingInterval       time.Duration
	CORSAllowedOrigins string
}

type DataConfig struct {
	FilePath        string
	PersistInterval time.Duration
}

// ClientConfig drives the CLI client.
type ClientConfig struct {
	APIURL           string
	PushURL          string
	StateFile        string
	SnapshotInterval time.Duration
	StaleTime        time.Duration
	Granularity      string
	BackoffMin       time.Duration
	BackoffMax       time.Duration
}

type MiscConfig struct {
	GinMode  string
	LogLevel string
}

type Config struct {
	Server ServerConfig
	Data   DataConfig
	Client ClientConfig
	Misc   MiscConfig
}

// LoadConfig reads .env, config.yaml from MEALSYNC_CONFIG_PATH (default
// ./config) and MEALSYNC_* environment variables, in increasing precedence.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WithComponent("config").Warnf("ignoring .env: %v", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getEnvOrDefault("MEALSYNC_CONFIG_PATH", "./config"))

	setDefaults(v)

	// MEALSYNC_SERVER_PORT overrides server.port
	v.SetEnvPrefix("MEALSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
		logger.WithComponent("config").Debug("no config file found, using defaults and env vars")
	}

	port, err := getEnvOrViperPort(v, "PORT", "server.port")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               port,
			ReadTimeout:        v.GetDuration("server.read_timeout"),
			WriteTimeout:       v.GetDuration("server.write_timeout"),
			IdleTimeout:        v.GetDuration("server.idle_timeout"),
			ShutDownTimeout:    v.GetDuration("server.shutdown_timeout"),
			RequestTimeout:     v.GetDuration("server.request_timeout"),
			PingInterval:       v.GetDuration("server.ping_interval"),
			CORSAllowedOrigins: v.GetString("server.cors_allowed_origins"),
		},
		Data: DataConfig{
			FilePath:        v.GetString("data.file_path"),
			PersistInterval: v.GetDuration("data.persist_interval"),
		},
		Client: ClientConfig{
			APIURL:           v.GetString("client.api_url"),
			PushURL:          v.GetString("client.push_url"),
			StateFile:        v.GetString("client.state_file"),
			SnapshotInterval: v.GetDuration("client.snapshot_interval"),
			StaleTime:        v.GetDuration("client.stale_time"),
			Granularity:      v.GetString("client.granularity"),
			BackoffMin:       v.GetDuration("client.backoff_min"),
			BackoffMax:       v.GetDuration("client.backoff_max"),
		},
		Misc: MiscConfig{
			GinMode:  v.GetString("misc.gin_mode"),
			LogLevel: v.GetString("misc.log_level"),
		},
	}
	if cfg.Client.PushURL == "" {
		cfg.Client.PushURL = PushURLFor(cfg.Client.APIURL)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8084)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.request_timeout", 2*time.Second)
	v.SetDefault("server.ping_interval", 30*time.Second)
	v.SetDefault("server.cors_allowed_origins", "*")

	v.SetDefault("data.file_path", "./config/data/household.json")
	v.SetDefault("data.persist_interval", 5*time.Second)

	v.SetDefault("client.api_url", "http://localhost:8084")
	v.SetDefault("client.state_file", "./config/data/state.json")
	v.SetDefault("client.snapshot_interval", 10*time.Second)
	v.SetDefault("client.stale_time", 5*time.Minute)
	v.SetDefault("client.granularity", "week")
	v.SetDefault("client.backoff_min", 500*time.Millisecond)
	v.SetDefault("client.backoff_max", 30*time.Second)

	v.SetDefault("misc.gin_mode", "release")
	v.SetDefault("misc.log_level", "info")
}

// PushURLFor derives the websocket endpoint from the API base url.
func PushURLFor(apiURL string) string {
	u := strings.TrimRight(apiURL, "/") + "/push"
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.IdleTimeout <= 0 {
		return errors.New("server timeouts must be positive")
	}
	if c.Server.ShutDownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.Server.PingInterval <= 0 {
		return errors.New("ping interval must be positive")
	}
	if c.Data.FilePath == "" {
		return errors.New("data file path is required")
	}
	if c.Data.PersistInterval <= 0 {
		return errors.New("persist interval must be positive")
	}
	if c.Client.APIURL == "" {
		return errors.New("client api url is required")
	}
	if c.Client.StateFile == "" {
		return errors.New("client state file is required")
	}
	if c.Client.SnapshotInterval <= 0 {
		return errors.New("snapshot interval must be positive")
	}
	if c.Client.StaleTime < 0 {
		return errors.New("stale time must not be negative")
	}
	if _, err := calendar.ParseGranularity(c.Client.Granularity); err != nil {
		return err
	}
	if c.Client.BackoffMin <= 0 || c.Client.BackoffMax < c.Client.BackoffMin {
		return fmt.Errorf("invalid reconnect backoff %v..%v", c.Client.BackoffMin, c.Client.BackoffMax)
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvOrViperPort prefers the plain env var (PORT on most hosts) over the
// viper value.
func getEnvOrViperPort(v *viper.Viper, envKey, viperKey string) (int, error) {
	if raw := os.Getenv(envKey); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", envKey, err)
		}
		return port, nil
	}
	return v.GetInt(viperKey), nil
}
