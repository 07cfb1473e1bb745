package config

import (
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Database DatabaseConfig `yaml:"database"`
	Push     PushConfig     `yaml:"push"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Logging  LoggingConfig  `yaml:"logging"`
	Users    []UserConfig   `yaml:"users"`
}

// ServerConfig holds the local UI server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
}

// BackendConfig describes the production backend this client talks to.
type BackendConfig struct {
	BaseURL               string        `yaml:"base_url"`
	PushURL               string        `yaml:"push_url"`
	HTTPProxy             string        `yaml:"http_proxy"`
	TimeoutSeconds        int           `yaml:"timeout_seconds"`
	Timeout               time.Duration `yaml:"-"`
	PollIntervalSeconds   int           `yaml:"poll_interval_seconds"`
	PollInterval          time.Duration `yaml:"-"`
	RetryDelaySeconds     int           `yaml:"retry_delay_seconds"`
	RetryDelay            time.Duration `yaml:"-"`
	ReconnectDelaySeconds int           `yaml:"reconnect_delay_seconds"`
	ReconnectDelay        time.Duration `yaml:"-"`
	ProductionLogLimit    int           `yaml:"production_log_limit"`
	ActionsPerSecond      float64       `yaml:"actions_per_second"`
}

// AlertsConfig holds alert display and delivery settings.
type AlertsConfig struct {
	DisplaySeconds int           `yaml:"display_seconds"`
	Display        time.Duration `yaml:"-"`
	WorkerPoolSize int           `yaml:"worker_pool_size"`
}

// PushConfig holds the VAPID keys for web push alert delivery.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are set.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// MQTTConfig holds the broker alerts are published to.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
}

// DatabaseConfig holds the session store connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// LoggingConfig holds the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// UserConfig is one entry of the local credential list.
type UserConfig struct {
	Identity string `yaml:"identity"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Location string `yaml:"location"`
}

// Load reads a .env file if present, then the YAML configuration at path,
// then applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("could not load .env: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyEnv() {
	if v := os.Getenv("DASHBOARD_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("DASHBOARD_PUSH_URL"); v != "" {
		cfg.Backend.PushURL = v
	}
	if v := os.Getenv("DASHBOARD_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DASHBOARD_VAPID_PRIVATE_KEY"); v != "" {
		cfg.Push.PrivateKey = v
	}
	if v := os.Getenv("DASHBOARD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second

	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:8000/api"
	}
	if cfg.Backend.PushURL == "" {
		cfg.Backend.PushURL = pushURLFor(cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 20
	}
	cfg.Backend.Timeout = time.Duration(cfg.Backend.TimeoutSeconds) * time.Second
	if cfg.Backend.PollIntervalSeconds <= 0 {
		cfg.Backend.PollIntervalSeconds = 30
	}
	cfg.Backend.PollInterval = time.Duration(cfg.Backend.PollIntervalSeconds) * time.Second
	if cfg.Backend.RetryDelaySeconds <= 0 {
		cfg.Backend.RetryDelaySeconds = 5
	}
	cfg.Backend.RetryDelay = time.Duration(cfg.Backend.RetryDelaySeconds) * time.Second
	if cfg.Backend.ReconnectDelaySeconds <= 0 {
		cfg.Backend.ReconnectDelaySeconds = 3
	}
	cfg.Backend.ReconnectDelay = time.Duration(cfg.Backend.ReconnectDelaySeconds) * time.Second
	if cfg.Backend.ProductionLogLimit <= 0 {
		cfg.Backend.ProductionLogLimit = 20
	}
	if cfg.Backend.ActionsPerSecond <= 0 {
		cfg.Backend.ActionsPerSecond = 5
	}

	if cfg.Alerts.DisplaySeconds <= 0 {
		cfg.Alerts.DisplaySeconds = 10
	}
	cfg.Alerts.Display = time.Duration(cfg.Alerts.DisplaySeconds) * time.Second
	if cfg.Alerts.WorkerPoolSize <= 0 {
		logrus.Infof("alerts.worker_pool_size is not set or invalid; defaulting to 1")
		cfg.Alerts.WorkerPoolSize = 1
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 60
	}

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "machine-dashboard-client"
	}
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "dashboard/alerts"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "file:dashboard.db?cache=shared"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// pushURLFor derives the backend's websocket feed from its REST base URL:
// same host, ws scheme, /ws/dashboard path.
func pushURLFor(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return "ws://localhost:8000/ws/dashboard"
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{Scheme: scheme, Host: u.Host, Path: "/ws/dashboard"}).String()
}
