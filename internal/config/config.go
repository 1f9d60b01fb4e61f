package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Chicken/VenaaRauhassa/internal/digitraffic"
	"github.com/Chicken/VenaaRauhassa/internal/status"
	"github.com/Chicken/VenaaRauhassa/internal/train"
	"github.com/Chicken/VenaaRauhassa/internal/vr"
)

// Session store backends
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// VR holds the credentials and endpoints of the VR API and identity provider
type VR struct {
	User         string `toml:"user"`
	Password     string `toml:"password"`
	APIKey       string `toml:"api_key"`
	APIURL       string `toml:"api_url"`
	IDAPIURL     string `toml:"id_api_url"`
	SecondaryURL string `toml:"secondary_url"`
	ChannelID    string `toml:"channel_id"`
	ClientID     string `toml:"client_id"`
	Tenant       string `toml:"tenant"`
	Connection   string `toml:"connection"`
}

type Digitraffic struct {
	URL  string `toml:"url"`
	User string `toml:"user"`
}

// Status holds the status pages polled for /v2/service-status
type Status struct {
	DigitrafficURL string `toml:"digitraffic_url"`
	HeartbeatURL   string `toml:"heartbeat_url"`
}

type Train struct {
	CacheFresh    time.Duration `toml:"cache_fresh"`
	CacheStale    time.Duration `toml:"cache_stale"`
	MaxFailedLegs int           `toml:"max_failed_legs"`
	WagonImageURL string        `toml:"wagon_image_url"`
}

type Server struct {
	Port               string `toml:"port"`
	MetricsSecret      string `toml:"metrics_secret"`
	Maintenance        bool   `toml:"maintenance"`
	RateLimitPerMinute int    `toml:"rate_limit_per_minute"`
	AllowedOrigins     string `toml:"allowed_origins"`
}

// Config is the application configuration
type Config struct {
	VR              VR            `toml:"vr"`
	Digitraffic     Digitraffic   `toml:"digitraffic"`
	Train           Train         `toml:"train"`
	Server          Server        `toml:"server"`
	Status          Status        `toml:"status"`
	SessionStore    string        `toml:"session_store"`
	RequestTimeout  time.Duration `toml:"request_timeout"`
	ErrorWebhook    string        `toml:"error_webhook"`
	FeedbackWebhook string        `toml:"feedback_webhook"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	dt := digitraffic.LoadConfigFromEnv()
	return &Config{
		Digitraffic: Digitraffic{URL: dt.BaseURL, User: dt.User},
		Train: Train{
			CacheFresh:    10 * time.Minute,
			CacheStale:    2 * time.Hour,
			MaxFailedLegs: train.DefaultMaxFailedLegs,
			WagonImageURL: train.DefaultWagonImageURL,
		},
		Server: Server{
			Port:               "8080",
			RateLimitPerMinute: 60,
			AllowedOrigins:     "*",
		},
		Status: Status{
			DigitrafficURL: status.DefaultConfig.DigitrafficURL,
			HeartbeatURL:   status.DefaultConfig.HeartbeatURL,
		},
		SessionStore:   StorePostgres,
		RequestTimeout: 5 * time.Second,
	}
}

// Load reads the optional TOML file at path and applies environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	envString(&c.VR.User, "VR_USER")
	envString(&c.VR.Password, "VR_PASS")
	envString(&c.VR.APIKey, "VR_API_KEY")
	envString(&c.VR.APIURL, "VR_API_URL")
	envString(&c.VR.IDAPIURL, "VR_ID_API")
	envString(&c.VR.SecondaryURL, "VR_API_SECONDARY_URL")
	envString(&c.VR.ChannelID, "VR_ID_CHANNEL_ID")
	envString(&c.VR.ClientID, "VR_CLIENT_ID")
	envString(&c.VR.Tenant, "VR_ID_TENANT")
	envString(&c.VR.Connection, "VR_ID_CONNECTION")

	envString(&c.Digitraffic.URL, "DIGITRAFFIC_URL")
	envString(&c.Digitraffic.User, "DIGITRAFFIC_USER")

	envDuration(&c.Train.CacheFresh, "TRAIN_CACHE_FRESH")
	envDuration(&c.Train.CacheStale, "TRAIN_CACHE_STALE")
	envInt(&c.Train.MaxFailedLegs, "MAX_FAILED_LEGS")
	envString(&c.Train.WagonImageURL, "WAGON_IMAGE_URL")

	envString(&c.Server.Port, "API_PORT")
	envString(&c.Server.MetricsSecret, "METRICS_SECRET")
	envBool(&c.Server.Maintenance, "MAINTENANCE_MODE")
	envInt(&c.Server.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	envString(&c.Server.AllowedOrigins, "ALLOWED_ORIGINS")

	envString(&c.Status.DigitrafficURL, "STATUS_DIGITRAFFIC_URL")
	envString(&c.Status.HeartbeatURL, "STATUS_HEARTBEAT_URL")

	envString(&c.SessionStore, "SESSION_STORE")
	envDuration(&c.RequestTimeout, "REQUEST_TIMEOUT")
	envString(&c.ErrorWebhook, "ERROR_DISCORD_WEBHOOK")
	envString(&c.FeedbackWebhook, "FEEDBACK_DISCORD_WEBHOOK")
}

// Validate reports every setting the API server cannot start without
func (c *Config) Validate() error {
	var errs []error

	required := []struct{ key, value string }{
		{"VR_USER", c.VR.User},
		{"VR_PASS", c.VR.Password},
		{"VR_API_KEY", c.VR.APIKey},
		{"VR_API_URL", c.VR.APIURL},
		{"VR_ID_API", c.VR.IDAPIURL},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.key))
		}
	}

	switch c.SessionStore {
	case StorePostgres, StoreRedis, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown session store %q", c.SessionStore))
	}

	if c.Train.CacheFresh <= 0 || c.Train.CacheStale < 0 {
		errs = append(errs, errors.New("train cache durations must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	return errors.Join(errs...)
}

// VRConfig converts the VR section for the vr package
func (c *Config) VRConfig() vr.Config {
	return vr.Config{
		Username:     c.VR.User,
		Password:     c.VR.Password,
		APIKey:       c.VR.APIKey,
		APIURL:       strings.TrimRight(c.VR.APIURL, "/"),
		IDAPIURL:     strings.TrimRight(c.VR.IDAPIURL, "/"),
		SecondaryURL: strings.TrimRight(c.VR.SecondaryURL, "/"),
		ChannelID:    c.VR.ChannelID,
		ClientID:     c.VR.ClientID,
		Tenant:       c.VR.Tenant,
		Connection:   c.VR.Connection,
	}
}

// DigitrafficConfig converts the digitraffic section for the digitraffic package
func (c *Config) DigitrafficConfig() digitraffic.Config {
	return digitraffic.Config{
		BaseURL: strings.TrimRight(c.Digitraffic.URL, "/"),
		User:    c.Digitraffic.User,
	}
}

func envString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func envDuration(dst *time.Duration, key string) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Ignoring invalid %s=%q: %v", key, value, err)
		return
	}
	*dst = d
}

func envInt(dst *int, key string) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Ignoring invalid %s=%q: %v", key, value, err)
		return
	}
	*dst = n
}

func envBool(dst *bool, key string) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	*dst = value == "true" || value == "1"
}

// StatusConfig converts the status section for the status package
func (c *Config) StatusConfig() status.Config {
	return status.Config{
		DigitrafficURL: c.Status.DigitrafficURL,
		HeartbeatURL:   c.Status.HeartbeatURL,
	}
}
