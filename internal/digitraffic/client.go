package digitraffic

import (
	"errors"
	"os"

	"github.com/Chicken/VenaaRauhassa/internal/quirks"
	"github.com/Chicken/VenaaRauhassa/internal/upstream"
)

const vendor = "digitraffic"

// ErrTrainNotFound is returned when the timetable provider has no record of the train
var ErrTrainNotFound = errors.New("train not found")

// Config holds digitraffic API configuration
type Config struct {
	BaseURL string
	// User is sent as the Digitraffic-User header
	User string
}

// LoadConfigFromEnv loads digitraffic configuration from environment variables
func LoadConfigFromEnv() *Config {
	return &Config{
		BaseURL: getEnv("DIGITRAFFIC_URL", "https://rata.digitraffic.fi/api/v1"),
		User:    getEnv("DIGITRAFFIC_USER", "Chicken/VenaaRauhassa"),
	}
}

// Client reads timetables and station metadata from the open rail data API
type Client struct {
	http   *upstream.Client
	config Config
	policy quirks.Policy
}

func NewClient(client *upstream.Client, config Config, policy quirks.Policy) *Client {
	return &Client{http: client, config: config, policy: policy}
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Digitraffic-User": c.config.User}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
