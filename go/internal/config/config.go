package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/streamagenda/go/internal/models"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Push channel transports.
const (
	TransportWebSocket = "websocket"
	TransportNATS      = "nats"
)

// Config holds the agenda follower settings.
type Config struct {
	APIURL       string          `yaml:"api_url"`
	WebSocketURL string          `yaml:"ws_url"`
	Room         string          `yaml:"room"`
	Identity     string          `yaml:"identity"`
	UserName     string          `yaml:"username"`
	Wallet       string          `yaml:"wallet"`
	UserType     models.UserType `yaml:"user_type"`
	Token        string          `yaml:"token"`

	Transport         string `yaml:"transport"`
	NATSURL           string `yaml:"nats_url"`
	NATSSubjectPrefix string `yaml:"nats_subject_prefix"`

	AgendaFile  string        `yaml:"agenda_file"`
	SyncTimeout time.Duration `yaml:"sync_timeout"`
	StatusPort  int           `yaml:"status_port"`
	LogLevel    string        `yaml:"log_level"`
}

// NewConfigFromEnv reads the STREAM_* and related environment variables (with defaults).
func NewConfigFromEnv() Config {
	return Config{
		APIURL:       getEnv("STREAM_API_URL", "http://localhost:3000"),
		WebSocketURL: getEnv("STREAM_WS_URL", "ws://localhost:3000/ws"),
		Room:         getEnv("STREAM_ROOM", ""),
		Identity:     getEnv("STREAM_IDENTITY", ""),
		UserName:     getEnv("STREAM_USERNAME", ""),
		Wallet:       getEnv("STREAM_WALLET", ""),
		UserType:     models.UserType(getEnv("STREAM_USER_TYPE", string(models.UserTypeGuest))),
		Token:        getEnv("STREAM_TOKEN", ""),

		Transport:         getEnv("PUSH_TRANSPORT", TransportWebSocket),
		NATSURL:           getEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "livestream"),

		AgendaFile:  getEnv("AGENDA_FILE", ""),
		SyncTimeout: getEnvAsDuration("SYNC_TIMEOUT", 30*time.Second),
		StatusPort:  getEnvAsInt("STATUS_PORT", 8090),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

// Load reads the environment and then the optional YAML file at path.
// Values in the file win over the environment. Callers load .env themselves.
func Load(path string) (Config, error) {
	cfg := NewConfigFromEnv()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if cfg.Identity == "" {
		cfg.Identity = uuid.New().String()
		log.Info().Str("identity", cfg.Identity).Msg("no identity configured, generated one")
	}
	return cfg, cfg.Validate()
}

// Validate checks that the settings can start a session.
func (c Config) Validate() error {
	var errs []error
	if c.Room == "" {
		errs = append(errs, errors.New("room is required"))
	}
	switch c.UserType {
	case models.UserTypeHost, models.UserTypeGuest:
	default:
		errs = append(errs, fmt.Errorf("unknown user type %q", c.UserType))
	}
	switch c.Transport {
	case TransportWebSocket:
		if c.WebSocketURL == "" {
			errs = append(errs, errors.New("ws_url is required for the websocket transport"))
		}
	case TransportNATS:
		if c.NATSURL == "" {
			errs = append(errs, errors.New("nats_url is required for the nats transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}
	if c.AgendaFile == "" && c.APIURL == "" {
		errs = append(errs, errors.New("either api_url or agenda_file is required"))
	}
	if c.Token == "" && c.APIURL == "" {
		errs = append(errs, errors.New("a token or an api_url to request one is required"))
	}
	if c.SyncTimeout < 0 {
		errs = append(errs, errors.New("sync_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
