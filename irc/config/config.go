package config

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the server configuration
type Config struct {
	// Server identity and credentials
	Server struct {
		Name           string `yaml:"name" toml:"name" json:"name" env:"IRCD_SERVER_NAME" default:"irc.lemada.hn" validate:"required,hostname_rfc1123"`
		Host           string `yaml:"host" toml:"host" json:"host" env:"IRCD_HOST" validate:"omitempty,ipv4"`
		Port           int    `yaml:"port" toml:"port" json:"port" env:"IRCD_PORT" default:"6667" validate:"gte=0,lte=65535"`
		Password       string `yaml:"password" toml:"password" json:"password" env:"IRCD_PASSWORD"`
		PasswordBcrypt bool   `yaml:"password_bcrypt" toml:"password_bcrypt" json:"password_bcrypt" env:"IRCD_PASSWORD_BCRYPT"`
		Version        string `yaml:"version" toml:"version" json:"version" env:"IRCD_VERSION" default:"1.0" validate:"required"`
	} `yaml:"server" toml:"server" json:"server"`

	// Reactor tuning
	Network struct {
		ReadSize       int `yaml:"read_size" toml:"read_size" json:"read_size" env:"IRCD_READ_SIZE" default:"512" validate:"gt=0"`
		MaxEvents      int `yaml:"max_events" toml:"max_events" json:"max_events" env:"IRCD_MAX_EVENTS" default:"64" validate:"gt=0"`
		PollTimeoutMS  int `yaml:"poll_timeout_ms" toml:"poll_timeout_ms" json:"poll_timeout_ms" env:"IRCD_POLL_TIMEOUT_MS" default:"10" validate:"gte=0"`
		SendQueueLimit int `yaml:"send_queue_limit" toml:"send_queue_limit" json:"send_queue_limit" env:"IRCD_SEND_QUEUE_LIMIT" validate:"gte=0"`
	} `yaml:"network" toml:"network" json:"network"`

	Log struct {
		Level  string `yaml:"level" toml:"level" json:"level" env:"IRCD_LOG_LEVEL" default:"info" validate:"oneof=panic fatal error warn warning info debug trace"`
		Format string `yaml:"format" toml:"format" json:"format" env:"IRCD_LOG_FORMAT" default:"text" validate:"oneof=text json"`
	} `yaml:"log" toml:"log" json:"log"`

	// Liveness log line
	Heartbeat struct {
		IntervalSeconds int `yaml:"interval_seconds" toml:"interval_seconds" json:"interval_seconds" env:"IRCD_HEARTBEAT_SECONDS" default:"10" validate:"gte=0"`
	} `yaml:"heartbeat" toml:"heartbeat" json:"heartbeat"`

	// Prometheus endpoint
	Metrics struct {
		Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled" env:"IRCD_METRICS_ENABLED"`
		Host    string `yaml:"host" toml:"host" json:"host" env:"IRCD_METRICS_HOST" default:"127.0.0.1" validate:"omitempty,ip"`
		Port    int    `yaml:"port" toml:"port" json:"port" env:"IRCD_METRICS_PORT" default:"9100" validate:"gte=0,lte=65535"`
	} `yaml:"metrics" toml:"metrics" json:"metrics"`

	// Configuration source, empty when running on defaults
	Source string `yaml:"-" toml:"-" json:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns a configuration holding only the default values.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(reflect.ValueOf(cfg).Elem())
	return cfg
}

// Load loads configuration from a file or URL. An empty source yields the
// defaults. Environment overrides are applied last.
func Load(source string) (*Config, error) {
	cfg := Default()

	if source != "" {
		if err := cfg.loadFromSource(source); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// PollTimeout returns the readiness wait bound.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Network.PollTimeoutMS) * time.Millisecond
}

// HeartbeatInterval returns the liveness log period, zero when disabled.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Heartbeat.IntervalSeconds) * time.Second
}

// loadFromSource loads configuration from a file or URL
func (c *Config) loadFromSource(source string) error {
	var data []byte
	var err error

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := http.Get(source)
		if err != nil {
			return fmt.Errorf("failed to load config from URL: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("failed to load config from URL, status: %s", resp.Status)
		}

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read config from URL: %w", err)
		}
	} else {
		data, err = os.ReadFile(source)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Determine the format based on the extension, YAML otherwise
	switch {
	case strings.HasSuffix(source, ".toml"):
		err = toml.Unmarshal(data, c)
	case strings.HasSuffix(source, ".json"):
		err = json.Unmarshal(data, c)
	default:
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	c.Source = source
	return nil
}

// applyDefaults fills every field carrying a default tag.
func applyDefaults(v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			applyDefaults(v.Field(i))
			continue
		}
		if def, ok := field.Tag.Lookup("default"); ok {
			// defaults are literals in this file, a parse failure is a programming error
			if err := setField(v.Field(i), def); err != nil {
				panic(fmt.Sprintf("config: bad default for %s: %v", field.Name, err))
			}
		}
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) error {
	return applyEnvOverridesRecursive(reflect.ValueOf(cfg).Elem())
}

func applyEnvOverridesRecursive(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}

		if envTag := field.Tag.Get("env"); envTag != "" {
			envValue, exists := os.LookupEnv(envTag)
			if !exists {
				continue
			}
			if err := setField(v.Field(i), envValue); err != nil {
				return fmt.Errorf("environment variable %s: %w", envTag, err)
			}
		} else if field.Type.Kind() == reflect.Struct {
			if err := applyEnvOverridesRecursive(v.Field(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// setField sets a scalar field from its textual form
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}
