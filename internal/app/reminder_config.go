package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrInvalidConfig is returned by ParseConfig when a required key is missing
// or does not hold a string.
var ErrInvalidConfig = errors.New("invalid reminder configuration")

// Config keys accepted in a RawConfig.
const (
	ConfigKeyMessage   = "message"
	ConfigKeySubject   = "subject"
	ConfigKeyFromEmail = "from_email"
	ConfigKeyFromName  = "from_name"
)

var requiredConfigKeys = []string{ConfigKeyMessage, ConfigKeySubject, ConfigKeyFromEmail, ConfigKeyFromName}

// RawConfig is the untyped reminder configuration as supplied by the
// environment, a config file or a ConfigProvider.
type RawConfig map[string]any

// ConfigProvider may inspect, amend or entirely replace the configuration
// passed to Execute. It is called once per run. Returning nil makes the run a
// no-op.
type ConfigProvider func(in RawConfig) RawConfig

// Config is the validated reminder configuration.
type Config struct {
	Message   string // body template with a single %s placeholder for the code
	Subject   string
	FromEmail string
	FromName  string
}

// ParseConfig validates raw and converts it to a Config.
func ParseConfig(raw RawConfig) (*Config, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: no configuration supplied", ErrInvalidConfig)
	}

	values := make(map[string]string, len(requiredConfigKeys))
	for _, key := range requiredConfigKeys {
		v, ok := raw[key]
		if !ok || v == nil {
			return nil, fmt.Errorf("%w: %q is missing", ErrInvalidConfig, key)
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %q must be a string, got %T", ErrInvalidConfig, key, v)
		}
		values[key] = s
	}

	return &Config{
		Message:   values[ConfigKeyMessage],
		Subject:   values[ConfigKeySubject],
		FromEmail: values[ConfigKeyFromEmail],
		FromName:  values[ConfigKeyFromName],
	}, nil
}

// RenderMessage substitutes the discount code into the first %s of the
// message template and collapses %% to %. Any other % sequence, including a
// second %s, is kept as written. Templates without a placeholder are sent
// unchanged.
func (c *Config) RenderMessage(code string) string {
	var b strings.Builder
	b.Grow(len(c.Message) + len(code))
	substituted := false
	for i := 0; i < len(c.Message); i++ {
		ch := c.Message[i]
		if ch != '%' || i+1 == len(c.Message) {
			b.WriteByte(ch)
			continue
		}
		switch next := c.Message[i+1]; {
		case next == '%':
			b.WriteByte('%')
			i++
		case next == 's' && !substituted:
			b.WriteString(code)
			substituted = true
			i++
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// FileConfigProvider returns a provider that replaces the input configuration
// with the JSON object stored at path. An unreadable or malformed file yields
// nil, which disables the run until the file is fixed.
func FileConfigProvider(path string, logger *logrus.Entry) ConfigProvider {
	return func(in RawConfig) RawConfig {
		log := logger.WithField("config_file", path)

		data, err := os.ReadFile(path)
		if err != nil {
			log.WithError(err).Warn("Could not read reminder config file")
			return nil
		}

		var out RawConfig
		if err := json.Unmarshal(data, &out); err != nil {
			log.WithError(err).Warn("Reminder config file is not a JSON object")
			return nil
		}
		log.Debug("Reminder configuration overridden from file")
		return out
	}
}

// MergeConfigProvider returns a provider that overlays the keys of override on
// top of the input configuration.
func MergeConfigProvider(override RawConfig) ConfigProvider {
	return func(in RawConfig) RawConfig {
		out := make(RawConfig, len(in)+len(override))
		for k, v := range in {
			out[k] = v
		}
		for k, v := range override {
			out[k] = v
		}
		return out
	}
}
