// Package config loads the command line client's settings from an optional
// file, HTTPFETCH_* environment variables and command line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/adamwoolhether/httpfetch/client"
)

// EnvPrefix prefixes every environment variable read by [Load].
const EnvPrefix = "HTTPFETCH"

// Settings is the fully merged configuration. Precedence, highest first:
// changed flags, environment, config file, flag defaults.
type Settings struct {
	Client      client.Config `mapstructure:",squash"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	QueryPolicy string        `mapstructure:"query_policy"`
	Verbose     bool          `mapstructure:"verbose"`
}

// keys maps each settings key to the flag that may override it.
var keys = map[string]string{
	"base_url":      "base-url",
	"authorization": "auth",
	"cache":         "cache",
	"revalidate":    "revalidate",
	"timeout":       "timeout",
	"user_agent":    "user-agent",
	"query_policy":  "query-policy",
	"verbose":       "verbose",
}

// Load merges the sources into Settings and validates the client config.
// An empty path skips the config file. Flags absent from the set are ignored.
func Load(path string, flags *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, flag := range keys {
		if err := v.BindEnv(key); err != nil {
			return Settings{}, fmt.Errorf("binding env[%s]: %w", key, err)
		}

		if flags == nil {
			continue
		}
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return Settings{}, fmt.Errorf("binding flag[%s]: %w", flag, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := s.Client.Validate(); err != nil {
		return Settings{}, fmt.Errorf("validating config: %w", err)
	}

	if _, err := ParseQueryPolicy(s.QueryPolicy); err != nil {
		return Settings{}, err
	}

	return s, nil
}

// Options converts the settings into client build options.
func (s Settings) Options() ([]client.Option, error) {
	policy, err := ParseQueryPolicy(s.QueryPolicy)
	if err != nil {
		return nil, err
	}

	opts := []client.Option{
		client.WithConfig(s.Client),
		client.WithQueryPolicy(policy),
	}
	if s.Timeout > 0 {
		opts = append(opts, client.WithTimeout(s.Timeout))
	}
	if s.UserAgent != "" {
		opts = append(opts, client.WithUserAgent(s.UserAgent))
	}

	return opts, nil
}

// ParseQueryPolicy accepts the names reported by [client.QueryPolicy.String].
// An empty name selects the default.
func ParseQueryPolicy(name string) (client.QueryPolicy, error) {
	switch strings.ToLower(name) {
	case "", client.QueryEncodeAll.String():
		return client.QueryEncodeAll, nil
	case client.QueryDropFalsy.String():
		return client.QueryDropFalsy, nil
	default:
		return 0, fmt.Errorf("unknown query policy[%s]", name)
	}
}
