/*
Package config holds the process configuration.

SOURCES:
  Command-line flags win over the YAML file (--config, ./habituo.yaml,
  ~/.config/habituo/config.yaml). Environment variables (HABITUO_*) replace
  the struct tag defaults.

YAML FILE:
  Nested keys are joined with "-" to form the flag name, so

    store:
      backend: postgres
      dsn: postgres://localhost/habituo

  sets --store-backend and --store-dsn.
*/
package config

import (
	"fmt"
	"io"
	"strings"
	"time"
	_ "time/tzdata" // zones resolve on hosts without a zoneinfo database

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	"github.com/habituo/habit-engine/habit"
	"github.com/habituo/habit-engine/logging"
)

// DefaultPaths are searched for a YAML file when --config is not given.
var DefaultPaths = []string{"./habituo.yaml", "~/.config/habituo/config.yaml"}

// Config is embedded in the CLI root. Flags are shared by every subcommand.
type Config struct {
	ConfigFile kong.ConfigFlag `name:"config" help:"YAML config file." type:"path"`

	LogLevel string `name:"log-level" help:"Log level." default:"info" enum:"debug,info,warn,error" env:"HABITUO_LOG_LEVEL"`
	LogFile  string `name:"log-file" help:"Rotated log file, in addition to stderr." env:"HABITUO_LOG_FILE"`
	LogDev   bool   `name:"log-dev" help:"Human-readable console logs." env:"HABITUO_LOG_DEV"`

	StoreBackend string `name:"store-backend" help:"Storage backend." default:"sqlite" enum:"memory,sqlite,postgres,remote" env:"HABITUO_STORE_BACKEND"`
	StoreDSN     string `name:"store-dsn" help:"SQLite path or PostgreSQL DSN." default:"habituo.db" env:"HABITUO_STORE_DSN"`

	RemoteURL     string        `name:"remote-url" help:"Upstream service base URL (remote backend)." env:"HABITUO_REMOTE_URL"`
	RemoteRate    float64       `name:"remote-rate" help:"Outbound requests per second." default:"5" env:"HABITUO_REMOTE_RATE"`
	RemoteBurst   int           `name:"remote-burst" help:"Outbound request burst." default:"5" env:"HABITUO_REMOTE_BURST"`
	RemoteTimeout time.Duration `name:"remote-timeout" help:"Outbound request timeout." default:"10s" env:"HABITUO_REMOTE_TIMEOUT"`

	TimeZone   string `name:"time-zone" help:"IANA zone that decides which calendar day is today." default:"UTC" env:"HABITUO_TIME_ZONE"`
	StreakRule string `name:"streak-rule" help:"Streak rule (strict or legacy)." default:"strict" enum:"strict,legacy" env:"HABITUO_STREAK_RULE"`
}

// Validate is called by kong after parsing.
func (c *Config) Validate() error {
	if c.StoreBackend == "remote" && c.RemoteURL == "" {
		return fmt.Errorf("--remote-url is required with the remote backend")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := habit.ParseStreakRule(c.StreakRule); err != nil {
		return err
	}
	return nil
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

func (c *Config) Rule() habit.StreakRule {
	r, err := habit.ParseStreakRule(c.StreakRule)
	if err != nil {
		return habit.RuleStrict
	}
	return r
}

func (c *Config) Logging() logging.Config {
	return logging.Config{Level: c.LogLevel, File: c.LogFile, Development: c.LogDev}
}

// =============================================================================
// YAML RESOLVER
// =============================================================================

// YAML is a kong.ConfigurationLoader for YAML files.
func YAML(r io.Reader) (kong.Resolver, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	values := map[string]string{}
	flatten("", doc, values)

	var f kong.ResolverFunc = func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		v, ok := values[flag.Name]
		if !ok {
			return nil, nil
		}
		return v, nil
	}
	return f, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := strings.ReplaceAll(strings.ToLower(k), "_", "-")
		if prefix != "" {
			key = prefix + "-" + key
		}
		switch v := v.(type) {
		case map[string]any:
			flatten(key, v, out)
		case []any:
			parts := make([]string, len(v))
			for i, item := range v {
				parts[i] = fmt.Sprint(item)
			}
			out[key] = strings.Join(parts, ",")
		case nil:
		default:
			out[key] = fmt.Sprint(v)
		}
	}
}
