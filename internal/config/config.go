// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads dextrust settings from defaults, dextrust.yaml,
// DEXTRUST_* environment variables and command flags, in increasing order
// of precedence, and writes them back as YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	appName    = "dextrust"
	configName = "dextrust"
	envPrefix  = "dextrust"
)

// Config is the full dextrust configuration.
type Config struct {
	Evidence struct {
		Root string `mapstructure:"root" yaml:"root"`
	} `mapstructure:"evidence" yaml:"evidence"`
	Database struct {
		Type string `mapstructure:"type" yaml:"type"`
		Dsn  string `mapstructure:"dsn" yaml:"dsn"`
	} `mapstructure:"database" yaml:"database"`
	Filter struct {
		Size      int `mapstructure:"size" yaml:"size"`
		HashCount int `mapstructure:"hash_count" yaml:"hash_count"`
	} `mapstructure:"filter" yaml:"filter"`
	Events struct {
		Max     int  `mapstructure:"max" yaml:"max"`
		Persist bool `mapstructure:"persist" yaml:"persist"`
	} `mapstructure:"events" yaml:"events"`
	Keys struct {
		RotationPeriod time.Duration `mapstructure:"rotation_period" yaml:"rotation_period"`
	} `mapstructure:"keys" yaml:"keys"`
	Language string `mapstructure:"language" yaml:"language"`
	Log      struct {
		Level string `mapstructure:"level" yaml:"level"`
	} `mapstructure:"log" yaml:"log"`
}

// FlagKeys maps command flag names onto the config keys they override.
// Flags not listed bind under their own name.
var FlagKeys = map[string]string{
	"evidence-root": "evidence.root",
	"db-type":       "database.type",
	"dsn":           "database.dsn",
	"filter-size":   "filter.size",
	"filter-hashes": "filter.hash_count",
	"events-max":    "events.max",
	"lang":          "language",
	"log-level":     "log.level",
}

// Defaults returns the baseline values every load starts from.
func Defaults() map[string]any {
	return map[string]any{
		"evidence.root":        "./evidence",
		"database.type":        "sqlite",
		"database.dsn":         "",
		"filter.size":          1000,
		"filter.hash_count":    3,
		"events.max":           10000,
		"events.persist":       true,
		"keys.rotation_period": "24h",
		"language":             "en",
		"log.level":            "info",
	}
}

// EvidenceDSN resolves the database the evidence store should use: the
// explicit DSN if set, otherwise evidence.db under the evidence root.
func (c Config) EvidenceDSN() (dbType, dsn string) {
	dbType = c.Database.Type
	if dbType == "" {
		dbType = "sqlite"
	}
	if c.Database.Dsn != "" {
		return dbType, c.Database.Dsn
	}
	return "sqlite", filepath.Join(c.Evidence.Root, "evidence.db")
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	var errs []error
	switch c.Database.Type {
	case "sqlite", "postgres", "mysql":
	default:
		errs = append(errs, fmt.Errorf("database.type: unsupported value %q", c.Database.Type))
	}
	if c.Database.Type != "sqlite" && c.Database.Dsn == "" {
		errs = append(errs, fmt.Errorf("database.dsn: required for database.type %q", c.Database.Type))
	}
	if c.Filter.Size < 1 {
		errs = append(errs, fmt.Errorf("filter.size: must be >= 1, got %d", c.Filter.Size))
	}
	if c.Filter.HashCount < 1 {
		errs = append(errs, fmt.Errorf("filter.hash_count: must be >= 1, got %d", c.Filter.HashCount))
	}
	if c.Events.Max < 0 {
		errs = append(errs, fmt.Errorf("events.max: must be >= 0, got %d", c.Events.Max))
	}
	if c.Keys.RotationPeriod <= 0 {
		errs = append(errs, fmt.Errorf("keys.rotation_period: must be positive, got %s", c.Keys.RotationPeriod))
	}
	return errors.Join(errs...)
}

// GetConfigPath returns the user (or system-wide) config file path.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "DEX-OS", appName)
		default:
			configDir = "/etc/" + appName
		}
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(dir, appName)
	}
	return filepath.Join(configDir, configName+".yaml"), nil
}

// firstConfigFile returns the first non-empty dextrust.yaml among the
// search paths. Empty files are treated as absent.
func firstConfigFile(dirs []string) string {
	for _, dir := range dirs {
		p := filepath.Join(dir, configName+".yaml")
		if st, err := os.Stat(p); err == nil && !st.IsDir() && st.Size() > 0 {
			return p
		}
	}
	return ""
}

// LoadConfig builds a T from defaults, the config file, DEXTRUST_*
// environment variables and the flags of cmd. An explicit configFile must
// exist. When no file is found anywhere, the returned error is a
// viper.ConfigFileNotFoundError and the returned value is still fully
// populated from the other sources.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, configFile *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetConfigType("yaml")

	var notFound error
	if configFile != nil && *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("could not read config file %s: %w", *configFile, err)
		}
	} else {
		var dirs []string
		if p, err := GetConfigPath(false); err == nil {
			dirs = append(dirs, filepath.Dir(p))
		}
		if p, err := GetConfigPath(true); err == nil {
			dirs = append(dirs, filepath.Dir(p))
		}
		dirs = append(dirs, ".")
		if path := firstConfigFile(dirs); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return c, fmt.Errorf("could not read config file %s: %w", path, err)
			}
		} else {
			notFound = viper.ConfigFileNotFoundError{}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		var bindErr error
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			key := f.Name
			if k, ok := FlagKeys[f.Name]; ok {
				key = k
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return c, bindErr
		}
	}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&c, hook); err != nil {
		return c, err
	}
	return c, notFound
}

// WriteConfigFile writes c as YAML to the user or system config path and
// returns the path written.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := GetConfigPath(system)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
