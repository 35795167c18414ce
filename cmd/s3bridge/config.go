package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/s3types"
)

const envPrefix = "S3BRIDGE"

// settings is the client configuration read from flags, environment and the
// config file, in that order of precedence.
type settings struct {
	Region          string        `mapstructure:"region"`
	Endpoint        string        `mapstructure:"endpoint"`
	PathStyle       bool          `mapstructure:"path-style"`
	AccessKeyID     string        `mapstructure:"access-key-id"`
	SecretAccessKey string        `mapstructure:"secret-access-key"`
	SessionToken    string        `mapstructure:"session-token"`
	ThroughputGbps  float64       `mapstructure:"throughput-gbps"`
	PartSize        int64         `mapstructure:"part-size"`
	Concurrency     int           `mapstructure:"concurrency"`
	MaxRetries      int           `mapstructure:"max-retries"`
	Timeout         time.Duration `mapstructure:"timeout"`
	LogLevel        string        `mapstructure:"log-level"`
}

func addSettingsFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "config file (default is ./s3bridge.yaml or $XDG_CONFIG_HOME/s3bridge/s3bridge.yaml)")
	flags.String("region", "", "region to sign requests for")
	flags.String("endpoint", "", "service endpoint, e.g. http://localhost:4566")
	flags.Bool("path-style", false, "address buckets in the request path")
	flags.String("access-key-id", "", "static access key id")
	flags.String("secret-access-key", "", "static secret access key")
	flags.String("session-token", "", "static session token")
	flags.Float64("throughput-gbps", 10, "aggregate transfer rate target")
	flags.Int64("part-size", 8*1024*1024, "part size for ranged downloads in bytes")
	flags.Int("concurrency", 5, "concurrent requests for batch operations")
	flags.Int("max-retries", 3, "attempts per request")
	flags.Duration("timeout", 0, "per-attempt timeout, 0 for none")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
}

// loadSettings binds flags and environment to v and reads the config file.
func loadSettings(v *viper.Viper, flags *pflag.FlagSet) (settings, error) {
	if err := v.BindPFlags(flags); err != nil {
		return settings{}, fmt.Errorf("binding flags: %w", err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("s3bridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, "s3bridge"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return settings{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, fmt.Errorf("decoding config: %w", err)
	}
	return s, nil
}

func (s settings) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", s.LogLevel)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// options converts the settings into client options.
func (s settings) options(logger *slog.Logger) []s3types.Option {
	opts := []s3types.Option{
		s3bridge.WithForcePathStyle(s.PathStyle),
		s3bridge.WithThroughputTarget(s.ThroughputGbps),
		s3bridge.WithPartSize(s.PartSize),
		s3bridge.WithConcurrency(s.Concurrency),
		s3bridge.WithMaxRetries(s.MaxRetries),
		s3bridge.WithTimeout(s.Timeout),
		s3bridge.WithLogger(logger),
	}
	if s.Region != "" {
		opts = append(opts, s3bridge.WithRegion(s.Region))
	}
	if s.Endpoint != "" {
		opts = append(opts, s3bridge.WithEndpoint(s.Endpoint))
	}
	if s.AccessKeyID != "" {
		opts = append(opts, s3bridge.WithCredentials(s.AccessKeyID, s.SecretAccessKey, s.SessionToken))
	}
	return opts
}
