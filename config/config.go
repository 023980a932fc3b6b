// Package config builds the immutable runtime configuration from flags,
// environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys double as environment variable names (upper-cased) and .env keys.
const (
	KeyBaseURL         = "papago_base"
	KeyKeyID           = "ncp_key_id"
	KeyKey             = "ncp_key"
	KeyHost            = "host"
	KeyPort            = "port"
	KeyUploadDir       = "upload_dir"
	KeyPublicDir       = "public_dir"
	KeyMaxUploadMB     = "max_upload_mb"
	KeyPollInterval    = "poll_interval"
	KeyJobDeadline     = "job_deadline"
	KeySubmitTimeout   = "submit_timeout"
	KeyStatusTimeout   = "status_timeout"
	KeyFetchTimeout    = "fetch_timeout"
	KeyBreakerFailures = "breaker_failures"
	KeyBreakerCooldown = "breaker_cooldown"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
)

// DefaultEnvFile is read from the working directory when no config file is given.
const DefaultEnvFile = ".env"

// Config is built once at startup and passed by value.
type Config struct {
	BaseURL string
	KeyID   string
	Key     string

	Host           string
	Port           int
	UploadDir      string
	PublicDir      string
	MaxUploadBytes int64

	PollInterval  time.Duration
	JobDeadline   time.Duration
	SubmitTimeout time.Duration
	StatusTimeout time.Duration
	FetchTimeout  time.Duration

	BreakerFailures uint32
	BreakerCooldown time.Duration

	LogLevel  string
	LogFormat string
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SetDefaults registers defaults and environment lookup on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyHost, "")
	v.SetDefault(KeyPort, 3000)
	v.SetDefault(KeyUploadDir, "uploads")
	v.SetDefault(KeyPublicDir, "")
	v.SetDefault(KeyMaxUploadMB, 100)
	v.SetDefault(KeyPollInterval, 1500*time.Millisecond)
	v.SetDefault(KeyJobDeadline, 12*time.Minute)
	v.SetDefault(KeySubmitTimeout, 180*time.Second)
	v.SetDefault(KeyStatusTimeout, 30*time.Second)
	v.SetDefault(KeyFetchTimeout, 60*time.Second)
	v.SetDefault(KeyBreakerFailures, 5)
	v.SetDefault(KeyBreakerCooldown, 30*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")

	v.AutomaticEnv()
}

// ReadFile loads a dotenv-style file into v. An empty path falls back to
// DefaultEnvFile, which may be absent. It returns the file actually used.
func ReadFile(v *viper.Viper, path string) (string, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
		if _, err := os.Stat(path); err != nil {
			return "", nil
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read config %s: %w", path, err)
	}
	return v.ConfigFileUsed(), nil
}

// Load validates the values in v and freezes them into a Config.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		BaseURL:         strings.TrimRight(strings.TrimSpace(v.GetString(KeyBaseURL)), "/"),
		KeyID:           strings.TrimSpace(v.GetString(KeyKeyID)),
		Key:             strings.TrimSpace(v.GetString(KeyKey)),
		Host:            v.GetString(KeyHost),
		Port:            v.GetInt(KeyPort),
		UploadDir:       v.GetString(KeyUploadDir),
		PublicDir:       v.GetString(KeyPublicDir),
		MaxUploadBytes:  v.GetInt64(KeyMaxUploadMB) << 20,
		PollInterval:    v.GetDuration(KeyPollInterval),
		JobDeadline:     v.GetDuration(KeyJobDeadline),
		SubmitTimeout:   v.GetDuration(KeySubmitTimeout),
		StatusTimeout:   v.GetDuration(KeyStatusTimeout),
		FetchTimeout:    v.GetDuration(KeyFetchTimeout),
		BreakerFailures: v.GetUint32(KeyBreakerFailures),
		BreakerCooldown: v.GetDuration(KeyBreakerCooldown),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
	}

	var errs []error
	for _, req := range []struct{ name, val string }{
		{KeyBaseURL, cfg.BaseURL},
		{KeyKeyID, cfg.KeyID},
		{KeyKey, cfg.Key},
	} {
		if req.val == "" {
			errs = append(errs, fmt.Errorf("missing required env: %s", strings.ToUpper(req.name)))
		}
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid %s: %d", strings.ToUpper(KeyPort), cfg.Port))
	}
	if cfg.UploadDir == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", strings.ToUpper(KeyUploadDir)))
	}
	if cfg.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", strings.ToUpper(KeyMaxUploadMB)))
	}
	for _, d := range []struct {
		name string
		val  time.Duration
	}{
		{KeyPollInterval, cfg.PollInterval},
		{KeyJobDeadline, cfg.JobDeadline},
		{KeySubmitTimeout, cfg.SubmitTimeout},
		{KeyStatusTimeout, cfg.StatusTimeout},
		{KeyFetchTimeout, cfg.FetchTimeout},
		{KeyBreakerCooldown, cfg.BreakerCooldown},
	} {
		if d.val <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive duration", strings.ToUpper(d.name)))
		}
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}
