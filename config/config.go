// Package config holds the node configuration. Values come from command
// line flags, and every flag can be overridden by a ZKGAMES_ prefixed
// environment variable (logLevel is read from ZKGAMES_LOG_LEVEL).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	flag "github.com/spf13/pflag"

	"github.com/vocdoni/zkgames/log"
)

// EnvPrefix is the prefix of the environment variables that override flags.
const EnvPrefix = "ZKGAMES_"

const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 9090
	DefaultSessionTimeout  = 10 * time.Minute
	DefaultMonitorInterval = 30 * time.Second
)

// Config is the configuration of a zkgames node.
type Config struct {
	API APIConfig
	Log LogConfig
	// Datadir is where the session database lives.
	Datadir string
	// SessionTimeout is the inactivity period after which a session expires.
	SessionTimeout time.Duration
	// MonitorInterval is how often expired sessions are collected.
	MonitorInterval time.Duration
	Artifacts       ArtifactsConfig
	// AllowSetup enables the local (single party, unsafe) Groth16 setup of
	// circuits without registered keys.
	AllowSetup bool
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	Host string
	Port int
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string
	Output string
	// ErrorFile receives a copy of warning and error lines if set.
	ErrorFile string
}

// ArtifactsConfig configures the circuit artifact cache.
type ArtifactsConfig struct {
	Dir         string
	CheckHashes bool
	// RemoteURL is the base URL artifacts missing from the cache are
	// downloaded from, as <RemoteURL>/<hex sha256>.
	RemoteURL string
}

// Default returns the default configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return &Config{
		API: APIConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Log: LogConfig{
			Level:  log.LogLevelInfo,
			Output: "stdout",
		},
		Datadir:         filepath.Join(home, ".zkgames"),
		SessionTimeout:  DefaultSessionTimeout,
		MonitorInterval: DefaultMonitorInterval,
		Artifacts: ArtifactsConfig{
			Dir:         filepath.Join(home, ".cache", "zkgames-artifacts"),
			CheckHashes: true,
		},
	}
}

// Flags registers the configuration flags in fs, bound to c.
func (c *Config) Flags(fs *flag.FlagSet) {
	fs.StringVar(&c.API.Host, "host", c.API.Host, "API listen address")
	fs.IntVar(&c.API.Port, "port", c.API.Port, "API listen port")
	fs.StringVarP(&c.Datadir, "datadir", "d", c.Datadir, "data directory")
	fs.StringVarP(&c.Log.Level, "logLevel", "l", c.Log.Level, "log level (debug, info, warn, error)")
	fs.StringVarP(&c.Log.Output, "logOutput", "o", c.Log.Output, "log output (stdout, stderr or filepath)")
	fs.StringVar(&c.Log.ErrorFile, "logErrorFile", c.Log.ErrorFile, "file to copy warning and error logs to")
	fs.DurationVar(&c.SessionTimeout, "sessionTimeout", c.SessionTimeout, "inactivity period after which a session expires")
	fs.DurationVar(&c.MonitorInterval, "monitorInterval", c.MonitorInterval, "interval between expired session checks")
	fs.StringVar(&c.Artifacts.Dir, "artifactsDir", c.Artifacts.Dir, "circuit artifacts cache directory")
	fs.BoolVar(&c.Artifacts.CheckHashes, "checkHashes", c.Artifacts.CheckHashes, "check the sha256 of the circuit artifacts")
	fs.StringVar(&c.Artifacts.RemoteURL, "artifactsURL", c.Artifacts.RemoteURL, "base URL to download missing circuit artifacts from")
	fs.BoolVar(&c.AllowSetup, "allowSetup", c.AllowSetup, "run a local (unsafe) groth16 setup for circuits without keys")
}

// Load parses args with the default configuration as base and applies the
// environment overrides of the flags not set on the command line.
func Load(args []string) (*Config, error) {
	c := Default()
	fs := flag.NewFlagSet("zkgames", flag.ContinueOnError)
	c.Flags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := ApplyEnv(fs, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv sets every flag of fs that was not changed on the command line
// from its environment variable, if present.
func ApplyEnv(fs *flag.FlagSet, lookup func(string) (string, bool)) error {
	var err error
	fs.VisitAll(func(f *flag.Flag) {
		if err != nil || f.Changed {
			return
		}
		value, ok := lookup(EnvName(f.Name))
		if !ok {
			return
		}
		if setErr := fs.Set(f.Name, value); setErr != nil {
			err = fmt.Errorf("invalid value %q for %s: %w", value, EnvName(f.Name), setErr)
		}
	})
	return err
}

// EnvName returns the environment variable of a flag: sessionTimeout
// becomes ZKGAMES_SESSION_TIMEOUT.
func EnvName(flagName string) string {
	var b strings.Builder
	b.WriteString(EnvPrefix)
	prevLower := false
	for _, r := range flagName {
		if unicode.IsUpper(r) && prevLower {
			b.WriteByte('_')
		}
		prevLower = unicode.IsLower(r)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.API.Port)
	}
	if c.Datadir == "" {
		return fmt.Errorf("datadir is required")
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("session timeout must be positive")
	}
	if c.MonitorInterval <= 0 {
		return fmt.Errorf("monitor interval must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case log.LogLevelDebug, log.LogLevelInfo, log.LogLevelWarn, log.LogLevelError:
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}
