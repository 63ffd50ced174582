package config

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	flag "github.com/spf13/pflag"
)

func TestEnvName(t *testing.T) {
	c := qt.New(t)
	c.Assert(EnvName("port"), qt.Equals, "ZKGAMES_PORT")
	c.Assert(EnvName("sessionTimeout"), qt.Equals, "ZKGAMES_SESSION_TIMEOUT")
	c.Assert(EnvName("artifactsURL"), qt.Equals, "ZKGAMES_ARTIFACTS_URL")
}

func TestApplyEnv(t *testing.T) {
	c := qt.New(t)
	env := map[string]string{
		"ZKGAMES_PORT":            "8080",
		"ZKGAMES_SESSION_TIMEOUT": "90s",
		"ZKGAMES_LOG_LEVEL":       "debug",
		"ZKGAMES_ALLOW_SETUP":     "true",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.Flags(fs)
	c.Assert(fs.Parse([]string{"--logLevel", "warn"}), qt.IsNil)
	c.Assert(ApplyEnv(fs, lookup), qt.IsNil)

	c.Assert(cfg.API.Port, qt.Equals, 8080)
	c.Assert(cfg.SessionTimeout, qt.Equals, 90*time.Second)
	c.Assert(cfg.AllowSetup, qt.IsTrue)
	// command line wins over the environment
	c.Assert(cfg.Log.Level, qt.Equals, "warn")
	c.Assert(cfg.Validate(), qt.IsNil)

	env["ZKGAMES_MONITOR_INTERVAL"] = "soon"
	cfg = Default()
	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.Flags(fs)
	c.Assert(ApplyEnv(fs, lookup), qt.ErrorMatches, `invalid value "soon" for ZKGAMES_MONITOR_INTERVAL.*`)
}

func TestValidate(t *testing.T) {
	c := qt.New(t)
	cfg := Default()
	c.Assert(cfg.Validate(), qt.IsNil)

	cfg.API.Port = 70000
	c.Assert(cfg.Validate(), qt.ErrorMatches, "invalid port 70000")

	cfg = Default()
	cfg.SessionTimeout = 0
	c.Assert(cfg.Validate(), qt.ErrorMatches, "session timeout must be positive")

	cfg = Default()
	cfg.Log.Level = "verbose"
	c.Assert(cfg.Validate(), qt.ErrorMatches, `invalid log level "verbose"`)
}
