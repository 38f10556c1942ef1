// Package config loads the agent's own settings — proxy host/port,
// default parallelism, log level — layering built-in defaults, an INI
// file, environment variables, and CLI flags, highest precedence last.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\sfagent\config
//   - Unix: ~/.config/sfagent/config
//
// INI format:
//
//	[https]
//	proxyHost = proxy.internal.example.com
//	proxyPort = 8080
//
//	[agent]
//	parallel = 10
//	logLevel = info
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/ini.v1"

	"github.com/gregakespret/sfagent/internal/model"
)

// Config holds the agent's proxy and default-transfer settings.
type Config struct {
	ProxyHost string `ini:"proxyHost"`
	ProxyPort int    `ini:"proxyPort"`

	DefaultParallel int    `ini:"parallel"`
	LogLevel        string `ini:"logLevel"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		DefaultParallel: 10,
		LogLevel:        "info",
	}
}

// Path returns the default config file location for the current OS user.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "sfagent", "config"), nil
}

// Load layers the built-in defaults, the INI file at path (if it
// exists), and environment variables HTTPS_PROXY_HOST/HTTPS_PROXY_PORT,
// matching the https.proxyHost/https.proxyPort wire naming from the
// connection properties the agent is configured through. CLI flags are
// applied by the caller after Load returns, since they need access to
// the flag set.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			file, err := ini.Load(path)
			if err != nil {
				return nil, err
			}
			if sec := file.Section("https"); sec != nil {
				cfg.ProxyHost = sec.Key("proxyHost").MustString(cfg.ProxyHost)
				cfg.ProxyPort = sec.Key("proxyPort").MustInt(cfg.ProxyPort)
			}
			if sec := file.Section("agent"); sec != nil {
				cfg.DefaultParallel = sec.Key("parallel").MustInt(cfg.DefaultParallel)
				cfg.LogLevel = sec.Key("logLevel").MustString(cfg.LogLevel)
			}
		}
	}

	if v := os.Getenv("HTTPS_PROXY_HOST"); v != "" {
		cfg.ProxyHost = v
	}
	if v := os.Getenv("HTTPS_PROXY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.ProxyPort = port
		}
	}

	return cfg, nil
}

// ResolveParallel clamps a plan's requested parallelism to at least 1,
// falling back to the configured default when the plan leaves it unset.
func ResolveParallel(flags model.TransferFlags, cfg *Config) int {
	if flags.Parallel > 0 {
		return flags.Parallel
	}
	if cfg != nil && cfg.DefaultParallel > 0 {
		return cfg.DefaultParallel
	}
	return 10
}
