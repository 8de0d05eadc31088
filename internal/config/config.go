// Package config loads service configuration from an optional YAML file,
// with environment variables taking precedence over both the file and the
// defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/laytan/tubescript/internal/fetch"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "tubescript.yaml"

type Config struct {
	// Addr the HTTP server listens on.
	Addr string `yaml:"addr"`
	// CacheDir may reference environment variables ($TMP/cache).
	CacheDir string `yaml:"cache_dir"`

	// Webshare rotating proxy credentials, both empty disables the proxy and
	// with it the concurrent racing.
	Webshare struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"webshare"`

	MaxConcurrentAttempts int `yaml:"max_concurrent_attempts"`
	AttemptTimeoutSeconds int `yaml:"attempt_timeout_seconds"`
	RaceTimeoutSeconds    int `yaml:"race_timeout_seconds"`
}

func Default() *Config {
	return &Config{
		Addr:                  ":5485",
		CacheDir:              "cache",
		MaxConcurrentAttempts: fetch.DefaultMaxAttempts,
		AttemptTimeoutSeconds: int(fetch.DefaultAttemptTimeout / time.Second),
	}
}

// Load reads the YAML file at path if it exists (fields present override the
// defaults) and applies environment overrides on top.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config %q: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}

	cfg.applyEnv()
	cfg.CacheDir = os.ExpandEnv(cfg.CacheDir)

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("ADDR"); ok {
		c.Addr = v
	}
	if v, ok := os.LookupEnv("CACHE_DIR"); ok {
		c.CacheDir = v
	}
	if v, ok := os.LookupEnv("WEBSHARE_USERNAME"); ok {
		c.Webshare.Username = v
	}
	if v, ok := os.LookupEnv("WEBSHARE_PASSWORD"); ok {
		c.Webshare.Password = v
	}
	intEnv("MAX_CONCURRENT_REQUESTS", &c.MaxConcurrentAttempts)
	intEnv("ATTEMPT_TIMEOUT_SECONDS", &c.AttemptTimeoutSeconds)
	intEnv("RACE_TIMEOUT_SECONDS", &c.RaceTimeoutSeconds)
}

func intEnv(name string, dst *int) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		// A broken value should not silently fall back.
		panic(fmt.Sprintf("environment variable %s=%q is not a number", name, v))
	}
	*dst = n
}

// ProxyURL builds the rotating Webshare endpoint from the configured
// credentials, nil when they are not set. Webshare routes rotating requests
// by a "-rotate" suffix on the username, which is appended here so the
// configured value can be the bare account name.
func (c *Config) ProxyURL() *url.URL {
	if c.Webshare.Username == "" || c.Webshare.Password == "" {
		return nil
	}

	username := strings.TrimSuffix(c.Webshare.Username, "-rotate") + "-rotate"
	return &url.URL{
		Scheme: "http",
		User:   url.UserPassword(username, c.Webshare.Password),
		Host:   "p.webshare.io:80",
	}
}

// FetchConfig translates the loaded settings into the fetch pipeline's
// bounds.
func (c *Config) FetchConfig() fetch.Config {
	return fetch.Config{
		MaxAttempts:    c.MaxConcurrentAttempts,
		AttemptTimeout: time.Duration(c.AttemptTimeoutSeconds) * time.Second,
		RaceTimeout:    time.Duration(c.RaceTimeoutSeconds) * time.Second,
	}
}
