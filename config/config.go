// Package config loads the Kernel's boot-time configuration from the
// process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config is the Kernel's full set of boot-time settings, parsed once
// from the environment and passed down to every package that needs it.
type Config struct {
	Port          int
	RedisURL      string // empty means unset: persistence degrades to store.MemStore (spec.md §6).
	AgentHost     string
	AgentPort     int
	PuppetMode    bool
	PatternFile   string
	WorkspaceRoot string
}

// Load reads every setting from the environment, applying the defaults
// documented per-field below. Returns an error if a numeric or boolean
// field is set but cannot be parsed.
//
// RedisURL has no default: spec.md §6 documents it as "optional;
// persistence disabled if unset", so Load leaves it empty rather than
// defaulting it to a local address, letting the caller choose
// store.MemStore over store.RedisStore.
func Load() (*Config, error) {
	c := &Config{
		RedisURL:      getenv("REDIS_URL", ""),
		AgentHost:     getenv("AGENT_HOST", "localhost"),
		PatternFile:   getenv("PATTERN_CONFIG_FILE", ""),
		WorkspaceRoot: getenv("WORKSPACE_ROOT", "/tmp/kernel-workspace"),
	}

	var err error
	if c.Port, err = getenvInt("KERNEL_PORT", 8080); err != nil {
		return nil, err
	}
	if c.AgentPort, err = getenvInt("AGENT_PORT", 9090); err != nil {
		return nil, err
	}
	if c.PuppetMode, err = getenvBool("PUPPET_MODE", false); err != nil {
		return nil, err
	}

	return c, nil
}

// AgentBaseURL is the base URL the invoker dials for every outbound
// worker call.
func (c *Config) AgentBaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.AgentHost, c.AgentPort)
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a valid integer: %w", key, v, err)
	}
	return n, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s=%q is not a valid boolean: %w", key, v, err)
	}
	return b, nil
}
