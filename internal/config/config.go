package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is looked up in the standard config directories.
const FileName = "wiki-fetch.yaml"

// Config holds settings shared by the server, daemon and CLI.
type Config struct {
	// Source is the file the values came from, empty when none was found.
	Source string `yaml:"-"`

	API     string        `yaml:"api"`
	Lang    string        `yaml:"lang"`
	Contact string        `yaml:"contact"`
	Debug   bool          `yaml:"debug"`
	TTL     time.Duration `yaml:"ttl"`
	Socket  string        `yaml:"socket"`
	DB      string        `yaml:"db"`

	// PurgeOneIn sets the odds of the startup purge; negative disables it.
	PurgeOneIn int `yaml:"purge_one_in"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Config {
	dir := cacheDir()
	return Config{
		API:    "https://en.wikipedia.org/w/api.php",
		Lang:   "en",
		Socket: filepath.Join(dir, "cache.sock"),
		DB:     filepath.Join(dir, "cache.bbolt"),
	}
}

// Load reads the config file, if any, over Defaults and then applies
// WIKI_FETCH_* environment overrides. A missing file is not an error.
func Load() (Config, error) {
	cfg := Defaults()
	path, err := findFile()
	if err != nil {
		return cfg, err
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg.Source = path
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	for env, dst := range map[string]*string{
		"WIKI_FETCH_API":     &c.API,
		"WIKI_FETCH_LANG":    &c.Lang,
		"WIKI_FETCH_CONTACT": &c.Contact,
		"WIKI_FETCH_SOCK":    &c.Socket,
		"WIKI_FETCH_DB":      &c.DB,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("WIKI_FETCH_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("WIKI_FETCH_DEBUG: %w", err)
		}
		c.Debug = b
	}
	if v := os.Getenv("WIKI_FETCH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("WIKI_FETCH_TTL: %w", err)
		}
		c.TTL = d
	}
	return nil
}

// findFile returns WIKI_FETCH_CONFIG when set, else the first FileName under
// XDG_CONFIG_HOME, APPDATA or HOME. An explicit path must exist.
func findFile() (string, error) {
	if p := os.Getenv("WIKI_FETCH_CONFIG"); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", err
		}
		return p, nil
	}
	for _, dir := range []string{
		os.Getenv("XDG_CONFIG_HOME"),
		os.Getenv("APPDATA"),
		os.Getenv("HOME"),
	} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		file := filepath.Join(dir, FileName)
		info, err := os.Stat(file)
		if err == nil && !info.IsDir() {
			return file, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", nil
}

func cacheDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "wiki-fetch")
}
