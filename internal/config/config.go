// Package config loads server settings from defaults, an optional TOML
// file, and SDB_-prefixed environment variables, in that order of
// increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Settings is the full server configuration.
type Settings struct {
	Debug  bool          `toml:"debug"`
	Listen string        `toml:"listen"`
	Store  StoreSettings `toml:"store"`
	Data   DataSettings  `toml:"data"`
	WAL    WALSettings   `toml:"wal"`
}

// StoreSettings selects the in-memory store implementation.
type StoreSettings struct {
	Strategy string `toml:"strategy"`
	Shards   int    `toml:"shards"`
}

// DataSettings controls snapshot persistence.
type DataSettings struct {
	SaveToDisk bool   `toml:"save_to_disk"`
	SavePath   string `toml:"save_path"`
}

// WALSettings controls the write-ahead log.
type WALSettings struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Default returns the built-in settings used when nothing else is
// configured.
func Default() Settings {
	return Settings{
		Debug:  false,
		Listen: ":8200",
		Store: StoreSettings{
			Strategy: "map",
			Shards:   0,
		},
		Data: DataSettings{
			SaveToDisk: false,
			SavePath:   "data/store.json",
		},
		WAL: WALSettings{
			Enabled: false,
			Dir:     "data/wal",
		},
	}
}

// Load builds Settings by layering the TOML file at path (skipped when
// path is empty or the file does not exist) and then environment
// overrides on top of the defaults.
func Load(path string) (Settings, error) {
	s := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &s); err != nil {
				return Settings{}, fmt.Errorf("load config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Settings{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := s.applyEnv(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// applyEnv overlays SDB_-prefixed environment variables onto s.
func (s *Settings) applyEnv() error {
	var err error
	s.Debug, err = envBool("SDB_DEBUG", s.Debug)
	if err != nil {
		return err
	}
	s.Listen = envString("SDB_LISTEN", s.Listen)
	s.Store.Strategy = envString("SDB_STORE_STRATEGY", s.Store.Strategy)
	s.Store.Shards, err = envInt("SDB_STORE_SHARDS", s.Store.Shards)
	if err != nil {
		return err
	}
	s.Data.SaveToDisk, err = envBool("SDB_DATA_SAVE_TO_DISK", s.Data.SaveToDisk)
	if err != nil {
		return err
	}
	s.Data.SavePath = envString("SDB_DATA_SAVE_PATH", s.Data.SavePath)
	s.WAL.Enabled, err = envBool("SDB_WAL_ENABLED", s.WAL.Enabled)
	if err != nil {
		return err
	}
	s.WAL.Dir = envString("SDB_WAL_DIR", s.WAL.Dir)
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s=%q: %w", key, v, err)
	}
	return parsed, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s=%q: %w", key, v, err)
	}
	return parsed, nil
}
