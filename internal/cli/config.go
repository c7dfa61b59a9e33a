package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/flowsync/pkg/store"
)

// Config is the TOML configuration file layout. All fields are optional;
// zero values fall back to defaults.
//
// Example (~/.config/flowsync/config.toml):
//
//	debounce_ms = 250
//
//	[serve]
//	listen = "127.0.0.1:8735"
//
//	[store]
//	backend = "file"
type Config struct {
	// DebounceMs overrides the sync engine's notification window.
	DebounceMs int `toml:"debounce_ms"`

	Serve ServeConfig `toml:"serve"`
	Store StoreConfig `toml:"store"`
}

// ServeConfig configures the preview server.
type ServeConfig struct {
	// Listen is the address the preview server binds to.
	Listen string `toml:"listen"`
}

// StoreConfig selects and configures the draft storage backend.
type StoreConfig struct {
	// Backend is one of memory, file, redis, mongo. Defaults to file.
	Backend string `toml:"backend"`

	// Path is the directory for the file backend. Defaults to the XDG
	// data directory.
	Path string `toml:"path"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// defaultConfig returns the configuration used when no file exists.
func defaultConfig() Config {
	return Config{
		Serve: ServeConfig{Listen: "127.0.0.1:8735"},
		Store: StoreConfig{Backend: store.BackendFile},
	}
}

// loadConfig reads the TOML config at path. An empty path falls back to
// the XDG location; a missing file yields defaults rather than an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, "config.toml")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Serve.Listen == "" {
		cfg.Serve.Listen = "127.0.0.1:8735"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = store.BackendFile
	}
	return cfg, nil
}

// openStore builds the draft store selected by the configuration.
func openStore(ctx context.Context, cfg StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case store.BackendMemory:
		return store.NewMemoryStore(), nil
	case store.BackendRedis:
		return store.NewRedisStore(ctx, store.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case store.BackendMongo:
		return store.NewMongoStore(ctx, store.MongoOptions{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		})
	default:
		dir := cfg.Path
		if dir == "" {
			var err error
			if dir, err = dataDir(); err != nil {
				return nil, err
			}
		}
		return store.NewFileStore(dir)
	}
}

// configDir returns the config directory using XDG standard (~/.config/flowsync/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// dataDir returns the data directory using XDG standard (~/.local/share/flowsync/).
func dataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}
