package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Server struct {
		Port               string `envconfig:"PORT" default:"8686"`
		BindAddress        string `envconfig:"BIND_ADDRESS" default:"127.0.0.1"`
		CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
		APIKey             string `envconfig:"API_KEY" default:""`
		APIKeyRequired     bool   `envconfig:"API_KEY_REQUIRED" default:"false"`
	}

	Configuration struct {
		RateLimitPerSecond  int `envconfig:"RATE_LIMIT_PER_SECOND" default:"20"`
		RateLimitBurstLimit int `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"40"`

		// Editor pipeline
		CommitDebounceMs int `envconfig:"COMMIT_DEBOUNCE_MS" default:"300"`
		HistoryLimit     int `envconfig:"HISTORY_LIMIT" default:"20"`
		NoticeTTLSeconds int `envconfig:"NOTICE_TTL_SECONDS" default:"3"`

		StorageBreakerThreshold    int `envconfig:"STORAGE_BREAKER_THRESHOLD" default:"3"`    // Consecutive write failures before the guard opens
		StorageBreakerCooldownSecs int `envconfig:"STORAGE_BREAKER_COOLDOWN_SECS" default:"30"` // Seconds before a write is attempted again
	}

	Storage struct {
		DBPath     string `envconfig:"DB_PATH" default:"./data/songwriter.db"`
		BackupPath string `envconfig:"BACKUP_PATH" default:"./data/backups"`
		SyncDir    string `envconfig:"SYNC_DIR" default:""`
	}

	Logging struct {
		Level      string `envconfig:"LOG_LEVEL" default:"info"`
		File       string `envconfig:"LOG_FILE" default:""`
		MaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"10"`
		MaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"3"`
	}

	FeatureFlags struct {
		StorageCompression bool `envconfig:"FF_STORAGE_COMPRESSION" default:"true"`
	}
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Debugf("No .env file loaded: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}

// Reload re-reads the environment. Used by the CLI after flags are applied.
func Reload() Config {
	conf = mustLoad()
	return conf
}

// CommitDebounce returns the quiet period before a content edit is committed.
func (c Config) CommitDebounce() time.Duration {
	return time.Duration(c.Configuration.CommitDebounceMs) * time.Millisecond
}

// NoticeTTL returns how long transient notices stay visible.
func (c Config) NoticeTTL() time.Duration {
	return time.Duration(c.Configuration.NoticeTTLSeconds) * time.Second
}

// StorageBreakerCooldown returns the storage guard cooldown.
func (c Config) StorageBreakerCooldown() time.Duration {
	return time.Duration(c.Configuration.StorageBreakerCooldownSecs) * time.Second
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.Server.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// ListenAddr joins the bind address and port.
func (c Config) ListenAddr() string {
	return c.Server.BindAddress + ":" + c.Server.Port
}
