// Package config loads and exposes application configuration (TOML + env).
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath = "config.toml"
	DefaultHTTPAddr   = ":8080"

	DefaultMeowerServer = "wss://server.meower.org/?v=1"
	DefaultMeowerAPIURL = "https://api.meower.org"
	DefaultOpsChat      = "home"
	DefaultAvatarBase   = "https://assets.meower.org/PFP/"

	DefaultRevoltAPIURL = "https://api.revolt.chat"
	DefaultRevoltWSURL  = "wss://ws.revolt.chat"

	DefaultPGHost     = "127.0.0.1"
	DefaultPGPort     = 5432
	DefaultPGUser     = "postgres"
	DefaultPGDatabase = "meowvolt"
	DefaultPGSSLMode  = "disable"

	DefaultPendingTTL = 15 * time.Minute
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Meower   MeowerConfig   `toml:"meower"`
	Revolt   RevoltConfig   `toml:"revolt"`
	Postgres PostgresConfig `toml:"postgres"`
	Bridge   BridgeConfig   `toml:"bridge"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the ops HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// MeowerConfig holds the Meower account and server endpoint.
type MeowerConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Server   string `toml:"server"`
	APIURL   string `toml:"api_url"`
	// OpsChat receives bridge failure reports (defaults to home).
	OpsChat string `toml:"ops_chat"`
}

// RevoltConfig holds the Revolt bot token and endpoints.
type RevoltConfig struct {
	Token  string `toml:"token"`
	APIURL string `toml:"api_url"`
	WSURL  string `toml:"ws_url"`
}

// PostgresConfig holds PostgreSQL connection parameters. URL, when set,
// wins over the individual fields.
type PostgresConfig struct {
	URL      string `toml:"url"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// BridgeConfig holds relay policy knobs.
type BridgeConfig struct {
	// AllowedChats is the set of Meower chats an operator may map a
	// Revolt channel onto.
	AllowedChats []string `toml:"allowed_chats"`
	// PendingTTL bounds how long a link handshake stays redeemable.
	PendingTTL string `toml:"pending_ttl"`
	// AvatarBase is the prefix for masquerade avatar URLs.
	AvatarBase string `toml:"avatar_base"`
}

// PendingTTLDuration parses BridgeConfig.PendingTTL, falling back to the
// default when empty or invalid.
func (c BridgeConfig) PendingTTLDuration() time.Duration {
	raw := strings.TrimSpace(c.PendingTTL)
	if raw == "" {
		return DefaultPendingTTL
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return DefaultPendingTTL
	}
	return d
}

// Load reads and parses the TOML config file at path, applies defaults for
// missing fields, and then applies environment overrides for secrets.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Meower: MeowerConfig{
			Server:  DefaultMeowerServer,
			APIURL:  DefaultMeowerAPIURL,
			OpsChat: DefaultOpsChat,
		},
		Revolt: RevoltConfig{
			APIURL: DefaultRevoltAPIURL,
			WSURL:  DefaultRevoltWSURL,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Bridge: BridgeConfig{
			AllowedChats: []string{"livechat", "home"},
			AvatarBase:   DefaultAvatarBase,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	applyEnv(&cfg)
	return cfg, nil
}

// Validate reports the first missing required secret. Startup must abort
// before any connection is opened when this fails.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Meower.Username) == "" {
		return errors.New("meower username is required (meower.username or MEOWER_USERNAME)")
	}
	if strings.TrimSpace(c.Meower.Password) == "" {
		return errors.New("meower password is required (meower.password or MEOWER_PASSWORD)")
	}
	if strings.TrimSpace(c.Revolt.Token) == "" {
		return errors.New("revolt token is required (revolt.token or REVOLT_TOKEN)")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MEOWER_USERNAME"); v != "" {
		cfg.Meower.Username = v
	}
	if v := os.Getenv("MEOWER_PASSWORD"); v != "" {
		cfg.Meower.Password = v
	}
	if v := os.Getenv("REVOLT_TOKEN"); v != "" {
		cfg.Revolt.Token = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.Postgres.URL = v
	}
}
