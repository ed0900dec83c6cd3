package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	APNs     APNsConfig     `yaml:"apns"`
	Swipes   SwipesConfig   `yaml:"swipes"`
	Chat     ChatConfig     `yaml:"chat"`
	Presence PresenceConfig `yaml:"presence"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration. Driver "memory" runs the
// engine against the in-process store (local development and tests).
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds redis configuration for the super-like budget.
// Leaving Addr empty keeps the budget in-process.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// APNsConfig holds push notification configuration. Push delivery is an
// external collaborator; leaving CertFile empty disables it.
type APNsConfig struct {
	CertFile   string `yaml:"cert_file"`
	CertPass   string `yaml:"cert_pass"`
	Topic      string `yaml:"topic"`
	Production bool   `yaml:"production"`
	// DeviceTokens maps user ids to their registered device tokens until a
	// device registry service replaces it.
	DeviceTokens map[string][]string `yaml:"device_tokens"`
}

// SwipesConfig holds swipe and rate-budget configuration
type SwipesConfig struct {
	DailySuperLikes int `yaml:"daily_super_likes"`
	// User ids entitled to undo. Entitlement issuance lives outside the
	// engine; this static list stands in for the external gate.
	UndoUserIDs []string `yaml:"undo_user_ids"`
}

// ChatConfig holds conversation policy configuration
type ChatConfig struct {
	EditWindowHours      int  `yaml:"edit_window_hours"`
	MaxPinnedMessages    int  `yaml:"max_pinned_messages"`
	MuteSuppressesTyping bool `yaml:"mute_suppresses_typing"`
}

// PresenceConfig holds presence tracking configuration
type PresenceConfig struct {
	GraceDelay time.Duration `yaml:"grace_delay"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Swipes.DailySuperLikes == 0 {
		c.Swipes.DailySuperLikes = 3
	}
	if c.Chat.EditWindowHours == 0 {
		c.Chat.EditWindowHours = 48
	}
	if c.Chat.MaxPinnedMessages == 0 {
		c.Chat.MaxPinnedMessages = 5
	}
	if c.Presence.GraceDelay == 0 {
		c.Presence.GraceDelay = 5 * time.Second
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
