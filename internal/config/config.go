// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Rotation  RotationConfig  `mapstructure:"rotation"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token           string `mapstructure:"token"`
	LeaderboardSize int    `mapstructure:"leaderboard_size"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// CatalogConfig holds external problem-catalog lookup configuration.
type CatalogConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ScoringConfig holds point values, bonuses and submission limits.
type ScoringConfig struct {
	EasyPoints        int           `mapstructure:"easy_points"`
	MediumPoints      int           `mapstructure:"medium_points"`
	HardPoints        int           `mapstructure:"hard_points"`
	DailyStreakBonus  int           `mapstructure:"daily_streak_bonus"`
	WeeklyStreakBonus int           `mapstructure:"weekly_streak_bonus"`
	Cooldown          time.Duration `mapstructure:"cooldown"`
	DuplicateWindow   time.Duration `mapstructure:"duplicate_window"`
}

// RotationConfig holds daily problem rotation configuration.
type RotationConfig struct {
	PostHour     int      `mapstructure:"post_hour"`
	PostMinute   int      `mapstructure:"post_minute"`
	Timezone     string   `mapstructure:"timezone"`
	Tiers        []int    `mapstructure:"tiers"`
	Topics       []string `mapstructure:"topics"`
	AnnounceChat int64    `mapstructure:"announce_chat"` // 0 disables announcements
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Location resolves the configured rotation timezone.
func (r *RotationConfig) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(r.Timezone)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. BOT_TOKEN, DATABASE_HOST, SCORING_COOLDOWN
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "practicebot")
	v.SetDefault("database.name", "practicebot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Bot defaults
	v.SetDefault("bot.leaderboard_size", 10)

	// Catalog defaults
	v.SetDefault("catalog.endpoint", "https://leetcode.com/graphql")
	v.SetDefault("catalog.timeout", "30s")

	// Scoring defaults
	v.SetDefault("scoring.easy_points", 10)
	v.SetDefault("scoring.medium_points", 20)
	v.SetDefault("scoring.hard_points", 40)
	v.SetDefault("scoring.daily_streak_bonus", 5)
	v.SetDefault("scoring.weekly_streak_bonus", 20)
	v.SetDefault("scoring.cooldown", "30s")
	v.SetDefault("scoring.duplicate_window", "720h") // 30 days

	// Rotation defaults
	v.SetDefault("rotation.post_hour", 0)
	v.SetDefault("rotation.post_minute", 0)
	v.SetDefault("rotation.timezone", "UTC")
	v.SetDefault("rotation.tiers", []int{1, 2, 3})
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
