package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		BotToken    string `yaml:"bot_token"`
		GroupChatID int64  `yaml:"group_chat_id"`
		Debug       bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Reminders struct {
		TickIntervalMinutes int `yaml:"tick_interval_minutes"`
		WindowMinutes       int `yaml:"window_minutes"`
		MessagesPerSecond   int `yaml:"messages_per_second"`
		MessageBurst        int `yaml:"message_burst"`
	} `yaml:"reminders"`

	API struct {
		Port int `yaml:"port"`
	} `yaml:"api"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Directory     string `yaml:"directory"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Access struct {
		BlockedNames []string `yaml:"blocked_names"`
	} `yaml:"access"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/slotboard.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ReminderTick() time.Duration {
	if c.Reminders.TickIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Reminders.TickIntervalMinutes) * time.Minute
}

func (c *Config) ReminderWindow() time.Duration {
	if c.Reminders.WindowMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Reminders.WindowMinutes) * time.Minute
}
