package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type SMSConfig struct {
	APIKey   string `yaml:"api_key"`
	SenderID string `yaml:"sender_id"`
	DryRun   bool   `yaml:"dry_run"`
}

type AuthConfig struct {
	AccessSecret  string `yaml:"access_secret"`
	RefreshSecret string `yaml:"refresh_secret"`

	// durations in seconds
	AccessTTL      int `yaml:"access_ttl"`
	RefreshTTL     int `yaml:"refresh_ttl"`
	CodeTTL        int `yaml:"code_ttl"`
	ResendCooldown int `yaml:"resend_cooldown"`
	// how long a verified phone stays usable for sign-up; 0 = until consumed
	VerifiedTTL int `yaml:"verified_ttl"`

	MaxAttempts int `yaml:"max_attempts"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	SMS  SMSConfig  `yaml:"sms"`
	Auth AuthConfig `yaml:"auth"`
}

func LoadConfig() *Config {
	f, err := os.Open("config/config.yaml")
	if err != nil {
		panic("Failed to open config.yaml: " + err.Error())
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		panic("Failed to parse config.yaml: " + err.Error())
	}

	if cfg.Auth.AccessSecret == "" || cfg.Auth.RefreshSecret == "" {
		panic("auth.access_secret and auth.refresh_secret are required")
	}
	if cfg.Auth.AccessTTL <= 0 {
		cfg.Auth.AccessTTL = int((15 * time.Minute).Seconds())
	}
	if cfg.Auth.RefreshTTL <= 0 {
		cfg.Auth.RefreshTTL = int((30 * 24 * time.Hour).Seconds())
	}
	if cfg.Auth.CodeTTL <= 0 {
		cfg.Auth.CodeTTL = int((5 * time.Minute).Seconds())
	}
	if cfg.Auth.ResendCooldown <= 0 {
		cfg.Auth.ResendCooldown = int(time.Minute.Seconds())
	}
	if cfg.Auth.MaxAttempts <= 0 {
		cfg.Auth.MaxAttempts = 5
	}
	return &cfg
}

func (a AuthConfig) AccessTTLDuration() time.Duration  { return time.Duration(a.AccessTTL) * time.Second }
func (a AuthConfig) RefreshTTLDuration() time.Duration { return time.Duration(a.RefreshTTL) * time.Second }
func (a AuthConfig) CodeTTLDuration() time.Duration    { return time.Duration(a.CodeTTL) * time.Second }
func (a AuthConfig) CooldownDuration() time.Duration   { return time.Duration(a.ResendCooldown) * time.Second }
func (a AuthConfig) VerifiedTTLDuration() time.Duration {
	return time.Duration(a.VerifiedTTL) * time.Second
}
