package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Shorts     ShortsConfig     `yaml:"shorts"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Schedule   string           `yaml:"schedule"`
}

type ShortsConfig struct {
	// Drive folders holding the candidate videos, comma-separated in the
	// GDRIVE_FOLDER_IDS environment variable.
	FolderIDs []string `yaml:"folder_ids"`
	// Base64-encoded service account JSON used for Drive access.
	ServiceAccountB64 string `yaml:"service_account_b64" env:"GDRIVE_SA_JSON_B64"`

	ClientSecretsFile string `yaml:"client_secrets_file" env:"CLIENT_SECRETS_FILE"`
	CredentialsFile   string `yaml:"credentials_file" env:"CREDENTIALS_FILE"`
	Category          string `yaml:"category" env:"YT_CATEGORY"`
	Privacy           string `yaml:"privacy" env:"YT_PRIVACY"`

	// ForcePost makes the next run publish even when no slot is due.
	ForcePost bool `yaml:"force_post"`

	StateDir     string `yaml:"state_dir"`
	Timezone     string `yaml:"timezone"`
	SlotHours    []int  `yaml:"slot_hours"`
	MinuteStep   int    `yaml:"minute_step"`
	GraceMinutes int    `yaml:"grace_minutes"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	if data, err := os.ReadFile(configFile); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	if ids := os.Getenv("GDRIVE_FOLDER_IDS"); ids != "" {
		cfg.Shorts.FolderIDs = splitFolderIDs(ids)
	}
	if cfg.Shorts.ServiceAccountB64 == "" {
		cfg.Shorts.ServiceAccountB64 = os.Getenv("GDRIVE_SA_JSON_B64")
	}
	if v := os.Getenv("CLIENT_SECRETS_FILE"); v != "" {
		cfg.Shorts.ClientSecretsFile = v
	}
	if v := os.Getenv("CREDENTIALS_FILE"); v != "" {
		cfg.Shorts.CredentialsFile = v
	}
	if v := os.Getenv("YT_CATEGORY"); v != "" {
		cfg.Shorts.Category = v
	}
	if v := os.Getenv("YT_PRIVACY"); v != "" {
		cfg.Shorts.Privacy = v
	}
	if os.Getenv("FORCE_POST") == "1" {
		cfg.Shorts.ForcePost = true
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Shorts.ClientSecretsFile == "" {
		c.Shorts.ClientSecretsFile = "client_secrets.json"
	}
	if c.Shorts.CredentialsFile == "" {
		c.Shorts.CredentialsFile = "youtube_credentials.json"
	}
	if c.Shorts.Category == "" {
		c.Shorts.Category = "Entertainment"
	}
	if c.Shorts.Privacy == "" {
		c.Shorts.Privacy = "public"
	}
	if c.Shorts.StateDir == "" {
		c.Shorts.StateDir = "state"
	}
	if c.Shorts.Timezone == "" {
		c.Shorts.Timezone = "Europe/Paris"
	}
	if len(c.Shorts.SlotHours) == 0 {
		c.Shorts.SlotHours = []int{8, 11, 14, 17, 20}
	}
	if c.Shorts.MinuteStep == 0 {
		c.Shorts.MinuteStep = 5
	}
	if c.Shorts.GraceMinutes == 0 {
		c.Shorts.GraceMinutes = 20
	}
	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}
	if c.Schedule == "" {
		c.Schedule = "0 */5 * * * *" // Every 5 minutes
	}
}

func (c *Config) validate() error {
	if len(c.Shorts.FolderIDs) == 0 {
		return fmt.Errorf("at least one Drive folder is required (set GDRIVE_FOLDER_IDS or shorts.folder_ids)")
	}
	if c.Shorts.ServiceAccountB64 == "" {
		return fmt.Errorf("Drive service account is required (set GDRIVE_SA_JSON_B64 or shorts.service_account_b64)")
	}
	if c.Shorts.MinuteStep < 1 || c.Shorts.MinuteStep > 60 {
		return fmt.Errorf("minute_step must be between 1 and 60, got %d", c.Shorts.MinuteStep)
	}
	for _, h := range c.Shorts.SlotHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("slot hour out of range: %d", h)
		}
	}
	return nil
}

func splitFolderIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
