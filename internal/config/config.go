package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port            int
	DataDir         string
	WebDir          string
	LogFile         string
	SessionSecret   string
	SessionLifetime int // minutes
	DefaultAdmin    string
	DefaultEmail    string
	DefaultPassword string
}

// Load reads userhub.yaml from the working directory or ./configs when
// present; USERHUB_* environment variables override both file and defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("data_dir", "./data")
	v.SetDefault("web_dir", "")
	v.SetDefault("log_file", "")
	v.SetDefault("session_secret", "change-me-in-production-32bytes!")
	v.SetDefault("session_lifetime_minutes", 60)
	v.SetDefault("default_admin", "admin")
	v.SetDefault("default_admin_email", "admin@localhost")
	v.SetDefault("default_admin_password", "admin")

	v.SetConfigName("userhub")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	v.SetEnvPrefix("USERHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.ReadInConfig() // missing config file is fine

	cfg := &Config{
		Port:            v.GetInt("port"),
		DataDir:         v.GetString("data_dir"),
		WebDir:          v.GetString("web_dir"),
		LogFile:         v.GetString("log_file"),
		SessionSecret:   v.GetString("session_secret"),
		SessionLifetime: v.GetInt("session_lifetime_minutes"),
		DefaultAdmin:    v.GetString("default_admin"),
		DefaultEmail:    v.GetString("default_admin_email"),
		DefaultPassword: v.GetString("default_admin_password"),
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	return cfg, nil
}
