// backupctl/internal/config/config.go
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	App    AppConfig
	Log    LogConfig
	Stat   StatConfig
}

type ServerConfig struct {
	Listen         string
	Mode           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

type AppConfig struct {
	// ConfigFile is the realms file path.
	ConfigFile  string
	ExchangeDir string
}

type LogConfig struct {
	Level  string
	Format string
}

// StatConfig bounds metric collection across realms.
type StatConfig struct {
	Timeout     time.Duration
	Concurrency int
}

// Load reads the configuration from the environment, after loading a .env
// file from the working directory when one exists.
func Load() *Config {
	_ = godotenv.Load()
	return FromViper(viper.New())
}

// FromViper applies the defaults to v, binds it to the environment and
// builds the Config.
func FromViper(v *viper.Viper) *Config {
	v.SetDefault("LISTEN", "0.0.0.0:8000")
	v.SetDefault("SERVER_MODE", "release")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 120)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("CONFIG_FILE", "")
	v.SetDefault("EXCHANGE_DIR", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("STAT_TIMEOUT_SECONDS", 30)
	v.SetDefault("STAT_CONCURRENCY", 4)

	// Read from environment variables
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Listen:         v.GetString("LISTEN"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    time.Duration(v.GetInt("SERVER_READ_TIMEOUT")) * time.Second,
			WriteTimeout:   time.Duration(v.GetInt("SERVER_WRITE_TIMEOUT")) * time.Second,
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		App: AppConfig{
			ConfigFile:  v.GetString("CONFIG_FILE"),
			ExchangeDir: v.GetString("EXCHANGE_DIR"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Stat: StatConfig{
			Timeout:     time.Duration(v.GetInt("STAT_TIMEOUT_SECONDS")) * time.Second,
			Concurrency: v.GetInt("STAT_CONCURRENCY"),
		},
	}
}
