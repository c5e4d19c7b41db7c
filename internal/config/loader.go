package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/merchantops/gridview/internal/db"
)

// Config is the full runtime configuration of the server.
type Config struct {
	ServerAddr     string
	AllowedOrigins []string

	Database db.Config

	CacheSize int
	CacheTTL  time.Duration

	DefaultPageSize int
	MaxPageSize     int
}

// Load reads config.yaml from configPath when present and applies
// environment overrides (GRIDVIEW_DATABASE_HOST and so on). Missing files
// fall back to defaults.
func Load(configPath string) (Config, error) {
	cfg := Config{
		ServerAddr:      ":8080",
		AllowedOrigins:  []string{"*"},
		Database:        db.DefaultConfig(),
		CacheSize:       4096,
		CacheTTL:        5 * time.Minute,
		DefaultPageSize: 25,
		MaxPageSize:     200,
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("GRIDVIEW")

	v.BindEnv("server.addr")
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("cache.size")
	v.BindEnv("cache.ttl")
	v.BindEnv("paging.default")
	v.BindEnv("paging.max")

	// Config file is optional; defaults plus env vars are enough to run.
	_ = v.ReadInConfig()

	if v.IsSet("server.addr") {
		cfg.ServerAddr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("cache.size") {
		cfg.CacheSize = v.GetInt("cache.size")
	}
	if v.IsSet("cache.ttl") {
		cfg.CacheTTL = v.GetDuration("cache.ttl")
	}
	if v.IsSet("paging.default") {
		cfg.DefaultPageSize = v.GetInt("paging.default")
	}
	if v.IsSet("paging.max") {
		cfg.MaxPageSize = v.GetInt("paging.max")
	}

	return cfg, nil
}
