package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config carries the process configuration, loaded once at startup and
// immutable thereafter.
type Config struct {
	HTTPAddr string

	Partitions      int
	ProductIDs      []string
	SittingDelay    time.Duration
	OrderTimeout    time.Duration
	VolumeRetention time.Duration

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	RateLimit          time.Duration
	CounterLogInterval time.Duration
}

// Load reads configuration from the environment, with an optional .env
// file for local runs.
func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig() // no config file is fine

	viper.SetDefault("HTTP_ADDR", ":3000")
	viper.SetDefault("PARTITIONS", 4)
	viper.SetDefault("PRODUCT_IDS", defaultProductIDs())
	viper.SetDefault("SITTING_DELAY", "3s")
	viper.SetDefault("ORDER_TIMEOUT", "30s")
	viper.SetDefault("VOLUME_RETENTION", "10s")
	viper.SetDefault("DB_URL", "")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_TTL", "5m")
	viper.SetDefault("RATE_LIMIT", "0")
	viper.SetDefault("COUNTER_LOG_INTERVAL", "5s")

	return &Config{
		HTTPAddr:           viper.GetString("HTTP_ADDR"),
		Partitions:         viper.GetInt("PARTITIONS"),
		ProductIDs:         viper.GetStringSlice("PRODUCT_IDS"),
		SittingDelay:       viper.GetDuration("SITTING_DELAY"),
		OrderTimeout:       viper.GetDuration("ORDER_TIMEOUT"),
		VolumeRetention:    viper.GetDuration("VOLUME_RETENTION"),
		DatabaseURL:        viper.GetString("DB_URL"),
		RedisAddr:          viper.GetString("REDIS_ADDR"),
		RedisPassword:      viper.GetString("REDIS_PASSWORD"),
		RedisDB:            viper.GetInt("REDIS_DB"),
		CacheTTL:           viper.GetDuration("CACHE_TTL"),
		RateLimit:          viper.GetDuration("RATE_LIMIT"),
		CounterLogInterval: viper.GetDuration("COUNTER_LOG_INTERVAL"),
	}
}

// defaultProductIDs is the static product universe used when none is
// configured.
func defaultProductIDs() []string {
	ids := make([]string, 0, 100)
	for i := 1; i <= 100; i++ {
		ids = append(ids, fmt.Sprintf("product-%d", i))
	}
	return ids
}
