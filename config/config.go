package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from an optional yaml file and the CROWDCARE_
// environment, then applies defaults for everything unset.
func Load(file string) {
	viper.SetConfigType("yaml")
	if file != "" {
		viper.SetConfigFile(file)
	}

	viper.AddConfigPath("/.config/")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("No config file. Read config from env.")
		viper.AllowEmptyEnv(false)
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("crowdcare")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("log.level", "info")

	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "crowdcare")

	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")

	viper.SetDefault("ai.url", "http://localhost:8000")

	viper.SetDefault("duplicate.radius_meters", 30.0)
	viper.SetDefault("duplicate.score_threshold", 0.5)

	viper.SetDefault("resolution.radius_meters", 30.0)
	viper.SetDefault("resolution.identity_required", true)
	viper.SetDefault("resolution.identity_timeout", 10*time.Second)

	viper.SetDefault("broadcast.queue_size", 32)

	viper.SetDefault("ratelimit.reports_per_day", 5)
}
