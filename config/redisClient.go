package config

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

var Ctx = context.Background()
var RedisClient *redis.Client

// ConnectRedis initializes the Redis client
func ConnectRedis() {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     viper.GetString("redis.address"),
		Password: viper.GetString("redis.password"),
		DB:       0, // default DB
	})

	if _, err := RedisClient.Ping(Ctx).Result(); err != nil {
		log.WithError(err).Fatal("failed to connect to Redis")
	}

	log.Info("connected to Redis")
}
