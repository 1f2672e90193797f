package config

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	db     *mongo.Database
	client *mongo.Client
	once   sync.Once
)

var log = logrus.WithField("prefix", "config")

// ConnectDB initializes and returns the MongoDB database connection.
func ConnectDB() *mongo.Database {
	once.Do(func() {
		mongoURI := viper.GetString("mongo.uri")
		if mongoURI == "" {
			log.Fatal("mongo.uri is not configured")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		c, err := mongo.NewClient(options.Client().ApplyURI(mongoURI))
		if err != nil {
			log.WithError(err).Fatal("failed to create MongoDB client")
		}

		if err := c.Connect(ctx); err != nil {
			log.WithError(err).Fatal("failed to connect to MongoDB")
		}

		log.Info("connected to MongoDB")

		client = c
		db = client.Database(viper.GetString("mongo.database"))
	})

	return db
}

// GetCollection returns a MongoDB collection by name
func GetCollection(name string) *mongo.Collection {
	return ConnectDB().Collection(name)
}
