package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"crowdcare-be/broadcast"
	"crowdcare-be/config"
	"crowdcare-be/controllers"
	"crowdcare-be/duplicate"
	"crowdcare-be/exifgps"
	"crowdcare-be/middlewares"
	"crowdcare-be/resolution"
	"crowdcare-be/routes"
	"crowdcare-be/store"
	"crowdcare-be/verification"
	"crowdcare-be/ws"
)

func initLog() {
	logLevel, err := log.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		log.SetLevel(log.InfoLevel)
	} else {
		log.SetLevel(logLevel)
	}

	log.SetOutput(os.Stdout)

	log.SetFormatter(&prefixed.TextFormatter{
		ForceFormatting: true,
		FullTimestamp:   true,
	})
}

func main() {
	var configFile string
	flag.StringVar(&configFile, "c", "", "configuration file path")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found")
	}
	config.Load(configFile)
	initLog()

	db := config.ConnectDB()
	if db == nil {
		log.Fatal("Failed to connect to MongoDB")
	}
	config.ConnectRedis()

	reportStore, err := store.NewMongoStore(db)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize report store")
	}

	aiURL := viper.GetString("ai.url")
	aiClient := &http.Client{Timeout: 15 * time.Second}

	finder := duplicate.NewFinder(
		duplicate.NewHTTPSimilarityClassifier(aiURL, aiClient),
		viper.GetFloat64("duplicate.radius_meters"),
		viper.GetFloat64("duplicate.score_threshold"),
	)

	hub := broadcast.NewHub(viper.GetInt("broadcast.queue_size"))

	coordinator := resolution.NewCoordinator(
		reportStore,
		verification.NewEvidenceValidator(exifgps.NewExtractor(), viper.GetFloat64("resolution.radius_meters")),
		verification.NewHTTPIdentityVerifier(aiURL, aiClient),
		hub,
		resolution.Config{
			IdentityRequired: viper.GetBool("resolution.identity_required"),
			IdentityTimeout:  viper.GetDuration("resolution.identity_timeout"),
		},
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.CORSMiddleware())
	r.Use(middlewares.MetricsMiddleware())

	routes.AuthRoutes(r)
	routes.ReportRoutes(r,
		controllers.NewReportController(reportStore, finder, hub),
		controllers.NewResolutionController(coordinator, reportStore),
		controllers.NewDepartmentController(reportStore),
		ws.NewStatusSocket(hub),
	)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	addr := viper.GetString("server.address")
	log.WithField("addr", addr).Info("starting server")
	if err := r.Run(addr); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}
