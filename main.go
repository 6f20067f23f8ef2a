package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brettboylen/thread-analyzer/api"
	"github.com/brettboylen/thread-analyzer/db"
	"github.com/brettboylen/thread-analyzer/server"
	"github.com/brettboylen/thread-analyzer/stats"
	"github.com/brettboylen/thread-analyzer/utils"
)

func main() {
	envPath := flag.String("env", ".env", "Path to .env file")
	logLevel := flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
	flag.Parse()

	log := setupLogger(*logLevel)
	log.Info("Starting Thread Analyzer")

	config, err := utils.LoadConfig(*envPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	log.WithFields(logrus.Fields{
		"oauth":         config.Reddit.ClientID != "",
		"comment_limit": config.Reddit.CommentLimit,
		"server_port":   config.Server.Port,
		"database":      config.Database.Path,
	}).Info("Configuration loaded")

	database, err := db.NewDatabase(config.Database.Path, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	// one client for the whole process; handlers share it
	redditAPI := api.NewRedditAPI(
		config.Reddit.ClientID,
		config.Reddit.ClientSecret,
		config.Reddit.UserAgent,
		config.Reddit.MaxRequestsPerMinute,
		log,
	)

	apiServer := server.New(
		server.Config{
			Port:              config.Server.Port,
			AllowOrigins:      config.Server.AllowOrigins,
			RequestsPerMinute: config.Server.RequestsPerMinute,
			CommentLimit:      config.Reddit.CommentLimit,
		},
		redditAPI,
		database,
		stats.NewAnalyzer(log),
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := apiServer.Start(ctx); err != nil {
			log.WithError(err).Error("API server stopped unexpectedly")
			cancel()
		}
	}()

	waitForShutdown(ctx, cancel, log)
	<-done
	log.Info("Thread Analyzer stopped")
}

// setupLogger sets up the logger with the specified log level
func setupLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

// waitForShutdown waits for a shutdown signal or for the server to give up
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, log *logrus.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.WithField("signal", sig.String()).Info("Shutdown signal received")
	case <-ctx.Done():
	}

	cancel()
}
