package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"machine-dashboard-client/config"
	"machine-dashboard-client/internal/alert"
	"machine-dashboard-client/internal/api"
	"machine-dashboard-client/internal/dashboard"
	"machine-dashboard-client/internal/db"
	"machine-dashboard-client/internal/notification"
	"machine-dashboard-client/internal/session"
	"machine-dashboard-client/internal/store"
	"machine-dashboard-client/internal/transport"
)

func setupLogging(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stdout)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if lvl < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	setupLogging(cfg.Logging.Level)
	logrus.Infof("configuration loaded from %s", configPath)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logrus.Fatalf("failed to initialize database: %v", err)
	}
	appStore := store.NewGormStore(gormDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logrus.Warn("VAPID keys are not configured; browser alert delivery is disabled")
	}

	var publisher notification.Publisher
	if cfg.MQTT.Enabled {
		mqttPub, err := notification.NewMQTTPublisher(cfg.MQTT)
		if err != nil {
			logrus.WithError(err).Warn("mqtt unavailable; alerts will not be published")
		} else {
			defer mqttPub.Close()
			publisher = mqttPub
		}
	}

	workerPool := notification.NewWorkerPool(cfg.Alerts.WorkerPoolSize, appStore, webpushOptions, publisher)
	workerPool.Start(ctx)

	client := transport.NewClient(cfg.Backend)
	feed := alert.NewFeed(cfg.Alerts.Display, workerPool)
	dash := dashboard.New(client, feed, dashboard.Options{
		ProductionLogLimit: cfg.Backend.ProductionLogLimit,
	})

	poller := transport.NewPoller(client, transport.PollerOptions{
		Interval:   cfg.Backend.PollInterval,
		RetryDelay: cfg.Backend.RetryDelay,
		Skip:       dash.PushOpen,
		OnSnapshot: dash.ApplySnapshot,
		OnError:    dash.PollFailed,
	})
	dash.SetFallback(poller.Trigger)
	realtime := transport.NewRealtime(cfg.Backend.PushURL, cfg.Backend.ReconnectDelay, dash)

	go dash.Run(ctx)
	go poller.Run(ctx)
	go realtime.Run(ctx)

	sessions := session.NewManager(cfg.Users, appStore)
	handler := api.NewHandler(dash, sessions, appStore, webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(handler, cfg.Server),
	}

	go func() {
		logrus.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logrus.Info("shutdown signal received, stopping services")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("HTTP server Shutdown: %v", err)
	}
	logrus.Info("server gracefully stopped")
}
