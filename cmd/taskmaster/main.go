// Command taskmaster runs the API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/maurya-kamminana/taskmaster/internal/auth"
	"github.com/maurya-kamminana/taskmaster/internal/config"
	"github.com/maurya-kamminana/taskmaster/internal/httpapi"
	"github.com/maurya-kamminana/taskmaster/internal/notify"
	"github.com/maurya-kamminana/taskmaster/internal/password"
	"github.com/maurya-kamminana/taskmaster/internal/repo"
	"github.com/maurya-kamminana/taskmaster/internal/session"
	"github.com/maurya-kamminana/taskmaster/internal/token"
)

func main() {
	// A missing .env is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	if err := run(log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(log *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer redisClient.Close()
	store := session.NewStore(redisClient, cfg.Store.Timeout)
	if err := store.Ping(ctx); err != nil {
		return err
	}

	codec, err := token.NewCodec(token.Config{
		AccessSecret:          cfg.JWT.AccessSecret,
		AccessSecretPrevious:  cfg.JWT.AccessSecretPrevious,
		RefreshSecret:         cfg.JWT.RefreshSecret,
		RefreshSecretPrevious: cfg.JWT.RefreshSecretPrevious,
		AccessTTL:             cfg.JWT.AccessTTL,
		RefreshTTL:            cfg.JWT.RefreshTTL,
		Leeway:                cfg.JWT.Leeway,
	})
	if err != nil {
		return err
	}

	publisher := notify.NewPublisher(cfg.KafkaBrokers, log)
	defer publisher.Close()
	if publisher == nil {
		log.Warn("KAFKA_BROKERS not set, notification events disabled")
	}

	users := repo.NewUserRepository(db)
	server := httpapi.NewServer(httpapi.Deps{
		Auth:          auth.NewService(users, codec, store, password.NewHasher()),
		Codec:         codec,
		Users:         users,
		Projects:      repo.NewProjectRepository(db),
		Tasks:         repo.NewTaskRepository(db),
		Comments:      repo.NewCommentRepository(db),
		Notifications: repo.NewNotificationRepository(db),
		Publisher:     publisher,
		Log:           log,
		DBPing:        db.PingContext,
		StorePing:     store.Ping,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.AppPort).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
