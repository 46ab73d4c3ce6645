// Command notifier consumes the notification topics and materializes
// per-user notification rows.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/maurya-kamminana/taskmaster/internal/config"
	"github.com/maurya-kamminana/taskmaster/internal/notify"
	"github.com/maurya-kamminana/taskmaster/internal/repo"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	if err := run(log); err != nil {
		log.WithError(err).Fatal("notifier exited")
	}
}

func run(log *logrus.Logger) error {
	cfg, err := config.LoadNotifier()
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

	consumer := notify.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, repo.NewNotificationRepository(db), log)
	defer consumer.Close()

	log.WithField("group", cfg.ConsumerGroup).Info("consuming notification topics")
	return consumer.Run(ctx)
}
