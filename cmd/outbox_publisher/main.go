package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/quickbite/order_fulfillment/internal/config"
	outboxRepository "github.com/quickbite/order_fulfillment/internal/repository/outbox"
	"github.com/quickbite/order_fulfillment/internal/workers/outbox"
	"github.com/quickbite/order_fulfillment/pkg/brokers/kafka/producer"
	"github.com/quickbite/order_fulfillment/pkg/databases/postgres"
	"github.com/quickbite/order_fulfillment/pkg/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.InitConfig()

	log := logger.NewSlogLogger(logger.SlogEnvironment(cfg.Env))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	db, err := postgres.NewPostgresDB(ctx, log, postgresDSN(&cfg.Postgres))
	if err != nil {
		panic(fmt.Sprintf("failed to connect to postgres: %v", err))
	}
	defer db.Close()

	syncProducer, err := producer.NewSyncProducer(cfg.Kafka.BrokerList)
	if err != nil {
		panic(fmt.Sprintf("failed to create kafka producer: %v", err))
	}
	defer syncProducer.Close()

	publisher := outbox.NewPublisher(
		log,
		syncProducer,
		outboxRepository.New(log, db.GetDB()),
		cfg.Kafka.EventsTopic,
		cfg.Kafka.SagaTopic,
		cfg.Outbox.PollInterval,
		cfg.Outbox.BatchSize,
	)

	log.Info("outbox publisher started")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return publisher.Run(groupCtx)
	})

	if err = group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		panic(fmt.Sprintf("outbox publisher stopped: %v", err))
	}

	log.Info("outbox publisher stopped")
}

func postgresDSN(psqlCfg *config.PostgresConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		psqlCfg.Host, psqlCfg.Port, psqlCfg.User, psqlCfg.DbName, psqlCfg.Pwd, psqlCfg.SslMode)
}
