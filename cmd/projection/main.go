package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/quickbite/order_fulfillment/internal/config"
	readModelRepository "github.com/quickbite/order_fulfillment/internal/repository/readmodel"
	"github.com/quickbite/order_fulfillment/internal/workers/projection"
	"github.com/quickbite/order_fulfillment/pkg/brokers/kafka/consumer"
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

	projector := projection.NewProjector(log, readModelRepository.New(log, db.GetDB()))

	group, err := consumer.NewGroup(
		log,
		cfg.Kafka.BrokerList,
		cfg.Kafka.ProjectionGroupID,
		[]string{cfg.Kafka.EventsTopic},
		projector,
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create consumer group: %v", err))
	}
	defer group.Close()

	log.Info("projection consumer started")

	workers, workersCtx := errgroup.WithContext(ctx)
	workers.Go(func() error {
		return group.Run(workersCtx)
	})

	if err = workers.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		panic(fmt.Sprintf("projection consumer stopped: %v", err))
	}

	log.Info("projection consumer stopped")
}

func postgresDSN(psqlCfg *config.PostgresConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		psqlCfg.Host, psqlCfg.Port, psqlCfg.User, psqlCfg.DbName, psqlCfg.Pwd, psqlCfg.SslMode)
}
