package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/quickbite/order_fulfillment/internal/config"
	orderRepository "github.com/quickbite/order_fulfillment/internal/repository/order"
	sagaRepository "github.com/quickbite/order_fulfillment/internal/repository/saga"
	"github.com/quickbite/order_fulfillment/internal/workers/saga"
	"github.com/quickbite/order_fulfillment/pkg/brokers/kafka/consumer"
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

	seed := time.Now().UnixNano()

	orchestrator := saga.NewOrchestrator(
		log,
		syncProducer,
		sagaRepository.New(log, db.GetDB()),
		orderRepository.NewRepository(log, db.GetDB()),
		saga.NewSimulatedPaymentProcessor(cfg.Saga.PaymentFailureRate, seed),
		saga.NewSimulatedInventoryReserver(cfg.Saga.InventoryFailureRate, seed+1),
		cfg.Kafka.SagaTopic,
		cfg.Kafka.EventsTopic,
		cfg.Kafka.DeadLetterTopic,
	)

	group, err := consumer.NewGroup(
		log,
		cfg.Kafka.BrokerList,
		cfg.Kafka.SagaGroupID,
		[]string{cfg.Kafka.SagaTopic, cfg.Kafka.EventsTopic},
		orchestrator,
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create consumer group: %v", err))
	}
	defer group.Close()

	log.Info("saga orchestrator started")

	workers, workersCtx := errgroup.WithContext(ctx)
	workers.Go(func() error {
		return group.Run(workersCtx)
	})

	if err = workers.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		panic(fmt.Sprintf("saga orchestrator stopped: %v", err))
	}

	log.Info("saga orchestrator stopped")
}

func postgresDSN(psqlCfg *config.PostgresConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		psqlCfg.Host, psqlCfg.Port, psqlCfg.User, psqlCfg.DbName, psqlCfg.Pwd, psqlCfg.SslMode)
}
