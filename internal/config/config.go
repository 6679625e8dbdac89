package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Outbox   OutboxConfig   `yaml:"outbox"`
	Saga     SagaConfig     `yaml:"saga"`
}

type HTTPConfig struct {
	Port int `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

type PostgresConfig struct {
	Host    string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port    string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	DbName  string `yaml:"db_name" env:"POSTGRES_DB"`
	User    string `yaml:"user" env:"POSTGRES_USER"`
	Pwd     string `yaml:"password" env:"POSTGRES_PASSWORD"`
	SslMode string `yaml:"sslmode" env:"POSTGRES_SSLMODE" env-default:"disable"`
}

type KafkaConfig struct {
	BrokerList        []string `yaml:"broker_list" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	EventsTopic       string   `yaml:"events_topic" env-default:"orders.events"`
	SagaTopic         string   `yaml:"saga_topic" env-default:"orders.saga"`
	DeadLetterTopic   string   `yaml:"dead_letter_topic" env-default:"orders.deadletter"`
	SagaGroupID       string   `yaml:"saga_group_id" env-default:"saga-service"`
	ProjectionGroupID string   `yaml:"projection_group_id" env-default:"projection-service"`
}

type OutboxConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" env:"OUTBOX_POLL_INTERVAL" env-default:"500ms"`
	BatchSize    int           `yaml:"batch_size" env:"OUTBOX_BATCH_SIZE" env-default:"50"`
}

type SagaConfig struct {
	PaymentFailureRate   float64 `yaml:"payment_failure_rate" env-default:"0.1"`
	InventoryFailureRate float64 `yaml:"inventory_failure_rate" env-default:"0.05"`
}

func InitConfig() Config {
	configPath := getConfigPath()

	if configPath == "" {
		panic("config path is not set")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	return cfg
}

func getConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	return path
}
