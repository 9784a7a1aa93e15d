package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config is the root configuration shared by the api and consumer binaries
type Config struct {
	Service    Service    `envconfig:"SERVICE"`
	ClickHouse ClickHouse `envconfig:"CLICKHOUSE"`
	SQS        SQS        `envconfig:"SQS"`
	Kafka      Kafka      `envconfig:"KAFKA"`
	Consumer   Consumer   `envconfig:"CONSUMER"`
	Engine     Engine     `envconfig:"ENGINE"`
	Cache      Cache      `envconfig:"CACHE"`
	Telemetry  Telemetry  `envconfig:"TELEMETRY"`
}

type Service struct {
	Environment string `split_words:"true" required:"true"`
	APIPort     string `split_words:"true" default:"8080"`
	Host        string `split_words:"true" default:"localhost:8080"`
}

type ClickHouse struct {
	Host               string `split_words:"true" default:"localhost"`
	Port               string `split_words:"true" default:"9000"`
	Database           string `split_words:"true" default:"analytics"`
	User               string `split_words:"true" default:""`
	Password           string `split_words:"true" default:""`
	UseTLS             bool   `split_words:"true" default:"false"`
	MaxOpenConns       int    `split_words:"true" default:"5"`
	MaxIdleConns       int    `split_words:"true" default:"2"`
	ConnMaxLifetimeSec int    `split_words:"true" default:"3600"`
}

type SQS struct {
	Endpoint string `split_words:"true"`
	QueueURL string `split_words:"true"`
	Region   string `split_words:"true" default:"us-east-1"`
}

type Kafka struct {
	Brokers []string `split_words:"true" default:"localhost:9092"`
	Topic   string   `split_words:"true" default:"registrations"`
	GroupID string   `split_words:"true" default:"registration-consumer"`
}

type Consumer struct {
	Queue           string `split_words:"true" default:"sqs"`
	BatchSizeMax    int    `split_words:"true" default:"2000"`
	BatchTimeoutSec int    `split_words:"true" default:"10"`
	HealthCheckPort string `split_words:"true" default:"8081"`
}

// Engine controls how snapshots are loaded and deduplicated
type Engine struct {
	Source            string   `split_words:"true" default:"csv"`
	CSVPath           string   `split_words:"true" default:"data/raw/bkk_data_final.csv"`
	IdentityFields    []string `split_words:"true" default:"registrant_id,event_id"`
	MergeStrategy     string   `split_words:"true" default:"latest"`
	Dimensions        []string `split_words:"true" default:"category,region,status,event,distance,gender,age_group,price_tier"`
	LoadOnStart       bool     `split_words:"true" default:"true"`
	PersistAggregates bool     `split_words:"true" default:"false"`
}

type Cache struct {
	Size   int `split_words:"true" default:"512"`
	TTLSec int `split_words:"true" default:"0"`
}

type Telemetry struct {
	OtelEndpoint string `split_words:"true"`
	ServiceName  string `split_words:"true" default:"registration-analytics"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Engine.Source {
	case "csv", "clickhouse":
	default:
		return fmt.Errorf("unsupported ENGINE_SOURCE %q (supported: csv, clickhouse)", c.Engine.Source)
	}

	switch c.Consumer.Queue {
	case "sqs", "kafka":
	default:
		return fmt.Errorf("unsupported CONSUMER_QUEUE %q (supported: sqs, kafka)", c.Consumer.Queue)
	}

	if len(c.Engine.IdentityFields) == 0 {
		return fmt.Errorf("ENGINE_IDENTITY_FIELDS must name at least one field")
	}

	if c.Cache.Size <= 0 {
		return fmt.Errorf("CACHE_SIZE must be positive, got %d", c.Cache.Size)
	}

	return nil
}
