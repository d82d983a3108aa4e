package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dtroode/fintrack-server/internal/config"
	"github.com/dtroode/fintrack-server/internal/events"
	"github.com/dtroode/fintrack-server/internal/events/kafka"
	pgkv "github.com/dtroode/fintrack-server/internal/kv/postgres"
	rediskv "github.com/dtroode/fintrack-server/internal/kv/redis"
	"github.com/dtroode/fintrack-server/internal/logger"
	"github.com/dtroode/fintrack-server/internal/model"
	storage "github.com/dtroode/fintrack-server/internal/storage/minio"
)

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.NewConfig(envFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.LogLevel, cfg.LogFormat), nil
}

// openKV connects the configured key-value backend.
func openKV(ctx context.Context, cfg *config.Config) (model.KV, error) {
	switch cfg.KV.Driver {
	case config.DriverPostgres:
		db, err := pgkv.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		return pgkv.NewClient(db), nil
	default:
		kv, err := rediskv.NewClient(ctx, cfg.Redis.URL, cfg.Redis.MaxRetries)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return kv, nil
	}
}

// newDispatcher publishes events to kafka, or to the log when kafka is off.
func newDispatcher(cfg *config.Config, log *logger.Logger) *events.Dispatcher {
	var sender events.Sender
	if cfg.Kafka.Enabled {
		sender = kafka.NewSender(cfg.Kafka.Brokers, cfg.Kafka.WriteTimeout)
		log.Info("Publishing events to kafka", "brokers", cfg.Kafka.Brokers)
	} else {
		sender = events.NewLogSender(log)
	}
	return events.NewDispatcher(sender, log, cfg.Events.QueueSize, cfg.Events.Workers)
}

// openStorage returns nil when attachments are disabled.
func openStorage(ctx context.Context, cfg *config.Config) (model.ObjectStorage, error) {
	if !cfg.Storage.Enabled {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := storage.Connect(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.UseSSL, cfg.Storage.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage client: %w", err)
	}
	return client, nil
}
