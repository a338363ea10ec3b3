// Package main 生成任务执行器入口（render-worker），消费 Redis Stream 中的生成任务
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storyforge-api/internal/config"
	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/infrastructure/messaging"
	"storyforge-api/internal/wire"
	"storyforge-api/pkg/logger"
	"storyforge-api/pkg/tracer"

	"github.com/joho/godotenv"
)

var jobTypes = []entity.JobType{
	entity.JobTypeAssetInitial,
	entity.JobTypeAssetRegenerate,
	entity.JobTypeAssetVariants,
	entity.JobTypeSceneRender,
	entity.JobTypeExportBuild,
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName:    "render-worker",
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Env,
		Endpoint:       cfg.Observability.Tracing.Endpoint,
		SampleRate:     cfg.Observability.Tracing.SampleRate,
		Enabled:        cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	streamCfg := cfg.Messaging.RedisStream
	consumer := messaging.NewConsumer(worker.RedisClient.Redis(), messaging.ConsumerConfig{
		Stream:       messaging.StreamGeneration,
		Group:        messaging.RenderWorkerGroup(streamCfg.ConsumerGroupPrefix),
		ConsumerName: wire.ConsumerName(),
		BlockTimeout: streamCfg.BlockTimeout,
		Concurrency:  streamCfg.Concurrency,
	})

	for _, jobType := range jobTypes {
		consumer.RegisterHandler(string(jobType), func(ctx context.Context, msg *messaging.Message) error {
			var job entity.GenerationJob
			if err := msg.UnmarshalPayload(&job); err != nil {
				return err
			}
			return worker.Executor.Execute(ctx, &job)
		})
	}

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}

	log := logger.FromContext(ctx)
	log.Info("render-worker started",
		"stream", string(messaging.StreamGeneration),
		"concurrency", streamCfg.Concurrency,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("render-worker shutting down")
	consumer.Stop()
}
