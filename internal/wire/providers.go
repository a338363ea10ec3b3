package wire

import (
	"context"
	"fmt"
	"os"

	"storyforge-api/internal/application/generation"
	"storyforge-api/internal/application/storyboard"
	"storyforge-api/internal/config"
	"storyforge-api/internal/domain/repository"
	"storyforge-api/internal/infrastructure/imagegen"
	"storyforge-api/internal/infrastructure/messaging"
	"storyforge-api/internal/infrastructure/persistence/postgres"
	"storyforge-api/internal/infrastructure/persistence/redis"
	"storyforge-api/internal/infrastructure/storage"
	"storyforge-api/internal/interfaces/http/handler"
	"storyforge-api/internal/interfaces/http/middleware"
	"storyforge-api/internal/interfaces/http/router"
	"storyforge-api/pkg/logger"
)

// App API 服务依赖容器
type App struct {
	Router     *router.Router
	Dispatcher generation.Dispatcher
}

// WaitJobs 等待进程内派发的后台任务结束，stream 派发时立即返回
func (a *App) WaitJobs() {
	if w, ok := a.Dispatcher.(interface{ Wait() }); ok {
		w.Wait()
	}
}

// Worker render-worker 依赖容器
type Worker struct {
	Executor    *generation.Executor
	RedisClient *redis.Client
}

// ProvidePostgresClient 提供 PostgreSQL 客户端，按配置执行自动迁移
func ProvidePostgresClient(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres, cfg.App.Debug)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	if cfg.Database.Postgres.AutoMigrate {
		if err := client.Migrate(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return client, cleanup, nil
}

// ProvideRedisClientOptional 提供可选 Redis 客户端，不可用时返回 nil
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		if cfg.Generation.Dispatch == "stream" {
			return nil, nil, fmt.Errorf("stream dispatch requires redis: %w", err)
		}
		logger.Warn(ctx, "redis not available, cache and rate limit disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClientRequired 提供 Redis 客户端，连接失败即返回错误
func ProvideRedisClientRequired(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideCacheOptional Redis 可用时提供缓存
func ProvideCacheOptional(client *redis.Client) *redis.Cache {
	if client == nil {
		return nil
	}
	return redis.NewCache(client)
}

// ProvideCacheRequired 提供缓存
func ProvideCacheRequired(client *redis.Client) *redis.Cache {
	return redis.NewCache(client)
}

// 以下接口提供者避免将 nil 指针包装成非 nil 接口

// ProvideStatsCache 提供统计缓存
func ProvideStatsCache(cache *redis.Cache) storyboard.StatsCache {
	if cache == nil {
		return nil
	}
	return cache
}

// ProvideCacheInvalidator 提供后台任务使用的缓存失效器
func ProvideCacheInvalidator(cache *redis.Cache) generation.CacheInvalidator {
	if cache == nil {
		return nil
	}
	return cache
}

// ProvideProjectInvalidator 提供写请求使用的缓存失效器
func ProvideProjectInvalidator(cache *redis.Cache) middleware.ProjectInvalidator {
	if cache == nil {
		return nil
	}
	return cache
}

// ProvideRateLimiter 提供限流器
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	if redisClient == nil {
		return nil
	}
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideStore 提供对象存储
func ProvideStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	return storage.New(ctx, &cfg.Storage)
}

// ProvideGenerator 提供图像生成器
func ProvideGenerator(ctx context.Context, cfg *config.Config) (imagegen.Generator, error) {
	return imagegen.New(ctx, &cfg.ImageGen)
}

// ProvideExecutor 提供后台任务执行器
func ProvideExecutor(
	cfg *config.Config,
	projects repository.ProjectRepository,
	assets repository.AssetRepository,
	versions repository.AssetVersionRepository,
	variants repository.AssetVariantRepository,
	scenes repository.SceneRepository,
	exports repository.ExportRepository,
	tx repository.Transactor,
	generator imagegen.Generator,
	store storage.Store,
	invalidator generation.CacheInvalidator,
) *generation.Executor {
	return generation.NewExecutor(generation.Deps{
		Projects:    projects,
		Assets:      assets,
		Versions:    versions,
		Variants:    variants,
		Scenes:      scenes,
		Exports:     exports,
		Transactor:  tx,
		Generator:   generator,
		Store:       store,
		Invalidator: invalidator,
	}, generation.Options{
		Timeout:       cfg.ImageGen.Timeout,
		MaxReferences: cfg.Generation.MaxReferences,
	})
}

// ProvideDispatcher 按配置选择进程内或 Redis Stream 派发
func ProvideDispatcher(cfg *config.Config, executor *generation.Executor, producer *messaging.Producer) (generation.Dispatcher, error) {
	switch cfg.Generation.Dispatch {
	case "", "inline":
		return generation.NewInlineDispatcher(executor), nil
	case "stream":
		if producer == nil {
			return nil, fmt.Errorf("stream dispatch requires cache.redis.enabled")
		}
		return generation.NewStreamDispatcher(producer, executor), nil
	default:
		return nil, fmt.Errorf("unsupported generation dispatch mode: %s", cfg.Generation.Dispatch)
	}
}

// ProvideService 提供分镜业务服务
func ProvideService(
	cfg *config.Config,
	projects repository.ProjectRepository,
	assets repository.AssetRepository,
	versions repository.AssetVersionRepository,
	variants repository.AssetVariantRepository,
	scripts repository.ScriptRepository,
	scenes repository.SceneRepository,
	exports repository.ExportRepository,
	tx repository.Transactor,
	dispatcher generation.Dispatcher,
	statsCache storyboard.StatsCache,
	generator imagegen.Generator,
) *storyboard.Service {
	return storyboard.NewService(storyboard.Deps{
		Projects:   projects,
		Assets:     assets,
		Versions:   versions,
		Variants:   variants,
		Scripts:    scripts,
		Scenes:     scenes,
		Exports:    exports,
		Transactor: tx,
		Dispatcher: dispatcher,
		StatsCache: statsCache,
	}, storyboard.Options{
		Provider:    generator.Name(),
		MaxVariants: cfg.Generation.MaxVariants,
		StatsTTL:    cfg.Cache.StatsTTL,
	})
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, redisClient *redis.Client, store storage.Store, generator imagegen.Generator) *handler.HealthHandler {
	return handler.NewHealthHandler(pg, redisClient, store, generator, cfg.App.Version)
}

// ProvideRouterOptions 提供路由可选依赖，本地存储时挂载静态文件
func ProvideRouterOptions(limiter middleware.RateLimiter, invalidator middleware.ProjectInvalidator, store storage.Store) router.Options {
	opts := router.Options{
		Limiter:     limiter,
		Invalidator: invalidator,
	}
	if local, ok := store.(*storage.LocalStore); ok {
		opts.StaticRoot = local.Root()
	}
	return opts
}

// ConsumerName 以主机名与进程号区分同组消费者
func ConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
