//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"storyforge-api/internal/config"
	"storyforge-api/internal/domain/repository"
	"storyforge-api/internal/infrastructure/persistence/postgres"
	"storyforge-api/internal/interfaces/http/handler"
	"storyforge-api/internal/interfaces/http/router"
)

// InitializeApp 初始化 API 服务（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		InfraSet,
		GenerationSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializeWorker 初始化 render-worker，要求 Redis 可用
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		RepoSet,
		ProvideRedisClientRequired,
		ProvideCacheRequired,
		ProvideCacheInvalidator,
		InfraSet,
		ProvideExecutor,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewProjectRepository,
	postgres.NewAssetRepository,
	postgres.NewAssetVersionRepository,
	postgres.NewAssetVariantRepository,
	postgres.NewScriptRepository,
	postgres.NewSceneRepository,
	postgres.NewExportRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	// 接口绑定
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.ProjectRepository), new(*postgres.ProjectRepository)),
	wire.Bind(new(repository.AssetRepository), new(*postgres.AssetRepository)),
	wire.Bind(new(repository.AssetVersionRepository), new(*postgres.AssetVersionRepository)),
	wire.Bind(new(repository.AssetVariantRepository), new(*postgres.AssetVariantRepository)),
	wire.Bind(new(repository.ScriptRepository), new(*postgres.ScriptRepository)),
	wire.Bind(new(repository.SceneRepository), new(*postgres.SceneRepository)),
	wire.Bind(new(repository.ExportRepository), new(*postgres.ExportRepository)),
)

// RedisSet 可选 Redis（未启用或不可达时缓存、限流与 stream 派发降级）
var RedisSet = wire.NewSet(
	ProvideRedisClientOptional,
	ProvideCacheOptional,
	ProvideStatsCache,
	ProvideCacheInvalidator,
	ProvideProjectInvalidator,
	ProvideRateLimiter,
	ProvideMessagingProducer,
)

// InfraSet 存储与图像生成
var InfraSet = wire.NewSet(
	ProvideStore,
	ProvideGenerator,
)

// GenerationSet 后台任务执行与派发
var GenerationSet = wire.NewSet(
	ProvideExecutor,
	ProvideDispatcher,
	ProvideService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewProjectHandler,
	handler.NewAssetHandler,
	handler.NewScriptHandler,
	handler.NewSceneHandler,
	handler.NewExportHandler,
	wire.Struct(new(router.Handlers), "*"),
	ProvideRouterOptions,
	router.New,
)
