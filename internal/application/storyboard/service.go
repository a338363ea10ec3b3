// Package storyboard 实现项目、资产、剧本、场景与导出的业务规则
package storyboard

import (
	"context"
	"time"

	"storyforge-api/internal/application/generation"
	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
	"storyforge-api/pkg/logger"
)

// DefaultMaxVariants 单次批量生成的候选图上限
const DefaultMaxVariants = 4

// StatsCache 项目统计缓存
type StatsCache interface {
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (any, error)) ([]byte, error)
}

// Deps 服务依赖
type Deps struct {
	Projects   repository.ProjectRepository
	Assets     repository.AssetRepository
	Versions   repository.AssetVersionRepository
	Variants   repository.AssetVariantRepository
	Scripts    repository.ScriptRepository
	Scenes     repository.SceneRepository
	Exports    repository.ExportRepository
	Transactor repository.Transactor
	Dispatcher generation.Dispatcher
	// StatsCache 为空时统计直接查库
	StatsCache StatsCache
}

// Options 服务参数
type Options struct {
	// Provider 图像提供方名称，用于生成中的提示信息
	Provider    string
	MaxVariants int
	StatsTTL    time.Duration
}

// Service 分镜业务服务
type Service struct {
	Deps
	opts Options
}

// NewService 创建服务
func NewService(deps Deps, opts Options) *Service {
	if opts.MaxVariants <= 0 || opts.MaxVariants > DefaultMaxVariants {
		opts.MaxVariants = DefaultMaxVariants
	}
	if opts.Provider == "" {
		opts.Provider = "image provider"
	}
	if opts.StatsTTL <= 0 {
		opts.StatsTTL = 30 * time.Second
	}
	return &Service{Deps: deps, opts: opts}
}

// dispatch 在事务提交之后派发任务，派发失败只记录日志
func (s *Service) dispatch(ctx context.Context, job *entity.GenerationJob) {
	if err := s.Dispatcher.Dispatch(ctx, job); err != nil {
		logger.Error(ctx, "failed to dispatch generation job", err,
			"job_type", string(job.Type),
			"target_id", job.TargetID,
		)
	}
}
