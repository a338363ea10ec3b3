// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
)

// recentLimit 统计接口中最近资源的数量
const recentLimit = 5

// ProjectRepository 项目仓储实现
type ProjectRepository struct {
	client *Client
}

// NewProjectRepository 创建项目仓储
func NewProjectRepository(client *Client) *ProjectRepository {
	return &ProjectRepository{client: client}
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(project).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取项目
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var project entity.Project
	if err := db.First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

// Update 更新项目
func (r *ProjectRepository) Update(ctx context.Context, project *entity.Project) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Model(project).
		Select("name", "visual_style", "base_model", "default_sampler", "status", "updated_at").
		Updates(project).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}

// Delete 删除项目及其下全部资源
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Delete")
	defer span.End()

	err := NewTxManager(r.client).WithTransaction(ctx, func(txCtx context.Context) error {
		db := getDB(txCtx, r.client.db)

		sceneIDs := db.Model(&entity.Scene{}).Select("id").Where("project_id = ?", id)
		assetIDs := db.Model(&entity.Asset{}).Select("id").Where("project_id = ?", id)

		steps := []struct {
			model any
			query string
			arg   any
		}{
			{&entity.SceneAsset{}, "scene_id IN (?)", sceneIDs},
			{&entity.SceneVersion{}, "scene_id IN (?)", sceneIDs},
			{&entity.AssetVersion{}, "asset_id IN (?)", assetIDs},
			{&entity.AssetVariant{}, "asset_id IN (?)", assetIDs},
			{&entity.Scene{}, "project_id = ?", id},
			{&entity.Asset{}, "project_id = ?", id},
			{&entity.Script{}, "project_id = ?", id},
			{&entity.Export{}, "project_id = ?", id},
			{&entity.Project{}, "id = ?", id},
		}
		for _, step := range steps {
			if err := db.Where(step.query, step.arg).Delete(step.model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// List 获取项目列表
func (r *ProjectRepository) List(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)

	var total int64
	if err := db.Model(&entity.Project{}).Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	var projects []*entity.Project
	err := db.Order("updated_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&projects).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return repository.NewPagedResult(projects, total, pagination), nil
}

// GetStats 获取项目统计信息
func (r *ProjectRepository) GetStats(ctx context.Context, id string) (*repository.ProjectStats, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.GetStats")
	defer span.End()

	db := getDB(ctx, r.client.db)
	stats := &repository.ProjectStats{
		AssetsByType: []repository.TypeCount{},
		RecentAssets: []*entity.Asset{},
		RecentScenes: []*entity.Scene{},
	}

	g, gctx := errgroup.WithContext(ctx)
	gdb := db.WithContext(gctx)

	count := func(model any, dst *int64, query string, args ...any) {
		g.Go(func() error {
			return gdb.Model(model).Where(query, args...).Count(dst).Error
		})
	}
	count(&entity.Asset{}, &stats.AssetCount, "project_id = ?", id)
	count(&entity.Scene{}, &stats.SceneCount, "project_id = ?", id)
	count(&entity.Script{}, &stats.ScriptCount, "project_id = ?", id)
	count(&entity.Asset{}, &stats.LockedAssets, "project_id = ? AND locked = ?", id, true)
	count(&entity.Scene{}, &stats.RenderedScenes, "project_id = ? AND render_status = ?", id, entity.RenderStatusCompleted)

	g.Go(func() error {
		return gdb.Model(&entity.Asset{}).
			Select("type, COUNT(*) AS count").
			Where("project_id = ?", id).
			Group("type").
			Order("type ASC").
			Scan(&stats.AssetsByType).Error
	})
	g.Go(func() error {
		return gdb.Where("project_id = ?", id).Order("updated_at DESC").Limit(recentLimit).Find(&stats.RecentAssets).Error
	})
	g.Go(func() error {
		return gdb.Where("project_id = ?", id).Order("updated_at DESC").Limit(recentLimit).Find(&stats.RecentScenes).Error
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get project stats: %w", err)
	}
	return stats, nil
}
