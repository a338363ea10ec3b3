package repository

import (
	"context"

	"storyforge-api/internal/domain/entity"
)

// ProjectRepository 项目仓储接口
type ProjectRepository interface {
	// Create 创建项目
	Create(ctx context.Context, project *entity.Project) error

	// GetByID 根据 ID 获取项目，不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.Project, error)

	// Update 更新项目
	Update(ctx context.Context, project *entity.Project) error

	// Delete 删除项目及其下全部资源
	Delete(ctx context.Context, id string) error

	// List 获取项目列表，按更新时间倒序
	List(ctx context.Context, pagination Pagination) (*PagedResult[*entity.Project], error)

	// GetStats 获取项目统计信息
	GetStats(ctx context.Context, id string) (*ProjectStats, error)
}

// TypeCount 按资产类型计数
type TypeCount struct {
	Type  entity.AssetType `json:"type"`
	Count int64            `json:"count"`
}

// ProjectStats 项目统计信息
type ProjectStats struct {
	AssetCount     int64           `json:"asset_count"`
	SceneCount     int64           `json:"scene_count"`
	ScriptCount    int64           `json:"script_count"`
	LockedAssets   int64           `json:"locked_assets"`
	RenderedScenes int64           `json:"rendered_scenes"`
	AssetsByType   []TypeCount     `json:"assets_by_type"`
	RecentAssets   []*entity.Asset `json:"recent_assets"`
	RecentScenes   []*entity.Scene `json:"recent_scenes"`
}
