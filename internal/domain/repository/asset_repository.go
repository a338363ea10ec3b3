package repository

import (
	"context"

	"storyforge-api/internal/domain/entity"
)

// AssetFilter 资产过滤条件
type AssetFilter struct {
	Type entity.AssetType
}

// AssetRepository 资产仓储接口
type AssetRepository interface {
	// Create 创建资产
	Create(ctx context.Context, asset *entity.Asset) error

	// GetByID 获取项目内的资产，附带 usage_count
	GetByID(ctx context.Context, projectID, id string) (*entity.Asset, error)

	// ListByProject 列出项目资产，按创建时间倒序
	ListByProject(ctx context.Context, projectID string, filter *AssetFilter) ([]*entity.Asset, error)

	// ListByIDs 批量获取项目内资产
	ListByIDs(ctx context.Context, projectID string, ids []string) ([]*entity.Asset, error)

	// Update 更新资产字段
	Update(ctx context.Context, asset *entity.Asset) error

	// UpdateGenerationStatus 只更新生成状态
	UpdateGenerationStatus(ctx context.Context, id string, status entity.GenerationStatus) error

	// Delete 删除资产及其版本、候选图
	Delete(ctx context.Context, id string) error

	// CountUsage 统计被多少个场景引用
	CountUsage(ctx context.Context, id string) (int64, error)

	// ListUsedInScenes 列出引用该资产的场景
	ListUsedInScenes(ctx context.Context, id string) ([]*entity.Scene, error)
}

// AssetVersionRepository 资产版本仓储接口
type AssetVersionRepository interface {
	// Create 追加一条版本记录
	Create(ctx context.Context, version *entity.AssetVersion) error

	// ListByAsset 按版本号倒序列出
	ListByAsset(ctx context.Context, assetID string) ([]*entity.AssetVersion, error)

	// SetThumbnail 回填指定版本的缩略图
	SetThumbnail(ctx context.Context, assetID string, version int, url string) error
}

// AssetVariantRepository 候选图仓储接口
type AssetVariantRepository interface {
	// ReplaceAll 删除旧候选图并写入新的一批
	ReplaceAll(ctx context.Context, assetID string, variants []*entity.AssetVariant) error

	// ListByAsset 按序号升序列出
	ListByAsset(ctx context.Context, assetID string) ([]*entity.AssetVariant, error)

	// GetByID 获取资产下的候选图
	GetByID(ctx context.Context, assetID, id string) (*entity.AssetVariant, error)

	// MarkSelected 仅选中指定候选图
	MarkSelected(ctx context.Context, assetID, id string) error
}
