package repository

import (
	"context"

	"storyforge-api/internal/domain/entity"
)

// SceneRepository 场景仓储接口
type SceneRepository interface {
	// Create 创建场景
	Create(ctx context.Context, scene *entity.Scene) error

	// CreateBatch 批量创建场景
	CreateBatch(ctx context.Context, scenes []*entity.Scene) error

	// GetByID 获取项目内的场景
	GetByID(ctx context.Context, projectID, id string) (*entity.Scene, error)

	// ListByProject 按场次升序列出项目场景
	ListByProject(ctx context.Context, projectID string) ([]*entity.Scene, error)

	// ListByScript 按场次升序列出剧本编译出的场景
	ListByScript(ctx context.Context, scriptID string) ([]*entity.Scene, error)

	// ListRendered 列出已完成渲染的场景
	ListRendered(ctx context.Context, projectID string) ([]*entity.Scene, error)

	// NextSceneNumber 返回项目内 max(scene_number)+1
	NextSceneNumber(ctx context.Context, projectID string) (int, error)

	// Update 更新场景字段
	Update(ctx context.Context, scene *entity.Scene) error

	// UpdateRenderStatus 只更新渲染状态
	UpdateRenderStatus(ctx context.Context, id string, status entity.RenderStatus) error

	// Delete 删除场景及其关联、版本
	Delete(ctx context.Context, id string) error

	// DeleteByScript 删除剧本编译出的全部场景
	DeleteByScript(ctx context.Context, scriptID string) error

	// ListAssets 列出场景的资产
	ListAssets(ctx context.Context, sceneID string) ([]*entity.AssignedAsset, error)

	// ListAssetsByScenes 批量列出多个场景的资产
	ListAssetsByScenes(ctx context.Context, sceneIDs []string) (map[string][]*entity.AssignedAsset, error)

	// ReplaceAssets 整体替换场景的资产集合
	ReplaceAssets(ctx context.Context, sceneID string, links []*entity.SceneAsset) error

	// CreateVersion 追加渲染版本
	CreateVersion(ctx context.Context, version *entity.SceneVersion) error

	// CountVersions 统计渲染版本数
	CountVersions(ctx context.Context, sceneID string) (int64, error)

	// ListVersions 按版本号倒序列出
	ListVersions(ctx context.Context, sceneID string) ([]*entity.SceneVersion, error)
}
