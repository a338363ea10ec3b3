package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"storyforge-api/internal/domain/entity"
)

// SceneRepository 场景仓储实现
type SceneRepository struct {
	client *Client
}

// NewSceneRepository 创建场景仓储
func NewSceneRepository(client *Client) *SceneRepository {
	return &SceneRepository{client: client}
}

// Create 创建场景
func (r *SceneRepository) Create(ctx context.Context, scene *entity.Scene) error {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(scene).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create scene: %w", err)
	}
	return nil
}

// CreateBatch 批量创建场景
func (r *SceneRepository) CreateBatch(ctx context.Context, scenes []*entity.Scene) error {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.CreateBatch")
	defer span.End()

	if len(scenes) == 0 {
		return nil
	}
	db := getDB(ctx, r.client.db)
	if err := db.Create(&scenes).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create scenes: %w", err)
	}
	return nil
}

// GetByID 获取项目内的场景
func (r *SceneRepository) GetByID(ctx context.Context, projectID, id string) (*entity.Scene, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var scene entity.Scene
	if err := db.First(&scene, "id = ? AND project_id = ?", id, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get scene: %w", err)
	}
	return &scene, nil
}

// ListByProject 按场次升序列出项目场景
func (r *SceneRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.Scene, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	scenes := []*entity.Scene{}
	if err := db.Where("project_id = ?", projectID).Order("scene_number ASC").Find(&scenes).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}
	return scenes, nil
}

// ListByScript 按场次升序列出剧本编译出的场景
func (r *SceneRepository) ListByScript(ctx context.Context, scriptID string) ([]*entity.Scene, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.ListByScript")
	defer span.End()

	db := getDB(ctx, r.client.db)
	scenes := []*entity.Scene{}
	if err := db.Where("script_id = ?", scriptID).Order("scene_number ASC").Find(&scenes).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list script scenes: %w", err)
	}
	return scenes, nil
}

// ListRendered 列出已完成渲染的场景
func (r *SceneRepository) ListRendered(ctx context.Context, projectID string) ([]*entity.Scene, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.ListRendered")
	defer span.End()

	db := getDB(ctx, r.client.db)
	scenes := []*entity.Scene{}
	err := db.Where("project_id = ? AND render_status = ?", projectID, entity.RenderStatusCompleted).
		Order("scene_number ASC").
		Find(&scenes).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list rendered scenes: %w", err)
	}
	return scenes, nil
}

// NextSceneNumber 返回项目内 max(scene_number)+1
func (r *SceneRepository) NextSceneNumber(ctx context.Context, projectID string) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.NextSceneNumber")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var maxNo *int
	if err := db.Model(&entity.Scene{}).
		Where("project_id = ?", projectID).
		Select("MAX(scene_number)").
		Scan(&maxNo).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to get max scene_number: %w", err)
	}
	if maxNo == nil {
		return 1, nil
	}
	return *maxNo + 1, nil
}

// Update 更新场景字段
func (r *SceneRepository) Update(ctx context.Context, scene *entity.Scene) error {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Model(scene).
		Select("title", "description", "mood", "camera_angle", "lighting", "scene_number",
			"render_status", "rendered_url", "render_metadata", "updated_at").
		Updates(scene).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update scene: %w", err)
	}
	return nil
}

// UpdateRenderStatus 只更新渲染状态
func (r *SceneRepository) UpdateRenderStatus(ctx context.Context, id string, status entity.RenderStatus) error {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.UpdateRenderStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Model(&entity.Scene{}).
		Where("id = ?", id).
		Updates(map[string]any{"render_status": status, "updated_at": time.Now()}).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update scene render status: %w", err)
	}
	return nil
}

// Delete 删除场景及其关联、版本
func (r *SceneRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.Delete")
	defer span.End()

	err := NewTxManager(r.client).WithTransaction(ctx, func(txCtx context.Context) error {
		db := getDB(txCtx, r.client.db)
		if err := db.Where("scene_id = ?", id).Delete(&entity.SceneAsset{}).Error; err != nil {
			return err
		}
		if err := db.Where("scene_id = ?", id).Delete(&entity.SceneVersion{}).Error; err != nil {
			return err
		}
		return db.Where("id = ?", id).Delete(&entity.Scene{}).Error
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete scene: %w", err)
	}
	return nil
}

// DeleteByScript 删除剧本编译出的全部场景
func (r *SceneRepository) DeleteByScript(ctx context.Context, scriptID string) error {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.DeleteByScript")
	defer span.End()

	err := NewTxManager(r.client).WithTransaction(ctx, func(txCtx context.Context) error {
		db := getDB(txCtx, r.client.db)
		sceneIDs := db.Model(&entity.Scene{}).Select("id").Where("script_id = ?", scriptID)
		if err := db.Where("scene_id IN (?)", sceneIDs).Delete(&entity.SceneAsset{}).Error; err != nil {
			return err
		}
		if err := db.Where("scene_id IN (?)", sceneIDs).Delete(&entity.SceneVersion{}).Error; err != nil {
			return err
		}
		return db.Where("script_id = ?", scriptID).Delete(&entity.Scene{}).Error
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete script scenes: %w", err)
	}
	return nil
}

// assignedAssetQuery 场景资产联表查询
func assignedAssetQuery(db *gorm.DB) *gorm.DB {
	return db.Table("scene_assets").
		Select("assets.*, scene_assets.scene_id AS scene_id, scene_assets.role AS role, scene_assets.position_hint AS position_hint").
		Joins("JOIN assets ON assets.id = scene_assets.asset_id")
}

// ListAssets 列出场景的资产
func (r *SceneRepository) ListAssets(ctx context.Context, sceneID string) ([]*entity.AssignedAsset, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.ListAssets")
	defer span.End()

	db := getDB(ctx, r.client.db)
	assets := []*entity.AssignedAsset{}
	err := assignedAssetQuery(db).
		Where("scene_assets.scene_id = ?", sceneID).
		Order("scene_assets.created_at ASC").
		Scan(&assets).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list scene assets: %w", err)
	}
	return assets, nil
}

// ListAssetsByScenes 批量列出多个场景的资产
func (r *SceneRepository) ListAssetsByScenes(ctx context.Context, sceneIDs []string) (map[string][]*entity.AssignedAsset, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.ListAssetsByScenes")
	defer span.End()

	result := make(map[string][]*entity.AssignedAsset, len(sceneIDs))
	if len(sceneIDs) == 0 {
		return result, nil
	}

	db := getDB(ctx, r.client.db)
	var rows []*entity.AssignedAsset
	err := assignedAssetQuery(db).
		Where("scene_assets.scene_id IN ?", sceneIDs).
		Order("scene_assets.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list scene assets: %w", err)
	}
	for _, row := range rows {
		result[row.SceneID] = append(result[row.SceneID], row)
	}
	return result, nil
}

// ReplaceAssets 整体替换场景的资产集合
func (r *SceneRepository) ReplaceAssets(ctx context.Context, sceneID string, links []*entity.SceneAsset) error {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.ReplaceAssets")
	defer span.End()

	err := NewTxManager(r.client).WithTransaction(ctx, func(txCtx context.Context) error {
		db := getDB(txCtx, r.client.db)
		if err := db.Where("scene_id = ?", sceneID).Delete(&entity.SceneAsset{}).Error; err != nil {
			return err
		}
		if len(links) == 0 {
			return nil
		}
		return db.Create(&links).Error
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to replace scene assets: %w", err)
	}
	return nil
}

// CreateVersion 追加渲染版本
func (r *SceneRepository) CreateVersion(ctx context.Context, version *entity.SceneVersion) error {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.CreateVersion")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(version).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create scene version: %w", err)
	}
	return nil
}

// CountVersions 统计渲染版本数
func (r *SceneRepository) CountVersions(ctx context.Context, sceneID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.CountVersions")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var n int64
	if err := db.Model(&entity.SceneVersion{}).Where("scene_id = ?", sceneID).Count(&n).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count scene versions: %w", err)
	}
	return n, nil
}

// ListVersions 按版本号倒序列出
func (r *SceneRepository) ListVersions(ctx context.Context, sceneID string) ([]*entity.SceneVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.ListVersions")
	defer span.End()

	db := getDB(ctx, r.client.db)
	versions := []*entity.SceneVersion{}
	if err := db.Where("scene_id = ?", sceneID).Order("version DESC").Find(&versions).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list scene versions: %w", err)
	}
	return versions, nil
}
