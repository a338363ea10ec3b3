package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
)

// assetColumns 查询资产时附带引用计数
const assetColumns = "assets.*, (SELECT COUNT(*) FROM scene_assets WHERE scene_assets.asset_id = assets.id) AS usage_count"

// AssetRepository 资产仓储实现
type AssetRepository struct {
	client *Client
}

// NewAssetRepository 创建资产仓储
func NewAssetRepository(client *Client) *AssetRepository {
	return &AssetRepository{client: client}
}

// Create 创建资产
func (r *AssetRepository) Create(ctx context.Context, asset *entity.Asset) error {
	ctx, span := tracer.Start(ctx, "postgres.AssetRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(asset).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create asset: %w", err)
	}
	return nil
}

// GetByID 获取项目内的资产
func (r *AssetRepository) GetByID(ctx context.Context, projectID, id string) (*entity.Asset, error) {
	ctx, span := tracer.Start(ctx, "postgres.AssetRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var asset entity.Asset
	err := db.Model(&entity.Asset{}).
		Select(assetColumns).
		Where("assets.id = ? AND assets.project_id = ?", id, projectID).
		Take(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return &asset, nil
}

// ListByProject 列出项目资产
func (r *AssetRepository) ListByProject(ctx context.Context, projectID string, filter *repository.AssetFilter) ([]*entity.Asset, error) {
	ctx, span := tracer.Start(ctx, "postgres.AssetRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Asset{}).
		Select(assetColumns).
		Where("assets.project_id = ?", projectID)
	if filter != nil && filter.Type != "" {
		query = query.Where("assets.type = ?", filter.Type)
	}

	assets := []*entity.Asset{}
	if err := query.Order("assets.created_at DESC").Find(&assets).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, nil
}

// ListByIDs 批量获取项目内资产
func (r *AssetRepository) ListByIDs(ctx context.Context, projectID string, ids []string) ([]*entity.Asset, error) {
	ctx, span := tracer.Start(ctx, "postgres.AssetRepository.ListByIDs")
	defer span.End()

	assets := []*entity.Asset{}
	if len(ids) == 0 {
		return assets, nil
	}

	db := getDB(ctx, r.client.db)
	if err := db.Where("project_id = ? AND id IN ?", projectID, ids).Find(&assets).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list assets by ids: %w", err)
	}
	return assets, nil
}

// Update 更新资产字段
func (r *AssetRepository) Update(ctx context.Context, asset *entity.Asset) error {
	ctx, span := tracer.Start(ctx, "postgres.AssetRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Model(asset).
		Select("name", "description", "visual_prompt", "negative_prompt", "seed", "version",
			"locked", "thumbnail_url", "generation_status", "metadata", "updated_at").
		Updates(asset).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update asset: %w", err)
	}
	return nil
}

// UpdateGenerationStatus 只更新生成状态
func (r *AssetRepository) UpdateGenerationStatus(ctx context.Context, id string, status entity.GenerationStatus) error {
	ctx, span := tracer.Start(ctx, "postgres.AssetRepository.UpdateGenerationStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Model(&entity.Asset{}).
		Where("id = ?", id).
		Updates(map[string]any{"generation_status": status, "updated_at": time.Now()}).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update asset status: %w", err)
	}
	return nil
}

// Delete 删除资产及其版本、候选图
func (r *AssetRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.AssetRepository.Delete")
	defer span.End()

	err := NewTxManager(r.client).WithTransaction(ctx, func(txCtx context.Context) error {
		db := getDB(txCtx, r.client.db)
		if err := db.Where("asset_id = ?", id).Delete(&entity.AssetVersion{}).Error; err != nil {
			return err
		}
		if err := db.Where("asset_id = ?", id).Delete(&entity.AssetVariant{}).Error; err != nil {
			return err
		}
		return db.Where("id = ?", id).Delete(&entity.Asset{}).Error
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}

// CountUsage 统计引用该资产的场景数
func (r *AssetRepository) CountUsage(ctx context.Context, id string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.AssetRepository.CountUsage")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var n int64
	if err := db.Model(&entity.SceneAsset{}).Where("asset_id = ?", id).Count(&n).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count asset usage: %w", err)
	}
	return n, nil
}

// ListUsedInScenes 列出引用该资产的场景
func (r *AssetRepository) ListUsedInScenes(ctx context.Context, id string) ([]*entity.Scene, error) {
	ctx, span := tracer.Start(ctx, "postgres.AssetRepository.ListUsedInScenes")
	defer span.End()

	db := getDB(ctx, r.client.db)
	scenes := []*entity.Scene{}
	err := db.Model(&entity.Scene{}).
		Select("scenes.*").
		Joins("JOIN scene_assets ON scene_assets.scene_id = scenes.id").
		Where("scene_assets.asset_id = ?", id).
		Order("scenes.scene_number ASC").
		Find(&scenes).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list scenes using asset: %w", err)
	}
	return scenes, nil
}

// AssetVersionRepository 资产版本仓储实现
type AssetVersionRepository struct {
	client *Client
}

// NewAssetVersionRepository 创建资产版本仓储
func NewAssetVersionRepository(client *Client) *AssetVersionRepository {
	return &AssetVersionRepository{client: client}
}

// Create 追加一条版本记录
func (r *AssetVersionRepository) Create(ctx context.Context, version *entity.AssetVersion) error {
	ctx, span := tracer.Start(ctx, "postgres.AssetVersionRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(version).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create asset version: %w", err)
	}
	return nil
}

// ListByAsset 按版本号倒序列出
func (r *AssetVersionRepository) ListByAsset(ctx context.Context, assetID string) ([]*entity.AssetVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.AssetVersionRepository.ListByAsset")
	defer span.End()

	db := getDB(ctx, r.client.db)
	versions := []*entity.AssetVersion{}
	if err := db.Where("asset_id = ?", assetID).Order("version DESC").Find(&versions).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list asset versions: %w", err)
	}
	return versions, nil
}

// SetThumbnail 回填指定版本的缩略图
func (r *AssetVersionRepository) SetThumbnail(ctx context.Context, assetID string, version int, url string) error {
	ctx, span := tracer.Start(ctx, "postgres.AssetVersionRepository.SetThumbnail")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Model(&entity.AssetVersion{}).
		Where("asset_id = ? AND version = ?", assetID, version).
		Update("thumbnail_url", url).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set version thumbnail: %w", err)
	}
	return nil
}

// AssetVariantRepository 候选图仓储实现
type AssetVariantRepository struct {
	client *Client
}

// NewAssetVariantRepository 创建候选图仓储
func NewAssetVariantRepository(client *Client) *AssetVariantRepository {
	return &AssetVariantRepository{client: client}
}

// ReplaceAll 删除旧候选图并写入新的一批
func (r *AssetVariantRepository) ReplaceAll(ctx context.Context, assetID string, variants []*entity.AssetVariant) error {
	ctx, span := tracer.Start(ctx, "postgres.AssetVariantRepository.ReplaceAll")
	defer span.End()

	err := NewTxManager(r.client).WithTransaction(ctx, func(txCtx context.Context) error {
		db := getDB(txCtx, r.client.db)
		if err := db.Where("asset_id = ?", assetID).Delete(&entity.AssetVariant{}).Error; err != nil {
			return err
		}
		if len(variants) == 0 {
			return nil
		}
		return db.Create(&variants).Error
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to replace asset variants: %w", err)
	}
	return nil
}

// ListByAsset 按序号升序列出
func (r *AssetVariantRepository) ListByAsset(ctx context.Context, assetID string) ([]*entity.AssetVariant, error) {
	ctx, span := tracer.Start(ctx, "postgres.AssetVariantRepository.ListByAsset")
	defer span.End()

	db := getDB(ctx, r.client.db)
	variants := []*entity.AssetVariant{}
	if err := db.Where("asset_id = ?", assetID).Order("variant_index ASC").Find(&variants).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list asset variants: %w", err)
	}
	return variants, nil
}

// GetByID 获取资产下的候选图
func (r *AssetVariantRepository) GetByID(ctx context.Context, assetID, id string) (*entity.AssetVariant, error) {
	ctx, span := tracer.Start(ctx, "postgres.AssetVariantRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var v entity.AssetVariant
	if err := db.First(&v, "id = ? AND asset_id = ?", id, assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get asset variant: %w", err)
	}
	return &v, nil
}

// MarkSelected 仅选中指定候选图
func (r *AssetVariantRepository) MarkSelected(ctx context.Context, assetID, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.AssetVariantRepository.MarkSelected")
	defer span.End()

	err := NewTxManager(r.client).WithTransaction(ctx, func(txCtx context.Context) error {
		db := getDB(txCtx, r.client.db)
		if err := db.Model(&entity.AssetVariant{}).Where("asset_id = ?", assetID).Update("selected", false).Error; err != nil {
			return err
		}
		return db.Model(&entity.AssetVariant{}).Where("id = ? AND asset_id = ?", id, assetID).Update("selected", true).Error
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to select asset variant: %w", err)
	}
	return nil
}
