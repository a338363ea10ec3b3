package storyboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
	apperrors "storyforge-api/pkg/errors"
	"storyforge-api/pkg/logger"
)

// AssetInput 创建资产参数
type AssetInput struct {
	Name           string
	Type           string
	Description    string
	VisualPrompt   string
	NegativePrompt string
	Seed           *int64
	Metadata       map[string]any
}

// AssetPatch 资产可更新字段
type AssetPatch struct {
	Name           *string
	Description    *string
	VisualPrompt   *string
	NegativePrompt *string
	Metadata       map[string]any
}

// GenerateInput 触发生成参数
type GenerateInput struct {
	Variants int
	Seed     *int64
}

// GenerateResult 生成已受理的响应
type GenerateResult struct {
	Status  entity.GenerationStatus `json:"status"`
	Message string                  `json:"message"`
}

// AssetDetail 资产及其历史、候选图与引用场景
type AssetDetail struct {
	*entity.Asset
	Versions     []*entity.AssetVersion `json:"versions"`
	Variants     []*entity.AssetVariant `json:"variants"`
	UsedInScenes []*entity.Scene        `json:"used_in_scenes"`
}

// ListAssets 列出项目资产，可按类型过滤
func (s *Service) ListAssets(ctx context.Context, projectID, assetType string) ([]*entity.Asset, error) {
	var filter *repository.AssetFilter
	if assetType != "" {
		// 未知类型不报错，按原值过滤得到空列表
		filter = &repository.AssetFilter{Type: entity.AssetType(assetType)}
	}
	return s.Assets.ListByProject(ctx, projectID, filter)
}

// CreateAsset 创建资产与第 1 版记录，有提示词时派发首次生成
func (s *Service) CreateAsset(ctx context.Context, projectID string, in AssetInput) (*entity.Asset, error) {
	if strings.TrimSpace(in.Name) == "" || in.Type == "" {
		return nil, apperrors.ErrInvalidParam.WithMessage("name and type are required")
	}
	assetType := entity.AssetType(in.Type)
	if !assetType.Valid() {
		return nil, apperrors.ErrInvalidParam.WithMessage("Invalid asset type")
	}
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	seed := entity.RandomSeed()
	if in.Seed != nil {
		seed = *in.Seed
	}
	asset := entity.NewAsset(projectID, in.Name, assetType, seed)
	asset.Description = in.Description
	asset.VisualPrompt = in.VisualPrompt
	if in.NegativePrompt != "" {
		asset.NegativePrompt = in.NegativePrompt
	}
	if in.Metadata != nil {
		asset.Metadata = datatypes.JSONMap(in.Metadata)
	}
	if asset.HasPrompt() {
		if err := asset.StartGeneration(); err != nil {
			return nil, err
		}
	}

	err := s.Transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.Assets.Create(txCtx, asset); err != nil {
			return err
		}
		return s.Versions.Create(txCtx, asset.Snapshot())
	})
	if err != nil {
		return nil, err
	}

	if asset.HasPrompt() {
		s.dispatch(ctx, entity.NewGenerationJob(entity.JobTypeAssetInitial, projectID, asset.ID).WithSeed(seed))
	}
	logger.Info(ctx, "asset created", "asset_id", asset.ID, "type", string(assetType))
	return asset, nil
}

// GetAsset 获取资产
func (s *Service) GetAsset(ctx context.Context, projectID, id string) (*entity.Asset, error) {
	asset, err := s.Assets.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, apperrors.ErrAssetNotFound
	}
	return asset, nil
}

// GetAssetDetail 获取资产详情，版本倒序、候选图按序号
func (s *Service) GetAssetDetail(ctx context.Context, projectID, id string) (*AssetDetail, error) {
	asset, err := s.GetAsset(ctx, projectID, id)
	if err != nil {
		return nil, err
	}

	detail := &AssetDetail{Asset: asset}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail.Versions, err = s.Versions.ListByAsset(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		detail.Variants, err = s.Variants.ListByAsset(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		detail.UsedInScenes, err = s.Assets.ListUsedInScenes(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return detail, nil
}

// UpdateAsset 更新未锁定资产的描述性字段，不推进版本
func (s *Service) UpdateAsset(ctx context.Context, projectID, id string, patch AssetPatch) (*entity.Asset, error) {
	asset, err := s.GetAsset(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if !asset.IsEditable() {
		return nil, apperrors.ErrAssetLocked.WithMessage("Cannot edit a locked asset")
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, apperrors.ErrInvalidParam.WithMessage("name cannot be empty")
		}
		asset.Name = *patch.Name
	}
	if patch.Description != nil {
		asset.Description = *patch.Description
	}
	if patch.VisualPrompt != nil {
		asset.VisualPrompt = *patch.VisualPrompt
	}
	if patch.NegativePrompt != nil {
		asset.NegativePrompt = *patch.NegativePrompt
	}
	if patch.Metadata != nil {
		asset.Metadata = datatypes.JSONMap(patch.Metadata)
	}
	asset.UpdatedAt = time.Now()

	if err := s.Assets.Update(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// DeleteAsset 删除资产，被场景引用或已锁定时拒绝
func (s *Service) DeleteAsset(ctx context.Context, projectID, id string) error {
	asset, err := s.GetAsset(ctx, projectID, id)
	if err != nil {
		return err
	}
	used, err := s.Assets.CountUsage(ctx, asset.ID)
	if err != nil {
		return err
	}
	if used > 0 {
		return apperrors.ErrAssetInUse
	}
	if !asset.IsEditable() {
		return apperrors.ErrAssetLocked.WithMessage("Cannot delete a locked asset")
	}
	return s.Assets.Delete(ctx, id)
}

// LockAsset 锁定资产，不可逆
func (s *Service) LockAsset(ctx context.Context, projectID, id string) (*entity.Asset, error) {
	asset, err := s.GetAsset(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if err := asset.Lock(); err != nil {
		return nil, apperrors.ErrInvalidParam.WithMessage("Asset is already locked")
	}
	if err := s.Assets.Update(ctx, asset); err != nil {
		return nil, err
	}
	logger.Info(ctx, "asset locked", "asset_id", asset.ID, "version", asset.Version)
	return asset, nil
}

// GenerateAsset 同步置为生成中后派发重新生成或批量候选图任务
func (s *Service) GenerateAsset(ctx context.Context, projectID, id string, in GenerateInput) (*GenerateResult, error) {
	asset, err := s.GetAsset(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if err := asset.StartGeneration(); err != nil {
		return nil, apperrors.ErrAssetLocked.WithMessage("Cannot regenerate a locked asset")
	}
	if !asset.HasPrompt() {
		return nil, apperrors.ErrInvalidParam.WithMessage("Asset has no visual prompt")
	}

	seed := entity.RandomSeed()
	if in.Seed != nil && *in.Seed != 0 {
		seed = *in.Seed
	}

	if err := s.Assets.UpdateGenerationStatus(ctx, asset.ID, asset.GenerationStatus); err != nil {
		return nil, err
	}

	if in.Variants > 1 {
		count := min(in.Variants, s.opts.MaxVariants)
		job := entity.NewGenerationJob(entity.JobTypeAssetVariants, projectID, asset.ID).
			WithSeed(seed).
			WithVariants(count)
		s.dispatch(ctx, job)
		return &GenerateResult{
			Status:  entity.GenerationStatusGenerating,
			Message: fmt.Sprintf("Generating %d variants via %s...", count, s.opts.Provider),
		}, nil
	}

	s.dispatch(ctx, entity.NewGenerationJob(entity.JobTypeAssetRegenerate, projectID, asset.ID).WithSeed(seed))
	return &GenerateResult{
		Status:  entity.GenerationStatusGenerating,
		Message: fmt.Sprintf("Regenerating via %s...", s.opts.Provider),
	}, nil
}

// ListVariants 列出资产的候选图
func (s *Service) ListVariants(ctx context.Context, projectID, id string) ([]*entity.AssetVariant, error) {
	if _, err := s.GetAsset(ctx, projectID, id); err != nil {
		return nil, err
	}
	return s.Variants.ListByAsset(ctx, id)
}

// SelectVariant 采用候选图：复制缩略图与种子、版本加一并追加版本记录
func (s *Service) SelectVariant(ctx context.Context, projectID, id, variantID string) (*entity.Asset, error) {
	if variantID == "" {
		return nil, apperrors.ErrInvalidParam.WithMessage("variant_id is required")
	}
	asset, err := s.GetAsset(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if !asset.IsEditable() {
		return nil, apperrors.ErrAssetLocked.WithMessage("Cannot modify a locked asset")
	}
	variant, err := s.Variants.GetByID(ctx, asset.ID, variantID)
	if err != nil {
		return nil, err
	}
	if variant == nil {
		return nil, apperrors.ErrVariantNotFound
	}

	asset.ThumbnailURL = variant.ThumbnailURL
	asset.Seed = variant.Seed
	asset.Version++
	asset.UpdatedAt = time.Now()

	err = s.Transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.Assets.Update(txCtx, asset); err != nil {
			return err
		}
		if err := s.Variants.MarkSelected(txCtx, asset.ID, variant.ID); err != nil {
			return err
		}
		return s.Versions.Create(txCtx, asset.Snapshot())
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "asset variant selected",
		"asset_id", asset.ID,
		"variant_id", variant.ID,
		"version", asset.Version,
	)
	return asset, nil
}
