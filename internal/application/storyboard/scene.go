package storyboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storyforge-api/internal/domain/entity"
	apperrors "storyforge-api/pkg/errors"
	"storyforge-api/pkg/logger"
)

// SceneInput 创建场景参数，空值取默认镜头参数
type SceneInput struct {
	Title       string
	Description string
	Mood        string
	CameraAngle string
	Lighting    string
	ScriptID    string
	// SceneNumber 为空时取项目内最大编号加一
	SceneNumber *int
}

// ScenePatch 场景可更新字段
type ScenePatch struct {
	Title       *string
	Description *string
	Mood        *string
	CameraAngle *string
	Lighting    *string
	SceneNumber *int
}

// SceneAssetInput 场景资产关联
type SceneAssetInput struct {
	AssetID      string
	Role         string
	PositionHint string
}

// SceneWithAssets 场景及其资产
type SceneWithAssets struct {
	*entity.Scene
	Assets []*entity.AssignedAsset `json:"assets"`
}

// SceneDetail 场景、资产与渲染历史
type SceneDetail struct {
	*entity.Scene
	Assets   []*entity.AssignedAsset `json:"assets"`
	Versions []*entity.SceneVersion  `json:"versions"`
}

// UnlockedAssetsError 渲染时仍有未锁定的资产
type UnlockedAssetsError struct {
	Names []string
}

func (e *UnlockedAssetsError) Error() string {
	return "unlocked assets: " + strings.Join(e.Names, ", ")
}

// Unwrap 供 errors.As 取得对应的 AppError
func (e *UnlockedAssetsError) Unwrap() error {
	return apperrors.ErrSceneNotReady.
		WithMessage("All assets must be locked before rendering").
		WithDetail(strings.Join(e.Names, ", "))
}

// ListScenes 按场次列出场景与资产
func (s *Service) ListScenes(ctx context.Context, projectID string) ([]*SceneWithAssets, error) {
	scenes, err := s.Scenes.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		ids = append(ids, scene.ID)
	}
	assets, err := s.Scenes.ListAssetsByScenes(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*SceneWithAssets, 0, len(scenes))
	for _, scene := range scenes {
		list := assets[scene.ID]
		if list == nil {
			list = []*entity.AssignedAsset{}
		}
		out = append(out, &SceneWithAssets{Scene: scene, Assets: list})
	}
	return out, nil
}

// CreateScene 追加场景，场次取项目内最大值加一
func (s *Service) CreateScene(ctx context.Context, projectID string, in SceneInput) (*entity.Scene, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	if in.ScriptID != "" {
		if _, err := s.GetScript(ctx, projectID, in.ScriptID); err != nil {
			return nil, err
		}
	}

	var number int
	if in.SceneNumber != nil {
		if *in.SceneNumber < 1 {
			return nil, apperrors.ErrInvalidParam.WithMessage("scene_number must be positive")
		}
		number = *in.SceneNumber
	} else {
		next, err := s.Scenes.NextSceneNumber(ctx, projectID)
		if err != nil {
			return nil, err
		}
		number = next
	}
	scene := entity.NewScene(projectID, number)
	if in.Title != "" {
		scene.Title = in.Title
	}
	scene.Description = in.Description
	if in.Mood != "" {
		scene.Mood = in.Mood
	}
	if in.CameraAngle != "" {
		scene.CameraAngle = in.CameraAngle
	}
	if in.Lighting != "" {
		scene.Lighting = in.Lighting
	}
	if in.ScriptID != "" {
		scriptID := in.ScriptID
		scene.ScriptID = &scriptID
	}

	if err := s.Scenes.Create(ctx, scene); err != nil {
		return nil, err
	}
	return scene, nil
}

// GetScene 获取场景
func (s *Service) GetScene(ctx context.Context, projectID, id string) (*entity.Scene, error) {
	scene, err := s.Scenes.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if scene == nil {
		return nil, apperrors.ErrSceneNotFound
	}
	return scene, nil
}

// GetSceneDetail 获取场景详情
func (s *Service) GetSceneDetail(ctx context.Context, projectID, id string) (*SceneDetail, error) {
	scene, err := s.GetScene(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	assets, err := s.Scenes.ListAssets(ctx, scene.ID)
	if err != nil {
		return nil, err
	}
	versions, err := s.Scenes.ListVersions(ctx, scene.ID)
	if err != nil {
		return nil, err
	}
	return &SceneDetail{Scene: scene, Assets: assets, Versions: versions}, nil
}

// UpdateScene 更新场景
func (s *Service) UpdateScene(ctx context.Context, projectID, id string, patch ScenePatch) (*entity.Scene, error) {
	scene, err := s.GetScene(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		scene.Title = *patch.Title
	}
	if patch.Description != nil {
		scene.Description = *patch.Description
	}
	if patch.Mood != nil {
		scene.Mood = *patch.Mood
	}
	if patch.CameraAngle != nil {
		scene.CameraAngle = *patch.CameraAngle
	}
	if patch.Lighting != nil {
		scene.Lighting = *patch.Lighting
	}
	if patch.SceneNumber != nil {
		if *patch.SceneNumber < 1 {
			return nil, apperrors.ErrInvalidParam.WithMessage("scene_number must be positive")
		}
		scene.SceneNumber = *patch.SceneNumber
	}
	scene.UpdatedAt = time.Now()

	if err := s.Scenes.Update(ctx, scene); err != nil {
		return nil, err
	}
	return scene, nil
}

// DeleteScene 删除场景及其关联、版本
func (s *Service) DeleteScene(ctx context.Context, projectID, id string) error {
	if _, err := s.GetScene(ctx, projectID, id); err != nil {
		return err
	}
	return s.Scenes.Delete(ctx, id)
}

// SetSceneAssets 整体替换场景资产，items 为 nil 表示请求缺少 assets 数组
func (s *Service) SetSceneAssets(ctx context.Context, projectID, id string, items []SceneAssetInput) ([]*entity.AssignedAsset, error) {
	scene, err := s.GetScene(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if items == nil {
		return nil, apperrors.ErrInvalidParam.WithMessage("assets array is required")
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.AssetID)
	}
	found, err := s.Assets.ListByIDs(ctx, projectID, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(found))
	for _, a := range found {
		known[a.ID] = struct{}{}
	}

	links := make([]*entity.SceneAsset, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := known[item.AssetID]; !ok {
			return nil, apperrors.ErrInvalidParam.WithMessage(fmt.Sprintf("Asset %s not found in project", item.AssetID))
		}
		if _, dup := seen[item.AssetID]; dup {
			continue
		}
		seen[item.AssetID] = struct{}{}
		links = append(links, entity.NewSceneAsset(scene.ID, item.AssetID, item.Role, item.PositionHint))
	}

	err = s.Transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.Scenes.ReplaceAssets(txCtx, scene.ID, links)
	})
	if err != nil {
		return nil, err
	}
	return s.Scenes.ListAssets(ctx, scene.ID)
}

// RenderScene 校验资产均已锁定后置为渲染中并派发渲染任务
func (s *Service) RenderScene(ctx context.Context, projectID, id string) (*entity.Scene, error) {
	scene, err := s.GetScene(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	assets, err := s.Scenes.ListAssets(ctx, scene.ID)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, apperrors.ErrSceneNotReady.WithMessage("Scene has no assets assigned. Add assets before rendering.")
	}

	var unlocked []string
	for _, a := range assets {
		if !a.Locked {
			unlocked = append(unlocked, a.Name)
		}
	}
	if len(unlocked) > 0 {
		return nil, &UnlockedAssetsError{Names: unlocked}
	}

	if err := s.Scenes.UpdateRenderStatus(ctx, scene.ID, entity.RenderStatusRendering); err != nil {
		return nil, err
	}
	scene.RenderStatus = entity.RenderStatusRendering

	s.dispatch(ctx, entity.NewGenerationJob(entity.JobTypeSceneRender, projectID, scene.ID).WithSeed(entity.RandomSeed()))
	logger.Info(ctx, "scene render dispatched", "scene_id", scene.ID, "assets", len(assets))
	return scene, nil
}
