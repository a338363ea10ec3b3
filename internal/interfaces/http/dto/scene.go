package dto

import (
	"storyforge-api/internal/application/storyboard"
	"storyforge-api/internal/domain/entity"
)

// CreateSceneRequest 创建场景请求
type CreateSceneRequest struct {
	Title       string `json:"title" binding:"max=255"`
	Description string `json:"description"`
	Mood        string `json:"mood" binding:"max=100"`
	CameraAngle string `json:"camera_angle" binding:"max=100"`
	Lighting    string `json:"lighting" binding:"max=100"`
	ScriptID    string `json:"script_id"`
	SceneNumber *int   `json:"scene_number,omitempty"`
}

// ToInput 转换为业务参数
func (r *CreateSceneRequest) ToInput() storyboard.SceneInput {
	return storyboard.SceneInput{
		Title:       r.Title,
		Description: r.Description,
		Mood:        r.Mood,
		CameraAngle: r.CameraAngle,
		Lighting:    r.Lighting,
		ScriptID:    r.ScriptID,
		SceneNumber: r.SceneNumber,
	}
}

// UpdateSceneRequest 更新场景请求
type UpdateSceneRequest struct {
	Title       *string `json:"title,omitempty" binding:"omitempty,max=255"`
	Description *string `json:"description,omitempty"`
	Mood        *string `json:"mood,omitempty" binding:"omitempty,max=100"`
	CameraAngle *string `json:"camera_angle,omitempty" binding:"omitempty,max=100"`
	Lighting    *string `json:"lighting,omitempty" binding:"omitempty,max=100"`
	SceneNumber *int    `json:"scene_number,omitempty"`
}

// ToPatch 转换为业务参数
func (r *UpdateSceneRequest) ToPatch() storyboard.ScenePatch {
	return storyboard.ScenePatch{
		Title:       r.Title,
		Description: r.Description,
		Mood:        r.Mood,
		CameraAngle: r.CameraAngle,
		Lighting:    r.Lighting,
		SceneNumber: r.SceneNumber,
	}
}

// SceneAssetItem 场景资产关联项
type SceneAssetItem struct {
	AssetID      string `json:"asset_id"`
	Role         string `json:"role,omitempty"`
	PositionHint string `json:"position_hint,omitempty"`
}

// SetSceneAssetsRequest 替换场景资产请求，Assets 为 nil 表示缺少该字段
type SetSceneAssetsRequest struct {
	Assets *[]SceneAssetItem `json:"assets"`
}

// ToItems 转换为业务参数，缺少数组时返回 nil
func (r *SetSceneAssetsRequest) ToItems() []storyboard.SceneAssetInput {
	if r.Assets == nil {
		return nil
	}
	items := make([]storyboard.SceneAssetInput, 0, len(*r.Assets))
	for _, a := range *r.Assets {
		items = append(items, storyboard.SceneAssetInput{
			AssetID:      a.AssetID,
			Role:         a.Role,
			PositionHint: a.PositionHint,
		})
	}
	return items
}

// SceneAssetsResponse 场景资产响应
type SceneAssetsResponse struct {
	Assets []*entity.AssignedAsset `json:"assets"`
}
