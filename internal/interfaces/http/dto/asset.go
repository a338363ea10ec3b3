package dto

import (
	"storyforge-api/internal/application/storyboard"
)

// CreateAssetRequest 创建资产请求
type CreateAssetRequest struct {
	Name           string         `json:"name" binding:"max=255"`
	Type           string         `json:"type"`
	Description    string         `json:"description"`
	VisualPrompt   string         `json:"visual_prompt"`
	NegativePrompt string         `json:"negative_prompt"`
	Seed           *int64         `json:"seed,omitempty" binding:"omitempty,gte=0"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ToInput 转换为业务参数
func (r *CreateAssetRequest) ToInput() storyboard.AssetInput {
	return storyboard.AssetInput{
		Name:           r.Name,
		Type:           r.Type,
		Description:    r.Description,
		VisualPrompt:   r.VisualPrompt,
		NegativePrompt: r.NegativePrompt,
		Seed:           r.Seed,
		Metadata:       r.Metadata,
	}
}

// UpdateAssetRequest 更新资产请求
type UpdateAssetRequest struct {
	Name           *string        `json:"name,omitempty" binding:"omitempty,max=255"`
	Description    *string        `json:"description,omitempty"`
	VisualPrompt   *string        `json:"visual_prompt,omitempty"`
	NegativePrompt *string        `json:"negative_prompt,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ToPatch 转换为业务参数
func (r *UpdateAssetRequest) ToPatch() storyboard.AssetPatch {
	return storyboard.AssetPatch{
		Name:           r.Name,
		Description:    r.Description,
		VisualPrompt:   r.VisualPrompt,
		NegativePrompt: r.NegativePrompt,
		Metadata:       r.Metadata,
	}
}

// GenerateAssetRequest 触发生成请求，请求体可为空
type GenerateAssetRequest struct {
	Variants int    `json:"variants,omitempty" binding:"gte=0"`
	Seed     *int64 `json:"seed,omitempty" binding:"omitempty,gte=0"`
}

// ToInput 转换为业务参数
func (r *GenerateAssetRequest) ToInput() storyboard.GenerateInput {
	return storyboard.GenerateInput{Variants: r.Variants, Seed: r.Seed}
}

// SelectVariantRequest 采用候选图请求
type SelectVariantRequest struct {
	VariantID string `json:"variant_id"`
}
