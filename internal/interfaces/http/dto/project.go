package dto

import (
	"time"

	"storyforge-api/internal/application/storyboard"
	"storyforge-api/internal/domain/entity"
)

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name           string `json:"name" binding:"max=255"`
	VisualStyle    string `json:"visual_style" binding:"max=255"`
	BaseModel      string `json:"base_model" binding:"max=100"`
	DefaultSampler string `json:"default_sampler" binding:"max=100"`
}

// ToInput 转换为业务参数
func (r *CreateProjectRequest) ToInput() storyboard.ProjectInput {
	return storyboard.ProjectInput{
		Name:           r.Name,
		VisualStyle:    r.VisualStyle,
		BaseModel:      r.BaseModel,
		DefaultSampler: r.DefaultSampler,
	}
}

// UpdateProjectRequest 更新项目请求
type UpdateProjectRequest struct {
	Name           *string `json:"name,omitempty" binding:"omitempty,max=255"`
	VisualStyle    *string `json:"visual_style,omitempty" binding:"omitempty,max=255"`
	BaseModel      *string `json:"base_model,omitempty" binding:"omitempty,max=100"`
	DefaultSampler *string `json:"default_sampler,omitempty" binding:"omitempty,max=100"`
	Status         *string `json:"status,omitempty"`
}

// ToPatch 转换为业务参数
func (r *UpdateProjectRequest) ToPatch() storyboard.ProjectPatch {
	return storyboard.ProjectPatch{
		Name:           r.Name,
		VisualStyle:    r.VisualStyle,
		BaseModel:      r.BaseModel,
		DefaultSampler: r.DefaultSampler,
		Status:         r.Status,
	}
}

// ProjectResponse 项目响应
type ProjectResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	VisualStyle    string    `json:"visual_style"`
	BaseModel      string    `json:"base_model"`
	DefaultSampler string    `json:"default_sampler"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ToProjectResponse 转换为项目响应
func ToProjectResponse(p *entity.Project) *ProjectResponse {
	if p == nil {
		return nil
	}
	return &ProjectResponse{
		ID:             p.ID,
		Name:           p.Name,
		VisualStyle:    p.VisualStyle,
		BaseModel:      p.BaseModel,
		DefaultSampler: p.DefaultSampler,
		Status:         string(p.Status),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// ToProjectListResponse 转换为项目列表响应
func ToProjectListResponse(projects []*entity.Project) []*ProjectResponse {
	out := make([]*ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, ToProjectResponse(p))
	}
	return out
}
