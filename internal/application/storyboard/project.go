package storyboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
	"storyforge-api/internal/infrastructure/persistence/redis"
	apperrors "storyforge-api/pkg/errors"
	"storyforge-api/pkg/logger"
)

// ProjectInput 创建项目参数
type ProjectInput struct {
	Name           string
	VisualStyle    string
	BaseModel      string
	DefaultSampler string
}

// ProjectPatch 项目可更新字段，nil 表示不修改
type ProjectPatch struct {
	Name           *string
	VisualStyle    *string
	BaseModel      *string
	DefaultSampler *string
	Status         *string
}

// ListProjects 分页列出项目
func (s *Service) ListProjects(ctx context.Context, page repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	return s.Projects.List(ctx, page)
}

// CreateProject 创建项目，未提供的生成参数取默认值
func (s *Service) CreateProject(ctx context.Context, in ProjectInput) (*entity.Project, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.ErrInvalidParam.WithMessage("name is required")
	}

	project := entity.NewProject(in.Name)
	if in.VisualStyle != "" {
		project.VisualStyle = in.VisualStyle
	}
	if in.BaseModel != "" {
		project.BaseModel = in.BaseModel
	}
	if in.DefaultSampler != "" {
		project.DefaultSampler = in.DefaultSampler
	}

	if err := s.Projects.Create(ctx, project); err != nil {
		return nil, err
	}
	logger.Info(ctx, "project created", "project_id", project.ID)
	return project, nil
}

// GetProject 获取项目
func (s *Service) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	project, err := s.Projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}
	return project, nil
}

// UpdateProject 更新项目
func (s *Service) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (*entity.Project, error) {
	project, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, apperrors.ErrInvalidParam.WithMessage("name cannot be empty")
		}
		project.Name = *patch.Name
	}
	if patch.VisualStyle != nil {
		project.VisualStyle = *patch.VisualStyle
	}
	if patch.BaseModel != nil {
		project.BaseModel = *patch.BaseModel
	}
	if patch.DefaultSampler != nil {
		project.DefaultSampler = *patch.DefaultSampler
	}
	if patch.Status != nil {
		status := entity.ProjectStatus(*patch.Status)
		if !status.Valid() {
			return nil, apperrors.ErrInvalidParam.WithMessage("Invalid project status")
		}
		project.Status = status
	}
	project.UpdatedAt = time.Now()

	if err := s.Projects.Update(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// DeleteProject 删除项目及其下全部资源
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}
	if err := s.Projects.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info(ctx, "project deleted", "project_id", id)
	return nil
}

// ProjectStats 项目统计，配置了缓存时经缓存读取
func (s *Service) ProjectStats(ctx context.Context, id string) (*repository.ProjectStats, error) {
	if _, err := s.GetProject(ctx, id); err != nil {
		return nil, err
	}
	if s.StatsCache == nil {
		return s.Projects.GetStats(ctx, id)
	}

	raw, err := s.StatsCache.GetOrLoad(ctx, redis.ProjectStatsKey(id), s.opts.StatsTTL, func(ctx context.Context) (any, error) {
		return s.Projects.GetStats(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	var stats repository.ProjectStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode project stats: %w", err)
	}
	return &stats, nil
}
