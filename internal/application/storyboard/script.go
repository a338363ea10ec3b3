package storyboard

import (
	"context"
	"strings"
	"time"

	"storyforge-api/internal/application/scriptparse"
	"storyforge-api/internal/domain/entity"
	apperrors "storyforge-api/pkg/errors"
	"storyforge-api/pkg/logger"
)

// ScriptInput 创建剧本参数
type ScriptInput struct {
	Title   string
	Content string
}

// ScriptPatch 剧本可更新字段
type ScriptPatch struct {
	Title   *string
	Content *string
}

// ScriptDetail 剧本及其编译出的场景
type ScriptDetail struct {
	*entity.Script
	Scenes []*entity.Scene `json:"scenes"`
}

// CompileResult 编译结果
type CompileResult struct {
	Scenes []*entity.Scene `json:"scenes"`
	Count  int             `json:"count"`
}

// ListScripts 列出项目剧本
func (s *Service) ListScripts(ctx context.Context, projectID string) ([]*entity.Script, error) {
	return s.Scripts.ListByProject(ctx, projectID)
}

// CreateScript 创建剧本
func (s *Service) CreateScript(ctx context.Context, projectID string, in ScriptInput) (*entity.Script, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperrors.ErrInvalidParam.WithMessage("title is required")
	}
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	script := entity.NewScript(projectID, in.Title, in.Content)
	if err := s.Scripts.Create(ctx, script); err != nil {
		return nil, err
	}
	return script, nil
}

// GetScript 获取剧本
func (s *Service) GetScript(ctx context.Context, projectID, id string) (*entity.Script, error) {
	script, err := s.Scripts.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if script == nil {
		return nil, apperrors.ErrScriptNotFound
	}
	return script, nil
}

// GetScriptDetail 获取剧本与其场景
func (s *Service) GetScriptDetail(ctx context.Context, projectID, id string) (*ScriptDetail, error) {
	script, err := s.GetScript(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	scenes, err := s.Scenes.ListByScript(ctx, script.ID)
	if err != nil {
		return nil, err
	}
	return &ScriptDetail{Script: script, Scenes: scenes}, nil
}

// UpdateScript 更新剧本
func (s *Service) UpdateScript(ctx context.Context, projectID, id string, patch ScriptPatch) (*entity.Script, error) {
	script, err := s.GetScript(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, apperrors.ErrInvalidParam.WithMessage("title cannot be empty")
		}
		script.Title = *patch.Title
	}
	if patch.Content != nil {
		script.Content = *patch.Content
	}
	script.UpdatedAt = time.Now()

	if err := s.Scripts.Update(ctx, script); err != nil {
		return nil, err
	}
	return script, nil
}

// DeleteScript 删除剧本，场景保留但解除关联
func (s *Service) DeleteScript(ctx context.Context, projectID, id string) error {
	if _, err := s.GetScript(ctx, projectID, id); err != nil {
		return err
	}
	return s.Scripts.Delete(ctx, id)
}

// CompileScript 将剧本切分为场景，替换该剧本之前编译出的场景
func (s *Service) CompileScript(ctx context.Context, projectID, id string) (*CompileResult, error) {
	script, err := s.GetScript(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if script.IsBlank() {
		return nil, apperrors.ErrScriptEmpty
	}

	blocks := scriptparse.Parse(script.Content)
	if len(blocks) == 0 {
		return nil, apperrors.ErrNoScenesDetected
	}

	scenes := make([]*entity.Scene, 0, len(blocks))
	for i, block := range blocks {
		scene := entity.NewScene(projectID, i+1)
		scene.ScriptID = &script.ID
		scene.Title = block.Title
		scene.Description = block.Description
		scenes = append(scenes, scene)
	}

	err = s.Transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.Scenes.DeleteByScript(txCtx, script.ID); err != nil {
			return err
		}
		if err := s.Scenes.CreateBatch(txCtx, scenes); err != nil {
			return err
		}
		return s.Scripts.MarkCompiled(txCtx, script.ID)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "script compiled", "script_id", script.ID, "scene_count", len(scenes))
	return &CompileResult{Scenes: scenes, Count: len(scenes)}, nil
}
