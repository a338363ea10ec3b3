package repository

import (
	"context"

	"storyforge-api/internal/domain/entity"
)

// ScriptRepository 剧本仓储接口
type ScriptRepository interface {
	Create(ctx context.Context, script *entity.Script) error
	GetByID(ctx context.Context, projectID, id string) (*entity.Script, error)
	ListByProject(ctx context.Context, projectID string) ([]*entity.Script, error)
	Update(ctx context.Context, script *entity.Script) error
	Delete(ctx context.Context, id string) error
	// MarkCompiled 标记剧本已编译
	MarkCompiled(ctx context.Context, id string) error
}
