package repository

import (
	"context"

	"storyforge-api/internal/domain/entity"
)

// ExportRepository 导出仓储接口
type ExportRepository interface {
	Create(ctx context.Context, export *entity.Export) error
	GetByID(ctx context.Context, projectID, id string) (*entity.Export, error)
	ListByProject(ctx context.Context, projectID string) ([]*entity.Export, error)
	// UpdateStatus 更新状态、文件地址与错误信息
	UpdateStatus(ctx context.Context, id string, status entity.ExportStatus, fileURL, errMsg string) error
}
