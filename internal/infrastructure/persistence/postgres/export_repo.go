package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"storyforge-api/internal/domain/entity"
)

// ExportRepository 导出仓储实现
type ExportRepository struct {
	client *Client
}

// NewExportRepository 创建导出仓储
func NewExportRepository(client *Client) *ExportRepository {
	return &ExportRepository{client: client}
}

// Create 创建导出记录
func (r *ExportRepository) Create(ctx context.Context, export *entity.Export) error {
	ctx, span := tracer.Start(ctx, "postgres.ExportRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(export).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create export: %w", err)
	}
	return nil
}

// GetByID 获取项目内的导出记录
func (r *ExportRepository) GetByID(ctx context.Context, projectID, id string) (*entity.Export, error) {
	ctx, span := tracer.Start(ctx, "postgres.ExportRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var export entity.Export
	if err := db.First(&export, "id = ? AND project_id = ?", id, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get export: %w", err)
	}
	return &export, nil
}

// ListByProject 按创建时间倒序列出
func (r *ExportRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.Export, error) {
	ctx, span := tracer.Start(ctx, "postgres.ExportRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	exports := []*entity.Export{}
	if err := db.Where("project_id = ?", projectID).Order("created_at DESC").Find(&exports).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	return exports, nil
}

// UpdateStatus 更新状态、文件地址与错误信息
func (r *ExportRepository) UpdateStatus(ctx context.Context, id string, status entity.ExportStatus, fileURL, errMsg string) error {
	ctx, span := tracer.Start(ctx, "postgres.ExportRepository.UpdateStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Model(&entity.Export{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        status,
			"file_url":      fileURL,
			"error_message": errMsg,
			"updated_at":    time.Now(),
		}).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update export status: %w", err)
	}
	return nil
}
