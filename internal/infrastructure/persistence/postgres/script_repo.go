package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"storyforge-api/internal/domain/entity"
)

// ScriptRepository 剧本仓储实现
type ScriptRepository struct {
	client *Client
}

// NewScriptRepository 创建剧本仓储
func NewScriptRepository(client *Client) *ScriptRepository {
	return &ScriptRepository{client: client}
}

// Create 创建剧本
func (r *ScriptRepository) Create(ctx context.Context, script *entity.Script) error {
	ctx, span := tracer.Start(ctx, "postgres.ScriptRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(script).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create script: %w", err)
	}
	return nil
}

// GetByID 获取项目内的剧本
func (r *ScriptRepository) GetByID(ctx context.Context, projectID, id string) (*entity.Script, error) {
	ctx, span := tracer.Start(ctx, "postgres.ScriptRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var script entity.Script
	if err := db.First(&script, "id = ? AND project_id = ?", id, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get script: %w", err)
	}
	return &script, nil
}

// ListByProject 按创建时间倒序列出
func (r *ScriptRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.Script, error) {
	ctx, span := tracer.Start(ctx, "postgres.ScriptRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	scripts := []*entity.Script{}
	if err := db.Where("project_id = ?", projectID).Order("created_at DESC").Find(&scripts).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	return scripts, nil
}

// Update 更新标题与正文
func (r *ScriptRepository) Update(ctx context.Context, script *entity.Script) error {
	ctx, span := tracer.Start(ctx, "postgres.ScriptRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(script).Select("title", "content", "compiled", "updated_at").Updates(script).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update script: %w", err)
	}
	return nil
}

// Delete 删除剧本，其场景保留并解除关联
func (r *ScriptRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ScriptRepository.Delete")
	defer span.End()

	err := NewTxManager(r.client).WithTransaction(ctx, func(txCtx context.Context) error {
		db := getDB(txCtx, r.client.db)
		if err := db.Model(&entity.Scene{}).Where("script_id = ?", id).Update("script_id", nil).Error; err != nil {
			return err
		}
		return db.Where("id = ?", id).Delete(&entity.Script{}).Error
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete script: %w", err)
	}
	return nil
}

// MarkCompiled 标记剧本已编译
func (r *ScriptRepository) MarkCompiled(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ScriptRepository.MarkCompiled")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Model(&entity.Script{}).
		Where("id = ?", id).
		Updates(map[string]any{"compiled": true, "updated_at": time.Now()}).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to mark script compiled: %w", err)
	}
	return nil
}
