package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"storyforge-api/internal/domain/entity"
)

// Models 参与自动迁移的全部实体
func Models() []any {
	return []any{
		&entity.Project{},
		&entity.Asset{},
		&entity.AssetVersion{},
		&entity.AssetVariant{},
		&entity.Script{},
		&entity.Scene{},
		&entity.SceneAsset{},
		&entity.SceneVersion{},
		&entity.Export{},
	}
}

// AutoMigrate 同步表结构
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	ctx, span := tracer.Start(ctx, "postgres.AutoMigrate")
	defer span.End()

	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Migrate 对客户端执行迁移
func (c *Client) Migrate(ctx context.Context) error {
	return AutoMigrate(ctx, c.db)
}
