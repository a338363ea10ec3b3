package storyboard

import (
	"context"

	"storyforge-api/internal/domain/entity"
	apperrors "storyforge-api/pkg/errors"
	"storyforge-api/pkg/logger"
)

// ListExports 列出项目导出记录
func (s *Service) ListExports(ctx context.Context, projectID string) ([]*entity.Export, error) {
	return s.Exports.ListByProject(ctx, projectID)
}

// GetExport 获取导出记录
func (s *Service) GetExport(ctx context.Context, projectID, id string) (*entity.Export, error) {
	exp, err := s.Exports.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, apperrors.ErrExportNotFound
	}
	return exp, nil
}

// CreateExport 创建导出记录并在后台打包
func (s *Service) CreateExport(ctx context.Context, projectID, exportType string) (*entity.Export, error) {
	t := entity.ExportType(exportType)
	if !t.Valid() {
		return nil, apperrors.ErrInvalidParam.WithMessage("Valid type required: pdf, image_sequence, metadata_bundle")
	}
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	rendered, err := s.Scenes.ListRendered(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(rendered) == 0 {
		return nil, apperrors.ErrNothingToExport
	}

	exp := entity.NewExport(projectID, t)
	exp.Status = entity.ExportStatusProcessing
	if err := s.Exports.Create(ctx, exp); err != nil {
		return nil, err
	}

	s.dispatch(ctx, entity.NewGenerationJob(entity.JobTypeExportBuild, projectID, exp.ID))
	logger.Info(ctx, "export queued", "export_id", exp.ID, "type", exportType, "scenes", len(rendered))
	return exp, nil
}
