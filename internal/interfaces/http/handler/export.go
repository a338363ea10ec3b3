package handler

import (
	"github.com/gin-gonic/gin"

	"storyforge-api/internal/application/storyboard"
	"storyforge-api/internal/interfaces/http/dto"
)

// ExportHandler 导出处理器
type ExportHandler struct {
	svc *storyboard.Service
}

// NewExportHandler 创建导出处理器
func NewExportHandler(svc *storyboard.Service) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// ListExports 获取导出列表
// @Summary 获取导出列表
// @Tags Exports
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[[]entity.Export]
// @Router /api/v1/projects/{pid}/exports [get]
func (h *ExportHandler) ListExports(c *gin.Context) {
	exports, err := h.svc.ListExports(c.Request.Context(), dto.BindProjectID(c))
	if err != nil {
		respondError(c, err, "list exports")
		return
	}
	dto.Success(c, exports)
}

// CreateExport 创建导出
// @Summary 创建导出
// @Description 记录以 processing 状态创建，打包在后台完成
// @Tags Exports
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.CreateExportRequest true "导出类型"
// @Success 201 {object} dto.Response[entity.Export]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/exports [post]
func (h *ExportHandler) CreateExport(c *gin.Context) {
	var req dto.CreateExportRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	export, err := h.svc.CreateExport(c.Request.Context(), dto.BindProjectID(c), req.Type)
	if err != nil {
		respondError(c, err, "create export")
		return
	}
	dto.Created(c, export)
}

// GetExport 获取导出详情
// @Summary 获取导出详情
// @Tags Exports
// @Produce json
// @Param pid path string true "项目 ID"
// @Param eid path string true "导出 ID"
// @Success 200 {object} dto.Response[entity.Export]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/exports/{eid} [get]
func (h *ExportHandler) GetExport(c *gin.Context) {
	export, err := h.svc.GetExport(c.Request.Context(), dto.BindProjectID(c), dto.BindExportID(c))
	if err != nil {
		respondError(c, err, "get export")
		return
	}
	dto.Success(c, export)
}
