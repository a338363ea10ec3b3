package handler

import (
	"github.com/gin-gonic/gin"

	"storyforge-api/internal/application/storyboard"
	"storyforge-api/internal/interfaces/http/dto"
)

// ScriptHandler 剧本处理器
type ScriptHandler struct {
	svc *storyboard.Service
}

// NewScriptHandler 创建剧本处理器
func NewScriptHandler(svc *storyboard.Service) *ScriptHandler {
	return &ScriptHandler{svc: svc}
}

// ListScripts 获取剧本列表
// @Summary 获取剧本列表
// @Tags Scripts
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[[]entity.Script]
// @Router /api/v1/projects/{pid}/scripts [get]
func (h *ScriptHandler) ListScripts(c *gin.Context) {
	scripts, err := h.svc.ListScripts(c.Request.Context(), dto.BindProjectID(c))
	if err != nil {
		respondError(c, err, "list scripts")
		return
	}
	dto.Success(c, scripts)
}

// CreateScript 创建剧本
// @Summary 创建剧本
// @Tags Scripts
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.CreateScriptRequest true "剧本信息"
// @Success 201 {object} dto.Response[entity.Script]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/scripts [post]
func (h *ScriptHandler) CreateScript(c *gin.Context) {
	var req dto.CreateScriptRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	script, err := h.svc.CreateScript(c.Request.Context(), dto.BindProjectID(c), req.ToInput())
	if err != nil {
		respondError(c, err, "create script")
		return
	}
	dto.Created(c, script)
}

// GetScript 获取剧本详情
// @Summary 获取剧本详情
// @Description 剧本及其编译出的场景
// @Tags Scripts
// @Produce json
// @Param pid path string true "项目 ID"
// @Param sid path string true "剧本 ID"
// @Success 200 {object} dto.Response[storyboard.ScriptDetail]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/scripts/{sid} [get]
func (h *ScriptHandler) GetScript(c *gin.Context) {
	detail, err := h.svc.GetScriptDetail(c.Request.Context(), dto.BindProjectID(c), dto.BindScriptID(c))
	if err != nil {
		respondError(c, err, "get script")
		return
	}
	dto.Success(c, detail)
}

// UpdateScript 更新剧本
// @Summary 更新剧本
// @Tags Scripts
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param sid path string true "剧本 ID"
// @Param body body dto.UpdateScriptRequest true "更新内容"
// @Success 200 {object} dto.Response[entity.Script]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/scripts/{sid} [patch]
func (h *ScriptHandler) UpdateScript(c *gin.Context) {
	var req dto.UpdateScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	script, err := h.svc.UpdateScript(c.Request.Context(), dto.BindProjectID(c), dto.BindScriptID(c), req.ToPatch())
	if err != nil {
		respondError(c, err, "update script")
		return
	}
	dto.Success(c, script)
}

// DeleteScript 删除剧本
// @Summary 删除剧本
// @Tags Scripts
// @Produce json
// @Param pid path string true "项目 ID"
// @Param sid path string true "剧本 ID"
// @Success 200 {object} dto.Response[dto.Deleted]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/scripts/{sid} [delete]
func (h *ScriptHandler) DeleteScript(c *gin.Context) {
	if err := h.svc.DeleteScript(c.Request.Context(), dto.BindProjectID(c), dto.BindScriptID(c)); err != nil {
		respondError(c, err, "delete script")
		return
	}
	dto.Success(c, dto.Deleted{Success: true})
}

// CompileScript 编译剧本
// @Summary 编译剧本
// @Description 按场景标记切分剧本，替换该剧本之前编译出的场景
// @Tags Scripts
// @Produce json
// @Param pid path string true "项目 ID"
// @Param sid path string true "剧本 ID"
// @Success 200 {object} dto.Response[storyboard.CompileResult]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/scripts/{sid}/compile [post]
func (h *ScriptHandler) CompileScript(c *gin.Context) {
	result, err := h.svc.CompileScript(c.Request.Context(), dto.BindProjectID(c), dto.BindScriptID(c))
	if err != nil {
		respondError(c, err, "compile script")
		return
	}
	dto.Success(c, result)
}
