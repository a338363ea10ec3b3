package handler

import (
	"github.com/gin-gonic/gin"

	"storyforge-api/internal/application/storyboard"
	"storyforge-api/internal/interfaces/http/dto"
)

// SceneHandler 场景处理器
type SceneHandler struct {
	svc *storyboard.Service
}

// NewSceneHandler 创建场景处理器
func NewSceneHandler(svc *storyboard.Service) *SceneHandler {
	return &SceneHandler{svc: svc}
}

// ListScenes 获取场景列表
// @Summary 获取场景列表
// @Description 按场次返回场景及其资产
// @Tags Scenes
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[[]storyboard.SceneWithAssets]
// @Router /api/v1/projects/{pid}/scenes [get]
func (h *SceneHandler) ListScenes(c *gin.Context) {
	scenes, err := h.svc.ListScenes(c.Request.Context(), dto.BindProjectID(c))
	if err != nil {
		respondError(c, err, "list scenes")
		return
	}
	dto.Success(c, scenes)
}

// CreateScene 创建场景
// @Summary 创建场景
// @Tags Scenes
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.CreateSceneRequest false "场景信息"
// @Success 201 {object} dto.Response[entity.Scene]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/scenes [post]
func (h *SceneHandler) CreateScene(c *gin.Context) {
	var req dto.CreateSceneRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	scene, err := h.svc.CreateScene(c.Request.Context(), dto.BindProjectID(c), req.ToInput())
	if err != nil {
		respondError(c, err, "create scene")
		return
	}
	dto.Created(c, scene)
}

// GetScene 获取场景详情
// @Summary 获取场景详情
// @Description 场景、已分配资产与渲染历史
// @Tags Scenes
// @Produce json
// @Param pid path string true "项目 ID"
// @Param scid path string true "场景 ID"
// @Success 200 {object} dto.Response[storyboard.SceneDetail]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/scenes/{scid} [get]
func (h *SceneHandler) GetScene(c *gin.Context) {
	detail, err := h.svc.GetSceneDetail(c.Request.Context(), dto.BindProjectID(c), dto.BindSceneID(c))
	if err != nil {
		respondError(c, err, "get scene")
		return
	}
	dto.Success(c, detail)
}

// UpdateScene 更新场景
// @Summary 更新场景
// @Tags Scenes
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param scid path string true "场景 ID"
// @Param body body dto.UpdateSceneRequest true "更新内容"
// @Success 200 {object} dto.Response[entity.Scene]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/scenes/{scid} [patch]
func (h *SceneHandler) UpdateScene(c *gin.Context) {
	var req dto.UpdateSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	scene, err := h.svc.UpdateScene(c.Request.Context(), dto.BindProjectID(c), dto.BindSceneID(c), req.ToPatch())
	if err != nil {
		respondError(c, err, "update scene")
		return
	}
	dto.Success(c, scene)
}

// DeleteScene 删除场景
// @Summary 删除场景
// @Tags Scenes
// @Produce json
// @Param pid path string true "项目 ID"
// @Param scid path string true "场景 ID"
// @Success 200 {object} dto.Response[dto.Deleted]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/scenes/{scid} [delete]
func (h *SceneHandler) DeleteScene(c *gin.Context) {
	if err := h.svc.DeleteScene(c.Request.Context(), dto.BindProjectID(c), dto.BindSceneID(c)); err != nil {
		respondError(c, err, "delete scene")
		return
	}
	dto.Success(c, dto.Deleted{Success: true})
}

// SetSceneAssets 替换场景资产
// @Summary 替换场景资产
// @Tags Scenes
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param scid path string true "场景 ID"
// @Param body body dto.SetSceneAssetsRequest true "资产列表"
// @Success 200 {object} dto.Response[dto.SceneAssetsResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/scenes/{scid}/assets [put]
func (h *SceneHandler) SetSceneAssets(c *gin.Context) {
	var req dto.SetSceneAssetsRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	assets, err := h.svc.SetSceneAssets(c.Request.Context(), dto.BindProjectID(c), dto.BindSceneID(c), req.ToItems())
	if err != nil {
		respondError(c, err, "set scene assets")
		return
	}
	dto.Success(c, dto.SceneAssetsResponse{Assets: assets})
}

// RenderScene 渲染场景
// @Summary 渲染场景
// @Description 场景资产全部锁定后在后台渲染分镜帧
// @Tags Scenes
// @Produce json
// @Param pid path string true "项目 ID"
// @Param scid path string true "场景 ID"
// @Success 202 {object} dto.Response[entity.Scene]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/scenes/{scid}/render [post]
func (h *SceneHandler) RenderScene(c *gin.Context) {
	scene, err := h.svc.RenderScene(c.Request.Context(), dto.BindProjectID(c), dto.BindSceneID(c))
	if err != nil {
		respondError(c, err, "render scene")
		return
	}
	dto.Accepted(c, scene)
}
