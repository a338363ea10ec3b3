package handler

import (
	"github.com/gin-gonic/gin"

	"storyforge-api/internal/application/storyboard"
	"storyforge-api/internal/interfaces/http/dto"
)

// AssetHandler 资产处理器
type AssetHandler struct {
	svc *storyboard.Service
}

// NewAssetHandler 创建资产处理器
func NewAssetHandler(svc *storyboard.Service) *AssetHandler {
	return &AssetHandler{svc: svc}
}

// ListAssets 获取资产列表
// @Summary 获取资产列表
// @Description 按创建时间倒序返回项目资产，附带被场景引用的次数
// @Tags Assets
// @Produce json
// @Param pid path string true "项目 ID"
// @Param type query string false "资产类型" Enums(character, environment, nature, prop)
// @Success 200 {object} dto.Response[[]entity.Asset]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/assets [get]
func (h *AssetHandler) ListAssets(c *gin.Context) {
	assets, err := h.svc.ListAssets(c.Request.Context(), dto.BindProjectID(c), c.Query("type"))
	if err != nil {
		respondError(c, err, "list assets")
		return
	}
	dto.Success(c, assets)
}

// CreateAsset 创建资产
// @Summary 创建资产
// @Description 创建资产并写入第 1 版记录，有视觉提示词时在后台生成缩略图
// @Tags Assets
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.CreateAssetRequest true "资产信息"
// @Success 201 {object} dto.Response[entity.Asset]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/assets [post]
func (h *AssetHandler) CreateAsset(c *gin.Context) {
	var req dto.CreateAssetRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	asset, err := h.svc.CreateAsset(c.Request.Context(), dto.BindProjectID(c), req.ToInput())
	if err != nil {
		respondError(c, err, "create asset")
		return
	}
	dto.Created(c, asset)
}

// GetAsset 获取资产详情
// @Summary 获取资产详情
// @Description 资产及其版本历史、候选图和引用它的场景
// @Tags Assets
// @Produce json
// @Param pid path string true "项目 ID"
// @Param aid path string true "资产 ID"
// @Success 200 {object} dto.Response[storyboard.AssetDetail]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/assets/{aid} [get]
func (h *AssetHandler) GetAsset(c *gin.Context) {
	detail, err := h.svc.GetAssetDetail(c.Request.Context(), dto.BindProjectID(c), dto.BindAssetID(c))
	if err != nil {
		respondError(c, err, "get asset")
		return
	}
	dto.Success(c, detail)
}

// UpdateAsset 更新资产
// @Summary 更新资产
// @Tags Assets
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param aid path string true "资产 ID"
// @Param body body dto.UpdateAssetRequest true "更新内容"
// @Success 200 {object} dto.Response[entity.Asset]
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/assets/{aid} [patch]
func (h *AssetHandler) UpdateAsset(c *gin.Context) {
	var req dto.UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	asset, err := h.svc.UpdateAsset(c.Request.Context(), dto.BindProjectID(c), dto.BindAssetID(c), req.ToPatch())
	if err != nil {
		respondError(c, err, "update asset")
		return
	}
	dto.Success(c, asset)
}

// DeleteAsset 删除资产
// @Summary 删除资产
// @Tags Assets
// @Produce json
// @Param pid path string true "项目 ID"
// @Param aid path string true "资产 ID"
// @Success 200 {object} dto.Response[dto.Deleted]
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/assets/{aid} [delete]
func (h *AssetHandler) DeleteAsset(c *gin.Context) {
	if err := h.svc.DeleteAsset(c.Request.Context(), dto.BindProjectID(c), dto.BindAssetID(c)); err != nil {
		respondError(c, err, "delete asset")
		return
	}
	dto.Success(c, dto.Deleted{Success: true})
}

// LockAsset 锁定资产
// @Summary 锁定资产
// @Description 锁定后资产不可再编辑、重新生成或删除
// @Tags Assets
// @Produce json
// @Param pid path string true "项目 ID"
// @Param aid path string true "资产 ID"
// @Success 200 {object} dto.Response[entity.Asset]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/assets/{aid}/lock [post]
func (h *AssetHandler) LockAsset(c *gin.Context) {
	asset, err := h.svc.LockAsset(c.Request.Context(), dto.BindProjectID(c), dto.BindAssetID(c))
	if err != nil {
		respondError(c, err, "lock asset")
		return
	}
	dto.Success(c, asset)
}

// GenerateAsset 重新生成资产
// @Summary 重新生成资产
// @Description variants 大于 1 时批量生成候选图，否则单张重新生成
// @Tags Assets
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param aid path string true "资产 ID"
// @Param body body dto.GenerateAssetRequest false "生成参数"
// @Success 202 {object} dto.Response[storyboard.GenerateResult]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/assets/{aid}/generate [post]
func (h *AssetHandler) GenerateAsset(c *gin.Context) {
	var req dto.GenerateAssetRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.GenerateAsset(c.Request.Context(), dto.BindProjectID(c), dto.BindAssetID(c), req.ToInput())
	if err != nil {
		respondError(c, err, "generate asset")
		return
	}
	dto.Accepted(c, result)
}

// ListVariants 获取候选图列表
// @Summary 获取候选图列表
// @Tags Assets
// @Produce json
// @Param pid path string true "项目 ID"
// @Param aid path string true "资产 ID"
// @Success 200 {object} dto.Response[[]entity.AssetVariant]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/assets/{aid}/variants [get]
func (h *AssetHandler) ListVariants(c *gin.Context) {
	variants, err := h.svc.ListVariants(c.Request.Context(), dto.BindProjectID(c), dto.BindAssetID(c))
	if err != nil {
		respondError(c, err, "list variants")
		return
	}
	dto.Success(c, variants)
}

// SelectVariant 采用候选图
// @Summary 采用候选图
// @Description 复制候选图的缩略图与种子并推进资产版本
// @Tags Assets
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param aid path string true "资产 ID"
// @Param body body dto.SelectVariantRequest true "候选图"
// @Success 200 {object} dto.Response[entity.Asset]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/assets/{aid}/variants [post]
func (h *AssetHandler) SelectVariant(c *gin.Context) {
	var req dto.SelectVariantRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	asset, err := h.svc.SelectVariant(c.Request.Context(), dto.BindProjectID(c), dto.BindAssetID(c), req.VariantID)
	if err != nil {
		respondError(c, err, "select variant")
		return
	}
	dto.Success(c, asset)
}
