// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"storyforge-api/internal/application/storyboard"
	"storyforge-api/internal/domain/repository"
	"storyforge-api/internal/interfaces/http/dto"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	svc *storyboard.Service
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(svc *storyboard.Service) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// ListProjects 获取项目列表
// @Summary 获取项目列表
// @Description 按更新时间倒序分页返回项目
// @Tags Projects
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[[]dto.ProjectResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	pageReq := dto.BindPage(c)

	result, err := h.svc.ListProjects(c.Request.Context(), repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		respondError(c, err, "list projects")
		return
	}

	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, dto.ToProjectListResponse(result.Items), meta)
}

// CreateProject 创建项目
// @Summary 创建项目
// @Description 创建新的分镜项目，未提供的生成参数取默认值
// @Tags Projects
// @Accept json
// @Produce json
// @Param body body dto.CreateProjectRequest true "项目信息"
// @Success 201 {object} dto.Response[dto.ProjectResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	project, err := h.svc.CreateProject(c.Request.Context(), req.ToInput())
	if err != nil {
		respondError(c, err, "create project")
		return
	}
	dto.Created(c, dto.ToProjectResponse(project))
}

// GetProject 获取项目详情
// @Summary 获取项目详情
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.ProjectResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.svc.GetProject(c.Request.Context(), dto.BindProjectID(c))
	if err != nil {
		respondError(c, err, "get project")
		return
	}
	dto.Success(c, dto.ToProjectResponse(project))
}

// UpdateProject 更新项目
// @Summary 更新项目
// @Tags Projects
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.UpdateProjectRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.ProjectResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid} [patch]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	project, err := h.svc.UpdateProject(c.Request.Context(), dto.BindProjectID(c), req.ToPatch())
	if err != nil {
		respondError(c, err, "update project")
		return
	}
	dto.Success(c, dto.ToProjectResponse(project))
}

// DeleteProject 删除项目
// @Summary 删除项目
// @Description 级联删除项目下的资产、剧本、场景与导出
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.Deleted]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.svc.DeleteProject(c.Request.Context(), dto.BindProjectID(c)); err != nil {
		respondError(c, err, "delete project")
		return
	}
	dto.Success(c, dto.Deleted{Success: true})
}

// GetProjectStats 获取项目统计
// @Summary 获取项目统计
// @Description 资产、场景、剧本计数与最近更新的资产和场景
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[repository.ProjectStats]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/stats [get]
func (h *ProjectHandler) GetProjectStats(c *gin.Context) {
	stats, err := h.svc.ProjectStats(c.Request.Context(), dto.BindProjectID(c))
	if err != nil {
		respondError(c, err, "get project stats")
		return
	}
	dto.Success(c, stats)
}
