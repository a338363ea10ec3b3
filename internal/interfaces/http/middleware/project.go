package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"storyforge-api/pkg/logger"
)

// ProjectInvalidator 项目级缓存失效
type ProjectInvalidator interface {
	InvalidateProject(ctx context.Context, projectID string) error
}

// ProjectContext 将路径中的项目 ID 注入日志上下文
func ProjectContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if projectID := c.Param("pid"); projectID != "" {
			ctx := logger.WithContext(c.Request.Context(), logger.ProjectIDKey, projectID)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// InvalidateProjectCache 项目下的写请求成功后清理该项目的缓存
func InvalidateProjectCache(invalidator ProjectInvalidator) gin.HandlerFunc {
	if invalidator == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			return
		}
		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		projectID := c.Param("pid")
		if projectID == "" {
			return
		}
		ctx := c.Request.Context()
		if err := invalidator.InvalidateProject(ctx, projectID); err != nil {
			logger.Warn(ctx, "failed to invalidate project cache", "project_id", projectID, "error", err.Error())
		}
	}
}
