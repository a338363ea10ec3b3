package handler

import (
	stderrors "errors"
	"io"

	"github.com/gin-gonic/gin"

	"storyforge-api/internal/application/storyboard"
	"storyforge-api/internal/interfaces/http/dto"
	"storyforge-api/pkg/errors"
	"storyforge-api/pkg/logger"
)

// respondError 将业务错误映射为统一错误响应，非 AppError 记录日志并返回 500
func respondError(c *gin.Context, err error, action string) {
	ctx := c.Request.Context()

	if !errors.IsAppError(err) {
		logger.Error(ctx, "failed to "+action, err)
		dto.InternalError(c, "failed to "+action)
		return
	}

	appErr := errors.AsAppError(err)
	detail := &dto.ErrorDetail{
		ErrorCode: string(appErr.Code),
		Details:   appErr.Detail,
	}
	var unlocked *storyboard.UnlockedAssetsError
	if stderrors.As(err, &unlocked) {
		detail.UnlockedAssets = unlocked.Names
	}
	if appErr.HTTPStatus >= 500 {
		logger.Error(ctx, "failed to "+action, err)
	}
	dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, detail)
}

// bindOptionalJSON 绑定可为空的请求体
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !stderrors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// RouteNotFound 未匹配路由的统一 404 响应
func RouteNotFound(c *gin.Context) {
	respondError(c, errors.ErrNotFound, "route request")
}
