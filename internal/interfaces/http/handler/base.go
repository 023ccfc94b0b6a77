// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"bookforge-api/internal/interfaces/http/dto"
	"bookforge-api/pkg/errors"
)

// respondError 将应用错误映射为 HTTP 响应
func respondError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
		ErrorCode: string(appErr.Code),
		Details:   appErr.Detail,
	})
}

// currentUserID 获取当前认证用户 ID
func currentUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

// requireUserID 获取当前用户 ID，缺失时返回 401 并终止
func requireUserID(c *gin.Context) (string, bool) {
	userID := currentUserID(c)
	if userID == "" {
		dto.Unauthorized(c, "authentication required")
		return "", false
	}
	return userID, true
}
