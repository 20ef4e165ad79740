package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkpay-platform/internal/funnel"
	"linkpay-platform/internal/middleware"
	"linkpay-platform/internal/registry"
	"linkpay-platform/internal/withdrawal"
)

// 稳定的错误码
const (
	CodeNotFound                = "not_found"
	CodeValidation              = "validation_error"
	CodeInsufficientBalance     = "insufficient_balance"
	CodeCodeGenerationExhausted = "code_generation_exhausted"
	CodeConcurrencyConflict     = "concurrency_conflict"
	CodeInternal                = "internal_error"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error" example:"withdrawal not found"`
	Code  string `json:"code" example:"not_found"`
}

// respondError 把领域错误映射为状态码与错误码，未知错误只记录日志不外泄细节
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound),
		errors.Is(err, funnel.ErrLinkNotFound),
		errors.Is(err, withdrawal.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: CodeNotFound})
	case errors.Is(err, registry.ErrInvalidURL),
		errors.Is(err, withdrawal.ErrInvalidAmount),
		errors.Is(err, withdrawal.ErrInvalidNote),
		errors.Is(err, withdrawal.ErrBelowMinimum):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeValidation})
	case errors.Is(err, withdrawal.ErrInsufficientBalance):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: CodeInsufficientBalance})
	case errors.Is(err, registry.ErrCodeGenerationExhausted):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "暂时无法生成短码，请重试", Code: CodeCodeGenerationExhausted})
	case errors.Is(err, withdrawal.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: CodeConcurrencyConflict})
	default:
		zap.S().Errorf("%s %s 处理失败: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "服务器内部错误", Code: CodeInternal})
	}
}

// respondInvalid 请求体格式错误
func respondInvalid(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "无效的请求数据: " + err.Error(), Code: CodeValidation})
}

// currentUser 读取已认证用户，未认证时直接写 401
func currentUser(c *gin.Context) (uint, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "未认证", Code: "unauthorized"})
	}
	return id, ok
}
