// Package errors 提供统一的错误定义
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeForbidden          ErrorCode = "1003"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 资源错误 (3xxx)
	CodeProjectNotFound ErrorCode = "3001"
	CodeAssetNotFound   ErrorCode = "3002"
	CodeScriptNotFound  ErrorCode = "3003"
	CodeSceneNotFound   ErrorCode = "3004"
	CodeVariantNotFound ErrorCode = "3005"
	CodeExportNotFound  ErrorCode = "3006"

	// 业务错误 (4xxx)
	CodeAssetLocked      ErrorCode = "4001"
	CodeAssetInUse       ErrorCode = "4002"
	CodeSceneNotReady    ErrorCode = "4003"
	CodeScriptEmpty      ErrorCode = "4004"
	CodeNoScenesDetected ErrorCode = "4005"
	CodeNothingToExport  ErrorCode = "4006"
	CodeGenerationFailed ErrorCode = "4007"

	// 外部服务错误 (5xxx)
	CodeDatabaseError      ErrorCode = "5001"
	CodeCacheError         ErrorCode = "5002"
	CodeStorageError       ErrorCode = "5004"
	CodeImageProviderError ErrorCode = "5005"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，便于 errors.Is 匹配预定义错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail 返回带详细信息的副本，预定义错误不会被修改
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 返回带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// WithMessage 返回替换提示信息的副本
func (e *AppError) WithMessage(msg string) *AppError {
	cp := *e
	cp.Message = msg
	return &cp
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeSceneNotReady, CodeScriptEmpty, CodeNoScenesDetected, CodeNothingToExport:
		return http.StatusBadRequest
	case CodeForbidden, CodeAssetLocked, CodeAssetInUse:
		return http.StatusForbidden
	case CodeNotFound, CodeProjectNotFound, CodeAssetNotFound, CodeScriptNotFound,
		CodeSceneNotFound, CodeVariantNotFound, CodeExportNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeImageProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam    = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound        = New(CodeNotFound, "resource not found")
	ErrTooManyRequests = New(CodeTooManyRequests, "too many requests")
	ErrInternalError   = New(CodeInternalError, "internal server error")

	ErrProjectNotFound = New(CodeProjectNotFound, "Project not found")
	ErrAssetNotFound   = New(CodeAssetNotFound, "Asset not found")
	ErrScriptNotFound  = New(CodeScriptNotFound, "Script not found")
	ErrSceneNotFound   = New(CodeSceneNotFound, "Scene not found")
	ErrVariantNotFound = New(CodeVariantNotFound, "Variant not found")
	ErrExportNotFound  = New(CodeExportNotFound, "Export not found")

	ErrAssetLocked      = New(CodeAssetLocked, "asset is locked")
	ErrAssetInUse       = New(CodeAssetInUse, "Cannot delete asset used in scenes")
	ErrSceneNotReady    = New(CodeSceneNotReady, "scene is not ready to render")
	ErrScriptEmpty      = New(CodeScriptEmpty, "Script content is empty")
	ErrNoScenesDetected = New(CodeNoScenesDetected, "No scenes detected in script. Use scene markers like 'SCENE 1:', 'INT.', 'EXT.', or '---'")
	ErrNothingToExport  = New(CodeNothingToExport, "No rendered scenes to export")
	ErrGenerationFailed = New(CodeGenerationFailed, "image generation failed")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
