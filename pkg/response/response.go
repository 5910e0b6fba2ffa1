package response

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"Attendify/pkg/errors"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

// StatusOf 错误分类到 HTTP 状态码
func StatusOf(err error) int {
	switch errors.KindOf(err).Code {
	case errors.ValidationFailed.Code, errors.InvalidRequest.Code:
		return http.StatusBadRequest
	case errors.Unauthorized.Code, errors.NotAuthenticated.Code:
		return http.StatusUnauthorized
	case errors.CSRFInvalid.Code:
		return http.StatusForbidden
	case errors.NotFound.Code:
		return http.StatusNotFound
	case errors.Cancelled.Code:
		return http.StatusRequestTimeout
	case errors.ConfirmationRequired.Code:
		return http.StatusConflict
	case errors.TooManyRequests.Code:
		return http.StatusTooManyRequests
	case errors.ServerError.Code:
		return http.StatusBadGateway
	case errors.NetworkUnreachable.Code, errors.OutboxUnavailable.Code:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// detailsOf 校验字段和确认信息原样交给前端
func detailsOf(err error) map[string]interface{} {
	var validation *errors.ValidationError
	if stderrors.As(err, &validation) && validation.Field != "" {
		return map[string]interface{}{"field": validation.Field}
	}
	var confirm *errors.ConfirmationError
	if stderrors.As(err, &confirm) {
		d := map[string]interface{}{"action": confirm.Action}
		if confirm.Remaining != "" {
			d["remaining"] = confirm.Remaining
		}
		return d
	}
	return nil
}

// Error 返回错误响应
func Error(ctx context.Context, c *app.RequestContext, err error) {
	ErrorWithDetails(ctx, c, err, detailsOf(err))
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details map[string]interface{}) {
	code := errors.KindOf(err).Code
	if code == "" {
		code = "INTERNAL_ERROR"
	}
	c.JSON(StatusOf(err), ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: err.Error(),
			Details: details,
		},
	})
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
	})
}

func SuccessWithMeta(ctx context.Context, c *app.RequestContext, data interface{}, meta map[string]interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    errors.InvalidRequest.Code,
			Message: err.Error(),
		},
	})
}

// NoContent 返回 204 No Content（用于 DELETE 等操作）
func NoContent(ctx context.Context, c *app.RequestContext) {
	c.Status(http.StatusNoContent)
}
