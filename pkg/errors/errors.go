package errors

import (
	stderrors "errors"
	"fmt"
)

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 远端网关错误分类。
var (
	NetworkUnreachable = Definition{Code: "NETWORK_UNREACHABLE", Message: "Network unreachable. Please check your connectivity."}
	Unauthorized       = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	ServerError        = Definition{Code: "SERVER_ERROR", Message: "Server error"}
	Cancelled          = Definition{Code: "CANCELLED", Message: "Request cancelled"}
)

// 客户端本地错误。
var (
	ValidationFailed     = Definition{Code: "VALIDATION_ERROR", Message: "Validation failed"}
	ConfirmationRequired = Definition{Code: "CONFIRMATION_REQUIRED", Message: "Confirmation required"}
	NotAuthenticated     = Definition{Code: "NOT_AUTHENTICATED", Message: "No active session"}
	InvalidRequest       = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	NotFound             = Definition{Code: "NOT_FOUND", Message: "Resource not found"}
	TooManyRequests      = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests"}
	OutboxUnavailable    = Definition{Code: "OUTBOX_UNAVAILABLE", Message: "Mail outbox unavailable"}
	CSRFInvalid          = Definition{Code: "CSRF_INVALID", Message: "Invalid CSRF token"}
)

// 令牌相关错误。
var (
	ErrTokenGeneratorNotInitialized = stderrors.New("token generator not initialized")
	ErrUnexpectedSigningMethod      = stderrors.New("unexpected signing method")
	ErrInvalidToken                 = stderrors.New("invalid token")
	ErrInvalidTokenClaims           = stderrors.New("invalid token claims")
	ErrUserIDNotFound               = stderrors.New("user id not found in token")
	ErrInvalidTokenType             = stderrors.New("invalid token type")
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	NetworkUnreachable.Code:   NetworkUnreachable,
	Unauthorized.Code:         Unauthorized,
	ServerError.Code:          ServerError,
	Cancelled.Code:            Cancelled,
	ValidationFailed.Code:     ValidationFailed,
	ConfirmationRequired.Code: ConfirmationRequired,
	NotAuthenticated.Code:     NotAuthenticated,
	InvalidRequest.Code:       InvalidRequest,
	NotFound.Code:             NotFound,
	TooManyRequests.Code:      TooManyRequests,
	OutboxUnavailable.Code:    OutboxUnavailable,
	CSRFInvalid.Code:          CSRFInvalid,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// RemoteError 远端请求失败，Kind 取值为 NetworkUnreachable / Unauthorized / ServerError / Cancelled。
type RemoteError struct {
	Kind     Definition
	Endpoint string
	Message  string
	Err      error
	Status   int
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Message
}

func (e *RemoteError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Definition 供响应层输出错误码
func (e *RemoteError) Definition() Definition {
	return Definition{Code: e.Kind.Code, Message: e.Error()}
}

// ValidationError 本地校验失败，不会发往远端
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ValidationFailed
}

func (e *ValidationError) Definition() Definition {
	return Definition{Code: ValidationFailed.Code, Message: e.Message}
}

// Validation 构造一个字段校验错误
func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConfirmationError 需要用户确认后才能继续的操作（例如提前签退）
type ConfirmationError struct {
	Action    string
	Remaining string
}

func (e *ConfirmationError) Error() string {
	if e.Remaining != "" {
		return fmt.Sprintf("%s requires confirmation, %s remaining in shift", e.Action, e.Remaining)
	}
	return e.Action + " requires confirmation"
}

func (e *ConfirmationError) Unwrap() error {
	return ConfirmationRequired
}

func (e *ConfirmationError) Definition() Definition {
	return Definition{Code: ConfirmationRequired.Code, Message: e.Error()}
}

// SkipMessageError 消费者主动跳过的消息（重复投递等），直接 ack
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return "skip message: " + e.Reason
}

// IsSkipMessageError 判断是否为跳过消息的错误
func IsSkipMessageError(err error) bool {
	var skip *SkipMessageError
	return stderrors.As(err, &skip)
}

// Definer 可以映射到错误码的错误
type Definer interface {
	Definition() Definition
}

// KindOf 取出错误对应的 Definition，未知错误返回空 Definition
func KindOf(err error) Definition {
	if err == nil {
		return Definition{}
	}
	var remote *RemoteError
	if stderrors.As(err, &remote) {
		return remote.Kind
	}
	var definer Definer
	if stderrors.As(err, &definer) {
		return Get(definer.Definition().Code)
	}
	var def Definition
	if stderrors.As(err, &def) {
		return def
	}
	return Definition{}
}

// Is 判断错误是否属于某个分类
func Is(err error, kind Definition) bool {
	return stderrors.Is(err, kind)
}

// IsCancelled 取消不是真正的失败，调用方应静默处理
func IsCancelled(err error) bool {
	return stderrors.Is(err, Cancelled)
}
