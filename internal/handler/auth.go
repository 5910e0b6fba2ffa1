package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"Attendify/internal/model"
	"Attendify/pkg/errors"
	"Attendify/pkg/response"
	"Attendify/pkg/token"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User   *model.Identity `json:"user"`
	Tokens token.Pair      `json:"tokens"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login 远端登录并签发本地令牌
// POST /v1/auth/login
func (h *Handler) Login(ctx context.Context, c *app.RequestContext) {
	var req LoginRequest
	if !bind(ctx, c, &req) {
		return
	}

	ident, err := h.session.Login(ctx, req.Email, req.Password)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	pair, err := h.tokens.GenerateTokenPair(ident.ID)
	if err != nil {
		h.logger.Error("Failed to issue tokens", zap.String("user_id", ident.ID), zap.Error(err))
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, LoginResponse{User: ident, Tokens: pair})
}

// RefreshToken 刷新访问令牌，会话必须仍然有效
// POST /v1/auth/token/refresh
func (h *Handler) RefreshToken(ctx context.Context, c *app.RequestContext) {
	var req RefreshRequest
	if !bind(ctx, c, &req) {
		return
	}

	uid, err := h.tokens.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		h.logger.Info("Refresh token rejected", zap.Error(err))
		response.Error(ctx, c, errors.Unauthorized)
		return
	}
	if ident := h.session.Current(); ident == nil || ident.ID != uid {
		response.Error(ctx, c, errors.NotAuthenticated)
		return
	}

	pair, err := h.tokens.GenerateTokenPair(uid)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, pair)
}

// Logout 登出
// POST /v1/auth/logout
func (h *Handler) Logout(ctx context.Context, c *app.RequestContext) {
	if err := h.session.Logout(ctx); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// CSRFToken 下发当前会话的 CSRF token
// GET /v1/csrf
func (h *Handler) CSRFToken(ctx context.Context, c *app.RequestContext) {
	if h.csrfToken == nil {
		response.Success(ctx, c, map[string]string{"csrf_token": ""})
		return
	}
	response.Success(ctx, c, map[string]string{"csrf_token": h.csrfToken(c)})
}
