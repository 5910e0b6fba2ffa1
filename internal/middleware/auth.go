package middleware

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/jwt"

	"Attendify/pkg/errors"
	"Attendify/pkg/response"
	"Attendify/pkg/token"
)

const (
	IdentityKey = token.IdentityKey
)

var (
	authMiddleware *jwt.HertzJWTMiddleware
)

func initAuthMiddleware(g *token.Generator) error {
	if g == nil {
		return fmt.Errorf("token generator not initialized, call token.Init() first")
	}
	base := g.Middleware()

	mw, err := jwt.New(&jwt.HertzJWTMiddleware{
		Realm:       "Attendify companion API",
		Key:         base.Key,
		Timeout:     base.Timeout,
		MaxRefresh:  base.MaxRefresh,
		IdentityKey: base.IdentityKey,
		TimeFunc:    base.TimeFunc,

		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			claims := jwt.ExtractClaims(ctx, c)
			// refresh token 不能当作访问令牌
			if typ, _ := claims["type"].(string); typ == "refresh" {
				return nil
			}
			switch uid := claims[IdentityKey].(type) {
			case string:
				return uid
			case float64:
				return fmt.Sprintf("%.0f", uid)
			}
			return nil
		},

		Authorizator: func(data interface{}, ctx context.Context, c *app.RequestContext) bool {
			uid, ok := data.(string)
			return ok && uid != ""
		},

		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			response.ErrorWithDetails(ctx, c, errors.Definition{Code: errors.Unauthorized.Code, Message: message}, nil)
		},

		TokenLookup:   "header: Authorization, cookie: jwt",
		TokenHeadName: "Bearer",
	})
	if err != nil {
		return fmt.Errorf("failed to build auth middleware: %w", err)
	}
	authMiddleware = mw
	return nil
}

func AuthMiddleware() app.HandlerFunc {
	if authMiddleware == nil {
		panic("AuthMiddleware not initialized, call Init() first")
	}
	return authMiddleware.MiddlewareFunc()
}

// GetUserID 从请求上下文中获取用户ID
func GetUserID(ctx context.Context, c *app.RequestContext) (string, bool) {
	userID, exists := c.Get(IdentityKey)
	if !exists {
		return "", false
	}

	id, ok := userID.(string)
	if !ok {
		return "", false
	}

	return id, true
}
