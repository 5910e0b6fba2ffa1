package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/csrf"
	"github.com/hertz-contrib/sessions"
	"github.com/hertz-contrib/sessions/cookie"

	"Attendify/pkg/errors"
	"Attendify/pkg/response"
)

const csrfSessionName = "attendify-csrf"

// CSRFHeader 前端回传 token 的请求头，csrf 默认的查找位置
const CSRFHeader = "X-CSRF-TOKEN"

// CSRFMiddleware 会话 cookie 保存 salt，写请求校验请求头里的 token。
// GET/HEAD/OPTIONS 不校验，可用来下发 token
func CSRFMiddleware(sessionSecret, csrfSecret string) []app.HandlerFunc {
	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   86400,
	})

	return []app.HandlerFunc{
		sessions.New(csrfSessionName, store),
		csrf.New(
			csrf.WithSecret(csrfSecret),
			csrf.WithErrorFunc(func(ctx context.Context, c *app.RequestContext) {
				response.Error(ctx, c, errors.CSRFInvalid)
				c.Abort()
			}),
		),
	}
}

// CSRFToken 当前会话的 token
func CSRFToken(c *app.RequestContext) string {
	return csrf.GetToken(c)
}
