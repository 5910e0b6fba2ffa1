// Package token 伴随 API 的本地访问令牌
package token

import (
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/hertz-contrib/jwt"

	"Attendify/pkg/errors"
)

const (
	IdentityKey = "uid"
)

// Pair 登录后下发的令牌
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Generator 签发与校验令牌，同时提供给鉴权中间件使用
type Generator struct {
	mw      *jwt.HertzJWTMiddleware
	secret  []byte
	ttl     time.Duration
	refresh time.Duration
}

var sharedGenerator *Generator

// Init 初始化共享生成器
func Init(secret string, ttl, refresh time.Duration) error {
	g, err := New(secret, ttl, refresh)
	if err != nil {
		return err
	}
	sharedGenerator = g
	return nil
}

// GetGenerator 获取共享的 token 生成器（供 middleware 使用）
func GetGenerator() *Generator {
	return sharedGenerator
}

func New(secret string, ttl, refresh time.Duration) (*Generator, error) {
	mw, err := jwt.New(&jwt.HertzJWTMiddleware{
		Key:         []byte(secret),
		Timeout:     ttl,
		MaxRefresh:  refresh,
		IdentityKey: IdentityKey,
		TimeFunc:    time.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token generator: %w", err)
	}
	return &Generator{mw: mw, secret: []byte(secret), ttl: ttl, refresh: refresh}, nil
}

// Middleware hertz-contrib/jwt 的基础配置
func (g *Generator) Middleware() *jwt.HertzJWTMiddleware {
	return g.mw
}

// GenerateTokenPair 生成 access token 和 refresh token
func (g *Generator) GenerateTokenPair(userID string) (Pair, error) {
	if g == nil {
		return Pair{}, errors.ErrTokenGeneratorNotInitialized
	}
	now := g.mw.TimeFunc()
	expiresAt := now.Add(g.ttl)

	access, err := g.sign(jwtv5.MapClaims{
		IdentityKey: userID,
		"iat":       now.Unix(),
		"exp":       expiresAt.Unix(),
	})
	if err != nil {
		return Pair{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, err := g.sign(jwtv5.MapClaims{
		IdentityKey: userID,
		"iat":       now.Unix(),
		"type":      "refresh",
		"exp":       now.Add(g.refresh).Unix(),
	})
	if err != nil {
		return Pair{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return Pair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int(g.ttl.Seconds())}, nil
}

func (g *Generator) sign(claims jwtv5.MapClaims) (string, error) {
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(g.secret)
}

// ValidateRefreshToken 验证 refresh token 并返回用户 ID
func (g *Generator) ValidateRefreshToken(tokenString string) (string, error) {
	parsed, err := jwtv5.ParseWithClaims(tokenString, jwtv5.MapClaims{}, func(t *jwtv5.Token) (interface{}, error) {
		if t.Method != jwtv5.SigningMethodHS256 {
			return nil, fmt.Errorf("%w: %v, expected HS256", errors.ErrUnexpectedSigningMethod, t.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsed.Valid {
		return "", errors.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwtv5.MapClaims)
	if !ok {
		return "", errors.ErrInvalidTokenClaims
	}
	if typ, _ := claims["type"].(string); typ != "refresh" {
		return "", errors.ErrInvalidTokenType
	}
	uid, ok := claims[IdentityKey].(string)
	if !ok || uid == "" {
		return "", errors.ErrUserIDNotFound
	}
	return uid, nil
}
