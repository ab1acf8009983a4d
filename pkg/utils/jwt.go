// Package utils 提供通用工具函数
package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrAppIDMismatch = errors.New("app id mismatch")
)

// DefaultLeeway 客户端与服务端时钟允许的偏差
const DefaultLeeway = 30 * time.Second

// AppClaims 客户端 X-App-Token 声明结构
type AppClaims struct {
	AppID string `json:"app_id,omitempty"`
	jwt.RegisteredClaims
}

// AppTokenManager 负责签发与校验客户端应用令牌（HS256）
type AppTokenManager struct {
	secret []byte
	leeway time.Duration
}

// NewAppTokenManager 创建应用令牌管理器
func NewAppTokenManager(secret string, leeway time.Duration) *AppTokenManager {
	if leeway <= 0 {
		leeway = DefaultLeeway
	}
	return &AppTokenManager{
		secret: []byte(secret),
		leeway: leeway,
	}
}

// GenerateToken 为指定应用签发令牌
func (m *AppTokenManager) GenerateToken(appID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AppClaims{
		AppID: appID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   appID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// VerifyToken 校验令牌签名、时效，以及声明中的应用标识与请求头是否一致
func (m *AppTokenManager) VerifyToken(appID, tokenString string) (*AppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(m.leeway),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*AppClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	// 声明中未携带应用标识时只校验签名与时效
	claimed := claims.AppID
	if claimed == "" {
		claimed = claims.Subject
	}
	if claimed != "" && !strings.EqualFold(strings.TrimSpace(claimed), strings.TrimSpace(appID)) {
		return nil, ErrAppIDMismatch
	}
	return claims, nil
}
