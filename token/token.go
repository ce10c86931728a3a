package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid access token")

// CreateAccessToken 用对称密钥签发HS256令牌，sub放用户名，exp放过期时间
func CreateAccessToken(secret, username string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"exp": jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseAccessToken 校验签名和有效期，返回令牌内嵌的用户名
// 令牌有效性只取决于签名和exp，服务端不持有任何会话表
func ParseAccessToken(secret, tokenString string) (string, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	username, err := parsed.Claims.GetSubject()
	if err != nil || username == "" {
		return "", ErrInvalidToken
	}
	return username, nil
}
