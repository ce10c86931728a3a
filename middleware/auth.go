package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"VirtualTourServer/config"
	"VirtualTourServer/token"
)

// AccessTokenCookie 访问令牌的cookie名
const AccessTokenCookie = "access_token"

// UsernameKey 校验通过后用户名放入gin上下文的键
const UsernameKey = "username"

// AuthRequired 登录校验中间件
// cookie缺失、令牌伪造/过期、用户名不匹配，一律返回同样的401，不区分哪一步失败
func AuthRequired(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		unauthorized := func() {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Could not validate credentials"})
			c.Abort()
		}

		tokenString, err := c.Cookie(AccessTokenCookie)
		if err != nil || tokenString == "" {
			unauthorized()
			return
		}

		username, err := token.ParseAccessToken(cfg.SecretKey, tokenString)
		if err != nil || username != cfg.AuthUsername {
			unauthorized()
			return
		}

		c.Set(UsernameKey, username)
		c.Next()
	}
}
