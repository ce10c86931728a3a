package views

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"VirtualTourServer/middleware"
	"VirtualTourServer/token"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 登录处理
// 账号密码与配置里的单一凭证精确比对，通过后签发令牌写入HttpOnly cookie
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	if req.Username != h.Cfg.AuthUsername || req.Password != h.Cfg.AuthPassword {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Incorrect username or password"})
		return
	}

	ttl := time.Duration(h.Cfg.TokenExpireMinutes) * time.Minute
	accessToken, err := token.CreateAccessToken(h.Cfg.SecretKey, req.Username, ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	// cookie不带Max-Age，有效期由令牌内嵌的exp决定；开发环境不加Secure标记
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, accessToken, 0, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged in successfully"})
}

// Logout 登出只清cookie，没有服务端吊销表，已签发的令牌到exp前仍然有效
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me 返回当前令牌对应的用户名（用户名由AuthRequired校验后放入上下文）
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"username": c.GetString(middleware.UsernameKey)})
}
