package serverRouter

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"VirtualTourServer/config"
	"VirtualTourServer/middleware"
	"VirtualTourServer/views"
)

func RouterInit(r *gin.Engine, cfg *config.Config, h *views.Handler) {
	// 存活探针
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Virtual Tours API is running"})
	})

	// 已解压的漫游资源和封面图直接走静态文件服务
	r.Static("/tours", cfg.ToursDir)
	r.Static("/covers", cfg.CoversDir)

	api := r.Group("/api/v1")
	{
		// tours接口在源实现里未强制登录，保持一致
		tours := api.Group("/tours")
		{
			tours.GET("", h.ListTours)
			tours.POST("", h.UploadTour)
			tours.PUT("/:id", h.UpdateTour)
			tours.DELETE("/:id", h.DeleteTour)
			tours.POST("/:id/cover", h.UpdateCover)
			tours.GET("/:id/qrcode", h.TourQRCode)
		}

		auth := api.Group("/auth")
		{
			auth.POST("/login", h.Login)
			auth.POST("/logout", h.Logout)
			// 只有/me需要有效令牌
			auth.GET("/me", middleware.AuthRequired(cfg), h.Me)
		}
	}
}
