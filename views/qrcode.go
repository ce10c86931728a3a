package views

import (
	// 点导入middleware包，直接调用包内函数（如Logger）
	. "VirtualTourServer/middleware"

	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode" // 二维码生成依赖
	"go.uber.org/zap"
)

// TourQRCode 生成指向漫游入口页的分享二维码（PNG）
// 核心逻辑：清洗ID → 确认漫游有效 → 拼接完整入口URL → 生成二维码图片
func (h *Handler) TourQRCode(c *gin.Context) {
	tourID, err := h.FM.SanitizeID(c.Param("id"))
	if err != nil {
		h.fail(c, "tour_qrcode", err)
		return
	}

	tour, err := h.FM.GetTour(tourID)
	if err != nil {
		h.fail(c, "tour_qrcode", err)
		return
	}

	// 二维码边长像素，限制在64-1024之间
	size := 256
	if s, err := strconv.Atoi(c.DefaultQuery("size", "256")); err == nil && s >= 64 && s <= 1024 {
		size = s
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	tourURL := scheme + "://" + c.Request.Host + tour.URL

	png, err := qrcode.Encode(tourURL, qrcode.Medium, size)
	if err != nil {
		Logger.Error("生成二维码失败", zap.String("tour_id", tourID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, TourResponse{Success: false, Message: "Internal server error"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
