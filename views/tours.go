package views

import (
	// 点导入middleware包，直接调用包内函数（如Logger）
	. "VirtualTourServer/middleware"

	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"VirtualTourServer/config"
	"VirtualTourServer/filemanager"
)

// TourResponse 变更类接口的统一响应壳，失败时也用同一个壳
type TourResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    *filemanager.Tour `json:"data,omitempty"`
}

// Handler 路由层：校验必填参数、调文件管理器、把结果翻译成HTTP状态码和JSON
type Handler struct {
	Cfg *config.Config
	FM  *filemanager.FileManager
}

func NewHandler(cfg *config.Config, fm *filemanager.FileManager) *Handler {
	return &Handler{Cfg: cfg, FM: fm}
}

// fail 按错误分类回包：校验/冲突→400，不存在→404，其余→500只回generic信息并留服务端日志
func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	switch filemanager.KindOf(err) {
	case filemanager.KindValidation, filemanager.KindConflict:
		status = http.StatusBadRequest
	case filemanager.KindNotFound:
		status = http.StatusNotFound
	default:
		Logger.Error("操作执行失败",
			zap.String("op", op),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	c.JSON(status, TourResponse{Success: false, Message: filemanager.MessageOf(err)})
}

// ListTours 返回全部有效漫游，按ID字典序输出（便于测试复现，源实现不保证顺序）
func (h *Handler) ListTours(c *gin.Context) {
	tours, err := h.FM.ListTours()
	if err != nil {
		h.fail(c, "list_tours", err)
		return
	}
	c.JSON(http.StatusOK, tours)
}

// UploadTour 新建漫游
// 核心逻辑：校验三个必填multipart字段 → 清洗ID → 存封面 → 压缩包落盘（已占用报冲突）
// 封面保存成功后压缩包落盘失败会留下孤儿封面，与源实现保持一致（见DESIGN.md）
func (h *Handler) UploadTour(c *gin.Context) {
	rawID := c.PostForm("tourId")
	if rawID == "" {
		c.JSON(http.StatusBadRequest, TourResponse{Success: false, Message: "tourId is required"})
		return
	}
	zipFile, err := c.FormFile("tourZip")
	if err != nil {
		c.JSON(http.StatusBadRequest, TourResponse{Success: false, Message: "tourZip is required"})
		return
	}
	coverFile, err := c.FormFile("coverPhoto")
	if err != nil {
		c.JSON(http.StatusBadRequest, TourResponse{Success: false, Message: "coverPhoto is required"})
		return
	}

	tourID, err := h.FM.SanitizeID(rawID)
	if err != nil {
		h.fail(c, "upload_tour", err)
		return
	}

	if _, err := h.FM.SaveCover(tourID, coverFile); err != nil {
		h.fail(c, "upload_tour", err)
		return
	}
	if err := h.FM.SaveTour(tourID, zipFile, false); err != nil {
		h.fail(c, "upload_tour", err)
		return
	}

	tour, err := h.FM.GetTour(tourID)
	if err != nil {
		h.fail(c, "upload_tour", err)
		return
	}
	c.JSON(http.StatusOK, TourResponse{Success: true, Message: "Tour uploaded successfully", Data: tour})
}

// UpdateTour 部分更新：改名、换压缩包（允许覆盖）、换封面，三项都可选
// 返回以当前（可能是新）ID刷新后的记录
func (h *Handler) UpdateTour(c *gin.Context) {
	tourID, err := h.FM.SanitizeID(c.Param("id"))
	if err != nil {
		h.fail(c, "update_tour", err)
		return
	}

	if rawNewID := c.PostForm("newTourId"); rawNewID != "" {
		newID, err := h.FM.SanitizeID(rawNewID)
		if err != nil {
			h.fail(c, "update_tour", err)
			return
		}
		if newID != tourID {
			if err := h.FM.RenameTour(tourID, newID); err != nil {
				h.fail(c, "update_tour", err)
				return
			}
			tourID = newID
		}
	}

	if zipFile, err := c.FormFile("tourZip"); err == nil {
		if err := h.FM.SaveTour(tourID, zipFile, true); err != nil {
			h.fail(c, "update_tour", err)
			return
		}
	}

	if coverFile, err := c.FormFile("coverPhoto"); err == nil {
		if _, err := h.FM.SaveCover(tourID, coverFile); err != nil {
			h.fail(c, "update_tour", err)
			return
		}
	}

	tour, err := h.FM.GetTour(tourID)
	if err != nil {
		h.fail(c, "update_tour", err)
		return
	}
	c.JSON(http.StatusOK, TourResponse{Success: true, Message: "Tour updated successfully", Data: tour})
}

// DeleteTour 删除漫游目录和封面，目标不存在也返回成功（幂等）
func (h *Handler) DeleteTour(c *gin.Context) {
	tourID, err := h.FM.SanitizeID(c.Param("id"))
	if err != nil {
		h.fail(c, "delete_tour", err)
		return
	}

	if err := h.FM.DeleteTour(tourID); err != nil {
		h.fail(c, "delete_tour", err)
		return
	}
	c.JSON(http.StatusOK, TourResponse{Success: true, Message: "Tour " + tourID + " deleted successfully"})
}

// UpdateCover 只换封面图，不校验对应漫游是否存在（与源实现一致）
func (h *Handler) UpdateCover(c *gin.Context) {
	tourID, err := h.FM.SanitizeID(c.Param("id"))
	if err != nil {
		h.fail(c, "update_cover", err)
		return
	}

	coverFile, err := c.FormFile("coverPhoto")
	if err != nil {
		c.JSON(http.StatusBadRequest, TourResponse{Success: false, Message: "coverPhoto is required"})
		return
	}

	if _, err := h.FM.SaveCover(tourID, coverFile); err != nil {
		h.fail(c, "update_cover", err)
		return
	}
	c.JSON(http.StatusOK, TourResponse{Success: true, Message: "Cover updated"})
}
