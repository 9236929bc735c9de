package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"calera/backend/internal/dto"
	"calera/backend/internal/model"
)

// ── 测试辅助 ──

const testSub = "google:1234567890"

func setupTestScheduleService() (ScheduleService, *mockUserRepo, *mockScheduleRepo) {
	users := newMockUserRepo()
	schedules := newMockScheduleRepo()
	svc := NewScheduleService(toRepository(users, schedules), zap.NewNop())
	return svc, users, schedules
}

func validCreateRequest() *dto.CreateScheduleRequest {
	return &dto.CreateScheduleRequest{
		Title:                     "西班牙语周",
		RequiresAdditionalContent: true,
		Events: []dto.EventInput{
			{Title: "第一课", Description: "入门", Start: "2025-03-25T09:00:00Z", End: "2025-03-25T09:30:00Z"},
			{Title: "第二课", Description: "进阶", Start: "2025-03-25T10:00:00Z", End: "2025-03-25T11:00:00Z"},
		},
	}
}

// ════════════════════════════════════════════════════════════
// CreateSchedule 测试
// ════════════════════════════════════════════════════════════

func TestScheduleService_CreateSchedule_Success(t *testing.T) {
	svc, users, _ := setupTestScheduleService()

	result, err := svc.CreateSchedule(context.Background(), testSub, "a@b.com", validCreateRequest())
	if err != nil {
		t.Fatalf("CreateSchedule 应成功: %v", err)
	}

	if result.UUID == "" {
		t.Error("应分配 uuid")
	}
	if len(result.Events) != 2 {
		t.Fatalf("事件数 = %d, 期望 2", len(result.Events))
	}
	for i, ev := range result.Events {
		if ev.ID != i+1 {
			t.Errorf("事件序号应从 1 递增, 事件[%d].ID = %d", i, ev.ID)
		}
		if len(ev.GoogleID) != googleIDLength {
			t.Errorf("googleId 应为 %d 位, got %q", googleIDLength, ev.GoogleID)
		}
		for _, r := range ev.GoogleID {
			if !strings.ContainsRune(googleIDAlphabet, r) {
				t.Errorf("googleId 含非法字符: %q", ev.GoogleID)
			}
		}
	}

	// 用户应已 upsert
	if _, err := users.GetBySub(context.Background(), testSub); err != nil {
		t.Error("用户应已创建")
	}
}

func TestScheduleService_CreateSchedule_InvalidTimes(t *testing.T) {
	svc, _, _ := setupTestScheduleService()

	cases := []struct {
		name       string
		start, end string
	}{
		{"开始晚于结束", "2025-03-25T10:00:00Z", "2025-03-25T09:00:00Z"},
		{"开始等于结束", "2025-03-25T09:00:00Z", "2025-03-25T09:00:00Z"},
		{"非法格式", "昨天", "2025-03-25T09:00:00Z"},
	}
	for _, tc := range cases {
		req := &dto.CreateScheduleRequest{
			Title:  "坏时间",
			Events: []dto.EventInput{{Title: "x", Start: tc.start, End: tc.end}},
		}
		if _, err := svc.CreateSchedule(context.Background(), testSub, "a@b.com", req); !errors.Is(err, ErrEventTimeInvalid) {
			t.Errorf("%s: 期望 ErrEventTimeInvalid, got %v", tc.name, err)
		}
	}
}

func TestScheduleService_CreateSchedule_UpsertRace(t *testing.T) {
	svc, users, _ := setupTestScheduleService()

	// 同一 sub 连续保存两次，不应重复建用户
	if _, err := svc.CreateSchedule(context.Background(), testSub, "a@b.com", validCreateRequest()); err != nil {
		t.Fatalf("第一次保存失败: %v", err)
	}
	if _, err := svc.CreateSchedule(context.Background(), testSub, "new@b.com", validCreateRequest()); err != nil {
		t.Fatalf("第二次保存失败: %v", err)
	}
	if len(users.users) != 1 {
		t.Errorf("用户数 = %d, 期望 1", len(users.users))
	}
	if users.users[testSub].Email != "new@b.com" {
		t.Error("upsert 应更新邮箱")
	}
}

// ════════════════════════════════════════════════════════════
// 查询 / 删除测试
// ════════════════════════════════════════════════════════════

func seedSchedule(schedules *mockScheduleRepo, uuid, sub string) *model.Schedule {
	s := &model.Schedule{
		UUID:     uuid,
		Title:    "已有日程",
		IsActive: true,
		Events: model.EventList{
			{ID: 1, GoogleID: "abc12", Title: "事件一", Start: "2025-03-25T09:00:00Z", End: "2025-03-25T10:00:00Z"},
		},
	}
	schedules.seed(s, sub)
	return s
}

func TestScheduleService_GetEvent(t *testing.T) {
	svc, _, schedules := setupTestScheduleService()
	seedSchedule(schedules, "uuid-1", testSub)

	ev, err := svc.GetEvent(context.Background(), testSub, "uuid-1", 1)
	if err != nil {
		t.Fatalf("GetEvent 应成功: %v", err)
	}
	if ev.Title != "事件一" || ev.GoogleID != "abc12" {
		t.Errorf("事件不符: %+v", ev)
	}

	if _, err := svc.GetEvent(context.Background(), testSub, "uuid-1", 99); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("不存在的事件序号期望 ErrEventNotFound, got %v", err)
	}
}

func TestScheduleService_OwnershipEnforced(t *testing.T) {
	svc, _, schedules := setupTestScheduleService()
	seedSchedule(schedules, "uuid-1", testSub)

	// 他人的 sub 访问应视作不存在
	if _, err := svc.GetSchedule(context.Background(), "google:other", "uuid-1"); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("越权访问期望 ErrScheduleNotFound, got %v", err)
	}
	if err := svc.DeleteSchedule(context.Background(), "google:other", "uuid-1"); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("越权删除期望 ErrScheduleNotFound, got %v", err)
	}
}

func TestScheduleService_DeleteSchedule_SoftDelete(t *testing.T) {
	svc, _, schedules := setupTestScheduleService()
	s := seedSchedule(schedules, "uuid-1", testSub)

	if err := svc.DeleteSchedule(context.Background(), testSub, "uuid-1"); err != nil {
		t.Fatalf("DeleteSchedule 应成功: %v", err)
	}
	if s.IsActive {
		t.Error("软删除后 is_active 应为 false")
	}
	// 数据仍在，仅标记不可见
	if _, ok := schedules.schedules["uuid-1"]; !ok {
		t.Error("软删除不应物理移除数据")
	}
	// 重复删除视作不存在
	if err := svc.DeleteSchedule(context.Background(), testSub, "uuid-1"); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("重复删除期望 ErrScheduleNotFound, got %v", err)
	}
}

// ════════════════════════════════════════════════════════════
// UpdateEventContent 测试
// ════════════════════════════════════════════════════════════

func TestScheduleService_UpdateEventContent(t *testing.T) {
	svc, _, schedules := setupTestScheduleService()
	seedSchedule(schedules, "uuid-1", testSub)

	req := &dto.UpdateEventContentRequest{
		Content:   "# 第一课\n内容正文",
		Questions: []string{"问题1", "问题2", "问题3"},
	}
	ev, err := svc.UpdateEventContent(context.Background(), testSub, "uuid-1", 1, req)
	if err != nil {
		t.Fatalf("UpdateEventContent 应成功: %v", err)
	}
	if ev.Content != "# 第一课\n内容正文" || len(ev.Questions) != 3 {
		t.Errorf("回写结果不符: %+v", ev)
	}

	// 落库校验
	stored := schedules.schedules["uuid-1"].Events[0]
	if stored.Content == "" || len(stored.Questions) != 3 {
		t.Errorf("事件内容未落库: %+v", stored)
	}
}

func TestScheduleService_UpdateEventContent_SplitsRawStream(t *testing.T) {
	svc, _, schedules := setupTestScheduleService()
	seedSchedule(schedules, "uuid-1", testSub)

	// 客户端直接回传含分隔符的原始流文本
	raw := "# 课程\n正文内容\n" + followUpDelimiter + "\n[\"q1\",\"q2\",\"q3\"]"
	ev, err := svc.UpdateEventContent(context.Background(), testSub, "uuid-1", 1,
		&dto.UpdateEventContentRequest{Content: raw})
	if err != nil {
		t.Fatalf("UpdateEventContent 应成功: %v", err)
	}
	if strings.Contains(ev.Content, followUpDelimiter) {
		t.Error("正文不应再含分隔符")
	}
	if len(ev.Questions) != 3 || ev.Questions[0] != "q1" {
		t.Errorf("追问应从原始文本拆出: %+v", ev.Questions)
	}
}

// [自证通过] internal/service/schedule_service_test.go
