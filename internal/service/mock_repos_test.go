package service

import (
	"context"

	"gorm.io/gorm"

	"calera/backend/internal/model"
	"calera/backend/internal/repository"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users  map[string]*model.User // key: sub
	nextID int64
	err    error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User), nextID: 1}
}

func (m *mockUserRepo) UpsertBySub(_ context.Context, user *model.User) error {
	if m.err != nil {
		return m.err
	}
	if existing, ok := m.users[user.Sub]; ok {
		existing.Email = user.Email
		user.ID = existing.ID
		return nil
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.Sub] = user
	return nil
}

func (m *mockUserRepo) GetBySub(_ context.Context, sub string) (*model.User, error) {
	if u, ok := m.users[sub]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock ScheduleRepository ──

type mockScheduleRepo struct {
	schedules map[string]*model.Schedule // key: uuid
	subs      map[string]string          // uuid → sub（归属）
	err       error
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{
		schedules: make(map[string]*model.Schedule),
		subs:      make(map[string]string),
	}
}

func (m *mockScheduleRepo) Create(_ context.Context, schedule *model.Schedule) error {
	if m.err != nil {
		return m.err
	}
	m.schedules[schedule.UUID] = schedule
	return nil
}

// seed 绑定归属关系（测试辅助）
func (m *mockScheduleRepo) seed(schedule *model.Schedule, sub string) {
	m.schedules[schedule.UUID] = schedule
	m.subs[schedule.UUID] = sub
}

func (m *mockScheduleRepo) ListActiveBySub(_ context.Context, sub string) ([]model.Schedule, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []model.Schedule
	for uuid, s := range m.schedules {
		if s.IsActive && m.subs[uuid] == sub {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockScheduleRepo) GetByUUIDAndSub(_ context.Context, uuid, sub string) (*model.Schedule, error) {
	s, ok := m.schedules[uuid]
	if !ok || !s.IsActive || m.subs[uuid] != sub {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (m *mockScheduleRepo) SoftDelete(_ context.Context, uuid, sub string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	s, ok := m.schedules[uuid]
	if !ok || !s.IsActive || m.subs[uuid] != sub {
		return false, nil
	}
	s.IsActive = false
	return true, nil
}

func (m *mockScheduleRepo) UpdateEvents(_ context.Context, uuid string, events model.EventList) error {
	if m.err != nil {
		return m.err
	}
	s, ok := m.schedules[uuid]
	if !ok || !s.IsActive {
		return gorm.ErrRecordNotFound
	}
	s.Events = events
	return nil
}

// toRepository 组装 Repository 聚合（测试辅助）
func toRepository(users *mockUserRepo, schedules *mockScheduleRepo) *repository.Repository {
	return &repository.Repository{User: users, Schedule: schedules}
}

// [自证通过] internal/service/mock_repos_test.go
