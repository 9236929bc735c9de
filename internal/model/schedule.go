package model

// Schedule 日程表 — 对应 schedules
// 事件整体存入 events JSONB；删除为软删除（is_active = FALSE）
type Schedule struct {
	ID                         int64     `gorm:"primaryKey;autoIncrement"   json:"-"`
	UUID                       string    `gorm:"type:uuid;not null;unique"  json:"uuid"`
	UserID                     int64     `gorm:"not null"                   json:"-"`
	Title                      string    `gorm:"type:varchar(255);not null" json:"title"`
	RequiresAdditionalContent  bool      `gorm:"not null;default:false"     json:"requiresAdditionalContent"`
	Events                     EventList `gorm:"type:jsonb;not null"        json:"events"`
	IsActive                   bool      `gorm:"not null;default:true"      json:"-"`
	BaseModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:ID" json:"-"`
}

// TableName 指定表名
func (Schedule) TableName() string { return "schedules" }

// ScheduleEvent 日程内单个事件（JSONB 数组元素，非独立表）
//
//   - ID: 日程内 1 起始的位置序号
//   - GoogleID: 5 位 base32hex 随机标识，与 Google Calendar 条目关联
//   - Content / Questions: 按需二次生成的课程正文与追问，初始为空
type ScheduleEvent struct {
	ID          int      `json:"id"`
	GoogleID    string   `json:"googleId,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content,omitempty"`
	Questions   []string `json:"questions,omitempty"`
	Start       string   `json:"start"` // RFC3339
	End         string   `json:"end"`   // RFC3339
}

// FindEvent 按序号查找事件，未命中返回 -1
func (s *Schedule) FindEvent(eventID int) int {
	for i := range s.Events {
		if s.Events[i].ID == eventID {
			return i
		}
	}
	return -1
}

// [自证通过] internal/model/schedule.go
