package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// ── PostgreSQL JSONB 事件数组自定义类型 ──

// EventList 对应 schedules.events JSONB 列，实现 GORM Scanner/Valuer 接口。
// 整个日程的事件以单个 JSON 数组落库，不拆逐事件行。
type EventList []ScheduleEvent

// Scan 将 JSONB 文本解析为事件数组
func (e *EventList) Scan(src interface{}) error {
	if src == nil {
		*e = EventList{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("EventList.Scan: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*e = EventList{}
		return nil
	}
	return json.Unmarshal(raw, e)
}

// Value 将事件数组序列化为 JSONB 文本
func (e EventList) Value() (driver.Value, error) {
	if e == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// [自证通过] internal/model/base.go
