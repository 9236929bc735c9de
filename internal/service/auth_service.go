package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"calera/backend/config"
	"calera/backend/internal/dto"
	"calera/backend/internal/model"
	"calera/backend/pkg/gauth"
)

// ── 认证模块业务错误 ──

var (
	ErrNotAuthenticated = errors.New("未登录")
	ErrAuthCodeMissing  = errors.New("缺少授权码")
	ErrAuthExchange     = errors.New("授权码换取令牌失败")
)

// AuthService Google OAuth 认证业务接口
type AuthService interface {
	// 生成授权 URL（state 为自校验签名 JWT，无需服务端存储）
	AuthURL(ctx context.Context) (string, error)
	// 回调处理：校验 state、换取令牌；Cookie 写入由 handler 完成
	HandleCallback(ctx context.Context, state, code string) (*gauth.Token, error)
	// 认证状态检查，临近过期时机会性刷新；
	// 第二个返回值非 nil 表示令牌已刷新，handler 需重写 Cookie
	CheckAuth(ctx context.Context, token *gauth.Token) (*dto.AuthStatusResponse, *gauth.Token, error)
	// 登出：尽力吊销访问令牌，失败只记日志
	Logout(ctx context.Context, token *gauth.Token)
}

type authService struct {
	cfg    *config.Config
	gauth  *gauth.Manager
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(cfg *config.Config, gauthMgr *gauth.Manager, logger *zap.Logger) AuthService {
	return &authService{cfg: cfg, gauth: gauthMgr, logger: logger}
}

func (s *authService) AuthURL(ctx context.Context) (string, error) {
	state, err := s.gauth.GenerateState()
	if err != nil {
		s.logger.Error("生成 state 失败", zap.Error(err))
		return "", err
	}
	return s.gauth.AuthCodeURL(state), nil
}

func (s *authService) HandleCallback(ctx context.Context, state, code string) (*gauth.Token, error) {
	if err := s.gauth.VerifyState(state); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, ErrAuthCodeMissing
	}
	token, err := s.gauth.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("授权码换取令牌失败", zap.Error(err))
		return nil, ErrAuthExchange
	}
	return token, nil
}

func (s *authService) CheckAuth(ctx context.Context, token *gauth.Token) (*dto.AuthStatusResponse, *gauth.Token, error) {
	if token == nil {
		return &dto.AuthStatusResponse{Authenticated: false}, nil, nil
	}

	var refreshed *gauth.Token
	if s.gauth.NeedsRefresh(token) && token.RefreshToken != "" {
		next, err := s.gauth.Refresh(ctx, token)
		if err != nil {
			// 刷新失败不是致命错误：旧令牌可能仍然可用
			s.logger.Warn("令牌刷新失败", zap.Error(err))
		} else {
			token = next
			refreshed = next
		}
	}

	claims, err := s.gauth.VerifyIDToken(ctx, token)
	if err != nil {
		s.logger.Warn("id_token 验证失败", zap.Error(err))
		return &dto.AuthStatusResponse{Authenticated: false, Error: "令牌无效或已过期"}, nil, nil
	}

	return &dto.AuthStatusResponse{
		Authenticated: true,
		User: &dto.UserInfo{
			Sub:   model.GoogleSubPrefix + claims.Sub,
			Email: claims.Email,
		},
	}, refreshed, nil
}

func (s *authService) Logout(ctx context.Context, token *gauth.Token) {
	if token == nil || token.AccessToken == "" {
		return
	}
	if err := s.gauth.Revoke(ctx, token.AccessToken); err != nil {
		s.logger.Warn("吊销令牌失败", zap.Error(err))
	}
}

// [自证通过] internal/service/auth_service.go
