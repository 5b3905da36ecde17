package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cody-community/cody-backend/pkg/auth"
	"github.com/cody-community/cody-backend/pkg/config"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "cody", ExpirationMinutes: 10}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, guildID string) string {
	t.Helper()
	token, err := auth.MintServiceToken(cfg, time.Now(), auth.ServiceTokenPayload{Service: "gateway-bot", GuildID: guildID})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestServiceAuthRejectsMissingToken(t *testing.T) {
	handler := ServiceAuth(testJWT, "", nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestServiceAuthRejectsInvalidToken(t *testing.T) {
	handler := ServiceAuth(testJWT, "", nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestServiceAuthRejectsForeignSecret(t *testing.T) {
	other := testJWT
	other.Secret = "other"
	token := mintTestToken(t, other, "")
	handler := ServiceAuth(testJWT, "", nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestServiceAuthRejectsOtherGuild(t *testing.T) {
	token := mintTestToken(t, testJWT, "guild-b")
	handler := ServiceAuth(testJWT, "guild-a", nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestServiceAuthAllowsValidToken(t *testing.T) {
	token := mintTestToken(t, testJWT, "guild-a")

	var service, guild string
	handler := ServiceAuth(testJWT, "guild-a", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		service = ServiceFromContext(r.Context())
		guild = GuildIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if service != "gateway-bot" {
		t.Fatalf("expected service in context, got %q", service)
	}
	if guild != "guild-a" {
		t.Fatalf("expected guild in context, got %q", guild)
	}
}
