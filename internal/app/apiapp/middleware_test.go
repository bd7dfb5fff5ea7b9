package apiapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/chatwarden/internal/config"
	"github.com/ivankudzin/chatwarden/internal/domain/model"
	authsvc "github.com/ivankudzin/chatwarden/internal/services/auth"
	"github.com/ivankudzin/chatwarden/internal/transport/http/dto"
)

type stubSettings struct {
	quorum int
}

func (s *stubSettings) Resolve(_ context.Context, chatID int64) (model.ChatModerationConfig, error) {
	return model.ChatModerationConfig{ChatID: chatID, Quorum: s.quorum, BotCanBan: true}, nil
}

func (s *stubSettings) SetQuorum(_ context.Context, _ int64, raw int64) (int, error) {
	s.quorum = int(raw)
	return s.quorum, nil
}

func newTestApp(t *testing.T, jwt *authsvc.JWTManager, settings *stubSettings) http.Handler {
	t.Helper()

	app, err := New(config.Default(), Dependencies{Tokens: jwt, Settings: settings}, zap.NewNop())
	if err != nil {
		t.Fatalf("create api app: %v", err)
	}
	return app.Handler()
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	handler := newTestApp(t, authsvc.NewJWTManager("secret", time.Hour), &stubSettings{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/chats/-100/voteban", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareRejectsForeignToken(t *testing.T) {
	handler := newTestApp(t, authsvc.NewJWTManager("secret", time.Hour), &stubSettings{})
	token, _, err := authsvc.NewJWTManager("other", time.Hour).GenerateAccessToken("ops", nil)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/chats/-100/voteban", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestSettingsRoundTripThroughRouter(t *testing.T) {
	jwt := authsvc.NewJWTManager("secret", time.Hour)
	settings := &stubSettings{}
	handler := newTestApp(t, jwt, settings)

	token, _, err := jwt.GenerateAccessToken("ops", []int64{-100})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/v1/chats/-100/voteban", strings.NewReader(`{"quorum":4}`))
	req.Header.Set("Authorization", "bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}
	var resp dto.VotebanSettingsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Quorum != 4 || !resp.Enabled {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer abc", want: "abc", ok: true},
		{header: "bearer abc", want: "abc", ok: true},
		{header: "Basic abc", ok: false},
		{header: "Bearer ", ok: false},
		{header: "", ok: false},
	}

	for _, tt := range tests {
		got, ok := extractBearerToken(tt.header)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("header %q: got (%q, %v) want (%q, %v)", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}
