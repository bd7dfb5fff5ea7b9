package auth_test

import (
	"errors"
	"testing"
	"time"

	authsvc "github.com/ivankudzin/chatwarden/internal/services/auth"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	manager := authsvc.NewJWTManager("test-secret", time.Hour)

	token, expiresAt, err := manager.GenerateAccessToken("ops", []int64{-100, -200})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected expiry in the future, got %v", expiresAt)
	}

	claims, err := manager.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Operator != "ops" || claims.Role != authsvc.RoleAdmin || claims.SID == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.AllowsChat(-200) || claims.AllowsChat(-300) {
		t.Fatalf("unexpected chat scope: %v", claims.Chats)
	}
}

func TestUnscopedTokenAllowsEveryChat(t *testing.T) {
	manager := authsvc.NewJWTManager("test-secret", time.Hour)

	token, _, err := manager.GenerateAccessToken("ops", nil)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	claims, err := manager.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if !claims.AllowsChat(-12345) {
		t.Fatalf("expected unscoped token to allow any chat")
	}
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	issuer := authsvc.NewJWTManager("other-secret", time.Hour)
	token, _, err := issuer.GenerateAccessToken("ops", nil)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	manager := authsvc.NewJWTManager("test-secret", time.Hour)
	if _, err := manager.ParseAccessToken(token); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for foreign secret, got %v", err)
	}
	if _, err := manager.ParseAccessToken(""); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for empty token, got %v", err)
	}

	shortLived := authsvc.NewJWTManager("test-secret", time.Nanosecond)
	expired, _, err := shortLived.GenerateAccessToken("ops", nil)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := manager.ParseAccessToken(expired); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for expired token, got %v", err)
	}
}

func TestGenerateRejectsEmptyOperator(t *testing.T) {
	manager := authsvc.NewJWTManager("test-secret", time.Hour)
	if _, _, err := manager.GenerateAccessToken("  ", nil); !errors.Is(err, authsvc.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
