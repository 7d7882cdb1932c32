package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/verdantiq/labelproof-backend/internal/pkg/ctxutil"
	pkgerr "github.com/verdantiq/labelproof-backend/internal/pkg/errors"
)

const testSecret = "unit-test-secret"

func mintToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestSetContextFromToken_ValidToken(t *testing.T) {
	svc := NewAuthService(testLogger(t), testSecret)
	userID := uuid.New()
	token := mintToken(t, testSecret, jwt.MapClaims{
		"sub":   userID.String(),
		"email": "grower@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	ctx, err := svc.SetContextFromToken(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID != userID || rd.Email != "grower@example.com" {
		t.Fatalf("request data not set: %+v", rd)
	}
}

func TestSetContextFromToken_WrongSecret(t *testing.T) {
	svc := NewAuthService(testLogger(t), testSecret)
	token := mintToken(t, "some-other-secret", jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := svc.SetContextFromToken(context.Background(), token)
	if !errors.Is(err, pkgerr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSetContextFromToken_ExpiredToken(t *testing.T) {
	svc := NewAuthService(testLogger(t), testSecret)
	token := mintToken(t, testSecret, jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := svc.SetContextFromToken(context.Background(), token)
	if !errors.Is(err, pkgerr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSetContextFromToken_NonUUIDSubject(t *testing.T) {
	svc := NewAuthService(testLogger(t), testSecret)
	token := mintToken(t, testSecret, jwt.MapClaims{
		"sub": "not-a-uuid",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := svc.SetContextFromToken(context.Background(), token)
	if !errors.Is(err, pkgerr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSetContextFromToken_Garbage(t *testing.T) {
	svc := NewAuthService(testLogger(t), testSecret)
	_, err := svc.SetContextFromToken(context.Background(), "not.a.token")
	if !errors.Is(err, pkgerr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
