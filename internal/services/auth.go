package services

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/verdantiq/labelproof-backend/internal/pkg/ctxutil"
	pkgerr "github.com/verdantiq/labelproof-backend/internal/pkg/errors"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
)

// AuthService verifies bearer tokens minted by the identity provider and
// puts the caller's identity on the request context. Session management
// itself lives outside this service.
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	log       *logger.Logger
	jwtSecret []byte
}

func NewAuthService(baseLog *logger.Logger, jwtSecret string) AuthService {
	return &authService{
		log:       baseLog.With("service", "AuthService"),
		jwtSecret: []byte(jwtSecret),
	}
}

func (s *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return ctx, fmt.Errorf("%w: invalid token", pkgerr.ErrUnauthorized)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx, fmt.Errorf("%w: malformed claims", pkgerr.ErrUnauthorized)
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return ctx, fmt.Errorf("%w: subject is not a user id", pkgerr.ErrUnauthorized)
	}
	email, _ := claims["email"].(string)
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: userID, Email: email}), nil
}
