package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"loan-servicing-backend/internal/domain/authz"
)

const actorKey = "actor"

// Claims carries the caller identity; Subject is the actor id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth verifies an HS256 bearer token and stores the resulting authz.Actor on the context.
func JWTAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(echo.HeaderAuthorization)
			tok, ok := strings.CutPrefix(raw, "Bearer ")
			if !ok || strings.TrimSpace(tok) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}
			actor, err := ParseToken(secret, strings.TrimSpace(tok))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}
			c.Set(actorKey, actor)
			return next(c)
		}
	}
}

func ParseToken(secret []byte, raw string) (authz.Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return authz.Actor{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return authz.Actor{}, errors.New("invalid token")
	}
	a := authz.Actor{ID: claims.Subject, Role: authz.Role(claims.Role)}
	if err := checkActor(a); err != nil {
		return authz.Actor{}, err
	}
	return a, nil
}

func checkActor(a authz.Actor) error {
	switch {
	case a.ID == "" || !a.Role.Valid():
		return errors.New("token lacks subject or role")
	case len(a.ID) > authz.MaxActorIDLength:
		return fmt.Errorf("token subject longer than %d bytes", authz.MaxActorIDLength)
	}
	return nil
}

// IssueToken signs a token for a. cmd/token calls it for operators.
func IssueToken(secret []byte, a authz.Actor, ttl time.Duration, now time.Time) (string, error) {
	if err := checkActor(a); err != nil {
		return "", err
	}
	claims := Claims{
		Role: string(a.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ActorFrom returns the actor stored by JWTAuth.
func ActorFrom(c echo.Context) (authz.Actor, bool) {
	a, ok := c.Get(actorKey).(authz.Actor)
	return a, ok
}

// WithActor is the test hook for handlers mounted without JWTAuth.
func WithActor(c echo.Context, a authz.Actor) { c.Set(actorKey, a) }
