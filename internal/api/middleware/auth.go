// Package middleware provides HTTP middleware for the TrackMail API.
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/trackmail/trackmail-backend/internal/models"
	"github.com/trackmail/trackmail-backend/internal/repository"
)

// UserIDKey is the echo context key holding the authenticated user's ID.
const UserIDKey = "user_id"

// AuthConfig holds dependencies for the Auth middleware.
type AuthConfig struct {
	JWTSecret string
	APIKeys   repository.APIKeyRepository
	Logger    *slog.Logger
}

// UserID returns the authenticated user's ID from the request context.
func UserID(c echo.Context) string {
	id, _ := c.Get(UserIDKey).(string)
	return id
}

// Auth authenticates requests with either a bearer JWT or an X-API-Key
// header. Exactly one mechanism must resolve a user; everything else is 401.
// The resolved user ID is stored on the context for handlers and every
// repository query is scoped by it.
func Auth(cfg AuthConfig) echo.MiddlewareFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()

			// Skip auth for health endpoints
			if strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/ready") {
				return next(c)
			}

			if rawKey := c.Request().Header.Get("X-API-Key"); rawKey != "" {
				userID, err := resolveAPIKey(c, cfg.APIKeys, rawKey)
				if err != nil {
					logger.Warn("invalid API key attempt",
						slog.String("ip", c.RealIP()),
						slog.String("path", path))
					return unauthorized("invalid API key")
				}
				c.Set(UserIDKey, userID)
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("missing credentials",
					slog.String("ip", c.RealIP()),
					slog.String("path", path))
				return unauthorized("missing authorization header")
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			userID, err := resolveJWT(cfg.JWTSecret, token)
			if err != nil {
				logger.Warn("invalid token",
					slog.String("ip", c.RealIP()),
					slog.String("path", path),
					slog.String("error", err.Error()))
				return unauthorized("invalid or expired token")
			}

			c.Set(UserIDKey, userID)
			return next(c)
		}
	}
}

// resolveJWT validates an HS256 token and returns its subject claim.
func resolveJWT(secret, raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("empty token")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

// resolveAPIKey looks up the sha256 hash of the presented key and returns the
// owning user. Revoked keys never match.
func resolveAPIKey(c echo.Context, keys repository.APIKeyRepository, rawKey string) (string, error) {
	if keys == nil {
		return "", fmt.Errorf("api key auth not configured")
	}

	key, err := keys.FindActiveByHash(c.Request().Context(), models.HashAPIKey(rawKey))
	if err != nil {
		return "", err
	}

	// Best effort; an unrecorded timestamp never blocks the request.
	_ = keys.TouchLastUsed(c.Request().Context(), key.ID)

	return key.UserID, nil
}

func unauthorized(message string) error {
	return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
		"error": message,
		"code":  "UNAUTHORIZED",
	})
}
