// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	"github.com/amirphl/Kuruma-no-Ichiba/app/services"
	businessflow "github.com/amirphl/Kuruma-no-Ichiba/business_flow"
	"github.com/gofiber/fiber/v3"
)

const (
	actorLocalKey       = "actor"
	tokenIDLocalKey     = "token_id"
	accessTokenLocalKey = "access_token"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

type authFailure struct {
	code    string
	message string
}

// Authenticate requires a valid access token and stores the caller as a businessflow.Actor
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, claims, failure := m.claimsFromHeader(c.Get("Authorization"))
		if failure != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: failure.message,
				Error:   dto.ErrorDetail{Code: failure.code},
			})
		}

		storeClaims(c, token, claims)
		return c.Next()
	}
}

// OptionalAuth stores the caller when a valid token is present and lets anonymous requests through.
// A malformed or expired token is treated as no token.
func (m *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return c.Next()
		}
		if token, claims, failure := m.claimsFromHeader(c.Get("Authorization")); failure == nil {
			storeClaims(c, token, claims)
		}
		return c.Next()
	}
}

func (m *AuthMiddleware) claimsFromHeader(authHeader string) (string, *services.TokenClaims, *authFailure) {
	if authHeader == "" {
		return "", nil, &authFailure{"MISSING_AUTHORIZATION_HEADER", "Authorization header is required"}
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", nil, &authFailure{"INVALID_AUTHORIZATION_FORMAT", "Invalid authorization header format. Expected 'Bearer <token>'"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", nil, &authFailure{"MISSING_ACCESS_TOKEN", "Access token is required"}
	}

	claims, err := m.tokenService.ValidateToken(token)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTokenExpired):
			return "", nil, &authFailure{"TOKEN_EXPIRED", "Access token has expired"}
		case errors.Is(err, services.ErrTokenRevoked):
			return "", nil, &authFailure{"TOKEN_REVOKED", "Access token has been revoked"}
		case errors.Is(err, services.ErrTokenInvalid):
			return "", nil, &authFailure{"TOKEN_INVALID", "Invalid access token"}
		default:
			return "", nil, &authFailure{"TOKEN_VALIDATION_FAILED", "Token validation failed"}
		}
	}

	// Refresh tokens only work against /auth/refresh
	if claims.TokenType != services.TokenTypeAccess {
		return "", nil, &authFailure{"TOKEN_INVALID", "Invalid access token"}
	}
	return token, claims, nil
}

func storeClaims(c fiber.Ctx, token string, claims *services.TokenClaims) {
	c.Locals(actorLocalKey, businessflow.Actor{ID: claims.ActorID, Role: claims.Role})
	c.Locals(tokenIDLocalKey, claims.TokenID)
	c.Locals(accessTokenLocalKey, token)
}

// ActorFromContext returns the authenticated caller, if any
func ActorFromContext(c fiber.Ctx) (businessflow.Actor, bool) {
	a, ok := c.Locals(actorLocalKey).(businessflow.Actor)
	return a, ok
}

// GetTokenIDFromContext extracts the token ID from the fiber context
func GetTokenIDFromContext(c fiber.Ctx) (string, bool) {
	tokenID, ok := c.Locals(tokenIDLocalKey).(string)
	return tokenID, ok
}

// GetAccessTokenFromContext returns the raw bearer token the request was authenticated with
func GetAccessTokenFromContext(c fiber.Ctx) (string, bool) {
	token, ok := c.Locals(accessTokenLocalKey).(string)
	return token, ok && token != ""
}
