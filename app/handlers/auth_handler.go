package handlers

import (
	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	"github.com/amirphl/Kuruma-no-Ichiba/app/middleware"
	businessflow "github.com/amirphl/Kuruma-no-Ichiba/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Login(c fiber.Ctx) error
	Refresh(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	flow      businessflow.StaffAuthFlow
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(flow businessflow.StaffAuthFlow, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		flow:      flow,
		validator: validator.New(),
		logger:    logger,
	}
}

// Login handles staff and customer authentication
// @Summary Login
// @Description Authenticate with username and password and receive a role-bearing access token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid credentials or inactive account"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/auth/login")
	defer cancel()

	result, err := h.flow.Login(ctx, &req, clientMetadata(c))
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Login failed", "LOGIN_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

// Refresh exchanges a refresh token for a new token pair
// @Summary Refresh session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshSessionRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.SessionDTO} "Session refreshed"
// @Failure 401 {object} dto.APIResponse "Invalid refresh token"
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	var req dto.RefreshSessionRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/auth/refresh")
	defer cancel()

	result, err := h.flow.Refresh(ctx, &req)
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Session refresh failed", "REFRESH_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Session refreshed successfully", result)
}

// Logout revokes the caller's access token and an optional refresh token
// @Summary Logout
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.LogoutRequest false "Refresh token to revoke"
// @Success 200 {object} dto.APIResponse "Logged out"
// @Failure 401 {object} dto.APIResponse "Missing, invalid or foreign token"
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	token, ok := middleware.GetAccessTokenFromContext(c)
	if !ok {
		return ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "MISSING_ACCESS_TOKEN", nil)
	}

	var req dto.LogoutRequest
	if len(c.Body()) > 0 {
		if ok, err := bindJSON(c, h.validator, &req); !ok {
			return err
		}
	}

	ctx, cancel := createRequestContext(c, "/api/v1/auth/logout")
	defer cancel()

	if err := h.flow.Logout(ctx, token, &req, actor(c), clientMetadata(c)); err != nil {
		return flowErrorResponse(c, h.logger, err, "Logout failed", "LOGOUT_FAILED")
	}

	tokenID, _ := middleware.GetTokenIDFromContext(c)
	h.logger.Debug("session closed", zap.String("token_id", tokenID))
	return SuccessResponse(c, fiber.StatusOK, "Logged out successfully", nil)
}
