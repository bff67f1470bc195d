package businessflow

import (
	"context"
	"errors"
	"strings"

	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	"github.com/amirphl/Kuruma-no-Ichiba/app/services"
	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/repository"
	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// StaffAuthFlow verifies credentials and issues tokens carrying the actor's role
type StaffAuthFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshSessionRequest) (*dto.SessionDTO, error)
	Logout(ctx context.Context, accessToken string, req *dto.LogoutRequest, actor Actor, metadata *ClientMetadata) error
}

// StaffAuthFlowImpl implements StaffAuthFlow
type StaffAuthFlowImpl struct {
	userRepo     repository.StaffUserRepository
	tokenService services.TokenService
	audit        auditor
	logger       *zap.Logger
}

func NewStaffAuthFlow(userRepo repository.StaffUserRepository, tokenService services.TokenService, auditRepo repository.AuditLogRepository, logger *zap.Logger) StaffAuthFlow {
	logger = loggerOrNop(logger)
	return &StaffAuthFlowImpl{
		userRepo:     userRepo,
		tokenService: tokenService,
		audit:        newAuditor(auditRepo, logger),
		logger:       logger,
	}
}

func (af *StaffAuthFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, NewBusinessError("LOGIN_VALIDATION_FAILED", "Username and password are required", ErrInvalidCredentials)
	}

	user, err := af.userRepo.ByUsername(ctx, username)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to lookup user", err)
	}

	// unknown users and wrong passwords look the same to the caller
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		af.logAttempt(ctx, user, metadata, ErrInvalidCredentials)
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Incorrect username or password", ErrInvalidCredentials)
	}
	if !user.Active() {
		af.logAttempt(ctx, user, metadata, ErrAccountInactive)
		return nil, NewBusinessError("ACCOUNT_INACTIVE", "Account is inactive", ErrAccountInactive)
	}

	accessToken, refreshToken, err := af.tokenService.GenerateTokens(user.ID, user.Role)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	if err := af.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		af.logger.Warn("failed to record last login", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	af.logAttempt(ctx, user, metadata, nil)

	return &dto.LoginResponse{
		Actor: dto.ActorDTO{
			ID:          user.ID,
			UUID:        user.UUID.String(),
			Username:    user.Username,
			DisplayName: user.DisplayName,
			Role:        user.Role.String(),
		},
		Session: af.session(accessToken, refreshToken),
	}, nil
}

func (af *StaffAuthFlowImpl) Refresh(ctx context.Context, req *dto.RefreshSessionRequest) (*dto.SessionDTO, error) {
	accessToken, refreshToken, err := af.tokenService.RefreshToken(req.RefreshToken)
	if err != nil {
		code := "INVALID_REFRESH_TOKEN"
		if errors.Is(err, services.ErrTokenExpired) {
			code = "REFRESH_TOKEN_EXPIRED"
		}
		return nil, NewBusinessError(code, "Refresh token rejected", errors.Join(ErrInvalidCredentials, err))
	}
	session := af.session(accessToken, refreshToken)
	return &session, nil
}

// Logout revokes the access token and, when given, the refresh token of the same actor
func (af *StaffAuthFlowImpl) Logout(ctx context.Context, accessToken string, req *dto.LogoutRequest, actor Actor, metadata *ClientMetadata) error {
	if err := af.tokenService.RevokeToken(accessToken); err != nil {
		return NewBusinessError("INVALID_ACCESS_TOKEN", "Access token rejected", errors.Join(ErrInvalidCredentials, err))
	}

	revokedRefresh := false
	if req != nil && strings.TrimSpace(req.RefreshToken) != "" {
		claims, err := af.tokenService.ValidateToken(req.RefreshToken)
		switch {
		case err != nil:
			af.logger.Warn("ignoring unusable refresh token on logout", zap.Uint("actor_id", actor.ID), zap.Error(err))
		case claims.TokenType != services.TokenTypeRefresh || claims.ActorID != actor.ID:
			return NewBusinessError("INVALID_REFRESH_TOKEN", "Refresh token does not belong to this session", ErrInvalidCredentials)
		default:
			if err := af.tokenService.RevokeToken(req.RefreshToken); err != nil {
				af.logger.Warn("failed to revoke refresh token", zap.Uint("actor_id", actor.ID), zap.Error(err))
			} else {
				revokedRefresh = true
			}
		}
	}

	af.audit.record(ctx, actor, metadata, auditEntry{
		action:     models.AuditActionLogout,
		entityType: models.AuditEntityStaffUser,
		entityID:   utils.ToPtr(actor.ID),
		message:    "Logged out",
		success:    true,
		details:    map[string]any{"refresh_token_revoked": revokedRefresh},
	})
	return nil
}

func (af *StaffAuthFlowImpl) session(accessToken, refreshToken string) dto.SessionDTO {
	return dto.SessionDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(af.tokenService.AccessTokenTTL().Seconds()),
		TokenType:    "Bearer",
	}
}

func (af *StaffAuthFlowImpl) logAttempt(ctx context.Context, user *models.StaffUser, metadata *ClientMetadata, failure error) {
	actor := Anonymous
	var entityID *uint
	if user != nil {
		actor = Actor{ID: user.ID, Role: user.Role}
		entityID = utils.ToPtr(user.ID)
	}

	entry := auditEntry{
		action:     models.AuditActionLoginSuccess,
		entityType: models.AuditEntityStaffUser,
		entityID:   entityID,
		message:    "Login succeeded",
		success:    true,
	}
	if failure != nil {
		entry.action = models.AuditActionLoginFailed
		entry.message = "Login failed"
		entry.success = false
		entry.err = failure
	}
	af.audit.record(ctx, actor, metadata, entry)
}
