// Package businessflow contains the core business logic for the line lifecycle and allocation workflows
package businessflow

import (
	"context"
	"fmt"

	"github.com/redline-telecom/redline/app/dto"
	"github.com/redline-telecom/redline/app/services"
	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/repository"
	"github.com/redline-telecom/redline/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginFlow handles the authentication business process
type LoginFlow interface {
	Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	RefreshSession(ctx context.Context, refreshToken string, metadata *ClientMetadata) (*dto.LoginResponse, error)
	Logout(ctx context.Context, sessionToken string, metadata *ClientMetadata) error
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	userRepo       repository.UserRepository
	sessionRepo    repository.UserSessionRepository
	auditRepo      repository.AuditLogRepository
	tokenService   services.TokenService
	captchaService services.CaptchaService
	db             *gorm.DB
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	userRepo repository.UserRepository,
	sessionRepo repository.UserSessionRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	captchaService services.CaptchaService,
	db *gorm.DB,
) LoginFlow {
	return &LoginFlowImpl{
		userRepo:       userRepo,
		sessionRepo:    sessionRepo,
		auditRepo:      auditRepo,
		tokenService:   tokenService,
		captchaService: captchaService,
		db:             db,
	}
}

// Login authenticates a user with email and password. Supervisor-level roles
// additionally need a fresh captcha solve: their sessions can reveal RED
// account passwords, so the bar is higher.
func (f *LoginFlowImpl) Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	user, err := f.userRepo.ByEmail(ctx, request.Email)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to look up user", err)
	}
	if user == nil {
		_ = f.logLoginEvent(ctx, nil, models.AuditActionLoginFailed, "login failed: unknown email", false, metadata)
		return nil, NewBusinessError("USER_NOT_FOUND", "Invalid email or password", ErrUserNotFound)
	}
	if !utils.IsTrue(user.IsActive) {
		_ = f.logLoginEvent(ctx, &user.ID, models.AuditActionLoginFailed, "login failed: account inactive", false, metadata)
		return nil, NewBusinessError("ACCOUNT_INACTIVE", "Account is inactive", ErrAccountInactive)
	}

	if user.IsSupervisor() {
		if request.CaptchaID == "" {
			return nil, NewBusinessError("CAPTCHA_REQUIRED", "Captcha verification required", ErrCaptchaRequired)
		}
		if !f.captchaService.VerifyRotate(ctx, request.CaptchaID, float64(request.CaptchaAngle)) {
			_ = f.logLoginEvent(ctx, &user.ID, models.AuditActionLoginFailed, "login failed: captcha verification failed", false, metadata)
			return nil, NewBusinessError("CAPTCHA_INVALID", "Captcha verification failed", ErrCaptchaInvalid)
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(request.Password)); err != nil {
		_ = f.logLoginEvent(ctx, &user.ID, models.AuditActionLoginFailed, "login failed: incorrect password", false, metadata)
		return nil, NewBusinessError("INCORRECT_PASSWORD", "Invalid email or password", ErrIncorrectPassword)
	}

	session, err := f.createSession(ctx, user, metadata)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to create session", err)
	}

	if err := f.userRepo.UpdateLastLogin(ctx, user.ID, utils.UTCNow()); err != nil {
		// Non-fatal: the login itself succeeded
		_ = f.logLoginEvent(ctx, &user.ID, models.AuditActionLoginFailed, fmt.Sprintf("failed to update last login: %s", err.Error()), false, metadata)
	}

	msg := fmt.Sprintf("User %d logged in", user.ID)
	_ = f.logLoginEvent(ctx, &user.ID, models.AuditActionLoginSuccess, msg, true, metadata)

	return &dto.LoginResponse{
		User:    ToUserDTO(*user),
		Session: ToSessionDTO(*session),
	}, nil
}

// RefreshSession rotates a JWT pair using a valid refresh token. The old
// session is expired in the same transaction that records the new one.
func (f *LoginFlowImpl) RefreshSession(ctx context.Context, refreshToken string, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	claims, err := f.tokenService.ValidateToken(refreshToken)
	if err != nil {
		return nil, NewBusinessError("TOKEN_INVALID", "Invalid refresh token", err)
	}
	if claims.TokenType != "refresh" {
		return nil, NewBusinessError("TOKEN_INVALID", "Token is not a refresh token", services.ErrTokenInvalid)
	}

	user, err := f.userRepo.ByID(ctx, claims.UserID)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to look up user", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}
	if !utils.IsTrue(user.IsActive) {
		return nil, NewBusinessError("ACCOUNT_INACTIVE", "Account is inactive", ErrAccountInactive)
	}

	stored, err := f.sessionRepo.ByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to look up session", err)
	}
	if stored == nil || !utils.IsTrue(stored.IsActive) {
		return nil, NewBusinessError("TOKEN_INVALID", "Session is no longer active", services.ErrTokenRevoked)
	}

	var session *models.UserSession
	err = repository.WithTransaction(ctx, f.db, func(ctx context.Context) error {
		if err := f.sessionRepo.ExpireSession(ctx, stored.ID); err != nil {
			return err
		}
		session, err = f.createSession(ctx, user, metadata)
		return err
	})
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to rotate session", err)
	}

	return &dto.LoginResponse{
		User:    ToUserDTO(*user),
		Session: ToSessionDTO(*session),
	}, nil
}

// Logout expires the session matching the presented token
func (f *LoginFlowImpl) Logout(ctx context.Context, sessionToken string, metadata *ClientMetadata) error {
	session, err := f.sessionRepo.BySessionToken(ctx, sessionToken)
	if err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Failed to look up session", err)
	}
	if session == nil {
		return nil
	}
	if err := f.sessionRepo.ExpireSession(ctx, session.ID); err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Failed to expire session", err)
	}
	_ = f.logLoginEvent(ctx, &session.UserID, models.AuditActionLoginSuccess, fmt.Sprintf("User %d logged out", session.UserID), true, metadata)
	return nil
}

func (f *LoginFlowImpl) createSession(ctx context.Context, user *models.User, metadata *ClientMetadata) (*models.UserSession, error) {
	accessToken, refreshToken, err := f.tokenService.GenerateTokens(user.ID)
	if err != nil {
		return nil, err
	}

	session := &models.UserSession{
		UserID:       user.ID,
		SessionToken: accessToken,
		RefreshToken: refreshToken,
		IsActive:     utils.ToPtr(true),
		ExpiresAt:    utils.UTCNow().Add(utils.SessionTimeout),
		CreatedAt:    utils.UTCNow(),
	}
	if metadata != nil {
		session.IPAddress = &metadata.IPAddress
		session.UserAgent = &metadata.UserAgent
	}

	if err := f.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (f *LoginFlowImpl) logLoginEvent(ctx context.Context, userID *uint, action string, description string, success bool, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		UserID:      userID,
		Action:      action,
		Description: &description,
		Success:     utils.ToPtr(success),
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}
	if !success {
		audit.ErrorMessage = &description
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return f.auditRepo.Save(ctx, audit)
}
