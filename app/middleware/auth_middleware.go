// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/redline-telecom/redline/app/dto"
	"github.com/redline-telecom/redline/app/services"
	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/repository"
	"github.com/redline-telecom/redline/utils"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
	userRepo     repository.UserRepository
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		userRepo:     userRepo,
	}
}

// Authenticate validates the JWT and resolves the user. The role lands in
// locals so route guards never need a second lookup.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "MISSING_AUTHORIZATION_HEADER", "Authorization header is required")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "INVALID_AUTHORIZATION_FORMAT", "Invalid authorization header format. Expected 'Bearer <token>'")
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return unauthorized(c, "MISSING_ACCESS_TOKEN", "Access token is required")
		}

		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			var errorCode string
			var message string

			if errors.Is(err, services.ErrTokenExpired) {
				errorCode = "TOKEN_EXPIRED"
				message = "Access token has expired"
			} else if errors.Is(err, services.ErrTokenInvalid) {
				errorCode = "TOKEN_INVALID"
				message = "Invalid access token"
			} else if errors.Is(err, services.ErrTokenRevoked) {
				errorCode = "TOKEN_REVOKED"
				message = "Access token has been revoked"
			} else {
				errorCode = "TOKEN_VALIDATION_FAILED"
				message = "Token validation failed"
			}

			return unauthorized(c, errorCode, message)
		}

		if claims.TokenType != "access" {
			return unauthorized(c, "TOKEN_INVALID", "Refresh tokens cannot access the API")
		}

		user, err := m.userRepo.ByID(context.Background(), claims.UserID)
		if err != nil || user == nil {
			return unauthorized(c, "USER_NOT_FOUND", "User not found")
		}
		if !utils.IsTrue(user.IsActive) {
			return unauthorized(c, "ACCOUNT_INACTIVE", "Account is inactive")
		}

		// Store user information in context for downstream handlers
		c.Locals("user_id", user.ID)
		c.Locals("user_role", user.Role)
		if user.AgencyID != nil {
			c.Locals("agency_id", *user.AgencyID)
		}
		c.Locals("token_id", claims.TokenID)
		c.Locals("token_claims", claims)

		// Store RequestID for audit logging
		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// RequireSupervisor rejects requests from agency-level users. Must run after
// Authenticate.
func (m *AuthMiddleware) RequireSupervisor() fiber.Handler {
	return func(c fiber.Ctx) error {
		role, ok := c.Locals("user_role").(string)
		if !ok {
			return unauthorized(c, "AUTHENTICATION_REQUIRED", "Authentication required")
		}
		switch role {
		case models.RoleSupervisor, models.RoleAdmin, models.RoleSuperAdmin:
			return c.Next()
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
			Success: false,
			Message: "Supervisor role required",
			Error: dto.ErrorDetail{
				Code: "FORBIDDEN",
			},
		})
	}
}

func unauthorized(c fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: code,
		},
	})
}

// GetUserIDFromContext extracts the authenticated user ID from the request context
func GetUserIDFromContext(c fiber.Ctx) (uint, bool) {
	userID, ok := c.Locals("user_id").(uint)
	return userID, ok
}

// GetAgencyIDFromContext extracts the authenticated user's agency scope
func GetAgencyIDFromContext(c fiber.Ctx) (uint, bool) {
	agencyID, ok := c.Locals("agency_id").(uint)
	return agencyID, ok
}

// GetTokenClaimsFromContext extracts token claims from the request context
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.TokenClaims, bool) {
	claims, ok := c.Locals("token_claims").(*services.TokenClaims)
	return claims, ok
}
