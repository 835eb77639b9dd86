// Package testing provides test utilities and database setup for testing the line lifecycle service
package testing

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestAgency creates an active agency with a unique name
func (tf *TestFixtures) CreateTestAgency() (*models.Agency, error) {
	agency := &models.Agency{
		Name:     fmt.Sprintf("Agency %d", mrand.Intn(10000000)),
		IsActive: utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(agency).Error; err != nil {
		return nil, fmt.Errorf("failed to create test agency: %w", err)
	}
	return agency, nil
}

// CreateTestUser creates a user with the given role inside an agency scope.
// Supervisors keep a nil agency scope.
func (tf *TestFixtures) CreateTestUser(role string, agencyID *uint) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	randomDigits := fmt.Sprintf("%09d", mrand.Intn(900000000)+100000000)
	phone := fmt.Sprintf("+336%s", randomDigits[:8])

	user := &models.User{
		Firstname:    "Jean",
		Lastname:     "Dupont",
		Email:        fmt.Sprintf("jean.dupont.%s@example.com", randomDigits),
		PhoneNumber:  &phone,
		AgencyID:     agencyID,
		Role:         role,
		PasswordHash: string(hashedPassword),
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}
	return user, nil
}

// CreateTestRedAccount creates a RED account under an agency with the given capacity
func (tf *TestFixtures) CreateTestRedAccount(agencyID uint, maxLines int) (*models.RedAccount, error) {
	encrypted, err := utils.EncryptSecret("portal-password", "test-encryption-key-32-characters")
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt test password: %w", err)
	}

	account := &models.RedAccount{
		RedAccountID:      fmt.Sprintf("red-%d", mrand.Intn(10000000)),
		PasswordEncrypted: encrypted,
		AgencyID:          agencyID,
		MaxLines:          maxLines,
		IsActive:          utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(account).Error; err != nil {
		return nil, fmt.Errorf("failed to create test RED account: %w", err)
	}
	return account, nil
}

// CreateTestLine creates a line in the given status under an account
func (tf *TestFixtures) CreateTestLine(accountID, agencyID uint, status models.PhoneStatus) (*models.Line, error) {
	phone := fmt.Sprintf("+337%08d", mrand.Intn(100000000))

	line := &models.Line{
		PhoneNumber:   &phone,
		PhoneStatus:   status,
		PaymentStatus: models.PaymentStatusUnattributed,
		RedAccountID:  accountID,
		AgencyID:      agencyID,
	}
	if status == models.PhoneStatusActive {
		now := utils.UTCNow()
		line.ActivatedAt = &now
		line.PaymentStatus = models.PaymentStatusUpToDate
	}
	if status == models.PhoneStatusTerminated {
		terminated := utils.UTCNow().AddDate(-2, 0, 0)
		line.TerminatedAt = &terminated
	}

	if err := tf.DB.DB.Create(line).Error; err != nil {
		return nil, fmt.Errorf("failed to create test line: %w", err)
	}
	return line, nil
}

// CreateTestSIMCard creates an in-stock SIM card for an agency
func (tf *TestFixtures) CreateTestSIMCard(agencyID uint) (*models.SIMCard, error) {
	sim := &models.SIMCard{
		ICCID:    fmt.Sprintf("893310%013d", mrand.Int63n(10000000000000)),
		AgencyID: agencyID,
		Status:   models.SIMStatusInStock,
	}

	if err := tf.DB.DB.Create(sim).Error; err != nil {
		return nil, fmt.Errorf("failed to create test SIM card: %w", err)
	}
	return sim, nil
}

// CreateTestLineRequest creates a pending demand for a client
func (tf *TestFixtures) CreateTestLineRequest(clientID, agencyID uint, priority int) (*models.LineRequest, error) {
	request := &models.LineRequest{
		ClientID: clientID,
		AgencyID: agencyID,
		Status:   models.RequestStatusPending,
		Priority: priority,
	}

	if err := tf.DB.DB.Create(request).Error; err != nil {
		return nil, fmt.Errorf("failed to create test line request: %w", err)
	}
	return request, nil
}

// GenerateSecureToken returns a URL-safe random token
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// CreateTestSession creates an active session for a user
func (tf *TestFixtures) CreateTestSession(userID uint) (*models.UserSession, error) {
	sessionToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secure session token: %w", err)
	}

	refreshToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secure refresh token: %w", err)
	}

	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	session := &models.UserSession{
		UserID:       userID,
		SessionToken: sessionToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(24 * time.Hour),
		IsActive:     utils.ToPtr(true),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
	}

	if err := tf.DB.DB.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create test session: %w", err)
	}
	return session, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(userID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		UserID:      userID,
		Action:      action,
		Description: &description,
		Success:     utils.ToPtr(success),
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}
	return audit, nil
}
