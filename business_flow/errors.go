// Package businessflow contains the core business logic for the line lifecycle and allocation workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// User/auth errors
	ErrUserNotFound      = errors.New("user not found")
	ErrAccountInactive   = errors.New("account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrCaptchaRequired   = errors.New("captcha verification required")
	ErrCaptchaInvalid    = errors.New("captcha verification failed")
	ErrForbidden         = errors.New("operation not permitted for this role")

	// Agency / account errors
	ErrAgencyNotFound        = errors.New("agency not found")
	ErrAgencyInactive        = errors.New("agency is inactive")
	ErrRedAccountNotFound    = errors.New("red account not found")
	ErrRedAccountInactive    = errors.New("red account is inactive")
	ErrRedAccountExists      = errors.New("red account login already exists")
	ErrMaxLinesRequired      = errors.New("max lines must be positive")

	// Capacity / reservation errors
	ErrCapacityExceeded    = errors.New("account capacity exceeded")
	ErrNoCapacity          = errors.New("no account in the agency has available capacity")
	ErrAlreadyReserved     = errors.New("line request is no longer pending")
	ErrNoReservation       = errors.New("line has no active reservation")
	ErrLineRequestNotFound = errors.New("line request not found")

	// Line / activation errors
	ErrPhoneNotFound        = errors.New("phone line not found")
	ErrPhoneNumberExists    = errors.New("phone number already exists")
	ErrICCIDInvalid         = errors.New("iccid is invalid")
	ErrICCIDTooShort        = errors.New("iccid must be at least 8 characters")
	ErrAlreadyActive        = errors.New("line is already active")
	ErrMissingTarget        = errors.New("no client and no reservation to activate against")
	ErrInvalidTransition    = errors.New("status transition not allowed")
	ErrSIMCardNotFound      = errors.New("sim card not found in agency stock")
	ErrSIMCardConsumed      = errors.New("sim card already consumed")
	ErrClientNotFound       = errors.New("client not found")
	ErrLineNotReusable      = errors.New("terminated line is still inside the holding period")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsCaptchaRequired(err error) bool {
	return errors.Is(err, ErrCaptchaRequired)
}

func IsCaptchaInvalid(err error) bool {
	return errors.Is(err, ErrCaptchaInvalid)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsAgencyNotFound(err error) bool {
	return errors.Is(err, ErrAgencyNotFound)
}

func IsAgencyInactive(err error) bool {
	return errors.Is(err, ErrAgencyInactive)
}

func IsRedAccountNotFound(err error) bool {
	return errors.Is(err, ErrRedAccountNotFound)
}

func IsRedAccountInactive(err error) bool {
	return errors.Is(err, ErrRedAccountInactive)
}

func IsRedAccountExists(err error) bool {
	return errors.Is(err, ErrRedAccountExists)
}

func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

func IsNoCapacity(err error) bool {
	return errors.Is(err, ErrNoCapacity)
}

func IsAlreadyReserved(err error) bool {
	return errors.Is(err, ErrAlreadyReserved)
}

func IsNoReservation(err error) bool {
	return errors.Is(err, ErrNoReservation)
}

func IsLineRequestNotFound(err error) bool {
	return errors.Is(err, ErrLineRequestNotFound)
}

func IsPhoneNotFound(err error) bool {
	return errors.Is(err, ErrPhoneNotFound)
}

func IsPhoneNumberExists(err error) bool {
	return errors.Is(err, ErrPhoneNumberExists)
}

func IsICCIDInvalid(err error) bool {
	return errors.Is(err, ErrICCIDInvalid) || errors.Is(err, ErrICCIDTooShort)
}

func IsAlreadyActive(err error) bool {
	return errors.Is(err, ErrAlreadyActive)
}

func IsMissingTarget(err error) bool {
	return errors.Is(err, ErrMissingTarget)
}

func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

func IsSIMCardNotFound(err error) bool {
	return errors.Is(err, ErrSIMCardNotFound)
}

func IsSIMCardConsumed(err error) bool {
	return errors.Is(err, ErrSIMCardConsumed)
}

func IsClientNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound)
}

func IsLineNotReusable(err error) bool {
	return errors.Is(err, ErrLineNotReusable)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}
