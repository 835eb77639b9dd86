// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/redline-telecom/redline/utils"
)

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "iccid":
		return "ICCID must be 8 to 22 digits with an optional trailing F"
	case "numeric":
		return err.Field() + " must contain only numbers"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// registerICCIDValidation wires the `iccid` tag: 8 to 22 characters, digits
// only, optional trailing F padding nibble.
func registerICCIDValidation(v *validator.Validate) {
	_ = v.RegisterValidation("iccid", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if len(value) < utils.MinICCIDLength || len(value) > 22 {
			return false
		}
		for i := 0; i < len(value); i++ {
			c := value[i]
			if c >= '0' && c <= '9' {
				continue
			}
			if (c == 'F' || c == 'f') && i == len(value)-1 {
				continue
			}
			return false
		}
		return true
	})
}

// newRequestContext creates a context with a timeout and request-scoped
// values for observability and audit logging
func newRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultRequestTimeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, utils.DefaultRequestTimeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}

func parseUintParam(c fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	var v uint64
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil || v == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(v), nil
}
