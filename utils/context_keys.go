package utils

import "time"

// ContextKey is the type used for request-scoped context values
type ContextKey string

// Context keys carried from the HTTP layer into business flows
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
)

// DefaultRequestTimeout bounds a single request-scoped context
const DefaultRequestTimeout = 30 * time.Second
