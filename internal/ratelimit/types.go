package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter provides rate limit checks.
type Limiter interface {
	Allow(ctx context.Context, key Key, limit int, now time.Time) (Result, error)
}

// Scope names the group of routes a company limit applies to.
type Scope string

// Route scopes. Each scope keeps its own counter per company.
const (
	// ScopeQuota covers the job and credit consume endpoints.
	ScopeQuota Scope = "quota"
	// ScopeOrders covers order creation.
	ScopeOrders Scope = "orders"
	// scopeDefault stands in for an empty scope in Redis keys.
	scopeDefault Scope = "all"
)
