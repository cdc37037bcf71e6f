package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Response headers describing the caller's budget.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// CompanyIDFunc resolves the company a request acts for.
type CompanyIDFunc func(c *gin.Context) uint64

// CompanyLimit enforces the manager's per-company limit for scope.
func CompanyLimit(m *Manager, scope Scope, companyID CompanyIDFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := m.DefaultLimit()
		if limit <= 0 || companyID == nil {
			c.Next()
			return
		}
		key := KeyForCompany(companyID(c), scope)
		if key.IsZero() {
			c.Next()
			return
		}
		result, errAllow := m.Allow(c.Request.Context(), key, limit)
		if errAllow != nil {
			log.WithError(errAllow).Warn("rate limit: check failed, allowing request")
			c.Next()
			return
		}
		c.Header(HeaderLimit, strconv.Itoa(limit))
		c.Header(HeaderRemaining, strconv.Itoa(result.Remaining))
		if !result.Reset.IsZero() {
			c.Header(HeaderReset, strconv.FormatInt(result.Reset.Unix(), 10))
		}
		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
