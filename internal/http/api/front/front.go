package front

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/HireLedger/internal/billing"
	"github.com/router-for-me/HireLedger/internal/config"
	handlers "github.com/router-for-me/HireLedger/internal/http/api/front/handlers"
	"github.com/router-for-me/HireLedger/internal/models"
	"github.com/router-for-me/HireLedger/internal/payment"
	"github.com/router-for-me/HireLedger/internal/ratelimit"
	"github.com/router-for-me/HireLedger/internal/security"
	"gorm.io/gorm"
)

// Services bundles the domain services behind the front API.
type Services struct {
	Catalog *billing.Catalog
	Guard   *billing.Guard
	Ledger  *billing.Ledger
	Orders  *payment.Orchestrator
	Limiter *ratelimit.Manager
}

// RegisterFrontRoutes registers company-facing routes under /v0/front.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, svc Services) {
	if r == nil || db == nil {
		return
	}

	authed := r.Group("/v0/front")
	authed.Use(companyAuthMiddleware(db, jwtCfg))

	planHandler := handlers.NewPlanFrontHandler(svc.Catalog)
	authed.GET("/plans", planHandler.List)

	subscriptionHandler := handlers.NewSubscriptionFrontHandler(svc.Catalog, svc.Ledger)
	authed.GET("/subscription", subscriptionHandler.Current)
	authed.GET("/subscription/upgrade-options", subscriptionHandler.UpgradeOptions)
	authed.GET("/subscription/history", subscriptionHandler.History)
	authed.GET("/credits/transactions", subscriptionHandler.Transactions)

	quotaHandler := handlers.NewQuotaFrontHandler(svc.Guard)
	quota := authed.Group("/quota")
	quota.Use(ratelimit.CompanyLimit(svc.Limiter, ratelimit.ScopeQuota, handlers.CompanyID))
	quota.POST("/jobs/consume", quotaHandler.ConsumeJob)
	quota.POST("/credits/consume", quotaHandler.ConsumeCredit)

	orderHandler := handlers.NewOrderFrontHandler(svc.Orders)
	authed.POST("/orders", ratelimit.CompanyLimit(svc.Limiter, ratelimit.ScopeOrders, handlers.CompanyID), orderHandler.Create)
	authed.GET("/orders/:id", orderHandler.Get)
}

// companyAuthMiddleware validates company JWTs and loads the company context.
func companyAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		token := security.BearerToken(authHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		claims, errJWT := security.ParseCompanyToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var company models.Company
		if errFind := db.WithContext(c.Request.Context()).First(&company, claims.CompanyID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "company not found"})
			return
		}
		if !company.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "company disabled"})
			return
		}

		c.Set(handlers.ContextCompanyID, company.ID)
		c.Next()
	}
}
