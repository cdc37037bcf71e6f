package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/HireLedger/internal/billing"
	"github.com/router-for-me/HireLedger/internal/config"
	handlers "github.com/router-for-me/HireLedger/internal/http/api/admin/handlers"
	"github.com/router-for-me/HireLedger/internal/models"
	"github.com/router-for-me/HireLedger/internal/security"
	"gorm.io/gorm"
)

// Services bundles the domain services used by admin handlers.
type Services struct {
	Engine  *billing.Engine
	Catalog *billing.Catalog
	Ledger  *billing.Ledger
}

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, svc Services) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	adminGroup := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	adminGroup.POST("/login", authHandler.Login)

	authed := adminGroup.Group("")
	authed.Use(adminAuthMiddleware(db, jwtCfg))

	planHandler := handlers.NewPlanHandler(db)
	authed.POST("/plans", planHandler.Create)
	authed.GET("/plans", planHandler.List)
	authed.GET("/plans/:id", planHandler.Get)
	authed.PUT("/plans/:id", planHandler.Update)
	authed.DELETE("/plans/:id", planHandler.Delete)
	authed.POST("/plans/:id/hide", planHandler.Hide)
	authed.POST("/plans/:id/unhide", planHandler.Unhide)

	companyHandler := handlers.NewCompanyHandler(db, jwtCfg)
	authed.POST("/companies", companyHandler.Create)
	authed.GET("/companies", companyHandler.List)
	authed.GET("/companies/:id", companyHandler.Get)
	authed.POST("/companies/:id/disable", companyHandler.Disable)
	authed.POST("/companies/:id/enable", companyHandler.Enable)
	authed.POST("/companies/:id/token", companyHandler.IssueToken)

	ledgerHandler := handlers.NewLedgerHandler(svc.Engine, svc.Catalog, svc.Ledger)
	authed.GET("/companies/:id/subscription", ledgerHandler.Subscription)
	authed.GET("/companies/:id/transactions", ledgerHandler.Transactions)
	authed.GET("/companies/:id/history", ledgerHandler.History)
	authed.POST("/companies/:id/grant", ledgerHandler.Grant)

	orderHandler := handlers.NewOrderHandler(db)
	authed.GET("/orders", orderHandler.List)
	authed.GET("/orders/:id", orderHandler.Get)
}

// adminAuthMiddleware validates admin JWTs and loads admin context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
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

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin disabled"})
			return
		}

		c.Set(handlers.ContextAdminID, admin.ID)
		c.Set(handlers.ContextAdminUsername, admin.Username)
		c.Next()
	}
}
