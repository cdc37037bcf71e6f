package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/HireLedger/internal/config"
	dbutil "github.com/router-for-me/HireLedger/internal/db"
	"github.com/router-for-me/HireLedger/internal/http/api/apiutil"
	"github.com/router-for-me/HireLedger/internal/models"
	"github.com/router-for-me/HireLedger/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultCompanyPageSize = 50
	maxCompanyPageSize     = 200
)

// CompanyHandler manages admin endpoints for recruiting companies.
type CompanyHandler struct {
	db     *gorm.DB         // Database handle for company records.
	jwtCfg config.JWTConfig // Settings for issued company tokens.
}

// NewCompanyHandler constructs a company handler.
func NewCompanyHandler(db *gorm.DB, jwtCfg config.JWTConfig) *CompanyHandler {
	return &CompanyHandler{db: db, jwtCfg: jwtCfg}
}

func formatCompany(company *models.Company) gin.H {
	return gin.H{
		"id":         company.ID,
		"name":       company.Name,
		"is_active":  company.IsActive,
		"created_at": company.CreatedAt,
		"updated_at": company.UpdatedAt,
	}
}

// createCompanyRequest captures the payload for creating a company.
type createCompanyRequest struct {
	Name string `json:"name"` // Display name.
}

// Create inserts a new active company.
func (h *CompanyHandler) Create(c *gin.Context) {
	var body createCompanyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	now := time.Now().UTC()
	company := models.Company{
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&company).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create company failed"})
		return
	}
	c.JSON(http.StatusCreated, formatCompany(&company))
}

// List returns companies filtered by search term and active state.
func (h *CompanyHandler) List(c *gin.Context) {
	var (
		searchQ = strings.TrimSpace(c.Query("search"))
		activeQ = strings.TrimSpace(c.Query("is_active"))
	)

	base := func() *gorm.DB {
		q := h.db.WithContext(c.Request.Context()).Model(&models.Company{})
		if searchQ != "" {
			searchPattern := "%" + searchQ + "%"
			ciPattern := dbutil.NormalizeLikePattern(h.db, searchPattern)
			q = q.Where(
				dbutil.CaseInsensitiveLikeExpr(h.db, "name")+" OR CAST(id AS TEXT) LIKE ?",
				ciPattern,
				searchPattern,
			)
		}
		if activeQ == "true" || activeQ == "1" {
			q = q.Where("is_active = ?", true)
		} else if activeQ == "false" || activeQ == "0" {
			q = q.Where("is_active = ?", false)
		}
		return q
	}

	var total int64
	if errCount := base().Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list companies failed"})
		return
	}

	limit, offset := apiutil.Page(c)
	if limit <= 0 {
		limit = defaultCompanyPageSize
	}
	if limit > maxCompanyPageSize {
		limit = maxCompanyPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var rows []models.Company
	if errFind := base().Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list companies failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatCompany(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"companies": out, "total": total})
}

// Get returns a company by ID.
func (h *CompanyHandler) Get(c *gin.Context) {
	company, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, formatCompany(company))
}

// Disable blocks a company from purchasing and from the front API.
func (h *CompanyHandler) Disable(c *gin.Context) {
	h.setActive(c, false)
}

// Enable reactivates a company.
func (h *CompanyHandler) Enable(c *gin.Context) {
	h.setActive(c, true)
}

func (h *CompanyHandler) setActive(c *gin.Context, active bool) {
	id, ok := apiutil.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.Company{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": active, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// IssueToken signs a front API bearer token for an active company.
func (h *CompanyHandler) IssueToken(c *gin.Context) {
	company, ok := h.load(c)
	if !ok {
		return
	}
	if !company.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "company disabled"})
		return
	}

	token, errSign := security.IssueCompanyToken(h.jwtCfg.Secret, company.ID, h.jwtCfg.Expiry)
	if errSign != nil {
		log.WithError(errSign).WithField("company_id", company.ID).Error("admin: sign company token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	log.WithFields(log.Fields{
		"company_id": company.ID,
		"admin":      c.GetString(ContextAdminUsername),
	}).Info("admin: issued company token")
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int64(h.jwtCfg.Expiry.Seconds()),
	})
}

// load resolves the :id company or writes the error response.
func (h *CompanyHandler) load(c *gin.Context) (*models.Company, bool) {
	id, ok := apiutil.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}
	var company models.Company
	if errFind := h.db.WithContext(c.Request.Context()).First(&company, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	return &company, true
}
