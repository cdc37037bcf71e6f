package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/HireLedger/internal/http/api/apiutil"
	"github.com/router-for-me/HireLedger/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PlanHandler manages admin CRUD endpoints for plans.
type PlanHandler struct {
	db *gorm.DB // Database handle for plan records.
}

// NewPlanHandler constructs a plan handler.
func NewPlanHandler(db *gorm.DB) *PlanHandler {
	return &PlanHandler{db: db}
}

// normalizePlanFeatures validates the features payload and drops blank lines.
func normalizePlanFeatures(raw json.RawMessage) (datatypes.JSON, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return datatypes.JSON([]byte("[]")), nil
	}

	var features []string
	if errUnmarshal := json.Unmarshal(raw, &features); errUnmarshal != nil {
		return nil, errors.New("invalid features")
	}
	cleaned := make([]string, 0, len(features))
	for _, feature := range features {
		if trimmed := strings.TrimSpace(feature); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	rawFeatures, errMarshal := json.Marshal(cleaned)
	if errMarshal != nil {
		return nil, errMarshal
	}
	return datatypes.JSON(rawFeatures), nil
}

// createPlanRequest captures the payload for creating a plan.
type createPlanRequest struct {
	Name         string          `json:"name"`          // Plan name.
	Description  string          `json:"description"`   // Plan description.
	Price        int64           `json:"price"`         // Price in VND.
	DurationDays int             `json:"duration_days"` // Validity period.
	JobLimit     int64           `json:"job_limit"`     // Job postings per purchase.
	CreditAmount int64           `json:"credit_amount"` // Credits per purchase.
	Features     json.RawMessage `json:"features"`      // Feature list.
	SortOrder    int             `json:"sort_order"`    // Display order.
	IsHidden     bool            `json:"is_hidden"`     // Hide from the catalog.
}

// Create validates input and inserts a new plan.
func (h *PlanHandler) Create(c *gin.Context) {
	var body createPlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if strings.TrimSpace(body.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if body.Price < 0 || body.JobLimit < 0 || body.CreditAmount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price and quotas must not be negative"})
		return
	}
	if body.DurationDays <= 0 {
		body.DurationDays = 30
	}

	features, errFeatures := normalizePlanFeatures(body.Features)
	if errFeatures != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid features"})
		return
	}

	now := time.Now().UTC()
	plan := models.Plan{
		Name:         strings.TrimSpace(body.Name),
		Description:  body.Description,
		Price:        body.Price,
		DurationDays: body.DurationDays,
		JobLimit:     body.JobLimit,
		CreditAmount: body.CreditAmount,
		Features:     features,
		SortOrder:    body.SortOrder,
		IsHidden:     body.IsHidden,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if errCreate := h.db.WithContext(c.Request.Context()).Create(&plan).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create plan failed"})
		return
	}
	c.JSON(http.StatusCreated, apiutil.FormatPlan(&plan))
}

// List returns all plans, optionally filtered by hidden flag.
func (h *PlanHandler) List(c *gin.Context) {
	hiddenQ := strings.TrimSpace(c.Query("is_hidden"))

	q := h.db.WithContext(c.Request.Context()).Model(&models.Plan{})
	if hiddenQ == "true" || hiddenQ == "1" {
		q = q.Where("is_hidden = ?", true)
	} else if hiddenQ == "false" || hiddenQ == "0" {
		q = q.Where("is_hidden = ?", false)
	}

	var rows []models.Plan
	if errFind := q.Order("sort_order ASC, price ASC, id ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list plans failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, apiutil.FormatPlan(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}

// Get fetches a plan by ID.
func (h *PlanHandler) Get(c *gin.Context) {
	id, ok := apiutil.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var plan models.Plan
	if errFind := h.db.WithContext(c.Request.Context()).First(&plan, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, apiutil.FormatPlan(&plan))
}

// updatePlanRequest captures optional fields for plan updates.
type updatePlanRequest struct {
	Name         *string          `json:"name"`          // Optional name update.
	Description  *string          `json:"description"`   // Optional description.
	Price        *int64           `json:"price"`         // Optional price.
	DurationDays *int             `json:"duration_days"` // Optional validity period.
	JobLimit     *int64           `json:"job_limit"`     // Optional job quota.
	CreditAmount *int64           `json:"credit_amount"` // Optional credit quota.
	Features     *json.RawMessage `json:"features"`      // Optional feature list.
	SortOrder    *int             `json:"sort_order"`    // Optional display order.
	IsHidden     *bool            `json:"is_hidden"`     // Optional hidden flag.
}

// changesTerms reports whether the request alters what a purchase of the plan grants or costs.
func (r *updatePlanRequest) changesTerms(plan *models.Plan) bool {
	return (r.Price != nil && *r.Price != plan.Price) ||
		(r.DurationDays != nil && *r.DurationDays != plan.DurationDays) ||
		(r.JobLimit != nil && *r.JobLimit != plan.JobLimit) ||
		(r.CreditAmount != nil && *r.CreditAmount != plan.CreditAmount)
}

// planReferenced reports whether any subscription, archived subscription or order points at the plan.
func planReferenced(tx *gorm.DB, planID uint64) (bool, error) {
	for _, model := range []any{&models.Subscription{}, &models.SubscriptionHistory{}, &models.PaymentOrder{}} {
		var count int64
		if errCount := tx.Model(model).Where("plan_id = ?", planID).Count(&count).Error; errCount != nil {
			return false, errCount
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

// Update validates and applies plan field updates. Price, quota and duration
// are frozen once a subscription or order references the plan.
func (h *PlanHandler) Update(c *gin.Context) {
	id, ok := apiutil.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updatePlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var existing models.Plan
	if errFind := h.db.WithContext(c.Request.Context()).First(&existing, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if body.changesTerms(&existing) {
		referenced, errRef := planReferenced(h.db.WithContext(c.Request.Context()), existing.ID)
		if errRef != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		if referenced {
			c.JSON(http.StatusConflict, gin.H{"error": "plan is referenced by subscriptions or orders; price, quota and duration are frozen, create a new plan instead"})
			return
		}
	}

	updates := map[string]any{
		"updated_at": time.Now().UTC(),
	}

	if body.Name != nil {
		n := strings.TrimSpace(*body.Name)
		if n == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		updates["name"] = n
	}
	if body.Description != nil {
		updates["description"] = *body.Description
	}
	if body.Price != nil {
		if *body.Price < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must not be negative"})
			return
		}
		updates["price"] = *body.Price
	}
	if body.DurationDays != nil {
		if *body.DurationDays <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "duration_days must be positive"})
			return
		}
		updates["duration_days"] = *body.DurationDays
	}
	if body.JobLimit != nil {
		if *body.JobLimit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "job_limit must not be negative"})
			return
		}
		updates["job_limit"] = *body.JobLimit
	}
	if body.CreditAmount != nil {
		if *body.CreditAmount < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "credit_amount must not be negative"})
			return
		}
		updates["credit_amount"] = *body.CreditAmount
	}
	if body.Features != nil {
		features, errFeatures := normalizePlanFeatures(*body.Features)
		if errFeatures != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid features"})
			return
		}
		updates["features"] = features
	}
	if body.SortOrder != nil {
		updates["sort_order"] = *body.SortOrder
	}
	if body.IsHidden != nil {
		updates["is_hidden"] = *body.IsHidden
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Plan{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a plan that no subscription or order references.
func (h *PlanHandler) Delete(c *gin.Context) {
	id, ok := apiutil.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var inUse bool
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		referenced, errRef := planReferenced(tx, id)
		if errRef != nil {
			return errRef
		}
		if referenced {
			inUse = true
			return nil
		}
		res := tx.Delete(&models.Plan{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(errTx, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if inUse {
		c.JSON(http.StatusConflict, gin.H{"error": "plan is referenced by subscriptions or orders; hide it instead"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Hide removes a plan from the catalog.
func (h *PlanHandler) Hide(c *gin.Context) {
	h.setHidden(c, true)
}

// Unhide returns a plan to the catalog.
func (h *PlanHandler) Unhide(c *gin.Context) {
	h.setHidden(c, false)
}

// setHidden toggles the hidden state for a plan.
func (h *PlanHandler) setHidden(c *gin.Context, hidden bool) {
	id, ok := apiutil.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	now := time.Now().UTC()
	res := h.db.WithContext(c.Request.Context()).Model(&models.Plan{}).Where("id = ?", id).
		Updates(map[string]any{"is_hidden": hidden, "updated_at": now})
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
