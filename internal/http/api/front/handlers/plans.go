package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/HireLedger/internal/billing"
	"github.com/router-for-me/HireLedger/internal/http/api/apiutil"
)

// PlanFrontHandler serves plan-related front endpoints.
type PlanFrontHandler struct {
	catalog *billing.Catalog
}

// NewPlanFrontHandler constructs a PlanFrontHandler.
func NewPlanFrontHandler(catalog *billing.Catalog) *PlanFrontHandler {
	return &PlanFrontHandler{catalog: catalog}
}

// List returns the purchasable plan catalog.
func (h *PlanFrontHandler) List(c *gin.Context) {
	plans, errList := h.catalog.VisiblePlans(c.Request.Context())
	if errList != nil {
		apiutil.WriteError(c, errList)
		return
	}
	out := make([]gin.H, 0, len(plans))
	for i := range plans {
		out = append(out, apiutil.FormatPlan(&plans[i]))
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}
