package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/HireLedger/internal/billing"
	"github.com/router-for-me/HireLedger/internal/http/api/apiutil"
)

// SubscriptionFrontHandler serves the company's plan and ledger views.
type SubscriptionFrontHandler struct {
	catalog *billing.Catalog
	ledger  *billing.Ledger
}

// NewSubscriptionFrontHandler constructs a SubscriptionFrontHandler.
func NewSubscriptionFrontHandler(catalog *billing.Catalog, ledger *billing.Ledger) *SubscriptionFrontHandler {
	return &SubscriptionFrontHandler{catalog: catalog, ledger: ledger}
}

// Current returns the plan summary, or a null subscription before the first purchase.
func (h *SubscriptionFrontHandler) Current(c *gin.Context) {
	summary, errSummary := h.catalog.CurrentPlanSummary(c.Request.Context(), CompanyID(c))
	if errSummary != nil {
		apiutil.WriteError(c, errSummary)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": summary})
}

// UpgradeOptions lists visible plans annotated with purchase eligibility.
func (h *SubscriptionFrontHandler) UpgradeOptions(c *gin.Context) {
	options, errOptions := h.catalog.UpgradeOptions(c.Request.Context(), CompanyID(c))
	if errOptions != nil {
		apiutil.WriteError(c, errOptions)
		return
	}
	out := make([]gin.H, 0, len(options))
	for i := range options {
		row := apiutil.FormatPlan(&options[i].Plan)
		row["can_buy"] = options[i].CanBuy
		row["reason"] = options[i].Reason
		out = append(out, row)
	}
	c.JSON(http.StatusOK, gin.H{"options": out})
}

// History lists archived subscriptions.
func (h *SubscriptionFrontHandler) History(c *gin.Context) {
	rows, errHistory := h.ledger.History(c.Request.Context(), CompanyID(c))
	if errHistory != nil {
		apiutil.WriteError(c, errHistory)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, apiutil.FormatHistory(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}

// Transactions pages through the credit ledger.
func (h *SubscriptionFrontHandler) Transactions(c *gin.Context) {
	limit, offset := apiutil.Page(c)
	rows, total, errList := h.ledger.Transactions(c.Request.Context(), CompanyID(c), limit, offset)
	if errList != nil {
		apiutil.WriteError(c, errList)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, apiutil.FormatTransaction(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"transactions": out, "total": total})
}
