package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/HireLedger/internal/billing"
	"github.com/router-for-me/HireLedger/internal/http/api/apiutil"
	log "github.com/sirupsen/logrus"
)

// LedgerHandler exposes per-company subscription state and manual grants.
type LedgerHandler struct {
	engine  *billing.Engine
	catalog *billing.Catalog
	ledger  *billing.Ledger
}

// NewLedgerHandler constructs a ledger handler.
func NewLedgerHandler(engine *billing.Engine, catalog *billing.Catalog, ledger *billing.Ledger) *LedgerHandler {
	return &LedgerHandler{engine: engine, catalog: catalog, ledger: ledger}
}

// Subscription returns the company's plan summary and ledger balance.
func (h *LedgerHandler) Subscription(c *gin.Context) {
	companyID, ok := apiutil.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	ctx := c.Request.Context()
	summary, errSummary := h.catalog.CurrentPlanSummary(ctx, companyID)
	if errSummary != nil {
		apiutil.WriteError(c, errSummary)
		return
	}
	balance, errBalance := h.ledger.Balance(ctx, companyID)
	if errBalance != nil {
		apiutil.WriteError(c, errBalance)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": summary, "ledger_balance": balance})
}

// Transactions pages through the company's credit ledger.
func (h *LedgerHandler) Transactions(c *gin.Context) {
	companyID, ok := apiutil.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	limit, offset := apiutil.Page(c)
	rows, total, errList := h.ledger.Transactions(c.Request.Context(), companyID, limit, offset)
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

// History lists the company's archived subscriptions.
func (h *LedgerHandler) History(c *gin.Context) {
	companyID, ok := apiutil.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	rows, errHistory := h.ledger.History(c.Request.Context(), companyID)
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

// grantRequest selects the plan to activate without payment.
type grantRequest struct {
	PlanID uint64 `json:"plan_id"` // Plan to activate.
}

// Grant activates a plan for the company with no payment order. The
// downgrade rule and rollover apply as for a paid purchase.
func (h *LedgerHandler) Grant(c *gin.Context) {
	companyID, ok := apiutil.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body grantRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.PlanID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan_id is required"})
		return
	}

	sub, errActivate := h.engine.Activate(c.Request.Context(), companyID, body.PlanID, nil)
	if errActivate != nil {
		apiutil.WriteError(c, errActivate)
		return
	}
	log.WithFields(log.Fields{
		"company_id": companyID,
		"plan_id":    body.PlanID,
		"admin":      c.GetString(ContextAdminUsername),
	}).Info("admin: granted plan")
	c.JSON(http.StatusOK, gin.H{"subscription": apiutil.FormatSubscription(sub)})
}
