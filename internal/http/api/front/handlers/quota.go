package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/HireLedger/internal/billing"
	"github.com/router-for-me/HireLedger/internal/http/api/apiutil"
)

// QuotaFrontHandler spends job and credit quota.
type QuotaFrontHandler struct {
	guard *billing.Guard
}

// NewQuotaFrontHandler constructs a QuotaFrontHandler.
func NewQuotaFrontHandler(guard *billing.Guard) *QuotaFrontHandler {
	return &QuotaFrontHandler{guard: guard}
}

// ConsumeJob spends one job posting.
func (h *QuotaFrontHandler) ConsumeJob(c *gin.Context) {
	remaining, errConsume := h.guard.ConsumeJob(c.Request.Context(), CompanyID(c))
	if errConsume != nil {
		apiutil.WriteError(c, errConsume)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "remaining": remaining})
}

// consumeCreditRequest defines the request body for credit spends.
type consumeCreditRequest struct {
	Amount int64   `json:"amount"`
	JobID  *uint64 `json:"job_id"`
}

// ConsumeCredit spends credits, optionally against a job.
func (h *QuotaFrontHandler) ConsumeCredit(c *gin.Context) {
	var body consumeCreditRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errConsume := h.guard.ConsumeCredit(c.Request.Context(), CompanyID(c), body.Amount, body.JobID); errConsume != nil {
		apiutil.WriteError(c, errConsume)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
