package apiutil

import (
	"github.com/gin-gonic/gin"
	"github.com/router-for-me/HireLedger/internal/models"
)

// FormatPlan converts a plan into a response payload.
func FormatPlan(p *models.Plan) gin.H {
	return gin.H{
		"id":            p.ID,
		"name":          p.Name,
		"description":   p.Description,
		"price":         p.Price,
		"duration_days": p.DurationDays,
		"job_limit":     p.JobLimit,
		"credit_amount": p.CreditAmount,
		"features":      p.Features,
		"sort_order":    p.SortOrder,
		"is_hidden":     p.IsHidden,
		"created_at":    p.CreatedAt,
		"updated_at":    p.UpdatedAt,
	}
}

// FormatSubscription converts the live subscription row into a response payload.
func FormatSubscription(s *models.Subscription) gin.H {
	return gin.H{
		"id":                     s.ID,
		"company_id":             s.CompanyID,
		"plan_id":                s.PlanID,
		"start_date":             s.StartDate,
		"end_date":               s.EndDate,
		"purchased_price":        s.PurchasedPrice,
		"job_limit_snapshot":     s.JobLimitSnapshot,
		"jobs_left":              s.JobsLeft,
		"credit_amount_snapshot": s.CreditAmountSnapshot,
		"credits_left":           s.CreditsLeft,
		"status":                 s.Status,
		"order_id":               s.OrderID,
		"updated_at":             s.UpdatedAt,
	}
}

// FormatHistory converts an archived subscription into a response payload.
func FormatHistory(h *models.SubscriptionHistory) gin.H {
	return gin.H{
		"id":                     h.ID,
		"plan_id":                h.PlanID,
		"purchased_price":        h.PurchasedPrice,
		"job_limit_snapshot":     h.JobLimitSnapshot,
		"credit_amount_snapshot": h.CreditAmountSnapshot,
		"start_date":             h.StartDate,
		"end_date":               h.EndDate,
		"jobs_used":              h.JobsUsed,
		"credits_used":           h.CreditsUsed,
		"status":                 h.Status,
		"order_id":               h.OrderID,
		"created_at":             h.CreatedAt,
	}
}

// FormatTransaction converts a ledger entry into a response payload.
func FormatTransaction(t *models.CreditTransaction) gin.H {
	return gin.H{
		"id":         t.ID,
		"amount":     t.Amount,
		"type":       t.Type,
		"job_id":     t.JobID,
		"order_id":   t.OrderID,
		"plan_id":    t.PlanID,
		"created_at": t.CreatedAt,
	}
}

// FormatOrder converts a payment order into a response payload.
func FormatOrder(o *models.PaymentOrder) gin.H {
	return gin.H{
		"id":                     o.ID,
		"company_id":             o.CompanyID,
		"plan_id":                o.PlanID,
		"amount":                 o.Amount,
		"status":                 o.Status,
		"gateway_response_code":  o.GatewayResponseCode,
		"gateway_transaction_no": o.GatewayTransactionNo,
		"expired_at":             o.ExpiredAt,
		"paid_at":                o.PaidAt,
		"activation_error":       o.ActivationError,
		"created_at":             o.CreatedAt,
		"updated_at":             o.UpdatedAt,
	}
}
