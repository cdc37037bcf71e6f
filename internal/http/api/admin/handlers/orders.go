package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/HireLedger/internal/http/api/apiutil"
	"github.com/router-for-me/HireLedger/internal/models"
	"gorm.io/gorm"
)

const (
	defaultOrderPageSize = 50
	maxOrderPageSize     = 200
)

// OrderHandler lists payment orders for operators.
type OrderHandler struct {
	db *gorm.DB // Database handle for order records.
}

// NewOrderHandler constructs an order handler.
func NewOrderHandler(db *gorm.DB) *OrderHandler {
	return &OrderHandler{db: db}
}

// List returns orders newest first, filtered by status and company.
func (h *OrderHandler) List(c *gin.Context) {
	var (
		statusQ  = strings.TrimSpace(c.Query("status"))
		companyQ = strings.TrimSpace(c.Query("company_id"))
	)

	var companyID uint64
	if statusQ != "" {
		switch models.PaymentOrderStatus(statusQ) {
		case models.PaymentOrderStatusPending, models.PaymentOrderStatusPaid,
			models.PaymentOrderStatusFailed, models.PaymentOrderStatusExpired:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
	}
	if companyQ != "" {
		parsed, errParse := strconv.ParseUint(companyQ, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company_id"})
			return
		}
		companyID = parsed
	}

	base := func() *gorm.DB {
		q := h.db.WithContext(c.Request.Context()).Model(&models.PaymentOrder{})
		if statusQ != "" {
			q = q.Where("status = ?", statusQ)
		}
		if companyID != 0 {
			q = q.Where("company_id = ?", companyID)
		}
		return q
	}

	var total int64
	if errCount := base().Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list orders failed"})
		return
	}

	limit, offset := apiutil.Page(c)
	if limit <= 0 {
		limit = defaultOrderPageSize
	}
	if limit > maxOrderPageSize {
		limit = maxOrderPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var rows []models.PaymentOrder
	if errFind := base().Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list orders failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, apiutil.FormatOrder(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out, "total": total})
}

// Get returns one order including the last verified gateway payload.
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := apiutil.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var order models.PaymentOrder
	if errFind := h.db.WithContext(c.Request.Context()).First(&order, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	out := apiutil.FormatOrder(&order)
	out["gateway_txn_ref"] = order.GatewayTxnRef
	out["gateway_payload"] = order.GatewayPayload
	out["bank_code"] = order.BankCode
	out["client_ip"] = order.ClientIP
	c.JSON(http.StatusOK, out)
}
