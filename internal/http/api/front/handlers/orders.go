package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/HireLedger/internal/http/api/apiutil"
	"github.com/router-for-me/HireLedger/internal/payment"
)

// OrderFrontHandler opens and inspects payment orders.
type OrderFrontHandler struct {
	orders *payment.Orchestrator
}

// NewOrderFrontHandler constructs an OrderFrontHandler.
func NewOrderFrontHandler(orders *payment.Orchestrator) *OrderFrontHandler {
	return &OrderFrontHandler{orders: orders}
}

// createOrderRequest defines the request body for order creation.
type createOrderRequest struct {
	PlanID   uint64 `json:"plan_id"`
	BankCode string `json:"bank_code"`
	Locale   string `json:"locale"`
}

// Create opens a pending order and returns the gateway redirect URL.
func (h *OrderFrontHandler) Create(c *gin.Context) {
	var body createOrderRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.PlanID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan_id is required"})
		return
	}
	locale := strings.ToLower(strings.TrimSpace(body.Locale))
	if locale != "" && locale != "vn" && locale != "en" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "locale must be vn or en"})
		return
	}

	result, errCreate := h.orders.CreateOrder(c.Request.Context(), payment.CreateOrderInput{
		CompanyID: CompanyID(c),
		PlanID:    body.PlanID,
		ClientIP:  c.ClientIP(),
		BankCode:  strings.TrimSpace(body.BankCode),
		Locale:    locale,
	})
	if errCreate != nil {
		apiutil.WriteError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Get returns one of the company's orders.
func (h *OrderFrontHandler) Get(c *gin.Context) {
	id, ok := apiutil.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	order, errFind := h.orders.OrderForCompany(c.Request.Context(), CompanyID(c), id)
	if errFind != nil {
		apiutil.WriteError(c, errFind)
		return
	}
	c.JSON(http.StatusOK, apiutil.FormatOrder(order))
}
