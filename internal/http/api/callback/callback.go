// Package callback serves the payment gateway's browser return and
// server-to-server notification endpoints.
package callback

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/HireLedger/internal/gateway"
	"github.com/router-for-me/HireLedger/internal/http/api/apiutil"
	"github.com/router-for-me/HireLedger/internal/models"
	"github.com/router-for-me/HireLedger/internal/payment"
	"github.com/router-for-me/HireLedger/internal/ratelimit"
	log "github.com/sirupsen/logrus"
)

// Notification acknowledgement codes.
const (
	RspCodeSuccess = "00"
	RspCodeFailure = "99"
)

const defaultResultPath = "/payment/result"

// Processor reconciles a verified gateway callback with its order.
type Processor interface {
	ProcessCallback(ctx context.Context, params url.Values) (*payment.CallbackResult, error)
}

// Handler serves the gateway callback endpoints.
type Handler struct {
	processor Processor
	resultURL string
}

// NewHandler constructs a Handler. resultURL is the frontend page the
// browser return redirects to.
func NewHandler(processor Processor, resultURL string) *Handler {
	resultURL = strings.TrimSpace(resultURL)
	if resultURL == "" {
		resultURL = defaultResultPath
	}
	return &Handler{processor: processor, resultURL: resultURL}
}

// RegisterPaymentRoutes registers the public gateway routes under /v0/payment/vnpay.
func RegisterPaymentRoutes(r *gin.Engine, processor Processor, limiter *ratelimit.IPLimiter, resultURL string) {
	if r == nil || processor == nil {
		return
	}
	h := NewHandler(processor, resultURL)
	group := r.Group("/v0/payment/vnpay")
	group.GET("/return", limiter.Middleware(nil), h.Return)
	group.GET("/ipn", limiter.Middleware(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusOK, ack(RspCodeFailure, "rate limited"))
	}), h.IPN)
}

// Return handles the browser redirect and always sends the user on to the
// frontend result page.
func (h *Handler) Return(c *gin.Context) {
	query := c.Request.URL.Query()
	orderID := strings.TrimSpace(query.Get(gateway.ParamTxnRef))
	status := string(models.PaymentOrderStatusFailed)

	result, errProcess := h.processor.ProcessCallback(c.Request.Context(), query)
	if errProcess != nil {
		log.WithError(errProcess).WithField("txn_ref", orderID).Warn("payment return: callback rejected")
	} else {
		orderID = strconv.FormatUint(result.OrderID, 10)
		status = string(result.Status)
	}
	c.Redirect(http.StatusFound, h.resultLocation(orderID, status))
}

// IPN handles the server-to-server notification. It never answers with an
// HTTP error; failures are reported through the acknowledgement code.
func (h *Handler) IPN(c *gin.Context) {
	query := c.Request.URL.Query()
	if _, errProcess := h.processor.ProcessCallback(c.Request.Context(), query); errProcess != nil {
		log.WithError(errProcess).WithField("txn_ref", query.Get(gateway.ParamTxnRef)).Warn("payment ipn: callback rejected")
		c.JSON(http.StatusOK, ack(RspCodeFailure, apiutil.Message(errProcess)))
		return
	}
	c.JSON(http.StatusOK, ack(RspCodeSuccess, "success"))
}

func ack(code, message string) gin.H {
	return gin.H{"RspCode": code, "Message": message}
}

func (h *Handler) resultLocation(orderID, status string) string {
	target, errParse := url.Parse(h.resultURL)
	if errParse != nil {
		target = &url.URL{Path: defaultResultPath}
	}
	q := target.Query()
	q.Set("order_id", orderID)
	q.Set("status", status)
	target.RawQuery = q.Encode()
	return target.String()
}
