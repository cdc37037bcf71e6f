package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/router-for-me/HireLedger/internal/billing"
	"github.com/router-for-me/HireLedger/internal/db"
	"github.com/router-for-me/HireLedger/internal/gateway"
	"github.com/router-for-me/HireLedger/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultOrderTTL is how long a pending order waits for payment.
const DefaultOrderTTL = 15 * time.Minute

// Gateway is the subset of the gateway client the orchestrator needs.
type Gateway interface {
	BuildPaymentURL(req gateway.PaymentRequest) (string, error)
	VerifyCallback(params url.Values) (map[string]string, error)
}

// Orchestrator owns the payment order state machine.
type Orchestrator struct {
	db       *gorm.DB
	gateway  Gateway
	engine   *billing.Engine
	catalog  *billing.Catalog
	orderTTL time.Duration
	now      func() time.Time
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(conn *gorm.DB, gw Gateway, engine *billing.Engine, catalog *billing.Catalog, orderTTL time.Duration) *Orchestrator {
	if orderTTL <= 0 {
		orderTTL = DefaultOrderTTL
	}
	return &Orchestrator{
		db:       conn,
		gateway:  gw,
		engine:   engine,
		catalog:  catalog,
		orderTTL: orderTTL,
		now:      time.Now,
	}
}

func (o *Orchestrator) clock() time.Time {
	if o.now == nil {
		return time.Now().UTC()
	}
	return o.now().UTC()
}

// CreateOrderInput carries a purchase request.
type CreateOrderInput struct {
	CompanyID uint64
	PlanID    uint64
	ClientIP  string
	BankCode  string
	Locale    string
}

// CreateOrderResult is returned to the purchaser.
type CreateOrderResult struct {
	OrderID    uint64    `json:"order_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	PaymentURL string    `json:"payment_url"`
}

// CallbackResult reports the order state after a callback.
type CallbackResult struct {
	OrderID              uint64                    `json:"order_id"`
	Status               models.PaymentOrderStatus `json:"status"`
	GatewayResponseCode  string                    `json:"gateway_response_code"`
	GatewayTransactionNo string                    `json:"gateway_transaction_no"`
	ActivationError      string                    `json:"activation_error,omitempty"`
}

// CreateOrder opens a pending order and returns the signed gateway redirect.
// It is refused while the company has another unexpired pending order.
func (o *Orchestrator) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	if o == nil || o.db == nil || o.gateway == nil {
		return nil, fmt.Errorf("payment: create order: orchestrator not configured")
	}
	now := o.clock()

	var (
		order models.PaymentOrder
		plan  models.Plan
	)
	errTx := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var company models.Company
		if errFind := db.LockForUpdate(tx).Where("id = ?", in.CompanyID).Take(&company).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return billing.NotFound("company %d not found", in.CompanyID)
			}
			return fmt.Errorf("payment: create order: load company: %w", errFind)
		}
		if !company.IsActive {
			return billing.Forbidden("company %d is disabled", in.CompanyID)
		}
		// A company holds at most one unexpired pending order.
		var open models.PaymentOrder
		res := tx.Select("id").
			Where("company_id = ? AND status = ? AND expired_at > ?", in.CompanyID, models.PaymentOrderStatusPending, now).
			Limit(1).
			Find(&open)
		if res.Error != nil {
			return fmt.Errorf("payment: create order: check pending: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			return billing.Conflict("order %d is still awaiting payment", open.ID)
		}
		if errFind := tx.Where("id = ? AND is_hidden = ?", in.PlanID, false).Take(&plan).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return billing.NotFound("plan %d not found", in.PlanID)
			}
			return fmt.Errorf("payment: create order: load plan: %w", errFind)
		}
		if plan.Price <= 0 {
			return billing.Forbidden("plan %q is not purchasable", plan.Name)
		}
		if o.catalog != nil {
			if errCheck := o.catalog.CheckPurchasable(ctx, tx, in.CompanyID, plan); errCheck != nil {
				return errCheck
			}
		}

		order = models.PaymentOrder{
			CompanyID: in.CompanyID,
			PlanID:    plan.ID,
			Amount:    plan.Price,
			Status:    models.PaymentOrderStatusPending,
			BankCode:  in.BankCode,
			ClientIP:  in.ClientIP,
			ExpiredAt: now.Add(o.orderTTL),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if errCreate := tx.Create(&order).Error; errCreate != nil {
			return fmt.Errorf("payment: create order: insert: %w", errCreate)
		}
		ref := strconv.FormatUint(order.ID, 10)
		if errUpdate := tx.Model(&models.PaymentOrder{}).
			Where("id = ?", order.ID).
			Update("gateway_txn_ref", ref).Error; errUpdate != nil {
			return fmt.Errorf("payment: create order: set txn ref: %w", errUpdate)
		}
		order.GatewayTxnRef = &ref
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	paymentURL, errURL := o.gateway.BuildPaymentURL(gateway.PaymentRequest{
		TxnRef:        *order.GatewayTxnRef,
		Amount:        order.Amount,
		IP:            in.ClientIP,
		OrderInfo:     fmt.Sprintf("Thanh toan goi %s don hang %d", plan.Name, order.ID),
		ExpireMinutes: int(o.orderTTL / time.Minute),
		Locale:        in.Locale,
		BankCode:      in.BankCode,
	})
	if errURL != nil {
		return nil, fmt.Errorf("payment: create order: build url: %w", errURL)
	}

	log.WithFields(log.Fields{
		"order_id":   order.ID,
		"company_id": order.CompanyID,
		"plan_id":    order.PlanID,
		"amount":     order.Amount,
	}).Info("payment: order created")

	return &CreateOrderResult{
		OrderID:    order.ID,
		ExpiresAt:  order.ExpiredAt,
		PaymentURL: paymentURL,
	}, nil
}

// ProcessCallback reconciles a gateway callback with its order. It is safe to
// call repeatedly and from both the browser return and the server notification.
func (o *Orchestrator) ProcessCallback(ctx context.Context, params url.Values) (*CallbackResult, error) {
	if o == nil || o.db == nil || o.gateway == nil {
		return nil, fmt.Errorf("payment: callback: orchestrator not configured")
	}
	fields, errVerify := o.gateway.VerifyCallback(params)
	if errVerify != nil {
		return nil, errVerify
	}

	txnRef := fields[gateway.ParamTxnRef]
	if txnRef == "" {
		return nil, billing.BadRequest("callback is missing the transaction reference")
	}
	var order models.PaymentOrder
	if errFind := o.db.WithContext(ctx).Where("gateway_txn_ref = ?", txnRef).Take(&order).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, billing.NotFound("order %s not found", txnRef)
		}
		return nil, fmt.Errorf("payment: callback: load order: %w", errFind)
	}

	responseCode := fields[gateway.ParamResponseCode]
	transactionNo := fields[gateway.ParamTransactionNo]
	payload := encodePayload(fields)
	entry := log.WithFields(log.Fields{
		"order_id":      order.ID,
		"response_code": responseCode,
	})

	paid, errAmount := gateway.ParseAmount(fields[gateway.ParamAmount])
	if errAmount != nil || paid != order.Amount {
		now := o.clock()
		if _, errMark := o.transition(o.db.WithContext(ctx), order.ID, models.PaymentOrderStatusFailed, map[string]any{
			"gateway_response_code":  responseCode,
			"gateway_transaction_no": transactionNo,
			"gateway_payload":        payload,
			"updated_at":             now,
		}); errMark != nil {
			return nil, errMark
		}
		entry.WithField("reported", fields[gateway.ParamAmount]).Warn("payment: callback amount mismatch")
		return nil, billing.BadRequest("invalid amount")
	}

	success := gateway.IsSuccess(fields)
	var result CallbackResult
	errTx := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var fresh models.PaymentOrder
		if errFind := db.LockForUpdate(tx).Where("id = ?", order.ID).Take(&fresh).Error; errFind != nil {
			return fmt.Errorf("payment: callback: reload order: %w", errFind)
		}
		if fresh.Status.IsTerminal() {
			result = resultFromOrder(fresh)
			return nil
		}

		now := o.clock()
		updates := map[string]any{
			"gateway_response_code":  responseCode,
			"gateway_transaction_no": transactionNo,
			"gateway_payload":        payload,
			"updated_at":             now,
		}

		var next models.PaymentOrderStatus
		switch {
		case success:
			next = models.PaymentOrderStatusPaid
			updates["paid_at"] = now
		case now.After(fresh.ExpiredAt) || gateway.IsTimeout(fields):
			next = models.PaymentOrderStatusExpired
		default:
			next = models.PaymentOrderStatusFailed
		}

		moved, errMove := o.transition(tx, fresh.ID, next, updates)
		if errMove != nil {
			return errMove
		}
		if !moved {
			// Another delivery finalized the order between reload and update.
			if errFind := tx.Where("id = ?", fresh.ID).Take(&fresh).Error; errFind != nil {
				return fmt.Errorf("payment: callback: reload order: %w", errFind)
			}
			result = resultFromOrder(fresh)
			return nil
		}

		var activationErr string
		if next == models.PaymentOrderStatusPaid {
			orderID := fresh.ID
			errActivate := tx.Transaction(func(inner *gorm.DB) error {
				_, errInner := o.engine.ActivateTx(ctx, inner, fresh.CompanyID, fresh.PlanID, &orderID)
				return errInner
			})
			if errActivate != nil {
				if billing.KindOf(errActivate) != billing.KindForbidden {
					return errActivate
				}
				// Paid but refused: keep the payment on record for a manual grant or refund.
				activationErr = errActivate.Error()
				if errNote := tx.Model(&models.PaymentOrder{}).
					Where("id = ?", fresh.ID).
					Update("activation_error", activationErr).Error; errNote != nil {
					return fmt.Errorf("payment: callback: record activation error: %w", errNote)
				}
				entry.WithError(errActivate).Error("payment: paid order was not activated")
			}
		}
		result = CallbackResult{
			OrderID:              fresh.ID,
			Status:               next,
			GatewayResponseCode:  responseCode,
			GatewayTransactionNo: transactionNo,
			ActivationError:      activationErr,
		}
		return nil
	})
	if errTx != nil {
		entry.WithError(errTx).Warn("payment: callback processing failed")
		return nil, errTx
	}

	entry.WithField("status", result.Status).Info("payment: callback processed")
	return &result, nil
}

// OrderForCompany returns the order when it belongs to companyID.
func (o *Orchestrator) OrderForCompany(ctx context.Context, companyID, orderID uint64) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	if errFind := o.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", orderID, companyID).
		Take(&order).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, billing.NotFound("order %d not found", orderID)
		}
		return nil, fmt.Errorf("payment: load order: %w", errFind)
	}
	return &order, nil
}

// transition moves a pending order to next. It reports false when the order
// was no longer pending.
func (o *Orchestrator) transition(tx *gorm.DB, orderID uint64, next models.PaymentOrderStatus, updates map[string]any) (bool, error) {
	updates["status"] = next
	res := tx.Model(&models.PaymentOrder{}).
		Where("id = ? AND status = ?", orderID, models.PaymentOrderStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("payment: mark order %s: %w", next, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func resultFromOrder(order models.PaymentOrder) CallbackResult {
	return CallbackResult{
		OrderID:              order.ID,
		Status:               order.Status,
		GatewayResponseCode:  order.GatewayResponseCode,
		GatewayTransactionNo: order.GatewayTransactionNo,
		ActivationError:      order.ActivationError,
	}
}

func encodePayload(fields map[string]string) datatypes.JSON {
	raw, errMarshal := json.Marshal(fields)
	if errMarshal != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}
