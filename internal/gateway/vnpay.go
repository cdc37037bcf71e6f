// Package gateway signs outbound payment redirects and verifies inbound
// callbacks for the VNPay-style payment gateway.
package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/router-for-me/HireLedger/internal/billing"
)

// Wire parameter names.
const (
	ParamVersion           = "vnp_Version"
	ParamCommand           = "vnp_Command"
	ParamTmnCode           = "vnp_TmnCode"
	ParamAmount            = "vnp_Amount"
	ParamCurrCode          = "vnp_CurrCode"
	ParamTxnRef            = "vnp_TxnRef"
	ParamOrderInfo         = "vnp_OrderInfo"
	ParamOrderType         = "vnp_OrderType"
	ParamLocale            = "vnp_Locale"
	ParamReturnURL         = "vnp_ReturnUrl"
	ParamIPAddr            = "vnp_IpAddr"
	ParamCreateDate        = "vnp_CreateDate"
	ParamExpireDate        = "vnp_ExpireDate"
	ParamBankCode          = "vnp_BankCode"
	ParamResponseCode      = "vnp_ResponseCode"
	ParamTransactionStatus = "vnp_TransactionStatus"
	ParamTransactionNo     = "vnp_TransactionNo"
	ParamSecureHash        = "vnp_SecureHash"
	ParamSecureHashType    = "vnp_SecureHashType"

	paramPrefix = "vnp_"
)

// Gateway codes.
const (
	ResponseCodeSuccess      = "00"
	ResponseCodeTimeout      = "11"
	TransactionStatusSuccess = "00"
)

const (
	defaultVersion   = "2.1.0"
	defaultLocale    = "vn"
	defaultCurrency  = "VND"
	defaultOrderType = "other"
	defaultIP        = "127.0.0.1"
	timestampLayout  = "20060102150405"
	minorUnitScale   = 100
)

// gatewayLocation is the fixed UTC+7 zone the gateway expects timestamps in.
var gatewayLocation = time.FixedZone("GMT+7", 7*60*60)

// Config holds merchant credentials and endpoints.
type Config struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
	Version    string
}

// PaymentRequest describes one outbound payment redirect.
type PaymentRequest struct {
	TxnRef        string
	Amount        int64
	IP            string
	OrderInfo     string
	ExpireMinutes int
	Locale        string
	BankCode      string
}

// Client builds and verifies gateway messages. It holds no mutable state.
type Client struct {
	cfg Config
	now func() time.Time
}

// NewClient constructs a Client.
func NewClient(cfg Config) *Client {
	cfg.TmnCode = strings.TrimSpace(cfg.TmnCode)
	cfg.PayURL = strings.TrimSpace(cfg.PayURL)
	cfg.ReturnURL = strings.TrimSpace(cfg.ReturnURL)
	if strings.TrimSpace(cfg.Version) == "" {
		cfg.Version = defaultVersion
	}
	return &Client{cfg: cfg, now: time.Now}
}

// BuildPaymentURL returns the signed redirect URL for req.
func (c *Client) BuildPaymentURL(req PaymentRequest) (string, error) {
	if c == nil {
		return "", fmt.Errorf("gateway: nil client")
	}
	if c.cfg.TmnCode == "" || c.cfg.HashSecret == "" || c.cfg.PayURL == "" {
		return "", fmt.Errorf("gateway: merchant config incomplete")
	}
	txnRef := strings.TrimSpace(req.TxnRef)
	if txnRef == "" {
		return "", fmt.Errorf("gateway: empty txn ref")
	}
	if req.Amount <= 0 {
		return "", fmt.Errorf("gateway: amount must be positive, got %d", req.Amount)
	}
	expireMinutes := req.ExpireMinutes
	if expireMinutes <= 0 {
		expireMinutes = 15
	}

	created := c.now()
	orderInfo := NormalizeOrderInfo(req.OrderInfo)
	if orderInfo == "" {
		orderInfo = "Thanh toan don hang " + txnRef
	}
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = defaultLocale
	}
	ip := strings.TrimSpace(req.IP)
	if ip == "" {
		ip = defaultIP
	}

	params := map[string]string{
		ParamVersion:    c.cfg.Version,
		ParamCommand:    "pay",
		ParamTmnCode:    c.cfg.TmnCode,
		ParamAmount:     strconv.FormatInt(req.Amount*minorUnitScale, 10),
		ParamCurrCode:   defaultCurrency,
		ParamTxnRef:     txnRef,
		ParamOrderInfo:  orderInfo,
		ParamOrderType:  defaultOrderType,
		ParamLocale:     locale,
		ParamReturnURL:  c.cfg.ReturnURL,
		ParamIPAddr:     ip,
		ParamCreateDate: FormatTimestamp(created),
		ParamExpireDate: FormatTimestamp(created.Add(time.Duration(expireMinutes) * time.Minute)),
	}
	if bank := strings.TrimSpace(req.BankCode); bank != "" {
		params[ParamBankCode] = bank
	}

	query := Canonicalize(params)
	signature := Sign(c.cfg.HashSecret, query)
	return c.cfg.PayURL + "?" + query + "&" + ParamSecureHash + "=" + signature, nil
}

// VerifyCallback checks the signature of an inbound callback and returns its
// gateway parameters without the signature fields.
func (c *Client) VerifyCallback(params url.Values) (map[string]string, error) {
	if c == nil {
		return nil, fmt.Errorf("gateway: nil client")
	}
	supplied := strings.TrimSpace(params.Get(ParamSecureHash))
	if supplied == "" {
		return nil, billing.BadRequest("missing secure hash")
	}

	fields := make(map[string]string, len(params))
	for key := range params {
		if !strings.HasPrefix(key, paramPrefix) || key == ParamSecureHash || key == ParamSecureHashType {
			continue
		}
		fields[key] = params.Get(key)
	}
	if len(fields) == 0 {
		return nil, billing.BadRequest("callback carries no gateway parameters")
	}

	expected := signBytes(c.cfg.HashSecret, Canonicalize(fields))
	got, errDecode := hex.DecodeString(supplied)
	if errDecode != nil || !hmac.Equal(expected, got) {
		return nil, billing.BadRequest("invalid signature")
	}
	return fields, nil
}

// Canonicalize serializes params in sorted key order with query escaping.
func Canonicalize(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[key]))
	}
	return b.String()
}

// Sign returns the lowercase hex HMAC-SHA512 of data.
func Sign(secret, data string) string {
	return hex.EncodeToString(signBytes(secret, data))
}

func signBytes(secret, data string) []byte {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

// FormatTimestamp renders t in the gateway's UTC+7 timestamp format.
func FormatTimestamp(t time.Time) string {
	return t.In(gatewayLocation).Format(timestampLayout)
}

// ParseAmount converts a minor-unit amount back to ledger units.
func ParseAmount(raw string) (int64, error) {
	value, errParse := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if errParse != nil {
		return 0, fmt.Errorf("gateway: parse amount: %w", errParse)
	}
	if value < 0 || value%minorUnitScale != 0 {
		return 0, fmt.Errorf("gateway: amount %d is not a whole ledger unit", value)
	}
	return value / minorUnitScale, nil
}

// IsSuccess reports whether verified callback fields describe a completed payment.
func IsSuccess(fields map[string]string) bool {
	if fields[ParamResponseCode] != ResponseCodeSuccess {
		return false
	}
	status := fields[ParamTransactionStatus]
	return status == "" || status == TransactionStatusSuccess
}

// IsTimeout reports whether the gateway rejected the payment because it timed out.
func IsTimeout(fields map[string]string) bool {
	return fields[ParamResponseCode] == ResponseCodeTimeout
}
