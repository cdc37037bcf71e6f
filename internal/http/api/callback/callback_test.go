package callback

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/HireLedger/internal/billing"
	"github.com/router-for-me/HireLedger/internal/models"
	"github.com/router-for-me/HireLedger/internal/payment"
	"github.com/router-for-me/HireLedger/internal/ratelimit"
)

type stubProcessor struct {
	result *payment.CallbackResult
	err    error
	calls  int
}

func (s *stubProcessor) ProcessCallback(_ context.Context, _ url.Values) (*payment.CallbackResult, error) {
	s.calls++
	return s.result, s.err
}

func newRouter(processor Processor, limiter *ratelimit.IPLimiter, resultURL string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterPaymentRoutes(r, processor, limiter, resultURL)
	return r
}

func get(r *gin.Engine, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "203.0.113.7:4100"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestReturn_RedirectsWithOrderStatus(t *testing.T) {
	processor := &stubProcessor{result: &payment.CallbackResult{OrderID: 42, Status: models.PaymentOrderStatusPaid}}
	r := newRouter(processor, nil, "https://app.example/billing/result?src=vnpay")

	rec := get(r, "/v0/payment/vnpay/return?vnp_TxnRef=42&vnp_SecureHash=abc")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if location.Host != "app.example" || location.Path != "/billing/result" {
		t.Fatalf("unexpected redirect target %q", location.String())
	}
	q := location.Query()
	if q.Get("order_id") != "42" || q.Get("status") != "paid" || q.Get("src") != "vnpay" {
		t.Fatalf("unexpected redirect query %q", location.RawQuery)
	}
}

func TestReturn_RedirectsFailedOnError(t *testing.T) {
	processor := &stubProcessor{err: billing.BadRequest("invalid signature")}
	r := newRouter(processor, nil, "")

	rec := get(r, "/v0/payment/vnpay/return?vnp_TxnRef=7")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	want := "/payment/result?order_id=7&status=failed"
	if got := rec.Header().Get("Location"); got != want {
		t.Fatalf("expected location %q, got %q", want, got)
	}
}

func TestIPN_Acknowledgements(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "processed", want: `{"Message":"success","RspCode":"00"}`},
		{name: "domain rejection", err: billing.BadRequest("invalid amount"), want: `{"Message":"invalid amount","RspCode":"99"}`},
		{name: "internal fault", err: errors.New("db down"), want: `{"Message":"internal error","RspCode":"99"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			processor := &stubProcessor{err: tc.err}
			if tc.err == nil {
				processor.result = &payment.CallbackResult{OrderID: 1, Status: models.PaymentOrderStatusPaid}
			}
			rec := get(newRouter(processor, nil, ""), "/v0/payment/vnpay/ipn?vnp_TxnRef=1")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if rec.Body.String() != tc.want {
				t.Fatalf("expected body %s, got %s", tc.want, rec.Body.String())
			}
		})
	}
}

func TestIPN_RateLimitedAnswersFailureAck(t *testing.T) {
	processor := &stubProcessor{result: &payment.CallbackResult{OrderID: 1, Status: models.PaymentOrderStatusPaid}}
	r := newRouter(processor, ratelimit.NewIPLimiter(0.001, 1), "")

	if rec := get(r, "/v0/payment/vnpay/ipn"); rec.Code != http.StatusOK || processor.calls != 1 {
		t.Fatalf("expected first call processed, got %d (calls=%d)", rec.Code, processor.calls)
	}
	rec := get(r, "/v0/payment/vnpay/ipn")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on limited ipn, got %d", rec.Code)
	}
	if rec.Body.String() != `{"Message":"rate limited","RspCode":"99"}` {
		t.Fatalf("unexpected limited ack %s", rec.Body.String())
	}
	if processor.calls != 1 {
		t.Fatalf("expected limited call to skip processing, got %d calls", processor.calls)
	}

	if rec = get(r, "/v0/payment/vnpay/return"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on limited return, got %d", rec.Code)
	}
}
