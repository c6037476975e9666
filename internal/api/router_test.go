package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/suite"

	"github.com/policlinic/backoffice/internal/api/dto"
	v1 "github.com/policlinic/backoffice/internal/api/v1"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/service"
	"github.com/policlinic/backoffice/internal/testutil"
	"github.com/policlinic/backoffice/internal/types"
)

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	router *gin.Engine
	staff  string
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	gin.SetMode(gin.TestMode)

	stores := s.GetStores()
	params := service.NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		s.GetDB(),
		s.GetSentry(),
		stores.BillingRepo,
		stores.InvoiceRepo,
		stores.PaymentRepo,
		stores.SessionProvider,
		stores.UserDirectory,
		s.GetPublisher(),
		service.NewLocker(),
	)

	s.router = NewRouter(Handlers{
		Health:  v1.NewHealthHandler(s.GetLogger()),
		Billing: v1.NewBillingHandler(service.NewBillingService(params), s.GetLogger()),
		Invoice: v1.NewInvoiceHandler(service.NewInvoiceService(params), s.GetLogger()),
		Payment: v1.NewPaymentHandler(service.NewPaymentService(params), s.GetLogger()),
	}, s.GetConfig(), s.GetLogger(), s.GetSentry())

	s.staff = s.CreateUser("front-desk").ID
}

func (s *RouterSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(jsoniter.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(types.HeaderUserID, s.staff)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) decode(w *httptest.ResponseRecorder, v any) {
	s.Require().NoError(jsoniter.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *RouterSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, w.Code)
	s.NotEmpty(w.Header().Get(types.HeaderRequestID))
}

func (s *RouterSuite) TestRequestIDIsEchoed() {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(types.HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal("req-123", w.Header().Get(types.HeaderRequestID))
}

func (s *RouterSuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/v1/payments", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusNoContent, w.Code)
	s.Equal("*", w.Header().Get("Access-Control-Allow-Origin"))
	s.Contains(w.Header().Get("Access-Control-Allow-Headers"), types.HeaderUserID)
}

func (s *RouterSuite) TestBillingToPaymentOverHTTP() {
	sess := s.CreateCompletedSession("100.00", "50.00")

	w := s.do(http.MethodPost, "/v1/billings", map[string]any{"session_id": sess.ID})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var billing dto.SessionBillingResponse
	s.decode(w, &billing)
	s.True(billing.FinalAmount.Equal(dec("150")))
	s.Equal(s.staff, billing.CreatedBy)

	w = s.do(http.MethodPost, "/v1/sessions/"+sess.ID+"/discounts", map[string]any{"amount": "50.00", "reason": "courtesy"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.decode(w, &billing)
	s.True(billing.FinalAmount.Equal(dec("100")))
	s.Equal(s.staff, billing.Discounts[0].AppliedBy)

	w = s.do(http.MethodGet, "/v1/sessions/"+sess.ID+"/final-amount", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var final dto.FinalAmountResponse
	s.decode(w, &final)
	s.True(final.FinalAmount.Equal(dec("100")))

	w = s.do(http.MethodPost, "/v1/invoices", map[string]any{
		"invoice_number":      "INV-0001",
		"invoice_date":        "2026-03-14T00:00:00Z",
		"session_billing_ids": []string{billing.ID},
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var inv dto.InvoiceResponse
	s.decode(w, &inv)
	s.True(inv.TotalAmount.Equal(dec("100")))
	s.Equal(s.staff, inv.GeneratedBy)

	w = s.do(http.MethodPost, "/v1/payments", map[string]any{
		"invoice_ids":  []string{inv.ID},
		"amount":       100,
		"payment_type": "CASH",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var payment dto.PaymentResponse
	s.decode(w, &payment)
	s.Equal([]string{sess.PatientID}, payment.PatientIDs)

	w = s.do(http.MethodGet, "/v1/invoices/number/INV-0001", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &inv)
	s.Equal(types.PaymentStatusFullyPaid, inv.PaymentStatus)
	s.Equal([]string{payment.ID}, inv.PaymentIDs)

	w = s.do(http.MethodGet, "/v1/payments?invoice_id="+inv.ID, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var payments dto.ListPaymentsResponse
	s.decode(w, &payments)
	s.Len(payments.Items, 1)
}

func (s *RouterSuite) TestErrorResponses() {
	sess := s.CreateSession(types.SessionStatusScheduled, "10")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{name: "malformed body", method: http.MethodPost, path: "/v1/billings", body: "nope", status: http.StatusBadRequest, code: ierr.ErrCodeValidation},
		{name: "session not completed", method: http.MethodPost, path: "/v1/billings", body: map[string]any{"session_id": sess.ID}, status: http.StatusUnprocessableEntity, code: ierr.ErrCodeInvalidState},
		{name: "unknown billing", method: http.MethodGet, path: "/v1/billings/missing", status: http.StatusNotFound, code: ierr.ErrCodeNotFound},
		{name: "unknown invoice", method: http.MethodPost, path: "/v1/invoices/missing/finalize", body: map[string]any{"invoice_number": "INV-9"}, status: http.StatusNotFound, code: ierr.ErrCodeNotFound},
		{name: "bad filter", method: http.MethodGet, path: "/v1/invoices?limit=0", status: http.StatusBadRequest, code: ierr.ErrCodeValidation},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(tt.method, tt.path, tt.body)
			s.Equal(tt.status, w.Code, w.Body.String())

			var resp dto.ErrorResponse
			s.decode(w, &resp)
			s.False(resp.Success)
			s.Equal(tt.code, resp.Error.Code)
			s.NotEmpty(resp.Error.Message)
		})
	}
}

func (s *RouterSuite) TestConflictCarriesDetails() {
	sess := s.CreateCompletedSession("20")
	w := s.do(http.MethodPost, "/v1/billings", map[string]any{"session_id": sess.ID})
	s.Require().Equal(http.StatusCreated, w.Code)
	var billing dto.SessionBillingResponse
	s.decode(w, &billing)

	w = s.do(http.MethodPost, "/v1/billings/"+billing.ID+"/discounts", map[string]any{"amount": "20.01", "reason": "too much"})
	s.Equal(http.StatusConflict, w.Code)

	var resp dto.ErrorResponse
	s.decode(w, &resp)
	s.Equal(ierr.ErrCodeConflict, resp.Error.Code)
	s.Equal(billing.ID, resp.Error.Details["billing_id"])
}
