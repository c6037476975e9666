package service

import (
	"sync"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"

	"github.com/policlinic/backoffice/internal/api/dto"
	"github.com/policlinic/backoffice/internal/domain/events"
	"github.com/policlinic/backoffice/internal/domain/session"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/testutil"
	"github.com/policlinic/backoffice/internal/types"
)

type PaymentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        PaymentService
	billingService BillingService
	invoiceService InvoiceService
	testData       struct {
		sessionA *session.Session
		sessionB *session.Session
		invoiceA *dto.InvoiceResponse
		invoiceB *dto.InvoiceResponse
	}
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewPaymentService(params)
	s.billingService = NewBillingService(params)
	s.invoiceService = NewInvoiceService(params)
	s.setupTestData()
}

func (s *PaymentServiceSuite) setupTestData() {
	s.testData.sessionA = s.CreateCompletedSession("100.00")
	s.testData.sessionB = s.CreateCompletedSession("30.00", "20.00")
	s.testData.invoiceA = s.invoiceFor("INV-A", s.testData.sessionA)
	s.testData.invoiceB = s.invoiceFor("INV-B", s.testData.sessionB)
	s.GetPublisher().Clear()
}

func (s *PaymentServiceSuite) invoiceFor(number string, sess *session.Session) *dto.InvoiceResponse {
	b, err := s.billingService.CreateSessionBilling(s.GetContext(), dto.CreateSessionBillingRequest{SessionID: sess.ID})
	s.Require().NoError(err)
	inv, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		InvoiceDate:       invoiceDate(),
		InvoiceNumber:     number,
		GeneratedBy:       types.DefaultUserID,
		SessionBillingIDs: []string{b.ID},
	})
	s.Require().NoError(err)
	return inv
}

func (s *PaymentServiceSuite) pay(amount string, paymentType types.PaymentType, invoiceIDs ...string) (*dto.PaymentResponse, error) {
	return s.service.ProcessPayment(s.GetContext(), dto.ProcessPaymentRequest{
		InvoiceIDs:  invoiceIDs,
		Amount:      dec(amount),
		PaymentType: paymentType,
		ProcessedBy: types.DefaultUserID,
	})
}

func (s *PaymentServiceSuite) invoiceStatus(id string) *dto.InvoiceResponse {
	inv, err := s.invoiceService.GetInvoice(s.GetContext(), id)
	s.Require().NoError(err)
	return inv
}

func (s *PaymentServiceSuite) TestProcessPayment() {
	notes := "paid at the front desk"
	resp, err := s.service.ProcessPayment(s.GetContext(), dto.ProcessPaymentRequest{
		InvoiceIDs:  []string{s.testData.invoiceA.ID},
		Amount:      dec("100.00"),
		PaymentType: types.PaymentTypeCash,
		ProcessedBy: types.DefaultUserID,
		Notes:       &notes,
	})
	s.Require().NoError(err)

	s.Equal([]string{s.testData.invoiceA.ID}, resp.InvoiceIDs)
	s.True(resp.Amount.Equal(dec("100")))
	s.Equal("RON", resp.Currency)
	s.Equal(types.PaymentTypeCash, resp.PaymentType)
	s.Equal(&notes, resp.Notes)
	s.Equal([]string{s.testData.sessionA.ID}, resp.SessionIDs)
	s.Equal([]string{s.testData.sessionA.PatientID}, resp.PatientIDs)

	inv := s.invoiceStatus(s.testData.invoiceA.ID)
	s.True(inv.OutstandingAmount.IsZero())
	s.Equal(types.PaymentStatusFullyPaid, inv.PaymentStatus)
	s.Equal([]string{resp.ID}, inv.PaymentIDs)

	published := s.GetPublisher().EventsByName(events.EventPaymentProcessed)
	s.Require().Len(published, 1)
	var payload events.PaymentProcessed
	s.Require().NoError(jsoniter.Unmarshal(published[0].Payload, &payload))
	s.Equal(resp.ID, payload.PaymentID)
	s.Equal([]string{s.testData.sessionA.PatientID}, payload.PatientIDs)
	s.Equal(types.PaymentTypeCash, payload.PaymentType)
}

func (s *PaymentServiceSuite) TestProcessPayment_AmountBoundary() {
	_, err := s.pay("100.01", types.PaymentTypeCard, s.testData.invoiceA.ID)
	s.Error(err)
	s.True(ierr.IsConflict(err))

	_, err = s.pay("100.00", types.PaymentTypeCard, s.testData.invoiceA.ID)
	s.NoError(err)
}

func (s *PaymentServiceSuite) TestProcessPayment_SeveralInvoices() {
	resp, err := s.pay("150", types.PaymentTypeBankTransfer, s.testData.invoiceB.ID, s.testData.invoiceA.ID)
	s.Require().NoError(err)

	s.Equal([]string{s.testData.sessionB.ID, s.testData.sessionA.ID}, resp.SessionIDs)
	s.Equal([]string{s.testData.sessionB.PatientID, s.testData.sessionA.PatientID}, resp.PatientIDs)

	// the amount applies jointly, each invoice sees the whole payment
	for _, id := range []string{s.testData.invoiceA.ID, s.testData.invoiceB.ID} {
		inv := s.invoiceStatus(id)
		s.Equal(types.PaymentStatusFullyPaid, inv.PaymentStatus)
		s.True(inv.TotalPaid.Equal(dec("150")))
	}

	_, err = s.pay("150.01", types.PaymentTypeCash, s.testData.invoiceA.ID, s.testData.invoiceB.ID)
	s.True(ierr.IsConflict(err))
}

func (s *PaymentServiceSuite) TestProcessPayment_DuplicateInvoiceIDs() {
	resp, err := s.pay("100", types.PaymentTypeCash, s.testData.invoiceA.ID, s.testData.invoiceA.ID)
	s.Require().NoError(err)
	s.Equal([]string{s.testData.invoiceA.ID}, resp.InvoiceIDs)
}

func (s *PaymentServiceSuite) TestProcessPayment_StatusIsMonotonic() {
	id := s.testData.invoiceA.ID
	s.Equal(types.PaymentStatusPending, s.invoiceStatus(id).PaymentStatus)

	_, err := s.pay("40", types.PaymentTypeCash, id)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusPartiallyPaid, s.invoiceStatus(id).PaymentStatus)

	_, err = s.pay("60", types.PaymentTypeInsurance, id)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusFullyPaid, s.invoiceStatus(id).PaymentStatus)

	_, err = s.pay("100", types.PaymentTypeRefund, id)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusFullyPaid, s.invoiceStatus(id).PaymentStatus)
}

func (s *PaymentServiceSuite) TestProcessPayment_RefundDoesNotCountAsPaid() {
	id := s.testData.invoiceA.ID
	_, err := s.pay("30", types.PaymentTypeRefund, id)
	s.Require().NoError(err)

	inv := s.invoiceStatus(id)
	s.True(inv.TotalPaid.IsZero())
	s.True(inv.OutstandingAmount.Equal(dec("100")))
	s.Equal(types.PaymentStatusPending, inv.PaymentStatus)
	s.Len(inv.PaymentIDs, 1)
}

func (s *PaymentServiceSuite) TestProcessPayment_RepeatedFullPaymentsAreAccepted() {
	// each payment is checked against the invoice total, not the outstanding amount
	_, err := s.pay("100", types.PaymentTypeCash, s.testData.invoiceA.ID)
	s.Require().NoError(err)
	_, err = s.pay("100", types.PaymentTypeCash, s.testData.invoiceA.ID)
	s.Require().NoError(err)

	inv := s.invoiceStatus(s.testData.invoiceA.ID)
	s.True(inv.TotalPaid.Equal(dec("200")))
	s.True(inv.OutstandingAmount.Equal(dec("-100")))
	s.Equal(types.PaymentStatusFullyPaid, inv.PaymentStatus)
}

func (s *PaymentServiceSuite) TestProcessPayment_Errors() {
	tests := []struct {
		name  string
		req   dto.ProcessPaymentRequest
		check func(error) bool
	}{
		{
			name:  "no invoices",
			req:   dto.ProcessPaymentRequest{Amount: dec("1"), PaymentType: types.PaymentTypeCash, ProcessedBy: types.DefaultUserID},
			check: ierr.IsValidation,
		},
		{
			name:  "zero amount",
			req:   dto.ProcessPaymentRequest{InvoiceIDs: []string{s.testData.invoiceA.ID}, Amount: dec("0"), PaymentType: types.PaymentTypeCash, ProcessedBy: types.DefaultUserID},
			check: ierr.IsValidation,
		},
		{
			name:  "unknown type",
			req:   dto.ProcessPaymentRequest{InvoiceIDs: []string{s.testData.invoiceA.ID}, Amount: dec("1"), PaymentType: "CHEQUE", ProcessedBy: types.DefaultUserID},
			check: ierr.IsValidation,
		},
		{
			name:  "missing processor",
			req:   dto.ProcessPaymentRequest{InvoiceIDs: []string{s.testData.invoiceA.ID}, Amount: dec("1"), PaymentType: types.PaymentTypeCash},
			check: ierr.IsValidation,
		},
		{
			name:  "bad currency",
			req:   dto.ProcessPaymentRequest{InvoiceIDs: []string{s.testData.invoiceA.ID}, Amount: dec("1"), PaymentType: types.PaymentTypeCash, ProcessedBy: types.DefaultUserID, Currency: "EURO"},
			check: ierr.IsValidation,
		},
		{
			name:  "unknown invoice",
			req:   dto.ProcessPaymentRequest{InvoiceIDs: []string{s.testData.invoiceA.ID, "missing"}, Amount: dec("1"), PaymentType: types.PaymentTypeCash, ProcessedBy: types.DefaultUserID},
			check: ierr.IsNotFound,
		},
		{
			name:  "unknown processor",
			req:   dto.ProcessPaymentRequest{InvoiceIDs: []string{s.testData.invoiceA.ID}, Amount: dec("1"), PaymentType: types.PaymentTypeCash, ProcessedBy: "nobody"},
			check: ierr.IsNotFound,
		},
		{
			name:  "exceeds total",
			req:   dto.ProcessPaymentRequest{InvoiceIDs: []string{s.testData.invoiceA.ID}, Amount: dec("500"), PaymentType: types.PaymentTypeCash, ProcessedBy: types.DefaultUserID},
			check: ierr.IsConflict,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			resp, err := s.service.ProcessPayment(s.GetContext(), tt.req)
			s.Error(err)
			s.Nil(resp)
			s.True(tt.check(err), "unexpected error: %v", err)
		})
	}

	count, err := s.GetStores().PaymentRepo.Count(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Zero(count)
	s.Empty(s.GetPublisher().Events())
}

func (s *PaymentServiceSuite) TestProcessPayment_Concurrent() {
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// alternate the invoice order to exercise lock ordering
			ids := []string{s.testData.invoiceA.ID, s.testData.invoiceB.ID}
			if i%2 == 1 {
				ids = lo.Reverse(ids)
			}
			_, errs[i] = s.pay("10", types.PaymentTypeCard, ids...)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		s.NoError(err)
	}
	inv := s.invoiceStatus(s.testData.invoiceA.ID)
	s.True(inv.TotalPaid.Equal(dec("80")))
	s.Len(inv.PaymentIDs, 8)
}

func (s *PaymentServiceSuite) TestGetAndListPayments() {
	first, err := s.pay("50", types.PaymentTypeCash, s.testData.invoiceA.ID)
	s.Require().NoError(err)
	_, err = s.pay("50", types.PaymentTypeCard, s.testData.invoiceB.ID)
	s.Require().NoError(err)

	got, err := s.service.GetPayment(s.GetContext(), first.ID)
	s.Require().NoError(err)
	s.Equal(first.ID, got.ID)
	s.Equal([]string{s.testData.sessionA.PatientID}, got.PatientIDs)

	_, err = s.service.GetPayment(s.GetContext(), "missing")
	s.True(ierr.IsNotFound(err))
	_, err = s.service.GetPayment(s.GetContext(), "")
	s.True(ierr.IsValidation(err))

	all, err := s.service.ListPayments(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Len(all.Items, 2)

	filter := types.NewPaymentFilter()
	filter.InvoiceID = lo.ToPtr(s.testData.invoiceA.ID)
	forInvoice, err := s.service.ListPayments(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(forInvoice.Items, 1)
	s.Equal(first.ID, forInvoice.Items[0].ID)

	filter = types.NewPaymentFilter()
	filter.PaymentType = lo.ToPtr(types.PaymentTypeCard)
	cards, err := s.service.ListPayments(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Len(cards.Items, 1)
	s.Equal(1, cards.Pagination.Total)
}
