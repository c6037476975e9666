package handler

import (
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/suite"

	"github.com/policlinic/backoffice/internal/config"
	"github.com/policlinic/backoffice/internal/domain/events"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/idempotency"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/testutil"
	"github.com/policlinic/backoffice/internal/types"
	"github.com/policlinic/backoffice/internal/webhook/payload"
)

type HandlerSuite struct {
	suite.Suite
	client  *testutil.MockHTTPClient
	handler Handler
}

func TestHandler(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	cfg := config.GetDefaultConfig()
	cfg.Webhook = config.Webhook{
		Enabled:        true,
		Endpoint:       "https://hooks.example.com/billing",
		Headers:        map[string]string{"Authorization": "Bearer secret"},
		ExcludedEvents: []string{events.EventSessionBillingCalculated},
	}
	s.client = testutil.NewMockHTTPClient()
	s.handler = NewHandler(testutil.NewInMemoryPubSub(), cfg, s.client, logger.NewNoopLogger())
}

func (s *HandlerSuite) newMessage(event *events.Event) *message.Message {
	body, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(event)
	s.Require().NoError(err)
	return message.NewMessage(event.ID, body)
}

func (s *HandlerSuite) invoiceCreated() *events.Event {
	return &events.Event{
		ID:          "evt-1",
		EventName:   events.EventInvoiceCreated,
		AggregateID: "inv-1",
		UserID:      "user-1",
		Timestamp:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Payload:     jsoniter.RawMessage(`{"invoice_id":"inv-1","invoice_number":"INV-1"}`),
	}
}

func (s *HandlerSuite) TestDeliversEvent() {
	s.client.RegisterResponse("/billing", testutil.MockResponse{StatusCode: 200})

	s.Require().NoError(s.handler.ProcessMessage(s.newMessage(s.invoiceCreated())))

	reqs := s.client.Requests()
	s.Require().Len(reqs, 1)
	req := reqs[0]
	s.Equal("POST", req.Method)
	s.Equal("https://hooks.example.com/billing", req.URL)
	s.Equal("Bearer secret", req.Headers["Authorization"])
	s.Equal(
		idempotency.NewGenerator().GenerateKey(idempotency.ScopeWebhookDelivery, map[string]interface{}{"event_id": "evt-1"}),
		req.Headers[HeaderIdempotencyKey],
	)

	var body payload.WebhookPayload
	s.Require().NoError(jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(req.Body, &body))
	s.Equal(events.EventInvoiceCreated, body.EventType)
	s.Equal("evt-1", body.EventID)
	s.Equal("inv-1", body.AggregateID)
	s.JSONEq(`{"invoice_id":"inv-1","invoice_number":"INV-1"}`, string(body.Data))
}

func (s *HandlerSuite) TestRedeliveryReusesIdempotencyKey() {
	s.client.RegisterResponse("/billing", testutil.MockResponse{StatusCode: 200})

	s.Require().NoError(s.handler.ProcessMessage(s.newMessage(s.invoiceCreated())))
	s.Require().NoError(s.handler.ProcessMessage(s.newMessage(s.invoiceCreated())))

	reqs := s.client.Requests()
	s.Require().Len(reqs, 2)
	s.Equal(reqs[0].Headers[HeaderIdempotencyKey], reqs[1].Headers[HeaderIdempotencyKey])
}

func (s *HandlerSuite) TestEndpointFailureIsReturnedForRetry() {
	s.client.RegisterResponse("/billing", testutil.MockResponse{StatusCode: 503})

	err := s.handler.ProcessMessage(s.newMessage(s.invoiceCreated()))
	s.Require().Error(err)
	s.True(ierr.IsHTTPClient(err))
}

func (s *HandlerSuite) TestExcludedEventIsSkipped() {
	event := s.invoiceCreated()
	event.EventName = events.EventSessionBillingCalculated

	s.NoError(s.handler.ProcessMessage(s.newMessage(event)))
	s.Empty(s.client.Requests())
}

func (s *HandlerSuite) TestMalformedMessageIsAcked() {
	msg := message.NewMessage("bad", []byte("{not json"))

	s.NoError(s.handler.ProcessMessage(msg))
	s.Empty(s.client.Requests())
}

func (s *HandlerSuite) TestRequestContextIsPropagated() {
	s.client.RegisterResponse("/billing", testutil.MockResponse{StatusCode: 200})
	event := s.invoiceCreated()
	event.RequestID = "req-42"

	s.Require().NoError(s.handler.ProcessMessage(s.newMessage(event)))
	s.Equal("req-42", types.GetRequestID(s.client.LastContext()))
}
