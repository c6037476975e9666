package testutil

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/policlinic/backoffice/internal/config"
	"github.com/policlinic/backoffice/internal/domain/billing"
	"github.com/policlinic/backoffice/internal/domain/session"
	"github.com/policlinic/backoffice/internal/domain/user"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/sentry"
	"github.com/policlinic/backoffice/internal/types"
	"github.com/policlinic/backoffice/internal/validator"
)

// Stores holds the in-memory repositories and collaborators used by service tests
type Stores struct {
	BillingRepo     *InMemoryBillingStore
	InvoiceRepo     *InMemoryInvoiceStore
	PaymentRepo     *InMemoryPaymentStore
	SessionProvider *InMemorySessionProvider
	UserDirectory   *InMemoryUserStore
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	stores    Stores
	publisher *InMemoryEventPublisher
	db        *MockPostgresClient
	logger    *logger.Logger
	sentry    *sentry.Service
	config    *config.Configuration
	now       time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	cfg.Sentry.Enabled = false
	cfg.Cache.Enabled = false
	s.config = cfg

	var err error
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
	s.sentry = sentry.NewSentryService(cfg, s.logger)
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.stores = Stores{
		BillingRepo:     NewInMemoryBillingStore(),
		InvoiceRepo:     NewInMemoryInvoiceStore(),
		PaymentRepo:     NewInMemoryPaymentStore(),
		SessionProvider: NewInMemorySessionProvider(),
		UserDirectory:   NewInMemoryUserStore(),
	}
	s.publisher = NewInMemoryEventPublisher()
	s.db = NewMockPostgresClient(s.logger)
	s.now = time.Now().UTC()

	s.stores.UserDirectory.AddUser(&user.User{
		ID:       types.DefaultUserID,
		Username: "system",
		FullName: "System",
		Role:     "admin",
	})
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.ClearStores()
}

func (s *BaseServiceTestSuite) ClearStores() {
	s.stores.BillingRepo.Clear()
	s.stores.InvoiceRepo.Clear()
	s.stores.PaymentRepo.Clear()
	s.stores.SessionProvider.Clear()
	s.stores.UserDirectory.Clear()
	s.publisher.Clear()
}

// CreateUser registers a staff member and returns it
func (s *BaseServiceTestSuite) CreateUser(username string) *user.User {
	u := &user.User{
		ID:       types.GenerateUUID(),
		Username: username,
		FullName: username,
		Role:     "staff",
	}
	s.stores.UserDirectory.AddUser(u)
	return u
}

// CreateSession registers a session with one consultation per price. An
// empty price string stands for a consultation without a price.
func (s *BaseServiceTestSuite) CreateSession(status types.SessionStatus, prices ...string) *session.Session {
	charges := make([]billing.ConsultationCharge, 0, len(prices))
	for i, p := range prices {
		charge := billing.ConsultationCharge{
			Name:     "Consultation " + string(rune('A'+i)),
			Currency: "RON",
		}
		if p != "" {
			price := decimal.RequireFromString(p)
			charge.Price = &price
		}
		charges = append(charges, charge)
	}

	sess := &session.Session{
		ID:            types.GenerateUUID(),
		PatientID:     types.GenerateUUID(),
		DoctorID:      types.GenerateUUID(),
		Status:        status,
		ScheduledAt:   s.now,
		Consultations: charges,
	}
	s.stores.SessionProvider.AddSession(sess)
	return sess
}

// CreateCompletedSession registers a billable session
func (s *BaseServiceTestSuite) CreateCompletedSession(prices ...string) *session.Session {
	return s.CreateSession(types.SessionStatusCompleted, prices...)
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetPublisher returns the test event publisher
func (s *BaseServiceTestSuite) GetPublisher() *InMemoryEventPublisher {
	return s.publisher
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetSentry returns a sentry service with reporting disabled
func (s *BaseServiceTestSuite) GetSentry() *sentry.Service {
	return s.sentry
}
