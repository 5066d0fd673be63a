package testutil

import (
	"context"
	"time"

	"github.com/emberwick/storefront/internal/cache"
	"github.com/emberwick/storefront/internal/config"
	"github.com/emberwick/storefront/internal/domain/discount"
	"github.com/emberwick/storefront/internal/domain/order"
	"github.com/emberwick/storefront/internal/domain/webhookevent"
	"github.com/emberwick/storefront/internal/idempotency"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/types"
	"github.com/emberwick/storefront/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	DiscountRepo     discount.Repository
	OrderRepo        order.Repository
	WebhookEventRepo webhookevent.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx         context.Context
	stores      Stores
	db          *MockPostgresClient
	cache       cache.Cache
	gateway     *MockPaymentGateway
	notifier    *InMemoryNotifier
	idempotency *idempotency.Generator
	logger      *logger.Logger
	config      *config.Configuration
	now         time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	// Initialize validator
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	cfg.Stripe.WebhookSecret = TestWebhookSecret
	s.config = cfg

	var err error
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}

	s.idempotency = idempotency.NewGenerator()
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		DiscountRepo:     NewInMemoryDiscountStore(),
		OrderRepo:        NewInMemoryOrderStore(),
		WebhookEventRepo: NewInMemoryWebhookEventStore(),
	}

	s.db = NewMockPostgresClient(s.logger)
	s.cache = cache.NewInMemoryCache(s.config)
	s.gateway = NewMockPaymentGateway()
	s.notifier = NewInMemoryNotifier()
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.DiscountRepo.(*InMemoryDiscountStore).Clear()
	s.stores.OrderRepo.(*InMemoryOrderStore).Clear()
	s.stores.WebhookEventRepo.(*InMemoryWebhookEventStore).Clear()
	s.cache.Flush(context.Background())
	s.gateway.Reset()
	s.notifier.Clear()
}

func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
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

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetGateway returns the fake payment processor
func (s *BaseServiceTestSuite) GetGateway() *MockPaymentGateway {
	return s.gateway
}

// GetNotifier returns the recorded order notifications
func (s *BaseServiceTestSuite) GetNotifier() *InMemoryNotifier {
	return s.notifier
}

// GetIdempotency returns the idempotency key generator
func (s *BaseServiceTestSuite) GetIdempotency() *idempotency.Generator {
	return s.idempotency
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now.UTC()
}

// GetUUID returns a new UUID string
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
