package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/emberwick/storefront/internal/domain/discount"
	"github.com/emberwick/storefront/internal/domain/order"
	"github.com/emberwick/storefront/internal/domain/webhookevent"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/postgres"
	"github.com/emberwick/storefront/internal/types"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type RepositorySuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	db        *postgres.DB
	discounts discount.Repository
	orders    order.Repository
	events    webhookevent.Repository
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration tests in short mode")
	}
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupSuite() {
	s.ctx = context.Background()

	ctr, err := tcpostgres.Run(s.ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("storefront"),
		tcpostgres.WithUsername("storefront"),
		tcpostgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = ctr

	dsn, err := ctr.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	sqlxDB, err := sqlx.Connect("postgres", dsn)
	s.Require().NoError(err)

	log := logger.NewNopLogger()
	migrator, err := postgres.NewMigrator(sqlxDB.DB, "", log)
	s.Require().NoError(err)
	s.Require().NoError(migrator.Up())

	s.db = postgres.NewFromSqlx(sqlxDB, log, nil, 0)
	s.discounts = NewDiscountRepository(s.db, log)
	s.orders = NewOrderRepository(s.db, log)
	s.events = NewWebhookEventRepository(s.db, log)
}

func (s *RepositorySuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		if err := testcontainers.TerminateContainer(s.container); err != nil {
			s.T().Logf("failed to terminate container: %s", err)
		}
	}
}

func (s *RepositorySuite) SetupTest() {
	_, err := s.db.ExecContext(s.ctx, `TRUNCATE discount_codes, orders, processed_webhook_events`)
	s.Require().NoError(err)
}

func (s *RepositorySuite) insertDiscount(code string, active bool, maxUses *int, uses int) {
	_, err := s.db.ExecContext(s.ctx, `
		INSERT INTO discount_codes (id, code, type, value, active, max_uses, uses)
		VALUES ($1, $2, 'percentage', 10, $3, $4, $5)`,
		types.GenerateUUIDWithPrefix("dsc"), code, active, maxUses, uses)
	s.Require().NoError(err)
}

func (s *RepositorySuite) newOrder(paymentIntentID string) *order.Order {
	now := time.Now().UTC()
	return &order.Order{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER),
		OrderNumber:     types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_ORDER),
		PaymentIntentID: paymentIntentID,
		PaymentStatus:   types.PaymentStatusPending,
		Status:          types.OrderStatusPending,
		CustomerEmail:   "buyer@example.com",
		CustomerName:    "Jane Buyer",
		ShippingAddress: order.Address{Line1: "1 Wick Lane", City: "Portland", State: "OR", PostalCode: "97201", Country: "US"},
		Items: order.Items{
			{ProductID: "candle-cedar", Price: decimal.RequireFromString("25.00"), Quantity: 2},
		},
		Subtotal:  decimal.RequireFromString("50.00"),
		Shipping:  decimal.RequireFromString("5.99"),
		Discount:  decimal.Zero,
		Tax:       decimal.RequireFromString("3.00"),
		Total:     decimal.RequireFromString("58.99"),
		Currency:  types.DefaultCurrency,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *RepositorySuite) TestDiscountLookupIsCaseInsensitive() {
	s.insertDiscount("SAVE10", true, nil, 0)

	d, err := s.discounts.GetActiveByCode(s.ctx, " save10 ")
	s.Require().NoError(err)
	s.Equal("SAVE10", d.Code)
	s.Equal(types.DiscountTypePercentage, d.Type)
	s.True(d.Value.Equal(decimal.NewFromInt(10)))
	s.Nil(d.MaxUses)
	s.False(d.MinPurchase.Valid)
}

func (s *RepositorySuite) TestInactiveDiscountIsNotFound() {
	s.insertDiscount("OLD", false, nil, 0)

	_, err := s.discounts.GetActiveByCode(s.ctx, "OLD")
	s.True(ierr.IsNotFound(err))
}

func (s *RepositorySuite) TestIncrementUsesRespectsCap() {
	s.insertDiscount("LIMITED", true, lo.ToPtr(5), 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.discounts.IncrementUses(s.ctx, "LIMITED")
			s.NoError(err)
			if ok {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(5, applied)
	d, err := s.discounts.GetActiveByCode(s.ctx, "LIMITED")
	s.Require().NoError(err)
	s.Equal(5, d.Uses)
}

func (s *RepositorySuite) TestOrderRoundTrip() {
	o := s.newOrder("pi_roundtrip")
	s.Require().NoError(s.orders.Create(s.ctx, o))

	got, err := s.orders.GetByPaymentIntentID(s.ctx, "pi_roundtrip")
	s.Require().NoError(err)
	s.Equal(o.ID, got.ID)
	s.Equal("Portland", got.ShippingAddress.City)
	s.Require().Len(got.Items, 1)
	s.Equal(int64(2), got.Items[0].Quantity)
	s.True(got.Total.Equal(o.Total))

	err = s.orders.Create(s.ctx, s.newOrder("pi_roundtrip"))
	s.True(ierr.IsAlreadyExists(err))

	_, err = s.orders.Get(s.ctx, "ord_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *RepositorySuite) TestApplyTransitionIsCompareAndSwap() {
	s.Require().NoError(s.orders.Create(s.ctx, s.newOrder("pi_cas")))
	paid, _ := order.TransitionFor(types.PaymentEventIntentSucceeded)
	refunded, _ := order.TransitionFor(types.PaymentEventChargeRefunded)
	now := time.Now().UTC()

	updated, ok, err := s.orders.ApplyTransition(s.ctx, "pi_cas", paid, now)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(types.PaymentStatusPaid, updated.PaymentStatus)
	s.Equal(types.OrderStatusProcessing, updated.Status)
	s.NotNil(updated.PaidAt)

	_, ok, err = s.orders.ApplyTransition(s.ctx, "pi_cas", paid, now)
	s.Require().NoError(err)
	s.False(ok, "replaying succeeded must not match")

	_, ok, err = s.orders.ApplyTransition(s.ctx, "pi_cas", refunded, now)
	s.Require().NoError(err)
	s.True(ok)

	_, ok, err = s.orders.ApplyTransition(s.ctx, "pi_cas", paid, now)
	s.Require().NoError(err)
	s.False(ok, "succeeded after refunded must not match")

	_, ok, err = s.orders.ApplyTransition(s.ctx, "pi_unknown", paid, now)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RepositorySuite) TestListAndStalePending() {
	old := s.newOrder("pi_old")
	old.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	s.Require().NoError(s.orders.Create(s.ctx, old))
	s.Require().NoError(s.orders.Create(s.ctx, s.newOrder("pi_new")))

	ancient := s.newOrder("pi_ancient")
	ancient.CreatedAt = time.Now().UTC().Add(-72 * time.Hour)
	s.Require().NoError(s.orders.Create(s.ctx, ancient))

	stale, err := s.orders.ListStalePending(s.ctx, time.Now().UTC().Add(-30*time.Minute), time.Time{}, 10)
	s.Require().NoError(err)
	s.Require().Len(stale, 2)
	s.Equal("pi_ancient", stale[0].PaymentIntentID)
	s.Equal("pi_old", stale[1].PaymentIntentID)

	stale, err = s.orders.ListStalePending(s.ctx, time.Now().UTC().Add(-30*time.Minute), time.Now().UTC().Add(-24*time.Hour), 10)
	s.Require().NoError(err)
	s.Require().Len(stale, 1)
	s.Equal("pi_old", stale[0].PaymentIntentID)

	filter := &types.OrderFilter{PaymentStatus: lo.ToPtr(types.PaymentStatusPending)}
	filter.Normalize()
	list, err := s.orders.List(s.ctx, filter)
	s.Require().NoError(err)
	s.Len(list, 3)
	s.Equal("pi_new", list[0].PaymentIntentID)

	count, err := s.orders.Count(s.ctx, filter)
	s.Require().NoError(err)
	s.Equal(3, count)
}

func (s *RepositorySuite) TestWebhookLedgerAndTransaction() {
	evt := &webhookevent.ProcessedEvent{
		EventID:         "evt_1",
		EventType:       string(types.PaymentEventIntentSucceeded),
		PaymentIntentID: "pi_1",
		ProcessedAt:     time.Now().UTC(),
	}

	inserted, err := s.events.MarkProcessed(s.ctx, evt)
	s.Require().NoError(err)
	s.True(inserted)

	inserted, err = s.events.MarkProcessed(s.ctx, evt)
	s.Require().NoError(err)
	s.False(inserted)

	exists, err := s.events.Exists(s.ctx, "evt_1")
	s.Require().NoError(err)
	s.True(exists)

	// a failed unit of work leaves no ledger row behind
	rolledBack := &webhookevent.ProcessedEvent{EventID: "evt_2", EventType: "charge.refunded", ProcessedAt: time.Now().UTC()}
	err = s.db.WithTx(s.ctx, func(ctx context.Context) error {
		if _, err := s.events.MarkProcessed(ctx, rolledBack); err != nil {
			return err
		}
		return ierr.NewError("boom").Mark(ierr.ErrSystem)
	})
	s.Error(err)

	exists, err = s.events.Exists(s.ctx, "evt_2")
	s.Require().NoError(err)
	s.False(exists)
}
