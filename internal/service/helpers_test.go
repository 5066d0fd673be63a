package service

import (
	"github.com/emberwick/storefront/internal/domain/checkout"
	"github.com/emberwick/storefront/internal/sentry"
	"github.com/emberwick/storefront/internal/testutil"
	"github.com/shopspring/decimal"
)

func newServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		s.GetDB(),
		s.GetCache(),
		sentry.NewSentryService(s.GetConfig(), s.GetLogger()),
		stores.DiscountRepo,
		stores.OrderRepo,
		stores.WebhookEventRepo,
		s.GetGateway(),
		s.GetNotifier(),
		s.GetIdempotency(),
	)
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func lineItem(productID, price string, qty int64) checkout.LineItem {
	return checkout.LineItem{
		ProductID: productID,
		Name:      productID,
		Price:     dec(price),
		Quantity:  qty,
	}
}
