package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/emberwick/storefront/internal/api/cron"
	"github.com/emberwick/storefront/internal/api/dto"
	v1 "github.com/emberwick/storefront/internal/api/v1"
	"github.com/emberwick/storefront/internal/auth"
	"github.com/emberwick/storefront/internal/domain/discount"
	"github.com/emberwick/storefront/internal/domain/order"
	"github.com/emberwick/storefront/internal/sentry"
	"github.com/emberwick/storefront/internal/service"
	"github.com/emberwick/storefront/internal/testutil"
	"github.com/emberwick/storefront/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminEmail    = "owner@emberwick.test"
	adminPassword = "wick-and-wax"
)

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	router *gin.Engine
	orders *testutil.InMemoryOrderStore
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupSuite() {
	s.BaseServiceTestSuite.SetupSuite()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	s.Require().NoError(err)

	cfg := s.GetConfig()
	cfg.Auth.JWTSecret = "router-test-secret"
	cfg.Auth.AdminEmail = adminEmail
	cfg.Auth.AdminPasswordHash = string(hash)
	cfg.Server.AllowedOrigins = []string{"https://shop.emberwick.test"}
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	cfg := s.GetConfig()
	stores := s.GetStores()
	sentrySvc := sentry.NewSentryService(cfg, s.GetLogger())

	params := service.NewServiceParams(
		s.GetLogger(),
		cfg,
		s.GetDB(),
		s.GetCache(),
		sentrySvc,
		stores.DiscountRepo,
		stores.OrderRepo,
		stores.WebhookEventRepo,
		s.GetGateway(),
		s.GetNotifier(),
		s.GetIdempotency(),
	)

	provider, err := auth.NewLocalAuth(cfg)
	s.Require().NoError(err)

	discountService := service.NewDiscountService(params)
	webhookService := service.NewWebhookService(params)
	authService := service.NewAuthService(params, provider)

	handlers := Handlers{
		Health:        v1.NewHealthHandler(s.GetLogger()),
		Checkout:      v1.NewCheckoutHandler(service.NewCheckoutService(params, discountService), discountService, s.GetLogger()),
		Webhook:       v1.NewWebhookHandler(webhookService, s.GetLogger()),
		Auth:          v1.NewAuthHandler(cfg, authService, s.GetLogger()),
		Order:         v1.NewOrderHandler(service.NewOrderService(params), s.GetLogger()),
		CronReconcile: cron.NewReconcileCronHandler(s.GetLogger(), service.NewReconcileService(params, webhookService)),
	}
	s.router = NewRouter(handlers, cfg, s.GetLogger(), sentrySvc, authService)

	s.orders = stores.OrderRepo.(*testutil.InMemoryOrderStore)
	s.Require().NoError(stores.DiscountRepo.(*testutil.InMemoryDiscountStore).CreateDiscount(s.GetContext(), &discount.Discount{
		Code:   "SAVE10",
		Type:   types.DiscountTypePercentage,
		Value:  decimal.NewFromInt(10),
		Active: true,
	}))
}

func (s *RouterSuite) do(method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		s.Require().NoError(json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *RouterSuite) errorMessage(w *httptest.ResponseRecorder) string {
	body := s.decode(w)
	s.Equal(false, body["success"])
	detail, ok := body["error"].(map[string]interface{})
	s.Require().True(ok, w.Body.String())
	msg, _ := detail["message"].(string)
	return msg
}

func (s *RouterSuite) login() *http.Cookie {
	w := s.do(http.MethodPost, "/admin/login", dto.LoginRequest{Email: adminEmail, Password: adminPassword})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	for _, c := range w.Result().Cookies() {
		if c.Name == s.GetConfig().Auth.CookieName {
			return c
		}
	}
	s.FailNow("session cookie not set")
	return nil
}

func (s *RouterSuite) seedOrder(paymentIntentID string) *order.Order {
	o := &order.Order{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER),
		OrderNumber:     types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_ORDER),
		PaymentIntentID: paymentIntentID,
		PaymentStatus:   types.PaymentStatusPending,
		Status:          types.OrderStatusPending,
		Total:           decimal.RequireFromString("53.69"),
		Currency:        "usd",
		CreatedAt:       s.GetNow(),
		UpdatedAt:       s.GetNow(),
	}
	s.Require().NoError(s.orders.Create(s.GetContext(), o))
	return o
}

func (s *RouterSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("ok", s.decode(w)["status"])
	s.NotEmpty(w.Header().Get(types.HeaderRequestID))
}

func (s *RouterSuite) TestRequestIDIsEchoed() {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(types.HeaderRequestID, "req_from_edge")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal("req_from_edge", w.Header().Get(types.HeaderRequestID))
}

func (s *RouterSuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/checkout/create-payment-intent", nil)
	req.Header.Set("Origin", "https://shop.emberwick.test")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusNoContent, w.Code)
	s.Equal("https://shop.emberwick.test", w.Header().Get("Access-Control-Allow-Origin"))
	s.Equal("true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/checkout/create-payment-intent", nil)
	req.Header.Set("Origin", "https://elsewhere.test")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Empty(w.Header().Get("Access-Control-Allow-Origin"))
}

func (s *RouterSuite) TestValidateDiscount() {
	w := s.do(http.MethodPost, "/checkout/validate-discount", map[string]interface{}{"code": "save10", "subtotal": 50})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	body := s.decode(w)
	s.Equal(true, body["valid"])
	s.Equal("SAVE10", body["code"])
	s.Equal("percentage", body["discountType"])
	s.Equal(float64(5), body["discountValue"])
	s.Equal("10% off your order!", body["message"])
}

func (s *RouterSuite) TestValidateDiscount_UnknownCode() {
	w := s.do(http.MethodPost, "/checkout/validate-discount", map[string]interface{}{"code": "NOPE", "subtotal": 50})
	s.Require().Equal(http.StatusOK, w.Code)

	body := s.decode(w)
	s.Equal(false, body["valid"])
	s.Equal(discount.MessageInvalidCode, body["error"])
	s.NotContains(body, "discountValue")
}

func (s *RouterSuite) TestValidateDiscount_MissingCode() {
	w := s.do(http.MethodPost, "/checkout/validate-discount", map[string]interface{}{"code": "  ", "subtotal": 50})
	s.Require().Equal(http.StatusBadRequest, w.Code)

	body := s.decode(w)
	s.Equal(false, body["valid"])
	s.Equal(discount.MessageCodeRequired, body["error"])
}

func (s *RouterSuite) TestCreatePaymentIntent() {
	w := s.do(http.MethodPost, "/checkout/create-payment-intent", map[string]interface{}{
		"items": []map[string]interface{}{
			{"productId": "candle-amber", "price": 25, "quantity": 2},
			{"productId": "candle-cedar", "price": 50, "quantity": 1},
		},
		"shippingAddress": map[string]interface{}{"name": "Ada Lovelace", "country": "us"},
		"shippingCost":    5.99,
		"customerEmail":   "ada@example.com",
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	body := s.decode(w)
	s.Equal(float64(11199), body["amount"])
	s.NotEmpty(body["clientSecret"])
	s.NotEmpty(body["paymentIntentId"])
	s.NotEmpty(body["orderId"])
}

func (s *RouterSuite) TestCreatePaymentIntent_EmptyCart() {
	w := s.do(http.MethodPost, "/checkout/create-payment-intent", map[string]interface{}{
		"items":        []interface{}{},
		"shippingCost": 5.99,
	})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("No items in cart", s.errorMessage(w))
	s.Empty(s.GetGateway().Requests())
}

func (s *RouterSuite) TestCreatePaymentIntent_ProcessorNotConfigured() {
	s.GetGateway().SetConfigured(false)

	w := s.do(http.MethodPost, "/checkout/create-payment-intent", map[string]interface{}{
		"items": []map[string]interface{}{{"productId": "candle-amber", "price": 25, "quantity": 1}},
	})
	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("Payment system unavailable", s.errorMessage(w))
}

func (s *RouterSuite) TestCreatePaymentIntent_ProcessorNotConfiguredMalformedBody() {
	s.GetGateway().SetConfigured(false)

	w := s.do(http.MethodPost, "/checkout/create-payment-intent", []byte(`{"items": "candles"`))
	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("Payment system unavailable", s.errorMessage(w))
	s.Empty(s.GetGateway().Requests())
}

func (s *RouterSuite) TestCreatePaymentIntent_MalformedBody() {
	w := s.do(http.MethodPost, "/checkout/create-payment-intent", []byte(`{"items": "candles"`))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Please check the request payload", s.errorMessage(w))
}

func (s *RouterSuite) TestPaymentWebhook_Succeeded() {
	s.seedOrder("pi_router_ok")
	payload, signature := testutil.SignedWebhook("evt_router_ok", types.PaymentEventIntentSucceeded, "pi_router_ok")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set(types.HeaderStripeSignature, signature)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(true, s.decode(w)["received"])

	o, err := s.orders.GetByPaymentIntentID(s.GetContext(), "pi_router_ok")
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusPaid, o.PaymentStatus)
	s.Equal(types.OrderStatusProcessing, o.Status)
}

func (s *RouterSuite) TestPaymentWebhook_ForgedSignature() {
	s.seedOrder("pi_router_forged")
	payload, _ := testutil.SignedWebhook("evt_router_forged", types.PaymentEventIntentSucceeded, "pi_router_forged")
	writesBefore := s.orders.Writes()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set(types.HeaderStripeSignature, "t=1700000000,v1=deadbeef")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(writesBefore, s.orders.Writes())

	o, err := s.orders.GetByPaymentIntentID(s.GetContext(), "pi_router_forged")
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusPending, o.PaymentStatus)
	s.Empty(s.GetNotifier().Messages())
}

func (s *RouterSuite) TestPaymentWebhook_UnknownOrderIsAcknowledged() {
	payload, signature := testutil.SignedWebhook("evt_router_orphan", types.PaymentEventIntentSucceeded, "pi_nobody")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set(types.HeaderStripeSignature, signature)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusOK, w.Code)
	s.Equal(true, s.decode(w)["received"])
}

func (s *RouterSuite) TestAdminRoutesRequireSession() {
	for _, path := range []string{"/admin/me", "/admin/orders", "/admin/orders/ord_missing"} {
		w := s.do(http.MethodGet, path, nil)
		s.Equal(http.StatusUnauthorized, w.Code, path)
	}

	w := s.do(http.MethodGet, "/admin/orders", nil, &http.Cookie{Name: s.GetConfig().Auth.CookieName, Value: "not-a-jwt"})
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *RouterSuite) TestAdminLogin_BadPassword() {
	w := s.do(http.MethodPost, "/admin/login", dto.LoginRequest{Email: adminEmail, Password: "guess"})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("Invalid email or password", s.errorMessage(w))
	s.Empty(w.Result().Cookies())
}

func (s *RouterSuite) TestAdminSession() {
	cookie := s.login()
	s.True(cookie.HttpOnly)
	s.Equal(http.SameSiteLaxMode, cookie.SameSite)
	s.Positive(cookie.MaxAge)

	w := s.do(http.MethodGet, "/admin/me", nil, cookie)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	body := s.decode(w)
	s.Equal(adminEmail, body["user_id"])
	s.Equal(auth.RoleAdmin, body["role"])

	w = s.do(http.MethodPost, "/admin/logout", nil, cookie)
	s.Require().Equal(http.StatusOK, w.Code)
	cleared := w.Result().Cookies()
	s.Require().Len(cleared, 1)
	s.Empty(cleared[0].Value)
	s.Negative(cleared[0].MaxAge)
}

func (s *RouterSuite) TestAdminOrders() {
	paid := s.seedOrder("pi_admin_paid")
	s.seedOrder("pi_admin_pending")
	transition, ok := order.TransitionFor(types.PaymentEventIntentSucceeded)
	s.Require().True(ok)
	_, applied, err := s.orders.ApplyTransition(s.GetContext(), "pi_admin_paid", transition, s.GetNow())
	s.Require().NoError(err)
	s.Require().True(applied)

	cookie := s.login()

	w := s.do(http.MethodGet, "/admin/orders?payment_status=paid", nil, cookie)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	body := s.decode(w)
	items, isList := body["items"].([]interface{})
	s.Require().True(isList)
	s.Require().Len(items, 1)
	s.Equal(paid.ID, items[0].(map[string]interface{})["id"])

	w = s.do(http.MethodGet, "/admin/orders/"+paid.ID, nil, cookie)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("paid", s.decode(w)["payment_status"])

	w = s.do(http.MethodGet, "/admin/orders/ord_missing", nil, cookie)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/admin/orders?payment_status=lost", nil, cookie)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterSuite) TestCronReconcile() {
	cookie := s.login()

	w := s.do(http.MethodPost, "/admin/cron/reconcile", nil, cookie)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(float64(0), s.decode(w)["checked"])
}

func (s *RouterSuite) TestCronReconcile_FailureShowsSweepSummary() {
	cookie := s.login()
	createdAt := s.GetNow().Add(-time.Hour)
	s.Require().NoError(s.orders.Create(s.GetContext(), &order.Order{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER),
		PaymentIntentID: "pi_lookup_fails",
		PaymentStatus:   types.PaymentStatusPending,
		Status:          types.OrderStatusPending,
		Total:           decimal.RequireFromString("20.00"),
		Currency:        "usd",
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}))
	s.GetGateway().FailRetrieve(errors.New("rate limited"))

	w := s.do(http.MethodPost, "/admin/cron/reconcile", nil, cookie)
	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("1 of 1 stale orders could not be reconciled", s.errorMessage(w))
}
