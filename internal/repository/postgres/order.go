package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/emberwick/storefront/internal/domain/order"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/postgres"
	"github.com/emberwick/storefront/internal/types"
	"github.com/getsentry/sentry-go"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const orderColumns = `id, order_number, payment_intent_id, payment_status, status,
	customer_email, customer_name, shipping_address, items, subtotal, shipping,
	discount, discount_code, tax, total, currency, paid_at, created_at, updated_at`

type orderRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewOrderRepository creates an order repository on postgres
func NewOrderRepository(db *postgres.DB, logger *logger.Logger) order.Repository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	span := StartRepositorySpan(ctx, "order", "create", map[string]interface{}{
		"order_id":          o.ID,
		"payment_intent_id": o.PaymentIntentID,
	})
	defer FinishSpan(span)

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (
			:id, :order_number, :payment_intent_id, :payment_status, :status,
			:customer_email, :customer_name, :shipping_address, :items, :subtotal, :shipping,
			:discount, :discount_code, :tax, :total, :currency, :paid_at, :created_at, :updated_at
		)`

	r.logger.Debugw("creating order",
		"order_id", o.ID,
		"order_number", o.OrderNumber,
		"payment_intent_id", o.PaymentIntentID,
	)

	if _, err := r.db.NamedExecContext(ctx, query, o); err != nil {
		SetSpanError(span, err)
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("An order already exists for this payment").
				WithReportableDetails(map[string]any{
					"payment_intent_id": o.PaymentIntentID,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create order").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	span := StartRepositorySpan(ctx, "order", "get", map[string]interface{}{
		"order_id": id,
	})
	defer FinishSpan(span)

	return r.getOne(ctx, span, `SELECT `+orderColumns+` FROM orders WHERE id = :id`,
		map[string]interface{}{"id": id}, "id", id)
}

func (r *orderRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*order.Order, error) {
	span := StartRepositorySpan(ctx, "order", "get_by_payment_intent_id", map[string]interface{}{
		"payment_intent_id": paymentIntentID,
	})
	defer FinishSpan(span)

	return r.getOne(ctx, span, `SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = :payment_intent_id`,
		map[string]interface{}{"payment_intent_id": paymentIntentID}, "payment_intent_id", paymentIntentID)
}

func (r *orderRepository) getOne(ctx context.Context, span *sentry.Span, query string, params map[string]interface{}, key, value string) (*order.Order, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to get order").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("order not found").
			WithHintf("Order with %s %s was not found", key, value).
			WithReportableDetails(map[string]any{
				key: value,
			}).
			Mark(ierr.ErrNotFound)
	}

	var o order.Order
	if err := rows.StructScan(&o); err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to read order").
			Mark(ierr.ErrDatabase)
	}
	return &o, nil
}

func (r *orderRepository) List(ctx context.Context, filter *types.OrderFilter) ([]*order.Order, error) {
	span := StartRepositorySpan(ctx, "order", "list", nil)
	defer FinishSpan(span)

	if filter == nil {
		filter = &types.OrderFilter{}
	}
	filter.Normalize()

	where, params := orderFilterClause(filter)
	params["limit"] = filter.Limit
	params["offset"] = filter.Offset

	query := `SELECT ` + orderColumns + ` FROM orders` + where +
		` ORDER BY created_at DESC, id DESC LIMIT :limit OFFSET :offset`

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to list orders").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func (r *orderRepository) Count(ctx context.Context, filter *types.OrderFilter) (int, error) {
	span := StartRepositorySpan(ctx, "order", "count", nil)
	defer FinishSpan(span)

	where, params := orderFilterClause(filter)
	rows, err := r.db.NamedQueryContext(ctx, `SELECT COUNT(*) FROM orders`+where, params)
	if err != nil {
		SetSpanError(span, err)
		return 0, ierr.WithError(err).
			WithHint("Failed to count orders").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, ierr.WithError(err).
				WithHint("Failed to count orders").
				Mark(ierr.ErrDatabase)
		}
	}
	return count, nil
}

func (r *orderRepository) ApplyTransition(ctx context.Context, paymentIntentID string, t order.Transition, at time.Time) (*order.Order, bool, error) {
	span := StartRepositorySpan(ctx, "order", "apply_transition", map[string]interface{}{
		"payment_intent_id": paymentIntentID,
		"event":             string(t.Event),
	})
	defer FinishSpan(span)

	from := make([]string, len(t.From))
	for i, s := range t.From {
		from[i] = string(s)
	}

	// the status guard makes this a compare-and-swap: a replayed or stale
	// event matches no row
	query := `
		UPDATE orders
		SET payment_status = $1,
			status = $2,
			paid_at = CASE WHEN $3 THEN $4 ELSE paid_at END,
			updated_at = $4
		WHERE payment_intent_id = $5
		AND payment_status = ANY($6)
		RETURNING ` + orderColumns

	var o order.Order
	err := r.db.GetQuerier(ctx).GetContext(ctx, &o, query,
		string(t.PaymentStatus),
		string(t.Status),
		t.MarksPaid(),
		at,
		paymentIntentID,
		pq.Array(from),
	)
	if err != nil {
		if isNoRows(err) {
			r.logger.Debugw("order transition not applied",
				"payment_intent_id", paymentIntentID,
				"event", t.Event,
			)
			return nil, false, nil
		}
		SetSpanError(span, err)
		return nil, false, ierr.WithError(err).
			WithHint("Failed to update order status").
			WithReportableDetails(map[string]any{
				"payment_intent_id": paymentIntentID,
				"event":             string(t.Event),
			}).
			Mark(ierr.ErrDatabase)
	}

	return &o, true, nil
}

func (r *orderRepository) ListStalePending(ctx context.Context, olderThan, notBefore time.Time, limit int) ([]*order.Order, error) {
	span := StartRepositorySpan(ctx, "order", "list_stale_pending", map[string]interface{}{
		"older_than": olderThan,
		"not_before": notBefore,
	})
	defer FinishSpan(span)

	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE payment_status = :payment_status
		AND created_at < :older_than`
	params := map[string]interface{}{
		"payment_status": string(types.PaymentStatusPending),
		"older_than":     olderThan,
		"limit":          limit,
	}
	if !notBefore.IsZero() {
		query += ` AND created_at > :not_before`
		params["not_before"] = notBefore
	}
	query += ` ORDER BY created_at ASC LIMIT :limit`

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to list pending orders").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func orderFilterClause(filter *types.OrderFilter) (string, map[string]interface{}) {
	params := map[string]interface{}{}
	var conditions []string
	if filter != nil && filter.PaymentStatus != nil {
		conditions = append(conditions, "payment_status = :payment_status")
		params["payment_status"] = string(*filter.PaymentStatus)
	}
	if len(conditions) == 0 {
		return "", params
	}
	return " WHERE " + strings.Join(conditions, " AND "), params
}

func scanOrders(rows *sqlx.Rows) ([]*order.Order, error) {
	orders := make([]*order.Order, 0)
	for rows.Next() {
		var o order.Order
		if err := rows.StructScan(&o); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to read order").
				Mark(ierr.ErrDatabase)
		}
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read orders").
			Mark(ierr.ErrDatabase)
	}
	return orders, nil
}
