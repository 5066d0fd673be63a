package supabase

import (
	"context"
	"time"

	"github.com/emberwick/storefront/internal/domain/order"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/types"
	supa "github.com/nedpals/supabase-go"
	"github.com/samber/lo"
)

type orderRepository struct {
	client *supa.Client
	logger *logger.Logger
}

// NewOrderRepository creates an order repository over PostgREST
func NewOrderRepository(client *supa.Client, logger *logger.Logger) order.Repository {
	return &orderRepository{
		client: client,
		logger: logger,
	}
}

func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	var created []order.Order
	err := r.client.DB.From(tableOrders).
		Insert(o).
		ExecuteWithContext(ctx, &created)
	if err != nil {
		if isDuplicate(err) {
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
	return r.getOne(ctx, "id", id)
}

func (r *orderRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*order.Order, error) {
	return r.getOne(ctx, "payment_intent_id", paymentIntentID)
}

func (r *orderRepository) getOne(ctx context.Context, column, value string) (*order.Order, error) {
	var rows []order.Order
	err := r.client.DB.From(tableOrders).
		Select("*").
		Eq(column, value).
		ExecuteWithContext(ctx, &rows)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get order").
			Mark(ierr.ErrDatabase)
	}
	if len(rows) == 0 {
		return nil, ierr.NewError("order not found").
			WithHintf("Order with %s %s was not found", column, value).
			WithReportableDetails(map[string]any{
				column: value,
			}).
			Mark(ierr.ErrNotFound)
	}
	return &rows[0], nil
}

func (r *orderRepository) List(ctx context.Context, filter *types.OrderFilter) ([]*order.Order, error) {
	if filter == nil {
		filter = &types.OrderFilter{}
	}
	filter.Normalize()

	query := r.client.DB.From(tableOrders).Select("*")
	if filter.PaymentStatus != nil {
		query.Eq("payment_status", string(*filter.PaymentStatus))
	}

	var rows []order.Order
	err := query.
		OrderBy("created_at", "desc").
		LimitWithOffset(filter.Limit, filter.Offset).
		ExecuteWithContext(ctx, &rows)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list orders").
			Mark(ierr.ErrDatabase)
	}
	return toPointers(rows), nil
}

// Count asks PostgREST for an exact count with a HEAD request, the total comes
// back in Content-Range and is not capped by max-rows
func (r *orderRepository) Count(ctx context.Context, filter *types.OrderFilter) (int, error) {
	query := r.client.DB.From(tableOrders).Select("id").Count()
	if filter != nil && filter.PaymentStatus != nil {
		query.Eq("payment_status", string(*filter.PaymentStatus))
	}

	var count int
	if err := query.ExecuteWithContext(ctx, &count); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count orders").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *orderRepository) ApplyTransition(ctx context.Context, paymentIntentID string, t order.Transition, at time.Time) (*order.Order, bool, error) {
	body := map[string]interface{}{
		"payment_status": string(t.PaymentStatus),
		"status":         string(t.Status),
		"updated_at":     at,
	}
	if t.MarksPaid() {
		body["paid_at"] = at
	}

	from := lo.Map(t.From, func(s types.PaymentStatus, _ int) string {
		return string(s)
	})

	var updated []order.Order
	err := r.client.DB.From(tableOrders).
		Update(body).
		Eq("payment_intent_id", paymentIntentID).
		In("payment_status", from).
		ExecuteWithContext(ctx, &updated)
	if err != nil {
		return nil, false, ierr.WithError(err).
			WithHint("Failed to update order status").
			WithReportableDetails(map[string]any{
				"payment_intent_id": paymentIntentID,
				"event":             string(t.Event),
			}).
			Mark(ierr.ErrDatabase)
	}

	if len(updated) == 0 {
		r.logger.Debugw("order transition not applied",
			"payment_intent_id", paymentIntentID,
			"event", t.Event,
		)
		return nil, false, nil
	}
	return &updated[0], true, nil
}

func (r *orderRepository) ListStalePending(ctx context.Context, olderThan, notBefore time.Time, limit int) ([]*order.Order, error) {
	query := r.client.DB.From(tableOrders).Select("*")
	query.Eq("payment_status", string(types.PaymentStatusPending))
	query.Lt("created_at", olderThan.UTC().Format(time.RFC3339Nano))
	if !notBefore.IsZero() {
		query.Gt("created_at", notBefore.UTC().Format(time.RFC3339Nano))
	}

	var rows []order.Order
	err := query.
		OrderBy("created_at", "asc").
		LimitWithOffset(limit, 0).
		ExecuteWithContext(ctx, &rows)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list pending orders").
			Mark(ierr.ErrDatabase)
	}
	return toPointers(rows), nil
}

func toPointers(rows []order.Order) []*order.Order {
	out := make([]*order.Order, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}
