package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Liangwei-zhang/cleaning-service/internal/entities"
	"github.com/Liangwei-zhang/cleaning-service/pkg/trm"
	"github.com/Liangwei-zhang/cleaning-service/pkg/utils"

	"github.com/google/uuid"
)

type OrderRepo interface {
	CreateOrder(ctx context.Context, o entities.Order) error
	GetOrderByID(ctx context.Context, orderID string) (entities.Order, error)
	ListOrders(ctx context.Context, status entities.OrderStatus) ([]entities.Order, error)
	GetOrderStatus(ctx context.Context, orderID string) (entities.OrderStatus, error)
	TransitionStatus(ctx context.Context, orderID string, expected, next entities.OrderStatus) (int64, error)
	CancelOrder(ctx context.Context, orderID string) (int64, error)
	UpdateOrder(ctx context.Context, orderID string, upd entities.OrderUpdate) error
	GetPropertyByID(ctx context.Context, propertyID int64) (entities.Property, error)
	Stats(ctx context.Context) (entities.Stats, error)
}

type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Invalidate(key string)
	Clear()
}

// Deduplicator rejects repeated submissions within a trailing window.
type Deduplicator interface {
	Check(key string) bool
}

const statsCacheKey = "stats"

func orderCacheKey(orderID string) string {
	return "order:" + orderID
}

var readRetry = utils.RetryConfig{
	InitialDelay: 100 * time.Millisecond,
	MaxAttempts:  5,
	Multiplier:   2,
}

type orderService struct {
	logger    *slog.Logger
	txManager trm.Manager
	repo      OrderRepo
	cache     Cache
	guard     Deduplicator
	now       func() time.Time
	newID     func() string
}

func NewOrderService(logger *slog.Logger, txManager trm.Manager, repo OrderRepo, cache Cache, guard Deduplicator) *orderService {
	return &orderService{
		logger:    logger.With(slog.String("service", "order")),
		txManager: txManager,
		repo:      repo,
		cache:     cache,
		guard:     guard,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

type CreateOrderInput struct {
	PropertyID     int64
	HostName       string
	HostPhone      string
	CheckoutTime   string
	Price          float64
	IdempotencyKey string
}

const defaultPrice = 100

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (entities.Order, error) {
	if in.IdempotencyKey != "" && !s.guard.Check(in.IdempotencyKey) {
		return entities.Order{}, entities.ErrDuplicateSubmission
	}

	price := in.Price
	if price <= 0 {
		price = defaultPrice
	}

	order := entities.Order{
		ID:           s.newID(),
		PropertyID:   in.PropertyID,
		HostName:     in.HostName,
		HostPhone:    in.HostPhone,
		CheckoutTime: in.CheckoutTime,
		Price:        price,
		Status:       entities.StatusOpen,
		CreatedAt:    s.now(),
	}

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetPropertyByID(ctx, order.PropertyID); err != nil {
			return err
		}
		return s.repo.CreateOrder(ctx, order)
	})
	if err != nil {
		return entities.Order{}, err
	}

	s.cache.Invalidate(statsCacheKey)

	s.logger.DebugContext(ctx, "order created", slog.String("order_id", order.ID))
	return order, nil
}

func (s *orderService) GetOrderByID(ctx context.Context, orderID string) (entities.Order, error) {
	if data, ok := s.cache.Get(orderCacheKey(orderID)); ok {
		var order entities.Order
		if err := order.Unmarshal(data); err == nil {
			return order, nil
		}
		// Broken cache entry, fall through to the store.
		s.cache.Invalidate(orderCacheKey(orderID))
	}

	var order entities.Order
	fn := func() error {
		var err error
		order, err = s.repo.GetOrderByID(ctx, orderID)
		return err
	}
	if err := utils.Retry(readRetry, fn, entities.ErrOrderNotFound); err != nil {
		return entities.Order{}, err
	}

	if data, err := order.Marshal(); err == nil {
		s.cache.Set(orderCacheKey(orderID), data)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, status entities.OrderStatus) ([]entities.Order, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", entities.ErrOrderConflict, status)
	}
	return s.repo.ListOrders(ctx, status)
}

// Stats serves the dashboard aggregate through the read cache; staleness is
// bounded by the cache TTL and by invalidation on every order write.
func (s *orderService) Stats(ctx context.Context) (entities.Stats, error) {
	if data, ok := s.cache.Get(statsCacheKey); ok {
		var stats entities.Stats
		if err := stats.Unmarshal(data); err == nil {
			return stats, nil
		}
		s.cache.Invalidate(statsCacheKey)
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return entities.Stats{}, err
	}

	if data, err := stats.Marshal(); err == nil {
		s.cache.Set(statsCacheKey, data)
	}
	return stats, nil
}

// MarkArrived advances accepted -> arrived.
func (s *orderService) MarkArrived(ctx context.Context, orderID string) error {
	return s.advance(ctx, orderID, entities.StatusAccepted, entities.StatusArrived)
}

// CompleteOrder advances arrived -> completed.
func (s *orderService) CompleteOrder(ctx context.Context, orderID string) error {
	return s.advance(ctx, orderID, entities.StatusArrived, entities.StatusCompleted)
}

func (s *orderService) advance(ctx context.Context, orderID string, expected, next entities.OrderStatus) error {
	affected, err := s.repo.TransitionStatus(ctx, orderID, expected, next)
	if err != nil {
		return err
	}
	if affected == 0 {
		return s.conflictOrNotFound(ctx, orderID)
	}

	s.cache.Invalidate(statsCacheKey)
	s.cache.Invalidate(orderCacheKey(orderID))

	s.logger.DebugContext(ctx, "order transitioned",
		slog.String("order_id", orderID), slog.String("status", string(next)))
	return nil
}

func (s *orderService) CancelOrder(ctx context.Context, orderID string) error {
	affected, err := s.repo.CancelOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return s.conflictOrNotFound(ctx, orderID)
	}

	s.cache.Invalidate(statsCacheKey)
	s.cache.Invalidate(orderCacheKey(orderID))
	return nil
}

func (s *orderService) UpdateOrder(ctx context.Context, orderID string, upd entities.OrderUpdate) error {
	if upd.Empty() {
		return nil
	}
	if upd.Price != nil && *upd.Price <= 0 {
		return fmt.Errorf("price must be positive")
	}

	if err := s.repo.UpdateOrder(ctx, orderID, upd); err != nil {
		return err
	}

	s.cache.Invalidate(orderCacheKey(orderID))
	return nil
}

// conflictOrNotFound resolves a zero-row conditional write: either the order
// does not exist or it is in a state the transition does not allow.
func (s *orderService) conflictOrNotFound(ctx context.Context, orderID string) error {
	status, err := s.repo.GetOrderStatus(ctx, orderID)
	if errors.Is(err, entities.ErrOrderNotFound) {
		return entities.ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: order is %s", entities.ErrOrderConflict, status)
}
