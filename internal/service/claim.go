package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Liangwei-zhang/cleaning-service/internal/entities"
)

type ClaimRepo interface {
	GetCleanerByID(ctx context.Context, cleanerID int64) (entities.Cleaner, error)
	GetOrderStatus(ctx context.Context, orderID string) (entities.OrderStatus, error)

	// AcceptOpenOrder is the correctness backstop: a single conditional
	// statement that succeeds only if the stored status is still open.
	AcceptOpenOrder(ctx context.Context, orderID string, cleanerID int64, at time.Time) (int64, error)
}

// Locker serializes claim attempts per order. TryAcquire must be atomic and
// non-blocking; Release must be idempotent.
type Locker interface {
	TryAcquire(key string) bool
	Release(key string)
}

type claimService struct {
	logger *slog.Logger
	repo   ClaimRepo
	lock   Locker
	cache  Cache
	now    func() time.Time
}

func NewClaimService(logger *slog.Logger, repo ClaimRepo, lock Locker, cache Cache) *claimService {
	return &claimService{
		logger: logger.With(slog.String("service", "claim")),
		repo:   repo,
		lock:   lock,
		cache:  cache,
		now:    time.Now,
	}
}

// ClaimOrder lets a cleaner race for an open order. Exactly one concurrent
// caller per order succeeds; the rest get ErrOrderConflict. The per-order
// lock turns the race into a fast-failing queue of attempts, and the
// conditional write keeps the guarantee even for writers that bypass it.
func (s *claimService) ClaimOrder(ctx context.Context, orderID string, cleanerID int64, code string) error {
	if orderID == "" || cleanerID == 0 || code == "" {
		return fmt.Errorf("%w: cleaner id and code are required", entities.ErrInvalidCode)
	}

	cleaner, err := s.repo.GetCleanerByID(ctx, cleanerID)
	if errors.Is(err, entities.ErrCleanerNotFound) {
		return entities.ErrInvalidCode
	}
	if err != nil {
		return fmt.Errorf("failed to verify cleaner: %w", err)
	}
	if cleaner.Code == "" || cleaner.Code != code {
		return entities.ErrInvalidCode
	}

	if !s.lock.TryAcquire(orderID) {
		lockContention.Inc()
		return fmt.Errorf("%w: order is already being processed", entities.ErrOrderConflict)
	}
	defer s.lock.Release(orderID)

	status, err := s.repo.GetOrderStatus(ctx, orderID)
	if errors.Is(err, entities.ErrOrderNotFound) {
		return entities.ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read order status: %w", err)
	}
	if status != entities.StatusOpen {
		return fmt.Errorf("%w: order is %s", entities.ErrOrderConflict, status)
	}

	affected, err := s.repo.AcceptOpenOrder(ctx, orderID, cleanerID, s.now())
	if err != nil {
		return fmt.Errorf("failed to accept order: %w", err)
	}
	if affected != 1 {
		// Another path won between the status read and the write.
		return fmt.Errorf("%w: order was claimed concurrently", entities.ErrOrderConflict)
	}

	s.cache.Invalidate(statsCacheKey)
	s.cache.Invalidate(orderCacheKey(orderID))

	s.logger.InfoContext(ctx, "order claimed",
		slog.String("order_id", orderID),
		slog.Int64("cleaner_id", cleanerID),
	)
	return nil
}
