package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Liangwei-zhang/cleaning-service/internal/entities"
	"github.com/Liangwei-zhang/cleaning-service/internal/service"
	"github.com/Liangwei-zhang/cleaning-service/pkg/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// claimStore is an in-memory ClaimRepo whose AcceptOpenOrder is a real
// compare-and-swap, so concurrent claims race exactly like they would
// against the conditional UPDATE.
type claimStore struct {
	mu       sync.Mutex
	cleaners map[int64]entities.Cleaner
	orders   map[string]entities.OrderStatus
	assigned map[string]int64
}

func newClaimStore() *claimStore {
	return &claimStore{
		cleaners: make(map[int64]entities.Cleaner),
		orders:   make(map[string]entities.OrderStatus),
		assigned: make(map[string]int64),
	}
}

func (s *claimStore) GetCleanerByID(_ context.Context, cleanerID int64) (entities.Cleaner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cleaners[cleanerID]
	if !ok {
		return entities.Cleaner{}, entities.ErrCleanerNotFound
	}
	return c, nil
}

func (s *claimStore) GetOrderStatus(_ context.Context, orderID string) (entities.OrderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.orders[orderID]
	if !ok {
		return "", entities.ErrOrderNotFound
	}
	return status, nil
}

func (s *claimStore) AcceptOpenOrder(_ context.Context, orderID string, cleanerID int64, _ time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orders[orderID] != entities.StatusOpen {
		return 0, nil
	}
	s.orders[orderID] = entities.StatusAccepted
	s.assigned[orderID] = cleanerID
	return 1, nil
}

type nopCache struct{}

func (nopCache) Get(string) ([]byte, bool) { return nil, false }
func (nopCache) Set(string, []byte)        {}
func (nopCache) Invalidate(string)         {}
func (nopCache) Clear()                    {}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClaimService_Exclusivity(t *testing.T) {
	store := newClaimStore()
	store.orders["O1"] = entities.StatusOpen
	for i := int64(1); i <= 16; i++ {
		store.cleaners[i] = entities.Cleaner{ID: i, Code: fmt.Sprintf("%06d", i)}
	}

	svc := service.NewClaimService(newTestLogger(), store, lock.New(time.Second), nopCache{})

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, conflicts := 0, 0

	for i := int64(1); i <= 16; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.ClaimOrder(context.Background(), "O1", i, fmt.Sprintf("%06d", i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, entities.ErrOrderConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted, "exactly one claimer wins")
	assert.Equal(t, 15, conflicts, "everyone else observes a conflict")
	assert.Equal(t, entities.StatusAccepted, store.orders["O1"])
}

func TestClaimService_StateGuard(t *testing.T) {
	for _, status := range []entities.OrderStatus{
		entities.StatusAccepted,
		entities.StatusArrived,
		entities.StatusCompleted,
		entities.StatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			store := newClaimStore()
			store.orders["O1"] = status
			store.assigned["O1"] = 99
			store.cleaners[1] = entities.Cleaner{ID: 1, Code: "123456"}

			svc := service.NewClaimService(newTestLogger(), store, lock.New(time.Second), nopCache{})

			err := svc.ClaimOrder(context.Background(), "O1", 1, "123456")
			require.ErrorIs(t, err, entities.ErrOrderConflict)
			assert.Contains(t, err.Error(), string(status), "conflict reports the observed status")

			assert.Equal(t, status, store.orders["O1"], "state must not change")
			assert.Equal(t, int64(99), store.assigned["O1"])
		})
	}
}

func TestClaimService_Failures(t *testing.T) {
	testCases := []struct {
		name      string
		orderID   string
		cleanerID int64
		code      string
		wantErr   error
	}{
		{
			name:      "missing cleaner id",
			orderID:   "O1",
			cleanerID: 0,
			code:      "123456",
			wantErr:   entities.ErrInvalidCode,
		},
		{
			name:      "missing code",
			orderID:   "O1",
			cleanerID: 1,
			code:      "",
			wantErr:   entities.ErrInvalidCode,
		},
		{
			name:      "unknown cleaner",
			orderID:   "O1",
			cleanerID: 42,
			code:      "123456",
			wantErr:   entities.ErrInvalidCode,
		},
		{
			name:      "wrong code",
			orderID:   "O1",
			cleanerID: 1,
			code:      "000000",
			wantErr:   entities.ErrInvalidCode,
		},
		{
			name:      "order not found",
			orderID:   "missing",
			cleanerID: 1,
			code:      "123456",
			wantErr:   entities.ErrOrderNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := newClaimStore()
			store.orders["O1"] = entities.StatusOpen
			store.cleaners[1] = entities.Cleaner{ID: 1, Code: "123456"}

			svc := service.NewClaimService(newTestLogger(), store, lock.New(time.Second), nopCache{})

			err := svc.ClaimOrder(context.Background(), tc.orderID, tc.cleanerID, tc.code)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestClaimService_LockNotLeakedAfterFailure(t *testing.T) {
	store := newClaimStore()
	store.orders["O1"] = entities.StatusOpen
	store.cleaners[1] = entities.Cleaner{ID: 1, Code: "123456"}
	store.cleaners[2] = entities.Cleaner{ID: 2, Code: "654321"}

	svc := service.NewClaimService(newTestLogger(), store, lock.New(time.Second), nopCache{})

	// Failed attempts of every flavor must release the lock.
	require.Error(t, svc.ClaimOrder(context.Background(), "O1", 1, "wrong"))
	require.Error(t, svc.ClaimOrder(context.Background(), "missing", 1, "123456"))

	// A different eligible cleaner can claim immediately afterwards.
	require.NoError(t, svc.ClaimOrder(context.Background(), "O1", 2, "654321"))
	assert.Equal(t, int64(2), store.assigned["O1"])
}

func TestClaimService_FastConflictWhileLockHeld(t *testing.T) {
	store := newClaimStore()
	store.orders["O1"] = entities.StatusOpen
	store.cleaners[1] = entities.Cleaner{ID: 1, Code: "123456"}

	claimLock := lock.New(time.Minute)
	require.True(t, claimLock.TryAcquire("O1"), "simulate an in-flight claim")

	svc := service.NewClaimService(newTestLogger(), store, claimLock, nopCache{})

	err := svc.ClaimOrder(context.Background(), "O1", 1, "123456")
	require.ErrorIs(t, err, entities.ErrOrderConflict)
	assert.Equal(t, entities.StatusOpen, store.orders["O1"], "store untouched while locked")

	claimLock.Release("O1")
	require.NoError(t, svc.ClaimOrder(context.Background(), "O1", 1, "123456"))
}

func TestClaimService_Scenario(t *testing.T) {
	store := newClaimStore()
	store.orders["O1"] = entities.StatusOpen
	store.cleaners[1] = entities.Cleaner{ID: 1, Code: "123456"}
	store.cleaners[2] = entities.Cleaner{ID: 2, Code: "654321"}

	svc := service.NewClaimService(newTestLogger(), store, lock.New(time.Second), nopCache{})

	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0] = svc.ClaimOrder(context.Background(), "O1", 1, "123456")
	}()
	go func() {
		defer wg.Done()
		results[1] = svc.ClaimOrder(context.Background(), "O1", 2, "654321")
	}()
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, entities.ErrOrderConflict)
		}
	}
	assert.Equal(t, 1, winners)

	// A bad credential afterwards is rejected before any state is touched.
	err := svc.ClaimOrder(context.Background(), "O1", 1, "wrongcode")
	assert.ErrorIs(t, err, entities.ErrInvalidCode)
}
