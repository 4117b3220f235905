package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Liangwei-zhang/cleaning-service/internal/entities"
	"github.com/Liangwei-zhang/cleaning-service/internal/handler"
	"github.com/Liangwei-zhang/cleaning-service/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type claimerStub struct {
	claim func(ctx context.Context, orderID string, cleanerID int64, code string) error
}

func (s claimerStub) ClaimOrder(ctx context.Context, orderID string, cleanerID int64, code string) error {
	return s.claim(ctx, orderID, cleanerID, code)
}

type orderServiceStub struct {
	create func(ctx context.Context, in service.CreateOrderInput) (entities.Order, error)
	get    func(ctx context.Context, orderID string) (entities.Order, error)
	list   func(ctx context.Context, status entities.OrderStatus) ([]entities.Order, error)
	stats  func(ctx context.Context) (entities.Stats, error)
	cancel func(ctx context.Context, orderID string) error
}

func (s orderServiceStub) CreateOrder(ctx context.Context, in service.CreateOrderInput) (entities.Order, error) {
	return s.create(ctx, in)
}

func (s orderServiceStub) GetOrderByID(ctx context.Context, orderID string) (entities.Order, error) {
	return s.get(ctx, orderID)
}

func (s orderServiceStub) ListOrders(ctx context.Context, status entities.OrderStatus) ([]entities.Order, error) {
	return s.list(ctx, status)
}

func (s orderServiceStub) Stats(ctx context.Context) (entities.Stats, error) {
	return s.stats(ctx)
}

func (s orderServiceStub) MarkArrived(context.Context, string) error { return nil }

func (s orderServiceStub) CompleteOrder(context.Context, string) error { return nil }

func (s orderServiceStub) CancelOrder(ctx context.Context, orderID string) error {
	return s.cancel(ctx, orderID)
}

func (s orderServiceStub) UpdateOrder(context.Context, string, entities.OrderUpdate) error {
	return nil
}

type registryStub struct {
	register  func(ctx context.Context, in service.RegisterCleanerInput) (entities.Cleaner, error)
	hostLogin func(ctx context.Context, code string) (entities.Host, error)
}

func (s registryStub) RegisterCleaner(ctx context.Context, in service.RegisterCleanerInput) (entities.Cleaner, error) {
	return s.register(ctx, in)
}

func (s registryStub) GetCleanerByID(context.Context, int64) (entities.Cleaner, error) {
	return entities.Cleaner{}, entities.ErrCleanerNotFound
}

func (s registryStub) ListCleaners(context.Context, string) ([]entities.Cleaner, error) {
	return nil, nil
}

func (s registryStub) CreateProperty(context.Context, service.CreatePropertyInput) (entities.Property, error) {
	return entities.Property{}, nil
}

func (s registryStub) GetPropertyByID(context.Context, int64) (entities.Property, error) {
	return entities.Property{}, entities.ErrPropertyNotFound
}

func (s registryStub) ListProperties(context.Context, string) ([]entities.Property, error) {
	return nil, nil
}

func (s registryStub) HostLoginByCode(ctx context.Context, code string) (entities.Host, error) {
	return s.hostLogin(ctx, code)
}

func newServer(claims handler.Claimer, orders handler.OrderService, registry handler.Registry) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handler.NewHTTPHandler(logger, claims, orders, registry)
	r := chi.NewRouter()
	h.Init(r)
	return httptest.NewServer(r)
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return res
}

func TestHTTPHandler_ClaimOrder(t *testing.T) {
	testCases := []struct {
		name     string
		body     any
		claimErr error
		wantCode int
	}{
		{
			name:     "accepted",
			body:     handler.ClaimRequest{CleanerID: 7, Code: "123456"},
			wantCode: http.StatusOK,
		},
		{
			name:     "missing credential",
			body:     handler.ClaimRequest{CleanerID: 7},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed body",
			body:     "not json",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "wrong code",
			body:     handler.ClaimRequest{CleanerID: 7, Code: "000000"},
			claimErr: entities.ErrInvalidCode,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "order not found",
			body:     handler.ClaimRequest{CleanerID: 7, Code: "123456"},
			claimErr: entities.ErrOrderNotFound,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "already claimed",
			body:     handler.ClaimRequest{CleanerID: 7, Code: "123456"},
			claimErr: entities.ErrOrderConflict,
			wantCode: http.StatusConflict,
		},
		{
			name:     "internal failure",
			body:     handler.ClaimRequest{CleanerID: 7, Code: "123456"},
			claimErr: errors.New("connection reset"),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			claims := claimerStub{
				claim: func(_ context.Context, orderID string, cleanerID int64, code string) error {
					assert.Equal(t, "O1", orderID)
					return tc.claimErr
				},
			}
			server := newServer(claims, orderServiceStub{}, registryStub{})
			defer server.Close()

			res := postJSON(t, server.URL+"/api/orders/O1/claim", tc.body)
			defer res.Body.Close()
			require.Equal(t, tc.wantCode, res.StatusCode)

			if tc.wantCode == http.StatusOK {
				var payload handler.ClaimResponse
				require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
				assert.Equal(t, "accepted", payload.Status)
				assert.Equal(t, "O1", payload.OrderID)
			}
		})
	}
}

func TestHTTPHandler_CreateOrder(t *testing.T) {
	testCases := []struct {
		name      string
		body      any
		createErr error
		wantCode  int
	}{
		{
			name:     "created",
			body:     handler.CreateOrderRequest{PropertyID: 1, CheckoutTime: "11:00", Price: 120},
			wantCode: http.StatusCreated,
		},
		{
			name:     "missing property",
			body:     handler.CreateOrderRequest{CheckoutTime: "11:00"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:      "unknown property",
			body:      handler.CreateOrderRequest{PropertyID: 9, CheckoutTime: "11:00"},
			createErr: entities.ErrPropertyNotFound,
			wantCode:  http.StatusNotFound,
		},
		{
			name:      "duplicate submission",
			body:      handler.CreateOrderRequest{PropertyID: 1, CheckoutTime: "11:00", IdempotencyKey: "k1"},
			createErr: entities.ErrDuplicateSubmission,
			wantCode:  http.StatusConflict,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			orders := orderServiceStub{
				create: func(_ context.Context, in service.CreateOrderInput) (entities.Order, error) {
					if tc.createErr != nil {
						return entities.Order{}, tc.createErr
					}
					return entities.Order{ID: "O1", PropertyID: in.PropertyID, Status: entities.StatusOpen, Price: in.Price}, nil
				},
			}
			server := newServer(claimerStub{}, orders, registryStub{})
			defer server.Close()

			res := postJSON(t, server.URL+"/api/orders", tc.body)
			defer res.Body.Close()
			require.Equal(t, tc.wantCode, res.StatusCode)

			if tc.wantCode == http.StatusCreated {
				var payload handler.Order
				require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
				assert.Equal(t, "O1", payload.ID)
				assert.Equal(t, "open", payload.Status)
			}
		})
	}
}

func TestHTTPHandler_GetOrderByID(t *testing.T) {
	orders := orderServiceStub{
		get: func(_ context.Context, orderID string) (entities.Order, error) {
			if orderID != "O1" {
				return entities.Order{}, entities.ErrOrderNotFound
			}
			return entities.Order{ID: "O1", Status: entities.StatusOpen}, nil
		},
	}
	server := newServer(claimerStub{}, orders, registryStub{})
	defer server.Close()

	res, err := http.Get(server.URL + "/api/orders/O1")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(server.URL + "/api/orders/ghost")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHTTPHandler_ListOrdersRejectsUnknownStatus(t *testing.T) {
	orders := orderServiceStub{
		list: func(context.Context, entities.OrderStatus) ([]entities.Order, error) {
			return []entities.Order{}, nil
		},
	}
	server := newServer(claimerStub{}, orders, registryStub{})
	defer server.Close()

	res, err := http.Get(server.URL + "/api/orders?status=bogus")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, err = http.Get(server.URL + "/api/orders?status=open")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestHTTPHandler_Stats(t *testing.T) {
	orders := orderServiceStub{
		stats: func(context.Context) (entities.Stats, error) {
			return entities.Stats{Properties: 3, OpenOrders: 2}, nil
		},
	}
	server := newServer(claimerStub{}, orders, registryStub{})
	defer server.Close()

	res, err := http.Get(server.URL + "/api/stats")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var payload handler.Stats
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	assert.Equal(t, 3, payload.Properties)
	assert.Equal(t, 2, payload.OpenOrders)
}

func TestHTTPHandler_CancelOrderConflict(t *testing.T) {
	orders := orderServiceStub{
		cancel: func(context.Context, string) error {
			return entities.ErrOrderConflict
		},
	}
	server := newServer(claimerStub{}, orders, registryStub{})
	defer server.Close()

	res := postJSON(t, server.URL+"/api/orders/O1/cancel", nil)
	defer res.Body.Close()
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestHTTPHandler_RegisterCleanerReturnsCodeOnce(t *testing.T) {
	registry := registryStub{
		register: func(_ context.Context, in service.RegisterCleanerInput) (entities.Cleaner, error) {
			return entities.Cleaner{ID: 1, Name: in.Name, Status: "available", Code: "123456"}, nil
		},
	}
	server := newServer(claimerStub{}, orderServiceStub{}, registry)
	defer server.Close()

	res := postJSON(t, server.URL+"/api/cleaners", handler.RegisterCleanerRequest{Name: "Dana"})
	defer res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var payload handler.Cleaner
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	assert.Equal(t, "123456", payload.Code, "registration response carries the code")

	res2, err := http.Get(server.URL + "/api/cleaners/1")
	require.NoError(t, err)
	defer res2.Body.Close()
	assert.Equal(t, http.StatusNotFound, res2.StatusCode)
}

func TestHTTPHandler_HostLoginByCode(t *testing.T) {
	registry := registryStub{
		hostLogin: func(_ context.Context, code string) (entities.Host, error) {
			if code != "9911" {
				return entities.Host{}, entities.ErrHostNotFound
			}
			return entities.Host{ID: 5, Name: "Bob", Code: code}, nil
		},
	}
	server := newServer(claimerStub{}, orderServiceStub{}, registry)
	defer server.Close()

	res, err := http.Get(server.URL + "/api/hosts/code/9911")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var payload handler.Host
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	assert.Equal(t, int64(5), payload.ID)

	res2, err := http.Get(server.URL + "/api/hosts/code/0000")
	require.NoError(t, err)
	defer res2.Body.Close()
	assert.Equal(t, http.StatusNotFound, res2.StatusCode)
}
