package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Liangwei-zhang/cleaning-service/internal/entities"
	"github.com/Liangwei-zhang/cleaning-service/internal/service"
	"github.com/Liangwei-zhang/cleaning-service/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Claimer interface {
	ClaimOrder(ctx context.Context, orderID string, cleanerID int64, code string) error
}

type OrderService interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (entities.Order, error)
	GetOrderByID(ctx context.Context, orderID string) (entities.Order, error)
	ListOrders(ctx context.Context, status entities.OrderStatus) ([]entities.Order, error)
	Stats(ctx context.Context) (entities.Stats, error)
	MarkArrived(ctx context.Context, orderID string) error
	CompleteOrder(ctx context.Context, orderID string) error
	CancelOrder(ctx context.Context, orderID string) error
	UpdateOrder(ctx context.Context, orderID string, upd entities.OrderUpdate) error
}

type Registry interface {
	RegisterCleaner(ctx context.Context, in service.RegisterCleanerInput) (entities.Cleaner, error)
	GetCleanerByID(ctx context.Context, cleanerID int64) (entities.Cleaner, error)
	ListCleaners(ctx context.Context, status string) ([]entities.Cleaner, error)
	CreateProperty(ctx context.Context, in service.CreatePropertyInput) (entities.Property, error)
	GetPropertyByID(ctx context.Context, propertyID int64) (entities.Property, error)
	ListProperties(ctx context.Context, status string) ([]entities.Property, error)
	HostLoginByCode(ctx context.Context, code string) (entities.Host, error)
}

type HTTPHandler struct {
	logger   *slog.Logger
	validate *validator.Validate
	claims   Claimer
	orders   OrderService
	registry Registry
}

func NewHTTPHandler(logger *slog.Logger, claims Claimer, orders OrderService, registry Registry) *HTTPHandler {
	return &HTTPHandler{
		logger:   logger.With(slog.String("handler", "http")),
		validate: validator.New(),
		claims:   claims,
		orders:   orders,
		registry: registry,
	}
}

func (h *HTTPHandler) Init(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/orders", h.CreateOrder)
		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{order_id}", h.GetOrderByID)
		r.Patch("/orders/{order_id}", h.UpdateOrder)
		r.Post("/orders/{order_id}/claim", h.ClaimOrder)
		r.Post("/orders/{order_id}/arrived", h.MarkArrived)
		r.Post("/orders/{order_id}/complete", h.CompleteOrder)
		r.Post("/orders/{order_id}/cancel", h.CancelOrder)

		r.Get("/stats", h.Stats)

		r.Post("/cleaners", h.RegisterCleaner)
		r.Get("/cleaners", h.ListCleaners)
		r.Get("/cleaners/{cleaner_id}", h.GetCleanerByID)

		r.Post("/properties", h.CreateProperty)
		r.Get("/properties", h.ListProperties)
		r.Get("/properties/{property_id}", h.GetPropertyByID)

		r.Get("/hosts/code/{code}", h.HostLoginByCode)
	})
}

// ClaimOrder races a cleaner against all other cleaners for an open order.
// @Summary      Claim an open order
// @Description  Exactly one concurrent claimer succeeds; everyone else gets 409
// @Tags         orders
// @Param        order_id  path  string        true  "Order id"
// @Param        request   body  ClaimRequest  true  "Cleaner id and verification code"
// @Success      200  {object}  ClaimResponse
// @Failure      400  {object}  utils.ErrorResponse "Missing or invalid credential"
// @Failure      404  {object}  utils.ErrorResponse "Order not found"
// @Failure      409  {object}  utils.ErrorResponse "Order already claimed or being processed"
// @Router       /api/orders/{order_id}/claim [post]
func (h *HTTPHandler) ClaimOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "order_id")

	var req ClaimRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		claimResults.WithLabelValues("invalid_input").Inc()
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		claimResults.WithLabelValues("invalid_input").Inc()
		utils.WriteValidationError(w, err)
		return
	}

	err := h.claims.ClaimOrder(ctx, orderID, req.CleanerID, req.Code)
	switch {
	case err == nil:
		claimResults.WithLabelValues("accepted").Inc()
		utils.WriteJSON(w, ClaimResponse{Status: string(entities.StatusAccepted), OrderID: orderID}, http.StatusOK)
	case errors.Is(err, entities.ErrInvalidCode):
		claimResults.WithLabelValues("invalid_code").Inc()
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, entities.ErrOrderNotFound):
		claimResults.WithLabelValues("not_found").Inc()
		utils.WriteError(w, "order not found", http.StatusNotFound)
	case errors.Is(err, entities.ErrOrderConflict):
		claimResults.WithLabelValues("conflict").Inc()
		utils.WriteError(w, err.Error(), http.StatusConflict)
	default:
		claimResults.WithLabelValues("error").Inc()
		h.internalError(w, r, "failed to claim order", err, slog.String("order_id", orderID))
	}
}

// CreateOrder registers a new cleaning order in the open state.
// @Summary      Create an order
// @Tags         orders
// @Param        request  body  CreateOrderRequest  true  "Order fields, optional idempotency key"
// @Success      201  {object}  Order
// @Failure      400  {object}  utils.ValidationErrorResponse
// @Failure      404  {object}  utils.ErrorResponse "Property not found"
// @Failure      409  {object}  utils.ErrorResponse "Duplicate submission"
// @Router       /api/orders [post]
func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateOrderRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	order, err := h.orders.CreateOrder(ctx, service.CreateOrderInput{
		PropertyID:     req.PropertyID,
		HostName:       req.HostName,
		HostPhone:      req.HostPhone,
		CheckoutTime:   req.CheckoutTime,
		Price:          req.Price,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.writeDomainError(w, r, "failed to create order", err)
		return
	}

	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusCreated)
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	status := entities.OrderStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		utils.WriteError(w, "unknown status", http.StatusBadRequest)
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), status)
	if err != nil {
		h.writeDomainError(w, r, "failed to list orders", err)
		return
	}

	result := make([]Order, 0, len(orders))
	for _, o := range orders {
		result = append(result, OrderEntityToJSON(o))
	}
	utils.WriteJSON(w, result, http.StatusOK)
}

func (h *HTTPHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	if err := h.validate.Var(orderID, "required"); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	order, err := h.orders.GetOrderByID(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, r, "failed to get order", err)
		return
	}

	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

func (h *HTTPHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	var req UpdateOrderRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	if err := h.orders.UpdateOrder(r.Context(), orderID, req.ToEntity()); err != nil {
		h.writeDomainError(w, r, "failed to update order", err)
		return
	}

	utils.WriteJSON(w, map[string]string{"message": "order updated"}, http.StatusOK)
}

func (h *HTTPHandler) MarkArrived(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.MarkArrived, "failed to mark order arrived")
}

func (h *HTTPHandler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.CompleteOrder, "failed to complete order")
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.CancelOrder, "failed to cancel order")
}

func (h *HTTPHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) error, msg string) {
	orderID := chi.URLParam(r, "order_id")

	if err := fn(r.Context(), orderID); err != nil {
		h.writeDomainError(w, r, msg, err)
		return
	}

	order, err := h.orders.GetOrderByID(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, r, msg, err)
		return
	}
	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// Stats returns cached aggregates; staleness is bounded by the cache TTL.
// @Summary      Aggregate dashboard stats
// @Tags         stats
// @Success      200  {object}  Stats
// @Router       /api/stats [get]
func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orders.Stats(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "failed to get stats", err)
		return
	}
	utils.WriteJSON(w, StatsEntityToJSON(stats), http.StatusOK)
}

func (h *HTTPHandler) RegisterCleaner(w http.ResponseWriter, r *http.Request) {
	var req RegisterCleanerRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	cleaner, err := h.registry.RegisterCleaner(r.Context(), service.RegisterCleanerInput{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	})
	if err != nil {
		h.writeDomainError(w, r, "failed to register cleaner", err)
		return
	}
	utils.WriteJSON(w, CleanerEntityToJSON(cleaner), http.StatusCreated)
}

func (h *HTTPHandler) ListCleaners(w http.ResponseWriter, r *http.Request) {
	cleaners, err := h.registry.ListCleaners(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.writeDomainError(w, r, "failed to list cleaners", err)
		return
	}

	result := make([]Cleaner, 0, len(cleaners))
	for _, c := range cleaners {
		c.Code = "" // codes are returned once, at registration
		result = append(result, CleanerEntityToJSON(c))
	}
	utils.WriteJSON(w, result, http.StatusOK)
}

func (h *HTTPHandler) GetCleanerByID(w http.ResponseWriter, r *http.Request) {
	cleanerID, err := strconv.ParseInt(chi.URLParam(r, "cleaner_id"), 10, 64)
	if err != nil {
		utils.WriteError(w, "invalid cleaner id", http.StatusBadRequest)
		return
	}

	cleaner, err := h.registry.GetCleanerByID(r.Context(), cleanerID)
	if err != nil {
		h.writeDomainError(w, r, "failed to get cleaner", err)
		return
	}
	cleaner.Code = ""
	utils.WriteJSON(w, CleanerEntityToJSON(cleaner), http.StatusOK)
}

func (h *HTTPHandler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req CreatePropertyRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	property, err := h.registry.CreateProperty(r.Context(), service.CreatePropertyInput{
		Name:                req.Name,
		Address:             req.Address,
		Bedrooms:            req.Bedrooms,
		Bathrooms:           req.Bathrooms,
		CleaningTimeMinutes: req.CleaningTimeMinutes,
		Checklist:           req.Checklist,
		Notes:               req.Notes,
	})
	if err != nil {
		h.writeDomainError(w, r, "failed to create property", err)
		return
	}
	utils.WriteJSON(w, PropertyEntityToJSON(property), http.StatusCreated)
}

func (h *HTTPHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := h.registry.ListProperties(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.writeDomainError(w, r, "failed to list properties", err)
		return
	}

	result := make([]Property, 0, len(properties))
	for _, p := range properties {
		result = append(result, PropertyEntityToJSON(p))
	}
	utils.WriteJSON(w, result, http.StatusOK)
}

func (h *HTTPHandler) GetPropertyByID(w http.ResponseWriter, r *http.Request) {
	propertyID, err := strconv.ParseInt(chi.URLParam(r, "property_id"), 10, 64)
	if err != nil {
		utils.WriteError(w, "invalid property id", http.StatusBadRequest)
		return
	}

	property, err := h.registry.GetPropertyByID(r.Context(), propertyID)
	if err != nil {
		h.writeDomainError(w, r, "failed to get property", err)
		return
	}
	utils.WriteJSON(w, PropertyEntityToJSON(property), http.StatusOK)
}

func (h *HTTPHandler) HostLoginByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.validate.Var(code, "required"); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	host, err := h.registry.HostLoginByCode(r.Context(), code)
	if err != nil {
		h.writeDomainError(w, r, "failed to login host", err)
		return
	}
	utils.WriteJSON(w, HostEntityToJSON(host), http.StatusOK)
}

// writeDomainError maps domain sentinels onto the 400/404/409/500 taxonomy.
func (h *HTTPHandler) writeDomainError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, entities.ErrInvalidCode):
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, entities.ErrOrderNotFound),
		errors.Is(err, entities.ErrCleanerNotFound),
		errors.Is(err, entities.ErrPropertyNotFound),
		errors.Is(err, entities.ErrHostNotFound):
		utils.WriteError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, entities.ErrOrderConflict),
		errors.Is(err, entities.ErrDuplicateSubmission):
		utils.WriteError(w, err.Error(), http.StatusConflict)
	default:
		h.internalError(w, r, msg, err)
	}
}

func (h *HTTPHandler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error, attrs ...any) {
	h.logger.ErrorContext(r.Context(), msg, append([]any{slog.Any("error", err)}, attrs...)...)
	utils.WriteError(w, "internal server error", http.StatusInternalServerError)
}
