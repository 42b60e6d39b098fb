package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/coupon"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Storefront is the service surface the handlers drive.
type Storefront interface {
	Cart(ctx context.Context, visitorID string) (*service.Summary, error)
	AddItem(ctx context.Context, visitorID string, productID int64, quantity int) (*service.Summary, error)
	CanAdd(ctx context.Context, visitorID string, productID int64, quantity int) (bool, error)
	UpdateQuantity(ctx context.Context, visitorID string, productID int64, quantity int) (*service.Summary, error)
	RemoveItem(ctx context.Context, visitorID string, productID int64) (*service.Summary, error)
	ClearCart(ctx context.Context, visitorID string) (*service.Summary, error)
	RedeemCoupon(ctx context.Context, visitorID, code string) (*service.CouponStatus, error)
	RemoveCoupon(ctx context.Context, visitorID string) (*service.CouponStatus, error)
	CouponStatus(ctx context.Context, visitorID string) (*service.CouponStatus, error)
	ClearCouponMessage(ctx context.Context, visitorID string) (*service.CouponStatus, error)
}

type Handler struct {
	storefront Storefront
	timeout    time.Duration
	log        *zap.Logger
}

func NewHandler(storefront Storefront, timeout time.Duration, log *zap.Logger) *Handler {
	return &Handler{
		storefront: storefront,
		timeout:    timeout,
		log:        log,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type RedeemCouponRequestDTO struct {
	Code string `json:"code"`
}

type CanAddResponseDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	CanAdd    bool  `json:"can_add"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Routes mounts the cart and coupon API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{product_id}", h.UpdateQuantity)
		r.Delete("/items/{product_id}", h.RemoveItem)
		r.Get("/items/{product_id}/can-add", h.CanAdd)
	})
	r.Route("/coupon", func(r chi.Router) {
		r.Get("/", h.GetCoupon)
		r.Post("/", h.RedeemCoupon)
		r.Delete("/", h.RemoveCoupon)
		r.Delete("/message", h.ClearCouponMessage)
	})
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	summary, err := h.storefront.Cart(ctx, getVisitorID(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	summary, err := h.storefront.AddItem(ctx, getVisitorID(r.Context()), req.ProductID, quantity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, summary)
}

func (h *Handler) CanAdd(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}
	quantity := 1
	if raw := r.URL.Query().Get("quantity"); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be an integer")
			return
		}
		quantity = q
	}

	canAdd, err := h.storefront.CanAdd(ctx, getVisitorID(r.Context()), productID, quantity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, CanAddResponseDTO{ProductID: productID, Quantity: quantity, CanAdd: canAdd})
}

func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	summary, err := h.storefront.UpdateQuantity(ctx, getVisitorID(r.Context()), productID, req.Quantity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}

	summary, err := h.storefront.RemoveItem(ctx, getVisitorID(r.Context()), productID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	summary, err := h.storefront.ClearCart(ctx, getVisitorID(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status, err := h.storefront.CouponStatus(ctx, getVisitorID(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (h *Handler) RedeemCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RedeemCouponRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	status, err := h.storefront.RedeemCoupon(ctx, getVisitorID(r.Context()), req.Code)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status, err := h.storefront.RemoveCoupon(ctx, getVisitorID(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (h *Handler) ClearCouponMessage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status, err := h.storefront.ClearCouponMessage(ctx, getVisitorID(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func parseProductID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps service errors to HTTP status codes.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrStockExceeded):
		respondError(w, http.StatusConflict, "stock_exceeded", "not enough stock for the requested quantity")
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, cart.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item_not_found", err.Error())
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, coupon.ErrCouponActive):
		respondError(w, http.StatusConflict, "coupon_active", "a coupon is already applied, remove it first")
	case errors.Is(err, coupon.ErrInvalidCoupon):
		respondError(w, http.StatusUnprocessableEntity, "invalid_coupon", coupon.InvalidCouponMessage)
	case errors.Is(err, service.ErrVisitorRequired):
		respondError(w, http.StatusBadRequest, "missing_visitor", err.Error())
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "catalog temporarily unavailable")
	case errors.Is(err, service.ErrClosed):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "shutting down")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		h.log.Error("request failed",
			zap.String("request_id", getRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
