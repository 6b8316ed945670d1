package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"easytopup/backend/internal/integrations/zitopay"
	"easytopup/backend/internal/orders"
)

type purchaseResponse struct {
	OrderID    string `json:"orderId"`
	PaymentURL string `json:"paymentUrl"`
}

// Purchase creates a pending order and returns the gateway redirect URL.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	var req orders.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("purchase", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		logger.Warn("purchase", "status", "missing_fields")
		writeError(w, http.StatusBadRequest, "bundleId, receiver, payer required")
		return
	}
	if !h.purchaseLimiter.Allow(strings.TrimSpace(req.Payer)) {
		logger.Warn("purchase", "status", "rate_limited", "payer", req.Payer)
		writeError(w, http.StatusTooManyRequests, "too many purchase attempts")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	order, paymentURL, err := h.orders.CreatePurchase(ctx, req)
	if err != nil {
		var apiErr *zitopay.APIError
		switch {
		case errors.Is(err, orders.ErrBundleNotFound):
			logger.Warn("purchase", "status", "bundle_not_found", "bundle_id", req.BundleID)
			writeError(w, http.StatusNotFound, "bundle not found")
		case errors.Is(err, orders.ErrUnexpectedGatewayResponse):
			logger.Error("purchase", "status", "gateway_unexpected_response", "error", err)
			writeError(w, http.StatusBadGateway, "unexpected zitopay response")
		case errors.As(err, &apiErr):
			logger.Error("purchase", "status", "gateway_error", "error", err)
			writeError(w, http.StatusBadGateway, "failed to create payment")
		default:
			logger.Error("purchase", "status", "internal_error", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create payment")
		}
		return
	}

	writeJSON(w, http.StatusOK, purchaseResponse{OrderID: order.ID, PaymentURL: paymentURL})
}
