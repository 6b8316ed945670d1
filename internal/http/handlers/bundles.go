package handlers

import (
	"errors"
	"net/http"
	"strings"

	"easytopup/backend/internal/models"
	"easytopup/backend/internal/store"

	"github.com/go-chi/chi/v5"
)

type bundlesResponse struct {
	Items []models.Bundle `json:"items"`
}

// ListBundles serves the catalog with the storefront's filter, search and
// sort options.
func (h *Handler) ListBundles(w http.ResponseWriter, r *http.Request) {
	network := strings.TrimSpace(r.URL.Query().Get("network"))
	query := r.URL.Query().Get("q")
	sortKey := strings.TrimSpace(r.URL.Query().Get("sort"))

	items := h.catalog.Filter(network, query, sortKey)
	writeJSON(w, http.StatusOK, bundlesResponse{Items: items})
}

// GetOrder lets the post-redirect page poll an order's status.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	orderID := strings.TrimSpace(chi.URLParam(r, "id"))
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	order, err := h.store.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		logger.Error("get_order", "status", "store_error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, order)
}
