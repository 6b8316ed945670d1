package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"easytopup/backend/internal/models"
	"easytopup/backend/internal/store"

	"github.com/go-chi/chi/v5"
)

type listOrdersResponse struct {
	Items []models.Order `json:"items"`
	Total int            `json:"total"`
}

func (h *Handler) ListAdminOrders(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)
	status := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	all, err := h.store.List(ctx)
	if err != nil {
		logger.Error("admin_list_orders", "status", "store_error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	filtered := all
	if status != "" {
		filtered = make([]models.Order, 0, len(all))
		for _, order := range all {
			if order.Status == status {
				filtered = append(filtered, order)
			}
		}
	}
	total := len(filtered)
	if offset > len(filtered) {
		offset = len(filtered)
	}
	filtered = filtered[offset:]
	if limit > 0 && limit < len(filtered) {
		filtered = filtered[:limit]
	}

	writeJSON(w, http.StatusOK, listOrdersResponse{Items: filtered, Total: total})
}

func (h *Handler) GetAdminOrder(w http.ResponseWriter, r *http.Request) {
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
		logger.Error("admin_get_order", "status", "store_error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	all, err := h.store.List(ctx)
	if err != nil {
		logger.Error("admin_stats", "status", "store_error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	stats := models.OrderStats{ByStatus: make(map[string]int64)}
	for _, order := range all {
		stats.Total++
		stats.ByStatus[order.Status]++
		if order.Status == models.OrderStatusCompleted {
			stats.CompletedRevenue += order.Amount
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func parseIntQuery(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
