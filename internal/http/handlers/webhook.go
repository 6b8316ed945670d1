package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"easytopup/backend/internal/orders"
	"easytopup/backend/internal/store"
)

const signatureHeader = "X-Zitopay-Signature"

// ZitopayWebhook receives payment status notifications from the gateway.
// The gateway delivers at least once; re-sent success notifications are
// acknowledged without running the topup again.
func (h *Handler) ZitopayWebhook(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if err := orders.VerifySignature(h.cfg.Zitopay.WebhookSecret, body, r.Header.Get(signatureHeader)); err != nil {
		logger.Warn("zitopay_webhook", "status", "invalid_signature")
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var n orders.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		logger.Warn("zitopay_webhook", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	result, err := h.orders.Reconcile(ctx, n)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrMissingOrderID):
			logger.Warn("zitopay_webhook", "status", "missing_order_id")
			writeError(w, http.StatusBadRequest, "missing order id")
		case errors.Is(err, store.ErrOrderNotFound):
			logger.Warn("zitopay_webhook", "status", "order_not_found", "order_id", n.OrderID())
			writeError(w, http.StatusNotFound, "order not found")
		default:
			// delivery failed; the gateway may retry the notification
			logger.Error("zitopay_webhook", "status", "topup_failed", "order_id", n.OrderID(), "error", err)
			writeError(w, http.StatusInternalServerError, "topup failed")
		}
		return
	}

	switch result.Outcome {
	case orders.OutcomeAlreadyProcessed:
		writeJSON(w, http.StatusOK, map[string]string{"result": "already processed"})
	case orders.OutcomeIgnored:
		writeJSON(w, http.StatusOK, map[string]string{"result": "ignored"})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
	}
}
