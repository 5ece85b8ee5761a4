package order

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/amsoft/dukpay-checkout/internal/transport"
)

// WebhookHandler ingests the gateway's asynchronous payment notifications.
// It runs independently of any browser session.
type WebhookHandler struct {
	*transport.BaseHandler
	service  ServiceAPI
	verifier CallbackVerifier
	Logger   *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, service ServiceAPI, verifier CallbackVerifier, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		service:     service,
		verifier:    verifier,
		Logger:      logger,
	}
}

// HandlePaymentCallback handles POST /api/v1/payment/callback.
//
// Acknowledgment contract: the gateway reads the plain-text body. SUCCESS
// stops redelivery; FAIL with HTTP 200 is a permanent rejection (forged or
// unusable payload), FAIL with HTTP 5xx asks the gateway to retry.
func (h *WebhookHandler) HandlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.Logger.Error("payment callback: malformed payload", "error", err)
		h.writeAck(w, http.StatusOK, AckFail)
		return
	}

	params := flattenValues(r.PostForm)

	if !h.verifier.VerifyCallback(params) {
		h.Logger.Warn("payment callback: signature verification failed",
			"remote_addr", r.RemoteAddr,
			"merchant_order_id", params["merchant_order_id"])
		h.writeAck(w, http.StatusOK, AckFail)
		return
	}

	notification := notificationFromParams(params)

	h.Logger.Info("received payment callback",
		"merchant_order_id", notification.MerchantOrderID,
		"gateway_order_id", notification.GatewayOrderID,
		"status", notification.Status,
		"amount", notification.Amount.String(),
		"currency", notification.Currency)

	if notification.MerchantOrderID == "" {
		h.Logger.Error("payment callback: missing merchant_order_id")
		h.writeAck(w, http.StatusOK, AckFail)
		return
	}

	applied, err := h.service.ApplyNotification(r.Context(), notification)
	if err != nil {
		// transient store failure; ask the gateway to redeliver
		h.Logger.Error("payment callback: failed to apply notification",
			"error", err,
			"merchant_order_id", notification.MerchantOrderID)
		h.writeAck(w, http.StatusInternalServerError, AckFail)
		return
	}

	if !applied {
		h.Logger.Info("payment callback: duplicate delivery acknowledged",
			"merchant_order_id", notification.MerchantOrderID,
			"status", notification.Status)
	}

	h.writeAck(w, http.StatusOK, AckSuccess)
}

// notificationFromParams normalizes a verified payload. Absent fields stay
// at explicit zero values; nothing is defaulted silently.
func notificationFromParams(params map[string]string) *Notification {
	amount := decimal.Zero
	if raw := params["amount"]; raw != "" {
		if parsed, err := decimal.NewFromString(raw); err == nil {
			amount = parsed
		}
	}

	return &Notification{
		GatewayOrderID:  params["order_id"],
		MerchantOrderID: params["merchant_order_id"],
		Status:          params["status"],
		Amount:          amount,
		Currency:        params["currency"],
		Raw:             params,
	}
}

func flattenValues(values url.Values) map[string]string {
	params := make(map[string]string, len(values))
	for key := range values {
		params[key] = values.Get(key)
	}
	return params
}

func (h *WebhookHandler) writeAck(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	fmt.Fprint(w, body)
}
