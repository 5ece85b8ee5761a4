package order

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	errors "github.com/amsoft/dukpay-checkout/internal"
	"github.com/amsoft/dukpay-checkout/internal/session"
	"github.com/amsoft/dukpay-checkout/internal/transport"
)

// Handler serves the browser-facing checkout and return endpoints.
type Handler struct {
	*transport.BaseHandler
	service    ServiceAPI
	sessions   session.Store
	cookieName string
	Logger     *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, sessions session.Store, cookieName string, logger *slog.Logger) *Handler {
	if cookieName == "" {
		cookieName = "dukpay_checkout"
	}
	return &Handler{
		BaseHandler: baseHandler,
		service:     service,
		sessions:    sessions,
		cookieName:  cookieName,
		Logger:      logger,
	}
}

// Checkout handles POST /api/v1/checkout. On success the order record is
// written to the payer's session and the gateway payment URL is returned for
// the browser to redirect to.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("Checkout: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	result, err := h.service.CreateOrder(r.Context(), &req)
	if err != nil {
		h.Logger.Error("Checkout: order creation failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	sid := h.sessionID(r)
	h.sessions.Put(sid, session.Record{
		MerchantOrderID: result.MerchantOrderID,
		GatewayOrderID:  result.GatewayOrderID,
		Amount:          result.Amount,
		Currency:        result.Currency,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.Logger.Info("Checkout: redirecting payer to gateway",
		"merchant_order_id", result.MerchantOrderID,
		"gateway_order_id", result.GatewayOrderID)

	h.WriteJSON(w, http.StatusOK, CheckoutResponse{
		MerchantOrderID: result.MerchantOrderID,
		GatewayOrderID:  result.GatewayOrderID,
		PaymentURL:      result.PaymentURL,
		Amount:          result.Amount,
		Currency:        result.Currency,
	})
}

// Return handles GET /api/v1/checkout/return, the payer's way back from the
// gateway. The session record is read once and cleared; reconciliation is
// best-effort and never fails the page.
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	resp := ReturnResponse{Message: "Thank you for your payment. Your transaction has been processed."}

	cookie, err := r.Cookie(h.cookieName)
	if err != nil {
		h.WriteJSON(w, http.StatusOK, resp)
		return
	}

	rec, ok := h.sessions.Get(cookie.Value)
	if !ok {
		h.WriteJSON(w, http.StatusOK, resp)
		return
	}
	h.sessions.Clear(cookie.Value)

	resp.MerchantOrderID = rec.MerchantOrderID
	resp.GatewayOrderID = rec.GatewayOrderID
	amount := rec.Amount
	resp.Amount = &amount
	resp.Currency = rec.Currency

	if status, ok := h.service.ReconcileStatus(r.Context(), rec.MerchantOrderID); ok {
		resp.Status = string(status.Status)
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) sessionID(r *http.Request) string {
	if cookie, err := r.Cookie(h.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return uuid.NewString()
}
