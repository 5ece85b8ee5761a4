package order

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	errors "github.com/amsoft/dukpay-checkout/internal"
	gwtypes "github.com/amsoft/dukpay-checkout/internal/core/datamodel/gateway"
	ordermodel "github.com/amsoft/dukpay-checkout/internal/core/datamodel/order"
	"github.com/amsoft/dukpay-checkout/internal/core/events"
	"github.com/amsoft/dukpay-checkout/internal/gateway"
)

const defaultCountry = "US"

// Config carries the merchant-side URLs and defaults stamped onto every
// outbound order request.
type Config struct {
	ReturnURL       string
	NotifyURL       string
	DefaultCurrency string
}

// Service orchestrates the order lifecycle: creation through the dispatcher,
// idempotent notification handling, and best-effort reconciliation.
type Service struct {
	dispatcher *Dispatcher
	gateway    GatewayAPI
	repository RepositoryAPI
	eventBus   *events.EventBus
	config     Config
	logger     *slog.Logger
}

func NewService(dispatcher *Dispatcher, gw GatewayAPI, repository RepositoryAPI, eventBus *events.EventBus, config Config, logger *slog.Logger) *Service {
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = "USD"
	}
	return &Service{
		dispatcher: dispatcher,
		gateway:    gw,
		repository: repository,
		eventBus:   eventBus,
		config:     config,
		logger:     logger,
	}
}

// CreateOrder validates the checkout request, creates the order with the
// gateway and persists the local record. Session state is the caller's duty.
func (s *Service) CreateOrder(ctx context.Context, req *CheckoutRequest) (*CreationResult, error) {
	if err := req.Validate(); err != nil {
		s.logger.Warn("checkout request validation failed", "error", err)
		return nil, err
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.config.DefaultCurrency
	}
	country := strings.ToUpper(req.Country)
	if country == "" {
		country = defaultCountry
	}

	merchantOrderID := NewMerchantOrderID()

	gwReq := gwtypes.OrderRequest{
		MerchantOrderID:    merchantOrderID,
		Amount:             req.Amount,
		Currency:           currency,
		Country:            country,
		ReturnURL:          s.config.ReturnURL,
		NotifyURL:          s.config.NotifyURL,
		ProductName:        req.ProductName,
		ProductDescription: req.ProductDescription,
		CustomerName:       req.CustomerName,
		CustomerEmail:      req.CustomerEmail,
		CustomerPhone:      req.CustomerPhone,
	}

	data, err := s.dispatcher.Dispatch(ctx, gwReq)
	if err != nil {
		s.logger.Error("order creation failed",
			"error", err,
			"merchant_order_id", merchantOrderID,
			"country", country)
		return nil, s.classifyCreationError(err)
	}

	record := &ordermodel.Order{
		MerchantOrderID: merchantOrderID,
		GatewayOrderID:  data.OrderID,
		Amount:          req.Amount,
		Currency:        currency,
		Country:         country,
		Status:          ordermodel.StatusPending,
		ProductName:     req.ProductName,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
	}
	if req.ProductDescription != "" {
		record.ProductDescription = &req.ProductDescription
	}
	if req.CustomerPhone != "" {
		record.CustomerPhone = &req.CustomerPhone
	}

	// The order already exists gateway-side; a persistence failure must not
	// lose the payment URL. The callback path recovers the missing row.
	if err := s.repository.Create(record); err != nil {
		s.logger.Error("failed to persist order record",
			"error", err,
			"merchant_order_id", merchantOrderID)
	}

	s.logger.Info("order created",
		"merchant_order_id", merchantOrderID,
		"gateway_order_id", data.OrderID,
		"amount", req.Amount.String(),
		"currency", currency,
		"country", country)

	return &CreationResult{
		MerchantOrderID: merchantOrderID,
		GatewayOrderID:  data.OrderID,
		PaymentURL:      data.PaymentURL,
		Amount:          req.Amount,
		Currency:        currency,
	}, nil
}

func (s *Service) classifyCreationError(err error) error {
	switch {
	case stderrors.Is(err, gateway.ErrNoPaymentURL):
		return errors.NewExternalError("Payment URL not received from gateway", errors.ErrCodeNoPaymentURL, err)
	case stderrors.Is(err, gateway.ErrGatewayRejected):
		return errors.NewExternalError("Payment gateway refused the order", errors.ErrCodeGatewayRejected, err)
	default:
		if appErr, ok := errors.IsAppError(err); ok {
			return appErr
		}
		return errors.NewExternalError("Could not reach the payment gateway, please try again", errors.ErrCodeOrderCreateFailed, err)
	}
}

// ApplyNotification applies a verified payment notification exactly once per
// (merchant order id, status). It returns (false, nil) for duplicates and a
// non-nil error only on transient store failures, which the caller must
// signal to the gateway for redelivery.
func (s *Service) ApplyNotification(ctx context.Context, n *Notification) (bool, error) {
	status := MapGatewayStatus(n.Status)

	var raw json.RawMessage
	if len(n.Raw) > 0 {
		raw, _ = json.Marshal(n.Raw)
	}

	applied, err := s.repository.ApplyNotification(&ordermodel.AppliedNotification{
		MerchantOrderID: n.MerchantOrderID,
		Status:          status,
		GatewayOrderID:  n.GatewayOrderID,
		Amount:          n.Amount,
		Currency:        n.Currency,
		ReceivedAt:      time.Now().UTC(),
	}, raw)
	if err != nil {
		s.logger.Error("failed to apply payment notification",
			"error", err,
			"merchant_order_id", n.MerchantOrderID,
			"status", status)
		return false, err
	}

	if !applied {
		s.logger.Info("duplicate payment notification ignored",
			"merchant_order_id", n.MerchantOrderID,
			"status", status)
		return false, nil
	}

	customerEmail := ""
	if record, err := s.repository.GetByMerchantOrderID(n.MerchantOrderID); err == nil {
		customerEmail = record.CustomerEmail
	}

	switch status {
	case ordermodel.StatusSuccess:
		s.eventBus.Publish(ctx, events.NewOrderPaidEvent(n.MerchantOrderID, n.GatewayOrderID, n.Amount, n.Currency, customerEmail))
	case ordermodel.StatusFailed:
		s.eventBus.Publish(ctx, events.NewOrderPaymentFailedEvent(n.MerchantOrderID, n.GatewayOrderID, n.Amount, n.Currency))
	}

	s.logger.Info("payment notification applied",
		"merchant_order_id", n.MerchantOrderID,
		"gateway_order_id", n.GatewayOrderID,
		"status", status)

	return true, nil
}

// ReconcileStatus fetches the gateway's authoritative status for the order.
// It degrades to (nil, false) on any failure; the return page renders
// without the status badge rather than erroring.
func (s *Service) ReconcileStatus(ctx context.Context, merchantOrderID string) (*gwtypes.OrderStatus, bool) {
	status, err := s.gateway.QueryByMerchantOrderID(ctx, merchantOrderID)
	if err != nil {
		s.logger.Warn("order status query failed",
			"error", err,
			"merchant_order_id", merchantOrderID)
		return nil, false
	}
	return status, true
}
