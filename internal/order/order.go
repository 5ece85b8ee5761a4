package order

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	gwtypes "github.com/amsoft/dukpay-checkout/internal/core/datamodel/gateway"
	ordermodel "github.com/amsoft/dukpay-checkout/internal/core/datamodel/order"
)

// GatewayAPI is the slice of the DukPay client the order flow depends on.
type GatewayAPI interface {
	CreateOrder(ctx context.Context, country string, req gwtypes.OrderRequest) (*gwtypes.CreateOrderData, error)
	CreateAggregatedOrder(ctx context.Context, req gwtypes.OrderRequest) (*gwtypes.CreateOrderData, error)
	QueryByMerchantOrderID(ctx context.Context, merchantOrderID string) (*gwtypes.OrderStatus, error)
	SupportedCountries() []string
}

// CallbackVerifier authenticates an inbound notification payload before any
// field of it may be trusted.
type CallbackVerifier interface {
	VerifyCallback(params map[string]string) bool
}

// RepositoryAPI is the persistent order store. ApplyNotification is the
// idempotency gate: it must atomically record the (merchant order id,
// status) pair and update the order, reporting false for duplicates.
type RepositoryAPI interface {
	Create(o *ordermodel.Order) error
	GetByMerchantOrderID(merchantOrderID string) (*ordermodel.Order, error)
	ApplyNotification(n *ordermodel.AppliedNotification, response json.RawMessage) (bool, error)
}

// ServiceAPI is the surface the HTTP handlers depend on.
type ServiceAPI interface {
	CreateOrder(ctx context.Context, req *CheckoutRequest) (*CreationResult, error)
	ApplyNotification(ctx context.Context, n *Notification) (bool, error)
	ReconcileStatus(ctx context.Context, merchantOrderID string) (*gwtypes.OrderStatus, bool)
}

// CreationResult is what a successful order creation yields. PaymentURL is
// always non-empty; the gateway order id must be kept verbatim.
type CreationResult struct {
	MerchantOrderID string
	GatewayOrderID  string
	PaymentURL      string
	Amount          decimal.Decimal
	Currency        string
}

// Notification is a verified, normalized payment notification. Fields absent
// from the payload stay at their zero values.
type Notification struct {
	GatewayOrderID  string
	MerchantOrderID string
	Status          string
	Amount          decimal.Decimal
	Currency        string
	Raw             map[string]string
}

// MapGatewayStatus normalizes the gateway's status vocabulary onto the
// internal order states. "paid" and "success" are the same outcome.
func MapGatewayStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case string(gwtypes.OrderStatusSuccess), string(gwtypes.OrderStatusPaid):
		return ordermodel.StatusSuccess
	case string(gwtypes.OrderStatusFailed), "failure", "canceled", "cancelled":
		return ordermodel.StatusFailed
	default:
		return ordermodel.StatusPending
	}
}

// NewMerchantOrderID generates a collision-resistant merchant order
// identifier. The gateway treats it as opaque.
func NewMerchantOrderID() string {
	return "ORD-" + uuid.NewString()
}
