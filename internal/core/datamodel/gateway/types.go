package gateway

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatusValue string

const (
	OrderStatusPending OrderStatusValue = "pending"
	OrderStatusSuccess OrderStatusValue = "success"
	OrderStatusPaid    OrderStatusValue = "paid"
	OrderStatusFailed  OrderStatusValue = "failed"
)

// OrderRequest is the payload for both the per-country and the aggregated
// order-creation operations.
type OrderRequest struct {
	MerchantOrderID    string          `json:"order_id"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Country            string          `json:"country"`
	ReturnURL          string          `json:"return_url"`
	NotifyURL          string          `json:"notify_url"`
	ProductName        string          `json:"product_name"`
	ProductDescription string          `json:"product_description,omitempty"`
	CustomerName       string          `json:"customer_name"`
	CustomerEmail      string          `json:"customer_email"`
	CustomerPhone      string          `json:"customer_phone,omitempty"`
}

func (r *OrderRequest) Validate() error {
	if r.MerchantOrderID == "" {
		return errors.New("order_id is required")
	}
	if !r.Amount.IsPositive() {
		return errors.New("amount must be greater than 0")
	}
	if r.Currency == "" {
		return errors.New("currency is required")
	}
	if r.CustomerName == "" || r.CustomerEmail == "" {
		return errors.New("customer name and email are required")
	}
	return nil
}

// CreateOrderData is the payload the gateway returns for a created order.
// PaymentURL is the hosted checkout page the payer must be redirected to.
type CreateOrderData struct {
	OrderID    string `json:"order_id"`
	PaymentURL string `json:"payment_url"`
}

// OrderStatus is the gateway's authoritative view of an order, returned by
// the status query.
type OrderStatus struct {
	OrderID         string           `json:"order_id"`
	MerchantOrderID string           `json:"merchant_order_id"`
	Status          OrderStatusValue `json:"status"`
	Amount          decimal.Decimal  `json:"amount"`
	Currency        string           `json:"currency"`
	PaidAt          *time.Time       `json:"paid_at,omitempty"`
}
