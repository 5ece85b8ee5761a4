package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeOrderPaid          = "order.paid"
	EventTypeOrderPaymentFailed = "order.payment_failed"
)

type OrderPaidEvent struct {
	BaseEvent
	MerchantOrderID string          `json:"merchant_order_id"`
	GatewayOrderID  string          `json:"gateway_order_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	CustomerEmail   string          `json:"customer_email"`
}

func NewOrderPaidEvent(merchantOrderID, gatewayOrderID string, amount decimal.Decimal, currency, customerEmail string) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeOrderPaid,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"merchant_order_id": merchantOrderID,
				"gateway_order_id":  gatewayOrderID,
				"amount":            amount.String(),
				"currency":          currency,
				"customer_email":    customerEmail,
			},
		},
		MerchantOrderID: merchantOrderID,
		GatewayOrderID:  gatewayOrderID,
		Amount:          amount,
		Currency:        currency,
		CustomerEmail:   customerEmail,
	}
}

type OrderPaymentFailedEvent struct {
	BaseEvent
	MerchantOrderID string          `json:"merchant_order_id"`
	GatewayOrderID  string          `json:"gateway_order_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
}

func NewOrderPaymentFailedEvent(merchantOrderID, gatewayOrderID string, amount decimal.Decimal, currency string) *OrderPaymentFailedEvent {
	return &OrderPaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeOrderPaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"merchant_order_id": merchantOrderID,
				"gateway_order_id":  gatewayOrderID,
				"amount":            amount.String(),
				"currency":          currency,
			},
		},
		MerchantOrderID: merchantOrderID,
		GatewayOrderID:  gatewayOrderID,
		Amount:          amount,
		Currency:        currency,
	}
}
