package order

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Order is the persistent record of one checkout attempt. It is created
// before the payer is redirected and updated when the gateway notifies us,
// so callbacks and reconciliation never depend on browser session state.
type Order struct {
	ID                 int64           `gorm:"primaryKey"`
	MerchantOrderID    string          `gorm:"column:merchant_order_id;not null;uniqueIndex"`
	GatewayOrderID     string          `gorm:"column:gateway_order_id"`
	Amount             decimal.Decimal `gorm:"column:amount;type:numeric(18,2);not null"`
	Currency           string          `gorm:"column:currency;not null"`
	Country            string          `gorm:"column:country;not null"`
	Status             string          `gorm:"column:status;default:pending"`
	ProductName        string          `gorm:"column:product_name"`
	ProductDescription *string         `gorm:"column:product_description"`
	CustomerName       string          `gorm:"column:customer_name"`
	CustomerEmail      string          `gorm:"column:customer_email"`
	CustomerPhone      *string         `gorm:"column:customer_phone"`
	GatewayResponse    json.RawMessage `gorm:"column:gateway_response;type:jsonb"`
	NotifiedAt         *time.Time      `gorm:"column:notified_at"`
	CreatedAt          time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;default:now()"`
}

func (Order) TableName() string {
	return "orders"
}

// IsTerminal reports whether the order has reached a final payment outcome.
func (o *Order) IsTerminal() bool {
	return o.Status == StatusSuccess || o.Status == StatusFailed
}

// AppliedNotification is the idempotency ledger: one row per
// (merchant_order_id, status) that has had its side effects applied. The
// unique index makes concurrent duplicate callbacks serialize in the store.
type AppliedNotification struct {
	ID              int64           `gorm:"primaryKey"`
	MerchantOrderID string          `gorm:"column:merchant_order_id;not null;uniqueIndex:idx_notification_order_status"`
	Status          string          `gorm:"column:status;not null;uniqueIndex:idx_notification_order_status"`
	GatewayOrderID  string          `gorm:"column:gateway_order_id"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(18,2)"`
	Currency        string          `gorm:"column:currency"`
	ReceivedAt      time.Time       `gorm:"column:received_at;default:now()"`
}

func (AppliedNotification) TableName() string {
	return "order_notifications"
}
