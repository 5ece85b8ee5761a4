package order

import (
	"github.com/shopspring/decimal"

	errors "github.com/amsoft/dukpay-checkout/internal"
	"github.com/amsoft/dukpay-checkout/internal/core/common/validation"
)

// Acknowledgment bodies the gateway recognizes for a processed or rejected
// notification. The gateway retries until it reads SUCCESS or gives up.
const (
	AckSuccess = "SUCCESS"
	AckFail    = "FAIL"
)

// CheckoutRequest is the payer-submitted order form.
type CheckoutRequest struct {
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency,omitempty"`
	Country            string          `json:"country,omitempty"`
	ProductName        string          `json:"product_name"`
	ProductDescription string          `json:"product_description,omitempty"`
	CustomerName       string          `json:"customer_name"`
	CustomerEmail      string          `json:"customer_email"`
	CustomerPhone      string          `json:"customer_phone,omitempty"`
}

func (r *CheckoutRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("amount", r.Amount).Required().PositiveAmount(errors.ErrCodeInvalidAmount)
	validator.Field("currency", r.Currency).ExactLength(3, errors.ErrCodeInvalidCurrency)
	validator.Field("country", r.Country).ExactLength(2, errors.ErrCodeInvalidCountry)
	validator.Field("customer_name", r.CustomerName).Required().MaxLength(120)
	validator.Field("customer_email", r.CustomerEmail).Required().Email().MaxLength(254)
	validator.Field("product_name", r.ProductName).MaxLength(200)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// CheckoutResponse carries the redirect target for a created order.
type CheckoutResponse struct {
	MerchantOrderID string          `json:"merchant_order_id"`
	GatewayOrderID  string          `json:"gateway_order_id"`
	PaymentURL      string          `json:"payment_url"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
}

// ReturnResponse is rendered when the payer comes back from the gateway.
// Status is only present when reconciliation succeeded; its absence never
// blocks the page.
type ReturnResponse struct {
	Message         string           `json:"message"`
	MerchantOrderID string           `json:"merchant_order_id,omitempty"`
	GatewayOrderID  string           `json:"gateway_order_id,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Currency        string           `json:"currency,omitempty"`
	Status          string           `json:"status,omitempty"`
}
