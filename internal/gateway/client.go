package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	gwtypes "github.com/amsoft/dukpay-checkout/internal/core/datamodel/gateway"
)

const (
	productionBaseURL = "https://api.dukpay.com"
	sandboxBaseURL    = "https://sandbox.dukpay.com"

	aggregatedOrderPath = "/v1/orders/aggregated"
	orderQueryPath      = "/v1/orders/query"

	defaultTimeout = 30 * time.Second
)

// countryOrderPaths lists the countries the gateway exposes a dedicated
// order-creation endpoint for. Everything else goes through the aggregated
// endpoint.
var countryOrderPaths = map[string]string{
	"BR": "/v1/orders/br",
	"IN": "/v1/orders/in",
	"MX": "/v1/orders/mx",
}

var (
	// ErrUnsupportedCountry means no specialized endpoint exists; callers
	// should fall back to CreateAggregatedOrder.
	ErrUnsupportedCountry = errors.New("no specialized order endpoint for country")

	// ErrGatewayRejected marks a well-formed gateway response that refused
	// the request, as opposed to a transport failure.
	ErrGatewayRejected = errors.New("gateway rejected request")

	// ErrNoPaymentURL marks a creation response that carried no redirect
	// target; the order is unusable regardless of HTTP-level success.
	ErrNoPaymentURL = errors.New("gateway response missing payment_url")
)

type Config struct {
	BaseURL    string
	APIKey     string
	MerchantID string
	Sandbox    bool
	Timeout    time.Duration
}

// Client talks to the DukPay API. All calls are signed and bounded by the
// configured timeout; timeouts surface as transport errors the caller may
// treat as retryable.
type Client struct {
	client     *http.Client
	baseURL    string
	merchantID string
	signer     *Signer
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Sandbox {
			baseURL = sandboxBaseURL
		} else {
			baseURL = productionBaseURL
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		client:     &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		merchantID: cfg.MerchantID,
		signer:     NewSigner(cfg.APIKey),
		logger:     logger,
	}
}

// SupportedCountries returns the countries with a specialized creation
// endpoint, sorted for deterministic registration.
func (c *Client) SupportedCountries() []string {
	countries := make([]string, 0, len(countryOrderPaths))
	for country := range countryOrderPaths {
		countries = append(countries, country)
	}
	sort.Strings(countries)
	return countries
}

// CreateOrder creates an order through the specialized endpoint for the
// given country. The country decides the endpoint and nothing else; callers
// must not retry with a different country.
func (c *Client) CreateOrder(ctx context.Context, country string, req gwtypes.OrderRequest) (*gwtypes.CreateOrderData, error) {
	path, ok := countryOrderPaths[strings.ToUpper(country)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCountry, country)
	}
	return c.createOrder(ctx, path, req)
}

// CreateAggregatedOrder creates an order through the multi-country endpoint
// the gateway accepts for any country.
func (c *Client) CreateAggregatedOrder(ctx context.Context, req gwtypes.OrderRequest) (*gwtypes.CreateOrderData, error) {
	return c.createOrder(ctx, aggregatedOrderPath, req)
}

func (c *Client) createOrder(ctx context.Context, path string, req gwtypes.OrderRequest) (*gwtypes.CreateOrderData, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid order request: %w", err)
	}

	params := map[string]string{
		"order_id":            req.MerchantOrderID,
		"amount":              req.Amount.StringFixed(2),
		"currency":            req.Currency,
		"country":             req.Country,
		"return_url":          req.ReturnURL,
		"notify_url":          req.NotifyURL,
		"product_name":        req.ProductName,
		"product_description": req.ProductDescription,
		"customer_name":       req.CustomerName,
		"customer_email":      req.CustomerEmail,
		"customer_phone":      req.CustomerPhone,
	}

	c.logger.Info("creating gateway order",
		"path", path,
		"merchant_order_id", req.MerchantOrderID,
		"amount", req.Amount.String(),
		"currency", req.Currency,
		"country", req.Country)

	raw, err := c.post(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var data gwtypes.CreateOrderData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode create order response: %w", err)
	}

	if data.PaymentURL == "" {
		return nil, fmt.Errorf("%w: merchant_order_id=%s", ErrNoPaymentURL, req.MerchantOrderID)
	}

	return &data, nil
}

// QueryByMerchantOrderID fetches the gateway's current status for an order.
func (c *Client) QueryByMerchantOrderID(ctx context.Context, merchantOrderID string) (*gwtypes.OrderStatus, error) {
	if merchantOrderID == "" {
		return nil, errors.New("merchant_order_id is required")
	}

	raw, err := c.post(ctx, orderQueryPath, map[string]string{
		"merchant_order_id": merchantOrderID,
	})
	if err != nil {
		return nil, err
	}

	var status gwtypes.OrderStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("decode order status response: %w", err)
	}

	return &status, nil
}

// VerifyCallback authenticates an inbound notification payload.
func (c *Client) VerifyCallback(params map[string]string) bool {
	return c.signer.Verify(params)
}

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// post signs the params, sends them form-encoded, and returns the data
// portion of the envelope. Envelope code 0 is success; anything else is a
// gateway-reported refusal.
func (c *Client) post(ctx context.Context, path string, params map[string]string) (json.RawMessage, error) {
	signed := make(map[string]string, len(params)+3)
	for k, v := range params {
		signed[k] = v
	}
	signed["merchant_id"] = c.merchantID
	signed["timestamp"] = strconv.FormatInt(time.Now().Unix(), 10)
	signed[signatureField] = c.signer.Sign(signed)

	form := url.Values{}
	for k, v := range signed {
		if v != "" {
			form.Set(k, v)
		}
	}

	endpoint := c.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error("gateway request failed", "path", path, "error", err)
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d", ErrGatewayRejected, resp.StatusCode)
		}
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || envelope.Code != 0 {
		c.logger.Error("gateway refused request",
			"path", path,
			"status", resp.StatusCode,
			"code", envelope.Code,
			"message", envelope.Message)
		return nil, fmt.Errorf("%w: code %d: %s", ErrGatewayRejected, envelope.Code, envelope.Message)
	}

	return envelope.Data, nil
}
