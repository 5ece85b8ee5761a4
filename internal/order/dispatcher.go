package order

import (
	"context"
	"log/slog"
	"strings"

	errors "github.com/amsoft/dukpay-checkout/internal"
	gwtypes "github.com/amsoft/dukpay-checkout/internal/core/datamodel/gateway"
)

type createFunc func(ctx context.Context, req gwtypes.OrderRequest) (*gwtypes.CreateOrderData, error)

// Dispatcher routes an order-creation request to the specialized gateway
// operation for its country, or to the aggregated operation when none is
// registered. The decision is made from the country code alone; a request is
// never retried under a different country.
type Dispatcher struct {
	ops        map[string]createFunc
	aggregated createFunc
	logger     *slog.Logger
}

func NewDispatcher(gw GatewayAPI, logger *slog.Logger) *Dispatcher {
	ops := make(map[string]createFunc)
	for _, country := range gw.SupportedCountries() {
		country := strings.ToUpper(country)
		ops[country] = func(ctx context.Context, req gwtypes.OrderRequest) (*gwtypes.CreateOrderData, error) {
			return gw.CreateOrder(ctx, country, req)
		}
	}
	return &Dispatcher{
		ops:        ops,
		aggregated: gw.CreateAggregatedOrder,
		logger:     logger,
	}
}

// Dispatch invokes exactly one creation operation for the request.
func (d *Dispatcher) Dispatch(ctx context.Context, req gwtypes.OrderRequest) (*gwtypes.CreateOrderData, error) {
	country := strings.ToUpper(strings.TrimSpace(req.Country))

	if op, ok := d.ops[country]; ok {
		d.logger.Debug("dispatching to specialized order operation", "country", country)
		return op(ctx, req)
	}

	if d.aggregated == nil {
		// unreachable with a real client; the aggregated operation is
		// unconditional
		return nil, errors.NewInternalError("no order creation operation available", nil)
	}

	d.logger.Debug("dispatching to aggregated order operation", "country", country)
	return d.aggregated(ctx, req)
}
