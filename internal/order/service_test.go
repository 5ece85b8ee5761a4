package order_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	apperrors "github.com/amsoft/dukpay-checkout/internal"
	gwtypes "github.com/amsoft/dukpay-checkout/internal/core/datamodel/gateway"
	ordermodel "github.com/amsoft/dukpay-checkout/internal/core/datamodel/order"
	"github.com/amsoft/dukpay-checkout/internal/core/events"
	"github.com/amsoft/dukpay-checkout/internal/gateway"
	"github.com/amsoft/dukpay-checkout/internal/order"
)

// Mock gateway client for testing
type mockGateway struct {
	countries       []string
	createData      *gwtypes.CreateOrderData
	createErr       error
	countryCalls    []string
	aggregatedCalls int
	queryStatus     *gwtypes.OrderStatus
	queryErr        error
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		countries: []string{"BR", "IN", "MX"},
		createData: &gwtypes.CreateOrderData{
			OrderID:    "gw-1001",
			PaymentURL: "https://pay.example/gw-1001",
		},
	}
}

func (m *mockGateway) CreateOrder(ctx context.Context, country string, req gwtypes.OrderRequest) (*gwtypes.CreateOrderData, error) {
	m.countryCalls = append(m.countryCalls, country)
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.createData, nil
}

func (m *mockGateway) CreateAggregatedOrder(ctx context.Context, req gwtypes.OrderRequest) (*gwtypes.CreateOrderData, error) {
	m.aggregatedCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.createData, nil
}

func (m *mockGateway) QueryByMerchantOrderID(ctx context.Context, merchantOrderID string) (*gwtypes.OrderStatus, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.queryStatus, nil
}

func (m *mockGateway) SupportedCountries() []string {
	return m.countries
}

// Mock order repository for testing
type mockRepository struct {
	orders       map[string]*ordermodel.Order
	appliedPairs map[string]bool
	applied      []*ordermodel.AppliedNotification
	createErr    error
	applyErr     error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		orders:       make(map[string]*ordermodel.Order),
		appliedPairs: make(map[string]bool),
	}
}

func (m *mockRepository) Create(o *ordermodel.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.orders[o.MerchantOrderID] = o
	return nil
}

func (m *mockRepository) GetByMerchantOrderID(merchantOrderID string) (*ordermodel.Order, error) {
	o, ok := m.orders[merchantOrderID]
	if !ok {
		return nil, errors.New("order not found")
	}
	return o, nil
}

func (m *mockRepository) ApplyNotification(n *ordermodel.AppliedNotification, response json.RawMessage) (bool, error) {
	if m.applyErr != nil {
		return false, m.applyErr
	}
	key := fmt.Sprintf("%s|%s", n.MerchantOrderID, n.Status)
	if m.appliedPairs[key] {
		return false, nil
	}
	m.appliedPairs[key] = true
	m.applied = append(m.applied, n)
	if o, ok := m.orders[n.MerchantOrderID]; ok {
		o.Status = n.Status
	}
	return true, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

var _ = Describe("OrderService", func() {
	var (
		service  *order.Service
		gw       *mockGateway
		repo     *mockRepository
		eventBus *events.EventBus
		ctx      context.Context
	)

	newRequest := func() *order.CheckoutRequest {
		return &order.CheckoutRequest{
			Amount:        decimal.RequireFromString("49.90"),
			Currency:      "BRL",
			Country:       "BR",
			ProductName:   "Premium Plan",
			CustomerName:  "Ana Souza",
			CustomerEmail: "ana@example.com",
		}
	}

	BeforeEach(func() {
		gw = newMockGateway()
		repo = newMockRepository()
		logger := testLogger()
		eventBus = events.NewEventBus(logger)
		dispatcher := order.NewDispatcher(gw, logger)
		service = order.NewService(dispatcher, gw, repo, eventBus, order.Config{
			ReturnURL: "https://merchant.example/return",
			NotifyURL: "https://merchant.example/callback",
		}, logger)
		ctx = context.Background()
	})

	Describe("CreateOrder", func() {
		It("should create an order and return the payment URL", func() {
			result, err := service.CreateOrder(ctx, newRequest())

			Expect(err).NotTo(HaveOccurred())
			Expect(result.PaymentURL).To(Equal("https://pay.example/gw-1001"))
			Expect(result.GatewayOrderID).To(Equal("gw-1001"))
			Expect(result.MerchantOrderID).To(HavePrefix("ORD-"))
		})

		It("should persist a pending order record before returning", func() {
			result, err := service.CreateOrder(ctx, newRequest())

			Expect(err).NotTo(HaveOccurred())
			record, getErr := repo.GetByMerchantOrderID(result.MerchantOrderID)
			Expect(getErr).NotTo(HaveOccurred())
			Expect(record.Status).To(Equal(ordermodel.StatusPending))
			Expect(record.GatewayOrderID).To(Equal("gw-1001"))
			Expect(record.Amount.Equal(decimal.RequireFromString("49.90"))).To(BeTrue())
		})

		It("should generate a fresh merchant order id per request", func() {
			first, err := service.CreateOrder(ctx, newRequest())
			Expect(err).NotTo(HaveOccurred())
			second, err := service.CreateOrder(ctx, newRequest())
			Expect(err).NotTo(HaveOccurred())

			Expect(first.MerchantOrderID).NotTo(Equal(second.MerchantOrderID))
		})

		It("should reject a non-positive amount before calling the gateway", func() {
			req := newRequest()
			req.Amount = decimal.Zero

			_, err := service.CreateOrder(ctx, req)

			Expect(err).To(HaveOccurred())
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
			details, ok := appErr.Details.(apperrors.ValidationErrors)
			Expect(ok).To(BeTrue())
			codes := make([]string, 0, len(details.Errors))
			for _, fieldErr := range details.Errors {
				codes = append(codes, fieldErr.Code)
			}
			Expect(codes).To(ContainElement(string(apperrors.ErrCodeInvalidAmount)))
			Expect(gw.countryCalls).To(BeEmpty())
			Expect(gw.aggregatedCalls).To(BeZero())
		})

		It("should reject a missing customer email before calling the gateway", func() {
			req := newRequest()
			req.CustomerEmail = ""

			_, err := service.CreateOrder(ctx, req)

			Expect(err).To(HaveOccurred())
			Expect(gw.countryCalls).To(BeEmpty())
			Expect(gw.aggregatedCalls).To(BeZero())
		})

		It("should apply the default currency when none is given", func() {
			req := newRequest()
			req.Currency = ""

			result, err := service.CreateOrder(ctx, req)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Currency).To(Equal("USD"))
		})

		It("should classify a gateway refusal as an external error", func() {
			gw.createErr = fmt.Errorf("%w: code 4001: unsupported currency", gateway.ErrGatewayRejected)

			_, err := service.CreateOrder(ctx, newRequest())

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeGatewayRejected))
		})

		It("should classify a missing payment URL distinctly", func() {
			gw.createErr = fmt.Errorf("%w: merchant_order_id=ORD-x", gateway.ErrNoPaymentURL)

			_, err := service.CreateOrder(ctx, newRequest())

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeNoPaymentURL))
		})

		It("should still return the payment URL when persisting the record fails", func() {
			repo.createErr = errors.New("connection lost")

			result, err := service.CreateOrder(ctx, newRequest())

			Expect(err).NotTo(HaveOccurred())
			Expect(result.PaymentURL).To(Equal("https://pay.example/gw-1001"))
		})
	})

	Describe("ApplyNotification", func() {
		notification := func(status string) *order.Notification {
			return &order.Notification{
				GatewayOrderID:  "gw-1001",
				MerchantOrderID: "ORD-n1",
				Status:          status,
				Amount:          decimal.RequireFromString("49.90"),
				Currency:        "BRL",
				Raw:             map[string]string{"status": status},
			}
		}

		It("should apply a success notification once", func() {
			applied, err := service.ApplyNotification(ctx, notification("success"))

			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeTrue())
			Expect(repo.applied).To(HaveLen(1))
			Expect(repo.applied[0].Status).To(Equal(ordermodel.StatusSuccess))
		})

		It("should normalize the paid status onto success", func() {
			applied, err := service.ApplyNotification(ctx, notification("paid"))

			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeTrue())
			Expect(repo.applied[0].Status).To(Equal(ordermodel.StatusSuccess))
		})

		It("should report a duplicate delivery without reapplying", func() {
			applied, err := service.ApplyNotification(ctx, notification("success"))
			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeTrue())

			applied, err = service.ApplyNotification(ctx, notification("success"))
			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeFalse())
			Expect(repo.applied).To(HaveLen(1))
		})

		It("should treat paid and success as the same delivery", func() {
			applied, err := service.ApplyNotification(ctx, notification("success"))
			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeTrue())

			applied, err = service.ApplyNotification(ctx, notification("paid"))
			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeFalse())
		})

		It("should apply a failed notification as a distinct delivery", func() {
			applied, err := service.ApplyNotification(ctx, notification("failed"))

			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeTrue())
			Expect(repo.applied[0].Status).To(Equal(ordermodel.StatusFailed))
		})

		It("should surface a store failure so the gateway redelivers", func() {
			repo.applyErr = errors.New("connection lost")

			applied, err := service.ApplyNotification(ctx, notification("success"))

			Expect(err).To(HaveOccurred())
			Expect(applied).To(BeFalse())
		})
	})

	Describe("ReconcileStatus", func() {
		It("should return the gateway status when the query succeeds", func() {
			gw.queryStatus = &gwtypes.OrderStatus{
				MerchantOrderID: "ORD-n1",
				Status:          gwtypes.OrderStatusSuccess,
			}

			status, ok := service.ReconcileStatus(ctx, "ORD-n1")

			Expect(ok).To(BeTrue())
			Expect(status.Status).To(Equal(gwtypes.OrderStatusSuccess))
		})

		It("should degrade silently when the query fails", func() {
			gw.queryErr = errors.New("gateway unreachable")

			status, ok := service.ReconcileStatus(ctx, "ORD-n1")

			Expect(ok).To(BeFalse())
			Expect(status).To(BeNil())
		})
	})
})
