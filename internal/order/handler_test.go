package order_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	gwtypes "github.com/amsoft/dukpay-checkout/internal/core/datamodel/gateway"
	"github.com/amsoft/dukpay-checkout/internal/order"
	"github.com/amsoft/dukpay-checkout/internal/session"
	"github.com/amsoft/dukpay-checkout/internal/transport"
)

// Mock order service for handler testing
type mockService struct {
	creationResult     *order.CreationResult
	createErr          error
	createCalls        int
	applyResult        bool
	applyErr           error
	appliedNotes       []*order.Notification
	reconcileStatus    *gwtypes.OrderStatus
	reconcileOK        bool
	reconcileCalls     int
	reconciledOrderIDs []string
}

func newMockService() *mockService {
	return &mockService{
		creationResult: &order.CreationResult{
			MerchantOrderID: "ORD-h1",
			GatewayOrderID:  "gw-2002",
			PaymentURL:      "https://pay.example/gw-2002",
			Amount:          decimal.RequireFromString("15.00"),
			Currency:        "USD",
		},
		applyResult: true,
	}
}

func (m *mockService) CreateOrder(ctx context.Context, req *order.CheckoutRequest) (*order.CreationResult, error) {
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.creationResult, nil
}

func (m *mockService) ApplyNotification(ctx context.Context, n *order.Notification) (bool, error) {
	if m.applyErr != nil {
		return false, m.applyErr
	}
	if m.applyResult {
		m.appliedNotes = append(m.appliedNotes, n)
	}
	return m.applyResult, nil
}

func (m *mockService) ReconcileStatus(ctx context.Context, merchantOrderID string) (*gwtypes.OrderStatus, bool) {
	m.reconcileCalls++
	m.reconciledOrderIDs = append(m.reconciledOrderIDs, merchantOrderID)
	return m.reconcileStatus, m.reconcileOK
}

var _ = Describe("CheckoutHandler", func() {
	var (
		handler  *order.Handler
		service  *mockService
		sessions session.Store
	)

	const cookieName = "dukpay_checkout"

	checkoutBody := func() *bytes.Buffer {
		body, err := json.Marshal(map[string]any{
			"amount":         "15.00",
			"currency":       "USD",
			"country":        "BR",
			"customer_name":  "Ana Souza",
			"customer_email": "ana@example.com",
		})
		Expect(err).NotTo(HaveOccurred())
		return bytes.NewBuffer(body)
	}

	BeforeEach(func() {
		service = newMockService()
		sessions = session.NewMemoryStore(100, time.Minute)
		logger := testLogger()
		handler = order.NewHandler(transport.NewBaseHandler(logger), service, sessions, cookieName, logger)
	})

	Describe("Checkout", func() {
		It("should return the payment URL for a created order", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", checkoutBody())

			handler.Checkout(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp order.CheckoutResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.PaymentURL).To(Equal("https://pay.example/gw-2002"))
			Expect(resp.MerchantOrderID).To(Equal("ORD-h1"))
		})

		It("should store the order record under a session cookie", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", checkoutBody())

			handler.Checkout(rec, req)

			cookies := rec.Result().Cookies()
			var sid string
			for _, c := range cookies {
				if c.Name == cookieName {
					sid = c.Value
					Expect(c.HttpOnly).To(BeTrue())
				}
			}
			Expect(sid).NotTo(BeEmpty())

			stored, ok := sessions.Get(sid)
			Expect(ok).To(BeTrue())
			Expect(stored.MerchantOrderID).To(Equal("ORD-h1"))
			Expect(stored.GatewayOrderID).To(Equal("gw-2002"))
		})

		It("should reuse an existing session cookie", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", checkoutBody())
			req.AddCookie(&http.Cookie{Name: cookieName, Value: "existing-session"})

			handler.Checkout(rec, req)

			stored, ok := sessions.Get("existing-session")
			Expect(ok).To(BeTrue())
			Expect(stored.MerchantOrderID).To(Equal("ORD-h1"))
		})

		It("should reject an unparseable body without calling the service", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewBufferString("{not json"))

			handler.Checkout(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(service.createCalls).To(BeZero())
		})

		It("should map a service failure onto an error response", func() {
			service.createErr = errors.New("gateway unreachable")
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", checkoutBody())

			handler.Checkout(rec, req)

			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Return", func() {
		var visit = func(sid string) *httptest.ResponseRecorder {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/return", nil)
			if sid != "" {
				req.AddCookie(&http.Cookie{Name: cookieName, Value: sid})
			}
			handler.Return(rec, req)
			return rec
		}

		BeforeEach(func() {
			sessions.Put("sid-1", session.Record{
				MerchantOrderID: "ORD-h1",
				GatewayOrderID:  "gw-2002",
				Amount:          decimal.RequireFromString("15.00"),
				Currency:        "USD",
			})
		})

		It("should render the stored order with the reconciled status", func() {
			service.reconcileStatus = &gwtypes.OrderStatus{Status: gwtypes.OrderStatusSuccess}
			service.reconcileOK = true

			rec := visit("sid-1")

			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp order.ReturnResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.MerchantOrderID).To(Equal("ORD-h1"))
			Expect(resp.Status).To(Equal("success"))
			Expect(service.reconciledOrderIDs).To(Equal([]string{"ORD-h1"}))
		})

		It("should clear the session record after the first visit", func() {
			visit("sid-1")

			_, ok := sessions.Get("sid-1")
			Expect(ok).To(BeFalse())
		})

		It("should render a generic page on a repeat visit", func() {
			visit("sid-1")
			rec := visit("sid-1")

			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp order.ReturnResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.MerchantOrderID).To(BeEmpty())
			Expect(resp.Message).NotTo(BeEmpty())
		})

		It("should render a generic page without a session cookie", func() {
			rec := visit("")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(service.reconcileCalls).To(BeZero())
		})

		It("should still render the order when reconciliation fails", func() {
			service.reconcileOK = false

			rec := visit("sid-1")

			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp order.ReturnResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.MerchantOrderID).To(Equal("ORD-h1"))
			Expect(resp.Status).To(BeEmpty())
		})
	})
})
