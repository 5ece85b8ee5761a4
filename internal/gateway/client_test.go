package gateway_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/amsoft/dukpay-checkout/internal/core/datamodel/gateway"
	gwclient "github.com/amsoft/dukpay-checkout/internal/gateway"
)

type recordedRequest struct {
	path   string
	params map[string]string
}

// fakeGateway replays canned envelope responses and records what it was sent.
type fakeGateway struct {
	server    *httptest.Server
	requests  []recordedRequest
	responses map[string]string
	status    int
}

func newFakeGateway() *fakeGateway {
	f := &fakeGateway{
		responses: make(map[string]string),
		status:    http.StatusOK,
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Expect(r.ParseForm()).To(Succeed())
		params := make(map[string]string)
		for key := range r.PostForm {
			params[key] = r.PostForm.Get(key)
		}
		f.requests = append(f.requests, recordedRequest{path: r.URL.Path, params: params})

		body, ok := f.responses[r.URL.Path]
		if !ok {
			body = `{"code":1,"message":"unknown endpoint"}`
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(body))
	}))
	return f
}

func (f *fakeGateway) lastRequest() recordedRequest {
	Expect(f.requests).NotTo(BeEmpty())
	return f.requests[len(f.requests)-1]
}

var _ = Describe("Client", func() {
	var (
		fake   *fakeGateway
		client *gwclient.Client
		ctx    context.Context
		req    gateway.OrderRequest
	)

	const apiKey = "test-api-key"

	BeforeEach(func() {
		fake = newFakeGateway()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		client = gwclient.NewClient(gwclient.Config{
			BaseURL:    fake.server.URL,
			APIKey:     apiKey,
			MerchantID: "merchant-42",
		}, logger)
		ctx = context.Background()
		req = gateway.OrderRequest{
			MerchantOrderID: "ORD-abc",
			Amount:          decimal.RequireFromString("25.50"),
			Currency:        "BRL",
			Country:         "BR",
			ReturnURL:       "https://merchant.example/return",
			NotifyURL:       "https://merchant.example/callback",
			ProductName:     "Premium Plan",
			CustomerName:    "Ana Souza",
			CustomerEmail:   "ana@example.com",
		}
	})

	AfterEach(func() {
		fake.server.Close()
	})

	Describe("SupportedCountries", func() {
		It("should return the specialized countries in sorted order", func() {
			Expect(client.SupportedCountries()).To(Equal([]string{"BR", "IN", "MX"}))
		})
	})

	Describe("CreateOrder", func() {
		BeforeEach(func() {
			fake.responses["/v1/orders/br"] = `{"code":0,"message":"ok","data":{"order_id":"gw-777","payment_url":"https://pay.example/gw-777"}}`
		})

		It("should post to the country endpoint and return the payment URL", func() {
			data, err := client.CreateOrder(ctx, "BR", req)

			Expect(err).NotTo(HaveOccurred())
			Expect(data.OrderID).To(Equal("gw-777"))
			Expect(data.PaymentURL).To(Equal("https://pay.example/gw-777"))
			Expect(fake.lastRequest().path).To(Equal("/v1/orders/br"))
		})

		It("should send a payload the gateway can verify", func() {
			_, err := client.CreateOrder(ctx, "BR", req)
			Expect(err).NotTo(HaveOccurred())

			sent := fake.lastRequest().params
			Expect(sent["merchant_id"]).To(Equal("merchant-42"))
			Expect(sent["order_id"]).To(Equal("ORD-abc"))
			Expect(sent["amount"]).To(Equal("25.50"))
			Expect(sent["timestamp"]).NotTo(BeEmpty())
			Expect(gwclient.NewSigner(apiKey).Verify(sent)).To(BeTrue())
		})

		It("should accept lowercase country codes", func() {
			_, err := client.CreateOrder(ctx, "br", req)

			Expect(err).NotTo(HaveOccurred())
			Expect(fake.lastRequest().path).To(Equal("/v1/orders/br"))
		})

		It("should fail for a country without a specialized endpoint", func() {
			_, err := client.CreateOrder(ctx, "DE", req)

			Expect(err).To(MatchError(gwclient.ErrUnsupportedCountry))
			Expect(fake.requests).To(BeEmpty())
		})

		It("should reject an invalid order request before sending anything", func() {
			req.Amount = decimal.Zero

			_, err := client.CreateOrder(ctx, "BR", req)

			Expect(err).To(HaveOccurred())
			Expect(fake.requests).To(BeEmpty())
		})

		It("should surface a gateway refusal", func() {
			fake.responses["/v1/orders/br"] = `{"code":4001,"message":"unsupported currency"}`

			_, err := client.CreateOrder(ctx, "BR", req)

			Expect(err).To(MatchError(gwclient.ErrGatewayRejected))
			Expect(err.Error()).To(ContainSubstring("unsupported currency"))
		})

		It("should fail when the response carries no payment URL", func() {
			fake.responses["/v1/orders/br"] = `{"code":0,"message":"ok","data":{"order_id":"gw-777"}}`

			_, err := client.CreateOrder(ctx, "BR", req)

			Expect(err).To(MatchError(gwclient.ErrNoPaymentURL))
		})
	})

	Describe("CreateAggregatedOrder", func() {
		It("should post to the aggregated endpoint", func() {
			fake.responses["/v1/orders/aggregated"] = `{"code":0,"message":"ok","data":{"order_id":"gw-agg","payment_url":"https://pay.example/gw-agg"}}`
			req.Country = "DE"

			data, err := client.CreateAggregatedOrder(ctx, req)

			Expect(err).NotTo(HaveOccurred())
			Expect(data.OrderID).To(Equal("gw-agg"))
			Expect(fake.lastRequest().path).To(Equal("/v1/orders/aggregated"))
			Expect(fake.lastRequest().params["country"]).To(Equal("DE"))
		})
	})

	Describe("QueryByMerchantOrderID", func() {
		It("should return the gateway's order status", func() {
			fake.responses["/v1/orders/query"] = `{"code":0,"message":"ok","data":{"order_id":"gw-777","merchant_order_id":"ORD-abc","status":"paid","amount":"25.50","currency":"BRL"}}`

			status, err := client.QueryByMerchantOrderID(ctx, "ORD-abc")

			Expect(err).NotTo(HaveOccurred())
			Expect(status.Status).To(Equal(gateway.OrderStatusPaid))
			Expect(status.Amount.Equal(decimal.RequireFromString("25.50"))).To(BeTrue())
			Expect(fake.lastRequest().params["merchant_order_id"]).To(Equal("ORD-abc"))
		})

		It("should require a merchant order id", func() {
			_, err := client.QueryByMerchantOrderID(ctx, "")

			Expect(err).To(HaveOccurred())
			Expect(fake.requests).To(BeEmpty())
		})

		It("should surface a refusal from the query endpoint", func() {
			fake.responses["/v1/orders/query"] = `{"code":404,"message":"order not found"}`

			_, err := client.QueryByMerchantOrderID(ctx, "ORD-missing")

			Expect(err).To(MatchError(gwclient.ErrGatewayRejected))
		})
	})

	Describe("VerifyCallback", func() {
		It("should accept payloads signed with the merchant API key", func() {
			params := map[string]string{
				"merchant_order_id": "ORD-abc",
				"status":            "success",
			}
			params["signature"] = gwclient.NewSigner(apiKey).Sign(params)

			Expect(client.VerifyCallback(params)).To(BeTrue())
		})

		It("should reject unsigned payloads", func() {
			Expect(client.VerifyCallback(map[string]string{"status": "success"})).To(BeFalse())
		})
	})
})
