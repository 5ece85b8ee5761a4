package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/amsoft/dukpay-checkout/internal/core/events"
	"github.com/amsoft/dukpay-checkout/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Manage events: publish test events, monitor event bus, inspect handlers`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a test event to the event bus for testing and debugging`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		publishTestEvent(args[0])
	},
}

var eventData string

// registerOrderEventHandlers wires the side effects of a payment outcome:
// fulfillment activation and the confirmation mail. Both are keyed off the
// idempotency-gated order events, so a redelivered callback never re-runs
// them.
func registerOrderEventHandlers(eventBus *events.EventBus, log *slog.Logger) {
	eventBus.Subscribe(events.EventTypeOrderPaid, func(ctx context.Context, event events.Event) error {
		paid, ok := event.(*events.OrderPaidEvent)
		if !ok {
			return fmt.Errorf("unexpected event payload for %s", event.EventType())
		}

		// TODO: replace with the fulfillment service call once it exists
		log.Info("activating service for paid order",
			"merchant_order_id", paid.MerchantOrderID,
			"amount", paid.Amount.String(),
			"currency", paid.Currency)
		return nil
	})

	eventBus.Subscribe(events.EventTypeOrderPaid, func(ctx context.Context, event events.Event) error {
		paid, ok := event.(*events.OrderPaidEvent)
		if !ok {
			return fmt.Errorf("unexpected event payload for %s", event.EventType())
		}

		log.Info("sending payment confirmation email",
			"merchant_order_id", paid.MerchantOrderID,
			"customer_email", paid.CustomerEmail)
		return nil
	})

	eventBus.Subscribe(events.EventTypeOrderPaymentFailed, func(ctx context.Context, event events.Event) error {
		failed, ok := event.(*events.OrderPaymentFailedEvent)
		if !ok {
			return fmt.Errorf("unexpected event payload for %s", event.EventType())
		}

		log.Warn("order payment failed",
			"merchant_order_id", failed.MerchantOrderID,
			"gateway_order_id", failed.GatewayOrderID)
		return nil
	})
}

func publishTestEvent(eventType string) {
	log := logger.L()

	eventBus := events.NewEventBus(log)

	eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		log.Info("test handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	testEvent := events.BaseEvent{
		ID:        fmt.Sprintf("test-%d", time.Now().Unix()),
		Type:      eventType,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"message": eventData,
			"source":  "cli-command",
		},
	}

	log.Info("publishing test event", "event_type", eventType, "event_id", testEvent.ID)

	ctx := context.Background()
	if err := eventBus.Publish(ctx, testEvent); err != nil {
		log.Error("failed to publish event", "error", err)
		return
	}

	// async handlers; give them a moment before the process exits
	time.Sleep(100 * time.Millisecond)
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "event payload message")
	eventCmd.AddCommand(publishEventCmd)
}
