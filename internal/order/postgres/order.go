package postgres

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	ordermodel "github.com/amsoft/dukpay-checkout/internal/core/datamodel/order"
	orderpkg "github.com/amsoft/dukpay-checkout/internal/order"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) orderpkg.RepositoryAPI {
	return &OrderRepository{
		db: db,
	}
}

func (r *OrderRepository) Create(o *ordermodel.Order) error {
	return r.db.Create(o).Error
}

func (r *OrderRepository) GetByMerchantOrderID(merchantOrderID string) (*ordermodel.Order, error) {
	var o ordermodel.Order
	err := r.db.Where("merchant_order_id = ?", merchantOrderID).First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ApplyNotification records the (merchant_order_id, status) pair and updates
// the order in one transaction. The insert-or-ignore on the ledger's unique
// index is the idempotency gate: a second delivery of the same pair returns
// applied=false and changes nothing, including under concurrent deliveries.
func (r *OrderRepository) ApplyNotification(n *ordermodel.AppliedNotification, response json.RawMessage) (bool, error) {
	applied := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(n)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// duplicate delivery
			return nil
		}
		applied = true

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":      n.Status,
			"notified_at": now,
			"updated_at":  now,
		}
		if n.GatewayOrderID != "" {
			updates["gateway_order_id"] = n.GatewayOrderID
		}
		if response != nil {
			updates["gateway_response"] = response
		}

		res = tx.Model(&ordermodel.Order{}).
			Where("merchant_order_id = ?", n.MerchantOrderID).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			// creation was interrupted before the local row was written;
			// recover the order from the notification itself
			recovered := &ordermodel.Order{
				MerchantOrderID: n.MerchantOrderID,
				GatewayOrderID:  n.GatewayOrderID,
				Amount:          n.Amount,
				Currency:        n.Currency,
				Status:          n.Status,
				GatewayResponse: response,
				NotifiedAt:      &now,
			}
			return tx.Create(recovered).Error
		}

		return nil
	})

	return applied, err
}
