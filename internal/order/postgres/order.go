package postgres

import (
	"errors"
	"time"

	ordermodel "github.com/Zura1555/ecommerce/internal/core/datamodel/order"
	orderpkg "github.com/Zura1555/ecommerce/internal/order"
	"gorm.io/gorm"
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

func (r *OrderRepository) GetByOrderID(orderID string) (*ordermodel.Order, error) {
	var o ordermodel.Order
	err := r.db.Where("order_id = ?", orderID).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orderpkg.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// PatchPayment applies target payment values with plain set semantics so a
// redelivered webhook writing the same values is a harmless no-op.
func (r *OrderRepository) PatchPayment(orderID string, patch ordermodel.PaymentPatch) error {
	updates := map[string]interface{}{
		"payment_status": patch.PaymentStatus,
		"status":         patch.Status,
		"updated_at":     time.Now().UTC(),
	}

	if patch.TransactionID != nil {
		updates["transaction_id"] = *patch.TransactionID
	}

	if patch.FailedReason != nil {
		updates["failed_reason"] = *patch.FailedReason
	}

	if patch.PaidAt != nil {
		updates["paid_at"] = *patch.PaidAt
	}

	result := r.db.Model(&ordermodel.Order{}).Where("order_id = ?", orderID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return orderpkg.ErrNotFound
	}
	return nil
}
