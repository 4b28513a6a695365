package postgres

import (
	"encoding/json"
	"time"

	paymentmodel "github.com/Zura1555/ecommerce/internal/core/datamodel/payment"
	paymentpkg "github.com/Zura1555/ecommerce/internal/payment"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) paymentpkg.RepositoryAPI {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(p *paymentmodel.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByOrderID(orderID string) (*paymentmodel.Payment, error) {
	var p paymentmodel.Payment
	err := r.db.Where("order_id = ?", orderID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) UpdateStatus(id int64, status string, transactionID *string, gatewayResponse json.RawMessage, failureReason *string) error {
	updates := map[string]interface{}{
		"status":       status,
		"processed_at": time.Now().UTC(),
		"updated_at":   time.Now().UTC(),
	}

	if transactionID != nil {
		updates["transaction_id"] = *transactionID
	}

	if gatewayResponse != nil {
		updates["gateway_response"] = gatewayResponse
	}

	if failureReason != nil {
		updates["failure_reason"] = *failureReason
	}

	return r.db.Model(&paymentmodel.Payment{}).Where("id = ?", id).Updates(updates).Error
}

func (r *PaymentRepository) IncrementRetryCount(id int64) error {
	return r.db.Model(&paymentmodel.Payment{}).
		Where("id = ?", id).
		UpdateColumn("retry_count", gorm.Expr("retry_count + 1")).Error
}

func (r *PaymentRepository) ListStalePending(olderThan time.Time, limit int) ([]*paymentmodel.Payment, error) {
	var payments []*paymentmodel.Payment
	err := r.db.Where("status = ? AND created_at < ?", paymentmodel.StatusPending, olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}
