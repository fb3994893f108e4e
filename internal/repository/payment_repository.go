package repository

import (
	"errors"
	"strings"

	"github.com/payu-bridge/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository 支付数据访问接口
type PaymentRepository interface {
	Create(payment *models.Payment) error
	Update(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetByToken(token string) (*models.Payment, error)
	GetLatestByTransactionID(transactionID string) (*models.Payment, error)
	ListByStatus(status string) ([]models.Payment, error)
}

// GormPaymentRepository GORM 实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓库
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Create 创建支付记录
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// Update 更新支付记录
func (r *GormPaymentRepository) Update(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

// GetByID 根据 ID 获取支付记录
func (r *GormPaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// GetByToken 根据本地支付令牌获取支付记录
func (r *GormPaymentRepository) GetByToken(token string) (*models.Payment, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	var payment models.Payment
	result := r.db.Where("token = ?", token).Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// GetLatestByTransactionID 根据网关订单号获取最新支付记录
func (r *GormPaymentRepository) GetLatestByTransactionID(transactionID string) (*models.Payment, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, nil
	}
	var payment models.Payment
	result := r.db.Where("transaction_id = ?", transactionID).Order("id desc").Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// ListByStatus 根据状态获取支付记录
func (r *GormPaymentRepository) ListByStatus(status string) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.Where("status = ?", strings.TrimSpace(status)).Order("id desc").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
