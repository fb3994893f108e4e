package repository

import (
	"errors"
	"strings"

	"github.com/payu-bridge/internal/models"

	"gorm.io/gorm"
)

// ChannelRepository 网关凭据数据访问接口
type ChannelRepository interface {
	Create(channel *models.Channel) error
	Update(channel *models.Channel) error
	GetByID(id uint) (*models.Channel, error)
	GetByCode(code string) (*models.Channel, error)
	ListActive() ([]models.Channel, error)
}

// GormChannelRepository GORM 实现
type GormChannelRepository struct {
	db *gorm.DB
}

// NewChannelRepository 创建网关凭据仓库
func NewChannelRepository(db *gorm.DB) *GormChannelRepository {
	return &GormChannelRepository{db: db}
}

// Create 创建凭据配置
func (r *GormChannelRepository) Create(channel *models.Channel) error {
	return r.db.Create(channel).Error
}

// Update 更新凭据配置
func (r *GormChannelRepository) Update(channel *models.Channel) error {
	return r.db.Save(channel).Error
}

// GetByID 根据 ID 获取凭据配置
func (r *GormChannelRepository) GetByID(id uint) (*models.Channel, error) {
	var channel models.Channel
	if err := r.db.First(&channel, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &channel, nil
}

// GetByCode 根据代号获取凭据配置
func (r *GormChannelRepository) GetByCode(code string) (*models.Channel, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var channel models.Channel
	result := r.db.Where("code = ?", code).Limit(1).Find(&channel)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &channel, nil
}

// ListActive 获取启用的凭据配置
func (r *GormChannelRepository) ListActive() ([]models.Channel, error) {
	var channels []models.Channel
	if err := r.db.Where("active = ?", true).Order("id asc").Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}
