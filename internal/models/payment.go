package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 支付记录（网关订单对账的本地账本）
type Payment struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	Token            string         `gorm:"uniqueIndex;not null" json:"token"`                            // 本地支付令牌（外部订单号）
	ChannelID        uint           `gorm:"index;not null" json:"channel_id"`                             // 网关凭据ID
	Status           string         `gorm:"index;not null" json:"status"`                                 // 支付状态
	Total            Money          `gorm:"type:decimal(20,2);not null" json:"total"`                     // 应付总额
	CapturedAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"captured_amount"` // 已捕获金额（扣除退款）
	Currency         string         `gorm:"not null" json:"currency"`                                     // 币种
	Description      string         `gorm:"type:text" json:"description"`                                 // 订单描述
	Message          string         `gorm:"type:text" json:"message"`                                     // 附加消息（退款描述等）
	TransactionID    string         `gorm:"index" json:"transaction_id"`                                  // 网关订单号
	PayURL           string         `gorm:"type:text" json:"pay_url"`                                     // 跳转链接
	FraudStatus      string         `gorm:"index" json:"fraud_status"`                                    // 风控状态（空/rejected）
	FirstName        string         `json:"first_name"`                                                   // 买家名
	LastName         string         `json:"last_name"`                                                    // 买家姓
	Email            string         `json:"email"`                                                        // 买家邮箱
	Phone            string         `json:"phone"`                                                        // 买家电话
	Language         string         `json:"language"`                                                     // 买家语言
	CustomerIP       string         `json:"customer_ip"`                                                  // 买家IP
	RenewToken       string         `json:"renew_token"`                                                  // 续费卡令牌
	CardExpireYear   int            `json:"card_expire_year"`                                             // 卡有效期（年）
	CardExpireMonth  int            `json:"card_expire_month"`                                            // 卡有效期（月）
	CardMaskedNumber string         `json:"card_masked_number"`                                           // 卡号掩码
	TokenProvenance  string         `json:"token_provenance"`                                             // 令牌来源（task/user）
	Journal          JSON           `gorm:"type:json" json:"journal"`                                     // 网关报文流水（仅审计）
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}

// JournalEntries 读取流水中的数组字段
func (p *Payment) JournalEntries(key string) []interface{} {
	if p == nil || p.Journal == nil {
		return nil
	}
	entries, _ := p.Journal[key].([]interface{})
	return entries
}

// AppendJournal 向流水数组字段追加一条记录
func (p *Payment) AppendJournal(key string, entry interface{}) {
	if p == nil {
		return
	}
	if p.Journal == nil {
		p.Journal = JSON{}
	}
	entries, _ := p.Journal[key].([]interface{})
	p.Journal[key] = append(entries, entry)
}

// SetJournalValue 写入流水中的单值字段
func (p *Payment) SetJournalValue(key string, value interface{}) {
	if p == nil {
		return
	}
	if p.Journal == nil {
		p.Journal = JSON{}
	}
	p.Journal[key] = value
}
