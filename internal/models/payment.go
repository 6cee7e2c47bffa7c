package models

import "time"

// Payment 支付记录（每次结账尝试一条，作为确认/扣款的幂等键）
type Payment struct {
	ID              uint       `gorm:"primarykey" json:"id"`                                       // 主键
	Provider        string     `gorm:"type:varchar(20);not null;index" json:"provider"`            // 提供方（easypay/paypal）
	ShopOrderNo     string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"shop_order_no"` // 商户订单号
	ProviderRef     string     `gorm:"type:varchar(128);index" json:"provider_ref"`                // 第三方订单号 / intent id
	TransactionRef  string     `gorm:"type:varchar(128)" json:"transaction_ref"`                   // 第三方交易号
	Amount          Money      `gorm:"type:decimal(20,2);not null" json:"amount"`                  // 支付金额
	Currency        string     `gorm:"type:varchar(8);not null" json:"currency"`                   // 币种
	Status          string     `gorm:"type:varchar(20);not null;index" json:"status"`              // 支付状态
	GoodsName       string     `gorm:"type:varchar(255)" json:"goods_name"`                        // 商品描述
	AuthPageURL     string     `gorm:"type:text" json:"auth_page_url"`                             // 托管支付页地址
	AuthorizationID string     `gorm:"type:varchar(255)" json:"authorization_id"`                  // 回调授权号
	ResultCode      string     `gorm:"type:varchar(32)" json:"result_code"`                        // 最近结果码
	ResultMessage   string     `gorm:"type:varchar(512)" json:"result_message"`                    // 最近结果信息
	AuthDate        string     `gorm:"type:varchar(32)" json:"auth_date"`                          // 授权日期
	AuthTime        string     `gorm:"type:varchar(32)" json:"auth_time"`                          // 授权时间
	MethodType      string     `gorm:"type:varchar(32)" json:"method_type"`                        // 支付方式编码
	MethodName      string     `gorm:"type:varchar(64)" json:"method_name"`                        // 支付方式名称
	ProviderPayload JSON       `gorm:"type:json" json:"provider_payload"`                          // 第三方原始报文
	CallbackAt      *time.Time `gorm:"index" json:"callback_at"`                                   // 回调时间
	ApprovedAt      *time.Time `gorm:"index" json:"approved_at"`                                   // 确认时间
	OrderID         *uint      `gorm:"index" json:"order_id,omitempty"`                            // 绑定订单
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt       time.Time  `gorm:"index" json:"updated_at"`                                    // 更新时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
