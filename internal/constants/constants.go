package constants

// 支付状态常量
const (
	PaymentStatusWaiting   = "waiting"
	PaymentStatusInput     = "input"
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusRejected  = "rejected"
	PaymentStatusRefunded  = "refunded"
	PaymentStatusError     = "error"
)

// 续费卡令牌来源常量
const (
	TokenProvenanceTask = "task"
	TokenProvenanceUser = "user"
)

// 风控标记常量
const (
	FraudStatusReject = "reject"
)

// 退款状态常量
const (
	RefundStatusPending   = "PENDING"
	RefundStatusFinalized = "FINALIZED"
	RefundStatusCanceled  = "CANCELED"
)

// 网关订单状态常量
const (
	GatewayOrderStatusCompleted              = "COMPLETED"
	GatewayOrderStatusPending                = "PENDING"
	GatewayOrderStatusWaitingForConfirmation = "WAITING_FOR_CONFIRMATION"
	GatewayOrderStatusCanceled               = "CANCELED"
	GatewayOrderStatusNew                    = "NEW"
)

// 队列常量
const (
	QueueDefault = "default"
)

// 异步任务类型常量
const (
	TaskPaymentAutoRenew = "payment:auto_renew"
)
