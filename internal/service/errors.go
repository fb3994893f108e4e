package service

import "errors"

var (
	ErrPaymentInvalid       = errors.New("payment request invalid")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentStatusInvalid = errors.New("payment status invalid")
	ErrChannelNotFound      = errors.New("payment channel not found")
	ErrChannelDisabled      = errors.New("payment channel disabled")
	ErrChannelConfigInvalid = errors.New("payment channel config invalid")
	ErrRefundConfigInvalid  = errors.New("refund config invalid")
	ErrRenewTokenMissing    = errors.New("payment has no renew token")
	ErrNotificationRejected = errors.New("notification rejected")
)
