package dto

import "time"

// ManualEntryRequest tạo bút toán thủ công
type ManualEntryRequest struct {
	StudentID     uint    `json:"studentId" binding:"required"`
	FeeID         *uint   `json:"feeId"`
	Date          string  `json:"date"` // dd/mm/yyyy, bỏ trống là hôm nay
	Kind          string  `json:"kind" binding:"required"`
	Account       string  `json:"account" binding:"required"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"paymentMethod"`
	Tag           string  `json:"tag"`
	Description   string  `json:"description"`
}

// ShiftAccountRequest chuyển bút toán sang tài khoản quyết toán còn lại
type ShiftAccountRequest struct {
	Account string `json:"account" binding:"required"`
}

// LedgerEntryResponse bút toán trả về cho FE
type LedgerEntryResponse struct {
	ID            uint      `json:"id"`
	StudentID     uint      `json:"studentId"`
	FeeID         *uint     `json:"feeId,omitempty"`
	Date          time.Time `json:"date"`
	Kind          string    `json:"kind"`
	Account       string    `json:"account"`
	Amount        float64   `json:"amount"`
	Voucher       string    `json:"voucher,omitempty"`
	PaymentMethod string    `json:"paymentMethod,omitempty"`
	Tag           string    `json:"tag,omitempty"`
	Description   string    `json:"description,omitempty"`
	Balance       float64   `json:"balance"` // số dư lũy kế sau bút toán
}
