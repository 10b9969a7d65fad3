package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// LedgerEntry bút toán thủ công trên hai tài khoản quyết toán,
// không bắt buộc gắn 1:1 với phiếu thu; khi dựng statement sẽ
// khớp vào session theo ngày/heuristic
type LedgerEntry struct {
	ID        uint     `json:"id" gorm:"primaryKey"`
	StudentID uint     `json:"studentId" gorm:"index"`
	Student   *Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	FeeID     *uint    `json:"feeId,omitempty" gorm:"index"`

	Date          time.Time `json:"date"`
	Kind          string    `json:"kind" validate:"required,oneof=Payment Other"`
	Account       string    `json:"account" validate:"required,oneof=A B"`
	Amount        float64   `json:"amount" validate:"gte=0"`
	Voucher       string    `json:"voucher"`
	PaymentMethod string    `json:"paymentMethod"` // cash, online, upi...
	Tag           string    `json:"tag"`           // rent, mess, deposit, refund, room_shift, adjustment
	Description   string    `json:"description"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (e *LedgerEntry) Validate() error {
	validate := validator.New()
	return validate.Struct(e)
}

// IsCredit bút toán ghi nhận tiền thu vào
func (e *LedgerEntry) IsCredit() bool {
	return e.Kind == "Payment"
}
