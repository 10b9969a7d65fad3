package builders

import (
	"math"
	"time"

	"hms/constants"
	"hms/models"
)

// FeeBuilder giúp tạo phiếu thu theo từng bước
type FeeBuilder struct {
	fee *models.Fee
}

// NewFeeBuilder tạo instance mới của FeeBuilder
func NewFeeBuilder() *FeeBuilder {
	return &FeeBuilder{
		fee: &models.Fee{
			Status: constants.FeeStatusPending,
			Source: constants.FeeSourceManual,
		},
	}
}

// ForStudent gắn phiếu với sinh viên
func (b *FeeBuilder) ForStudent(studentID uint) *FeeBuilder {
	b.fee.StudentID = studentID
	return b
}

// Package phiếu gói nhiều tháng, tổng cả gói nằm trên một phiếu duy nhất
func (b *FeeBuilder) Package(months int, rentTotal, messTotal, deposit float64) *FeeBuilder {
	b.fee.Kind = constants.FeeKindRoomPackage
	b.fee.Source = constants.FeeSourceAutoPackage
	b.fee.PackageMonths = &months
	b.fee.RentAmount = rentTotal
	b.fee.MessAmount = messTotal
	b.fee.DepositAmount = deposit
	b.fee.TotalAmount = round2(rentTotal + messTotal + deposit)
	b.fee.RemainingAmount = b.fee.TotalAmount
	return b
}

// ManualCharge phiếu thu thủ công (phụ thu chuyển phòng, phạt, khoản lẻ)
func (b *FeeBuilder) ManualCharge(total, rentPart, messPart float64, reason string) *FeeBuilder {
	b.fee.Kind = constants.FeeKindManual
	b.fee.RentAmount = rentPart
	b.fee.MessAmount = messPart
	b.fee.TotalAmount = round2(total)
	b.fee.RemainingAmount = b.fee.TotalAmount
	b.fee.Description = reason
	return b
}

// Refund phiếu hoàn tiền, đã tất toán sẵn
func (b *FeeBuilder) Refund(amount float64, reason string) *FeeBuilder {
	now := time.Now()
	b.fee.Kind = constants.FeeKindRefund
	b.fee.Status = constants.FeeStatusRefunded
	b.fee.TotalAmount = round2(amount)
	b.fee.RefundAmount = round2(amount)
	b.fee.RefundReason = reason
	b.fee.PaidAmount = 0
	b.fee.RemainingAmount = 0
	b.fee.DueDate = now
	b.fee.PaidDate = &now
	return b
}

// DueOn đặt hạn thu
func (b *FeeBuilder) DueOn(due time.Time) *FeeBuilder {
	b.fee.DueDate = due
	return b
}

// RoomSnapshot chụp lại phòng/giường tại thời điểm lập phiếu
func (b *FeeBuilder) RoomSnapshot(roomNumber, bedLabel, roomType string) *FeeBuilder {
	b.fee.RoomNumber = roomNumber
	b.fee.BedLabel = bedLabel
	b.fee.RoomType = roomType
	return b
}

// Build tạo phiếu thu hoàn chỉnh
func (b *FeeBuilder) Build() *models.Fee {
	return b.fee
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
