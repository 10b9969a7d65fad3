package dto

import "time"

// CollectionItem một khoản caller khai là đã thu ngay lúc tạo gói,
// mỗi khoản sinh một bút toán sổ quỹ kèm voucher
type CollectionItem struct {
	Component string  `json:"component" binding:"required"` // rent, mess, deposit
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Method    string  `json:"method"` // cash, online, upi...
}

// GeneratePackageRequest request tạo gói phí
type GeneratePackageRequest struct {
	StudentID uint             `json:"studentId" binding:"required"`
	Months    int              `json:"months" binding:"required"`
	DueDate   string           `json:"dueDate"` // dd/mm/yyyy, bỏ trống thì hệ thống tự chọn
	Collected []CollectionItem `json:"collected"`
}

// PayFeeRequest request gạch nợ một phiếu thu
type PayFeeRequest struct {
	Method        string `json:"method" binding:"required"`
	TransactionID string `json:"transactionId"`
}

// CheckOutRequest request trả phòng theo phiếu thu
type CheckOutRequest struct {
	Date   string `json:"date"` // dd/mm/yyyy, bỏ trống là hôm nay
	Reason string `json:"reason"`
}

// ManualFeeRequest tạo phiếu thu lẻ ngoài gói
type ManualFeeRequest struct {
	StudentID   uint    `json:"studentId" binding:"required"`
	Kind        string  `json:"kind"`
	TotalAmount float64 `json:"totalAmount" binding:"required,gt=0"`
	RentAmount  float64 `json:"rentAmount"`
	MessAmount  float64 `json:"messAmount"`
	DueDate     string  `json:"dueDate"`
	Description string  `json:"description"`
}

// FeeResponse phiếu thu trả về cho FE
type FeeResponse struct {
	ID              uint       `json:"id"`
	StudentID       uint       `json:"studentId"`
	StudentName     string     `json:"studentName,omitempty"`
	Kind            string     `json:"kind"`
	Status          string     `json:"status"`
	Source          string     `json:"source"`
	TotalAmount     float64    `json:"totalAmount"`
	PaidAmount      float64    `json:"paidAmount"`
	RemainingAmount float64    `json:"remainingAmount"`
	RentAmount      float64    `json:"rentAmount"`
	MessAmount      float64    `json:"messAmount"`
	DepositAmount   float64    `json:"depositAmount"`
	PackageMonths   *int       `json:"packageMonths,omitempty"`
	DueDate         time.Time  `json:"dueDate"`
	PaidDate        *time.Time `json:"paidDate,omitempty"`
	RoomNumber      string     `json:"roomNumber"`
	BedLabel        string     `json:"bedLabel"`
	RoomType        string     `json:"roomType"`
	CheckOutDate    *time.Time `json:"checkOutDate,omitempty"`
	RefundAmount    float64    `json:"refundAmount,omitempty"`
	RefundReason    string     `json:"refundReason,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}
