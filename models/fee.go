package models

import (
	"time"

	"hms/constants"

	"gorm.io/gorm"
)

// Fee một phiếu thu, giữ nguyên tổng cả gói (không tách theo tháng,
// việc tách tháng là chuyện hiển thị của projection)
type Fee struct {
	ID        uint     `json:"id" gorm:"primaryKey"`
	StudentID uint     `json:"studentId" gorm:"index"`
	Student   *Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`

	Kind        string    `json:"kind"` // room_package, manual, refund
	Description string    `json:"description"`
	TotalAmount float64   `json:"totalAmount"`
	DueDate     time.Time `json:"dueDate"`
	Status      string    `json:"status" gorm:"default:pending"`
	Source      string    `json:"source"` // manual | auto_package

	PackageMonths *int `json:"packageMonths"`

	// Tách theo thành phần
	RentAmount    float64 `json:"rentAmount"`
	MessAmount    float64 `json:"messAmount"`
	DepositAmount float64 `json:"depositAmount"`

	// Phân bổ thanh toán về hai tài khoản quyết toán
	AccountAAmount  float64 `json:"accountAAmount"`
	AccountBAmount  float64 `json:"accountBAmount"`
	AccountAVoucher string  `json:"accountAVoucher"`
	AccountBVoucher string  `json:"accountBVoucher"`

	PaidAmount      float64    `json:"paidAmount"`
	RemainingAmount float64    `json:"remainingAmount"`
	PaidDate        *time.Time `json:"paidDate,omitempty"`
	PaymentMethod   string     `json:"paymentMethod"`
	TransactionID   string     `json:"transactionId"`

	// Snapshot phòng/giường tại thời điểm lập phiếu, giữ lịch sử khi chuyển phòng
	RoomNumber string `json:"roomNumber"`
	BedLabel   string `json:"bedLabel"`
	RoomType   string `json:"roomType"`

	// Thông tin trả phòng
	CheckOutDate *time.Time `json:"checkOutDate,omitempty"`
	RefundAmount float64    `json:"refundAmount"`
	RefundReason string     `json:"refundReason"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// BeforeSave giữ các bất biến trạng thái mỗi lần ghi:
// overdue chỉ là pending đã quá hạn, tính lại chứ không lưu cứng
func (f *Fee) BeforeSave(tx *gorm.DB) error {
	switch f.Status {
	case constants.FeeStatusPending, constants.FeeStatusOverdue:
		f.Status = constants.FeeStatusPending
		if !f.DueDate.IsZero() && f.DueDate.Before(startOfToday()) {
			f.Status = constants.FeeStatusOverdue
		}
	case constants.FeeStatusPartial:
		f.RemainingAmount = f.TotalAmount - f.PaidAmount
	}
	return nil
}

// IsSettled phiếu đã thu đủ hoặc đã đóng
func (f *Fee) IsSettled() bool {
	switch f.Status {
	case constants.FeeStatusPaid, constants.FeeStatusCheckedOut, constants.FeeStatusRefunded:
		return true
	}
	return false
}

// IsOpen phiếu còn phải thu
func (f *Fee) IsOpen() bool {
	switch f.Status {
	case constants.FeeStatusPending, constants.FeeStatusPartial, constants.FeeStatusOverdue:
		return true
	}
	return false
}

func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
