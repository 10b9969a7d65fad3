package models

import (
	"time"
)

type Student struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	RegNo          string     `json:"regNo" gorm:"unique;not null"` // mã sinh viên do trường cấp
	Name           string     `json:"name"`
	Email          string     `json:"email" gorm:"unique"`
	PhoneNumber    string     `json:"phoneNumber"`
	Avatar         string     `json:"avatar"`
	GuardianName   string     `json:"guardianName"`
	GuardianPhone  string     `json:"guardianPhone"`
	RoomID         *uint      `json:"roomId"`
	Room           *Room      `json:"room,omitempty" gorm:"foreignKey:RoomID"`
	EnrollmentDate time.Time  `json:"enrollmentDate"`
	AllocatedAt    *time.Time `json:"allocatedAt"`
	// Ngày "ở đến" có hiệu lực, tính theo tháng dương lịch thật
	AdmissionThrough *time.Time `json:"admissionThrough"`
	PackageMonths    *int       `json:"packageMonths"`
	Status           string     `json:"status" gorm:"default:registered"`

	// Cache tổng hợp phí còn nợ, chỉ được ghi bởi BillingService.RecomputePendingFees.
	// Không bao giờ là nguồn sự thật, chỉ để hiển thị nhanh.
	HasPendingFee      bool       `json:"hasPendingFee"`
	PendingAmount      float64    `json:"pendingAmount"`
	PendingEarliestDue *time.Time `json:"pendingEarliestDue"`
	PendingLatestDue   *time.Time `json:"pendingLatestDue"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}
