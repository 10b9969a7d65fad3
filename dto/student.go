package dto

import "time"

// StudentRequest tạo/cập nhật sinh viên
type StudentRequest struct {
	ID             uint   `json:"id"`
	RegNo          string `json:"regNo"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phoneNumber"`
	Avatar         string `json:"avatar"`
	GuardianName   string `json:"guardianName"`
	GuardianPhone  string `json:"guardianPhone"`
	EnrollmentDate string `json:"enrollmentDate"` // dd/mm/yyyy
	Status         string `json:"status"`
}

// StudentResponse sinh viên trả về cho FE
type StudentResponse struct {
	ID               uint       `json:"id"`
	RegNo            string     `json:"regNo"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	PhoneNumber      string     `json:"phoneNumber"`
	Avatar           string     `json:"avatar"`
	RoomID           *uint      `json:"roomId"`
	RoomNumber       string     `json:"roomNumber,omitempty"`
	BedLabel         string     `json:"bedLabel,omitempty"`
	EnrollmentDate   time.Time  `json:"enrollmentDate"`
	AdmissionThrough *time.Time `json:"admissionThrough"`
	PackageMonths    *int       `json:"packageMonths"`
	Status           string     `json:"status"`
	HasPendingFee    bool       `json:"hasPendingFee"`
	PendingAmount    float64    `json:"pendingAmount"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}
