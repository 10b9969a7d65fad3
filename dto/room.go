package dto

import (
	"time"

	"hms/models"
)

// RoomRequest tạo/cập nhật phòng
type RoomRequest struct {
	RoomId      uint             `json:"id"`
	RoomNumber  string           `json:"roomNumber"`
	Capacity    int              `json:"capacity"`
	IsAC        *bool            `json:"isAC"`
	Type        string           `json:"type"`
	Status      string           `json:"status"`
	RentTable   models.RentTable `json:"rentTable"`
	BaseRent    float64          `json:"baseRent"`
	MessMonthly float64          `json:"messMonthly"`
}

// AllocateBedRequest gán sinh viên vào giường
type AllocateBedRequest struct {
	RoomID    uint   `json:"roomId" binding:"required"`
	StudentID uint   `json:"studentId" binding:"required"`
	BedLabel  string `json:"bedLabel"`
}

// ReleaseBedRequest trả giường
type ReleaseBedRequest struct {
	RoomID    uint `json:"roomId" binding:"required"`
	StudentID uint `json:"studentId" binding:"required"`
}

// TransferRoomRequest chuyển phòng
type TransferRoomRequest struct {
	StudentID uint   `json:"studentId" binding:"required"`
	NewRoomID uint   `json:"newRoomId" binding:"required"`
	BedLabel  string `json:"bedLabel"`
}

// RoomResponse phòng trả về cho FE
type RoomResponse struct {
	RoomId      uint             `json:"id"`
	RoomNumber  string           `json:"roomNumber"`
	Capacity    int              `json:"capacity"`
	IsAC        bool             `json:"isAC"`
	Type        string           `json:"type"`
	Status      string           `json:"status"`
	Occupied    int              `json:"occupied"`
	Beds        []models.Bed     `json:"beds"`
	OccupantIDs []int64          `json:"occupantIds"`
	RentTable   models.RentTable `json:"rentTable"`
	BaseRent    float64          `json:"baseRent"`
	MessMonthly float64          `json:"messMonthly"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}
