package models

import (
	"fmt"
	"strings"
	"time"

	"hms/constants"

	"github.com/lib/pq"
)

// Bed một giường trong phòng, lưu dưới dạng JSON trong document phòng
type Bed struct {
	SlotIndex int    `json:"slotIndex"`
	Label     string `json:"label"` // A, B, C, D
	Occupied  bool   `json:"occupied"`
	StudentID *uint  `json:"studentId,omitempty"`
}

// RentTable bảng giá thuê theo số tháng của gói (1..5)
type RentTable map[int]float64

type Room struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	RoomNumber  string        `json:"roomNumber" gorm:"unique;not null"`
	Capacity    int           `json:"capacity"` // 1-4 giường
	IsAC        bool          `json:"isAC"`
	Type        string        `json:"type"`
	Status      string        `json:"status" gorm:"default:available"`
	Beds        []Bed         `json:"beds" gorm:"serializer:json;type:json"`
	OccupantIDs pq.Int64Array `json:"occupantIds" gorm:"serializer:json;type:json"`
	Occupied    int           `json:"occupied"`
	RentTable   RentTable     `json:"rentTable" gorm:"serializer:json;type:json"`
	BaseRent    float64       `json:"baseRent"`
	MessMonthly float64       `json:"messMonthly"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (r *Room) ValidateCapacity() error {
	if r.Capacity < 1 || r.Capacity > len(constants.BedLabels) {
		return fmt.Errorf("invalid capacity: %d, must be between 1 and %d", r.Capacity, len(constants.BedLabels))
	}
	return nil
}

func (r *Room) ValidateStatus() error {
	switch r.Status {
	case constants.RoomStatusAvailable, constants.RoomStatusOccupied,
		constants.RoomStatusMaintenance, constants.RoomStatusUnavailable:
		return nil
	}
	return fmt.Errorf("invalid status: %q", r.Status)
}

// EnsureBeds khởi tạo mảng giường theo capacity nếu chưa có
func (r *Room) EnsureBeds() {
	if len(r.Beds) == r.Capacity {
		return
	}
	beds := make([]Bed, r.Capacity)
	for i := 0; i < r.Capacity; i++ {
		beds[i] = Bed{SlotIndex: i, Label: constants.BedLabels[i]}
		// Giữ lại trạng thái giường cũ nếu có
		if i < len(r.Beds) {
			beds[i].Occupied = r.Beds[i].Occupied
			beds[i].StudentID = r.Beds[i].StudentID
		}
	}
	r.Beds = beds
}

// BedByLabel tìm giường theo nhãn (không phân biệt hoa thường)
func (r *Room) BedByLabel(label string) *Bed {
	for i := range r.Beds {
		if strings.EqualFold(r.Beds[i].Label, label) {
			return &r.Beds[i]
		}
	}
	return nil
}

// FirstFreeBed trả về giường trống đầu tiên theo thứ tự slot
func (r *Room) FirstFreeBed() *Bed {
	for i := range r.Beds {
		if !r.Beds[i].Occupied {
			return &r.Beds[i]
		}
	}
	return nil
}

// BedsOf trả về mọi giường đang gắn với sinh viên (so sánh id chuẩn hóa,
// phòng dữ liệu cũ gắn trùng nhiều giường)
func (r *Room) BedsOf(studentID uint) []*Bed {
	var beds []*Bed
	for i := range r.Beds {
		if r.Beds[i].StudentID != nil && *r.Beds[i].StudentID == studentID {
			beds = append(beds, &r.Beds[i])
		}
	}
	return beds
}

// CountOccupiedBeds đếm số giường đang có người
func (r *Room) CountOccupiedBeds() int {
	count := 0
	for i := range r.Beds {
		if r.Beds[i].Occupied {
			count++
		}
	}
	return count
}

// HasOccupant kiểm tra sinh viên có trong danh sách phòng không
func (r *Room) HasOccupant(studentID uint) bool {
	for _, id := range r.OccupantIDs {
		if uint(id) == studentID {
			return true
		}
	}
	return false
}

// RemoveOccupant loại sinh viên khỏi danh sách phòng, idempotent
func (r *Room) RemoveOccupant(studentID uint) {
	kept := make(pq.Int64Array, 0, len(r.OccupantIDs))
	for _, id := range r.OccupantIDs {
		if uint(id) != studentID {
			kept = append(kept, id)
		}
	}
	r.OccupantIDs = kept
}

// DeriveStatus suy ra trạng thái từ số người so với capacity.
// Trạng thái maintenance do người quản lý đặt tay, không tự suy ra ở đây.
func (r *Room) DeriveStatus() string {
	if r.Occupied >= r.Capacity {
		return constants.RoomStatusOccupied
	}
	return constants.RoomStatusAvailable
}

// RentFor lấy giá thuê mỗi tháng theo số tháng của gói,
// không có trong bảng giá thì dùng giá cơ bản
func (r *Room) RentFor(months int) float64 {
	if rent, ok := r.RentTable[months]; ok && rent > 0 {
		return rent
	}
	return r.BaseRent
}
