package services

import (
	stderrors "errors"
	"time"

	"hms/constants"
	"hms/errors"
	"hms/models"
	"hms/services/logger"

	"gorm.io/gorm"
)

// AllocationService giữ bất biến giường/danh sách người ở/occupied của phòng.
// Mọi thay đổi chỗ ở đều đi qua đây, controller không tự sửa mảng giường.
//
// Mô hình nhất quán: ghi phòng trước (một document), rồi ghi sinh viên.
// Ghi sinh viên hỏng thì log cảnh báo và đi tiếp, không rollback phòng;
// FixRoomStatus là thao tác sửa lệch.
type AllocationService struct {
	db     *gorm.DB
	logger logger.Logger
}

type AllocationServiceOptions struct {
	DB     *gorm.DB
	Logger logger.Logger
}

func NewAllocationService(opts AllocationServiceOptions) *AllocationService {
	l := opts.Logger
	if l == nil {
		l = logger.NewDefaultLogger(logger.InfoLevel)
	}
	return &AllocationService{db: opts.DB, logger: l}
}

// AllocationResult kết quả gán giường
type AllocationResult struct {
	Room    *models.Room
	Student *models.Student
	Bed     *models.Bed
}

// AssignBed gán sinh viên vào một giường của phòng.
// desiredLabel rỗng thì lấy giường trống đầu tiên.
func (s *AllocationService) AssignBed(roomID, studentID uint, desiredLabel string) (*AllocationResult, error) {
	var room models.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewAppError(errors.ErrCodeRoomNotFound, "Không tìm thấy phòng", err)
		}
		return nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi truy vấn phòng", err)
	}

	var student models.Student
	if err := s.db.First(&student, studentID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewAppError(errors.ErrCodeStudentNotFound, "Không tìm thấy sinh viên", err)
		}
		return nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi truy vấn sinh viên", err)
	}

	if student.RoomID != nil {
		return nil, errors.NewAppError(errors.ErrCodeAlreadyAllocated, "Sinh viên đã có phòng", nil)
	}

	room.EnsureBeds()

	if len(room.OccupantIDs) >= room.Capacity {
		return nil, errors.NewAppError(errors.ErrCodeRoomFull, "Phòng đã đầy", nil)
	}

	var bed *models.Bed
	if desiredLabel != "" {
		bed = room.BedByLabel(desiredLabel)
		if bed == nil {
			return nil, errors.NewAppError(errors.ErrCodeValidation, "Nhãn giường không hợp lệ", nil)
		}
		if bed.Occupied {
			return nil, errors.NewAppError(errors.ErrCodeBedTaken, "Giường đã có người", nil)
		}
	} else {
		bed = room.FirstFreeBed()
		if bed == nil {
			return nil, errors.NewAppError(errors.ErrCodeRoomFull, "Phòng đã đầy", nil)
		}
	}

	// Cập nhật phòng như một đơn vị: giường + danh sách + occupied + status
	sid := studentID
	bed.Occupied = true
	bed.StudentID = &sid
	if !room.HasOccupant(studentID) {
		room.OccupantIDs = append(room.OccupantIDs, int64(studentID))
	}
	room.Occupied = maxInt(room.CountOccupiedBeds(), len(room.OccupantIDs))
	if room.Status != constants.RoomStatusMaintenance {
		room.Status = room.DeriveStatus()
	}

	if err := s.db.Save(&room).Error; err != nil {
		return nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi lưu phòng", err)
	}

	// Ghi sinh viên best-effort sau khi phòng đã chốt
	now := time.Now()
	student.RoomID = &room.ID
	student.AllocatedAt = &now
	student.Status = constants.StudentStatusActive
	if err := s.db.Save(&student).Error; err != nil {
		s.logger.Error("AssignBed: phòng %d đã ghi nhưng cập nhật sinh viên %d thất bại: %v", room.ID, studentID, err)
	}

	return &AllocationResult{Room: &room, Student: &student, Bed: bed}, nil
}

// ReleaseBed trả mọi giường sinh viên đang giữ trong phòng. Idempotent:
// gọi lần hai khi đã trả là no-op, không bao giờ âm occupied.
func (s *AllocationService) ReleaseBed(roomID, studentID uint) (*models.Room, *models.Student, error) {
	var room models.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errors.NewAppError(errors.ErrCodeRoomNotFound, "Không tìm thấy phòng", err)
		}
		return nil, nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi truy vấn phòng", err)
	}

	var student models.Student
	if err := s.db.First(&student, studentID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errors.NewAppError(errors.ErrCodeStudentNotFound, "Không tìm thấy sinh viên", err)
		}
		return nil, nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi truy vấn sinh viên", err)
	}

	room.EnsureBeds()

	// Trả mọi giường khớp, phòng dữ liệu cũ gắn trùng nhiều giường
	for _, bed := range room.BedsOf(studentID) {
		bed.Occupied = false
		bed.StudentID = nil
	}
	room.RemoveOccupant(studentID)

	// Danh sách người ở là nguồn sự thật khi tính lại occupied,
	// chịu được lệch giữa mảng giường và danh sách
	room.Occupied = len(room.OccupantIDs)
	if room.Status != constants.RoomStatusMaintenance {
		room.Status = room.DeriveStatus()
	}

	if err := s.db.Save(&room).Error; err != nil {
		return nil, nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi lưu phòng", err)
	}

	if student.RoomID != nil && *student.RoomID == roomID {
		student.RoomID = nil
		student.AllocatedAt = nil
		if err := s.db.Save(&student).Error; err != nil {
			s.logger.Error("ReleaseBed: phòng %d đã ghi nhưng cập nhật sinh viên %d thất bại: %v", room.ID, studentID, err)
		}
	}

	return &room, &student, nil
}

// TransferBed trả giường phòng cũ rồi gán giường phòng mới.
// Phần điều chỉnh phí của chuyển phòng nằm ở BillingService.TransferRoom,
// đây chỉ là bước chỗ ở.
func (s *AllocationService) TransferBed(studentID, newRoomID uint, newBedLabel string) (*AllocationResult, error) {
	var student models.Student
	if err := s.db.First(&student, studentID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewAppError(errors.ErrCodeStudentNotFound, "Không tìm thấy sinh viên", err)
		}
		return nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi truy vấn sinh viên", err)
	}
	if student.RoomID == nil {
		return nil, errors.NewAppError(errors.ErrCodeNoRoomAllocated, "Sinh viên chưa có phòng", nil)
	}
	if *student.RoomID == newRoomID {
		return nil, errors.NewAppError(errors.ErrCodeSameRoom, "Phòng mới trùng phòng hiện tại", nil)
	}

	// Soát phòng đích trước khi trả giường cũ: chuyển bị từ chối thì
	// sinh viên vẫn ở nguyên chỗ
	var newRoom models.Room
	if err := s.db.First(&newRoom, newRoomID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewAppError(errors.ErrCodeRoomNotFound, "Không tìm thấy phòng mới", err)
		}
		return nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi truy vấn phòng", err)
	}
	newRoom.EnsureBeds()
	if len(newRoom.OccupantIDs) >= newRoom.Capacity {
		return nil, errors.NewAppError(errors.ErrCodeRoomFull, "Phòng mới đã đầy", nil)
	}
	if newBedLabel != "" {
		bed := newRoom.BedByLabel(newBedLabel)
		if bed == nil {
			return nil, errors.NewAppError(errors.ErrCodeValidation, "Nhãn giường không hợp lệ", nil)
		}
		if bed.Occupied {
			return nil, errors.NewAppError(errors.ErrCodeBedTaken, "Giường đã có người", nil)
		}
	}

	if _, _, err := s.ReleaseBed(*student.RoomID, studentID); err != nil {
		return nil, err
	}
	return s.AssignBed(newRoomID, studentID, newBedLabel)
}

// FixRoomStatus thao tác sửa lệch: dựng lại danh sách người ở, occupied và
// status từ mảng giường (nguồn sự thật khi dữ liệu đã biết là lệch).
// Khác với AssignBed/ReleaseBed, thao tác này được phép hạ cả maintenance.
func (s *AllocationService) FixRoomStatus(roomID uint) (*models.Room, error) {
	var room models.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewAppError(errors.ErrCodeRoomNotFound, "Không tìm thấy phòng", err)
		}
		return nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi truy vấn phòng", err)
	}

	room.EnsureBeds()

	occupants := room.OccupantIDs[:0]
	seen := make(map[uint]bool)
	for i := range room.Beds {
		bed := &room.Beds[i]
		if bed.Occupied && bed.StudentID != nil && !seen[*bed.StudentID] {
			seen[*bed.StudentID] = true
			occupants = append(occupants, int64(*bed.StudentID))
		}
		if bed.Occupied && bed.StudentID == nil {
			// Giường đánh dấu có người nhưng không biết là ai: coi là trống
			bed.Occupied = false
		}
	}
	room.OccupantIDs = occupants
	room.Occupied = room.CountOccupiedBeds()
	room.Status = room.DeriveStatus()

	if err := s.db.Save(&room).Error; err != nil {
		return nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi lưu phòng", err)
	}

	s.logger.Info("FixRoomStatus: phòng %s tính lại occupied=%d status=%s", room.RoomNumber, room.Occupied, room.Status)
	return &room, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
