package services

import (
	stderrors "errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"hms/builders"
	"hms/constants"
	"hms/dto"
	"hms/errors"
	"hms/models"
	"hms/services/logger"

	"gorm.io/gorm"
)

// BillingService nghiệp vụ phí: tạo gói, gạch nợ, trả phòng, chuyển phòng.
// Mỗi mutation kết thúc bằng RecomputePendingFees, cache nợ của sinh viên
// không bao giờ được sửa tay ở chỗ khác.
type BillingService struct {
	db         *gorm.DB
	logger     logger.Logger
	allocation *AllocationService
	locks      *PackageLockTable
}

type BillingServiceOptions struct {
	DB         *gorm.DB
	Logger     logger.Logger
	Allocation *AllocationService
	Locks      *PackageLockTable
}

func NewBillingService(opts BillingServiceOptions) *BillingService {
	l := opts.Logger
	if l == nil {
		l = logger.NewDefaultLogger(logger.InfoLevel)
	}
	alloc := opts.Allocation
	if alloc == nil {
		alloc = NewAllocationService(AllocationServiceOptions{DB: opts.DB, Logger: l})
	}
	locks := opts.Locks
	if locks == nil {
		locks = NewPackageLockTable()
	}
	return &BillingService{db: opts.DB, logger: l, allocation: alloc, locks: locks}
}

// PackageResult kết quả tạo gói phí
type PackageResult struct {
	Fee           *models.Fee
	LedgerEntries []models.LedgerEntry
}

// GeneratePackage tạo gói phí nhiều tháng cho sinh viên đang có phòng.
// Một phiếu thu duy nhất giữ tổng cả gói; tiền cọc chỉ thu một lần trong đời
// sinh viên; các khoản caller khai đã thu ngay sinh bút toán sổ quỹ kèm voucher.
func (s *BillingService) GeneratePackage(studentID uint, months int, dueDate *time.Time, collected []dto.CollectionItem) (*PackageResult, error) {
	if months < constants.MinPackageMonths || months > constants.MaxPackageMonths {
		return nil, errors.NewAppError(errors.ErrCodeValidation,
			fmt.Sprintf("Số tháng của gói phải từ %d đến %d", constants.MinPackageMonths, constants.MaxPackageMonths), nil)
	}

	// Khóa advisory chặn client bấm trùng, trả "thử lại" chứ không phải lỗi
	if !s.locks.Acquire(studentID) {
		return nil, errors.NewAppError(errors.ErrCodeLockHeld, "Đang tạo gói cho sinh viên này, thử lại sau", nil)
	}
	defer s.locks.ReleaseAfter(studentID)

	var student models.Student
	if err := s.db.First(&student, studentID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewAppError(errors.ErrCodeStudentNotFound, "Không tìm thấy sinh viên", err)
		}
		return nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi truy vấn sinh viên", err)
	}
	if student.RoomID == nil {
		return nil, errors.NewAppError(errors.ErrCodeNoRoomAllocated, "Sinh viên chưa được xếp phòng", nil)
	}

	var room models.Room
	if err := s.db.First(&room, *student.RoomID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewAppError(errors.ErrCodeRoomNotFound, "Không tìm thấy phòng của sinh viên", err)
		}
		return nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi truy vấn phòng", err)
	}
	room.EnsureBeds()

	rentPerMonth := room.RentFor(months)
	messPerMonth := room.MessMonthly
	rentTotal := round2(rentPerMonth * float64(months))
	messTotal := round2(messPerMonth * float64(months))

	deposit := 0.0
	if !s.depositAlreadyCollected(studentID) {
		deposit = constants.DefaultDepositAmount
	}

	due := s.defaultDueDate(&student, dueDate)

	bedLabel := ""
	if beds := room.BedsOf(studentID); len(beds) > 0 {
		bedLabel = beds[0].Label
	}

	fee := builders.NewFeeBuilder().
		ForStudent(studentID).
		Package(months, rentTotal, messTotal, deposit).
		DueOn(due).
		RoomSnapshot(room.RoomNumber, bedLabel, room.Type).
		Build()

	// Ghi nhận các khoản đã thu tại quầy lúc tạo gói
	entries := s.applyCollectionPlan(fee, studentID, collected)

	if err := s.db.Create(fee).Error; err != nil {
		return nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi tạo phiếu thu", err)
	}
	for i := range entries {
		entries[i].FeeID = &fee.ID
		if err := s.db.Create(&entries[i]).Error; err != nil {
			// Phiếu thu đã chốt, bút toán hỏng thì log và đi tiếp
			s.logger.Error("GeneratePackage: phiếu %d đã tạo nhưng bút toán %s thất bại: %v", fee.ID, entries[i].Tag, err)
		}
	}

	// Ngày "ở đến" tính theo tháng dương lịch thật (ngày bị kẹp theo tháng ngắn),
	// khác với block 30 ngày chỉ dùng cho hiển thị session
	through := addCalendarMonths(student.EnrollmentDate, months)
	student.PackageMonths = &months
	student.AdmissionThrough = &through
	if err := s.db.Save(&student).Error; err != nil {
		s.logger.Error("GeneratePackage: phiếu %d đã tạo nhưng cập nhật sinh viên %d thất bại: %v", fee.ID, studentID, err)
	}

	s.RecomputePendingFees(studentID)

	return &PackageResult{Fee: fee, LedgerEntries: entries}, nil
}

// applyCollectionPlan cộng dồn các khoản thu ngay vào phiếu và sinh bút toán.
// Tiền phòng + tiền cọc về tài khoản A, tiền ăn về tài khoản B.
func (s *BillingService) applyCollectionPlan(fee *models.Fee, studentID uint, collected []dto.CollectionItem) []models.LedgerEntry {
	var entries []models.LedgerEntry
	now := time.Now()

	for _, item := range collected {
		if item.Amount <= 0 {
			continue
		}
		account := constants.AccountA
		if item.Component == constants.LedgerTagMess {
			account = constants.AccountB
		}
		voucher := nextVoucher(account)

		entry := models.LedgerEntry{
			StudentID:     studentID,
			Date:          now,
			Kind:          constants.LedgerKindPayment,
			Account:       account,
			Amount:        round2(item.Amount),
			Voucher:       voucher,
			PaymentMethod: item.Method,
			Tag:           item.Component,
			Description:   fmt.Sprintf("Thu %s khi tạo gói", item.Component),
		}
		entries = append(entries, entry)

		if account == constants.AccountA {
			fee.AccountAAmount = round2(fee.AccountAAmount + item.Amount)
			fee.AccountAVoucher = voucher
		} else {
			fee.AccountBAmount = round2(fee.AccountBAmount + item.Amount)
			fee.AccountBVoucher = voucher
		}
		fee.PaidAmount = round2(fee.PaidAmount + item.Amount)
	}

	fee.RemainingAmount = round2(fee.TotalAmount - fee.PaidAmount)
	if fee.PaidAmount >= fee.TotalAmount && fee.TotalAmount > 0 {
		fee.Status = constants.FeeStatusPaid
		paidAt := now
		fee.PaidDate = &paidAt
		fee.RemainingAmount = 0
	} else if fee.PaidAmount > 0 {
		fee.Status = constants.FeeStatusPartial
	}
	return entries
}

// depositAlreadyCollected tiền cọc đã từng thu chưa: có phiếu nào
// mang cọc đã paid/partial, hoặc tổng bút toán cọc trừ hoàn cọc
// đạt từ nửa mức cọc chuẩn trở lên
func (s *BillingService) depositAlreadyCollected(studentID uint) bool {
	var count int64
	s.db.Model(&models.Fee{}).
		Where("student_id = ? AND deposit_amount > 0 AND status IN ?",
			studentID, []string{constants.FeeStatusPaid, constants.FeeStatusPartial}).
		Count(&count)
	if count > 0 {
		return true
	}

	var depositPaid, depositRefunded float64
	s.db.Model(&models.LedgerEntry{}).
		Where("student_id = ? AND tag = ? AND kind = ?", studentID, constants.LedgerTagDeposit, constants.LedgerKindPayment).
		Select("COALESCE(SUM(amount), 0)").Scan(&depositPaid)
	s.db.Model(&models.LedgerEntry{}).
		Where("student_id = ? AND tag = ?", studentID, constants.LedgerTagRefund).
		Select("COALESCE(SUM(amount), 0)").Scan(&depositRefunded)

	return depositPaid-depositRefunded >= constants.DefaultDepositAmount*0.5
}

// defaultDueDate hạn thu mặc định: quay lại ở (mọi phiếu cũ đã tất toán)
// thì là hôm nay, còn không lấy ngày nhập học, không có thì hôm nay
func (s *BillingService) defaultDueDate(student *models.Student, override *time.Time) time.Time {
	if override != nil && !override.IsZero() {
		return *override
	}

	var total, open int64
	s.db.Model(&models.Fee{}).Where("student_id = ?", student.ID).Count(&total)
	s.db.Model(&models.Fee{}).
		Where("student_id = ? AND status IN ?", student.ID,
			[]string{constants.FeeStatusPending, constants.FeeStatusPartial, constants.FeeStatusOverdue}).
		Count(&open)

	if total > 0 && open == 0 {
		return startOfDay(time.Now())
	}
	if !student.EnrollmentDate.IsZero() {
		return student.EnrollmentDate
	}
	return startOfDay(time.Now())
}

// ApplyPayment gạch nợ toàn phần một phiếu thu
func (s *BillingService) ApplyPayment(feeID uint, method, transactionID string) (*models.Fee, error) {
	var fee models.Fee
	if err := s.db.First(&fee, feeID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewAppError(errors.ErrCodeFeeNotFound, "Không tìm thấy phiếu thu", err)
		}
		return nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi truy vấn phiếu thu", err)
	}
	if fee.IsSettled() {
		return nil, errors.NewAppError(errors.ErrCodeAlreadySettled, "Phiếu thu đã tất toán", nil)
	}
	if fee.StudentID == 0 {
		return nil, errors.NewAppError(errors.ErrCodeStudentNotFound, "Phiếu thu không gắn với sinh viên nào", nil)
	}

	now := time.Now()
	fee.PaidAmount = fee.TotalAmount
	fee.RemainingAmount = 0
	fee.Status = constants.FeeStatusPaid
	fee.PaidDate = &now
	fee.PaymentMethod = method
	fee.TransactionID = transactionID

	if err := s.db.Save(&fee).Error; err != nil {
		return nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi lưu phiếu thu", err)
	}

	// Phiếu gói phòng có nhãn giường mà sinh viên chưa có chỗ: gán luôn giường đó
	// (luồng đóng tiền trước, nhận giường sau). Best-effort, hỏng thì chỉ log.
	if fee.Kind == constants.FeeKindRoomPackage && fee.BedLabel != "" {
		s.reallocateFromSnapshot(&fee)
	}

	s.RecomputePendingFees(fee.StudentID)
	return &fee, nil
}

func (s *BillingService) reallocateFromSnapshot(fee *models.Fee) {
	var student models.Student
	if err := s.db.First(&student, fee.StudentID).Error; err != nil || student.RoomID != nil {
		return
	}
	var room models.Room
	if err := s.db.Where("room_number = ?", fee.RoomNumber).First(&room).Error; err != nil {
		return
	}
	if _, err := s.allocation.AssignBed(room.ID, fee.StudentID, fee.BedLabel); err != nil {
		s.logger.Error("ApplyPayment: gán lại giường %s phòng %s cho sinh viên %d thất bại: %v",
			fee.BedLabel, fee.RoomNumber, fee.StudentID, err)
	}
}

// CheckOutResult kết quả trả phòng
type CheckOutResult struct {
	Fee          *models.Fee
	RefundFee    *models.Fee
	RefundAmount float64
	Room         *models.Room
}

// CheckOut trả phòng sớm theo phiếu thu: hoàn tiền phòng/tiền ăn theo ngày
// chưa ở, cọc hoàn đủ không prorate; trả mọi giường của sinh viên và
// chuyển sinh viên sang inactive
func (s *BillingService) CheckOut(feeID uint, at *time.Time, reason string) (*CheckOutResult, error) {
	var fee models.Fee
	if err := s.db.First(&fee, feeID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewAppError(errors.ErrCodeFeeNotFound, "Không tìm thấy phiếu thu", err)
		}
		return nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi truy vấn phiếu thu", err)
	}
	if fee.CheckOutDate != nil || fee.Status == constants.FeeStatusCheckedOut {
		return nil, errors.NewAppError(errors.ErrCodeAlreadyCheckedOut, "Phiếu thu đã trả phòng", nil)
	}

	var student models.Student
	if err := s.db.First(&student, fee.StudentID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewAppError(errors.ErrCodeStudentNotFound, "Không tìm thấy sinh viên của phiếu", err)
		}
		return nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi truy vấn sinh viên", err)
	}

	checkOutDate := startOfDay(time.Now())
	if at != nil && !at.IsZero() {
		checkOutDate = startOfDay(*at)
	}

	// Mốc vào ở: ngày xếp giường, không có thì ngày đóng tiền, rồi ngày lập phiếu
	checkIn := fee.CreatedAt
	if student.AllocatedAt != nil {
		checkIn = *student.AllocatedAt
	} else if fee.PaidDate != nil {
		checkIn = *fee.PaidDate
	}

	months := 0
	if fee.PackageMonths != nil {
		months = *fee.PackageMonths
	} else if student.PackageMonths != nil {
		months = *student.PackageMonths
	}
	expectedDays := months * constants.DaysPerPackageMonth
	elapsedDays := daysBetween(startOfDay(checkIn), checkOutDate)
	if elapsedDays < 0 {
		elapsedDays = 0
	}

	refund := 0.0
	if expectedDays > 0 && elapsedDays < expectedDays {
		unusedDays := float64(expectedDays - elapsedDays)
		perDayRent := fee.RentAmount / float64(expectedDays)
		perDayMess := fee.MessAmount / float64(expectedDays)
		// Tiền phòng + tiền ăn prorate tuyến tính, cọc hoàn nguyên vẹn
		refund = round2(perDayRent*unusedDays + perDayMess*unusedDays + fee.DepositAmount)
	}

	fee.Status = constants.FeeStatusCheckedOut
	fee.CheckOutDate = &checkOutDate
	fee.RefundAmount = refund
	fee.RefundReason = reason
	if err := s.db.Save(&fee).Error; err != nil {
		return nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi lưu phiếu thu", err)
	}

	var refundFee *models.Fee
	if refund > 0 {
		refundFee = builders.NewFeeBuilder().
			ForStudent(fee.StudentID).
			Refund(refund, reason).
			RoomSnapshot(fee.RoomNumber, fee.BedLabel, fee.RoomType).
			Build()
		if err := s.db.Create(refundFee).Error; err != nil {
			s.logger.Error("CheckOut: phiếu %d đã đóng nhưng tạo phiếu hoàn %v thất bại: %v", fee.ID, refund, err)
			refundFee = nil
		}
	}

	room := s.releaseAllBeds(&fee, &student)

	student.RoomID = nil
	student.AllocatedAt = nil
	student.Status = constants.StudentStatusInactive
	if err := s.db.Save(&student).Error; err != nil {
		s.logger.Error("CheckOut: phiếu %d đã đóng nhưng cập nhật sinh viên %d thất bại: %v", fee.ID, student.ID, err)
	}

	s.RecomputePendingFees(fee.StudentID)

	return &CheckOutResult{Fee: &fee, RefundFee: refundFee, RefundAmount: refund, Room: room}, nil
}

// releaseAllBeds trả giường theo hai đường: phòng hiện tại của sinh viên,
// rồi phòng trong snapshot của phiếu (đề phòng lệch dữ liệu), khử trùng lặp
func (s *BillingService) releaseAllBeds(fee *models.Fee, student *models.Student) *models.Room {
	released := make(map[uint]bool)
	var last *models.Room

	if student.RoomID != nil {
		if room, _, err := s.allocation.ReleaseBed(*student.RoomID, student.ID); err != nil {
			s.logger.Error("CheckOut: trả giường phòng %d cho sinh viên %d thất bại: %v", *student.RoomID, student.ID, err)
		} else {
			released[room.ID] = true
			last = room
		}
	}

	if fee.RoomNumber != "" {
		var snap models.Room
		if err := s.db.Where("room_number = ?", fee.RoomNumber).First(&snap).Error; err == nil && !released[snap.ID] {
			if room, _, err := s.allocation.ReleaseBed(snap.ID, student.ID); err != nil {
				s.logger.Error("CheckOut: trả giường phòng snapshot %s thất bại: %v", fee.RoomNumber, err)
			} else if last == nil {
				last = room
			}
		}
	}
	return last
}

// TransferResult kết quả chuyển phòng
type TransferResult struct {
	OldRoom        *models.Room
	NewRoom        *models.Room
	Student        *models.Student
	RentAdjustment float64
	MessAdjustment float64
	Adjustment     float64
	AdjustmentFee  *models.Fee
}

// TransferRoom chuyển phòng giữa gói: chênh lệch giá theo số tháng còn lại
// thành phụ thu (dương) hoặc hoàn tiền (âm), luôn ghi một bút toán 0 đồng
// đánh dấu "room X -> Y" cho projection tách session
func (s *BillingService) TransferRoom(studentID, newRoomID uint, newBedLabel string) (*TransferResult, error) {
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

	var oldRoom, newRoom models.Room
	if err := s.db.First(&oldRoom, *student.RoomID).Error; err != nil {
		return nil, errors.NewAppError(errors.ErrCodeRoomNotFound, "Không tìm thấy phòng hiện tại", err)
	}
	if err := s.db.First(&newRoom, newRoomID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewAppError(errors.ErrCodeRoomNotFound, "Không tìm thấy phòng mới", err)
		}
		return nil, errors.NewAppError(errors.ErrCodeDBError, "Lỗi truy vấn phòng", err)
	}

	remainingMonths, months := s.remainingPackageMonths(&student)

	rentAdj := round2((newRoom.RentFor(months) - oldRoom.RentFor(months)) * float64(remainingMonths))
	messAdj := round2((newRoom.MessMonthly - oldRoom.MessMonthly) * float64(remainingMonths))
	adjustment := round2(rentAdj + messAdj)

	// Bước chỗ ở đi trước: chuyển bị từ chối thì sổ sách không có vết gì,
	// không phiếu phụ thu, không marker
	result, err := s.allocation.TransferBed(studentID, newRoomID, newBedLabel)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var adjustmentFee *models.Fee

	if adjustment > 0 {
		// Phụ thu: bút toán ghi nhận + phiếu thu pending chờ gạch nợ
		entry := models.LedgerEntry{
			StudentID:   studentID,
			Date:        now,
			Kind:        constants.LedgerKindOther,
			Account:     constants.AccountA,
			Amount:      adjustment,
			Tag:         constants.LedgerTagAdjust,
			Description: fmt.Sprintf("Phụ thu chuyển phòng %s -> %s (%d tháng còn lại)", oldRoom.RoomNumber, newRoom.RoomNumber, remainingMonths),
		}
		if err := s.db.Create(&entry).Error; err != nil {
			s.logger.Error("TransferRoom: ghi bút toán phụ thu thất bại: %v", err)
		}

		adjustmentFee = builders.NewFeeBuilder().
			ForStudent(studentID).
			ManualCharge(adjustment, rentAdj, messAdj, fmt.Sprintf("Phụ thu chuyển phòng %s -> %s", oldRoom.RoomNumber, newRoom.RoomNumber)).
			DueOn(startOfDay(now)).
			RoomSnapshot(newRoom.RoomNumber, newBedLabel, newRoom.Type).
			Build()
		if err := s.db.Create(adjustmentFee).Error; err != nil {
			s.logger.Error("TransferRoom: tạo phiếu phụ thu thất bại: %v", err)
			adjustmentFee = nil
		}
	} else if adjustment < 0 {
		// Hoàn tiền: ghi có ngay, không cần phiếu
		entry := models.LedgerEntry{
			StudentID:     studentID,
			Date:          now,
			Kind:          constants.LedgerKindPayment,
			Account:       constants.AccountA,
			Amount:        -adjustment,
			Voucher:       nextVoucher(constants.AccountA),
			PaymentMethod: "refund",
			Tag:           constants.LedgerTagRefund,
			Description:   fmt.Sprintf("Hoàn tiền chuyển phòng %s -> %s (%d tháng còn lại)", oldRoom.RoomNumber, newRoom.RoomNumber, remainingMonths),
		}
		if err := s.db.Create(&entry).Error; err != nil {
			s.logger.Error("TransferRoom: ghi bút toán hoàn tiền thất bại: %v", err)
		}
	}

	// Marker 0 đồng cho projection tách session theo phòng
	marker := models.LedgerEntry{
		StudentID:   studentID,
		Date:        now,
		Kind:        constants.LedgerKindOther,
		Account:     constants.AccountA,
		Amount:      0,
		Tag:         constants.LedgerTagRoomShift,
		Description: fmt.Sprintf("room %s -> %s", oldRoom.RoomNumber, newRoom.RoomNumber),
	}
	if err := s.db.Create(&marker).Error; err != nil {
		s.logger.Error("TransferRoom: ghi marker chuyển phòng thất bại: %v", err)
	}

	s.RecomputePendingFees(studentID)

	// Đọc lại phòng cũ để trả về occupancy sau khi đã trả giường
	if err := s.db.First(&oldRoom, oldRoom.ID).Error; err != nil {
		s.logger.Error("TransferRoom: đọc lại phòng cũ %d thất bại: %v", oldRoom.ID, err)
	}

	return &TransferResult{
		OldRoom:        &oldRoom,
		NewRoom:        result.Room,
		Student:        result.Student,
		RentAdjustment: rentAdj,
		MessAdjustment: messAdj,
		Adjustment:     adjustment,
		AdjustmentFee:  adjustmentFee,
	}, nil
}

// remainingPackageMonths số tháng còn lại của gói đang chạy, tính theo
// block 30 ngày từ mốc vào ở của gói gần nhất còn hiệu lực
func (s *BillingService) remainingPackageMonths(student *models.Student) (remaining, months int) {
	var pkg models.Fee
	err := s.db.Where("student_id = ? AND kind = ? AND status NOT IN ?",
		student.ID, constants.FeeKindRoomPackage,
		[]string{constants.FeeStatusCheckedOut, constants.FeeStatusRefunded}).
		Order("created_at DESC").
		First(&pkg).Error
	if err != nil {
		return 0, 0
	}

	if pkg.PackageMonths != nil {
		months = *pkg.PackageMonths
	} else if student.PackageMonths != nil {
		months = *student.PackageMonths
	}
	if months == 0 {
		return 0, 0
	}

	checkIn := pkg.CreatedAt
	if student.AllocatedAt != nil {
		checkIn = *student.AllocatedAt
	} else if pkg.PaidDate != nil {
		checkIn = *pkg.PaidDate
	}

	usedMonths := daysBetween(startOfDay(checkIn), startOfDay(time.Now())) / constants.DaysPerPackageMonth
	remaining = months - usedMonths
	if remaining < 0 {
		remaining = 0
	}
	return remaining, months
}

// RecomputePendingFees tính lại cache nợ của sinh viên từ các phiếu còn mở.
// Đây là choke point duy nhất được ghi các cột cache; lỗi ở đây không bao giờ
// làm hỏng thao tác cha, chỉ log.
func (s *BillingService) RecomputePendingFees(studentID uint) {
	var fees []models.Fee
	if err := s.db.Where("student_id = ? AND status IN ?", studentID,
		[]string{constants.FeeStatusPending, constants.FeeStatusPartial, constants.FeeStatusOverdue}).
		Find(&fees).Error; err != nil {
		s.logger.Error("RecomputePendingFees: truy vấn phiếu của sinh viên %d thất bại: %v", studentID, err)
		return
	}

	var total float64
	var earliest, latest *time.Time
	for i := range fees {
		remaining := fees[i].RemainingAmount
		if fees[i].Status == constants.FeeStatusPending || fees[i].Status == constants.FeeStatusOverdue {
			remaining = fees[i].TotalAmount - fees[i].PaidAmount
		}
		total += remaining

		due := fees[i].DueDate
		if earliest == nil || due.Before(*earliest) {
			d := due
			earliest = &d
		}
		if latest == nil || due.After(*latest) {
			d := due
			latest = &d
		}
	}

	updates := map[string]interface{}{
		"has_pending_fee":      len(fees) > 0,
		"pending_amount":       round2(total),
		"pending_earliest_due": earliest,
		"pending_latest_due":   latest,
	}
	if err := s.db.Model(&models.Student{}).Where("id = ?", studentID).Updates(updates).Error; err != nil {
		s.logger.Error("RecomputePendingFees: cập nhật cache sinh viên %d thất bại: %v", studentID, err)
	}
}

// MarkOverdueFees quét các phiếu pending đã quá hạn, dùng cho cron đêm.
// Trả về số phiếu bị chuyển trạng thái.
func (s *BillingService) MarkOverdueFees() (int, error) {
	var fees []models.Fee
	if err := s.db.Where("status = ? AND due_date < ?", constants.FeeStatusPending, startOfDay(time.Now())).
		Find(&fees).Error; err != nil {
		return 0, err
	}

	count := 0
	touched := make(map[uint]bool)
	for i := range fees {
		// BeforeSave tự hạ pending quá hạn xuống overdue
		if err := s.db.Save(&fees[i]).Error; err != nil {
			s.logger.Error("MarkOverdueFees: lưu phiếu %d thất bại: %v", fees[i].ID, err)
			continue
		}
		count++
		touched[fees[i].StudentID] = true
	}
	for studentID := range touched {
		s.RecomputePendingFees(studentID)
	}
	return count, nil
}

var voucherSeq uint32

// nextVoucher sinh mã voucher duy nhất cho một tài khoản quyết toán,
// an toàn khi nhiều handler thu tiền cùng lúc
func nextVoucher(account string) string {
	seq := atomic.AddUint32(&voucherSeq, 1)
	return fmt.Sprintf("HM%s%d%03d", account, time.Now().Unix(), seq%1000)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// addCalendarMonths cộng tháng dương lịch thật, ngày bị kẹp về cuối tháng
// khi tháng đích ngắn hơn (31/1 + 1 tháng = 28/2)
func addCalendarMonths(t time.Time, months int) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, t.Location())
}
