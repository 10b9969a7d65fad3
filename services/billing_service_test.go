package services

import (
	"sync"
	"testing"
	"time"

	"hms/constants"
	"hms/dto"
	"hms/errors"
	"hms/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newBillingService(db *gorm.DB) *BillingService {
	return NewBillingService(BillingServiceOptions{DB: db})
}

// backdateAllocation lùi mốc vào ở của sinh viên, cập nhật cột trực tiếp
// để không chạy lại hook
func backdateAllocation(t *testing.T, db *gorm.DB, studentID uint, days int) {
	t.Helper()
	at := time.Now().AddDate(0, 0, -days)
	require.NoError(t, db.Model(&models.Student{}).Where("id = ?", studentID).
		Update("allocated_at", at).Error)
}

func futureDue() *time.Time {
	d := time.Now().AddDate(0, 0, 7)
	return &d
}

func TestGeneratePackageTotals(t *testing.T) {
	db := setupTestDB(t)
	svc := newBillingService(db)

	room := createTestRoom(t, db, "201", 2)
	room.RentTable = models.RentTable{5: 10000}
	require.NoError(t, db.Save(room).Error)
	student := createTestStudent(t, db, "SV100")

	_, err := svc.allocation.AssignBed(room.ID, student.ID, "")
	require.NoError(t, err)

	result, err := svc.GeneratePackage(student.ID, 5, futureDue(), nil)
	require.NoError(t, err)

	fee := result.Fee
	assert.Equal(t, constants.FeeKindRoomPackage, fee.Kind)
	assert.Equal(t, constants.FeeSourceAutoPackage, fee.Source)
	assert.Equal(t, 50000.0, fee.RentAmount)
	assert.Equal(t, 15000.0, fee.MessAmount)
	assert.Equal(t, 10000.0, fee.DepositAmount)
	assert.Equal(t, 75000.0, fee.TotalAmount)
	assert.Equal(t, 75000.0, fee.RemainingAmount)
	assert.Equal(t, constants.FeeStatusPending, fee.Status)
	assert.Equal(t, "201", fee.RoomNumber)
	assert.Equal(t, "A", fee.BedLabel)
	require.NotNil(t, fee.PackageMonths)
	assert.Equal(t, 5, *fee.PackageMonths)

	// Cả gói nằm trên đúng một phiếu
	var count int64
	db.Model(&models.Fee{}).Where("student_id = ?", student.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	var saved models.Student
	require.NoError(t, db.First(&saved, student.ID).Error)
	require.NotNil(t, saved.PackageMonths)
	assert.Equal(t, 5, *saved.PackageMonths)
	require.NotNil(t, saved.AdmissionThrough)
	// "Ở đến" theo tháng dương lịch thật, không phải block 30 ngày
	expected := addCalendarMonths(saved.EnrollmentDate, 5)
	assert.WithinDuration(t, expected, *saved.AdmissionThrough, time.Hour)
	assert.True(t, saved.HasPendingFee)
	assert.Equal(t, 75000.0, saved.PendingAmount)
}

func TestGeneratePackageMonthsValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := newBillingService(db)

	for _, months := range []int{0, 6, -1} {
		_, err := svc.GeneratePackage(1, months, nil, nil)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
	}
}

func TestGeneratePackageRequiresRoom(t *testing.T) {
	db := setupTestDB(t)
	svc := newBillingService(db)

	student := createTestStudent(t, db, "SV110")

	_, err := svc.GeneratePackage(student.ID, 2, futureDue(), nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNoRoomAllocated))
}

func TestGeneratePackageLockHeld(t *testing.T) {
	db := setupTestDB(t)
	svc := newBillingService(db)

	room := createTestRoom(t, db, "202", 2)
	student := createTestStudent(t, db, "SV120")
	_, err := svc.allocation.AssignBed(room.ID, student.ID, "")
	require.NoError(t, err)

	require.True(t, svc.locks.Acquire(student.ID))

	_, err = svc.GeneratePackage(student.ID, 2, futureDue(), nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeLockHeld))

	svc.locks.release(student.ID)
	_, err = svc.GeneratePackage(student.ID, 2, futureDue(), nil)
	require.NoError(t, err)
}

func TestGeneratePackageCollectionPlan(t *testing.T) {
	db := setupTestDB(t)
	svc := newBillingService(db)

	room := createTestRoom(t, db, "203", 2)
	student := createTestStudent(t, db, "SV130")
	_, err := svc.allocation.AssignBed(room.ID, student.ID, "")
	require.NoError(t, err)

	// Gói 2 tháng: phòng 20000 + ăn 6000 + cọc 10000 = 36000, thu đủ tại quầy
	collected := []dto.CollectionItem{
		{Component: constants.LedgerTagRent, Amount: 20000, Method: "cash"},
		{Component: constants.LedgerTagMess, Amount: 6000, Method: "cash"},
		{Component: constants.LedgerTagDeposit, Amount: 10000, Method: "online"},
	}
	result, err := svc.GeneratePackage(student.ID, 2, futureDue(), collected)
	require.NoError(t, err)

	fee := result.Fee
	assert.Equal(t, constants.FeeStatusPaid, fee.Status)
	assert.Equal(t, 36000.0, fee.PaidAmount)
	assert.Equal(t, 0.0, fee.RemainingAmount)
	assert.NotNil(t, fee.PaidDate)
	// Phòng + cọc về A, ăn về B
	assert.Equal(t, 30000.0, fee.AccountAAmount)
	assert.Equal(t, 6000.0, fee.AccountBAmount)
	assert.NotEmpty(t, fee.AccountAVoucher)
	assert.NotEmpty(t, fee.AccountBVoucher)

	require.Len(t, result.LedgerEntries, 3)
	for _, entry := range result.LedgerEntries {
		assert.Equal(t, constants.LedgerKindPayment, entry.Kind)
		assert.NotEmpty(t, entry.Voucher)
		require.NotNil(t, entry.FeeID)
		assert.Equal(t, fee.ID, *entry.FeeID)
		if entry.Tag == constants.LedgerTagMess {
			assert.Equal(t, constants.AccountB, entry.Account)
		} else {
			assert.Equal(t, constants.AccountA, entry.Account)
		}
	}

	var saved models.Student
	require.NoError(t, db.First(&saved, student.ID).Error)
	assert.False(t, saved.HasPendingFee)
	assert.Equal(t, 0.0, saved.PendingAmount)
}

func TestGeneratePackageDepositChargedOnce(t *testing.T) {
	db := setupTestDB(t)
	svc := newBillingService(db)

	room := createTestRoom(t, db, "204", 2)
	student := createTestStudent(t, db, "SV140")
	_, err := svc.allocation.AssignBed(room.ID, student.ID, "")
	require.NoError(t, err)

	first, err := svc.GeneratePackage(student.ID, 1, futureDue(), []dto.CollectionItem{
		{Component: constants.LedgerTagDeposit, Amount: 10000, Method: "cash"},
	})
	require.NoError(t, err)
	assert.Equal(t, 10000.0, first.Fee.DepositAmount)
	assert.Equal(t, constants.FeeStatusPartial, first.Fee.Status)

	svc.locks.release(student.ID)

	second, err := svc.GeneratePackage(student.ID, 1, futureDue(), nil)
	require.NoError(t, err)
	// Cọc chỉ thu một lần trong đời sinh viên
	assert.Equal(t, 0.0, second.Fee.DepositAmount)
	assert.Equal(t, 13000.0, second.Fee.TotalAmount)
}

func TestApplyPayment(t *testing.T) {
	db := setupTestDB(t)
	svc := newBillingService(db)

	student := createTestStudent(t, db, "SV150")
	fee := models.Fee{
		StudentID:       student.ID,
		Kind:            constants.FeeKindManual,
		TotalAmount:     5000,
		RemainingAmount: 5000,
		Status:          constants.FeeStatusPending,
		DueDate:         *futureDue(),
	}
	require.NoError(t, db.Create(&fee).Error)

	paid, err := svc.ApplyPayment(fee.ID, "cash", "TXN42")
	require.NoError(t, err)
	assert.Equal(t, constants.FeeStatusPaid, paid.Status)
	assert.Equal(t, 5000.0, paid.PaidAmount)
	assert.Equal(t, 0.0, paid.RemainingAmount)
	assert.NotNil(t, paid.PaidDate)
	assert.Equal(t, "TXN42", paid.TransactionID)

	_, err = svc.ApplyPayment(fee.ID, "cash", "TXN43")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAlreadySettled))
}

func TestApplyPaymentReallocatesFromSnapshot(t *testing.T) {
	db := setupTestDB(t)
	svc := newBillingService(db)

	room := createTestRoom(t, db, "205", 2)
	student := createTestStudent(t, db, "SV160")

	// Luồng đóng tiền trước nhận giường sau: phiếu gói có snapshot giường
	// nhưng sinh viên chưa có chỗ
	months := 1
	fee := models.Fee{
		StudentID:       student.ID,
		Kind:            constants.FeeKindRoomPackage,
		TotalAmount:     13000,
		RemainingAmount: 13000,
		Status:          constants.FeeStatusPending,
		DueDate:         *futureDue(),
		PackageMonths:   &months,
		RoomNumber:      "205",
		BedLabel:        "B",
	}
	require.NoError(t, db.Create(&fee).Error)

	_, err := svc.ApplyPayment(fee.ID, "online", "")
	require.NoError(t, err)

	var saved models.Student
	require.NoError(t, db.First(&saved, student.ID).Error)
	require.NotNil(t, saved.RoomID)
	assert.Equal(t, room.ID, *saved.RoomID)

	var savedRoom models.Room
	require.NoError(t, db.First(&savedRoom, room.ID).Error)
	bed := savedRoom.BedByLabel("B")
	require.NotNil(t, bed)
	assert.True(t, bed.Occupied)
}

func TestCheckOutProratedRefund(t *testing.T) {
	db := setupTestDB(t)
	svc := newBillingService(db)

	room := createTestRoom(t, db, "206", 2)
	student := createTestStudent(t, db, "SV170")
	_, err := svc.allocation.AssignBed(room.ID, student.ID, "")
	require.NoError(t, err)
	// Ngày thứ 60 của gói 5 tháng
	backdateAllocation(t, db, student.ID, 60)

	months := 5
	now := time.Now()
	fee := models.Fee{
		StudentID:     student.ID,
		Kind:          constants.FeeKindRoomPackage,
		TotalAmount:   75000,
		PaidAmount:    75000,
		Status:        constants.FeeStatusPaid,
		PaidDate:      &now,
		DueDate:       *futureDue(),
		PackageMonths: &months,
		RentAmount:    50000,
		MessAmount:    15000,
		DepositAmount: 10000,
		RoomNumber:    "206",
		BedLabel:      "A",
	}
	require.NoError(t, db.Create(&fee).Error)

	result, err := svc.CheckOut(fee.ID, nil, "về quê")
	require.NoError(t, err)

	// 90 ngày chưa ở: phòng 50000/150*90 + ăn 15000/150*90 + cọc 10000
	assert.Equal(t, 49000.0, result.RefundAmount)
	assert.Equal(t, constants.FeeStatusCheckedOut, result.Fee.Status)
	assert.NotNil(t, result.Fee.CheckOutDate)
	assert.Equal(t, "về quê", result.Fee.RefundReason)

	require.NotNil(t, result.RefundFee)
	assert.Equal(t, constants.FeeKindRefund, result.RefundFee.Kind)
	assert.Equal(t, constants.FeeStatusRefunded, result.RefundFee.Status)
	assert.Equal(t, 49000.0, result.RefundFee.RefundAmount)

	var saved models.Student
	require.NoError(t, db.First(&saved, student.ID).Error)
	assert.Equal(t, constants.StudentStatusInactive, saved.Status)
	assert.Nil(t, saved.RoomID)

	var savedRoom models.Room
	require.NoError(t, db.First(&savedRoom, room.ID).Error)
	assert.Equal(t, 0, savedRoom.Occupied)
	assert.Empty(t, savedRoom.OccupantIDs)
}

func TestCheckOutAfterPackageEndsNoRefund(t *testing.T) {
	db := setupTestDB(t)
	svc := newBillingService(db)

	room := createTestRoom(t, db, "207", 2)
	student := createTestStudent(t, db, "SV180")
	_, err := svc.allocation.AssignBed(room.ID, student.ID, "")
	require.NoError(t, err)
	backdateAllocation(t, db, student.ID, 40)

	months := 1
	fee := models.Fee{
		StudentID:     student.ID,
		Kind:          constants.FeeKindRoomPackage,
		TotalAmount:   23000,
		PaidAmount:    23000,
		Status:        constants.FeeStatusPaid,
		DueDate:       *futureDue(),
		PackageMonths: &months,
		RentAmount:    10000,
		MessAmount:    3000,
		DepositAmount: 10000,
		RoomNumber:    "207",
	}
	require.NoError(t, db.Create(&fee).Error)

	result, err := svc.CheckOut(fee.ID, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.RefundAmount)
	assert.Nil(t, result.RefundFee)

	// Trả phòng lần hai bị chặn
	_, err = svc.CheckOut(fee.ID, nil, "")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAlreadyCheckedOut))
}

func TestTransferRoomSurcharge(t *testing.T) {
	db := setupTestDB(t)
	svc := newBillingService(db)

	oldRoom := createTestRoom(t, db, "208", 2)
	newRoom := createTestRoom(t, db, "209", 2)
	newRoom.BaseRent = 13000
	require.NoError(t, db.Save(newRoom).Error)

	student := createTestStudent(t, db, "SV190")
	_, err := svc.allocation.AssignBed(oldRoom.ID, student.ID, "")
	require.NoError(t, err)
	// Đã ở 2 block 30 ngày của gói 5 tháng, còn lại 3
	backdateAllocation(t, db, student.ID, 60)

	months := 5
	fee := models.Fee{
		StudentID:     student.ID,
		Kind:          constants.FeeKindRoomPackage,
		TotalAmount:   75000,
		PaidAmount:    75000,
		Status:        constants.FeeStatusPaid,
		DueDate:       *futureDue(),
		PackageMonths: &months,
		RentAmount:    50000,
		MessAmount:    15000,
		RoomNumber:    "208",
	}
	require.NoError(t, db.Create(&fee).Error)

	result, err := svc.TransferRoom(student.ID, newRoom.ID, "B")
	require.NoError(t, err)

	// Chênh 3000/tháng x 3 tháng còn lại
	assert.Equal(t, 9000.0, result.RentAdjustment)
	assert.Equal(t, 0.0, result.MessAdjustment)
	assert.Equal(t, 9000.0, result.Adjustment)

	require.NotNil(t, result.AdjustmentFee)
	assert.Equal(t, constants.FeeKindManual, result.AdjustmentFee.Kind)
	assert.Equal(t, 9000.0, result.AdjustmentFee.TotalAmount)
	assert.True(t, result.AdjustmentFee.IsOpen())

	var adjEntry models.LedgerEntry
	require.NoError(t, db.Where("student_id = ? AND tag = ?", student.ID, constants.LedgerTagAdjust).
		First(&adjEntry).Error)
	assert.Equal(t, constants.LedgerKindOther, adjEntry.Kind)
	assert.Equal(t, 9000.0, adjEntry.Amount)

	// Marker 0 đồng cho projection tách session
	var marker models.LedgerEntry
	require.NoError(t, db.Where("student_id = ? AND tag = ?", student.ID, constants.LedgerTagRoomShift).
		First(&marker).Error)
	assert.Equal(t, 0.0, marker.Amount)
	assert.Equal(t, "room 208 -> 209", marker.Description)

	var saved models.Student
	require.NoError(t, db.First(&saved, student.ID).Error)
	require.NotNil(t, saved.RoomID)
	assert.Equal(t, newRoom.ID, *saved.RoomID)
	assert.Equal(t, 0, result.OldRoom.Occupied)
}

func TestTransferRoomRefund(t *testing.T) {
	db := setupTestDB(t)
	svc := newBillingService(db)

	oldRoom := createTestRoom(t, db, "210", 2)
	newRoom := createTestRoom(t, db, "211", 2)
	newRoom.BaseRent = 7000
	require.NoError(t, db.Save(newRoom).Error)

	student := createTestStudent(t, db, "SV200")
	_, err := svc.allocation.AssignBed(oldRoom.ID, student.ID, "")
	require.NoError(t, err)
	backdateAllocation(t, db, student.ID, 60)

	months := 5
	fee := models.Fee{
		StudentID:     student.ID,
		Kind:          constants.FeeKindRoomPackage,
		TotalAmount:   75000,
		PaidAmount:    75000,
		Status:        constants.FeeStatusPaid,
		DueDate:       *futureDue(),
		PackageMonths: &months,
		RentAmount:    50000,
		MessAmount:    15000,
		RoomNumber:    "210",
	}
	require.NoError(t, db.Create(&fee).Error)

	result, err := svc.TransferRoom(student.ID, newRoom.ID, "")
	require.NoError(t, err)

	assert.Equal(t, -9000.0, result.Adjustment)
	assert.Nil(t, result.AdjustmentFee)

	// Hoàn tiền ghi có ngay trên sổ quỹ
	var refund models.LedgerEntry
	require.NoError(t, db.Where("student_id = ? AND tag = ?", student.ID, constants.LedgerTagRefund).
		First(&refund).Error)
	assert.Equal(t, constants.LedgerKindPayment, refund.Kind)
	assert.Equal(t, 9000.0, refund.Amount)
	assert.NotEmpty(t, refund.Voucher)
}

func TestTransferRoomRejectedLeavesNoLedgerTrace(t *testing.T) {
	db := setupTestDB(t)
	svc := newBillingService(db)

	oldRoom := createTestRoom(t, db, "212", 2)
	fullRoom := createTestRoom(t, db, "213", 1)
	fullRoom.BaseRent = 13000
	require.NoError(t, db.Save(fullRoom).Error)

	occupant := createTestStudent(t, db, "SV230")
	_, err := svc.allocation.AssignBed(fullRoom.ID, occupant.ID, "")
	require.NoError(t, err)

	student := createTestStudent(t, db, "SV231")
	_, err = svc.allocation.AssignBed(oldRoom.ID, student.ID, "")
	require.NoError(t, err)
	backdateAllocation(t, db, student.ID, 60)

	months := 5
	require.NoError(t, db.Create(&models.Fee{
		StudentID:     student.ID,
		Kind:          constants.FeeKindRoomPackage,
		TotalAmount:   75000,
		PaidAmount:    75000,
		Status:        constants.FeeStatusPaid,
		DueDate:       *futureDue(),
		PackageMonths: &months,
		RentAmount:    50000,
		MessAmount:    15000,
		RoomNumber:    "212",
	}).Error)

	_, err = svc.TransferRoom(student.ID, fullRoom.ID, "")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRoomFull))

	// Chuyển bị từ chối: không marker, không phiếu phụ thu, không bút toán
	var markers, adjEntries, manualFees int64
	db.Model(&models.LedgerEntry{}).
		Where("student_id = ? AND tag = ?", student.ID, constants.LedgerTagRoomShift).Count(&markers)
	db.Model(&models.LedgerEntry{}).
		Where("student_id = ? AND tag = ?", student.ID, constants.LedgerTagAdjust).Count(&adjEntries)
	db.Model(&models.Fee{}).
		Where("student_id = ? AND kind = ?", student.ID, constants.FeeKindManual).Count(&manualFees)
	assert.Equal(t, int64(0), markers)
	assert.Equal(t, int64(0), adjEntries)
	assert.Equal(t, int64(0), manualFees)

	// Sinh viên vẫn ở nguyên phòng cũ
	var saved models.Student
	require.NoError(t, db.First(&saved, student.ID).Error)
	require.NotNil(t, saved.RoomID)
	assert.Equal(t, oldRoom.ID, *saved.RoomID)
}

func TestNextVoucherConcurrentUnique(t *testing.T) {
	const n = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := nextVoucher(constants.AccountA)
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
}

func TestRecomputePendingFees(t *testing.T) {
	db := setupTestDB(t)
	svc := newBillingService(db)

	student := createTestStudent(t, db, "SV210")

	due1 := time.Now().AddDate(0, 0, 3)
	due2 := time.Now().AddDate(0, 0, 10)
	require.NoError(t, db.Create(&models.Fee{
		StudentID:   student.ID,
		Kind:        constants.FeeKindManual,
		TotalAmount: 5000,
		Status:      constants.FeeStatusPending,
		DueDate:     due1,
	}).Error)
	require.NoError(t, db.Create(&models.Fee{
		StudentID:   student.ID,
		Kind:        constants.FeeKindManual,
		TotalAmount: 8000,
		PaidAmount:  3000,
		Status:      constants.FeeStatusPartial,
		DueDate:     due2,
	}).Error)

	svc.RecomputePendingFees(student.ID)

	var saved models.Student
	require.NoError(t, db.First(&saved, student.ID).Error)
	assert.True(t, saved.HasPendingFee)
	assert.Equal(t, 10000.0, saved.PendingAmount)
	require.NotNil(t, saved.PendingEarliestDue)
	require.NotNil(t, saved.PendingLatestDue)
	assert.WithinDuration(t, due1, *saved.PendingEarliestDue, time.Second)
	assert.WithinDuration(t, due2, *saved.PendingLatestDue, time.Second)
}

func TestMarkOverdueFees(t *testing.T) {
	db := setupTestDB(t)
	svc := newBillingService(db)

	student := createTestStudent(t, db, "SV220")

	fee := models.Fee{
		StudentID:   student.ID,
		Kind:        constants.FeeKindManual,
		TotalAmount: 5000,
		Status:      constants.FeeStatusPending,
		DueDate:     time.Now().AddDate(0, 0, 7),
	}
	require.NoError(t, db.Create(&fee).Error)
	// Lùi hạn thu bằng cập nhật cột, mô phỏng phiếu cũ đến hạn qua đêm
	require.NoError(t, db.Model(&models.Fee{}).Where("id = ?", fee.ID).
		Update("due_date", time.Now().AddDate(0, 0, -2)).Error)

	count, err := svc.MarkOverdueFees()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var saved models.Fee
	require.NoError(t, db.First(&saved, fee.ID).Error)
	assert.Equal(t, constants.FeeStatusOverdue, saved.Status)

	var savedStudent models.Student
	require.NoError(t, db.First(&savedStudent, student.ID).Error)
	assert.True(t, savedStudent.HasPendingFee)
	assert.Equal(t, 5000.0, savedStudent.PendingAmount)
}

func TestAddCalendarMonthsClampsDay(t *testing.T) {
	jan31 := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), addCalendarMonths(jan31, 1))
	assert.Equal(t, time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC), addCalendarMonths(jan31, 3))

	mar15 := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC), addCalendarMonths(mar15, 5))
}
