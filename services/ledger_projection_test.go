package services

import (
	"testing"
	"time"

	"hms/constants"
	"hms/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

func packageFee(id uint, studentID uint, createdAt time.Time, months int, rent, mess, deposit float64) models.Fee {
	return models.Fee{
		ID:            id,
		StudentID:     studentID,
		Kind:          constants.FeeKindRoomPackage,
		PackageMonths: intPtr(months),
		RentAmount:    rent,
		MessAmount:    mess,
		DepositAmount: deposit,
		TotalAmount:   rent + mess + deposit,
		Status:        constants.FeeStatusPartial,
		RoomNumber:    "301",
		CreatedAt:     createdAt,
	}
}

func TestStatementExplodesPackageByMonth(t *testing.T) {
	p := NewLedgerProjection()
	student := &models.Student{ID: 1, Status: constants.StudentStatusActive}

	start := date(2025, 1, 1)
	fee := packageFee(1, 1, start, 2, 20000, 6000, 10000)

	st := p.BuildStatement(student, []models.Fee{fee}, nil)
	require.Len(t, st.Sessions, 1)

	s := st.Sessions[0]
	assert.Equal(t, start, s.StartDate)
	assert.Equal(t, start.AddDate(0, 0, 60), s.EndDate)
	assert.Equal(t, 2, s.PackageMonths)
	assert.Equal(t, "301", s.RoomNumber)
	assert.False(t, s.Synthesized)

	// 2 dòng phòng + 2 dòng ăn + 1 dòng cọc
	require.Len(t, s.Lines, 5)
	assert.Equal(t, "Tiền phòng tháng 1", s.Lines[0].Label)
	assert.Equal(t, 10000.0, s.Lines[0].Amount)
	assert.Equal(t, start, s.Lines[0].PeriodStart)
	assert.Equal(t, start.AddDate(0, 0, 30), s.Lines[0].PeriodEnd)
	assert.Equal(t, "Tiền ăn tháng 2", s.Lines[3].Label)
	assert.Equal(t, 3000.0, s.Lines[3].Amount)
	assert.Equal(t, constants.LedgerTagDeposit, s.Lines[4].Tag)
	assert.Equal(t, 10000.0, s.Lines[4].Amount)

	assert.Equal(t, 36000.0, s.TotalDue)
	// Cửa sổ đã qua
	assert.Equal(t, SessionStatusCompleted, s.Status)
}

func TestStatementRoomShiftSplitsSession(t *testing.T) {
	p := NewLedgerProjection()
	student := &models.Student{ID: 2, Status: constants.StudentStatusActive}

	start := date(2026, 1, 1)
	fee := packageFee(1, 2, start, 2, 20000, 6000, 10000)
	fee.RoomNumber = "301"

	entries := []models.LedgerEntry{
		{
			ID:          1,
			StudentID:   2,
			Date:        start.AddDate(0, 0, 30),
			Kind:        constants.LedgerKindOther,
			Account:     constants.AccountA,
			Amount:      0,
			Tag:         constants.LedgerTagRoomShift,
			Description: "room 301 -> 405",
		},
	}

	st := p.BuildStatement(student, []models.Fee{fee}, entries)
	require.Len(t, st.Sessions, 2)

	// Mới nhất trước: đoạn sau chuyển phòng đứng đầu
	second, first := st.Sessions[0], st.Sessions[1]

	assert.Equal(t, "301", first.RoomNumber)
	assert.Equal(t, start, first.StartDate)
	assert.Equal(t, start.AddDate(0, 0, 30), first.EndDate)
	// Nửa gói + cọc nguyên vẹn
	assert.Equal(t, 23000.0, first.TotalDue)
	assert.Equal(t, 10000.0, first.DepositAmount)
	assert.False(t, first.DepositCarried)

	assert.Equal(t, "405", second.RoomNumber)
	assert.Equal(t, start.AddDate(0, 0, 30), second.StartDate)
	assert.Equal(t, start.AddDate(0, 0, 60), second.EndDate)
	assert.Equal(t, 13000.0, second.TotalDue)
	assert.Equal(t, 0.0, second.DepositAmount)
	assert.True(t, second.DepositCarried)
}

func TestStatementPaymentMatching(t *testing.T) {
	p := NewLedgerProjection()
	student := &models.Student{ID: 3, Status: constants.StudentStatusActive}

	fee1 := packageFee(1, 3, date(2024, 1, 1), 1, 10000, 3000, 10000)
	fee2 := packageFee(2, 3, date(2024, 3, 1), 1, 10000, 3000, 0)
	fee2ID := uint(2)

	entries := []models.LedgerEntry{
		// Không còn session nào đang chạy: cọc về session giữ dòng cọc
		{ID: 1, StudentID: 3, Date: date(2024, 3, 10), Kind: constants.LedgerKindPayment,
			Account: constants.AccountA, Amount: 10000, Tag: constants.LedgerTagDeposit},
		// Có FeeID thì theo phiếu
		{ID: 2, StudentID: 3, Date: date(2024, 1, 5), Kind: constants.LedgerKindPayment,
			Account: constants.AccountA, Amount: 10000, Tag: constants.LedgerTagRent, FeeID: &fee2ID},
		// Không có FeeID: khớp theo cửa sổ ngày
		{ID: 3, StudentID: 3, Date: date(2024, 1, 15), Kind: constants.LedgerKindPayment,
			Account: constants.AccountB, Amount: 3000, Tag: constants.LedgerTagMess},
		// Ngoài mọi cửa sổ: rơi vào session mới nhất
		{ID: 4, StudentID: 3, Date: date(2023, 12, 1), Kind: constants.LedgerKindPayment,
			Account: constants.AccountA, Amount: 500, Tag: constants.LedgerTagRent},
		// Hoàn tiền trừ khỏi tổng đã thu
		{ID: 5, StudentID: 3, Date: date(2024, 1, 20), Kind: constants.LedgerKindPayment,
			Account: constants.AccountA, Amount: 1000, Tag: constants.LedgerTagRefund},
	}

	st := p.BuildStatement(student, []models.Fee{fee1, fee2}, entries)
	require.Len(t, st.Sessions, 2)

	newest, oldest := st.Sessions[0], st.Sessions[1]
	require.NotNil(t, newest.FeeID)
	assert.Equal(t, uint(2), *newest.FeeID)
	require.NotNil(t, oldest.FeeID)
	assert.Equal(t, uint(1), *oldest.FeeID)

	// Session cũ giữ cọc: nhận bút toán cọc, bút toán trong cửa sổ và hoàn tiền
	require.Len(t, oldest.Payments, 3)
	assert.Equal(t, 12000.0, oldest.TotalPaid) // 10000 + 3000 - 1000

	// Session mới: bút toán theo FeeID + bút toán mồ côi
	require.Len(t, newest.Payments, 2)
	assert.Equal(t, 10500.0, newest.TotalPaid)
}

func TestStatementDepositFollowsActiveSession(t *testing.T) {
	p := NewLedgerProjection()
	student := &models.Student{ID: 10, Status: constants.StudentStatusActive}

	// Đợt ở cũ đã giữ dòng cọc, sinh viên quay lại với gói mới đang chạy
	oldFee := packageFee(1, 10, date(2024, 1, 1), 1, 10000, 3000, 10000)
	newFee := packageFee(2, 10, startOfDay(time.Now()).AddDate(0, 0, -5), 5, 50000, 15000, 0)

	entries := []models.LedgerEntry{
		{ID: 1, StudentID: 10, Date: startOfDay(time.Now()).AddDate(0, 0, -2),
			Kind: constants.LedgerKindPayment, Account: constants.AccountA,
			Amount: 10000, Tag: constants.LedgerTagDeposit},
	}

	st := p.BuildStatement(student, []models.Fee{oldFee, newFee}, entries)
	require.Len(t, st.Sessions, 2)

	active, old := st.Sessions[0], st.Sessions[1]
	require.NotNil(t, active.FeeID)
	assert.Equal(t, uint(2), *active.FeeID)

	// Cọc của người quay lại về session đang chạy, không rơi vào đợt cũ
	require.Len(t, active.Payments, 1)
	assert.Equal(t, 10000.0, active.TotalPaid)
	assert.Empty(t, old.Payments)
}

func TestStatementNeverEmptyWithoutBillingData(t *testing.T) {
	p := NewLedgerProjection()

	enrollment := date(2025, 6, 1)
	through := date(2025, 11, 1)
	student := &models.Student{
		ID:               11,
		Status:           constants.StudentStatusInactive,
		EnrollmentDate:   enrollment,
		AdmissionThrough: &through,
		PackageMonths:    intPtr(5),
	}

	// Không một phiếu hay bút toán nào: vẫn phải có lịch sử ở dựng từ hồ sơ
	st := p.BuildStatement(student, nil, nil)
	require.Len(t, st.Sessions, 1)

	s := st.Sessions[0]
	assert.True(t, s.Synthesized)
	assert.Equal(t, enrollment, s.StartDate)
	assert.Equal(t, through, s.EndDate)
	assert.Equal(t, 5, s.PackageMonths)
	assert.Equal(t, 0.0, s.TotalDue)
	assert.Equal(t, SessionStatusCompleted, s.Status)
}

func TestStatementInactiveStudentAllCompleted(t *testing.T) {
	p := NewLedgerProjection()
	student := &models.Student{ID: 4, Status: constants.StudentStatusInactive}

	// Gói đang trong cửa sổ và còn nợ, bình thường sẽ là pending
	fee := packageFee(1, 4, startOfDay(time.Now()).AddDate(0, 0, -10), 5, 50000, 15000, 10000)

	st := p.BuildStatement(student, []models.Fee{fee}, nil)
	require.Len(t, st.Sessions, 1)
	assert.Equal(t, SessionStatusCompleted, st.Sessions[0].Status)
}

func TestStatementPendingWhenBalanceOpen(t *testing.T) {
	p := NewLedgerProjection()
	student := &models.Student{ID: 5, Status: constants.StudentStatusActive}

	fee := packageFee(1, 5, startOfDay(time.Now()).AddDate(0, 0, -10), 5, 50000, 15000, 0)

	st := p.BuildStatement(student, []models.Fee{fee}, nil)
	require.Len(t, st.Sessions, 1)
	assert.Equal(t, SessionStatusPending, st.Sessions[0].Status)

	// Thu đủ thì chuyển active
	entries := []models.LedgerEntry{
		{ID: 1, StudentID: 5, Date: startOfDay(time.Now()).AddDate(0, 0, -9),
			Kind: constants.LedgerKindPayment, Account: constants.AccountA,
			Amount: 65000, Tag: constants.LedgerTagRent},
	}
	st = p.BuildStatement(student, []models.Fee{fee}, entries)
	assert.Equal(t, SessionStatusActive, st.Sessions[0].Status)
}

func TestStatementSynthesizedSession(t *testing.T) {
	p := NewLedgerProjection()
	student := &models.Student{
		ID:             6,
		Status:         constants.StudentStatusActive,
		EnrollmentDate: date(2026, 2, 1),
	}

	// Dữ liệu cũ: chỉ có phiếu lẻ và bút toán, không có phiếu gói
	fee := models.Fee{
		ID:          7,
		StudentID:   6,
		Kind:        constants.FeeKindManual,
		TotalAmount: 4000,
		Status:      constants.FeeStatusPending,
		DueDate:     date(2026, 2, 15),
		CreatedAt:   date(2026, 2, 1),
	}
	entries := []models.LedgerEntry{
		{ID: 1, StudentID: 6, Date: date(2026, 2, 10), Kind: constants.LedgerKindPayment,
			Account: constants.AccountA, Amount: 1500, Tag: constants.LedgerTagRent},
	}

	st := p.BuildStatement(student, []models.Fee{fee}, entries)
	require.Len(t, st.Sessions, 1)

	s := st.Sessions[0]
	assert.True(t, s.Synthesized)
	assert.Equal(t, date(2026, 2, 1), s.StartDate)
	require.Len(t, s.Lines, 1)
	assert.Equal(t, "Khoản thu #7", s.Lines[0].Label)
	assert.Equal(t, 4000.0, s.TotalDue)
	assert.Equal(t, 1500.0, s.TotalPaid)
	assert.Equal(t, 2500.0, s.Balance)
}

func TestStatementSessionsNewestFirst(t *testing.T) {
	p := NewLedgerProjection()
	student := &models.Student{ID: 7, Status: constants.StudentStatusActive}

	fees := []models.Fee{
		packageFee(1, 7, date(2025, 9, 1), 1, 10000, 3000, 10000),
		packageFee(2, 7, date(2026, 1, 1), 1, 10000, 3000, 0),
		packageFee(3, 7, date(2026, 5, 1), 1, 10000, 3000, 0),
	}

	st := p.BuildStatement(student, fees, nil)
	require.Len(t, st.Sessions, 3)
	assert.Equal(t, uint(3), *st.Sessions[0].FeeID)
	assert.Equal(t, uint(2), *st.Sessions[1].FeeID)
	assert.Equal(t, uint(1), *st.Sessions[2].FeeID)

	// Cọc chỉ nằm ở gói đầu, các gói sau kế thừa
	assert.False(t, st.Sessions[2].DepositCarried)
	assert.True(t, st.Sessions[1].DepositCarried)
	assert.True(t, st.Sessions[0].DepositCarried)
}

func TestLedgerRunningBalance(t *testing.T) {
	p := NewLedgerProjection()
	student := &models.Student{ID: 8, Status: constants.StudentStatusActive}

	entries := []models.LedgerEntry{
		{ID: 1, StudentID: 8, Date: date(2026, 1, 1), Kind: constants.LedgerKindPayment,
			Account: constants.AccountA, Amount: 5000, Tag: constants.LedgerTagRent},
		{ID: 2, StudentID: 8, Date: date(2026, 1, 5), Kind: constants.LedgerKindOther,
			Account: constants.AccountA, Amount: 2000, Tag: constants.LedgerTagAdjust},
		{ID: 3, StudentID: 8, Date: date(2026, 1, 10), Kind: constants.LedgerKindPayment,
			Account: constants.AccountB, Amount: 1000, Tag: constants.LedgerTagMess},
		// Marker 0 đồng không đổi số dư
		{ID: 4, StudentID: 8, Date: date(2026, 1, 12), Kind: constants.LedgerKindOther,
			Account: constants.AccountA, Amount: 0, Tag: constants.LedgerTagRoomShift},
	}

	st := p.BuildStatement(student, nil, entries)
	require.Len(t, st.Ledger, 4)
	assert.Equal(t, 5000.0, st.Ledger[0].Balance)
	assert.Equal(t, 3000.0, st.Ledger[1].Balance)
	assert.Equal(t, 4000.0, st.Ledger[2].Balance)
	assert.Equal(t, 4000.0, st.Ledger[3].Balance)
}

func TestStatementSummary(t *testing.T) {
	p := NewLedgerProjection()
	allocatedAt := date(2025, 1, 1)
	student := &models.Student{
		ID:          9,
		Status:      constants.StudentStatusActive,
		AllocatedAt: &allocatedAt,
	}

	fee := packageFee(1, 9, date(2025, 1, 1), 2, 20000, 6000, 10000)
	fee.PaidAmount = 16000
	fee.Status = constants.FeeStatusPartial

	st := p.BuildStatement(student, []models.Fee{fee}, nil)

	assert.Equal(t, 36000.0, st.Summary.TotalCharged)
	assert.Equal(t, 16000.0, st.Summary.TotalPaid)
	// Cọc đã thu qua phiếu partial, chưa hoàn
	assert.Equal(t, 10000.0, st.Summary.RefundableDeposit)
	assert.True(t, st.Summary.StayDays > 0)
}
