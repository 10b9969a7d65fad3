package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"hms/constants"
	"hms/models"
)

// Trạng thái session hiển thị, tính lại từ dữ liệu chứ không lấy
// nguyên trạng thái lưu trên phiếu
const (
	SessionStatusActive    = "active"
	SessionStatusPending   = "pending"
	SessionStatusCompleted = "completed"
)

// StatementLine một dòng phải thu trong session: tiền phòng/tiền ăn
// của từng block 30 ngày, hoặc dòng cọc
type StatementLine struct {
	Label       string    `json:"label"`
	Tag         string    `json:"tag"`
	MonthIndex  int       `json:"monthIndex"` // 1-based, 0 với dòng cọc
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	Amount      float64   `json:"amount"`
}

// SessionPayment bút toán thu tiền đã khớp vào session
type SessionPayment struct {
	EntryID       uint      `json:"entryId"`
	Date          time.Time `json:"date"`
	Amount        float64   `json:"amount"`
	Account       string    `json:"account"`
	Tag           string    `json:"tag"`
	PaymentMethod string    `json:"paymentMethod"`
	Voucher       string    `json:"voucher"`
	Description   string    `json:"description"`
}

// StatementSession một "đợt ở": thường ứng với một gói phí, gói bị
// chuyển phòng giữa chừng thì tách làm hai session theo marker
type StatementSession struct {
	FeeID          *uint            `json:"feeId,omitempty"`
	RoomNumber     string           `json:"roomNumber"`
	BedLabel       string           `json:"bedLabel"`
	RoomType       string           `json:"roomType"`
	PackageMonths  int              `json:"packageMonths"`
	StartDate      time.Time        `json:"startDate"`
	EndDate        time.Time        `json:"endDate"`
	Lines          []StatementLine  `json:"lines"`
	Payments       []SessionPayment `json:"payments"`
	TotalDue       float64          `json:"totalDue"`
	TotalPaid      float64          `json:"totalPaid"`
	Balance        float64          `json:"balance"`
	DepositAmount  float64          `json:"depositAmount"`
	DepositCarried bool             `json:"depositCarried"` // cọc kế thừa từ đợt trước
	Status         string           `json:"status"`
	Synthesized    bool             `json:"synthesized"` // dựng từ heuristic, không có phiếu gói
}

// LedgerLine bút toán kèm số dư lũy kế
type LedgerLine struct {
	Entry   models.LedgerEntry `json:"entry"`
	Balance float64            `json:"balance"`
}

// StatementSummary tổng hợp toàn kỳ ở của sinh viên
type StatementSummary struct {
	TotalCharged      float64 `json:"totalCharged"`
	TotalPaid         float64 `json:"totalPaid"`
	TotalRefunded     float64 `json:"totalRefunded"`
	Outstanding       float64 `json:"outstanding"`
	RefundableDeposit float64 `json:"refundableDeposit"`
	StayDays          int     `json:"stayDays"`
}

// Statement báo cáo công nợ đầy đủ của một sinh viên
type Statement struct {
	StudentID uint               `json:"studentId"`
	Sessions  []StatementSession `json:"sessions"` // mới nhất trước
	Ledger    []LedgerLine       `json:"ledger"`
	Summary   StatementSummary   `json:"summary"`
}

// LedgerProjection dựng statement thuần từ dữ liệu đã đọc sẵn,
// không đụng DB để dễ test và tái dựng lịch sử cũ
type LedgerProjection struct{}

func NewLedgerProjection() *LedgerProjection {
	return &LedgerProjection{}
}

// BuildStatement tái dựng các session ở từ phiếu thu + sổ quỹ.
// Phiếu gói giữ tổng cả gói, ở đây mới tách ra từng block 30 ngày;
// bút toán không gắn phiếu được khớp vào session theo heuristic.
func (p *LedgerProjection) BuildStatement(student *models.Student, fees []models.Fee, entries []models.LedgerEntry) *Statement {
	st := &Statement{StudentID: student.ID}

	sortedFees := make([]models.Fee, len(fees))
	copy(sortedFees, fees)
	sort.Slice(sortedFees, func(i, j int) bool {
		return sortedFees[i].CreatedAt.Before(sortedFees[j].CreatedAt)
	})

	sortedEntries := make([]models.LedgerEntry, len(entries))
	copy(sortedEntries, entries)
	sort.Slice(sortedEntries, func(i, j int) bool {
		return sortedEntries[i].Date.Before(sortedEntries[j].Date)
	})

	var sessions []StatementSession
	depositSeen := false

	for i := range sortedFees {
		fee := &sortedFees[i]
		if fee.Kind != constants.FeeKindRoomPackage {
			continue
		}
		pkgSessions := p.explodePackage(student, fee, sortedEntries, depositSeen)
		if fee.DepositAmount > 0 {
			depositSeen = true
		}
		sessions = append(sessions, pkgSessions...)
	}

	// Không có gói nào: dựng session tổng hợp từ hồ sơ sinh viên,
	// statement không bao giờ rỗng kể cả khi chưa có đồng nào vào sổ
	if len(sessions) == 0 {
		sessions = append(sessions, p.synthesizeSession(student, sortedFees, sortedEntries))
	}

	p.matchPayments(sessions, sortedFees, sortedEntries)

	for i := range sessions {
		p.finalizeSession(&sessions[i], student)
	}

	// Mới nhất trước
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartDate.After(sessions[j].StartDate)
	})
	st.Sessions = sessions

	st.Ledger = p.buildLedger(sortedEntries)
	st.Summary = p.buildSummary(student, sortedFees, sortedEntries, sessions)
	return st
}

// explodePackage tách một phiếu gói thành session, cắt đôi tại marker
// chuyển phòng nếu có; tiền chia theo ngày, cọc luôn nằm ở phần đầu
func (p *LedgerProjection) explodePackage(student *models.Student, fee *models.Fee, entries []models.LedgerEntry, depositSeen bool) []StatementSession {
	months := 1
	if fee.PackageMonths != nil && *fee.PackageMonths > 0 {
		months = *fee.PackageMonths
	}

	start := startOfDay(fee.CreatedAt)
	if student.AllocatedAt != nil && !student.AllocatedAt.After(fee.CreatedAt) {
		start = startOfDay(*student.AllocatedAt)
	} else if !student.EnrollmentDate.IsZero() && !student.EnrollmentDate.After(fee.CreatedAt) {
		start = startOfDay(student.EnrollmentDate)
	}
	end := start.AddDate(0, 0, months*constants.DaysPerPackageMonth)

	base := StatementSession{
		FeeID:          &fee.ID,
		RoomNumber:     fee.RoomNumber,
		BedLabel:       fee.BedLabel,
		RoomType:       fee.RoomType,
		PackageMonths:  months,
		StartDate:      start,
		EndDate:        end,
		DepositAmount:  fee.DepositAmount,
		DepositCarried: fee.DepositAmount == 0 && depositSeen,
	}

	shift := p.findRoomShift(entries, start, end)
	if shift == nil {
		base.Lines = p.monthLines(fee, start, 1, months)
		if fee.DepositAmount > 0 {
			base.Lines = append(base.Lines, depositLine(fee.DepositAmount, start))
		}
		sumLines(&base)
		return []StatementSession{base}
	}

	// Có chuyển phòng giữa gói: tách hai session theo ngày marker,
	// tiền phòng/tiền ăn chia theo số ngày thực ở mỗi phòng
	shiftDay := startOfDay(shift.Date)
	oldRoom, newRoom := parseRoomShift(shift.Description)

	first := base
	first.EndDate = shiftDay
	if oldRoom != "" {
		first.RoomNumber = oldRoom
	}
	first.Lines = p.prorateLines(fee, start, shiftDay, start, end)
	if fee.DepositAmount > 0 {
		first.Lines = append(first.Lines, depositLine(fee.DepositAmount, start))
	}
	sumLines(&first)

	second := base
	second.StartDate = shiftDay
	second.DepositAmount = 0
	second.DepositCarried = fee.DepositAmount > 0 || depositSeen
	if newRoom != "" {
		second.RoomNumber = newRoom
	}
	second.Lines = p.prorateLines(fee, shiftDay, end, start, end)
	sumLines(&second)

	return []StatementSession{first, second}
}

// monthLines dòng tiền phòng + tiền ăn cho các block 30 ngày liên tiếp
func (p *LedgerProjection) monthLines(fee *models.Fee, start time.Time, fromMonth, toMonth int) []StatementLine {
	months := 1
	if fee.PackageMonths != nil && *fee.PackageMonths > 0 {
		months = *fee.PackageMonths
	}
	rentPerMonth := fee.RentAmount / float64(months)
	messPerMonth := fee.MessAmount / float64(months)

	var lines []StatementLine
	for m := fromMonth; m <= toMonth; m++ {
		ps := start.AddDate(0, 0, (m-1)*constants.DaysPerPackageMonth)
		pe := start.AddDate(0, 0, m*constants.DaysPerPackageMonth)
		if rentPerMonth > 0 {
			lines = append(lines, StatementLine{
				Label:       fmt.Sprintf("Tiền phòng tháng %d", m),
				Tag:         constants.LedgerTagRent,
				MonthIndex:  m,
				PeriodStart: ps,
				PeriodEnd:   pe,
				Amount:      round2(rentPerMonth),
			})
		}
		if messPerMonth > 0 {
			lines = append(lines, StatementLine{
				Label:       fmt.Sprintf("Tiền ăn tháng %d", m),
				Tag:         constants.LedgerTagMess,
				MonthIndex:  m,
				PeriodStart: ps,
				PeriodEnd:   pe,
				Amount:      round2(messPerMonth),
			})
		}
	}
	return lines
}

// prorateLines dòng gộp cho một đoạn của gói bị cắt, tiền chia theo ngày
func (p *LedgerProjection) prorateLines(fee *models.Fee, from, to, pkgStart, pkgEnd time.Time) []StatementLine {
	totalDays := float64(daysBetween(pkgStart, pkgEnd))
	if totalDays <= 0 {
		return nil
	}
	segDays := float64(daysBetween(from, to))
	if segDays < 0 {
		segDays = 0
	}
	ratio := segDays / totalDays

	var lines []StatementLine
	if fee.RentAmount > 0 {
		lines = append(lines, StatementLine{
			Label:       fmt.Sprintf("Tiền phòng (%d ngày)", int(segDays)),
			Tag:         constants.LedgerTagRent,
			PeriodStart: from,
			PeriodEnd:   to,
			Amount:      round2(fee.RentAmount * ratio),
		})
	}
	if fee.MessAmount > 0 {
		lines = append(lines, StatementLine{
			Label:       fmt.Sprintf("Tiền ăn (%d ngày)", int(segDays)),
			Tag:         constants.LedgerTagMess,
			PeriodStart: from,
			PeriodEnd:   to,
			Amount:      round2(fee.MessAmount * ratio),
		})
	}
	return lines
}

func depositLine(amount float64, at time.Time) StatementLine {
	return StatementLine{
		Label:       "Tiền cọc",
		Tag:         constants.LedgerTagDeposit,
		MonthIndex:  0,
		PeriodStart: at,
		PeriodEnd:   at,
		Amount:      round2(amount),
	}
}

func sumLines(s *StatementSession) {
	total := 0.0
	for _, l := range s.Lines {
		total += l.Amount
	}
	s.TotalDue = round2(total)
}

// findRoomShift marker chuyển phòng đầu tiên rơi vào cửa sổ của gói
func (p *LedgerProjection) findRoomShift(entries []models.LedgerEntry, start, end time.Time) *models.LedgerEntry {
	for i := range entries {
		e := &entries[i]
		if e.Tag != constants.LedgerTagRoomShift {
			continue
		}
		d := startOfDay(e.Date)
		if !d.Before(start) && d.Before(end) {
			return e
		}
	}
	return nil
}

// parseRoomShift đọc "room X -> Y" từ description của marker
func parseRoomShift(desc string) (oldRoom, newRoom string) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(desc), "room"))
	parts := strings.Split(s, "->")
	if len(parts) != 2 {
		return "", ""
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// synthesizeSession session dự phòng khi không có phiếu gói nào:
// gom mọi phiếu lẻ thành dòng phải thu, cửa sổ lấy từ hồ sơ sinh viên
// (ngày nhập học tới ngày "ở đến", không có thì tới ngày mai)
func (p *LedgerProjection) synthesizeSession(student *models.Student, fees []models.Fee, entries []models.LedgerEntry) StatementSession {
	start := startOfDay(student.EnrollmentDate)
	if student.EnrollmentDate.IsZero() {
		if len(entries) > 0 {
			start = startOfDay(entries[0].Date)
		} else if len(fees) > 0 {
			start = startOfDay(fees[0].CreatedAt)
		} else {
			start = startOfDay(time.Now())
		}
	}

	end := startOfDay(time.Now()).AddDate(0, 0, 1)
	if student.AdmissionThrough != nil {
		end = startOfDay(*student.AdmissionThrough)
	}

	s := StatementSession{
		StartDate:   start,
		EndDate:     end,
		Synthesized: true,
	}
	if student.PackageMonths != nil {
		s.PackageMonths = *student.PackageMonths
	}
	if student.Room != nil {
		s.RoomNumber = student.Room.RoomNumber
		s.RoomType = student.Room.Type
	}

	for i := range fees {
		fee := &fees[i]
		if fee.Kind == constants.FeeKindRefund {
			continue
		}
		s.Lines = append(s.Lines, StatementLine{
			Label:       fmt.Sprintf("Khoản thu #%d", fee.ID),
			Tag:         constants.LedgerTagAdjust,
			PeriodStart: startOfDay(fee.CreatedAt),
			PeriodEnd:   startOfDay(fee.DueDate),
			Amount:      round2(fee.TotalAmount),
		})
	}
	sumLines(&s)
	return s
}

// matchPayments khớp bút toán thu tiền vào session theo thứ tự ưu tiên:
// cọc về session giữ dòng cọc, có FeeID thì theo phiếu, rồi theo ngày,
// cuối cùng rơi vào session mới nhất
func (p *LedgerProjection) matchPayments(sessions []StatementSession, fees []models.Fee, entries []models.LedgerEntry) {
	if len(sessions) == 0 {
		return
	}

	feeSession := make(map[uint]int)
	depositIdx := -1
	for i := range sessions {
		if sessions[i].FeeID != nil {
			if _, ok := feeSession[*sessions[i].FeeID]; !ok {
				feeSession[*sessions[i].FeeID] = i
			}
		}
		if depositIdx < 0 && sessions[i].DepositAmount > 0 {
			depositIdx = i
		}
	}
	newestIdx := 0
	for i := range sessions {
		if sessions[i].StartDate.After(sessions[newestIdx].StartDate) {
			newestIdx = i
		}
	}

	// Session đang chạy (cửa sổ chứa hôm nay): tiền cọc của người quay lại ở
	// phải về đây chứ không rơi vào session cũ đã giữ dòng cọc
	today := startOfDay(time.Now())
	activeIdx := -1
	for i := range sessions {
		if !today.Before(sessions[i].StartDate) && today.Before(sessions[i].EndDate) {
			activeIdx = i
		}
	}

	for i := range entries {
		e := &entries[i]
		if e.Kind != constants.LedgerKindPayment || e.Tag == constants.LedgerTagRoomShift {
			continue
		}

		idx := -1
		switch {
		case e.Tag == constants.LedgerTagDeposit && activeIdx >= 0:
			idx = activeIdx
		case e.Tag == constants.LedgerTagDeposit && depositIdx >= 0:
			idx = depositIdx
		case e.FeeID != nil:
			if j, ok := feeSession[*e.FeeID]; ok {
				idx = j
			}
		}
		if idx < 0 {
			d := startOfDay(e.Date)
			for j := range sessions {
				if !d.Before(sessions[j].StartDate) && d.Before(sessions[j].EndDate) {
					idx = j
					break
				}
			}
		}
		if idx < 0 {
			idx = newestIdx
		}

		amount := e.Amount
		if e.Tag == constants.LedgerTagRefund {
			amount = -amount
		}
		sessions[idx].Payments = append(sessions[idx].Payments, SessionPayment{
			EntryID:       e.ID,
			Date:          e.Date,
			Amount:        round2(amount),
			Account:       e.Account,
			Tag:           e.Tag,
			PaymentMethod: e.PaymentMethod,
			Voucher:       e.Voucher,
			Description:   e.Description,
		})
	}
}

// finalizeSession chốt số liệu và trạng thái hiển thị của session.
// Sinh viên đã inactive thì mọi session đều completed, bất kể phiếu nói gì.
func (p *LedgerProjection) finalizeSession(s *StatementSession, student *models.Student) {
	paid := 0.0
	for _, pm := range s.Payments {
		paid += pm.Amount
	}
	s.TotalPaid = round2(paid)
	s.Balance = round2(s.TotalDue - s.TotalPaid)

	today := startOfDay(time.Now())
	switch {
	case student.Status == constants.StudentStatusInactive:
		s.Status = SessionStatusCompleted
	case !today.Before(s.EndDate):
		s.Status = SessionStatusCompleted
	case s.Balance > 0:
		s.Status = SessionStatusPending
	default:
		s.Status = SessionStatusActive
	}
}

// buildLedger sổ quỹ phẳng theo thời gian với số dư lũy kế:
// Payment cộng, Other trừ, marker 0 đồng giữ nguyên số dư
func (p *LedgerProjection) buildLedger(entries []models.LedgerEntry) []LedgerLine {
	lines := make([]LedgerLine, 0, len(entries))
	balance := 0.0
	for i := range entries {
		e := entries[i]
		if e.Kind == constants.LedgerKindPayment {
			balance += e.Amount
		} else {
			balance -= e.Amount
		}
		balance = round2(balance)
		lines = append(lines, LedgerLine{Entry: e, Balance: balance})
	}
	return lines
}

func (p *LedgerProjection) buildSummary(student *models.Student, fees []models.Fee, entries []models.LedgerEntry, sessions []StatementSession) StatementSummary {
	var sum StatementSummary

	for i := range fees {
		fee := &fees[i]
		if fee.Kind == constants.FeeKindRefund {
			sum.TotalRefunded += fee.RefundAmount
			continue
		}
		sum.TotalCharged += fee.TotalAmount
		sum.TotalPaid += fee.PaidAmount
		sum.TotalRefunded += fee.RefundAmount
	}

	for i := range sessions {
		if sessions[i].Balance > 0 {
			sum.Outstanding += sessions[i].Balance
		}
	}

	// Cọc còn hoàn được: đã thu trừ đã hoàn
	var depositPaid, depositRefunded float64
	for i := range fees {
		fee := &fees[i]
		if fee.DepositAmount > 0 && (fee.Status == constants.FeeStatusPaid ||
			fee.Status == constants.FeeStatusPartial ||
			fee.Status == constants.FeeStatusCheckedOut) {
			depositPaid += fee.DepositAmount
		}
	}
	for i := range entries {
		e := &entries[i]
		if e.Kind == constants.LedgerKindPayment && e.Tag == constants.LedgerTagDeposit {
			if e.FeeID == nil {
				depositPaid += e.Amount
			}
		}
		if e.Tag == constants.LedgerTagRefund {
			depositRefunded += e.Amount
		}
	}
	for i := range fees {
		if fees[i].Kind == constants.FeeKindRefund {
			depositRefunded += fees[i].DepositAmount
		}
	}
	refundable := depositPaid - depositRefunded
	if refundable < 0 {
		refundable = 0
	}
	if student.Status == constants.StudentStatusInactive && sum.TotalRefunded > 0 {
		refundable = 0
	}
	sum.RefundableDeposit = round2(refundable)

	// Thời gian ở: từ lúc xếp giường (hoặc nhập học) tới lúc trả phòng/nay
	checkIn := student.EnrollmentDate
	if student.AllocatedAt != nil {
		checkIn = *student.AllocatedAt
	}
	if !checkIn.IsZero() {
		until := time.Now()
		for i := range fees {
			if fees[i].CheckOutDate != nil {
				until = *fees[i].CheckOutDate
			}
		}
		sum.StayDays = daysBetween(startOfDay(checkIn), startOfDay(until))
		if sum.StayDays < 0 {
			sum.StayDays = 0
		}
	}

	sum.TotalCharged = round2(sum.TotalCharged)
	sum.TotalPaid = round2(sum.TotalPaid)
	sum.TotalRefunded = round2(sum.TotalRefunded)
	sum.Outstanding = round2(sum.Outstanding)
	return sum
}
