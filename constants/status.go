package constants

// Trạng thái phòng
const (
	RoomStatusAvailable   = "available"
	RoomStatusOccupied    = "occupied"
	RoomStatusMaintenance = "maintenance"
	RoomStatusUnavailable = "unavailable"
)

// Trạng thái sinh viên
const (
	StudentStatusRegistered = "registered"
	StudentStatusActive     = "active"
	StudentStatusInactive   = "inactive"
)

// Trạng thái phiếu thu
const (
	FeeStatusPending    = "pending"
	FeeStatusPartial    = "partial"
	FeeStatusPaid       = "paid"
	FeeStatusOverdue    = "overdue"
	FeeStatusCheckedOut = "checked_out"
	FeeStatusRefunded   = "refunded"
)

// Loại phiếu thu
const (
	FeeKindRoomPackage = "room_package"
	FeeKindManual      = "manual"
	FeeKindRefund      = "refund"
)

// Nguồn tạo phiếu thu
const (
	FeeSourceManual      = "manual"
	FeeSourceAutoPackage = "auto_package"
)

// Loại bút toán sổ quỹ
const (
	LedgerKindPayment = "Payment"
	LedgerKindOther   = "Other"
)

// Hai tài khoản quyết toán bên ngoài
const (
	AccountA = "A" // tiền phòng + tiền cọc
	AccountB = "B" // tiền ăn
)

// Nhãn phân loại bút toán
const (
	LedgerTagRent      = "rent"
	LedgerTagMess      = "mess"
	LedgerTagDeposit   = "deposit"
	LedgerTagRefund    = "refund"
	LedgerTagRoomShift = "room_shift"
	LedgerTagAdjust    = "adjustment"
)

// Tham số gói phí
const (
	DefaultDepositAmount = 10000.0
	DaysPerPackageMonth  = 30
	MinPackageMonths     = 1
	MaxPackageMonths     = 5
)

// Nhãn giường theo thứ tự slot
var BedLabels = []string{"A", "B", "C", "D"}

// User role
const (
	RoleSuperAdmin   = 1
	RoleAdmin        = 2
	RoleReceptionist = 3
)

// User status
const (
	UserStatusInactive = 0
	UserStatusActive   = 1
)
