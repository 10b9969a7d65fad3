package validator

import (
	"regexp"
	"time"

	"hms/constants"
	"hms/errors"
	"hms/models"
)

// ValidateUser validate thông tin tài khoản quản lý
func ValidateUser(user *models.User) error {
	if user.Email == "" {
		return errors.NewAppError(errors.ErrCodeRequiredField, "Email không được để trống", nil)
	}

	if !isValidEmail(user.Email) {
		return errors.NewAppError(errors.ErrCodeInvalidEmail, "Email không hợp lệ", nil)
	}

	if user.Password == "" {
		return errors.NewAppError(errors.ErrCodeRequiredField, "Mật khẩu không được để trống", nil)
	}

	if len(user.Password) < 6 {
		return errors.NewAppError(errors.ErrCodeValidation, "Mật khẩu phải có ít nhất 6 ký tự", nil)
	}

	if user.Role < constants.RoleSuperAdmin || user.Role > constants.RoleReceptionist {
		return errors.NewAppError(errors.ErrCodeInvalidRole, "Role không hợp lệ", nil)
	}

	return nil
}

// ValidateStudent validate thông tin sinh viên
func ValidateStudent(student *models.Student) error {
	if student.RegNo == "" {
		return errors.NewAppError(errors.ErrCodeRequiredField, "Mã sinh viên không được để trống", nil)
	}

	if student.Name == "" {
		return errors.NewAppError(errors.ErrCodeRequiredField, "Tên sinh viên không được để trống", nil)
	}

	if student.Email != "" && !isValidEmail(student.Email) {
		return errors.NewAppError(errors.ErrCodeInvalidEmail, "Email không hợp lệ", nil)
	}

	if student.PhoneNumber != "" && !isValidPhone(student.PhoneNumber) {
		return errors.NewAppError(errors.ErrCodeInvalidFormat, "Số điện thoại không hợp lệ", nil)
	}

	switch student.Status {
	case "", constants.StudentStatusRegistered, constants.StudentStatusActive, constants.StudentStatusInactive:
	default:
		return errors.NewAppError(errors.ErrCodeInvalidStatus, "Trạng thái sinh viên không hợp lệ", nil)
	}

	return nil
}

// ValidateRoom validate thông tin phòng
func ValidateRoom(room *models.Room) error {
	if room.RoomNumber == "" {
		return errors.NewAppError(errors.ErrCodeRequiredField, "Số phòng không được để trống", nil)
	}

	if err := room.ValidateCapacity(); err != nil {
		return errors.NewAppError(errors.ErrCodeValidation, "Sức chứa phòng phải từ 1 đến 4", err)
	}

	if err := room.ValidateStatus(); err != nil {
		return errors.NewAppError(errors.ErrCodeInvalidStatus, "Trạng thái phòng không hợp lệ", err)
	}

	if room.BaseRent < 0 || room.MessMonthly < 0 {
		return errors.NewAppError(errors.ErrCodeInvalidAmount, "Giá phòng và tiền ăn không được âm", nil)
	}

	for months, rent := range room.RentTable {
		if months < constants.MinPackageMonths || months > constants.MaxPackageMonths {
			return errors.NewAppError(errors.ErrCodeValidation, "Bảng giá chỉ nhận số tháng từ 1 đến 5", nil)
		}
		if rent < 0 {
			return errors.NewAppError(errors.ErrCodeInvalidAmount, "Giá trong bảng giá không được âm", nil)
		}
	}

	return nil
}

// ValidateManualEntry validate bút toán thủ công trước khi ghi sổ
func ValidateManualEntry(entry *models.LedgerEntry) error {
	if entry.StudentID == 0 {
		return errors.NewAppError(errors.ErrCodeRequiredField, "Bút toán phải gắn với sinh viên", nil)
	}

	if entry.Kind != constants.LedgerKindPayment && entry.Kind != constants.LedgerKindOther {
		return errors.NewAppError(errors.ErrCodeValidation, "Loại bút toán phải là Payment hoặc Other", nil)
	}

	if entry.Account != constants.AccountA && entry.Account != constants.AccountB {
		return errors.NewAppError(errors.ErrCodeValidation, "Tài khoản quyết toán phải là A hoặc B", nil)
	}

	if entry.Amount < 0 {
		return errors.NewAppError(errors.ErrCodeInvalidAmount, "Số tiền không được âm", nil)
	}

	if entry.Date.IsZero() {
		entry.Date = time.Now()
	}

	return nil
}

// ValidateAmount validate số tiền
func ValidateAmount(amount float64) error {
	if amount < 0 {
		return errors.NewAppError(errors.ErrCodeInvalidAmount, "Số tiền không được âm", nil)
	}
	return nil
}

// isValidEmail kiểm tra email hợp lệ
func isValidEmail(email string) bool {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}

// isValidPhone kiểm tra số điện thoại hợp lệ
func isValidPhone(phone string) bool {
	phoneRegex := regexp.MustCompile(`^[0-9]{10}$`)
	return phoneRegex.MatchString(phone)
}
