package errors

import (
	"errors"
	"fmt"
)

// ErrorCode định nghĩa mã lỗi
type ErrorCode string

const (
	// Auth errors
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidToken    ErrorCode = "INVALID_TOKEN"
	ErrCodeMissingToken    ErrorCode = "MISSING_TOKEN"
	ErrCodeInvalidPassword ErrorCode = "INVALID_PASSWORD"
	ErrCodeUserNotFound    ErrorCode = "USER_NOT_FOUND"
	ErrCodeUserExists      ErrorCode = "USER_EXISTS"
	ErrCodeInvalidEmail    ErrorCode = "INVALID_EMAIL"
	ErrCodeInvalidRole     ErrorCode = "INVALID_ROLE"

	// Not found
	ErrCodeRoomNotFound    ErrorCode = "ROOM_NOT_FOUND"
	ErrCodeStudentNotFound ErrorCode = "STUDENT_NOT_FOUND"
	ErrCodeFeeNotFound     ErrorCode = "FEE_NOT_FOUND"
	ErrCodeEntryNotFound   ErrorCode = "ENTRY_NOT_FOUND"

	// Invalid state
	ErrCodeRoomFull          ErrorCode = "ROOM_FULL"
	ErrCodeBedTaken          ErrorCode = "BED_TAKEN"
	ErrCodeAlreadyAllocated  ErrorCode = "ALREADY_ALLOCATED"
	ErrCodeNoRoomAllocated   ErrorCode = "NO_ROOM_ALLOCATED"
	ErrCodeSameRoom          ErrorCode = "SAME_ROOM"
	ErrCodeAlreadyCheckedOut ErrorCode = "ALREADY_CHECKED_OUT"
	ErrCodeAlreadySettled    ErrorCode = "ALREADY_SETTLED"
	ErrCodeRoomOccupied      ErrorCode = "ROOM_OCCUPIED"

	// Lock
	ErrCodeLockHeld ErrorCode = "LOCK_HELD"

	// Database errors
	ErrCodeDBError     ErrorCode = "DB_ERROR"
	ErrCodeDBNotFound  ErrorCode = "DB_NOT_FOUND"
	ErrCodeDBDuplicate ErrorCode = "DB_DUPLICATE"

	// Validation errors
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeRequiredField ErrorCode = "REQUIRED_FIELD"
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	ErrCodeInvalidStatus ErrorCode = "INVALID_STATUS"
	ErrCodeInvalidAmount ErrorCode = "INVALID_AMOUNT"
)

// AppError định nghĩa lỗi của ứng dụng
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewAppError tạo một AppError mới
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsAppError kiểm tra xem error có phải là AppError không
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError lấy AppError từ error
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return nil
}

// HasCode kiểm tra error có mang mã lỗi chỉ định không
func HasCode(err error, code ErrorCode) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}

var (
	// Student errors
	ErrStudentNotFound = errors.New("student not found")
	ErrStudentExists   = errors.New("student already exists")

	// Room errors
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrBedTaken        = errors.New("bed already occupied")
	ErrRoomOccupied    = errors.New("room has occupants")
	ErrNoRoomAllocated = errors.New("student has no room allocated")

	// Fee errors
	ErrFeeNotFound        = errors.New("fee not found")
	ErrFeeAlreadySettled  = errors.New("fee already settled")
	ErrAlreadyCheckedOut  = errors.New("fee already checked out")
	ErrPackageLockHeld    = errors.New("package generation in progress, retry shortly")
	ErrInvalidPackageSpan = errors.New("invalid package duration")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingRequired = errors.New("missing required field")
	ErrInvalidFormat   = errors.New("invalid format")
)
