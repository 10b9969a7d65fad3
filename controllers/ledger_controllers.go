package controllers

import (
	"errors"
	"time"

	"hms/commands"
	"hms/config"
	"hms/constants"
	"hms/dto"
	"hms/models"
	"hms/response"
	"hms/validator"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetStudentStatement dựng báo cáo công nợ đầy đủ: các đợt ở tách theo
// block 30 ngày, bút toán đã khớp và tổng hợp toàn kỳ
func GetStudentStatement(c *gin.Context) {
	id := c.Param("id")

	var student models.Student
	if err := config.DB.Preload("Room").First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.ServerError(c)
		return
	}

	var fees []models.Fee
	if err := config.DB.Where("student_id = ?", student.ID).Find(&fees).Error; err != nil {
		response.ServerError(c)
		return
	}

	var entries []models.LedgerEntry
	if err := config.DB.Where("student_id = ?", student.ID).Find(&entries).Error; err != nil {
		response.ServerError(c)
		return
	}

	statement := getProjection().BuildStatement(&student, fees, entries)

	response.Success(c, statement)
}

// GetStudentLedger sổ quỹ phẳng của sinh viên kèm số dư lũy kế
func GetStudentLedger(c *gin.Context) {
	id := c.Param("id")

	var student models.Student
	if err := config.DB.First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.ServerError(c)
		return
	}

	var entries []models.LedgerEntry
	if err := config.DB.Where("student_id = ?", student.ID).Order("date").Find(&entries).Error; err != nil {
		response.ServerError(c)
		return
	}

	balance := 0.0
	entryResponses := make([]dto.LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if e.Kind == constants.LedgerKindPayment {
			balance += e.Amount
		} else {
			balance -= e.Amount
		}
		entryResponses = append(entryResponses, dto.LedgerEntryResponse{
			ID:            e.ID,
			StudentID:     e.StudentID,
			FeeID:         e.FeeID,
			Date:          e.Date,
			Kind:          e.Kind,
			Account:       e.Account,
			Amount:        e.Amount,
			Voucher:       e.Voucher,
			PaymentMethod: e.PaymentMethod,
			Tag:           e.Tag,
			Description:   e.Description,
			Balance:       balance,
		})
	}

	response.Success(c, entryResponses)
}

// CreateLedgerEntry ghi bút toán thủ công vào sổ quỹ
func CreateLedgerEntry(c *gin.Context) {
	var request dto.ManualEntryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	date, err := parseDate(request.Date)
	if err != nil {
		response.BadRequest(c, "Ngày bút toán không hợp lệ, định dạng dd/mm/yyyy")
		return
	}

	entry := models.LedgerEntry{
		StudentID:     request.StudentID,
		FeeID:         request.FeeID,
		Kind:          request.Kind,
		Account:       request.Account,
		Amount:        request.Amount,
		PaymentMethod: request.PaymentMethod,
		Tag:           request.Tag,
		Description:   request.Description,
		Date:          time.Now(),
	}
	if date != nil {
		entry.Date = *date
	}

	if err := validator.ValidateManualEntry(&entry); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := commands.NewCreateEntryCommand(&entry, config.DB).Execute(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	// Bút toán tay có thể đổi bức tranh nợ của sinh viên
	getBillingService().RecomputePendingFees(entry.StudentID)
	invalidateCache("students:*")

	response.Success(c, entry)
}

// ShiftLedgerAccount chuyển một bút toán sang tài khoản quyết toán còn lại,
// dùng khi thu ngân ghi nhầm cột
func ShiftLedgerAccount(c *gin.Context) {
	id := c.Param("id")

	var request dto.ShiftAccountRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var entry models.LedgerEntry
	if err := config.DB.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.ServerError(c)
		return
	}

	if err := commands.NewShiftAccountCommand(&entry, request.Account, config.DB).Execute(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, entry)
}

// DeleteLedgerEntry xóa bút toán ghi nhầm
func DeleteLedgerEntry(c *gin.Context) {
	id := c.Param("id")

	var entry models.LedgerEntry
	if err := config.DB.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.ServerError(c)
		return
	}

	if err := commands.NewDeleteEntryCommand(entry.ID, config.DB).Execute(); err != nil {
		response.ServerError(c)
		return
	}

	getBillingService().RecomputePendingFees(entry.StudentID)
	invalidateCache("students:*")

	response.Success(c, nil)
}
