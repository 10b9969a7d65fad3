package controllers

import (
	"errors"
	"strconv"
	"time"

	"hms/builders"
	"hms/config"
	"hms/dto"
	"hms/models"
	"hms/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func GetAllFees(c *gin.Context) {
	page := 0
	limit := 10
	if pageStr := c.Query("page"); pageStr != "" {
		if parsedPage, err := strconv.Atoi(pageStr); err == nil && parsedPage >= 0 {
			page = parsedPage
		}
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	tx := config.DB.Model(&models.Fee{}).Preload("Student")

	if studentID := c.Query("studentId"); studentID != "" {
		tx = tx.Where("student_id = ?", studentID)
	}
	if status := c.Query("status"); status != "" {
		tx = tx.Where("status = ?", status)
	}
	if kind := c.Query("kind"); kind != "" {
		tx = tx.Where("kind = ?", kind)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		response.ServerError(c)
		return
	}

	var fees []models.Fee
	if err := tx.Order("created_at DESC").Offset(page * limit).Limit(limit).Find(&fees).Error; err != nil {
		response.ServerError(c)
		return
	}

	feeResponses := make([]dto.FeeResponse, 0, len(fees))
	for i := range fees {
		feeResponses = append(feeResponses, toFeeResponse(&fees[i]))
	}

	response.SuccessWithPagination(c, feeResponses, page, limit, int(total))
}

func GetFeeDetail(c *gin.Context) {
	id := c.Param("id")

	var fee models.Fee
	if err := config.DB.Preload("Student").First(&fee, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.ServerError(c)
		return
	}

	response.Success(c, toFeeResponse(&fee))
}

// GeneratePackageFee tạo gói phí nhiều tháng cho sinh viên
func GeneratePackageFee(c *gin.Context) {
	var request dto.GeneratePackageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dueDate, err := parseDate(request.DueDate)
	if err != nil {
		response.BadRequest(c, "Hạn thu không hợp lệ, định dạng dd/mm/yyyy")
		return
	}

	result, genErr := getBillingService().GeneratePackage(request.StudentID, request.Months, dueDate, request.Collected)
	if genErr != nil {
		handleAllocationError(c, genErr)
		return
	}

	invalidateCache("students:*", "fees:*")
	broadcastEvent("package_generated", gin.H{
		"feeId":     result.Fee.ID,
		"studentId": result.Fee.StudentID,
		"total":     result.Fee.TotalAmount,
	})

	response.Success(c, gin.H{
		"fee":     toFeeResponse(result.Fee),
		"entries": result.LedgerEntries,
	})
}

// PayFee gạch nợ toàn phần một phiếu thu
func PayFee(c *gin.Context) {
	id := c.Param("id")
	feeID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		response.BadRequest(c, "ID phiếu thu không hợp lệ")
		return
	}

	var request dto.PayFeeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	fee, payErr := getBillingService().ApplyPayment(uint(feeID), request.Method, request.TransactionID)
	if payErr != nil {
		handleAllocationError(c, payErr)
		return
	}

	invalidateCache("students:*", "fees:*", "rooms:*")
	broadcastEvent("fee_paid", gin.H{
		"feeId":     fee.ID,
		"studentId": fee.StudentID,
		"amount":    fee.PaidAmount,
	})

	response.Success(c, toFeeResponse(fee))
}

// CheckOutFee trả phòng sớm theo phiếu thu, hoàn tiền theo ngày chưa ở
func CheckOutFee(c *gin.Context) {
	id := c.Param("id")
	feeID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		response.BadRequest(c, "ID phiếu thu không hợp lệ")
		return
	}

	var request dto.CheckOutRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	checkOutDate, err := parseDate(request.Date)
	if err != nil {
		response.BadRequest(c, "Ngày trả phòng không hợp lệ, định dạng dd/mm/yyyy")
		return
	}

	result, outErr := getBillingService().CheckOut(uint(feeID), checkOutDate, request.Reason)
	if outErr != nil {
		handleAllocationError(c, outErr)
		return
	}

	invalidateCache("students:*", "fees:*", "rooms:*")
	broadcastEvent("checked_out", gin.H{
		"feeId":        result.Fee.ID,
		"studentId":    result.Fee.StudentID,
		"refundAmount": result.RefundAmount,
	})

	resp := gin.H{
		"fee":          toFeeResponse(result.Fee),
		"refundAmount": result.RefundAmount,
	}
	if result.RefundFee != nil {
		resp["refundFee"] = toFeeResponse(result.RefundFee)
	}
	if result.Room != nil {
		resp["room"] = toRoomResponse(result.Room)
	}

	response.Success(c, resp)
}

// TransferStudentRoom chuyển phòng giữa gói, chênh lệch giá thành
// phụ thu hoặc hoàn tiền
func TransferStudentRoom(c *gin.Context) {
	var request dto.TransferRoomRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := getBillingService().TransferRoom(request.StudentID, request.NewRoomID, request.BedLabel)
	if err != nil {
		handleAllocationError(c, err)
		return
	}

	invalidateCache("students:*", "fees:*", "rooms:*")
	broadcastEvent("room_transferred", gin.H{
		"studentId":  request.StudentID,
		"oldRoom":    result.OldRoom.RoomNumber,
		"newRoom":    result.NewRoom.RoomNumber,
		"adjustment": result.Adjustment,
	})

	resp := gin.H{
		"oldRoom":        toRoomResponse(result.OldRoom),
		"newRoom":        toRoomResponse(result.NewRoom),
		"student":        toStudentResponse(result.Student),
		"rentAdjustment": result.RentAdjustment,
		"messAdjustment": result.MessAdjustment,
		"adjustment":     result.Adjustment,
	}
	if result.AdjustmentFee != nil {
		resp["adjustmentFee"] = toFeeResponse(result.AdjustmentFee)
	}

	response.Success(c, resp)
}

// CreateManualFee tạo phiếu thu lẻ ngoài gói (phạt, điện nước, khoản khác)
func CreateManualFee(c *gin.Context) {
	var request dto.ManualFeeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var student models.Student
	if err := config.DB.First(&student, request.StudentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.ServerError(c)
		return
	}

	dueDate, err := parseDate(request.DueDate)
	if err != nil {
		response.BadRequest(c, "Hạn thu không hợp lệ, định dạng dd/mm/yyyy")
		return
	}
	due := time.Now()
	if dueDate != nil {
		due = *dueDate
	}

	builder := builders.NewFeeBuilder().
		ForStudent(request.StudentID).
		ManualCharge(request.TotalAmount, request.RentAmount, request.MessAmount, request.Description).
		DueOn(due)

	if student.RoomID != nil {
		var room models.Room
		if err := config.DB.First(&room, *student.RoomID).Error; err == nil {
			bedLabel := ""
			if beds := room.BedsOf(student.ID); len(beds) > 0 {
				bedLabel = beds[0].Label
			}
			builder = builder.RoomSnapshot(room.RoomNumber, bedLabel, room.Type)
		}
	}

	fee := builder.Build()
	if err := config.DB.Create(fee).Error; err != nil {
		response.ServerError(c)
		return
	}

	getBillingService().RecomputePendingFees(request.StudentID)
	invalidateCache("students:*", "fees:*")

	response.Success(c, toFeeResponse(fee))
}

// DeleteFee xóa phiếu thu chưa có tiền vào, phiếu đã thu một phần trở lên
// thì không cho xóa để giữ dấu vết sổ sách
func DeleteFee(c *gin.Context) {
	id := c.Param("id")

	var fee models.Fee
	if err := config.DB.First(&fee, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.ServerError(c)
		return
	}

	if fee.PaidAmount > 0 || fee.IsSettled() {
		response.Conflict(c, "Phiếu thu đã có tiền vào, không thể xóa")
		return
	}

	if err := config.DB.Delete(&fee).Error; err != nil {
		response.ServerError(c)
		return
	}

	getBillingService().RecomputePendingFees(fee.StudentID)
	invalidateCache("students:*", "fees:*")

	response.Success(c, nil)
}

func toFeeResponse(fee *models.Fee) dto.FeeResponse {
	resp := dto.FeeResponse{
		ID:              fee.ID,
		StudentID:       fee.StudentID,
		Kind:            fee.Kind,
		Status:          fee.Status,
		Source:          fee.Source,
		TotalAmount:     fee.TotalAmount,
		PaidAmount:      fee.PaidAmount,
		RemainingAmount: fee.RemainingAmount,
		RentAmount:      fee.RentAmount,
		MessAmount:      fee.MessAmount,
		DepositAmount:   fee.DepositAmount,
		PackageMonths:   fee.PackageMonths,
		DueDate:         fee.DueDate,
		PaidDate:        fee.PaidDate,
		RoomNumber:      fee.RoomNumber,
		BedLabel:        fee.BedLabel,
		RoomType:        fee.RoomType,
		CheckOutDate:    fee.CheckOutDate,
		RefundAmount:    fee.RefundAmount,
		RefundReason:    fee.RefundReason,
		CreatedAt:       fee.CreatedAt,
	}
	if fee.Student != nil {
		resp.StudentName = fee.Student.Name
	}
	return resp
}
