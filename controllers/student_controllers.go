package controllers

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"hms/config"
	"hms/constants"
	"hms/dto"
	"hms/models"
	"hms/response"
	"hms/services"
	"hms/validator"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var studentCacheKey = "students:all"

func GetAllStudents(c *gin.Context) {
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

	statusFilter := c.Query("status")
	pendingFilter := c.Query("hasPendingFee")
	searchQuery := c.Query("search")

	var allStudents []models.Student

	rdb, redisErr := config.ConnectRedis()
	if redisErr == nil {
		_ = services.GetFromRedis(config.Ctx, rdb, studentCacheKey, &allStudents)
	}

	if len(allStudents) == 0 {
		if err := config.DB.Preload("Room").Order("reg_no").Find(&allStudents).Error; err != nil {
			response.ServerError(c)
			return
		}

		if redisErr == nil {
			if err := services.SetToRedis(config.Ctx, rdb, studentCacheKey, allStudents, 10*time.Minute); err != nil {
				log.Printf("Lỗi khi lưu dữ liệu vào Redis: %v", err)
			}
		}
	}

	// Tìm kiếm mờ trước, filter sau
	if searchQuery != "" {
		allStudents = services.SearchStudents(allStudents, searchQuery)
	}

	var filtered []models.Student
	for _, student := range allStudents {
		if statusFilter != "" && student.Status != statusFilter {
			continue
		}
		if pendingFilter == "true" && !student.HasPendingFee {
			continue
		}
		if pendingFilter == "false" && student.HasPendingFee {
			continue
		}
		filtered = append(filtered, student)
	}

	total := len(filtered)

	start := page * limit
	end := start + limit
	if start >= total {
		filtered = []models.Student{}
	} else {
		if end > total {
			end = total
		}
		filtered = filtered[start:end]
	}

	studentResponses := make([]dto.StudentResponse, 0, len(filtered))
	for i := range filtered {
		studentResponses = append(studentResponses, toStudentResponse(&filtered[i]))
	}

	response.SuccessWithPagination(c, studentResponses, page, limit, total)
}

func GetStudentDetail(c *gin.Context) {
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

	response.Success(c, toStudentResponse(&student))
}

func CreateStudent(c *gin.Context) {
	var request dto.StudentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	enrollment, err := parseDate(request.EnrollmentDate)
	if err != nil {
		response.BadRequest(c, "Ngày nhập học không hợp lệ, định dạng dd/mm/yyyy")
		return
	}

	student := models.Student{
		RegNo:         request.RegNo,
		Name:          request.Name,
		Email:         strings.ToLower(request.Email),
		PhoneNumber:   request.PhoneNumber,
		Avatar:        request.Avatar,
		GuardianName:  request.GuardianName,
		GuardianPhone: request.GuardianPhone,
		Status:        constants.StudentStatusRegistered,
	}
	if enrollment != nil {
		student.EnrollmentDate = *enrollment
	} else {
		student.EnrollmentDate = time.Now()
	}

	if err := validator.ValidateStudent(&student); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := config.DB.Create(&student).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			response.Conflict(c, "Mã sinh viên hoặc email đã tồn tại")
			return
		}
		response.ServerError(c)
		return
	}

	invalidateCache("students:*")

	response.Success(c, toStudentResponse(&student))
}

func UpdateStudent(c *gin.Context) {
	var request dto.StudentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var student models.Student
	if err := config.DB.First(&student, request.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.ServerError(c)
		return
	}

	if request.Name != "" {
		student.Name = request.Name
	}
	if request.Email != "" {
		student.Email = strings.ToLower(request.Email)
	}
	if request.PhoneNumber != "" {
		student.PhoneNumber = request.PhoneNumber
	}
	if request.Avatar != "" {
		student.Avatar = request.Avatar
	}
	if request.GuardianName != "" {
		student.GuardianName = request.GuardianName
	}
	if request.GuardianPhone != "" {
		student.GuardianPhone = request.GuardianPhone
	}
	if request.EnrollmentDate != "" {
		enrollment, err := parseDate(request.EnrollmentDate)
		if err != nil {
			response.BadRequest(c, "Ngày nhập học không hợp lệ, định dạng dd/mm/yyyy")
			return
		}
		student.EnrollmentDate = *enrollment
	}

	if err := validator.ValidateStudent(&student); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := config.DB.Save(&student).Error; err != nil {
		response.ServerError(c)
		return
	}

	invalidateCache("students:*")

	response.Success(c, toStudentResponse(&student))
}

// ChangeStudentStatus đổi trạng thái sinh viên bằng tay. Chuyển inactive
// khi còn phòng sẽ trả giường trước.
func ChangeStudentStatus(c *gin.Context) {
	id := c.Param("id")

	var request dto.StatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var student models.Student
	if err := config.DB.First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.ServerError(c)
		return
	}

	switch request.Status {
	case constants.StudentStatusRegistered, constants.StudentStatusActive, constants.StudentStatusInactive:
	default:
		response.BadRequest(c, "Trạng thái sinh viên không hợp lệ")
		return
	}

	if request.Status == constants.StudentStatusInactive && student.RoomID != nil {
		if _, _, err := getAllocationService().ReleaseBed(*student.RoomID, student.ID); err != nil {
			handleAllocationError(c, err)
			return
		}
		// Đọc lại sau khi trả giường để không ghi đè RoomID cũ
		if err := config.DB.First(&student, student.ID).Error; err != nil {
			response.ServerError(c)
			return
		}
	}

	student.Status = request.Status
	if err := config.DB.Save(&student).Error; err != nil {
		response.ServerError(c)
		return
	}

	invalidateCache("students:*", "rooms:*")

	response.Success(c, toStudentResponse(&student))
}

func DeleteStudent(c *gin.Context) {
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

	if student.RoomID != nil {
		response.Conflict(c, "Sinh viên còn phòng, trả giường trước khi xóa")
		return
	}

	if student.HasPendingFee {
		response.Conflict(c, "Sinh viên còn nợ phí, không thể xóa")
		return
	}

	if err := config.DB.Delete(&student).Error; err != nil {
		response.ServerError(c)
		return
	}

	invalidateCache("students:*")

	response.Success(c, nil)
}

func toStudentResponse(student *models.Student) dto.StudentResponse {
	resp := dto.StudentResponse{
		ID:               student.ID,
		RegNo:            student.RegNo,
		Name:             student.Name,
		Email:            student.Email,
		PhoneNumber:      student.PhoneNumber,
		Avatar:           student.Avatar,
		RoomID:           student.RoomID,
		EnrollmentDate:   student.EnrollmentDate,
		AdmissionThrough: student.AdmissionThrough,
		PackageMonths:    student.PackageMonths,
		Status:           student.Status,
		HasPendingFee:    student.HasPendingFee,
		PendingAmount:    student.PendingAmount,
		CreatedAt:        student.CreatedAt,
		UpdatedAt:        student.UpdatedAt,
	}

	if student.Room != nil {
		resp.RoomNumber = student.Room.RoomNumber
		if beds := student.Room.BedsOf(student.ID); len(beds) > 0 {
			resp.BedLabel = beds[0].Label
		}
	}

	return resp
}
