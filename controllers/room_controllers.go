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
	hmserrors "hms/errors"
	"hms/models"
	"hms/response"
	"hms/services"
	"hms/validator"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var roomCacheKey = "rooms:all"

func GetAllRooms(c *gin.Context) {
	// Lấy các tham số filter
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

	typeFilter := c.Query("type")
	statusFilter := c.Query("status")
	numberFilter := c.Query("roomNumber")

	var allRooms []models.Room

	// Kết nối Redis
	rdb, redisErr := config.ConnectRedis()
	if redisErr == nil {
		_ = services.GetFromRedis(config.Ctx, rdb, roomCacheKey, &allRooms)
	}

	if len(allRooms) == 0 {
		if err := config.DB.Order("room_number").Find(&allRooms).Error; err != nil {
			response.ServerError(c)
			return
		}

		if redisErr == nil {
			if err := services.SetToRedis(config.Ctx, rdb, roomCacheKey, allRooms, 10*time.Minute); err != nil {
				log.Printf("Lỗi khi lưu dữ liệu vào Redis: %v", err)
			}
		}
	}

	// Lọc theo tham số
	var filtered []models.Room
	for _, room := range allRooms {
		if typeFilter != "" && !strings.EqualFold(room.Type, typeFilter) {
			continue
		}
		if statusFilter != "" && room.Status != statusFilter {
			continue
		}
		if numberFilter != "" && !strings.Contains(strings.ToLower(room.RoomNumber), strings.ToLower(numberFilter)) {
			continue
		}
		filtered = append(filtered, room)
	}

	total := len(filtered)

	// Phân trang
	start := page * limit
	end := start + limit
	if start >= total {
		filtered = []models.Room{}
	} else {
		if end > total {
			end = total
		}
		filtered = filtered[start:end]
	}

	roomResponses := make([]dto.RoomResponse, 0, len(filtered))
	for i := range filtered {
		roomResponses = append(roomResponses, toRoomResponse(&filtered[i]))
	}

	response.SuccessWithPagination(c, roomResponses, page, limit, total)
}

func GetRoomDetail(c *gin.Context) {
	id := c.Param("id")

	var room models.Room
	if err := config.DB.First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.ServerError(c)
		return
	}
	room.EnsureBeds()

	response.Success(c, toRoomResponse(&room))
}

func CreateRoom(c *gin.Context) {
	var request dto.RoomRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	room := models.Room{
		RoomNumber:  request.RoomNumber,
		Capacity:    request.Capacity,
		Type:        request.Type,
		Status:      request.Status,
		RentTable:   request.RentTable,
		BaseRent:    request.BaseRent,
		MessMonthly: request.MessMonthly,
	}
	if request.IsAC != nil {
		room.IsAC = *request.IsAC
	}
	if room.Status == "" {
		room.Status = constants.RoomStatusAvailable
	}

	if err := validator.ValidateRoom(&room); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	room.EnsureBeds()
	room.Occupied = 0

	if err := config.DB.Create(&room).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			response.Conflict(c, "Số phòng đã tồn tại")
			return
		}
		response.ServerError(c)
		return
	}

	invalidateCache("rooms:*")

	response.Success(c, toRoomResponse(&room))
}

func UpdateRoom(c *gin.Context) {
	var request dto.RoomRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var room models.Room
	if err := config.DB.First(&room, request.RoomId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.ServerError(c)
		return
	}

	if request.RoomNumber != "" {
		room.RoomNumber = request.RoomNumber
	}
	if request.Capacity > 0 {
		if request.Capacity < len(room.OccupantIDs) {
			response.BadRequest(c, "Không thể giảm sức chứa xuống dưới số người đang ở")
			return
		}
		room.Capacity = request.Capacity
	}
	if request.Type != "" {
		room.Type = request.Type
	}
	if request.IsAC != nil {
		room.IsAC = *request.IsAC
	}
	if request.RentTable != nil {
		room.RentTable = request.RentTable
	}
	if request.BaseRent > 0 {
		room.BaseRent = request.BaseRent
	}
	if request.MessMonthly > 0 {
		room.MessMonthly = request.MessMonthly
	}

	if err := validator.ValidateRoom(&room); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	room.EnsureBeds()

	if err := config.DB.Save(&room).Error; err != nil {
		response.ServerError(c)
		return
	}

	invalidateCache("rooms:*")

	response.Success(c, toRoomResponse(&room))
}

// ChangeRoomStatus đổi trạng thái phòng bằng tay. Đặt maintenance sẽ giữ
// nguyên cho tới khi người quản lý tự đổi lại hoặc chạy FixRoomStatus.
func ChangeRoomStatus(c *gin.Context) {
	id := c.Param("id")

	var request dto.StatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var room models.Room
	if err := config.DB.First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.ServerError(c)
		return
	}

	room.Status = request.Status
	if err := room.ValidateStatus(); err != nil {
		response.BadRequest(c, "Trạng thái phòng không hợp lệ")
		return
	}

	if err := config.DB.Save(&room).Error; err != nil {
		response.ServerError(c)
		return
	}

	invalidateCache("rooms:*")

	response.Success(c, toRoomResponse(&room))
}

func DeleteRoom(c *gin.Context) {
	id := c.Param("id")

	var room models.Room
	if err := config.DB.First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.ServerError(c)
		return
	}

	if len(room.OccupantIDs) > 0 {
		response.Conflict(c, "Phòng còn người ở, không thể xóa")
		return
	}

	if err := config.DB.Delete(&room).Error; err != nil {
		response.ServerError(c)
		return
	}

	invalidateCache("rooms:*")

	response.Success(c, nil)
}

func AllocateBed(c *gin.Context) {
	var request dto.AllocateBedRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := getAllocationService().AssignBed(request.RoomID, request.StudentID, request.BedLabel)
	if err != nil {
		handleAllocationError(c, err)
		return
	}

	invalidateCache("rooms:*", "students:*")
	broadcastEvent("bed_allocated", gin.H{
		"roomNumber": result.Room.RoomNumber,
		"bedLabel":   result.Bed.Label,
		"studentId":  result.Student.ID,
	})

	response.Success(c, gin.H{
		"room":    toRoomResponse(result.Room),
		"student": toStudentResponse(result.Student),
		"bed":     result.Bed,
	})
}

func ReleaseBed(c *gin.Context) {
	var request dto.ReleaseBedRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	room, student, err := getAllocationService().ReleaseBed(request.RoomID, request.StudentID)
	if err != nil {
		handleAllocationError(c, err)
		return
	}

	invalidateCache("rooms:*", "students:*")
	broadcastEvent("bed_released", gin.H{
		"roomNumber": room.RoomNumber,
		"studentId":  student.ID,
	})

	response.Success(c, gin.H{
		"room":    toRoomResponse(room),
		"student": toStudentResponse(student),
	})
}

// FixRoomStatus dựng lại occupancy của phòng từ mảng giường,
// dùng khi dữ liệu phòng bị lệch do ghi nửa chừng
func FixRoomStatus(c *gin.Context) {
	id := c.Param("id")
	roomID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		response.BadRequest(c, "ID phòng không hợp lệ")
		return
	}

	room, fixErr := getAllocationService().FixRoomStatus(uint(roomID))
	if fixErr != nil {
		handleAllocationError(c, fixErr)
		return
	}

	invalidateCache("rooms:*")

	response.Success(c, toRoomResponse(room))
}

// handleAllocationError map AppError của tầng service sang HTTP response
func handleAllocationError(c *gin.Context, err error) {
	appErr := hmserrors.GetAppError(err)
	if appErr == nil {
		response.ServerError(c)
		return
	}

	switch appErr.Code {
	case hmserrors.ErrCodeRoomNotFound, hmserrors.ErrCodeStudentNotFound, hmserrors.ErrCodeFeeNotFound:
		response.NotFound(c)
	case hmserrors.ErrCodeRoomFull, hmserrors.ErrCodeBedTaken, hmserrors.ErrCodeAlreadyAllocated,
		hmserrors.ErrCodeSameRoom, hmserrors.ErrCodeAlreadyCheckedOut, hmserrors.ErrCodeAlreadySettled:
		response.Conflict(c, appErr.Message)
	case hmserrors.ErrCodeLockHeld:
		response.RetryLater(c)
	case hmserrors.ErrCodeDBError:
		response.ServerError(c)
	default:
		response.BadRequest(c, appErr.Message)
	}
}

func toRoomResponse(room *models.Room) dto.RoomResponse {
	return dto.RoomResponse{
		RoomId:      room.ID,
		RoomNumber:  room.RoomNumber,
		Capacity:    room.Capacity,
		IsAC:        room.IsAC,
		Type:        room.Type,
		Status:      room.Status,
		Occupied:    room.Occupied,
		Beds:        room.Beds,
		OccupantIDs: room.OccupantIDs,
		RentTable:   room.RentTable,
		BaseRent:    room.BaseRent,
		MessMonthly: room.MessMonthly,
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
	}
}
