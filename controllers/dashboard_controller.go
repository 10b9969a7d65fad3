package controllers

import (
	"time"

	"hms/config"
	"hms/constants"
	"hms/models"
	"hms/response"

	"github.com/gin-gonic/gin"
)

// GetDashboard tổng quan vận hành cho màn hình chính
func GetDashboard(c *gin.Context) {
	var totalRooms, occupiedRooms, maintenanceRooms int64
	config.DB.Model(&models.Room{}).Count(&totalRooms)
	config.DB.Model(&models.Room{}).Where("status = ?", constants.RoomStatusOccupied).Count(&occupiedRooms)
	config.DB.Model(&models.Room{}).Where("status = ?", constants.RoomStatusMaintenance).Count(&maintenanceRooms)

	var totalBeds, occupiedBeds int64
	config.DB.Model(&models.Room{}).Select("COALESCE(SUM(capacity), 0)").Scan(&totalBeds)
	config.DB.Model(&models.Room{}).Select("COALESCE(SUM(occupied), 0)").Scan(&occupiedBeds)

	var activeStudents, registeredStudents int64
	config.DB.Model(&models.Student{}).Where("status = ?", constants.StudentStatusActive).Count(&activeStudents)
	config.DB.Model(&models.Student{}).Where("status = ?", constants.StudentStatusRegistered).Count(&registeredStudents)

	var studentsWithDebt int64
	var totalPending float64
	config.DB.Model(&models.Student{}).Where("has_pending_fee = ?", true).Count(&studentsWithDebt)
	config.DB.Model(&models.Student{}).Select("COALESCE(SUM(pending_amount), 0)").Scan(&totalPending)

	var overdueFees int64
	config.DB.Model(&models.Fee{}).Where("status = ?", constants.FeeStatusOverdue).Count(&overdueFees)

	// Tiền thu hôm nay theo sổ quỹ
	startOfToday := time.Now().Truncate(24 * time.Hour)
	var collectedToday float64
	config.DB.Model(&models.LedgerEntry{}).
		Where("kind = ? AND date >= ?", constants.LedgerKindPayment, startOfToday).
		Select("COALESCE(SUM(amount), 0)").Scan(&collectedToday)

	response.Success(c, gin.H{
		"rooms": gin.H{
			"total":       totalRooms,
			"occupied":    occupiedRooms,
			"maintenance": maintenanceRooms,
		},
		"beds": gin.H{
			"total":    totalBeds,
			"occupied": occupiedBeds,
		},
		"students": gin.H{
			"active":     activeStudents,
			"registered": registeredStudents,
			"withDebt":   studentsWithDebt,
		},
		"fees": gin.H{
			"pendingTotal":   totalPending,
			"overdueCount":   overdueFees,
			"collectedToday": collectedToday,
		},
	})
}
