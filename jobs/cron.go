package jobs

import (
	"encoding/json"
	"log"
	"time"

	"hms/config"
	"hms/constants"
	"hms/models"
	"hms/services"

	"github.com/olahol/melody"
	"github.com/robfig/cron/v3"
)

// InitCronJobs khởi tạo các cron jobs
func InitCronJobs(c *cron.Cron, m *melody.Melody) error {
	billing := services.NewBillingService(services.BillingServiceOptions{DB: config.DB})

	// Quét phiếu quá hạn lúc 0h mỗi ngày
	_, err := c.AddFunc("0 0 * * *", func() {
		now := time.Now()
		log.Printf("Đang quét phiếu thu quá hạn lúc: %v", now)

		count, err := billing.MarkOverdueFees()
		if err != nil {
			log.Printf("Lỗi khi quét phiếu quá hạn: %v", err)
			return
		}
		log.Printf("Đã chuyển %d phiếu sang quá hạn", count)

		if count > 0 {
			broadcastOverdue(m, count)
		}
	})
	if err != nil {
		return err
	}

	// Nhắc nợ qua email lúc 8h sáng
	_, err = c.AddFunc("0 8 * * *", func() {
		sendFeeReminders()
	})
	if err != nil {
		return err
	}

	// Làm mới cache danh sách mỗi giờ, phòng cache lệch do mutation
	// nào đó quên invalidate
	_, err = c.AddFunc("0 * * * *", func() {
		rdb, err := config.ConnectRedis()
		if err != nil {
			return
		}
		_ = services.DeleteByPattern(config.Ctx, rdb, "rooms:*")
		_ = services.DeleteByPattern(config.Ctx, rdb, "students:*")
	})
	if err != nil {
		return err
	}

	c.Start()
	log.Println("Cron jobs initialized successfully")
	return nil
}

func broadcastOverdue(m *melody.Melody, count int) {
	if m == nil {
		return
	}
	msg, err := json.Marshal(map[string]interface{}{
		"event":   "fees_overdue",
		"payload": map[string]int{"count": count},
		"at":      time.Now(),
	})
	if err != nil {
		return
	}
	if err := m.Broadcast(msg); err != nil {
		log.Printf("Lỗi broadcast thông báo quá hạn: %v", err)
	}
}

// sendFeeReminders gửi email nhắc nợ cho sinh viên còn phiếu mở
func sendFeeReminders() {
	var students []models.Student
	if err := config.DB.Where("has_pending_fee = ? AND status != ?", true, constants.StudentStatusInactive).
		Find(&students).Error; err != nil {
		log.Printf("Lỗi khi lấy danh sách sinh viên còn nợ: %v", err)
		return
	}

	for _, student := range students {
		if student.Email == "" || student.PendingEarliestDue == nil {
			continue
		}
		if err := services.SendFeeReminderEmail(student.Email, student.Name, student.PendingAmount, *student.PendingEarliestDue); err != nil {
			log.Printf("Không thể gửi email nhắc nợ tới %s: %v", student.Email, err)
		}
	}
}
