package controllers

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"hms/config"
	"hms/services"

	"github.com/olahol/melody"
)

var (
	initOnce      sync.Once
	allocationSvc *services.AllocationService
	billingSvc    *services.BillingService
	projectionSvc *services.LedgerProjection
	ws            *melody.Melody
)

func initServices() {
	initOnce.Do(func() {
		allocationSvc = services.NewAllocationService(services.AllocationServiceOptions{DB: config.DB})
		billingSvc = services.NewBillingService(services.BillingServiceOptions{
			DB:         config.DB,
			Allocation: allocationSvc,
		})
		projectionSvc = services.NewLedgerProjection()
	})
}

func getAllocationService() *services.AllocationService {
	initServices()
	return allocationSvc
}

func getBillingService() *services.BillingService {
	initServices()
	return billingSvc
}

func getProjection() *services.LedgerProjection {
	initServices()
	return projectionSvc
}

// SetWebSocket gắn melody instance để broadcast sự kiện cho FE
func SetWebSocket(m *melody.Melody) {
	ws = m
}

// broadcastEvent đẩy sự kiện nghiệp vụ qua websocket, best-effort
func broadcastEvent(event string, payload interface{}) {
	if ws == nil {
		return
	}
	msg, err := json.Marshal(map[string]interface{}{
		"event":   event,
		"payload": payload,
		"at":      time.Now(),
	})
	if err != nil {
		log.Printf("Không thể marshal sự kiện %s: %v", event, err)
		return
	}
	if err := ws.Broadcast(msg); err != nil {
		log.Printf("Không thể broadcast sự kiện %s: %v", event, err)
	}
}

const dateLayout = "02/01/2006"

// parseDate đọc ngày dd/mm/yyyy từ FE, chuỗi rỗng trả về nil
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// invalidateCache xóa các nhóm cache bị mutation làm bẩn
func invalidateCache(patterns ...string) {
	rdb, err := config.ConnectRedis()
	if err != nil {
		return
	}
	for _, pattern := range patterns {
		_ = services.DeleteByPattern(config.Ctx, rdb, pattern)
	}
}
