package services

import (
	"sync"
	"time"
)

// PackageLockTable khóa advisory trong process cho thao tác tạo gói phí,
// chỉ để hấp thụ client bấm trùng trong vài giây. Không phải khóa phân tán,
// chạy nhiều instance thì không có bảo đảm gì (xem DESIGN.md).
type PackageLockTable struct {
	mu    sync.Mutex
	held  map[uint]time.Time
	ttl   time.Duration
	delay time.Duration // giữ thêm sau khi xong để chặn double-submit
}

const (
	packageLockTTL   = 10 * time.Second
	packageLockDelay = 2 * time.Second
)

func NewPackageLockTable() *PackageLockTable {
	return &PackageLockTable{
		held:  make(map[uint]time.Time),
		ttl:   packageLockTTL,
		delay: packageLockDelay,
	}
}

// Acquire lấy khóa cho một sinh viên. Trả về false nếu có request khác
// đang giữ trong cửa sổ TTL, caller trả lời "thử lại sau" chứ không phải lỗi.
func (t *PackageLockTable) Acquire(studentID uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if at, ok := t.held[studentID]; ok && time.Since(at) < t.ttl {
		return false
	}
	t.held[studentID] = time.Now()
	return true
}

// ReleaseAfter nhả khóa sau khoảng delay cố định, không nhả ngay
func (t *PackageLockTable) ReleaseAfter(studentID uint) {
	time.AfterFunc(t.delay, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.held, studentID)
	})
}

// release nhả ngay, chỉ dùng trong test
func (t *PackageLockTable) release(studentID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.held, studentID)
}
