package models

import "time"

// User tài khoản đăng nhập của ban quản lý ký túc xá
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"default:New User" json:"name"`
	Email       string    `gorm:"unique" json:"email"`
	Password    string    `json:"password"`
	PhoneNumber string    `gorm:"type:varchar(11)" json:"phoneNumber"`
	Avatar      string    `json:"avatar"`
	Role        int       `gorm:"default:0" json:"role"`
	Status      int       `gorm:"default:1" json:"status"`
	IsVerified  bool      `gorm:"default:false" json:"is_verified"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}
