package dto

// LoginRequest đăng nhập bằng email + mật khẩu
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest đăng ký tài khoản quản lý
type RegisterRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	PhoneNumber string `json:"phoneNumber"`
	Role        int    `json:"role"`
}

// GoogleAuthRequest đăng nhập bằng Google ID token
type GoogleAuthRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

// LoginResponse token + thông tin user
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse thông tin user trả về cho FE
type UserResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Avatar      string `json:"avatar"`
	Role        int    `json:"role"`
	Status      int    `json:"status"`
}
