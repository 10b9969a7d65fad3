package dto

// IDRequest request chỉ mang một id
type IDRequest struct {
	ID uint `json:"id" binding:"required"`
}

// StatusRequest đổi trạng thái, id lấy từ URL param
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}
