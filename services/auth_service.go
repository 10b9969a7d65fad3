package services

import (
	"errors"
	"fmt"
	"net/smtp"
	"os"
	"time"

	"hms/config"
	"hms/constants"
	"hms/models"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserInfo struct {
	UserId uint `json:"userid"`
	Role   int  `json:"role"`
}

type Claims struct {
	UserInfo UserInfo `json:"userinfo"`
	jwt.StandardClaims
}

var secretKey = []byte(config.GetEnv("SECRET_KEY_ACCESS_TOKEN"))
var refreshSecretKey = []byte(config.GetEnv("SECRET_KEY_REFRESH_TOKEN"))

func GenerateToken(userInfo UserInfo, expiryMinutes int, isAccessToken bool) (string, error) {
	claims := &Claims{
		UserInfo: userInfo,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Minute * time.Duration(expiryMinutes)).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	var secretKeyToUse []byte
	if isAccessToken {
		secretKeyToUse = secretKey
	} else {
		secretKeyToUse = refreshSecretKey
	}

	return token.SignedString(secretKeyToUse)
}

func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

func GetUserByEmail(email string) (models.User, error) {
	var user models.User
	result := config.DB.Where("email = ?", email).First(&user)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return user, fmt.Errorf("không tìm thấy người dùng với email %s", email)
	}

	if result.Error != nil {
		return user, result.Error
	}

	return user, nil
}

func GetUserByPhoneNumber(phoneNumber string) (models.User, error) {
	var user models.User
	result := config.DB.Where("phone_number = ?", phoneNumber).First(&user)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return user, fmt.Errorf("không tìm thấy người dùng với số điện thoại %s", phoneNumber)
	}

	if result.Error != nil {
		return user, result.Error
	}

	return user, nil
}

func CreateUser(input models.User) (models.User, error) {
	if input.Email == "" || input.Password == "" {
		return models.User{}, errors.New("không được để trống email, password")
	}

	existingEmail, err := GetUserByEmail(input.Email)
	if err == nil {
		return models.User{}, fmt.Errorf("email %s đã được sử dụng", existingEmail.Email)
	}

	if input.PhoneNumber != "" {
		existingPhone, err := GetUserByPhoneNumber(input.PhoneNumber)
		if err == nil {
			return models.User{}, fmt.Errorf("số điện thoại %s đã được sử dụng", existingPhone.PhoneNumber)
		}
	}

	hashedPassword, err := HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Name:        input.Name,
		Email:       input.Email,
		Password:    hashedPassword,
		PhoneNumber: input.PhoneNumber,
		Role:        input.Role,
		Status:      constants.UserStatusActive,
		IsVerified:  false,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	result := config.DB.Create(&user)
	if result.Error != nil {
		return user, result.Error
	}

	// Gửi email thông báo tài khoản mới, lỗi gửi mail không chặn việc tạo
	if err := sendWelcomeEmail(user.Email, input.Password); err != nil {
		fmt.Printf("Không thể gửi email chào mừng tới %s: %v\n", user.Email, err)
	}

	return user, nil
}

func CreateGoogleUser(name, email, avatar string) (models.User, error) {
	existingEmail, err := GetUserByEmail(email)
	if err == nil {
		return models.User{}, fmt.Errorf("email %s đã được sử dụng", existingEmail.Email)
	}

	user := models.User{
		Name:       name,
		Email:      email,
		Password:   "",
		Avatar:     avatar,
		IsVerified: true,
		Role:       constants.RoleReceptionist,
		Status:     constants.UserStatusActive,
	}

	result := config.DB.Create(&user)
	if result.Error != nil {
		return user, result.Error
	}

	return user, nil
}

func NewPass(user models.User, newPassword string) error {
	hashedPassword, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("không thể băm mật khẩu: %v", err)
	}

	user.Password = hashedPassword

	if err := config.DB.Save(&user).Error; err != nil {
		return fmt.Errorf("không thể cập nhật mật khẩu mới: %v", err)
	}

	return nil
}

func sendWelcomeEmail(email string, pass string) error {
	from := os.Getenv("SMTP_FROM")
	password := os.Getenv("SMTP_PASSWORD")
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	if from == "" || host == "" {
		return errors.New("chưa cấu hình SMTP")
	}

	to := []string{email}
	subject := "Subject: Bạn đã tạo tài khoản mới\n"
	body := fmt.Sprintf(`<!DOCTYPE html>
	<html>
	<head>
		<meta charset="UTF-8">
		<title>Tạo tài khoản thành công</title>
	</head>
	<body>
		<p>Xin chào,</p>
		<p>Tài khoản quản lý ký túc xá của bạn đã được tạo.</p>
		<ul>
			<li>Email: <strong>%s</strong></li>
			<li>Mật khẩu: <strong>%s</strong></li>
		</ul>
		<p>Vui lòng đổi mật khẩu sau lần đăng nhập đầu tiên.</p>
		<p>Xin cảm ơn,<br>Ban quản lý ký túc xá</p>
	</body>
	</html>`, email, pass)

	msg := []byte("MIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n" + subject + "\n" + body)

	auth := smtp.PlainAuth("", from, password, host)

	return smtp.SendMail(host+":"+port, auth, from, to, msg)
}

// SendFeeReminderEmail nhắc đóng phí qua email, dùng cho cron đêm
func SendFeeReminderEmail(email, studentName string, amount float64, dueDate time.Time) error {
	from := os.Getenv("SMTP_FROM")
	password := os.Getenv("SMTP_PASSWORD")
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	if from == "" || host == "" {
		return errors.New("chưa cấu hình SMTP")
	}

	to := []string{email}
	subject := "Subject: Nhắc đóng phí ký túc xá\r\n"
	body := fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<meta charset="UTF-8">
		<title>Nhắc đóng phí</title>
	</head>
	<body>
		<p>Xin chào %s,</p>
		<p>Bạn còn khoản phí ký túc xá chưa thanh toán:</p>
		<ul>
			<li>Số tiền: <strong>%.2f</strong></li>
			<li>Hạn thu: <strong>%s</strong></li>
		</ul>
		<p>Vui lòng liên hệ văn phòng ký túc xá để hoàn tất thanh toán.</p>
		<p>Trân trọng,<br>Ban quản lý ký túc xá</p>
	</body>
	</html>
	`, studentName, amount, dueDate.Format("02/01/2006"))

	msg := []byte("MIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n" + subject + "\r\n" + body)

	auth := smtp.PlainAuth("", from, password, host)

	return smtp.SendMail(host+":"+port, auth, from, to, msg)
}
