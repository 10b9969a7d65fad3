package routes

import (
	"context"
	"net/http"

	"hms/config"
	"hms/constants"
	"hms/controllers"
	middlewares "hms/middleware"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"

	"github.com/redis/go-redis/v9"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"gorm.io/gorm"
)

func SetupRoutes(router *gin.Engine, db *gorm.DB, redisCli *redis.Client, cld *cloudinary.Cloudinary, m *melody.Melody) {

	controllers.SetWebSocket(m)

	admin := middlewares.AuthMiddleware(constants.RoleSuperAdmin, constants.RoleAdmin)
	staff := middlewares.AuthMiddleware(constants.RoleSuperAdmin, constants.RoleAdmin, constants.RoleReceptionist)

	v1 := router.Group("/api/v1")
	v1.Use(middlewares.SessionMiddleware())

	v1.POST("/auth/login", controllers.Login)
	v1.DELETE("/auth/logout", controllers.Logout)
	v1.POST("/auth/register", admin, controllers.RegisterUser)
	v1.POST("/auth/google", controllers.AuthGoogle)
	v1.GET("/profile", staff, controllers.GetProfile)
	v1.PUT("/changePassword", staff, controllers.ChangePassword)

	v1.GET("/room", staff, controllers.GetAllRooms)
	v1.POST("/room", admin, controllers.CreateRoom)
	v1.GET("/room/:id", staff, controllers.GetRoomDetail)
	v1.PUT("/roomUpdate", admin, controllers.UpdateRoom)
	v1.PUT("/roomStatus/:id", admin, controllers.ChangeRoomStatus)
	v1.DELETE("/room/:id", admin, controllers.DeleteRoom)
	v1.POST("/roomFix/:id", admin, controllers.FixRoomStatus)

	v1.POST("/allocate", staff, controllers.AllocateBed)
	v1.POST("/release", staff, controllers.ReleaseBed)
	v1.POST("/transfer", staff, controllers.TransferStudentRoom)

	v1.GET("/student", staff, controllers.GetAllStudents)
	v1.POST("/student", staff, controllers.CreateStudent)
	v1.GET("/student/:id", staff, controllers.GetStudentDetail)
	v1.PUT("/studentUpdate", staff, controllers.UpdateStudent)
	v1.PUT("/studentStatus/:id", staff, controllers.ChangeStudentStatus)
	v1.DELETE("/student/:id", admin, controllers.DeleteStudent)
	v1.GET("/student/:id/statement", staff, controllers.GetStudentStatement)
	v1.GET("/student/:id/ledger", staff, controllers.GetStudentLedger)

	v1.GET("/fee", staff, controllers.GetAllFees)
	v1.GET("/fee/:id", staff, controllers.GetFeeDetail)
	v1.POST("/fee/package", staff, controllers.GeneratePackageFee)
	v1.POST("/fee/manual", staff, controllers.CreateManualFee)
	v1.PUT("/fee/:id/pay", staff, controllers.PayFee)
	v1.PUT("/fee/:id/checkout", staff, controllers.CheckOutFee)
	v1.DELETE("/fee/:id", admin, controllers.DeleteFee)

	v1.POST("/ledger", staff, controllers.CreateLedgerEntry)
	v1.PUT("/ledger/:id/shift", staff, controllers.ShiftLedgerAccount)
	v1.DELETE("/ledger/:id", admin, controllers.DeleteLedgerEntry)

	v1.GET("/dashboard", staff, controllers.GetDashboard)

	v1.POST("/img/multi-upload", staff, func(c *gin.Context) {
		form, er := c.MultipartForm()
		if er != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Không có file"})
			return
		}
		files := form.File["files"]
		if len(files) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Không có file"})
			return
		}

		var urls []string
		for _, file := range files {
			src, err := file.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Lỗi khi mở file"})
				return
			}
			defer src.Close()

			ctx := context.Background()
			resp, err := config.Cloudinary.Upload.Upload(ctx, src, uploader.UploadParams{Folder: "uploads"})
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload thất bại"})
				return
			}
			urls = append(urls, resp.SecureURL)
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Upload thành công",
			"urls":    urls,
		})
	})

	v1.POST("/img/upload", staff, func(c *gin.Context) {
		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Không có file"})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Lỗi khi mở file"})
			return
		}
		defer src.Close()

		ctx := context.Background()
		resp, err := config.Cloudinary.Upload.Upload(ctx, src, uploader.UploadParams{Folder: "avatars"})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload thất bại"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Upload avatar thành công",
			"url":     resp.SecureURL,
		})
	})
}
