package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shdlab/department-api/config"
	"github.com/shdlab/department-api/controllers"
	"github.com/shdlab/department-api/middleware"
	"github.com/shdlab/department-api/models"
	"github.com/shdlab/department-api/services"
	"github.com/shdlab/department-api/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, tokens *services.TokenService, posts *services.PostService, files *services.FileService) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file, separate from the app log.
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db, tokens)
	postController := controllers.NewPostController(posts)
	fileController := controllers.NewFileController(files)
	categoryController := controllers.NewCategoryController(db)
	bulletinController := controllers.NewBulletinController(db)
	userController := controllers.NewUserController(db)

	// Stored objects stream by id so the disk layout stays private.
	r.GET("/uploads/:id", fileController.Serve)

	api := r.Group("/api")

	credentials := api.Group("")
	credentials.Use(middleware.RateLimitMiddleware())
	credentials.POST("/login", authController.Login)
	credentials.POST("/refresh", authController.Refresh)
	credentials.POST("/logout", authController.Logout)

	api.GET("/me", middleware.AuthRequired(), authController.Me)

	api.GET("/categories", categoryController.ListCategories)
	api.POST("/categories", middleware.AuthRequired(models.PermissionManager), categoryController.CreateCategory)
	api.DELETE("/categories/:name", middleware.AuthRequired(models.PermissionManager), categoryController.DeleteCategory)

	api.POST("/upload", middleware.AuthRequired(models.PermissionEditor, models.PermissionManager), fileController.Upload)
	api.GET("/files", fileController.ListFiles)
	api.DELETE("/files/:id", middleware.AuthRequired(models.PermissionEditor, models.PermissionManager), fileController.DeleteFile)

	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/:id", postController.GetPost)
	api.POST("/posts", middleware.AuthRequired(models.PermissionEditor, models.PermissionManager), postController.CreatePost)
	// Ownership is checked in the handler once the post's owner is known.
	api.PUT("/posts/:id", middleware.AuthRequired(), postController.UpdatePost)
	api.DELETE("/posts/:id", middleware.AuthRequired(), postController.DeletePost)

	// The bulletin board is an open guestbook; no gate on any of it.
	api.GET("/bulletin_messages", bulletinController.ListMessages)
	api.POST("/bulletin_messages", bulletinController.CreateMessage)
	api.DELETE("/bulletin_messages/:id", bulletinController.DeleteMessage)

	usersGroup := api.Group("/users")
	usersGroup.Use(middleware.AuthRequired(models.PermissionManager))
	usersGroup.POST("", userController.CreateUser)
	usersGroup.GET("", userController.ListUsers)
	usersGroup.PUT("/:id/permission", userController.UpdatePermission)
	usersGroup.DELETE("/:id", userController.DeleteUser)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
