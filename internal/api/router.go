package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Ayewealth/harbourhub/internal/api/handlers"
	"github.com/Ayewealth/harbourhub/internal/api/middleware"
	"github.com/Ayewealth/harbourhub/internal/cache"
	"github.com/Ayewealth/harbourhub/internal/config"
	"github.com/Ayewealth/harbourhub/internal/events"
	"github.com/Ayewealth/harbourhub/internal/services"
	"github.com/Ayewealth/harbourhub/internal/storage"
)

// SetupRouter configures and returns the main Gin engine. taskClient may be
// nil (no background worker); events then go to a no-op emitter and image
// normalization is skipped.
func SetupRouter(cfg *config.Config, db *mongo.Database, treeCache *cache.TreeCache, taskClient *asynq.Client) *gin.Engine {
	var emitter events.Emitter = events.NopEmitter{}
	if taskClient != nil {
		emitter = events.NewAsynqEmitter(taskClient)
	}

	categoryService := services.NewCategoryService(db, cfg, treeCache)
	listingService := services.NewListingService(db, cfg, categoryService, emitter)
	inquiryService := services.NewInquiryService(db, cfg, listingService, emitter)
	userService := services.NewUserService(db, cfg, emitter)

	// S3 is optional in development; upload endpoints answer 503 without it.
	var s3StorageService storage.IS3Storage
	if cfg.AwsAccessKeyID != "" {
		var err error
		s3StorageService, err = storage.NewS3Storage(cfg)
		if err != nil {
			log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
		}
	} else {
		log.Println("WARN: AWS credentials not configured, file uploads disabled")
	}

	r := gin.Default()

	// Apply global middleware first (order matters)
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	// Initialize handlers
	categoryHandler := handlers.NewRestCategoryHandler(categoryService)
	listingHandler := handlers.NewRestListingHandler(listingService, s3StorageService, taskClient, emitter)
	inquiryHandler := handlers.NewRestInquiryHandler(inquiryService)
	userHandler := handlers.NewRestUserHandler(userService, s3StorageService, cfg)

	v1 := r.Group("/v1")
	{
		// Public routes (rate limiting already applied globally)
		v1.POST("/auth/register", userHandler.Register)
		v1.POST("/auth/login", userHandler.Login)

		v1.GET("/category", categoryHandler.ListCategories)
		v1.GET("/category/tree", categoryHandler.GetTree)
		v1.GET("/category/:id", categoryHandler.GetCategoryByID)
		v1.GET("/category/:id/path", categoryHandler.GetCategoryPath)
		v1.GET("/category/:id/subtree", categoryHandler.GetCategorySubtree)

		v1.GET("/listing/search", listingHandler.SearchListings)
		v1.GET("/listing/:id", listingHandler.GetListingByID)

		v1.GET("/user/:id", userHandler.GetUserByID)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Authenticated routes
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.GET("/profile", userHandler.GetProfile)
			authRequired.PATCH("/profile", userHandler.UpdateProfile)

			authRequired.POST("/listing", listingHandler.CreateListing)
			authRequired.GET("/listing/mine", listingHandler.GetMyListings)
			authRequired.PATCH("/listing/:id", listingHandler.UpdateListing)
			authRequired.DELETE("/listing/:id", listingHandler.DeleteListing)
			authRequired.POST("/listing/:id/transition", listingHandler.TransitionListing)
			authRequired.POST("/listing/:id/attachment/upload-url", listingHandler.GetAttachmentUploadURL)
			authRequired.POST("/listing/:id/attachment", listingHandler.AddAttachment)

			authRequired.POST("/inquiry", inquiryHandler.SubmitInquiry)
			authRequired.GET("/inquiry/mine", inquiryHandler.GetMyInquiries)
			authRequired.GET("/inquiry/:id", inquiryHandler.GetInquiryByID)
			authRequired.POST("/inquiry/:id/reply", inquiryHandler.Reply)
			authRequired.POST("/inquiry/:id/close", inquiryHandler.CloseInquiry)
			authRequired.POST("/inquiry/:id/read", inquiryHandler.MarkRead)

			authRequired.POST("/verification", userHandler.SubmitVerification)
			authRequired.POST("/verification/upload-url", userHandler.GetVerificationUploadURL)
		}

		// Admin routes
		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			adminRequired.POST("/category", categoryHandler.CreateCategory)
			adminRequired.PATCH("/category/:id", categoryHandler.UpdateCategory)
			adminRequired.POST("/category/:id/move", categoryHandler.MoveCategory)
			adminRequired.POST("/category/:id/deactivate", categoryHandler.DeactivateCategory)
			adminRequired.POST("/category/:id/reactivate", categoryHandler.ReactivateCategory)

			adminRequired.POST("/user/:id/role", userHandler.ChangeRole)
			adminRequired.POST("/user/:id/suspend", userHandler.SetSuspended)

			adminRequired.GET("/verification/pending", userHandler.ListPendingVerifications)
			adminRequired.POST("/verification/:id/review", userHandler.ReviewVerification)
		}
	}

	return r
}
