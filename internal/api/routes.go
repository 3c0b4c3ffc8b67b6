package api

import (
	"net/http"

	"carelink/health-portal/internal/domain"
	"carelink/health-portal/internal/service"

	"github.com/gin-gonic/gin"
)

// SetupRoutes wires the HTTP surface onto the router. The QR redemption
// endpoint is the only unauthenticated submission read; everything else sits
// behind the JWT middleware, with review and listing restricted by role.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	submissionService service.SubmissionService,
	accessService service.AccessService,
	reminderService service.ReminderService,
) {
	authHandler := NewAuthHandler(authService)
	submissionHandler := NewSubmissionHandler(submissionService, authService)
	accessHandler := NewAccessHandler(accessService, authService)
	reminderHandler := NewReminderHandler(reminderService, authService)

	authMiddleware := AuthMiddleware(jwtSecret)
	reviewerOnly := RoleMiddleware(domain.RoleAdmin, domain.RoleHealthCenter)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		// QR redemption carries its own encrypted token; no JWT required.
		apiV1.GET("/submission-access/:id", accessHandler.RedeemAccess)
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, ErrKindAuth, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": role})
		})

		// --- Submission Routes ---
		submissionGroup := protected.Group("/submissions")
		{
			// POST /api/v1/submissions - workers upload a document batch
			submissionGroup.POST("", RoleMiddleware(domain.RoleWorker), submissionHandler.CreateSubmission)
			// GET /api/v1/submissions - reviewing staff list everything
			submissionGroup.GET("", reviewerOnly, submissionHandler.ListSubmissions)
			submissionGroup.GET("/:id", submissionHandler.GetSubmission)
			// POST /api/v1/submissions/{id}/review
			submissionGroup.POST("/:id/review", reviewerOnly, submissionHandler.Review)
			submissionGroup.GET("/:id/files/:fileId/download", reviewerOnly, submissionHandler.FileDownloadURL)
			submissionGroup.GET("/:id/access-log", reviewerOnly, accessHandler.AccessHistory)
		}

		// GET /api/v1/documents/submissions - workers list their own batches
		protected.GET("/documents/submissions", RoleMiddleware(domain.RoleWorker), submissionHandler.MySubmissions)

		// --- QR Access Routes ---
		protected.POST("/qr/generate", accessHandler.GenerateQR)
		// Staff read through the dashboard; the access is logged.
		protected.POST("/submission-access/:id", reviewerOnly, accessHandler.DashboardAccess)

		// --- Reminder Routes ---
		reminderGroup := protected.Group("/reminders")
		reminderGroup.Use(RoleMiddleware(domain.RoleWorker))
		{
			reminderGroup.POST("", reminderHandler.CreateReminder)
			reminderGroup.GET("", reminderHandler.MyReminders)
			reminderGroup.DELETE("/:id", reminderHandler.DeleteReminder)
		}
	}
}
