package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/handler"
	"github.com/prepdesk/prepdesk-backend/internal/middleware"
	"github.com/prepdesk/prepdesk-backend/internal/response"
	"github.com/prepdesk/prepdesk-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Exam     *handler.ExamHandler
	Question *handler.QuestionHandler
	Attempt  *handler.AttemptHandler
	Approval *handler.ApprovalHandler
	Student  *handler.StudentHandler
	Media    *handler.MediaHandler
	WS       *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Serve uploaded profile images statically with aggressive caching (1 year).
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", "./uploads")
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/teacher/register", handlers.Auth.RegisterTeacher)
		auth.POST("/teacher/login", handlers.Auth.TeacherLogin)
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/student/signup", handlers.Approval.Signup)

		// Authenticated profile routes
		auth.GET("/teacher/me", middleware.RequireTeacherJWT(authService), handlers.Auth.GetTeacherProfile)
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
	}

	// ─── 2. Attempt Group (Public) ─────────────────────────────────────
	// Joining needs only the access code; the attempt ID acts as the
	// capability for everything after that.
	attempts := router.Group("/api/v1/attempts")
	{
		attempts.POST("/join", handlers.Attempt.Join)
		attempts.GET("/:attemptId", handlers.Attempt.State)
		attempts.POST("/:attemptId/answers", handlers.Attempt.Answer)
		attempts.POST("/:attemptId/navigate", handlers.Attempt.Navigate)
		attempts.POST("/:attemptId/submit", handlers.Attempt.Submit)
		attempts.DELETE("/:attemptId", handlers.Attempt.Abandon)
	}

	// ─── 3. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.POST("/attempts/join", handlers.Attempt.JoinAuthenticated)
		studentAPI.PUT("/profile", handlers.Student.UpdateProfile)
		studentAPI.GET("/history", handlers.Student.History)
		studentAPI.POST("/media", handlers.Media.Upload)
	}

	// ─── 4. WebSocket Group (Public, attempt ID as capability) ─────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/attempts/:attemptId/stream", handlers.WS.AttemptStream)
	}

	// ─── 5. Teacher Group (JWT) ────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		// Exams
		teacherAPI.POST("/exams", handlers.Exam.Create)
		teacherAPI.GET("/exams", handlers.Exam.List)
		teacherAPI.GET("/exams/:examId", handlers.Exam.Get)
		teacherAPI.PUT("/exams/:examId", handlers.Exam.Update)
		teacherAPI.DELETE("/exams/:examId", handlers.Exam.Delete)
		teacherAPI.POST("/exams/:examId/publish", handlers.Exam.Publish)
		teacherAPI.POST("/exams/:examId/archive", handlers.Exam.Archive)
		teacherAPI.GET("/exams/:examId/results", handlers.Exam.Results)
		teacherAPI.GET("/exams/:examId/leaderboard", handlers.Exam.Leaderboard)

		// Questions
		teacherAPI.GET("/exams/:examId/questions", handlers.Question.List)
		teacherAPI.POST("/exams/:examId/questions", handlers.Question.Add)
		teacherAPI.PUT("/exams/:examId/questions/:questionId", handlers.Question.Update)
		teacherAPI.DELETE("/exams/:examId/questions/:questionId", handlers.Question.Delete)

		// Signup approval queue
		teacherAPI.GET("/pending-students", handlers.Approval.ListPending)
		teacherAPI.POST("/pending-students/:pendingId/approve", handlers.Approval.Approve)
		teacherAPI.DELETE("/pending-students/:pendingId", handlers.Approval.Reject)

		// Teacher accounts
		teacherAPI.GET("/teachers", handlers.Auth.ListTeachers)
		teacherAPI.DELETE("/teachers/:teacherId", handlers.Auth.DeleteTeacher)

		// Student accounts
		teacherAPI.GET("/students", handlers.Student.List)
		teacherAPI.POST("/students/:studentId/block", handlers.Student.Block)
		teacherAPI.POST("/students/:studentId/unblock", handlers.Student.Unblock)
		teacherAPI.POST("/students/:studentId/reset-session", handlers.Student.ResetSession)
		teacherAPI.DELETE("/students/:studentId", handlers.Student.Delete)
	}

	return router
}
