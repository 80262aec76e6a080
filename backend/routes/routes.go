package routes

import (
	"catprep/backend/cache"
	"catprep/backend/config"
	"catprep/backend/controllers"
	"catprep/backend/middleware"
	"catprep/backend/services"
	"catprep/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, catalogCache cache.Cache, logger *utils.Logger) {
	selector := services.NewSelector(db, nil)
	users := services.NewUserService(db, cfg, logger)
	attempts := services.NewAttemptService(db, selector, cfg, logger)
	catalog := services.NewCatalogService(db, catalogCache, selector, cfg, logger)
	stats := services.NewStatsService(db, logger)

	api := app.Group("/api")

	// Auth routes
	authController := controllers.NewAuthController(users)
	api.Post("/auth/signup", authController.Register)
	api.Post("/auth/register", authController.Register)
	api.Post("/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware()

	// User routes
	userController := controllers.NewUserController(users)
	api.Get("/user/profile", authMiddleware, userController.GetProfile)

	// Progress routes
	progressController := controllers.NewProgressController(stats)
	api.Get("/progress/overview", authMiddleware, progressController.GetProgressOverview)

	// Catalog routes
	overviewController := controllers.NewOverviewController(catalog)
	api.Get("/subjects", authMiddleware, overviewController.ListSubjects)
	api.Get("/subjects/:id/topics", authMiddleware, overviewController.ListTopics)

	catalogController := controllers.NewCatalogController(catalog)
	questions := api.Group("/questions", authMiddleware)
	questions.Post("/generate", catalogController.GenerateQuestions)
	questions.Post("/validate", catalogController.ValidateAnswer)

	// Tests routes
	testsController := controllers.NewTestsController(attempts)
	tests := api.Group("/tests", authMiddleware)
	tests.Post("/start", testsController.StartTest)
	tests.Get("/history", testsController.GetHistory)
	tests.Get("/:id", testsController.GetTest)
	tests.Post("/:id/progress", testsController.SaveProgress)
	tests.Post("/:id/submit", testsController.SubmitTest)
	tests.Post("/:id/retake", testsController.RetakeTest)
	tests.Post("/:id/abort", testsController.AbortTest)
	tests.Delete("/:id", testsController.DeleteTest)

	// Admin routes
	analyticsController := controllers.NewAnalyticsController(stats)
	admin := api.Group("/admin", authMiddleware, adminMiddleware)
	admin.Get("/stats", analyticsController.GetAdminStats)

	admin.Get("/users", userController.ListUsers)
	admin.Post("/users/bulk", userController.BulkImportUsers)
	admin.Delete("/users/:id", userController.DeleteUser)

	admin.Get("/questions", catalogController.ListQuestions)
	admin.Post("/questions", catalogController.CreateQuestion)
	admin.Post("/questions/bulk", catalogController.BulkImportQuestions)
	admin.Put("/questions/:id", catalogController.UpdateQuestion)
	admin.Delete("/questions/:id", catalogController.DeleteQuestion)

	admin.Post("/subjects", catalogController.CreateSubject)
	admin.Post("/topics", catalogController.CreateTopic)
}
