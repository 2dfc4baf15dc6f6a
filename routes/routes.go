package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	controller "statushub/controllers"
	"statushub/middleware"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Get("/me", controller.GetCurrentUser)
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize controllers with their respective loggers
	projectController := controller.NewProjectController(db, log.New(os.Stdout, "PROJECT: ", log.LstdFlags))
	teamController := controller.NewTeamController(db, log.New(os.Stdout, "TEAM: ", log.LstdFlags))
	questionController := controller.NewQuestionController(db, log.New(os.Stdout, "QUESTION: ", log.LstdFlags))
	userController := controller.NewUserController(db, log.New(os.Stdout, "USER: ", log.LstdFlags))
	statusController := controller.NewStatusController(db, log.New(os.Stdout, "STATUS: ", log.LstdFlags))
	reportController := controller.NewReportController(db, log.New(os.Stdout, "REPORT: ", log.LstdFlags))

	importLogger := logrus.New()
	importLogger.SetFormatter(&logrus.JSONFormatter{})
	importController := controller.NewImportController(db, importLogger)

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Project routes
	project := api.Group("/projects")
	project.Post("/", projectController.CreateProject)
	project.Get("/", projectController.GetProjects)
	project.Get("/:id", projectController.GetProject)
	project.Put("/:id", projectController.UpdateProject)
	project.Delete("/:id", projectController.DeleteProject)

	// Team routes
	team := api.Group("/teams")
	team.Post("/", teamController.CreateTeam)
	team.Get("/", teamController.GetTeams)
	team.Get("/:id", teamController.GetTeam)
	team.Put("/:id", teamController.UpdateTeam)
	team.Delete("/:id", teamController.DeleteTeam)
	team.Post("/:id/members", teamController.AddMember)
	team.Delete("/:id/members/:userID", teamController.RemoveMember)

	// Question routes
	question := api.Group("/questions")
	question.Post("/", questionController.CreateQuestion)
	question.Get("/", questionController.GetQuestions)
	question.Get("/:id", questionController.GetQuestion)
	question.Put("/:id", questionController.UpdateQuestion)
	question.Delete("/:id", questionController.DeleteQuestion)

	// User routes
	user := api.Group("/users")
	user.Post("/", userController.CreateUser)
	user.Get("/", userController.GetUsers)
	user.Get("/:id", userController.GetUser)
	user.Put("/:id", userController.UpdateUser)
	user.Delete("/:id", userController.DeleteUser)

	// Status routes
	status := api.Group("/status")
	status.Post("/", statusController.CreateStatus)
	status.Get("/", statusController.GetStatuses)
	status.Get("/:id", statusController.GetStatus)
	status.Put("/:id", statusController.UpdateStatus)
	status.Delete("/:id", statusController.DeleteStatus)

	// Report routes
	report := api.Group("/reports")
	report.Get("/excel", reportController.ExportExcel)

	// Import routes with rate limiting; parsing a workbook is the most
	// expensive request the service handles.
	importGroup := api.Group("/import", middleware.ImportRateLimiter())
	importGroup.Post("/upload-status", importController.UploadStatus)
	importGroup.Post("/upload-status-json", importController.UploadStatusJSON)

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAuthRoutes(app, db)
	SetupAPIRoutes(app, db)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
