package routes

import (
	"log"
	"os"

	controller "taskhive/controllers"
	"taskhive/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", controller.Register)
	auth.Post("/login", middleware.LoginRateLimiter(), controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Get("/me", controller.GetCurrentUser)

	// Initialize controllers with their respective loggers
	orgController := controller.NewOrganisationController(db, log.New(os.Stdout, "ORG: ", log.LstdFlags))
	inviteController := controller.NewInviteController(db, log.New(os.Stdout, "INVITE: ", log.LstdFlags))
	taskController := controller.NewTaskController(db, log.New(os.Stdout, "TASK: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	api.Get("/users", controller.GetUsers)

	// Organisation routes
	org := api.Group("/organisations")
	org.Post("/", orgController.CreateOrganisation)
	org.Get("/owned", orgController.GetOwned)
	org.Get("/member-of", orgController.GetMemberOf)
	org.Patch("/:id/switch", orgController.SwitchActive)
	org.Post("/:id/members", orgController.AddMember)
	org.Patch("/:id/members/role", orgController.PromoteMember)
	org.Post("/:id/invites", inviteController.CreateInvite)
	org.Post("/:id/invites/accept", inviteController.AcceptInvite)

	// Task routes
	task := api.Group("/tasks")
	task.Post("/", taskController.CreateTask)
	task.Patch("/:id/link", taskController.LinkTask)
	task.Get("/org", taskController.GetOrgTasks)
	task.Get("/personal", taskController.GetPersonalTasks)
	task.Get("/all", taskController.GetAllTasks)
}
