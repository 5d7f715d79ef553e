package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskhive/models"
	"taskhive/utils"
)

type TaskController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewTaskController(db *gorm.DB, logger *log.Logger) *TaskController {
	return &TaskController{
		DB:     db,
		Logger: logger,
	}
}

// CreateTask creates a task and links it into each of the given
// organisations in one transaction. An empty id list makes the task
// personal. Duplicate ids in the request collapse to one link.
func (tc *TaskController) CreateTask(c *fiber.Ctx) error {
	var input struct {
		Title           string `json:"title" validate:"required,max=200"`
		Description     string `json:"description" validate:"omitempty,max=2000"`
		OrganisationIDs []uint `json:"organisation_ids"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	seen := make(map[uint]struct{}, len(input.OrganisationIDs))
	orgIDs := make([]uint, 0, len(input.OrganisationIDs))
	for _, id := range input.OrganisationIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		orgIDs = append(orgIDs, id)
	}

	task := models.Task{
		Title:       input.Title,
		Description: input.Description,
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}

		for _, orgID := range orgIDs {
			link := models.TaskOrganisation{
				TaskID:         task.ID,
				OrganisationID: orgID,
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.LogError("task_create_failed", err, map[string]interface{}{
			"title": input.Title,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create task", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(task))
}

// LinkTask shares an existing task into the actor's active organisation.
func (tc *TaskController) LinkTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := utils.ParseUint(c.Params("id"))

	var task models.Task
	if err := tc.DB.First(&task, taskID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}

	if user.ActiveOrganisationID == nil {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "No active organisation to link to", nil)
	}

	var existing models.TaskOrganisation
	err := tc.DB.Where("task_id = ? AND organisation_id = ?", taskID, *user.ActiveOrganisationID).
		First(&existing).Error
	if err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Task already linked to this organisation", nil)
	}

	link := models.TaskOrganisation{
		TaskID:         taskID,
		OrganisationID: *user.ActiveOrganisationID,
	}
	if err := tc.DB.Create(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.ErrorResponse(c, fiber.StatusConflict, "Task already linked to this organisation", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to link task", err)
	}

	return c.JSON(utils.SuccessResponse(task))
}

// GetOrgTasks returns every task linked to the actor's active
// organisation.
func (tc *TaskController) GetOrgTasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	if user.ActiveOrganisationID == nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "No active organisation set", nil)
	}

	var tasks []models.Task
	err := tc.DB.
		Joins("JOIN task_organisations ON task_organisations.task_id = tasks.id").
		Where("task_organisations.organisation_id = ?", *user.ActiveOrganisationID).
		Find(&tasks).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list tasks", err)
	}

	return c.JSON(utils.SuccessResponse(tasks))
}

// GetPersonalTasks returns every task with no organisation links.
//
// Known weakness carried over from the existing behaviour: the view is
// not scoped to the caller, so it returns orgless tasks system-wide.
func (tc *TaskController) GetPersonalTasks(c *fiber.Ctx) error {
	var tasks []models.Task
	err := tc.DB.
		Where("id NOT IN (?)", tc.DB.Model(&models.TaskOrganisation{}).Select("task_id")).
		Find(&tasks).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list tasks", err)
	}

	return c.JSON(utils.SuccessResponse(tasks))
}

// GetAllTasks returns the union of tasks shared into any organisation
// the actor belongs to and all personal tasks.
func (tc *TaskController) GetAllTasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	orgIDs := tc.DB.Model(&models.Membership{}).
		Select("organisation_id").
		Where("user_id = ?", user.ID)

	linkedTaskIDs := tc.DB.Model(&models.TaskOrganisation{}).
		Select("task_id").
		Where("organisation_id IN (?)", orgIDs)

	anyLinkedTaskIDs := tc.DB.Model(&models.TaskOrganisation{}).Select("task_id")

	var tasks []models.Task
	err := tc.DB.
		Where("id IN (?) OR id NOT IN (?)", linkedTaskIDs, anyLinkedTaskIDs).
		Find(&tasks).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list tasks", err)
	}

	return c.JSON(utils.SuccessResponse(tasks))
}
