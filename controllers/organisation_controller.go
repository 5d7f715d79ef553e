package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskhive/models"
	"taskhive/utils"
)

type OrganisationController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewOrganisationController(db *gorm.DB, logger *log.Logger) *OrganisationController {
	return &OrganisationController{
		DB:     db,
		Logger: logger,
	}
}

// OrganisationWithCreator annotates an organisation with its creator's
// display name for the member-of listing.
type OrganisationWithCreator struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	CreatorName string `json:"creator_name"`
}

// CreateOrganisation creates the organisation, an owner membership for
// the actor and points the actor's active organisation at it. All three
// writes commit together; a failed membership insert rolls the
// organisation row back too.
func (oc *OrganisationController) CreateOrganisation(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Name string `json:"name" validate:"required,max=100"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	org := models.Organisation{
		Name:      input.Name,
		CreatorID: user.ID,
	}

	err := oc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&org).Error; err != nil {
			return err
		}

		membership := models.Membership{
			UserID:         user.ID,
			OrganisationID: org.ID,
			Role:           models.RoleOwner,
		}
		if err := tx.Create(&membership).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).Where("id = ?", user.ID).
			Update("active_organisation_id", org.ID).Error
	})
	if err != nil {
		utils.LogError("organisation_create_failed", err, map[string]interface{}{
			"user_id": user.ID,
			"name":    input.Name,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create organisation", err)
	}

	oc.Logger.Printf("organisation %d created by user %d", org.ID, user.ID)
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(org))
}

// GetOwned lists organisations where the actor holds the owner role.
func (oc *OrganisationController) GetOwned(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var orgs []models.Organisation
	err := oc.DB.
		Joins("JOIN memberships ON memberships.organisation_id = organisations.id").
		Where("memberships.user_id = ? AND memberships.role = ?", user.ID, models.RoleOwner).
		Find(&orgs).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list organisations", err)
	}

	return c.JSON(utils.SuccessResponse(orgs))
}

// GetMemberOf lists organisations where the actor is a member or admin,
// annotated with the creator's name.
func (oc *OrganisationController) GetMemberOf(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var orgs []models.Organisation
	err := oc.DB.
		Joins("JOIN memberships ON memberships.organisation_id = organisations.id").
		Where("memberships.user_id = ? AND memberships.role IN ?",
			user.ID, []string{models.RoleMember, models.RoleAdmin}).
		Find(&orgs).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list organisations", err)
	}

	result := make([]OrganisationWithCreator, 0, len(orgs))
	for _, org := range orgs {
		creatorName := "Unknown"
		var creator models.User
		if err := oc.DB.First(&creator, org.CreatorID).Error; err == nil {
			creatorName = creator.Name
		}
		result = append(result, OrganisationWithCreator{
			ID:          org.ID,
			Name:        org.Name,
			CreatorName: creatorName,
		})
	}

	return c.JSON(utils.SuccessResponse(result))
}

// SwitchActive updates the actor's active organisation pointer. Actors
// without a membership get a 404, not a membership listing.
func (oc *OrganisationController) SwitchActive(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	orgID := utils.ParseUint(c.Params("id"))

	var membership models.Membership
	err := oc.DB.Where("user_id = ? AND organisation_id = ?", user.ID, orgID).
		First(&membership).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "You don't belong to this organisation", nil)
	}

	err = oc.DB.Model(&models.User{}).Where("id = ?", user.ID).
		Update("active_organisation_id", orgID).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to switch organisation", err)
	}

	return c.JSON(fiber.Map{
		"message": "Switched active organisation",
	})
}

// AddMember adds a registered user to the organisation directly, without
// an invite. Any membership role is enough to add; this is deliberately
// looser than the admin/owner gate on invites and promotion.
func (oc *OrganisationController) AddMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	orgID := utils.ParseUint(c.Params("id"))

	var input struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var actorLink models.Membership
	err := oc.DB.Where("user_id = ? AND organisation_id = ?", user.ID, orgID).
		First(&actorLink).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You don't belong to this organisation", nil)
	}

	var target models.User
	if err := oc.DB.Where("email = ?", input.Email).First(&target).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
	}

	var existing models.Membership
	err = oc.DB.Where("user_id = ? AND organisation_id = ?", target.ID, orgID).
		First(&existing).Error
	if err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "User already in organisation", nil)
	}

	membership := models.Membership{
		UserID:         target.ID,
		OrganisationID: orgID,
		Role:           models.RoleMember,
	}
	if err := oc.DB.Create(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.ErrorResponse(c, fiber.StatusConflict, "User already in organisation", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to add member", err)
	}

	oc.Logger.Printf("user %d added to organisation %d by user %d", target.ID, orgID, user.ID)
	return c.JSON(fiber.Map{
		"message": input.Email + " added to organisation",
	})
}

// PromoteMember overwrites a member's role. The requested role string is
// stored as-is; owner/admin/member is a convention, not a constraint.
func (oc *OrganisationController) PromoteMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	orgID := utils.ParseUint(c.Params("id"))

	var input struct {
		Email string `json:"email" validate:"required,email"`
		Role  string `json:"role" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var actorLink models.Membership
	err := oc.DB.Where("user_id = ? AND organisation_id = ?", user.ID, orgID).
		First(&actorLink).Error
	if err != nil || (actorLink.Role != models.RoleAdmin && actorLink.Role != models.RoleOwner) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not authorized to change roles", nil)
	}

	var target models.User
	if err := oc.DB.Where("email = ?", input.Email).First(&target).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
	}

	var targetLink models.Membership
	err = oc.DB.Where("user_id = ? AND organisation_id = ?", target.ID, orgID).
		First(&targetLink).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not in organisation", nil)
	}

	err = oc.DB.Model(&models.Membership{}).
		Where("user_id = ? AND organisation_id = ?", target.ID, orgID).
		Update("role", input.Role).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update role", err)
	}

	oc.Logger.Printf("user %d role set to %q in organisation %d by user %d",
		target.ID, input.Role, orgID, user.ID)
	return c.JSON(fiber.Map{
		"message": input.Email + " is now a " + input.Role,
	})
}
