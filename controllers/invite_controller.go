package controller

import (
	"errors"
	"log"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskhive/models"
	"taskhive/utils"
)

type InviteController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewInviteController(db *gorm.DB, logger *log.Logger) *InviteController {
	return &InviteController{
		DB:     db,
		Logger: logger,
	}
}

// CreateInvite records a pending invite for an email address. The address
// does not have to belong to a registered user; acceptance happens when a
// user with that email asks to join. Only admins and owners may invite.
func (ic *InviteController) CreateInvite(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	orgID := utils.ParseUint(c.Params("id"))

	var input struct {
		Email string `json:"email" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	// The invitee may not exist as a user yet, so the address is checked
	// syntactically here rather than against the users table.
	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email address", err)
	}

	var actorLink models.Membership
	err := ic.DB.Where("user_id = ? AND organisation_id = ?", user.ID, orgID).
		First(&actorLink).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You're not in this organisation", nil)
	}
	if actorLink.Role != models.RoleAdmin && actorLink.Role != models.RoleOwner {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You don't have permission to invite", nil)
	}

	var pending models.Invite
	err = ic.DB.Where("email = ? AND organisation_id = ? AND accepted = ?",
		input.Email, orgID, false).First(&pending).Error
	if err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Invite already sent", nil)
	}

	invite := models.Invite{
		Email:          input.Email,
		OrganisationID: orgID,
		InviterID:      user.ID,
	}
	if err := ic.DB.Create(&invite).Error; err != nil {
		// Two racing invite requests resolve through the partial unique
		// index rather than producing a duplicate pending row.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.ErrorResponse(c, fiber.StatusConflict, "Invite already sent", nil)
		}
		utils.LogError("invite_create_failed", err, map[string]interface{}{
			"organisation_id": orgID,
			"inviter_id":      user.ID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create invite", err)
	}

	ic.Logger.Printf("invite for %s to organisation %d created by user %d",
		input.Email, orgID, user.ID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Invite sent to " + input.Email,
	})
}

// AcceptInvite turns a pending invite matching the actor's email into a
// membership. Creating the membership and flipping the accepted flag
// commit together; the flag never flips back.
func (ic *InviteController) AcceptInvite(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	orgID := utils.ParseUint(c.Params("id"))

	var invite models.Invite
	err := ic.DB.Where("email = ? AND organisation_id = ? AND accepted = ?",
		user.Email, orgID, false).First(&invite).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "No valid invite found", nil)
	}

	var existing models.Membership
	err = ic.DB.Where("user_id = ? AND organisation_id = ?", user.ID, orgID).
		First(&existing).Error
	if err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Already a member", nil)
	}

	err = ic.DB.Transaction(func(tx *gorm.DB) error {
		membership := models.Membership{
			UserID:         user.ID,
			OrganisationID: orgID,
			Role:           models.RoleMember,
		}
		if err := tx.Create(&membership).Error; err != nil {
			return err
		}

		return tx.Model(&models.Invite{}).Where("id = ?", invite.ID).
			Update("accepted", true).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.ErrorResponse(c, fiber.StatusConflict, "Already a member", nil)
		}
		utils.LogError("invite_accept_failed", err, map[string]interface{}{
			"organisation_id": orgID,
			"user_id":         user.ID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to accept invite", err)
	}

	ic.Logger.Printf("user %d joined organisation %d via invite %d", user.ID, orgID, invite.ID)
	return c.JSON(fiber.Map{
		"message": "Joined organisation",
	})
}
