package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-secadmin/go-secadmin/internal/db/models"
	"github.com/go-secadmin/go-secadmin/internal/security"
)

type groupResponse struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Roles       []string `json:"roles"`
}

func toGroupResponse(group *models.Group) groupResponse {
	out := groupResponse{
		ID:          group.ID,
		Name:        group.Name,
		Label:       group.Label,
		Description: group.Description,
		Roles:       make([]string, 0, len(group.Roles)),
	}

	for _, role := range group.Roles {
		out.Roles = append(out.Roles, role.Name)
	}

	return out
}

type createGroupRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Label       string   `json:"label" validate:"omitempty,max=150"`
	Description string   `json:"description" validate:"omitempty,max=500"`
	Roles       []string `json:"roles" validate:"omitempty,dive,required"`
}

// ListGroups returns every group with its role names.
func (s *Service) ListGroups(c *fiber.Ctx) error {
	groups, err := s.store.GetAllGroups()
	if err != nil {
		log.Error().Err(err).Msg("failed to list groups")
		return fiber.ErrInternalServerError
	}

	out := make([]groupResponse, 0, len(groups))
	for i := range groups {
		out = append(out, toGroupResponse(&groups[i]))
	}

	return c.JSON(fiber.Map{"count": len(out), "result": out})
}

// CreateGroup upserts a group by name, attaching the listed roles.
func (s *Service) CreateGroup(c *fiber.Ctx) error {
	var req createGroupRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	roles, err := s.rolesByName(req.Roles)
	if err != nil {
		return badRequest(c, err.Error())
	}

	group, err := s.store.AddGroup(req.Name, req.Label, req.Description, roles...)
	if err != nil {
		log.Error().Err(err).Msg("failed to create group")
		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(toGroupResponse(group))
}

// DeleteGroup removes a group unless it still has members.
func (s *Service) DeleteGroup(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return badRequest(c, "invalid group id")
	}

	err = s.store.DelGroup(uint(id))

	switch {
	case err == nil:
		return c.SendStatus(fiber.StatusNoContent)
	case errors.Is(err, security.ErrGroupNotFound):
		return notFound(c, "group not found")
	case errors.Is(err, security.ErrDeleteGroupWithUsers):
		return conflict(c, "group still has members")
	default:
		log.Error().Err(err).Msg("failed to delete group")
		return fiber.ErrInternalServerError
	}
}
