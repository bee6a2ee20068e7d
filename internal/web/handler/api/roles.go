package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-secadmin/go-secadmin/internal/db/models"
	"github.com/go-secadmin/go-secadmin/internal/security"
)

type permissionPairBody struct {
	Permission string `json:"permission" validate:"required"`
	Resource   string `json:"resource" validate:"required"`
}

type roleResponse struct {
	ID          uint                 `json:"id"`
	Name        string               `json:"name"`
	Permissions []permissionPairBody `json:"permissions"`
}

func toRoleResponse(role *models.Role) roleResponse {
	out := roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Permissions: make([]permissionPairBody, 0, len(role.Permissions)),
	}

	for _, pv := range role.Permissions {
		if pv.Permission.ID == 0 || pv.ViewMenu.ID == 0 {
			continue
		}

		out.Permissions = append(out.Permissions, permissionPairBody{
			Permission: pv.Permission.Name,
			Resource:   pv.ViewMenu.Name,
		})
	}

	return out
}

type roleNameRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

type rolePermissionsRequest struct {
	Permissions []permissionPairBody `json:"permissions" validate:"required,dive"`
}

type roleUsersRequest struct {
	UserIDs []uint64 `json:"user_ids" validate:"required,min=1"`
}

// ListRoles returns every role with its grants.
func (s *Service) ListRoles(c *fiber.Ctx) error {
	roles, err := s.store.GetAllRoles()
	if err != nil {
		log.Error().Err(err).Msg("failed to list roles")
		return fiber.ErrInternalServerError
	}

	out := make([]roleResponse, 0, len(roles))
	for i := range roles {
		out = append(out, toRoleResponse(&roles[i]))
	}

	return c.JSON(fiber.Map{"count": len(out), "result": out})
}

// GetRole returns one role by id.
func (s *Service) GetRole(c *fiber.Ctx) error {
	role, err := s.roleFromParam(c)
	if err != nil || role == nil {
		return err
	}

	return c.JSON(toRoleResponse(role))
}

// CreateRole upserts a role by name.
func (s *Service) CreateRole(c *fiber.Ctx) error {
	var req roleNameRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	role, err := s.store.AddRole(req.Name)
	if err != nil {
		log.Error().Err(err).Msg("failed to create role")
		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(toRoleResponse(role))
}

// UpdateRole renames a role.
func (s *Service) UpdateRole(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return badRequest(c, "invalid role id")
	}

	var req roleNameRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	role, err := s.store.UpdateRole(uint(id), req.Name)
	if err != nil {
		if errors.Is(err, security.ErrRoleNotFound) {
			return notFound(c, "role not found")
		}

		log.Error().Err(err).Msg("failed to rename role")

		return fiber.ErrInternalServerError
	}

	return c.JSON(toRoleResponse(role))
}

// DeleteRole removes a role unless users or groups still reference it.
func (s *Service) DeleteRole(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return badRequest(c, "invalid role id")
	}

	err = s.store.DelRole(uint(id))

	switch {
	case err == nil:
		return c.JSON(fiber.Map{"message": "deleted"})
	case errors.Is(err, security.ErrRoleNotFound):
		return notFound(c, "role not found")
	case errors.Is(err, security.ErrDeleteRoleWithUsers):
		return conflict(c, "role is still assigned to users or groups")
	default:
		log.Error().Err(err).Msg("failed to delete role")
		return fiber.ErrInternalServerError
	}
}

// SetRolePermissions replaces the role's grant list with the given pairs.
// Every pair must already exist in the permission graph.
func (s *Service) SetRolePermissions(c *fiber.Ctx) error {
	role, err := s.roleFromParam(c)
	if err != nil || role == nil {
		return err
	}

	var req rolePermissionsRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	// resolve every pair up front so an unknown one leaves the role untouched
	pvs := make([]*models.PermissionView, 0, len(req.Permissions))

	for _, pair := range req.Permissions {
		pv, errFind := s.store.FindPermissionViewMenu(pair.Permission, pair.Resource)
		if errFind != nil {
			log.Error().Err(errFind).Msg("failed to look up permission pair")
			return fiber.ErrInternalServerError
		}

		if pv == nil {
			return notFound(c, "unknown permission "+pair.Permission+" on "+pair.Resource)
		}

		pvs = append(pvs, pv)
	}

	want := make(map[security.PermissionPair]bool, len(pvs))

	for _, pv := range pvs {
		want[security.PermissionPair{Permission: pv.Permission.Name, ViewMenu: pv.ViewMenu.Name}] = true

		if errGrant := s.store.AddPermissionRole(role, pv); errGrant != nil {
			log.Error().Err(errGrant).Msg("failed to grant permission")
			return fiber.ErrInternalServerError
		}
	}

	// drop grants not in the requested set
	for _, pv := range role.Permissions {
		if pv.Permission.ID == 0 || pv.ViewMenu.ID == 0 {
			continue
		}

		pair := security.PermissionPair{Permission: pv.Permission.Name, ViewMenu: pv.ViewMenu.Name}
		if want[pair] {
			continue
		}

		if errDel := s.store.DelPermissionRole(role, pv); errDel != nil {
			log.Error().Err(errDel).Msg("failed to revoke permission")
			return fiber.ErrInternalServerError
		}
	}

	fresh, err := s.store.GetRoleByID(role.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to reload role")
		return fiber.ErrInternalServerError
	}

	ids := make([]uint, 0, len(fresh.Permissions))
	for _, pv := range fresh.Permissions {
		ids = append(ids, pv.ID)
	}

	return c.JSON(fiber.Map{"permission_view_ids": ids})
}

// AssignRoleUsers adds the role to every listed user and returns the ids of
// every user carrying the role afterwards. An unknown user id leaves the
// role untouched.
func (s *Service) AssignRoleUsers(c *fiber.Ctx) error {
	role, err := s.roleFromParam(c)
	if err != nil || role == nil {
		return err
	}

	var req roleUsersRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	users := make([]*models.User, 0, len(req.UserIDs))

	for _, userID := range req.UserIDs {
		user, errUser := s.store.GetUserByID(userID)
		if errUser != nil {
			if errors.Is(errUser, security.ErrUserNotFound) {
				return notFound(c, "unknown user id "+strconv.FormatUint(userID, 10))
			}

			log.Error().Err(errUser).Msg("failed to load user")

			return fiber.ErrInternalServerError
		}

		users = append(users, user)
	}

	for _, user := range users {
		if hasRole(user, role.ID) {
			continue
		}

		if errSet := s.store.SetUserRoles(user, append(user.Roles, role)); errSet != nil {
			log.Error().Err(errSet).Msg("failed to assign role")
			return fiber.ErrInternalServerError
		}
	}

	ids, err := s.store.GetRoleUserIDs(role.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list role users")
		return fiber.ErrInternalServerError
	}

	return c.JSON(fiber.Map{"user_ids": ids})
}

// roleFromParam loads the role from the :id parameter. When it returns
// (nil, nil) the error response has already been written.
func (s *Service) roleFromParam(c *fiber.Ctx) (*models.Role, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return nil, badRequest(c, "invalid role id")
	}

	role, err := s.store.GetRoleByID(uint(id))
	if err != nil {
		if errors.Is(err, security.ErrRoleNotFound) {
			return nil, notFound(c, "role not found")
		}

		log.Error().Err(err).Msg("failed to load role")

		return nil, fiber.ErrInternalServerError
	}

	return role, nil
}

func hasRole(user *models.User, roleID uint) bool {
	for _, role := range user.Roles {
		if role.ID == roleID {
			return true
		}
	}

	return false
}
