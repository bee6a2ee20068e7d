package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-secadmin/go-secadmin/internal/security"
)

type nameRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// ListPermissions returns every registered action name.
func (s *Service) ListPermissions(c *fiber.Ctx) error {
	perms, err := s.store.GetAllPermissions()
	if err != nil {
		log.Error().Err(err).Msg("failed to list permissions")
		return fiber.ErrInternalServerError
	}

	out := make([]fiber.Map, 0, len(perms))
	for _, perm := range perms {
		out = append(out, fiber.Map{"id": perm.ID, "name": perm.Name})
	}

	return c.JSON(fiber.Map{"count": len(out), "result": out})
}

// CreatePermission upserts an action name.
func (s *Service) CreatePermission(c *fiber.Ctx) error {
	var req nameRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	perm, err := s.store.AddPermission(req.Name)
	if err != nil {
		log.Error().Err(err).Msg("failed to create permission")
		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": perm.ID, "name": perm.Name})
}

// UpdatePermission renames an action. Grants referencing it follow the
// rename.
func (s *Service) UpdatePermission(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return badRequest(c, "invalid permission id")
	}

	var req nameRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	perm, err := s.store.UpdatePermission(uint(id), req.Name)
	if err != nil {
		if errors.Is(err, security.ErrPermissionNotFound) {
			return notFound(c, "permission not found")
		}

		log.Error().Err(err).Msg("failed to rename permission")

		return fiber.ErrInternalServerError
	}

	return c.JSON(fiber.Map{"id": perm.ID, "name": perm.Name})
}

// DeletePermission removes an action unless a pair still references it.
func (s *Service) DeletePermission(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return badRequest(c, "invalid permission id")
	}

	perm, err := s.store.GetPermissionByID(uint(id))
	if err != nil {
		if errors.Is(err, security.ErrPermissionNotFound) {
			return notFound(c, "permission not found")
		}

		log.Error().Err(err).Msg("failed to load permission")

		return fiber.ErrInternalServerError
	}

	err = s.store.DelPermission(perm.Name)

	switch {
	case err == nil:
		return c.SendStatus(fiber.StatusNoContent)
	case errors.Is(err, security.ErrPermissionInUse):
		return conflict(c, "permission is still paired with a resource")
	default:
		log.Error().Err(err).Msg("failed to delete permission")
		return fiber.ErrInternalServerError
	}
}

// ListResources returns every registered view/menu resource.
func (s *Service) ListResources(c *fiber.Ctx) error {
	vms, err := s.store.GetAllViewMenus()
	if err != nil {
		log.Error().Err(err).Msg("failed to list resources")
		return fiber.ErrInternalServerError
	}

	out := make([]fiber.Map, 0, len(vms))
	for _, vm := range vms {
		out = append(out, fiber.Map{"id": vm.ID, "name": vm.Name})
	}

	return c.JSON(fiber.Map{"count": len(out), "result": out})
}

// CreateResource upserts a view/menu resource by name.
func (s *Service) CreateResource(c *fiber.Ctx) error {
	var req nameRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	vm, err := s.store.AddViewMenu(req.Name)
	if err != nil {
		log.Error().Err(err).Msg("failed to create resource")
		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": vm.ID, "name": vm.Name})
}

// UpdateResource renames a view/menu resource. Pairs keep their grants under
// the new name.
func (s *Service) UpdateResource(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return badRequest(c, "invalid resource id")
	}

	var req nameRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	vm, err := s.store.UpdateViewMenu(uint(id), req.Name)
	if err != nil {
		if errors.Is(err, security.ErrViewMenuNotFound) {
			return notFound(c, "resource not found")
		}

		log.Error().Err(err).Msg("failed to rename resource")

		return fiber.ErrInternalServerError
	}

	return c.JSON(fiber.Map{"id": vm.ID, "name": vm.Name})
}

// DeleteResource removes a view/menu resource unless a pair still references
// it.
func (s *Service) DeleteResource(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return badRequest(c, "invalid resource id")
	}

	vm, err := s.store.GetViewMenuByID(uint(id))
	if err != nil {
		if errors.Is(err, security.ErrViewMenuNotFound) {
			return notFound(c, "resource not found")
		}

		log.Error().Err(err).Msg("failed to load resource")

		return fiber.ErrInternalServerError
	}

	err = s.store.DelViewMenu(vm.Name)

	switch {
	case err == nil:
		return c.SendStatus(fiber.StatusNoContent)
	case errors.Is(err, security.ErrViewMenuInUse):
		return conflict(c, "resource is still paired with permissions")
	default:
		log.Error().Err(err).Msg("failed to delete resource")
		return fiber.ErrInternalServerError
	}
}

// ListPermissionResources returns every (permission, resource) pair.
func (s *Service) ListPermissionResources(c *fiber.Ctx) error {
	pvs, err := s.store.GetAllPermissionViews()
	if err != nil {
		log.Error().Err(err).Msg("failed to list permission pairs")
		return fiber.ErrInternalServerError
	}

	out := make([]fiber.Map, 0, len(pvs))
	for _, pv := range pvs {
		out = append(out, fiber.Map{
			"id":         pv.ID,
			"permission": pv.Permission.Name,
			"resource":   pv.ViewMenu.Name,
		})
	}

	return c.JSON(fiber.Map{"count": len(out), "result": out})
}

// CreatePermissionResource upserts a (permission, resource) pair.
func (s *Service) CreatePermissionResource(c *fiber.Ctx) error {
	var req permissionPairBody
	if !s.parseBody(c, &req) {
		return nil
	}

	pv, err := s.store.AddPermissionViewMenu(req.Permission, req.Resource)
	if err != nil {
		log.Error().Err(err).Msg("failed to create permission pair")
		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         pv.ID,
		"permission": req.Permission,
		"resource":   req.Resource,
	})
}

// UpdatePermissionResource re-points a grant pair onto a new permission or
// resource name. Roles holding the pair keep it under the new names.
func (s *Service) UpdatePermissionResource(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return badRequest(c, "invalid permission pair id")
	}

	var req permissionPairBody
	if !s.parseBody(c, &req) {
		return nil
	}

	pv, err := s.store.UpdatePermissionViewMenu(uint(id), req.Permission, req.Resource)

	switch {
	case err == nil:
		return c.JSON(fiber.Map{
			"id":         pv.ID,
			"permission": pv.Permission.Name,
			"resource":   pv.ViewMenu.Name,
		})
	case errors.Is(err, security.ErrPermissionViewNotFound):
		return notFound(c, "permission pair not found")
	case errors.Is(err, security.ErrPermissionViewExists):
		return conflict(c, "permission pair already exists")
	default:
		log.Error().Err(err).Msg("failed to update permission pair")
		return fiber.ErrInternalServerError
	}
}

// DeletePermissionResource removes a (permission, resource) pair. Pairs still
// granted to a role are refused; pass cascade=true to revoke the grants first.
func (s *Service) DeletePermissionResource(c *fiber.Ctx) error {
	var req permissionPairBody
	if !s.parseBody(c, &req) {
		return nil
	}

	cascade := c.QueryBool("cascade", false)

	err := s.store.DelPermissionViewMenu(req.Permission, req.Resource, cascade)

	switch {
	case err == nil:
		return c.SendStatus(fiber.StatusNoContent)
	case errors.Is(err, security.ErrPermissionViewInUse):
		return conflict(c, "permission is still granted to a role")
	default:
		log.Error().Err(err).Msg("failed to delete permission pair")
		return fiber.ErrInternalServerError
	}
}
