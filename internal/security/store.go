package security

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-secadmin/go-secadmin/internal/config"
	"github.com/go-secadmin/go-secadmin/internal/db/models"
)

// Store provides all durable operations over the permission graph.
type Store struct {
	db  *gorm.DB
	cfg *config.Auth
}

// NewStore creates a new security store.
func NewStore(db *gorm.DB, cfg *config.Auth) *Store {
	return &Store{db: db, cfg: cfg}
}

// DB exposes the underlying gorm handle for request-scoped transactions.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Config returns the auth configuration the store was built with.
func (s *Store) Config() *config.Auth {
	return s.cfg
}

// FindPermission returns a permission by name, or nil when absent.
func (s *Store) FindPermission(name string) (*models.Permission, error) {
	var perm models.Permission

	err := s.db.Where("name = ?", name).First(&perm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query permission: %w", err)
	}

	return &perm, nil
}

// GetAllPermissions returns every registered permission.
func (s *Store) GetAllPermissions() ([]models.Permission, error) {
	var perms []models.Permission

	if err := s.db.Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}

	return perms, nil
}

// AddPermission upserts a permission by name. Calling twice with the same
// name returns the existing row.
func (s *Store) AddPermission(name string) (*models.Permission, error) {
	perm := models.Permission{Name: name}

	if err := s.db.Where("name = ?", name).FirstOrCreate(&perm).Error; err != nil {
		return nil, fmt.Errorf("failed to add permission %q: %w", name, err)
	}

	return &perm, nil
}

// GetPermissionByID returns a permission by id.
func (s *Store) GetPermissionByID(id uint) (*models.Permission, error) {
	var perm models.Permission

	err := s.db.First(&perm, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPermissionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query permission: %w", err)
	}

	return &perm, nil
}

// UpdatePermission renames a permission. Every pair referencing it keeps its
// grants under the new name.
func (s *Store) UpdatePermission(id uint, name string) (*models.Permission, error) {
	perm, err := s.GetPermissionByID(id)
	if err != nil {
		return nil, err
	}

	perm.Name = name
	if err = s.db.Model(perm).Update("name", name).Error; err != nil {
		return nil, fmt.Errorf("failed to rename permission: %w", err)
	}

	return perm, nil
}

// DelPermission deletes a permission by name. The delete is refused while any
// permission-view pair still references it.
func (s *Store) DelPermission(name string) error {
	perm, err := s.FindPermission(name)
	if err != nil {
		return err
	}

	if perm == nil {
		log.Warn().Str("permission", name).Msg("delete permission: not found")
		return nil
	}

	var refs int64
	if err = s.db.Model(&models.PermissionView{}).
		Where("permission_id = ?", perm.ID).
		Count(&refs).Error; err != nil {
		return fmt.Errorf("failed to count permission references: %w", err)
	}

	if refs > 0 {
		return ErrPermissionInUse
	}

	if err = s.db.Delete(perm).Error; err != nil {
		return fmt.Errorf("failed to delete permission %q: %w", name, err)
	}

	return nil
}

// FindViewMenu returns a view/menu resource by name, or nil when absent.
func (s *Store) FindViewMenu(name string) (*models.ViewMenu, error) {
	var vm models.ViewMenu

	err := s.db.Where("name = ?", name).First(&vm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query view menu: %w", err)
	}

	return &vm, nil
}

// GetAllViewMenus returns every registered view/menu resource.
func (s *Store) GetAllViewMenus() ([]models.ViewMenu, error) {
	var vms []models.ViewMenu

	if err := s.db.Find(&vms).Error; err != nil {
		return nil, fmt.Errorf("failed to list view menus: %w", err)
	}

	return vms, nil
}

// AddViewMenu upserts a view/menu resource by name.
func (s *Store) AddViewMenu(name string) (*models.ViewMenu, error) {
	vm := models.ViewMenu{Name: name}

	if err := s.db.Where("name = ?", name).FirstOrCreate(&vm).Error; err != nil {
		return nil, fmt.Errorf("failed to add view menu %q: %w", name, err)
	}

	return &vm, nil
}

// GetViewMenuByID returns a view/menu resource by id.
func (s *Store) GetViewMenuByID(id uint) (*models.ViewMenu, error) {
	var vm models.ViewMenu

	err := s.db.First(&vm, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrViewMenuNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query view menu: %w", err)
	}

	return &vm, nil
}

// UpdateViewMenu renames a view/menu resource. Pairs keep referencing it by
// id, so grants survive the rename.
func (s *Store) UpdateViewMenu(id uint, name string) (*models.ViewMenu, error) {
	vm, err := s.GetViewMenuByID(id)
	if err != nil {
		return nil, err
	}

	vm.Name = name
	if err = s.db.Model(vm).Update("name", name).Error; err != nil {
		return nil, fmt.Errorf("failed to rename view menu: %w", err)
	}

	return vm, nil
}

// DelViewMenu deletes a view/menu by name. Refused while permission pairs
// still reference it.
func (s *Store) DelViewMenu(name string) error {
	vm, err := s.FindViewMenu(name)
	if err != nil {
		return err
	}

	if vm == nil {
		log.Warn().Str("view", name).Msg("delete view menu: not found")
		return nil
	}

	var refs int64
	if err = s.db.Model(&models.PermissionView{}).
		Where("view_menu_id = ?", vm.ID).
		Count(&refs).Error; err != nil {
		return fmt.Errorf("failed to count view references: %w", err)
	}

	if refs > 0 {
		return ErrViewMenuInUse
	}

	if err = s.db.Delete(vm).Error; err != nil {
		return fmt.Errorf("failed to delete view menu %q: %w", name, err)
	}

	return nil
}

// GetAllPermissionViews returns every (permission, view) pair with both sides
// preloaded.
func (s *Store) GetAllPermissionViews() ([]models.PermissionView, error) {
	var pvs []models.PermissionView

	err := s.db.Preload("Permission").Preload("ViewMenu").Find(&pvs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list permission views: %w", err)
	}

	return pvs, nil
}

// GetPermissionViewByID returns the (permission, view) pair by id with both
// sides preloaded.
func (s *Store) GetPermissionViewByID(id uint) (*models.PermissionView, error) {
	var pv models.PermissionView

	err := s.db.Preload("Permission").Preload("ViewMenu").First(&pv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPermissionViewNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query permission view: %w", err)
	}

	return &pv, nil
}

// UpdatePermissionViewMenu re-points an existing pair onto the named
// permission and view, creating either row lazily. Role grants follow the
// pair id. Refused when another pair already holds the combination.
func (s *Store) UpdatePermissionViewMenu(id uint, permissionName, viewName string) (*models.PermissionView, error) {
	if permissionName == "" || viewName == "" {
		return nil, fmt.Errorf("permission and view names are required")
	}

	pv, err := s.GetPermissionViewByID(id)
	if err != nil {
		return nil, err
	}

	existing, err := s.FindPermissionViewMenu(permissionName, viewName)
	if err != nil {
		return nil, err
	}

	if existing != nil && existing.ID != pv.ID {
		return nil, ErrPermissionViewExists
	}

	perm, err := s.AddPermission(permissionName)
	if err != nil {
		return nil, err
	}

	vm, err := s.AddViewMenu(viewName)
	if err != nil {
		return nil, err
	}

	if err = s.db.Model(pv).Updates(map[string]interface{}{
		"permission_id": perm.ID,
		"view_menu_id":  vm.ID,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to update permission view: %w", err)
	}

	pv.PermissionID = perm.ID
	pv.ViewMenuID = vm.ID
	pv.Permission = *perm
	pv.ViewMenu = *vm

	return pv, nil
}

// FindPermissionViewMenu returns the (permission, view) pair by names, or nil
// when either name or the pair is absent.
func (s *Store) FindPermissionViewMenu(permissionName, viewName string) (*models.PermissionView, error) {
	var pv models.PermissionView

	err := s.db.
		Joins("JOIN permission ON permission.id = permission_view.permission_id").
		Joins("JOIN view_menu ON view_menu.id = permission_view.view_menu_id").
		Where("permission.name = ? AND view_menu.name = ?", permissionName, viewName).
		Preload("Permission").
		Preload("ViewMenu").
		First(&pv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query permission view: %w", err)
	}

	return &pv, nil
}

// FindPermissionsViewMenu returns every pair attached to the given view.
func (s *Store) FindPermissionsViewMenu(viewName string) ([]models.PermissionView, error) {
	var pvs []models.PermissionView

	err := s.db.
		Joins("JOIN view_menu ON view_menu.id = permission_view.view_menu_id").
		Where("view_menu.name = ?", viewName).
		Preload("Permission").
		Preload("ViewMenu").
		Find(&pvs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query view permissions: %w", err)
	}

	return pvs, nil
}

// AddPermissionViewMenu upserts the grantable (permission, view) pair,
// creating the permission and view rows lazily when needed.
func (s *Store) AddPermissionViewMenu(permissionName, viewName string) (*models.PermissionView, error) {
	if permissionName == "" || viewName == "" {
		return nil, fmt.Errorf("permission and view names are required")
	}

	if pv, err := s.FindPermissionViewMenu(permissionName, viewName); err != nil || pv != nil {
		return pv, err
	}

	perm, err := s.AddPermission(permissionName)
	if err != nil {
		return nil, err
	}

	vm, err := s.AddViewMenu(viewName)
	if err != nil {
		return nil, err
	}

	pv := models.PermissionView{PermissionID: perm.ID, ViewMenuID: vm.ID}
	if err = s.db.Create(&pv).Error; err != nil {
		return nil, fmt.Errorf("failed to add permission %q on view %q: %w", permissionName, viewName, err)
	}

	pv.Permission = *perm
	pv.ViewMenu = *vm

	log.Info().Str("permission", permissionName).Str("view", viewName).
		Msg("added permission on view")

	return &pv, nil
}

// DelPermissionViewMenu deletes the (permission, view) pair. When the pair is
// still granted by any role the call fails with ErrPermissionViewInUse unless
// cascade is set, in which case the pair is first detached from every role.
// Orphaned permission and view rows left behind are pruned.
func (s *Store) DelPermissionViewMenu(permissionName, viewName string, cascade bool) error {
	pv, err := s.FindPermissionViewMenu(permissionName, viewName)
	if err != nil {
		return err
	}

	if pv == nil {
		return nil
	}

	var roleRefs int64
	if err = s.db.Table("ab_permission_view_role").
		Where("permission_view_id = ?", pv.ID).
		Count(&roleRefs).Error; err != nil {
		return fmt.Errorf("failed to count role grants: %w", err)
	}

	if roleRefs > 0 {
		if !cascade {
			log.Warn().Str("permission", permissionName).Str("view", viewName).
				Msg("delete refused: pair still granted by roles")

			return ErrPermissionViewInUse
		}

		if err = s.db.Exec(
			"DELETE FROM ab_permission_view_role WHERE permission_view_id = ?", pv.ID,
		).Error; err != nil {
			return fmt.Errorf("failed to detach pair from roles: %w", err)
		}
	}

	if err = s.db.Delete(pv).Error; err != nil {
		return fmt.Errorf("failed to delete permission view: %w", err)
	}

	// prune orphans
	var permRefs int64
	if err = s.db.Model(&models.PermissionView{}).
		Where("permission_id = ?", pv.PermissionID).
		Count(&permRefs).Error; err == nil && permRefs == 0 {
		_ = s.DelPermission(permissionName)
	}

	log.Info().Str("permission", permissionName).Str("view", viewName).
		Msg("deleted permission on view")

	return nil
}

// AddPermissionRole grants a (permission, view) pair to a role. A no-op when
// the role already grants the pair.
func (s *Store) AddPermissionRole(role *models.Role, pv *models.PermissionView) error {
	if pv == nil {
		return nil
	}

	for _, existing := range role.Permissions {
		if existing.ID == pv.ID {
			return nil
		}
	}

	if err := s.db.Model(role).Association("Permissions").Append(pv); err != nil {
		return fmt.Errorf("failed to grant pair to role %q: %w", role.Name, err)
	}

	return nil
}

// DelPermissionRole removes a (permission, view) grant from a role.
func (s *Store) DelPermissionRole(role *models.Role, pv *models.PermissionView) error {
	if pv == nil {
		return nil
	}

	if err := s.db.Model(role).Association("Permissions").Delete(pv); err != nil {
		return fmt.Errorf("failed to revoke pair from role %q: %w", role.Name, err)
	}

	for i, existing := range role.Permissions {
		if existing.ID == pv.ID {
			role.Permissions = append(role.Permissions[:i], role.Permissions[i+1:]...)
			break
		}
	}

	return nil
}
