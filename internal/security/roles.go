package security

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/go-secadmin/go-secadmin/internal/db/models"
)

// FindRole returns a role by name with its grants preloaded, or nil when
// absent.
func (s *Store) FindRole(name string) (*models.Role, error) {
	var role models.Role

	err := s.db.Where("name = ?", name).
		Preload("Permissions").
		Preload("Permissions.Permission").
		Preload("Permissions.ViewMenu").
		First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query role: %w", err)
	}

	return &role, nil
}

// GetRoleByID returns a role by primary key.
func (s *Store) GetRoleByID(id uint) (*models.Role, error) {
	var role models.Role

	err := s.db.Preload("Permissions").
		Preload("Permissions.Permission").
		Preload("Permissions.ViewMenu").
		First(&role, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query role: %w", err)
	}

	return &role, nil
}

// GetAllRoles returns every role with grants preloaded.
func (s *Store) GetAllRoles() ([]models.Role, error) {
	var roles []models.Role

	err := s.db.Preload("Permissions").
		Preload("Permissions.Permission").
		Preload("Permissions.ViewMenu").
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	return roles, nil
}

// AddRole upserts a role by name, optionally seeding it with grants.
func (s *Store) AddRole(name string, grants ...*models.PermissionView) (*models.Role, error) {
	role, err := s.FindRole(name)
	if err != nil {
		return nil, err
	}

	if role == nil {
		role = &models.Role{Name: name}
		if err = s.db.Create(role).Error; err != nil {
			return nil, fmt.Errorf("failed to add role %q: %w", name, err)
		}
	}

	for _, pv := range grants {
		if err = s.AddPermissionRole(role, pv); err != nil {
			return nil, err
		}
	}

	return role, nil
}

// UpdateRole renames a role.
func (s *Store) UpdateRole(id uint, name string) (*models.Role, error) {
	role, err := s.GetRoleByID(id)
	if err != nil {
		return nil, err
	}

	role.Name = name
	if err = s.db.Model(role).Update("name", name).Error; err != nil {
		return nil, fmt.Errorf("failed to rename role: %w", err)
	}

	return role, nil
}

// DelRole deletes a role. Refused with ErrDeleteRoleWithUsers while any user
// still carries the role, either directly or through a group.
func (s *Store) DelRole(id uint) error {
	role, err := s.GetRoleByID(id)
	if err != nil {
		return err
	}

	var userRefs int64
	if err = s.db.Table("ab_user_role").Where("role_id = ?", role.ID).Count(&userRefs).Error; err != nil {
		return fmt.Errorf("failed to count role users: %w", err)
	}

	if userRefs > 0 {
		return ErrDeleteRoleWithUsers
	}

	var groupRefs int64
	if err = s.db.Table("ab_group_role").Where("role_id = ?", role.ID).Count(&groupRefs).Error; err != nil {
		return fmt.Errorf("failed to count role groups: %w", err)
	}

	if groupRefs > 0 {
		return ErrDeleteRoleWithUsers
	}

	if err = s.db.Model(role).Association("Permissions").Clear(); err != nil {
		return fmt.Errorf("failed to clear role grants: %w", err)
	}

	if err = s.db.Delete(role).Error; err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	return nil
}

// GetRoleUserIDs returns the ids of every user directly assigned the role,
// in ascending order.
func (s *Store) GetRoleUserIDs(roleID uint) ([]uint64, error) {
	var ids []uint64

	if err := s.db.Table("ab_user_role").
		Where("role_id = ?", roleID).
		Order("user_id").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list role users: %w", err)
	}

	return ids, nil
}

// GetPublicRole returns the configured public role, or nil when it has never
// been created.
func (s *Store) GetPublicRole() (*models.Role, error) {
	return s.FindRole(s.cfg.RolePublic)
}

// FindGroup returns a group by name, or nil when absent.
func (s *Store) FindGroup(name string) (*models.Group, error) {
	var group models.Group

	err := s.db.Where("name = ?", name).Preload("Roles").First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query group: %w", err)
	}

	return &group, nil
}

// GetAllGroups returns every group with roles preloaded.
func (s *Store) GetAllGroups() ([]models.Group, error) {
	var groups []models.Group

	if err := s.db.Preload("Roles").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	return groups, nil
}

// AddGroup upserts a group by name.
func (s *Store) AddGroup(name, label, description string, roles ...*models.Role) (*models.Group, error) {
	group, err := s.FindGroup(name)
	if err != nil {
		return nil, err
	}

	if group == nil {
		group = &models.Group{Name: name, Label: label, Description: description}
		if err = s.db.Create(group).Error; err != nil {
			return nil, fmt.Errorf("failed to add group %q: %w", name, err)
		}
	}

	for _, role := range roles {
		if err = s.db.Model(group).Association("Roles").Append(role); err != nil {
			return nil, fmt.Errorf("failed to attach role to group %q: %w", name, err)
		}
	}

	return group, nil
}

// DelGroup deletes a group. Refused with ErrDeleteGroupWithUsers while the
// group still has members.
func (s *Store) DelGroup(id uint) error {
	var group models.Group

	err := s.db.First(&group, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrGroupNotFound
	}

	if err != nil {
		return fmt.Errorf("failed to query group: %w", err)
	}

	var memberRefs int64
	if err = s.db.Table("ab_user_group").Where("group_id = ?", group.ID).Count(&memberRefs).Error; err != nil {
		return fmt.Errorf("failed to count group members: %w", err)
	}

	if memberRefs > 0 {
		return ErrDeleteGroupWithUsers
	}

	if err = s.db.Model(&group).Association("Roles").Clear(); err != nil {
		return fmt.Errorf("failed to clear group roles: %w", err)
	}

	if err = s.db.Delete(&group).Error; err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	return nil
}
