package security

import (
	"fmt"

	"github.com/go-secadmin/go-secadmin/internal/db/models"
)

// PermissionPair is a (permission name, view name) tuple, the unit of every
// authorization decision.
type PermissionPair struct {
	Permission string
	ViewMenu   string
}

// GetUserRoles returns the user's effective roles: directly-assigned roles
// plus the roles of every group the user belongs to. An anonymous principal
// (nil user) resolves to the public role alone, when one exists.
func (s *Store) GetUserRoles(user *models.User) ([]*models.Role, error) {
	if user == nil {
		public, err := s.GetPublicRole()
		if err != nil {
			return nil, err
		}

		if public == nil {
			return nil, nil
		}

		return []*models.Role{public}, nil
	}

	seen := make(map[uint]bool, len(user.Roles))
	roles := make([]*models.Role, 0, len(user.Roles))

	for _, role := range user.Roles {
		if !seen[role.ID] {
			seen[role.ID] = true
			roles = append(roles, role)
		}
	}

	for _, group := range user.Groups {
		for _, role := range group.Roles {
			if !seen[role.ID] {
				seen[role.ID] = true
				roles = append(roles, role)
			}
		}
	}

	return roles, nil
}

// EffectivePermissions computes the union of every (permission, view) pair
// granted to the user through any of their effective roles. Set semantics:
// duplicates across roles collapse, no ordering guarantee.
func (s *Store) EffectivePermissions(user *models.User) (map[PermissionPair]bool, error) {
	roles, err := s.GetUserRoles(user)
	if err != nil {
		return nil, err
	}

	result := make(map[PermissionPair]bool)

	for _, role := range roles {
		pairs, errPairs := s.rolePairs(role)
		if errPairs != nil {
			return nil, errPairs
		}

		for _, pair := range pairs {
			result[pair] = true
		}
	}

	return result, nil
}

// EffectiveRolesPermissions is the same computation keyed by role name, for
// auditing. It must not deduplicate across roles: a pair granted by two roles
// appears under both keys.
func (s *Store) EffectiveRolesPermissions(user *models.User) (map[string][]PermissionPair, error) {
	roles, err := s.GetUserRoles(user)
	if err != nil {
		return nil, err
	}

	result := make(map[string][]PermissionPair, len(roles))

	for _, role := range roles {
		pairs, errPairs := s.rolePairs(role)
		if errPairs != nil {
			return nil, errPairs
		}

		result[role.Name] = pairs
	}

	return result, nil
}

// rolePairs returns the pairs a role grants, loading them when the role came
// in without preloaded associations.
func (s *Store) rolePairs(role *models.Role) ([]PermissionPair, error) {
	grants := role.Permissions
	if grants == nil {
		loaded, err := s.GetRoleByID(role.ID)
		if err != nil {
			return nil, err
		}

		grants = loaded.Permissions
	}

	pairs := make([]PermissionPair, 0, len(grants))
	for _, pv := range grants {
		pairs = append(pairs, PermissionPair{
			Permission: pv.Permission.Name,
			ViewMenu:   pv.ViewMenu.Name,
		})
	}

	return pairs, nil
}

// IsItemPublic reports whether the (permission, view) pair has been granted
// to the public role, making the endpoint intentionally open.
func (s *Store) IsItemPublic(permissionName, viewName string) (bool, error) {
	public, err := s.GetPublicRole()
	if err != nil || public == nil {
		return false, err
	}

	for _, pv := range public.Permissions {
		if pv.Permission.Name == permissionName && pv.ViewMenu.Name == viewName {
			return true, nil
		}
	}

	return false, nil
}

// HasAccess decides whether the principal may perform the permission on the
// view. Public grants allow anonymous access; otherwise the principal's
// effective roles are checked against the pair with a single join query.
func (s *Store) HasAccess(user *models.User, permissionName, viewName string) (bool, error) {
	if user == nil {
		return s.IsItemPublic(permissionName, viewName)
	}

	roles, err := s.GetUserRoles(user)
	if err != nil {
		return false, err
	}

	if len(roles) == 0 {
		return false, nil
	}

	roleIDs := make([]uint, 0, len(roles))
	for _, role := range roles {
		roleIDs = append(roleIDs, role.ID)
	}

	var count int64
	err = s.db.Table("permission_view").
		Joins("JOIN permission ON permission.id = permission_view.permission_id").
		Joins("JOIN view_menu ON view_menu.id = permission_view.view_menu_id").
		Joins("JOIN ab_permission_view_role ON ab_permission_view_role.permission_view_id = permission_view.id").
		Where("permission.name = ? AND view_menu.name = ?", permissionName, viewName).
		Where("ab_permission_view_role.role_id IN ?", roleIDs).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check access: %w", err)
	}

	return count > 0, nil
}
