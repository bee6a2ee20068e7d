package security

import (
	"github.com/rs/zerolog/log"
)

// AddPermissionsView registers a protected endpoint class: its (permission,
// view) pairs are created lazily and granted to the admin role, and pairs
// whose permission the class no longer exposes are revoked from every role
// and deleted.
func (s *Store) AddPermissionsView(basePermissions []string, viewName string) error {
	if _, err := s.AddViewMenu(viewName); err != nil {
		return err
	}

	existing, err := s.FindPermissionsViewMenu(viewName)
	if err != nil {
		return err
	}

	admin, err := s.FindRole(s.cfg.RoleAdmin)
	if err != nil {
		return err
	}

	declared := make(map[string]bool, len(basePermissions))

	for _, permission := range basePermissions {
		declared[permission] = true

		pv, errAdd := s.AddPermissionViewMenu(permission, viewName)
		if errAdd != nil {
			return errAdd
		}

		if admin != nil {
			if errGrant := s.AddPermissionRole(admin, pv); errGrant != nil {
				return errGrant
			}
		}
	}

	// permissions the class stopped exposing
	for i := range existing {
		pv := existing[i]
		if declared[pv.Permission.Name] {
			continue
		}

		roles, errRoles := s.GetAllRoles()
		if errRoles != nil {
			return errRoles
		}

		for j := range roles {
			if errDel := s.DelPermissionRole(&roles[j], &pv); errDel != nil {
				return errDel
			}
		}

		if errDel := s.DelPermissionViewMenu(pv.Permission.Name, viewName, false); errDel != nil {
			return errDel
		}

		log.Info().Str("permission", pv.Permission.Name).Str("view", viewName).
			Msg("revoked permission no longer exposed by view")
	}

	return nil
}

// AddPermissionsMenu registers a menu entry as a resource guarded by the
// "menu_access" permission, granted to the admin role.
func (s *Store) AddPermissionsMenu(menuName string) error {
	pv, err := s.AddPermissionViewMenu("menu_access", menuName)
	if err != nil {
		return err
	}

	admin, err := s.FindRole(s.cfg.RoleAdmin)
	if err != nil || admin == nil {
		return err
	}

	return s.AddPermissionRole(admin, pv)
}
