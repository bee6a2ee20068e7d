package security

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/go-secadmin/go-secadmin/internal/db/models"
)

// Cleanup prunes permission/view rows that no registered endpoint declares
// anymore. A pair still granted by any role is never deleted, even when no
// endpoint currently declares it; the same safety applies to standalone
// permissions and views. Destructive; intended to run only after all
// endpoints have registered.
func (s *Store) Cleanup(decls []ViewDeclaration) error {
	declaredViews := make(map[string]bool, len(decls))
	declaredPerms := make(map[string]bool)

	for _, decl := range decls {
		declaredViews[decl.Name] = true

		for _, permission := range decl.Permissions {
			declaredPerms[permission] = true
		}
	}

	views, err := s.GetAllViewMenus()
	if err != nil {
		return err
	}

	for _, vm := range views {
		if declaredViews[vm.Name] {
			continue
		}

		pvs, errPvs := s.FindPermissionsViewMenu(vm.Name)
		if errPvs != nil {
			return errPvs
		}

		orphaned := true

		for _, pv := range pvs {
			errDel := s.DelPermissionViewMenu(pv.Permission.Name, vm.Name, false)

			switch {
			case errors.Is(errDel, ErrPermissionViewInUse):
				// a role still grants it: keep the pair and the view
				orphaned = false
			case errDel != nil:
				return errDel
			}
		}

		if !orphaned {
			log.Info().Str("view", vm.Name).
				Msg("cleanup: view kept, roles still grant permissions on it")

			continue
		}

		if errView := s.DelViewMenu(vm.Name); errView != nil &&
			!errors.Is(errView, ErrViewMenuInUse) {
			return errView
		}
	}

	return s.cleanupPermissions(declaredPerms)
}

// cleanupPermissions deletes permission rows no declaration references,
// skipping any still paired with a view.
func (s *Store) cleanupPermissions(declared map[string]bool) error {
	var names []string
	if err := s.db.Model(&models.Permission{}).Pluck("name", &names).Error; err != nil {
		return err
	}

	for _, name := range names {
		if declared[name] {
			continue
		}

		if err := s.DelPermission(name); err != nil && !errors.Is(err, ErrPermissionInUse) {
			return err
		}
	}

	return nil
}
