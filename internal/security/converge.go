package security

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/go-secadmin/go-secadmin/internal/db/models"
)

// PermissionPrefix is prepended to method-level permission names when an
// endpoint registers itself (e.g. method "get" guards as "can_get").
const PermissionPrefix = "can_"

// ViewDeclaration describes what a registered endpoint class declares to the
// security layer: its resource name, the permissions it exposes and, for the
// converge tool, the names it had before a code-level rename.
type ViewDeclaration struct {
	// Name is the current resource (view) name.
	Name string
	// PreviousName is the resource name before a rename, empty when the class
	// was not renamed.
	PreviousName string
	// Permissions are the exposed permission names, already prefixed.
	Permissions []string
	// MethodPermissionName maps method names to their permission names
	// (without prefix), allowing several methods to share one grant.
	MethodPermissionName map[string]string
	// PreviousMethodPermissionName holds the pre-rename permission names for
	// methods whose permission was renamed.
	PreviousMethodPermissionName map[string]string
}

// StateTransitions is the structured diff produced by planning a converge
// run: pairs to add (keyed by the old pair they replace), role grants to
// drop, and views/permissions left orphaned by the migration.
type StateTransitions struct {
	Add        map[PermissionPair]map[PermissionPair]bool
	DelRolePvm map[PermissionPair]bool
	DelViews   map[string]bool
	DelPerms   map[string]bool
}

// Empty reports whether the plan contains no work.
func (st *StateTransitions) Empty() bool {
	return len(st.Add) == 0 && len(st.DelRolePvm) == 0 &&
		len(st.DelViews) == 0 && len(st.DelPerms) == 0
}

// newOldPermissions builds, per declaration, the map of new permission name
// to the set of old names it replaces.
func newOldPermissions(decl ViewDeclaration) map[string]map[string]bool {
	ret := make(map[string]map[string]bool)

	for methodName, permissionName := range decl.MethodPermissionName {
		oldName, ok := decl.PreviousMethodPermissionName[methodName]
		if !ok || oldName == "" {
			continue
		}

		newKey := PermissionPrefix + permissionName
		if ret[newKey] == nil {
			ret[newKey] = make(map[string]bool)
		}

		ret[newKey][PermissionPrefix+oldName] = true
	}

	return ret
}

func (st *StateTransitions) addTransition(oldPair, newPair PermissionPair) {
	if st.Add[oldPair] == nil {
		st.Add[oldPair] = make(map[PermissionPair]bool)
	}

	st.Add[oldPair][newPair] = true
	st.DelRolePvm[oldPair] = true
	st.DelViews[oldPair.ViewMenu] = true
	st.DelPerms[oldPair.Permission] = true
}

// pruneLiveTargets removes from the delete sets every view and permission
// that a current declaration still references.
func (st *StateTransitions) pruneLiveTargets(decls []ViewDeclaration) {
	for _, decl := range decls {
		delete(st.DelViews, decl.Name)

		for _, permission := range decl.Permissions {
			delete(st.DelRolePvm, PermissionPair{Permission: permission, ViewMenu: decl.Name})
			delete(st.DelPerms, permission)
		}
	}
}

// CreateStateTransitions plans the converge run for the given declarations
// without touching the database.
func CreateStateTransitions(decls []ViewDeclaration) *StateTransitions {
	st := &StateTransitions{
		Add:        make(map[PermissionPair]map[PermissionPair]bool),
		DelRolePvm: make(map[PermissionPair]bool),
		DelViews:   make(map[string]bool),
		DelPerms:   make(map[string]bool),
	}

	for _, decl := range decls {
		renamedView := decl.PreviousName != ""

		oldViewName := decl.Name
		if renamedView {
			oldViewName = decl.PreviousName
		}

		permissionMapping := newOldPermissions(decl)

		for _, newPermName := range decl.Permissions {
			oldPermNames := permissionMapping[newPermName]

			switch {
			case renamedView && len(oldPermNames) == 0:
				st.addTransition(
					PermissionPair{Permission: newPermName, ViewMenu: oldViewName},
					PermissionPair{Permission: newPermName, ViewMenu: decl.Name},
				)
			default:
				for oldPermName := range oldPermNames {
					st.addTransition(
						PermissionPair{Permission: oldPermName, ViewMenu: oldViewName},
						PermissionPair{Permission: newPermName, ViewMenu: decl.Name},
					)
				}
			}
		}
	}

	st.pruneLiveTargets(decls)

	return st
}

// Converge migrates persisted permission/view rows to track renamed endpoint
// classes and methods without losing which roles already grant them. Every
// role granting an old pair is granted the replacement pair, then the old
// grants, pairs, views and permissions are dropped. With dry set, the plan is
// returned without touching the database.
func (s *Store) Converge(decls []ViewDeclaration, dry bool) (*StateTransitions, error) {
	st := CreateStateTransitions(decls)
	if dry {
		return st, nil
	}

	if st.Empty() {
		log.Info().Msg("converge: no state transitions found")
		return st, nil
	}

	roles, err := s.GetAllRoles()
	if err != nil {
		return nil, err
	}

	for i := range roles {
		role := &roles[i]

		// copy: grants mutate during iteration
		grants := append([]PermissionPair(nil), rolePairList(role)...)

		for _, pair := range grants {
			newPairs := st.Add[pair]
			if len(newPairs) == 0 {
				continue
			}

			for newPair := range newPairs {
				pv, errAdd := s.AddPermissionViewMenu(newPair.Permission, newPair.ViewMenu)
				if errAdd != nil {
					return nil, errAdd
				}

				if errGrant := s.AddPermissionRole(role, pv); errGrant != nil {
					return nil, errGrant
				}
			}

			if st.DelRolePvm[pair] {
				pv, errFind := s.FindPermissionViewMenu(pair.Permission, pair.ViewMenu)
				if errFind != nil {
					return nil, errFind
				}

				if errDel := s.DelPermissionRole(role, pv); errDel != nil {
					return nil, errDel
				}
			}
		}
	}

	for pair := range st.DelRolePvm {
		if err = s.DelPermissionViewMenu(pair.Permission, pair.ViewMenu, false); err != nil &&
			!errors.Is(err, ErrPermissionViewInUse) {
			return nil, err
		}
	}

	for viewName := range st.DelViews {
		if err = s.DelViewMenu(viewName); err != nil && !errors.Is(err, ErrViewMenuInUse) {
			return nil, err
		}
	}

	for permName := range st.DelPerms {
		if err = s.DelPermission(permName); err != nil && !errors.Is(err, ErrPermissionInUse) {
			return nil, err
		}
	}

	return st, nil
}

func rolePairList(role *models.Role) []PermissionPair {
	pairs := make([]PermissionPair, 0, len(role.Permissions))
	for _, pv := range role.Permissions {
		pairs = append(pairs, PermissionPair{
			Permission: pv.Permission.Name,
			ViewMenu:   pv.ViewMenu.Name,
		})
	}

	return pairs
}
