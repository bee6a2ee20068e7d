package security

import "errors"

var (
	// ErrDeleteRoleWithUsers is returned when deleting a role that still has
	// users attached. Referential safety is preferred over cascading deletes.
	ErrDeleteRoleWithUsers = errors.New("cannot delete role: users are still assigned to it")

	// ErrDeleteGroupWithUsers is returned when deleting a group that still has
	// members.
	ErrDeleteGroupWithUsers = errors.New("cannot delete group: users are still members of it")

	// ErrPermissionViewInUse is returned when deleting a (permission, view)
	// pair that is still granted by at least one role and cascade was not
	// requested.
	ErrPermissionViewInUse = errors.New("permission on view is still referenced by a role")

	// ErrPermissionInUse is returned when deleting a permission that is still
	// paired with a view.
	ErrPermissionInUse = errors.New("permission is still associated with a view")

	// ErrViewMenuInUse is returned when deleting a view that still has
	// permission pairs.
	ErrViewMenuInUse = errors.New("view is still associated with permissions")

	// ErrPermissionNotFound is returned when a permission lookup by id fails.
	ErrPermissionNotFound = errors.New("permission not found")

	// ErrViewMenuNotFound is returned when a view lookup by id fails.
	ErrViewMenuNotFound = errors.New("view not found")

	// ErrPermissionViewNotFound is returned when a (permission, view) pair
	// lookup by id fails.
	ErrPermissionViewNotFound = errors.New("permission on view not found")

	// ErrPermissionViewExists is returned when re-pointing a pair onto a
	// combination another row already holds.
	ErrPermissionViewExists = errors.New("permission on view already exists")

	// ErrRoleNotFound is returned when a role lookup by name or id fails.
	ErrRoleNotFound = errors.New("role not found")

	// ErrGroupNotFound is returned when a group lookup fails.
	ErrGroupNotFound = errors.New("group not found")

	// ErrUserNotFound is returned when a user lookup fails.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserNameOrEmailExists is returned when creating a user with a
	// username or email that already exists.
	ErrUserNameOrEmailExists = errors.New("user with username or email already exists")
)
