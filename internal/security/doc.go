// Package security implements the permission/role/resource graph and its
// consistency operations.
//
// The graph has three node kinds: Permission (an action name such as
// "can_get"), ViewMenu (a protectable endpoint or menu resource) and their
// join PermissionView, which is the atomic grantable unit. Roles bundle
// PermissionView pairs; Groups bundle Roles; Users carry Roles directly and
// via Groups.
//
// The Store type owns all durable operations: idempotent upserts keyed by
// natural names, referential-safe deletes, role resolution
// (EffectivePermissions), external role-key mapping (RolesFromKeys) and the
// two offline graph-maintenance tools Cleanup and Converge.
package security
