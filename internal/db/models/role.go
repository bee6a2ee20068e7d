package models

// Role represents a named bundle of (permission, view) grants in the
// role-based access control system. Built-in roles (e.g. "Admin", "Public")
// are distinguished from DB-editable roles only by how they are populated.
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey"`
	// Name is the unique name of the role (e.g. "Admin", "Public").
	Name string `gorm:"unique;size:64;not null"`
	// Permissions are the permission-view pairs granted by this role.
	Permissions []*PermissionView `gorm:"many2many:ab_permission_view_role"`
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "role"
}
