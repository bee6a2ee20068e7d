package models

// PermissionView is the atomic grantable unit: one permission paired with one
// view/menu resource. Roles reference these pairs, never bare permissions.
// The (permission_id, view_menu_id) pair is unique.
type PermissionView struct {
	// ID is the unique identifier for the pair.
	ID uint `gorm:"primaryKey"`
	// PermissionID is the ID of the paired permission.
	PermissionID uint `gorm:"column:permission_id;not null;uniqueIndex:idx_permission_view"`
	// ViewMenuID is the ID of the paired view/menu resource.
	ViewMenuID uint `gorm:"column:view_menu_id;not null;uniqueIndex:idx_permission_view"`
	// Permission is the associated permission (loaded via foreign key).
	Permission Permission `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE"`
	// ViewMenu is the associated resource (loaded via foreign key).
	ViewMenu ViewMenu `gorm:"foreignKey:ViewMenuID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the database table name for the PermissionView model.
func (PermissionView) TableName() string {
	return "permission_view"
}
