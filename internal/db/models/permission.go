package models

// Permission represents an action name in the authorization graph, independent
// of the resource it applies to (e.g. "can_get", "can_list", "menu_access").
// Rows are created lazily the first time a protected endpoint registers itself.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID uint `gorm:"primaryKey"`
	// Name is the unique action name (e.g. "can_get").
	Name string `gorm:"unique;size:100;not null"`
}

// TableName specifies the database table name for the Permission model.
func (Permission) TableName() string {
	return "permission"
}
