package models

// ViewMenu represents a protectable resource: an endpoint class or a menu
// entry. Permission checks are always phrased against a (permission, view)
// pair, never against a bare permission.
type ViewMenu struct {
	// ID is the unique identifier for the view/menu resource.
	ID uint `gorm:"primaryKey"`
	// Name is the unique resource name (e.g. "UserApi").
	Name string `gorm:"unique;size:250;not null"`
}

// TableName specifies the database table name for the ViewMenu model.
func (ViewMenu) TableName() string {
	return "view_menu"
}
