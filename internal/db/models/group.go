package models

// Group is a bundle of roles assignable to many users at once. A user's
// effective roles are their directly-assigned roles plus the roles of every
// group they belong to.
type Group struct {
	// ID is the unique identifier for the group.
	ID uint `gorm:"primaryKey"`
	// Name is the unique group name.
	Name string `gorm:"unique;size:100;not null"`
	// Label is a human-facing display name.
	Label string `gorm:"size:150"`
	// Description explains the purpose of the group.
	Description string `gorm:"size:512"`
	// Roles are the roles granted to every member of the group.
	Roles []*Role `gorm:"many2many:ab_group_role"`
	// Users are the members of the group.
	Users []*User `gorm:"many2many:ab_user_group"`
}

// TableName specifies the database table name for the Group model.
func (Group) TableName() string {
	return "ab_group"
}
